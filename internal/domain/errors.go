package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrPromptCanceled means the user dismissed the credential prompt or
	// its input source went away. Unlike a rejected login this is not
	// retried.
	ErrPromptCanceled = errors.New("credential prompt canceled")

	// ErrChannelClosed means the signaling channel went away underneath
	// the session.
	ErrChannelClosed = errors.New("signaling channel closed")
)

// RejectedError is a login attempt the server turned down (any status of
// 300 or above). Its text is rendered inline in the next prompt.
type RejectedError struct {
	Status     int
	StatusText string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%d %s", e.Status, e.StatusText)
}

// NegotiationError is a rejection from the media transport during the
// offer/answer exchange. Fatal for the session; never retried.
type NegotiationError struct {
	Stage string
	Err   error
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("negotiation failed at %s: %v", e.Stage, e.Err)
}

func (e *NegotiationError) Unwrap() error { return e.Err }
