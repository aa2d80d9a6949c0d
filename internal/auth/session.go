// Package auth owns the login lifecycle: stored-token short circuit,
// credential prompt, token exchange, persistence, and the login/failure
// events the orchestrator sequences on.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"rdview/native/internal/api"
	"rdview/native/internal/domain"
	"rdview/native/internal/event"
	"rdview/native/internal/token"
)

// Session drives one user's authentication. It is the only writer of the
// shared session's token.
type Session struct {
	store   domain.TokenStore
	prompt  domain.CredentialPrompt
	client  *api.LoginClient
	emitter *event.Emitter
	session *domain.Session
	log     zerolog.Logger
}

func NewSession(
	store domain.TokenStore,
	prompt domain.CredentialPrompt,
	client *api.LoginClient,
	emitter *event.Emitter,
	session *domain.Session,
	log zerolog.Logger,
) *Session {
	return &Session{
		store:   store,
		prompt:  prompt,
		client:  client,
		emitter: emitter,
		session: session,
		log:     log.With().Str("component", "auth").Logger(),
	}
}

// Login runs a single authentication attempt. A non-empty message is the
// previous failure reason, rendered by the prompt.
//
// Outcomes are reported through the event emitter: exactly one login
// event on success, exactly one failure event when the exchange ran and
// was turned down. The returned error is non-nil only when the attempt
// could not run at all (canceled context, dismissed prompt); no event is
// emitted in that case.
//
// A stored token short-circuits the whole exchange: it is trusted as-is,
// without an expiry check, and the server remains the authority on
// rejecting it (see the auth_failure handling in the orchestrator).
func (s *Session) Login(ctx context.Context, message string) error {
	stored, err := s.store.Load()
	if err != nil {
		s.log.Warn().Err(err).Msg("could not read token store, treating as absent")
		stored = ""
	}
	if stored != "" {
		s.log.Info().Msg("using previously stored token")
		s.logValidity(stored)
		s.session.Token = stored
		return s.emitter.Emit(event.Event{Kind: event.KindLogin, Token: stored})
	}

	creds, err := s.prompt.Prompt(ctx, message)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", domain.ErrPromptCanceled, err)
	}

	// Credentials go out of scope right after the exchange; they are
	// never stored.
	tok, err := s.client.Login(ctx, creds)
	if err != nil {
		reason := failureReason(err)
		s.log.Warn().Str("reason", reason).Msg("login attempt failed")
		if emitErr := s.emitter.Emit(event.Event{Kind: event.KindFailure, Reason: reason}); emitErr != nil {
			return emitErr
		}
		return err
	}

	s.logValidity(tok)
	if err := s.store.Save(tok); err != nil {
		s.log.Warn().Err(err).Msg("could not persist token")
	}
	s.session.Token = tok
	return s.emitter.Emit(event.Event{Kind: event.KindLogin, Token: tok})
}

// Reset drops the in-memory token and removes the persisted one, forcing
// the next Login to prompt. Idempotent.
func (s *Session) Reset() {
	s.session.Token = ""
	if err := s.store.Clear(); err != nil {
		s.log.Warn().Err(err).Msg("could not clear token store")
	}
}

func (s *Session) logValidity(tok string) {
	remaining, err := token.RemainingValidity(tok)
	if err != nil {
		s.log.Debug().Err(err).Msg("could not read token expiry")
		return
	}
	s.log.Info().Dur("valid_for", remaining).Msg("token validity")
}

func failureReason(err error) string {
	var rejected *domain.RejectedError
	if errors.As(err, &rejected) {
		return rejected.Error()
	}
	return err.Error()
}
