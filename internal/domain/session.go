package domain

import "github.com/google/uuid"

// Session is the single shared session record. The auth layer writes the
// token, the orchestrator flips Authenticated; everything else only
// reads it.
type Session struct {
	ID            uuid.UUID
	Token         string
	Authenticated bool
}

// NewSession creates an unauthenticated session with a fresh identity.
func NewSession() *Session {
	return &Session{ID: uuid.New()}
}
