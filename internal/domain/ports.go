package domain

import (
	"context"
	"io"
)

// Channel is the bidirectional signaling transport. Inbound frames are
// decoded and delivered on Messages in strict arrival order; sends are
// fire-and-forget (the channel buffers or fails visibly, the caller does
// not retry).
type Channel interface {
	Connect(ctx context.Context) error
	Send(msg any) error
	Messages() <-chan any
	Close() error
}

// TokenStore persists the single opaque auth token across sessions.
// Load returns the empty string when no token is stored.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// CredentialPrompt asks the user for a credential pair. A non-empty
// message is a failure reason from the previous attempt and is rendered
// before asking again. Cancellation surfaces as an error.
type CredentialPrompt interface {
	Prompt(ctx context.Context, message string) (Credentials, error)
}

// Credentials are transient; they are discarded right after the login
// exchange and never persisted.
type Credentials struct {
	Username string
	Password string
}

// Transport is the answer side of a media peer connection.
type Transport interface {
	// SetRemoteOffer applies the server's SDP offer.
	SetRemoteOffer(sdp string) error
	// CreateAnswer produces the local answer SDP and applies it as the
	// local description.
	CreateAnswer() (string, error)
	// OnICECandidate registers the callback for locally gathered
	// candidates. A nil candidate signals end of gathering.
	OnICECandidate(fn func(c *Candidate))
	// AddRemoteCandidate feeds a candidate received from the peer.
	AddRemoteCandidate(c Candidate) error
	Close() error
}

// TransportFactory builds a Transport from the ICE server list carried in
// an offer. A renegotiation offer produces a fresh transport.
type TransportFactory func(iceServers []ICEServer) (Transport, error)

// MediaSink receives the raw remote video stream. The control plane does
// not interpret its content.
type MediaSink io.Writer
