// Package negotiate drives the media transport through the offer/answer
// and candidate exchange carried by the signaling channel.
package negotiate

import (
	"sync"

	"github.com/rs/zerolog"

	"rdview/native/internal/domain"
)

// State is the negotiation lifecycle. Owned exclusively by Controller.
type State int

const (
	StateIdle State = iota
	StateAwaitingOffer
	StateAnswering
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAwaitingOffer:
		return "AWAITING_OFFER"
	case StateAnswering:
		return "ANSWERING"
	case StateStreaming:
		return "STREAMING"
	default:
		return "UNKNOWN"
	}
}

// Controller consumes offer and candidate messages and produces exactly
// one answer per offer, plus one outbound candidate message per locally
// gathered candidate. A transport rejection is fatal: it propagates to
// the caller and is never retried.
type Controller struct {
	channel     domain.Channel
	factory     domain.TransportFactory
	transport   domain.Transport
	state       State
	onStreaming func()
	log         zerolog.Logger

	// ICE gathering starts inside CreateAnswer and reports candidates
	// from the transport's own goroutine. The answer frame must go out
	// first, so candidates are held here until it has been sent.
	mu         sync.Mutex
	answerSent bool
	held       []*domain.Candidate
}

// NewController creates an idle controller. onStreaming fires every time
// an answer has been sent; the orchestrator guards its own once-only
// activation behind it.
func NewController(channel domain.Channel, factory domain.TransportFactory, onStreaming func(), log zerolog.Logger) *Controller {
	return &Controller{
		channel:     channel,
		factory:     factory,
		state:       StateIdle,
		onStreaming: onStreaming,
		log:         log.With().Str("component", "negotiate").Logger(),
	}
}

// State reports the current negotiation state.
func (c *Controller) State() State {
	return c.state
}

// Expect marks the controller as waiting for the server's offer. Called
// once authentication has gone through.
func (c *Controller) Expect() {
	if c.state == StateIdle {
		c.state = StateAwaitingOffer
	}
}

// HandleOffer answers one offer. A second offer while streaming is a
// renegotiation: the previous transport is torn down and the exchange
// restarts from ANSWERING with a transport built from the new offer's
// ICE server list.
func (c *Controller) HandleOffer(offer *domain.OfferMessage) error {
	if c.transport != nil {
		c.log.Info().Msg("renegotiation offer, replacing transport")
		c.transport.Close()
		c.transport = nil
	}
	c.state = StateAnswering
	c.mu.Lock()
	c.answerSent = false
	c.held = nil
	c.mu.Unlock()

	transport, err := c.factory(offer.ICEServers)
	if err != nil {
		c.state = StateIdle
		return &domain.NegotiationError{Stage: "create transport", Err: err}
	}
	c.transport = transport

	transport.OnICECandidate(func(cand *domain.Candidate) {
		// A nil candidate is end-of-gathering; it is not forwarded.
		if cand == nil {
			return
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.answerSent {
			c.held = append(c.held, cand)
			return
		}
		c.sendCandidateLocked(cand)
	})

	if err := transport.SetRemoteOffer(offer.SDP); err != nil {
		return &domain.NegotiationError{Stage: "set remote offer", Err: err}
	}

	answer, err := transport.CreateAnswer()
	if err != nil {
		return &domain.NegotiationError{Stage: "create answer", Err: err}
	}

	if err := c.channel.Send(&domain.AnswerMessage{
		Type: domain.TypeAnswer,
		SDP:  answer,
	}); err != nil {
		return &domain.NegotiationError{Stage: "send answer", Err: err}
	}

	c.mu.Lock()
	c.answerSent = true
	for _, cand := range c.held {
		c.sendCandidateLocked(cand)
	}
	c.held = nil
	c.mu.Unlock()

	c.state = StateStreaming
	c.log.Info().Msg("answer sent, streaming")
	if c.onStreaming != nil {
		c.onStreaming()
	}
	return nil
}

// sendCandidateLocked forwards one local candidate. Callers hold c.mu,
// which serializes the flush of held candidates with direct sends from
// the gathering callback.
func (c *Controller) sendCandidateLocked(cand *domain.Candidate) {
	if err := c.channel.Send(&domain.CandidateMessage{
		Type:      domain.TypeCandidate,
		Candidate: *cand,
	}); err != nil {
		c.log.Warn().Err(err).Msg("could not send ICE candidate")
	}
}

// HandleCandidate feeds a remote candidate to the current transport.
// Candidates arriving before any offer are dropped.
func (c *Controller) HandleCandidate(msg *domain.CandidateMessage) {
	if c.transport == nil {
		c.log.Debug().Msg("candidate before offer, dropping")
		return
	}
	if err := c.transport.AddRemoteCandidate(msg.Candidate); err != nil {
		c.log.Warn().Err(err).Msg("could not add remote ICE candidate")
	}
}

// Close tears down the current transport, if any.
func (c *Controller) Close() {
	if c.transport != nil {
		c.transport.Close()
		c.transport = nil
	}
	c.state = StateIdle
}
