// Package viewer composes the session control plane: channel, auth,
// negotiation, and input relay, sequenced by one state machine.
package viewer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"rdview/native/internal/auth"
	"rdview/native/internal/domain"
	"rdview/native/internal/event"
	"rdview/native/internal/input"
	"rdview/native/internal/negotiate"
)

// State is the top-level session lifecycle.
type State int

const (
	StateInit State = iota
	StateChannelConnecting
	StateAuthenticating
	StateAuthenticated
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateChannelConnecting:
		return "CHANNEL_CONNECTING"
	case StateAuthenticating:
		return "AUTHENTICATING"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateStreaming:
		return "STREAMING"
	default:
		return "UNKNOWN"
	}
}

// Orchestrator runs the session: open channel, authenticate (retrying
// until it succeeds), then process signaling messages one at a time to
// completion on a single loop. A server auth_failure at any later point
// resets the token and re-enters authentication.
type Orchestrator struct {
	channel    domain.Channel
	auth       *auth.Session
	emitter    *event.Emitter
	negotiator *negotiate.Controller
	relay      *input.Relay
	source     input.Source
	session    *domain.Session
	log        zerolog.Logger

	state        State
	events       <-chan event.Event
	relayEnabled bool
}

func NewOrchestrator(
	channel domain.Channel,
	authSession *auth.Session,
	emitter *event.Emitter,
	relay *input.Relay,
	source input.Source,
	session *domain.Session,
	log zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		channel: channel,
		auth:    authSession,
		emitter: emitter,
		relay:   relay,
		source:  source,
		session: session,
		log:     log.With().Str("component", "viewer").Str("session", session.ID.String()).Logger(),
		state:   StateInit,
	}
}

// SetNegotiator injects the negotiation controller after construction.
// The controller needs the orchestrator's streaming callback and the
// orchestrator needs the controller, so the composition root wires the
// two in this order.
func (o *Orchestrator) SetNegotiator(n *negotiate.Controller) {
	o.negotiator = n
}

// OnStreaming is the negotiation controller's callback. The relay is
// enabled exactly once, on the first transition into streaming.
func (o *Orchestrator) OnStreaming() {
	o.state = StateStreaming
	if o.relayEnabled {
		return
	}
	o.relayEnabled = true
	o.relay.Activate(o.source)
}

// State reports the current session state.
func (o *Orchestrator) State() State {
	return o.state
}

// Run drives the session until the context is canceled, the channel
// closes, or negotiation fails. A channel-open failure is terminal and
// reported without retry.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.state = StateChannelConnecting
	if err := o.channel.Connect(ctx); err != nil {
		return fmt.Errorf("open signaling channel: %w", err)
	}

	events, err := o.emitter.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe auth events: %w", err)
	}
	o.events = events

	if err := o.authenticate(ctx, ""); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-o.channel.Messages():
			if !ok {
				return domain.ErrChannelClosed
			}
			if err := o.handle(ctx, msg); err != nil {
				return err
			}
		}
	}
}

// authenticate loops login attempts until one succeeds, feeding each
// failure reason into the next prompt. The loop is unbounded on purpose:
// nothing else can happen without authentication, so only external
// cancellation ends it.
func (o *Orchestrator) authenticate(ctx context.Context, message string) error {
	o.state = StateAuthenticating

	for {
		if err := o.auth.Login(ctx, message); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, domain.ErrPromptCanceled) {
				return err
			}
			// Rejected or transport failure: the outcome arrives as a
			// failure event below.
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-o.events:
			if !ok {
				return fmt.Errorf("auth event stream closed")
			}
			switch ev.Kind {
			case event.KindLogin:
				if err := o.channel.Send(&domain.AuthMessage{
					Type:  domain.TypeAuth,
					Token: ev.Token,
				}); err != nil {
					o.log.Warn().Err(err).Msg("could not send auth message")
				}
				o.session.Authenticated = true
				o.state = StateAuthenticated
				o.negotiator.Expect()
				o.log.Info().Msg("authenticated")
				return nil
			case event.KindFailure:
				o.log.Info().Str("reason", ev.Reason).Msg("authentication failed, reprompting")
				message = ev.Reason
			}
		}
	}
}

// handle processes one inbound signaling message to completion before
// the next is dequeued.
func (o *Orchestrator) handle(ctx context.Context, msg any) error {
	switch m := msg.(type) {
	case *domain.OfferMessage:
		if err := o.negotiator.HandleOffer(m); err != nil {
			// Fatal: surfaced to the user, never retried.
			return err
		}

	case *domain.CandidateMessage:
		o.negotiator.HandleCandidate(m)

	case *domain.AuthFailureMessage:
		o.log.Warn().Str("error", m.Error).Msg("server invalidated our session")
		o.auth.Reset()
		o.session.Authenticated = false
		return o.authenticate(ctx, m.Error)

	default:
		// Unrecognized types are a no-op by contract.
		o.log.Debug().Msgf("ignoring unexpected message: %T", msg)
	}
	return nil
}
