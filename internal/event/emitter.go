// Package event carries authentication outcomes from the auth session to
// the orchestrator over an in-process pub/sub bus. Delivery is always
// asynchronous: a subscriber observes events on its own channel, never on
// the emitter's call stack, so a handler that triggers another login
// cannot grow the stack through re-entrant emission.
package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Kind is the fixed event set of the auth session.
type Kind string

const (
	KindLogin   Kind = "login"
	KindFailure Kind = "failure"
)

// Event is one authentication outcome.
type Event struct {
	Kind   Kind   `json:"kind"`
	Token  string `json:"token,omitempty"`
	Reason string `json:"reason,omitempty"`
}

const authTopic = "auth.events"

// Emitter is a typed facade over a Watermill GoChannel pub/sub.
type Emitter struct {
	bus *gochannel.GoChannel
}

func NewEmitter() *Emitter {
	return &Emitter{
		bus: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 16},
			watermill.NopLogger{},
		),
	}
}

// Emit publishes an event. The event is handed to subscriber channels and
// the call returns; handlers never run synchronously under Emit.
func (e *Emitter) Emit(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := e.bus.Publish(authTopic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe returns a channel of decoded events. The channel closes when
// ctx is canceled or the emitter is closed.
func (e *Emitter) Subscribe(ctx context.Context) (<-chan Event, error) {
	msgs, err := e.bus.Subscribe(ctx, authTopic)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan Event, 16)
	go func() {
		defer close(out)
		for m := range msgs {
			var ev Event
			if err := json.Unmarshal(m.Payload, &ev); err != nil {
				m.Ack()
				continue
			}
			m.Ack()
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (e *Emitter) Close() error {
	return e.bus.Close()
}
