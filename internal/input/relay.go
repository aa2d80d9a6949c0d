package input

import (
	"math"

	"github.com/rs/zerolog"

	"rdview/native/internal/domain"
)

// Relay maps each captured event to exactly one outbound signaling
// message, synchronously and without batching or coalescing. It emits
// nothing until Activate subscribes it to a source. Coordinates are
// passed through untransformed apart from rounding pointer positions;
// they are assumed meaningful to the remote receiver.
type Relay struct {
	channel domain.Channel
	session *domain.Session // read-only
	log     zerolog.Logger
	active  bool
}

func NewRelay(channel domain.Channel, session *domain.Session, log zerolog.Logger) *Relay {
	return &Relay{
		channel: channel,
		session: session,
		log:     log.With().Str("component", "input").Logger(),
	}
}

// Activate subscribes the relay to the source. Idempotent; only the
// first call subscribes.
func (r *Relay) Activate(src Source) {
	if r.active {
		return
	}
	r.active = true
	src.Subscribe(r)
	r.log.Info().Msg("input relay active")
}

// Active reports whether Activate has run.
func (r *Relay) Active() bool {
	return r.active
}

func (r *Relay) HandlePointerMove(e PointerEvent) {
	r.send(&domain.MouseMoveMessage{
		Type: domain.TypeMouseMove,
		X:    int(math.Round(e.X)),
		Y:    int(math.Round(e.Y)),
	})
}

func (r *Relay) HandleButton(e ButtonEvent) {
	r.send(&domain.MouseButtonMessage{
		Type:   domain.TypeMouseButton,
		Button: e.Button,
		X:      e.X,
		Y:      e.Y,
		Down:   e.Down,
	})
}

func (r *Relay) HandleWheel(e WheelEvent) {
	r.send(&domain.MouseWheelMessage{
		Type:   domain.TypeMouseWheel,
		DeltaX: e.DeltaX,
		DeltaY: e.DeltaY,
		DeltaZ: e.DeltaZ,
	})
}

func (r *Relay) HandleKey(e KeyEvent) {
	r.send(&domain.KeyboardMessage{
		Type: domain.TypeKeyboard,
		Event: domain.KeyEvent{
			Key:      e.Key,
			Code:     e.Code,
			Location: e.Location,
			KeyDown:  e.Down,
		},
	})
}

func (r *Relay) send(msg any) {
	if err := r.channel.Send(msg); err != nil {
		r.log.Warn().Err(err).Msg("could not relay input event")
	}
}
