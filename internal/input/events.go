// Package input captures local device events and relays them to the
// remote session as signaling messages.
package input

// PointerEvent is a pointer position in element-local coordinates.
type PointerEvent struct {
	X float64
	Y float64
}

// ButtonEvent is a pointer button transition.
type ButtonEvent struct {
	Button int
	X      int
	Y      int
	Down   bool
}

// WheelEvent carries scroll deltas, unrounded.
type WheelEvent struct {
	DeltaX float64
	DeltaY float64
	DeltaZ float64
}

// KeyEvent is a key transition.
type KeyEvent struct {
	Key      string
	Code     string
	Location int
	Down     bool
}

// Source delivers captured device events to a Handler. Subscribing
// implies capture: the source suppresses the environment's default
// handling (scrolling, shortcuts, context menus) for every event it
// delivers, so the remote side receives it instead.
type Source interface {
	Subscribe(Handler)
}

// Handler receives captured events.
type Handler interface {
	HandlePointerMove(PointerEvent)
	HandleButton(ButtonEvent)
	HandleWheel(WheelEvent)
	HandleKey(KeyEvent)
}
