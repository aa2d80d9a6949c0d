package domain

import "encoding/json"

// MessageType discriminates signaling messages on the wire.
type MessageType string

const (
	TypeAuth        MessageType = "auth"
	TypeAuthFailure MessageType = "auth_failure"
	TypeOffer       MessageType = "offer"
	TypeAnswer      MessageType = "answer"
	TypeCandidate   MessageType = "candidate"
	TypeMouseMove   MessageType = "mouse_move"
	TypeMouseButton MessageType = "mouse_button"
	TypeMouseWheel  MessageType = "mouse_wheel"
	TypeKeyboard    MessageType = "keyboard"
)

///////////////////////////////////////////////////////////////////////////
// Session setup messages

// AuthMessage presents the bearer token to the server after the
// channel opens.
type AuthMessage struct {
	Type  MessageType `json:"type"`
	Token string      `json:"token"`
}

// AuthFailureMessage is the server rejecting our token after the fact
// (expiry, revocation). The error string is rendered in the next prompt.
type AuthFailureMessage struct {
	Type  MessageType `json:"type"`
	Error string      `json:"error"`
}

// OfferMessage starts (or restarts) transport negotiation. The ICE server
// list it carries is authoritative; the client configures its transport
// from it rather than from any built-in default.
type OfferMessage struct {
	Type       MessageType `json:"type"`
	SDP        string      `json:"sdp"`
	ICEServers []ICEServer `json:"iceServers"`
}

// AnswerMessage is the client's reply to an offer. Exactly one per offer.
type AnswerMessage struct {
	Type MessageType `json:"type"`
	SDP  string      `json:"sdp"`
}

// CandidateMessage carries one ICE candidate in either direction.
type CandidateMessage struct {
	Type      MessageType `json:"type"`
	Candidate Candidate   `json:"candidate"`
}

// Candidate mirrors the RTCIceCandidate JSON shape used by the server.
type Candidate struct {
	Candidate        string `json:"candidate"`
	SDPMLineIndex    int    `json:"sdpMLineIndex"`
	SDPMid           string `json:"sdpMid"`
	UsernameFragment string `json:"usernameFragment,omitempty"`
}

// ICEServer holds STUN/TURN server configuration as delivered in an offer.
type ICEServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

///////////////////////////////////////////////////////////////////////////
// Input messages
// Sent from the client to drive the remote device. Outbound only.

// MouseMoveMessage reports an absolute pointer position, rounded to
// integer device coordinates.
type MouseMoveMessage struct {
	Type MessageType `json:"type"`
	X    int         `json:"x"`
	Y    int         `json:"y"`
}

// MouseButtonMessage reports a button transition at a position.
type MouseButtonMessage struct {
	Type   MessageType `json:"type"`
	Button int         `json:"button"`
	X      int         `json:"x"`
	Y      int         `json:"y"`
	Down   bool        `json:"down"`
}

// MouseWheelMessage passes wheel deltas through unrounded.
type MouseWheelMessage struct {
	Type   MessageType `json:"type"`
	DeltaX float64     `json:"deltaX"`
	DeltaY float64     `json:"deltaY"`
	DeltaZ float64     `json:"deltaZ"`
}

// KeyboardMessage reports a key transition. The event payload is nested
// under "event" to match the server's message model.
type KeyboardMessage struct {
	Type  MessageType `json:"type"`
	Event KeyEvent    `json:"event"`
}

// KeyEvent identifies a key the way browsers do: logical key value,
// physical code, and location for keys that appear more than once.
type KeyEvent struct {
	Key      string `json:"key"`
	Code     string `json:"code"`
	Location int    `json:"location"`
	KeyDown  bool   `json:"keyDown"`
}

///////////////////////////////////////////////////////////////////////////

// Decode unmarshals a signaling frame into its typed message based on the
// "type" discriminator. Frames with an unrecognized type decode into a
// plain map so that consumers can treat them as a no-op rather than an
// error.
func Decode(data []byte) (msg any, err error) {
	var envelope struct {
		Type MessageType `json:"type"`
	}
	if err = json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}

	switch envelope.Type {
	case TypeAuth:
		msg = &AuthMessage{}
	case TypeAuthFailure:
		msg = &AuthFailureMessage{}
	case TypeOffer:
		msg = &OfferMessage{}
	case TypeAnswer:
		msg = &AnswerMessage{}
	case TypeCandidate:
		msg = &CandidateMessage{}
	case TypeMouseMove:
		msg = &MouseMoveMessage{}
	case TypeMouseButton:
		msg = &MouseButtonMessage{}
	case TypeMouseWheel:
		msg = &MouseWheelMessage{}
	case TypeKeyboard:
		msg = &KeyboardMessage{}
	default:
		var raw map[string]any
		if err = json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return raw, nil
	}

	if err = json.Unmarshal(data, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
