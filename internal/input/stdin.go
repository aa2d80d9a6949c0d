package input

import (
	"bufio"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// escapeGrace is how long a lone ESC byte waits for the rest of an
// escape sequence before it is treated as a bare Escape press. Sequences
// can arrive split across reads on slow links.
const escapeGrace = 25 * time.Millisecond

// KeyboardSource captures keys from a raw-mode terminal so a headless
// session can drive the remote keyboard while video pipes elsewhere.
// Terminals report presses, not transitions, so each captured key is
// delivered as a down/up pair. Ctrl+Q is the local escape hatch; every
// other key is consumed and relayed.
type KeyboardSource struct {
	in     *os.File
	onQuit func()
	log    zerolog.Logger
}

func NewKeyboardSource(in *os.File, onQuit func(), log zerolog.Logger) *KeyboardSource {
	return &KeyboardSource{
		in:     in,
		onQuit: onQuit,
		log:    log.With().Str("component", "keyboard").Logger(),
	}
}

// Subscribe puts the terminal in raw mode and starts delivering key
// events to h until Ctrl+Q or read failure.
func (s *KeyboardSource) Subscribe(h Handler) {
	go s.readLoop(h)
}

func (s *KeyboardSource) readLoop(h Handler) {
	fd := int(s.in.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		s.log.Warn().Err(err).Msg("could not enter raw mode, keyboard capture disabled")
		return
	}
	defer term.Restore(fd, oldState)

	s.log.Info().Msg("keyboard capture active, Ctrl+Q to quit")

	reader := bufio.NewReader(s.in)
	for {
		b, err := reader.ReadByte()
		if err != nil {
			s.log.Warn().Err(err).Msg("keyboard read error")
			return
		}

		if b == 0x11 { // Ctrl+Q
			s.log.Info().Msg("keyboard capture stopped")
			if s.onQuit != nil {
				s.onQuit()
			}
			return
		}

		key, code := s.decodeKey(b, reader)
		if key == "" {
			continue
		}

		h.HandleKey(KeyEvent{Key: key, Code: code, Down: true})
		h.HandleKey(KeyEvent{Key: key, Code: code, Down: false})
	}
}

// decodeKey maps a raw terminal byte (plus any buffered escape sequence)
// to browser-style key and code values.
func (s *KeyboardSource) decodeKey(b byte, reader *bufio.Reader) (key, code string) {
	switch {
	case b >= 'a' && b <= 'z':
		return string(b), "Key" + strings.ToUpper(string(b))
	case b >= 'A' && b <= 'Z':
		return string(b), "Key" + string(b)
	case b >= '0' && b <= '9':
		return string(b), "Digit" + string(b)
	case b == ' ':
		return " ", "Space"
	case b == '\r':
		return "Enter", "Enter"
	case b == '\t':
		return "Tab", "Tab"
	case b == 0x7f:
		return "Backspace", "Backspace"
	case b == 0x1b:
		return s.decodeEscape(reader)
	case b >= 0x21 && b <= 0x7e:
		// Remaining printable punctuation; the physical code is unknown
		// from a byte stream, which the server tolerates.
		return string(b), ""
	default:
		return "", ""
	}
}

func (s *KeyboardSource) decodeEscape(reader *bufio.Reader) (key, code string) {
	// A CSI sequence usually arrives in the same read as its ESC, but it
	// can be split across reads. Give the remaining bytes a grace period
	// before deciding the ESC was a bare Escape press.
	if reader.Buffered() == 0 {
		if err := s.in.SetReadDeadline(time.Now().Add(escapeGrace)); err != nil {
			return "Escape", "Escape"
		}
		_, peekErr := reader.Peek(1)
		s.in.SetReadDeadline(time.Time{})
		if peekErr != nil {
			return "Escape", "Escape"
		}
	}
	b, err := reader.ReadByte()
	if err != nil || b != '[' {
		return "Escape", "Escape"
	}
	final, err := reader.ReadByte()
	if err != nil {
		return "", ""
	}
	switch final {
	case 'A':
		return "ArrowUp", "ArrowUp"
	case 'B':
		return "ArrowDown", "ArrowDown"
	case 'C':
		return "ArrowRight", "ArrowRight"
	case 'D':
		return "ArrowLeft", "ArrowLeft"
	default:
		return "", ""
	}
}
