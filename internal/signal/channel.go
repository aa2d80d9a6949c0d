// Package signal implements the signaling channel over a WebSocket.
package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"rdview/native/internal/domain"
)

const (
	pingInterval = 30 * time.Second
	pingTimeout  = 5 * time.Second
)

// Channel is a websocket signaling client. Inbound frames are decoded in
// the read loop and delivered on a single buffered channel, so consumers
// see them in arrival order, one at a time. Sends are fire-and-forget.
type Channel struct {
	url  string
	conn *websocket.Conn
	log  zerolog.Logger

	mu     sync.Mutex // guards writes to conn
	msgs   chan any
	closed chan struct{}
}

func NewChannel(url string, log zerolog.Logger) *Channel {
	return &Channel{
		url:    url,
		log:    log.With().Str("component", "signal").Logger(),
		msgs:   make(chan any, 64),
		closed: make(chan struct{}),
	}
}

// Connect dials the signaling WebSocket and starts the read and ping
// loops. A dial failure is terminal for the session; it is not retried.
func (c *Channel) Connect(ctx context.Context) error {
	c.log.Info().Str("url", c.url).Msg("connecting")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	c.conn = conn

	go c.readLoop()
	go c.pingLoop()

	return nil
}

// Messages returns the inbound message stream. The channel closes when
// the connection goes away.
func (c *Channel) Messages() <-chan any {
	return c.msgs
}

// Send marshals and writes one frame. Errors are returned for logging
// but the channel makes no attempt to retry or buffer beyond the socket.
func (c *Channel) Send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("channel not connected")
	}

	c.log.Debug().RawJSON("frame", data).Msg(">>>")
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

// Close shuts down the connection. Idempotent.
func (c *Channel) Close() error {
	select {
	case <-c.closed:
		return nil
	default:
		close(c.closed)
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Channel) readLoop() {
	defer c.Close()
	defer close(c.msgs)

	for {
		select {
		case <-c.closed:
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
			default:
				c.log.Warn().Err(err).Msg("read error")
			}
			return
		}

		c.log.Debug().RawJSON("frame", data).Msg("<<<")

		msg, err := domain.Decode(data)
		if err != nil {
			c.log.Warn().Err(err).Msg("undecodable frame dropped")
			continue
		}

		select {
		case c.msgs <- msg:
		case <-c.closed:
			return
		}
	}
}

func (c *Channel) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case <-ticker.C:
			c.mu.Lock()
			err := c.conn.WriteControl(
				websocket.PingMessage,
				[]byte{},
				time.Now().Add(pingTimeout),
			)
			c.mu.Unlock()
			if err != nil {
				select {
				case <-c.closed:
				default:
					c.log.Warn().Err(err).Msg("ping error")
				}
				return
			}
		}
	}
}
