package signal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rdview/native/internal/domain"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSend_BeforeConnectReturnsError(t *testing.T) {
	c := NewChannel("ws://unused", zerolog.Nop())

	err := c.Send(&domain.AuthMessage{Type: domain.TypeAuth, Token: "tok"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}

func TestConnect_DialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewChannel(wsURL(srv), zerolog.Nop())
	err := c.Connect(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "websocket dial")
}

func TestChannel_RoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Wait for the client's auth frame, then hand back an offer.
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		conn.WriteJSON(map[string]any{"type": "offer", "sdp": "v=0\r\nremote"})
	}))
	defer srv.Close()

	c := NewChannel(wsURL(srv), zerolog.Nop())
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	require.NoError(t, c.Send(&domain.AuthMessage{Type: domain.TypeAuth, Token: "tok"}))

	select {
	case msg := <-c.Messages():
		offer, ok := msg.(*domain.OfferMessage)
		require.True(t, ok, "expected *OfferMessage, got %T", msg)
		assert.Equal(t, "v=0\r\nremote", offer.SDP)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for inbound message")
	}
}

func TestChannel_MessagesClosesWhenServerGoesAway(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer srv.Close()

	c := NewChannel(wsURL(srv), zerolog.Nop())
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	select {
	case _, ok := <-c.Messages():
		assert.False(t, ok, "message channel must close with the connection")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestClose_Idempotent(t *testing.T) {
	c := NewChannel("ws://unused", zerolog.Nop())
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}
