package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresServer(t *testing.T) {
	t.Setenv("RDVIEW_SERVER", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RDVIEW_SERVER")
}

func TestLoad_DerivesURLs(t *testing.T) {
	t.Setenv("RDVIEW_SERVER", "http://desk.example.com:8080")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://desk.example.com:8080", cfg.ServerURL)
	assert.Equal(t, "http://desk.example.com:8080/v1/login", cfg.LoginURL)
	assert.Equal(t, "ws://desk.example.com:8080/ws", cfg.SignalURL)
}

func TestLoad_HTTPSBecomesWSS(t *testing.T) {
	t.Setenv("RDVIEW_SERVER", "https://desk.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "wss://desk.example.com/ws", cfg.SignalURL)
}

func TestLoad_TrimsTrailingSlash(t *testing.T) {
	t.Setenv("RDVIEW_SERVER", "http://desk.example.com/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://desk.example.com/v1/login", cfg.LoginURL)
}

func TestLoad_RejectsNonHTTPScheme(t *testing.T) {
	t.Setenv("RDVIEW_SERVER", "ftp://desk.example.com")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_TokenFileOverride(t *testing.T) {
	t.Setenv("RDVIEW_SERVER", "http://desk.example.com")
	t.Setenv("RDVIEW_TOKEN_FILE", "/tmp/rdview-token")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/rdview-token", cfg.TokenFile)
}
