package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	ServerURL string // base http(s) URL of the remote desktop server
	LoginURL  string // derived: <server>/v1/login
	SignalURL string // derived: ws(s)://<server host>/ws
	TokenFile string // token cache path; empty means the default location
}

// Load reads configuration from a .env file (if present) and environment
// variables. Environment variables take precedence over .env values.
func Load() (*Config, error) {
	// godotenv.Load does not overwrite existing env vars
	_ = godotenv.Load()

	server := os.Getenv("RDVIEW_SERVER")
	if server == "" {
		return nil, fmt.Errorf("RDVIEW_SERVER environment variable is required")
	}
	server = strings.TrimRight(server, "/")

	u, err := url.Parse(server)
	if err != nil {
		return nil, fmt.Errorf("parse RDVIEW_SERVER: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return nil, fmt.Errorf("RDVIEW_SERVER must be an http or https URL, got %q", server)
	}

	signal := *u
	if u.Scheme == "https" {
		signal.Scheme = "wss"
	} else {
		signal.Scheme = "ws"
	}
	signal.Path = "/ws"

	return &Config{
		ServerURL: server,
		LoginURL:  server + "/v1/login",
		SignalURL: signal.String(),
		TokenFile: os.Getenv("RDVIEW_TOKEN_FILE"),
	}, nil
}
