package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"rdview/native/internal/domain"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// LoginClient exchanges a credential pair for a bearer token at the
// server's login endpoint.
type LoginClient struct {
	url    string
	client *http.Client
	log    zerolog.Logger
}

// NewLoginClient creates a client for the given login URL. No request
// timeout is applied: a hung login blocks the authenticating phase.
func NewLoginClient(url string, log zerolog.Logger) *LoginClient {
	return &LoginClient{
		url:    url,
		client: &http.Client{},
		log:    log.With().Str("component", "api").Logger(),
	}
}

// Login POSTs the credentials as JSON and returns the issued token.
// A network-level failure comes back as a wrapped transport error; any
// status of 300 or above comes back as a *domain.RejectedError with the
// response body ignored.
func (c *LoginClient) Login(ctx context.Context, creds domain.Credentials) (string, error) {
	body, err := json.Marshal(loginRequest{
		Username: creds.Username,
		Password: creds.Password,
	})
	if err != nil {
		return "", fmt.Errorf("marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debug().Int("status", resp.StatusCode).Str("status_text", resp.Status).Msg("login response")

	if resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return "", &domain.RejectedError{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
		}
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	return lr.Token, nil
}
