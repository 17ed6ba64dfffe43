// Package auth verifies players against the session server without blocking
// the tick loop.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultSessionURL = "https://sessionserver.mojang.com"

var ErrNotJoined = errors.New("player has not joined the server")

type Property struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Signature string `json:"signature,omitempty"`
}

// Profile is the game profile returned by hasJoined.
type Profile struct {
	ID         string     `json:"id"` // undashed UUID
	Name       string     `json:"name"`
	Properties []Property `json:"properties"`
}

func (p Profile) UUID() (uuid.UUID, error) {
	return uuid.Parse(p.ID)
}

// SessionChecker asks whether username completed the client side of the
// session handshake for serverHash.
type SessionChecker interface {
	HasJoined(ctx context.Context, username, serverHash string) (Profile, error)
}

// SessionClient is a SessionChecker backed by the HTTP session server.
type SessionClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewSessionClient(baseURL string, timeout time.Duration) *SessionClient {
	if baseURL == "" {
		baseURL = DefaultSessionURL
	}
	return &SessionClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

func (c *SessionClient) HasJoined(ctx context.Context, username, serverHash string) (Profile, error) {
	q := url.Values{}
	q.Set("username", username)
	q.Set("serverId", serverHash)
	endpoint := c.BaseURL + "/session/minecraft/hasJoined?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Profile{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("session server: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return Profile{}, ErrNotJoined
	default:
		return Profile{}, fmt.Errorf("session server: unexpected status %s", resp.Status)
	}

	var p Profile
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&p); err != nil {
		return Profile{}, fmt.Errorf("session server: decode profile: %w", err)
	}
	if p.ID == "" || p.Name == "" {
		return Profile{}, ErrNotJoined
	}
	return p, nil
}
