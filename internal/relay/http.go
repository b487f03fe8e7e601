package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"parley/internal/domain"
)

// Presence is the relay's answer to a presence query.
type Presence struct {
	User   domain.Username `json:"user"`
	Online bool            `json:"online"`
}

// HTTP queries the relay's plain HTTP endpoints.
type HTTP struct {
	Base string
	HTTP *http.Client
}

// NewHTTP accepts the same base URL as DialWebSocket.
func NewHTTP(base string) *HTTP {
	base = strings.TrimRight(base, "/")
	switch {
	case strings.HasPrefix(base, "ws://"):
		base = "http://" + strings.TrimPrefix(base, "ws://")
	case strings.HasPrefix(base, "wss://"):
		base = "https://" + strings.TrimPrefix(base, "wss://")
	}
	return &HTTP{Base: base, HTTP: http.DefaultClient}
}

// Health returns nil when the relay answers /healthz with 2xx.
func (c *HTTP) Health(ctx context.Context) error {
	resp, err := c.get(ctx, "/healthz")
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// Presence reports whether user currently holds a relay connection.
func (c *HTTP) Presence(ctx context.Context, user domain.Username) (Presence, error) {
	var out Presence
	resp, err := c.get(ctx, "/presence/"+url.PathEscape(user.String()))
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	return out, json.NewDecoder(resp.Body).Decode(&out)
}

func (c *HTTP) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		resp.Body.Close()
		return nil, fmt.Errorf("relay get %s: %s", path, resp.Status)
	}
	return resp, nil
}
