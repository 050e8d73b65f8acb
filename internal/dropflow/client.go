// Package dropflow drives the user side of a drop verification: pick a bin,
// walk to it while the tracker counts dwell time, then ask the server to
// confirm the drop.
package dropflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ecodrop-backend/internal/apperr"
	"ecodrop-backend/internal/models"
)

// Client is a thin HTTP client for the EcoDrop API.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
	userID  string
}

type ClientOption func(*Client)

// WithToken authenticates requests with a bearer JWT.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// WithUserID sends the caller identity header, for servers that trust it.
func WithUserID(id string) ClientOption {
	return func(c *Client) { c.userID = id }
}

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode %s %s response (status %d): %w", method, path, resp.StatusCode, err)
	}

	if resp.StatusCode >= 300 || !env.Success {
		kind := apperr.Kind(env.Error)
		if kind == "" {
			kind = apperr.Unexpected
		}
		msg := env.Message
		if msg == "" {
			msg = "Verification failed"
		}
		return apperr.E(kind, msg)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode %s %s data: %w", method, path, err)
		}
	}
	return nil
}

func (c *Client) SaveDestination(ctx context.Context, d models.ActiveDestination) error {
	lat, lng := d.Latitude, d.Longitude
	return c.do(ctx, http.MethodPost, "/api/user/destination", models.SaveDestinationRequest{
		BinID:     d.BinID,
		BinName:   d.BinName,
		Latitude:  &lat,
		Longitude: &lng,
		Address:   d.Address,
		StartedAt: d.StartedAt,
	}, nil)
}

func (c *Client) ClearDestination(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/user/destination", nil, nil)
}

// ConfirmDrop posts a drop claim. Rejections come back as *apperr.Error with
// the server's kind and message.
func (c *Client) ConfirmDrop(ctx context.Context, req models.ConfirmDropRequest) (*models.ConfirmDropResponse, error) {
	var out models.ConfirmDropResponse
	if err := c.do(ctx, http.MethodPost, "/api/drop/confirm", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetBin(ctx context.Context, id string) (*models.BinResponse, error) {
	var out models.BinResponse
	if err := c.do(ctx, http.MethodGet, "/api/bins/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a bearer token.
func Login(ctx context.Context, baseURL, email, password string) (string, error) {
	buf, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", fmt.Errorf("failed to encode login: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/api/auth/login", bytes.NewReader(buf))
	if err != nil {
		return "", fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to log in: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		OK    bool   `json:"ok"`
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}
	if !out.OK || out.Token == "" {
		return "", apperr.E(apperr.Unauthorized, "Invalid email or password")
	}
	return out.Token, nil
}
