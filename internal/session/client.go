// Package session implements the browser-equivalent session manager: an API
// client that carries the refresh cookie, and a Manager that keeps an access
// token alive through silent renewal.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"cinevault/internal/auth"
)

// Client talks to the auth endpoints. The refresh token travels in an
// HTTP-only cookie managed by the client's cookie jar; it is never exposed to
// callers.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
	}, nil
}

// State is the client-side view of a live session.
type State struct {
	User        auth.PublicUser `json:"user"`
	AccessToken string          `json:"accessToken"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type apiError struct {
	Error string `json:"error"`
}

// RequestError carries the server's reported reason for a non-2xx response.
type RequestError struct {
	StatusCode int
	Reason     string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Reason)
}

func (c *Client) Register(ctx context.Context, email, password string) (State, error) {
	return c.postSession(ctx, "/auth/register", &credentials{Email: email, Password: password})
}

func (c *Client) Login(ctx context.Context, email, password string) (State, error) {
	return c.postSession(ctx, "/auth/login", &credentials{Email: email, Password: password})
}

// Refresh redeems the jar-held refresh cookie for a new session.
func (c *Client) Refresh(ctx context.Context) (State, error) {
	return c.postSession(ctx, "/auth/refresh", nil)
}

func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.post(ctx, "/auth/logout", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &RequestError{StatusCode: resp.StatusCode, Reason: readReason(resp.Body)}
	}
	return nil
}

func (c *Client) Me(ctx context.Context, accessToken string) (auth.PublicUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/me", nil)
	if err != nil {
		return auth.PublicUser{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return auth.PublicUser{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return auth.PublicUser{}, &RequestError{StatusCode: resp.StatusCode, Reason: readReason(resp.Body)}
	}

	var body struct {
		User auth.PublicUser `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return auth.PublicUser{}, fmt.Errorf("decode user response: %w", err)
	}
	return body.User, nil
}

func (c *Client) postSession(ctx context.Context, path string, payload *credentials) (State, error) {
	resp, err := c.post(ctx, path, payload)
	if err != nil {
		return State{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return State{}, &RequestError{StatusCode: resp.StatusCode, Reason: readReason(resp.Body)}
	}

	var state State
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return State{}, fmt.Errorf("decode session response: %w", err)
	}
	return state, nil
}

func (c *Client) post(ctx context.Context, path string, payload *credentials) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.http.Do(req)
}

func readReason(body io.Reader) string {
	var reason apiError
	if err := json.NewDecoder(body).Decode(&reason); err != nil || reason.Error == "" {
		return "unexpected server response"
	}
	return reason.Error
}
