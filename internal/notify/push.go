// Package notify holds the outbound delivery clients: device push and
// operator email.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Token error codes that mean the token is dead and must be pruned
// from the owning profile.
const (
	errNotRegistered       = "NotRegistered"
	errInvalidRegistration = "InvalidRegistration"
)

// Notification is the payload delivered to a device
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon,omitempty"`
}

// DeliveryResult is the per-token outcome of a send
type DeliveryResult struct {
	Token string
	Error string // empty on success
}

// Invalid reports whether the token should be pruned
func (r DeliveryResult) Invalid() bool {
	return r.Error == errNotRegistered || r.Error == errInvalidRegistration
}

// Pusher submits a notification to a set of device tokens and reports
// per-token results.
type Pusher interface {
	Send(ctx context.Context, tokens []string, n Notification) ([]DeliveryResult, error)
}

type sendRequest struct {
	RegistrationIDs []string     `json:"registration_ids"`
	Notification    Notification `json:"notification"`
}

type sendResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Results []struct {
		MessageID string `json:"message_id,omitempty"`
		Error     string `json:"error,omitempty"`
	} `json:"results"`
}

// Client speaks the legacy HTTP device-token push API.
type Client struct {
	url    string
	apiKey string
	client *http.Client
}

// NewClient creates a push client with a bounded timeout
func NewClient(url, apiKey string, timeout time.Duration) *Client {
	return &Client{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send delivers the notification to every token in one call. Results
// are positional: results[i] belongs to tokens[i]. A transport error
// or timeout fails the whole call; per-token failures come back in the
// results and never as an error.
func (c *Client) Send(ctx context.Context, tokens []string, n Notification) ([]DeliveryResult, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(sendRequest{RegistrationIDs: tokens, Notification: n})
	if err != nil {
		return nil, fmt.Errorf("encode push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "key="+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("push send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("push send: HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("parse push response: %w", err)
	}

	results := make([]DeliveryResult, len(tokens))
	for i, token := range tokens {
		results[i] = DeliveryResult{Token: token}
		if i < len(out.Results) {
			results[i].Error = out.Results[i].Error
		}
	}

	return results, nil
}
