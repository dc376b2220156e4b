package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/PolyRides/firefunction-postsAnalyze/internal/errors"
)

// Envelope is one post as delivered by the external feed, newest first
// within a page.
type Envelope struct {
	ID          string   `json:"id"`
	CreatedTime FlexTime `json:"created_time"`
	Message     string   `json:"message"`
}

// FlexTime accepts the timestamp shapes the feed is known to emit:
// RFC3339, the +0000 offset variant, unix seconds as a number, and
// unix seconds as a string.
type FlexTime struct {
	time.Time
}

// UnmarshalJSON parses the flexible timestamp representations
func (t *FlexTime) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		return nil
	}

	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-0700"} {
			if parsed, err := time.Parse(layout, str); err == nil {
				t.Time = parsed
				return nil
			}
		}
		if secs, err := strconv.ParseInt(str, 10, 64); err == nil {
			t.Time = time.Unix(secs, 0).UTC()
			return nil
		}
		return fmt.Errorf("unrecognized timestamp %q", str)
	}

	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("unrecognized timestamp %s", s)
	}
	t.Time = time.Unix(int64(secs), 0).UTC()
	return nil
}

type page struct {
	Data []Envelope `json:"data"`
}

// Client fetches pages of post envelopes from the external feed.
type Client struct {
	url    string
	client *http.Client
}

// NewClient creates a feed client with a bounded request timeout
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchPage fetches one page of envelopes, newest first. A transport
// error, non-200 status, or unparsable body is reported as a
// FeedFetchError; a timeout is a transport error, never an empty page.
func (c *Client) FetchPage(ctx context.Context) ([]Envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, apperrors.FeedFetchError{URL: c.url, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.FeedFetchError{URL: c.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.FeedFetchError{URL: c.url, Err: fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)}
	}

	var p page
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, apperrors.FeedFetchError{URL: c.url, Err: fmt.Errorf("parse feed payload: %w", err)}
	}

	return p.Data, nil
}
