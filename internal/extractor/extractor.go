// Package extractor pulls structured location entities out of offer
// text via an external NLP entity service.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/PolyRides/firefunction-postsAnalyze/internal/errors"
)

// EntityTypeLocation is the entity type the pipeline cares about
const EntityTypeLocation = "LOCATION"

// Entity is one named entity returned by the entity service
type Entity struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// AnalyzeRequest is the wire shape of an entity analysis call
type AnalyzeRequest struct {
	Document AnalyzeDocument `json:"document"`
}

// AnalyzeDocument wraps the text under analysis
type AnalyzeDocument struct {
	Content string `json:"content"`
	Type    string `json:"type"`
}

type analyzeResponse struct {
	Entities []Entity `json:"entities"`
}

// Client calls the external entity service over HTTP.
type Client struct {
	url    string
	client *http.Client
}

// NewClient creates an entity service client with a bounded timeout
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// AnalyzeEntities submits text for entity analysis. Service errors and
// timeouts surface as ExtractionServiceError; the caller must not
// persist a ride for the post in that case.
func (c *Client) AnalyzeEntities(ctx context.Context, text string) ([]Entity, error) {
	payload, err := json.Marshal(AnalyzeRequest{
		Document: AnalyzeDocument{Content: text, Type: "PLAIN_TEXT"},
	})
	if err != nil {
		return nil, apperrors.ExtractionServiceError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.ExtractionServiceError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.ExtractionServiceError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.ExtractionServiceError{Err: fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)}
	}

	var out analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperrors.ExtractionServiceError{Err: fmt.Errorf("parse entity response: %w", err)}
	}

	return out.Entities, nil
}

// Locations filters entities down to LOCATION type, preserving order
func Locations(entities []Entity) []string {
	var locations []string
	for _, e := range entities {
		if e.Type == EntityTypeLocation {
			locations = append(locations, e.Name)
		}
	}
	return locations
}
