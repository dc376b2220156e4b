package feed

import (
	"context"
	"time"

	apperrors "github.com/PolyRides/firefunction-postsAnalyze/internal/errors"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/logger"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/models"
)

// PageFetcher fetches one page of envelopes, newest first
type PageFetcher interface {
	FetchPage(ctx context.Context) ([]Envelope, error)
}

// PollResult is the outcome of one poll against the feed.
type PollResult struct {
	// NewPosts holds the delta since the previous watermark, ordered
	// oldest to newest for ingestion.
	NewPosts []models.RawPost
	// Watermark is the id to store for the next poll. Unchanged when
	// the poll found nothing new.
	Watermark string
	// Skipped counts malformed envelopes dropped from this page.
	Skipped int
}

// Poller detects new posts relative to a watermark.
type Poller struct {
	fetcher PageFetcher
}

// NewPoller creates a poller over the given fetcher
func NewPoller(fetcher PageFetcher) *Poller {
	return &Poller{fetcher: fetcher}
}

// Poll fetches a page and returns the posts newer than the watermark.
//
// The feed returns a page newest first. On a cold start (empty
// watermark) the whole page is ingested oldest to newest. On
// subsequent polls the page is scanned newest to oldest until the
// stored watermark id is reached. The watermark advances to the
// newest id of the page only when at least one new post was found, so
// a failed or empty poll never moves it. Duplicate ids within one
// page are ingested once.
func (p *Poller) Poll(ctx context.Context, watermark string) (PollResult, error) {
	envelopes, err := p.fetcher.FetchPage(ctx)
	if err != nil {
		return PollResult{Watermark: watermark}, err
	}

	result := PollResult{Watermark: watermark}
	if len(envelopes) == 0 {
		return result, nil
	}

	seen := make(map[string]struct{}, len(envelopes))
	newestID := ""
	var collected []models.RawPost

	for _, env := range envelopes {
		if err := validate(env); err != nil {
			logger.Warn("Skipping malformed feed envelope", "id", env.ID, "error", err)
			result.Skipped++
			continue
		}

		if newestID == "" {
			newestID = env.ID
		}

		if watermark != "" && env.ID == watermark {
			break
		}

		if _, dup := seen[env.ID]; dup {
			continue
		}
		seen[env.ID] = struct{}{}

		collected = append(collected, models.RawPost{
			ID:          env.ID,
			CreatedTime: env.CreatedTime.Time,
			Message:     env.Message,
			FetchedAt:   time.Now().UTC(),
		})
	}

	if len(collected) == 0 {
		return result, nil
	}

	// Reverse to oldest-first ingestion order
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}

	result.NewPosts = collected
	result.Watermark = newestID
	return result, nil
}

func validate(env Envelope) error {
	if env.ID == "" {
		return apperrors.MalformedRecordError{Field: "id"}
	}
	if env.Message == "" {
		return apperrors.MalformedRecordError{ID: env.ID, Field: "message"}
	}
	return nil
}
