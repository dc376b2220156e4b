package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/PolyRides/firefunction-postsAnalyze/config"
	apperrors "github.com/PolyRides/firefunction-postsAnalyze/internal/errors"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/extractor"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/feed"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/logger"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/match"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/metrics"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/models"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/notify"
	"github.com/PolyRides/firefunction-postsAnalyze/pkg/utils"
)

// WatermarkName keys the feed watermark in the watermark store
const WatermarkName = "feed:latest-post"

// Poller detects new posts relative to a watermark
type Poller interface {
	Poll(ctx context.Context, watermark string) (feed.PollResult, error)
}

// Gate admits each post id at most once
type Gate interface {
	Admit(ctx context.Context, ids []string) ([]string, error)
}

// Classifier labels post text
type Classifier interface {
	Classify(text string) models.PostStatus
}

// EntityAnalyzer extracts named entities from post text
type EntityAnalyzer interface {
	AnalyzeEntities(ctx context.Context, text string) ([]extractor.Entity, error)
}

// Matcher runs a match pass for a processed ride
type Matcher interface {
	NotifyMatches(ctx context.Context, ride models.ProcessedRide) (match.Summary, error)
}

// Store is the slice of the persistence layer the pipeline writes to
type Store interface {
	UpsertPost(ctx context.Context, post models.RawPost) (bool, error)
	UpsertRide(ctx context.Context, ride models.ProcessedRide) error
	GetWatermark(ctx context.Context, name string) (string, error)
	SetWatermark(ctx context.Context, name, value string) error
}

// Summary reports the outcome of one poll cycle
type Summary struct {
	Watermark string `json:"postids"`
	Fetched   int    `json:"fetched"`
	Ingested  int    `json:"ingested"`
	Skipped   int    `json:"skipped"`
	Admitted  int    `json:"admitted"`
	Offers    int    `json:"offers"`
	Seeking   int    `json:"seeking"`
	Failed    int    `json:"failed"`
}

// Pipeline coordinates polling, dedup, classification, extraction,
// persistence, and matching
type Pipeline struct {
	poller     Poller
	store      Store
	gate       Gate
	classifier Classifier
	analyzer   EntityAnalyzer
	route      extractor.RouteStrategy
	matcher    Matcher
	mailer     notify.Mailer
	cfg        config.PipelineConfig
	limiter    *rate.Limiter
	sem        *semaphore.Weighted
	mu         sync.RWMutex
	running    bool
}

// New creates a new pipeline instance
func New(
	poller Poller,
	store Store,
	gate Gate,
	classifier Classifier,
	analyzer EntityAnalyzer,
	route extractor.RouteStrategy,
	matcher Matcher,
	mailer notify.Mailer,
	cfg config.PipelineConfig,
) *Pipeline {
	p := &Pipeline{
		poller:     poller,
		store:      store,
		gate:       gate,
		classifier: classifier,
		analyzer:   analyzer,
		route:      route,
		matcher:    matcher,
		mailer:     mailer,
		cfg:        cfg,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), int(cfg.RateLimit)),
		sem:        semaphore.NewWeighted(int64(cfg.WorkerCount)),
	}

	logger.Info("Pipeline initialized",
		"poll_interval", cfg.PollInterval,
		"rate_limit", cfg.RateLimit,
		"workers", cfg.WorkerCount,
	)

	return p
}

// Run starts the periodic polling loop and runs until the context is
// cancelled
func (p *Pipeline) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("pipeline already running")
	}
	p.running = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	logger.Info("Starting pipeline")

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	// Initial immediate run
	if _, err := p.PollOnce(ctx); err != nil {
		logger.Error("Initial poll failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("Pipeline stopping")
			return ctx.Err()
		case <-ticker.C:
			if _, err := p.PollOnce(ctx); err != nil {
				logger.Error("Poll failed", "error", err)

				// Back off before the next tick can fire again
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(p.cfg.RetryDelay):
				}
			}
		}
	}
}

// IsRunning returns whether the pipeline loop is currently running
func (p *Pipeline) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// PollOnce executes a single poll cycle: fetch the feed delta, ingest
// new posts, admit them through the dedup gate, and process each
// admitted post. A feed failure aborts the cycle without touching the
// watermark; per-post failures are counted and the batch continues.
func (p *Pipeline) PollOnce(ctx context.Context) (Summary, error) {
	start := time.Now()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return Summary{}, fmt.Errorf("acquire semaphore: %w", err)
	}
	defer p.sem.Release(1)

	if err := p.limiter.Wait(ctx); err != nil {
		return Summary{}, fmt.Errorf("rate limit: %w", err)
	}

	watermark, err := p.store.GetWatermark(ctx, WatermarkName)
	if err != nil {
		return Summary{}, fmt.Errorf("load watermark: %w", err)
	}

	result, err := p.poller.Poll(ctx, watermark)
	if err != nil {
		metrics.RecordPollRun("fetch_error", time.Since(start))
		return Summary{Watermark: watermark}, err
	}

	summary := Summary{
		Watermark: result.Watermark,
		Fetched:   len(result.NewPosts),
		Skipped:   result.Skipped,
	}

	byID := make(map[string]models.RawPost, len(result.NewPosts))
	ids := make([]string, 0, len(result.NewPosts))
	for _, post := range result.NewPosts {
		inserted, err := p.store.UpsertPost(ctx, post)
		if err != nil {
			return summary, fmt.Errorf("ingest post %s: %w", post.ID, err)
		}
		if inserted {
			summary.Ingested++
		}
		byID[post.ID] = post
		ids = append(ids, post.ID)
	}

	if result.Watermark != watermark && len(result.NewPosts) > 0 {
		if err := p.store.SetWatermark(ctx, WatermarkName, result.Watermark); err != nil {
			return summary, fmt.Errorf("store watermark: %w", err)
		}
	}

	// Every key of the ingested batch goes through the gate, not only
	// the newest one
	admitted, err := p.gate.Admit(ctx, ids)
	if err != nil {
		return summary, fmt.Errorf("dedup admit: %w", err)
	}
	summary.Admitted = len(admitted)

	for _, id := range admitted {
		label, err := p.processPost(ctx, byID[id])
		if err != nil {
			summary.Failed++
			continue
		}
		if label == models.PostStatusRideOffer {
			summary.Offers++
		} else {
			summary.Seeking++
		}
	}

	metrics.RecordPollRun("success", time.Since(start))
	logger.Info("Poll completed",
		"watermark", summary.Watermark,
		"fetched", summary.Fetched,
		"ingested", summary.Ingested,
		"admitted", summary.Admitted,
		"offers", summary.Offers,
		"failed", summary.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return summary, nil
}

// processPost runs classification, extraction, persistence, and
// matching for one admitted post, returning the assigned label
func (p *Pipeline) processPost(ctx context.Context, post models.RawPost) (models.PostStatus, error) {
	if post.Message == "" {
		metrics.RecordPostProcessed("malformed")
		logger.Warn("Skipping post without message", "id", post.ID)
		return "", apperrors.MalformedRecordError{ID: post.ID, Field: "message"}
	}

	label := p.classifier.Classify(post.Message)
	if label != models.PostStatusRideOffer {
		// Ride seeking posts never produce a processed ride
		metrics.RecordPostProcessed("seeking")
		logger.Debug("Post classified as seeking", "id", post.ID)
		return label, nil
	}

	entities, err := p.analyzer.AnalyzeEntities(ctx, post.Message)
	if err != nil {
		metrics.RecordPostProcessed("extraction_error")
		p.reportExtractionFailure(ctx, post)
		return label, apperrors.ExtractionServiceError{ReferenceID: post.ID, Err: err}
	}

	origin, destination := p.route.Route(entities)

	ride := models.ProcessedRide{
		ReferenceID: post.ID,
		PostStatus:  label,
		Origin:      origin,
		Destination: destination,
		CreatedAt:   time.Now().UTC(),
	}

	if err := p.store.UpsertRide(ctx, ride); err != nil {
		metrics.RecordPostProcessed("store_error")
		return label, fmt.Errorf("persist ride %s: %w", ride.ReferenceID, err)
	}

	if _, err := p.matcher.NotifyMatches(ctx, ride); err != nil {
		// Ride is persisted; a failed match pass is retried when the
		// profile set next changes, so don't fail the post
		logger.Error("Match pass failed", "ride", ride.ReferenceID, "error", err)
	}

	metrics.RecordPostProcessed("offer")
	return label, nil
}

// reportExtractionFailure sends a best-effort operator email
// referencing the original message text
func (p *Pipeline) reportExtractionFailure(ctx context.Context, post models.RawPost) {
	msg := notify.Message{
		Subject: "analysis failed",
		Text:    fmt.Sprintf("Poly Ride Share NLP can not process %s", utils.Truncate(post.Message, 500)),
	}
	if err := p.mailer.Send(ctx, msg); err != nil {
		logger.Error("Operator email failed", "post", post.ID, "error", err)
	}
}
