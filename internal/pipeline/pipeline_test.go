package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/PolyRides/firefunction-postsAnalyze/config"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/classifier"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/dedup"
	apperrors "github.com/PolyRides/firefunction-postsAnalyze/internal/errors"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/extractor"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/feed"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/match"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/models"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/notify"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/store"
)

type fakePoller struct {
	result feed.PollResult
	err    error
	calls  int
}

func (f *fakePoller) Poll(ctx context.Context, watermark string) (feed.PollResult, error) {
	f.calls++
	if f.err != nil {
		return feed.PollResult{Watermark: watermark}, f.err
	}
	return f.result, nil
}

type fakeAnalyzer struct {
	entities []extractor.Entity
	err      error
	calls    int
}

func (f *fakeAnalyzer) AnalyzeEntities(ctx context.Context, text string) ([]extractor.Entity, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.entities, nil
}

type fakeMatcher struct {
	rides []models.ProcessedRide
}

func (f *fakeMatcher) NotifyMatches(ctx context.Context, ride models.ProcessedRide) (match.Summary, error) {
	f.rides = append(f.rides, ride)
	return match.Summary{}, nil
}

type fakeMailer struct {
	messages []notify.Message
}

func (f *fakeMailer) Send(ctx context.Context, msg notify.Message) error {
	f.messages = append(f.messages, msg)
	return nil
}

func testConfig() config.PipelineConfig {
	return config.PipelineConfig{
		PollInterval: time.Minute,
		RateLimit:    100,
		WorkerCount:  2,
		RetryDelay:   time.Millisecond,
	}
}

func rawPost(id, message string) models.RawPost {
	return models.RawPost{
		ID:          id,
		CreatedTime: time.Date(2018, 5, 4, 12, 0, 0, 0, time.UTC),
		Message:     message,
		FetchedAt:   time.Now().UTC(),
	}
}

func newPipeline(t *testing.T, poller Poller, analyzer EntityAnalyzer) (*Pipeline, *store.InMemoryStore, *fakeMatcher, *fakeMailer) {
	t.Helper()

	st := store.NewInMemoryStore()
	model, err := classifier.Train(classifier.DefaultCorpus())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	matcher := &fakeMatcher{}
	mailer := &fakeMailer{}

	p := New(
		poller,
		st,
		dedup.NewMemoryGate(),
		model,
		analyzer,
		extractor.NewPositionalStrategy(),
		matcher,
		mailer,
		testConfig(),
	)
	return p, st, matcher, mailer
}

func TestPipeline_PollOnce(t *testing.T) {
	poller := &fakePoller{result: feed.PollResult{
		NewPosts: []models.RawPost{
			rawPost("post-1", "seeking: ride to Berkeley anyone heading up?"),
			rawPost("post-2", "OFFERING: Friday 7pm SLO >>>>> LA $20"),
		},
		Watermark: "post-2",
	}}
	analyzer := &fakeAnalyzer{entities: []extractor.Entity{
		{Name: "SLO", Type: "LOCATION"},
		{Name: "LA", Type: "LOCATION"},
	}}

	p, st, matcher, _ := newPipeline(t, poller, analyzer)
	ctx := context.Background()

	summary, err := p.PollOnce(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if summary.Fetched != 2 || summary.Ingested != 2 || summary.Admitted != 2 {
		t.Errorf("Expected 2 fetched/ingested/admitted, got %+v", summary)
	}
	if summary.Offers != 1 || summary.Seeking != 1 {
		t.Errorf("Expected 1 offer and 1 seeking, got %+v", summary)
	}
	if summary.Watermark != "post-2" {
		t.Errorf("Expected watermark post-2, got %s", summary.Watermark)
	}

	// Watermark persisted for the next cycle
	wm, _ := st.GetWatermark(ctx, WatermarkName)
	if wm != "post-2" {
		t.Errorf("Expected stored watermark post-2, got %s", wm)
	}

	// Both raw posts persisted
	posts, _ := st.QueryPosts(ctx, models.PostQuery{})
	if len(posts) != 2 {
		t.Errorf("Expected 2 posts stored, got %d", len(posts))
	}

	// Only the offer produced a ride, with the positional route applied
	rides, _ := st.QueryRides(ctx, models.RideQuery{})
	if len(rides) != 1 {
		t.Fatalf("Expected 1 ride stored, got %d", len(rides))
	}
	ride := rides[0]
	if ride.ReferenceID != "post-2" {
		t.Errorf("Expected ride for post-2, got %s", ride.ReferenceID)
	}
	if ride.Origin == nil || *ride.Origin != "SLO" {
		t.Errorf("Expected origin SLO, got %v", ride.Origin)
	}
	if ride.Destination == nil || *ride.Destination != "LA" {
		t.Errorf("Expected destination LA, got %v", ride.Destination)
	}

	// The match pass ran for the new ride
	if len(matcher.rides) != 1 || matcher.rides[0].ReferenceID != "post-2" {
		t.Errorf("Expected match pass for post-2, got %v", matcher.rides)
	}
}

func TestPipeline_PollOnce_ReplayedBatchProcessedOnce(t *testing.T) {
	// The same delta delivered twice (restart, watermark lost) must not
	// re-dispatch processing for ids the gate has already admitted
	poller := &fakePoller{result: feed.PollResult{
		NewPosts: []models.RawPost{
			rawPost("post-1", "OFFERING: Friday 7pm SLO >>>>> LA $20"),
		},
		Watermark: "post-1",
	}}
	analyzer := &fakeAnalyzer{entities: []extractor.Entity{
		{Name: "SLO", Type: "LOCATION"},
		{Name: "LA", Type: "LOCATION"},
	}}

	p, st, matcher, _ := newPipeline(t, poller, analyzer)
	ctx := context.Background()

	if _, err := p.PollOnce(ctx); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	summary, err := p.PollOnce(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if summary.Admitted != 0 {
		t.Errorf("Expected 0 admitted on replay, got %d", summary.Admitted)
	}
	if analyzer.calls != 1 {
		t.Errorf("Expected 1 analysis call total, got %d", analyzer.calls)
	}
	if len(matcher.rides) != 1 {
		t.Errorf("Expected 1 match pass total, got %d", len(matcher.rides))
	}

	rides, _ := st.QueryRides(ctx, models.RideQuery{})
	if len(rides) != 1 {
		t.Errorf("Expected 1 ride after replay, got %d", len(rides))
	}
}

func TestPipeline_PollOnce_SeekingPostsSkipExtraction(t *testing.T) {
	poller := &fakePoller{result: feed.PollResult{
		NewPosts: []models.RawPost{
			rawPost("post-1", "seeking: ride to Berkeley anyone heading up?"),
		},
		Watermark: "post-1",
	}}
	analyzer := &fakeAnalyzer{}

	p, st, _, _ := newPipeline(t, poller, analyzer)
	ctx := context.Background()

	summary, err := p.PollOnce(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if summary.Seeking != 1 || summary.Offers != 0 {
		t.Errorf("Expected 1 seeking and 0 offers, got %+v", summary)
	}
	if analyzer.calls != 0 {
		t.Errorf("Expected no analysis for seeking posts, got %d calls", analyzer.calls)
	}
	rides, _ := st.QueryRides(ctx, models.RideQuery{})
	if len(rides) != 0 {
		t.Errorf("Expected no rides, got %d", len(rides))
	}
}

func TestPipeline_PollOnce_ExtractionFailure(t *testing.T) {
	poller := &fakePoller{result: feed.PollResult{
		NewPosts: []models.RawPost{
			rawPost("post-1", "OFFERING: Friday 7pm SLO >>>>> LA $20"),
		},
		Watermark: "post-1",
	}}
	analyzer := &fakeAnalyzer{err: apperrors.ExtractionServiceError{Err: context.DeadlineExceeded}}

	p, st, matcher, mailer := newPipeline(t, poller, analyzer)
	ctx := context.Background()

	summary, err := p.PollOnce(ctx)
	if err != nil {
		t.Fatalf("Expected cycle to complete despite the post failure, got %v", err)
	}

	if summary.Failed != 1 {
		t.Errorf("Expected 1 failed post, got %d", summary.Failed)
	}

	// No ride, no match pass, but the raw post and watermark stand
	rides, _ := st.QueryRides(ctx, models.RideQuery{})
	if len(rides) != 0 {
		t.Errorf("Expected no rides, got %d", len(rides))
	}
	if len(matcher.rides) != 0 {
		t.Errorf("Expected no match pass, got %d", len(matcher.rides))
	}
	wm, _ := st.GetWatermark(ctx, WatermarkName)
	if wm != "post-1" {
		t.Errorf("Expected watermark advanced to post-1, got %s", wm)
	}

	// The operator was told which message failed
	if len(mailer.messages) != 1 {
		t.Fatalf("Expected 1 operator email, got %d", len(mailer.messages))
	}
	if mailer.messages[0].Subject != "analysis failed" {
		t.Errorf("Unexpected subject %q", mailer.messages[0].Subject)
	}
}

func TestPipeline_PollOnce_FeedFailureKeepsWatermark(t *testing.T) {
	poller := &fakePoller{err: apperrors.FeedFetchError{URL: "http://feed", Err: context.DeadlineExceeded}}
	analyzer := &fakeAnalyzer{}

	p, st, _, _ := newPipeline(t, poller, analyzer)
	ctx := context.Background()

	if err := st.SetWatermark(ctx, WatermarkName, "post-5"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	summary, err := p.PollOnce(ctx)
	if err == nil {
		t.Fatalf("Expected error, got nil")
	}
	if !apperrors.IsFeedFetch(err) {
		t.Errorf("Expected FeedFetchError, got %T", err)
	}
	if summary.Watermark != "post-5" {
		t.Errorf("Expected watermark unchanged, got %s", summary.Watermark)
	}

	wm, _ := st.GetWatermark(ctx, WatermarkName)
	if wm != "post-5" {
		t.Errorf("Expected stored watermark unchanged, got %s", wm)
	}
}

func TestPipeline_PollOnce_EmptyDelta(t *testing.T) {
	poller := &fakePoller{result: feed.PollResult{Watermark: "post-3"}}
	p, st, _, _ := newPipeline(t, poller, &fakeAnalyzer{})
	ctx := context.Background()

	if err := st.SetWatermark(ctx, WatermarkName, "post-3"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	summary, err := p.PollOnce(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if summary.Fetched != 0 || summary.Admitted != 0 {
		t.Errorf("Expected empty summary, got %+v", summary)
	}
}

func TestPipeline_Run_StopsOnContextCancel(t *testing.T) {
	poller := &fakePoller{result: feed.PollResult{}}
	p, _, _, _ := newPipeline(t, poller, &fakeAnalyzer{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	// Let the initial poll happen, then cancel
	for i := 0; i < 100 && poller.calls == 0; i++ {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop after cancel")
	}

	if p.IsRunning() {
		t.Errorf("Expected pipeline stopped")
	}
	if poller.calls == 0 {
		t.Errorf("Expected at least the initial poll")
	}
}

func TestPipeline_Run_RejectsSecondStart(t *testing.T) {
	poller := &fakePoller{result: feed.PollResult{}}
	p, _, _, _ := newPipeline(t, poller, &fakeAnalyzer{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go p.Run(ctx)
	for i := 0; i < 100 && !p.IsRunning(); i++ {
		time.Sleep(time.Millisecond)
	}

	if err := p.Run(ctx); err == nil {
		t.Errorf("Expected error starting a running pipeline")
	}
}
