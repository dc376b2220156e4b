// Package sweeper deletes time-expired records from the post and ride
// stores. Sweeps are idempotent: re-running against an unchanged store
// deletes nothing.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/PolyRides/firefunction-postsAnalyze/config"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/logger"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/metrics"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/models"
)

// PostStore is the slice of the store used for post sweeps
type PostStore interface {
	QueryPosts(ctx context.Context, q models.PostQuery) ([]models.RawPost, error)
	DeletePost(ctx context.Context, id string) error
}

// RideStore is the slice of the store used for ride sweeps
type RideStore interface {
	QueryRides(ctx context.Context, q models.RideQuery) ([]models.ProcessedRide, error)
	DeleteRide(ctx context.Context, referenceID string) error
}

// Sweeper prunes expired posts and rides.
//
// A post expires at CreatedTime + the post retention window, never at
// its raw creation time: comparing creation time directly against now
// would expire nearly every row on every run. A ride expires once its
// departure date has passed; rides without a departure date fall back
// to CreatedAt + the ride retention window.
type Sweeper struct {
	posts PostStore
	rides RideStore
	cfg   config.RetentionConfig
	now   func() time.Time
}

// New creates a sweeper over the given stores
func New(posts PostStore, rides RideStore, cfg config.RetentionConfig) *Sweeper {
	return &Sweeper{
		posts: posts,
		rides: rides,
		cfg:   cfg,
		now:   time.Now,
	}
}

// SweepPosts deletes raw posts past their retention window and
// returns the number deleted
func (s *Sweeper) SweepPosts(ctx context.Context) (int, error) {
	posts, err := s.posts.QueryPosts(ctx, models.PostQuery{})
	if err != nil {
		return 0, fmt.Errorf("load posts for sweep: %w", err)
	}

	now := s.now().UTC()
	deleted := 0
	for _, post := range posts {
		if !post.CreatedTime.Add(s.cfg.PostWindow).Before(now) {
			continue
		}
		if err := s.posts.DeletePost(ctx, post.ID); err != nil {
			return deleted, fmt.Errorf("sweep post %s: %w", post.ID, err)
		}
		deleted++
	}

	metrics.RecordSweep("posts", deleted)
	logger.Info("Post sweep completed", "deleted", deleted, "scanned", len(posts))
	return deleted, nil
}

// SweepRides deletes processed rides whose departure date has passed
// and returns the number deleted
func (s *Sweeper) SweepRides(ctx context.Context) (int, error) {
	rides, err := s.rides.QueryRides(ctx, models.RideQuery{})
	if err != nil {
		return 0, fmt.Errorf("load rides for sweep: %w", err)
	}

	now := s.now().UTC()
	deleted := 0
	for _, ride := range rides {
		if !s.rideExpired(ride, now) {
			continue
		}
		if err := s.rides.DeleteRide(ctx, ride.ReferenceID); err != nil {
			return deleted, fmt.Errorf("sweep ride %s: %w", ride.ReferenceID, err)
		}
		deleted++
	}

	metrics.RecordSweep("rides", deleted)
	logger.Info("Ride sweep completed", "deleted", deleted, "scanned", len(rides))
	return deleted, nil
}

func (s *Sweeper) rideExpired(ride models.ProcessedRide, now time.Time) bool {
	if ride.DepartureDate != nil {
		return ride.DepartureDate.Before(now)
	}
	return ride.CreatedAt.Add(s.cfg.RideWindow).Before(now)
}
