package store

import (
	"context"

	"github.com/PolyRides/firefunction-postsAnalyze/internal/models"
)

// Store defines the persistence surface of the pipeline: raw posts,
// processed rides, rider profiles, and poller watermarks.
type Store interface {
	// UpsertPost writes a raw post. Writing an already-known id is a
	// no-op; the returned flag reports whether a row was inserted.
	UpsertPost(ctx context.Context, post models.RawPost) (bool, error)
	QueryPosts(ctx context.Context, q models.PostQuery) ([]models.RawPost, error)
	GetPost(ctx context.Context, id string) (*models.RawPost, error)
	DeletePost(ctx context.Context, id string) error

	// UpsertRide writes a processed ride keyed by reference id.
	// Re-processing the same post overwrites, never duplicates.
	UpsertRide(ctx context.Context, ride models.ProcessedRide) error
	QueryRides(ctx context.Context, q models.RideQuery) ([]models.ProcessedRide, error)
	GetRide(ctx context.Context, referenceID string) (*models.ProcessedRide, error)
	DeleteRide(ctx context.Context, referenceID string) error

	UpsertProfile(ctx context.Context, profile models.RiderProfile) error
	ListProfiles(ctx context.Context) ([]models.RiderProfile, error)
	// RemoveToken prunes one device token from a profile. Removing an
	// already-absent token is a no-op.
	RemoveToken(ctx context.Context, profileID, token string) error

	GetWatermark(ctx context.Context, name string) (string, error)
	SetWatermark(ctx context.Context, name, value string) error

	Health(ctx context.Context) error
}

// Database interface for dependency injection
type Database interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (interface{}, error)
	QueryRow(ctx context.Context, sql string, args ...any) interface{}
	Health(ctx context.Context) error
	IsConfigured() bool
}

// New creates a new store instance
func New(db Database) Store {
	if db.IsConfigured() {
		return NewPostgresStore(db)
	}
	// Fallback to in-memory store if no database
	return NewInMemoryStore()
}
