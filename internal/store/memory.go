package store

import (
	"context"
	"sort"
	"sync"

	"github.com/PolyRides/firefunction-postsAnalyze/internal/models"
)

// InMemoryStore implements Store using in-memory storage
type InMemoryStore struct {
	mu         sync.RWMutex
	posts      map[string]models.RawPost
	rides      map[string]models.ProcessedRide
	profiles   map[string]models.RiderProfile
	watermarks map[string]string
}

// NewInMemoryStore creates a new in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		posts:      make(map[string]models.RawPost),
		rides:      make(map[string]models.ProcessedRide),
		profiles:   make(map[string]models.RiderProfile),
		watermarks: make(map[string]string),
	}
}

// UpsertPost stores a raw post; an already-known id is left untouched
func (s *InMemoryStore) UpsertPost(ctx context.Context, post models.RawPost) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.posts[post.ID]; exists {
		return false, nil
	}
	s.posts[post.ID] = post
	return true, nil
}

// QueryPosts retrieves posts matching the query, newest first
func (s *InMemoryStore) QueryPosts(ctx context.Context, q models.PostQuery) ([]models.RawPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.RawPost
	for _, post := range s.posts {
		if q.Matches(post) {
			result = append(result, post)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedTime.After(result[j].CreatedTime)
	})

	return paginate(result, q.Offset, q.Limit), nil
}

// GetPost retrieves a single post by id
func (s *InMemoryStore) GetPost(ctx context.Context, id string) (*models.RawPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if post, exists := s.posts[id]; exists {
		return &post, nil
	}
	return nil, nil
}

// DeletePost removes a post; deleting an unknown id is a no-op
func (s *InMemoryStore) DeletePost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.posts, id)
	return nil
}

// UpsertRide stores a processed ride keyed by reference id
func (s *InMemoryStore) UpsertRide(ctx context.Context, ride models.ProcessedRide) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rides[ride.ReferenceID] = ride
	return nil
}

// QueryRides retrieves rides matching the query, newest first
func (s *InMemoryStore) QueryRides(ctx context.Context, q models.RideQuery) ([]models.ProcessedRide, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.ProcessedRide
	for _, ride := range s.rides {
		if q.Matches(ride) {
			result = append(result, ride)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return paginate(result, q.Offset, q.Limit), nil
}

// GetRide retrieves a single ride by reference id
func (s *InMemoryStore) GetRide(ctx context.Context, referenceID string) (*models.ProcessedRide, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if ride, exists := s.rides[referenceID]; exists {
		return &ride, nil
	}
	return nil, nil
}

// DeleteRide removes a ride; deleting an unknown id is a no-op
func (s *InMemoryStore) DeleteRide(ctx context.Context, referenceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rides, referenceID)
	return nil
}

// UpsertProfile stores a rider profile
func (s *InMemoryStore) UpsertProfile(ctx context.Context, profile models.RiderProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := profile
	stored.DeviceTokens = append([]string(nil), profile.DeviceTokens...)
	s.profiles[profile.ID] = stored
	return nil
}

// ListProfiles returns every rider profile
func (s *InMemoryStore) ListProfiles(ctx context.Context) ([]models.RiderProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.RiderProfile, 0, len(s.profiles))
	for _, profile := range s.profiles {
		copied := profile
		copied.DeviceTokens = append([]string(nil), profile.DeviceTokens...)
		result = append(result, copied)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// RemoveToken prunes one device token from a profile
func (s *InMemoryStore) RemoveToken(ctx context.Context, profileID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, exists := s.profiles[profileID]
	if !exists {
		return nil
	}

	tokens := profile.DeviceTokens[:0]
	for _, t := range profile.DeviceTokens {
		if t != token {
			tokens = append(tokens, t)
		}
	}
	profile.DeviceTokens = tokens
	s.profiles[profileID] = profile
	return nil
}

// GetWatermark returns the stored watermark value, empty when unset
func (s *InMemoryStore) GetWatermark(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.watermarks[name], nil
}

// SetWatermark stores a watermark value
func (s *InMemoryStore) SetWatermark(ctx context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.watermarks[name] = value
	return nil
}

// Health always returns nil for in-memory store
func (s *InMemoryStore) Health(ctx context.Context) error {
	return nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 && offset < len(items) {
		items = items[offset:]
	} else if offset >= len(items) && offset > 0 {
		items = nil
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
