package models

import "time"

// PostStatus is the classification label assigned to a post's text.
type PostStatus string

const (
	// PostStatusRideOffer marks a post offering seats on a ride.
	PostStatusRideOffer PostStatus = "Ride Offer"
	// PostStatusRideSeeking marks a post requesting a ride.
	PostStatusRideSeeking PostStatus = "Ride Seeking"
)

// RawPost represents a post ingested from the external feed.
// Identity is the externally assigned post id; posts are immutable
// once ingested and are removed by the sweeper after the retention
// window passes.
type RawPost struct {
	ID          string    `json:"id" db:"id"`
	CreatedTime time.Time `json:"created_time" db:"created_time"`
	Message     string    `json:"message" db:"message"`
	FetchedAt   time.Time `json:"fetched_at" db:"fetched_at"`
}

// PostQuery represents query parameters for filtering raw posts
type PostQuery struct {
	IDs    []string  `json:"ids"`
	Since  time.Time `json:"since"`
	Until  time.Time `json:"until"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}

// Matches checks if a post matches the query criteria
func (q PostQuery) Matches(post RawPost) bool {
	if len(q.IDs) > 0 && !contains(q.IDs, post.ID) {
		return false
	}
	if !q.Since.IsZero() && post.CreatedTime.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && post.CreatedTime.After(q.Until) {
		return false
	}
	return true
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
