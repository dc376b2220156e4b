package models

import "time"

// ProcessedRide is the normalized record produced after a post has been
// classified as a ride offer and had its route endpoints extracted.
// Identity is the reference id of the originating post; writes for an
// already-known reference id overwrite, never duplicate.
type ProcessedRide struct {
	ReferenceID   string     `json:"reference_id" db:"reference_id"`
	PostStatus    PostStatus `json:"post_status" db:"post_status"`
	Origin        *string    `json:"origin" db:"origin"`
	Destination   *string    `json:"destination" db:"destination"`
	DepartureDate *time.Time `json:"departure_date,omitempty" db:"departure_date"`
	Seats         int        `json:"seats,omitempty" db:"seats"`
	Cost          float64    `json:"cost,omitempty" db:"cost"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// RiderProfile holds a rider's destination preference and the device
// tokens addressing their installed clients. Profiles are owned by the
// external profile service; the match engine only removes tokens that
// push delivery reports as dead.
type RiderProfile struct {
	ID           string   `json:"id" db:"id"`
	Destination  string   `json:"destination" db:"destination"`
	DeviceTokens []string `json:"device_tokens" db:"device_tokens"`
}

// HasToken reports whether the profile currently holds the given token.
func (p RiderProfile) HasToken(token string) bool {
	return contains(p.DeviceTokens, token)
}

// RideQuery represents query parameters for filtering processed rides
type RideQuery struct {
	ReferenceIDs []string     `json:"reference_ids"`
	Statuses     []PostStatus `json:"statuses"`
	Destinations []string     `json:"destinations"`
	Since        time.Time    `json:"since"`
	Until        time.Time    `json:"until"`
	Limit        int          `json:"limit"`
	Offset       int          `json:"offset"`
}

// Matches checks if a ride matches the query criteria
func (q RideQuery) Matches(ride ProcessedRide) bool {
	if len(q.ReferenceIDs) > 0 && !contains(q.ReferenceIDs, ride.ReferenceID) {
		return false
	}
	if len(q.Statuses) > 0 {
		found := false
		for _, s := range q.Statuses {
			if s == ride.PostStatus {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(q.Destinations) > 0 {
		if ride.Destination == nil || !contains(q.Destinations, *ride.Destination) {
			return false
		}
	}
	if !q.Since.IsZero() && ride.CreatedAt.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && ride.CreatedAt.After(q.Until) {
		return false
	}
	return true
}
