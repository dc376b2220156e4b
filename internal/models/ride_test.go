package models

import (
	"testing"
	"time"
)

func TestRideQuery_Matches(t *testing.T) {
	dest := "LA"
	created := time.Date(2018, 5, 4, 12, 0, 0, 0, time.UTC)
	ride := ProcessedRide{
		ReferenceID: "post-1",
		PostStatus:  PostStatusRideOffer,
		Destination: &dest,
		CreatedAt:   created,
	}

	tests := []struct {
		name     string
		query    RideQuery
		expected bool
	}{
		{
			name:     "Empty query matches",
			query:    RideQuery{},
			expected: true,
		},
		{
			name:     "Matching reference id",
			query:    RideQuery{ReferenceIDs: []string{"post-1"}},
			expected: true,
		},
		{
			name:     "Non-matching reference id",
			query:    RideQuery{ReferenceIDs: []string{"post-9"}},
			expected: false,
		},
		{
			name:     "Matching status",
			query:    RideQuery{Statuses: []PostStatus{PostStatusRideOffer}},
			expected: true,
		},
		{
			name:     "Non-matching status",
			query:    RideQuery{Statuses: []PostStatus{PostStatusRideSeeking}},
			expected: false,
		},
		{
			name:     "Matching destination",
			query:    RideQuery{Destinations: []string{"LA", "SF"}},
			expected: true,
		},
		{
			name:     "Non-matching destination",
			query:    RideQuery{Destinations: []string{"SF"}},
			expected: false,
		},
		{
			name:     "Time range",
			query:    RideQuery{Since: created.Add(-time.Hour), Until: created.Add(time.Hour)},
			expected: true,
		},
		{
			name:     "Outside time range",
			query:    RideQuery{Since: created.Add(time.Hour)},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Matches(ride); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestRideQuery_Matches_NilDestination(t *testing.T) {
	ride := ProcessedRide{
		ReferenceID: "post-2",
		PostStatus:  PostStatusRideOffer,
		Destination: nil,
	}

	// A destination filter can never match a ride without one
	if (RideQuery{Destinations: []string{"LA"}}).Matches(ride) {
		t.Errorf("Expected no match for nil destination")
	}
	if !(RideQuery{}).Matches(ride) {
		t.Errorf("Expected empty query to match")
	}
}

func TestRiderProfile_HasToken(t *testing.T) {
	profile := RiderProfile{
		ID:           "rider-1",
		Destination:  "LA",
		DeviceTokens: []string{"tok-a", "tok-b"},
	}

	if !profile.HasToken("tok-a") {
		t.Errorf("Expected tok-a present")
	}
	if profile.HasToken("tok-z") {
		t.Errorf("Expected tok-z absent")
	}
	if (RiderProfile{}).HasToken("tok-a") {
		t.Errorf("Expected no tokens on empty profile")
	}
}
