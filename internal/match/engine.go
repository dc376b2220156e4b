// Package match compares new ride offers against rider profiles and
// dispatches push notifications to every match.
package match

import (
	"context"
	"fmt"

	"github.com/PolyRides/firefunction-postsAnalyze/internal/logger"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/metrics"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/models"
	"github.com/PolyRides/firefunction-postsAnalyze/internal/notify"
)

// ProfileStore is the slice of the store the engine needs
type ProfileStore interface {
	ListProfiles(ctx context.Context) ([]models.RiderProfile, error)
	RemoveToken(ctx context.Context, profileID, token string) error
}

// Summary reports the outcome of one match pass
type Summary struct {
	ProfilesMatched int `json:"profiles_matched"`
	TokensNotified  int `json:"tokens_notified"`
	TokensPruned    int `json:"tokens_pruned"`
}

// Engine matches ride offers to rider profiles.
type Engine struct {
	profiles ProfileStore
	pusher   notify.Pusher
}

// New creates a match engine
func New(profiles ProfileStore, pusher notify.Pusher) *Engine {
	return &Engine{profiles: profiles, pusher: pusher}
}

// NotifyMatches runs one match pass for a newly processed ride. The
// complete profile set is loaded once per invocation and every
// profile whose destination equals the ride's destination and whose
// token set is non-empty is notified; the pass never stops at the
// first match. Per-token delivery failures drive token pruning and
// never abort the rest of the pass.
func (e *Engine) NotifyMatches(ctx context.Context, ride models.ProcessedRide) (Summary, error) {
	var summary Summary

	if ride.PostStatus != models.PostStatusRideOffer || ride.Destination == nil {
		return summary, nil
	}
	destination := *ride.Destination

	profiles, err := e.profiles.ListProfiles(ctx)
	if err != nil {
		return summary, fmt.Errorf("load profiles: %w", err)
	}

	payload := notify.Notification{
		Title: "Matching Ride",
		Body:  fmt.Sprintf("There is a ride offer that matches your request to %s", destination),
	}

	for _, profile := range profiles {
		if profile.Destination != destination || len(profile.DeviceTokens) == 0 {
			continue
		}
		summary.ProfilesMatched++

		results, err := e.pusher.Send(ctx, profile.DeviceTokens, payload)
		if err != nil {
			// Transport failure for this profile; the pass continues
			logger.Error("Push send failed",
				"profile_id", profile.ID,
				"ride", ride.ReferenceID,
				"error", err,
			)
			metrics.RecordNotification("send_error")
			continue
		}

		for _, result := range results {
			if result.Error == "" {
				summary.TokensNotified++
				metrics.RecordNotification("success")
				continue
			}

			metrics.RecordNotification("token_error")
			logger.Warn("Token delivery failed",
				"profile_id", profile.ID,
				"reason", result.Error,
			)

			if result.Invalid() {
				if err := e.profiles.RemoveToken(ctx, profile.ID, result.Token); err != nil {
					logger.Error("Token prune failed",
						"profile_id", profile.ID,
						"error", err,
					)
					continue
				}
				summary.TokensPruned++
			}
		}
	}

	logger.Info("Match pass completed",
		"ride", ride.ReferenceID,
		"destination", destination,
		"profiles_matched", summary.ProfilesMatched,
		"tokens_notified", summary.TokensNotified,
		"tokens_pruned", summary.TokensPruned,
	)

	return summary, nil
}
