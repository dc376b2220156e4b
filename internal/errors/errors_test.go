package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestFeedFetchError(t *testing.T) {
	cause := errors.New("connection refused")
	err := FeedFetchError{URL: "https://feed.example.com/posts", Err: cause}

	expected := "feed fetch from https://feed.example.com/posts failed: connection refused"
	if err.Error() != expected {
		t.Errorf("Expected %s, got %s", expected, err.Error())
	}

	if !errors.Is(err, cause) {
		t.Errorf("Expected Unwrap to expose the cause")
	}

	if !IsFeedFetch(err) {
		t.Errorf("Expected IsFeedFetch true")
	}
	if !IsFeedFetch(fmt.Errorf("poll: %w", err)) {
		t.Errorf("Expected IsFeedFetch true through wrapping")
	}
	if IsFeedFetch(cause) {
		t.Errorf("Expected IsFeedFetch false for the bare cause")
	}
}

func TestExtractionServiceError(t *testing.T) {
	cause := errors.New("HTTP 503")
	err := ExtractionServiceError{ReferenceID: "post-1", Err: cause}

	expected := "entity extraction for post post-1 failed: HTTP 503"
	if err.Error() != expected {
		t.Errorf("Expected %s, got %s", expected, err.Error())
	}

	if !errors.Is(err, cause) {
		t.Errorf("Expected Unwrap to expose the cause")
	}
	if !IsExtraction(err) {
		t.Errorf("Expected IsExtraction true")
	}
	if IsExtraction(FeedFetchError{}) {
		t.Errorf("Expected IsExtraction false for other error types")
	}
}

func TestNotificationDeliveryError(t *testing.T) {
	err := NotificationDeliveryError{Token: "tok-1", Reason: "NotRegistered"}

	expected := "notification delivery to token tok-1 failed: NotRegistered"
	if err.Error() != expected {
		t.Errorf("Expected %s, got %s", expected, err.Error())
	}
}

func TestMalformedRecordError(t *testing.T) {
	tests := []struct {
		name     string
		err      MalformedRecordError
		expected string
	}{
		{
			name:     "With id",
			err:      MalformedRecordError{ID: "post-1", Field: "message"},
			expected: "malformed record post-1: missing message",
		},
		{
			name:     "Without id",
			err:      MalformedRecordError{Field: "id"},
			expected: "malformed record: missing id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, tt.err.Error())
			}
			if !IsMalformed(tt.err) {
				t.Errorf("Expected IsMalformed true")
			}
		})
	}
}
