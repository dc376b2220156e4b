package dedup

import (
	"context"
	"reflect"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestMemoryGate_Admit(t *testing.T) {
	gate := NewMemoryGate()
	ctx := context.Background()

	admitted, err := gate.Admit(ctx, []string{"post-1", "post-2", "post-3"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !reflect.DeepEqual(admitted, []string{"post-1", "post-2", "post-3"}) {
		t.Errorf("Expected all ids admitted, got %v", admitted)
	}

	// The full batch is checked, not only the newest id: a batch
	// mixing seen and unseen ids admits exactly the unseen ones
	admitted, err = gate.Admit(ctx, []string{"post-2", "post-4", "post-1", "post-5"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !reflect.DeepEqual(admitted, []string{"post-4", "post-5"}) {
		t.Errorf("Expected only unseen ids admitted, got %v", admitted)
	}

	// Re-admitting the same batch admits nothing
	admitted, err = gate.Admit(ctx, []string{"post-1", "post-2", "post-3", "post-4", "post-5"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(admitted) != 0 {
		t.Errorf("Expected no ids admitted on replay, got %v", admitted)
	}
}

func TestMemoryGate_Seen(t *testing.T) {
	gate := NewMemoryGate()
	ctx := context.Background()

	seen, err := gate.Seen(ctx, "post-1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if seen {
		t.Errorf("Expected post-1 unseen before admit")
	}

	if _, err := gate.Admit(ctx, []string{"post-1"}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	seen, err = gate.Seen(ctx, "post-1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !seen {
		t.Errorf("Expected post-1 seen after admit")
	}
}

func TestNew_ReturnsMemoryGateWithoutURL(t *testing.T) {
	gate, err := New("", time.Hour)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, ok := gate.(*MemoryGate); !ok {
		t.Fatalf("expected MemoryGate without a redis url, got %T", gate)
	}
}

func TestRedisGate_Admit(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	gate, err := NewRedisGate("redis://"+s.Addr(), time.Hour)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer gate.Close()

	ctx := context.Background()

	admitted, err := gate.Admit(ctx, []string{"post-1", "post-2"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !reflect.DeepEqual(admitted, []string{"post-1", "post-2"}) {
		t.Errorf("Expected both ids admitted, got %v", admitted)
	}

	admitted, err = gate.Admit(ctx, []string{"post-1", "post-3"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !reflect.DeepEqual(admitted, []string{"post-3"}) {
		t.Errorf("Expected only post-3 admitted, got %v", admitted)
	}

	seen, err := gate.Seen(ctx, "post-1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !seen {
		t.Errorf("Expected post-1 seen")
	}
}

func TestRedisGate_StateSurvivesReconnect(t *testing.T) {
	// The gate exists to close the restart gap: a new gate against the
	// same Redis must still refuse previously admitted ids
	s, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ctx := context.Background()

	first, err := NewRedisGate("redis://"+s.Addr(), time.Hour)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := first.Admit(ctx, []string{"post-1"}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	first.Close()

	second, err := NewRedisGate("redis://"+s.Addr(), time.Hour)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer second.Close()

	admitted, err := second.Admit(ctx, []string{"post-1", "post-2"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !reflect.DeepEqual(admitted, []string{"post-2"}) {
		t.Errorf("Expected post-1 refused after reconnect, got %v", admitted)
	}
}

func TestRedisGate_KeysExpire(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	gate, err := NewRedisGate("redis://"+s.Addr(), time.Minute)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer gate.Close()

	ctx := context.Background()
	if _, err := gate.Admit(ctx, []string{"post-1"}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	s.FastForward(2 * time.Minute)

	seen, err := gate.Seen(ctx, "post-1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if seen {
		t.Errorf("Expected marker expired after ttl")
	}
}

func TestNewRedisGate_InvalidURL(t *testing.T) {
	if _, err := NewRedisGate("not-a-url", time.Hour); err == nil {
		t.Errorf("Expected error for invalid url, got nil")
	}
}
