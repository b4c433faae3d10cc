package usecases

import (
	"errors"
	"testing"
	"time"

	"github.com/chalkin/chalkin/internal/core/domain"
)

func TestStravaState(t *testing.T) {
	now := time.Date(2024, 5, 18, 9, 30, 0, 0, time.UTC)
	s := &StravaService{secret: []byte("k"), now: func() time.Time { return now }}

	state := s.signState("user:with:colons")
	got, err := s.verifyState(state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "user:with:colons" {
		t.Errorf("expected user id round trip, got %q", got)
	}

	now = now.Add(stateTTL + time.Second)
	if _, err := s.verifyState(state); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected expired state to be rejected, got %v", err)
	}
}
