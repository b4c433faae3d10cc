package http

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/chalkin/chalkin/internal/core/domain"
)

func receive(t *testing.T, cl *hubClient) *domain.ExportEvent {
	t.Helper()
	select {
	case data := <-cl.send:
		var ev domain.ExportEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		return &ev
	default:
		return nil
	}
}

func TestHub_BroadcastFiltersByUserAndExport(t *testing.T) {
	hub := NewHub()
	all := hub.register("climber-1")
	one := hub.register("climber-1")
	other := hub.register("climber-2")
	one.subscribe("exp-2")

	ev := &domain.ExportEvent{ExportID: "exp-1", UserID: "climber-1", Status: domain.ExportRendered}
	if err := hub.Broadcast(context.Background(), ev); err != nil {
		t.Fatal(err)
	}

	if got := receive(t, all); got == nil || got.Status != domain.ExportRendered {
		t.Errorf("expected event for unfiltered client, got %+v", got)
	}
	if got := receive(t, one); got != nil {
		t.Errorf("client watching exp-2 received %+v", got)
	}
	if got := receive(t, other); got != nil {
		t.Errorf("other user received %+v", got)
	}

	hub.Broadcast(context.Background(), &domain.ExportEvent{ExportID: "exp-2", UserID: "climber-1", Status: domain.ExportCompleted})
	if got := receive(t, one); got == nil || got.ExportID != "exp-2" {
		t.Errorf("expected exp-2 event, got %+v", got)
	}

	if !one.unsubscribe("exp-2") || one.unsubscribe("exp-2") {
		t.Error("unsubscribe should succeed exactly once")
	}
}

func TestHub_SlowClientDoesNotBlock(t *testing.T) {
	hub := NewHub()
	cl := hub.register("climber-1")

	for i := 0; i < cap(cl.send)+5; i++ {
		hub.Broadcast(context.Background(), &domain.ExportEvent{ExportID: "exp-1", UserID: "climber-1"})
	}
	if len(cl.send) != cap(cl.send) {
		t.Errorf("expected full buffer, got %d", len(cl.send))
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub()
	cl := hub.register("climber-1")
	if hub.Clients() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.Clients())
	}

	hub.unregister(cl)
	hub.unregister(cl)
	if hub.Clients() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.Clients())
	}
	if _, ok := <-cl.send; ok {
		t.Error("expected send channel closed")
	}
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		path, pattern string
		want          bool
	}{
		{"/v1/logo.gpx", "/v1/logo.gpx", true},
		{"/v1/shapes/circle", "/v1/shapes/:slug", true},
		{"/v1/shapes/circle/gpx", "/v1/shapes/:slug", false},
		{"/v1/shapes/", "/v1/shapes/:slug", false},
		{"/v1/exports/1", "/v1/shapes/:slug", false},
	}
	for _, tt := range tests {
		if got := matchPattern(tt.path, tt.pattern); got != tt.want {
			t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.path, tt.pattern, got, tt.want)
		}
	}
}
