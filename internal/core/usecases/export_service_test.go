package usecases_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/chalkin/chalkin/internal/core/domain"
	"github.com/chalkin/chalkin/internal/core/usecases"
)

type exportFixture struct {
	svc     *usecases.ExportService
	exports *mockExportRepo
	storage *mockStorage
	api     *mockStravaAPI
	events  *mockPublisher
	starter *mockStarter
}

func newExportFixture() *exportFixture {
	conns := newMockStravaRepo(domain.StravaConnection{
		UserID:      "climber-1",
		AthleteID:   42,
		AccessToken: "token-1",
		ExpiresAt:   time.Now().Add(6 * time.Hour),
	})
	f := &exportFixture{
		exports: newMockExportRepo(),
		storage: newMockStorage(),
		api:     &mockStravaAPI{},
		events:  &mockPublisher{},
		starter: &mockStarter{},
	}
	shapes := usecases.NewShapeService(nil, nil)
	tracks := usecases.NewTrackService(shapes, nil, testDefaults)
	strava := usecases.NewStravaService(conns, &mockOAuth{}, stateSecret)
	f.svc = usecases.NewExportService(f.exports, tracks, strava, f.api, f.storage, f.events, f.starter)
	return f
}

func TestExportService_Start(t *testing.T) {
	f := newExportFixture()

	exp, err := f.svc.Start(context.Background(), "climber-1", usecases.ExportRequest{
		SessionRef: "session-7",
		Track:      domain.ConvertRequest{ShapeSlug: "triangle", NumPoints: ptr(50)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exp.Status != domain.ExportPending || exp.UserID != "climber-1" {
		t.Errorf("unexpected export %+v", exp)
	}
	if exp.Name != "Triangle" {
		t.Errorf("expected name from shape, got %q", exp.Name)
	}
	if exp.Request.Start == nil {
		t.Error("expected start time to be pinned")
	}
	if !reflect.DeepEqual(f.starter.started, []string{exp.ID}) {
		t.Errorf("expected workflow for %s, got %v", exp.ID, f.starter.started)
	}
	if got := f.events.statuses(); !reflect.DeepEqual(got, []domain.ExportStatus{domain.ExportPending}) {
		t.Errorf("unexpected events %v", got)
	}
}

func TestExportService_StartRejects(t *testing.T) {
	f := newExportFixture()

	_, err := f.svc.Start(context.Background(), "", usecases.ExportRequest{})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}

	_, err = f.svc.Start(context.Background(), "climber-2", usecases.ExportRequest{
		Track: domain.ConvertRequest{ShapeSlug: "triangle"},
	})
	if !errors.Is(err, domain.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}

	_, err = f.svc.Start(context.Background(), "climber-1", usecases.ExportRequest{
		Track: domain.ConvertRequest{Path: "M 1 1 L 1 1"},
	})
	if err == nil {
		t.Error("expected degenerate shape error")
	}
	if len(f.exports.exports) != 0 {
		t.Errorf("rejected requests must not be stored")
	}
}

func TestExportService_StartWorkflowFailure(t *testing.T) {
	f := newExportFixture()
	f.starter.err = errors.New("temporal unreachable")

	_, err := f.svc.Start(context.Background(), "climber-1", usecases.ExportRequest{
		Track: domain.ConvertRequest{ShapeSlug: "triangle"},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	stored := f.exports.exports["exp-1"]
	if stored.Status != domain.ExportFailed || stored.Error == "" {
		t.Errorf("expected failed export, got %+v", stored)
	}
}

func TestExportService_Pipeline(t *testing.T) {
	f := newExportFixture()
	ctx := context.Background()

	exp, err := f.svc.Start(ctx, "climber-1", usecases.ExportRequest{
		Name:  "Evening session",
		Track: domain.ConvertRequest{ShapeSlug: "chalkin", Description: "Campus board"},
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	key, err := f.svc.RenderAndStore(ctx, exp.ID)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if key != usecases.ObjectKey("climber-1", exp.ID) {
		t.Errorf("unexpected key %s", key)
	}
	if len(f.storage.objects[key]) == 0 {
		t.Fatal("expected archived GPX")
	}

	uploadID, err := f.svc.Upload(ctx, exp.ID)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if uploadID != 9001 {
		t.Errorf("unexpected upload id %d", uploadID)
	}
	// A retried activity must not upload twice.
	if again, err := f.svc.Upload(ctx, exp.ID); err != nil || again != uploadID {
		t.Errorf("expected idempotent upload, got %d, %v", again, err)
	}
	if len(f.api.uploads) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(f.api.uploads))
	}
	req := f.api.uploads[0]
	if req.Name != "Evening session" || req.Description != "Campus board" {
		t.Errorf("unexpected upload request %+v", req)
	}
	if req.ExternalID != exp.ID+".gpx" || f.api.tokens[0] != "token-1" {
		t.Errorf("unexpected upload identity %s / %s", req.ExternalID, f.api.tokens[0])
	}
	if !strings.Contains(string(req.GPX), "<type>RockClimbing</type>") {
		t.Error("expected climbing activity type in GPX")
	}
	if string(req.GPX) != string(f.storage.objects[key]) {
		t.Error("uploaded bytes differ from archive")
	}

	up, err := f.svc.CheckUpload(ctx, exp.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !up.Done() || up.ActivityID != 77 {
		t.Errorf("unexpected upload %+v", up)
	}

	if err := f.svc.Complete(ctx, exp.ID, up.ActivityID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got, err := f.svc.Get(ctx, "climber-1", exp.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.ExportCompleted || got.StravaActivityID != 77 {
		t.Errorf("unexpected final export %+v", got)
	}

	want := []domain.ExportStatus{domain.ExportPending, domain.ExportRendered, domain.ExportUploading, domain.ExportCompleted}
	if st := f.events.statuses(); !reflect.DeepEqual(st, want) {
		t.Errorf("expected events %v, got %v", want, st)
	}

	// Failing a finished export is a no-op.
	if err := f.svc.Fail(ctx, exp.ID, "late failure"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if got, _ := f.svc.Get(ctx, "climber-1", exp.ID); got.Status != domain.ExportCompleted {
		t.Errorf("completed export was overwritten: %s", got.Status)
	}
}

func TestExportService_FailAndRemoveArchive(t *testing.T) {
	f := newExportFixture()
	ctx := context.Background()

	exp, err := f.svc.Start(ctx, "climber-1", usecases.ExportRequest{Track: domain.ConvertRequest{ShapeSlug: "circle"}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	key, err := f.svc.RenderAndStore(ctx, exp.ID)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if err := f.svc.RemoveArchive(ctx, exp.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := f.storage.objects[key]; ok {
		t.Error("archive not removed")
	}
	if err := f.svc.Fail(ctx, exp.ID, "strava rejected the file"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	got, _ := f.svc.Get(ctx, "climber-1", exp.ID)
	if got.Status != domain.ExportFailed || got.Error != "strava rejected the file" {
		t.Errorf("unexpected export %+v", got)
	}
}

func TestExportService_GetIsScopedToUser(t *testing.T) {
	f := newExportFixture()
	exp, err := f.svc.Start(context.Background(), "climber-1", usecases.ExportRequest{Track: domain.ConvertRequest{ShapeSlug: "circle"}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := f.svc.Get(context.Background(), "climber-2", exp.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	list, err := f.svc.List(context.Background(), "climber-1", 0, 0)
	if err != nil || len(list) != 1 {
		t.Errorf("expected 1 export, got %d, %v", len(list), err)
	}
}
