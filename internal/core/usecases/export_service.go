package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chalkin/chalkin/internal/core/domain"
	"github.com/chalkin/chalkin/internal/core/ports"
	"github.com/chalkin/chalkin/internal/pkg/metrics"
)

// ExportRequest is the input for starting a Strava export.
type ExportRequest struct {
	SessionRef string                `json:"session_ref"`
	Name       string                `json:"name"`
	Track      domain.ConvertRequest `json:"track"`
}

// ExportService runs rendered tracks through archive and Strava upload.
type ExportService struct {
	exports   ports.ExportRepository
	tracks    *TrackService
	strava    *StravaService
	api       ports.StravaAPI
	storage   ports.ObjectStorage
	events    ports.EventPublisher
	workflows ports.WorkflowStarter
	now       func() time.Time
}

// NewExportService creates a new ExportService. events and workflows may be
// nil on worker processes that only execute activities.
func NewExportService(
	exports ports.ExportRepository,
	tracks *TrackService,
	strava *StravaService,
	api ports.StravaAPI,
	storage ports.ObjectStorage,
	events ports.EventPublisher,
	workflows ports.WorkflowStarter,
) *ExportService {
	return &ExportService{
		exports:   exports,
		tracks:    tracks,
		strava:    strava,
		api:       api,
		storage:   storage,
		events:    events,
		workflows: workflows,
		now:       time.Now,
	}
}

// Start validates req, records a pending export and launches its workflow.
func (s *ExportService) Start(ctx context.Context, userID string, req ExportRequest) (*domain.Export, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	if s.workflows == nil {
		return nil, fmt.Errorf("export workflows: %w", domain.ErrUnavailable)
	}

	st, err := s.strava.Status(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !st.Connected {
		return nil, domain.ErrNotConnected
	}

	// Pin the start time so workflow retries render identical bytes.
	if req.Track.Start == nil {
		start := s.now().UTC().Truncate(time.Second)
		req.Track.Start = &start
	}
	rt, err := s.tracks.Convert(ctx, req.Track)
	if err != nil {
		return nil, err
	}
	if req.Name == "" {
		req.Name = rt.Name
	}

	exp := &domain.Export{
		UserID:     userID,
		SessionRef: req.SessionRef,
		Name:       req.Name,
		Request:    req.Track,
		Status:     domain.ExportPending,
	}
	if err := s.exports.Create(ctx, exp); err != nil {
		return nil, fmt.Errorf("create export: %w", err)
	}
	s.publish(ctx, exp)

	if err := s.workflows.StartExport(ctx, exp.ID); err != nil {
		_ = s.Fail(ctx, exp.ID, "could not start export workflow")
		return nil, fmt.Errorf("start export workflow: %w", err)
	}
	metrics.ExportsStarted.Inc()
	return exp, nil
}

// Get returns one of userID's exports.
func (s *ExportService) Get(ctx context.Context, userID, id string) (*domain.Export, error) {
	exp, err := s.exports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if exp.UserID != userID {
		return nil, fmt.Errorf("export %s: %w", id, domain.ErrNotFound)
	}
	return exp, nil
}

// List returns userID's exports, newest first.
func (s *ExportService) List(ctx context.Context, userID string, limit, offset int) ([]domain.Export, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.exports.ListByUser(ctx, userID, limit, offset)
}

// RenderAndStore renders the export's track and archives the GPX file.
func (s *ExportService) RenderAndStore(ctx context.Context, id string) (string, error) {
	exp, err := s.exports.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("get export %s: %w", id, err)
	}

	rt, err := s.tracks.Convert(ctx, exp.Request)
	if err != nil {
		return "", fmt.Errorf("render export %s: %w", id, err)
	}

	key := ObjectKey(exp.UserID, exp.ID)
	if err := s.storage.Put(ctx, key, rt.GPX, "application/gpx+xml"); err != nil {
		return "", fmt.Errorf("store export %s: %w", id, err)
	}

	exp.ObjectKey = key
	exp.Status = domain.ExportRendered
	if err := s.update(ctx, exp); err != nil {
		return "", err
	}
	return key, nil
}

// Upload sends the archived GPX file to Strava and returns the upload id.
func (s *ExportService) Upload(ctx context.Context, id string) (int64, error) {
	exp, err := s.exports.GetByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("get export %s: %w", id, err)
	}
	if exp.StravaUploadID != 0 {
		return exp.StravaUploadID, nil
	}

	token, err := s.strava.ValidToken(ctx, exp.UserID)
	if err != nil {
		return 0, err
	}
	gpx, err := s.storage.Get(ctx, exp.ObjectKey)
	if err != nil {
		return 0, fmt.Errorf("load export %s: %w", id, err)
	}

	up, err := s.api.Upload(ctx, token, ports.StravaUploadRequest{
		Name:        exp.Name,
		Description: exp.Request.Description,
		ExternalID:  exp.ID + ".gpx",
		GPX:         gpx,
	})
	if err != nil {
		return 0, fmt.Errorf("upload export %s: %w", id, err)
	}

	exp.StravaUploadID = up.ID
	exp.Status = domain.ExportUploading
	if err := s.update(ctx, exp); err != nil {
		return 0, err
	}
	return up.ID, nil
}

// CheckUpload asks Strava once how the upload is doing.
func (s *ExportService) CheckUpload(ctx context.Context, id string) (*domain.StravaUpload, error) {
	exp, err := s.exports.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get export %s: %w", id, err)
	}
	token, err := s.strava.ValidToken(ctx, exp.UserID)
	if err != nil {
		return nil, err
	}
	up, err := s.api.GetUpload(ctx, token, exp.StravaUploadID)
	if err != nil {
		return nil, fmt.Errorf("check upload %d: %w", exp.StravaUploadID, err)
	}
	return up, nil
}

// Complete marks the export as done with the created Strava activity.
func (s *ExportService) Complete(ctx context.Context, id string, activityID int64) error {
	exp, err := s.exports.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get export %s: %w", id, err)
	}
	exp.StravaActivityID = activityID
	exp.Status = domain.ExportCompleted
	exp.Error = ""
	if err := s.update(ctx, exp); err != nil {
		return err
	}
	metrics.ExportsFinished.WithLabelValues(string(domain.ExportCompleted)).Inc()
	return nil
}

// Fail marks the export as failed with reason.
func (s *ExportService) Fail(ctx context.Context, id, reason string) error {
	exp, err := s.exports.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get export %s: %w", id, err)
	}
	if exp.Status.Final() {
		return nil
	}
	exp.Status = domain.ExportFailed
	exp.Error = reason
	if err := s.update(ctx, exp); err != nil {
		return err
	}
	metrics.ExportsFinished.WithLabelValues(string(domain.ExportFailed)).Inc()
	return nil
}

// RemoveArchive deletes the stored GPX file of an export, if any.
func (s *ExportService) RemoveArchive(ctx context.Context, id string) error {
	exp, err := s.exports.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get export %s: %w", id, err)
	}
	if exp.ObjectKey == "" {
		return nil
	}
	if err := s.storage.Delete(ctx, exp.ObjectKey); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete archive %s: %w", exp.ObjectKey, err)
	}
	return nil
}

func (s *ExportService) update(ctx context.Context, exp *domain.Export) error {
	exp.UpdatedAt = s.now()
	if err := s.exports.Update(ctx, exp); err != nil {
		return fmt.Errorf("update export %s: %w", exp.ID, err)
	}
	s.publish(ctx, exp)
	return nil
}

// publish is best-effort.
func (s *ExportService) publish(ctx context.Context, exp *domain.Export) {
	if s.events == nil {
		return
	}
	ev := &domain.ExportEvent{
		ExportID:         exp.ID,
		UserID:           exp.UserID,
		Status:           exp.Status,
		StravaActivityID: exp.StravaActivityID,
		Error:            exp.Error,
		Time:             s.now().UTC(),
	}
	if err := s.events.PublishExportEvent(ctx, ev); err != nil {
		slog.Warn("publish export event failed", "export_id", exp.ID, "status", exp.Status, "error", err)
	}
}

// ObjectKey is where an export's GPX file is archived.
func ObjectKey(userID, exportID string) string {
	return fmt.Sprintf("exports/%s/%s.gpx", userID, exportID)
}
