package workflows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/temporal"

	"github.com/chalkin/chalkin/internal/core/domain"
	"github.com/chalkin/chalkin/internal/core/usecases"
	"github.com/chalkin/chalkin/internal/pkg/shapetrack"
)

// UploadState is the activity view of a Strava upload.
type UploadState struct {
	UploadID   int64
	Status     string
	ActivityID int64
	Error      string
}

// ExportActivities holds the activity implementations for the export workflow.
type ExportActivities struct {
	Exports *usecases.ExportService
}

// RenderAndStore renders the export and archives the GPX file.
func (a *ExportActivities) RenderAndStore(ctx context.Context, exportID string) (string, error) {
	key, err := a.Exports.RenderAndStore(ctx, exportID)
	if err != nil {
		return "", nonRetryable(err)
	}
	slog.Info("export archived", "export_id", exportID, "key", key)
	return key, nil
}

// UploadToStrava sends the archived file to Strava.
func (a *ExportActivities) UploadToStrava(ctx context.Context, exportID string) (int64, error) {
	id, err := a.Exports.Upload(ctx, exportID)
	if err != nil {
		return 0, nonRetryable(err)
	}
	return id, nil
}

// CheckUpload reports Strava's processing state for the export's upload.
func (a *ExportActivities) CheckUpload(ctx context.Context, exportID string) (UploadState, error) {
	up, err := a.Exports.CheckUpload(ctx, exportID)
	if err != nil {
		return UploadState{}, nonRetryable(err)
	}
	return UploadState{UploadID: up.ID, Status: up.Status, ActivityID: up.ActivityID, Error: up.Error}, nil
}

// MarkCompleted records the created Strava activity.
func (a *ExportActivities) MarkCompleted(ctx context.Context, exportID string, activityID int64) error {
	return a.Exports.Complete(ctx, exportID, activityID)
}

// MarkFailed records the failure reason (saga compensation).
func (a *ExportActivities) MarkFailed(ctx context.Context, exportID, reason string) error {
	return a.Exports.Fail(ctx, exportID, reason)
}

// RemoveArchive deletes the archived GPX file (saga compensation).
func (a *ExportActivities) RemoveArchive(ctx context.Context, exportID string) error {
	if err := a.Exports.RemoveArchive(ctx, exportID); err != nil {
		return fmt.Errorf("remove archive: %w", err)
	}
	slog.Info("export archive removed", "export_id", exportID)
	return nil
}

// nonRetryable stops Temporal from retrying errors that cannot succeed on a
// second attempt.
func nonRetryable(err error) error {
	switch {
	case shapetrack.IsInputError(err),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrNotConnected),
		errors.Is(err, domain.ErrInvalidInput):
		return temporal.NewNonRetryableApplicationError(err.Error(), "ExportRejected", err)
	}
	return err
}
