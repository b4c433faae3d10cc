package workflows

import (
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	// uploadPollInterval is how long to wait between Strava upload checks.
	uploadPollInterval = 5 * time.Second
	// maxUploadPolls bounds the wait for Strava to process an upload.
	maxUploadPolls = 60
)

// ExportInput is the input for the export workflow.
type ExportInput struct {
	ExportID string
}

// ExportResult is returned by a successful export workflow.
type ExportResult struct {
	ObjectKey  string
	UploadID   int64
	ActivityID int64
}

// ExportWorkflow renders an export to GPX, archives it, uploads it to Strava
// and waits for the activity to be created. If any step after archiving
// fails, the archive is removed and the export marked failed (saga
// compensation).
func ExportWorkflow(ctx workflow.Context, input ExportInput) (ExportResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting export workflow", "exportID", input.ExportID)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    3,
		},
	})

	var res ExportResult

	// Step 1: render and archive
	if err := workflow.ExecuteActivity(ctx, "RenderAndStore", input.ExportID).Get(ctx, &res.ObjectKey); err != nil {
		markFailed(ctx, input.ExportID, err)
		return res, err
	}

	// Step 2: upload to Strava
	if err := workflow.ExecuteActivity(ctx, "UploadToStrava", input.ExportID).Get(ctx, &res.UploadID); err != nil {
		compensate(ctx, input.ExportID, err)
		return res, err
	}

	// Step 3: wait for Strava to process the file
	activityID, err := waitForActivity(ctx, input.ExportID)
	if err != nil {
		compensate(ctx, input.ExportID, err)
		return res, err
	}
	res.ActivityID = activityID

	// Step 4: done
	if err := workflow.ExecuteActivity(ctx, "MarkCompleted", input.ExportID, activityID).Get(ctx, nil); err != nil {
		return res, err
	}

	logger.Info("Export uploaded", "exportID", input.ExportID, "activityID", activityID)
	return res, nil
}

func waitForActivity(ctx workflow.Context, exportID string) (int64, error) {
	for i := 0; i < maxUploadPolls; i++ {
		var st UploadState
		if err := workflow.ExecuteActivity(ctx, "CheckUpload", exportID).Get(ctx, &st); err != nil {
			return 0, err
		}
		if st.Error != "" {
			return 0, temporal.NewNonRetryableApplicationError(st.Error, "StravaUploadRejected", nil)
		}
		if st.ActivityID != 0 {
			return st.ActivityID, nil
		}
		if err := workflow.Sleep(ctx, uploadPollInterval); err != nil {
			return 0, err
		}
	}
	return 0, fmt.Errorf("strava did not process upload after %d checks", maxUploadPolls)
}

func compensate(ctx workflow.Context, exportID string, cause error) {
	logger := workflow.GetLogger(ctx)
	logger.Warn("export failed, compensating", "exportID", exportID, "error", cause)

	if err := workflow.ExecuteActivity(ctx, "RemoveArchive", exportID).Get(ctx, nil); err != nil {
		logger.Error("remove archive failed", "exportID", exportID, "error", err)
	}
	markFailed(ctx, exportID, cause)
}

func markFailed(ctx workflow.Context, exportID string, cause error) {
	if err := workflow.ExecuteActivity(ctx, "MarkFailed", exportID, failureReason(cause)).Get(ctx, nil); err != nil {
		workflow.GetLogger(ctx).Error("mark export failed", "exportID", exportID, "error", err)
	}
}

// failureReason unwraps activity errors down to the message users should see.
func failureReason(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	return err.Error()
}
