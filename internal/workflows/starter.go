package workflows

import (
	"context"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"
)

// Starter launches export workflows on a Temporal task queue.
type Starter struct {
	client    client.Client
	taskQueue string
}

// NewStarter creates a Starter.
func NewStarter(c client.Client, taskQueue string) *Starter {
	return &Starter{client: c, taskQueue: taskQueue}
}

// WorkflowID is the Temporal workflow id used for an export.
func WorkflowID(exportID string) string {
	return "export-" + exportID
}

// StartExport implements ports.WorkflowStarter.
func (s *Starter) StartExport(ctx context.Context, exportID string) error {
	opts := client.StartWorkflowOptions{
		ID:        WorkflowID(exportID),
		TaskQueue: s.taskQueue,
	}
	run, err := s.client.ExecuteWorkflow(ctx, opts, ExportWorkflow, ExportInput{ExportID: exportID})
	if err != nil {
		return fmt.Errorf("execute export workflow: %w", err)
	}
	slog.Info("export workflow started", "workflow_id", run.GetID(), "run_id", run.GetRunID())
	return nil
}
