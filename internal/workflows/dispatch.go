package workflows

import (
	"context"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"

	"github.com/samirrijal/groupride/internal/core/domain"
)

// WorkflowStarter is the part of client.Client the dispatcher needs.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// WorkflowID is the workflow ID used for a ride. Requests arriving while a
// generation for the same ride is running attach to that run.
func WorkflowID(rideID string) string {
	return "generate-" + rideID
}

// Dispatcher turns generate.requested events into workflow executions.
type Dispatcher struct {
	starter   WorkflowStarter
	taskQueue string
	logger    *slog.Logger
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(starter WorkflowStarter, taskQueue string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{starter: starter, taskQueue: taskQueue, logger: logger}
}

// Handle starts the generation workflow for the event's ride. It is meant to be
// passed to EventSubscriber.SubscribeGenerateRequests.
func (d *Dispatcher) Handle(ctx context.Context, ev domain.RideEvent) error {
	if ev.Type != domain.EventGenerateRequested {
		return nil
	}
	if ev.RideID == "" {
		return fmt.Errorf("%w: generate request without ride id", domain.ErrInvalidInput)
	}

	opts := client.StartWorkflowOptions{
		ID:        WorkflowID(ev.RideID),
		TaskQueue: d.taskQueue,
	}
	run, err := d.starter.ExecuteWorkflow(ctx, opts, RouteGenerationWorkflow, GenerationInput{
		RideID:      ev.RideID,
		RequestedAt: ev.Time,
	})
	if err != nil {
		return fmt.Errorf("start generation workflow for %s: %w", ev.RideID, err)
	}

	d.logger.InfoContext(ctx, "generation workflow started",
		"ride_id", ev.RideID, "workflow_id", run.GetID(), "run_id", run.GetRunID())
	return nil
}
