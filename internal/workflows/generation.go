package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// GenerationInput is the input for the route generation workflow.
type GenerationInput struct {
	RideID      string
	RequestedAt time.Time
}

// GenerationOutcome summarizes a finished generation.
type GenerationOutcome struct {
	Mode     string
	RouteIDs []string
}

// RouteGenerationWorkflow runs route generation for one ride with retries.
// The activity persists the routes itself; the workflow only adds durable
// retry and visibility on top of it.
func RouteGenerationWorkflow(ctx workflow.Context, input GenerationInput) (*GenerationOutcome, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting route generation workflow", "rideID", input.RideID)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        5 * time.Second,
			BackoffCoefficient:     2,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{ErrTypeInvalidRequest, ErrTypeRideNotFound},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	var a *GenerationActivities
	var out GenerationOutcome
	if err := workflow.ExecuteActivity(ctx, a.GenerateRoutes, input).Get(ctx, &out); err != nil {
		logger.Warn("route generation failed", "rideID", input.RideID, "error", err)
		return nil, err
	}

	logger.Info("Route generation finished", "rideID", input.RideID, "routes", len(out.RouteIDs))
	return &out, nil
}
