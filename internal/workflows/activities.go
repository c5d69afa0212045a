package workflows

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/groupride/internal/core/domain"
	"github.com/samirrijal/groupride/internal/core/usecases"
)

// Error types reported to the workflow. Temporal matches non-retryable
// errors by these names.
const (
	ErrTypeInvalidRequest = "InvalidGenerationRequest"
	ErrTypeRideNotFound   = "RideNotFound"
)

// RouteGenerator runs generation for a ride that was already authorized.
type RouteGenerator interface {
	GenerateForRide(ctx context.Context, rideID string) (*usecases.GenerationResult, error)
}

// GenerationActivities holds the activity implementations for route generation.
type GenerationActivities struct {
	Generator RouteGenerator
}

// GenerateRoutes runs one generation attempt and returns the stored route IDs.
// Caller mistakes (no preferences, unknown ride) are not retried; provider
// failures and a concurrently held lock are.
func (a *GenerationActivities) GenerateRoutes(ctx context.Context, input GenerationInput) (*GenerationOutcome, error) {
	logger := activity.GetLogger(ctx)

	res, err := a.Generator.GenerateForRide(ctx, input.RideID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeRideNotFound, err)
	case errors.Is(err, domain.ErrInvalidInput):
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidRequest, err)
	default:
		return nil, fmt.Errorf("generate routes for %s: %w", input.RideID, err)
	}

	out := &GenerationOutcome{
		Mode:     string(res.Aggregation.Mode),
		RouteIDs: make([]string, 0, len(res.Routes)),
	}
	for _, r := range res.Routes {
		out.RouteIDs = append(out.RouteIDs, r.ID)
	}
	logger.Info("routes generated", "ride_id", input.RideID, "routes", len(out.RouteIDs))
	return out, nil
}
