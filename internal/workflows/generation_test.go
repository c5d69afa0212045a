package workflows

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/groupride/internal/core/domain"
	"github.com/samirrijal/groupride/internal/core/usecases"
)

type fakeGenerator struct {
	calls atomic.Int32
	fn    func(call int32) (*usecases.GenerationResult, error)
}

func (f *fakeGenerator) GenerateForRide(ctx context.Context, rideID string) (*usecases.GenerationResult, error) {
	return f.fn(f.calls.Add(1))
}

func okResult() *usecases.GenerationResult {
	return &usecases.GenerationResult{
		Routes:      []domain.GeneratedRoute{{ID: "r1"}, {ID: "r2"}},
		Aggregation: usecases.Aggregation{Mode: domain.ModeFreeVariation},
	}
}

func runWorkflow(t *testing.T, gen *fakeGenerator) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(RouteGenerationWorkflow)
	env.RegisterActivity(&GenerationActivities{Generator: gen})
	env.ExecuteWorkflow(RouteGenerationWorkflow, GenerationInput{RideID: "aB3dE5gH"})
	require.True(t, env.IsWorkflowCompleted())
	return env
}

func TestRouteGenerationWorkflow_Success(t *testing.T) {
	gen := &fakeGenerator{fn: func(int32) (*usecases.GenerationResult, error) { return okResult(), nil }}
	env := runWorkflow(t, gen)

	require.NoError(t, env.GetWorkflowError())
	var out GenerationOutcome
	require.NoError(t, env.GetWorkflowResult(&out))
	assert.Equal(t, "free_variation", out.Mode)
	assert.Equal(t, []string{"r1", "r2"}, out.RouteIDs)
	assert.EqualValues(t, 1, gen.calls.Load())
}

func TestRouteGenerationWorkflow_RetriesProviderFailures(t *testing.T) {
	gen := &fakeGenerator{fn: func(call int32) (*usecases.GenerationResult, error) {
		if call < 3 {
			return nil, &domain.RouteGenerationFailed{Mode: domain.ModeFreeVariation, Attempts: 2, LastErr: errors.New("HTTP 503")}
		}
		return okResult(), nil
	}}
	env := runWorkflow(t, gen)

	require.NoError(t, env.GetWorkflowError())
	assert.EqualValues(t, 3, gen.calls.Load())
}

func TestRouteGenerationWorkflow_GivesUpAfterMaxAttempts(t *testing.T) {
	gen := &fakeGenerator{fn: func(int32) (*usecases.GenerationResult, error) {
		return nil, domain.ErrGenerationInProgress
	}}
	env := runWorkflow(t, gen)

	require.Error(t, env.GetWorkflowError())
	assert.EqualValues(t, 3, gen.calls.Load())
}

func TestRouteGenerationWorkflow_DoesNotRetryCallerErrors(t *testing.T) {
	for name, err := range map[string]error{
		"no preferences": domain.ErrNoPreferences,
		"unknown ride":   domain.ErrNotFound,
	} {
		t.Run(name, func(t *testing.T) {
			gen := &fakeGenerator{fn: func(int32) (*usecases.GenerationResult, error) { return nil, err }}
			env := runWorkflow(t, gen)

			require.Error(t, env.GetWorkflowError())
			assert.EqualValues(t, 1, gen.calls.Load())
		})
	}
}

type fakeRun struct {
	client.WorkflowRun
	id string
}

func (r fakeRun) GetID() string    { return r.id }
func (r fakeRun) GetRunID() string { return "run-1" }

type fakeStarter struct {
	opts  []client.StartWorkflowOptions
	input []GenerationInput
	err   error
}

func (f *fakeStarter) ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.opts = append(f.opts, options)
	f.input = append(f.input, args[0].(GenerationInput))
	return fakeRun{id: options.ID}, nil
}

func TestDispatcher_StartsWorkflow(t *testing.T) {
	starter := &fakeStarter{}
	d := NewDispatcher(starter, "route-generation", nil)

	ev := domain.NewRideEvent(domain.EventGenerateRequested, "aB3dE5gH", nil)
	require.NoError(t, d.Handle(context.Background(), ev))

	require.Len(t, starter.opts, 1)
	assert.Equal(t, "generate-aB3dE5gH", starter.opts[0].ID)
	assert.Equal(t, "route-generation", starter.opts[0].TaskQueue)
	assert.Equal(t, "aB3dE5gH", starter.input[0].RideID)
	assert.Equal(t, ev.Time, starter.input[0].RequestedAt)
}

func TestDispatcher_IgnoresOtherEvents(t *testing.T) {
	starter := &fakeStarter{}
	d := NewDispatcher(starter, "q", nil)

	require.NoError(t, d.Handle(context.Background(), domain.NewRideEvent(domain.EventRideCreated, "x", nil)))
	assert.Empty(t, starter.opts)
}

func TestDispatcher_Errors(t *testing.T) {
	d := NewDispatcher(&fakeStarter{}, "q", nil)
	err := d.Handle(context.Background(), domain.NewRideEvent(domain.EventGenerateRequested, "", nil))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	d = NewDispatcher(&fakeStarter{err: errors.New("temporal unavailable")}, "q", nil)
	err = d.Handle(context.Background(), domain.NewRideEvent(domain.EventGenerateRequested, "r", nil))
	assert.ErrorContains(t, err, "temporal unavailable")
}
