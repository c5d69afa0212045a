package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks caller mistakes: empty required collections, malformed points.
	ErrInvalidInput = errors.New("invalid input")

	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrNoPreferences is returned when generation is requested before anyone submitted.
	ErrNoPreferences = fmt.Errorf("%w: no preferences submitted yet", ErrInvalidInput)

	// ErrGenerationInProgress is returned when another generation holds the ride lock.
	ErrGenerationInProgress = errors.New("route generation already in progress")
)

// ProviderError wraps a failure from an external routing or POI service.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// SynthesisMode identifies how routes were requested from the routing provider.
type SynthesisMode string

const (
	ModeWaypoints     SynthesisMode = "waypoints"
	ModeFreeVariation SynthesisMode = "free_variation"
)

// RouteGenerationFailed is returned when no usable route could be produced.
type RouteGenerationFailed struct {
	Mode     SynthesisMode
	Attempts int
	LastErr  error
}

func (e *RouteGenerationFailed) Error() string {
	if e.LastErr == nil {
		return fmt.Sprintf("route generation failed (mode=%s, attempts=%d)", e.Mode, e.Attempts)
	}
	return fmt.Sprintf("route generation failed (mode=%s, attempts=%d): %v", e.Mode, e.Attempts, e.LastErr)
}

func (e *RouteGenerationFailed) Unwrap() error { return e.LastErr }
