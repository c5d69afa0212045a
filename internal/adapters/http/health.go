package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

var errNotConfigured = errors.New("not configured")

// dependencyCheck probes one backing service. Only required checks can make
// the instance unready.
type dependencyCheck struct {
	name     string
	required bool
	probe    func(ctx context.Context) error
}

func dependencyChecks(deps *Dependencies) []dependencyCheck {
	return []dependencyCheck{
		{name: "database", required: true, probe: func(ctx context.Context) error {
			if deps.DB == nil {
				return errNotConfigured
			}
			return deps.DB.Pool.Ping(ctx)
		}},
		{name: "nats", required: deps.NATS != nil, probe: func(context.Context) error {
			if deps.NATS == nil {
				return errNotConfigured
			}
			if !deps.NATS.IsConnected() {
				return errors.New("disconnected")
			}
			return nil
		}},
		{name: "cache", required: deps.Cache != nil, probe: func(ctx context.Context) error {
			if deps.Cache == nil {
				return errNotConfigured
			}
			return deps.Cache.Ping(ctx)
		}},
	}
}

// HealthHandler reports liveness, uptime and build version.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).Round(time.Second).String(),
			"version": version,
		})
	}
}

// ReadyHandler runs every dependency check. The database is always required;
// NATS and the cache count only when they were configured.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	checks := dependencyChecks(deps)

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		results := make(map[string]string, len(checks))
		ready := true
		for _, chk := range checks {
			switch err := chk.probe(ctx); {
			case err == nil:
				results[chk.name] = "ok"
			case errors.Is(err, errNotConfigured):
				results[chk.name] = err.Error()
				ready = ready && !chk.required
			default:
				results[chk.name] = "error: " + err.Error()
				ready = ready && !chk.required
			}
		}

		if !ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "not ready",
				"checks": results,
			})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": results})
	}
}
