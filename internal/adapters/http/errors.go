package http

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/groupride/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, internal_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
	Mode      string `json:"mode,omitempty"`
	Attempts  int    `json:"attempts,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errUnauthorized returns a 401 error.
func errUnauthorized(c *fiber.Ctx, msg string) error {
	return newError(c, 401, "unauthorized", msg)
}

// errForbidden returns a 403 error.
func errForbidden(c *fiber.Ctx, msg string) error {
	return newError(c, 403, "forbidden", msg)
}

// errConflict returns a 409 error.
func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, 409, "conflict", msg)
}

// errFromDomain maps a service error onto the HTTP error it stands for.
func errFromDomain(c *fiber.Ctx, err error) error {
	var genErr *domain.RouteGenerationFailed
	var provErr *domain.ProviderError

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return errBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return errUnauthorized(c, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return errForbidden(c, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrGenerationInProgress):
		return errConflict(c, err.Error())
	case errors.As(err, &genErr):
		reqID, _ := c.Locals("requestid").(string)
		return c.Status(502).JSON(APIError{
			Status:    502,
			Code:      "route_generation_failed",
			Message:   "could not generate routes; please try again",
			RequestID: reqID,
			Mode:      string(genErr.Mode),
			Attempts:  genErr.Attempts,
		})
	case errors.As(err, &provErr):
		return newError(c, 502, "provider_error", provErr.Provider+" is unavailable")
	}

	LoggerFromCtx(c.UserContext()).Error("request failed", slog.String("path", c.Path()), slog.String("error", err.Error()))
	return errInternal(c, "internal server error")
}
