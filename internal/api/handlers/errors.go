package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/arca-compliance/backend/internal/domain"
)

// statusFor maps the service error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrBackpressure):
		return fiber.StatusTooManyRequests
	case errors.Is(err, domain.ErrInvalidState):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrCorpusUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, domain.ErrAnalysis):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

func kindFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrBackpressure):
		return "backpressure"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid-state"
	case errors.Is(err, domain.ErrNotFound):
		return "not-found"
	case errors.Is(err, domain.ErrCorpusUnavailable):
		return "corpus-unavailable"
	case errors.Is(err, domain.ErrAnalysis):
		return "analysis"
	default:
		return "internal"
	}
}

func respondError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		msg = "Internal server error"
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
		"kind":  kindFor(err),
	})
}
