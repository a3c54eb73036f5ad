package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"talentbase/hiring-pipeline/internal/models"
)

// ErrorHandler is the app-level fiber error handler. Domain errors map to
// client status codes; everything else is surfaced as an opaque internal
// failure so storage and queue details never leak to callers.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"error": fiberErr.Message,
			"code":  fiberErr.Code,
		})
	}

	code := fiber.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, models.ErrValidation):
		code = fiber.StatusBadRequest
		message = err.Error()
	case errors.Is(err, models.ErrNotFound):
		code = fiber.StatusNotFound
		message = err.Error()
	case errors.Is(err, models.ErrNotAuthorized):
		code = fiber.StatusForbidden
		message = "not authorized"
	case errors.Is(err, models.ErrDuplicateApplication):
		code = fiber.StatusConflict
		message = models.ErrDuplicateApplication.Error()
	case errors.Is(err, models.ErrJobClosed):
		code = fiber.StatusConflict
		message = models.ErrJobClosed.Error()
	case errors.Is(err, models.ErrNotReadyForScoring):
		code = fiber.StatusConflict
		message = err.Error()
	case errors.Is(err, models.ErrConflict):
		code = fiber.StatusConflict
		message = err.Error()
	}

	return c.Status(code).JSON(fiber.Map{
		"error": message,
		"code":  code,
	})
}

// employerID extracts the employer principal. Authentication itself is an
// external collaborator; this surface trusts the gateway-provided header.
func employerID(c *fiber.Ctx) (string, error) {
	id := c.Get("X-Employer-ID")
	if id == "" {
		return "", fmt.Errorf("missing employer credentials: %w", models.ErrNotAuthorized)
	}
	return id, nil
}
