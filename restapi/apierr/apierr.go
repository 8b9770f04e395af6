// Package apierr maps domain and storage errors to JSON error responses.
package apierr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/leancoach/coach-backend/model"
	"github.com/leancoach/coach-backend/store"
	"go.uber.org/zap"
)

// Respond writes {"error": msg} with the given status
func Respond(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// BadRequest writes a 400
func BadRequest(c *fiber.Ctx, msg string) error {
	return Respond(c, fiber.StatusBadRequest, msg)
}

// NotFound writes a 404
func NotFound(c *fiber.Ctx, msg string) error {
	return Respond(c, fiber.StatusNotFound, msg)
}

// Forbidden writes a 403
func Forbidden(c *fiber.Ctx) error {
	return Respond(c, fiber.StatusForbidden, "Insufficient permissions")
}

// Status returns the HTTP status for err
func Status(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, model.ErrArchived):
		return fiber.StatusConflict
	case errors.Is(err, model.ErrPermissionDenied):
		return fiber.StatusForbidden
	case errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrInvalidStatus),
		errors.Is(err, model.ErrInvalidSection),
		errors.Is(err, model.ErrInvalidRole):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

// FromError maps err to a response. Internal errors are logged and answered generically.
func FromError(c *fiber.Ctx, err error, what string) error {
	status := Status(err)
	switch status {
	case fiber.StatusNotFound:
		return Respond(c, status, what+" not found")
	case fiber.StatusConflict:
		if errors.Is(err, model.ErrArchived) {
			return Respond(c, status, "Archived documents are read-only")
		}
		return Respond(c, status, what+" conflicts with an existing record")
	case fiber.StatusInternalServerError:
		zap.L().Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
		return Respond(c, status, "Internal server error")
	}
	return Respond(c, status, err.Error())
}
