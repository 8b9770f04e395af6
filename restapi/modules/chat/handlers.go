// Package chat implements the REST API handlers for the AI coach conversation.
package chat

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/leancoach/coach-backend/events/modules/activity"
	"github.com/leancoach/coach-backend/internal/coach"
	"github.com/leancoach/coach-backend/model"
	"github.com/leancoach/coach-backend/restapi/access"
	"github.com/leancoach/coach-backend/restapi/apierr"
	"github.com/leancoach/coach-backend/restapi/modules/auth"
	"github.com/leancoach/coach-backend/store"
	"go.uber.org/zap"
)

// SendRequest is one user message, optionally about a single section
type SendRequest struct {
	Content     string `json:"content"`
	SectionType string `json:"section_type"`
}

func unavailable(c *fiber.Ctx) error {
	return apierr.Respond(c, fiber.StatusServiceUnavailable, "AI coach is not configured")
}

// History returns the caller's conversation about a document
func History(st store.Store, svc *coach.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !svc.Available() {
			return unavailable(c)
		}
		user, _ := auth.CurrentUser(c)
		ctx := c.UserContext()

		doc, err := access.LoadDocument(ctx, user, st, c.Params("key"), access.Read, false)
		if err != nil {
			return apierr.FromError(c, err, "document")
		}
		messages, err := svc.History(ctx, user, doc, c.QueryInt("limit", 0))
		if err != nil {
			return apierr.FromError(c, err, "chat")
		}
		return c.JSON(fiber.Map{
			"messages": messages,
			"count":    len(messages),
		})
	}
}

// Send asks the coach a question and returns both persisted messages
func Send(st store.Store, svc *coach.Service, rec activity.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !svc.Available() {
			return unavailable(c)
		}
		user, _ := auth.CurrentUser(c)
		var req SendRequest
		if err := c.BodyParser(&req); err != nil {
			return apierr.BadRequest(c, "Invalid request body")
		}

		ctx := c.UserContext()
		doc, err := access.LoadDocument(ctx, user, st, c.Params("key"), access.Read, false)
		if err != nil {
			return apierr.FromError(c, err, "document")
		}

		exchange, err := svc.Send(ctx, user, doc, req.Content, model.SectionType(req.SectionType))
		switch {
		case errors.Is(err, coach.ErrInvalidMessage), errors.Is(err, model.ErrInvalidSection):
			return apierr.BadRequest(c, err.Error())
		case errors.Is(err, coach.ErrUnavailable):
			return unavailable(c)
		case errors.Is(err, coach.ErrModelFailed):
			zap.L().Warn("coach model call failed", zap.String("document", doc.Key), zap.Error(err))
			return apierr.Respond(c, fiber.StatusBadGateway, "The AI coach could not answer. Please try again.")
		case err != nil:
			return apierr.FromError(c, err, "chat")
		}

		details := map[string]string{}
		if req.SectionType != "" {
			details["section"] = req.SectionType
		}
		access.Record(ctx, rec, user, doc.Key, model.ActionChatMessage, details)

		return c.Status(fiber.StatusCreated).JSON(exchange)
	}
}

// Clear deletes the caller's conversation about a document
func Clear(st store.Store, svc *coach.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !svc.Available() {
			return unavailable(c)
		}
		user, _ := auth.CurrentUser(c)
		ctx := c.UserContext()

		doc, err := access.LoadDocument(ctx, user, st, c.Params("key"), access.Read, false)
		if err != nil {
			return apierr.FromError(c, err, "document")
		}
		if err := svc.Clear(ctx, user, doc); err != nil {
			return apierr.FromError(c, err, "chat")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
