// Package comments implements the REST API handlers for document comments.
package comments

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/leancoach/coach-backend/events/modules/activity"
	"github.com/leancoach/coach-backend/model"
	"github.com/leancoach/coach-backend/restapi/access"
	"github.com/leancoach/coach-backend/restapi/apierr"
	"github.com/leancoach/coach-backend/restapi/modules/auth"
	"github.com/leancoach/coach-backend/store"
)

// CreateCommentRequest adds a comment, optionally pinned to a section
type CreateCommentRequest struct {
	Content     string `json:"content"`
	SectionType string `json:"section_type"`
}

// ListComments returns the live comments of a document, oldest first
func ListComments(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)

		var section model.SectionType
		if s := c.Query("section"); s != "" {
			parsed, err := model.ParseSectionType(s)
			if err != nil {
				return apierr.BadRequest(c, "Unknown section type")
			}
			section = parsed
		}

		ctx := c.UserContext()
		doc, err := access.LoadDocument(ctx, user, st, c.Params("key"), access.Read, false)
		if err != nil {
			return apierr.FromError(c, err, "document")
		}

		list, err := st.ListComments(ctx, doc.Key, section)
		if err != nil {
			return apierr.FromError(c, err, "comments")
		}
		return c.JSON(fiber.Map{
			"comments": list,
			"count":    len(list),
		})
	}
}

// CreateComment lets anyone who can read a document comment on it
func CreateComment(st store.Store, rec activity.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)
		var req CreateCommentRequest
		if err := c.BodyParser(&req); err != nil {
			return apierr.BadRequest(c, "Invalid request body")
		}

		content := strings.TrimSpace(req.Content)
		if n := utf8.RuneCountInString(content); n == 0 || n > model.MaxCommentLength {
			return apierr.BadRequest(c, "content must be 1 to 4000 characters")
		}
		var section model.SectionType
		if req.SectionType != "" {
			parsed, err := model.ParseSectionType(req.SectionType)
			if err != nil {
				return apierr.BadRequest(c, "Unknown section type")
			}
			section = parsed
		}

		ctx := c.UserContext()
		doc, err := access.LoadDocument(ctx, user, st, c.Params("key"), access.Read, false)
		if err != nil {
			return apierr.FromError(c, err, "document")
		}

		now := time.Now().UTC()
		comment := &model.Comment{
			DocumentKey: doc.Key,
			SectionType: section,
			AuthorKey:   user.Key,
			Content:     content,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := st.CreateComment(ctx, comment); err != nil {
			return apierr.FromError(c, err, "comment")
		}

		details := map[string]string{"comment": comment.Key}
		if section != "" {
			details["section"] = string(section)
		}
		access.Record(ctx, rec, user, doc.Key, model.ActionCommentAdded, details)

		return c.Status(fiber.StatusCreated).JSON(comment)
	}
}

// DeleteComment soft deletes a comment. Only its author or an admin may do so.
func DeleteComment(st store.Store, rec activity.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)
		ctx := c.UserContext()

		doc, err := access.LoadDocument(ctx, user, st, c.Params("key"), access.Read, false)
		if err != nil {
			return apierr.FromError(c, err, "document")
		}
		comment, err := st.GetComment(ctx, doc.Key, c.Params("comment"))
		if err != nil {
			return apierr.FromError(c, err, "comment")
		}
		if !user.CanDeleteComment(comment) {
			return apierr.Forbidden(c)
		}

		if err := st.SoftDeleteComment(ctx, doc.Key, comment.Key); err != nil {
			return apierr.FromError(c, err, "comment")
		}
		access.Record(ctx, rec, user, doc.Key, model.ActionCommentDeleted, map[string]string{"comment": comment.Key})
		return c.SendStatus(fiber.StatusNoContent)
	}
}
