// Package documents implements the REST API handlers for A3 documents and their sections.
package documents

import (
	"errors"
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
	"github.com/leancoach/coach-backend/util"
)

func cleanTitle(raw string) (string, bool) {
	title := util.CleanName(raw)
	if title == "" {
		return "", false
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", false
	}
	return title, true
}

func withSections(c *fiber.Ctx, st store.Store, doc *model.A3Document) (*model.A3DocumentWithSections, error) {
	sections, err := st.ListSections(c.UserContext(), doc.Key)
	if err != nil {
		return nil, err
	}
	return &model.A3DocumentWithSections{A3Document: *doc, Sections: sections}, nil
}

// ListDocuments returns the documents visible to the caller, newest first
func ListDocuments(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)

		filter := store.DocumentFilter{
			DepartmentKey: c.Query("department"),
			AuthorKey:     c.Query("author"),
			Limit:         c.QueryInt("limit", store.DefaultListLimit),
			Offset:        c.QueryInt("offset", 0),
		}
		if filter.Offset < 0 {
			return apierr.BadRequest(c, "offset must not be negative")
		}
		if s := c.Query("status"); s != "" {
			status, err := model.ParseStatus(s)
			if err != nil {
				return apierr.BadRequest(c, "Invalid status filter")
			}
			filter.Status = status
		}
		// Only admins and managers may see the recycle bin
		if c.QueryBool("include_deleted", false) && (user.Role == model.RoleAdmin || user.Role == model.RoleManager) {
			filter.IncludeDeleted = true
		}

		docs, err := st.ListDocuments(c.UserContext(), filter.VisibleTo(user))
		if err != nil {
			return apierr.FromError(c, err, "documents")
		}
		return c.JSON(fiber.Map{
			"documents": docs,
			"count":     len(docs),
		})
	}
}

// CreateDocument starts a draft A3 document with its eight empty sections
func CreateDocument(st store.Store, rec activity.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)
		var req CreateDocumentRequest
		if err := c.BodyParser(&req); err != nil {
			return apierr.BadRequest(c, "Invalid request body")
		}

		title, ok := cleanTitle(req.Title)
		if !ok {
			return apierr.BadRequest(c, "title is required and must be at most 200 characters")
		}

		deptKey := strings.TrimSpace(req.DepartmentKey)
		if deptKey == "" {
			deptKey = user.DepartmentKey
		}
		if deptKey == "" {
			return apierr.BadRequest(c, "department_key is required")
		}

		ctx := c.UserContext()
		if _, err := st.GetDepartment(ctx, user.OrgKey, deptKey); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apierr.BadRequest(c, "Unknown department")
			}
			return apierr.FromError(c, err, "department")
		}
		if !user.CanCreateDocumentIn(deptKey) {
			return apierr.Forbidden(c)
		}

		doc := model.NewA3Document(user.OrgKey, deptKey, user.Key, title)
		sections, err := st.CreateDocument(ctx, doc)
		if err != nil {
			return apierr.FromError(c, err, "document")
		}

		access.Record(ctx, rec, user, doc.Key, model.ActionDocumentCreated, map[string]string{"title": title})

		return c.Status(fiber.StatusCreated).JSON(model.A3DocumentWithSections{
			A3Document: *doc,
			Sections:   sections,
		})
	}
}

// GetDocument returns a document with its sections in layout order
func GetDocument(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)
		doc, err := access.LoadDocument(c.UserContext(), user, st, c.Params("key"), access.Read, false)
		if err != nil {
			return apierr.FromError(c, err, "document")
		}
		full, err := withSections(c, st, doc)
		if err != nil {
			return apierr.FromError(c, err, "document")
		}
		return c.JSON(full)
	}
}

// UpdateDocument renames a document
func UpdateDocument(st store.Store, rec activity.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)
		var req UpdateDocumentRequest
		if err := c.BodyParser(&req); err != nil {
			return apierr.BadRequest(c, "Invalid request body")
		}
		title, ok := cleanTitle(req.Title)
		if !ok {
			return apierr.BadRequest(c, "title is required and must be at most 200 characters")
		}

		ctx := c.UserContext()
		doc, err := access.LoadEditable(ctx, user, st, c.Params("key"))
		if err != nil {
			return apierr.FromError(c, err, "document")
		}

		previous := doc.Title
		doc.Title = title
		doc.UpdatedAt = time.Now().UTC()
		if err := st.UpdateDocument(ctx, doc); err != nil {
			return apierr.FromError(c, err, "document")
		}

		access.Record(ctx, rec, user, doc.Key, model.ActionDocumentUpdated, map[string]string{
			"title":    title,
			"previous": previous,
		})
		return c.JSON(doc)
	}
}

// ChangeStatus moves a document to a new lifecycle status
func ChangeStatus(st store.Store, rec activity.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)
		var req StatusRequest
		if err := c.BodyParser(&req); err != nil {
			return apierr.BadRequest(c, "Invalid request body")
		}
		to, err := model.ParseStatus(req.Status)
		if err != nil {
			return apierr.BadRequest(c, "Invalid status")
		}

		ctx := c.UserContext()
		doc, err := access.LoadDocument(ctx, user, st, c.Params("key"), access.Write, false)
		if err != nil {
			return apierr.FromError(c, err, "document")
		}

		from := doc.Status
		if err := doc.Transition(to); err != nil {
			return apierr.BadRequest(c, "Cannot change status from "+string(from)+" to "+string(to))
		}
		if err := st.UpdateDocument(ctx, doc); err != nil {
			return apierr.FromError(c, err, "document")
		}

		access.Record(ctx, rec, user, doc.Key, model.ActionDocumentStatusChanged, map[string]string{
			"from": string(from),
			"to":   string(to),
		})
		return c.JSON(doc)
	}
}

// DeleteDocument soft deletes a document
func DeleteDocument(st store.Store, rec activity.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)
		ctx := c.UserContext()
		doc, err := access.LoadDocument(ctx, user, st, c.Params("key"), access.Write, false)
		if err != nil {
			return apierr.FromError(c, err, "document")
		}
		if err := st.SoftDeleteDocument(ctx, user.OrgKey, doc.Key, user.Key); err != nil {
			return apierr.FromError(c, err, "document")
		}

		access.Record(ctx, rec, user, doc.Key, model.ActionDocumentDeleted, map[string]string{"title": doc.Title})
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// RestoreDocument undoes a soft delete
func RestoreDocument(st store.Store, rec activity.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)
		ctx := c.UserContext()
		doc, err := access.LoadDocument(ctx, user, st, c.Params("key"), access.Write, true)
		if err != nil {
			return apierr.FromError(c, err, "document")
		}
		if !doc.IsDeleted() {
			return apierr.BadRequest(c, "Document is not deleted")
		}
		if err := st.RestoreDocument(ctx, user.OrgKey, doc.Key); err != nil {
			return apierr.FromError(c, err, "document")
		}

		access.Record(ctx, rec, user, doc.Key, model.ActionDocumentRestored, map[string]string{"title": doc.Title})

		restored, err := st.GetDocument(ctx, user.OrgKey, doc.Key)
		if err != nil {
			return apierr.FromError(c, err, "document")
		}
		return c.JSON(restored)
	}
}
