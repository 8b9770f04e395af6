// Package export implements the A3 PDF download endpoint.
package export

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/leancoach/coach-backend/events/modules/activity"
	"github.com/leancoach/coach-backend/internal/pdf"
	"github.com/leancoach/coach-backend/model"
	"github.com/leancoach/coach-backend/restapi/access"
	"github.com/leancoach/coach-backend/restapi/apierr"
	"github.com/leancoach/coach-backend/restapi/modules/auth"
	"github.com/leancoach/coach-backend/store"
	"github.com/leancoach/coach-backend/util"
	"go.uber.org/zap"
)

// Filename returns the download name for a document
func Filename(doc *model.A3Document) string {
	name := util.Slugify(doc.Title)
	if name == "" {
		name = "a3-" + doc.Key
	}
	return name + ".pdf"
}

// ExportPDF renders the document as an A3 landscape PDF
func ExportPDF(st store.Store, exporter *pdf.Exporter, rec activity.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if exporter == nil || exporter.Renderer == nil {
			return apierr.Respond(c, fiber.StatusServiceUnavailable, "PDF export is not available")
		}
		user, _ := auth.CurrentUser(c)
		ctx := c.UserContext()

		doc, err := access.LoadDocument(ctx, user, st, c.Params("key"), access.Read, false)
		if err != nil {
			return apierr.FromError(c, err, "document")
		}
		sections, err := st.ListSections(ctx, doc.Key)
		if err != nil {
			return apierr.FromError(c, err, "document")
		}

		department := ""
		if dept, err := st.GetDepartment(ctx, user.OrgKey, doc.DepartmentKey); err == nil {
			department = dept.Name
		}
		author := ""
		if u, err := st.GetUser(ctx, doc.AuthorKey); err == nil && u.SameOrg(doc.OrgKey) {
			author = u.DisplayName
			if author == "" {
				author = u.Email
			}
		}

		data, err := exporter.Export(ctx, doc, sections, department, author)
		switch {
		case errors.Is(err, pdf.ErrQueueFull):
			return apierr.Respond(c, fiber.StatusServiceUnavailable, "PDF export is busy, try again shortly")
		case errors.Is(err, pdf.ErrRendererClosed):
			return apierr.Respond(c, fiber.StatusServiceUnavailable, "PDF export is shutting down")
		case errors.Is(err, pdf.ErrRenderTimeout):
			return apierr.Respond(c, fiber.StatusGatewayTimeout, "PDF export timed out")
		case err != nil:
			zap.L().Error("pdf export failed", zap.String("document", doc.Key), zap.Error(err))
			return apierr.Respond(c, fiber.StatusInternalServerError, "PDF export failed")
		}

		access.Record(ctx, rec, user, doc.Key, model.ActionDocumentExported, map[string]string{
			"bytes": fmt.Sprint(len(data)),
		})

		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", Filename(doc)))
		return c.Send(data)
	}
}
