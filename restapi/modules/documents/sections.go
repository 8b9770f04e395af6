package documents

import (
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/leancoach/coach-backend/events/modules/activity"
	"github.com/leancoach/coach-backend/model"
	"github.com/leancoach/coach-backend/restapi/access"
	"github.com/leancoach/coach-backend/restapi/apierr"
	"github.com/leancoach/coach-backend/restapi/modules/auth"
	"github.com/leancoach/coach-backend/store"
)

// UpdateSection replaces the content of one section
func UpdateSection(st store.Store, rec activity.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)
		sectionType, err := model.ParseSectionType(c.Params("type"))
		if err != nil {
			return apierr.BadRequest(c, "Unknown section type")
		}

		var req SectionRequest
		if err := c.BodyParser(&req); err != nil {
			return apierr.BadRequest(c, "Invalid request body")
		}
		if utf8.RuneCountInString(req.Content) > MaxSectionLength {
			return apierr.BadRequest(c, "Section content is too long")
		}

		ctx := c.UserContext()
		doc, err := access.LoadEditable(ctx, user, st, c.Params("key"))
		if err != nil {
			return apierr.FromError(c, err, "document")
		}

		section, err := st.UpdateSection(ctx, doc.Key, sectionType, req.Content, user.Key)
		if err != nil {
			return apierr.FromError(c, err, "section")
		}

		access.Record(ctx, rec, user, doc.Key, model.ActionSectionUpdated, map[string]string{
			"section": string(sectionType),
		})
		return c.JSON(section)
	}
}
