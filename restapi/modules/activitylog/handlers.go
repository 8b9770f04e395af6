// Package activitylog implements the REST API handlers for reading the audit trail.
package activitylog

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/leancoach/coach-backend/restapi/access"
	"github.com/leancoach/coach-backend/restapi/apierr"
	"github.com/leancoach/coach-backend/restapi/modules/auth"
	"github.com/leancoach/coach-backend/store"
)

// parseFilter reads limit, before and user from the query string
func parseFilter(c *fiber.Ctx) (store.ActivityFilter, error) {
	f := store.ActivityFilter{
		Limit:   c.QueryInt("limit", store.DefaultListLimit),
		UserKey: c.Query("user"),
	}
	if before := c.Query("before"); before != "" {
		t, err := time.Parse(time.RFC3339, before)
		if err != nil {
			return f, err
		}
		f.Before = t
	}
	return f, nil
}

// DocumentActivity returns the audit trail of one document, newest first
func DocumentActivity(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)
		filter, err := parseFilter(c)
		if err != nil {
			return apierr.BadRequest(c, "before must be an RFC 3339 timestamp")
		}

		ctx := c.UserContext()
		doc, err := access.LoadDocument(ctx, user, st, c.Params("key"), access.Read, true)
		if err != nil {
			return apierr.FromError(c, err, "document")
		}

		filter.OrgKey = user.OrgKey
		filter.DocumentKey = doc.Key
		entries, err := st.ListActivity(ctx, filter)
		if err != nil {
			return apierr.FromError(c, err, "activity")
		}
		return c.JSON(fiber.Map{
			"activity": entries,
			"count":    len(entries),
		})
	}
}

// OrgActivity returns the organization-wide audit trail
func OrgActivity(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)
		filter, err := parseFilter(c)
		if err != nil {
			return apierr.BadRequest(c, "before must be an RFC 3339 timestamp")
		}

		filter.OrgKey = user.OrgKey
		entries, err := st.ListActivity(c.UserContext(), filter)
		if err != nil {
			return apierr.FromError(c, err, "activity")
		}
		return c.JSON(fiber.Map{
			"activity": entries,
			"count":    len(entries),
		})
	}
}
