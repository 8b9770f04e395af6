// Package admin implements the REST API handlers for organization administration:
// the organization profile, departments and the user directory.
package admin

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/leancoach/coach-backend/model"
	"github.com/leancoach/coach-backend/restapi/apierr"
	"github.com/leancoach/coach-backend/restapi/modules/auth"
	"github.com/leancoach/coach-backend/store"
	"github.com/leancoach/coach-backend/util"
	"go.uber.org/zap"
)

// GetOrg returns the caller's organization
func GetOrg(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)
		org, err := st.GetOrg(c.UserContext(), user.OrgKey)
		if err != nil {
			return apierr.FromError(c, err, "organization")
		}
		return c.JSON(org)
	}
}

// UpdateOrg edits the organization name and description
func UpdateOrg(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)
		var req UpdateOrgRequest
		if err := c.BodyParser(&req); err != nil {
			return apierr.BadRequest(c, "Invalid request body")
		}

		ctx := c.UserContext()
		org, err := st.GetOrg(ctx, user.OrgKey)
		if err != nil {
			return apierr.FromError(c, err, "organization")
		}

		if req.Name != nil {
			name := util.CleanName(*req.Name)
			if name == "" {
				return apierr.BadRequest(c, "name must not be empty")
			}
			org.Name = name
		}
		if req.Description != nil {
			org.Description = strings.TrimSpace(*req.Description)
		}
		org.UpdatedAt = time.Now().UTC()

		if err := st.UpdateOrg(ctx, org); err != nil {
			return apierr.FromError(c, err, "organization")
		}
		return c.JSON(org)
	}
}

// ListDepartments returns the live departments of the caller's organization
func ListDepartments(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)
		depts, err := st.ListDepartments(c.UserContext(), user.OrgKey)
		if err != nil {
			return apierr.FromError(c, err, "departments")
		}
		return c.JSON(fiber.Map{
			"departments": depts,
			"count":       len(depts),
		})
	}
}

// CreateDepartment adds a department. Names are unique per organization.
func CreateDepartment(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)
		var req DepartmentRequest
		if err := c.BodyParser(&req); err != nil {
			return apierr.BadRequest(c, "Invalid request body")
		}
		name := util.CleanName(req.Name)
		if name == "" {
			return apierr.BadRequest(c, "name is required")
		}

		now := time.Now().UTC()
		dept := &model.Department{
			OrgKey:    user.OrgKey,
			Name:      name,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if req.Description != nil {
			dept.Description = strings.TrimSpace(*req.Description)
		}

		if err := st.CreateDepartment(c.UserContext(), dept); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return apierr.Respond(c, fiber.StatusConflict, "A department with this name already exists")
			}
			return apierr.FromError(c, err, "department")
		}

		zap.L().Info("department created", zap.String("org", user.OrgKey), zap.String("name", name))
		return c.Status(fiber.StatusCreated).JSON(dept)
	}
}

// UpdateDepartment renames a department or edits its description
func UpdateDepartment(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)
		var req DepartmentRequest
		if err := c.BodyParser(&req); err != nil {
			return apierr.BadRequest(c, "Invalid request body")
		}

		ctx := c.UserContext()
		dept, err := st.GetDepartment(ctx, user.OrgKey, c.Params("key"))
		if err != nil {
			return apierr.FromError(c, err, "department")
		}

		if name := util.CleanName(req.Name); name != "" {
			dept.Name = name
		}
		if req.Description != nil {
			dept.Description = strings.TrimSpace(*req.Description)
		}
		dept.UpdatedAt = time.Now().UTC()

		if err := st.UpdateDepartment(ctx, dept); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return apierr.Respond(c, fiber.StatusConflict, "A department with this name already exists")
			}
			return apierr.FromError(c, err, "department")
		}
		return c.JSON(dept)
	}
}

// DeleteDepartment soft deletes a department that holds no live documents
func DeleteDepartment(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)
		err := st.DeleteDepartment(c.UserContext(), user.OrgKey, c.Params("key"))
		if errors.Is(err, store.ErrConflict) {
			return apierr.Respond(c, fiber.StatusConflict, "Department still has documents")
		}
		if err != nil {
			return apierr.FromError(c, err, "department")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
