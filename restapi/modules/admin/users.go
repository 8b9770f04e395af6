package admin

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/leancoach/coach-backend/model"
	"github.com/leancoach/coach-backend/restapi/apierr"
	"github.com/leancoach/coach-backend/restapi/modules/auth"
	"github.com/leancoach/coach-backend/store"
	"github.com/leancoach/coach-backend/util"
	"go.uber.org/zap"
)

// ListUsers returns the organization's user directory
func ListUsers(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := auth.CurrentUser(c)
		users, err := st.ListUsers(c.UserContext(), user.OrgKey)
		if err != nil {
			return apierr.FromError(c, err, "users")
		}

		out := make([]auth.UserResponse, 0, len(users))
		for i := range users {
			out = append(out, auth.NewUserResponse(&users[i]))
		}
		return c.JSON(fiber.Map{
			"users": out,
			"count": len(out),
		})
	}
}

// InviteUser creates a pending member and sends the invitation link
func InviteUser(st store.Store, sender auth.InvitationSender) fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin, _ := auth.CurrentUser(c)
		var req InviteRequest
		if err := c.BodyParser(&req); err != nil {
			return apierr.BadRequest(c, "Invalid request body")
		}

		email := model.NormalizeEmail(req.Email)
		if !util.IsValidEmail(email) {
			return apierr.BadRequest(c, "Invalid email address")
		}
		role, err := model.ParseRole(req.Role)
		if err != nil {
			return apierr.BadRequest(c, "role must be one of admin, manager, member, viewer")
		}

		ctx := c.UserContext()
		if req.DepartmentKey != "" {
			if _, err := st.GetDepartment(ctx, admin.OrgKey, req.DepartmentKey); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return apierr.BadRequest(c, "Unknown department")
				}
				return apierr.FromError(c, err, "department")
			}
		}

		invitation, invited, err := auth.CreateInvitation(ctx, st, sender, auth.InviteParams{
			OrgKey:        admin.OrgKey,
			Email:         email,
			Role:          role,
			DepartmentKey: req.DepartmentKey,
			DisplayName:   util.CleanName(req.DisplayName),
		})
		switch {
		case errors.Is(err, auth.ErrUserAlreadyActive):
			return apierr.Respond(c, fiber.StatusConflict, err.Error())
		case errors.Is(err, store.ErrConflict):
			return apierr.Respond(c, fiber.StatusConflict, "Email is already in use")
		case err != nil:
			return apierr.FromError(c, err, "invitation")
		}

		zap.L().Info("user invited",
			zap.String("org", admin.OrgKey),
			zap.String("email", invitation.Email),
			zap.String("role", string(role)))

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"user":       auth.NewUserResponse(invited),
			"expires_at": invitation.ExpiresAt,
		})
	}
}

// UpdateUser edits a member. Admins cannot demote or deactivate themselves.
func UpdateUser(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin, _ := auth.CurrentUser(c)
		var req UpdateUserRequest
		if err := c.BodyParser(&req); err != nil {
			return apierr.BadRequest(c, "Invalid request body")
		}

		ctx := c.UserContext()
		target, err := st.GetUser(ctx, c.Params("key"))
		if err != nil || !admin.SameOrg(target.OrgKey) {
			return apierr.NotFound(c, "user not found")
		}
		self := target.Key == admin.Key

		if req.Role != nil {
			role, err := model.ParseRole(*req.Role)
			if err != nil {
				return apierr.BadRequest(c, "role must be one of admin, manager, member, viewer")
			}
			if self && role != model.RoleAdmin {
				return apierr.BadRequest(c, "You cannot change your own role")
			}
			target.Role = role
		}

		if req.DepartmentKey != nil {
			if *req.DepartmentKey != "" {
				if _, err := st.GetDepartment(ctx, admin.OrgKey, *req.DepartmentKey); err != nil {
					return apierr.BadRequest(c, "Unknown department")
				}
			}
			target.DepartmentKey = *req.DepartmentKey
		}

		if req.Status != nil {
			switch *req.Status {
			case model.UserStatusActive, model.UserStatusInactive:
			default:
				return apierr.BadRequest(c, "status must be active or inactive")
			}
			if target.Status == model.UserStatusPending && *req.Status == model.UserStatusActive {
				return apierr.BadRequest(c, "Pending users are activated by accepting their invitation")
			}
			if self && *req.Status != model.UserStatusActive {
				return apierr.BadRequest(c, "You cannot deactivate yourself")
			}
			target.Status = *req.Status
		}

		if req.DisplayName != nil {
			target.DisplayName = util.CleanName(*req.DisplayName)
		}

		target.UpdatedAt = time.Now().UTC()
		if err := st.UpdateUser(ctx, target); err != nil {
			return apierr.FromError(c, err, "user")
		}
		return c.JSON(auth.NewUserResponse(target))
	}
}

// DeleteUser removes a member from the organization
func DeleteUser(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin, _ := auth.CurrentUser(c)
		key := c.Params("key")
		if key == admin.Key {
			return apierr.BadRequest(c, "You cannot delete yourself")
		}
		if err := st.DeleteUser(c.UserContext(), admin.OrgKey, key); err != nil {
			return apierr.FromError(c, err, "user")
		}
		zap.L().Info("user deleted", zap.String("org", admin.OrgKey), zap.String("user", key))
		return c.SendStatus(fiber.StatusNoContent)
	}
}
