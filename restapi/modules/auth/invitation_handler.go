package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/leancoach/coach-backend/restapi/apierr"
	"github.com/leancoach/coach-backend/store"
)

// GetInvitationHandler handles GET /api/v1/invitation/:token
func GetInvitationHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Params("token")
		ctx := c.UserContext()

		invitation, err := GetInvitation(ctx, st, token)
		switch {
		case errors.Is(err, ErrInvitationExpired), errors.Is(err, ErrInvitationUsed):
			return apierr.Respond(c, fiber.StatusGone, "Invitation no longer valid")
		case errors.Is(err, store.ErrNotFound):
			return apierr.NotFound(c, "Invalid or expired invitation")
		case err != nil:
			return apierr.FromError(c, err, "invitation")
		}

		orgName := ""
		if org, err := st.GetOrg(ctx, invitation.OrgKey); err == nil {
			orgName = org.Name
		}

		return c.JSON(fiber.Map{
			"organization": orgName,
			"email":        invitation.Email,
			"role":         invitation.Role,
			"expires_at":   invitation.ExpiresAt,
		})
	}
}

// AcceptInvitationHandler handles activation and immediate login
func AcceptInvitationHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Params("token")
		var req AcceptInvitationRequest
		if err := c.BodyParser(&req); err != nil {
			return apierr.BadRequest(c, "Invalid body")
		}

		if req.Password != req.PasswordConfirm {
			return apierr.BadRequest(c, "Passwords mismatch")
		}

		user, err := AcceptInvitation(c.UserContext(), st, token, strings.TrimSpace(req.DisplayName), req.Password)
		switch {
		case errors.Is(err, ErrInvitationExpired), errors.Is(err, ErrInvitationUsed):
			return apierr.Respond(c, fiber.StatusGone, err.Error())
		case errors.Is(err, ErrWeakPassword), errors.Is(err, ErrUserAlreadyActive):
			return apierr.BadRequest(c, err.Error())
		case err != nil:
			return apierr.FromError(c, err, "invitation")
		}

		// Immediate login after successful activation
		jwtToken, err := GenerateJWT(user)
		if err != nil {
			return apierr.Respond(c, fiber.StatusInternalServerError, "Login failed")
		}
		SetAuthCookie(c, jwtToken)

		return c.JSON(fiber.Map{
			"message": "Account activated. You are now logged in.",
			"user":    NewUserResponse(user),
			"token":   jwtToken,
		})
	}
}
