// Package auth provides authentication handlers for Fiber.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/leancoach/coach-backend/model"
	"github.com/leancoach/coach-backend/restapi/apierr"
	"github.com/leancoach/coach-backend/store"
	"github.com/leancoach/coach-backend/util"
	"go.uber.org/zap"
)

// ============================================================================
// AUTH HANDLERS
// ============================================================================

// Signup creates an organization together with its first admin and logs the admin in
func Signup(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req SignupRequest
		if err := c.BodyParser(&req); err != nil {
			return apierr.BadRequest(c, "Invalid request body")
		}

		req.Organization = strings.TrimSpace(req.Organization)
		if req.Organization == "" || req.Email == "" || req.Password == "" {
			return apierr.BadRequest(c, "organization, email and password are required")
		}
		if !util.IsValidEmail(req.Email) {
			return apierr.BadRequest(c, "Invalid email address")
		}
		if err := ValidatePasswordStrength(req.Password); err != nil {
			return apierr.BadRequest(c, err.Error())
		}

		orgSlug := util.Slugify(req.Organization)
		if orgSlug == "" {
			return apierr.BadRequest(c, "Organization name must contain letters or digits")
		}

		ctx := c.UserContext()

		if _, err := st.GetOrgBySlug(ctx, orgSlug); err == nil {
			return apierr.Respond(c, fiber.StatusConflict,
				"Organization already exists. Please contact the organization administrator to join.")
		}
		if _, err := st.GetUserByEmail(ctx, req.Email); err == nil {
			return apierr.Respond(c, fiber.StatusConflict, "Email is already in use")
		}

		passwordHash, err := HashPassword(req.Password)
		if err != nil {
			return apierr.FromError(c, err, "user")
		}

		now := time.Now().UTC()
		org := &model.Organization{
			Name:      req.Organization,
			Slug:      orgSlug,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := st.CreateOrg(ctx, org); err != nil {
			return apierr.FromError(c, err, "organization")
		}

		user := model.NewUser(org.Key, req.Email, model.RoleAdmin)
		user.DisplayName = strings.TrimSpace(req.DisplayName)
		user.PasswordHash = passwordHash
		user.Status = model.UserStatusActive
		if err := st.CreateUser(ctx, user); err != nil {
			return apierr.FromError(c, err, "user")
		}

		token, err := GenerateJWT(user)
		if err != nil {
			return apierr.Respond(c, fiber.StatusInternalServerError, "Failed to generate token")
		}
		SetAuthCookie(c, token)

		zap.L().Info("organization created", zap.String("org", org.Slug), zap.String("admin", user.Email))

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"organization": org,
			"user":         NewUserResponse(user),
			"token":        token,
		})
	}
}

// Login handles user login and sets auth cookie
func Login(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return apierr.BadRequest(c, "Invalid request body")
		}

		if req.Email == "" || req.Password == "" {
			return apierr.BadRequest(c, "Email and password are required")
		}

		user, err := st.GetUserByEmail(c.UserContext(), req.Email)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return apierr.FromError(c, err, "user")
			}
			return apierr.Respond(c, fiber.StatusUnauthorized, "Invalid credentials")
		}

		if !CheckPasswordHash(req.Password, user.PasswordHash) {
			return apierr.Respond(c, fiber.StatusUnauthorized, "Invalid credentials")
		}

		if !user.IsActive() {
			return apierr.Respond(c, fiber.StatusUnauthorized, "Account is inactive")
		}

		token, err := GenerateJWT(user)
		if err != nil {
			return apierr.Respond(c, fiber.StatusInternalServerError, "Failed to generate token")
		}

		SetAuthCookie(c, token)

		return c.JSON(fiber.Map{
			"message": "Login successful",
			"user":    NewUserResponse(user),
			"token":   token,
		})
	}
}

// Logout clears the auth cookie
func Logout() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Cookie(&fiber.Cookie{
			Name:     CookieName,
			Value:    "",
			Expires:  time.Now().Add(-1 * time.Hour),
			MaxAge:   -1,
			HTTPOnly: true,
			Secure:   false,
			SameSite: "Lax",
			Path:     "/",
		})
		return c.JSON(fiber.Map{"message": "Logged out successfully"})
	}
}

// Me returns current authenticated user info with its organization
func Me(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return apierr.Respond(c, fiber.StatusUnauthorized, "Not authenticated")
		}

		org, err := st.GetOrg(c.UserContext(), user.OrgKey)
		if err != nil {
			return apierr.FromError(c, err, "organization")
		}

		return c.JSON(fiber.Map{
			"user":         NewUserResponse(user),
			"organization": org,
		})
	}
}

// ChangePassword handles password change
func ChangePassword(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return apierr.Respond(c, fiber.StatusUnauthorized, "Authentication required")
		}

		var req ChangePasswordRequest
		if err := c.BodyParser(&req); err != nil {
			return apierr.BadRequest(c, "Invalid request body")
		}

		if err := ValidatePasswordStrength(req.NewPassword); err != nil {
			return apierr.BadRequest(c, err.Error())
		}

		if !CheckPasswordHash(req.OldPassword, user.PasswordHash) {
			return apierr.Respond(c, fiber.StatusUnauthorized, "Invalid old password")
		}

		newHash, err := HashPassword(req.NewPassword)
		if err != nil {
			return apierr.Respond(c, fiber.StatusInternalServerError, "Failed to hash password")
		}

		user.PasswordHash = newHash
		user.UpdatedAt = time.Now().UTC()

		if err := st.UpdateUser(c.UserContext(), user); err != nil {
			return apierr.FromError(c, err, "user")
		}

		return c.JSON(fiber.Map{"message": "Password changed successfully"})
	}
}

// RefreshToken issues a fresh token for the authenticated user
func RefreshToken() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return apierr.Respond(c, fiber.StatusUnauthorized, "No token to refresh")
		}

		token, err := GenerateJWT(user)
		if err != nil {
			return apierr.Respond(c, fiber.StatusInternalServerError, "Failed to generate token")
		}

		SetAuthCookie(c, token)
		return c.JSON(fiber.Map{"message": "Token refreshed successfully", "token": token})
	}
}

// ============================================================================
// HELPER FUNCTIONS
// ============================================================================

// SetAuthCookie sets the authentication cookie for a user session.
func SetAuthCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    token,
		HTTPOnly: true,
		Secure:   false,
		SameSite: "Lax",
		MaxAge:   int(SessionTTL.Seconds()),
		Path:     "/",
	})
}
