package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/leancoach/coach-backend/model"
	"github.com/leancoach/coach-backend/store"
)

// CookieName is the session cookie
const CookieName = "auth_token"

type contextKey string

// UserContextKey carries the authenticated *model.User in a context.Context
const UserContextKey contextKey = "user"

// WithUser returns a context carrying the user
func WithUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, UserContextKey, u)
}

// UserFromContext returns the user stored by WithUser
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(UserContextKey).(*model.User)
	return u, ok && u != nil
}

// CurrentUser returns the user set by RequireAuth or OptionalAuth
func CurrentUser(c *fiber.Ctx) (*model.User, bool) {
	u, ok := c.Locals("user").(*model.User)
	return u, ok && u != nil
}

// tokenFromRequest reads the session token from the cookie, then the Authorization header
func tokenFromRequest(c *fiber.Ctx) string {
	if token := c.Cookies(CookieName); token != "" {
		return token
	}
	header := c.Get(fiber.HeaderAuthorization)
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// authenticate resolves the request's token to an active user
func authenticate(c *fiber.Ctx, st store.Store) (*model.User, string) {
	token := tokenFromRequest(c)
	if token == "" {
		return nil, "Authentication required"
	}

	claims, err := ValidateJWT(token)
	if err != nil {
		return nil, "Invalid or expired session"
	}

	user, err := st.GetUser(c.UserContext(), claims.UserKey)
	if err != nil || user.OrgKey != claims.OrgKey {
		return nil, "Invalid or expired session"
	}
	if !user.IsActive() {
		return nil, "Account is inactive"
	}
	return user, ""
}

func setLocals(c *fiber.Ctx, user *model.User) {
	c.Locals("is_authenticated", true)
	c.Locals("user", user)
	c.Locals("user_key", user.Key)
	c.Locals("org_key", user.OrgKey)
	c.Locals("role", string(user.Role))
}

// RequireAuth middleware validates the session token and blocks guests and inactive users.
// The user's role comes from the store, not from the token.
func RequireAuth(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, msg := authenticate(c, st)
		if user == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": msg,
			})
		}

		setLocals(c, user)
		return c.Next()
	}
}

// OptionalAuth identifies the user if a token is present but does not block guests.
func OptionalAuth(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := authenticate(c, st)
		if user == nil {
			// Treat invalid/expired tokens as guest access
			c.Locals("is_authenticated", false)
			return c.Next()
		}

		setLocals(c, user)
		return c.Next()
	}
}

// RequireRole middleware checks if user has one of the required roles
func RequireRole(allowedRoles ...model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		for _, role := range allowedRoles {
			if user.Role == role {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions",
		})
	}
}
