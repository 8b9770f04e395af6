package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/leancoach/coach-backend/model"
	"github.com/leancoach/coach-backend/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	invitations []*model.Invitation
}

func (s *captureSender) SendInvitation(inv *model.Invitation, _ string) error {
	s.invitations = append(s.invitations, inv)
	return nil
}

func newTestStore(t *testing.T) (store.Store, *model.Organization) {
	t.Helper()
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	now := time.Now().UTC()
	org := &model.Organization{Name: "Acme", Slug: "acme", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.CreateOrg(context.Background(), org))
	return st, org
}

func invitationApp(st store.Store) *fiber.App {
	app := fiber.New()
	app.Get("/invitation/:token", GetInvitationHandler(st))
	app.Post("/invitation/:token/accept", AcceptInvitationHandler(st))
	app.Get("/me", RequireAuth(st), Me(st))
	return app
}

func send(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestCreateInvitationCreatesPendingUser(t *testing.T) {
	st, org := newTestStore(t)
	sender := &captureSender{}

	inv, user, err := CreateInvitation(context.Background(), st, sender, InviteParams{
		OrgKey: org.Key,
		Email:  "New@Acme.io",
		Role:   model.RoleMember,
	})
	require.NoError(t, err)
	assert.Equal(t, "new@acme.io", inv.Email)
	assert.Len(t, inv.Token, 43)
	assert.Equal(t, model.UserStatusPending, user.Status)
	require.Len(t, sender.invitations, 1)

	// Re-inviting a pending user refreshes role and issues a new token
	inv2, user2, err := CreateInvitation(context.Background(), st, sender, InviteParams{
		OrgKey: org.Key,
		Email:  "new@acme.io",
		Role:   model.RoleViewer,
	})
	require.NoError(t, err)
	assert.Equal(t, user.Key, user2.Key)
	assert.Equal(t, model.RoleViewer, user2.Role)
	assert.NotEqual(t, inv.Token, inv2.Token)
}

func TestReinviteRevokesEarlierLink(t *testing.T) {
	st, org := newTestStore(t)
	app := invitationApp(st)
	ctx := context.Background()

	first, _, err := CreateInvitation(ctx, st, nil, InviteParams{
		OrgKey: org.Key,
		Email:  "planner@acme.io",
		Role:   model.RoleManager,
	})
	require.NoError(t, err)
	second, _, err := CreateInvitation(ctx, st, nil, InviteParams{
		OrgKey: org.Key,
		Email:  "planner@acme.io",
		Role:   model.RoleViewer,
	})
	require.NoError(t, err)

	_, err = GetInvitation(ctx, st, first.Token)
	assert.ErrorIs(t, err, store.ErrNotFound)

	resp, _ := send(t, app, http.MethodPost, "/invitation/"+first.Token+"/accept", map[string]string{
		"password": "long-enough", "password_confirm": "long-enough",
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = send(t, app, http.MethodPost, "/invitation/"+second.Token+"/accept", map[string]string{
		"password": "long-enough", "password_confirm": "long-enough",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	user, err := st.GetUserByEmail(ctx, "planner@acme.io")
	require.NoError(t, err)
	assert.Equal(t, model.RoleViewer, user.Role)
	assert.True(t, user.IsActive())
}

func TestAcceptKeepsRoleChangedWhilePending(t *testing.T) {
	st, org := newTestStore(t)
	ctx := context.Background()

	inv, user, err := CreateInvitation(ctx, st, nil, InviteParams{
		OrgKey: org.Key,
		Email:  "tech@acme.io",
		Role:   model.RoleMember,
	})
	require.NoError(t, err)

	user.Role = model.RoleManager
	require.NoError(t, st.UpdateUser(ctx, user))

	accepted, err := AcceptInvitation(ctx, st, inv.Token, "", "long-enough")
	require.NoError(t, err)
	assert.Equal(t, model.RoleManager, accepted.Role)
}

func TestAcceptInvitationFlow(t *testing.T) {
	st, org := newTestStore(t)
	app := invitationApp(st)

	inv, _, err := CreateInvitation(context.Background(), st, nil, InviteParams{
		OrgKey: org.Key,
		Email:  "analyst@acme.io",
		Role:   model.RoleMember,
	})
	require.NoError(t, err)

	resp, body := send(t, app, http.MethodGet, "/invitation/"+inv.Token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Acme", body["organization"])
	assert.Equal(t, "analyst@acme.io", body["email"])

	resp, _ = send(t, app, http.MethodGet, "/invitation/not-a-token", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = send(t, app, http.MethodPost, "/invitation/"+inv.Token+"/accept", map[string]string{
		"password": "long-enough", "password_confirm": "different",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = send(t, app, http.MethodPost, "/invitation/"+inv.Token+"/accept", map[string]string{
		"password": "short", "password_confirm": "short",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body = send(t, app, http.MethodPost, "/invitation/"+inv.Token+"/accept", map[string]string{
		"display_name": "Ana", "password": "long-enough", "password_confirm": "long-enough",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	user, err := st.GetUserByEmail(context.Background(), "analyst@acme.io")
	require.NoError(t, err)
	assert.True(t, user.IsActive())
	assert.Equal(t, "Ana", user.DisplayName)
	assert.True(t, CheckPasswordHash("long-enough", user.PasswordHash))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	meResp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, meResp.StatusCode)

	resp, _ = send(t, app, http.MethodPost, "/invitation/"+inv.Token+"/accept", map[string]string{
		"password": "long-enough", "password_confirm": "long-enough",
	})
	assert.Equal(t, fiber.StatusGone, resp.StatusCode)
}

func TestExpiredInvitation(t *testing.T) {
	st, org := newTestStore(t)
	app := invitationApp(st)
	ctx := context.Background()

	user := model.NewUser(org.Key, "late@acme.io", model.RoleViewer)
	require.NoError(t, st.CreateUser(ctx, user))
	inv := model.NewInvitation(org.Key, user.Email, "expired-token", model.RoleViewer, "")
	inv.ExpiresAt = time.Now().Add(-time.Hour)
	require.NoError(t, st.CreateInvitation(ctx, inv))

	resp, _ := send(t, app, http.MethodGet, "/invitation/expired-token", nil)
	assert.Equal(t, fiber.StatusGone, resp.StatusCode)

	n, err := CleanupExpiredInvitations(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	resp, _ = send(t, app, http.MethodGet, "/invitation/expired-token", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestRequireAuthRejectsInactiveUser(t *testing.T) {
	st, org := newTestStore(t)
	app := invitationApp(st)

	user := model.NewUser(org.Key, "gone@acme.io", model.RoleMember)
	user.Status = model.UserStatusInactive
	require.NoError(t, st.CreateUser(context.Background(), user))
	token, err := GenerateJWT(user)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestPasswordHelpers(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("correct-horse", hash))
	assert.False(t, CheckPasswordHash("wrong-horse", hash))

	assert.ErrorIs(t, ValidatePasswordStrength("1234567"), ErrWeakPassword)
	assert.NoError(t, ValidatePasswordStrength("12345678"))
}
