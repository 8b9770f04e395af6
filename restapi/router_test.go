package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	gqlschema "github.com/leancoach/coach-backend/graphql"
	"github.com/leancoach/coach-backend/internal/coach"
	"github.com/leancoach/coach-backend/internal/pdf"
	"github.com/leancoach/coach-backend/internal/services"
	"github.com/leancoach/coach-backend/model"
	"github.com/leancoach/coach-backend/restapi/modules/auth"
	"github.com/leancoach/coach-backend/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (m *fakeModel) Generate(_ context.Context, _ string, _ []coach.Turn) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.reply, m.err
}

type fakeRenderer struct {
	data []byte
	err  error
	html string
}

func (r *fakeRenderer) Render(_ context.Context, html string) ([]byte, error) {
	r.html = html
	return r.data, r.err
}

type fixture struct {
	t        *testing.T
	st       store.Store
	app      *fiber.App
	model    *fakeModel
	renderer *fakeRenderer

	org     *model.Organization
	ops     *model.Department
	quality *model.Department

	admin    *model.User
	manager  *model.User
	member   *model.User
	viewer   *model.User
	qmember  *model.User
	outsider *model.User
}

type result struct {
	status int
	header http.Header
	raw    []byte
	body   map[string]interface{}
}

func newFixture(t *testing.T, withCoach bool) *fixture {
	t.Helper()
	auth.SetJWTSecret("router-test-secret")

	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	f := &fixture{t: t, st: st, model: &fakeModel{reply: "Ask why the scrap rate rose."}, renderer: &fakeRenderer{data: []byte("%PDF-1.7 fake")}}
	ctx := context.Background()
	now := time.Now().UTC()

	f.org = &model.Organization{Name: "Acme", Slug: "acme", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.CreateOrg(ctx, f.org))
	other := &model.Organization{Name: "Globex", Slug: "globex", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.CreateOrg(ctx, other))

	f.ops = &model.Department{OrgKey: f.org.Key, Name: "Operations", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.CreateDepartment(ctx, f.ops))
	f.quality = &model.Department{OrgKey: f.org.Key, Name: "Quality", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.CreateDepartment(ctx, f.quality))

	f.admin = f.addUser(f.org.Key, "admin@acme.io", model.RoleAdmin, "")
	f.manager = f.addUser(f.org.Key, "manager@acme.io", model.RoleManager, f.ops.Key)
	f.member = f.addUser(f.org.Key, "member@acme.io", model.RoleMember, f.ops.Key)
	f.viewer = f.addUser(f.org.Key, "viewer@acme.io", model.RoleViewer, f.ops.Key)
	f.qmember = f.addUser(f.org.Key, "q@acme.io", model.RoleMember, f.quality.Key)
	f.outsider = f.addUser(other.Key, "boss@globex.io", model.RoleAdmin, "")

	schema, err := gqlschema.CreateSchema(st)
	require.NoError(t, err)

	deps := Deps{
		Store:    st,
		Recorder: &services.StoreRecorder{Store: st},
		Exporter: &pdf.Exporter{Renderer: f.renderer},
		Schema:   schema,
	}
	if withCoach {
		deps.Coach = coach.NewService(st, f.model, time.Second)
	}

	f.app = fiber.New()
	SetupRoutes(f.app, deps)
	return f
}

func (f *fixture) addUser(orgKey, email string, role model.Role, dept string) *model.User {
	f.t.Helper()
	u := model.NewUser(orgKey, email, role)
	u.Status = model.UserStatusActive
	u.DepartmentKey = dept
	u.DisplayName = email
	require.NoError(f.t, f.st.CreateUser(context.Background(), u))
	return u
}

func (f *fixture) token(u *model.User) string {
	f.t.Helper()
	token, err := auth.GenerateJWT(u)
	require.NoError(f.t, err)
	return token
}

func (f *fixture) do(method, path string, as *model.User, body interface{}) result {
	f.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+f.token(as))
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(f.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(f.t, err)

	res := result{status: resp.StatusCode, header: resp.Header, raw: raw}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(f.t, json.Unmarshal(raw, &res.body))
	}
	return res
}

func (f *fixture) createDocument(as *model.User, title string) string {
	f.t.Helper()
	res := f.do(http.MethodPost, "/api/v1/documents", as, map[string]string{"title": title})
	require.Equal(f.t, fiber.StatusCreated, res.status, string(res.raw))
	return res.body["_key"].(string)
}

func (f *fixture) actions(docKey string) []string {
	f.t.Helper()
	entries, err := f.st.ListActivity(context.Background(), store.ActivityFilter{OrgKey: f.org.Key, DocumentKey: docKey})
	require.NoError(f.t, err)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}

func TestAuthRequired(t *testing.T) {
	f := newFixture(t, false)

	res := f.do(http.MethodGet, "/api/v1/documents", nil, nil)
	assert.Equal(t, fiber.StatusUnauthorized, res.status)
	assert.Equal(t, "Authentication required", res.body["error"])

	res = f.do(http.MethodGet, "/api/v1/auth/me", f.member, nil)
	require.Equal(t, fiber.StatusOK, res.status)
	user := res.body["user"].(map[string]interface{})
	assert.Equal(t, "member@acme.io", user["email"])
	assert.NotContains(t, user, "password_hash")
}

func TestSignupAndLogin(t *testing.T) {
	f := newFixture(t, false)

	res := f.do(http.MethodPost, "/api/v1/signup", nil, map[string]string{
		"organization": "Initech Plant",
		"email":        "lumbergh@initech.io",
		"display_name": "Bill",
		"password":     "tps-reports",
	})
	require.Equal(t, fiber.StatusCreated, res.status, string(res.raw))
	org := res.body["organization"].(map[string]interface{})
	assert.Equal(t, "initech-plant", org["slug"])

	res = f.do(http.MethodPost, "/api/v1/signup", nil, map[string]string{
		"organization": "Initech Plant",
		"email":        "other@initech.io",
		"password":     "tps-reports",
	})
	assert.Equal(t, fiber.StatusConflict, res.status)

	res = f.do(http.MethodPost, "/api/v1/auth/login", nil, map[string]string{
		"email": "lumbergh@initech.io", "password": "wrong-password",
	})
	assert.Equal(t, fiber.StatusUnauthorized, res.status)

	res = f.do(http.MethodPost, "/api/v1/auth/login", nil, map[string]string{
		"email": "Lumbergh@Initech.io", "password": "tps-reports",
	})
	require.Equal(t, fiber.StatusOK, res.status, string(res.raw))
	assert.NotEmpty(t, res.body["token"])
}

func TestDocumentLifecycle(t *testing.T) {
	f := newFixture(t, false)
	key := f.createDocument(f.member, "Reduce scrap on line 3")

	res := f.do(http.MethodGet, "/api/v1/documents/"+key, f.manager, nil)
	require.Equal(t, fiber.StatusOK, res.status)
	assert.Equal(t, f.ops.Key, res.body["department_key"])
	assert.Equal(t, "draft", res.body["status"])
	sections := res.body["sections"].([]interface{})
	require.Len(t, sections, len(model.SectionCatalog))
	assert.Equal(t, "project_info", sections[0].(map[string]interface{})["section_type"])

	// Invisible and cross-tenant documents look missing
	assert.Equal(t, fiber.StatusNotFound, f.do(http.MethodGet, "/api/v1/documents/"+key, f.qmember, nil).status)
	assert.Equal(t, fiber.StatusNotFound, f.do(http.MethodGet, "/api/v1/documents/"+key, f.outsider, nil).status)

	// Readable but not writable
	res = f.do(http.MethodPut, "/api/v1/documents/"+key, f.viewer, map[string]string{"title": "Nope"})
	assert.Equal(t, fiber.StatusForbidden, res.status)

	res = f.do(http.MethodPut, "/api/v1/documents/"+key+"/sections/background", f.member, map[string]string{
		"content": "Scrap rose from 2% to 6% in March.",
	})
	require.Equal(t, fiber.StatusOK, res.status, string(res.raw))
	assert.Equal(t, "Scrap rose from 2% to 6% in March.", res.body["content"])
	assert.Equal(t, f.member.Key, res.body["updated_by"])

	res = f.do(http.MethodPut, "/api/v1/documents/"+key+"/sections/executive_summary", f.member, map[string]string{"content": "x"})
	assert.Equal(t, fiber.StatusBadRequest, res.status)

	res = f.do(http.MethodPost, "/api/v1/documents/"+key+"/status", f.member, map[string]string{"status": "completed"})
	assert.Equal(t, fiber.StatusBadRequest, res.status)
	res = f.do(http.MethodPost, "/api/v1/documents/"+key+"/status", f.member, map[string]string{"status": "bogus"})
	assert.Equal(t, fiber.StatusBadRequest, res.status)
	res = f.do(http.MethodPost, "/api/v1/documents/"+key+"/status", f.member, map[string]string{"status": "in_progress"})
	require.Equal(t, fiber.StatusOK, res.status)
	assert.Equal(t, "in_progress", res.body["status"])

	res = f.do(http.MethodPut, "/api/v1/documents/"+key, f.manager, map[string]string{"title": "  Reduce   scrap, line 3 "})
	require.Equal(t, fiber.StatusOK, res.status)
	assert.Equal(t, "Reduce scrap, line 3", res.body["title"])

	// Archived documents are read-only until restored to draft
	res = f.do(http.MethodPost, "/api/v1/documents/"+key+"/status", f.member, map[string]string{"status": "archived"})
	require.Equal(t, fiber.StatusOK, res.status)
	res = f.do(http.MethodPut, "/api/v1/documents/"+key+"/sections/goal", f.member, map[string]string{"content": "2%"})
	assert.Equal(t, fiber.StatusConflict, res.status)
	res = f.do(http.MethodPost, "/api/v1/documents/"+key+"/status", f.member, map[string]string{"status": "draft"})
	require.Equal(t, fiber.StatusOK, res.status)

	assert.Equal(t, []string{
		model.ActionDocumentStatusChanged,
		model.ActionDocumentStatusChanged,
		model.ActionDocumentUpdated,
		model.ActionDocumentStatusChanged,
		model.ActionSectionUpdated,
		model.ActionDocumentCreated,
	}, f.actions(key))
}

func TestSoftDeleteAndRestore(t *testing.T) {
	f := newFixture(t, false)
	key := f.createDocument(f.member, "Changeover time")

	assert.Equal(t, fiber.StatusForbidden, f.do(http.MethodDelete, "/api/v1/documents/"+key, f.viewer, nil).status)
	require.Equal(t, fiber.StatusNoContent, f.do(http.MethodDelete, "/api/v1/documents/"+key, f.member, nil).status)
	assert.Equal(t, fiber.StatusNotFound, f.do(http.MethodGet, "/api/v1/documents/"+key, f.member, nil).status)

	res := f.do(http.MethodGet, "/api/v1/documents?include_deleted=true", f.member, nil)
	require.Equal(t, fiber.StatusOK, res.status)
	assert.EqualValues(t, 0, res.body["count"])

	res = f.do(http.MethodGet, "/api/v1/documents?include_deleted=true", f.manager, nil)
	require.Equal(t, fiber.StatusOK, res.status)
	assert.EqualValues(t, 1, res.body["count"])

	res = f.do(http.MethodPost, "/api/v1/documents/"+key+"/restore", f.member, nil)
	require.Equal(t, fiber.StatusOK, res.status, string(res.raw))
	assert.Nil(t, res.body["deleted_at"])
	assert.Equal(t, fiber.StatusBadRequest, f.do(http.MethodPost, "/api/v1/documents/"+key+"/restore", f.member, nil).status)

	assert.Equal(t, []string{
		model.ActionDocumentRestored,
		model.ActionDocumentDeleted,
		model.ActionDocumentCreated,
	}, f.actions(key))
}

func TestCreateDocumentPermissions(t *testing.T) {
	f := newFixture(t, false)

	res := f.do(http.MethodPost, "/api/v1/documents", f.member, map[string]string{
		"title": "Elsewhere", "department_key": f.quality.Key,
	})
	assert.Equal(t, fiber.StatusForbidden, res.status)

	res = f.do(http.MethodPost, "/api/v1/documents", f.viewer, map[string]string{"title": "Viewer draft"})
	assert.Equal(t, fiber.StatusForbidden, res.status)

	res = f.do(http.MethodPost, "/api/v1/documents", f.member, map[string]string{
		"title": "Ghost", "department_key": "no-such-department",
	})
	assert.Equal(t, fiber.StatusBadRequest, res.status)

	res = f.do(http.MethodPost, "/api/v1/documents", f.admin, map[string]string{"title": "No department"})
	assert.Equal(t, fiber.StatusBadRequest, res.status)

	res = f.do(http.MethodPost, "/api/v1/documents", f.member, map[string]string{"title": "   "})
	assert.Equal(t, fiber.StatusBadRequest, res.status)

	res = f.do(http.MethodPost, "/api/v1/documents", f.admin, map[string]string{
		"title": "Admin draft", "department_key": f.quality.Key,
	})
	assert.Equal(t, fiber.StatusCreated, res.status)
}

func TestListDocumentsVisibility(t *testing.T) {
	f := newFixture(t, false)
	f.createDocument(f.member, "Ops one")
	f.createDocument(f.qmember, "Quality one")

	res := f.do(http.MethodGet, "/api/v1/documents", f.qmember, nil)
	require.Equal(t, fiber.StatusOK, res.status)
	docs := res.body["documents"].([]interface{})
	require.Len(t, docs, 1)
	assert.Equal(t, "Quality one", docs[0].(map[string]interface{})["title"])

	res = f.do(http.MethodGet, "/api/v1/documents", f.manager, nil)
	assert.EqualValues(t, 2, res.body["count"])

	res = f.do(http.MethodGet, "/api/v1/documents?department="+f.ops.Key, f.admin, nil)
	assert.EqualValues(t, 1, res.body["count"])

	res = f.do(http.MethodGet, "/api/v1/documents?status=finished", f.admin, nil)
	assert.Equal(t, fiber.StatusBadRequest, res.status)

	res = f.do(http.MethodGet, "/api/v1/documents", f.outsider, nil)
	assert.EqualValues(t, 0, res.body["count"])
}

func TestComments(t *testing.T) {
	f := newFixture(t, false)
	key := f.createDocument(f.member, "Downtime")
	base := "/api/v1/documents/" + key + "/comments"

	res := f.do(http.MethodPost, base, f.viewer, map[string]string{"content": "Which shift?", "section_type": "background"})
	require.Equal(t, fiber.StatusCreated, res.status, string(res.raw))
	viewerComment := res.body["_key"].(string)

	res = f.do(http.MethodPost, base, f.member, map[string]string{"content": "Night shift."})
	require.Equal(t, fiber.StatusCreated, res.status)

	assert.Equal(t, fiber.StatusBadRequest, f.do(http.MethodPost, base, f.member, map[string]string{"content": "  "}).status)
	assert.Equal(t, fiber.StatusBadRequest, f.do(http.MethodPost, base, f.member, map[string]string{"content": "x", "section_type": "nope"}).status)
	assert.Equal(t, fiber.StatusNotFound, f.do(http.MethodPost, base, f.qmember, map[string]string{"content": "hi"}).status)

	res = f.do(http.MethodGet, base+"?section=background", f.member, nil)
	require.Equal(t, fiber.StatusOK, res.status)
	assert.EqualValues(t, 1, res.body["count"])

	assert.Equal(t, fiber.StatusForbidden, f.do(http.MethodDelete, base+"/"+viewerComment, f.member, nil).status)
	assert.Equal(t, fiber.StatusNoContent, f.do(http.MethodDelete, base+"/"+viewerComment, f.viewer, nil).status)
	assert.Equal(t, fiber.StatusNotFound, f.do(http.MethodDelete, base+"/"+viewerComment, f.admin, nil).status)

	res = f.do(http.MethodGet, base, f.admin, nil)
	assert.EqualValues(t, 1, res.body["count"])
	assert.Contains(t, f.actions(key), model.ActionCommentDeleted)
}

func TestChatUnavailable(t *testing.T) {
	f := newFixture(t, false)
	key := f.createDocument(f.member, "Kanban sizing")

	res := f.do(http.MethodPost, "/api/v1/documents/"+key+"/chat", f.member, map[string]string{"content": "Help"})
	assert.Equal(t, fiber.StatusServiceUnavailable, res.status)
	assert.Equal(t, fiber.StatusServiceUnavailable, f.do(http.MethodGet, "/api/v1/documents/"+key+"/chat", f.member, nil).status)
}

func TestChatExchange(t *testing.T) {
	f := newFixture(t, true)
	key := f.createDocument(f.member, "Kanban sizing")
	base := "/api/v1/documents/" + key + "/chat"

	res := f.do(http.MethodPost, base, f.viewer, map[string]string{"content": "Where do I start?", "section_type": "root_cause"})
	require.Equal(t, fiber.StatusCreated, res.status, string(res.raw))
	reply := res.body["reply"].(map[string]interface{})
	assert.Equal(t, "Ask why the scrap rate rose.", reply["content"])
	assert.Equal(t, model.ChatRoleAssistant, reply["role"])

	assert.Equal(t, fiber.StatusBadRequest, f.do(http.MethodPost, base, f.viewer, map[string]string{"content": ""}).status)
	assert.Equal(t, fiber.StatusBadRequest, f.do(http.MethodPost, base, f.viewer, map[string]string{"content": "hi", "section_type": "nope"}).status)
	assert.Equal(t, fiber.StatusNotFound, f.do(http.MethodPost, base, f.qmember, map[string]string{"content": "hi"}).status)

	f.model.err = errors.New("upstream exploded")
	assert.Equal(t, fiber.StatusBadGateway, f.do(http.MethodPost, base, f.viewer, map[string]string{"content": "Again?"}).status)
	f.model.err = nil

	res = f.do(http.MethodGet, base, f.viewer, nil)
	require.Equal(t, fiber.StatusOK, res.status)
	assert.EqualValues(t, 2, res.body["count"])

	// History is per user
	res = f.do(http.MethodGet, base, f.member, nil)
	assert.EqualValues(t, 0, res.body["count"])

	require.Equal(t, fiber.StatusNoContent, f.do(http.MethodDelete, base, f.viewer, nil).status)
	res = f.do(http.MethodGet, base, f.viewer, nil)
	assert.EqualValues(t, 0, res.body["count"])

	assert.Contains(t, f.actions(key), model.ActionChatMessage)
}

func TestExportPDF(t *testing.T) {
	f := newFixture(t, false)
	key := f.createDocument(f.member, "Reduce scrap on line 3")
	path := "/api/v1/documents/" + key + "/export.pdf"

	res := f.do(http.MethodGet, path, f.viewer, nil)
	require.Equal(t, fiber.StatusOK, res.status, string(res.raw))
	assert.Equal(t, "application/pdf", res.header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="reduce-scrap-on-line-3.pdf"`, res.header.Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.7 fake", string(res.raw))
	assert.Contains(t, f.renderer.html, "Operations")
	assert.Contains(t, f.actions(key), model.ActionDocumentExported)

	f.renderer.err = pdf.ErrQueueFull
	assert.Equal(t, fiber.StatusServiceUnavailable, f.do(http.MethodGet, path, f.viewer, nil).status)
	f.renderer.err = pdf.ErrRenderTimeout
	assert.Equal(t, fiber.StatusGatewayTimeout, f.do(http.MethodGet, path, f.viewer, nil).status)
	f.renderer.err = pdf.ErrRendererClosed
	assert.Equal(t, fiber.StatusServiceUnavailable, f.do(http.MethodGet, path, f.viewer, nil).status)

	assert.Equal(t, fiber.StatusNotFound, f.do(http.MethodGet, path, f.qmember, nil).status)
}

func TestDepartmentAdministration(t *testing.T) {
	f := newFixture(t, false)

	assert.Equal(t, fiber.StatusForbidden, f.do(http.MethodPost, "/api/v1/departments", f.manager, map[string]string{"name": "Finance"}).status)

	res := f.do(http.MethodPost, "/api/v1/departments", f.admin, map[string]string{"name": "Finance"})
	require.Equal(t, fiber.StatusCreated, res.status, string(res.raw))
	finance := res.body["_key"].(string)

	assert.Equal(t, fiber.StatusConflict, f.do(http.MethodPost, "/api/v1/departments", f.admin, map[string]string{"name": "finance"}).status)

	res = f.do(http.MethodPut, "/api/v1/departments/"+finance, f.admin, map[string]string{"name": "Finance & Control"})
	require.Equal(t, fiber.StatusOK, res.status)
	assert.Equal(t, "Finance & Control", res.body["name"])

	res = f.do(http.MethodGet, "/api/v1/departments", f.viewer, nil)
	require.Equal(t, fiber.StatusOK, res.status)
	assert.EqualValues(t, 3, res.body["count"])

	f.createDocument(f.member, "Keeps ops alive")
	assert.Equal(t, fiber.StatusConflict, f.do(http.MethodDelete, "/api/v1/departments/"+f.ops.Key, f.admin, nil).status)
	assert.Equal(t, fiber.StatusNoContent, f.do(http.MethodDelete, "/api/v1/departments/"+finance, f.admin, nil).status)
	assert.Equal(t, fiber.StatusNotFound, f.do(http.MethodDelete, "/api/v1/departments/"+finance, f.admin, nil).status)
}

func TestUserAdministration(t *testing.T) {
	f := newFixture(t, false)

	assert.Equal(t, fiber.StatusForbidden, f.do(http.MethodGet, "/api/v1/users", f.member, nil).status)
	res := f.do(http.MethodGet, "/api/v1/users", f.manager, nil)
	require.Equal(t, fiber.StatusOK, res.status)
	assert.EqualValues(t, 5, res.body["count"])

	res = f.do(http.MethodPost, "/api/v1/users/invite", f.admin, map[string]string{
		"email": "New.Hire@acme.io", "role": "member", "department_key": f.quality.Key,
	})
	require.Equal(t, fiber.StatusCreated, res.status, string(res.raw))
	invited := res.body["user"].(map[string]interface{})
	assert.Equal(t, "new.hire@acme.io", invited["email"])
	assert.Equal(t, model.UserStatusPending, invited["status"])

	assert.Equal(t, fiber.StatusConflict, f.do(http.MethodPost, "/api/v1/users/invite", f.admin, map[string]string{
		"email": "member@acme.io", "role": "member",
	}).status)
	assert.Equal(t, fiber.StatusConflict, f.do(http.MethodPost, "/api/v1/users/invite", f.admin, map[string]string{
		"email": "boss@globex.io", "role": "member",
	}).status)
	assert.Equal(t, fiber.StatusBadRequest, f.do(http.MethodPost, "/api/v1/users/invite", f.admin, map[string]string{
		"email": "x@acme.io", "role": "owner",
	}).status)
	assert.Equal(t, fiber.StatusForbidden, f.do(http.MethodPost, "/api/v1/users/invite", f.manager, map[string]string{
		"email": "x@acme.io", "role": "member",
	}).status)

	res = f.do(http.MethodPut, "/api/v1/users/"+f.member.Key, f.admin, map[string]string{"role": "manager"})
	require.Equal(t, fiber.StatusOK, res.status)
	assert.Equal(t, "manager", res.body["role"])

	assert.Equal(t, fiber.StatusBadRequest, f.do(http.MethodPut, "/api/v1/users/"+f.admin.Key, f.admin, map[string]string{"role": "member"}).status)
	assert.Equal(t, fiber.StatusBadRequest, f.do(http.MethodPut, "/api/v1/users/"+f.admin.Key, f.admin, map[string]string{"status": "inactive"}).status)
	assert.Equal(t, fiber.StatusNotFound, f.do(http.MethodPut, "/api/v1/users/"+f.outsider.Key, f.admin, map[string]string{"role": "viewer"}).status)

	res = f.do(http.MethodPut, "/api/v1/users/"+f.viewer.Key, f.admin, map[string]string{"status": "inactive"})
	require.Equal(t, fiber.StatusOK, res.status)
	assert.Equal(t, fiber.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/documents", f.viewer, nil).status)

	assert.Equal(t, fiber.StatusBadRequest, f.do(http.MethodDelete, "/api/v1/users/"+f.admin.Key, f.admin, nil).status)
	assert.Equal(t, fiber.StatusNoContent, f.do(http.MethodDelete, "/api/v1/users/"+f.qmember.Key, f.admin, nil).status)
	assert.Equal(t, fiber.StatusNotFound, f.do(http.MethodDelete, "/api/v1/users/"+f.outsider.Key, f.admin, nil).status)
}

func TestOrganization(t *testing.T) {
	f := newFixture(t, false)

	res := f.do(http.MethodGet, "/api/v1/org", f.viewer, nil)
	require.Equal(t, fiber.StatusOK, res.status)
	assert.Equal(t, "acme", res.body["slug"])

	assert.Equal(t, fiber.StatusForbidden, f.do(http.MethodPut, "/api/v1/org", f.manager, map[string]string{"name": "Acme Corp"}).status)

	res = f.do(http.MethodPut, "/api/v1/org", f.admin, map[string]string{"name": "Acme Corp", "description": "Plant 1"})
	require.Equal(t, fiber.StatusOK, res.status)
	assert.Equal(t, "Acme Corp", res.body["name"])
	assert.Equal(t, "acme", res.body["slug"])
}

func TestActivityEndpoints(t *testing.T) {
	f := newFixture(t, false)
	key := f.createDocument(f.member, "Five whys")

	res := f.do(http.MethodGet, "/api/v1/documents/"+key+"/activity", f.viewer, nil)
	require.Equal(t, fiber.StatusOK, res.status)
	assert.EqualValues(t, 1, res.body["count"])

	assert.Equal(t, fiber.StatusBadRequest, f.do(http.MethodGet, "/api/v1/documents/"+key+"/activity?before=yesterday", f.viewer, nil).status)
	assert.Equal(t, fiber.StatusNotFound, f.do(http.MethodGet, "/api/v1/documents/"+key+"/activity", f.qmember, nil).status)

	assert.Equal(t, fiber.StatusForbidden, f.do(http.MethodGet, "/api/v1/activity", f.manager, nil).status)
	res = f.do(http.MethodGet, "/api/v1/activity", f.admin, nil)
	require.Equal(t, fiber.StatusOK, res.status)
	assert.EqualValues(t, 1, res.body["count"])

	res = f.do(http.MethodGet, "/api/v1/activity", f.outsider, nil)
	assert.EqualValues(t, 0, res.body["count"])
}

func TestGraphQLQueries(t *testing.T) {
	f := newFixture(t, false)
	opsDoc := f.createDocument(f.member, "Ops one")
	f.createDocument(f.qmember, "Quality one")
	f.do(http.MethodPost, "/api/v1/documents/"+opsDoc+"/comments", f.member, map[string]string{"content": "First!"})

	query := func(as *model.User, q string, vars map[string]interface{}) map[string]interface{} {
		res := f.do(http.MethodPost, "/api/v1/graphql", as, map[string]interface{}{"query": q, "variables": vars})
		require.Equal(t, fiber.StatusOK, res.status, string(res.raw))
		require.Nil(t, res.body["errors"], string(res.raw))
		return res.body["data"].(map[string]interface{})
	}

	data := query(f.qmember, `{ documents { key title status } }`, nil)
	docs := data["documents"].([]interface{})
	require.Len(t, docs, 1)
	assert.Equal(t, "Quality one", docs[0].(map[string]interface{})["title"])

	data = query(f.admin, `{ documents(status: draft) { key } }`, nil)
	assert.Len(t, data["documents"], 2)

	data = query(f.viewer, `query One($key: String!) { document(key: $key) { title comment_count sections { section_type title } } }`,
		map[string]interface{}{"key": opsDoc})
	doc := data["document"].(map[string]interface{})
	assert.Equal(t, "Ops one", doc["title"])
	assert.EqualValues(t, 1, doc["comment_count"])
	assert.Len(t, doc["sections"], len(model.SectionCatalog))

	data = query(f.qmember, `query One($key: String!) { document(key: $key) { title } }`, map[string]interface{}{"key": opsDoc})
	assert.Nil(t, data["document"])

	data = query(f.admin, `{ dashboard { total_documents by_status { draft in_progress } recent_activity { action } } }`, nil)
	dash := data["dashboard"].(map[string]interface{})
	assert.EqualValues(t, 2, dash["total_documents"])
	assert.EqualValues(t, 2, dash["by_status"].(map[string]interface{})["draft"])
	assert.Len(t, dash["recent_activity"], 3)

	data = query(f.qmember, `{ dashboard { total_documents recent_activity { action } } }`, nil)
	dash = data["dashboard"].(map[string]interface{})
	assert.EqualValues(t, 1, dash["total_documents"])
	assert.Len(t, dash["recent_activity"], 1)

	assert.Equal(t, fiber.StatusUnauthorized, f.do(http.MethodPost, "/api/v1/graphql", nil, map[string]string{"query": "{ documents { key } }"}).status)
}
