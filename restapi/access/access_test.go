package access

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/leancoach/coach-backend/model"
	"github.com/leancoach/coach-backend/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRecorder struct{ calls int }

func (r *failingRecorder) Record(context.Context, model.ActivityLog) error {
	r.calls++
	return errors.New("broker down")
}

func setup(t *testing.T) (store.Store, *model.User, *model.User, *model.A3Document) {
	t.Helper()
	ctx := context.Background()
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "access.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	now := time.Now().UTC()
	org := &model.Organization{Name: "Acme", Slug: "acme", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.CreateOrg(ctx, org))
	dept := &model.Department{OrgKey: org.Key, Name: "Ops", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.CreateDepartment(ctx, dept))

	author := model.NewUser(org.Key, "author@acme.io", model.RoleMember)
	author.DepartmentKey = dept.Key
	require.NoError(t, st.CreateUser(ctx, author))
	viewer := model.NewUser(org.Key, "viewer@acme.io", model.RoleViewer)
	viewer.DepartmentKey = dept.Key
	require.NoError(t, st.CreateUser(ctx, viewer))

	doc := model.NewA3Document(org.Key, dept.Key, author.Key, "Scrap")
	_, err = st.CreateDocument(ctx, doc)
	require.NoError(t, err)
	return st, author, viewer, doc
}

func TestLoadDocument(t *testing.T) {
	st, author, viewer, doc := setup(t)
	ctx := context.Background()

	got, err := LoadDocument(ctx, viewer, st, doc.Key, Read, false)
	require.NoError(t, err)
	assert.Equal(t, doc.Key, got.Key)

	_, err = LoadDocument(ctx, viewer, st, doc.Key, Write, false)
	assert.ErrorIs(t, err, model.ErrPermissionDenied)

	_, err = LoadDocument(ctx, author, st, "missing", Read, false)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, st.SoftDeleteDocument(ctx, author.OrgKey, doc.Key, author.Key))
	_, err = LoadDocument(ctx, author, st, doc.Key, Read, false)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = LoadDocument(ctx, author, st, doc.Key, Write, true)
	assert.NoError(t, err)
}

func TestLoadEditableRejectsArchived(t *testing.T) {
	st, author, _, doc := setup(t)
	ctx := context.Background()

	require.NoError(t, doc.Transition(model.StatusArchived))
	require.NoError(t, st.UpdateDocument(ctx, doc))

	_, err := LoadEditable(ctx, author, st, doc.Key)
	assert.ErrorIs(t, err, model.ErrArchived)
}

func TestRecordSwallowsErrors(t *testing.T) {
	rec := &failingRecorder{}
	user := &model.User{Key: "u1", OrgKey: "o1"}

	Record(context.Background(), rec, user, "d1", model.ActionDocumentCreated, nil)
	Record(context.Background(), nil, user, "d1", model.ActionDocumentCreated, nil)
	assert.Equal(t, 1, rec.calls)
}
