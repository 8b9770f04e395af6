package coach

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leancoach/coach-backend/model"
	"github.com/leancoach/coach-backend/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	reply    string
	err      error
	system   string
	turns    []Turn
	deadline bool
}

func (f *fakeModel) Generate(ctx context.Context, system string, turns []Turn) (string, error) {
	f.system = system
	f.turns = turns
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fixture struct {
	st   store.Store
	user *model.User
	doc  *model.A3Document
}

func setup(t *testing.T) fixture {
	t.Helper()
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "coach.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	now := time.Now().UTC()
	org := &model.Organization{Name: "Acme", Slug: "acme", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.CreateOrg(ctx, org))
	dept := &model.Department{OrgKey: org.Key, Name: "Operations", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.CreateDepartment(ctx, dept))
	user := model.NewUser(org.Key, "lead@acme.io", model.RoleMember)
	user.DepartmentKey = dept.Key
	user.Status = model.UserStatusActive
	require.NoError(t, st.CreateUser(ctx, user))

	doc := model.NewA3Document(org.Key, dept.Key, user.Key, "Reduce changeover time")
	_, err = st.CreateDocument(ctx, doc)
	require.NoError(t, err)
	_, err = st.UpdateSection(ctx, doc.Key, model.SectionBackground, "Changeovers take 45 minutes.", user.Key)
	require.NoError(t, err)
	_, err = st.UpdateSection(ctx, doc.Key, model.SectionGoal, "Under 15 minutes by Q3.", user.Key)
	require.NoError(t, err)

	return fixture{st: st, user: user, doc: doc}
}

func TestBuildSystemInstruction(t *testing.T) {
	doc := model.NewA3Document("o", "d", "u", "Scrap on line 3")
	sections := []model.A3Section{
		{SectionType: model.SectionGoal, Content: "Scrap below 2%"},
		{SectionType: model.SectionBackground, Content: "  Scrap is 6%  "},
		{SectionType: model.SectionRootCause, Content: ""},
	}

	got := BuildSystemInstruction(doc, sections, model.SectionGoal)
	assert.Contains(t, got, "Lean coach")
	assert.Contains(t, got, `"Scrap on line 3"`)
	assert.Contains(t, got, "## Goal / Target Condition [FOCUS]\nScrap below 2%")
	assert.Contains(t, got, "## Background\nScrap is 6%")
	assert.NotContains(t, got, "Root Cause Analysis")
	assert.Less(t, strings.Index(got, "## Background"), strings.Index(got, "## Goal"))

	empty := BuildSystemInstruction(doc, nil, "")
	assert.Contains(t, empty, "still empty")
	assert.NotContains(t, empty, "[FOCUS]")
}

func TestBuildTurns(t *testing.T) {
	history := []model.ChatMessage{
		{Role: model.ChatRoleUser, Content: "hi"},
		{Role: model.ChatRoleAssistant, Content: "what problem?"},
	}
	turns := BuildTurns(history, "scrap")
	require.Len(t, turns, 3)
	assert.Equal(t, Turn{Role: RoleModel, Text: "what problem?"}, turns[1])
	assert.Equal(t, Turn{Role: RoleUser, Text: "scrap"}, turns[2])
}

func TestSendPersistsExchange(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	m := &fakeModel{reply: "What did you see at the line?"}
	svc := NewService(f.st, m, time.Second)

	ex, err := svc.Send(ctx, f.user, f.doc, "  How do I start?  ", model.SectionGoal)
	require.NoError(t, err)
	assert.Equal(t, "How do I start?", ex.Message.Content)
	assert.Equal(t, "What did you see at the line?", ex.Reply.Content)
	assert.True(t, m.deadline)
	assert.Contains(t, m.system, "Changeovers take 45 minutes.")
	assert.Contains(t, m.system, "[FOCUS]")

	_, err = svc.Send(ctx, f.user, f.doc, "At the press.", "")
	require.NoError(t, err)
	require.Len(t, m.turns, 3)
	assert.Equal(t, RoleModel, m.turns[1].Role)

	history, err := svc.History(ctx, f.user, f.doc, 0)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, model.ChatRoleUser, history[0].Role)
	assert.Equal(t, model.ChatRoleAssistant, history[3].Role)

	require.NoError(t, svc.Clear(ctx, f.user, f.doc))
	history, err = svc.History(ctx, f.user, f.doc, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSendHistoryLimit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for i := 0; i < 30; i++ {
		require.NoError(t, f.st.AppendChatMessage(ctx, &model.ChatMessage{
			DocumentKey: f.doc.Key, UserKey: f.user.Key, Role: model.ChatRoleUser,
			Content: "m", CreatedAt: time.Now().UTC(),
		}))
	}

	m := &fakeModel{reply: "ok"}
	_, err := NewService(f.st, m, time.Second).Send(ctx, f.user, f.doc, "next", "")
	require.NoError(t, err)
	assert.Len(t, m.turns, DefaultHistoryLimit+1)
}

func TestSendModelFailureStoresNothing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	svc := NewService(f.st, &fakeModel{err: errors.New("quota exceeded")}, time.Second)

	_, err := svc.Send(ctx, f.user, f.doc, "help", "")
	assert.ErrorIs(t, err, ErrModelFailed)

	history, err := f.st.ListChatMessages(ctx, f.doc.Key, f.user.Key, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

type blockingModel struct{ calls int }

func (b *blockingModel) Generate(ctx context.Context, _ string, _ []Turn) (string, error) {
	b.calls++
	<-ctx.Done()
	return "", ctx.Err()
}

func TestSendModelTimeout(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	m := &blockingModel{}
	svc := NewService(f.st, m, 20*time.Millisecond)

	start := time.Now()
	_, err := svc.Send(ctx, f.user, f.doc, "is this a root cause?", model.SectionRootCause)
	assert.ErrorIs(t, err, ErrModelFailed)
	assert.Contains(t, err.Error(), context.DeadlineExceeded.Error())
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 1, m.calls)

	history, err := f.st.ListChatMessages(ctx, f.doc.Key, f.user.Key, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

type failingExchangeStore struct {
	store.Store
}

func (failingExchangeStore) AppendChatExchange(context.Context, *model.ChatMessage, *model.ChatMessage) error {
	return errors.New("disk full")
}

func TestSendStoreFailureLeavesNoHalfExchange(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	svc := NewService(failingExchangeStore{Store: f.st}, &fakeModel{reply: "ok"}, time.Second)

	_, err := svc.Send(ctx, f.user, f.doc, "help", "")
	assert.Error(t, err)

	history, err := f.st.ListChatMessages(ctx, f.doc.Key, f.user.Key, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSendValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	svc := NewService(f.st, &fakeModel{reply: "ok"}, 0)
	assert.Equal(t, DefaultTimeout, svc.Timeout)

	_, err := svc.Send(ctx, f.user, f.doc, "   ", "")
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = svc.Send(ctx, f.user, f.doc, strings.Repeat("é", MaxMessageLength+1), "")
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = svc.Send(ctx, f.user, f.doc, strings.Repeat("é", MaxMessageLength), "")
	assert.NoError(t, err)

	_, err = svc.Send(ctx, f.user, f.doc, "hi", "appendix")
	assert.ErrorIs(t, err, model.ErrInvalidSection)

	_, err = NewService(f.st, nil, 0).Send(ctx, f.user, f.doc, "hi", "")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNewGeminiModelRequiresKey(t *testing.T) {
	_, err := NewGeminiModel(context.Background(), "", "")
	assert.Error(t, err)
}
