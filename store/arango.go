package store

import (
	"context"
	"fmt"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/arangodb/go-driver/v2/arangodb/shared"
	"github.com/leancoach/coach-backend/database"
	"github.com/leancoach/coach-backend/model"
)

// ArangoStore implements Store on the ArangoDB collections created by database.InitializeDatabase
type ArangoStore struct {
	db database.DBConnection
}

var _ Store = (*ArangoStore)(nil)

// NewArangoStore wraps an initialized database connection
func NewArangoStore(db database.DBConnection) *ArangoStore {
	return &ArangoStore{db: db}
}

// Close is a no-op; the HTTP connection pool is owned by the driver
func (s *ArangoStore) Close() error { return nil }

func arangoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case shared.IsNotFound(err):
		return ErrNotFound
	case shared.IsConflict(err):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func queryAll[T any](ctx context.Context, db arangodb.Database, query string, bindVars map[string]interface{}) ([]T, error) {
	cursor, err := db.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return nil, arangoErr(err)
	}
	defer cursor.Close()

	out := []T{}
	for cursor.HasMore() {
		var item T
		if _, err := cursor.ReadDocument(ctx, &item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func queryOne[T any](ctx context.Context, db arangodb.Database, query string, bindVars map[string]interface{}) (*T, error) {
	items, err := queryAll[T](ctx, db, query, bindVars)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return &items[0], nil
}

// exec runs a modifying query that returns one row per touched document
func (s *ArangoStore) exec(ctx context.Context, query string, bindVars map[string]interface{}) (int, error) {
	keys, err := queryAll[string](ctx, s.db.Database, query, bindVars)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (s *ArangoStore) execOne(ctx context.Context, query string, bindVars map[string]interface{}) error {
	n, err := s.exec(ctx, query, bindVars)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ArangoStore) insert(ctx context.Context, collection string, doc interface{}) error {
	_, err := s.db.Collections[collection].CreateDocument(ctx, doc)
	return arangoErr(err)
}

// ─── Orgs ───────────────────────────────────────────────────────────────────

// CreateOrg inserts an organization
func (s *ArangoStore) CreateOrg(ctx context.Context, org *model.Organization) error {
	ensureKey(&org.Key)
	return s.insert(ctx, database.ColOrgs, org)
}

// GetOrg fetches an organization by key
func (s *ArangoStore) GetOrg(ctx context.Context, key string) (*model.Organization, error) {
	return queryOne[model.Organization](ctx, s.db.Database, `
		FOR o IN orgs
			FILTER o._key == @key
			LIMIT 1
			RETURN o
	`, map[string]interface{}{"key": key})
}

// GetOrgBySlug fetches an organization by slug
func (s *ArangoStore) GetOrgBySlug(ctx context.Context, slug string) (*model.Organization, error) {
	return queryOne[model.Organization](ctx, s.db.Database, `
		FOR o IN orgs
			FILTER o.slug == @slug
			LIMIT 1
			RETURN o
	`, map[string]interface{}{"slug": slug})
}

// UpdateOrg saves name, slug and description
func (s *ArangoStore) UpdateOrg(ctx context.Context, org *model.Organization) error {
	return s.execOne(ctx, `
		FOR o IN orgs
			FILTER o._key == @key
			UPDATE o WITH { name: @name, slug: @slug, description: @description, updated_at: @updated_at } IN orgs
			RETURN NEW._key
	`, map[string]interface{}{
		"key":         org.Key,
		"name":        org.Name,
		"slug":        org.Slug,
		"description": org.Description,
		"updated_at":  org.UpdatedAt,
	})
}

// ─── Departments ────────────────────────────────────────────────────────────

// CreateDepartment inserts a department; names are unique among live departments of the org
func (s *ArangoStore) CreateDepartment(ctx context.Context, d *model.Department) error {
	ensureKey(&d.Key)
	taken, err := s.departmentNameTaken(ctx, d.OrgKey, d.Name, "")
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: department %q exists", ErrConflict, d.Name)
	}
	return s.insert(ctx, database.ColDepartments, d)
}

func (s *ArangoStore) departmentNameTaken(ctx context.Context, orgKey, name, exceptKey string) (bool, error) {
	keys, err := queryAll[string](ctx, s.db.Database, `
		FOR d IN departments
			FILTER d.org_key == @org AND d.deleted_at == null
			   AND LOWER(d.name) == LOWER(@name) AND d._key != @except
			LIMIT 1
			RETURN d._key
	`, map[string]interface{}{"org": orgKey, "name": name, "except": exceptKey})
	return len(keys) > 0, err
}

// GetDepartment fetches a live department in an org
func (s *ArangoStore) GetDepartment(ctx context.Context, orgKey, key string) (*model.Department, error) {
	return queryOne[model.Department](ctx, s.db.Database, `
		FOR d IN departments
			FILTER d._key == @key AND d.org_key == @org AND d.deleted_at == null
			LIMIT 1
			RETURN d
	`, map[string]interface{}{"key": key, "org": orgKey})
}

// ListDepartments lists live departments ordered by name
func (s *ArangoStore) ListDepartments(ctx context.Context, orgKey string) ([]model.Department, error) {
	return queryAll[model.Department](ctx, s.db.Database, `
		FOR d IN departments
			FILTER d.org_key == @org AND d.deleted_at == null
			SORT LOWER(d.name)
			RETURN d
	`, map[string]interface{}{"org": orgKey})
}

// UpdateDepartment saves name and description
func (s *ArangoStore) UpdateDepartment(ctx context.Context, d *model.Department) error {
	taken, err := s.departmentNameTaken(ctx, d.OrgKey, d.Name, d.Key)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: department %q exists", ErrConflict, d.Name)
	}
	return s.execOne(ctx, `
		FOR d IN departments
			FILTER d._key == @key AND d.org_key == @org AND d.deleted_at == null
			UPDATE d WITH { name: @name, description: @description, updated_at: @updated_at } IN departments
			RETURN NEW._key
	`, map[string]interface{}{
		"key":         d.Key,
		"org":         d.OrgKey,
		"name":        d.Name,
		"description": d.Description,
		"updated_at":  d.UpdatedAt,
	})
}

// DeleteDepartment soft deletes a department without live documents
func (s *ArangoStore) DeleteDepartment(ctx context.Context, orgKey, key string) error {
	counts, err := queryAll[int](ctx, s.db.Database, `
		FOR d IN a3_documents
			FILTER d.org_key == @org AND d.department_key == @key AND d.deleted_at == null
			COLLECT WITH COUNT INTO n
			RETURN n
	`, map[string]interface{}{"org": orgKey, "key": key})
	if err != nil {
		return err
	}
	if len(counts) > 0 && counts[0] > 0 {
		return fmt.Errorf("%w: department has %d documents", ErrConflict, counts[0])
	}
	return s.execOne(ctx, `
		FOR d IN departments
			FILTER d._key == @key AND d.org_key == @org AND d.deleted_at == null
			UPDATE d WITH { deleted_at: @now } IN departments
			RETURN NEW._key
	`, map[string]interface{}{"key": key, "org": orgKey, "now": time.Now().UTC()})
}

// ─── Users ──────────────────────────────────────────────────────────────────

// CreateUser inserts a user with a normalized email
func (s *ArangoStore) CreateUser(ctx context.Context, u *model.User) error {
	ensureKey(&u.Key)
	u.Email = model.NormalizeEmail(u.Email)
	return s.insert(ctx, database.ColUsers, u)
}

// GetUser fetches a user by key
func (s *ArangoStore) GetUser(ctx context.Context, key string) (*model.User, error) {
	return queryOne[model.User](ctx, s.db.Database, `
		FOR u IN users
			FILTER u._key == @key
			LIMIT 1
			RETURN u
	`, map[string]interface{}{"key": key})
}

// GetUserByEmail fetches a user by email, case-insensitively
func (s *ArangoStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return queryOne[model.User](ctx, s.db.Database, `
		FOR u IN users
			FILTER u.email == @email
			LIMIT 1
			RETURN u
	`, map[string]interface{}{"email": model.NormalizeEmail(email)})
}

// ListUsers lists users of an org ordered by email
func (s *ArangoStore) ListUsers(ctx context.Context, orgKey string) ([]model.User, error) {
	return queryAll[model.User](ctx, s.db.Database, `
		FOR u IN users
			FILTER u.org_key == @org
			SORT u.email
			RETURN u
	`, map[string]interface{}{"org": orgKey})
}

// UpdateUser saves mutable user fields
func (s *ArangoStore) UpdateUser(ctx context.Context, u *model.User) error {
	return s.execOne(ctx, `
		FOR u IN users
			FILTER u._key == @key AND u.org_key == @org
			UPDATE u WITH {
				department_key: @department_key,
				email: @email,
				display_name: @display_name,
				password_hash: @password_hash,
				role: @role,
				status: @status,
				updated_at: @updated_at
			} IN users
			RETURN NEW._key
	`, map[string]interface{}{
		"key":            u.Key,
		"org":            u.OrgKey,
		"department_key": u.DepartmentKey,
		"email":          model.NormalizeEmail(u.Email),
		"display_name":   u.DisplayName,
		"password_hash":  u.PasswordHash,
		"role":           string(u.Role),
		"status":         u.Status,
		"updated_at":     u.UpdatedAt,
	})
}

// DeleteUser removes a user from an org
func (s *ArangoStore) DeleteUser(ctx context.Context, orgKey, key string) error {
	return s.execOne(ctx, `
		FOR u IN users
			FILTER u._key == @key AND u.org_key == @org
			REMOVE u IN users
			RETURN OLD._key
	`, map[string]interface{}{"key": key, "org": orgKey})
}

// ─── Documents ──────────────────────────────────────────────────────────────

type arangoSection struct {
	model.A3Section
	Position int `json:"position"`
}

// CreateDocument inserts a document and its eight sections in one AQL query
func (s *ArangoStore) CreateDocument(ctx context.Context, doc *model.A3Document) ([]model.A3Section, error) {
	ensureKey(&doc.Key)
	sections := newSections(doc)

	rows := make([]arangoSection, len(sections))
	for i, sec := range sections {
		rows[i] = arangoSection{A3Section: sec, Position: i}
	}

	_, err := s.exec(ctx, `
		LET created = (INSERT @doc INTO a3_documents RETURN NEW._key)
		FOR s IN @sections
			INSERT s INTO a3_sections
			RETURN NEW._key
	`, map[string]interface{}{"doc": doc, "sections": rows})
	if err != nil {
		return nil, err
	}
	return sections, nil
}

// GetDocument fetches a document in an org, including soft-deleted ones
func (s *ArangoStore) GetDocument(ctx context.Context, orgKey, key string) (*model.A3Document, error) {
	return queryOne[model.A3Document](ctx, s.db.Database, `
		FOR d IN a3_documents
			FILTER d._key == @key AND d.org_key == @org
			LIMIT 1
			RETURN d
	`, map[string]interface{}{"key": key, "org": orgKey})
}

// ListDocuments lists documents newest-updated first
func (s *ArangoStore) ListDocuments(ctx context.Context, f DocumentFilter) ([]model.A3Document, error) {
	if f.Restricted && len(f.VisibleDepartments) == 0 && f.VisibleAuthor == "" {
		return []model.A3Document{}, nil
	}
	depts := f.VisibleDepartments
	if depts == nil {
		depts = []string{}
	}

	// Empty bind values disable the corresponding filter.
	return queryAll[model.A3Document](ctx, s.db.Database, `
		FOR d IN a3_documents
			FILTER d.org_key == @org
			FILTER @include_deleted OR d.deleted_at == null
			FILTER @department == "" OR d.department_key == @department
			FILTER @author == "" OR d.author_key == @author
			FILTER @status == "" OR d.status == @status
			FILTER !@restricted OR d.department_key IN @visible_departments
			   OR (@visible_author != "" AND d.author_key == @visible_author)
			SORT DATE_TIMESTAMP(d.updated_at) DESC, d._key
			LIMIT @offset, @limit
			RETURN d
	`, map[string]interface{}{
		"org":                 f.OrgKey,
		"include_deleted":     f.IncludeDeleted,
		"department":          f.DepartmentKey,
		"author":              f.AuthorKey,
		"status":              string(f.Status),
		"restricted":          f.Restricted,
		"visible_departments": depts,
		"visible_author":      f.VisibleAuthor,
		"offset":              max(f.Offset, 0),
		"limit":               clampLimit(f.Limit),
	})
}

// UpdateDocument saves title, department, status and timestamps
func (s *ArangoStore) UpdateDocument(ctx context.Context, d *model.A3Document) error {
	return s.execOne(ctx, `
		FOR d IN a3_documents
			FILTER d._key == @key AND d.org_key == @org
			UPDATE d WITH { department_key: @department, title: @title, status: @status, updated_at: @updated_at } IN a3_documents
			RETURN NEW._key
	`, map[string]interface{}{
		"key":        d.Key,
		"org":        d.OrgKey,
		"department": d.DepartmentKey,
		"title":      d.Title,
		"status":     string(d.Status),
		"updated_at": d.UpdatedAt,
	})
}

// SoftDeleteDocument marks a live document deleted
func (s *ArangoStore) SoftDeleteDocument(ctx context.Context, orgKey, key, deletedBy string) error {
	return s.execOne(ctx, `
		FOR d IN a3_documents
			FILTER d._key == @key AND d.org_key == @org AND d.deleted_at == null
			UPDATE d WITH { deleted_at: @now, deleted_by: @by } IN a3_documents
			RETURN NEW._key
	`, map[string]interface{}{"key": key, "org": orgKey, "now": time.Now().UTC(), "by": deletedBy})
}

// RestoreDocument clears the soft-delete marker
func (s *ArangoStore) RestoreDocument(ctx context.Context, orgKey, key string) error {
	return s.execOne(ctx, `
		FOR d IN a3_documents
			FILTER d._key == @key AND d.org_key == @org AND d.deleted_at != null
			UPDATE d WITH { deleted_at: null, deleted_by: null, updated_at: @now } IN a3_documents
				OPTIONS { keepNull: false }
			RETURN NEW._key
	`, map[string]interface{}{"key": key, "org": orgKey, "now": time.Now().UTC()})
}

// CountDocumentsByStatus counts live documents per status
func (s *ArangoStore) CountDocumentsByStatus(ctx context.Context, orgKey, departmentKey string) (map[model.A3Status]int, error) {
	type statusCount struct {
		Status string `json:"status"`
		Count  int    `json:"count"`
	}
	rows, err := queryAll[statusCount](ctx, s.db.Database, `
		FOR d IN a3_documents
			FILTER d.org_key == @org AND d.deleted_at == null
			FILTER @department == "" OR d.department_key == @department
			COLLECT status = d.status WITH COUNT INTO n
			RETURN { status: status, count: n }
	`, map[string]interface{}{"org": orgKey, "department": departmentKey})
	if err != nil {
		return nil, err
	}

	counts := make(map[model.A3Status]int, len(model.AllStatuses))
	for _, st := range model.AllStatuses {
		counts[st] = 0
	}
	for _, r := range rows {
		counts[model.A3Status(r.Status)] = r.Count
	}
	return counts, nil
}

// ─── Sections ───────────────────────────────────────────────────────────────

// ListSections returns the sections of a document in layout order
func (s *ArangoStore) ListSections(ctx context.Context, documentKey string) ([]model.A3Section, error) {
	return queryAll[model.A3Section](ctx, s.db.Database, `
		FOR s IN a3_sections
			FILTER s.document_key == @doc
			SORT s.position
			RETURN UNSET(s, "position")
	`, map[string]interface{}{"doc": documentKey})
}

// UpdateSection replaces a section's content and bumps the parent document
func (s *ArangoStore) UpdateSection(ctx context.Context, documentKey string, st model.SectionType, content, updatedBy string) (*model.A3Section, error) {
	now := time.Now().UTC()
	sec, err := queryOne[model.A3Section](ctx, s.db.Database, `
		FOR s IN a3_sections
			FILTER s.document_key == @doc AND s.section_type == @type
			UPDATE s WITH { content: @content, updated_by: @by, updated_at: @now } IN a3_sections
			RETURN UNSET(NEW, "position")
	`, map[string]interface{}{"doc": documentKey, "type": string(st), "content": content, "by": updatedBy, "now": now})
	if err != nil {
		return nil, err
	}
	if _, err := s.exec(ctx, `
		FOR d IN a3_documents
			FILTER d._key == @doc
			UPDATE d WITH { updated_at: @now } IN a3_documents
			RETURN NEW._key
	`, map[string]interface{}{"doc": documentKey, "now": now}); err != nil {
		return nil, err
	}
	return sec, nil
}

// ─── Comments ───────────────────────────────────────────────────────────────

// CreateComment inserts a comment
func (s *ArangoStore) CreateComment(ctx context.Context, c *model.Comment) error {
	ensureKey(&c.Key)
	return s.insert(ctx, database.ColComments, c)
}

// GetComment fetches a live comment on a document
func (s *ArangoStore) GetComment(ctx context.Context, documentKey, key string) (*model.Comment, error) {
	return queryOne[model.Comment](ctx, s.db.Database, `
		FOR c IN comments
			FILTER c._key == @key AND c.document_key == @doc AND c.deleted_at == null
			LIMIT 1
			RETURN c
	`, map[string]interface{}{"key": key, "doc": documentKey})
}

// ListComments lists live comments oldest first, optionally for one section
func (s *ArangoStore) ListComments(ctx context.Context, documentKey string, st model.SectionType) ([]model.Comment, error) {
	return queryAll[model.Comment](ctx, s.db.Database, `
		FOR c IN comments
			FILTER c.document_key == @doc AND c.deleted_at == null
			FILTER @section == "" OR c.section_type == @section
			SORT DATE_TIMESTAMP(c.created_at), c._key
			RETURN c
	`, map[string]interface{}{"doc": documentKey, "section": string(st)})
}

// SoftDeleteComment marks a comment deleted
func (s *ArangoStore) SoftDeleteComment(ctx context.Context, documentKey, key string) error {
	return s.execOne(ctx, `
		FOR c IN comments
			FILTER c._key == @key AND c.document_key == @doc AND c.deleted_at == null
			UPDATE c WITH { deleted_at: @now } IN comments
			RETURN NEW._key
	`, map[string]interface{}{"key": key, "doc": documentKey, "now": time.Now().UTC()})
}

// ─── Activity ───────────────────────────────────────────────────────────────

// AppendActivity inserts an activity entry. Re-delivered entries with a known key are ignored.
func (s *ArangoStore) AppendActivity(ctx context.Context, e *model.ActivityLog) error {
	ensureKey(&e.Key)
	_, err := s.exec(ctx, `
		INSERT @entry INTO activity_log OPTIONS { overwriteMode: "ignore" }
		RETURN NEW._key
	`, map[string]interface{}{"entry": e})
	return err
}

// ListActivity lists activity newest first
func (s *ArangoStore) ListActivity(ctx context.Context, f ActivityFilter) ([]model.ActivityLog, error) {
	var before int64
	if !f.Before.IsZero() {
		before = f.Before.UnixMilli()
	}
	return queryAll[model.ActivityLog](ctx, s.db.Database, `
		FOR a IN activity_log
			FILTER a.org_key == @org
			FILTER @doc == "" OR a.document_key == @doc
			FILTER @user == "" OR a.user_key == @user
			FILTER @before == 0 OR DATE_TIMESTAMP(a.created_at) < @before
			SORT DATE_TIMESTAMP(a.created_at) DESC, a._key
			LIMIT @limit
			RETURN a
	`, map[string]interface{}{
		"org":    f.OrgKey,
		"doc":    f.DocumentKey,
		"user":   f.UserKey,
		"before": before,
		"limit":  clampLimit(f.Limit),
	})
}

// ─── Chat ───────────────────────────────────────────────────────────────────

// AppendChatMessage appends a message to a document/user thread
func (s *ArangoStore) AppendChatMessage(ctx context.Context, m *model.ChatMessage) error {
	ensureKey(&m.Key)
	_, err := s.exec(ctx, `
		LET last = FIRST(
			FOR c IN chat_messages
				FILTER c.document_key == @doc AND c.user_key == @user
				COLLECT AGGREGATE mx = MAX(c.seq)
				RETURN mx
		)
		INSERT MERGE(@msg, { seq: (last || 0) + 1 }) INTO chat_messages
		RETURN NEW._key
	`, map[string]interface{}{"doc": m.DocumentKey, "user": m.UserKey, "msg": m})
	return err
}

// AppendChatExchange appends a question and its answer in one AQL query
func (s *ArangoStore) AppendChatExchange(ctx context.Context, question, answer *model.ChatMessage) error {
	ensureKey(&question.Key)
	ensureKey(&answer.Key)
	_, err := s.exec(ctx, `
		LET last = FIRST(
			FOR c IN chat_messages
				FILTER c.document_key == @doc AND c.user_key == @user
				COLLECT AGGREGATE mx = MAX(c.seq)
				RETURN mx
		)
		FOR i IN 0..1
			INSERT MERGE(@msgs[i], { seq: (last || 0) + 1 + i }) INTO chat_messages
			RETURN NEW._key
	`, map[string]interface{}{
		"doc":  question.DocumentKey,
		"user": question.UserKey,
		"msgs": []*model.ChatMessage{question, answer},
	})
	return err
}

// ListChatMessages returns the last limit messages of a thread in chronological order
func (s *ArangoStore) ListChatMessages(ctx context.Context, documentKey, userKey string, limit int) ([]model.ChatMessage, error) {
	return queryAll[model.ChatMessage](ctx, s.db.Database, `
		LET recent = (
			FOR c IN chat_messages
				FILTER c.document_key == @doc AND c.user_key == @user
				SORT c.seq DESC
				LIMIT @limit
				RETURN c
		)
		FOR c IN recent
			SORT c.seq
			RETURN UNSET(c, "seq")
	`, map[string]interface{}{"doc": documentKey, "user": userKey, "limit": clampLimit(limit)})
}

// ClearChat deletes a user's thread on a document
func (s *ArangoStore) ClearChat(ctx context.Context, documentKey, userKey string) error {
	_, err := s.exec(ctx, `
		FOR c IN chat_messages
			FILTER c.document_key == @doc AND c.user_key == @user
			REMOVE c IN chat_messages
			RETURN OLD._key
	`, map[string]interface{}{"doc": documentKey, "user": userKey})
	return err
}

// ─── Invitations ────────────────────────────────────────────────────────────

// CreateInvitation inserts an invitation
func (s *ArangoStore) CreateInvitation(ctx context.Context, inv *model.Invitation) error {
	ensureKey(&inv.Key)
	return s.insert(ctx, database.ColInvitations, inv)
}

// GetInvitationByToken fetches an invitation by its secret token
func (s *ArangoStore) GetInvitationByToken(ctx context.Context, token string) (*model.Invitation, error) {
	return queryOne[model.Invitation](ctx, s.db.Database, `
		FOR inv IN invitations
			FILTER inv.token == @token
			LIMIT 1
			RETURN inv
	`, map[string]interface{}{"token": token})
}

// MarkInvitationAccepted stamps accepted_at once
func (s *ArangoStore) MarkInvitationAccepted(ctx context.Context, token string, at time.Time) error {
	return s.execOne(ctx, `
		FOR inv IN invitations
			FILTER inv.token == @token AND inv.accepted_at == null
			UPDATE inv WITH { accepted_at: @at } IN invitations
			RETURN NEW._key
	`, map[string]interface{}{"token": token, "at": at.UTC()})
}

// DeletePendingInvitations removes the unaccepted invitations of an email in an org
func (s *ArangoStore) DeletePendingInvitations(ctx context.Context, orgKey, email string) (int, error) {
	return s.exec(ctx, `
		FOR inv IN invitations
			FILTER inv.org_key == @org AND inv.email == @email AND inv.accepted_at == null
			REMOVE inv IN invitations
			RETURN OLD._key
	`, map[string]interface{}{"org": orgKey, "email": email})
}

// DeleteExpiredInvitations purges unaccepted invitations past expiry
func (s *ArangoStore) DeleteExpiredInvitations(ctx context.Context, now time.Time) (int, error) {
	return s.exec(ctx, `
		FOR inv IN invitations
			FILTER inv.accepted_at == null AND DATE_TIMESTAMP(inv.expires_at) < @now
			REMOVE inv IN invitations
			RETURN OLD._key
	`, map[string]interface{}{"now": now.UnixMilli()})
}
