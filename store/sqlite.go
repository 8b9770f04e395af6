package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leancoach/coach-backend/model"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteStore implements Store on a single SQLite file
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path and migrates the schema
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("store: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	// One connection keeps pragmas in effect and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS orgs (
	key TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS departments (
	key TEXT PRIMARY KEY,
	org_key TEXT NOT NULL REFERENCES orgs(key),
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	deleted_at INTEGER
);
CREATE UNIQUE INDEX IF NOT EXISTS departments_org_name
	ON departments(org_key, name COLLATE NOCASE) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS users (
	key TEXT PRIMARY KEY,
	org_key TEXT NOT NULL REFERENCES orgs(key),
	department_key TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL UNIQUE COLLATE NOCASE,
	display_name TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS users_org ON users(org_key);

CREATE TABLE IF NOT EXISTS a3_documents (
	key TEXT PRIMARY KEY,
	org_key TEXT NOT NULL REFERENCES orgs(key),
	department_key TEXT NOT NULL,
	author_key TEXT NOT NULL,
	title TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	deleted_at INTEGER,
	deleted_by TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS a3_documents_org ON a3_documents(org_key, department_key);
CREATE INDEX IF NOT EXISTS a3_documents_updated ON a3_documents(org_key, updated_at);

CREATE TABLE IF NOT EXISTS a3_sections (
	key TEXT PRIMARY KEY,
	document_key TEXT NOT NULL REFERENCES a3_documents(key),
	section_type TEXT NOT NULL,
	position INTEGER NOT NULL,
	content TEXT NOT NULL DEFAULT '',
	updated_by TEXT NOT NULL DEFAULT '',
	updated_at INTEGER NOT NULL,
	UNIQUE(document_key, section_type)
);

CREATE TABLE IF NOT EXISTS comments (
	key TEXT PRIMARY KEY,
	document_key TEXT NOT NULL REFERENCES a3_documents(key),
	section_type TEXT NOT NULL DEFAULT '',
	author_key TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	deleted_at INTEGER
);
CREATE INDEX IF NOT EXISTS comments_document ON comments(document_key, created_at);

CREATE TABLE IF NOT EXISTS activity_log (
	key TEXT PRIMARY KEY,
	org_key TEXT NOT NULL,
	document_key TEXT NOT NULL DEFAULT '',
	user_key TEXT NOT NULL,
	action TEXT NOT NULL,
	details TEXT NOT NULL DEFAULT '{}',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS activity_org ON activity_log(org_key, created_at);
CREATE INDEX IF NOT EXISTS activity_document ON activity_log(document_key, created_at);

CREATE TABLE IF NOT EXISTS chat_messages (
	key TEXT PRIMARY KEY,
	document_key TEXT NOT NULL,
	user_key TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	section_type TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	seq INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS chat_thread ON chat_messages(document_key, user_key, seq);

CREATE TABLE IF NOT EXISTS invitations (
	key TEXT PRIMARY KEY,
	org_key TEXT NOT NULL,
	email TEXT NOT NULL COLLATE NOCASE,
	role TEXT NOT NULL,
	department_key TEXT NOT NULL DEFAULT '',
	token TEXT NOT NULL UNIQUE,
	expires_at INTEGER NOT NULL,
	accepted_at INTEGER,
	created_at INTEGER NOT NULL
);
`

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(sqliteSchema)
	return err
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ─── helpers ────────────────────────────────────────────────────────────────

func toUnix(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return toUnix(*t)
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromUnix(n.Int64)
	return &t
}

// mapErr translates driver errors into store sentinels
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

func requireRow(res sql.Result, err error) error {
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// ─── Orgs ───────────────────────────────────────────────────────────────────

// CreateOrg inserts an organization
func (s *SQLiteStore) CreateOrg(ctx context.Context, org *model.Organization) error {
	ensureKey(&org.Key)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO orgs (key, name, slug, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		org.Key, org.Name, org.Slug, org.Description, toUnix(org.CreatedAt), toUnix(org.UpdatedAt))
	return mapErr(err)
}

func scanOrg(row rowScanner) (*model.Organization, error) {
	var o model.Organization
	var created, updated int64
	if err := row.Scan(&o.Key, &o.Name, &o.Slug, &o.Description, &created, &updated); err != nil {
		return nil, mapErr(err)
	}
	o.CreatedAt, o.UpdatedAt = fromUnix(created), fromUnix(updated)
	return &o, nil
}

// GetOrg fetches an organization by key
func (s *SQLiteStore) GetOrg(ctx context.Context, key string) (*model.Organization, error) {
	return scanOrg(s.db.QueryRowContext(ctx,
		`SELECT key, name, slug, description, created_at, updated_at FROM orgs WHERE key = ?`, key))
}

// GetOrgBySlug fetches an organization by slug
func (s *SQLiteStore) GetOrgBySlug(ctx context.Context, slug string) (*model.Organization, error) {
	return scanOrg(s.db.QueryRowContext(ctx,
		`SELECT key, name, slug, description, created_at, updated_at FROM orgs WHERE slug = ?`, slug))
}

// UpdateOrg saves name, slug and description
func (s *SQLiteStore) UpdateOrg(ctx context.Context, org *model.Organization) error {
	return requireRow(s.db.ExecContext(ctx,
		`UPDATE orgs SET name = ?, slug = ?, description = ?, updated_at = ? WHERE key = ?`,
		org.Name, org.Slug, org.Description, toUnix(org.UpdatedAt), org.Key))
}

// ─── Departments ────────────────────────────────────────────────────────────

// CreateDepartment inserts a department
func (s *SQLiteStore) CreateDepartment(ctx context.Context, d *model.Department) error {
	ensureKey(&d.Key)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO departments (key, org_key, name, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		d.Key, d.OrgKey, d.Name, d.Description, toUnix(d.CreatedAt), toUnix(d.UpdatedAt))
	return mapErr(err)
}

const departmentColumns = `key, org_key, name, description, created_at, updated_at, deleted_at`

func scanDepartment(row rowScanner) (*model.Department, error) {
	var d model.Department
	var created, updated int64
	var deleted sql.NullInt64
	if err := row.Scan(&d.Key, &d.OrgKey, &d.Name, &d.Description, &created, &updated, &deleted); err != nil {
		return nil, mapErr(err)
	}
	d.CreatedAt, d.UpdatedAt, d.DeletedAt = fromUnix(created), fromUnix(updated), timePtr(deleted)
	return &d, nil
}

// GetDepartment fetches a live department in an org
func (s *SQLiteStore) GetDepartment(ctx context.Context, orgKey, key string) (*model.Department, error) {
	return scanDepartment(s.db.QueryRowContext(ctx,
		`SELECT `+departmentColumns+` FROM departments WHERE org_key = ? AND key = ? AND deleted_at IS NULL`, orgKey, key))
}

// ListDepartments lists live departments ordered by name
func (s *SQLiteStore) ListDepartments(ctx context.Context, orgKey string) ([]model.Department, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+departmentColumns+` FROM departments WHERE org_key = ? AND deleted_at IS NULL ORDER BY name COLLATE NOCASE`, orgKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// UpdateDepartment saves name and description
func (s *SQLiteStore) UpdateDepartment(ctx context.Context, d *model.Department) error {
	return requireRow(s.db.ExecContext(ctx,
		`UPDATE departments SET name = ?, description = ?, updated_at = ? WHERE org_key = ? AND key = ? AND deleted_at IS NULL`,
		d.Name, d.Description, toUnix(d.UpdatedAt), d.OrgKey, d.Key))
}

// DeleteDepartment soft deletes a department without live documents
func (s *SQLiteStore) DeleteDepartment(ctx context.Context, orgKey, key string) error {
	var live int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM a3_documents WHERE org_key = ? AND department_key = ? AND deleted_at IS NULL`,
		orgKey, key).Scan(&live); err != nil {
		return err
	}
	if live > 0 {
		return fmt.Errorf("%w: department has %d documents", ErrConflict, live)
	}
	return requireRow(s.db.ExecContext(ctx,
		`UPDATE departments SET deleted_at = ? WHERE org_key = ? AND key = ? AND deleted_at IS NULL`,
		toUnix(time.Now()), orgKey, key))
}

// ─── Users ──────────────────────────────────────────────────────────────────

const userColumns = `key, org_key, department_key, email, display_name, password_hash, role, status, created_at, updated_at`

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	var role string
	var created, updated int64
	if err := row.Scan(&u.Key, &u.OrgKey, &u.DepartmentKey, &u.Email, &u.DisplayName, &u.PasswordHash,
		&role, &u.Status, &created, &updated); err != nil {
		return nil, mapErr(err)
	}
	u.Role = model.Role(role)
	u.CreatedAt, u.UpdatedAt = fromUnix(created), fromUnix(updated)
	return &u, nil
}

// CreateUser inserts a user
func (s *SQLiteStore) CreateUser(ctx context.Context, u *model.User) error {
	ensureKey(&u.Key)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Key, u.OrgKey, u.DepartmentKey, model.NormalizeEmail(u.Email), u.DisplayName, u.PasswordHash,
		string(u.Role), u.Status, toUnix(u.CreatedAt), toUnix(u.UpdatedAt))
	return mapErr(err)
}

// GetUser fetches a user by key
func (s *SQLiteStore) GetUser(ctx context.Context, key string) (*model.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE key = ?`, key))
}

// GetUserByEmail fetches a user by email, case-insensitively
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, model.NormalizeEmail(email)))
}

// ListUsers lists users of an org ordered by email
func (s *SQLiteStore) ListUsers(ctx context.Context, orgKey string) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE org_key = ? ORDER BY email`, orgKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// UpdateUser saves mutable user fields
func (s *SQLiteStore) UpdateUser(ctx context.Context, u *model.User) error {
	return requireRow(s.db.ExecContext(ctx,
		`UPDATE users SET department_key = ?, email = ?, display_name = ?, password_hash = ?, role = ?, status = ?, updated_at = ?
		 WHERE key = ? AND org_key = ?`,
		u.DepartmentKey, model.NormalizeEmail(u.Email), u.DisplayName, u.PasswordHash, string(u.Role), u.Status,
		toUnix(u.UpdatedAt), u.Key, u.OrgKey))
}

// DeleteUser removes a user from an org
func (s *SQLiteStore) DeleteUser(ctx context.Context, orgKey, key string) error {
	return requireRow(s.db.ExecContext(ctx, `DELETE FROM users WHERE org_key = ? AND key = ?`, orgKey, key))
}

// ─── Documents ──────────────────────────────────────────────────────────────

const documentColumns = `key, org_key, department_key, author_key, title, status, created_at, updated_at, deleted_at, deleted_by`

func scanDocument(row rowScanner) (*model.A3Document, error) {
	var d model.A3Document
	var status string
	var created, updated int64
	var deleted sql.NullInt64
	if err := row.Scan(&d.Key, &d.OrgKey, &d.DepartmentKey, &d.AuthorKey, &d.Title, &status,
		&created, &updated, &deleted, &d.DeletedBy); err != nil {
		return nil, mapErr(err)
	}
	d.Status = model.A3Status(status)
	d.CreatedAt, d.UpdatedAt, d.DeletedAt = fromUnix(created), fromUnix(updated), timePtr(deleted)
	return &d, nil
}

// CreateDocument inserts a document and its eight sections in one transaction
func (s *SQLiteStore) CreateDocument(ctx context.Context, doc *model.A3Document) ([]model.A3Section, error) {
	ensureKey(&doc.Key)
	sections := newSections(doc)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO a3_documents (`+documentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.Key, doc.OrgKey, doc.DepartmentKey, doc.AuthorKey, doc.Title, string(doc.Status),
		toUnix(doc.CreatedAt), toUnix(doc.UpdatedAt), nullableTime(doc.DeletedAt), doc.DeletedBy); err != nil {
		return nil, mapErr(err)
	}
	for i, sec := range sections {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO a3_sections (key, document_key, section_type, position, content, updated_by, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sec.Key, sec.DocumentKey, string(sec.SectionType), i, sec.Content, sec.UpdatedBy, toUnix(sec.UpdatedAt)); err != nil {
			return nil, mapErr(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return sections, nil
}

// GetDocument fetches a document in an org, including soft-deleted ones
func (s *SQLiteStore) GetDocument(ctx context.Context, orgKey, key string) (*model.A3Document, error) {
	return scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM a3_documents WHERE org_key = ? AND key = ?`, orgKey, key))
}

// ListDocuments lists documents newest-updated first
func (s *SQLiteStore) ListDocuments(ctx context.Context, f DocumentFilter) ([]model.A3Document, error) {
	var where []string
	var args []any

	where = append(where, "org_key = ?")
	args = append(args, f.OrgKey)

	if !f.IncludeDeleted {
		where = append(where, "deleted_at IS NULL")
	}
	if f.DepartmentKey != "" {
		where = append(where, "department_key = ?")
		args = append(args, f.DepartmentKey)
	}
	if f.AuthorKey != "" {
		where = append(where, "author_key = ?")
		args = append(args, f.AuthorKey)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Restricted {
		var vis []string
		if len(f.VisibleDepartments) > 0 {
			vis = append(vis, "department_key IN ("+placeholders(len(f.VisibleDepartments))+")")
			for _, d := range f.VisibleDepartments {
				args = append(args, d)
			}
		}
		if f.VisibleAuthor != "" {
			vis = append(vis, "author_key = ?")
			args = append(args, f.VisibleAuthor)
		}
		if len(vis) == 0 {
			return []model.A3Document{}, nil
		}
		where = append(where, "("+strings.Join(vis, " OR ")+")")
	}

	query := `SELECT ` + documentColumns + ` FROM a3_documents WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY updated_at DESC, key LIMIT ? OFFSET ?`
	args = append(args, clampLimit(f.Limit), max(f.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.A3Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// UpdateDocument saves title, department, status and timestamps
func (s *SQLiteStore) UpdateDocument(ctx context.Context, d *model.A3Document) error {
	return requireRow(s.db.ExecContext(ctx,
		`UPDATE a3_documents SET department_key = ?, title = ?, status = ?, updated_at = ? WHERE org_key = ? AND key = ?`,
		d.DepartmentKey, d.Title, string(d.Status), toUnix(d.UpdatedAt), d.OrgKey, d.Key))
}

// SoftDeleteDocument marks a live document deleted
func (s *SQLiteStore) SoftDeleteDocument(ctx context.Context, orgKey, key, deletedBy string) error {
	return requireRow(s.db.ExecContext(ctx,
		`UPDATE a3_documents SET deleted_at = ?, deleted_by = ? WHERE org_key = ? AND key = ? AND deleted_at IS NULL`,
		toUnix(time.Now()), deletedBy, orgKey, key))
}

// RestoreDocument clears the soft-delete marker
func (s *SQLiteStore) RestoreDocument(ctx context.Context, orgKey, key string) error {
	return requireRow(s.db.ExecContext(ctx,
		`UPDATE a3_documents SET deleted_at = NULL, deleted_by = '', updated_at = ? WHERE org_key = ? AND key = ? AND deleted_at IS NOT NULL`,
		toUnix(time.Now()), orgKey, key))
}

// CountDocumentsByStatus counts live documents per status
func (s *SQLiteStore) CountDocumentsByStatus(ctx context.Context, orgKey, departmentKey string) (map[model.A3Status]int, error) {
	query := `SELECT status, COUNT(*) FROM a3_documents WHERE org_key = ? AND deleted_at IS NULL`
	args := []any{orgKey}
	if departmentKey != "" {
		query += ` AND department_key = ?`
		args = append(args, departmentKey)
	}
	query += ` GROUP BY status`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.A3Status]int, len(model.AllStatuses))
	for _, st := range model.AllStatuses {
		counts[st] = 0
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[model.A3Status(status)] = n
	}
	return counts, rows.Err()
}

// ─── Sections ───────────────────────────────────────────────────────────────

func scanSection(row rowScanner) (*model.A3Section, error) {
	var sec model.A3Section
	var st string
	var updated int64
	if err := row.Scan(&sec.Key, &sec.DocumentKey, &st, &sec.Content, &sec.UpdatedBy, &updated); err != nil {
		return nil, mapErr(err)
	}
	sec.SectionType = model.SectionType(st)
	sec.UpdatedAt = fromUnix(updated)
	return &sec, nil
}

// ListSections returns the sections of a document in layout order
func (s *SQLiteStore) ListSections(ctx context.Context, documentKey string) ([]model.A3Section, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, document_key, section_type, content, updated_by, updated_at FROM a3_sections WHERE document_key = ? ORDER BY position`,
		documentKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.A3Section
	for rows.Next() {
		sec, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sec)
	}
	return out, rows.Err()
}

// UpdateSection replaces a section's content and bumps the parent document
func (s *SQLiteStore) UpdateSection(ctx context.Context, documentKey string, st model.SectionType, content, updatedBy string) (*model.A3Section, error) {
	now := toUnix(time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := requireRow(tx.ExecContext(ctx,
		`UPDATE a3_sections SET content = ?, updated_by = ?, updated_at = ? WHERE document_key = ? AND section_type = ?`,
		content, updatedBy, now, documentKey, string(st))); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE a3_documents SET updated_at = ? WHERE key = ?`, now, documentKey); err != nil {
		return nil, err
	}
	sec, err := scanSection(tx.QueryRowContext(ctx,
		`SELECT key, document_key, section_type, content, updated_by, updated_at FROM a3_sections WHERE document_key = ? AND section_type = ?`,
		documentKey, string(st)))
	if err != nil {
		return nil, err
	}
	return sec, tx.Commit()
}

// ─── Comments ───────────────────────────────────────────────────────────────

const commentColumns = `key, document_key, section_type, author_key, content, created_at, updated_at, deleted_at`

func scanComment(row rowScanner) (*model.Comment, error) {
	var c model.Comment
	var st string
	var created, updated int64
	var deleted sql.NullInt64
	if err := row.Scan(&c.Key, &c.DocumentKey, &st, &c.AuthorKey, &c.Content, &created, &updated, &deleted); err != nil {
		return nil, mapErr(err)
	}
	c.SectionType = model.SectionType(st)
	c.CreatedAt, c.UpdatedAt, c.DeletedAt = fromUnix(created), fromUnix(updated), timePtr(deleted)
	return &c, nil
}

// CreateComment inserts a comment
func (s *SQLiteStore) CreateComment(ctx context.Context, c *model.Comment) error {
	ensureKey(&c.Key)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO comments (`+commentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, NULL)`,
		c.Key, c.DocumentKey, string(c.SectionType), c.AuthorKey, c.Content, toUnix(c.CreatedAt), toUnix(c.UpdatedAt))
	return mapErr(err)
}

// GetComment fetches a live comment on a document
func (s *SQLiteStore) GetComment(ctx context.Context, documentKey, key string) (*model.Comment, error) {
	return scanComment(s.db.QueryRowContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE document_key = ? AND key = ? AND deleted_at IS NULL`, documentKey, key))
}

// ListComments lists live comments oldest first, optionally for one section
func (s *SQLiteStore) ListComments(ctx context.Context, documentKey string, st model.SectionType) ([]model.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE document_key = ? AND deleted_at IS NULL`
	args := []any{documentKey}
	if st != "" {
		query += ` AND section_type = ?`
		args = append(args, string(st))
	}
	query += ` ORDER BY created_at, key`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// SoftDeleteComment marks a comment deleted
func (s *SQLiteStore) SoftDeleteComment(ctx context.Context, documentKey, key string) error {
	return requireRow(s.db.ExecContext(ctx,
		`UPDATE comments SET deleted_at = ? WHERE document_key = ? AND key = ? AND deleted_at IS NULL`,
		toUnix(time.Now()), documentKey, key))
}

// ─── Activity ───────────────────────────────────────────────────────────────

// AppendActivity inserts an activity entry. Re-delivered entries with a known key are ignored.
func (s *SQLiteStore) AppendActivity(ctx context.Context, e *model.ActivityLog) error {
	ensureKey(&e.Key)
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO activity_log (key, org_key, document_key, user_key, action, details, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Key, e.OrgKey, e.DocumentKey, e.UserKey, e.Action, string(details), toUnix(e.CreatedAt))
	return mapErr(err)
}

// ListActivity lists activity newest first
func (s *SQLiteStore) ListActivity(ctx context.Context, f ActivityFilter) ([]model.ActivityLog, error) {
	where := []string{"org_key = ?"}
	args := []any{f.OrgKey}
	if f.DocumentKey != "" {
		where = append(where, "document_key = ?")
		args = append(args, f.DocumentKey)
	}
	if f.UserKey != "" {
		where = append(where, "user_key = ?")
		args = append(args, f.UserKey)
	}
	if !f.Before.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, toUnix(f.Before))
	}
	args = append(args, clampLimit(f.Limit))

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, org_key, document_key, user_key, action, details, created_at FROM activity_log WHERE `+
			strings.Join(where, " AND ")+` ORDER BY created_at DESC, key LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ActivityLog{}
	for rows.Next() {
		var e model.ActivityLog
		var details string
		var created int64
		if err := rows.Scan(&e.Key, &e.OrgKey, &e.DocumentKey, &e.UserKey, &e.Action, &details, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(details), &e.Details); err != nil {
			return nil, fmt.Errorf("unmarshal details: %w", err)
		}
		e.CreatedAt = fromUnix(created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ─── Chat ───────────────────────────────────────────────────────────────────

const insertChatMessage = `INSERT INTO chat_messages (key, document_key, user_key, role, content, section_type, created_at, seq)
	 VALUES (?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM chat_messages WHERE document_key = ? AND user_key = ?))`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func appendChatMessage(ctx context.Context, db execer, m *model.ChatMessage) error {
	ensureKey(&m.Key)
	_, err := db.ExecContext(ctx, insertChatMessage,
		m.Key, m.DocumentKey, m.UserKey, m.Role, m.Content, string(m.SectionType), toUnix(m.CreatedAt),
		m.DocumentKey, m.UserKey)
	return mapErr(err)
}

// AppendChatMessage appends a message to a document/user thread
func (s *SQLiteStore) AppendChatMessage(ctx context.Context, m *model.ChatMessage) error {
	return appendChatMessage(ctx, s.db, m)
}

// AppendChatExchange appends a question and its answer in one transaction
func (s *SQLiteStore) AppendChatExchange(ctx context.Context, question, answer *model.ChatMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := appendChatMessage(ctx, tx, question); err != nil {
		return err
	}
	if err := appendChatMessage(ctx, tx, answer); err != nil {
		return err
	}
	return tx.Commit()
}

// ListChatMessages returns the last limit messages of a thread in chronological order
func (s *SQLiteStore) ListChatMessages(ctx context.Context, documentKey, userKey string, limit int) ([]model.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, document_key, user_key, role, content, section_type, created_at FROM (
			SELECT * FROM chat_messages WHERE document_key = ? AND user_key = ? ORDER BY seq DESC LIMIT ?
		 ) ORDER BY seq`,
		documentKey, userKey, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ChatMessage{}
	for rows.Next() {
		var m model.ChatMessage
		var st string
		var created int64
		if err := rows.Scan(&m.Key, &m.DocumentKey, &m.UserKey, &m.Role, &m.Content, &st, &created); err != nil {
			return nil, err
		}
		m.SectionType = model.SectionType(st)
		m.CreatedAt = fromUnix(created)
		out = append(out, m)
	}
	return out, rows.Err()
}

// ClearChat deletes a user's thread on a document
func (s *SQLiteStore) ClearChat(ctx context.Context, documentKey, userKey string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE document_key = ? AND user_key = ?`, documentKey, userKey)
	return err
}

// ─── Invitations ────────────────────────────────────────────────────────────

// CreateInvitation inserts an invitation
func (s *SQLiteStore) CreateInvitation(ctx context.Context, inv *model.Invitation) error {
	ensureKey(&inv.Key)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invitations (key, org_key, email, role, department_key, token, expires_at, accepted_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.Key, inv.OrgKey, inv.Email, string(inv.Role), inv.DepartmentKey, inv.Token,
		toUnix(inv.ExpiresAt), nullableTime(inv.AcceptedAt), toUnix(inv.CreatedAt))
	return mapErr(err)
}

// GetInvitationByToken fetches an invitation by its secret token
func (s *SQLiteStore) GetInvitationByToken(ctx context.Context, token string) (*model.Invitation, error) {
	var inv model.Invitation
	var role string
	var expires, created int64
	var accepted sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT key, org_key, email, role, department_key, token, expires_at, accepted_at, created_at FROM invitations WHERE token = ?`,
		token).Scan(&inv.Key, &inv.OrgKey, &inv.Email, &role, &inv.DepartmentKey, &inv.Token, &expires, &accepted, &created)
	if err != nil {
		return nil, mapErr(err)
	}
	inv.Role = model.Role(role)
	inv.ExpiresAt, inv.AcceptedAt, inv.CreatedAt = fromUnix(expires), timePtr(accepted), fromUnix(created)
	return &inv, nil
}

// MarkInvitationAccepted stamps accepted_at once
func (s *SQLiteStore) MarkInvitationAccepted(ctx context.Context, token string, at time.Time) error {
	return requireRow(s.db.ExecContext(ctx,
		`UPDATE invitations SET accepted_at = ? WHERE token = ? AND accepted_at IS NULL`, toUnix(at), token))
}

// DeletePendingInvitations removes the unaccepted invitations of an email in an org
func (s *SQLiteStore) DeletePendingInvitations(ctx context.Context, orgKey, email string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM invitations WHERE org_key = ? AND email = ? AND accepted_at IS NULL`, orgKey, email)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// DeleteExpiredInvitations purges unaccepted invitations past expiry
func (s *SQLiteStore) DeleteExpiredInvitations(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM invitations WHERE accepted_at IS NULL AND expires_at < ?`, toUnix(now))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
