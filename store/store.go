// Package store defines persistence for organizations, users, A3 documents and
// their satellites, with ArangoDB and SQLite implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/leancoach/coach-backend/model"
)

var (
	// ErrNotFound is returned when a record does not exist or is outside the caller's org
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on unique-key violations and blocked deletes
	ErrConflict = errors.New("conflict")
)

// DefaultListLimit caps listings when the caller passes no limit
const DefaultListLimit = 50

// MaxListLimit is the largest page size a caller may request
const MaxListLimit = 200

// DocumentFilter narrows ListDocuments results.
type DocumentFilter struct {
	OrgKey string

	// Visibility restriction. When Restricted is set, only documents in
	// VisibleDepartments or authored by VisibleAuthor are returned.
	Restricted         bool
	VisibleDepartments []string
	VisibleAuthor      string

	DepartmentKey  string
	AuthorKey      string
	Status         model.A3Status
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// VisibleTo restricts the filter to what the user may read
func (f DocumentFilter) VisibleTo(u *model.User) DocumentFilter {
	f.OrgKey = u.OrgKey
	depts, all := u.VisibleDepartments()
	if all {
		f.Restricted = false
		return f
	}
	f.Restricted = true
	f.VisibleDepartments = depts
	if u.Role == model.RoleMember {
		f.VisibleAuthor = u.Key
	}
	return f
}

// ActivityFilter narrows ListActivity results
type ActivityFilter struct {
	OrgKey      string
	DocumentKey string
	UserKey     string
	Before      time.Time
	Limit       int
}

// Store is the persistence contract used by the API, GraphQL resolvers,
// the event processor and the seed tool.
type Store interface {
	CreateOrg(ctx context.Context, org *model.Organization) error
	GetOrg(ctx context.Context, key string) (*model.Organization, error)
	GetOrgBySlug(ctx context.Context, slug string) (*model.Organization, error)
	UpdateOrg(ctx context.Context, org *model.Organization) error

	CreateDepartment(ctx context.Context, dept *model.Department) error
	GetDepartment(ctx context.Context, orgKey, key string) (*model.Department, error)
	ListDepartments(ctx context.Context, orgKey string) ([]model.Department, error)
	UpdateDepartment(ctx context.Context, dept *model.Department) error
	DeleteDepartment(ctx context.Context, orgKey, key string) error

	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, key string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context, orgKey string) ([]model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, orgKey, key string) error

	CreateDocument(ctx context.Context, doc *model.A3Document) ([]model.A3Section, error)
	GetDocument(ctx context.Context, orgKey, key string) (*model.A3Document, error)
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]model.A3Document, error)
	UpdateDocument(ctx context.Context, doc *model.A3Document) error
	SoftDeleteDocument(ctx context.Context, orgKey, key, deletedBy string) error
	RestoreDocument(ctx context.Context, orgKey, key string) error
	CountDocumentsByStatus(ctx context.Context, orgKey, departmentKey string) (map[model.A3Status]int, error)

	ListSections(ctx context.Context, documentKey string) ([]model.A3Section, error)
	UpdateSection(ctx context.Context, documentKey string, sectionType model.SectionType, content, updatedBy string) (*model.A3Section, error)

	CreateComment(ctx context.Context, c *model.Comment) error
	GetComment(ctx context.Context, documentKey, key string) (*model.Comment, error)
	ListComments(ctx context.Context, documentKey string, sectionType model.SectionType) ([]model.Comment, error)
	SoftDeleteComment(ctx context.Context, documentKey, key string) error

	AppendActivity(ctx context.Context, entry *model.ActivityLog) error
	ListActivity(ctx context.Context, filter ActivityFilter) ([]model.ActivityLog, error)

	AppendChatMessage(ctx context.Context, msg *model.ChatMessage) error
	AppendChatExchange(ctx context.Context, question, answer *model.ChatMessage) error
	ListChatMessages(ctx context.Context, documentKey, userKey string, limit int) ([]model.ChatMessage, error)
	ClearChat(ctx context.Context, documentKey, userKey string) error

	CreateInvitation(ctx context.Context, inv *model.Invitation) error
	GetInvitationByToken(ctx context.Context, token string) (*model.Invitation, error)
	DeletePendingInvitations(ctx context.Context, orgKey, email string) (int, error)
	MarkInvitationAccepted(ctx context.Context, token string, at time.Time) error
	DeleteExpiredInvitations(ctx context.Context, now time.Time) (int, error)

	Close() error
}

// NewKey returns a fresh storage key
func NewKey() string {
	return uuid.NewString()
}

func ensureKey(key *string) {
	if *key == "" {
		*key = NewKey()
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// newSections builds the eight empty sections of a new document
func newSections(doc *model.A3Document) []model.A3Section {
	sections := make([]model.A3Section, 0, len(model.SectionCatalog))
	for _, spec := range model.SectionCatalog {
		sections = append(sections, model.A3Section{
			Key:         NewKey(),
			DocumentKey: doc.Key,
			SectionType: spec.Type,
			UpdatedBy:   doc.AuthorKey,
			UpdatedAt:   doc.CreatedAt,
		})
	}
	return sections
}
