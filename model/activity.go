package model

import "time"

// Activity actions
const (
	ActionDocumentCreated       = "document.created"
	ActionDocumentUpdated       = "document.updated"
	ActionDocumentStatusChanged = "document.status_changed"
	ActionSectionUpdated        = "section.updated"
	ActionDocumentDeleted       = "document.deleted"
	ActionDocumentRestored      = "document.restored"
	ActionCommentAdded          = "comment.added"
	ActionCommentDeleted        = "comment.deleted"
	ActionDocumentExported      = "document.exported"
	ActionChatMessage           = "chat.message"
)

// Comment is a remark on a document, optionally attached to one section
type Comment struct {
	Key         string      `json:"_key,omitempty"`
	DocumentKey string      `json:"document_key"`
	SectionType SectionType `json:"section_type,omitempty"`
	AuthorKey   string      `json:"author_key"`
	Content     string      `json:"content"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	DeletedAt   *time.Time  `json:"deleted_at,omitempty"`
}

// MaxCommentLength bounds comment content in characters
const MaxCommentLength = 4000

// ActivityLog is an immutable audit record
type ActivityLog struct {
	Key         string            `json:"_key,omitempty"`
	OrgKey      string            `json:"org_key"`
	DocumentKey string            `json:"document_key,omitempty"`
	UserKey     string            `json:"user_key"`
	Action      string            `json:"action"`
	Details     map[string]string `json:"details,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewActivity builds an activity entry stamped with the current time
func NewActivity(orgKey, documentKey, userKey, action string, details map[string]string) ActivityLog {
	return ActivityLog{
		OrgKey:      orgKey,
		DocumentKey: documentKey,
		UserKey:     userKey,
		Action:      action,
		Details:     details,
		CreatedAt:   time.Now().UTC(),
	}
}

// Chat roles
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one turn of the AI coach conversation about a document
type ChatMessage struct {
	Key         string      `json:"_key,omitempty"`
	DocumentKey string      `json:"document_key"`
	UserKey     string      `json:"user_key"`
	Role        string      `json:"role"`
	Content     string      `json:"content"`
	SectionType SectionType `json:"section_type,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}
