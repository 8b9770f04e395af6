package model

import (
	"errors"
	"time"
)

// A3Status is the lifecycle state of an A3 document
type A3Status string

// Document statuses
const (
	StatusDraft      A3Status = "draft"
	StatusInProgress A3Status = "in_progress"
	StatusCompleted  A3Status = "completed"
	StatusArchived   A3Status = "archived"
)

// AllStatuses lists statuses in lifecycle order
var AllStatuses = []A3Status{StatusDraft, StatusInProgress, StatusCompleted, StatusArchived}

// ErrInvalidTransition is returned for a status change the lifecycle does not allow
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrInvalidStatus is returned when a status string is unknown
var ErrInvalidStatus = errors.New("invalid status")

// ErrArchived is returned when editing an archived document
var ErrArchived = errors.New("document is archived")

var transitions = map[A3Status][]A3Status{
	StatusDraft:      {StatusInProgress, StatusArchived},
	StatusInProgress: {StatusDraft, StatusCompleted, StatusArchived},
	StatusCompleted:  {StatusInProgress, StatusArchived},
	StatusArchived:   {StatusDraft},
}

// ParseStatus validates a status string
func ParseStatus(s string) (A3Status, error) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", ErrInvalidStatus
}

// CanTransition reports whether the lifecycle allows from -> to
func CanTransition(from, to A3Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// A3Document is a one-page structured problem-solving document
type A3Document struct {
	Key           string     `json:"_key,omitempty"`
	OrgKey        string     `json:"org_key"`
	DepartmentKey string     `json:"department_key"`
	AuthorKey     string     `json:"author_key"`
	Title         string     `json:"title"`
	Status        A3Status   `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	DeletedBy     string     `json:"deleted_by,omitempty"`
}

// NewA3Document creates a draft document
func NewA3Document(orgKey, departmentKey, authorKey, title string) *A3Document {
	now := time.Now().UTC()
	return &A3Document{
		OrgKey:        orgKey,
		DepartmentKey: departmentKey,
		AuthorKey:     authorKey,
		Title:         title,
		Status:        StatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsDeleted reports whether the document was soft deleted
func (d *A3Document) IsDeleted() bool {
	return d.DeletedAt != nil
}

// Transition moves the document to a new status if the lifecycle allows it
func (d *A3Document) Transition(to A3Status) error {
	if !CanTransition(d.Status, to) {
		return ErrInvalidTransition
	}
	d.Status = to
	d.UpdatedAt = time.Now().UTC()
	return nil
}

// A3Section holds the content of one of the eight fixed regions of a document
type A3Section struct {
	Key         string      `json:"_key,omitempty"`
	DocumentKey string      `json:"document_key"`
	SectionType SectionType `json:"section_type"`
	Content     string      `json:"content"`
	UpdatedBy   string      `json:"updated_by,omitempty"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// A3DocumentWithSections is the full document as returned to clients
type A3DocumentWithSections struct {
	A3Document
	Sections []A3Section `json:"sections"`
}
