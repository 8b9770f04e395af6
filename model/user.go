// Package model provides data models for the LEAN AI COACH system.
package model

import (
	"errors"
	"strings"
	"time"
)

// Role names a user's permission level inside an organization.
type Role string

// Roles ordered from most to least privileged.
const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleMember  Role = "member"
	RoleViewer  Role = "viewer"
)

// User statuses
const (
	UserStatusPending  = "pending"
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// ErrInvalidRole is returned when a role string is not one of the known roles.
var ErrInvalidRole = errors.New("invalid role")

// ErrPermissionDenied is returned when a user may not perform an action.
var ErrPermissionDenied = errors.New("permission denied")

// ParseRole validates a role string
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleManager, RoleMember, RoleViewer:
		return r, nil
	}
	return "", ErrInvalidRole
}

// User represents a user in the system
type User struct {
	Key           string    `json:"_key,omitempty"`
	OrgKey        string    `json:"org_key"`
	DepartmentKey string    `json:"department_key,omitempty"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"display_name"`
	PasswordHash  string    `json:"password_hash,omitempty"`
	Role          Role      `json:"role"`
	Status        string    `json:"status"` // pending, active, inactive
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewUser creates a new user with default values
func NewUser(orgKey, email string, role Role) *User {
	now := time.Now().UTC()
	return &User{
		OrgKey:    orgKey,
		Email:     NormalizeEmail(email),
		Role:      role,
		Status:    UserStatusPending, // pending until invitation accepted
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsActive returns true if the user may sign in
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// IsAdmin returns true if user is admin
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// SameOrg reports whether the record belongs to the user's organization.
func (u *User) SameOrg(orgKey string) bool {
	return orgKey != "" && u.OrgKey == orgKey
}

// CanManageOrg returns true if the user can edit the organization, its departments and users
func (u *User) CanManageOrg() bool {
	return u.Role == RoleAdmin
}

// CanListUsers returns true if the user may see the org's user directory
func (u *User) CanListUsers() bool {
	return u.Role == RoleAdmin || u.Role == RoleManager
}

// CanReadDocument checks document visibility for the user.
// Callers must verify SameOrg first; cross-tenant records are reported as not found.
func (u *User) CanReadDocument(doc *A3Document) bool {
	if !u.SameOrg(doc.OrgKey) {
		return false
	}
	switch u.Role {
	case RoleAdmin, RoleManager:
		return true
	case RoleMember:
		return doc.AuthorKey == u.Key || (u.DepartmentKey != "" && doc.DepartmentKey == u.DepartmentKey)
	case RoleViewer:
		return u.DepartmentKey != "" && doc.DepartmentKey == u.DepartmentKey
	}
	return false
}

// CanWriteDocument checks whether the user may edit a document and its sections
func (u *User) CanWriteDocument(doc *A3Document) bool {
	if !u.SameOrg(doc.OrgKey) {
		return false
	}
	switch u.Role {
	case RoleAdmin:
		return true
	case RoleManager:
		return u.DepartmentKey != "" && doc.DepartmentKey == u.DepartmentKey
	case RoleMember:
		return doc.AuthorKey == u.Key
	}
	return false
}

// CanCreateDocumentIn checks whether the user may create a document in a department
func (u *User) CanCreateDocumentIn(departmentKey string) bool {
	switch u.Role {
	case RoleAdmin:
		return true
	case RoleManager, RoleMember:
		return u.DepartmentKey != "" && departmentKey == u.DepartmentKey
	}
	return false
}

// CanDeleteComment allows comment authors and admins to remove a comment
func (u *User) CanDeleteComment(c *Comment) bool {
	return u.Role == RoleAdmin || c.AuthorKey == u.Key
}

// VisibleDepartments returns the department filter for document listings.
// An empty slice with all=true means the whole org is visible.
func (u *User) VisibleDepartments() (departments []string, all bool) {
	switch u.Role {
	case RoleAdmin, RoleManager:
		return nil, true
	}
	if u.DepartmentKey == "" {
		return []string{}, false
	}
	return []string{u.DepartmentKey}, false
}

// Invitation represents a pending invitation to join an organization
type Invitation struct {
	Key           string     `json:"_key,omitempty"`
	OrgKey        string     `json:"org_key"`
	Email         string     `json:"email"`
	Role          Role       `json:"role"`
	DepartmentKey string     `json:"department_key,omitempty"`
	Token         string     `json:"token"` // Secure random token
	ExpiresAt     time.Time  `json:"expires_at"`
	AcceptedAt    *time.Time `json:"accepted_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// InvitationTTL is how long an invitation link stays valid
const InvitationTTL = 48 * time.Hour

// NewInvitation creates a new invitation
func NewInvitation(orgKey, email, token string, role Role, departmentKey string) *Invitation {
	now := time.Now().UTC()
	return &Invitation{
		OrgKey:        orgKey,
		Email:         NormalizeEmail(email),
		Role:          role,
		DepartmentKey: departmentKey,
		Token:         token,
		ExpiresAt:     now.Add(InvitationTTL),
		CreatedAt:     now,
	}
}

// IsExpired checks if invitation has expired
func (i *Invitation) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}

// IsAccepted checks if invitation has been accepted
func (i *Invitation) IsAccepted() bool {
	return i.AcceptedAt != nil
}
