// Package auth provides authentication and authorization types for the REST API.
package auth

import (
	"time"

	"github.com/leancoach/coach-backend/model"
)

// SignupRequest creates an organization and its first admin
type SignupRequest struct {
	Organization string `json:"organization"`
	Email        string `json:"email"`
	DisplayName  string `json:"display_name"`
	Password     string `json:"password"`
}

// LoginRequest defines the body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest defines the body for change-password
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// AcceptInvitationRequest defines the activation body
type AcceptInvitationRequest struct {
	DisplayName     string `json:"display_name"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// UserResponse is the public view of a user
type UserResponse struct {
	Key           string     `json:"key"`
	OrgKey        string     `json:"org_key"`
	DepartmentKey string     `json:"department_key,omitempty"`
	Email         string     `json:"email"`
	DisplayName   string     `json:"display_name"`
	Role          model.Role `json:"role"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NewUserResponse strips credentials from a user
func NewUserResponse(u *model.User) UserResponse {
	return UserResponse{
		Key:           u.Key,
		OrgKey:        u.OrgKey,
		DepartmentKey: u.DepartmentKey,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		Role:          u.Role,
		Status:        u.Status,
		CreatedAt:     u.CreatedAt,
	}
}
