package admin

// UpdateOrgRequest edits the organization profile. The slug never changes.
type UpdateOrgRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// DepartmentRequest creates or edits a department
type DepartmentRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// InviteRequest invites a new member to the organization
type InviteRequest struct {
	Email         string `json:"email"`
	Role          string `json:"role"`
	DepartmentKey string `json:"department_key"`
	DisplayName   string `json:"display_name"`
}

// UpdateUserRequest edits role, department, status or display name.
// Nil fields are left unchanged.
type UpdateUserRequest struct {
	Role          *string `json:"role"`
	DepartmentKey *string `json:"department_key"`
	Status        *string `json:"status"`
	DisplayName   *string `json:"display_name"`
}
