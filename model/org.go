// Package model defines the data structures for organization management.
package model

import "time"

// Organization is a tenant. Every other record belongs to exactly one.
type Organization struct {
	Key         string    `json:"_key,omitempty"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Department groups users and documents inside an organization
type Department struct {
	Key         string     `json:"_key,omitempty"`
	OrgKey      string     `json:"org_key"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// IsDeleted reports whether the department was soft deleted
func (d *Department) IsDeleted() bool {
	return d.DeletedAt != nil
}
