// Package seed bootstraps organizations, departments and users from a YAML file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/leancoach/coach-backend/model"
	"github.com/leancoach/coach-backend/restapi/modules/auth"
	"github.com/leancoach/coach-backend/store"
	"github.com/leancoach/coach-backend/util"
	"gopkg.in/yaml.v2"
)

// Config represents the YAML structure
type Config struct {
	Organizations []Organization `yaml:"organizations"`
}

// Organization is one tenant in the seed file
type Organization struct {
	Name        string       `yaml:"name"`
	Slug        string       `yaml:"slug,omitempty"`
	Description string       `yaml:"description,omitempty"`
	Departments []Department `yaml:"departments"`
	Users       []User       `yaml:"users"`
}

// Department is a department entry of an organization
type Department struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

// User represents a user in the config
type User struct {
	Email       string `yaml:"email"`
	DisplayName string `yaml:"display_name"`
	Role        string `yaml:"role"`
	Department  string `yaml:"department,omitempty"`
}

// Result tracks the outcome of an apply operation
type Result struct {
	Created []string
	Updated []string
	Invited []string
	Errors  []string
}

// Load reads and validates a seed file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates seed YAML
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid seed file: %w", err)
	}
	return &cfg, nil
}

// Validate ensures the configuration is valid
func Validate(cfg *Config) error {
	seenSlugs := make(map[string]bool)
	seenEmails := make(map[string]bool)

	for i := range cfg.Organizations {
		org := &cfg.Organizations[i]
		org.Name = util.CleanName(org.Name)
		if org.Name == "" {
			return fmt.Errorf("organization #%d: name is required", i+1)
		}
		if org.Slug == "" {
			org.Slug = util.Slugify(org.Name)
		}
		if org.Slug == "" {
			return fmt.Errorf("organization %q: cannot derive a slug", org.Name)
		}
		if seenSlugs[org.Slug] {
			return fmt.Errorf("duplicate organization: %s", org.Slug)
		}
		seenSlugs[org.Slug] = true

		depts := make(map[string]bool)
		for j := range org.Departments {
			d := &org.Departments[j]
			d.Name = util.CleanName(d.Name)
			if d.Name == "" {
				return fmt.Errorf("organization %s: department name is required", org.Slug)
			}
			if depts[strings.ToLower(d.Name)] {
				return fmt.Errorf("organization %s: duplicate department %q", org.Slug, d.Name)
			}
			depts[strings.ToLower(d.Name)] = true
		}

		for j := range org.Users {
			u := &org.Users[j]
			u.Email = model.NormalizeEmail(u.Email)
			if !util.IsValidEmail(u.Email) {
				return fmt.Errorf("organization %s: invalid email %q", org.Slug, u.Email)
			}
			if seenEmails[u.Email] {
				return fmt.Errorf("duplicate email: %s", u.Email)
			}
			seenEmails[u.Email] = true

			if _, err := model.ParseRole(u.Role); err != nil {
				return fmt.Errorf("invalid role '%s' for user %s", u.Role, u.Email)
			}
			if u.Department != "" && !depts[strings.ToLower(util.CleanName(u.Department))] {
				return fmt.Errorf("user %s references unknown department %q", u.Email, u.Department)
			}
		}
	}
	return nil
}

// Apply reconciles the store with the seed configuration. Re-applying the same file is a no-op.
func Apply(ctx context.Context, st store.Store, sender auth.InvitationSender, cfg *Config) (*Result, error) {
	result := &Result{
		Created: []string{},
		Updated: []string{},
		Invited: []string{},
		Errors:  []string{},
	}

	for _, orgCfg := range cfg.Organizations {
		org, err := ensureOrg(ctx, st, orgCfg, result)
		if err != nil {
			return result, err
		}

		deptKeys, err := ensureDepartments(ctx, st, org.Key, orgCfg.Departments, result)
		if err != nil {
			return result, err
		}

		for _, u := range orgCfg.Users {
			if err := applyUser(ctx, st, sender, org, deptKeys, u, result); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Failed to apply %s: %v", u.Email, err))
			}
		}
	}

	return result, nil
}

func ensureOrg(ctx context.Context, st store.Store, cfg Organization, result *Result) (*model.Organization, error) {
	org, err := st.GetOrgBySlug(ctx, cfg.Slug)
	if err == nil {
		if cfg.Description != "" && org.Description != cfg.Description {
			org.Description = cfg.Description
			org.UpdatedAt = time.Now().UTC()
			if err := st.UpdateOrg(ctx, org); err != nil {
				return nil, fmt.Errorf("failed to update organization %s: %w", cfg.Slug, err)
			}
			result.Updated = append(result.Updated, "org:"+cfg.Slug)
		}
		return org, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	org = &model.Organization{
		Name:        cfg.Name,
		Slug:        cfg.Slug,
		Description: cfg.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := st.CreateOrg(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to create organization %s: %w", cfg.Slug, err)
	}
	result.Created = append(result.Created, "org:"+cfg.Slug)
	return org, nil
}

// ensureDepartments creates missing departments and returns lowercase name -> key
func ensureDepartments(ctx context.Context, st store.Store, orgKey string, depts []Department, result *Result) (map[string]string, error) {
	existing, err := st.ListDepartments(ctx, orgKey)
	if err != nil {
		return nil, err
	}

	keys := make(map[string]string, len(existing)+len(depts))
	for _, d := range existing {
		keys[strings.ToLower(d.Name)] = d.Key
	}

	for _, d := range depts {
		name := strings.ToLower(d.Name)
		if _, ok := keys[name]; ok {
			continue
		}
		now := time.Now().UTC()
		dept := &model.Department{
			OrgKey:      orgKey,
			Name:        d.Name,
			Description: d.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := st.CreateDepartment(ctx, dept); err != nil {
			return nil, fmt.Errorf("failed to create department %s: %w", d.Name, err)
		}
		keys[name] = dept.Key
		result.Created = append(result.Created, "department:"+d.Name)
	}
	return keys, nil
}

func applyUser(ctx context.Context, st store.Store, sender auth.InvitationSender, org *model.Organization, deptKeys map[string]string, u User, result *Result) error {
	role, err := model.ParseRole(u.Role)
	if err != nil {
		return err
	}
	deptKey := ""
	if u.Department != "" {
		deptKey = deptKeys[strings.ToLower(util.CleanName(u.Department))]
	}

	existing, err := st.GetUserByEmail(ctx, u.Email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		invitation, _, err := auth.CreateInvitation(ctx, st, sender, auth.InviteParams{
			OrgKey:        org.Key,
			Email:         u.Email,
			Role:          role,
			DepartmentKey: deptKey,
			DisplayName:   util.CleanName(u.DisplayName),
		})
		if err != nil {
			return err
		}
		result.Created = append(result.Created, "user:"+u.Email)
		result.Invited = append(result.Invited, invitation.Email)
		return nil
	case err != nil:
		return err
	}

	if existing.OrgKey != org.Key {
		return fmt.Errorf("email belongs to another organization")
	}
	if existing.Role == role && existing.DepartmentKey == deptKey {
		return nil
	}

	existing.Role = role
	existing.DepartmentKey = deptKey
	existing.UpdatedAt = time.Now().UTC()
	if err := st.UpdateUser(ctx, existing); err != nil {
		return err
	}
	result.Updated = append(result.Updated, "user:"+u.Email)
	return nil
}
