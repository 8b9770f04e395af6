// Package auth provides invitation management logic.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leancoach/coach-backend/model"
	"github.com/leancoach/coach-backend/store"
	"go.uber.org/zap"
)

var (
	// ErrInvitationExpired is returned when the invitation link is past its deadline
	ErrInvitationExpired = errors.New("invitation has expired")
	// ErrInvitationUsed is returned when the invitation was already accepted
	ErrInvitationUsed = errors.New("invitation already accepted")
	// ErrUserAlreadyActive is returned when inviting an email that already has an account
	ErrUserAlreadyActive = errors.New("user already has an active account")
)

// InviteParams describes who is being invited and how
type InviteParams struct {
	OrgKey        string
	Email         string
	Role          model.Role
	DepartmentKey string
	DisplayName   string
}

// CreateInvitation creates the pending user if needed, stores an invitation and sends it.
// A delivery failure is logged; the invitation still stands.
func CreateInvitation(ctx context.Context, st store.Store, sender InvitationSender, p InviteParams) (*model.Invitation, *model.User, error) {
	org, err := st.GetOrg(ctx, p.OrgKey)
	if err != nil {
		return nil, nil, err
	}

	user, err := st.GetUserByEmail(ctx, p.Email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		user = model.NewUser(p.OrgKey, p.Email, p.Role)
		user.DepartmentKey = p.DepartmentKey
		user.DisplayName = p.DisplayName
		if err := st.CreateUser(ctx, user); err != nil {
			return nil, nil, err
		}
	case err != nil:
		return nil, nil, err
	case user.OrgKey != p.OrgKey:
		// The address belongs to another tenant
		return nil, nil, store.ErrConflict
	case user.Status != model.UserStatusPending:
		return nil, nil, ErrUserAlreadyActive
	default:
		user.Role = p.Role
		user.DepartmentKey = p.DepartmentKey
		user.UpdatedAt = time.Now().UTC()
		if err := st.UpdateUser(ctx, user); err != nil {
			return nil, nil, err
		}
	}

	token, err := GenerateSecureToken(32)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate token: %w", err)
	}

	// A new invitation supersedes any earlier link still pending for this address
	if _, err := st.DeletePendingInvitations(ctx, p.OrgKey, user.Email); err != nil {
		return nil, nil, fmt.Errorf("failed to revoke earlier invitations: %w", err)
	}

	invitation := model.NewInvitation(p.OrgKey, user.Email, token, p.Role, p.DepartmentKey)
	if err := st.CreateInvitation(ctx, invitation); err != nil {
		return nil, nil, fmt.Errorf("failed to save invitation: %w", err)
	}

	if sender != nil {
		if err := sender.SendInvitation(invitation, org.Name); err != nil {
			zap.L().Warn("failed to send invitation email",
				zap.String("email", invitation.Email),
				zap.Error(err))
		}
	}

	return invitation, user, nil
}

// GetInvitation retrieves a still-valid invitation by token
func GetInvitation(ctx context.Context, st store.Store, token string) (*model.Invitation, error) {
	invitation, err := st.GetInvitationByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if invitation.IsAccepted() {
		return invitation, ErrInvitationUsed
	}
	if invitation.IsExpired() {
		return invitation, ErrInvitationExpired
	}
	return invitation, nil
}

// AcceptInvitation sets the user's password, activates the account and consumes the invitation.
// Role and department come from the user record, which admins and the seed keep current.
func AcceptInvitation(ctx context.Context, st store.Store, token, displayName, password string) (*model.User, error) {
	invitation, err := GetInvitation(ctx, st, token)
	if err != nil {
		return nil, err
	}

	if err := ValidatePasswordStrength(password); err != nil {
		return nil, err
	}

	user, err := st.GetUserByEmail(ctx, invitation.Email)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	if user.OrgKey != invitation.OrgKey {
		return nil, store.ErrNotFound
	}
	if user.Status != model.UserStatusPending {
		return nil, ErrUserAlreadyActive
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user.PasswordHash = passwordHash
	user.Status = model.UserStatusActive
	if displayName != "" {
		user.DisplayName = displayName
	}
	user.UpdatedAt = now

	if err := st.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	if err := st.MarkInvitationAccepted(ctx, token, now); err != nil {
		zap.L().Warn("failed to mark invitation as accepted", zap.Error(err))
	}

	zap.L().Info("user accepted invitation", zap.String("email", user.Email))

	return user, nil
}

// CleanupExpiredInvitations removes expired, unaccepted invitations
func CleanupExpiredInvitations(ctx context.Context, st store.Store) (int, error) {
	return st.DeleteExpiredInvitations(ctx, time.Now().UTC())
}

// StartInvitationCleanup purges expired invitations every interval until ctx ends
func StartInvitationCleanup(ctx context.Context, st store.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := CleanupExpiredInvitations(ctx, st)
				if err != nil {
					zap.L().Warn("invitation cleanup failed", zap.Error(err))
					continue
				}
				if n > 0 {
					zap.L().Info("removed expired invitations", zap.Int("count", n))
				}
			}
		}
	}()
}
