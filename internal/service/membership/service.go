package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/metrics"
)

type MembershipServiceImpl struct {
	tx      database.Transactor
	users   user.UserRepository
	members user.MembershipRepository
	audit   audit.Recorder
	now     func() time.Time
}

func NewMembershipService(
	tx database.Transactor,
	users user.UserRepository,
	members user.MembershipRepository,
	recorder audit.Recorder,
) *MembershipServiceImpl {
	return &MembershipServiceImpl{
		tx:      tx,
		users:   users,
		members: members,
		audit:   recorder,
		now:     time.Now,
	}
}

var _ user.MembershipService = (*MembershipServiceImpl)(nil)

// Provision implements user.MembershipService.
func (s *MembershipServiceImpl) Provision(ctx context.Context, userID, email string) error {
	created, err := s.users.Provision(ctx, user.User{ID: userID, Email: email})
	if err != nil {
		return err
	}
	if created {
		slog.InfoContext(ctx, "user provisioned", "user_id", userID)
	}
	return nil
}

// Join implements user.MembershipService.
func (s *MembershipServiceImpl) Join(ctx context.Context, userID, organisationID string, role user.Role) (bool, error) {
	now := s.now().UTC()

	var added bool
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.members.Get(ctx, userID, organisationID)
		switch {
		case err == nil:
			if existing.IsBannedAt(now) {
				return user.ErrMemberBanned
			}
		case !errors.Is(err, user.ErrAssociationNotFound):
			return fmt.Errorf("failed to get membership: %w", err)
		}

		added, err = s.members.Join(ctx, user.Association{
			UserID:         userID,
			OrganisationID: organisationID,
			Role:           role,
			JoinedAt:       now,
		})
		if err != nil {
			return err
		}

		if err := s.users.SetCurrentOrganisationIfEmpty(ctx, userID, organisationID, now); err != nil {
			return err
		}
		return s.users.Activate(ctx, userID, now)
	})
	if err != nil {
		return false, err
	}

	metrics.RecordMembershipJoin(added)
	if !added {
		slog.InfoContext(ctx, "membership already active", "user_id", userID, "organisation_id", organisationID)
	}
	return added, nil
}

// Role implements user.MembershipService.
func (s *MembershipServiceImpl) Role(ctx context.Context, userID, organisationID string) (user.Role, error) {
	a, err := s.members.Get(ctx, userID, organisationID)
	if err != nil {
		return "", err
	}
	if a.IsBannedAt(s.now()) {
		return "", user.ErrMemberBanned
	}
	if !a.IsActive {
		return "", user.ErrAssociationNotFound
	}
	return a.Role, nil
}

// ListMembers implements user.MembershipService.
func (s *MembershipServiceImpl) ListMembers(ctx context.Context, organisationID string) ([]user.MemberResponse, error) {
	members, err := s.members.ListByOrganisation(ctx, organisationID)
	if err != nil {
		return nil, err
	}

	responses := make([]user.MemberResponse, 0, len(members))
	for _, m := range members {
		responses = append(responses, user.NewMemberResponse(m))
	}
	return responses, nil
}

// ensureAdminRemains fails when removing or demoting target would leave no active admin.
func (s *MembershipServiceImpl) ensureAdminRemains(ctx context.Context, target user.Association) error {
	if target.Role != user.RoleAdmin || !target.IsActive {
		return nil
	}
	admins, err := s.members.CountActiveByRole(ctx, target.OrganisationID, user.RoleAdmin)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return user.ErrLastAdmin
	}
	return nil
}

// ChangeRole implements user.MembershipService.
func (s *MembershipServiceImpl) ChangeRole(ctx context.Context, req user.ChangeRoleRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if req.UserID == req.ActorID {
		return user.ErrCannotModifySelf
	}

	newRole := user.Role(req.Role)
	var previous user.Role
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		target, err := s.members.GetActive(ctx, req.UserID, req.OrganisationID)
		if err != nil {
			return err
		}
		previous = target.Role
		if previous == newRole {
			return nil
		}
		if err := s.ensureAdminRemains(ctx, target); err != nil {
			return err
		}
		return s.members.UpdateRole(ctx, req.UserID, req.OrganisationID, newRole, s.now().UTC())
	})
	if err != nil {
		return err
	}

	if previous != newRole {
		s.record(ctx, req.OrganisationID, req.ActorID, audit.ActionMemberRoleChanged, req.UserID, map[string]any{
			"from": string(previous),
			"to":   string(newRole),
		})
	}
	return nil
}

// Remove implements user.MembershipService.
func (s *MembershipServiceImpl) Remove(ctx context.Context, organisationID, userID, actorID string) error {
	if userID == actorID {
		return user.ErrCannotModifySelf
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		target, err := s.members.GetActive(ctx, userID, organisationID)
		if err != nil {
			return err
		}
		if err := s.ensureAdminRemains(ctx, target); err != nil {
			return err
		}

		now := s.now().UTC()
		if err := s.members.Deactivate(ctx, userID, organisationID, now); err != nil {
			return err
		}
		return s.users.UnsetCurrentOrganisation(ctx, userID, organisationID, now)
	})
	if err != nil {
		return err
	}

	s.record(ctx, organisationID, actorID, audit.ActionMemberRemoved, userID, nil)
	return nil
}

// Ban implements user.MembershipService.
func (s *MembershipServiceImpl) Ban(ctx context.Context, req user.BanRequest) error {
	now := s.now().UTC()
	if err := req.Validate(now); err != nil {
		return err
	}
	if req.UserID == req.BannedBy {
		return user.ErrCannotModifySelf
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		target, err := s.members.Get(ctx, req.UserID, req.OrganisationID)
		if err != nil {
			return err
		}
		if err := s.ensureAdminRemains(ctx, target); err != nil {
			return err
		}
		if err := s.members.Ban(ctx, req, now); err != nil {
			return err
		}
		return s.users.UnsetCurrentOrganisation(ctx, req.UserID, req.OrganisationID, now)
	})
	if err != nil {
		return err
	}

	metadata := map[string]any{}
	if req.Reason != nil {
		metadata["reason"] = *req.Reason
	}
	if req.ExpiresAt != nil {
		metadata["expires_at"] = req.ExpiresAt.UTC().Format(time.RFC3339)
	}
	s.record(ctx, req.OrganisationID, req.BannedBy, audit.ActionMemberBanned, req.UserID, metadata)
	return nil
}

// Unban implements user.MembershipService.
func (s *MembershipServiceImpl) Unban(ctx context.Context, organisationID, userID, actorID string) error {
	if err := s.members.Unban(ctx, userID, organisationID, s.now().UTC()); err != nil {
		return err
	}
	s.record(ctx, organisationID, actorID, audit.ActionMemberUnbanned, userID, nil)
	return nil
}

// SwitchOrganisation implements user.MembershipService.
func (s *MembershipServiceImpl) SwitchOrganisation(ctx context.Context, userID, organisationID string) error {
	if _, err := s.Role(ctx, userID, organisationID); err != nil {
		return err
	}
	return s.users.SetCurrentOrganisation(ctx, userID, organisationID, s.now().UTC())
}

func (s *MembershipServiceImpl) record(ctx context.Context, organisationID, actorID string, action audit.Action, targetID string, metadata map[string]any) {
	s.audit.Record(ctx, audit.Entry{
		OrganisationID: &organisationID,
		ActorID:        &actorID,
		Action:         action,
		TargetType:     audit.TargetMember,
		TargetID:       targetID,
		Metadata:       metadata,
	})
}
