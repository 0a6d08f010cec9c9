package organisation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/invitation"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/organisation"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/project"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/metrics"
)

type OrganisationServiceImpl struct {
	tx            database.Transactor
	organisations organisation.OrganisationRepository
	users         user.UserRepository
	members       user.MembershipRepository
	membership    user.MembershipService
	projects      project.ProjectRepository
	invitations   invitation.InvitationRepository
	audit         audit.Recorder
	now           func() time.Time
}

func NewOrganisationService(
	tx database.Transactor,
	organisations organisation.OrganisationRepository,
	users user.UserRepository,
	members user.MembershipRepository,
	membership user.MembershipService,
	projects project.ProjectRepository,
	invitations invitation.InvitationRepository,
	recorder audit.Recorder,
) *OrganisationServiceImpl {
	return &OrganisationServiceImpl{
		tx:            tx,
		organisations: organisations,
		users:         users,
		members:       members,
		membership:    membership,
		projects:      projects,
		invitations:   invitations,
		audit:         recorder,
		now:           time.Now,
	}
}

var _ organisation.OrganisationService = (*OrganisationServiceImpl)(nil)

// Create implements organisation.OrganisationService.
func (s *OrganisationServiceImpl) Create(ctx context.Context, req organisation.CreateRequest) (organisation.Organisation, error) {
	if err := req.Validate(); err != nil {
		return organisation.Organisation{}, err
	}

	exists, err := s.organisations.ExistsBySlug(ctx, req.Slug)
	if err != nil {
		return organisation.Organisation{}, fmt.Errorf("failed to check slug: %w", err)
	}
	if exists {
		return organisation.Organisation{}, organisation.ErrSlugExists
	}

	now := s.now().UTC()
	var created organisation.Organisation
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.organisations.Create(ctx, organisation.Organisation{
			Name:             req.Name,
			Slug:             req.Slug,
			Description:      req.Description,
			ContactEmail:     req.ContactEmail,
			Website:          req.Website,
			SubscriptionTier: organisation.TierFree,
			Settings:         req.Settings,
			OwnerID:          req.CreatorID,
			CreatedAt:        now,
		})
		if err != nil {
			return err
		}

		_, err = s.membership.Join(ctx, req.CreatorID, created.ID, user.RoleAdmin)
		return err
	})
	if err != nil {
		return organisation.Organisation{}, err
	}

	s.record(ctx, created.ID, req.CreatorID, audit.ActionOrganisationCreated, map[string]any{
		"slug": created.Slug,
	})
	slog.InfoContext(ctx, "organisation created", "organisation_id", created.ID, "owner_id", req.CreatorID)

	return created, nil
}

// GetByID implements organisation.OrganisationService.
func (s *OrganisationServiceImpl) GetByID(ctx context.Context, id string) (organisation.OrganisationResponse, error) {
	org, err := s.organisations.GetByID(ctx, id)
	if err != nil {
		return organisation.OrganisationResponse{}, err
	}
	return organisation.NewOrganisationResponse(org), nil
}

// Update implements organisation.OrganisationService.
func (s *OrganisationServiceImpl) Update(ctx context.Context, id, actorID string, req organisation.UpdateRequest) (organisation.OrganisationResponse, error) {
	if err := req.Validate(); err != nil {
		return organisation.OrganisationResponse{}, err
	}

	updated, err := s.organisations.Update(ctx, id, req, s.now().UTC())
	if err != nil {
		return organisation.OrganisationResponse{}, err
	}

	s.record(ctx, id, actorID, audit.ActionOrganisationUpdated, changedFields(req))
	return organisation.NewOrganisationResponse(updated), nil
}

func changedFields(req organisation.UpdateRequest) map[string]any {
	var fields []string
	if req.Name != nil {
		fields = append(fields, "name")
	}
	if req.Description != nil {
		fields = append(fields, "description")
	}
	if req.ContactEmail != nil {
		fields = append(fields, "contact_email")
	}
	if req.Website != nil {
		fields = append(fields, "website")
	}
	if req.SubscriptionTier != nil {
		fields = append(fields, "subscription_tier")
	}
	if req.Settings != nil {
		fields = append(fields, "settings")
	}
	return map[string]any{"fields": fields}
}

// Delete implements organisation.OrganisationService.
func (s *OrganisationServiceImpl) Delete(ctx context.Context, id, actorID string) (organisation.DeleteResult, error) {
	now := s.now().UTC()

	var result organisation.DeleteResult
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.organisations.SoftDelete(ctx, id, now); err != nil {
			return err
		}

		var err error
		if result.MembersRemoved, err = s.members.DeleteByOrganisation(ctx, id); err != nil {
			return fmt.Errorf("failed to remove members: %w", err)
		}
		if result.PointersCleared, err = s.users.ClearCurrentOrganisation(ctx, id, now); err != nil {
			return fmt.Errorf("failed to clear current organisation: %w", err)
		}

		archived, err := s.projects.ArchiveByOrganisation(ctx, id, now)
		if err != nil {
			return fmt.Errorf("failed to archive projects: %w", err)
		}
		result.ProjectsArchived = archived.Projects
		result.TeamsArchived = archived.Teams

		if result.InvitationsRevoked, err = s.invitations.RevokeAllPendingByOrganisation(ctx, id, now); err != nil {
			return fmt.Errorf("failed to revoke invitations: %w", err)
		}
		return nil
	})
	if err != nil {
		return organisation.DeleteResult{}, err
	}

	metrics.RecordInvitationTransition(string(invitation.StatusRevoked), result.InvitationsRevoked)
	s.record(ctx, id, actorID, audit.ActionOrganisationDeleted, map[string]any{
		"members_removed":     result.MembersRemoved,
		"projects_archived":   result.ProjectsArchived,
		"teams_archived":      result.TeamsArchived,
		"invitations_revoked": result.InvitationsRevoked,
	})
	slog.InfoContext(ctx, "organisation deleted",
		"organisation_id", id,
		"members_removed", result.MembersRemoved,
		"invitations_revoked", result.InvitationsRevoked,
	)

	return result, nil
}

// ListMine implements organisation.OrganisationService.
func (s *OrganisationServiceImpl) ListMine(ctx context.Context, userID string) ([]organisation.MyOrganisationResponse, error) {
	memberships, err := s.organisations.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organisations: %w", err)
	}

	responses := make([]organisation.MyOrganisationResponse, 0, len(memberships))
	for _, m := range memberships {
		responses = append(responses, organisation.MyOrganisationResponse{
			ID:        m.ID,
			Name:      m.Name,
			Slug:      m.Slug,
			Role:      m.Role,
			JoinedAt:  m.JoinedAt,
			IsCurrent: m.IsCurrent,
		})
	}
	return responses, nil
}

func (s *OrganisationServiceImpl) record(ctx context.Context, organisationID, actorID string, action audit.Action, metadata map[string]any) {
	s.audit.Record(ctx, audit.Entry{
		OrganisationID: &organisationID,
		ActorID:        &actorID,
		Action:         action,
		TargetType:     audit.TargetOrganisation,
		TargetID:       organisationID,
		Metadata:       metadata,
	})
}
