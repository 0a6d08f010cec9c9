package invitation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/invitation"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/organisation"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/token"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/validator"
)

type InvitationServiceImpl struct {
	tx            database.Transactor
	invitations   invitation.InvitationRepository
	organisations organisation.OrganisationRepository
	users         user.UserRepository
	members       user.MembershipRepository
	membership    user.MembershipService
	audit         audit.Recorder
	ttl           time.Duration
	now           func() time.Time
	newToken      func() string
}

func NewInvitationService(
	tx database.Transactor,
	invitations invitation.InvitationRepository,
	organisations organisation.OrganisationRepository,
	users user.UserRepository,
	members user.MembershipRepository,
	membership user.MembershipService,
	recorder audit.Recorder,
	ttl time.Duration,
) *InvitationServiceImpl {
	if ttl <= 0 {
		ttl = invitation.DefaultTTL
	}
	return &InvitationServiceImpl{
		tx:            tx,
		invitations:   invitations,
		organisations: organisations,
		users:         users,
		members:       members,
		membership:    membership,
		audit:         recorder,
		ttl:           ttl,
		now:           time.Now,
		newToken:      token.Generate,
	}
}

var _ invitation.InvitationService = (*InvitationServiceImpl)(nil)

func (s *InvitationServiceImpl) organisation(ctx context.Context, id string) (organisation.Organisation, error) {
	org, err := s.organisations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, organisation.ErrOrganisationNotFound) {
			return organisation.Organisation{}, invitation.ErrInvalidOrganization
		}
		return organisation.Organisation{}, fmt.Errorf("failed to get organisation: %w", err)
	}
	return org, nil
}

// Create implements invitation.InvitationService.
func (s *InvitationServiceImpl) Create(ctx context.Context, req invitation.CreateRequest) (invitation.InvitationWithOrganisation, error) {
	if err := req.Validate(); err != nil {
		return invitation.InvitationWithOrganisation{}, err
	}
	email := validator.NormalizeEmail(req.Email)
	now := s.now().UTC()

	org, err := s.organisation(ctx, req.OrganisationID)
	if err != nil {
		return invitation.InvitationWithOrganisation{}, err
	}

	inviter, err := s.users.GetByID(ctx, req.InviterID)
	if err != nil {
		return invitation.InvitationWithOrganisation{}, fmt.Errorf("failed to get inviter: %w", err)
	}

	isNewUser := true
	invitee, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		isNewUser = false
		if err := s.checkInvitable(ctx, invitee.ID, org.ID, now); err != nil {
			return invitation.InvitationWithOrganisation{}, err
		}
	case !errors.Is(err, user.ErrUserNotFound):
		return invitation.InvitationWithOrganisation{}, fmt.Errorf("failed to look up invitee: %w", err)
	}

	var created invitation.Invitation
	var staleExpired int64
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// Frees the pending slot held by invitations that timed out unswept.
		staleExpired, err = s.invitations.ExpireStalePending(ctx, email, org.ID, now)
		if err != nil {
			return err
		}

		created, err = s.invitations.Create(ctx, invitation.Invitation{
			Token:          s.newToken(),
			Email:          email,
			Name:           req.Name,
			Role:           user.Role(req.Role),
			OrganisationID: org.ID,
			InviterID:      inviter.ID,
			InviterName:    inviter.Name,
			InviterEmail:   inviter.Email,
			Status:         invitation.StatusPending,
			IsNewUser:      isNewUser,
			CustomMessage:  req.CustomMessage,
			ExpiresAt:      now.Add(s.ttl),
			CreatedAt:      now,
		})
		return err
	})
	if err != nil {
		return invitation.InvitationWithOrganisation{}, err
	}

	metrics.RecordInvitationTransition(string(invitation.StatusExpired), staleExpired)
	metrics.RecordInvitationTransition(string(invitation.StatusPending), 1)
	s.record(ctx, created, req.InviterID, audit.ActionInvitationCreated, map[string]any{
		"email":       created.Email,
		"role":        string(created.Role),
		"is_new_user": created.IsNewUser,
	})

	slog.InfoContext(ctx, "invitation created",
		"invitation_id", created.ID,
		"organisation_id", org.ID,
		"is_new_user", isNewUser,
	)

	return invitation.InvitationWithOrganisation{Invitation: created, OrganisationName: org.Name}, nil
}

// checkInvitable rejects invitees who are active members or banned from the organisation.
func (s *InvitationServiceImpl) checkInvitable(ctx context.Context, userID, organisationID string, now time.Time) error {
	a, err := s.members.Get(ctx, userID, organisationID)
	if err != nil {
		if errors.Is(err, user.ErrAssociationNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get membership: %w", err)
	}
	if a.IsBannedAt(now) {
		return user.ErrMemberBanned
	}
	if a.IsActive {
		return invitation.ErrAlreadyMember
	}
	return nil
}

// Validate implements invitation.InvitationService.
func (s *InvitationServiceImpl) Validate(ctx context.Context, req invitation.ValidateRequest) (invitation.ValidationResult, error) {
	if err := req.Validate(); err != nil {
		return invitation.ValidationResult{}, err
	}
	now := s.now().UTC()

	invalid := invitation.ValidationResult{Valid: false, Reason: invitation.ReasonInvalidOrExpired}

	inv, err := s.invitations.GetByToken(ctx, req.Token)
	if err != nil {
		if errors.Is(err, invitation.ErrInvitationNotFound) {
			return invalid, nil
		}
		return invitation.ValidationResult{}, fmt.Errorf("failed to get invitation: %w", err)
	}
	if inv.Status.IsTerminal() {
		return invalid, nil
	}

	expired := inv.IsExpiredAt(now)
	if expired {
		if err := s.expire(ctx, inv.ID, now); err != nil {
			return invitation.ValidationResult{}, err
		}
	}

	// A mismatched email must not reveal that the token exists.
	if req.Email != "" && validator.NormalizeEmail(req.Email) != validator.NormalizeEmail(inv.Email) {
		return invalid, nil
	}
	if expired {
		return invitation.ValidationResult{Valid: false, Reason: invitation.ReasonExpired}, nil
	}
	if req.OrganisationID != "" && req.OrganisationID != inv.OrganisationID {
		return invitation.ValidationResult{Valid: false, Reason: invitation.ReasonWrongOrganization}, nil
	}

	return invitation.ValidationResult{Valid: true, Invitation: &inv}, nil
}

func (s *InvitationServiceImpl) expire(ctx context.Context, id string, now time.Time) error {
	err := s.invitations.MarkExpired(ctx, id, now)
	switch {
	case err == nil:
		metrics.RecordInvitationTransition(string(invitation.StatusExpired), 1)
		return nil
	case errors.Is(err, invitation.ErrInvitationNotFound):
		// Already moved on by a concurrent request.
		return nil
	default:
		return fmt.Errorf("failed to expire invitation: %w", err)
	}
}

// Accept implements invitation.InvitationService.
func (s *InvitationServiceImpl) Accept(ctx context.Context, req invitation.AcceptRequest) (invitation.AcceptResponse, error) {
	if err := req.Validate(); err != nil {
		return invitation.AcceptResponse{}, err
	}
	now := s.now().UTC()

	inv, err := s.invitations.GetPendingByTokenAndEmail(ctx, req.Token, validator.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, invitation.ErrInvitationNotFound) {
			return invitation.AcceptResponse{}, invitation.ErrNotFoundOrProcessed
		}
		return invitation.AcceptResponse{}, fmt.Errorf("failed to get invitation: %w", err)
	}

	if inv.IsExpiredAt(now) {
		if err := s.expire(ctx, inv.ID, now); err != nil {
			return invitation.AcceptResponse{}, err
		}
		return invitation.AcceptResponse{}, invitation.ErrExpired
	}

	org, err := s.organisation(ctx, inv.OrganisationID)
	if err != nil {
		return invitation.AcceptResponse{}, err
	}

	var added bool
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		accepted, err := s.invitations.MarkAccepted(ctx, inv.ID, now)
		if err != nil {
			if errors.Is(err, invitation.ErrInvitationNotFound) {
				return invitation.ErrNotFoundOrProcessed
			}
			return err
		}
		inv = accepted

		if req.UserID == nil {
			return nil
		}
		added, err = s.membership.Join(ctx, *req.UserID, inv.OrganisationID, inv.Role)
		return err
	})
	if err != nil {
		return invitation.AcceptResponse{}, err
	}

	metrics.RecordInvitationTransition(string(invitation.StatusAccepted), 1)
	var actorID string
	if req.UserID != nil {
		actorID = *req.UserID
	}
	s.record(ctx, inv, actorID, audit.ActionInvitationAccepted, map[string]any{
		"membership_added": added,
	})

	return invitation.AcceptResponse{
		Message:          fmt.Sprintf("You have joined %s", org.Name),
		OrganisationID:   org.ID,
		OrganisationName: org.Name,
		Role:             string(inv.Role),
		MembershipAdded:  added,
		InviteeName:      inv.Name,
		InviteeEmail:     inv.Email,
	}, nil
}

// Revoke implements invitation.InvitationService.
func (s *InvitationServiceImpl) Revoke(ctx context.Context, token, organisationID, actorID string) error {
	inv, err := s.invitations.MarkRevoked(ctx, token, organisationID, s.now().UTC())
	if err != nil {
		if errors.Is(err, invitation.ErrInvitationNotFound) {
			return invitation.ErrNotFoundOrProcessed
		}
		return fmt.Errorf("failed to revoke invitation: %w", err)
	}

	metrics.RecordInvitationTransition(string(invitation.StatusRevoked), 1)
	s.record(ctx, inv, actorID, audit.ActionInvitationRevoked, nil)
	return nil
}

// Resend implements invitation.InvitationService.
func (s *InvitationServiceImpl) Resend(ctx context.Context, tok, organisationID, actorID string) (invitation.InvitationWithOrganisation, error) {
	now := s.now().UTC()

	inv, err := s.invitations.GetByToken(ctx, tok)
	if err != nil {
		if errors.Is(err, invitation.ErrInvitationNotFound) {
			return invitation.InvitationWithOrganisation{}, invitation.ErrNotFoundOrProcessed
		}
		return invitation.InvitationWithOrganisation{}, fmt.Errorf("failed to get invitation: %w", err)
	}
	if inv.OrganisationID != organisationID || inv.Status != invitation.StatusPending {
		return invitation.InvitationWithOrganisation{}, invitation.ErrNotFoundOrProcessed
	}
	if inv.IsExpiredAt(now) {
		if err := s.expire(ctx, inv.ID, now); err != nil {
			return invitation.InvitationWithOrganisation{}, err
		}
		return invitation.InvitationWithOrganisation{}, invitation.ErrExpired
	}

	org, err := s.organisation(ctx, organisationID)
	if err != nil {
		return invitation.InvitationWithOrganisation{}, err
	}

	updated, err := s.invitations.UpdateToken(ctx, inv.ID, s.newToken(), now.Add(s.ttl), now)
	if err != nil {
		if errors.Is(err, invitation.ErrInvitationNotFound) {
			return invitation.InvitationWithOrganisation{}, invitation.ErrNotFoundOrProcessed
		}
		return invitation.InvitationWithOrganisation{}, fmt.Errorf("failed to rotate invitation token: %w", err)
	}

	s.record(ctx, updated, actorID, audit.ActionInvitationResent, nil)
	return invitation.InvitationWithOrganisation{Invitation: updated, OrganisationName: org.Name}, nil
}

// ListPending implements invitation.InvitationService.
func (s *InvitationServiceImpl) ListPending(ctx context.Context, organisationID string) ([]invitation.InvitationResponse, error) {
	invitations, err := s.invitations.ListPendingByOrganisation(ctx, organisationID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list pending invitations: %w", err)
	}

	responses := make([]invitation.InvitationResponse, 0, len(invitations))
	for _, inv := range invitations {
		responses = append(responses, invitation.NewInvitationResponse(inv))
	}
	return responses, nil
}

// ListMine implements invitation.InvitationService.
func (s *InvitationServiceImpl) ListMine(ctx context.Context, email string) ([]invitation.MyInvitationResponse, error) {
	invitations, err := s.invitations.ListPendingByEmail(ctx, validator.NormalizeEmail(email), s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}

	responses := make([]invitation.MyInvitationResponse, 0, len(invitations))
	for _, inv := range invitations {
		responses = append(responses, invitation.MyInvitationResponse{
			Token:            inv.Token,
			OrganisationID:   inv.OrganisationID,
			OrganisationName: inv.OrganisationName,
			Role:             string(inv.Role),
			InviterName:      inv.InviterName,
			ExpiresAt:        inv.ExpiresAt.Format(time.RFC3339),
			CreatedAt:        inv.CreatedAt.Format(time.RFC3339),
		})
	}
	return responses, nil
}

// SweepExpired implements invitation.InvitationService.
func (s *InvitationServiceImpl) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.invitations.SweepExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}

	metrics.RecordInvitationTransition(string(invitation.StatusExpired), n)
	if n > 0 {
		s.audit.Record(ctx, audit.Entry{
			Action:     audit.ActionInvitationsSwept,
			TargetType: audit.TargetInvitation,
			TargetID:   "*",
			Metadata:   map[string]any{"count": n},
		})
	}
	slog.InfoContext(ctx, "expired invitations swept", "count", n)
	return n, nil
}

func (s *InvitationServiceImpl) record(ctx context.Context, inv invitation.Invitation, actorID string, action audit.Action, metadata map[string]any) {
	e := audit.Entry{
		OrganisationID: &inv.OrganisationID,
		Action:         action,
		TargetType:     audit.TargetInvitation,
		TargetID:       inv.ID,
		Metadata:       metadata,
	}
	if actorID != "" {
		e.ActorID = &actorID
	}
	s.audit.Record(ctx, e)
}
