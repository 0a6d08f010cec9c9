package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/invitation"
)

type invitationRepository struct{ s *Store }

func NewInvitationRepository(s *Store) invitation.InvitationRepository {
	return &invitationRepository{s: s}
}

func (r *invitationRepository) Create(ctx context.Context, inv invitation.Invitation) (invitation.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.invitations {
		if existing.Status == invitation.StatusPending &&
			existing.OrganisationID == inv.OrganisationID &&
			sameEmail(existing.Email, inv.Email) {
			return invitation.Invitation{}, invitation.ErrDuplicateInvitation
		}
	}
	if inv.ID == "" {
		inv.ID = newID()
	}
	inv.UpdatedAt = inv.CreatedAt
	r.s.invitations[inv.ID] = inv
	return inv, nil
}

func (r *invitationRepository) find(match func(invitation.Invitation) bool) (invitation.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inv := range r.s.invitations {
		if match(inv) {
			return inv, nil
		}
	}
	return invitation.Invitation{}, invitation.ErrInvitationNotFound
}

func (r *invitationRepository) GetByToken(ctx context.Context, token string) (invitation.Invitation, error) {
	return r.find(func(inv invitation.Invitation) bool { return inv.Token == token })
}

func (r *invitationRepository) GetPendingByTokenAndEmail(ctx context.Context, token, email string) (invitation.Invitation, error) {
	return r.find(func(inv invitation.Invitation) bool {
		return inv.Token == token && sameEmail(inv.Email, email) && inv.Status == invitation.StatusPending
	})
}

func newestFirst(list []invitation.Invitation) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

func (r *invitationRepository) ListPendingByOrganisation(ctx context.Context, organisationID string, now time.Time) ([]invitation.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := []invitation.Invitation{}
	for _, inv := range r.s.invitations {
		if inv.OrganisationID == organisationID && inv.CanBeAcceptedAt(now) {
			list = append(list, inv)
		}
	}
	newestFirst(list)
	return list, nil
}

func (r *invitationRepository) ListPendingByEmail(ctx context.Context, email string, now time.Time) ([]invitation.InvitationWithOrganisation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := []invitation.Invitation{}
	for _, inv := range r.s.invitations {
		org, ok := r.s.organisations[inv.OrganisationID]
		if ok && org.DeletedAt == nil && sameEmail(inv.Email, email) && inv.CanBeAcceptedAt(now) {
			list = append(list, inv)
		}
	}
	newestFirst(list)
	out := make([]invitation.InvitationWithOrganisation, 0, len(list))
	for _, inv := range list {
		out = append(out, invitation.InvitationWithOrganisation{
			Invitation:       inv,
			OrganisationName: r.s.organisations[inv.OrganisationID].Name,
		})
	}
	return out, nil
}

func (r *invitationRepository) transition(match func(invitation.Invitation) bool, fn func(inv *invitation.Invitation)) (invitation.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, inv := range r.s.invitations {
		if match(inv) {
			fn(&inv)
			r.s.invitations[id] = inv
			return inv, nil
		}
	}
	return invitation.Invitation{}, invitation.ErrInvitationNotFound
}

func (r *invitationRepository) MarkAccepted(ctx context.Context, id string, now time.Time) (invitation.Invitation, error) {
	return r.transition(func(inv invitation.Invitation) bool {
		return inv.ID == id && inv.CanBeAcceptedAt(now)
	}, func(inv *invitation.Invitation) {
		inv.Status = invitation.StatusAccepted
		inv.AcceptedAt = &now
		inv.UpdatedAt = now
	})
}

func (r *invitationRepository) MarkRevoked(ctx context.Context, token, organisationID string, now time.Time) (invitation.Invitation, error) {
	return r.transition(func(inv invitation.Invitation) bool {
		return inv.Token == token && inv.OrganisationID == organisationID && inv.Status == invitation.StatusPending
	}, func(inv *invitation.Invitation) {
		inv.Status = invitation.StatusRevoked
		inv.RevokedAt = &now
		inv.UpdatedAt = now
	})
}

func (r *invitationRepository) MarkExpired(ctx context.Context, id string, now time.Time) error {
	_, err := r.transition(func(inv invitation.Invitation) bool {
		return inv.ID == id && inv.Status == invitation.StatusPending
	}, func(inv *invitation.Invitation) {
		inv.Status = invitation.StatusExpired
		inv.UpdatedAt = now
	})
	return err
}

func (r *invitationRepository) expireWhere(match func(invitation.Invitation) bool, now time.Time) int64 {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, inv := range r.s.invitations {
		if inv.Status == invitation.StatusPending && inv.IsExpiredAt(now) && match(inv) {
			inv.Status = invitation.StatusExpired
			inv.UpdatedAt = now
			r.s.invitations[id] = inv
			n++
		}
	}
	return n
}

func (r *invitationRepository) ExpireStalePending(ctx context.Context, email, organisationID string, now time.Time) (int64, error) {
	return r.expireWhere(func(inv invitation.Invitation) bool {
		return inv.OrganisationID == organisationID && sameEmail(inv.Email, email)
	}, now), nil
}

func (r *invitationRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.expireWhere(func(invitation.Invitation) bool { return true }, now), nil
}

func (r *invitationRepository) UpdateToken(ctx context.Context, id, newToken string, expiresAt, now time.Time) (invitation.Invitation, error) {
	return r.transition(func(inv invitation.Invitation) bool {
		return inv.ID == id && inv.Status == invitation.StatusPending
	}, func(inv *invitation.Invitation) {
		inv.Token = newToken
		inv.ExpiresAt = expiresAt
		inv.UpdatedAt = now
	})
}

func (r *invitationRepository) RevokeAllPendingByOrganisation(ctx context.Context, organisationID string, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, inv := range r.s.invitations {
		if inv.OrganisationID == organisationID && inv.Status == invitation.StatusPending {
			inv.Status = invitation.StatusRevoked
			inv.RevokedAt = &now
			inv.UpdatedAt = now
			r.s.invitations[id] = inv
			n++
		}
	}
	return n, nil
}
