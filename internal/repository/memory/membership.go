package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/user"
)

type membershipRepository struct{ s *Store }

func NewMembershipRepository(s *Store) user.MembershipRepository {
	return &membershipRepository{s: s}
}

func (r *membershipRepository) Get(ctx context.Context, userID, organisationID string) (user.Association, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.members[memberKey{userID, organisationID}]
	if !ok {
		return user.Association{}, user.ErrAssociationNotFound
	}
	return a, nil
}

func (r *membershipRepository) GetActive(ctx context.Context, userID, organisationID string) (user.Association, error) {
	a, err := r.Get(ctx, userID, organisationID)
	if err != nil {
		return user.Association{}, err
	}
	if !a.IsActive {
		return user.Association{}, user.ErrAssociationNotFound
	}
	return a, nil
}

func (r *membershipRepository) Join(ctx context.Context, a user.Association) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := memberKey{a.UserID, a.OrganisationID}
	existing, ok := r.s.members[key]
	if ok && existing.IsActive {
		return false, nil
	}
	if ok {
		existing.Role = a.Role
		existing.IsActive = true
		existing.JoinedAt = a.JoinedAt
		existing.Permissions = a.Permissions
		existing.UpdatedAt = a.JoinedAt
		existing.Banned = false
		existing.BanReason = nil
		existing.BanExpiresAt = nil
		existing.BannedBy = nil
		existing.BannedAt = nil
		existing.ActiveBeforeBan = false
		r.s.members[key] = existing
		return true, nil
	}
	a.IsActive = true
	a.CreatedAt = a.JoinedAt
	a.UpdatedAt = a.JoinedAt
	r.s.members[key] = a
	return true, nil
}

func (r *membershipRepository) ListByOrganisation(ctx context.Context, organisationID string) ([]user.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	members := []user.Member{}
	for key, a := range r.s.members {
		if key.organisationID != organisationID || !a.IsActive {
			continue
		}
		u := r.s.users[key.userID]
		members = append(members, user.Member{Association: a, Email: u.Email, Name: u.Name})
	}
	sort.Slice(members, func(i, j int) bool { return members[i].JoinedAt.Before(members[j].JoinedAt) })
	return members, nil
}

func (r *membershipRepository) CountActiveByRole(ctx context.Context, organisationID string, role user.Role) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for key, a := range r.s.members {
		if key.organisationID == organisationID && a.IsActive && a.Role == role {
			n++
		}
	}
	return n, nil
}

func (r *membershipRepository) update(userID, organisationID string, guard func(a user.Association) bool, fn func(a *user.Association)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := memberKey{userID, organisationID}
	a, ok := r.s.members[key]
	if !ok || !guard(a) {
		return user.ErrAssociationNotFound
	}
	fn(&a)
	r.s.members[key] = a
	return nil
}

func isActive(a user.Association) bool { return a.IsActive }

func (r *membershipRepository) UpdateRole(ctx context.Context, userID, organisationID string, role user.Role, now time.Time) error {
	return r.update(userID, organisationID, isActive, func(a *user.Association) {
		a.Role = role
		a.UpdatedAt = now
	})
}

func (r *membershipRepository) Deactivate(ctx context.Context, userID, organisationID string, now time.Time) error {
	return r.update(userID, organisationID, isActive, func(a *user.Association) {
		a.IsActive = false
		a.UpdatedAt = now
	})
}

func (r *membershipRepository) Ban(ctx context.Context, req user.BanRequest, now time.Time) error {
	return r.update(req.UserID, req.OrganisationID, func(user.Association) bool { return true }, func(a *user.Association) {
		bannedBy := req.BannedBy
		if !a.Banned {
			a.ActiveBeforeBan = a.IsActive
		}
		a.IsActive = false
		a.Banned = true
		a.BanReason = req.Reason
		a.BanExpiresAt = req.ExpiresAt
		a.BannedBy = &bannedBy
		a.BannedAt = &now
		a.UpdatedAt = now
	})
}

func (r *membershipRepository) Unban(ctx context.Context, userID, organisationID string, now time.Time) error {
	return r.update(userID, organisationID, func(a user.Association) bool { return a.Banned }, func(a *user.Association) {
		a.IsActive = a.ActiveBeforeBan
		a.ActiveBeforeBan = false
		a.Banned = false
		a.BanReason = nil
		a.BanExpiresAt = nil
		a.BannedBy = nil
		a.BannedAt = nil
		a.UpdatedAt = now
	})
}

func (r *membershipRepository) DeleteByOrganisation(ctx context.Context, organisationID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for key := range r.s.members {
		if key.organisationID == organisationID {
			delete(r.s.members, key)
			n++
		}
	}
	return n, nil
}
