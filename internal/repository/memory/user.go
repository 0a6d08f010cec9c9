package memory

import (
	"context"
	"time"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/user"
)

type userRepository struct{ s *Store }

func NewUserRepository(s *Store) user.UserRepository {
	return &userRepository{s: s}
}

func (r *userRepository) Create(ctx context.Context, u user.User) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u.ID == "" {
		u.ID = newID()
	}
	if u.Status == "" {
		u.Status = user.StatusPending
	}
	r.s.users[u.ID] = u
	return u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, user.ErrUserNotFound
	}
	return u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if sameEmail(u.Email, email) {
			return u, nil
		}
	}
	return user.User{}, user.ErrUserNotFound
}

func (r *userRepository) Provision(ctx context.Context, u user.User) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, existing := range r.s.users {
		if id == u.ID || sameEmail(existing.Email, u.Email) {
			return false, nil
		}
	}
	u.Status = user.StatusPending
	r.s.users[u.ID] = u
	return true, nil
}

func (r *userRepository) update(userID string, fn func(u *user.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return user.ErrUserNotFound
	}
	fn(&u)
	r.s.users[userID] = u
	return nil
}

func (r *userRepository) Activate(ctx context.Context, userID string, now time.Time) error {
	return r.update(userID, func(u *user.User) {
		u.Status = user.StatusActive
		u.IsActive = true
		u.UpdatedAt = now
	})
}

func (r *userRepository) SetCurrentOrganisationIfEmpty(ctx context.Context, userID, organisationID string, now time.Time) error {
	err := r.update(userID, func(u *user.User) {
		if u.CurrentOrganisationID == nil {
			u.CurrentOrganisationID = &organisationID
			u.UpdatedAt = now
		}
	})
	if err == user.ErrUserNotFound {
		return nil
	}
	return err
}

func (r *userRepository) SetCurrentOrganisation(ctx context.Context, userID, organisationID string, now time.Time) error {
	return r.update(userID, func(u *user.User) {
		u.CurrentOrganisationID = &organisationID
		u.UpdatedAt = now
	})
}

func (r *userRepository) UnsetCurrentOrganisation(ctx context.Context, userID, organisationID string, now time.Time) error {
	err := r.update(userID, func(u *user.User) {
		if u.CurrentOrganisationID != nil && *u.CurrentOrganisationID == organisationID {
			u.CurrentOrganisationID = nil
			u.UpdatedAt = now
		}
	})
	if err == user.ErrUserNotFound {
		return nil
	}
	return err
}

func (r *userRepository) ClearCurrentOrganisation(ctx context.Context, organisationID string, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, u := range r.s.users {
		if u.CurrentOrganisationID != nil && *u.CurrentOrganisationID == organisationID {
			u.CurrentOrganisationID = nil
			u.UpdatedAt = now
			r.s.users[id] = u
			n++
		}
	}
	return n, nil
}

func (r *userRepository) SaveOTP(ctx context.Context, userID, sealedSecret string, expiresAt, now time.Time) error {
	return r.update(userID, func(u *user.User) {
		u.OTPSecret = &sealedSecret
		u.OTPExpiresAt = &expiresAt
		u.OTPAttempts = 0
		u.UpdatedAt = now
	})
}

func (r *userRepository) RecordOTPFailure(ctx context.Context, userID string, maxAttempts int, now time.Time) (int, error) {
	var attempts int
	err := r.update(userID, func(u *user.User) {
		u.OTPAttempts++
		if u.OTPAttempts >= maxAttempts {
			u.OTPSecret = nil
			u.OTPExpiresAt = nil
		}
		u.UpdatedAt = now
		attempts = u.OTPAttempts
	})
	return attempts, err
}

func (r *userRepository) MarkEmailVerified(ctx context.Context, userID string, now time.Time) error {
	return r.update(userID, func(u *user.User) {
		u.EmailVerified = true
		u.OTPSecret = nil
		u.OTPExpiresAt = nil
		u.OTPAttempts = 0
		u.UpdatedAt = now
	})
}
