package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/organisation"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/project"
)

type organisationRepository struct{ s *Store }

func NewOrganisationRepository(s *Store) organisation.OrganisationRepository {
	return &organisationRepository{s: s}
}

func (r *organisationRepository) GetByID(ctx context.Context, id string) (organisation.Organisation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.organisations[id]
	if !ok || o.DeletedAt != nil {
		return organisation.Organisation{}, organisation.ErrOrganisationNotFound
	}
	return o, nil
}

func (r *organisationRepository) slugTaken(slug string) bool {
	for _, o := range r.s.organisations {
		if o.Slug == slug && o.DeletedAt == nil {
			return true
		}
	}
	return false
}

func (r *organisationRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.slugTaken(slug), nil
}

func (r *organisationRepository) Create(ctx context.Context, org organisation.Organisation) (organisation.Organisation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.slugTaken(org.Slug) {
		return organisation.Organisation{}, organisation.ErrSlugExists
	}
	if org.ID == "" {
		org.ID = newID()
	}
	if org.Settings == nil {
		org.Settings = map[string]any{}
	}
	if org.SubscriptionTier == "" {
		org.SubscriptionTier = organisation.TierFree
	}
	org.UpdatedAt = org.CreatedAt
	r.s.organisations[org.ID] = org
	return org, nil
}

func (r *organisationRepository) Update(ctx context.Context, id string, req organisation.UpdateRequest, now time.Time) (organisation.Organisation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.organisations[id]
	if !ok || o.DeletedAt != nil {
		return organisation.Organisation{}, organisation.ErrOrganisationNotFound
	}
	if req.Name != nil {
		o.Name = *req.Name
	}
	if req.Description != nil {
		o.Description = req.Description
	}
	if req.ContactEmail != nil {
		o.ContactEmail = req.ContactEmail
	}
	if req.Website != nil {
		o.Website = req.Website
	}
	if req.SubscriptionTier != nil {
		o.SubscriptionTier = organisation.SubscriptionTier(*req.SubscriptionTier)
	}
	if req.Settings != nil {
		merged := map[string]any{}
		for k, v := range o.Settings {
			merged[k] = v
		}
		for k, v := range req.Settings {
			merged[k] = v
		}
		o.Settings = merged
	}
	o.UpdatedAt = now
	r.s.organisations[id] = o
	return o, nil
}

func (r *organisationRepository) SoftDelete(ctx context.Context, id string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.organisations[id]
	if !ok || o.DeletedAt != nil {
		return organisation.ErrOrganisationNotFound
	}
	o.DeletedAt = &now
	o.UpdatedAt = now
	r.s.organisations[id] = o
	return nil
}

func (r *organisationRepository) ListForUser(ctx context.Context, userID string) ([]organisation.Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u := r.s.users[userID]
	list := []organisation.Membership{}
	for key, a := range r.s.members {
		if key.userID != userID || !a.IsActive {
			continue
		}
		o, ok := r.s.organisations[key.organisationID]
		if !ok || o.DeletedAt != nil {
			continue
		}
		list = append(list, organisation.Membership{
			Organisation: o,
			Role:         string(a.Role),
			JoinedAt:     a.JoinedAt,
			IsCurrent:    u.CurrentOrganisationID != nil && *u.CurrentOrganisationID == o.ID,
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].JoinedAt.Before(list[j].JoinedAt) })
	return list, nil
}

type projectRepository struct{ s *Store }

func NewProjectRepository(s *Store) project.ProjectRepository {
	return &projectRepository{s: s}
}

func (r *projectRepository) ArchiveByOrganisation(ctx context.Context, organisationID string, now time.Time) (project.ArchiveResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result project.ArchiveResult
	for id, p := range r.s.projects {
		if p.OrganisationID == organisationID && !p.Archived {
			p.Archived = true
			r.s.projects[id] = p
			result.Projects++
		}
	}
	for id, t := range r.s.teams {
		if t.OrganisationID == organisationID && !t.Archived {
			t.Archived = true
			r.s.teams[id] = t
			result.Teams++
		}
	}
	return result, nil
}
