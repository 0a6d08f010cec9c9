package memory

import (
	"context"
	"sort"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/audit"
)

type auditRepository struct{ s *Store }

func NewAuditRepository(s *Store) audit.AuditRepository {
	return &auditRepository{s: s}
}

func (r *auditRepository) Create(ctx context.Context, e audit.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.auditLog = append(r.s.auditLog, e)
	return nil
}

func (r *auditRepository) ListByOrganisation(ctx context.Context, organisationID, before string, limit int) ([]audit.Entry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entries := []audit.Entry{}
	for _, e := range r.s.auditLog {
		if e.OrganisationID == nil || *e.OrganisationID != organisationID {
			continue
		}
		if before != "" && e.ID >= before {
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID > entries[j].ID })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Actions returns every recorded action in insertion order.
func (s *Store) Actions() []audit.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	actions := make([]audit.Action, 0, len(s.auditLog))
	for _, e := range s.auditLog {
		actions = append(actions, e.Action)
	}
	return actions
}
