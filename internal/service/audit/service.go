package audit

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/audit"
	"github.com/oklog/ulid/v2"
)

type AuditServiceImpl struct {
	audit.AuditRepository
	now func() time.Time

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewAuditService(repo audit.AuditRepository) audit.AuditService {
	return &AuditServiceImpl{
		AuditRepository: repo,
		now:             time.Now,
		entropy:         ulid.Monotonic(rand.Reader, 0),
	}
}

func (s *AuditServiceImpl) newID(t time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(t), s.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Record implements audit.Recorder. Failures are logged and swallowed.
func (s *AuditServiceImpl) Record(ctx context.Context, e audit.Entry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	if e.ID == "" {
		id, err := s.newID(e.CreatedAt)
		if err != nil {
			slog.ErrorContext(ctx, "failed to generate audit id", "action", e.Action, "error", err)
			return
		}
		e.ID = id
	}

	if err := s.AuditRepository.Create(ctx, e); err != nil {
		slog.ErrorContext(ctx, "failed to record audit entry",
			"action", e.Action,
			"target_type", e.TargetType,
			"target_id", e.TargetID,
			"error", err,
		)
	}
}

// List implements audit.AuditService.
func (s *AuditServiceImpl) List(ctx context.Context, organisationID, before string, limit int) ([]audit.EntryResponse, error) {
	if limit <= 0 {
		limit = audit.DefaultListLimit
	}
	if limit > audit.MaxListLimit {
		limit = audit.MaxListLimit
	}
	if before != "" {
		if _, err := ulid.ParseStrict(before); err != nil {
			return nil, fmt.Errorf("invalid cursor %q: %w", before, audit.ErrInvalidCursor)
		}
	}

	entries, err := s.AuditRepository.ListByOrganisation(ctx, organisationID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	responses := make([]audit.EntryResponse, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, audit.NewEntryResponse(e))
	}
	return responses, nil
}
