// Package memory holds map-backed repositories used by service and handler tests.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/invitation"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/organisation"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/database"
	"github.com/google/uuid"
)

// Store is the shared state behind every repository of this package. Joins
// across tables read the same maps under one lock.
type Store struct {
	mu            sync.Mutex
	users         map[string]user.User
	members       map[memberKey]user.Association
	organisations map[string]organisation.Organisation
	invitations   map[string]invitation.Invitation
	projects      map[string]archivable
	teams         map[string]archivable
	auditLog      []audit.Entry
}

type memberKey struct {
	userID         string
	organisationID string
}

type archivable struct {
	OrganisationID string
	Archived       bool
}

func NewStore() *Store {
	return &Store{
		users:         map[string]user.User{},
		members:       map[memberKey]user.Association{},
		organisations: map[string]organisation.Organisation{},
		invitations:   map[string]invitation.Invitation{},
		projects:      map[string]archivable{},
		teams:         map[string]archivable{},
	}
}

// Transactor runs fn directly. Writes are applied immediately and are not
// rolled back when fn fails.
type Transactor struct{}

var _ database.Transactor = Transactor{}

func (Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// AddProject and AddTeam seed rows for the archive cascade.
func (s *Store) AddProject(organisationID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := newID()
	s.projects[id] = archivable{OrganisationID: organisationID}
	return id
}

func (s *Store) AddTeam(organisationID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := newID()
	s.teams[id] = archivable{OrganisationID: organisationID}
	return id
}

// ProjectArchived reports the archived flag of a seeded project.
func (s *Store) ProjectArchived(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projects[id].Archived
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
