package memory

import (
	"context"
	"sync"

	"github.com/geocoder89/taskmaster/internal/domain/bug"
	"github.com/geocoder89/taskmaster/internal/domain/organization"
	"github.com/geocoder89/taskmaster/internal/domain/team"
	"github.com/geocoder89/taskmaster/internal/domain/user"
	"github.com/geocoder89/taskmaster/internal/hierarchy"
)

// Store keeps every table in maps guarded by one mutex. Transactions work on a copy of
// the tables and swap it in on success, so a failed transaction leaves no trace.
type Store struct {
	mu sync.Mutex
	st *state
}

type state struct {
	users       map[string]user.User
	orgs        map[string]organization.Organization
	orgMembers  map[string]organization.Member
	teams       map[string]team.Team
	teamMembers map[string]team.Member
	bugs        map[string]bug.Bug
}

func newState() *state {
	return &state{
		users:       make(map[string]user.User),
		orgs:        make(map[string]organization.Organization),
		orgMembers:  make(map[string]organization.Member),
		teams:       make(map[string]team.Team),
		teamMembers: make(map[string]team.Member),
		bugs:        make(map[string]bug.Bug),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.orgs {
		c.orgs[k] = v
	}
	for k, v := range s.orgMembers {
		c.orgMembers[k] = v
	}
	for k, v := range s.teams {
		c.teams[k] = v
	}
	for k, v := range s.teamMembers {
		c.teamMembers[k] = v
	}
	for k, v := range s.bugs {
		c.bugs[k] = v
	}
	return c
}

func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) Users() *UsersRepo {
	return &UsersRepo{s: s}
}

func (s *Store) Organizations() *OrganizationsRepo {
	return &OrganizationsRepo{s: s}
}

func (s *Store) Teams() *TeamsRepo {
	return &TeamsRepo{s: s}
}

func (s *Store) Bugs() *BugsRepo {
	return &BugsRepo{s: s}
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// InTx implements hierarchy.Store.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx hierarchy.Tx) error) error {
	return s.write(ctx, func(st *state) error {
		return fn(ctx, &hierarchyTx{st: st})
	})
}

// write runs fn against a working copy and commits it only if fn and ctx both succeed.
func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.st.clone()

	if err := fn(work); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	s.st = work
	return nil
}

func (s *Store) read(ctx context.Context, fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	return fn(s.st)
}

func (s *state) isOrgMember(orgID, userID string) bool {
	for _, m := range s.orgMembers {
		if m.OrgID == orgID && m.UserID == userID {
			return true
		}
	}
	return false
}

func (s *state) isTeamMember(teamID, userID string) bool {
	for _, m := range s.teamMembers {
		if m.TeamID == teamID && m.UserID == userID {
			return true
		}
	}
	return false
}
