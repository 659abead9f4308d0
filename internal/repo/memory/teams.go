package memory

import (
	"context"
	"sort"

	"github.com/geocoder89/taskmaster/internal/domain/organization"
	"github.com/geocoder89/taskmaster/internal/domain/team"
)

type TeamsRepo struct {
	s *Store
}

func (r *TeamsRepo) Create(ctx context.Context, t team.Team) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.orgs[t.OrgID]; !ok {
			return organization.ErrNotFound
		}
		st.teams[t.ID] = t
		return nil
	})
}

func (r *TeamsRepo) GetByID(ctx context.Context, id string) (t team.Team, err error) {
	err = r.s.read(ctx, func(st *state) error {
		found, ok := st.teams[id]
		if !ok {
			return team.ErrNotFound
		}
		t = found
		return nil
	})
	return
}

func (r *TeamsRepo) ListForUser(ctx context.Context, userID string) (out []team.Team, err error) {
	out = []team.Team{}

	err = r.s.read(ctx, func(st *state) error {
		for _, m := range st.teamMembers {
			if m.UserID != userID {
				continue
			}
			if t, ok := st.teams[m.TeamID]; ok {
				out = append(out, t)
			}
		}
		return nil
	})

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return
}

// AddMember requires the user to already belong to the team's organization.
func (r *TeamsRepo) AddMember(ctx context.Context, m team.Member) error {
	return r.s.write(ctx, func(st *state) error {
		t, ok := st.teams[m.TeamID]
		if !ok {
			return team.ErrNotFound
		}
		if !st.isOrgMember(t.OrgID, m.UserID) {
			return team.ErrNotOrgMember
		}
		if st.isTeamMember(m.TeamID, m.UserID) {
			return team.ErrAlreadyMember
		}

		st.teamMembers[m.ID] = m
		return nil
	})
}

func (r *TeamsRepo) IsMember(ctx context.Context, teamID, userID string) (ok bool, err error) {
	err = r.s.read(ctx, func(st *state) error {
		ok = st.isTeamMember(teamID, userID)
		return nil
	})
	return
}
