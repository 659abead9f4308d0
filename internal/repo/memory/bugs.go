package memory

import (
	"context"
	"sort"

	"github.com/geocoder89/taskmaster/internal/domain/bug"
	"github.com/geocoder89/taskmaster/internal/domain/team"
	"github.com/geocoder89/taskmaster/internal/domain/user"
)

type BugsRepo struct {
	s *Store
}

func (r *BugsRepo) Create(ctx context.Context, b bug.Bug) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.teams[b.TeamID]; !ok {
			return team.ErrNotFound
		}
		if _, ok := st.users[b.ReporterID]; !ok {
			return user.ErrNotFound
		}
		st.bugs[b.ID] = b
		return nil
	})
}

func (r *BugsRepo) GetByID(ctx context.Context, id string) (b bug.Bug, err error) {
	err = r.s.read(ctx, func(st *state) error {
		found, ok := st.bugs[id]
		if !ok {
			return bug.ErrNotFound
		}
		b = found
		return nil
	})
	return
}

func (r *BugsRepo) ListByTeam(ctx context.Context, teamID string) (out []bug.Bug, err error) {
	out = []bug.Bug{}

	err = r.s.read(ctx, func(st *state) error {
		if _, ok := st.teams[teamID]; !ok {
			return team.ErrNotFound
		}
		for _, b := range st.bugs {
			if b.TeamID == teamID {
				out = append(out, b)
			}
		}
		return nil
	})

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return
}

func (r *BugsRepo) Assign(ctx context.Context, bugID, assigneeID string) (bug.Bug, error) {
	return r.update(ctx, bugID, func(st *state, b *bug.Bug) error {
		if !st.isTeamMember(b.TeamID, assigneeID) {
			return bug.ErrAssigneeNotOnTeam
		}
		b.AssigneeID = &assigneeID
		return nil
	})
}

func (r *BugsRepo) UpdateStatus(ctx context.Context, bugID string, status int) (bug.Bug, error) {
	if err := bug.ValidateStatus(status); err != nil {
		return bug.Bug{}, err
	}

	return r.update(ctx, bugID, func(st *state, b *bug.Bug) error {
		b.Status = status
		return nil
	})
}

func (r *BugsRepo) UpdatePriority(ctx context.Context, bugID string, priority int) (bug.Bug, error) {
	if err := bug.ValidatePriority(priority); err != nil {
		return bug.Bug{}, err
	}

	return r.update(ctx, bugID, func(st *state, b *bug.Bug) error {
		b.Priority = priority
		return nil
	})
}

func (r *BugsRepo) Delete(ctx context.Context, bugID string) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.bugs[bugID]; !ok {
			return bug.ErrNotFound
		}
		delete(st.bugs, bugID)
		return nil
	})
}

func (r *BugsRepo) update(ctx context.Context, bugID string, fn func(st *state, b *bug.Bug) error) (out bug.Bug, err error) {
	err = r.s.write(ctx, func(st *state) error {
		b, ok := st.bugs[bugID]
		if !ok {
			return bug.ErrNotFound
		}
		if err := fn(st, &b); err != nil {
			return err
		}
		st.bugs[bugID] = b
		out = b
		return nil
	})
	return
}
