package postgres

import (
	"context"

	"github.com/geocoder89/taskmaster/internal/domain/organization"
	"github.com/geocoder89/taskmaster/internal/domain/team"
	"github.com/geocoder89/taskmaster/internal/domain/user"
	"github.com/geocoder89/taskmaster/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TeamsRepo struct {
	base
}

func NewTeamsRepo(pool *pgxpool.Pool, prom *observability.Prom) *TeamsRepo {
	return &TeamsRepo{base{pool: pool, prom: prom}}
}

func (r *TeamsRepo) Create(ctx context.Context, t team.Team) error {
	err := r.observe("teams.create", func() error {
		_, e := r.pool.Exec(ctx,
			`INSERT INTO teams (id, org_id, name, created_at) VALUES ($1,$2,$3,$4)`,
			t.ID, t.OrgID, t.Name, t.CreatedAt,
		)
		return e
	})

	if IsForeignKeyViolation(err) {
		return organization.ErrNotFound
	}

	return err
}

func (r *TeamsRepo) GetByID(ctx context.Context, id string) (t team.Team, err error) {
	err = r.observe("teams.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, org_id, name, created_at FROM teams WHERE id = $1`,
			id,
		).Scan(&t.ID, &t.OrgID, &t.Name, &t.CreatedAt)
	})

	if isNoRows(err) {
		return team.Team{}, team.ErrNotFound
	}

	return
}

func (r *TeamsRepo) ListForUser(ctx context.Context, userID string) (out []team.Team, err error) {
	var rows pgx.Rows

	err = r.observe("teams.list_for_user", func() error {
		rows, err = r.pool.Query(ctx,
			`SELECT t.id, t.org_id, t.name, t.created_at
			FROM team_members m
			JOIN teams t ON t.id = m.team_id
			WHERE m.user_id = $1
			ORDER BY t.name ASC, t.id ASC`,
			userID,
		)
		return err
	})
	if err != nil {
		return
	}

	defer rows.Close()

	out = make([]team.Team, 0)

	for rows.Next() {
		var t team.Team
		if err = rows.Scan(&t.ID, &t.OrgID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	err = rows.Err()
	return
}

// AddMember requires the user to already belong to the team's organization. The
// membership row is locked so a concurrent removal waits for this insert.
func (r *TeamsRepo) AddMember(ctx context.Context, m team.Member) (err error) {
	tx, err := r.begin(ctx, "teams.add_member")
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var orgID string
	err = r.observe("teams.add_member.lock_team", func() error {
		return tx.QueryRow(ctx, `SELECT org_id FROM teams WHERE id = $1 FOR SHARE`, m.TeamID).Scan(&orgID)
	})
	if isNoRows(err) {
		return team.ErrNotFound
	}
	if err != nil {
		return
	}

	var one int
	err = r.observe("teams.add_member.org_membership", func() error {
		return tx.QueryRow(ctx,
			`SELECT 1 FROM org_members WHERE org_id = $1 AND user_id = $2 FOR SHARE`,
			orgID, m.UserID,
		).Scan(&one)
	})
	if isNoRows(err) {
		return team.ErrNotOrgMember
	}
	if err != nil {
		return
	}

	err = r.observe("teams.add_member.insert", func() error {
		_, e := tx.Exec(ctx,
			`INSERT INTO team_members (id, team_id, user_id, role) VALUES ($1,$2,$3,$4)`,
			m.ID, m.TeamID, m.UserID, m.Role,
		)
		return e
	})
	switch {
	case IsUniqueViolation(err):
		return team.ErrAlreadyMember
	case IsForeignKeyViolation(err):
		return user.ErrNotFound
	case err != nil:
		return
	}

	return r.commit(ctx, "teams.add_member", tx)
}

func (r *TeamsRepo) IsMember(ctx context.Context, teamID, userID string) (ok bool, err error) {
	err = r.observe("teams.is_member", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM team_members WHERE team_id = $1 AND user_id = $2)`,
			teamID, userID,
		).Scan(&ok)
	})
	return
}
