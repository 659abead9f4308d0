package postgres

import (
	"context"

	"github.com/geocoder89/taskmaster/internal/domain/bug"
	"github.com/geocoder89/taskmaster/internal/domain/team"
	"github.com/geocoder89/taskmaster/internal/domain/user"
	"github.com/geocoder89/taskmaster/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bugColumns = `id, team_id, reporter_id, assignee_id, created_at, description, content, status, priority`

type BugsRepo struct {
	base
}

func NewBugsRepo(pool *pgxpool.Pool, prom *observability.Prom) *BugsRepo {
	return &BugsRepo{base{pool: pool, prom: prom}}
}

func scanBug(row pgx.Row) (bug.Bug, error) {
	var (
		b        bug.Bug
		reporter *string
	)

	err := row.Scan(&b.ID, &b.TeamID, &reporter, &b.AssigneeID, &b.CreatedAt, &b.Description, &b.Content, &b.Status, &b.Priority)
	if err != nil {
		return bug.Bug{}, err
	}

	if reporter != nil {
		b.ReporterID = *reporter
	}

	return b, nil
}

func (r *BugsRepo) Create(ctx context.Context, b bug.Bug) error {
	err := r.observe("bugs.create", func() error {
		_, e := r.pool.Exec(ctx,
			`INSERT INTO bugs (`+bugColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			b.ID, b.TeamID, b.ReporterID, b.AssigneeID, b.CreatedAt, b.Description, b.Content, b.Status, b.Priority,
		)
		return e
	})

	switch {
	case IsForeignKeyViolation(err) && constraintOf(err) == "bugs_team_id_fkey":
		return team.ErrNotFound
	case IsForeignKeyViolation(err):
		return user.ErrNotFound
	default:
		return err
	}
}

func (r *BugsRepo) GetByID(ctx context.Context, id string) (b bug.Bug, err error) {
	err = r.observe("bugs.get_by_id", func() error {
		b, err = scanBug(r.pool.QueryRow(ctx, `SELECT `+bugColumns+` FROM bugs WHERE id = $1`, id))
		return err
	})

	if isNoRows(err) {
		return bug.Bug{}, bug.ErrNotFound
	}

	return
}

func (r *BugsRepo) ListByTeam(ctx context.Context, teamID string) (out []bug.Bug, err error) {
	var exists bool
	err = r.observe("bugs.list_by_team.check_team_exists", func() error {
		return r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM teams WHERE id = $1)`, teamID).Scan(&exists)
	})
	if isNoRows(err) {
		return nil, team.ErrNotFound
	}
	if err != nil {
		return
	}
	if !exists {
		return nil, team.ErrNotFound
	}

	var rows pgx.Rows

	err = r.observe("bugs.list_by_team", func() error {
		rows, err = r.pool.Query(ctx,
			`SELECT `+bugColumns+` FROM bugs WHERE team_id = $1 ORDER BY created_at ASC, id ASC`,
			teamID,
		)
		return err
	})
	if err != nil {
		return
	}

	defer rows.Close()

	out = make([]bug.Bug, 0)

	for rows.Next() {
		b, e := scanBug(rows)
		if e != nil {
			return nil, e
		}
		out = append(out, b)
	}

	err = rows.Err()
	return
}

// Assign sets the assignee after checking, under lock, that they belong to the bug's team.
func (r *BugsRepo) Assign(ctx context.Context, bugID, assigneeID string) (b bug.Bug, err error) {
	tx, err := r.begin(ctx, "bugs.assign")
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var teamID string
	err = r.observe("bugs.assign.lock_bug", func() error {
		return tx.QueryRow(ctx, `SELECT team_id FROM bugs WHERE id = $1 FOR UPDATE`, bugID).Scan(&teamID)
	})
	if isNoRows(err) {
		return bug.Bug{}, bug.ErrNotFound
	}
	if err != nil {
		return
	}

	var one int
	err = r.observe("bugs.assign.team_membership", func() error {
		return tx.QueryRow(ctx,
			`SELECT 1 FROM team_members WHERE team_id = $1 AND user_id = $2 FOR SHARE`,
			teamID, assigneeID,
		).Scan(&one)
	})
	if isNoRows(err) {
		return bug.Bug{}, bug.ErrAssigneeNotOnTeam
	}
	if err != nil {
		return
	}

	err = r.observe("bugs.assign.update", func() error {
		b, err = scanBug(tx.QueryRow(ctx,
			`UPDATE bugs SET assignee_id = $2 WHERE id = $1 RETURNING `+bugColumns,
			bugID, assigneeID,
		))
		return err
	})
	if err != nil {
		return
	}

	err = r.commit(ctx, "bugs.assign", tx)
	return
}

func (r *BugsRepo) UpdateStatus(ctx context.Context, bugID string, status int) (bug.Bug, error) {
	if err := bug.ValidateStatus(status); err != nil {
		return bug.Bug{}, err
	}
	return r.updateColumn(ctx, "bugs.update_status", `UPDATE bugs SET status = $2 WHERE id = $1 RETURNING `+bugColumns, bugID, status)
}

func (r *BugsRepo) UpdatePriority(ctx context.Context, bugID string, priority int) (bug.Bug, error) {
	if err := bug.ValidatePriority(priority); err != nil {
		return bug.Bug{}, err
	}
	return r.updateColumn(ctx, "bugs.update_priority", `UPDATE bugs SET priority = $2 WHERE id = $1 RETURNING `+bugColumns, bugID, priority)
}

func (r *BugsRepo) updateColumn(ctx context.Context, op, query, bugID string, val int) (b bug.Bug, err error) {
	err = r.observe(op, func() error {
		b, err = scanBug(r.pool.QueryRow(ctx, query, bugID, val))
		return err
	})

	if isNoRows(err) {
		return bug.Bug{}, bug.ErrNotFound
	}

	return
}

func (r *BugsRepo) Delete(ctx context.Context, bugID string) error {
	var affected int64

	err := r.observe("bugs.delete", func() error {
		tag, e := r.pool.Exec(ctx, `DELETE FROM bugs WHERE id = $1`, bugID)
		affected = tag.RowsAffected()
		return e
	})
	if err != nil {
		return err
	}

	if affected == 0 {
		return bug.ErrNotFound
	}

	return nil
}
