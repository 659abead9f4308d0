package postgres

import (
	"context"

	"github.com/geocoder89/taskmaster/internal/hierarchy"
	"github.com/geocoder89/taskmaster/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HierarchyStore runs cascading deletes inside one pgx transaction.
type HierarchyStore struct {
	base
}

func NewHierarchyStore(pool *pgxpool.Pool, prom *observability.Prom) *HierarchyStore {
	return &HierarchyStore{base{pool: pool, prom: prom}}
}

func (s *HierarchyStore) InTx(ctx context.Context, fn func(ctx context.Context, tx hierarchy.Tx) error) (err error) {
	tx, err := s.begin(ctx, "hierarchy")
	if err != nil {
		return
	}

	defer func() {
		// no-op after a successful commit
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	if err = fn(ctx, &hierarchyTx{base: s.base, tx: tx}); err != nil {
		return
	}

	return s.commit(ctx, "hierarchy", tx)
}

type hierarchyTx struct {
	base
	tx pgx.Tx
}

func (t *hierarchyTx) lock(ctx context.Context, op, query, id string) (bool, error) {
	var got string

	err := t.observe(op, func() error {
		return t.tx.QueryRow(ctx, query, id).Scan(&got)
	})

	if isNoRows(err) {
		return false, nil
	}

	return err == nil, err
}

func (t *hierarchyTx) exec(ctx context.Context, op, query string, args ...any) (n int64, err error) {
	err = t.observe(op, func() error {
		tag, e := t.tx.Exec(ctx, query, args...)
		n = tag.RowsAffected()
		return e
	})
	return
}

func (t *hierarchyTx) ids(ctx context.Context, op, query, arg string) (out []string, err error) {
	var rows pgx.Rows

	err = t.observe(op, func() error {
		rows, err = t.tx.Query(ctx, query, arg)
		return err
	})
	if err != nil {
		return
	}

	defer rows.Close()

	out = make([]string, 0)

	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}

	err = rows.Err()
	return
}

func (t *hierarchyTx) count(ctx context.Context, op, query, arg string) (n int64, err error) {
	err = t.observe(op, func() error {
		return t.tx.QueryRow(ctx, query, arg).Scan(&n)
	})
	return
}

func (t *hierarchyTx) LockOrganization(ctx context.Context, orgID string) (bool, error) {
	return t.lock(ctx, "hierarchy.lock_organization", `SELECT id FROM organizations WHERE id = $1 FOR UPDATE`, orgID)
}

func (t *hierarchyTx) LockTeam(ctx context.Context, teamID string) (bool, error) {
	return t.lock(ctx, "hierarchy.lock_team", `SELECT id FROM teams WHERE id = $1 FOR UPDATE`, teamID)
}

func (t *hierarchyTx) LockUser(ctx context.Context, userID string) (bool, error) {
	return t.lock(ctx, "hierarchy.lock_user", `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID)
}

func (t *hierarchyTx) ListTeamIDsByOrg(ctx context.Context, orgID string) ([]string, error) {
	return t.ids(ctx, "hierarchy.list_teams_by_org",
		`SELECT id FROM teams WHERE org_id = $1 ORDER BY id FOR UPDATE`, orgID)
}

func (t *hierarchyTx) ListOrgIDsByUser(ctx context.Context, userID string) ([]string, error) {
	return t.ids(ctx, "hierarchy.list_orgs_by_user",
		`SELECT org_id FROM org_members WHERE user_id = $1 ORDER BY org_id`, userID)
}

func (t *hierarchyTx) DeleteTeamMembersByTeam(ctx context.Context, teamID string) (int64, error) {
	return t.exec(ctx, "hierarchy.delete_team_members_by_team",
		`DELETE FROM team_members WHERE team_id = $1`, teamID)
}

func (t *hierarchyTx) DeleteBugsByTeam(ctx context.Context, teamID string) (int64, error) {
	return t.exec(ctx, "hierarchy.delete_bugs_by_team",
		`DELETE FROM bugs WHERE team_id = $1`, teamID)
}

func (t *hierarchyTx) DeleteTeam(ctx context.Context, teamID string) (int64, error) {
	return t.exec(ctx, "hierarchy.delete_team",
		`DELETE FROM teams WHERE id = $1`, teamID)
}

func (t *hierarchyTx) DeleteOrgMembersByOrg(ctx context.Context, orgID string) (int64, error) {
	return t.exec(ctx, "hierarchy.delete_org_members_by_org",
		`DELETE FROM org_members WHERE org_id = $1`, orgID)
}

func (t *hierarchyTx) DeleteOrganization(ctx context.Context, orgID string) (int64, error) {
	return t.exec(ctx, "hierarchy.delete_organization",
		`DELETE FROM organizations WHERE id = $1`, orgID)
}

func (t *hierarchyTx) DeleteTeamMembersByUserInOrg(ctx context.Context, orgID, userID string) (int64, error) {
	return t.exec(ctx, "hierarchy.delete_team_members_by_user_in_org",
		`DELETE FROM team_members m
		USING teams t
		WHERE m.team_id = t.id AND t.org_id = $1 AND m.user_id = $2`,
		orgID, userID)
}

func (t *hierarchyTx) DeleteTeamMembersByUser(ctx context.Context, userID string) (int64, error) {
	return t.exec(ctx, "hierarchy.delete_team_members_by_user",
		`DELETE FROM team_members WHERE user_id = $1`, userID)
}

func (t *hierarchyTx) DeleteOrgMembersByUser(ctx context.Context, userID string) (int64, error) {
	return t.exec(ctx, "hierarchy.delete_org_members_by_user",
		`DELETE FROM org_members WHERE user_id = $1`, userID)
}

func (t *hierarchyTx) ClearBugReferencesToUser(ctx context.Context, userID string) (int64, error) {
	return t.exec(ctx, "hierarchy.clear_bug_references",
		`UPDATE bugs
		SET reporter_id = CASE WHEN reporter_id = $1 THEN NULL ELSE reporter_id END,
			assignee_id = CASE WHEN assignee_id = $1 THEN NULL ELSE assignee_id END
		WHERE reporter_id = $1 OR assignee_id = $1`,
		userID)
}

func (t *hierarchyTx) DeleteUser(ctx context.Context, userID string) (int64, error) {
	return t.exec(ctx, "hierarchy.delete_user",
		`DELETE FROM users WHERE id = $1`, userID)
}

func (t *hierarchyTx) CountOrgReferences(ctx context.Context, orgID string) (int64, error) {
	return t.count(ctx, "hierarchy.count_org_references",
		`SELECT (SELECT COUNT(*) FROM organizations WHERE id = $1)
			+ (SELECT COUNT(*) FROM org_members WHERE org_id = $1)
			+ (SELECT COUNT(*) FROM teams WHERE org_id = $1)`,
		orgID)
}

func (t *hierarchyTx) CountTeamReferences(ctx context.Context, teamID string) (int64, error) {
	return t.count(ctx, "hierarchy.count_team_references",
		`SELECT (SELECT COUNT(*) FROM teams WHERE id = $1)
			+ (SELECT COUNT(*) FROM team_members WHERE team_id = $1)
			+ (SELECT COUNT(*) FROM bugs WHERE team_id = $1)`,
		teamID)
}

func (t *hierarchyTx) CountUserReferences(ctx context.Context, userID string) (int64, error) {
	return t.count(ctx, "hierarchy.count_user_references",
		`SELECT (SELECT COUNT(*) FROM users WHERE id = $1)
			+ (SELECT COUNT(*) FROM org_members WHERE user_id = $1)
			+ (SELECT COUNT(*) FROM team_members WHERE user_id = $1)
			+ (SELECT COUNT(*) FROM bugs WHERE reporter_id = $1 OR assignee_id = $1)`,
		userID)
}
