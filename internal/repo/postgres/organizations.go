package postgres

import (
	"context"

	"github.com/geocoder89/taskmaster/internal/domain/organization"
	"github.com/geocoder89/taskmaster/internal/domain/user"
	"github.com/geocoder89/taskmaster/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrganizationsRepo struct {
	base
}

func NewOrganizationsRepo(pool *pgxpool.Pool, prom *observability.Prom) *OrganizationsRepo {
	return &OrganizationsRepo{base{pool: pool, prom: prom}}
}

// CreateWithAdmin inserts the organization and its first admin in one transaction.
func (r *OrganizationsRepo) CreateWithAdmin(ctx context.Context, org organization.Organization, adminUserID string) (m organization.Member, err error) {
	tx, err := r.begin(ctx, "organizations.create")
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	err = r.observe("organizations.create", func() error {
		_, e := tx.Exec(ctx,
			`INSERT INTO organizations (id, name, created_at) VALUES ($1,$2,$3)`,
			org.ID, org.Name, org.CreatedAt,
		)
		return e
	})
	if err != nil {
		return
	}

	m = organization.NewMember(org.ID, adminUserID, organization.RoleAdmin)

	err = r.observe("organizations.create.admin_member", func() error {
		_, e := tx.Exec(ctx,
			`INSERT INTO org_members (id, org_id, user_id, role) VALUES ($1,$2,$3,$4)`,
			m.ID, m.OrgID, m.UserID, m.Role,
		)
		return e
	})
	if err != nil {
		if IsForeignKeyViolation(err) {
			err = user.ErrNotFound
		}
		return organization.Member{}, err
	}

	err = r.commit(ctx, "organizations.create", tx)
	return
}

func (r *OrganizationsRepo) GetByID(ctx context.Context, id string) (org organization.Organization, err error) {
	err = r.observe("organizations.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, name, created_at FROM organizations WHERE id = $1`,
			id,
		).Scan(&org.ID, &org.Name, &org.CreatedAt)
	})

	if isNoRows(err) {
		return organization.Organization{}, organization.ErrNotFound
	}

	return
}

func (r *OrganizationsRepo) AddMember(ctx context.Context, m organization.Member) error {
	if !organization.ValidRole(m.Role) {
		return organization.ErrInvalidRole
	}

	err := r.observe("organizations.add_member", func() error {
		_, e := r.pool.Exec(ctx,
			`INSERT INTO org_members (id, org_id, user_id, role) VALUES ($1,$2,$3,$4)`,
			m.ID, m.OrgID, m.UserID, m.Role,
		)
		return e
	})

	switch {
	case err == nil:
		return nil
	case IsUniqueViolation(err):
		return organization.ErrAlreadyMember
	case IsForeignKeyViolation(err) && constraintOf(err) == "org_members_org_id_fkey":
		return organization.ErrNotFound
	case IsForeignKeyViolation(err):
		return user.ErrNotFound
	default:
		return err
	}
}

func (r *OrganizationsRepo) ListForUser(ctx context.Context, userID string) (out []organization.Summary, err error) {
	var rows pgx.Rows

	err = r.observe("organizations.list_for_user", func() error {
		rows, err = r.pool.Query(ctx,
			`SELECT o.id, o.name, m.role
			FROM org_members m
			JOIN organizations o ON o.id = m.org_id
			WHERE m.user_id = $1
			ORDER BY o.name ASC, o.id ASC`,
			userID,
		)
		return err
	})
	if err != nil {
		return
	}

	defer rows.Close()

	out = make([]organization.Summary, 0)

	for rows.Next() {
		var s organization.Summary
		if err = rows.Scan(&s.OrgID, &s.OrgName, &s.Role); err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	err = rows.Err()
	return
}

func (r *OrganizationsRepo) ListMembers(ctx context.Context, orgID string) (out []organization.MemberView, err error) {
	if _, err = r.GetByID(ctx, orgID); err != nil {
		return nil, err
	}

	var rows pgx.Rows

	err = r.observe("organizations.list_members", func() error {
		rows, err = r.pool.Query(ctx,
			`SELECT u.id, u.first_name, u.last_name, m.role
			FROM org_members m
			JOIN users u ON u.id = m.user_id
			WHERE m.org_id = $1
			ORDER BY u.last_name ASC, u.id ASC`,
			orgID,
		)
		return err
	})
	if err != nil {
		return
	}

	defer rows.Close()

	out = make([]organization.MemberView, 0)

	for rows.Next() {
		var v organization.MemberView
		if err = rows.Scan(&v.UserID, &v.FirstName, &v.LastName, &v.Role); err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	err = rows.Err()
	return
}

func (r *OrganizationsRepo) MemberRole(ctx context.Context, orgID, userID string) (role string, err error) {
	err = r.observe("organizations.member_role", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT role FROM org_members WHERE org_id = $1 AND user_id = $2`,
			orgID, userID,
		).Scan(&role)
	})

	if isNoRows(err) {
		return "", organization.ErrMemberNotFound
	}

	return
}
