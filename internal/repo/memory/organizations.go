package memory

import (
	"context"
	"sort"

	"github.com/geocoder89/taskmaster/internal/domain/organization"
	"github.com/geocoder89/taskmaster/internal/domain/user"
)

type OrganizationsRepo struct {
	s *Store
}

// CreateWithAdmin inserts org and makes adminUserID its first admin, atomically.
func (r *OrganizationsRepo) CreateWithAdmin(ctx context.Context, org organization.Organization, adminUserID string) (m organization.Member, err error) {
	err = r.s.write(ctx, func(st *state) error {
		if _, ok := st.users[adminUserID]; !ok {
			return user.ErrNotFound
		}

		st.orgs[org.ID] = org
		m = organization.NewMember(org.ID, adminUserID, organization.RoleAdmin)
		st.orgMembers[m.ID] = m
		return nil
	})
	return
}

func (r *OrganizationsRepo) GetByID(ctx context.Context, id string) (org organization.Organization, err error) {
	err = r.s.read(ctx, func(st *state) error {
		found, ok := st.orgs[id]
		if !ok {
			return organization.ErrNotFound
		}
		org = found
		return nil
	})
	return
}

func (r *OrganizationsRepo) AddMember(ctx context.Context, m organization.Member) error {
	if !organization.ValidRole(m.Role) {
		return organization.ErrInvalidRole
	}

	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.orgs[m.OrgID]; !ok {
			return organization.ErrNotFound
		}
		if _, ok := st.users[m.UserID]; !ok {
			return user.ErrNotFound
		}
		if st.isOrgMember(m.OrgID, m.UserID) {
			return organization.ErrAlreadyMember
		}

		st.orgMembers[m.ID] = m
		return nil
	})
}

func (r *OrganizationsRepo) ListForUser(ctx context.Context, userID string) (out []organization.Summary, err error) {
	out = []organization.Summary{}

	err = r.s.read(ctx, func(st *state) error {
		for _, m := range st.orgMembers {
			if m.UserID != userID {
				continue
			}
			org, ok := st.orgs[m.OrgID]
			if !ok {
				continue
			}
			out = append(out, organization.Summary{OrgID: org.ID, OrgName: org.Name, Role: m.Role})
		}
		return nil
	})

	sort.Slice(out, func(i, j int) bool {
		if out[i].OrgName != out[j].OrgName {
			return out[i].OrgName < out[j].OrgName
		}
		return out[i].OrgID < out[j].OrgID
	})
	return
}

func (r *OrganizationsRepo) ListMembers(ctx context.Context, orgID string) (out []organization.MemberView, err error) {
	out = []organization.MemberView{}

	err = r.s.read(ctx, func(st *state) error {
		if _, ok := st.orgs[orgID]; !ok {
			return organization.ErrNotFound
		}

		for _, m := range st.orgMembers {
			if m.OrgID != orgID {
				continue
			}
			u, ok := st.users[m.UserID]
			if !ok {
				continue
			}
			out = append(out, organization.MemberView{
				UserID:    u.ID,
				FirstName: u.FirstName,
				LastName:  u.LastName,
				Role:      m.Role,
			})
		}
		return nil
	})

	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].UserID < out[j].UserID
	})
	return
}

func (r *OrganizationsRepo) MemberRole(ctx context.Context, orgID, userID string) (role string, err error) {
	err = r.s.read(ctx, func(st *state) error {
		for _, m := range st.orgMembers {
			if m.OrgID == orgID && m.UserID == userID {
				role = m.Role
				return nil
			}
		}
		return organization.ErrMemberNotFound
	})
	return
}
