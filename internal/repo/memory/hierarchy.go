package memory

import (
	"context"
	"sort"
)

// hierarchyTx operates on the working copy owned by Store.InTx. The store mutex is held
// for the whole transaction, which serializes it against every other reader and writer.
type hierarchyTx struct {
	st *state
}

func (t *hierarchyTx) LockOrganization(_ context.Context, orgID string) (bool, error) {
	_, ok := t.st.orgs[orgID]
	return ok, nil
}

func (t *hierarchyTx) LockTeam(_ context.Context, teamID string) (bool, error) {
	_, ok := t.st.teams[teamID]
	return ok, nil
}

func (t *hierarchyTx) LockUser(_ context.Context, userID string) (bool, error) {
	_, ok := t.st.users[userID]
	return ok, nil
}

func (t *hierarchyTx) ListTeamIDsByOrg(_ context.Context, orgID string) ([]string, error) {
	ids := []string{}
	for id, tm := range t.st.teams {
		if tm.OrgID == orgID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (t *hierarchyTx) ListOrgIDsByUser(_ context.Context, userID string) ([]string, error) {
	ids := []string{}
	for _, m := range t.st.orgMembers {
		if m.UserID == userID {
			ids = append(ids, m.OrgID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (t *hierarchyTx) DeleteTeamMembersByTeam(_ context.Context, teamID string) (int64, error) {
	var n int64
	for id, m := range t.st.teamMembers {
		if m.TeamID == teamID {
			delete(t.st.teamMembers, id)
			n++
		}
	}
	return n, nil
}

func (t *hierarchyTx) DeleteBugsByTeam(_ context.Context, teamID string) (int64, error) {
	var n int64
	for id, b := range t.st.bugs {
		if b.TeamID == teamID {
			delete(t.st.bugs, id)
			n++
		}
	}
	return n, nil
}

func (t *hierarchyTx) DeleteTeam(_ context.Context, teamID string) (int64, error) {
	if _, ok := t.st.teams[teamID]; !ok {
		return 0, nil
	}
	delete(t.st.teams, teamID)
	return 1, nil
}

func (t *hierarchyTx) DeleteOrgMembersByOrg(_ context.Context, orgID string) (int64, error) {
	var n int64
	for id, m := range t.st.orgMembers {
		if m.OrgID == orgID {
			delete(t.st.orgMembers, id)
			n++
		}
	}
	return n, nil
}

func (t *hierarchyTx) DeleteOrganization(_ context.Context, orgID string) (int64, error) {
	if _, ok := t.st.orgs[orgID]; !ok {
		return 0, nil
	}
	delete(t.st.orgs, orgID)
	return 1, nil
}

func (t *hierarchyTx) DeleteTeamMembersByUserInOrg(_ context.Context, orgID, userID string) (int64, error) {
	var n int64
	for id, m := range t.st.teamMembers {
		if m.UserID != userID {
			continue
		}
		if tm, ok := t.st.teams[m.TeamID]; ok && tm.OrgID == orgID {
			delete(t.st.teamMembers, id)
			n++
		}
	}
	return n, nil
}

func (t *hierarchyTx) DeleteTeamMembersByUser(_ context.Context, userID string) (int64, error) {
	var n int64
	for id, m := range t.st.teamMembers {
		if m.UserID == userID {
			delete(t.st.teamMembers, id)
			n++
		}
	}
	return n, nil
}

func (t *hierarchyTx) DeleteOrgMembersByUser(_ context.Context, userID string) (int64, error) {
	var n int64
	for id, m := range t.st.orgMembers {
		if m.UserID == userID {
			delete(t.st.orgMembers, id)
			n++
		}
	}
	return n, nil
}

func (t *hierarchyTx) ClearBugReferencesToUser(_ context.Context, userID string) (int64, error) {
	var n int64
	for id, b := range t.st.bugs {
		changed := false
		if b.ReporterID == userID {
			b.ReporterID = ""
			changed = true
		}
		if b.AssigneeID != nil && *b.AssigneeID == userID {
			b.AssigneeID = nil
			changed = true
		}
		if changed {
			t.st.bugs[id] = b
			n++
		}
	}
	return n, nil
}

func (t *hierarchyTx) DeleteUser(_ context.Context, userID string) (int64, error) {
	if _, ok := t.st.users[userID]; !ok {
		return 0, nil
	}
	delete(t.st.users, userID)
	return 1, nil
}

func (t *hierarchyTx) CountOrgReferences(_ context.Context, orgID string) (int64, error) {
	var n int64
	if _, ok := t.st.orgs[orgID]; ok {
		n++
	}
	for _, m := range t.st.orgMembers {
		if m.OrgID == orgID {
			n++
		}
	}
	for _, tm := range t.st.teams {
		if tm.OrgID == orgID {
			n++
		}
	}
	return n, nil
}

func (t *hierarchyTx) CountTeamReferences(_ context.Context, teamID string) (int64, error) {
	var n int64
	if _, ok := t.st.teams[teamID]; ok {
		n++
	}
	for _, m := range t.st.teamMembers {
		if m.TeamID == teamID {
			n++
		}
	}
	for _, b := range t.st.bugs {
		if b.TeamID == teamID {
			n++
		}
	}
	return n, nil
}

func (t *hierarchyTx) CountUserReferences(_ context.Context, userID string) (int64, error) {
	var n int64
	if _, ok := t.st.users[userID]; ok {
		n++
	}
	for _, m := range t.st.orgMembers {
		if m.UserID == userID {
			n++
		}
	}
	for _, m := range t.st.teamMembers {
		if m.UserID == userID {
			n++
		}
	}
	for _, b := range t.st.bugs {
		if b.ReporterID == userID || (b.AssigneeID != nil && *b.AssigneeID == userID) {
			n++
		}
	}
	return n, nil
}
