package hierarchy

import "context"

// Tx is the set of row operations a cascading delete needs. Every call made through
// one Tx belongs to the same durable transaction.
//
// Lock* methods report whether the root row exists and, where the store supports it,
// hold a row lock on it until the transaction ends. Delete* methods return the number
// of rows removed.
type Tx interface {
	LockOrganization(ctx context.Context, orgID string) (bool, error)
	LockTeam(ctx context.Context, teamID string) (bool, error)
	LockUser(ctx context.Context, userID string) (bool, error)

	// ListTeamIDsByOrg also locks the listed team rows.
	ListTeamIDsByOrg(ctx context.Context, orgID string) ([]string, error)
	ListOrgIDsByUser(ctx context.Context, userID string) ([]string, error)

	DeleteTeamMembersByTeam(ctx context.Context, teamID string) (int64, error)
	DeleteBugsByTeam(ctx context.Context, teamID string) (int64, error)
	DeleteTeam(ctx context.Context, teamID string) (int64, error)
	DeleteOrgMembersByOrg(ctx context.Context, orgID string) (int64, error)
	DeleteOrganization(ctx context.Context, orgID string) (int64, error)

	DeleteTeamMembersByUserInOrg(ctx context.Context, orgID, userID string) (int64, error)
	DeleteTeamMembersByUser(ctx context.Context, userID string) (int64, error)
	DeleteOrgMembersByUser(ctx context.Context, userID string) (int64, error)
	// ClearBugReferencesToUser blanks reporter and assignee columns that point at userID.
	ClearBugReferencesToUser(ctx context.Context, userID string) (int64, error)
	DeleteUser(ctx context.Context, userID string) (int64, error)

	// Count* return how many rows still reference the entity.
	CountOrgReferences(ctx context.Context, orgID string) (int64, error)
	CountTeamReferences(ctx context.Context, teamID string) (int64, error)
	CountUserReferences(ctx context.Context, userID string) (int64, error)
}

// Store runs fn inside one transaction. If fn returns an error nothing it did is kept.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
