package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/taskmaster/internal/actorctx"
	"github.com/geocoder89/taskmaster/internal/domain"
	"github.com/geocoder89/taskmaster/internal/domain/organization"
	"github.com/geocoder89/taskmaster/internal/domain/team"
	"github.com/geocoder89/taskmaster/internal/domain/user"
	"github.com/geocoder89/taskmaster/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTimeout = 10 * time.Second

// Report counts the rows a deletion removed.
type Report struct {
	Organizations int64 `json:"organizations"`
	OrgMembers    int64 `json:"orgMembers"`
	Teams         int64 `json:"teams"`
	TeamMembers   int64 `json:"teamMembers"`
	Bugs          int64 `json:"bugs"`
	BugsDetached  int64 `json:"bugsDetached"`
	Users         int64 `json:"users"`
}

// Coordinator removes an organization, team or user together with everything that
// exists only by reference to it. Each call is one transaction: it commits completely
// or not at all.
type Coordinator struct {
	store   Store
	log     *slog.Logger
	prom    *observability.Prom
	tracer  trace.Tracer
	timeout time.Duration
}

func NewCoordinator(store Store, log *slog.Logger, prom *observability.Prom) *Coordinator {
	if log == nil {
		log = slog.Default()
	}

	return &Coordinator{
		store:   store,
		log:     log,
		prom:    prom,
		tracer:  otel.Tracer("github.com/geocoder89/taskmaster/internal/hierarchy"),
		timeout: defaultTimeout,
	}
}

// WithTimeout bounds how long one deletion transaction may run.
func (c *Coordinator) WithTimeout(d time.Duration) *Coordinator {
	if d > 0 {
		c.timeout = d
	}
	return c
}

// DeleteOrganization removes orgID, its teams (with their members and bugs) and its memberships.
func (c *Coordinator) DeleteOrganization(ctx context.Context, orgID string) (Report, error) {
	return c.run(ctx, "organization", orgID, func(ctx context.Context, tx Tx, rep *Report) error {
		ok, err := tx.LockOrganization(ctx, orgID)
		if err != nil {
			return fmt.Errorf("lock organization: %w", err)
		}
		if !ok {
			return organization.ErrNotFound
		}

		teamIDs, err := tx.ListTeamIDsByOrg(ctx, orgID)
		if err != nil {
			return fmt.Errorf("list teams: %w", err)
		}

		for _, teamID := range teamIDs {
			if err := deleteTeam(ctx, tx, teamID, rep); err != nil {
				return err
			}
		}

		n, err := tx.DeleteOrgMembersByOrg(ctx, orgID)
		if err != nil {
			return fmt.Errorf("delete organization members: %w", err)
		}
		rep.OrgMembers += n

		n, err = tx.DeleteOrganization(ctx, orgID)
		if err != nil {
			return fmt.Errorf("delete organization: %w", err)
		}
		rep.Organizations += n

		left, err := tx.CountOrgReferences(ctx, orgID)
		if err != nil {
			return fmt.Errorf("count organization references: %w", err)
		}
		if left > 0 {
			return fmt.Errorf("%w: %d rows still reference organization %s", domain.ErrPartialFailure, left, orgID)
		}

		return nil
	})
}

// DeleteTeam removes teamID with its members and bugs.
func (c *Coordinator) DeleteTeam(ctx context.Context, teamID string) (Report, error) {
	return c.run(ctx, "team", teamID, func(ctx context.Context, tx Tx, rep *Report) error {
		ok, err := tx.LockTeam(ctx, teamID)
		if err != nil {
			return fmt.Errorf("lock team: %w", err)
		}
		if !ok {
			return team.ErrNotFound
		}

		return deleteTeam(ctx, tx, teamID, rep)
	})
}

// DeleteUser strips every membership of userID, detaches the user from bugs and removes the account.
func (c *Coordinator) DeleteUser(ctx context.Context, userID string) (Report, error) {
	return c.run(ctx, "user", userID, func(ctx context.Context, tx Tx, rep *Report) error {
		ok, err := tx.LockUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}
		if !ok {
			return user.ErrNotFound
		}

		orgIDs, err := tx.ListOrgIDsByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("list memberships: %w", err)
		}

		for _, orgID := range orgIDs {
			n, err := tx.DeleteTeamMembersByUserInOrg(ctx, orgID, userID)
			if err != nil {
				return fmt.Errorf("delete team memberships in organization: %w", err)
			}
			rep.TeamMembers += n
		}

		n, err := tx.DeleteOrgMembersByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("delete organization memberships: %w", err)
		}
		rep.OrgMembers += n

		// memberships left in teams of orgs the user already left
		n, err = tx.DeleteTeamMembersByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("delete remaining team memberships: %w", err)
		}
		rep.TeamMembers += n

		n, err = tx.ClearBugReferencesToUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("detach bugs: %w", err)
		}
		rep.BugsDetached += n

		n, err = tx.DeleteUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		rep.Users += n

		left, err := tx.CountUserReferences(ctx, userID)
		if err != nil {
			return fmt.Errorf("count user references: %w", err)
		}
		if left > 0 {
			return fmt.Errorf("%w: %d rows still reference user %s", domain.ErrPartialFailure, left, userID)
		}

		return nil
	})
}

// deleteTeam runs inside the caller's transaction: members, then bugs, then the team row.
func deleteTeam(ctx context.Context, tx Tx, teamID string, rep *Report) error {
	n, err := tx.DeleteTeamMembersByTeam(ctx, teamID)
	if err != nil {
		return fmt.Errorf("delete team members: %w", err)
	}
	rep.TeamMembers += n

	n, err = tx.DeleteBugsByTeam(ctx, teamID)
	if err != nil {
		return fmt.Errorf("delete bugs: %w", err)
	}
	rep.Bugs += n

	n, err = tx.DeleteTeam(ctx, teamID)
	if err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	rep.Teams += n

	left, err := tx.CountTeamReferences(ctx, teamID)
	if err != nil {
		return fmt.Errorf("count team references: %w", err)
	}
	if left > 0 {
		return fmt.Errorf("%w: %d rows still reference team %s", domain.ErrPartialFailure, left, teamID)
	}

	return nil
}

func (c *Coordinator) run(ctx context.Context, entity, rootID string, fn func(ctx context.Context, tx Tx, rep *Report) error) (Report, error) {
	ctx, span := c.tracer.Start(ctx, "hierarchy.delete_"+entity,
		trace.WithAttributes(attribute.String("entity", entity), attribute.String("entity.id", rootID)),
	)
	defer span.End()

	actor, _ := actorctx.UserIDFrom(ctx)
	if actor != "" {
		span.SetAttributes(attribute.String("actor.id", actor))
	}

	// a started deletion is not abandoned when the caller goes away; it still has a deadline
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	start := time.Now()
	var rep Report

	err := c.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		rep = Report{}
		return fn(ctx, tx, &rep)
	})

	result := resultOf(err)
	c.observe(entity, result, time.Since(start), rep)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, result)

		switch result {
		case "not_found":
			c.log.InfoContext(ctx, "delete target not found", "entity", entity, "id", rootID)
			return Report{}, err
		case "partial_failure":
			c.log.ErrorContext(ctx, "cascading delete left dangling rows, rolled back", "entity", entity, "id", rootID, "err", err)
			return Report{}, err
		default:
			c.log.ErrorContext(ctx, "cascading delete failed, rolled back", "entity", entity, "id", rootID, "err", err)
			return Report{}, domain.Storage("delete_"+entity, err)
		}
	}

	c.log.InfoContext(ctx, "cascading delete committed",
		"entity", entity,
		"id", rootID,
		"organizations", rep.Organizations,
		"org_members", rep.OrgMembers,
		"teams", rep.Teams,
		"team_members", rep.TeamMembers,
		"bugs", rep.Bugs,
		"bugs_detached", rep.BugsDetached,
		"users", rep.Users,
	)

	return rep, nil
}

func (c *Coordinator) observe(entity, result string, took time.Duration, rep Report) {
	if c.prom == nil {
		return
	}

	c.prom.Deletions.WithLabelValues(entity, result).Inc()
	c.prom.DeletionDuration.WithLabelValues(entity).Observe(took.Seconds())

	if result != "ok" {
		return
	}

	for table, n := range map[string]int64{
		"organizations": rep.Organizations,
		"org_members":   rep.OrgMembers,
		"teams":         rep.Teams,
		"team_members":  rep.TeamMembers,
		"bugs":          rep.Bugs,
		"users":         rep.Users,
	} {
		if n > 0 {
			c.prom.DeletedRows.WithLabelValues(table).Add(float64(n))
		}
	}
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrPartialFailure):
		return "partial_failure"
	default:
		return "storage_error"
	}
}
