package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/geocoder89/taskmaster/internal/domain/bug"
	"github.com/geocoder89/taskmaster/internal/domain/organization"
	"github.com/geocoder89/taskmaster/internal/domain/team"
	"github.com/geocoder89/taskmaster/internal/domain/user"
	"github.com/geocoder89/taskmaster/internal/hierarchy"
)

type seeded struct {
	store *Store
	admin user.User
	dev   user.User
	org   organization.Organization
	team  team.Team
}

func seed(t *testing.T) seeded {
	t.Helper()

	ctx := context.Background()
	s := New()

	admin := user.New("Ada", "Admin", "ada@example.com", "hash")
	dev := user.New("Dev", "Eloper", "dev@example.com", "hash")
	for _, u := range []user.User{admin, dev} {
		if err := s.Users().Create(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}

	org := organization.New("Acme")
	if _, err := s.Organizations().CreateWithAdmin(ctx, org, admin.ID); err != nil {
		t.Fatalf("create org: %v", err)
	}

	tm := team.New(org.ID, "Core")
	if err := s.Teams().Create(ctx, tm); err != nil {
		t.Fatalf("create team: %v", err)
	}

	return seeded{store: s, admin: admin, dev: dev, org: org, team: tm}
}

func TestUsers_DuplicateEmail(t *testing.T) {
	f := seed(t)

	err := f.store.Users().Create(context.Background(), user.New("A", "B", "ada@example.com", "hash"))
	if !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestOrganizations_AddMember(t *testing.T) {
	f := seed(t)
	ctx := context.Background()
	orgs := f.store.Organizations()

	tests := []struct {
		name string
		m    organization.Member
		want error
	}{
		{name: "bad_role", m: organization.NewMember(f.org.ID, f.dev.ID, "owner"), want: organization.ErrInvalidRole},
		{name: "missing_org", m: organization.NewMember("nope", f.dev.ID, organization.RoleUser), want: organization.ErrNotFound},
		{name: "missing_user", m: organization.NewMember(f.org.ID, "nope", organization.RoleUser), want: user.ErrNotFound},
		{name: "already_member", m: organization.NewMember(f.org.ID, f.admin.ID, organization.RoleUser), want: organization.ErrAlreadyMember},
		{name: "ok", m: organization.NewMember(f.org.ID, f.dev.ID, organization.RoleUser)},
	}

	for _, tt := range tests {
		err := orgs.AddMember(ctx, tt.m)
		if tt.want == nil && err != nil {
			t.Fatalf("%s: unexpected error %v", tt.name, err)
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Fatalf("%s: got %v, want %v", tt.name, err, tt.want)
		}
	}

	members, err := orgs.ListMembers(ctx, f.org.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 2 || members[0].LastName != "Admin" || members[1].LastName != "Eloper" {
		t.Fatalf("unexpected members %+v", members)
	}
}

func TestTeams_AddMemberRequiresOrgMembership(t *testing.T) {
	f := seed(t)
	ctx := context.Background()

	err := f.store.Teams().AddMember(ctx, team.NewMember(f.team.ID, f.dev.ID, "developer"))
	if !errors.Is(err, team.ErrNotOrgMember) {
		t.Fatalf("expected ErrNotOrgMember, got %v", err)
	}

	if err := f.store.Organizations().AddMember(ctx, organization.NewMember(f.org.ID, f.dev.ID, organization.RoleUser)); err != nil {
		t.Fatalf("add org member: %v", err)
	}
	if err := f.store.Teams().AddMember(ctx, team.NewMember(f.team.ID, f.dev.ID, "developer")); err != nil {
		t.Fatalf("add team member: %v", err)
	}

	err = f.store.Teams().AddMember(ctx, team.NewMember(f.team.ID, f.dev.ID, "developer"))
	if !errors.Is(err, team.ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}
}

func TestBugs_AssignAndUpdate(t *testing.T) {
	f := seed(t)
	ctx := context.Background()
	bugs := f.store.Bugs()

	b := bug.NewFromCreateRequest(f.team.ID, f.admin.ID, bug.CreateRequest{Description: "crash"})
	if err := bugs.Create(ctx, b); err != nil {
		t.Fatalf("create bug: %v", err)
	}

	if _, err := bugs.Assign(ctx, b.ID, f.dev.ID); !errors.Is(err, bug.ErrAssigneeNotOnTeam) {
		t.Fatalf("expected ErrAssigneeNotOnTeam, got %v", err)
	}

	if _, err := bugs.UpdateStatus(ctx, b.ID, 9); !errors.Is(err, bug.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}

	got, err := bugs.UpdatePriority(ctx, b.ID, 4)
	if err != nil {
		t.Fatalf("update priority: %v", err)
	}
	if got.Priority != 4 {
		t.Fatalf("priority = %d, want 4", got.Priority)
	}

	if err := bugs.Delete(ctx, b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := bugs.Delete(ctx, b.ID); !errors.Is(err, bug.ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestInTx_FailureLeavesNoTrace(t *testing.T) {
	f := seed(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := f.store.InTx(ctx, func(ctx context.Context, tx hierarchy.Tx) error {
		if _, err := tx.DeleteTeam(ctx, f.team.ID); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := f.store.Teams().GetByID(ctx, f.team.ID); err != nil {
		t.Fatalf("team should survive a failed transaction: %v", err)
	}
}

func TestWrite_CancelledContext(t *testing.T) {
	f := seed(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := f.store.Users().Create(ctx, user.New("X", "Y", "x@example.com", "hash")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
