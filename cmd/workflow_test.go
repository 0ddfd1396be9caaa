package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trakgo/trak/internal/models"
	"github.com/trakgo/trak/internal/output"
	"github.com/trakgo/trak/internal/store"
)

// setupCmdTest wires a fresh store and buffered UI into the package-level
// deps, and resets the flag vars the run functions read.
func setupCmdTest(t *testing.T) (*store.SQLiteStore, *bytes.Buffer) {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))

	out := &bytes.Buffer{}
	ui = &output.UI{Out: out, ErrOut: out}
	dataStore = s
	dryRun = false

	issueAs = ""
	issueTemplate = ""
	issueProject = ""
	issueAssign = ""
	issueCloneOf = ""
	issueUntil = ""
	issuePrivate = false
	issueUnlink = false
	templateProject = ""
	stateTemplate = ""

	t.Cleanup(func() {
		dataStore = nil
		_ = s.Close()
	})
	return s, out
}

// seedCmdWorkflow sets up a project with a working workflow: submitted ->
// review -> closed. Authors may create and move their issues to review;
// the qa group closes them.
func seedCmdWorkflow(t *testing.T, s *store.SQLiteStore) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, projectAddRun("vesta"))
	p, err := s.GetProjectByName(ctx, "vesta")
	require.NoError(t, err)

	tpl := &models.Template{ProjectID: p.ID, Name: "bugs", Prefix: "BUG"}
	require.NoError(t, s.CreateTemplate(ctx, tpl))

	submitted := &models.State{TemplateID: tpl.ID, Name: "submitted", Type: models.StateInitial}
	review := &models.State{TemplateID: tpl.ID, Name: "review", Type: models.StateIntermediate, Responsible: models.ResponsibleAssign}
	closed := &models.State{TemplateID: tpl.ID, Name: "closed", Type: models.StateFinal}
	for _, st := range []*models.State{submitted, review, closed} {
		require.NoError(t, s.CreateState(ctx, st))
	}

	require.NoError(t, userAddRun("alice@example.com"))
	require.NoError(t, userAddRun("bob@example.com"))

	pid := p.ID
	qa := &models.Group{ProjectID: &pid, Name: "qa"}
	require.NoError(t, s.CreateGroup(ctx, qa))
	bob, err := s.GetUserByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	require.NoError(t, s.AddGroupMember(ctx, qa.ID, bob.ID))
	require.NoError(t, s.AddResponsibleGroup(ctx, review.ID, qa.ID))

	author := models.RoleAuthor
	require.NoError(t, s.CreateTransition(ctx, &store.TransitionRow{
		FromStateID: submitted.ID, ToStateID: review.ID, Role: &author,
	}))
	require.NoError(t, s.CreateTransition(ctx, &store.TransitionRow{
		FromStateID: review.ID, ToStateID: closed.ID, GroupID: &qa.ID,
	}))

	require.NoError(t, s.SetRoleGrant(ctx, tpl.ID, models.RoleAnyone, models.ActionCreateIssues, true))
	require.NoError(t, s.SetRoleGrant(ctx, tpl.ID, models.RoleAuthor, models.ActionViewIssues, true))
	require.NoError(t, s.SetGroupGrant(ctx, tpl.ID, qa.ID, models.ActionViewIssues, true))
	require.NoError(t, s.SetGroupGrant(ctx, tpl.ID, qa.ID, models.ActionReassignIssues, true))
}

func firstIssueID(t *testing.T, s *store.SQLiteStore) string {
	t.Helper()
	issues, err := s.ListIssues(context.Background(), store.IssueFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, issues)
	return issues[0].ID
}

func TestIssueLifecycle(t *testing.T) {
	s, out := setupCmdTest(t)
	seedCmdWorkflow(t, s)
	ctx := context.Background()

	// Alice creates an issue
	issueAs = "alice@example.com"
	issueTemplate = "bugs"
	issueProject = "vesta"
	require.NoError(t, issueAddRun("Crash on startup"))
	assert.Contains(t, out.String(), "Created issue")

	id := firstIssueID(t, s)

	// Author may move to review, which requires an assignee from qa
	err := issueMoveRun(id, "review")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--assign")

	issueAssign = "bob@example.com"
	require.NoError(t, issueMoveRun(id, "review"))

	issue, err := s.LoadIssue(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "review", issue.State.Name)
	require.NotNil(t, issue.ResponsibleID)
	assert.False(t, issue.IsClosed())

	// Alice holds no grant for the review -> closed edge
	err = issueMoveRun(id, "closed")
	assert.Error(t, err)

	// Bob (qa) closes it
	issueAs = "bob@example.com"
	require.NoError(t, issueMoveRun(id, "closed"))

	issue, err = s.LoadIssue(ctx, id)
	require.NoError(t, err)
	assert.True(t, issue.IsClosed())
	assert.Nil(t, issue.ResponsibleID, "final state removes the responsible")
}

func TestIssueAdd_DeniedWithoutGrant(t *testing.T) {
	s, _ := setupCmdTest(t)
	seedCmdWorkflow(t, s)
	ctx := context.Background()

	// Drop the Anyone create grant
	p, err := s.GetProjectByName(ctx, "vesta")
	require.NoError(t, err)
	templates, err := s.ListTemplates(ctx, p.ID)
	require.NoError(t, err)
	require.NoError(t, s.SetRoleGrant(ctx, templates[0].ID, models.RoleAnyone, models.ActionCreateIssues, false))

	issueAs = "alice@example.com"
	issueTemplate = "bugs"
	issueProject = "vesta"
	err = issueAddRun("Should not land")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestIssueAdd_RequiresActor(t *testing.T) {
	s, _ := setupCmdTest(t)
	seedCmdWorkflow(t, s)

	issueTemplate = "bugs"
	issueProject = "vesta"
	err := issueAddRun("Anonymous attempt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no acting user")
}

func TestIssueDependencyBlocksClosing(t *testing.T) {
	s, _ := setupCmdTest(t)
	seedCmdWorkflow(t, s)
	ctx := context.Background()

	issueAs = "alice@example.com"
	issueTemplate = "bugs"
	issueProject = "vesta"
	require.NoError(t, issueAddRun("Blocked issue"))
	require.NoError(t, issueAddRun("Blocker"))

	issues, err := s.ListIssues(ctx, store.IssueFilter{})
	require.NoError(t, err)
	require.Len(t, issues, 2)
	var blocked, blocker string
	for _, i := range issues {
		if i.Subject == "Blocked issue" {
			blocked = i.ID
		} else {
			blocker = i.ID
		}
	}

	// Grant dependency management to the author for this test
	tplRows, err := s.ListTemplates(ctx, "")
	require.NoError(t, err)
	require.NoError(t, s.SetRoleGrant(ctx, tplRows[0].ID, models.RoleAuthor, models.ActionManageDependencies, true))

	require.NoError(t, issueLinkRun(blocked, blocker, false))

	// Move the blocked issue into review; closing must not be offered
	// while the blocker is open.
	issueAssign = "bob@example.com"
	require.NoError(t, issueMoveRun(blocked, "review"))
	issueAs = "bob@example.com"
	err = issueMoveRun(blocked, "closed")
	require.Error(t, err)

	// Close the blocker, then the blocked issue goes through
	issueAs = "alice@example.com"
	require.NoError(t, issueMoveRun(blocker, "review"))
	issueAs = "bob@example.com"
	require.NoError(t, issueMoveRun(blocker, "closed"))
	require.NoError(t, issueMoveRun(blocked, "closed"))
}

func TestAccessCheck(t *testing.T) {
	s, out := setupCmdTest(t)
	seedCmdWorkflow(t, s)

	issueAs = "alice@example.com"
	issueTemplate = "bugs"
	issueProject = "vesta"
	require.NoError(t, issueAddRun("Checked issue"))
	id := firstIssueID(t, s)

	accessIssue = id
	accessAction = "view"
	accessAs = "alice@example.com"
	require.NoError(t, accessCheckRun())
	assert.Contains(t, out.String(), "ALLOW")

	// Anonymous is denied, and the command reports it via the exit error
	accessAs = ""
	issueAs = ""
	err := accessCheckRun()
	require.Error(t, err)
	assert.Contains(t, out.String(), "DENY")

	accessAction = "bogus"
	accessAs = "alice@example.com"
	err = accessCheckRun()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown action")
}

func TestProjectSuspendBlocksIssueMutations(t *testing.T) {
	s, _ := setupCmdTest(t)
	seedCmdWorkflow(t, s)

	issueAs = "alice@example.com"
	issueTemplate = "bugs"
	issueProject = "vesta"
	require.NoError(t, issueAddRun("Soon frozen out"))
	id := firstIssueID(t, s)

	require.NoError(t, projectSetSuspendedRun("vesta", true))

	issueAssign = "bob@example.com"
	err := issueMoveRun(id, "review")
	require.Error(t, err)

	require.NoError(t, projectSetSuspendedRun("vesta", false))
	require.NoError(t, issueMoveRun(id, "review"))
}

func TestTransitionsCommand(t *testing.T) {
	s, out := setupCmdTest(t)
	seedCmdWorkflow(t, s)

	issueAs = "alice@example.com"
	issueTemplate = "bugs"
	issueProject = "vesta"
	require.NoError(t, issueAddRun("Routing test"))
	id := firstIssueID(t, s)

	out.Reset()
	require.NoError(t, issueTransitionsRun(id))
	assert.Contains(t, out.String(), "review")

	// Bob holds no edge out of submitted
	issueAs = "bob@example.com"
	out.Reset()
	require.NoError(t, issueTransitionsRun(id))
	assert.Contains(t, out.String(), "No transitions")
}
