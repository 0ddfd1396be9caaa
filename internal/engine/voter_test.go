package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trakgo/trak/internal/models"
)

// can is a test shorthand that fails on engine errors.
func can(t *testing.T, user *models.User, issue *models.Issue, action Action) bool {
	t.Helper()
	ok, err := CanPerform(user, issue, action, testNow)
	require.NoError(t, err)
	return ok
}

func TestCanView(t *testing.T) {
	project := newTestProject("p1")
	tpl := newTestTemplate("support", project)
	opened := addState(tpl, "opened", models.StateInitial)

	author := newTestUser("u1")
	responsible := newTestUser("u2")
	stranger := newTestUser("u3")

	issue := newTestIssue("i1", tpl, opened, author.ID)
	issue.ResponsibleID = strPtr(responsible.ID)

	// Author and responsible always see their issue; a stranger with no
	// ViewIssues grant does not, even with the project running normally.
	assert.True(t, CanView(author, issue))
	assert.True(t, CanView(responsible, issue))
	assert.False(t, CanView(stranger, issue))
	assert.False(t, CanView(nil, issue))

	grantRole(tpl, models.RoleAnyone, models.ActionViewIssues)
	assert.True(t, CanView(stranger, issue))
}

func TestCanView_UnaffectedByStructuralState(t *testing.T) {
	project := newTestProject("p1")
	tpl := newTestTemplate("support", project)
	tpl.FrozenTime = intPtr(1)
	tpl.Locked = true
	opened := addState(tpl, "opened", models.StateInitial)
	done := addState(tpl, "done", models.StateFinal)

	author := newTestUser("u1")
	issue := newTestIssue("i1", tpl, opened, author.ID)

	project.Suspended = true
	assert.True(t, CanView(author, issue))

	closeIssue(issue, done, 5)
	assert.True(t, CanView(author, issue))
}

func TestCanCreate(t *testing.T) {
	project := newTestProject("p1")
	tpl := newTestTemplate("dev", project)
	addState(tpl, "opened", models.StateInitial)
	grantRole(tpl, models.RoleAnyone, models.ActionCreateIssues)

	user := newTestUser("u1")

	ok, err := CanCreate(user, tpl)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CanCreate(nil, tpl)
	require.NoError(t, err)
	assert.False(t, ok)

	tpl.Locked = true
	ok, err = CanCreate(user, tpl)
	require.NoError(t, err)
	assert.False(t, ok, "locked template blocks create")
	tpl.Locked = false

	project.Suspended = true
	ok, err = CanCreate(user, tpl)
	require.NoError(t, err)
	assert.False(t, ok, "suspended project blocks create")
	project.Suspended = false

	ok, err = CanCreate(user, tpl)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanCreate_NoInitialState(t *testing.T) {
	project := newTestProject("p1")
	tpl := newTestTemplate("dev", project)
	addState(tpl, "working", models.StateIntermediate)
	grantRole(tpl, models.RoleAnyone, models.ActionCreateIssues)

	ok, err := CanCreate(newTestUser("u1"), tpl)
	require.NoError(t, err)
	assert.False(t, ok, "template without an initial state cannot originate issues")
}

func TestCanCreate_GroupGrant(t *testing.T) {
	project := newTestProject("p1")
	tpl := newTestTemplate("dev", project)
	addState(tpl, "opened", models.StateInitial)

	team := newTestGroup("team", project, "u2")
	grantGroup(tpl, team, models.ActionCreateIssues)

	// Author/Responsible grants are meaningless before the issue exists.
	grantRole(tpl, models.RoleAuthor, models.ActionCreateIssues)

	member := newTestUser("u2", team)
	outsider := newTestUser("u3")

	ok, err := CanCreate(member, tpl)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CanCreate(outsider, tpl)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanPerform_UpdateOnFinalState(t *testing.T) {
	// Template "Development" grants Author edit rights; the issue sits in a
	// final state with no freeze window configured, so the author may still
	// update it.
	project := newTestProject("p1")
	tpl := newTestTemplate("development", project)
	addState(tpl, "opened", models.StateInitial)
	completed := addState(tpl, "completed", models.StateFinal)
	grantRole(tpl, models.RoleAuthor, models.ActionEditIssues)

	author := newTestUser("u1")
	issue := newTestIssue("i1", tpl, completed, author.ID)
	closeIssue(issue, completed, 2)

	assert.True(t, can(t, author, issue, ActionUpdate))
}

func TestCanPerform_FreezeAsymmetry(t *testing.T) {
	// Closed two days ago with a one-day freeze window: updates are frozen
	// out while deletion is governed solely by the DeleteIssues grant.
	project := newTestProject("p1")
	tpl := newTestTemplate("development", project)
	tpl.FrozenTime = intPtr(1)
	addState(tpl, "opened", models.StateInitial)
	completed := addState(tpl, "completed", models.StateFinal)
	grantRole(tpl, models.RoleAuthor, models.ActionEditIssues)

	author := newTestUser("u1")
	issue := newTestIssue("i1", tpl, completed, author.ID)
	closeIssue(issue, completed, 2)

	assert.False(t, can(t, author, issue, ActionUpdate))
	assert.False(t, can(t, author, issue, ActionAddPublicComment))
	assert.False(t, can(t, author, issue, ActionAttachFile))

	assert.False(t, can(t, author, issue, ActionDelete), "no delete grant yet")
	grantRole(tpl, models.RoleAuthor, models.ActionDeleteIssues)
	assert.True(t, can(t, author, issue, ActionDelete), "freeze does not gate delete")
}

func TestCanPerform_FreezeWindowStillOpen(t *testing.T) {
	project := newTestProject("p1")
	tpl := newTestTemplate("development", project)
	tpl.FrozenTime = intPtr(7)
	addState(tpl, "opened", models.StateInitial)
	completed := addState(tpl, "completed", models.StateFinal)
	grantRole(tpl, models.RoleAuthor, models.ActionEditIssues)

	author := newTestUser("u1")
	issue := newTestIssue("i1", tpl, completed, author.ID)
	closeIssue(issue, completed, 2)

	assert.True(t, can(t, author, issue, ActionUpdate), "inside the grace period")
}

func TestCanPerform_SuspensionExclusivity(t *testing.T) {
	project := newTestProject("p1")
	tpl := newTestTemplate("dev", project)
	opened := addState(tpl, "opened", models.StateInitial)
	grantRole(tpl, models.RoleAuthor,
		models.ActionSuspendIssues, models.ActionResumeIssues, models.ActionEditIssues)

	author := newTestUser("u1")
	issue := newTestIssue("i1", tpl, opened, author.ID)

	assert.True(t, can(t, author, issue, ActionSuspend))
	assert.False(t, can(t, author, issue, ActionResume))

	suspendIssue(issue, testNow.AddDate(0, 0, 7))
	assert.False(t, can(t, author, issue, ActionSuspend))
	assert.True(t, can(t, author, issue, ActionResume))
	assert.False(t, can(t, author, issue, ActionUpdate), "suspension blocks edits")

	// After resume the flags flip back.
	issue.ResumesAt = nil
	assert.False(t, can(t, author, issue, ActionResume))
	assert.True(t, can(t, author, issue, ActionSuspend))
	assert.True(t, can(t, author, issue, ActionUpdate))
}

func TestCanPerform_SuspendClosedIssue(t *testing.T) {
	project := newTestProject("p1")
	tpl := newTestTemplate("dev", project)
	addState(tpl, "opened", models.StateInitial)
	done := addState(tpl, "done", models.StateFinal)
	grantRole(tpl, models.RoleAuthor, models.ActionSuspendIssues)

	author := newTestUser("u1")
	issue := newTestIssue("i1", tpl, done, author.ID)
	closeIssue(issue, done, 1)

	assert.False(t, can(t, author, issue, ActionSuspend))
}

func TestCanPerform_ProjectSuspension(t *testing.T) {
	project := newTestProject("p1")
	tpl := newTestTemplate("dev", project)
	opened := addState(tpl, "opened", models.StateInitial)
	grantRole(tpl, models.RoleAuthor,
		models.ActionEditIssues, models.ActionDeleteIssues, models.ActionAddComments)

	author := newTestUser("u1")
	issue := newTestIssue("i1", tpl, opened, author.ID)
	project.Suspended = true

	assert.False(t, can(t, author, issue, ActionUpdate))
	assert.False(t, can(t, author, issue, ActionDelete))
	assert.False(t, can(t, author, issue, ActionAddPublicComment))
	assert.True(t, CanView(author, issue), "view is unaffected by project suspension")
}

func TestCanPerform_ChangeState(t *testing.T) {
	project := newTestProject("p1")
	tpl := newTestTemplate("dev", project)
	opened := addState(tpl, "opened", models.StateInitial)
	resolved := addState(tpl, "resolved", models.StateFinal)
	addTransition(opened, resolved, models.RoleGrantee{Role: models.RoleAuthor})

	author := newTestUser("u1")
	stranger := newTestUser("u2")
	issue := newTestIssue("i1", tpl, opened, author.ID)

	assert.True(t, can(t, author, issue, ActionChangeState))
	assert.False(t, can(t, stranger, issue, ActionChangeState))

	suspendIssue(issue, testNow.AddDate(0, 0, 1))
	assert.False(t, can(t, author, issue, ActionChangeState))
}

func TestCanPerform_ChangeStateBlockedByDependencies(t *testing.T) {
	project := newTestProject("p1")
	tpl := newTestTemplate("dev", project)
	opened := addState(tpl, "opened", models.StateInitial)
	resolved := addState(tpl, "resolved", models.StateFinal)
	addTransition(opened, resolved, models.RoleGrantee{Role: models.RoleAuthor})

	author := newTestUser("u1")
	issue := newTestIssue("i1", tpl, opened, author.ID)

	dep := newTestIssue("d1", tpl, opened, "u9")
	issue.Dependencies = append(issue.Dependencies, dep)

	// The only edge leads to a final state; with an open dependency there is
	// no legal transition left.
	assert.False(t, can(t, author, issue, ActionChangeState))
}

func TestCanPerform_Reassign(t *testing.T) {
	project := newTestProject("p1")
	tpl := newTestTemplate("dev", project)
	opened := addState(tpl, "opened", models.StateInitial)
	grantRole(tpl, models.RoleAnyone, models.ActionReassignIssues)

	user := newTestUser("u1")
	issue := newTestIssue("i1", tpl, opened, "u9")

	assert.False(t, can(t, user, issue, ActionReassign), "no current responsible")

	issue.ResponsibleID = strPtr("u2")
	assert.True(t, can(t, user, issue, ActionReassign))

	suspendIssue(issue, testNow.AddDate(0, 0, 1))
	assert.False(t, can(t, user, issue, ActionReassign))
}

func TestCanPerform_PrivateComments(t *testing.T) {
	project := newTestProject("p1")
	tpl := newTestTemplate("dev", project)
	opened := addState(tpl, "opened", models.StateInitial)
	grantRole(tpl, models.RoleResponsible, models.ActionPrivateComments)

	responsible := newTestUser("u2")
	issue := newTestIssue("i1", tpl, opened, "u1")
	issue.ResponsibleID = strPtr(responsible.ID)

	assert.True(t, can(t, responsible, issue, ActionAddPrivateComment))
	assert.True(t, can(t, responsible, issue, ActionReadPrivateComment))

	// Reading private comments has no structural guards: a suspended issue
	// in a suspended project remains readable.
	suspendIssue(issue, testNow.AddDate(0, 0, 1))
	project.Suspended = true
	assert.False(t, can(t, responsible, issue, ActionAddPrivateComment))
	assert.True(t, can(t, responsible, issue, ActionReadPrivateComment))
}

func TestCanPerform_DependencyManagement(t *testing.T) {
	project := newTestProject("p1")
	tpl := newTestTemplate("dev", project)
	tpl.FrozenTime = intPtr(1)
	opened := addState(tpl, "opened", models.StateInitial)
	done := addState(tpl, "done", models.StateFinal)
	grantRole(tpl, models.RoleAuthor,
		models.ActionManageDependencies, models.ActionManageRelatedIssues)

	author := newTestUser("u1")
	issue := newTestIssue("i1", tpl, opened, author.ID)

	assert.True(t, can(t, author, issue, ActionAddDependency))
	assert.True(t, can(t, author, issue, ActionRemoveDependency))
	assert.True(t, can(t, author, issue, ActionAddRelatedIssue))
	assert.True(t, can(t, author, issue, ActionRemoveRelatedIssue))

	suspendIssue(issue, testNow.AddDate(0, 0, 1))
	assert.False(t, can(t, author, issue, ActionAddDependency))
	issue.ResumesAt = nil

	// Freeze does not gate dependency management.
	closeIssue(issue, done, 5)
	assert.True(t, can(t, author, issue, ActionAddDependency))
}

func TestCanPerform_UnsupportedAction(t *testing.T) {
	project := newTestProject("p1")
	tpl := newTestTemplate("dev", project)
	opened := addState(tpl, "opened", models.StateInitial)
	issue := newTestIssue("i1", tpl, opened, "u1")

	_, err := CanPerform(newTestUser("u1"), issue, Action("bogus"), testNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedAction)

	_, err = CanPerform(newTestUser("u1"), issue, ActionCreate, testNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedAction)
}

func TestCanPerform_AnonymousDeniedEverywhere(t *testing.T) {
	project := newTestProject("p1")
	tpl := newTestTemplate("dev", project)
	opened := addState(tpl, "opened", models.StateInitial)
	grantRole(tpl, models.RoleAnyone, models.TemplateActions...)
	issue := newTestIssue("i1", tpl, opened, "u1")

	for _, action := range Actions {
		if !Supports(action) {
			continue
		}
		ok, err := CanPerform(nil, issue, action, testNow)
		require.NoError(t, err)
		assert.False(t, ok, "anonymous must be denied %s", action)
	}
}

func TestSupports(t *testing.T) {
	assert.True(t, Supports(ActionUpdate))
	assert.True(t, Supports(ActionView))
	assert.False(t, Supports(ActionCreate))
	assert.False(t, Supports(Action("bogus")))
}
