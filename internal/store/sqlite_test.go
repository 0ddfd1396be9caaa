package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trakgo/trak/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Running migrate again should be a no-op
	err := s.Migrate(ctx)
	assert.NoError(t, err)
}

// --- Project CRUD ---

func TestProjectCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &models.Project{Name: "vesta", Description: "A test project"}
	err := s.CreateProject(ctx, p)
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.False(t, got.Suspended)

	got, err = s.GetProjectByName(ctx, "vesta")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	got.Suspended = true
	err = s.UpdateProject(ctx, got)
	require.NoError(t, err)

	got2, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got2.Suspended)

	projects, err := s.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 1)

	err = s.DeleteProject(ctx, p.ID)
	require.NoError(t, err)

	_, err = s.GetProject(ctx, p.ID)
	assert.Error(t, err)
}

// --- Workflow configuration ---

// seedWorkflow builds a project with a Development template: opened ->
// assigned -> completed, author-driven edges, plus a support team group.
type workflowFixture struct {
	project   *models.Project
	template  *models.Template
	opened    *models.State
	assigned  *models.State
	completed *models.State
	team      *models.Group
	author    *models.User
	member    *models.User
}

func seedWorkflow(t *testing.T, s *SQLiteStore) *workflowFixture {
	t.Helper()
	ctx := context.Background()

	fx := &workflowFixture{}

	fx.project = &models.Project{Name: "vesta"}
	require.NoError(t, s.CreateProject(ctx, fx.project))

	fx.template = &models.Template{
		ProjectID: fx.project.ID,
		Name:      "development",
		Prefix:    "DEV",
	}
	require.NoError(t, s.CreateTemplate(ctx, fx.template))

	fx.opened = &models.State{TemplateID: fx.template.ID, Name: "opened", Type: models.StateInitial}
	fx.assigned = &models.State{TemplateID: fx.template.ID, Name: "assigned", Type: models.StateIntermediate, Responsible: models.ResponsibleAssign}
	fx.completed = &models.State{TemplateID: fx.template.ID, Name: "completed", Type: models.StateFinal}
	for _, st := range []*models.State{fx.opened, fx.assigned, fx.completed} {
		require.NoError(t, s.CreateState(ctx, st))
	}

	fx.author = &models.User{Email: "author@example.com", FullName: "Issue Author"}
	fx.member = &models.User{Email: "member@example.com", FullName: "Team Member"}
	require.NoError(t, s.CreateUser(ctx, fx.author))
	require.NoError(t, s.CreateUser(ctx, fx.member))

	pid := fx.project.ID
	fx.team = &models.Group{ProjectID: &pid, Name: "dev-team"}
	require.NoError(t, s.CreateGroup(ctx, fx.team))
	require.NoError(t, s.AddGroupMember(ctx, fx.team.ID, fx.member.ID))

	authorRole := models.RoleAuthor
	require.NoError(t, s.CreateTransition(ctx, &TransitionRow{
		FromStateID: fx.opened.ID, ToStateID: fx.assigned.ID, Role: &authorRole,
	}))
	require.NoError(t, s.CreateTransition(ctx, &TransitionRow{
		FromStateID: fx.assigned.ID, ToStateID: fx.completed.ID, GroupID: &fx.team.ID,
	}))

	require.NoError(t, s.SetRoleGrant(ctx, fx.template.ID, models.RoleAnyone, models.ActionCreateIssues, true))
	require.NoError(t, s.SetRoleGrant(ctx, fx.template.ID, models.RoleAuthor, models.ActionEditIssues, true))
	require.NoError(t, s.SetGroupGrant(ctx, fx.template.ID, fx.team.ID, models.ActionViewIssues, true))

	return fx
}

func TestLoadTemplate_AssemblesAggregate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	fx := seedWorkflow(t, s)

	tpl, err := s.LoadTemplate(ctx, fx.template.ID)
	require.NoError(t, err)

	require.NotNil(t, tpl.Project)
	assert.Equal(t, fx.project.ID, tpl.Project.ID)
	assert.Len(t, tpl.States, 3)

	opened := tpl.StateByName("opened")
	require.NotNil(t, opened)
	assert.Same(t, tpl, opened.Template)
	require.Len(t, opened.Transitions, 1)
	assert.Equal(t, "assigned", opened.Transitions[0].To.Name)
	assert.Equal(t, models.RoleGrantee{Role: models.RoleAuthor}, opened.Transitions[0].Grantee)

	assigned := tpl.StateByName("assigned")
	require.NotNil(t, assigned)
	require.Len(t, assigned.Transitions, 1)
	grantee, ok := assigned.Transitions[0].Grantee.(models.GroupGrantee)
	require.True(t, ok)
	assert.Equal(t, fx.team.ID, grantee.Group.ID)
	assert.True(t, grantee.Group.HasMember(fx.member.ID), "snapshot groups carry members")

	assert.True(t, tpl.RolePermission(models.RoleAnyone, models.ActionCreateIssues))
	assert.True(t, tpl.RolePermission(models.RoleAuthor, models.ActionEditIssues))
	assert.False(t, tpl.RolePermission(models.RoleAuthor, models.ActionDeleteIssues))
	assert.True(t, tpl.GroupPermission(fx.team.ID, models.ActionViewIssues))

	// Initial state resolution
	initial := tpl.InitialState()
	require.NotNil(t, initial)
	assert.Equal(t, "opened", initial.Name)
}

func TestRoleGrantRevocation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	fx := seedWorkflow(t, s)

	require.NoError(t, s.SetRoleGrant(ctx, fx.template.ID, models.RoleAuthor, models.ActionEditIssues, false))

	tpl, err := s.LoadTemplate(ctx, fx.template.ID)
	require.NoError(t, err)
	assert.False(t, tpl.RolePermission(models.RoleAuthor, models.ActionEditIssues))
}

func TestIssueCRUDAndLinks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	fx := seedWorkflow(t, s)

	issue := &models.Issue{
		TemplateID: fx.template.ID,
		StateID:    fx.opened.ID,
		Subject:    "Crash on startup",
		AuthorID:   fx.author.ID,
	}
	require.NoError(t, s.CreateIssue(ctx, issue))
	assert.NotEmpty(t, issue.ID)

	dep := &models.Issue{
		TemplateID: fx.template.ID,
		StateID:    fx.opened.ID,
		Subject:    "Upstream fix",
		AuthorID:   fx.author.ID,
	}
	require.NoError(t, s.CreateIssue(ctx, dep))
	require.NoError(t, s.LinkIssues(ctx, issue.ID, dep.ID, false))

	rel := &models.Issue{
		TemplateID: fx.template.ID,
		StateID:    fx.opened.ID,
		Subject:    "See also",
		AuthorID:   fx.author.ID,
	}
	require.NoError(t, s.CreateIssue(ctx, rel))
	require.NoError(t, s.LinkIssues(ctx, issue.ID, rel.ID, true))

	loaded, err := s.LoadIssue(ctx, issue.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Template)
	require.NotNil(t, loaded.State)
	assert.Equal(t, "opened", loaded.State.Name)
	require.Len(t, loaded.Dependencies, 1)
	assert.Equal(t, dep.ID, loaded.Dependencies[0].ID)
	require.NotNil(t, loaded.Dependencies[0].State, "dependency carries its state for finality checks")
	require.Len(t, loaded.Related, 1)
	assert.Equal(t, rel.ID, loaded.Related[0].ID)

	// Unlink the dependency
	require.NoError(t, s.UnlinkIssues(ctx, issue.ID, dep.ID, false))
	loaded, err = s.LoadIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Dependencies)
	assert.Len(t, loaded.Related, 1)

	// Update: move to assigned, set responsible
	issue.StateID = fx.assigned.ID
	issue.ResponsibleID = &fx.member.ID
	require.NoError(t, s.UpdateIssue(ctx, issue))

	got, err := s.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, fx.assigned.ID, got.StateID)
	require.NotNil(t, got.ResponsibleID)
	assert.Equal(t, fx.member.ID, *got.ResponsibleID)

	// Filters
	issues, err := s.ListIssues(ctx, IssueFilter{AuthorID: fx.author.ID})
	require.NoError(t, err)
	assert.Len(t, issues, 3)

	issues, err = s.ListIssues(ctx, IssueFilter{ProjectID: fx.project.ID, StateID: fx.assigned.ID})
	require.NoError(t, err)
	assert.Len(t, issues, 1)

	require.NoError(t, s.DeleteIssue(ctx, rel.ID))
	loaded, err = s.LoadIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Related, "links cascade on delete")
}

func TestLoadUser_Groups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	fx := seedWorkflow(t, s)

	u, err := s.LoadUserByEmail(ctx, "member@example.com")
	require.NoError(t, err)
	require.Len(t, u.Groups, 1)
	assert.Equal(t, "dev-team", u.Groups[0].Name)
	assert.True(t, u.Groups[0].HasMember(fx.member.ID))

	require.NoError(t, s.RemoveGroupMember(ctx, fx.team.ID, fx.member.ID))
	u, err = s.LoadUser(ctx, fx.member.ID)
	require.NoError(t, err)
	assert.Empty(t, u.Groups)
}

func TestFieldCRUDAndGrants(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	fx := seedWorkflow(t, s)

	f := &models.Field{
		StateID:  fx.opened.ID,
		Name:     "severity",
		Type:     models.FieldList,
		Required: true,
	}
	require.NoError(t, s.CreateField(ctx, f))
	require.NoError(t, s.SetFieldRoleGrant(ctx, f.ID, models.RoleAuthor, models.FieldPermissionReadOnly))
	require.NoError(t, s.SetFieldGroupGrant(ctx, f.ID, fx.team.ID, models.FieldPermissionReadWrite))

	tpl, err := s.LoadTemplate(ctx, fx.template.ID)
	require.NoError(t, err)
	opened := tpl.StateByName("opened")
	require.Len(t, opened.Fields, 1)

	loaded := opened.Fields[0]
	assert.True(t, loaded.Required)
	assert.Equal(t, models.FieldPermissionReadOnly, loaded.RolePermission(models.RoleAuthor))
	assert.Equal(t, models.FieldPermissionReadWrite, loaded.GroupPermission(fx.team.ID))

	// Upgrading a grant overwrites, it does not duplicate.
	require.NoError(t, s.SetFieldRoleGrant(ctx, f.ID, models.RoleAuthor, models.FieldPermissionReadWrite))
	tpl, err = s.LoadTemplate(ctx, fx.template.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FieldPermissionReadWrite,
		tpl.StateByName("opened").Fields[0].RolePermission(models.RoleAuthor))

	// Soft delete
	require.NoError(t, s.RemoveField(ctx, f.ID, time.Now().UTC()))
	tpl, err = s.LoadTemplate(ctx, fx.template.ID)
	require.NoError(t, err)
	opened = tpl.StateByName("opened")
	require.Len(t, opened.Fields, 1, "removed fields stay stored")
	assert.False(t, opened.Fields[0].IsActive())
	assert.Empty(t, opened.ActiveFields())
}

func TestResponsibleGroups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	fx := seedWorkflow(t, s)

	require.NoError(t, s.AddResponsibleGroup(ctx, fx.assigned.ID, fx.team.ID))

	tpl, err := s.LoadTemplate(ctx, fx.template.ID)
	require.NoError(t, err)
	assigned := tpl.StateByName("assigned")
	require.Len(t, assigned.ResponsibleGroups, 1)
	assert.Equal(t, fx.team.ID, assigned.ResponsibleGroups[0].ID)

	require.NoError(t, s.RemoveResponsibleGroup(ctx, fx.assigned.ID, fx.team.ID))
	tpl, err = s.LoadTemplate(ctx, fx.template.ID)
	require.NoError(t, err)
	assert.Empty(t, tpl.StateByName("assigned").ResponsibleGroups)
}

func TestDeleteTransition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	fx := seedWorkflow(t, s)

	rows, err := s.ListTransitions(ctx, fx.template.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, s.DeleteTransition(ctx, rows[0].ID))
	rows, err = s.ListTransitions(ctx, fx.template.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
