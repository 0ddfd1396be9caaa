package engine

import (
	"time"

	"github.com/trakgo/trak/internal/models"
)

// Fixture helpers shared by the engine tests. Everything is built in memory;
// the engine never touches storage.

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestProject(id string) *models.Project {
	return &models.Project{ID: id, Name: id}
}

func newTestTemplate(id string, project *models.Project) *models.Template {
	return &models.Template{
		ID:         id,
		ProjectID:  project.ID,
		Project:    project,
		Name:       id,
		Prefix:     "T",
		RoleGrants: make(map[models.SystemRole]map[models.TemplateAction]bool),
	}
}

func addState(tpl *models.Template, id string, typ models.StateType) *models.State {
	s := &models.State{
		ID:          id,
		TemplateID:  tpl.ID,
		Template:    tpl,
		Name:        id,
		Type:        typ,
		Responsible: models.ResponsibleKeep,
	}
	tpl.States = append(tpl.States, s)
	return s
}

func addTransition(from, to *models.State, grantee models.Grantee) {
	from.Transitions = append(from.Transitions, &models.Transition{From: from, To: to, Grantee: grantee})
}

func grantRole(tpl *models.Template, role models.SystemRole, actions ...models.TemplateAction) {
	if tpl.RoleGrants[role] == nil {
		tpl.RoleGrants[role] = make(map[models.TemplateAction]bool)
	}
	for _, a := range actions {
		tpl.RoleGrants[role][a] = true
	}
}

func grantGroup(tpl *models.Template, group *models.Group, actions ...models.TemplateAction) {
	set := make(map[models.TemplateAction]bool)
	for _, a := range actions {
		set[a] = true
	}
	tpl.GroupGrants = append(tpl.GroupGrants, models.GroupGrant{Group: group, Actions: set})
}

func newTestGroup(id string, project *models.Project, memberIDs ...string) *models.Group {
	g := &models.Group{ID: id, Name: id, Members: memberIDs}
	if project != nil {
		pid := project.ID
		g.ProjectID = &pid
		g.Project = project
	}
	return g
}

func newTestUser(id string, groups ...*models.Group) *models.User {
	return &models.User{ID: id, Email: id + "@example.com", FullName: id, Groups: groups}
}

func newTestIssue(id string, tpl *models.Template, state *models.State, authorID string) *models.Issue {
	return &models.Issue{
		ID:         id,
		TemplateID: tpl.ID,
		Template:   tpl,
		StateID:    state.ID,
		State:      state,
		Subject:    id,
		AuthorID:   authorID,
		CreatedAt:  testNow.AddDate(0, 0, -10),
		ChangedAt:  testNow.AddDate(0, 0, -1),
	}
}

// closeIssue moves the issue into a final state, setting closedAt the given
// number of days before testNow.
func closeIssue(issue *models.Issue, final *models.State, daysAgo int) {
	issue.StateID = final.ID
	issue.State = final
	closed := testNow.AddDate(0, 0, -daysAgo)
	issue.ClosedAt = &closed
}

func suspendIssue(issue *models.Issue, until time.Time) {
	issue.ResumesAt = &until
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

// stateNames extracts sorted-insensitive names for assertions.
func stateNames(states []*models.State) []string {
	names := make([]string, 0, len(states))
	for _, s := range states {
		names = append(names, s.Name)
	}
	return names
}
