package models

import "time"

// TemplateAction is an issue-level permission defined per template.
type TemplateAction string

const (
	ActionViewIssues          TemplateAction = "view_issues"
	ActionCreateIssues        TemplateAction = "create_issues"
	ActionEditIssues          TemplateAction = "edit_issues"
	ActionReassignIssues      TemplateAction = "reassign_issues"
	ActionSuspendIssues       TemplateAction = "suspend_issues"
	ActionResumeIssues        TemplateAction = "resume_issues"
	ActionDeleteIssues        TemplateAction = "delete_issues"
	ActionAddComments         TemplateAction = "add_comments"
	ActionPrivateComments     TemplateAction = "private_comments"
	ActionAttachFiles         TemplateAction = "attach_files"
	ActionDeleteFiles         TemplateAction = "delete_files"
	ActionManageDependencies  TemplateAction = "manage_dependencies"
	ActionManageRelatedIssues TemplateAction = "manage_related_issues"
)

// TemplateActions enumerates every template action.
var TemplateActions = []TemplateAction{
	ActionViewIssues,
	ActionCreateIssues,
	ActionEditIssues,
	ActionReassignIssues,
	ActionSuspendIssues,
	ActionResumeIssues,
	ActionDeleteIssues,
	ActionAddComments,
	ActionPrivateComments,
	ActionAttachFiles,
	ActionDeleteFiles,
	ActionManageDependencies,
	ActionManageRelatedIssues,
}

// Valid reports whether a is a known template action.
func (a TemplateAction) Valid() bool {
	for _, known := range TemplateActions {
		if a == known {
			return true
		}
	}
	return false
}

// GroupGrant is one row of a template's group permission table.
type GroupGrant struct {
	Group   *Group
	Actions map[TemplateAction]bool
}

// Template defines a workflow: its states, transitions and permission tables.
type Template struct {
	ID          string
	ProjectID   string
	Project     *Project
	Name        string
	Prefix      string
	Description string
	Locked      bool
	CriticalAge *int // days an issue may stay open before it counts as critical
	FrozenTime  *int // days after closure before the issue becomes read-only
	States      []*State
	RoleGrants  map[SystemRole]map[TemplateAction]bool
	GroupGrants []GroupGrant
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RolePermission reports whether the system role is granted the action.
// Absence of a grant means denied.
func (t *Template) RolePermission(role SystemRole, action TemplateAction) bool {
	return t.RoleGrants[role][action]
}

// GroupPermission reports whether the group is granted the action.
func (t *Template) GroupPermission(groupID string, action TemplateAction) bool {
	for _, g := range t.GroupGrants {
		if g.Group != nil && g.Group.ID == groupID {
			return g.Actions[action]
		}
	}
	return false
}

// InitialState returns the template's initial state, or nil if the template
// has none (such a template cannot originate issues).
func (t *Template) InitialState() *State {
	for _, s := range t.States {
		if s.Type == StateInitial {
			return s
		}
	}
	return nil
}

// StateByID returns the state with the given id, or nil.
func (t *Template) StateByID(id string) *State {
	for _, s := range t.States {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// StateByName returns the state with the given name, or nil.
func (t *Template) StateByName(name string) *State {
	for _, s := range t.States {
		if s.Name == name {
			return s
		}
	}
	return nil
}
