package engine

import (
	"fmt"
	"time"

	"github.com/trakgo/trak/internal/models"
)

// CanView reports whether the user may see the issue. The issue's author and
// current responsible always may; everyone else needs the ViewIssues grant.
// Suspension, freeze and template lock never hide an issue.
func CanView(user *models.User, issue *models.Issue) bool {
	if user == nil || issue == nil {
		return false
	}
	if issue.AuthorID == user.ID {
		return true
	}
	if issue.ResponsibleID != nil && *issue.ResponsibleID == user.ID {
		return true
	}
	return HasPermission(user, issue, models.ActionViewIssues)
}

// CanCreate decides whether the user may create an issue in the template:
// the project must not be suspended, the template must be unlocked and have
// an initial state, and the user needs a CreateIssues grant via the Anyone
// role or a visible group.
func CanCreate(user *models.User, tpl *models.Template) (bool, error) {
	if user == nil {
		return false, nil
	}
	if tpl == nil || tpl.Project == nil {
		return false, fmt.Errorf("template snapshot is not fully loaded: %w", ErrInvalidConfiguration)
	}
	if tpl.Project.Suspended {
		return false, nil
	}
	if tpl.Locked {
		return false, nil
	}
	if tpl.InitialState() == nil {
		return false, nil
	}
	return hasCreatePermission(user, tpl), nil
}

// CanPerform decides a single action on an existing issue at the given
// instant. It is total over the supported action set: every input resolves
// to a definite grant or deny, and only configuration corruption or an
// unsupported action produce an error.
//
// Structural guards run first, in order: anonymous actor, suspended
// project, suspended issue, frozen issue. Each guard is scoped to the
// actions it gates; freeze does not gate Delete or ChangeState.
func CanPerform(user *models.User, issue *models.Issue, action Action, now time.Time) (bool, error) {
	if !Supports(action) {
		return false, fmt.Errorf("%q: %w", action, ErrUnsupportedAction)
	}
	if user == nil {
		return false, nil
	}
	if issue == nil || issue.Template == nil || issue.State == nil || issue.Template.Project == nil {
		return false, fmt.Errorf("issue snapshot is not fully loaded: %w", ErrInvalidConfiguration)
	}

	// Reads are never blocked by structural state.
	switch action {
	case ActionView:
		return CanView(user, issue), nil
	case ActionReadPrivateComment:
		return HasPermission(user, issue, models.ActionPrivateComments), nil
	}

	if issue.Template.Project.Suspended {
		return false, nil
	}

	suspended := issue.IsSuspended(now)
	frozen := issue.IsFrozen(now)

	switch action {
	case ActionUpdate:
		if suspended || frozen {
			return false, nil
		}
		return HasPermission(user, issue, models.ActionEditIssues), nil

	case ActionDelete:
		// Freeze and suspension do not gate deletion.
		return HasPermission(user, issue, models.ActionDeleteIssues), nil

	case ActionChangeState:
		if suspended {
			return false, nil
		}
		targets, err := LegalTransitions(user, issue)
		if err != nil {
			return false, err
		}
		return len(targets) > 0, nil

	case ActionReassign:
		if suspended {
			return false, nil
		}
		if issue.ResponsibleID == nil {
			return false, nil
		}
		return HasPermission(user, issue, models.ActionReassignIssues), nil

	case ActionSuspend:
		if suspended || issue.IsClosed() {
			return false, nil
		}
		return HasPermission(user, issue, models.ActionSuspendIssues), nil

	case ActionResume:
		if !suspended {
			return false, nil
		}
		return HasPermission(user, issue, models.ActionResumeIssues), nil

	case ActionAddPublicComment:
		if suspended || frozen {
			return false, nil
		}
		return HasPermission(user, issue, models.ActionAddComments), nil

	case ActionAddPrivateComment:
		if suspended || frozen {
			return false, nil
		}
		return HasPermission(user, issue, models.ActionPrivateComments), nil

	case ActionAttachFile:
		if suspended || frozen {
			return false, nil
		}
		return HasPermission(user, issue, models.ActionAttachFiles), nil

	case ActionDeleteFile:
		if suspended || frozen {
			return false, nil
		}
		return HasPermission(user, issue, models.ActionDeleteFiles), nil

	case ActionAddDependency, ActionRemoveDependency:
		if suspended {
			return false, nil
		}
		return HasPermission(user, issue, models.ActionManageDependencies), nil

	case ActionAddRelatedIssue, ActionRemoveRelatedIssue:
		if suspended {
			return false, nil
		}
		return HasPermission(user, issue, models.ActionManageRelatedIssues), nil
	}

	return false, fmt.Errorf("%q: %w", action, ErrUnsupportedAction)
}
