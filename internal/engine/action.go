package engine

// Action identifies an operation a user may attempt on an issue. The set is
// closed: voters refuse anything outside it with ErrUnsupportedAction.
type Action string

const (
	ActionView               Action = "view"
	ActionCreate             Action = "create"
	ActionUpdate             Action = "update"
	ActionDelete             Action = "delete"
	ActionChangeState        Action = "change_state"
	ActionReassign           Action = "reassign"
	ActionSuspend            Action = "suspend"
	ActionResume             Action = "resume"
	ActionAddPublicComment   Action = "add_public_comment"
	ActionAddPrivateComment  Action = "add_private_comment"
	ActionReadPrivateComment Action = "read_private_comment"
	ActionAttachFile         Action = "attach_file"
	ActionDeleteFile         Action = "delete_file"
	ActionAddDependency      Action = "add_dependency"
	ActionRemoveDependency   Action = "remove_dependency"
	ActionAddRelatedIssue    Action = "add_related_issue"
	ActionRemoveRelatedIssue Action = "remove_related_issue"
)

// Actions enumerates every action the engine decides.
var Actions = []Action{
	ActionView,
	ActionCreate,
	ActionUpdate,
	ActionDelete,
	ActionChangeState,
	ActionReassign,
	ActionSuspend,
	ActionResume,
	ActionAddPublicComment,
	ActionAddPrivateComment,
	ActionReadPrivateComment,
	ActionAttachFile,
	ActionDeleteFile,
	ActionAddDependency,
	ActionRemoveDependency,
	ActionAddRelatedIssue,
	ActionRemoveRelatedIssue,
}

// Supports reports whether CanPerform decides the given action. Create is
// excluded: it has no target issue and is decided by CanCreate.
func Supports(a Action) bool {
	switch a {
	case ActionCreate:
		return false
	case ActionView, ActionUpdate, ActionDelete, ActionChangeState,
		ActionReassign, ActionSuspend, ActionResume,
		ActionAddPublicComment, ActionAddPrivateComment, ActionReadPrivateComment,
		ActionAttachFile, ActionDeleteFile,
		ActionAddDependency, ActionRemoveDependency,
		ActionAddRelatedIssue, ActionRemoveRelatedIssue:
		return true
	}
	return false
}

// Valid reports whether a is a known action, supported by CanPerform or not.
func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}
