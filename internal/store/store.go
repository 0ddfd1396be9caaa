package store

import (
	"context"
	"time"

	"github.com/trakgo/trak/internal/models"
)

// IssueFilter specifies filters for listing issues.
type IssueFilter struct {
	ProjectID     string
	TemplateID    string
	StateID       string
	AuthorID      string
	ResponsibleID string
}

// TransitionRow is the stored shape of a transition edge: exactly one of
// Role and GroupID is set.
type TransitionRow struct {
	ID          string
	FromStateID string
	ToStateID   string
	Role        *models.SystemRole
	GroupID     *string
}

// Store defines the persistence interface for trak.
type Store interface {
	// Projects
	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id string) (*models.Project, error)
	GetProjectByName(ctx context.Context, name string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]*models.Project, error)
	UpdateProject(ctx context.Context, p *models.Project) error
	DeleteProject(ctx context.Context, id string) error

	// Templates (rows only; LoadTemplate assembles the full aggregate)
	CreateTemplate(ctx context.Context, t *models.Template) error
	GetTemplate(ctx context.Context, id string) (*models.Template, error)
	GetTemplateByName(ctx context.Context, projectID, name string) (*models.Template, error)
	ListTemplates(ctx context.Context, projectID string) ([]*models.Template, error)
	UpdateTemplate(ctx context.Context, t *models.Template) error
	DeleteTemplate(ctx context.Context, id string) error

	// States
	CreateState(ctx context.Context, s *models.State) error
	GetState(ctx context.Context, id string) (*models.State, error)
	ListStates(ctx context.Context, templateID string) ([]*models.State, error)
	UpdateState(ctx context.Context, s *models.State) error
	DeleteState(ctx context.Context, id string) error
	AddResponsibleGroup(ctx context.Context, stateID, groupID string) error
	RemoveResponsibleGroup(ctx context.Context, stateID, groupID string) error

	// Transitions
	CreateTransition(ctx context.Context, row *TransitionRow) error
	ListTransitions(ctx context.Context, templateID string) ([]*TransitionRow, error)
	DeleteTransition(ctx context.Context, id string) error

	// Fields
	CreateField(ctx context.Context, f *models.Field) error
	ListFields(ctx context.Context, stateID string) ([]*models.Field, error)
	RemoveField(ctx context.Context, id string, at time.Time) error
	SetFieldRoleGrant(ctx context.Context, fieldID string, role models.SystemRole, p models.FieldPermission) error
	SetFieldGroupGrant(ctx context.Context, fieldID, groupID string, p models.FieldPermission) error

	// Template permission tables
	SetRoleGrant(ctx context.Context, templateID string, role models.SystemRole, action models.TemplateAction, granted bool) error
	SetGroupGrant(ctx context.Context, templateID, groupID string, action models.TemplateAction, granted bool) error

	// Groups
	CreateGroup(ctx context.Context, g *models.Group) error
	GetGroup(ctx context.Context, id string) (*models.Group, error)
	GetGroupByName(ctx context.Context, name string) (*models.Group, error)
	ListGroups(ctx context.Context, projectID string) ([]*models.Group, error)
	DeleteGroup(ctx context.Context, id string) error
	AddGroupMember(ctx context.Context, groupID, userID string) error
	RemoveGroupMember(ctx context.Context, groupID, userID string) error

	// Users
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id string) error

	// Issues
	CreateIssue(ctx context.Context, i *models.Issue) error
	GetIssue(ctx context.Context, id string) (*models.Issue, error)
	ListIssues(ctx context.Context, filter IssueFilter) ([]*models.Issue, error)
	UpdateIssue(ctx context.Context, i *models.Issue) error
	DeleteIssue(ctx context.Context, id string) error
	LinkIssues(ctx context.Context, issueID, targetID string, related bool) error
	UnlinkIssues(ctx context.Context, issueID, targetID string, related bool) error

	// Snapshot loaders: fully wired aggregates for the decision engine.
	LoadTemplate(ctx context.Context, id string) (*models.Template, error)
	LoadIssue(ctx context.Context, id string) (*models.Issue, error)
	LoadUser(ctx context.Context, id string) (*models.User, error)
	LoadUserByEmail(ctx context.Context, email string) (*models.User, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
