package models

import "time"

// Group is a named set of users, either scoped to one project or global.
type Group struct {
	ID          string
	ProjectID   *string // nil = global group
	Project     *Project
	Name        string
	Description string
	Members     []string // user IDs
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsGlobal reports whether the group is visible to every project.
func (g *Group) IsGlobal() bool {
	return g.ProjectID == nil
}

// VisibleTo reports whether the group may be referenced by grants and
// transitions of templates belonging to the given project.
func (g *Group) VisibleTo(projectID string) bool {
	return g.IsGlobal() || *g.ProjectID == projectID
}

// HasMember reports whether the user belongs to the group.
func (g *Group) HasMember(userID string) bool {
	for _, id := range g.Members {
		if id == userID {
			return true
		}
	}
	return false
}
