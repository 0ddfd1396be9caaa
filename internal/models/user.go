package models

import "time"

// User is an account that authors issues and holds group memberships.
type User struct {
	ID        string
	Email     string
	FullName  string
	Admin     bool
	Disabled  bool
	Groups    []*Group
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SystemRoles computes the user's relational roles on an issue. Anyone is
// always held; Author and Responsible follow from identity and may be held
// together.
func (u *User) SystemRoles(issue *Issue) []SystemRole {
	roles := []SystemRole{RoleAnyone}
	if issue.AuthorID == u.ID {
		roles = append(roles, RoleAuthor)
	}
	if issue.ResponsibleID != nil && *issue.ResponsibleID == u.ID {
		roles = append(roles, RoleResponsible)
	}
	return roles
}

// HoldsRole reports whether the user holds the given system role on the issue.
func (u *User) HoldsRole(issue *Issue, role SystemRole) bool {
	switch role {
	case RoleAnyone:
		return true
	case RoleAuthor:
		return issue.AuthorID == u.ID
	case RoleResponsible:
		return issue.ResponsibleID != nil && *issue.ResponsibleID == u.ID
	}
	return false
}
