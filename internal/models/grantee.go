package models

// SystemRole is a relationship between a user and an issue, computed per
// decision rather than stored. A user always holds Anyone, and may hold
// Author and Responsible simultaneously.
type SystemRole string

const (
	RoleAnyone      SystemRole = "anyone"
	RoleAuthor      SystemRole = "author"
	RoleResponsible SystemRole = "responsible"
)

// SystemRoles enumerates all system roles.
var SystemRoles = []SystemRole{RoleAnyone, RoleAuthor, RoleResponsible}

// Valid reports whether r is a known system role.
func (r SystemRole) Valid() bool {
	switch r {
	case RoleAnyone, RoleAuthor, RoleResponsible:
		return true
	}
	return false
}

// Grantee is the subject of a permission grant or transition edge: either a
// system role or a group. The set of implementations is closed.
type Grantee interface {
	isGrantee()
	String() string
}

// RoleGrantee grants to a system role.
type RoleGrantee struct {
	Role SystemRole
}

func (RoleGrantee) isGrantee() {}

func (g RoleGrantee) String() string { return string(g.Role) }

// GroupGrantee grants to a group.
type GroupGrantee struct {
	Group *Group
}

func (GroupGrantee) isGrantee() {}

func (g GroupGrantee) String() string {
	if g.Group == nil {
		return "group:?"
	}
	return "group:" + g.Group.Name
}
