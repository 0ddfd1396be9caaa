package models

import "time"

// FieldType is the value type of a state field.
type FieldType string

const (
	FieldCheckbox FieldType = "checkbox"
	FieldDate     FieldType = "date"
	FieldDecimal  FieldType = "decimal"
	FieldDuration FieldType = "duration"
	FieldIssue    FieldType = "issue"
	FieldList     FieldType = "list"
	FieldNumber   FieldType = "number"
	FieldString   FieldType = "string"
	FieldText     FieldType = "text"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	switch t {
	case FieldCheckbox, FieldDate, FieldDecimal, FieldDuration,
		FieldIssue, FieldList, FieldNumber, FieldString, FieldText:
		return true
	}
	return false
}

// FieldPermission is the access level a grantee has on a field. Levels are
// ordered so that aggregation can take the maximum across grantees.
type FieldPermission int

const (
	FieldPermissionNone FieldPermission = iota
	FieldPermissionReadOnly
	FieldPermissionReadWrite
)

func (p FieldPermission) String() string {
	switch p {
	case FieldPermissionReadOnly:
		return "read-only"
	case FieldPermissionReadWrite:
		return "read-write"
	default:
		return "none"
	}
}

// ParseFieldPermission converts the stored string form back to a level.
// Unknown values parse as None.
func ParseFieldPermission(s string) FieldPermission {
	switch s {
	case "read-only":
		return FieldPermissionReadOnly
	case "read-write":
		return FieldPermissionReadWrite
	}
	return FieldPermissionNone
}

// FieldGroupGrant is one row of a field's group permission table.
type FieldGroupGrant struct {
	Group      *Group
	Permission FieldPermission
}

// Field is a typed value slot attached to a workflow state.
type Field struct {
	ID          string
	StateID     string
	State       *State
	Name        string
	Type        FieldType
	Required    bool
	RemovedAt   *time.Time // soft delete; nil = active
	RoleGrants  map[SystemRole]FieldPermission
	GroupGrants []FieldGroupGrant
	CreatedAt   time.Time
}

// IsActive reports whether the field has not been soft-deleted.
func (f *Field) IsActive() bool {
	return f.RemovedAt == nil
}

// RolePermission returns the permission granted to the system role.
func (f *Field) RolePermission(role SystemRole) FieldPermission {
	return f.RoleGrants[role]
}

// GroupPermission returns the permission granted to the group.
func (f *Field) GroupPermission(groupID string) FieldPermission {
	for _, g := range f.GroupGrants {
		if g.Group != nil && g.Group.ID == groupID {
			return g.Permission
		}
	}
	return FieldPermissionNone
}
