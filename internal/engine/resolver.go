package engine

import "github.com/trakgo/trak/internal/models"

// resolveTemplatePermission looks up the stored grant for a single grantee.
// Absence of an entry means denied. Pure function of configuration data;
// grantee applicability (role held, group visible) is the caller's concern.
func resolveTemplatePermission(tpl *models.Template, grantee models.Grantee, action models.TemplateAction) bool {
	switch g := grantee.(type) {
	case models.RoleGrantee:
		return tpl.RolePermission(g.Role, action)
	case models.GroupGrantee:
		if g.Group == nil {
			return false
		}
		return tpl.GroupPermission(g.Group.ID, action)
	}
	return false
}

// resolveFieldPermission looks up the stored field-level grant for a single
// grantee. Absence of an entry means None.
func resolveFieldPermission(field *models.Field, grantee models.Grantee) models.FieldPermission {
	switch g := grantee.(type) {
	case models.RoleGrantee:
		return field.RolePermission(g.Role)
	case models.GroupGrantee:
		if g.Group == nil {
			return models.FieldPermissionNone
		}
		return field.GroupPermission(g.Group.ID)
	}
	return models.FieldPermissionNone
}
