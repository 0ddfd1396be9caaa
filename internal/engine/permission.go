package engine

import "github.com/trakgo/trak/internal/models"

// HasPermission reports whether the user holds the template action on the
// issue. Grants combine as a logical OR across every applicable grantee:
// the user's system roles on the issue first (short-circuiting), then the
// user's group memberships visible to the template's project.
func HasPermission(user *models.User, issue *models.Issue, action models.TemplateAction) bool {
	if user == nil || issue == nil || issue.Template == nil {
		return false
	}
	tpl := issue.Template

	for _, role := range user.SystemRoles(issue) {
		if resolveTemplatePermission(tpl, models.RoleGrantee{Role: role}, action) {
			return true
		}
	}
	for _, g := range user.Groups {
		if !g.VisibleTo(tpl.ProjectID) {
			continue
		}
		if resolveTemplatePermission(tpl, models.GroupGrantee{Group: g}, action) {
			return true
		}
	}
	return false
}

// hasCreatePermission is the pre-creation variant of HasPermission: no issue
// exists yet, so Author and Responsible are meaningless and only the Anyone
// role and group grants count.
func hasCreatePermission(user *models.User, tpl *models.Template) bool {
	if user == nil || tpl == nil {
		return false
	}
	if resolveTemplatePermission(tpl, models.RoleGrantee{Role: models.RoleAnyone}, models.ActionCreateIssues) {
		return true
	}
	for _, g := range user.Groups {
		if !g.VisibleTo(tpl.ProjectID) {
			continue
		}
		if resolveTemplatePermission(tpl, models.GroupGrantee{Group: g}, models.ActionCreateIssues) {
			return true
		}
	}
	return false
}

// FieldAccess returns the user's effective permission on a field of the
// issue: the maximum of the grants resolved for each system role held and
// each visible group membership.
func FieldAccess(user *models.User, issue *models.Issue, field *models.Field) models.FieldPermission {
	if user == nil || issue == nil || issue.Template == nil || field == nil {
		return models.FieldPermissionNone
	}
	best := models.FieldPermissionNone

	for _, role := range user.SystemRoles(issue) {
		if p := resolveFieldPermission(field, models.RoleGrantee{Role: role}); p > best {
			best = p
		}
	}
	for _, g := range user.Groups {
		if !g.VisibleTo(issue.Template.ProjectID) {
			continue
		}
		if p := resolveFieldPermission(field, models.GroupGrantee{Group: g}); p > best {
			best = p
		}
	}
	return best
}
