package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trakgo/trak/internal/models"
)

// Snapshot loaders assemble fully wired aggregates for the decision engine.
// A snapshot is consistent for the duration of one decision: everything the
// engine reads is loaded up front, nothing is lazily fetched mid-evaluation.

// LoadTemplate returns the template with its project, states, fields,
// transitions, permission tables and referenced groups all wired together.
func (s *SQLiteStore) LoadTemplate(ctx context.Context, id string) (*models.Template, error) {
	tpl, err := s.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}

	project, err := s.GetProject(ctx, tpl.ProjectID)
	if err != nil {
		return nil, err
	}
	tpl.Project = project

	groups, err := s.ListGroups(ctx, tpl.ProjectID)
	if err != nil {
		return nil, err
	}
	groupsByID := make(map[string]*models.Group, len(groups))
	for _, g := range groups {
		if g.ProjectID != nil && *g.ProjectID == project.ID {
			g.Project = project
		}
		groupsByID[g.ID] = g
	}

	// resolveGroup falls back to a direct fetch so that a reference to a
	// group outside the project's visibility still loads; the engine's
	// validation is what rejects it, with a proper error.
	resolveGroup := func(groupID string) (*models.Group, error) {
		if g, ok := groupsByID[groupID]; ok {
			return g, nil
		}
		g, err := s.GetGroup(ctx, groupID)
		if err != nil {
			return nil, err
		}
		groupsByID[g.ID] = g
		return g, nil
	}

	states, err := s.ListStates(ctx, tpl.ID)
	if err != nil {
		return nil, err
	}
	statesByID := make(map[string]*models.State, len(states))
	for _, st := range states {
		st.Template = tpl
		statesByID[st.ID] = st
	}
	tpl.States = states

	for _, st := range states {
		fields, err := s.ListFields(ctx, st.ID)
		if err != nil {
			return nil, err
		}
		for _, f := range fields {
			f.State = st
			if err := s.loadFieldGrants(ctx, f, resolveGroup); err != nil {
				return nil, err
			}
		}
		st.Fields = fields

		eligible, err := s.listResponsibleGroups(ctx, st.ID)
		if err != nil {
			return nil, err
		}
		for _, groupID := range eligible {
			g, err := resolveGroup(groupID)
			if err != nil {
				return nil, err
			}
			st.ResponsibleGroups = append(st.ResponsibleGroups, g)
		}
	}

	transitions, err := s.ListTransitions(ctx, tpl.ID)
	if err != nil {
		return nil, err
	}
	for _, row := range transitions {
		from := statesByID[row.FromStateID]
		to := statesByID[row.ToStateID]
		if to == nil {
			// Cross-template edge; load the foreign state so validation can
			// name it instead of failing on a nil pointer.
			to, err = s.GetState(ctx, row.ToStateID)
			if err != nil {
				return nil, err
			}
		}
		if from == nil {
			return nil, fmt.Errorf("transition %s references unknown state %s", row.ID, row.FromStateID)
		}

		var grantee models.Grantee
		switch {
		case row.Role != nil:
			grantee = models.RoleGrantee{Role: *row.Role}
		case row.GroupID != nil:
			g, err := resolveGroup(*row.GroupID)
			if err != nil {
				return nil, err
			}
			grantee = models.GroupGrantee{Group: g}
		}
		from.Transitions = append(from.Transitions, &models.Transition{From: from, To: to, Grantee: grantee})
	}

	if err := s.loadTemplateGrants(ctx, tpl, resolveGroup); err != nil {
		return nil, err
	}
	return tpl, nil
}

// LoadIssue returns the issue with its template snapshot, current state,
// and dependency/related targets (each carrying enough state to judge
// finality).
func (s *SQLiteStore) LoadIssue(ctx context.Context, id string) (*models.Issue, error) {
	issue, err := s.GetIssue(ctx, id)
	if err != nil {
		return nil, err
	}

	tpl, err := s.LoadTemplate(ctx, issue.TemplateID)
	if err != nil {
		return nil, err
	}
	issue.Template = tpl

	issue.State = tpl.StateByID(issue.StateID)
	if issue.State == nil {
		// The stored state does not belong to the issue's template. Attach
		// it anyway so the engine reports the mismatch instead of treating
		// the snapshot as incomplete.
		st, err := s.GetState(ctx, issue.StateID)
		if err != nil {
			return nil, err
		}
		issue.State = st
	}

	deps, related, err := s.loadLinks(ctx, issue.ID)
	if err != nil {
		return nil, err
	}
	issue.Dependencies = deps
	issue.Related = related
	return issue, nil
}

// LoadUser returns the user with group memberships attached.
func (s *SQLiteStore) LoadUser(ctx context.Context, id string) (*models.User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return u, s.loadUserGroups(ctx, u)
}

// LoadUserByEmail is LoadUser keyed by email.
func (s *SQLiteStore) LoadUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return u, s.loadUserGroups(ctx, u)
}

func (s *SQLiteStore) loadUserGroups(ctx context.Context, u *models.User) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id, g.project_id, g.name, g.description, g.created_at, g.updated_at
		FROM groups g JOIN group_members m ON m.group_id = g.id
		WHERE m.user_id = ? ORDER BY g.name`, u.ID)
	if err != nil {
		return fmt.Errorf("load user groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		g := &models.Group{}
		var pid sql.NullString
		if err := rows.Scan(&g.ID, &pid, &g.Name, &g.Description, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return fmt.Errorf("scan user group: %w", err)
		}
		if pid.Valid {
			g.ProjectID = &pid.String
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, g := range groups {
		members, err := s.listGroupMembers(ctx, g.ID)
		if err != nil {
			return err
		}
		g.Members = members
	}
	u.Groups = groups
	return nil
}

func (s *SQLiteStore) loadTemplateGrants(ctx context.Context, tpl *models.Template, resolveGroup func(string) (*models.Group, error)) error {
	tpl.RoleGrants = make(map[models.SystemRole]map[models.TemplateAction]bool)
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, action FROM template_role_grants WHERE template_id = ?`, tpl.ID)
	if err != nil {
		return fmt.Errorf("load role grants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var role, action string
		if err := rows.Scan(&role, &action); err != nil {
			return fmt.Errorf("scan role grant: %w", err)
		}
		r := models.SystemRole(role)
		if tpl.RoleGrants[r] == nil {
			tpl.RoleGrants[r] = make(map[models.TemplateAction]bool)
		}
		tpl.RoleGrants[r][models.TemplateAction(action)] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	groupRows, err := s.db.QueryContext(ctx,
		`SELECT group_id, action FROM template_group_grants WHERE template_id = ?`, tpl.ID)
	if err != nil {
		return fmt.Errorf("load group grants: %w", err)
	}
	defer groupRows.Close()

	byGroup := make(map[string]map[models.TemplateAction]bool)
	for groupRows.Next() {
		var groupID, action string
		if err := groupRows.Scan(&groupID, &action); err != nil {
			return fmt.Errorf("scan group grant: %w", err)
		}
		if byGroup[groupID] == nil {
			byGroup[groupID] = make(map[models.TemplateAction]bool)
		}
		byGroup[groupID][models.TemplateAction(action)] = true
	}
	if err := groupRows.Err(); err != nil {
		return err
	}

	for groupID, actions := range byGroup {
		g, err := resolveGroup(groupID)
		if err != nil {
			return err
		}
		tpl.GroupGrants = append(tpl.GroupGrants, models.GroupGrant{Group: g, Actions: actions})
	}
	return nil
}

func (s *SQLiteStore) loadFieldGrants(ctx context.Context, f *models.Field, resolveGroup func(string) (*models.Group, error)) error {
	f.RoleGrants = make(map[models.SystemRole]models.FieldPermission)
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, permission FROM field_role_grants WHERE field_id = ?`, f.ID)
	if err != nil {
		return fmt.Errorf("load field role grants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var role, permission string
		if err := rows.Scan(&role, &permission); err != nil {
			return fmt.Errorf("scan field role grant: %w", err)
		}
		f.RoleGrants[models.SystemRole(role)] = models.ParseFieldPermission(permission)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	groupRows, err := s.db.QueryContext(ctx,
		`SELECT group_id, permission FROM field_group_grants WHERE field_id = ?`, f.ID)
	if err != nil {
		return fmt.Errorf("load field group grants: %w", err)
	}
	defer groupRows.Close()
	for groupRows.Next() {
		var groupID, permission string
		if err := groupRows.Scan(&groupID, &permission); err != nil {
			return fmt.Errorf("scan field group grant: %w", err)
		}
		g, err := resolveGroup(groupID)
		if err != nil {
			return err
		}
		f.GroupGrants = append(f.GroupGrants, models.FieldGroupGrant{
			Group:      g,
			Permission: models.ParseFieldPermission(permission),
		})
	}
	return groupRows.Err()
}

func (s *SQLiteStore) listResponsibleGroups(ctx context.Context, stateID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_id FROM state_responsible_groups WHERE state_id = ?`, stateID)
	if err != nil {
		return nil, fmt.Errorf("list responsible groups: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan responsible group: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// loadLinks returns the dependency and related targets of an issue. Each
// target carries its state row so finality can be judged, without pulling
// in the target's whole template.
func (s *SQLiteStore) loadLinks(ctx context.Context, issueID string) (deps, related []*models.Issue, err error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT target_id, related FROM issue_links WHERE issue_id = ?`, issueID)
	if err != nil {
		return nil, nil, fmt.Errorf("load issue links: %w", err)
	}
	defer rows.Close()

	type link struct {
		targetID string
		related  bool
	}
	var links []link
	for rows.Next() {
		var l link
		if err := rows.Scan(&l.targetID, &l.related); err != nil {
			return nil, nil, fmt.Errorf("scan issue link: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	for _, l := range links {
		target, err := s.GetIssue(ctx, l.targetID)
		if err != nil {
			return nil, nil, err
		}
		state, err := s.GetState(ctx, target.StateID)
		if err != nil {
			return nil, nil, err
		}
		target.State = state
		if l.related {
			related = append(related, target)
		} else {
			deps = append(deps, target)
		}
	}
	return deps, related, nil
}
