package engine

import (
	"fmt"

	"github.com/trakgo/trak/internal/models"
)

// hasOpenDependencies reports whether any dependency of the issue is not yet
// in a final state. Related issues never block.
func hasOpenDependencies(issue *models.Issue) bool {
	for _, dep := range issue.Dependencies {
		if dep.State == nil || !dep.State.IsFinal() {
			return true
		}
	}
	return false
}

// granteeApplies reports whether a transition grantee covers the user on
// this issue: a role grantee iff the user holds that role, a group grantee
// iff the user is a member and the group is visible to the template's
// project.
func granteeApplies(user *models.User, issue *models.Issue, grantee models.Grantee) bool {
	switch g := grantee.(type) {
	case models.RoleGrantee:
		return user.HoldsRole(issue, g.Role)
	case models.GroupGrantee:
		if g.Group == nil {
			return false
		}
		return g.Group.VisibleTo(issue.Template.ProjectID) && g.Group.HasMember(user.ID)
	}
	return false
}

// LegalTransitions computes the authoritative set of states the user may
// move the issue to: the outgoing edges of the current state whose grantee
// covers the user, with final targets removed while the issue has open
// dependencies. An empty set means no transition is currently available.
func LegalTransitions(user *models.User, issue *models.Issue) ([]*models.State, error) {
	if user == nil {
		return nil, nil
	}
	if issue == nil || issue.Template == nil || issue.State == nil {
		return nil, fmt.Errorf("issue snapshot is not fully loaded: %w", ErrInvalidConfiguration)
	}
	if issue.State.TemplateID != issue.TemplateID {
		return nil, fmt.Errorf("issue state %q belongs to template %q, issue to %q: %w",
			issue.State.Name, issue.State.TemplateID, issue.TemplateID, ErrInvalidConfiguration)
	}

	graph, err := newWorkflowGraph(issue.Template)
	if err != nil {
		return nil, err
	}

	blocked := hasOpenDependencies(issue)

	var targets []*models.State
	seen := make(map[string]bool)
	for _, tr := range graph.edgesFrom(issue.State) {
		if !granteeApplies(user, issue, tr.Grantee) {
			continue
		}
		if blocked && tr.To.IsFinal() {
			continue
		}
		if seen[tr.To.ID] {
			continue
		}
		seen[tr.To.ID] = true
		targets = append(targets, tr.To)
	}
	return targets, nil
}
