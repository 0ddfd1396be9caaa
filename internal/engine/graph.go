package engine

import (
	"fmt"

	"github.com/trakgo/trak/internal/models"
)

// workflowGraph is an immutable per-template view of the transition edges,
// keyed by from-state id. The graph is directed and may contain cycles;
// availability always operates on single-hop edges.
type workflowGraph struct {
	edges map[string][]*models.Transition
}

// newWorkflowGraph builds the graph from a template's states and transition
// edges, validating structural integrity as it goes. Any violation is a
// configuration bug upstream and aborts with ErrInvalidConfiguration.
func newWorkflowGraph(tpl *models.Template) (*workflowGraph, error) {
	g := &workflowGraph{edges: make(map[string][]*models.Transition)}

	for _, s := range tpl.States {
		if s.TemplateID != tpl.ID {
			return nil, fmt.Errorf("state %q belongs to template %q, not %q: %w",
				s.Name, s.TemplateID, tpl.ID, ErrInvalidConfiguration)
		}
		for _, tr := range s.Transitions {
			if tr.From == nil || tr.To == nil {
				return nil, fmt.Errorf("transition from state %q has a nil endpoint: %w",
					s.Name, ErrInvalidConfiguration)
			}
			if tr.From.ID != s.ID {
				return nil, fmt.Errorf("transition attached to state %q starts at %q: %w",
					s.Name, tr.From.Name, ErrInvalidConfiguration)
			}
			if tr.To.TemplateID != tpl.ID {
				return nil, fmt.Errorf("transition %q -> %q crosses into template %q: %w",
					tr.From.Name, tr.To.Name, tr.To.TemplateID, ErrInvalidConfiguration)
			}
			if err := validateGrantee(tpl, tr.Grantee); err != nil {
				return nil, fmt.Errorf("transition %q -> %q: %w", tr.From.Name, tr.To.Name, err)
			}
			g.edges[s.ID] = append(g.edges[s.ID], tr)
		}
	}
	return g, nil
}

// edgesFrom returns the outgoing edges of a state.
func (g *workflowGraph) edgesFrom(state *models.State) []*models.Transition {
	return g.edges[state.ID]
}

// validateGrantee checks that a transition grantee is well-formed: a known
// system role, or a group visible to the template's project.
func validateGrantee(tpl *models.Template, grantee models.Grantee) error {
	switch gr := grantee.(type) {
	case models.RoleGrantee:
		if !gr.Role.Valid() {
			return fmt.Errorf("unknown system role %q: %w", gr.Role, ErrInvalidConfiguration)
		}
		return nil
	case models.GroupGrantee:
		if gr.Group == nil {
			return fmt.Errorf("nil grantee group: %w", ErrInvalidConfiguration)
		}
		if !gr.Group.VisibleTo(tpl.ProjectID) {
			return fmt.Errorf("group %q is not visible to project %q: %w",
				gr.Group.Name, tpl.ProjectID, ErrInvalidConfiguration)
		}
		return nil
	case nil:
		return fmt.Errorf("missing grantee: %w", ErrInvalidConfiguration)
	}
	return fmt.Errorf("unknown grantee kind %T: %w", grantee, ErrInvalidConfiguration)
}

// ValidateTemplate checks the structural integrity of a template's workflow
// configuration: state ownership, transition endpoints, grantee visibility
// for both transitions and group grant tables, and at most one initial
// state. It is meant to run when configuration is assembled, so that bad
// data is rejected before any decision consults it.
func ValidateTemplate(tpl *models.Template) error {
	if tpl == nil {
		return fmt.Errorf("nil template: %w", ErrInvalidConfiguration)
	}
	if _, err := newWorkflowGraph(tpl); err != nil {
		return err
	}

	initials := 0
	for _, s := range tpl.States {
		if s.Type == models.StateInitial {
			initials++
		}
	}
	if initials > 1 {
		return fmt.Errorf("template %q has %d initial states: %w", tpl.Name, initials, ErrInvalidConfiguration)
	}

	for _, grant := range tpl.GroupGrants {
		if grant.Group == nil {
			return fmt.Errorf("template %q has a grant with no group: %w", tpl.Name, ErrInvalidConfiguration)
		}
		if !grant.Group.VisibleTo(tpl.ProjectID) {
			return fmt.Errorf("template %q grants to group %q of another project: %w",
				tpl.Name, grant.Group.Name, ErrInvalidConfiguration)
		}
	}

	for _, s := range tpl.States {
		for _, f := range s.Fields {
			for _, grant := range f.GroupGrants {
				if grant.Group == nil {
					return fmt.Errorf("field %q has a grant with no group: %w", f.Name, ErrInvalidConfiguration)
				}
				if !grant.Group.VisibleTo(tpl.ProjectID) {
					return fmt.Errorf("field %q grants to group %q of another project: %w",
						f.Name, grant.Group.Name, ErrInvalidConfiguration)
				}
			}
		}
	}
	return nil
}
