package models

// StateType classifies a workflow state.
type StateType string

const (
	StateInitial      StateType = "initial"
	StateIntermediate StateType = "intermediate"
	StateFinal        StateType = "final"
)

// Valid reports whether t is a known state type.
func (t StateType) Valid() bool {
	switch t {
	case StateInitial, StateIntermediate, StateFinal:
		return true
	}
	return false
}

// ResponsiblePolicy says what happens to an issue's responsible when the
// issue enters a state.
type ResponsiblePolicy string

const (
	ResponsibleKeep   ResponsiblePolicy = "keep"
	ResponsibleAssign ResponsiblePolicy = "assign"
	ResponsibleRemove ResponsiblePolicy = "remove"
)

// Valid reports whether p is a known responsible policy.
func (p ResponsiblePolicy) Valid() bool {
	switch p {
	case ResponsibleKeep, ResponsibleAssign, ResponsibleRemove:
		return true
	}
	return false
}

// State is one node of a template's workflow graph.
type State struct {
	ID          string
	TemplateID  string
	Template    *Template
	Name        string
	Type        StateType
	Responsible ResponsiblePolicy
	Transitions []*Transition
	Fields      []*Field
	// ResponsibleGroups are the groups whose members are eligible to become
	// responsible when entering this state with an Assign policy.
	ResponsibleGroups []*Group
}

// IsFinal reports whether entering the state closes the issue.
func (s *State) IsFinal() bool {
	return s.Type == StateFinal
}

// EffectiveResponsible returns the responsible policy in force. Final states
// always behave as Remove regardless of the stored value.
func (s *State) EffectiveResponsible() ResponsiblePolicy {
	if s.IsFinal() {
		return ResponsibleRemove
	}
	return s.Responsible
}

// ActiveFields returns the state's fields that are not soft-deleted.
func (s *State) ActiveFields() []*Field {
	var active []*Field
	for _, f := range s.Fields {
		if f.IsActive() {
			active = append(active, f)
		}
	}
	return active
}

// Transition is a directed, grantee-tagged edge between two states of the
// same template.
type Transition struct {
	From    *State
	To      *State
	Grantee Grantee
}
