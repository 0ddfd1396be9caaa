package models

import "time"

// Issue is a tracked item moving through a template's workflow.
type Issue struct {
	ID            string
	TemplateID    string
	Template      *Template
	StateID       string
	State         *State
	Subject       string
	AuthorID      string
	ResponsibleID *string
	OriginID      *string // clone source, if any
	CreatedAt     time.Time
	ChangedAt     time.Time
	ClosedAt      *time.Time
	ResumesAt     *time.Time
	Dependencies  []*Issue // blocking dependency targets
	Related       []*Issue // non-blocking related issues
}

// IsClosed reports whether the issue sits in a final state. ClosedAt is set
// exactly when the current state is final.
func (i *Issue) IsClosed() bool {
	return i.ClosedAt != nil
}

// IsSuspended reports whether the issue is suspended at the given instant.
func (i *Issue) IsSuspended(now time.Time) bool {
	return i.ResumesAt != nil && i.ResumesAt.After(now)
}

// IsFrozen reports whether the issue is closed and past its template's
// frozen-time window, making it read-only for edits.
func (i *Issue) IsFrozen(now time.Time) bool {
	if i.ClosedAt == nil || i.Template == nil || i.Template.FrozenTime == nil {
		return false
	}
	deadline := i.ClosedAt.AddDate(0, 0, *i.Template.FrozenTime)
	return now.After(deadline)
}

// IsCritical reports whether the issue has stayed open longer than its
// template's critical age.
func (i *Issue) IsCritical(now time.Time) bool {
	if i.IsClosed() || i.Template == nil || i.Template.CriticalAge == nil {
		return false
	}
	deadline := i.CreatedAt.AddDate(0, 0, *i.Template.CriticalAge)
	return now.After(deadline)
}

// Age returns the number of whole days between creation and now, or between
// creation and closure for a closed issue.
func (i *Issue) Age(now time.Time) int {
	end := now
	if i.ClosedAt != nil {
		end = *i.ClosedAt
	}
	return int(end.Sub(i.CreatedAt).Hours() / 24)
}
