package engine

import "errors"

var (
	// ErrInvalidConfiguration signals a data-integrity problem in the
	// workflow configuration, such as a transition edge referencing a state
	// of a foreign template or a grant naming a group that is not visible to
	// the template's project. A decision must abort rather than default to
	// grant or deny.
	ErrInvalidConfiguration = errors.New("invalid workflow configuration")

	// ErrUnsupportedAction signals that an action kind was routed to a voter
	// that does not decide it. This is a programming error in the caller.
	ErrUnsupportedAction = errors.New("unsupported action")
)
