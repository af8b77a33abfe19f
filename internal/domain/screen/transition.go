package screen

// TransitionKind names a navigation operation.
type TransitionKind int

const (
	TransitionEnter TransitionKind = iota
	TransitionPush
	TransitionPop
	TransitionPushOverride
	TransitionPopOverride
)

// String returns the string representation of the transition kind
func (k TransitionKind) String() string {
	switch k {
	case TransitionEnter:
		return "Enter"
	case TransitionPush:
		return "Push"
	case TransitionPop:
		return "Pop"
	case TransitionPushOverride:
		return "PushOverride"
	case TransitionPopOverride:
		return "PopOverride"
	default:
		return "Unknown"
	}
}

// ParseTransitionKind maps a name produced by String back to its kind.
// An empty name means Enter.
func ParseTransitionKind(name string) (TransitionKind, bool) {
	switch name {
	case "", "Enter", "enter":
		return TransitionEnter, true
	case "Push", "push":
		return TransitionPush, true
	case "Pop", "pop":
		return TransitionPop, true
	case "PushOverride", "push_override":
		return TransitionPushOverride, true
	case "PopOverride", "pop_override":
		return TransitionPopOverride, true
	default:
		return TransitionEnter, false
	}
}

// TransitionContext is metadata attached to a completion event.
// It never influences navigation.
type TransitionContext struct {
	Source string
	Reason string
}

// Result is the outcome of a navigation call.
type Result int

const (
	// Completed means the transition ran to the end.
	Completed Result = iota
	// RejectedBusy means another transition was in flight.
	RejectedBusy
	// RejectedGuard means a precondition did not hold (nothing to pop, same target, override active).
	RejectedGuard
	// Failed means a resource fault aborted the transition and state was rolled back.
	Failed
)

// String returns the string representation of the result
func (r Result) String() string {
	switch r {
	case Completed:
		return "Completed"
	case RejectedBusy:
		return "RejectedBusy"
	case RejectedGuard:
		return "RejectedGuard"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Completion describes a finished transition.
type Completion struct {
	Kind    TransitionKind
	From    *Screen
	To      *Screen
	Context TransitionContext
}
