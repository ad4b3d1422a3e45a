package preview

// Phase is a channel's position in the refresh state machine.
//
//	Idle ──list-changed──▶ Debouncing ──timer──▶ Refreshing ──done──▶ Idle
//	             ▲   └─list-changed (timer restarted)─┘
//	Idle/Debouncing ──click──▶ Resolving ──done──▶ previous phase
//
// Refreshing and Resolving are busy: list-changed and click events for the
// channel are dropped while either is active.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDebouncing
	PhaseRefreshing
	PhaseResolving
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDebouncing:
		return "debouncing"
	case PhaseRefreshing:
		return "refreshing"
	case PhaseResolving:
		return "resolving"
	default:
		return "unknown"
	}
}

// Busy reports whether a refresh or click resolution is in progress.
func (p Phase) Busy() bool {
	return p == PhaseRefreshing || p == PhaseResolving
}

var phaseTransitions = map[Phase][]Phase{
	PhaseIdle:       {PhaseDebouncing, PhaseResolving},
	PhaseDebouncing: {PhaseDebouncing, PhaseRefreshing, PhaseResolving},
	PhaseRefreshing: {PhaseIdle},
	PhaseResolving:  {PhaseIdle, PhaseDebouncing},
}

// CanTransition reports whether the state machine permits p → to.
func (p Phase) CanTransition(to Phase) bool {
	for _, allowed := range phaseTransitions[p] {
		if allowed == to {
			return true
		}
	}
	return false
}
