package lifecycle

// State is a snapshot of a Machine's flags. It is returned by value; callers
// cannot mutate the Machine through it.
type State struct {
	// Built is true after a successful Build (or a refresh replaying one).
	Built bool `json:"built"`

	// Loaded is true after a successful Load (or a refresh replaying one).
	Loaded bool `json:"loaded"`

	// Finalized is true after a successful Finalize.
	Finalized bool `json:"finalized"`

	// Failed is true when the most recent transition attempt failed.
	Failed bool `json:"failed"`

	// Ready is true when exactly one of Built/Loaded/Finalized is true and
	// Failed is false.
	Ready bool `json:"ready"`

	// Stale is false immediately after any successful transition; a true
	// value signals that a Refresh is warranted.
	Stale bool `json:"stale"`
}

// transitionPath records which transition a Machine has attempted, so
// Refresh knows what to replay and second transitions can be rejected.
type transitionPath int

const (
	pathNone transitionPath = iota
	pathBuild
	pathLoad
	pathFinalize
)

func (p transitionPath) String() string {
	switch p {
	case pathBuild:
		return "build"
	case pathLoad:
		return "load"
	case pathFinalize:
		return "finalize"
	default:
		return "none"
	}
}
