package session

// State is the position of a session in its lifecycle
type State int

const (
	// Unknown is the initial state before any check has run
	Unknown State = iota
	// Checking means an identity fetch is in flight
	Checking
	// Authenticated means the identity was fetched with the stored token
	Authenticated
	// Anonymous means there is no usable token
	Anonymous
)

func (s State) String() string {
	switch s {
	case Checking:
		return "checking"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}
