package gate

import "fmt"

// Status is the process-wide phase of the dialing procedure.
type Status int

const (
	Idle Status = iota
	Dialing
	Engaged
	Active
	Shutdown
)

var statusNames = [...]string{
	Idle:     "idle",
	Dialing:  "dialing",
	Engaged:  "engaged",
	Active:   "active",
	Shutdown: "shutdown",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

// ParseStatus converts a status name back into a Status.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return Idle, fmt.Errorf("unknown gate status %q", name)
}

// transitions lists the forward edges of the state machine. Reset to Idle is
// always allowed and is not listed. Engaged is entered once per attempt;
// setting it again on later chevrons is a no-op in StatusChannel.Set.
var transitions = map[Status][]Status{
	Idle:     {Dialing},
	Dialing:  {Engaged, Shutdown},
	Engaged:  {Active, Shutdown},
	Active:   {Shutdown},
	Shutdown: {},
}

// CanTransition reports whether from→to is a legal edge.
func CanTransition(from, to Status) bool {
	if to == Idle {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
