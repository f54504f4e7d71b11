package requeststore

import (
	"fmt"
	"strings"
)

// State is where a request is in the relay pipeline.
type State int

const (
	stateUndefined State = iota
	StateReceived
	StateResolved
	StateDispatched
	StateSubmitted
	StateFailed
)

var stateNames = map[State]string{
	stateUndefined:  "Undefined",
	StateReceived:   "Received",
	StateResolved:   "Resolved",
	StateDispatched: "Dispatched",
	StateSubmitted:  "Submitted",
	StateFailed:     "Failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// IsTerminal returns true if the relay is done with the request.
func (s State) IsTerminal() bool {
	return s == StateSubmitted || s == StateFailed
}

func ParseState(str string) (State, error) {
	for state, name := range stateNames {
		if state != stateUndefined && strings.EqualFold(name, str) {
			return state, nil
		}
	}
	return stateUndefined, fmt.Errorf("unknown request state %q", str)
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
