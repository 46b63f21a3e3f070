package core

import "fmt"

type State int

const (
	StateActive State = iota
	StateCheck        // Side to move is in check, game continues
	StateCheckmate
	StateStalemate
	StateResigned
	StateDrawn
)

var stateNames = map[State]string{
	StateActive:    "active",
	StateCheck:     "check",
	StateCheckmate: "checkmate",
	StateStalemate: "stalemate",
	StateResigned:  "resigned",
	StateDrawn:     "drawn",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// IsTerminal reports whether no further moves may be applied
func (s State) IsTerminal() bool {
	return s != StateActive && s != StateCheck
}

// ParseState is the inverse of State.String, used when loading persisted games
func ParseState(s string) (State, error) {
	for state, name := range stateNames {
		if name == s {
			return state, nil
		}
	}
	return StateActive, fmt.Errorf("unknown game state: %q", s)
}

// IsTerminalState reports whether a state name from a response is a finished game
func IsTerminalState(name string) bool {
	s, err := ParseState(name)
	return err == nil && s.IsTerminal()
}
