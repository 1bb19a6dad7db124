package client

import "strings"

// CallState is the lifecycle of a single Request call.
type CallState string

const (
	StatePending  CallState = "pending"
	StateRetrying CallState = "retrying"
	StateSuccess  CallState = "success"
	StateFailed   CallState = "failed"
)

func (s CallState) Terminal() bool {
	return s == StateSuccess || s == StateFailed
}

var allowedTransitions = map[CallState][]CallState{
	StatePending:  {StateSuccess, StateFailed, StateRetrying},
	StateRetrying: {StateSuccess, StateFailed},
}

// callTrace records the states a call moved through.
type callTrace struct {
	states []CallState
}

func newCallTrace() *callTrace {
	return &callTrace{states: []CallState{StatePending}}
}

func (t *callTrace) Current() CallState {
	return t.states[len(t.states)-1]
}

// transition moves to next when the move is legal and reports whether it
// happened. Terminal states never move again.
func (t *callTrace) transition(next CallState) bool {
	for _, allowed := range allowedTransitions[t.Current()] {
		if allowed == next {
			t.states = append(t.states, next)
			return true
		}
	}
	return false
}

func (t *callTrace) String() string {
	parts := make([]string, len(t.states))
	for i, state := range t.states {
		parts[i] = string(state)
	}
	return strings.Join(parts, ">")
}
