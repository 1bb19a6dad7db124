package client

import "testing"

func TestCallTrace_Transitions(t *testing.T) {
	trace := newCallTrace()
	if !trace.transition(StateRetrying) || !trace.transition(StateSuccess) {
		t.Fatalf("expected pending > retrying > success to be legal")
	}
	if trace.transition(StateFailed) || trace.transition(StateRetrying) {
		t.Fatalf("expected no transitions after a terminal state")
	}
	if got := trace.String(); got != "pending>retrying>success" {
		t.Fatalf("unexpected trace %q", got)
	}

	trace = newCallTrace()
	if !trace.transition(StateFailed) || !trace.Current().Terminal() {
		t.Fatalf("expected direct failure to be terminal")
	}
	if trace.transition(StateSuccess) {
		t.Fatalf("failed must not become success")
	}
}

func TestCallTrace_RetryingCannotRepeat(t *testing.T) {
	trace := newCallTrace()
	trace.transition(StateRetrying)
	if trace.transition(StateRetrying) {
		t.Fatalf("expected a single retry")
	}
}
