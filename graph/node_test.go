package graph

import (
	"context"
	"testing"
)

func TestNodeFunc_ImplementsNode(t *testing.T) {
	var n Node[counterState] = NodeFunc[counterState](func(_ context.Context, s counterState) NodeResult[counterState] {
		return NodeResult[counterState]{Delta: counterState{Count: 1}, Route: Goto("next")}
	})

	result := n.Run(context.Background(), counterState{})
	if result.Delta.Count != 1 {
		t.Errorf("Delta.Count = %d, want 1", result.Delta.Count)
	}
	if result.Route.To != "next" {
		t.Errorf("Route.To = %q, want next", result.Route.To)
	}
}

func TestStop_IsTerminal(t *testing.T) {
	next := Stop()
	if !next.Terminal {
		t.Error("Stop() should set Terminal")
	}
	if next.To != "" || next.Many != nil {
		t.Error("Stop() should not also set To or Many")
	}
}

func TestGoto_SetsTo(t *testing.T) {
	next := Goto("retrieve")
	if next.To != "retrieve" {
		t.Errorf("To = %q, want retrieve", next.To)
	}
	if next.Terminal {
		t.Error("Goto() should not be Terminal")
	}
}
