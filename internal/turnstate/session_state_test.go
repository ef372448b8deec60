package turnstate

import (
	"reflect"
	"testing"
)

func TestSessionStateTracksCodeRanges(t *testing.T) {
	s := NewSessionState()

	unserved, overlap := s.ComputeUnservedCodeRanges("file.rs", []Range{{1, 5}})
	if !reflect.DeepEqual(unserved, []Range{{1, 5}}) {
		t.Fatalf("unserved = %v, want [(1,5)]", unserved)
	}
	if overlap {
		t.Fatal("expected no overlap on first read")
	}

	s.RecordServedCodeRanges("file.rs", []Range{{1, 3}})

	unserved, overlap = s.ComputeUnservedCodeRanges("file.rs", []Range{{1, 5}})
	if !reflect.DeepEqual(unserved, []Range{{4, 5}}) {
		t.Fatalf("unserved = %v, want [(4,5)]", unserved)
	}
	if !overlap {
		t.Fatal("expected overlap on second read")
	}
}

func TestSessionStateApprovedCommands(t *testing.T) {
	s := NewSessionState()
	cmd := []string{"git", "push"}
	if s.IsApprovedCommand(cmd) {
		t.Fatal("expected not approved before adding")
	}
	s.AddApprovedCommand(cmd)
	if !s.IsApprovedCommand(cmd) {
		t.Fatal("expected approved after adding")
	}
}

func TestActiveTurnPreservesInsertionOrder(t *testing.T) {
	a := NewActiveTurn()
	a.AddTask("c", RunningTask{})
	a.AddTask("a", RunningTask{})
	a.AddTask("b", RunningTask{})

	tasks := a.DrainTasks()
	if len(tasks) != 3 {
		t.Fatalf("len(tasks) = %d, want 3", len(tasks))
	}

	// Re-add after drain, then remove the middle one; order of survivors
	// must still reflect insertion order.
	a.AddTask("x", RunningTask{})
	a.AddTask("y", RunningTask{})
	a.AddTask("z", RunningTask{})
	if empty := a.RemoveTask("y"); empty {
		t.Fatal("removing one of three should not report empty")
	}
	remaining := a.DrainTasks()
	if len(remaining) != 2 {
		t.Fatalf("len(remaining) = %d, want 2", len(remaining))
	}
}

func TestActiveTurnRemoveLastReportsEmpty(t *testing.T) {
	a := NewActiveTurn()
	a.AddTask("only", RunningTask{})
	if empty := a.RemoveTask("only"); !empty {
		t.Fatal("expected empty after removing the only task")
	}
}
