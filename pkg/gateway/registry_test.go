package gateway

import (
	"context"
	"testing"
)

func TestRegistry_DuplicateTaskRejected(t *testing.T) {
	r := NewRegistry()
	if err := r.AddTask("m1", "c1", func() {}); err != nil {
		t.Fatalf("first AddTask failed: %v", err)
	}

	cancelled := false
	err := r.AddTask("m1", "c2", func() { cancelled = true })
	if err != ErrDuplicateTask {
		t.Errorf("duplicate AddTask = %v, want ErrDuplicateTask", err)
	}
	if cancelled {
		t.Error("rejected task must not disturb the existing one")
	}
	if !r.TaskActive("m1") {
		t.Error("original task should still be active")
	}
}

func TestRegistry_CancelUnknownIsNoOp(t *testing.T) {
	r := NewRegistry()
	r.Cancel("never-seen") // must not panic
	r.RemoveTask("never-seen")
}

func TestRegistry_RemoveThenReuseID(t *testing.T) {
	r := NewRegistry()
	r.AddTask("m1", "c1", func() {})
	r.RemoveTask("m1")
	if r.TaskActive("m1") {
		t.Error("task should be inactive after removal")
	}
	if err := r.AddTask("m1", "c1", func() {}); err != nil {
		t.Errorf("id should be reusable after removal, got %v", err)
	}
}

func TestRegistry_UnregisterCancelsOwnTasks(t *testing.T) {
	r := NewRegistry()
	_, cancelA := context.WithCancel(context.Background())
	ctxB, cancelB := context.WithCancel(context.Background())
	defer cancelB()

	mineCancelled := false
	r.AddTask("mine", "c1", func() { mineCancelled = true; cancelA() })
	r.AddTask("theirs", "c2", func() { cancelB() })

	r.Unregister("c1")
	if !mineCancelled {
		t.Error("unregister must cancel tasks owned by the connection")
	}
	if r.TaskActive("mine") {
		t.Error("cancelled task should be removed")
	}
	if !r.TaskActive("theirs") {
		t.Error("other connections' tasks must be untouched")
	}
	if ctxB.Err() != nil {
		t.Error("other connections' contexts must not be cancelled")
	}
}

func TestRegistry_DispatchToMissingConn(t *testing.T) {
	r := NewRegistry()
	// Best-effort delivery: a missing connection is silently skipped.
	r.Dispatch("gone", &Event{Type: EventPong})
}

func TestRegistry_DispatchAfterUnregister(t *testing.T) {
	r := NewRegistry()
	pipe := NewPipe()
	r.Register("c1", pipe)
	r.Unregister("c1")
	r.Dispatch("c1", &Event{Type: EventPong}) // silent no-op
}
