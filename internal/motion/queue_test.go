package motion

import (
	"testing"

	"pantilt-sentry/internal/protocol"
)

func TestQueueFIFO(t *testing.T) {
	var q Queue
	q.Push(protocol.Command{ID: "a"})
	q.Push(protocol.Command{ID: "b"})
	q.Push(protocol.Command{ID: "c"})

	for _, want := range []string{"a", "b", "c"} {
		cmd, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop: queue empty, want %q", want)
		}
		if cmd.ID != want {
			t.Errorf("Pop = %q, want %q", cmd.ID, want)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop on empty queue reported ok")
	}
}

func TestQueueRemove(t *testing.T) {
	var q Queue
	q.Push(protocol.Command{ID: "a"})
	q.Push(protocol.Command{ID: "b"})
	q.Push(protocol.Command{ID: "c"})

	if !q.Remove("b") {
		t.Fatal("Remove(b) = false")
	}
	if q.Remove("b") {
		t.Error("second Remove(b) = true")
	}
	if q.Remove("missing") {
		t.Error("Remove(missing) = true")
	}
	if q.Len() != 2 {
		t.Fatalf("Len = %d, want 2", q.Len())
	}

	cmd, _ := q.Pop()
	if cmd.ID != "a" {
		t.Errorf("Pop = %q, want a", cmd.ID)
	}
	cmd, _ = q.Pop()
	if cmd.ID != "c" {
		t.Errorf("Pop = %q, want c", cmd.ID)
	}
}

func TestQueueRemoveFirstMatch(t *testing.T) {
	var q Queue
	q.Push(protocol.Command{ID: "dup", Pan: 1})
	q.Push(protocol.Command{ID: "dup", Pan: 2})

	if !q.Remove("dup") {
		t.Fatal("Remove(dup) = false")
	}
	cmd, ok := q.Pop()
	if !ok || cmd.Pan != 2 {
		t.Errorf("Pop = %+v, want the second dup entry", cmd)
	}
}
