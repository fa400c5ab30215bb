package motion

import "pantilt-sentry/internal/protocol"

// Queue is a FIFO of pending absolute move commands. It is not safe for
// concurrent use on its own: the Coordinator guards every access with its
// lock, so queue and operation state share a single critical section.
type Queue struct {
	items []protocol.Command
}

// Push appends a command, preserving arrival order.
func (q *Queue) Push(cmd protocol.Command) {
	q.items = append(q.items, cmd)
}

// Pop removes and returns the earliest command. The second return value is
// false when the queue is empty.
func (q *Queue) Pop() (protocol.Command, bool) {
	if len(q.items) == 0 {
		return protocol.Command{}, false
	}
	cmd := q.items[0]
	q.items = q.items[1:]
	return cmd, true
}

// Remove deletes the first queued command with the given id and reports
// whether one was found. Used when CANCEL targets a not-yet-active command.
func (q *Queue) Remove(id string) bool {
	for i, cmd := range q.items {
		if cmd.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of pending commands.
func (q *Queue) Len() int {
	return len(q.items)
}
