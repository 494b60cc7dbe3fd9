package worker

import (
	"context"
	"sync"

	model "github.com/okian/compliance-radar/internal/domain/model"
)

// Task is one source fetch. Index is the source's configuration position.
type Task struct {
	Index  int
	Source model.Source
}

// taskQueue is a bounded in-memory queue feeding the pool's workers.
type taskQueue struct {
	tasks  chan Task
	mu     sync.RWMutex
	closed bool
}

func newTaskQueue(capacity int) *taskQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &taskQueue{tasks: make(chan Task, capacity)}
}

// Enqueue adds t without blocking. It returns false if the queue is full,
// closed or ctx is done.
func (q *taskQueue) Enqueue(ctx context.Context, t Task) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	default:
	}
	select {
	case q.tasks <- t:
		return true
	default:
		return false
	}
}

// Dequeue returns the receive side of the queue. It is closed by Close once
// drained.
func (q *taskQueue) Dequeue() <-chan Task {
	return q.tasks
}

// Len returns the number of tasks waiting.
func (q *taskQueue) Len() int {
	return len(q.tasks)
}

// Close stops accepting tasks. Queued tasks are still delivered.
func (q *taskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	close(q.tasks)
	q.closed = true
}
