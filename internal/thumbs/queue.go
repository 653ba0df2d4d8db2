package thumbs

import "sync"

// TaskQueue runs submitted tasks with a fixed concurrency ceiling.
// Tasks beyond the ceiling wait in FIFO order; a finishing task hands
// its credit to the oldest waiter. There is no worker pool to start or
// stop, a task holds a goroutine only while it runs.
type TaskQueue struct {
	mu      sync.Mutex
	pending []func()
	active  int
	max     int
}

func NewTaskQueue(maxConcurrent int) *TaskQueue {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &TaskQueue{max: maxConcurrent}
}

// Submit enqueues fn. It runs immediately when a credit is free,
// otherwise when enough earlier tasks finish. Submit never blocks.
func (q *TaskQueue) Submit(fn func()) {
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.dispatchLocked()
	q.mu.Unlock()
}

func (q *TaskQueue) dispatchLocked() {
	for q.active < q.max && len(q.pending) > 0 {
		fn := q.pending[0]
		q.pending = q.pending[1:]
		q.active++
		go q.run(fn)
	}
}

func (q *TaskQueue) run(fn func()) {
	defer func() {
		q.mu.Lock()
		q.active--
		q.dispatchLocked()
		q.mu.Unlock()
	}()
	fn()
}

// Active reports how many tasks hold a credit right now.
func (q *TaskQueue) Active() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}

// Pending reports how many tasks wait for a credit.
func (q *TaskQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
