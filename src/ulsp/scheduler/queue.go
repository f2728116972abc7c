// Package scheduler implements the Dependency Queue (spec §4.2): the
// ordering and bounded-concurrency core that every inbound message passes
// through after classification.
package scheduler

import (
	"context"
	"sync"

	tally "github.com/uber-go/tally/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/uber/ulsp-core/src/ulsp/entity"
	schederrors "github.com/uber/ulsp-core/src/ulsp/scheduler/errors"
)

// Queue is the Dependency Queue contract: an ordering structure that release
// runnable tasks for bounded-concurrency execution while preserving
// dependsOn order between still-pending tasks.
type Queue interface {
	// Enqueue admits a task, computes its predecessors against the current
	// pending list, and returns the task's assigned id together with a
	// channel that receives exactly one TaskResult once the task (or its
	// cancellation) completes.
	Enqueue(ctx context.Context, task entity.PendingTask) (entity.TaskId, <-chan entity.TaskResult)
	// Cancel marks a task cancelled. A not-yet-started task never runs its
	// body; a running task has its context cancelled so its body can observe
	// ctx.Done and return promptly. Returns false if the task is unknown or
	// already completed.
	Cancel(id entity.TaskId) bool
	// Len reports the number of tasks currently pending (enqueued but not
	// yet completed).
	Len() int
}

type queue struct {
	logger *zap.Logger
	stats  tally.Scope
	sem    *semaphore.Weighted

	baseCtx context.Context

	mu      sync.Mutex
	nextID  entity.TaskId
	byID    map[entity.TaskId]*node
	pending []*node
	ready   []*node
	cancels map[entity.TaskId]context.CancelFunc

	wake chan struct{}
}

// NewQueue constructs a Dependency Queue. baseCtx bounds the lifetime of the
// dispatcher goroutine; it should be the process lifetime context, not a
// per-request one. maxConcurrent gates how many task bodies may run at once.
func NewQueue(baseCtx context.Context, logger *zap.Logger, stats tally.Scope, maxConcurrent int64) Queue {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	q := &queue{
		logger:  logger,
		stats:   stats,
		sem:     semaphore.NewWeighted(maxConcurrent),
		baseCtx: baseCtx,
		byID:    make(map[entity.TaskId]*node),
		cancels: make(map[entity.TaskId]context.CancelFunc),
		wake:    make(chan struct{}, 1),
	}
	go q.dispatchLoop()
	return q
}

func (q *queue) Enqueue(ctx context.Context, task entity.PendingTask) (entity.TaskId, <-chan entity.TaskResult) {
	q.mu.Lock()

	q.nextID++
	task.ID = q.nextID
	n := newNode(task)

	for _, p := range q.pending {
		if entity.DependsOn(p.task.Class, n.task.Class) {
			n.predecessors = append(n.predecessors, p)
			p.dependents = append(p.dependents, n)
		}
	}
	n.remaining.Store(int64(len(n.predecessors)))

	q.byID[n.task.ID] = n
	q.pending = append(q.pending, n)

	runnableNow := n.runnable()
	if runnableNow {
		q.ready = append(q.ready, n)
	}
	pendingLen := len(q.pending)
	q.mu.Unlock()

	if q.stats != nil {
		q.stats.Gauge("scheduler.pending_tasks").Update(float64(pendingLen))
	}
	if runnableNow {
		q.signal()
	}
	return n.task.ID, n.done
}

func (q *queue) Cancel(id entity.TaskId) bool {
	q.mu.Lock()
	n, ok := q.byID[id]
	if !ok {
		q.mu.Unlock()
		return false
	}
	n.cancelled.Store(true)
	cancel, running := q.cancels[id]
	q.mu.Unlock()

	if running {
		cancel()
	}
	return true
}

func (q *queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// dispatchLoop pops ready nodes in FIFO order and acquires a semaphore slot
// before spawning each one, so the order tasks *start* running matches the
// order they became runnable (spec.md §4.2 "Progress": starvation-avoidance).
func (q *queue) dispatchLoop() {
	for {
		n, ok := q.popReady()
		if !ok {
			return
		}
		if err := q.sem.Acquire(q.baseCtx, 1); err != nil {
			// baseCtx was cancelled; finish every remaining node with a
			// cancellation result so callers waiting on done channels never
			// block forever.
			q.finish(n, entity.TaskResult{Err: &schederrors.CancelledError{RequestID: entity.RequestId{}}})
			continue
		}
		go q.run(n)
	}
}

func (q *queue) popReady() (*node, bool) {
	for {
		q.mu.Lock()
		if len(q.ready) > 0 {
			n := q.ready[0]
			q.ready = q.ready[1:]
			q.mu.Unlock()
			return n, true
		}
		q.mu.Unlock()

		select {
		case <-q.wake:
		case <-q.baseCtx.Done():
			return nil, false
		}
	}
}

func (q *queue) run(n *node) {
	defer q.sem.Release(1)

	if n.cancelled.Load() {
		q.finish(n, entity.TaskResult{Err: &schederrors.CancelledError{}})
		return
	}

	runCtx, cancel := context.WithCancel(q.baseCtx)
	q.mu.Lock()
	q.cancels[n.task.ID] = cancel
	q.mu.Unlock()

	result := q.invoke(runCtx, n)

	q.mu.Lock()
	delete(q.cancels, n.task.ID)
	q.mu.Unlock()
	cancel()

	q.finish(n, result)
}

// invoke runs a task body, converting a panic into an error result rather
// than letting it crash the dispatcher goroutine. A failed task still
// releases its dependents (spec.md's failure model: a task's outcome never
// blocks dependents from becoming runnable).
func (q *queue) invoke(ctx context.Context, n *node) (result entity.TaskResult) {
	defer func() {
		if r := recover(); r != nil {
			if q.logger != nil {
				q.logger.Error("scheduler: task panicked", zap.Any("panic", r), zap.Any("class", n.task.Class))
			}
			result = entity.TaskResult{Err: &schederrors.InternalError{Reason: "task panicked"}}
		}
	}()

	if n.cancelled.Load() {
		return entity.TaskResult{Err: &schederrors.CancelledError{}}
	}
	if n.task.Body == nil {
		return entity.TaskResult{}
	}
	value, err := n.task.Body(ctx)
	return entity.TaskResult{Value: value, Err: err}
}

func (q *queue) finish(n *node, result entity.TaskResult) {
	q.mu.Lock()
	freed := n.release()
	delete(q.byID, n.task.ID)
	q.removePendingLocked(n)
	for _, f := range freed {
		q.ready = append(q.ready, f)
	}
	pendingLen := len(q.pending)
	q.mu.Unlock()

	if q.stats != nil {
		q.stats.Gauge("scheduler.pending_tasks").Update(float64(pendingLen))
	}
	if len(freed) > 0 {
		q.signal()
	}

	select {
	case n.done <- result:
	default:
	}
}

// removePendingLocked removes n from q.pending. Callers must hold q.mu.
func (q *queue) removePendingLocked(n *node) {
	for i, p := range q.pending {
		if p == n {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
}
