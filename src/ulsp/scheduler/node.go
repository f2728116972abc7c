package scheduler

import (
	"sync/atomic"

	"github.com/uber/ulsp-core/src/ulsp/entity"
)

// node wraps a PendingTask with its dependency-graph edges, computed once at
// enqueue time against the pending list as it stood at that moment (spec
// §4.2: "a task depends on every earlier-enqueued, still-pending task L for
// which dependsOn(earlier, L) holds").
type node struct {
	task entity.PendingTask

	// predecessors are the still-pending tasks this node must wait on.
	predecessors []*node
	// dependents are nodes that recorded this node as a predecessor; used to
	// decrement their remaining count on completion.
	dependents []*node

	// remaining counts predecessors not yet completed. A node is runnable
	// once remaining reaches zero.
	remaining atomic.Int64

	done chan entity.TaskResult

	// cancelled is set by Cancel; a cancelled node still runs its
	// dependents-release bookkeeping but never invokes its body.
	cancelled atomic.Bool
}

func newNode(task entity.PendingTask) *node {
	n := &node{
		task: task,
		done: make(chan entity.TaskResult, 1),
	}
	return n
}

// runnable reports whether every predecessor has completed.
func (n *node) runnable() bool {
	return n.remaining.Load() == 0
}

// release decrements remaining on every dependent, returning those that
// became runnable as a result.
func (n *node) release() []*node {
	var freed []*node
	for _, d := range n.dependents {
		if d.remaining.Add(-1) == 0 {
			freed = append(freed, d)
		}
	}
	return freed
}
