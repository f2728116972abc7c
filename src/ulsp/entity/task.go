package entity

import (
	"context"
	"fmt"
)

// TaskId uniquely identifies a PendingTask within the Dependency Queue's
// lifetime. Generated internally by the queue on enqueue; distinct from
// RequestId, which is chosen by the client and only exists for requests.
type TaskId uint64

// RequestId is either an integer or a string chosen by the client. Unique
// while the request is outstanding. Notifications have no RequestId.
type RequestId struct {
	// Number is used when IsString is false.
	Number int64
	// Str is used when IsString is true.
	Str string
	// IsString distinguishes a string id ("" is a valid string id) from the
	// zero-value numeric id.
	IsString bool
}

// NewNumberRequestId constructs a numeric RequestId.
func NewNumberRequestId(n int64) RequestId {
	return RequestId{Number: n}
}

// NewStringRequestId constructs a string RequestId.
func NewStringRequestId(s string) RequestId {
	return RequestId{Str: s, IsString: true}
}

// String implements fmt.Stringer.
func (r RequestId) String() string {
	if r.IsString {
		return r.Str
	}
	return fmt.Sprintf("%d", r.Number)
}

// Priority is advisory: it never reorders dependencies, only which runnable
// task is preferred when more than one is ready to start.
type Priority int

const (
	// PriorityBackground tasks may be preempted by PriorityNormal tasks
	// among the runnable set.
	PriorityBackground Priority = iota
	// PriorityNormal is the default priority for client-issued messages.
	PriorityNormal
)

// TaskBody is the work a PendingTask performs once runnable. It must observe
// ctx cancellation at its suspension points and return promptly once
// cancelled; the queue does not forcibly interrupt a running body.
type TaskBody func(ctx context.Context) (interface{}, error)

// PendingTask is a unit of scheduled work as described in spec §3.
type PendingTask struct {
	ID       TaskId
	Class    DependencyClass
	Priority Priority
	Body     TaskBody
}

// TaskResult is delivered on a PendingTask's completion channel.
type TaskResult struct {
	Value interface{}
	Err   error
}
