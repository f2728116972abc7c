// Package cancel implements the Cancellation Registry (spec §4.3): explicit
// client cancellation and implicit cancellation on document updates, with a
// serialized ordering guarantee between the two.
package cancel

import (
	"context"

	"go.uber.org/zap"

	"github.com/uber/ulsp-core/src/ulsp/entity"
)

// CancelFunc signals cancellation of one in-progress request, typically the
// context.CancelFunc returned alongside the request's task context.
type CancelFunc func()

// CancelHandle is returned from Register so a caller can later deregister a
// request that completed normally, without waiting for an explicit or
// implicit cancellation.
type CancelHandle struct {
	id entity.RequestId
}

// Registry is the Cancellation Registry contract.
type Registry interface {
	// Register records an in-progress request so it can later be cancelled
	// explicitly or implicitly. cancel is invoked at most once.
	Register(id entity.RequestId, did entity.DocumentId, method string, cancel CancelFunc) CancelHandle
	// Deregister removes a request's bookkeeping once it completes normally.
	// Safe to call even if the request was already cancelled.
	Deregister(handle CancelHandle)
	// Cancel signals cancellation for an explicit client cancelRequest.
	// Returns false if id is unknown (already completed or never existed).
	Cancel(id entity.RequestId) bool
	// CancelForDocument implements implicit cancellation: every live request
	// recorded against did is cancelled, except those whose method is in
	// except (spec.md's completion exemption is applied by the caller
	// passing protocol.MethodTextDocumentCompletion in except when implicit
	// cancellation is enabled).
	CancelForDocument(ctx context.Context, did entity.DocumentId, except ...string)
}

type entry struct {
	did    entity.DocumentId
	method string
	cancel CancelFunc
	done   bool
}

type command struct {
	kind commandKind
	// register fields
	id     entity.RequestId
	did    entity.DocumentId
	method string
	cancel CancelFunc
	// cancel fields
	okCh chan bool
	// cancelForDocument fields
	except []string
	doneCh chan struct{}
}

type commandKind int

const (
	cmdRegister commandKind = iota
	cmdDeregister
	cmdCancel
	cmdCancelForDocument
)

// registry serializes registration, explicit cancellation, and implicit
// document-scoped cancellation through a single command channel drained by
// one goroutine, so a notification arriving immediately after a request is
// registered can never race past it (spec.md §4.3's ordering constraint).
type registry struct {
	logger *zap.Logger

	implicitCancellation bool

	cmds chan command
}

// New constructs a Cancellation Registry. baseCtx bounds the worker
// goroutine's lifetime.
func New(baseCtx context.Context, logger *zap.Logger, implicitCancellation bool) Registry {
	r := &registry{
		logger:                logger,
		implicitCancellation:  implicitCancellation,
		cmds:                  make(chan command),
	}
	go r.loop(baseCtx)
	return r
}

func (r *registry) Register(id entity.RequestId, did entity.DocumentId, method string, cancel CancelFunc) CancelHandle {
	r.cmds <- command{kind: cmdRegister, id: id, did: did, method: method, cancel: cancel}
	return CancelHandle{id: id}
}

func (r *registry) Deregister(handle CancelHandle) {
	r.cmds <- command{kind: cmdDeregister, id: handle.id}
}

func (r *registry) Cancel(id entity.RequestId) bool {
	okCh := make(chan bool, 1)
	r.cmds <- command{kind: cmdCancel, id: id, okCh: okCh}
	return <-okCh
}

func (r *registry) CancelForDocument(ctx context.Context, did entity.DocumentId, except ...string) {
	doneCh := make(chan struct{})
	cmd := command{kind: cmdCancelForDocument, did: did, except: except, doneCh: doneCh}
	select {
	case r.cmds <- cmd:
	case <-ctx.Done():
		return
	}
	select {
	case <-doneCh:
	case <-ctx.Done():
	}
}

func (r *registry) loop(baseCtx context.Context) {
	live := make(map[entity.RequestId]*entry)

	for {
		select {
		case <-baseCtx.Done():
			return
		case cmd := <-r.cmds:
			switch cmd.kind {
			case cmdRegister:
				live[cmd.id] = &entry{did: cmd.did, method: cmd.method, cancel: cmd.cancel}
			case cmdDeregister:
				delete(live, cmd.id)
			case cmdCancel:
				e, ok := live[cmd.id]
				if !ok || e.done {
					cmd.okCh <- false
					continue
				}
				e.done = true
				delete(live, cmd.id)
				if e.cancel != nil {
					e.cancel()
				}
				cmd.okCh <- true
			case cmdCancelForDocument:
				if r.implicitCancellation {
					for id, e := range live {
						if e.did != cmd.did || e.done {
							continue
						}
						if containsMethod(cmd.except, e.method) {
							continue
						}
						e.done = true
						delete(live, id)
						if e.cancel != nil {
							e.cancel()
						}
					}
				}
				close(cmd.doneCh)
			}
		}
	}
}

func containsMethod(except []string, method string) bool {
	for _, m := range except {
		if m == method {
			return true
		}
	}
	return false
}
