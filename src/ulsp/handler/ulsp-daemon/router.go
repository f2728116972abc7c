package ulspdaemon

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally/v4"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"

	"github.com/uber/ulsp-core/src/ulsp/dispatch"
	"github.com/uber/ulsp-core/src/ulsp/entity"
	"github.com/uber/ulsp-core/src/ulsp/lifecycle"
	"github.com/uber/ulsp-core/src/ulsp/mapper"
	"github.com/uber/ulsp-core/src/ulsp/scheduler"
	"github.com/uber/ulsp-core/src/ulsp/scheduler/cancel"
	"github.com/uber/ulsp-core/src/ulsp/scheduler/classify"
)

// methodCancelRequest is the LSP "$/cancelRequest" notification. It predates
// the textDocument-scoped methods go.lsp.dev/protocol enumerates, so the
// library exposes no constant for it.
const methodCancelRequest = "$/cancelRequest"

// cancelRequestParams mirrors the wire shape of a "$/cancelRequest"
// notification. ID carries whatever JSON-RPC id (number or string) the
// client used for the request it wants cancelled.
type cancelRequestParams struct {
	ID interface{} `json:"id"`
}

// jsonRPCRouter is the per-connection jsonrpcfx.Router. Unlike the teacher's
// version, which held a single Controller and switched on method name to
// reach one of ~30 hand-written per-method functions, this one only special
// cases the handful of connection-wide lifecycle methods directly against
// the Lifecycle Orchestrator; everything else is classified and handed to
// the Dependency Queue, which runs it through the Request Dispatcher once
// its dependsOn predecessors clear.
type jsonRPCRouter struct {
	uuid         uuid.UUID
	stats        tally.Scope
	logger       *zap.Logger
	orchestrator lifecycle.Orchestrator
	queue        scheduler.Queue
	dispatcher   dispatch.Dispatcher
	cancelReg    cancel.Registry
}

// documentEnvelope extracts whatever document identity a request's params
// carry, independent of the concrete param type. Every LSP request/
// notification that targets a document names it "textDocument" at the top
// level (or nests it inside an embedded TextDocumentPositionParams, which
// flattens to the same JSON shape), so a single loosely-typed decode covers
// every method without one case per param struct.
type documentEnvelope struct {
	TextDocument struct {
		URI protocol.DocumentURI `json:"uri"`
	} `json:"textDocument"`
}

// HandleReq routes a single request: connection-wide lifecycle methods go
// straight to the Lifecycle Orchestrator, everything else is classified and
// enqueued on the Dependency Queue.
func (r *jsonRPCRouter) HandleReq(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	ctx = context.WithValue(ctx, entity.SessionContextKey, r.uuid)
	method := req.Method()

	switch method {
	case protocol.MethodInitialize:
		params, err := mapper.RequestToInitializeParams(req)
		if err != nil {
			return reply(ctx, nil, err)
		}
		result, err := r.orchestrator.Initialize(ctx, params)
		return reply(ctx, result, err)

	case protocol.MethodInitialized:
		params, err := mapper.RequestToInitializedParams(req)
		if err != nil {
			return reply(ctx, nil, err)
		}
		return reply(ctx, nil, r.orchestrator.Initialized(ctx, params))

	case protocol.MethodShutdown:
		return reply(ctx, nil, r.orchestrator.Shutdown(ctx))

	case protocol.MethodExit:
		return reply(ctx, nil, r.orchestrator.Exit(ctx))

	case classify.MethodRequestFullShutdown:
		return reply(ctx, nil, r.orchestrator.RequestFullShutdown(ctx))

	case protocol.MethodWorkspaceDidChangeWorkspaceFolders:
		var params protocol.DidChangeWorkspaceFoldersParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, err)
		}
		return reply(ctx, nil, r.orchestrator.OnFolderChange(ctx, params.Event.Added, params.Event.Removed))

	case protocol.MethodWorkspaceDidChangeConfiguration,
		protocol.MethodClientRegisterCapability,
		protocol.MethodClientUnregisterCapability:
		// Acknowledged: no server-side state hangs off these beyond what
		// Initialize already negotiated.
		return reply(ctx, nil, nil)

	case methodCancelRequest:
		return reply(ctx, nil, r.cancelRequest(req))
	}

	return r.enqueue(ctx, reply, method, req)
}

func (r *jsonRPCRouter) enqueue(ctx context.Context, reply jsonrpc2.Replier, method string, req jsonrpc2.Request) error {
	var envelope documentEnvelope
	// A method with no "textDocument" field simply leaves envelope zeroed;
	// json.Unmarshal only errors on a type mismatch, never a missing key.
	if err := json.Unmarshal(req.Params(), &envelope); err != nil {
		return reply(ctx, nil, err)
	}

	var did entity.DocumentId
	hasDocument := envelope.TextDocument.URI != ""
	if hasDocument {
		did = entity.NewDocumentId(uri.URI(envelope.TextDocument.URI))
	}

	class := classify.Classify(method, classify.Payload{Document: did, HasDocument: hasDocument}, r.logErrorf)

	params, language, err := r.decodeParams(method, req)
	if err != nil {
		return reply(ctx, nil, err)
	}

	task := entity.PendingTask{
		Class: class,
		Body: func(taskCtx context.Context) (interface{}, error) {
			return r.dispatcher.Handle(taskCtx, dispatch.Request{
				Method:   method,
				Class:    class,
				Language: language,
				Params:   params,
			})
		},
	}

	taskID, resultCh := r.queue.Enqueue(ctx, task)

	// Only requests (never notifications) carry a client-chosen id, and only
	// those are subject to explicit "$/cancelRequest" or implicit
	// cancel-on-edit (spec.md §4.3); Register/Deregister is a no-op bracket
	// otherwise.
	var handle cancel.CancelHandle
	registered := false
	if call, ok := req.(jsonrpc2.Call); ok && r.cancelReg != nil {
		if requestID, err := requestIDFromValue(call.ID()); err == nil {
			handle = r.cancelReg.Register(requestID, did, method, func() { r.queue.Cancel(taskID) })
			registered = true
		}
	}

	select {
	case result := <-resultCh:
		if registered {
			r.cancelReg.Deregister(handle)
		}
		return reply(ctx, result.Value, result.Err)
	case <-ctx.Done():
		r.queue.Cancel(taskID)
		if registered {
			r.cancelReg.Deregister(handle)
		}
		return reply(ctx, nil, ctx.Err())
	}
}

// cancelRequest handles an explicit "$/cancelRequest" notification: the
// registered CancelFunc for req's id (if still live) cancels its queued or
// in-flight task (spec.md §4.3, §8 Scenario F).
func (r *jsonRPCRouter) cancelRequest(req jsonrpc2.Request) error {
	if r.cancelReg == nil {
		return nil
	}
	var params cancelRequestParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return err
	}
	requestID, err := requestIDFromValue(params.ID)
	if err != nil {
		return err
	}
	r.cancelReg.Cancel(requestID)
	return nil
}

// requestIDFromValue normalizes a JSON-RPC id — whether it arrived already
// decoded (a "$/cancelRequest" params.ID) or needs round-tripping through
// JSON first (a jsonrpc2.Call's ID(), whose concrete representation is
// otherwise opaque) — into an entity.RequestId. Round-tripping through JSON
// keeps both call sites consistent regardless of which numeric or string
// representation the underlying value currently holds.
func requestIDFromValue(v interface{}) (entity.RequestId, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return entity.RequestId{}, fmt.Errorf("marshalling request id: %w", err)
	}
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return entity.RequestId{}, fmt.Errorf("decoding request id: %w", err)
	}

	switch id := decoded.(type) {
	case string:
		return entity.NewStringRequestId(id), nil
	case float64:
		return entity.NewNumberRequestId(int64(id)), nil
	default:
		return entity.RequestId{}, fmt.Errorf("unsupported request id type %T", decoded)
	}
}

// decodeParams produces the value forwarded to the Request Dispatcher. The
// handful of text-synchronization notifications need a typed struct since
// the dispatcher calls a typed Service method for them; every other method
// forwards the raw wire bytes unchanged, since langservice/bsp's Dispatch
// only ever re-marshals params onto a downstream jsonrpc2 connection.
func (r *jsonRPCRouter) decodeParams(method string, req jsonrpc2.Request) (interface{}, protocol.LanguageIdentifier, error) {
	switch method {
	case protocol.MethodTextDocumentDidOpen:
		p, err := mapper.RequestToDidOpenTextDocumentParams(req)
		if err != nil {
			return nil, "", err
		}
		return p, p.TextDocument.LanguageID, nil
	case protocol.MethodTextDocumentDidChange:
		p, err := mapper.RequestToDidChangeTextDocumentParams(req)
		return p, "", err
	case protocol.MethodTextDocumentDidClose:
		p, err := mapper.RequestToDidCloseTextDocumentParams(req)
		return p, "", err
	case protocol.MethodTextDocumentDidSave:
		p, err := mapper.RequestToDidSaveTextDocumentParams(req)
		return p, "", err
	case protocol.MethodTextDocumentWillSave:
		p, err := mapper.RequestToWillSaveTextDocumentParams(req)
		return p, "", err
	default:
		return req.Params(), "", nil
	}
}

func (r *jsonRPCRouter) logErrorf(format string, args ...interface{}) {
	r.logger.Sugar().Errorf(format, args...)
}

// UUID reports the connection this router was created for.
func (r *jsonRPCRouter) UUID() uuid.UUID {
	return r.uuid
}
