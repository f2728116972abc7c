// Package dispatch implements the Request Dispatcher (spec.md §4.6): the
// per-task body that resolves a scheduled message to a workspace, ensures
// its language-service stack is running, and forwards the request through
// each bound service in precedence order until one replies.
package dispatch

import (
	"context"
	"sort"

	"go.lsp.dev/protocol"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/uber/ulsp-core/src/ulsp/entity"
	"github.com/uber/ulsp-core/src/ulsp/langservice"
	"github.com/uber/ulsp-core/src/ulsp/scheduler/cancel"
	schederrors "github.com/uber/ulsp-core/src/ulsp/scheduler/errors"
	"github.com/uber/ulsp-core/src/ulsp/workspace"
)

// Dispatcher handles one already-classified, already-scheduled message.
type Dispatcher interface {
	Handle(ctx context.Context, req Request) (interface{}, error)
}

// Request is everything the dispatcher needs beyond what the classifier
// already decided: the wire method, the class it was scheduled under, the
// declared language (when the request targets a document), and the decoded
// params to forward.
type Request struct {
	Method   string
	Class    entity.DependencyClass
	Language protocol.LanguageIdentifier
	Params   interface{}
}

type dispatcher struct {
	logger          *zap.Logger
	router          workspace.Router
	directory       langservice.Directory
	cancelReg       cancel.Registry
	pokePreparation bool
}

// New constructs a Dispatcher. pokePreparation mirrors spec.md §4.6 step 1's
// "poke preparation on interaction" configuration flag.
func New(logger *zap.Logger, router workspace.Router, directory langservice.Directory, cancelReg cancel.Registry, pokePreparation bool) Dispatcher {
	return &dispatcher{logger: logger, router: router, directory: directory, cancelReg: cancelReg, pokePreparation: pokePreparation}
}

func (d *dispatcher) Handle(ctx context.Context, req Request) (interface{}, error) {
	switch req.Class.Kind {
	case entity.WorkspaceRequest:
		return d.handleWorkspaceRequest(ctx, req)
	case entity.DocumentUpdate:
		return d.handleDocumentUpdate(ctx, req)
	case entity.DocumentRequest:
		return d.handleDocumentRequest(ctx, req)
	default:
		return d.handleFreestanding(ctx, req)
	}
}

func (d *dispatcher) handleDocumentRequest(ctx context.Context, req Request) (interface{}, error) {
	did := req.Class.Document

	if d.pokePreparation {
		d.pokeActiveDocument(ctx, did)
	}

	ws, err := d.router.Resolve(ctx, did)
	if err != nil {
		return nil, err
	}

	refs, err := d.directory.EnsureService(ctx, did, req.Language, ws)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, &schederrors.NoLanguageServiceForDocumentError{Document: did}
	}

	return d.tryEach(ctx, refs, req.Method, did, req.Params)
}

// handleDocumentUpdate applies a text-synchronization notification to every
// service bound to the document, calling each one's typed lifecycle method
// (entity.Service's OpenDocument/ChangeDocument/... slots) rather than the
// generic Dispatch: these six methods exist precisely so a service that
// doesn't speak raw wire params (docservice) can still track document state
// the same way a wire-forwarding one (bsp) does. willSaveWaitUntil is the
// one exception: despite classifying as DocumentUpdate for ordering, it is
// a request expecting edits back, so it goes through Dispatch like any
// other request-response method.
func (d *dispatcher) handleDocumentUpdate(ctx context.Context, req Request) (interface{}, error) {
	did := req.Class.Document

	ws, err := d.router.Resolve(ctx, did)
	if err != nil {
		return nil, err
	}

	refs, err := d.directory.EnsureService(ctx, did, req.Language, ws)
	if err != nil {
		return nil, err
	}

	// spec.md §4.3: change/close supersede any request still reading the
	// prior state of the document; completion is exempt so an in-progress
	// filtering session survives the user's keystrokes.
	if d.cancelReg != nil && implicitlyCancelsOnUpdate(req.Method) {
		d.cancelReg.CancelForDocument(ctx, did, protocol.MethodTextDocumentCompletion)
	}

	var result interface{}
	var merr error
	for _, ref := range refs {
		svc := d.directory.ServiceFor(ref)
		if svc == nil {
			continue
		}
		r, err := d.applyDocumentUpdate(ctx, svc, req.Method, did, req.Params)
		if err != nil {
			merr = multierr.Append(merr, err)
			continue
		}
		if r != nil {
			result = r
		}
	}
	return result, merr
}

// implicitlyCancelsOnUpdate reports whether method is one of the
// DocumentUpdate notifications spec.md §4.3 names as superseding in-flight
// reads of the document ("change, close, reopen"); didOpen establishes the
// document and has nothing prior to supersede.
func implicitlyCancelsOnUpdate(method string) bool {
	switch method {
	case protocol.MethodTextDocumentDidChange, protocol.MethodTextDocumentDidClose:
		return true
	default:
		return false
	}
}

func (d *dispatcher) applyDocumentUpdate(ctx context.Context, svc langservice.Service, method string, did entity.DocumentId, params interface{}) (interface{}, error) {
	switch method {
	case protocol.MethodTextDocumentDidOpen:
		p, ok := params.(*protocol.DidOpenTextDocumentParams)
		if !ok {
			return nil, &schederrors.InternalError{Reason: "didOpen params of unexpected type"}
		}
		// The Workspace Router tracks a document's current text independent
		// of any one service, so a later re-open pass can replay it onto a
		// newly resolved workspace (spec.md §4.4, §3 invariant 1) without
		// needing the client to resend it.
		if err := d.router.NotifyDocumentOpened(ctx, did, p.TextDocument.LanguageID, p.TextDocument.Text, p.TextDocument.Version); err != nil {
			d.logger.Sugar().Warnf("tracking opened document %q: %v", did, err)
		}
		return nil, svc.OpenDocument(ctx, did, p.TextDocument.LanguageID, p.TextDocument.Text, p.TextDocument.Version)
	case protocol.MethodTextDocumentDidChange:
		p, ok := params.(*protocol.DidChangeTextDocumentParams)
		if !ok {
			return nil, &schederrors.InternalError{Reason: "didChange params of unexpected type"}
		}
		if err := d.router.NotifyDocumentChanged(ctx, did, p.TextDocument.Version, p.ContentChanges); err != nil {
			d.logger.Sugar().Warnf("tracking changed document %q: %v", did, err)
		}
		return nil, svc.ChangeDocument(ctx, did, p.TextDocument.Version, p.ContentChanges)
	case protocol.MethodTextDocumentDidClose:
		if err := d.router.NotifyDocumentClosed(ctx, did); err != nil {
			d.logger.Sugar().Warnf("untracking closed document %q: %v", did, err)
		}
		return nil, svc.CloseDocument(ctx, did)
	case protocol.MethodTextDocumentDidSave:
		p, ok := params.(*protocol.DidSaveTextDocumentParams)
		if !ok {
			return nil, &schederrors.InternalError{Reason: "didSave params of unexpected type"}
		}
		return nil, svc.DidSaveDocument(ctx, did, p.Text)
	case protocol.MethodTextDocumentWillSave:
		p, ok := params.(*protocol.WillSaveTextDocumentParams)
		if !ok {
			return nil, &schederrors.InternalError{Reason: "willSave params of unexpected type"}
		}
		return nil, svc.WillSaveDocument(ctx, did, p.Reason)
	default:
		return svc.Dispatch(ctx, method, did, params)
	}
}

// handleFreestanding forwards a request with no document affinity (e.g. a
// resolved completion item, workspace-symbol query already filtered by the
// index) through whichever already-bound service stack it finds first,
// since no specific workspace or document claims the request either.
func (d *dispatcher) handleFreestanding(ctx context.Context, req Request) (interface{}, error) {
	for _, ws := range d.router.Workspaces() {
		for _, did := range ws.OpenDocuments() {
			refs := ws.LanguageServices(did)
			if len(refs) == 0 {
				continue
			}
			return d.tryEach(ctx, refs, req.Method, did, req.Params)
		}
	}
	return nil, &schederrors.NoLanguageServiceImplementsMethodError{Method: req.Method}
}

// handleWorkspaceRequest iterates every workspace and, for each open
// document in it, forwards the request through that document's bound
// services until one replies; a service bound to several documents is asked
// once per document. Documents where no bound service implements the method
// are skipped. The replies are then deterministically merged and sorted
// (spec.md §4.6, "merge and sort results deterministically by the natural
// ordering of the underlying records").
func (d *dispatcher) handleWorkspaceRequest(ctx context.Context, req Request) (interface{}, error) {
	workspaces := d.router.Workspaces()
	var all []interface{}
	for _, ws := range workspaces {
		for _, did := range ws.OpenDocuments() {
			refs := ws.LanguageServices(did)
			if len(refs) == 0 {
				continue
			}
			result, err := d.tryEach(ctx, refs, req.Method, did, req.Params)
			if err != nil {
				if _, noImpl := err.(*schederrors.NoLanguageServiceImplementsMethodError); noImpl || schederrors.IsNotImplemented(err) {
					continue
				}
				return nil, err
			}
			all = append(all, result)
		}
	}
	return mergeSorted(all), nil
}

func (d *dispatcher) tryEach(ctx context.Context, refs []*entity.LanguageServiceRef, method string, did entity.DocumentId, params interface{}) (interface{}, error) {
	for _, ref := range refs {
		svc := d.directory.ServiceFor(ref)
		if svc == nil {
			continue
		}
		result, err := svc.Dispatch(ctx, method, did, params)
		if err == nil {
			return result, nil
		}
		if schederrors.IsNotImplemented(err) {
			continue
		}
		return nil, err
	}
	return nil, &schederrors.NoLanguageServiceImplementsMethodError{Method: method}
}

func (d *dispatcher) pokeActiveDocument(ctx context.Context, did entity.DocumentId) {
	for _, ws := range d.router.Workspaces() {
		if ws.SemanticIndex == nil {
			continue
		}
		if err := ws.SemanticIndex.DidChangeActiveDocument(ctx, did); err != nil {
			d.logger.Sugar().Debugf("poke preparation for %q in workspace %q: %v", did, ws.ID, err)
		}
	}
}

// mergeSorted flattens per-workspace results and sorts slices of common LSP
// record types: Locations by URI, then range start; SymbolInformation by
// name. Anything else is
// returned concatenated in workspace-iteration order, which is already
// deterministic since Workspaces() preserves a stable list order.
func mergeSorted(all []interface{}) interface{} {
	if len(all) == 0 {
		return nil
	}

	if locs, ok := flattenLocations(all); ok {
		sort.Slice(locs, func(i, j int) bool {
			return locationLess(locs[i], locs[j])
		})
		return locs
	}

	if syms, ok := flattenSymbols(all); ok {
		sort.Slice(syms, func(i, j int) bool {
			return syms[i].Name < syms[j].Name
		})
		return syms
	}

	return all
}

func flattenLocations(all []interface{}) ([]protocol.Location, bool) {
	var out []protocol.Location
	for _, v := range all {
		locs, ok := v.([]protocol.Location)
		if !ok {
			return nil, false
		}
		out = append(out, locs...)
	}
	return out, true
}

func flattenSymbols(all []interface{}) ([]protocol.SymbolInformation, bool) {
	var out []protocol.SymbolInformation
	for _, v := range all {
		syms, ok := v.([]protocol.SymbolInformation)
		if !ok {
			return nil, false
		}
		out = append(out, syms...)
	}
	return out, true
}

func locationLess(a, b protocol.Location) bool {
	if a.URI != b.URI {
		return a.URI < b.URI
	}
	if a.Range.Start.Line != b.Range.Start.Line {
		return a.Range.Start.Line < b.Range.Start.Line
	}
	return a.Range.Start.Character < b.Range.Start.Character
}
