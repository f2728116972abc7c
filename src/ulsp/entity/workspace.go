package entity

import (
	"context"

	"go.lsp.dev/protocol"
)

// BuildTarget is an opaque build target identifier as resolved by the
// build-server manager collaborator (out of scope; referenced only through
// BuildServerManager below).
type BuildTarget string

// BuildServerManager is the contract for the build-server manager
// collaborator (spec §6 "Build-system boundary"). Its resolution logic is
// out of scope for this core; components call it only through this
// interface.
type BuildServerManager interface {
	// Targets returns the set of build targets that include the document.
	Targets(ctx context.Context, did DocumentId) (map[BuildTarget]struct{}, error)
	// CanonicalTarget returns the target a build server designates as
	// authoritative for the document when more than one target includes it.
	CanonicalTarget(ctx context.Context, did DocumentId) (BuildTarget, error)
	// Toolchain resolves the toolchain appropriate for a target and
	// language.
	Toolchain(ctx context.Context, target BuildTarget, language protocol.LanguageIdentifier) (Toolchain, error)
	// RegisterForChangeNotifications subscribes to build-setting changes
	// relevant to the document.
	RegisterForChangeNotifications(ctx context.Context, did DocumentId, language protocol.LanguageIdentifier) error
	// UnregisterForChangeNotifications cancels a prior subscription.
	UnregisterForChangeNotifications(ctx context.Context, did DocumentId) error
	// Shutdown releases any resources held by the manager.
	Shutdown(ctx context.Context) error
	// Claims reports whether this manager claims at least one build target
	// covering the document, used by the Workspace Router's resolution
	// algorithm step 3.
	Claims(ctx context.Context, did DocumentId) bool
}

// SemanticIndexManager is the narrow contract the Request Dispatcher's
// "poke preparation on interaction" step (spec §4.6 step 1) needs from a
// workspace's semantic index. Symbol-query logic itself lives behind the
// separate, larger SemanticIndex contract in the index package and is out
// of scope for this core.
type SemanticIndexManager interface {
	// DidChangeActiveDocument notifies the index that the given document
	// became the active one. A workspace that owns the document schedules
	// target preparation; all others should treat any pending preparation
	// for this document as irrelevant.
	DidChangeActiveDocument(ctx context.Context, did DocumentId) error
}

// Capabilities records the negotiated/declared capability set for a
// workspace: which dynamic registrations the client supports, and which
// file-handling capability the workspace itself offers. A change to
// FileHandling triggers a Workspace Router re-open pass (spec §4.4).
type Capabilities struct {
	DynamicRegistrationMethods map[string]bool
	FileHandling               bool
}

// Workspace is a routing and lifecycle unit: the owner of one build-server
// manager, the bindings from document to language services it has
// resolved, and (optionally) a semantic index. Created explicitly from
// client-provided workspace folders/root URI, or implicitly by the
// Workspace Router's discovery walk.
type Workspace struct {
	ID      string
	RootURI string

	BuildServerManager BuildServerManager
	SemanticIndex      SemanticIndexManager

	Capabilities Capabilities
	IsImplicit   bool

	bindings map[DocumentId][]*LanguageServiceRef
}

// NewWorkspace constructs a Workspace with an empty language-service binding
// table.
func NewWorkspace(id, rootURI string, bsm BuildServerManager, isImplicit bool) *Workspace {
	return &Workspace{
		ID:                 id,
		RootURI:            rootURI,
		BuildServerManager: bsm,
		IsImplicit:         isImplicit,
		bindings:           make(map[DocumentId][]*LanguageServiceRef),
	}
}

// LanguageServices returns the services currently bound to a document, or
// nil if none are bound.
func (w *Workspace) LanguageServices(did DocumentId) []*LanguageServiceRef {
	return w.bindings[did]
}

// BindLanguageServices records the resolved service list for a document.
func (w *Workspace) BindLanguageServices(did DocumentId, refs []*LanguageServiceRef) {
	w.bindings[did] = refs
}

// UnbindDocument removes a document's language-service binding, used when a
// document closes or is re-homed to a different workspace (spec §3
// invariant 1: close in the old workspace before reopening in the new one).
func (w *Workspace) UnbindDocument(did DocumentId) {
	delete(w.bindings, did)
}

// OpenDocuments returns every document currently bound in this workspace.
func (w *Workspace) OpenDocuments() []DocumentId {
	docs := make([]DocumentId, 0, len(w.bindings))
	for d := range w.bindings {
		docs = append(docs, d)
	}
	return docs
}
