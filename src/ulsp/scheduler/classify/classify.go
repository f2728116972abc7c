// Package classify implements the Dependency Classifier (spec §4.1): a
// pure, deterministic mapping from an inbound message's method name and
// payload shape to a DependencyClass.
package classify

import (
	"go.lsp.dev/protocol"

	"github.com/uber/ulsp-core/src/ulsp/entity"
)

// MethodRequestFullShutdown directs the server to shut down on the next
// JSON-RPC 'exit' call. Kept from the teacher verbatim: an ulsp-specific
// extension method outside the LSP protocol proper, routed as a global
// configuration change.
const MethodRequestFullShutdown = "ulsp/requestFullShutdown"

// Method name literals for LSP methods not exposed as protocol.Method*
// constants by this version of go.lsp.dev/protocol. The strings are the
// standardized LSP wire method names, unaffected by the binding library's
// constant coverage.
const (
	_methodWorkspaceTests             = "workspace/tests"
	_methodWorkspaceDidChangeFolders  = "workspace/didChangeWorkspaceFolders"
	_methodWorkspaceDidChangeConfig   = "workspace/didChangeConfiguration"
	_methodTextDocumentCompletion     = "textDocument/completion"
	_methodTextDocumentFormatting     = "textDocument/formatting"
	_methodTextDocumentRangeFormat    = "textDocument/rangeFormatting"
	_methodSemanticTokensFull         = "textDocument/semanticTokens/full"
	_methodSemanticTokensRange        = "textDocument/semanticTokens/range"
	_methodPrepareCallHierarchy       = "textDocument/prepareCallHierarchy"
	_methodPrepareTypeHierarchy       = "textDocument/prepareTypeHierarchy"
	_methodCompletionItemResolve      = "completionItem/resolve"
	_methodWorkspaceDiagnosticRefresh = "workspace/diagnostic/refresh"
	_methodWorkspaceSymbol            = "workspace/symbol"
	_methodWorkspaceDiagnostic        = "workspace/diagnostic"
	_methodCallHierarchyIncoming      = "callHierarchy/incomingCalls"
	_methodCallHierarchyOutgoing      = "callHierarchy/outgoingCalls"
	_methodTypeHierarchySupertypes    = "typeHierarchy/supertypes"
	_methodTypeHierarchySubtypes      = "typeHierarchy/subtypes"
)

type ruleKind int

const (
	ruleGlobal ruleKind = iota
	ruleDocumentUpdate
	ruleDocumentRequest
	ruleWorkspaceRequest
	ruleFreestanding
)

// _table is the static method-name -> rule lookup, built once at package
// init. Classification never uses runtime type reflection (spec Design
// Note §9); the one payload-dependent refinement, executeCommand, is
// handled explicitly in Classify below.
var _table = map[string]ruleKind{
	// Lifecycle / configuration-wide messages.
	protocol.MethodInitialize:                    ruleGlobal,
	protocol.MethodInitialized:                    ruleGlobal,
	protocol.MethodShutdown:                       ruleGlobal,
	protocol.MethodExit:                           ruleGlobal,
	protocol.MethodWorkspaceDidChangeWorkspaceFolders: ruleGlobal,
	protocol.MethodWorkspaceDidChangeConfiguration:    ruleGlobal,
	protocol.MethodClientRegisterCapability:           ruleGlobal,
	protocol.MethodClientUnregisterCapability:         ruleGlobal,
	MethodRequestFullShutdown:                         ruleGlobal,

	// Document text lifecycle notifications.
	protocol.MethodTextDocumentDidOpen:   ruleDocumentUpdate,
	protocol.MethodTextDocumentDidChange: ruleDocumentUpdate,
	protocol.MethodTextDocumentDidClose:  ruleDocumentUpdate,
	protocol.MethodTextDocumentDidSave:   ruleDocumentUpdate,
	protocol.MethodTextDocumentWillSave:  ruleDocumentUpdate,
	protocol.MethodTextDocumentWillSaveWaitUntil: ruleDocumentUpdate,

	// Watched-file-change notifications are a deliberate exception: despite
	// potentially influencing build settings, they stay Freestanding for
	// throughput (spec §4.1's "policy nuance").
	protocol.MethodWorkspaceDidChangeWatchedFiles: ruleFreestanding,

	// Requests targeting a single document.
	protocol.MethodTextDocumentCodeAction:           ruleDocumentRequest,
	protocol.MethodTextDocumentCodeLens:              ruleDocumentRequest,
	protocol.MethodTextDocumentDeclaration:           ruleDocumentRequest,
	protocol.MethodTextDocumentDefinition:            ruleDocumentRequest,
	protocol.MethodTextDocumentTypeDefinition:        ruleDocumentRequest,
	protocol.MethodTextDocumentImplementation:        ruleDocumentRequest,
	protocol.MethodTextDocumentReferences:            ruleDocumentRequest,
	protocol.MethodTextDocumentHover:                 ruleDocumentRequest,
	protocol.MethodTextDocumentDocumentSymbol:        ruleDocumentRequest,
	protocol.MethodTextDocumentCompletion:            ruleDocumentRequest,
	protocol.MethodTextDocumentFormatting:            ruleDocumentRequest,
	protocol.MethodTextDocumentRangeFormatting:       ruleDocumentRequest,
	protocol.MethodTextDocumentSemanticTokensFull:    ruleDocumentRequest,
	protocol.MethodTextDocumentSemanticTokensRange:   ruleDocumentRequest,
	protocol.MethodTextDocumentPrepareCallHierarchy:  ruleDocumentRequest,
	protocol.MethodTextDocumentPrepareTypeHierarchy:  ruleDocumentRequest,

	// Workspace-scoped requests that read state of all documents.
	_methodWorkspaceTests: ruleWorkspaceRequest,

	// Everything else: resolve-style requests, progress, diagnostics
	// refresh, show/log message, workspace symbols, file hint
	// notifications, hierarchy sub-queries.
	protocol.MethodCompletionItemResolve:      ruleFreestanding,
	protocol.MethodCodeLensResolve:            ruleFreestanding,
	protocol.MethodCodeLensRefresh:            ruleFreestanding,
	protocol.MethodWorkDoneProgressCreate:     ruleFreestanding,
	protocol.MethodWorkDoneProgressCancel:     ruleFreestanding,
	protocol.MethodWorkspaceDiagnosticRefresh: ruleFreestanding,
	protocol.MethodWindowShowMessage:          ruleFreestanding,
	protocol.MethodWindowLogMessage:           ruleFreestanding,
	protocol.MethodWorkspaceSymbol:            ruleFreestanding,
	protocol.MethodWorkspaceDiagnostic:        ruleFreestanding,
	protocol.MethodWillCreateFiles:            ruleFreestanding,
	protocol.MethodDidCreateFiles:             ruleFreestanding,
	protocol.MethodWillRenameFiles:            ruleFreestanding,
	protocol.MethodDidRenameFiles:             ruleFreestanding,
	protocol.MethodWillDeleteFiles:            ruleFreestanding,
	protocol.MethodDidDeleteFiles:             ruleFreestanding,
	protocol.MethodCallHierarchyIncomingCalls: ruleFreestanding,
	protocol.MethodCallHierarchyOutgoingCalls: ruleFreestanding,
	protocol.MethodTypeHierarchySupertypes:    ruleFreestanding,
	protocol.MethodTypeHierarchySubtypes:      ruleFreestanding,
}

// Payload carries the already-extracted shape of a message's parameters
// needed to refine classification beyond a pure method-name lookup.
type Payload struct {
	// Document is set when the payload carries a textDocument identifier
	// (already normalized to its build-settings key by the caller).
	Document    entity.DocumentId
	HasDocument bool
}

// Classify maps (method, payload) to a DependencyClass following the rules
// of spec §4.1, evaluated in order, first match wins. Unknown methods
// classify as Freestanding; logErrorf is invoked (never nil in production
// wiring) so the occurrence is recorded without failing the request.
func Classify(method string, payload Payload, logErrorf func(format string, args ...interface{})) entity.DependencyClass {
	rule, ok := _table[method]
	if !ok {
		// executeCommand is the one method whose class depends entirely on
		// payload shape rather than a static rule.
		if method == protocol.MethodWorkspaceExecuteCommand {
			if payload.HasDocument {
				return entity.Request(payload.Document)
			}
			return entity.Standalone()
		}

		if logErrorf != nil {
			logErrorf("classify: unrecognized method %q, defaulting to Freestanding", method)
		}
		return entity.Standalone()
	}

	switch rule {
	case ruleGlobal:
		return entity.Global()
	case ruleWorkspaceRequest:
		return entity.WorkspaceScan()
	case ruleDocumentUpdate:
		return entity.Update(payload.Document)
	case ruleDocumentRequest:
		if payload.HasDocument {
			return entity.Request(payload.Document)
		}
		// A rule classified as document-scoped but missing a document in
		// its payload is a malformed request; treat it as Freestanding
		// rather than panicking on a nil DocumentId.
		return entity.Standalone()
	default:
		return entity.Standalone()
	}
}
