// Package langservice implements the Language-Service Directory (spec §4.5):
// the per-workspace registry of running backend language services and the
// Ensure-service procedure that starts, reuses, or fails over between them.
package langservice

import (
	"context"

	"go.lsp.dev/protocol"

	"github.com/uber/ulsp-core/src/ulsp/entity"
)

// Service is the contract every backend language service implements (spec
// §6 "language-service boundary"). Grounded on the teacher's
// entity/ulsp-plugin.Methods shape (one function slot per LSP method, a
// name key, a priority map) collapsed into a single interface per kind
// instead of a struct-of-function-fields, since every concrete kind in this
// core is its own Go type rather than a dynamically assembled method table.
type Service interface {
	// Kind identifies which ServiceKind this instance implements.
	Kind() entity.ServiceKind

	// Init constructs any per-instance resources. Called once, before
	// Initialize.
	Init(ctx context.Context, ws *entity.Workspace, toolchain entity.Toolchain) error
	// Initialize sends the initialize request with the workspace's client
	// capabilities and returns the service's declared capabilities.
	Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error)
	// ClientInitialized sends the initialized notification.
	ClientInitialized(ctx context.Context) error

	// CanHandle reports whether this running instance already covers the
	// given (workspace, toolchain) pair, for Ensure-service step 3's reuse
	// check.
	CanHandle(ws *entity.Workspace, toolchain entity.Toolchain) bool

	// Done returns a channel that closes when this instance's connection to
	// its backend ends on its own, outside of a Shutdown call the Directory
	// requested. The Directory watches it to detect a crash (spec §4.5's
	// Crash-recovery procedure); a service with no such signal (e.g. one
	// with no backend process) returns a channel that never closes.
	Done() <-chan struct{}

	OpenDocument(ctx context.Context, did entity.DocumentId, languageID protocol.LanguageIdentifier, text string, version int32) error
	CloseDocument(ctx context.Context, did entity.DocumentId) error
	ChangeDocument(ctx context.Context, did entity.DocumentId, version int32, changes []protocol.TextDocumentContentChangeEvent) error
	ReopenDocument(ctx context.Context, did entity.DocumentId, languageID protocol.LanguageIdentifier, text string, version int32) error
	WillSaveDocument(ctx context.Context, did entity.DocumentId, reason protocol.TextDocumentSaveReason) error
	DidSaveDocument(ctx context.Context, did entity.DocumentId, text *string) error

	// Dispatch forwards a single request method to the backend, returning
	// a scheduler/errors.RequestNotImplementedError when this service
	// doesn't implement it so the Request Dispatcher can try the next one
	// in precedence order.
	Dispatch(ctx context.Context, method string, did entity.DocumentId, params interface{}) (interface{}, error)

	Shutdown(ctx context.Context) error

	// BuiltInCommands lists workspace/executeCommand command names this
	// service handles directly without forwarding to a backend process.
	BuiltInCommands() []string
	// IsImmortal reports whether this service type should survive orphan
	// collection (spec §4.5 "unless the service type declares itself
	// immortal").
	IsImmortal() bool
}

// Factory constructs a fresh Service instance of one kind, given the
// toolchain the build-server manager resolved for a document.
type Factory func(kind entity.ServiceKind, toolchain entity.Toolchain) Service
