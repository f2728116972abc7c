// Package bsp implements a Service backed by a build-server-protocol
// language server reached over a jsonrpc2 connection: a stdio or socket
// process per toolchain, started once per (kind, workspace, toolchain) and
// multiplexed across every document that resolves to it. Grounded on
// gateway/ide-client's dispatcher-over-jsonrpc2.Conn shape, generalized
// from "notify the one connected IDE" to "forward to the one connected
// backend", and on controller/jdk's toolchain-parametric controller,
// stripped of JDK-specific symbol logic (out of scope here).
package bsp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/uber/ulsp-core/src/ulsp/entity"
	"github.com/uber/ulsp-core/src/ulsp/langservice"
	schederrors "github.com/uber/ulsp-core/src/ulsp/scheduler/errors"
)

// Connector starts or attaches to a backend language server process for a
// workspace and toolchain, returning the jsonrpc2 connection to it. Process
// lifecycle (spawn, discovery, health) is an out-of-scope build-system
// concern; production code supplies a real Connector at the application's
// composition root.
type Connector func(ctx context.Context, ws *entity.Workspace, toolchain entity.Toolchain) (jsonrpc2.Conn, error)

// NewFactory builds a langservice.Factory that constructs bsp-backed
// services, one per (kind, toolchain) pair the directory requests.
func NewFactory(logger *zap.Logger, connect Connector, builtins []string) langservice.Factory {
	return func(kind entity.ServiceKind, toolchain entity.Toolchain) langservice.Service {
		return &service{
			kind:      kind,
			toolchain: toolchain,
			logger:    logger,
			connect:   connect,
			builtins:  builtins,
		}
	}
}

type service struct {
	kind      entity.ServiceKind
	toolchain entity.Toolchain
	logger    *zap.Logger
	connect   Connector
	builtins  []string

	mu   sync.Mutex
	ws   *entity.Workspace
	conn jsonrpc2.Conn
}

func (s *service) Kind() entity.ServiceKind { return s.kind }

func (s *service) Init(ctx context.Context, ws *entity.Workspace, toolchain entity.Toolchain) error {
	conn, err := s.connect(ctx, ws, toolchain)
	if err != nil {
		return fmt.Errorf("connecting to %s backend: %w", s.kind, err)
	}
	s.mu.Lock()
	s.ws, s.conn = ws, conn
	s.mu.Unlock()
	return nil
}

func (s *service) Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	var result protocol.InitializeResult
	if err := s.call(ctx, protocol.MethodInitialize, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *service) ClientInitialized(ctx context.Context) error {
	return s.notify(ctx, protocol.MethodInitialized, &protocol.InitializedParams{})
}

func (s *service) CanHandle(ws *entity.Workspace, toolchain entity.Toolchain) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ws == ws && s.toolchain == toolchain
}

// Done reports the backend connection's own Done channel, so the Directory
// learns the moment the process exits or the pipe breaks, not just when
// Shutdown asks it to.
func (s *service) Done() <-chan struct{} {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return s.neverDone()
	}
	return conn.Done()
}

func (s *service) neverDone() <-chan struct{} {
	return make(chan struct{})
}

func (s *service) OpenDocument(ctx context.Context, did entity.DocumentId, languageID protocol.LanguageIdentifier, text string, version int32) error {
	return s.notify(ctx, protocol.MethodTextDocumentDidOpen, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        did.URI,
			LanguageID: languageID,
			Version:    version,
			Text:       text,
		},
	})
}

func (s *service) CloseDocument(ctx context.Context, did entity.DocumentId) error {
	return s.notify(ctx, protocol.MethodTextDocumentDidClose, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: did.URI},
	})
}

func (s *service) ChangeDocument(ctx context.Context, did entity.DocumentId, version int32, changes []protocol.TextDocumentContentChangeEvent) error {
	return s.notify(ctx, protocol.MethodTextDocumentDidChange, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: did.URI},
			Version:                version,
		},
		ContentChanges: changes,
	})
}

func (s *service) ReopenDocument(ctx context.Context, did entity.DocumentId, languageID protocol.LanguageIdentifier, text string, version int32) error {
	if err := s.CloseDocument(ctx, did); err != nil {
		return err
	}
	return s.OpenDocument(ctx, did, languageID, text, version)
}

func (s *service) WillSaveDocument(ctx context.Context, did entity.DocumentId, reason protocol.TextDocumentSaveReason) error {
	return s.notify(ctx, protocol.MethodTextDocumentWillSave, &protocol.WillSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: did.URI},
		Reason:       reason,
	})
}

func (s *service) DidSaveDocument(ctx context.Context, did entity.DocumentId, text *string) error {
	return s.notify(ctx, protocol.MethodTextDocumentDidSave, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: did.URI},
		Text:         derefOr(text, ""),
	})
}

func (s *service) Dispatch(ctx context.Context, method string, did entity.DocumentId, params interface{}) (interface{}, error) {
	var result interface{}
	if err := s.call(ctx, method, params, &result); err != nil {
		var rpcErr *jsonrpc2.Error
		if errors.As(err, &rpcErr) && rpcErr.Code == jsonrpc2.MethodNotFound {
			return nil, &schederrors.RequestNotImplementedError{Method: method}
		}
		return nil, err
	}
	return result, nil
}

func (s *service) Shutdown(ctx context.Context) error {
	if err := s.call(ctx, protocol.MethodShutdown, nil, nil); err != nil {
		return err
	}
	return s.notify(ctx, protocol.MethodExit, nil)
}

func (s *service) BuiltInCommands() []string { return s.builtins }

func (s *service) IsImmortal() bool { return false }

func (s *service) call(ctx context.Context, method string, params, result interface{}) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("bsp service %s: not connected", s.kind)
	}
	_, err := conn.Call(ctx, method, params, result)
	return err
}

func (s *service) notify(ctx context.Context, method string, params interface{}) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("bsp service %s: not connected", s.kind)
	}
	return conn.Notify(ctx, method, params)
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
