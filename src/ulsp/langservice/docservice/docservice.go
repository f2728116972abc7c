// Package docservice implements a documentation-only Service: one that
// never forwards documents to a backend process, only shows the client
// one-time guidance messages on first interaction with a workspace.
// Grounded on the deleted controller/user-guidance plugin's config-driven
// message catalog and IDE-notification logic, generalized from a global
// fx plugin into a per-workspace Service instance, and declared immortal
// since guidance messages are cheap and workspace-independent once shown.
package docservice

import (
	"context"
	"fmt"
	"sync"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/uber/ulsp-core/src/ulsp/entity"
	ideclient "github.com/uber/ulsp-core/src/ulsp/gateway/ide-client"
	"github.com/uber/ulsp-core/src/ulsp/langservice"
	schederrors "github.com/uber/ulsp-core/src/ulsp/scheduler/errors"
)

const _kind entity.ServiceKind = "docservice"

// MessageKind selects how a guidance Message is delivered.
type MessageKind string

const (
	// MessageKindOutput writes to the client's output channel.
	MessageKindOutput MessageKind = "output"
	// MessageKindNotification surfaces an IDE notification.
	MessageKindNotification MessageKind = "notification"
)

// Message is one guidance entry shown at most once per workspace.
type Message struct {
	Key     string
	Kind    MessageKind
	Text    string
	Type    protocol.MessageType
}

// NewFactory builds a langservice.Factory that constructs docservice
// instances sharing one guidance catalog and IDE gateway.
func NewFactory(logger *zap.Logger, gateway ideclient.Gateway, messages []Message) langservice.Factory {
	return func(kind entity.ServiceKind, toolchain entity.Toolchain) langservice.Service {
		return &service{logger: logger, gateway: gateway, messages: messages, done: make(chan struct{})}
	}
}

type service struct {
	logger   *zap.Logger
	gateway  ideclient.Gateway
	messages []Message

	mu    sync.Mutex
	ws    *entity.Workspace
	shown bool
	done  chan struct{}
}

func (s *service) Kind() entity.ServiceKind { return _kind }

func (s *service) Init(ctx context.Context, ws *entity.Workspace, toolchain entity.Toolchain) error {
	s.mu.Lock()
	s.ws = ws
	s.mu.Unlock()
	return nil
}

func (s *service) Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindIncremental,
			},
		},
	}, nil
}

func (s *service) ClientInitialized(ctx context.Context) error {
	return s.showMessagesOnce(ctx)
}

func (s *service) CanHandle(ws *entity.Workspace, toolchain entity.Toolchain) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ws == ws
}

// Done never closes: docservice has no backend process to crash.
func (s *service) Done() <-chan struct{} { return s.done }

func (s *service) OpenDocument(ctx context.Context, did entity.DocumentId, languageID protocol.LanguageIdentifier, text string, version int32) error {
	return s.showMessagesOnce(ctx)
}

func (s *service) CloseDocument(ctx context.Context, did entity.DocumentId) error { return nil }

func (s *service) ChangeDocument(ctx context.Context, did entity.DocumentId, version int32, changes []protocol.TextDocumentContentChangeEvent) error {
	return nil
}

func (s *service) ReopenDocument(ctx context.Context, did entity.DocumentId, languageID protocol.LanguageIdentifier, text string, version int32) error {
	return nil
}

func (s *service) WillSaveDocument(ctx context.Context, did entity.DocumentId, reason protocol.TextDocumentSaveReason) error {
	return nil
}

func (s *service) DidSaveDocument(ctx context.Context, did entity.DocumentId, text *string) error {
	return nil
}

func (s *service) Dispatch(ctx context.Context, method string, did entity.DocumentId, params interface{}) (interface{}, error) {
	return nil, &schederrors.RequestNotImplementedError{Method: method}
}

func (s *service) Shutdown(ctx context.Context) error { return nil }

func (s *service) BuiltInCommands() []string { return nil }

func (s *service) IsImmortal() bool { return true }

func (s *service) showMessagesOnce(ctx context.Context) error {
	s.mu.Lock()
	if s.shown {
		s.mu.Unlock()
		return nil
	}
	s.shown = true
	s.mu.Unlock()

	for _, msg := range s.messages {
		switch msg.Kind {
		case MessageKindOutput:
			w, err := s.gateway.GetLogMessageWriter(ctx, msg.Key)
			if err != nil {
				return fmt.Errorf("output guidance message %q: %w", msg.Key, err)
			}
			if _, err := fmt.Fprintln(w, msg.Text); err != nil {
				return fmt.Errorf("output guidance message %q: %w", msg.Key, err)
			}
		case MessageKindNotification:
			if err := s.gateway.ShowMessage(ctx, &protocol.ShowMessageParams{Type: msg.Type, Message: msg.Text}); err != nil {
				return fmt.Errorf("notify guidance message %q: %w", msg.Key, err)
			}
		}
	}
	return nil
}
