// Package lifecycle implements the Lifecycle Orchestrator (spec.md §4.7):
// connection-wide initialize/shutdown/exit handling and the idle-shutdown
// timer, generalized from a single session-bound workspace root to the
// Workspace Router's full workspace set.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.lsp.dev/protocol"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	ideclient "github.com/uber/ulsp-core/src/ulsp/gateway/ide-client"
	"github.com/uber/ulsp-core/src/ulsp/langservice"
	schederrors "github.com/uber/ulsp-core/src/ulsp/scheduler/errors"
	"github.com/uber/ulsp-core/src/ulsp/workspace"
)

// Orchestrator is the Lifecycle Orchestrator contract: the connection-wide
// methods that don't belong to any single document or workspace.
type Orchestrator interface {
	// Initialize applies the client's initial workspace folders to the
	// Workspace Router and returns this server's declared capabilities.
	Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error)
	// Initialized notifies the client that the connection is ready.
	Initialized(ctx context.Context, params *protocol.InitializedParams) error
	// Shutdown concurrently shuts down every running language service and
	// every workspace's build-server manager, aggregating failures for
	// logging without failing the overall call.
	Shutdown(ctx context.Context) error
	// Exit ends the connection. If a full shutdown was previously
	// requested, it forces the idle timer to fire immediately instead of
	// waiting out the configured timeout.
	Exit(ctx context.Context) error
	// RequestFullShutdown marks subsequent Shutdown/Exit calls as a request
	// to terminate the whole process, not just this connection (the
	// `ulsp/requestFullShutdown` custom method).
	RequestFullShutdown(ctx context.Context) error
	// OnFolderChange applies a workspace/didChangeWorkspaceFolders
	// notification to the Workspace Router and collects orphaned language
	// services for every workspace it drops (spec.md §4.5), so every caller
	// that mutates the folder list goes through the same cleanup path.
	OnFolderChange(ctx context.Context, added, removed []protocol.WorkspaceFolder) error
	// RefreshIdleTimer resets the idle-shutdown timer based on the current
	// total open-document count across all workspaces. Called by session
	// bookkeeping (connection register/deregister) outside this package.
	RefreshIdleTimer()
}

type orchestrator struct {
	logger     *zap.Logger
	router     workspace.Router
	directory  langservice.Directory
	gateway    ideclient.Gateway
	shutdowner fx.Shutdowner

	idleTimeout     time.Duration
	shutdownTimeout time.Duration

	mu           sync.Mutex
	idleTimer    *time.Timer
	fullShutdown bool
}

// New constructs a Lifecycle Orchestrator.
func New(logger *zap.Logger, router workspace.Router, directory langservice.Directory, gateway ideclient.Gateway, shutdowner fx.Shutdowner, idleTimeout, shutdownTimeout time.Duration) Orchestrator {
	return &orchestrator{
		logger:          logger,
		router:          router,
		directory:       directory,
		gateway:         gateway,
		shutdowner:      shutdowner,
		idleTimeout:     idleTimeout,
		shutdownTimeout: shutdownTimeout,
	}
}

func (o *orchestrator) Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	defer o.RefreshIdleTimer()

	result := &protocol.InitializeResult{
		ServerInfo: &protocol.ServerInfo{Name: "Uber Language Server Core"},
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose:         true,
				Change:            protocol.TextDocumentSyncKindIncremental,
				WillSave:          true,
				WillSaveWaitUntil: true,
				Save:              &protocol.SaveOptions{IncludeText: true},
			},
		},
	}

	if len(params.WorkspaceFolders) > 0 {
		if err := o.OnFolderChange(ctx, params.WorkspaceFolders, nil); err != nil {
			return nil, fmt.Errorf("applying initial workspace folders: %w", err)
		}
	}

	return result, nil
}

// OnFolderChange applies the folder-list mutation to the Workspace Router
// and, if it dropped any workspaces, hands them to the Language-Service
// Directory's orphan collector so their running backend services shut down
// instead of leaking (spec.md §4.5).
func (o *orchestrator) OnFolderChange(ctx context.Context, added, removed []protocol.WorkspaceFolder) error {
	removedWorkspaces, err := o.router.OnFolderChange(ctx, added, removed)
	if len(removedWorkspaces) > 0 {
		o.directory.CollectOrphans(ctx, removedWorkspaces)
	}
	return err
}

func (o *orchestrator) Initialized(ctx context.Context, params *protocol.InitializedParams) error {
	return o.gateway.ShowMessage(ctx, &protocol.ShowMessageParams{
		Type:    protocol.MessageTypeInfo,
		Message: "Connection to Uber Language Server is now initialized.",
	})
}

func (o *orchestrator) Shutdown(ctx context.Context) error {
	g, _ := errgroup.WithContext(ctx)
	var mu sync.Mutex
	var merr error

	shutdownOne := func(step string, fn func(context.Context) error) {
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(ctx, o.shutdownTimeout)
			defer cancel()
			err := fn(sctx)
			if errors.Is(sctx.Err(), context.DeadlineExceeded) {
				err = &schederrors.TimeoutError{Step: step}
			}
			if err != nil {
				mu.Lock()
				merr = multierr.Append(merr, fmt.Errorf("%s: %w", step, err))
				mu.Unlock()
			}
			return nil
		})
	}

	shutdownOne("language services", o.directory.Shutdown)
	for _, ws := range o.router.Workspaces() {
		ws := ws
		shutdownOne(fmt.Sprintf("build server manager %q", ws.ID), ws.BuildServerManager.Shutdown)
	}

	_ = g.Wait()
	if merr != nil {
		o.logger.Sugar().Errorf("lifecycle shutdown reported errors: %v", merr)
	}
	return nil
}

func (o *orchestrator) Exit(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	// Zero out the timer to trigger immediate shutdown instead of waiting
	// for the full idle timeout.
	if o.fullShutdown && o.idleTimer != nil {
		o.idleTimer.Reset(0)
	}
	return nil
}

func (o *orchestrator) RequestFullShutdown(ctx context.Context) error {
	o.mu.Lock()
	o.fullShutdown = true
	o.mu.Unlock()
	return nil
}

// RefreshIdleTimer ensures the server shuts down after a defined inactivity
// period with no open documents in any workspace.
func (o *orchestrator) RefreshIdleTimer() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.idleTimer == nil {
		o.idleTimer = time.NewTimer(o.idleTimeout)
		go func() {
			<-o.idleTimer.C
			o.logger.Info("idle shutdown timer fired")
			if err := o.shutdowner.Shutdown(); err != nil {
				o.logger.Sugar().Errorf("idle shutdown failed: %v", err)
			}
		}()
		return
	}

	o.idleTimer.Stop()
	if o.totalOpenDocuments() == 0 {
		o.idleTimer.Reset(o.idleTimeout)
	}
}

func (o *orchestrator) totalOpenDocuments() int {
	total := 0
	for _, ws := range o.router.Workspaces() {
		total += len(ws.OpenDocuments())
	}
	return total
}
