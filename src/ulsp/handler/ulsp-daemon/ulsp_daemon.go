// Package ulspdaemon implements the ulsp-daemon service's JSON-RPC
// transport: one jsonRPCRouter per IDE connection, wired to the
// scheduler/workspace/langservice/dispatch/lifecycle core.
package ulspdaemon

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally/v4"
	"go.lsp.dev/jsonrpc2"
	"go.uber.org/zap"

	"github.com/uber/ulsp-core/src/ulsp/dispatch"
	"github.com/uber/ulsp-core/src/ulsp/entity"
	ideclient "github.com/uber/ulsp-core/src/ulsp/gateway/ide-client"
	"github.com/uber/ulsp-core/src/ulsp/internal/jsonrpcfx"
	"github.com/uber/ulsp-core/src/ulsp/lifecycle"
	"github.com/uber/ulsp-core/src/ulsp/mapper"
	"github.com/uber/ulsp-core/src/ulsp/repository/session"
	"github.com/uber/ulsp-core/src/ulsp/scheduler"
	"github.com/uber/ulsp-core/src/ulsp/scheduler/cancel"
)

// Handler exposes the daemon's transport-level lifecycle to fx; there is no
// gRPC API surface here, only the JSON-RPC connection manager registered
// with jsonrpcfx.
type Handler interface{}

type handler struct {
	connectionManager jsonrpcfx.ConnectionManager
}

// New constructs the ulsp-daemon Handler and registers its connection
// manager with the JSON-RPC transport module.
func New(
	sessions session.Repository,
	ideGateway ideclient.Gateway,
	queue scheduler.Queue,
	dispatcher dispatch.Dispatcher,
	cancelReg cancel.Registry,
	orchestrator lifecycle.Orchestrator,
	logger *zap.Logger,
	jsonrpcmod jsonrpcfx.JSONRPCModule,
	stats tally.Scope,
) (Handler, error) {
	c := &jsonRPCConnectionManager{
		sessions:     sessions,
		ideGateway:   ideGateway,
		queue:        queue,
		dispatcher:   dispatcher,
		cancelReg:    cancelReg,
		orchestrator: orchestrator,
		logger:       logger,
		stats:        stats.SubScope("json_rpc"),
	}
	if err := jsonrpcmod.RegisterConnectionManager(c); err != nil {
		return nil, fmt.Errorf("registering json-rpc connection manager: %w", err)
	}

	return &handler{connectionManager: c}, nil
}

// jsonRPCConnectionManager creates and tears down one jsonRPCRouter per IDE
// connection, and owns the session bookkeeping (spec.md's InitSession/
// EndSession) that used to live on the plugin-priority Controller: register
// the connection with the IDE gateway, record a Session, and refresh the
// Lifecycle Orchestrator's idle timer.
type jsonRPCConnectionManager struct {
	sessions     session.Repository
	ideGateway   ideclient.Gateway
	queue        scheduler.Queue
	dispatcher   dispatch.Dispatcher
	cancelReg    cancel.Registry
	orchestrator lifecycle.Orchestrator
	logger       *zap.Logger
	stats        tally.Scope
}

// NewConnection registers a new session for the connection and returns the
// router that will handle every request on it.
func (c *jsonRPCConnectionManager) NewConnection(ctx context.Context, conn *jsonrpc2.Conn) (jsonrpcfx.Router, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("generating session id: %w", err)
	}

	if err := c.ideGateway.RegisterClient(ctx, id, conn); err != nil {
		return nil, fmt.Errorf("registering ide client: %w", err)
	}

	if err := c.sessions.Set(ctx, mapper.UUIDToSession(id, conn)); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	c.orchestrator.RefreshIdleTimer()

	return &jsonRPCRouter{
		uuid:         id,
		stats:        c.stats,
		logger:       c.logger,
		orchestrator: c.orchestrator,
		queue:        c.queue,
		dispatcher:   c.dispatcher,
		cancelReg:    c.cancelReg,
	}, nil
}

// RemoveConnection cleans up a closed connection's session even if no Exit
// call was ever received.
func (c *jsonRPCConnectionManager) RemoveConnection(ctx context.Context, id uuid.UUID) {
	ctx = context.WithValue(ctx, entity.SessionContextKey, id)

	if err := c.ideGateway.DeregisterClient(ctx, id); err != nil {
		c.logger.Sugar().Errorf("deregistering ide client %s: %v", id, err)
	}
	if err := c.sessions.Delete(ctx, id); err != nil {
		c.logger.Sugar().Errorf("deleting session %s: %v", id, err)
	}
}
