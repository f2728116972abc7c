// Package handler wires the transport layer (JSON-RPC daemon) into the
// application's fx graph.
package handler

import (
	"go.uber.org/fx"

	ulspdaemon "github.com/uber/ulsp-core/src/ulsp/handler/ulsp-daemon"
	"github.com/uber/ulsp-core/src/ulsp/repository/session"
)

// Module provides the ulsp-daemon server into an Fx application.
var Module = fx.Options(
	fx.Provide(session.New),
	fx.Provide(ulspdaemon.New),
	fx.Invoke(func(ulspdaemon.Handler) {}),
)
