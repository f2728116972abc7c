package app

import (
	"context"
	"time"

	tally "github.com/uber-go/tally/v4"
	"github.com/uber/ulsp-core/src/ulsp/dispatch"
	"github.com/uber/ulsp-core/src/ulsp/gateway"
	notifier "github.com/uber/ulsp-core/src/ulsp/gateway/ide-client"
	"github.com/uber/ulsp-core/src/ulsp/handler"
	"github.com/uber/ulsp-core/src/ulsp/internal/core"
	"github.com/uber/ulsp-core/src/ulsp/internal/executor"
	"github.com/uber/ulsp-core/src/ulsp/internal/fs"
	"github.com/uber/ulsp-core/src/ulsp/internal/jsonrpcfx"
	"github.com/uber/ulsp-core/src/ulsp/internal/serverinfofile"
	workspaceutils "github.com/uber/ulsp-core/src/ulsp/internal/workspace-utils"
	"github.com/uber/ulsp-core/src/ulsp/langservice"
	"github.com/uber/ulsp-core/src/ulsp/lifecycle"
	"github.com/uber/ulsp-core/src/ulsp/scheduler"
	"github.com/uber/ulsp-core/src/ulsp/scheduler/cancel"
	"github.com/uber/ulsp-core/src/ulsp/workspace"
	"github.com/uber/ulsp-core/src/ulsp/workspace/detect"
	"go.uber.org/fx"
)

// Module defines the ulsp-daemon application module.
var Module = fx.Options(
	gateway.Module, // outbounds
	handler.Module, // inbounds
	jsonrpcfx.Module,
	fs.Module,
	executor.Module,
	serverinfofile.Module,
	workspaceutils.Module,
	detect.Module,
	workspace.Module,
	langservice.Module,
	scheduler.Module,
	cancel.Module,
	dispatch.Module,
	lifecycle.Module,
	core.ConfigModule,
	core.LoggerModule,
	fx.Provide(notifier.New),
	fx.Provide(func(lc fx.Lifecycle) tally.Scope {
		rs, closer := tally.NewRootScope(tally.ScopeOptions{
			Tags: map[string]string{
				"service": "ulsp-daemon",
			},
		}, 1*time.Second)

		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return closer.Close()
			},
		})

		return rs
	}),
	fx.Decorate(decorateEnvContext),
	fx.Decorate(decorateConfigProvider),
	fx.Provide(func() Context {
		return Context{
			Environment:        "local",
			RuntimeEnvironment: "local",
		}
	}),
)
