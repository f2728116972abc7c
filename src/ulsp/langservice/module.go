package langservice

import (
	"context"
	"fmt"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	uber_config "go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/uber/ulsp-core/src/ulsp/entity"
	ideclient "github.com/uber/ulsp-core/src/ulsp/gateway/ide-client"
	"github.com/uber/ulsp-core/src/ulsp/langservice/bsp"
	"github.com/uber/ulsp-core/src/ulsp/langservice/docservice"
)

const (
	_configKey    = "langservice"
	_docserviceKind entity.ServiceKind = "docservice"
)

// Config declares, per language, the ordered stack of service kinds an
// Ensure-service call must start, plus the one-time guidance catalog shown
// through the documentation-only service.
type Config struct {
	Precedence map[protocol.LanguageIdentifier][]entity.ServiceKind `yaml:"precedence"`
	Guidance   []docservice.Message                                 `yaml:"guidance"`
}

// BackendDialer dials an actual build-server-protocol backend process.
// Spawning and discovering that process is out of this core's scope (spec
// §6); the default binding below always fails so the application graph
// still wires end to end without a concrete implementation.
type BackendDialer bsp.Connector

// Module wires the Language-Service Directory into the application's fx
// graph.
var Module = fx.Options(
	fx.Provide(newConfig),
	fx.Provide(func() BackendDialer { return unconfiguredDialer }),
	fx.Provide(newFactory),
	fx.Provide(newDirectory),
)

func unconfiguredDialer(ctx context.Context, ws *entity.Workspace, toolchain entity.Toolchain) (jsonrpc2.Conn, error) {
	return nil, fmt.Errorf("no backend dialer configured for toolchain %q", toolchain)
}

func newConfig(provider uber_config.Provider) (Config, error) {
	var cfg Config
	if err := provider.Get(_configKey).Populate(&cfg); err != nil {
		return Config{}, fmt.Errorf("loading %q config: %w", _configKey, err)
	}
	return cfg, nil
}

func newFactory(logger *zap.Logger, dialer BackendDialer, gateway ideclient.Gateway, cfg Config) Factory {
	bspFactory := bsp.NewFactory(logger, bsp.Connector(dialer), nil)
	docFactory := docservice.NewFactory(logger, gateway, cfg.Guidance)
	return func(kind entity.ServiceKind, toolchain entity.Toolchain) Service {
		if kind == _docserviceKind {
			return docFactory(kind, toolchain)
		}
		return bspFactory(kind, toolchain)
	}
}

func newDirectory(lc fx.Lifecycle, logger *zap.Logger, factory Factory, cfg Config) Directory {
	d := New(logger, factory, cfg.Precedence)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return d.Shutdown(ctx)
		},
	})
	return d
}
