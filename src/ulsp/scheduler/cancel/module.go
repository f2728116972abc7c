package cancel

import (
	"context"

	uber_config "go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config is the cancellation section of the daemon's YAML configuration.
type Config struct {
	// ImplicitCancellation enables cancelling in-progress requests on
	// document updates for the same document (spec.md §4.3). Defaults to
	// true; the completion exemption always applies regardless of this
	// setting.
	ImplicitCancellation bool `yaml:"implicitCancellation"`
}

// Module wires the Cancellation Registry into the application's fx graph.
var Module = fx.Options(
	fx.Provide(newConfig),
	fx.Provide(newRegistry),
)

func newConfig(provider uber_config.Provider) (Config, error) {
	cfg := Config{ImplicitCancellation: true}
	if err := provider.Get("cancellation").Populate(&cfg); err != nil {
		return cfg, nil
	}
	return cfg, nil
}

func newRegistry(lc fx.Lifecycle, logger *zap.Logger, cfg Config) Registry {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(ctx, logger, cfg.ImplicitCancellation)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
	return r
}
