package dispatch

import (
	"fmt"

	uber_config "go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/uber/ulsp-core/src/ulsp/langservice"
	"github.com/uber/ulsp-core/src/ulsp/scheduler/cancel"
	"github.com/uber/ulsp-core/src/ulsp/workspace"
)

const _configKey = "dispatch"

// Config declares the Request Dispatcher's behavior flags.
type Config struct {
	// PokePreparation enables spec.md §4.6 step 1's "poke preparation on
	// interaction": nudging a workspace's semantic index that a document
	// became active before resolving and forwarding a document request.
	PokePreparation bool `yaml:"pokePreparation"`
}

// Module wires the Request Dispatcher into the application's fx graph.
var Module = fx.Options(
	fx.Provide(newConfig),
	fx.Provide(newDispatcher),
)

func newConfig(provider uber_config.Provider) (Config, error) {
	var cfg Config
	if err := provider.Get(_configKey).Populate(&cfg); err != nil {
		return Config{}, fmt.Errorf("loading %q config: %w", _configKey, err)
	}
	return cfg, nil
}

func newDispatcher(logger *zap.Logger, router workspace.Router, directory langservice.Directory, cancelReg cancel.Registry, cfg Config) Dispatcher {
	return New(logger, router, directory, cancelReg, cfg.PokePreparation)
}
