package lifecycle

import (
	"time"

	uber_config "go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"

	ideclient "github.com/uber/ulsp-core/src/ulsp/gateway/ide-client"
	"github.com/uber/ulsp-core/src/ulsp/langservice"
	"github.com/uber/ulsp-core/src/ulsp/workspace"
)

const (
	_configKey                     = "lifecycle"
	_defaultIdleTimeoutMinutes     = 240
	_defaultShutdownTimeoutSeconds = 30
)

// Config declares the idle-shutdown and per-backend shutdown timeouts.
// Mirrors the teacher's flat `idleTimeoutMinutes` config key, grouped under
// this package's own key since it no longer lives on the daemon controller.
type Config struct {
	IdleTimeoutMinutes     int `yaml:"idleTimeoutMinutes"`
	ShutdownTimeoutSeconds int `yaml:"shutdownTimeoutSeconds"`
}

// Module wires the Lifecycle Orchestrator into the application's fx graph.
var Module = fx.Options(
	fx.Provide(newConfig),
	fx.Provide(newOrchestrator),
)

func newConfig(provider uber_config.Provider) (Config, error) {
	cfg := Config{
		IdleTimeoutMinutes:     _defaultIdleTimeoutMinutes,
		ShutdownTimeoutSeconds: _defaultShutdownTimeoutSeconds,
	}
	if err := provider.Get(_configKey).Populate(&cfg); err != nil {
		return cfg, nil // absent section keeps the defaults.
	}
	if cfg.IdleTimeoutMinutes <= 0 {
		cfg.IdleTimeoutMinutes = _defaultIdleTimeoutMinutes
	}
	if cfg.ShutdownTimeoutSeconds <= 0 {
		cfg.ShutdownTimeoutSeconds = _defaultShutdownTimeoutSeconds
	}
	return cfg, nil
}

func newOrchestrator(logger *zap.Logger, router workspace.Router, directory langservice.Directory, gateway ideclient.Gateway, shutdowner fx.Shutdowner, cfg Config) Orchestrator {
	return New(
		logger,
		router,
		directory,
		gateway,
		shutdowner,
		time.Duration(cfg.IdleTimeoutMinutes)*time.Minute,
		time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second,
	)
}
