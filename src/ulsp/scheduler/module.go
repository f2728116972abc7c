package scheduler

import (
	"context"

	tally "github.com/uber-go/tally/v4"
	uber_config "go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config is the scheduler section of the daemon's YAML configuration.
type Config struct {
	// MaxConcurrentTasks bounds how many task bodies may run simultaneously.
	MaxConcurrentTasks int64 `yaml:"maxConcurrentTasks"`
}

const _defaultMaxConcurrentTasks = int64(8)

// Module wires the Dependency Queue into the application's fx graph.
var Module = fx.Options(
	fx.Provide(newConfig),
	fx.Provide(newQueueParams),
)

func newConfig(provider uber_config.Provider) (Config, error) {
	cfg := Config{MaxConcurrentTasks: _defaultMaxConcurrentTasks}
	if err := provider.Get("scheduler").Populate(&cfg); err != nil {
		return cfg, nil // absent section keeps the default.
	}
	if cfg.MaxConcurrentTasks <= 0 {
		cfg.MaxConcurrentTasks = _defaultMaxConcurrentTasks
	}
	return cfg, nil
}

// newQueueParams ties the dispatcher goroutine's lifetime to the fx app's
// OnStop hook rather than letting it run against context.Background() for
// the life of the process unconditionally.
func newQueueParams(lc fx.Lifecycle, logger *zap.Logger, stats tally.Scope, cfg Config) Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewQueue(ctx, logger, stats, cfg.MaxConcurrentTasks)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
	return q
}
