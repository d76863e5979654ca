package cli

import (
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/aretw0/cairn"
	"github.com/aretw0/cairn/internal/logging"
	"github.com/aretw0/cairn/pkg/adapters/file"
	"github.com/aretw0/cairn/pkg/adapters/redis"
)

// Options carries the flags shared by every command.
type Options struct {
	Dir        string
	ConfigPath string
	Debug      bool
}

// App bundles the engine with everything the commands need around it.
// Locker is set only when redis storage is configured; maintenance
// commands take it so concurrent passes do not race.
type App struct {
	Engine *cairn.Engine
	Config Config
	Logger *slog.Logger
	Locker *redis.Locker

	closers []func() error
}

// NewLogger builds the command logger. Debug switches the level; both
// variants write to stderr so stdout stays clean for command output.
func NewLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.New(slog.LevelInfo)
}

// Build resolves config, definition source and storage into a ready
// engine. The --dir flag wins over the config file's source path; an
// empty path means the current directory.
func Build(opts Options) (*App, error) {
	cfg := DefaultConfig()
	if opts.ConfigPath != "" {
		loaded, err := LoadConfig(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	logger := NewLogger(opts.Debug)

	path := cfg.Source.Path
	if opts.Dir != "" {
		path = opts.Dir
	}
	if path == "" {
		path = "."
	}
	src, err := ResolveSource(path)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Logger: logger}

	engineOpts := []cairn.Option{
		cairn.WithSource(src),
		cairn.WithLogger(logger),
		cairn.WithWeightConfig(cfg.Weights),
	}
	engineOpts = append(engineOpts, cfg.Engine.engineOptions()...)

	switch cfg.Storage.Type {
	case StorageFile:
		engineOpts = append(engineOpts,
			cairn.WithSnapshotStore(file.NewSnapshotStore(cfg.Storage.Path)),
			cairn.WithEventStore(file.NewEventStore(cfg.Storage.Path)),
		)
	case StorageRedis:
		rc := cfg.Storage.Redis
		prefix := rc.Prefix
		if prefix == "" {
			prefix = "cairn:"
		}
		client := goredis.NewClient(&goredis.Options{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
		})
		store := redis.NewFromClient(client, redis.WithPrefix(prefix))
		app.Locker = redis.NewLocker(client, prefix)
		app.closers = append(app.closers, client.Close)
		engineOpts = append(engineOpts,
			cairn.WithSnapshotStore(store),
			cairn.WithEventStore(store),
		)
	}

	engine, err := cairn.New(engineOpts...)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("initialize engine: %w", err)
	}
	app.Engine = engine
	return app, nil
}

// HasStorage reports whether weights can be persisted.
func (a *App) HasStorage() bool {
	return a.Config.Storage.Type == StorageFile || a.Config.Storage.Type == StorageRedis
}

// Close releases storage connections.
func (a *App) Close() {
	for _, fn := range a.closers {
		if err := fn(); err != nil {
			a.Logger.Warn("close failed", "err", err)
		}
	}
}

// engineOptions translates the config section into engine options,
// leaving engine defaults in place for zero values.
func (cfg EngineConfig) engineOptions() []cairn.Option {
	var opts []cairn.Option
	if cfg.ModelID != "" {
		opts = append(opts, cairn.WithModelID(cfg.ModelID))
	}
	if cfg.PredictionCount > 0 {
		opts = append(opts, cairn.WithPredictionCount(cfg.PredictionCount))
	}
	if cfg.WarmupThreshold > 0 {
		opts = append(opts, cairn.WithWarmupThreshold(cfg.WarmupThreshold))
	}
	if cfg.SessionTimeout > 0 {
		opts = append(opts, cairn.WithSessionTimeout(cfg.SessionTimeout))
	}
	if cfg.ChainLimit > 0 {
		opts = append(opts, cairn.WithChainLimit(cfg.ChainLimit))
	}
	if cfg.TruncateLimit > 0 {
		opts = append(opts, cairn.WithTruncateLimit(cfg.TruncateLimit))
	}
	if cfg.Validation != nil {
		opts = append(opts, cairn.WithValidation(*cfg.Validation))
	}
	if cfg.SessionTracking != nil {
		opts = append(opts, cairn.WithSessionTracking(*cfg.SessionTracking))
	}
	return opts
}
