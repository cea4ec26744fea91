package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/bitfsorg/settle-go/archive"
	"github.com/bitfsorg/settle-go/config"
	"github.com/bitfsorg/settle-go/profitshare"
)

// env is the per-invocation runtime: configuration, logger and any opened
// storage. close releases everything in reverse order.
type env struct {
	cfg     config.Config
	logger  *slog.Logger
	closers []func() error
}

func (e *env) close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

func (o *RootOptions) configPath() string {
	if o.ConfigFile != "" {
		return o.ConfigFile
	}
	return config.ConfigPath(o.dataDir())
}

func (o *RootOptions) dataDir() string {
	if o.DataDir != "" {
		return o.DataDir
	}
	return config.DefaultDataDir()
}

// loadConfig reads the configuration file, falling back to defaults when
// none exists, then applies flag overrides and validates.
func (o *RootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath())
	if errors.Is(err, config.ErrConfigNotFound) {
		cfg = config.DefaultConfig()
		err = nil
	}
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "load config", err)
	}
	if o.DataDir != "" {
		cfg.DataDir = o.DataDir
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid config", err)
	}
	return cfg, nil
}

// openEnv loads the configuration and builds the logger. Log output goes to
// the configured log file, or stderr.
func (o *RootOptions) openEnv(stderr io.Writer) (*env, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg}

	w := stderr
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "open log file", err)
		}
		e.closers = append(e.closers, f.Close)
		w = f
	}
	e.logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	return e, nil
}

// openBackend opens the configured rule backend, wrapped in an LRU cache
// when CacheSize is positive.
func (e *env) openBackend() (profitshare.Backend, error) {
	var backend profitshare.Backend
	switch e.cfg.Backend {
	case config.BackendMemory:
		backend = profitshare.NewMemBackend()
	case config.BackendBolt:
		b, err := profitshare.OpenBoltBackend(e.cfg.RulesPath())
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "open rule store", err)
		}
		e.closers = append(e.closers, b.Close)
		backend = b
	case config.BackendPebble:
		b, err := profitshare.OpenPebbleBackend(e.cfg.RulesPath())
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "open rule store", err)
		}
		e.closers = append(e.closers, b.Close)
		backend = b
	default:
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown backend %q", e.cfg.Backend))
	}

	if e.cfg.CacheSize > 0 {
		cached, err := profitshare.NewCachedBackend(backend, e.cfg.CacheSize)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "rule cache", err)
		}
		backend = cached
	}
	return backend, nil
}

// openJournal opens the archive journal, or returns nil when archiving is
// disabled.
func (e *env) openJournal() (*archive.Journal, error) {
	if e.cfg.ArchiveDir == "" {
		return nil, nil
	}
	j, err := archive.OpenJournal(e.cfg.ArchiveDir, e.logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open archive", err)
	}
	return j, nil
}

// openStore opens the rule store administered by the configured admin.
// Rule changes are journaled when archiving is enabled.
func (e *env) openStore() (*profitshare.Store, error) {
	admin, err := e.cfg.AdminID()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "rule store administrator", err)
	}
	backend, err := e.openBackend()
	if err != nil {
		return nil, err
	}
	opts := []profitshare.Option{profitshare.WithLogger(e.logger)}
	j, err := e.openJournal()
	if err != nil {
		return nil, err
	}
	if j != nil {
		opts = append(opts, profitshare.WithListener(j.Listener()))
	}
	store, err := profitshare.NewStore(admin, backend, opts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open rule store", err)
	}
	return store, nil
}
