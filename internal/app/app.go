// Package app wires configuration, storage, curricula and the engine into
// one runnable application. The CLI layer calls in here and nothing below
// it knows about flags or files.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/rkodali/adept/internal/config"
	"github.com/rkodali/adept/internal/curriculum"
	"github.com/rkodali/adept/internal/engine"
	"github.com/rkodali/adept/internal/store"
)

// Options configures application startup. Empty fields fall back to
// defaults: the standard data directory for DBPath, no config file, no
// curricula directory.
type Options struct {
	DBPath       string
	ConfigPath   string
	CurriculaDir string
	Logger       *zap.Logger
}

// App owns the open store and the wired engine.
type App struct {
	Engine *engine.Engine
	Store  *store.Store
	Config config.Tunables

	log *zap.Logger
}

// New opens storage, loads configuration and curricula, and builds the
// engine. Call Close when done.
func New(opts Options) (*App, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	if err := store.EnsureDir(dbPath); err != nil {
		return nil, err
	}

	st, err := store.Open(dbPath, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	curricula := map[string]*curriculum.Path{}
	if opts.CurriculaDir != "" {
		curricula, err = curriculum.LoadDir(opts.CurriculaDir)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("load curricula: %w", err)
		}
		log.Debug("curricula loaded", zap.Int("paths", len(curricula)))
	}

	eng, err := engine.New(engine.Options{
		Store:     st,
		Curricula: curricula,
		Config:    cfg,
		Logger:    log,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	return &App{
		Engine: eng,
		Store:  st,
		Config: cfg,
		log:    log,
	}, nil
}

// Close flushes the logger and releases the application's resources.
func (a *App) Close() error {
	_ = a.log.Sync()
	return a.Store.Close()
}
