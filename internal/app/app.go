// Package app assembles the metadata store, component manifests, handler
// registry, and render engine into one runnable application.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ccmdi/blockkit/internal/ctxlog"
	"github.com/ccmdi/blockkit/internal/engine"
	"github.com/ccmdi/blockkit/internal/handlers"
	"github.com/ccmdi/blockkit/internal/manifest"
	"github.com/ccmdi/blockkit/internal/metadata"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	config    *Config
	store     *metadata.MemStore
	manifests *manifest.Set
	engine    *engine.Engine
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger, metadata
// store, and instance registry.
func NewApp(outW io.Writer, cfg *Config, modules ...handlers.Module) (*App, error) {
	logger := newLogger(cfg, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	store, err := metadata.LoadDir(ctx, cfg.VaultPath)
	if err != nil {
		return nil, fmt.Errorf("loading vault: %w", err)
	}
	logger.Debug("Vault loaded.", "documents", len(store.Documents()))

	if len(modules) == 0 {
		modules = coreModules
	}
	h := handlers.New()
	var components []*manifest.Component
	for _, mod := range modules {
		mod.Register(h)
		parsed, err := manifest.ParseBytes(ctx, mod.Manifest(), "embedded manifest")
		if err != nil {
			return nil, fmt.Errorf("parsing embedded manifest: %w", err)
		}
		components = append(components, parsed...)
	}
	logger.Debug("All widget modules registered.", "count", len(modules))

	if cfg.ManifestsPath != "" {
		extra, err := manifest.LoadDir(ctx, cfg.ManifestsPath)
		if err != nil {
			return nil, err
		}
		components = append(components, extra.All()...)
	}
	set, err := manifest.NewSet(components...)
	if err != nil {
		return nil, err
	}

	eng := engine.New(engine.Options{
		Manifests: set,
		Handlers:  h,
		Store:     store,
		Bus:       store,
	})
	if err := eng.Validate(); err != nil {
		// A mismatch between registered handlers and manifests is a
		// programmer error.
		panic(err)
	}
	logger.Debug("Manifest and handler parity validated.")

	return &App{
		outW:      outW,
		logger:    logger,
		config:    cfg,
		store:     store,
		manifests: set,
		engine:    eng,
	}, nil
}

// Engine returns the application's render engine.
func (a *App) Engine() *engine.Engine { return a.engine }

// Store returns the application's metadata store.
func (a *App) Store() *metadata.MemStore { return a.store }

// Manifests returns the loaded component manifests.
func (a *App) Manifests() *manifest.Set { return a.manifests }

// Context returns a background context carrying the app's logger.
func (a *App) Context() context.Context {
	return ctxlog.WithLogger(context.Background(), a.logger)
}

// Close destroys every live instance.
func (a *App) Close() {
	a.engine.Close()
}
