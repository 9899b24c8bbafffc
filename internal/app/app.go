// Package app wires the single tracking engine and its collaborators.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hpungsan/dwell/internal/bridge"
	"github.com/hpungsan/dwell/internal/browser"
	"github.com/hpungsan/dwell/internal/clock"
	"github.com/hpungsan/dwell/internal/config"
	"github.com/hpungsan/dwell/internal/db"
	"github.com/hpungsan/dwell/internal/logging"
	"github.com/hpungsan/dwell/internal/screenshot"
	"github.com/hpungsan/dwell/internal/tracker"
)

// Services is everything the MCP and HTTP surfaces route commands to.
type Services struct {
	Config      *config.Config
	Log         *slog.Logger
	Clock       clock.Clock
	DB          *sql.DB
	Store       db.Store
	Tabs        *browser.Registry
	Bridge      *bridge.Dispatcher
	Screenshots *screenshot.Manager
	Engine      *tracker.Engine
}

// DefaultBaseDir returns ~/.dwell.
func DefaultBaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".dwell"), nil
}

// Open loads config from baseDir, opens the database and builds the service
// graph. The engine is not initialized; call Start.
func Open(baseDir string) (*Services, error) {
	cfg, err := config.Load(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.New(cfg)

	database, err := db.Init(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	db.ConfigurePool(database, cfg)

	return New(database, db.NewKV(database), cfg, clock.System{}, logger), nil
}

// New builds the service graph over an existing store.
func New(database *sql.DB, store db.Store, cfg *config.Config, clk clock.Clock, logger *slog.Logger) *Services {
	if logger == nil {
		logger = slog.Default()
	}
	tabs := browser.NewRegistry()
	br := bridge.NewDispatcher(logger.With(slog.String("component", "bridge")))
	shots := screenshot.NewManager(store, br, tabs, cfg, clk, logger.With(slog.String("component", "screenshot")))
	engine := tracker.New(store, tabs, cfg, tracker.Options{
		Clock:   clk,
		Capture: shots,
		Logger:  logger.With(slog.String("component", "tracker")),
	})
	return &Services{
		Config:      cfg,
		Log:         logger,
		Clock:       clk,
		DB:          database,
		Store:       store,
		Tabs:        tabs,
		Bridge:      br,
		Screenshots: shots,
		Engine:      engine,
	}
}

// Start runs engine recovery. Mutating commands are refused until it returns.
func (s *Services) Start(ctx context.Context) error {
	return s.Engine.Init(ctx)
}

// Close stops background work and closes the database. An open tracking
// session stays persisted and is recovered on the next Start.
func (s *Services) Close() error {
	s.Engine.OnSuspend(context.Background())
	s.Engine.Close()
	if err := s.Screenshots.End(context.Background()); err != nil {
		s.Log.Warn("screenshot end failed", slog.String("error", err.Error()))
	}
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}
