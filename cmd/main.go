package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/catalogue"
	"github.com/desertthunder/spindle/internal/history"
	"github.com/desertthunder/spindle/internal/ratelimit"
	"github.com/desertthunder/spindle/internal/scheduler"
	"github.com/desertthunder/spindle/internal/shared"
	"github.com/desertthunder/spindle/internal/taskstore"
	"github.com/desertthunder/spindle/internal/watch"
	"github.com/desertthunder/spindle/internal/worker"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	configPath := "config.toml"
	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loaded, err := shared.LoadConfig(configPath); err == nil {
			config = loaded
		} else {
			logger.Warn("failed to load config, using defaults", "error", err)
		}
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		logger.Fatalf("failed to open database: %v", err)
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	historyStore, err := history.Open(db, logger)
	if err != nil {
		logger.Fatalf("failed to open history store: %v", err)
	}

	watchStore, err := watch.Open(db, logger)
	if err != nil {
		logger.Fatalf("failed to open watch store: %v", err)
	}

	store := taskstore.NewMemoryStore()
	taskLog := taskstore.NewTaskLog(store)
	limiter := ratelimit.New(context.Background(), store, config.RateLimit, logger)

	providers := []catalogue.Provider{catalogue.NewDeezerProvider()}
	if config.Credentials.Spotify.ClientID != "" && config.Credentials.Spotify.ClientSecret != "" {
		spotifyProvider, err := catalogue.NewSpotifyProvider(config.Credentials.Spotify)
		if err != nil {
			logger.Warn("failed to initialize spotify provider", "error", err)
		} else {
			providers = append(providers, spotifyProvider)
		}
	}
	catalogueSvc := catalogue.NewService(limiter, store, logger, providers...)

	worker := worker.New(store, historyStore, unavailableFetchLibrary{}, config.Scheduler, logger)
	schedulerMgr := scheduler.New(store, config.Scheduler, worker, logger)

	outputRoot := filepath.Dir(config.Scheduler.IncompleteDownloadFolder)
	if outputRoot == "" || outputRoot == "." {
		outputRoot = "./downloads"
	}
	reconciler := watch.NewReconciler(watchStore, catalogueSvc, schedulerMgr, config.Watch, config.Scheduler, outputRoot, logger)
	watchEngine := watch.NewEngine(reconciler, watchStore, config.Watch, logger)

	runner := NewRunner(RunnerConfig{
		Config:       config,
		Logger:       logger,
		DB:           db,
		Store:        store,
		CatalogueSvc: catalogueSvc,
		Limiter:      limiter,
		HistoryStore: historyStore,
		Scheduler:    schedulerMgr,
		WatchStore:   watchStore,
		WatchEngine:  watchEngine,
	})

	app := &cli.Command{
		Name:     "spindle",
		Usage:    "Orchestrate Spotify and Deezer downloads",
		Version:  "1.0.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		unwrapped := errors.Unwrap(err)
		if errors.Is(unwrapped, shared.ErrNotImplemented) || errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
