package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/d8349565/clipboard/internal/app"
	"github.com/d8349565/clipboard/internal/clipboard"
	"github.com/d8349565/clipboard/internal/config"
	"github.com/d8349565/clipboard/internal/database"
	"github.com/d8349565/clipboard/internal/favorites"
	"github.com/d8349565/clipboard/internal/history"
	"github.com/d8349565/clipboard/internal/logging"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath, err := config.DefaultConfigPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logging.Setup(logging.ParseFormat(cfg.LogFormat), logging.ParseLevel(cfg.LogLevel))

	codec, err := clipboard.NewSystemCodec()
	if err != nil {
		return fmt.Errorf("failed to open system clipboard: %w", err)
	}
	engine := clipboard.NewEngine(codec, cfg.MaxImageBytes)

	listener := clipboard.NewListener(
		engine.Capture,
		clipboard.SystemTargetFactory(),
		time.Duration(cfg.DebounceMs)*time.Millisecond,
	)

	hist, err := history.New(cfg.MaxItems)
	if err != nil {
		return err
	}

	favPath, err := config.DefaultFavoritesPath()
	if err != nil {
		return err
	}

	var repo app.Repository
	dbPath := cfg.DBPath
	if dbPath == "" {
		if dbPath, err = config.DefaultDBPath(); err != nil {
			return err
		}
	}
	if r, err := database.NewRepository(dbPath); err != nil {
		slog.Warn("history database unavailable, persistence disabled", "path", dbPath, "error", err)
	} else {
		repo = r
	}

	a, err := app.New(app.Options{
		Config:     cfg,
		ConfigPath: configPath,
		History:    hist,
		Favorites:  favorites.NewStore(favPath),
		Repository: repo,
		Clipboard:  engine,
		Monitor:    listener,
	})
	if err != nil {
		return err
	}

	if err := a.Start(); err != nil {
		return err
	}
	defer a.Close()
	slog.Info("clipboard history running", "max_items", cfg.MaxItems, "persist", cfg.PersistEnabled)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	slog.Info("shutting down")
	return nil
}
