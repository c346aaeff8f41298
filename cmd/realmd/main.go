// Command realmd serves the realm library and its editing sessions over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/talgya/hexrealm/internal/api"
	"github.com/talgya/hexrealm/internal/config"
	"github.com/talgya/hexrealm/internal/editor"
	"github.com/talgya/hexrealm/internal/entropy"
	"github.com/talgya/hexrealm/internal/persistence"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(config.NewLogger(os.Stdout, cfg.Level(), cfg.LogFormat))

	if err := run(cfg); err != nil {
		slog.Error("realmd stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	realms, err := db.ListRealms()
	if err != nil {
		return fmt.Errorf("list realms: %w", err)
	}
	slog.Info("database opened", "path", cfg.DBPath, "realms", len(realms))
	if last, err := db.GetMeta("last_shutdown"); err == nil {
		if ts, err := strconv.ParseInt(last, 10, 64); err == nil {
			slog.Info("previous run ended", "when", humanize.Time(time.Unix(ts, 0)))
		}
	}

	// ── Seed entropy ──────────────────────────────────────────────────
	ent := entropy.NewClient(cfg.RandomOrgKey)
	if ent.Enabled() {
		slog.Info("random.org seed entropy enabled")
	} else {
		slog.Info("RANDOM_ORG_API_KEY not set, seeds come from crypto/rand")
	}

	if cfg.AdminKey == "" {
		slog.Warn("REALM_ADMIN_KEY not set, admin POST endpoints will be disabled")
	}

	// ── HTTP API + autosave ───────────────────────────────────────────
	registry := editor.NewRegistry()
	saver := persistence.NewSaver(db, registry)
	server := &api.Server{
		Registry:     registry,
		DB:           db,
		Entropy:      ent,
		Port:         cfg.Port,
		AdminKey:     cfg.AdminKey,
		RelayKey:     cfg.RelayKey,
		CORSOrigins:  cfg.CORSOrigins,
		GenerateRate: cfg.GenerateRate,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		return saver.Run(gctx, cfg.SaveInterval)
	})

	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Port)
	err = g.Wait()

	if metaErr := db.SaveMeta("last_shutdown", strconv.FormatInt(time.Now().Unix(), 10)); metaErr != nil {
		slog.Error("failed to record shutdown", "error", metaErr)
	}
	if err != nil {
		return err
	}
	slog.Info("realmd stopped, realms saved")
	return nil
}
