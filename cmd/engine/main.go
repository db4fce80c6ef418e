// Package main is the entry point for the Polysentinel surveillance engine.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/polysentinel/engine/internal/config"
	"github.com/polysentinel/engine/internal/detector"
	"github.com/polysentinel/engine/internal/history"
	"github.com/polysentinel/engine/internal/ingest"
	"github.com/polysentinel/engine/internal/metrics"
	"github.com/polysentinel/engine/internal/report"
	"github.com/polysentinel/engine/internal/scan"
	"github.com/polysentinel/engine/internal/store"
	"github.com/polysentinel/engine/internal/ui"
)

const (
	// TradeChannelBuffer is the size of the buffered trade channel
	TradeChannelBuffer = 1000
	// AlertChannelBuffer is the size of the buffered alert channel
	AlertChannelBuffer = 100
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	slog.Info("polysentinel starting", "version", "1.0.0")

	slog.Info("config_loaded",
		"gamma_api_url", cfg.GammaAPIURL,
		"polymarket_ws_url", cfg.PolymarketWSURL,
		"market_limit", cfg.MarketLimit,
		"scan_interval", cfg.ScanInterval,
		"min_volume_usd", cfg.MinVolumeUSD,
		"min_alert_score", cfg.MinAlertScore,
		"worker_count", cfg.WorkerCount,
		"data_path", cfg.DataPath,
		"export_dir", cfg.ExportDir,
		"enable_tui", cfg.EnableTUI,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	tradeChan := make(chan store.WalletTrade, TradeChannelBuffer)
	alertChan := make(chan store.AlertReport, AlertChannelBuffer)

	tracker := metrics.NewTracker()

	db := history.NewMemoryStore(cfg.MaxSamples, cfg.DataPath)
	if err := db.Load(); err != nil {
		slog.Warn("history_load_failed", "path", cfg.DataPath, "error", err)
	}

	scorer := detector.NewMarketScorer(detector.DefaultWeights())
	scanner := scan.New(cfg, db, scorer, tracker)

	exporter, err := report.NewExporter(cfg.ExportDir)
	if err != nil {
		slog.Error("failed to create exporter", "error", err)
		os.Exit(1)
	}

	gamma := ingest.NewGammaClient(cfg.GammaAPIURL)

	// Initial market fetch so the first scan has snapshots to work with
	refreshMarkets(ctx, gamma, db, tracker, cfg.MarketLimit)

	// Start WebSocket listener for the live trade stream
	listener := ingest.NewListener(cfg.PolymarketWSURL, tradeChan)
	listener.OnStatus = tracker.SetWebSocketStatus
	listener.Start(ctx)

	// Worker pool records incoming trades into history
	for i := 0; i < cfg.WorkerCount; i++ {
		go tradeWorker(ctx, i, tradeChan, db, tracker)
	}

	// Periodic scan cycle
	go func() {
		ticker := time.NewTicker(cfg.ScanInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				refreshMarkets(ctx, gamma, db, tracker, cfg.MarketLimit)
				runScanCycle(ctx, cfg, db, scanner, exporter, tracker, alertChan)
			}
		}
	}()

	// Periodic persistence
	go func() {
		ticker := time.NewTicker(cfg.PersistInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := db.Save(); err != nil {
					slog.Warn("history_save_failed", "error", err)
				}
			}
		}
	}()

	slog.Info("engine_started",
		"status", "scanning",
		"scan_interval", cfg.ScanInterval,
		"workers", cfg.WorkerCount,
		"tui_enabled", cfg.EnableTUI,
	)

	if cfg.EnableTUI {
		slog.Info("starting_tui")
		app := ui.NewApp(alertChan, tracker, cfg.UIRefreshRate)

		go func() {
			if err := app.Run(); err != nil {
				slog.Error("tui_error", "error", err)
				cancel()
			}
		}()

		select {
		case sig := <-sigChan:
			slog.Info("shutdown_signal_received", "signal", sig.String())
			app.Stop()
		case <-ctx.Done():
			app.Stop()
		}
	} else {
		sig := <-sigChan
		slog.Info("shutdown_signal_received", "signal", sig.String())
	}

	cancel()

	slog.Info("shutting_down", "status", "stopping listener")
	listener.Stop()

	drainTrades(tradeChan, db)

	if err := db.Save(); err != nil {
		slog.Error("history_save_failed", "error", err)
	}

	slog.Info("shutdown_complete")
}

// refreshMarkets fetches the current active markets and records snapshots.
func refreshMarkets(ctx context.Context, gamma *ingest.GammaClient, db *history.MemoryStore, tracker *metrics.Tracker, limit int) {
	rows, err := gamma.FetchActiveMarkets(ctx, limit)
	if err != nil {
		slog.Warn("market_fetch_failed", "error", err)
		return
	}

	now := time.Now()
	for _, row := range rows {
		db.RecordSnapshot(store.MarketSnapshot{
			ConditionID:    row.ConditionID,
			Question:       row.Question,
			Category:       row.Category,
			Volume24h:      row.Volume24h,
			Liquidity:      row.Liquidity,
			YesProbability: row.YesProbability,
			EndDate:        row.EndDate,
			CreatedAt:      row.CreatedAt,
		}, row.Creator, now)
	}
	tracker.AddSnapshots(len(rows))
}

// runScanCycle scores markets, wallets, and creations, exports the combined
// alerts, and feeds them to the UI.
func runScanCycle(ctx context.Context, cfg *config.Config, db *history.MemoryStore, scanner *scan.Scanner, exporter *report.Exporter, tracker *metrics.Tracker, alertChan chan<- store.AlertReport) {
	started := time.Now()

	alerts := scanner.ScanMarkets(ctx, db.Markets())
	alerts = append(alerts, scanner.ScanWallets(ctx, db.WalletsWithOutcomes(cfg.MinOutcomes))...)
	alerts = append(alerts, scanner.ScanCreations(ctx, db.Creations())...)

	tracker.ScanCompleted(time.Since(started))
	tracker.SetStoreCounts(db.Counts())

	slog.Info("scan_completed",
		"alerts", len(alerts),
		"duration", time.Since(started),
	)

	if len(alerts) == 0 {
		return
	}

	if _, err := exporter.ExportJSON(alerts, started); err != nil {
		slog.Warn("export_failed", "format", "json", "error", err)
	}
	if _, err := exporter.ExportCSV(alerts, started); err != nil {
		slog.Warn("export_failed", "format", "csv", "error", err)
	}

	for _, alert := range alerts {
		select {
		case alertChan <- alert:
		default:
			slog.Warn("alert_channel_full", "subject", alert.SubjectID)
		}
	}
}

// tradeWorker records incoming trades into history and updates metrics.
func tradeWorker(ctx context.Context, id int, tradeChan <-chan store.WalletTrade, db *history.MemoryStore, tracker *metrics.Tracker) {
	slog.Debug("worker_started", "id", id)
	defer slog.Debug("worker_stopped", "id", id)

	for {
		select {
		case <-ctx.Done():
			return
		case trade, ok := <-tradeChan:
			if !ok {
				return
			}
			tracker.IncrementTrades()
			db.RecordTrade(trade)
		}
	}
}

// drainTrades records remaining trades during shutdown.
func drainTrades(tradeChan <-chan store.WalletTrade, db *history.MemoryStore) {
	timeout := time.After(5 * time.Second)
	drained := 0

	for {
		select {
		case trade := <-tradeChan:
			db.RecordTrade(trade)
			drained++
		case <-timeout:
			if drained > 0 {
				slog.Info("trades_drained", "count", drained)
			}
			return
		default:
			if drained > 0 {
				slog.Info("trades_drained", "count", drained)
			}
			return
		}
	}
}

// setupLogger creates a structured logger with the specified level.
// Format: 2025-01-04 14:32:01 [INFO]  message key=value
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format("2006-01-02 15:04:05"))
				}
			}
			return a
		},
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler)
}
