// Package scan orchestrates batch scoring of markets, wallets, and market
// creations. Each entity is scored independently on a bounded worker pool;
// one entity's data failure never aborts the scan.
package scan

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/polysentinel/engine/internal/config"
	"github.com/polysentinel/engine/internal/detector"
	"github.com/polysentinel/engine/internal/history"
	"github.com/polysentinel/engine/internal/metrics"
	"github.com/polysentinel/engine/internal/store"
)

// Scanner scores batches of entities against the history provider.
type Scanner struct {
	cfg      *config.Config
	provider history.Provider
	scorer   *detector.MarketScorer
	tracker  *metrics.Tracker
}

// New creates a Scanner.
func New(cfg *config.Config, provider history.Provider, scorer *detector.MarketScorer, tracker *metrics.Tracker) *Scanner {
	return &Scanner{
		cfg:      cfg,
		provider: provider,
		scorer:   scorer,
		tracker:  tracker,
	}
}

// ScanMarkets scores every market snapshot above the minimum volume and
// returns alerts above the minimum score, highest first.
func (s *Scanner) ScanMarkets(ctx context.Context, markets []store.MarketSnapshot) []store.AlertReport {
	eligible := make([]store.MarketSnapshot, 0, len(markets))
	for _, m := range markets {
		if m.Volume24h >= s.cfg.MinVolumeUSD {
			eligible = append(eligible, m)
		}
	}

	return s.run(ctx, len(eligible), func(i int) (store.AlertReport, bool) {
		return s.scoreMarket(eligible[i])
	})
}

// ScanWallets scores the given wallets and returns alerts above the minimum
// score, highest first.
func (s *Scanner) ScanWallets(ctx context.Context, wallets []string) []store.AlertReport {
	return s.run(ctx, len(wallets), func(i int) (store.AlertReport, bool) {
		return s.scoreWallet(wallets[i])
	})
}

// ScanCreations scores the given creation records and returns alerts above
// the minimum score, highest first.
func (s *Scanner) ScanCreations(ctx context.Context, records []store.CreationRecord) []store.AlertReport {
	return s.run(ctx, len(records), func(i int) (store.AlertReport, bool) {
		return s.scoreCreation(records[i])
	})
}

// run scores n entities on the worker pool and collects qualifying alerts.
func (s *Scanner) run(ctx context.Context, n int, score func(i int) (store.AlertReport, bool)) []store.AlertReport {
	sem := make(chan struct{}, s.cfg.WorkerCount)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var alerts []store.AlertReport

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			slog.Warn("scan_interrupted", "scored", i, "total", n)
			wg.Wait()
			return sortAlerts(alerts)
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			report, ok := score(i)
			s.tracker.IncrementScanned()
			if !ok {
				return
			}
			s.tracker.IncrementAlert(report.Tier)

			mu.Lock()
			alerts = append(alerts, report)
			mu.Unlock()
		}(i)
	}

	wg.Wait()
	return sortAlerts(alerts)
}

// scoreMarket materializes one market's history and scores it.
func (s *Scanner) scoreMarket(snap store.MarketSnapshot) (store.AlertReport, bool) {
	volumes, err := s.provider.VolumeHistory(snap.ConditionID, s.cfg.VolumeWindow())
	if err != nil {
		s.skip("market", snap.ConditionID, err)
		return store.AlertReport{}, false
	}

	prices, err := s.provider.PriceHistory(snap.ConditionID, s.cfg.PriceWindow())
	if err != nil {
		s.skip("market", snap.ConditionID, err)
		return store.AlertReport{}, false
	}

	trades, err := s.provider.MarketTrades(snap.ConditionID, s.cfg.WalletWindow())
	if err != nil {
		s.skip("market", snap.ConditionID, err)
		return store.AlertReport{}, false
	}

	report := s.scorer.ScoreMarket(snap, volumes, prices, trades)
	return report, report.Score > s.cfg.MinAlertScore
}

// scoreWallet materializes one wallet's trades and outcomes and scores it.
func (s *Scanner) scoreWallet(wallet string) (store.AlertReport, bool) {
	trades, err := s.provider.WalletTrades(wallet, s.cfg.WalletWindow())
	if err != nil {
		s.skip("wallet", wallet, err)
		return store.AlertReport{}, false
	}

	outcomes, err := s.provider.TradeOutcomes(wallet)
	if err != nil {
		s.skip("wallet", wallet, err)
		return store.AlertReport{}, false
	}

	markets := make(map[string]store.MarketSnapshot)
	for _, t := range trades {
		if _, seen := markets[t.ConditionID]; !seen {
			if snap, ok := s.provider.Market(t.ConditionID); ok {
				markets[t.ConditionID] = snap
			}
		}
	}
	for _, o := range outcomes {
		if _, seen := markets[o.ConditionID]; !seen {
			if snap, ok := s.provider.Market(o.ConditionID); ok {
				markets[o.ConditionID] = snap
			}
		}
	}

	walletReport := s.scorer.Profiler().Report(wallet, trades, outcomes, markets)
	report := s.scorer.WalletAlert(walletReport)
	return report, report.Score > s.cfg.MinAlertScore
}

// scoreCreation materializes a creator's history and scores one record.
func (s *Scanner) scoreCreation(rec store.CreationRecord) (store.AlertReport, bool) {
	creatorHistory, err := s.provider.CreationHistory(rec.CreatorAddress)
	if err != nil {
		s.skip("creation", rec.ConditionID, err)
		return store.AlertReport{}, false
	}

	report := s.scorer.CreationAlert(s.scorer.Creation().Analyze(rec, creatorHistory))
	return report, report.Score > s.cfg.MinAlertScore
}

// skip logs a per-entity failure and counts it; the scan continues.
func (s *Scanner) skip(kind, id string, err error) {
	s.tracker.IncrementSkipped()
	slog.Warn("entity_skipped", "kind", kind, "id", id, "error", err)
}

// sortAlerts orders alerts by score descending (stable for equal scores).
func sortAlerts(alerts []store.AlertReport) []store.AlertReport {
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Score > alerts[j].Score
	})
	return alerts
}
