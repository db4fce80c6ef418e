package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/polysentinel/engine/internal/store"
)

// persistVersion identifies the on-disk file layout.
const persistVersion = "1"

// MemoryStore is a thread-safe in-memory Provider with JSON file
// persistence. Sample lists are capped per key (oldest dropped first) to
// bound memory; retention beyond that cap is not this store's concern.
type MemoryStore struct {
	mu         sync.RWMutex
	markets    map[string]store.MarketSnapshot
	volumes    map[string][]store.VolumeSample
	prices     map[string][]store.PriceSample
	byWallet   map[string][]store.WalletTrade
	byMarket   map[string][]store.WalletTrade
	outcomes   map[string][]store.TradeOutcome
	creations  map[string][]store.CreationRecord
	maxSamples int
	filePath   string
}

// persistFile is the JSON layout written to disk.
type persistFile struct {
	Version   string                            `json:"version"`
	SavedAt   time.Time                         `json:"saved_at"`
	Markets   map[string]store.MarketSnapshot   `json:"markets"`
	Volumes   map[string][]store.VolumeSample   `json:"volumes"`
	Prices    map[string][]store.PriceSample    `json:"prices"`
	Trades    map[string][]store.WalletTrade    `json:"trades"`
	Outcomes  map[string][]store.TradeOutcome   `json:"outcomes"`
	Creations map[string][]store.CreationRecord `json:"creations"`
}

// NewMemoryStore creates an empty MemoryStore persisting to filePath.
func NewMemoryStore(maxSamples int, filePath string) *MemoryStore {
	return &MemoryStore{
		markets:    make(map[string]store.MarketSnapshot),
		volumes:    make(map[string][]store.VolumeSample),
		prices:     make(map[string][]store.PriceSample),
		byWallet:   make(map[string][]store.WalletTrade),
		byMarket:   make(map[string][]store.WalletTrade),
		outcomes:   make(map[string][]store.TradeOutcome),
		creations:  make(map[string][]store.CreationRecord),
		maxSamples: maxSamples,
		filePath:   filePath,
	}
}

// RecordSnapshot stores the latest market snapshot and appends volume and
// price samples for it. The first sighting of a market also logs a creation
// record so creator tendencies can be derived later.
func (m *MemoryStore) RecordSnapshot(snap store.MarketSnapshot, creator string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, seen := m.markets[snap.ConditionID]; !seen {
		m.creations[creator] = append(m.creations[creator], store.CreationRecord{
			ConditionID:       snap.ConditionID,
			CreatorAddress:    creator,
			Question:          snap.Question,
			CreationTimestamp: firstNonZero(snap.CreatedAt, at),
			EndDate:           snap.EndDate,
			InitialLiquidity:  snap.Liquidity,
		})
	}

	m.markets[snap.ConditionID] = snap
	m.volumes[snap.ConditionID] = capSamples(append(m.volumes[snap.ConditionID],
		store.VolumeSample{Value: snap.Volume24h, Timestamp: at}), m.maxSamples)
	m.prices[snap.ConditionID] = capSamples(append(m.prices[snap.ConditionID],
		store.PriceSample{Value: snap.YesProbability, Timestamp: at}), m.maxSamples)
}

// RecordTrade stores a wallet trade, indexed by wallet and by market.
func (m *MemoryStore) RecordTrade(trade store.WalletTrade) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.byWallet[trade.WalletAddress] = capSamples(append(m.byWallet[trade.WalletAddress], trade), m.maxSamples)
	m.byMarket[trade.ConditionID] = capSamples(append(m.byMarket[trade.ConditionID], trade), m.maxSamples)
}

// RecordOutcome stores a pre-matched trade outcome for a wallet.
func (m *MemoryStore) RecordOutcome(outcome store.TradeOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.outcomes[outcome.WalletAddress] = capSamples(append(m.outcomes[outcome.WalletAddress], outcome), m.maxSamples)
}

// RecordCreation stores a creation record for a creator.
func (m *MemoryStore) RecordCreation(rec store.CreationRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.creations[rec.CreatorAddress] = append(m.creations[rec.CreatorAddress], rec)
}

// VolumeHistory returns volume samples for a market within the window.
func (m *MemoryStore) VolumeHistory(conditionID string, window time.Duration) ([]store.VolumeSample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := time.Now().Add(-window)
	var out []store.VolumeSample
	for _, s := range m.volumes[conditionID] {
		if s.Timestamp.After(cutoff) {
			out = append(out, s)
		}
	}
	return out, nil
}

// PriceHistory returns price samples for a market within the window.
func (m *MemoryStore) PriceHistory(conditionID string, window time.Duration) ([]store.PriceSample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := time.Now().Add(-window)
	var out []store.PriceSample
	for _, s := range m.prices[conditionID] {
		if s.Timestamp.After(cutoff) {
			out = append(out, s)
		}
	}
	return out, nil
}

// WalletTrades returns a wallet's trades within the window.
func (m *MemoryStore) WalletTrades(wallet string, window time.Duration) ([]store.WalletTrade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterTrades(m.byWallet[wallet], window), nil
}

// MarketTrades returns all trades in a market within the window.
func (m *MemoryStore) MarketTrades(conditionID string, window time.Duration) ([]store.WalletTrade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterTrades(m.byMarket[conditionID], window), nil
}

// TradeOutcomes returns all matched outcomes for a wallet.
func (m *MemoryStore) TradeOutcomes(wallet string) ([]store.TradeOutcome, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]store.TradeOutcome, len(m.outcomes[wallet]))
	copy(out, m.outcomes[wallet])
	return out, nil
}

// CreationHistory returns all creation records for a creator.
func (m *MemoryStore) CreationHistory(creator string) ([]store.CreationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]store.CreationRecord, len(m.creations[creator]))
	copy(out, m.creations[creator])
	return out, nil
}

// Market returns the latest snapshot for a market, if known.
func (m *MemoryStore) Market(conditionID string) (store.MarketSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.markets[conditionID]
	return snap, ok
}

// Markets returns the latest snapshot of every known market.
func (m *MemoryStore) Markets() []store.MarketSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]store.MarketSnapshot, 0, len(m.markets))
	for _, snap := range m.markets {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConditionID < out[j].ConditionID })
	return out
}

// WalletsWithOutcomes returns wallets with at least min matched outcomes.
func (m *MemoryStore) WalletsWithOutcomes(min int) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	for wallet, outcomes := range m.outcomes {
		if len(outcomes) >= min {
			out = append(out, wallet)
		}
	}
	sort.Strings(out)
	return out
}

// Creations returns every recorded creation record.
func (m *MemoryStore) Creations() []store.CreationRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []store.CreationRecord
	for _, recs := range m.creations {
		out = append(out, recs...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConditionID < out[j].ConditionID })
	return out
}

// Counts returns the number of known markets, wallets, and creators.
func (m *MemoryStore) Counts() (markets, wallets, creators int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.markets), len(m.byWallet), len(m.creations)
}

// Save writes the store to disk atomically (temp file + rename).
func (m *MemoryStore) Save() error {
	m.mu.RLock()
	file := persistFile{
		Version:   persistVersion,
		SavedAt:   time.Now().UTC(),
		Markets:   m.markets,
		Volumes:   m.volumes,
		Prices:    m.prices,
		Trades:    m.byWallet,
		Outcomes:  m.outcomes,
		Creations: m.creations,
	}
	data, err := json.Marshal(file)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	dir := filepath.Dir(m.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp := m.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, m.filePath); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// Load restores the store from disk. A missing file is not an error; a
// corrupt file is reported and the store starts empty.
func (m *MemoryStore) Load() error {
	data, err := os.ReadFile(m.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read history file: %w", err)
	}

	var file persistFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse history file: %w", err)
	}
	if file.Version != persistVersion {
		slog.Warn("history_version_mismatch", "found", file.Version, "expected", persistVersion)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if file.Markets != nil {
		m.markets = file.Markets
	}
	if file.Volumes != nil {
		m.volumes = file.Volumes
	}
	if file.Prices != nil {
		m.prices = file.Prices
	}
	if file.Outcomes != nil {
		m.outcomes = file.Outcomes
	}
	if file.Creations != nil {
		m.creations = file.Creations
	}
	if file.Trades != nil {
		m.byWallet = file.Trades
		m.byMarket = make(map[string][]store.WalletTrade)
		for _, trades := range file.Trades {
			for _, t := range trades {
				m.byMarket[t.ConditionID] = append(m.byMarket[t.ConditionID], t)
			}
		}
	}

	return nil
}

// filterTrades keeps trades newer than the window cutoff.
func filterTrades(trades []store.WalletTrade, window time.Duration) []store.WalletTrade {
	cutoff := time.Now().Add(-window)
	var out []store.WalletTrade
	for _, t := range trades {
		if t.Timestamp.After(cutoff) {
			out = append(out, t)
		}
	}
	return out
}

// capSamples drops the oldest entries once a list exceeds max.
func capSamples[T any](list []T, max int) []T {
	if max > 0 && len(list) > max {
		return list[len(list)-max:]
	}
	return list
}

// firstNonZero returns a unless it is the zero time.
func firstNonZero(a, b time.Time) time.Time {
	if a.IsZero() {
		return b
	}
	return a
}
