// Package metrics provides real-time metrics tracking for the engine.
package metrics

import (
	"sync"
	"time"

	"github.com/polysentinel/engine/internal/store"
)

// Snapshot is a point-in-time view of engine metrics.
type Snapshot struct {
	TradesIngested    int64
	SnapshotsIngested int64
	ScansCompleted    int64
	EntitiesScanned   int64
	EntitiesSkipped   int64
	AlertsByTier      map[store.Tier]int64
	LastScanDuration  time.Duration
	LastScanAt        time.Time
	MarketsTracked    int
	WalletsTracked    int
	CreatorsTracked   int
	WebSocketStatus   string
	Uptime            time.Duration
}

// Tracker provides thread-safe metrics tracking.
type Tracker struct {
	mu                sync.RWMutex
	tradesIngested    int64
	snapshotsIngested int64
	scansCompleted    int64
	entitiesScanned   int64
	entitiesSkipped   int64
	alertsByTier      map[store.Tier]int64
	lastScanDuration  time.Duration
	lastScanAt        time.Time
	marketsTracked    int
	walletsTracked    int
	creatorsTracked   int
	wsStatus          string
	startTime         time.Time
}

// NewTracker creates a new Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		alertsByTier: make(map[store.Tier]int64),
		wsStatus:     "disconnected",
		startTime:    time.Now(),
	}
}

// IncrementTrades counts one ingested trade.
func (t *Tracker) IncrementTrades() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tradesIngested++
}

// AddSnapshots counts n ingested market snapshots.
func (t *Tracker) AddSnapshots(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snapshotsIngested += int64(n)
}

// IncrementScanned counts one scored entity.
func (t *Tracker) IncrementScanned() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entitiesScanned++
}

// IncrementSkipped counts one entity skipped due to a data failure.
func (t *Tracker) IncrementSkipped() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entitiesSkipped++
}

// IncrementAlert counts one emitted alert by tier.
func (t *Tracker) IncrementAlert(tier store.Tier) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.alertsByTier[tier]++
}

// ScanCompleted records the completion of one full scan cycle.
func (t *Tracker) ScanCompleted(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scansCompleted++
	t.lastScanDuration = duration
	t.lastScanAt = time.Now()
}

// SetStoreCounts records the current history store sizes.
func (t *Tracker) SetStoreCounts(markets, wallets, creators int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.marketsTracked = markets
	t.walletsTracked = wallets
	t.creatorsTracked = creators
}

// SetWebSocketStatus records the live feed connection state.
func (t *Tracker) SetWebSocketStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.wsStatus = status
}

// Snapshot returns a copy of the current metrics.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	byTier := make(map[store.Tier]int64, len(t.alertsByTier))
	for tier, count := range t.alertsByTier {
		byTier[tier] = count
	}

	return Snapshot{
		TradesIngested:    t.tradesIngested,
		SnapshotsIngested: t.snapshotsIngested,
		ScansCompleted:    t.scansCompleted,
		EntitiesScanned:   t.entitiesScanned,
		EntitiesSkipped:   t.entitiesSkipped,
		AlertsByTier:      byTier,
		LastScanDuration:  t.lastScanDuration,
		LastScanAt:        t.lastScanAt,
		MarketsTracked:    t.marketsTracked,
		WalletsTracked:    t.walletsTracked,
		CreatorsTracked:   t.creatorsTracked,
		WebSocketStatus:   t.wsStatus,
		Uptime:            time.Since(t.startTime),
	}
}
