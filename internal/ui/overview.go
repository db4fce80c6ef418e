package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"

	"github.com/polysentinel/engine/internal/metrics"
	"github.com/polysentinel/engine/internal/store"
)

// OverviewView displays ingestion, scan, and store health.
type OverviewView struct {
	textView *tview.TextView
}

// NewOverviewView creates the overview panel.
func NewOverviewView() *OverviewView {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)

	textView.SetTitle(" Overview ").SetBorder(true)

	return &OverviewView{textView: textView}
}

// Widget returns the tview primitive.
func (v *OverviewView) Widget() tview.Primitive {
	return v.textView
}

// Update refreshes the overview display from a metrics snapshot.
func (v *OverviewView) Update(snapshot metrics.Snapshot) {
	v.textView.Clear()

	wsColor := "red"
	if snapshot.WebSocketStatus == "connected" {
		wsColor = "green"
	}

	lastScan := "never"
	if !snapshot.LastScanAt.IsZero() {
		lastScan = fmt.Sprintf("%s ago (%.1fs)",
			formatDuration(time.Since(snapshot.LastScanAt)), snapshot.LastScanDuration.Seconds())
	}

	text := fmt.Sprintf(`[yellow]System[-]
Uptime: %s
WebSocket: [%s]%s[-]

[yellow]Ingestion[-]
Trades: %d
Snapshots: %d

[yellow]Scans[-]
Completed: %d
Last: %s
Scored: %d
Skipped: %d

[yellow]Alerts[-]
Extreme: %d
High: %d
Moderate: %d
Low: %d

[yellow]Store[-]
Markets: %d
Wallets: %d
Creators: %d
`,
		formatDuration(snapshot.Uptime),
		wsColor, snapshot.WebSocketStatus,
		snapshot.TradesIngested,
		snapshot.SnapshotsIngested,
		snapshot.ScansCompleted,
		lastScan,
		snapshot.EntitiesScanned,
		snapshot.EntitiesSkipped,
		snapshot.AlertsByTier[store.TierExtreme],
		snapshot.AlertsByTier[store.TierHigh],
		snapshot.AlertsByTier[store.TierModerate],
		snapshot.AlertsByTier[store.TierLow],
		snapshot.MarketsTracked,
		snapshot.WalletsTracked,
		snapshot.CreatorsTracked,
	)

	fmt.Fprint(v.textView, text)
}

// formatDuration formats a duration in human-readable form.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
