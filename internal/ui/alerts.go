package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/polysentinel/engine/internal/store"
)

// AlertFeedView displays scored alerts, newest first, colored by tier.
type AlertFeedView struct {
	list     *tview.List
	alerts   []store.AlertReport
	maxItems int
}

// NewAlertFeedView creates the alert feed panel.
func NewAlertFeedView() *AlertFeedView {
	list := tview.NewList().
		ShowSecondaryText(true)

	list.SetTitle(" 🚨 Alerts ").SetBorder(true)
	list.SetMainTextColor(tcell.ColorWhite)

	return &AlertFeedView{
		list:     list,
		alerts:   make([]store.AlertReport, 0, 50),
		maxItems: 50,
	}
}

// Widget returns the tview primitive.
func (v *AlertFeedView) Widget() tview.Primitive {
	return v.list
}

// AddAlert prepends a new alert and redraws.
func (v *AlertFeedView) AddAlert(alert store.AlertReport) {
	v.alerts = append([]store.AlertReport{alert}, v.alerts...)
	if len(v.alerts) > v.maxItems {
		v.alerts = v.alerts[:v.maxItems]
	}
	v.rebuildList()
}

// Refresh redraws the list.
func (v *AlertFeedView) Refresh() {
	v.rebuildList()
}

func (v *AlertFeedView) rebuildList() {
	v.list.Clear()

	if len(v.alerts) == 0 {
		v.list.AddItem("No alerts yet", "", 0, nil)
		return
	}

	for _, alert := range v.alerts {
		mainText, secondaryText := formatAlert(alert)
		v.list.AddItem(mainText, secondaryText, 0, nil)
	}

	v.list.SetTitle(fmt.Sprintf(" 🚨 Alerts (%d) ", len(v.alerts)))
}

// formatAlert renders one alert as a list item.
func formatAlert(alert store.AlertReport) (string, string) {
	var icon, color string
	switch alert.Tier {
	case store.TierExtreme:
		icon, color = "🔴", "red"
	case store.TierHigh:
		icon, color = "🟠", "orange"
	case store.TierModerate:
		icon, color = "🟡", "yellow"
	default:
		icon, color = "⚪", "white"
	}

	timeStr := alert.GeneratedAt.Format("15:04:05")

	mainText := fmt.Sprintf("%s %s [%s]%s %.0f/100[-]",
		timeStr, icon, color, alert.Tier, alert.Score)

	secondaryText := fmt.Sprintf("%s %s", alert.SubjectType, truncateID(alert.SubjectID))
	if len(alert.Reasons) > 0 {
		secondaryText += " | " + alert.Reasons[0]
	}

	return mainText, secondaryText
}

// truncateID shortens a condition ID or wallet address for display.
func truncateID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:6] + "..." + id[len(id)-4:]
}
