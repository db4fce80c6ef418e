// Package report writes scored alerts to disk for downstream review.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/polysentinel/engine/internal/store"
)

// Exporter writes alert batches into the export directory with
// timestamped filenames.
type Exporter struct {
	dir string
}

// NewExporter creates an Exporter rooted at dir, creating it if needed.
func NewExporter(dir string) (*Exporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &Exporter{dir: dir}, nil
}

// ExportJSON writes the alerts as a JSON array and returns the file path.
func (e *Exporter) ExportJSON(alerts []store.AlertReport, at time.Time) (string, error) {
	path := filepath.Join(e.dir, fmt.Sprintf("alerts_%s.json", at.UTC().Format("20060102_150405")))

	data, err := json.MarshalIndent(alerts, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal alerts: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write alerts: %w", err)
	}

	slog.Info("alerts_exported", "format", "json", "path", path, "count", len(alerts))
	return path, nil
}

// ExportCSV writes the alerts as CSV and returns the file path. Component
// scores are flattened into a name=value list so the column set stays fixed.
func (e *Exporter) ExportCSV(alerts []store.AlertReport, at time.Time) (string, error) {
	path := filepath.Join(e.dir, fmt.Sprintf("alerts_%s.csv", at.UTC().Format("20060102_150405")))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"id", "subject_id", "subject_type", "score", "tier", "reasons", "component_scores", "generated_at"}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}

	for _, a := range alerts {
		row := []string{
			a.ID,
			a.SubjectID,
			string(a.SubjectType),
			strconv.FormatFloat(a.Score, 'f', 1, 64),
			string(a.Tier),
			strings.Join(a.Reasons, "; "),
			flattenComponents(a.ComponentScores),
			a.GeneratedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}

	slog.Info("alerts_exported", "format", "csv", "path", path, "count", len(alerts))
	return path, nil
}

// flattenComponents renders component scores as a stable name=value list.
func flattenComponents(components map[string]float64) string {
	names := make([]string, 0, len(components))
	for name := range components {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%.1f", name, components[name]))
	}
	return strings.Join(parts, " ")
}
