// Package report builds the markdown analysis summaries shown in the TUI
// and exported alongside heatmaps.
package report

import (
	"fmt"
	"strings"

	"github.com/upskiller-xyz/daylight-tui/internal/inference"
	"github.com/upskiller-xyz/daylight-tui/internal/settings"
	"github.com/upskiller-xyz/daylight-tui/internal/store"
)

// Analysis renders the per-room result as markdown.
func Analysis(room store.Room, level store.Level, s settings.Settings, resp *inference.PredictResponse, heatmapPath string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("# Daylight Factor — %s\n\n", roomTitle(room)))
	b.WriteString(fmt.Sprintf("Level: %s (%.0f mm) • Area: %.1f m² • Windows: %.1f m²\n\n",
		level.Name, level.ElevationMM, room.Boundary.AreaM2(), room.WindowAreaM2))

	m := resp.Metrics
	b.WriteString("## Metrics\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	b.WriteString(fmt.Sprintf("| Median DF | %.2f %% |\n", m.MedianDF))
	b.WriteString(fmt.Sprintf("| Mean DF | %.2f %% |\n", m.MeanDF))
	b.WriteString(fmt.Sprintf("| Min DF | %.2f %% |\n", m.MinDF))
	b.WriteString(fmt.Sprintf("| EN 17037 (median ≥ %.1f %%) | %s |\n\n", m.Threshold, complianceWord(m.Compliant)))

	b.WriteString("## Inputs\n\n")
	b.WriteString(fmt.Sprintf("- Facade walls: %s\n", s.WallMode))
	b.WriteString(fmt.Sprintf("- Glazing transmission: %d %%\n", s.TransmissionPercent))
	b.WriteString(fmt.Sprintf("- Execution mode: %s\n", s.ExecutionMode))
	b.WriteString(fmt.Sprintf("- Grid: %d × %d cells @ %.0f mm\n", resp.Cols, resp.Rows, resp.CellSizeMM))
	if heatmapPath != "" {
		b.WriteString(fmt.Sprintf("\nHeatmap: `%s`\n", heatmapPath))
	}
	if s.WriteResults {
		b.WriteString("\nMetrics written back to the model.\n")
	}
	return b.String()
}

// PrepareSummary renders the outcome of the prepare action.
func PrepareSummary(created []string, all []store.AnalysisParam) string {
	var b strings.Builder
	b.WriteString("# Analysis Parameters\n\n")
	if len(created) == 0 {
		b.WriteString("All parameters already present.\n\n")
	} else {
		b.WriteString(fmt.Sprintf("Created %d parameter(s): %s\n\n", len(created), strings.Join(created, ", ")))
	}
	for _, p := range all {
		unit := p.Unit
		if unit == "" {
			unit = "—"
		}
		b.WriteString(fmt.Sprintf("- **%s** (%s, %s)\n", p.DisplayName, p.Key, unit))
	}
	return b.String()
}

func roomTitle(room store.Room) string {
	if room.Number != "" {
		return fmt.Sprintf("%s %s", room.Number, room.Name)
	}
	return room.Name
}

func complianceWord(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}
