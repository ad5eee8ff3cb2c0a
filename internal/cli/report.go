package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/packflow/internal/engine"
	"github.com/Veraticus/packflow/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// RenderRunSummary renders the box printed at the end of `packflow run`.
func RenderRunSummary(res *engine.Result, delivered []string, elapsed time.Duration) string {
	var b strings.Builder

	kinds := make([]model.StreamKind, 0, len(res.StreamRows))
	for kind := range res.StreamRows {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	b.WriteString(Section("Input rows") + "\n")
	for _, kind := range kinds {
		fmt.Fprintf(&b, "  • %-18s %d\n", kind, res.StreamRows[kind])
	}

	b.WriteString("\n" + Section("Output tables") + "\n")
	for _, t := range res.Tables {
		fmt.Fprintf(&b, "  • %-18s %d rows\n", t.Name, t.Len())
	}

	if len(res.MassBalance) > 0 {
		tot := res.Totals()
		b.WriteString("\n" + Section(ChartIcon+" Mass balance") + "\n")
		fmt.Fprintf(&b, "  • Processed:   %s kg\n", formatKg(tot.KgProcessed))
		fmt.Fprintf(&b, "  • Exportable:  %s kg (%s)\n", formatKg(tot.KgExportable), formatRatio(tot.PctExportable))
		fmt.Fprintf(&b, "  • Discard:     %s kg (%s)\n", formatKg(tot.KgDiscard), formatRatio(tot.PctDiscard))
		fmt.Fprintf(&b, "  • Overweight:  %s kg (%s)\n", formatKg(tot.KgOverweight), formatRatio(tot.PctOverweight))
		fmt.Fprintf(&b, "  • Shrinkage:   %s kg (%s)\n", formatKg(tot.KgShrinkage), formatRatio(tot.PctShrinkage))
	}

	b.WriteString("\n")
	if n := res.Defects.Len(); n > 0 {
		b.WriteString(FormatWarning(fmt.Sprintf("%d data defects", n)) + "\n")
	} else {
		b.WriteString(FormatSuccess("No data defects") + "\n")
	}
	if len(delivered) > 0 {
		fmt.Fprintf(&b, "Delivered to: %s\n", strings.Join(delivered, ", "))
	}
	fmt.Fprintf(&b, "Time taken: %s", elapsed.Round(time.Millisecond))

	return RenderBox("Run Complete", b.String())
}

// RenderDefects renders per-kind counts followed by up to limit entries.
// A non-positive limit lists every entry.
func RenderDefects(report model.DefectReport, limit int) string {
	if report.Len() == 0 {
		return FormatSuccess("No data defects")
	}

	var b strings.Builder
	counts := report.Counts()
	for _, kind := range report.Kinds() {
		fmt.Fprintf(&b, "%s %s\n", WarningStyle.Render(fmt.Sprintf("%5d", counts[kind])), kind)
	}
	b.WriteString("\n")

	for i, d := range report.Entries {
		if limit > 0 && i == limit {
			b.WriteString(SubtleStyle.Render(fmt.Sprintf("... %d more", report.Len()-limit)) + "\n")
			break
		}
		b.WriteString(d.String() + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderRuns renders the history table.
func RenderRuns(runs []model.Run) string {
	if len(runs) == 0 {
		return FormatInfo("No runs recorded yet")
	}

	header := []string{"ID", "STARTED", "DURATION", "STATUS", "PIPELINES", "DEFECTS"}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Duration().Round(time.Second).String(),
			string(r.Status),
			strings.Join(r.Pipelines, ","),
			fmt.Sprint(r.DefectCount),
		})
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	cells := func(values []string, style lipgloss.Style) string {
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = TableCellStyle.Width(widths[i] + 2).Render(style.Render(v))
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	}

	lines := []string{TableHeaderStyle.Render(cells(header, SectionStyle))}
	for i, row := range rows {
		row[3] = StatusStyle(runs[i].Status).Render(row[3])
		lines = append(lines, cells(row, lipgloss.NewStyle()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func formatKg(v float64) string {
	s := fmt.Sprintf("%.1f", v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}

func formatRatio(r model.Ratio) string {
	if !r.Defined {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", r.Value*100)
}
