package ui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"nudge/internal/history"
	"nudge/internal/store"
)

// TableOptions controls how history tables are drawn.
type TableOptions struct {
	// MaxCell caps the printable width of a text cell; 0 means no cap.
	MaxCell int
	// Now anchors the relative "last seen" column.
	Now time.Time
}

func (o TableOptions) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

func (o TableOptions) cell(s string) string {
	if o.MaxCell <= 0 {
		return s
	}
	return truncate.StringWithTail(s, uint(o.MaxCell), "…")
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorPurple)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

// HistoryTable renders correction events newest first.
func HistoryTable(events []store.HistoryEvent, opts TableOptions) string {
	if len(events) == 0 {
		return Muted("No corrections recorded yet")
	}
	now := opts.now()
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{
			opts.cell(e.Typo),
			opts.cell(e.Correction),
			strconv.Itoa(e.Count),
			humanize.RelTime(e.Timestamp, now, "ago", "from now"),
		})
	}
	return newTable("Typo", "Correction", "Count", "Last seen").Rows(rows...).String()
}

// RankedTable renders a frequency ranking under a one-word heading such as
// "Typo" or "Correction".
func RankedTable(heading string, ranked []history.Ranked, opts TableOptions) string {
	if len(ranked) == 0 {
		return Muted("Nothing recorded yet")
	}
	now := opts.now()
	rows := make([][]string, 0, len(ranked))
	for i, r := range ranked {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			opts.cell(r.Value),
			strconv.Itoa(r.Count),
			humanize.RelTime(r.Last, now, "ago", "from now"),
		})
	}
	return newTable("#", heading, "Count", "Last seen").Rows(rows...).String()
}

// AliasHint suggests an alias line for a command the user keeps mistyping,
// wrapped to width.
func AliasHint(a history.AliasSuggestion, width int) string {
	msg := fmt.Sprintf("You corrected %q %s. Add this to your shell profile to save the keystrokes:",
		a.Command, humanize.Comma(int64(a.Count))+" times")
	if width > 0 {
		msg = wordwrap.String(msg, width)
	}
	return msg + "\n\n    " + Command(fmt.Sprintf("alias %s='%s'", a.Name, a.Command))
}
