package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/mobcore/engine/mob"
)

// renderStatusBar produces a full-width inverted status line showing the
// content title, frame, simulated time and mob count.
func (m Model) renderStatusBar() string {
	e := m.console.Engine
	s := e.Session

	left := fmt.Sprintf(" %s | Frame %d | %.1fs", e.Defs.Title, s.Frame, float64(s.Frame)*e.Config.DeltaT())
	right := fmt.Sprintf("Mobs: %d ", len(s.Mobs()))
	if m.console.Trace {
		right = "trace | " + right
	}

	mode := " PAUSED "
	style := styleStatusBar
	if m.running {
		mode = " RUNNING "
		style = styleRunning
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - lipgloss.Width(mode)
	if gap < 0 {
		gap = 0
	}

	bar := styleStatusBar.Render(left+strings.Repeat(" ", gap)+right) + style.Render(mode)
	return lipgloss.NewStyle().MaxWidth(m.width).Render(bar)
}

// tableColumns are the mob table headers and their widths.
var tableColumns = []struct {
	title string
	width int
}{
	{"ID", 5},
	{"TYPE", 14},
	{"STATE", 14},
	{"POS", 18},
	{"HP", 11},
	{"FOCUS", 6},
	{"STATUSES", 20},
}

// mobTableHeight is how many rows the table gets: header plus up to a
// third of the screen.
func (m Model) mobTableHeight() int {
	n := len(m.console.Engine.Session.Mobs()) + 1
	return min(n, max(m.height/3, 2))
}

// renderMobTable draws the live mobs, newest last, clipped to rows lines.
func (m Model) renderMobTable(rows int) string {
	header := make([]string, len(tableColumns))
	for i, c := range tableColumns {
		header[i] = cell(c.title, c.width)
	}
	lines := []string{styleTableHeader.Render(strings.Join(header, " "))}

	mobs := m.console.Engine.Session.Mobs()
	var more string
	if len(mobs) > rows-1 {
		shown := max(rows-2, 0)
		more = styleSystem.Render(fmt.Sprintf("... %d more", len(mobs)-shown))
		mobs = mobs[:shown]
	}
	lines = append(lines, tableRows(mobs)...)
	if more != "" {
		lines = append(lines, more)
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(strings.Join(lines, "\n"))
}

func tableRows(mobs []*mob.Mob) []string {
	lines := make([]string, 0, len(mobs))
	for _, mb := range mobs {
		var statuses []string
		for _, st := range mb.Statuses {
			if !st.ToDelete {
				statuses = append(statuses, st.Type.Name)
			}
		}
		focus := "-"
		if mb.FocusID != 0 {
			focus = fmt.Sprintf("#%d", mb.FocusID)
		}
		cols := []string{
			fmt.Sprintf("#%d", mb.ID),
			mb.Type.Name,
			mb.StateName(),
			fmt.Sprintf("%.0f,%.0f", mb.Pos.X, mb.Pos.Y),
			fmt.Sprintf("%.0f/%.0f", mb.Health, mb.MaxHealth),
			focus,
			strings.Join(statuses, ","),
		}
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = cell(c, tableColumns[i].width)
		}
		style := styleTableRow
		if mb.Type.DyingState != "" && mb.StateName() == mb.Type.DyingState {
			style = styleTableDying
		}
		lines = append(lines, style.Render(strings.Join(cells, " ")))
	}
	return lines
}

// cell pads or truncates s to exactly width columns.
func cell(s string, width int) string {
	if len(s) > width {
		if width <= 1 {
			return s[:width]
		}
		return s[:width-1] + "~"
	}
	return s + strings.Repeat(" ", width-len(s))
}
