package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/trezcool/hafla/core/event"
)

const chartWidth = 30

// barWidth scales count against max onto width cells; any non-zero count
// shows at least one cell.
func barWidth(count, max, width int) int {
	if max <= 0 || count <= 0 {
		return 0
	}
	w := count * width / max
	if w == 0 {
		w = 1
	}
	return w
}

// attendanceChart renders registered vs attended counts as horizontal bars.
func attendanceChart(stats event.Stats) string {
	if stats.Registered == 0 {
		return subtleStyle.Render("no registrations yet")
	}
	registered := strings.Repeat("█", barWidth(stats.Registered, stats.Registered, chartWidth))
	attended := strings.Repeat("█", barWidth(stats.Attended, stats.Registered, chartWidth))
	return lipgloss.JoinVertical(lipgloss.Left,
		fmt.Sprintf("Registered %s %d", registeredBarStyle.Render(registered), stats.Registered),
		fmt.Sprintf("Attended   %s %d", attendedBarStyle.Render(attended), stats.Attended),
		subtleStyle.Render(fmt.Sprintf("%.2f%% attendance", stats.Rate)),
	)
}
