package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/hafla/core/event"
)

func TestBarWidth(t *testing.T) {
	tests := []struct {
		name              string
		count, max, width int
		want              int
	}{
		{name: "full", count: 10, max: 10, width: 30, want: 30},
		{name: "half", count: 5, max: 10, width: 30, want: 15},
		{name: "zero count", count: 0, max: 10, width: 30, want: 0},
		{name: "zero max", count: 3, max: 0, width: 30, want: 0},
		{name: "non-zero never rounds to nothing", count: 1, max: 100, width: 30, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, barWidth(tt.count, tt.max, tt.width))
		})
	}
}

func TestAttendanceChart(t *testing.T) {
	chart := attendanceChart(event.Stats{EventName: "Open Day", Registered: 4, Attended: 2, Rate: 50})

	assert.Contains(t, chart, "Registered")
	assert.Contains(t, chart, "Attended")
	assert.Contains(t, chart, "50.00% attendance")
	// registered bar fills the chart, attended bar is half of it
	assert.Equal(t, chartWidth+chartWidth/2, strings.Count(chart, "█"))

	empty := attendanceChart(event.Stats{EventName: "Open Day"})
	assert.Contains(t, empty, "no registrations yet")
	assert.NotContains(t, empty, "█")
}
