package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/hafla/core/user"
)

func menuLabels(m menuModel) []string {
	labels := make([]string, 0, len(m.items))
	for _, it := range m.items {
		labels = append(labels, it.label)
	}
	return labels
}

func TestMenuEntriesPerRole(t *testing.T) {
	admin := newMenuModelFor(user.User{Username: "boss", Role: user.RoleAdmin})
	assert.Equal(t, []string{"Events", "Students", "Log out", "Quit"}, menuLabels(admin))

	vol := newMenuModelFor(user.User{Username: "vol", Role: user.RoleVolunteer})
	assert.Equal(t, []string{"Events", "Log out", "Quit"}, menuLabels(vol))
}

func TestMenuSelection(t *testing.T) {
	m := newMenuModelFor(user.User{Username: "boss", Role: user.RoleAdmin})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	msg, ok := cmd().(menuChoiceMsg)
	require.True(t, ok)
	assert.Equal(t, menuStudents, msg.choice)
}

func TestMenuCursorBounds(t *testing.T) {
	m := newMenuModelFor(user.User{Role: user.RoleVolunteer})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, m.cursor)

	for i := 0; i < 10; i++ {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	}
	assert.Equal(t, len(m.items)-1, m.cursor)
}
