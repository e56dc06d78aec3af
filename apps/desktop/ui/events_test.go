package ui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/hafla/core/user"
)

func TestEventCreateForm(t *testing.T) {
	svcs := newTestServices(t)

	m := newEventsModel(svcs)
	m.usr = user.User{Username: "vol", Role: user.RoleVolunteer}

	m, _ = m.Update(keyRune('c'))
	assert.Equal(t, eventsList, m.mode)
	assert.Equal(t, "permission denied", m.errText)

	m.usr = user.User{Username: "boss", Role: user.RoleAdmin}
	m.errText = ""
	m, _ = m.Update(keyRune('c'))
	require.Equal(t, eventsCreate, m.mode)

	m.create[0].SetValue("Open Day")
	m.create[1].SetValue("2026-09-10")
	m.create[2].SetValue("Hall A")
	m.create[3].SetValue("25")
	m.createFocus = len(m.create) - 1

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg := cmd()
	created, ok := msg.(eventCreatedMsg)
	require.True(t, ok, "got %#v", msg)
	assert.Equal(t, "Open Day", created.evt.Name)

	m, _ = m.Update(msg)
	assert.Equal(t, eventsList, m.mode)
	assert.Contains(t, m.status, "Open Day")

	events, err := svcs.Event.QueryAll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 25, events[0].Capacity)
	assert.Equal(t, "Hall A", events[0].Venue)
}

func TestEventCreateFormBadDate(t *testing.T) {
	svcs := newTestServices(t)

	m := newEventsModel(svcs)
	m.usr = user.User{Username: "boss", Role: user.RoleAdmin}
	m, _ = m.Update(keyRune('c'))

	m.create[0].SetValue("Open Day")
	m.create[1].SetValue("soon")
	m.create[3].SetValue("25")
	m.createFocus = len(m.create) - 1

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg := cmd()
	errm, ok := msg.(errMsg)
	require.True(t, ok, "got %#v", msg)
	assert.Contains(t, errm.err.Error(), "YYYY-MM-DD")

	// the form stays up so the date can be corrected
	m, _ = m.Update(msg)
	assert.Equal(t, eventsCreate, m.mode)
}
