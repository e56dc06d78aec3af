package ui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/hafla/core/event"
	"github.com/trezcool/hafla/core/student"
	"github.com/trezcool/hafla/core/user"
	emailsvc "github.com/trezcool/hafla/services/email"
	dummydb "github.com/trezcool/hafla/storage/database/dummy"
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                         {}
func (nopLogger) Info(string, ...interface{})         {}
func (nopLogger) Error(string, error, ...interface{}) {}

func newTestServices(t *testing.T) *Services {
	t.Helper()

	db, err := dummydb.Open()
	require.NoError(t, err)

	mail := emailsvc.NewConsoleServiceMock()
	disp := event.NewDispatcher(mail, nopLogger{})
	t.Cleanup(disp.Close)

	return &Services{
		User:    user.NewService(dummydb.NewUserRepository(db), mail, nopLogger{}),
		Student: student.NewService(dummydb.NewStudentRepository(db)),
		Event:   event.NewService(dummydb.NewEventRepository(db), disp, nopLogger{}),
	}
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestLoginVolunteerSignup(t *testing.T) {
	svcs := newTestServices(t)
	m := newLoginModel(svcs)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	require.Equal(t, loginSignUp, m.mode)

	m.signup[0].SetValue("Vol Unteer")
	m.signup[1].SetValue("vol1")
	m.signup[2].SetValue("vol1@hafla.test")
	m.signup[3].SetValue("Str0ngPa$$")
	m.signup[4].SetValue("Str0ngPa$$")
	m.signupFocus = len(m.signup) - 1

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg := cmd()
	signedUp, ok := msg.(signedUpMsg)
	require.True(t, ok, "got %#v", msg)
	assert.Equal(t, "vol1", signedUp.username)

	// accounts created from the login screen are always volunteers
	usr, err := svcs.User.GetByUsername(context.Background(), "vol1")
	require.NoError(t, err)
	assert.Equal(t, user.RoleVolunteer, usr.Role)
	assert.NoError(t, usr.CheckPassword("Str0ngPa$$"))

	m, _ = m.Update(msg)
	assert.Equal(t, loginSignIn, m.mode)
	assert.Equal(t, "vol1", m.username.Value())
	assert.Contains(t, m.statusText, "vol1")
}

func TestLoginSignupValidation(t *testing.T) {
	svcs := newTestServices(t)
	m := newLoginModel(svcs)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	m.signup[0].SetValue("No Pass")
	m.signup[1].SetValue("nopass")
	m.signup[2].SetValue("nopass@hafla.test")
	m.signup[3].SetValue("short")
	m.signup[4].SetValue("short")
	m.signupFocus = len(m.signup) - 1

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	_, ok := cmd().(errMsg)
	assert.True(t, ok)

	_, err := svcs.User.GetByUsername(context.Background(), "nopass")
	assert.Error(t, err)
}
