package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/trezcool/hafla/core/event"
	"github.com/trezcool/hafla/core/student"
	"github.com/trezcool/hafla/core/user"
)

// Services bundles the core services the TUI talks to. All business rules
// live behind them; the UI only renders and forwards input.
type Services struct {
	User    *user.Service
	Student *student.Service
	Event   *event.Service
}

type screen int

const (
	screenLogin screen = iota
	screenMenu
	screenEvents
	screenStudents
)

type (
	errMsg struct{ err error }

	loggedInMsg struct{ usr user.User }
)

// App is the root model; it owns the current user and switches between the
// login, menu, events and students screens.
type App struct {
	svcs    *Services
	usr     user.User
	current screen

	login    loginModel
	menu     menuModel
	events   eventsModel
	students studentsModel

	width, height int
}

func NewApp(svcs *Services) *App {
	return &App{
		svcs:     svcs,
		current:  screenLogin,
		login:    newLoginModel(svcs),
		menu:     newMenuModel(),
		events:   newEventsModel(svcs),
		students: newStudentsModel(svcs),
	}
}

func (a *App) Init() tea.Cmd {
	return a.login.Init()
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

	case loggedInMsg:
		a.usr = msg.usr
		a.menu = newMenuModelFor(msg.usr)
		a.current = screenMenu
		return a, nil

	case menuChoiceMsg:
		switch msg.choice {
		case menuEvents:
			a.current = screenEvents
			return a, a.events.load()
		case menuStudents:
			a.current = screenStudents
			return a, a.students.load()
		case menuLogout:
			a.usr = user.User{}
			a.login = newLoginModel(a.svcs)
			a.current = screenLogin
			return a, a.login.Init()
		case menuQuit:
			return a, tea.Quit
		}

	case backToMenuMsg:
		a.current = screenMenu
		return a, nil
	}

	var cmd tea.Cmd
	switch a.current {
	case screenLogin:
		a.login, cmd = a.login.Update(msg)
	case screenMenu:
		a.menu, cmd = a.menu.Update(msg)
	case screenEvents:
		a.events.usr = a.usr
		a.events, cmd = a.events.Update(msg)
	case screenStudents:
		a.students, cmd = a.students.Update(msg)
	}
	return a, cmd
}

func (a *App) View() string {
	switch a.current {
	case screenLogin:
		return a.login.View()
	case screenMenu:
		return a.menu.View()
	case screenEvents:
		return a.events.View()
	case screenStudents:
		return a.students.View()
	}
	return ""
}
