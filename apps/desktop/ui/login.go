package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/trezcool/hafla/core/user"
)

type loginMode int

const (
	loginSignIn loginMode = iota
	loginSignUp
)

type signedUpMsg struct{ username string }

type loginModel struct {
	svcs *Services

	mode loginMode

	username textinput.Model
	password textinput.Model
	focus    int // 0 username, 1 password

	signup      []textinput.Model // name, username, email, password, confirm
	signupFocus int

	errText    string
	statusText string
}

func newLoginModel(svcs *Services) loginModel {
	uname := textinput.New()
	uname.Placeholder = "username or email"
	uname.Prompt = "> "
	uname.Focus()

	pwd := textinput.New()
	pwd.Placeholder = "password"
	pwd.Prompt = "> "
	pwd.EchoMode = textinput.EchoPassword
	pwd.EchoCharacter = '*'

	placeholders := []string{"full name", "username", "email", "password", "confirm password"}
	signup := make([]textinput.Model, len(placeholders))
	for i, p := range placeholders {
		in := textinput.New()
		in.Prompt = "> "
		in.Placeholder = p
		if i >= 3 {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '*'
		}
		signup[i] = in
	}

	return loginModel{svcs: svcs, username: uname, password: pwd, signup: signup}
}

func (m loginModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m loginModel) authenticate() tea.Cmd {
	uname, pwd := m.username.Value(), m.password.Value()
	return func() tea.Msg {
		usr, err := m.svcs.User.Authenticate(context.Background(), uname, pwd)
		if err != nil {
			return errMsg{err}
		}
		return loggedInMsg{usr: usr}
	}
}

// registerVolunteer creates the account with the volunteer role regardless
// of what is typed; tier upgrades go through an admin.
func (m loginModel) registerVolunteer() tea.Cmd {
	nu := user.NewUser{
		Name:            m.signup[0].Value(),
		Username:        m.signup[1].Value(),
		Email:           m.signup[2].Value(),
		Role:            user.RoleVolunteer,
		Password:        m.signup[3].Value(),
		PasswordConfirm: m.signup[4].Value(),
	}
	svc := m.svcs.User
	return func() tea.Msg {
		ctx := context.Background()
		if err := nu.Validate(ctx, svc); err != nil {
			return errMsg{err}
		}
		usr, err := svc.Create(ctx, nu)
		if err != nil {
			return errMsg{err}
		}
		return signedUpMsg{username: usr.Username}
	}
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.mode == loginSignUp {
			return m.updateSignup(msg)
		}
		switch msg.String() {
		case "tab", "shift+tab", "up", "down":
			m.focus = (m.focus + 1) % 2
			if m.focus == 0 {
				m.password.Blur()
				return m, m.username.Focus()
			}
			m.username.Blur()
			return m, m.password.Focus()

		case "enter":
			if m.focus == 0 {
				m.focus = 1
				m.username.Blur()
				return m, m.password.Focus()
			}
			m.errText, m.statusText = "", ""
			return m, m.authenticate()

		case "ctrl+r":
			m.mode = loginSignUp
			m.errText, m.statusText = "", ""
			m.signupFocus = 0
			for i := range m.signup {
				m.signup[i].SetValue("")
				m.signup[i].Blur()
			}
			return m, m.signup[0].Focus()

		case "esc":
			return m, tea.Quit
		}

	case signedUpMsg:
		m.mode = loginSignIn
		m.errText = ""
		m.statusText = "account created, sign in as " + msg.username
		m.username.SetValue(msg.username)
		m.password.SetValue("")
		m.focus = 1
		m.username.Blur()
		return m, m.password.Focus()

	case errMsg:
		m.errText, m.statusText = msg.err.Error(), ""
		return m, nil
	}

	var cmd tea.Cmd
	if m.mode == loginSignUp {
		m.signup[m.signupFocus], cmd = m.signup[m.signupFocus].Update(msg)
	} else if m.focus == 0 {
		m.username, cmd = m.username.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m loginModel) updateSignup(msg tea.KeyMsg) (loginModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = loginSignIn
		m.errText = ""
		return m, nil

	case "tab", "down":
		m.signup[m.signupFocus].Blur()
		m.signupFocus = (m.signupFocus + 1) % len(m.signup)
		return m, m.signup[m.signupFocus].Focus()

	case "shift+tab", "up":
		m.signup[m.signupFocus].Blur()
		m.signupFocus = (m.signupFocus + len(m.signup) - 1) % len(m.signup)
		return m, m.signup[m.signupFocus].Focus()

	case "enter":
		if m.signupFocus < len(m.signup)-1 {
			m.signup[m.signupFocus].Blur()
			m.signupFocus++
			return m, m.signup[m.signupFocus].Focus()
		}
		m.errText = ""
		return m, m.registerVolunteer()
	}

	var cmd tea.Cmd
	m.signup[m.signupFocus], cmd = m.signup[m.signupFocus].Update(msg)
	return m, cmd
}

func (m loginModel) View() string {
	if m.mode == loginSignUp {
		rows := []string{titleStyle.Render("Hafla :: Register as Volunteer"), ""}
		labels := []string{"Full name", "Username", "Email", "Password", "Confirm password"}
		for i, in := range m.signup {
			label := labels[i]
			if i == m.signupFocus {
				label = focusedStyle.Render(label)
			}
			rows = append(rows, label, in.View())
		}
		body := lipgloss.JoinVertical(lipgloss.Left, rows...)
		if m.errText != "" {
			body = lipgloss.JoinVertical(lipgloss.Left, body, "", errorStyle.Render(m.errText))
		}
		return boxStyle.Render(body) + "\n" + helpStyle.Render("enter: next/register • tab: move • esc: back")
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Hafla :: Sign In"),
		"",
		"Username",
		m.username.View(),
		"",
		"Password",
		m.password.View(),
	)
	if m.errText != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", errorStyle.Render(m.errText))
	} else if m.statusText != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", successStyle.Render(m.statusText))
	}
	return boxStyle.Render(body) + "\n" + helpStyle.Render("enter: sign in • tab: switch field • ctrl+r: register as volunteer • esc: quit")
}
