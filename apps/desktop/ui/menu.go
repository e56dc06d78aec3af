package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/trezcool/hafla/core/user"
)

type menuChoice int

const (
	menuEvents menuChoice = iota
	menuStudents
	menuLogout
	menuQuit
)

type (
	menuChoiceMsg struct{ choice menuChoice }

	backToMenuMsg struct{}
)

type menuItem struct {
	label  string
	choice menuChoice
}

type menuModel struct {
	title  string
	items  []menuItem
	cursor int
}

func newMenuModel() menuModel {
	return newMenuModelFor(user.User{})
}

func newMenuModelFor(usr user.User) menuModel {
	items := []menuItem{{"Events", menuEvents}}
	if user.Can(usr.Role, user.ActionManageStudents) {
		items = append(items, menuItem{"Students", menuStudents})
	}
	items = append(items,
		menuItem{"Log out", menuLogout},
		menuItem{"Quit", menuQuit},
	)

	title := "Hafla"
	if usr.Username != "" {
		title += " :: " + usr.Username + " (" + string(usr.Role) + ")"
	}
	return menuModel{title: title, items: items}
}

func (m menuModel) Update(msg tea.Msg) (menuModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case "enter":
			choice := m.items[m.cursor].choice
			return m, func() tea.Msg { return menuChoiceMsg{choice: choice} }
		case "q", "esc":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m menuModel) View() string {
	rows := []string{titleStyle.Render(m.title), ""}
	for i, it := range m.items {
		label := "  " + it.label
		if i == m.cursor {
			label = focusedStyle.Render("> " + it.label)
		}
		rows = append(rows, label)
	}
	body := lipgloss.JoinVertical(lipgloss.Left, rows...)
	return boxStyle.Render(body) + "\n" + helpStyle.Render("up/down: move • enter: select • q: quit")
}
