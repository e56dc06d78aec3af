package ui

import (
	"context"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/trezcool/hafla/core/student"
)

type studentsMode int

const (
	studentsList studentsMode = iota
	studentsAdd
)

type studentsLoadedMsg struct{ students []student.Student }

type studentsModel struct {
	svcs *Services

	mode     studentsMode
	tbl      table.Model
	students []student.Student

	inputs []textinput.Model // id, name, email, course, year
	focus  int

	status  string
	errText string
}

func newStudentsModel(svcs *Services) studentsModel {
	tbl := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 10},
			{Title: "Name", Width: 24},
			{Title: "Email", Width: 26},
			{Title: "Course", Width: 14},
			{Title: "Year", Width: 4},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	placeholders := []string{"id", "name", "email", "course (optional)", "year (optional)"}
	inputs := make([]textinput.Model, len(placeholders))
	for i, p := range placeholders {
		in := textinput.New()
		in.Prompt = "> "
		in.Placeholder = p
		inputs[i] = in
	}

	return studentsModel{svcs: svcs, tbl: tbl, inputs: inputs}
}

func (m studentsModel) load() tea.Cmd {
	return func() tea.Msg {
		students, err := m.svcs.Student.QueryAll(context.Background())
		if err != nil {
			return errMsg{err}
		}
		return studentsLoadedMsg{students: students}
	}
}

func (m studentsModel) create() tea.Cmd {
	year, _ := strconv.Atoi(m.inputs[4].Value())
	ns := student.NewStudent{
		ID:     m.inputs[0].Value(),
		Name:   m.inputs[1].Value(),
		Email:  m.inputs[2].Value(),
		Course: m.inputs[3].Value(),
		Year:   year,
	}
	svc := m.svcs.Student
	return func() tea.Msg {
		ctx := context.Background()
		if err := ns.Validate(ctx, svc); err != nil {
			return errMsg{err}
		}
		std, err := svc.Create(ctx, ns)
		if err != nil {
			return errMsg{err}
		}
		return actionDoneMsg{status: "added " + std.ID}
	}
}

func (m studentsModel) delete(id string) tea.Cmd {
	return func() tea.Msg {
		if err := m.svcs.Student.Delete(context.Background(), id); err != nil {
			return errMsg{err}
		}
		return actionDoneMsg{status: "deleted " + id}
	}
}

func (m studentsModel) resetForm() studentsModel {
	for i := range m.inputs {
		m.inputs[i].SetValue("")
		m.inputs[i].Blur()
	}
	m.focus = 0
	return m
}

func (m studentsModel) Update(msg tea.Msg) (studentsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case studentsLoadedMsg:
		m.students = msg.students
		rows := make([]table.Row, 0, len(msg.students))
		for _, std := range msg.students {
			year := ""
			if std.Year > 0 {
				year = strconv.Itoa(std.Year)
			}
			rows = append(rows, table.Row{std.ID, std.Name, std.Email, std.Course, year})
		}
		m.tbl.SetRows(rows)
		m.errText = ""
		return m, nil

	case actionDoneMsg:
		m.status, m.errText = msg.status, ""
		m.mode = studentsList
		m = m.resetForm()
		return m, m.load()

	case errMsg:
		m.errText, m.status = msg.err.Error(), ""
		return m, nil

	case tea.KeyMsg:
		if m.mode == studentsAdd {
			return m.updateForm(msg)
		}
		switch msg.String() {
		case "esc":
			return m, func() tea.Msg { return backToMenuMsg{} }
		case "r":
			return m, m.load()
		case "a":
			m.mode = studentsAdd
			m.status, m.errText = "", ""
			m = m.resetForm()
			return m, m.inputs[0].Focus()
		case "d":
			idx := m.tbl.Cursor()
			if idx >= 0 && idx < len(m.students) {
				return m, m.delete(m.students[idx].ID)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	if m.mode == studentsList {
		m.tbl, cmd = m.tbl.Update(msg)
	}
	return m, cmd
}

func (m studentsModel) updateForm(msg tea.KeyMsg) (studentsModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = studentsList
		m = m.resetForm()
		return m, nil

	case "tab", "down":
		m.inputs[m.focus].Blur()
		m.focus = (m.focus + 1) % len(m.inputs)
		return m, m.inputs[m.focus].Focus()

	case "shift+tab", "up":
		m.inputs[m.focus].Blur()
		m.focus = (m.focus + len(m.inputs) - 1) % len(m.inputs)
		return m, m.inputs[m.focus].Focus()

	case "enter":
		if m.focus < len(m.inputs)-1 {
			m.inputs[m.focus].Blur()
			m.focus++
			return m, m.inputs[m.focus].Focus()
		}
		return m, m.create()
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m studentsModel) View() string {
	if m.mode == studentsAdd {
		rows := []string{titleStyle.Render("Add Student"), ""}
		labels := []string{"ID", "Name", "Email", "Course", "Year"}
		for i, in := range m.inputs {
			label := labels[i]
			if i == m.focus {
				label = focusedStyle.Render(label)
			}
			rows = append(rows, label, in.View())
		}
		body := lipgloss.JoinVertical(lipgloss.Left, rows...)
		return m.withFeedback(body) + "\n" + helpStyle.Render("enter: next/save • tab: move • esc: cancel")
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Students"),
		"",
		m.tbl.View(),
	)
	return m.withFeedback(body) + "\n" + helpStyle.Render("a: add • d: delete • r: refresh • esc: menu")
}

func (m studentsModel) withFeedback(body string) string {
	if m.errText != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", errorStyle.Render(m.errText))
	} else if m.status != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", successStyle.Render(m.status))
	}
	return boxStyle.Render(body)
}
