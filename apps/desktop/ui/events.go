package ui

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/hafla/core/event"
	"github.com/trezcool/hafla/core/user"
)

type eventsMode int

const (
	eventsList eventsMode = iota
	eventsDetail
	eventsCreate
	eventsRegister
	eventsNotifySubject
	eventsNotifyBody
)

type (
	eventsLoadedMsg struct{ events []event.Event }

	registrantsLoadedMsg struct {
		registrants []event.Registrant
		stats       event.Stats
	}

	actionDoneMsg struct{ status string }

	eventCreatedMsg struct{ evt event.Event }

	notifyQueuedMsg struct{ batch event.BatchStatus }
)

type eventsModel struct {
	svcs *Services
	usr  user.User

	mode    eventsMode
	listTbl table.Model
	regTbl  table.Model

	events      []event.Event
	selected    event.Event
	registrants []event.Registrant
	stats       event.Stats

	input         textinput.Model
	create        []textinput.Model // name, date, venue, capacity
	createFocus   int
	notifySubject string
	batchID       uuid.UUID

	status  string
	errText string
}

func newEventsModel(svcs *Services) eventsModel {
	listTbl := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 4},
			{Title: "Name", Width: 28},
			{Title: "Date", Width: 12},
			{Title: "Venue", Width: 18},
			{Title: "Capacity", Width: 8},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	regTbl := table.New(
		table.WithColumns([]table.Column{
			{Title: "Student", Width: 10},
			{Title: "Name", Width: 24},
			{Title: "Email", Width: 26},
			{Title: "Attended", Width: 8},
		}),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	input := textinput.New()
	input.Prompt = "> "

	placeholders := []string{"name", "date (YYYY-MM-DD)", "venue (optional)", "capacity"}
	create := make([]textinput.Model, len(placeholders))
	for i, p := range placeholders {
		in := textinput.New()
		in.Prompt = "> "
		in.Placeholder = p
		create[i] = in
	}

	return eventsModel{svcs: svcs, listTbl: listTbl, regTbl: regTbl, input: input, create: create}
}

func (m eventsModel) load() tea.Cmd {
	return func() tea.Msg {
		events, err := m.svcs.Event.QueryAll(context.Background())
		if err != nil {
			return errMsg{err}
		}
		return eventsLoadedMsg{events: events}
	}
}

func (m eventsModel) loadRegistrants(eventID int) tea.Cmd {
	return func() tea.Msg {
		registrants, err := m.svcs.Event.Registrants(context.Background(), eventID)
		if err != nil {
			return errMsg{err}
		}
		stats, err := m.svcs.Event.Stats(context.Background(), eventID)
		if err != nil {
			return errMsg{err}
		}
		return registrantsLoadedMsg{registrants: registrants, stats: stats}
	}
}

func (m eventsModel) createEvent() tea.Cmd {
	startsAt, err := time.Parse("2006-01-02", m.create[1].Value())
	if err != nil {
		return func() tea.Msg { return errMsg{errors.New("date must be YYYY-MM-DD")} }
	}
	capacity, _ := strconv.Atoi(m.create[3].Value())
	ne := event.NewEvent{
		Name:     m.create[0].Value(),
		StartsAt: startsAt,
		Venue:    m.create[2].Value(),
		Capacity: capacity,
	}
	svc, role := m.svcs.Event, m.usr.Role
	return func() tea.Msg {
		evt, err := svc.Create(context.Background(), ne, role)
		if err != nil {
			return errMsg{err}
		}
		return eventCreatedMsg{evt: evt}
	}
}

func (m eventsModel) register(studentID string) tea.Cmd {
	eventID, role := m.selected.ID, m.usr.Role
	return func() tea.Msg {
		if _, err := m.svcs.Event.Register(context.Background(), eventID, studentID, role); err != nil {
			return errMsg{err}
		}
		return actionDoneMsg{status: "registered " + studentID}
	}
}

func (m eventsModel) cancel(studentID string) tea.Cmd {
	eventID, role := m.selected.ID, m.usr.Role
	return func() tea.Msg {
		if err := m.svcs.Event.CancelRegistration(context.Background(), eventID, studentID, role); err != nil {
			return errMsg{err}
		}
		return actionDoneMsg{status: "cancelled " + studentID}
	}
}

func (m eventsModel) markAttendance(registrationID int) tea.Cmd {
	role := m.usr.Role
	return func() tea.Msg {
		if err := m.svcs.Event.MarkAttendance(context.Background(), registrationID, role); err != nil {
			return errMsg{err}
		}
		return actionDoneMsg{status: "attendance marked"}
	}
}

func (m eventsModel) exportCSV() tea.Cmd {
	eventID := m.selected.ID
	return func() tea.Msg {
		name := fmt.Sprintf("event-%d-attendance.csv", eventID)
		f, err := os.Create(name)
		if err != nil {
			return errMsg{err}
		}
		defer f.Close()
		if err = m.svcs.Event.ExportCSV(context.Background(), eventID, f); err != nil {
			return errMsg{err}
		}
		return actionDoneMsg{status: "exported " + name}
	}
}

func (m eventsModel) notify(subject, body string) tea.Cmd {
	eventID, role := m.selected.ID, m.usr.Role
	return func() tea.Msg {
		bs, err := m.svcs.Event.NotifyAttendees(context.Background(), eventID, subject, body, role)
		if err != nil {
			return errMsg{err}
		}
		return notifyQueuedMsg{batch: bs}
	}
}

func (m eventsModel) batchStatus() tea.Cmd {
	id := m.batchID
	return func() tea.Msg {
		bs, err := m.svcs.Event.BatchStatus(id)
		if err != nil {
			return errMsg{err}
		}
		status := fmt.Sprintf("batch %s: %d of %d delivered", bs.ID, bs.Delivered, bs.Total)
		if bs.Failed > 0 {
			status += fmt.Sprintf(", %d failed", bs.Failed)
		}
		if !bs.Done {
			status += " (in progress)"
		}
		return actionDoneMsg{status: status}
	}
}

func (m eventsModel) selectedRegistrant() (event.Registrant, bool) {
	idx := m.regTbl.Cursor()
	if idx < 0 || idx >= len(m.registrants) {
		return event.Registrant{}, false
	}
	return m.registrants[idx], true
}

func (m eventsModel) Update(msg tea.Msg) (eventsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case eventsLoadedMsg:
		m.events = msg.events
		rows := make([]table.Row, 0, len(msg.events))
		for _, evt := range msg.events {
			rows = append(rows, table.Row{
				strconv.Itoa(evt.ID),
				evt.Name,
				evt.StartsAt.Format("2006-01-02"),
				evt.Venue,
				strconv.Itoa(evt.Capacity),
			})
		}
		m.listTbl.SetRows(rows)
		m.errText = ""
		return m, nil

	case registrantsLoadedMsg:
		m.registrants = msg.registrants
		sort.SliceStable(m.registrants, func(i, j int) bool {
			return m.registrants[i].Name < m.registrants[j].Name
		})
		m.stats = msg.stats
		rows := make([]table.Row, 0, len(msg.registrants))
		for _, r := range msg.registrants {
			attended := "N"
			if r.Attended {
				attended = "Y"
			}
			rows = append(rows, table.Row{r.StudentID, r.Name, r.Email, attended})
		}
		m.regTbl.SetRows(rows)
		m.errText = ""
		return m, nil

	case notifyQueuedMsg:
		m.batchID = msg.batch.ID
		m.status = fmt.Sprintf("queued %d notifications (batch %s)", msg.batch.Total, msg.batch.ID)
		m.errText = ""
		m.mode = eventsDetail
		return m, nil

	case actionDoneMsg:
		m.status, m.errText = msg.status, ""
		m.mode = eventsDetail
		return m, m.loadRegistrants(m.selected.ID)

	case eventCreatedMsg:
		m.status = "created " + msg.evt.Name
		m.errText = ""
		m.mode = eventsList
		return m, m.load()

	case errMsg:
		m.errText, m.status = msg.err.Error(), ""
		if m.mode == eventsRegister || m.mode == eventsNotifySubject || m.mode == eventsNotifyBody {
			m.mode = eventsDetail
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case eventsList:
			return m.updateList(msg)
		case eventsDetail:
			return m.updateDetail(msg)
		case eventsCreate:
			return m.updateCreate(msg)
		case eventsRegister, eventsNotifySubject, eventsNotifyBody:
			return m.updateInput(msg)
		}
	}

	var cmd tea.Cmd
	switch m.mode {
	case eventsList:
		m.listTbl, cmd = m.listTbl.Update(msg)
	case eventsDetail:
		m.regTbl, cmd = m.regTbl.Update(msg)
	}
	return m, cmd
}

func (m eventsModel) updateList(msg tea.KeyMsg) (eventsModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, func() tea.Msg { return backToMenuMsg{} }
	case "r":
		return m, m.load()
	case "c":
		if !user.Can(m.usr.Role, user.ActionCreateEvent) {
			m.errText = "permission denied"
			return m, nil
		}
		m.mode = eventsCreate
		m.status, m.errText = "", ""
		m.createFocus = 0
		for i := range m.create {
			m.create[i].SetValue("")
			m.create[i].Blur()
		}
		return m, m.create[0].Focus()
	case "enter":
		idx := m.listTbl.Cursor()
		if idx < 0 || idx >= len(m.events) {
			return m, nil
		}
		m.selected = m.events[idx]
		m.mode = eventsDetail
		m.status, m.errText = "", ""
		return m, m.loadRegistrants(m.selected.ID)
	}
	var cmd tea.Cmd
	m.listTbl, cmd = m.listTbl.Update(msg)
	return m, cmd
}

func (m eventsModel) updateDetail(msg tea.KeyMsg) (eventsModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = eventsList
		m.status, m.errText = "", ""
		return m, m.load()

	case "r":
		return m, m.loadRegistrants(m.selected.ID)

	case "g":
		if !user.Can(m.usr.Role, user.ActionRegisterStudent) {
			m.errText = "permission denied"
			return m, nil
		}
		m.mode = eventsRegister
		m.input.SetValue("")
		m.input.Placeholder = "student id"
		return m, m.input.Focus()

	case "x":
		if !user.Can(m.usr.Role, user.ActionCancelRegistration) {
			m.errText = "permission denied"
			return m, nil
		}
		if r, ok := m.selectedRegistrant(); ok {
			return m, m.cancel(r.StudentID)
		}

	case "a":
		if !user.Can(m.usr.Role, user.ActionMarkAttendance) {
			m.errText = "permission denied"
			return m, nil
		}
		if r, ok := m.selectedRegistrant(); ok {
			return m, m.markAttendance(r.RegistrationID)
		}

	case "e":
		if !user.Can(m.usr.Role, user.ActionExportReports) {
			m.errText = "permission denied"
			return m, nil
		}
		return m, m.exportCSV()

	case "n":
		if !user.Can(m.usr.Role, user.ActionNotifyAttendees) {
			m.errText = "permission denied"
			return m, nil
		}
		m.mode = eventsNotifySubject
		m.input.SetValue("")
		m.input.Placeholder = "subject, e.g. Reminder: {{.EventName}}"
		return m, m.input.Focus()

	case "b":
		if m.batchID == uuid.Nil {
			m.errText = "no notification batch yet"
			return m, nil
		}
		return m, m.batchStatus()
	}

	var cmd tea.Cmd
	m.regTbl, cmd = m.regTbl.Update(msg)
	return m, cmd
}

func (m eventsModel) updateCreate(msg tea.KeyMsg) (eventsModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = eventsList
		m.errText = ""
		return m, nil

	case "tab", "down":
		m.create[m.createFocus].Blur()
		m.createFocus = (m.createFocus + 1) % len(m.create)
		return m, m.create[m.createFocus].Focus()

	case "shift+tab", "up":
		m.create[m.createFocus].Blur()
		m.createFocus = (m.createFocus + len(m.create) - 1) % len(m.create)
		return m, m.create[m.createFocus].Focus()

	case "enter":
		if m.createFocus < len(m.create)-1 {
			m.create[m.createFocus].Blur()
			m.createFocus++
			return m, m.create[m.createFocus].Focus()
		}
		m.errText = ""
		return m, m.createEvent()
	}

	var cmd tea.Cmd
	m.create[m.createFocus], cmd = m.create[m.createFocus].Update(msg)
	return m, cmd
}

func (m eventsModel) updateInput(msg tea.KeyMsg) (eventsModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = eventsDetail
		return m, nil

	case "enter":
		val := m.input.Value()
		switch m.mode {
		case eventsRegister:
			m.mode = eventsDetail
			return m, m.register(val)
		case eventsNotifySubject:
			m.notifySubject = val
			m.mode = eventsNotifyBody
			m.input.SetValue("")
			m.input.Placeholder = "body, e.g. See you at {{.Venue}}, {{.Name}}!"
			return m, nil
		case eventsNotifyBody:
			m.mode = eventsDetail
			return m, m.notify(m.notifySubject, val)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m eventsModel) View() string {
	switch m.mode {
	case eventsList:
		body := lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Events"),
			"",
			m.listTbl.View(),
		)
		return m.withFeedback(body) + "\n" +
			helpStyle.Render("enter: open • c: create • r: refresh • esc: menu")

	case eventsCreate:
		rows := []string{titleStyle.Render("New Event"), ""}
		labels := []string{"Name", "Date", "Venue", "Capacity"}
		for i, in := range m.create {
			label := labels[i]
			if i == m.createFocus {
				label = focusedStyle.Render(label)
			}
			rows = append(rows, label, in.View())
		}
		body := lipgloss.JoinVertical(lipgloss.Left, rows...)
		return m.withFeedback(body) + "\n" + helpStyle.Render("enter: next/create • tab: move • esc: cancel")

	case eventsRegister, eventsNotifySubject, eventsNotifyBody:
		var label string
		switch m.mode {
		case eventsRegister:
			label = "Register student"
		case eventsNotifySubject:
			label = "Notification subject"
		default:
			label = "Notification body"
		}
		body := lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render(m.selected.Name),
			"",
			label,
			m.input.View(),
		)
		return m.withFeedback(body) + "\n" + helpStyle.Render("enter: confirm • esc: cancel")

	default: // eventsDetail
		header := fmt.Sprintf("%s • %s • %s",
			m.selected.StartsAt.Format("2006-01-02"), m.selected.Venue,
			fmt.Sprintf("%d/%d registered, %d attended (%.2f%%)",
				m.stats.Registered, m.selected.Capacity, m.stats.Attended, m.stats.Rate))
		body := lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render(m.selected.Name),
			subtleStyle.Render(header),
			"",
			attendanceChart(m.stats),
			"",
			m.regTbl.View(),
		)
		return m.withFeedback(body) + "\n" +
			helpStyle.Render("a: attendance • g: register • x: cancel • n: notify • b: batch • e: export • r: refresh • esc: back")
	}
}

func (m eventsModel) withFeedback(body string) string {
	if m.errText != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", errorStyle.Render(m.errText))
	} else if m.status != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", successStyle.Render(m.status))
	}
	return boxStyle.Render(body)
}
