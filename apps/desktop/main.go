package main

import (
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/trezcool/hafla/apps/desktop/ui"
	"github.com/trezcool/hafla/core"
	"github.com/trezcool/hafla/core/event"
	"github.com/trezcool/hafla/core/student"
	"github.com/trezcool/hafla/core/user"
	emailsvc "github.com/trezcool/hafla/services/email"
	logsvc "github.com/trezcool/hafla/services/logger"
	"github.com/trezcool/hafla/storage/database"
)

func init() {
	// Force lipgloss/termenv to query the terminal background color before
	// the Bubble Tea program starts, so the OSC response does not race with
	// the input loop.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

var rootCmd = &cobra.Command{
	Use:   "hafla",
	Short: "A terminal ui for event registration and attendance",
	Long:  `A terminal user interface for managing events, student registrations and attendance over the same backend as the API.`,
	RunE:  runApp,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runApp(cmd *cobra.Command, args []string) error {
	std := log.New(os.Stderr, fmt.Sprintf("%s TUI : ", core.Conf.AppName), log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, core.Conf)
	logger.Enable(!(core.Conf.Debug || core.Conf.TestMode))

	db, err := database.Open(core.Conf)
	if err != nil {
		return err
	}
	defer db.Close()
	if err = database.Ping(db); err != nil {
		return err
	}

	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	dispatcher := event.NewDispatcher(mailSvc, logger)
	defer dispatcher.Close()

	svcs := &ui.Services{
		User:    user.NewService(database.NewUserRepository(db), mailSvc, logger),
		Student: student.NewService(database.NewStudentRepository(db)),
		Event:   event.NewService(database.NewEventRepository(db), dispatcher, logger),
	}

	_, err = tea.NewProgram(ui.NewApp(svcs), tea.WithAltScreen()).Run()
	return err
}
