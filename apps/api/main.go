package main

import (
	"context"
	"fmt"
	"log"
	"os"

	echoapi "github.com/trezcool/hafla/apps/api/echo"
	"github.com/trezcool/hafla/core"
	"github.com/trezcool/hafla/core/event"
	"github.com/trezcool/hafla/core/student"
	"github.com/trezcool/hafla/core/user"
	emailsvc "github.com/trezcool/hafla/services/email"
	logsvc "github.com/trezcool/hafla/services/logger"
	"github.com/trezcool/hafla/storage/database"
)

func main() {
	std := log.New(os.Stdout, fmt.Sprintf("%s API : ", core.Conf.AppName), log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, core.Conf)
	logger.Enable(!(core.Conf.Debug || core.Conf.TestMode))

	if err := run(logger); err != nil {
		logger.Error("API server failed", err)
		os.Exit(1)
	}
}

func run(logger core.Logger) error {
	logger.Info("Application initializing")

	// =========================================================================
	// Storage

	db, err := database.Open(core.Conf)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing DB", err)
		}
	}()
	if err = database.Ping(db); err != nil {
		return err
	}

	// =========================================================================
	// Services

	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	dispatcher := event.NewDispatcher(mailSvc, logger)
	defer dispatcher.Close()

	usrSvc := user.NewService(database.NewUserRepository(db), mailSvc, logger)
	stdSvc := student.NewService(database.NewStudentRepository(db))
	evtSvc := event.NewService(database.NewEventRepository(db), dispatcher, logger)

	// =========================================================================
	// Start API Server

	server := echoapi.NewServer(&echoapi.Options{
		Addr:       core.Conf.Server.Addr(),
		Logger:     logger,
		UserSvc:    usrSvc,
		StudentSvc: stdSvc,
		EventSvc:   evtSvc,
	})

	go server.Start()
	logger.Info("API server listening on " + core.Conf.Server.Addr())
	defer logger.Info("Application stopped")

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		return err

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("could not stop server gracefully", err)
			return server.Close()
		}
	}
	return nil
}
