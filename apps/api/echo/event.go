package echoapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/hafla/core/event"
	"github.com/trezcool/hafla/core/user"
)

type eventApi struct {
	svc *event.Service
}

func registerEventAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *event.Service) {
	api := eventApi{svc: svc}

	eg := g.Group("/events", jwt)
	eg.GET("", api.query, actionMiddleware(user.ActionViewEvents))
	eg.POST("", api.create)
	eg.GET("/notifications/:batchID", api.notifyStatus, actionMiddleware(user.ActionNotifyAttendees))

	dg := eg.Group("/:id")
	dg.GET("", api.retrieve, actionMiddleware(user.ActionViewEvents))
	dg.GET("/registrations", api.registrants, actionMiddleware(user.ActionViewEvents))
	dg.POST("/registrations", api.register)
	dg.DELETE("/registrations/:studentID", api.cancel)
	dg.POST("/registrations/:studentID/attendance", api.markAttendance, actionMiddleware(user.ActionMarkAttendance))
	dg.GET("/stats", api.stats, actionMiddleware(user.ActionViewReports))
	dg.GET("/export.csv", api.exportCSV, actionMiddleware(user.ActionExportReports))
	dg.POST("/notify", api.notify)
}

func eventID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return 0, errHttpNotFound
	}
	return id, nil
}

func (api *eventApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data event.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}

	evt, err := api.svc.Create(ctx.Request().Context(), data, claims.Role)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, evt)
}

func (api *eventApi) query(ctx echo.Context) error {
	events, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	if events == nil {
		events = []event.Event{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *eventApi) retrieve(ctx echo.Context) error {
	id, err := eventID(ctx)
	if err != nil {
		return err
	}
	evt, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, evt)
}

func (api *eventApi) registrants(ctx echo.Context) error {
	id, err := eventID(ctx)
	if err != nil {
		return err
	}
	registrants, err := api.svc.Registrants(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	if registrants == nil {
		registrants = []event.Registrant{}
	}
	return ctx.JSON(http.StatusOK, registrants)
}

func (api *eventApi) register(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	id, err := eventID(ctx)
	if err != nil {
		return err
	}

	var data RegistrationRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RegistrationRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	reg, err := api.svc.Register(ctx.Request().Context(), id, data.StudentID, claims.Role)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, reg)
}

func (api *eventApi) cancel(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	id, err := eventID(ctx)
	if err != nil {
		return err
	}

	if err = api.svc.CancelRegistration(ctx.Request().Context(), id, ctx.Param("studentID"), claims.Role); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *eventApi) markAttendance(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	id, err := eventID(ctx)
	if err != nil {
		return err
	}

	reg, err := api.svc.Registration(ctx.Request().Context(), id, ctx.Param("studentID"))
	if err != nil {
		return err
	}
	if err = api.svc.MarkAttendance(ctx.Request().Context(), reg.ID, claims.Role); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *eventApi) stats(ctx echo.Context) error {
	id, err := eventID(ctx)
	if err != nil {
		return err
	}
	stats, err := api.svc.Stats(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *eventApi) exportCSV(ctx echo.Context) error {
	id, err := eventID(ctx)
	if err != nil {
		return err
	}
	// buffer the export so a failure mid-query cannot commit a 200 with a
	// truncated body
	var buf bytes.Buffer
	if err = api.svc.ExportCSV(ctx.Request().Context(), id, &buf); err != nil {
		return err
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("event-%d-attendance.csv", id)))
	return ctx.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (api *eventApi) notify(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	id, err := eventID(ctx)
	if err != nil {
		return err
	}

	var data NotifyRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NotifyRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ack, err := api.svc.NotifyAttendees(ctx.Request().Context(), id, data.Subject, data.Body, claims.Role)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusAccepted, ack)
}

func (api *eventApi) notifyStatus(ctx echo.Context) error {
	batchID, err := uuid.Parse(ctx.Param("batchID"))
	if err != nil {
		return errHttpNotFound
	}
	status, err := api.svc.BatchStatus(batchID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, status)
}
