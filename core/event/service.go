package event

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/hafla/core"
	"github.com/trezcool/hafla/core/user"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound          = errors.New("event not found")
	ErrStudentNotFound   = errors.New("student not found")
	ErrEventFull         = errors.New("event is full")
	ErrAlreadyRegistered = errors.New("student is already registered for this event")
	ErrNotRegistered     = errors.New("student is not registered for this event")
	ErrTooEarly          = errors.New("attendance can only be marked on or after the event date")
	ErrPermissionDenied  = errors.New("permission denied")
)

// Service enforces the registration/attendance business rules. Both
// presentation layers call into it; neither re-implements any rule.
type Service struct {
	repo       Repository
	dispatcher *Dispatcher
	log        core.Logger
}

func NewService(repo Repository, dispatcher *Dispatcher, log core.Logger) *Service {
	return &Service{repo: repo, dispatcher: dispatcher, log: log}
}

func (svc *Service) Create(ctx context.Context, ne NewEvent, role user.Role) (Event, error) {
	if !user.Can(role, user.ActionCreateEvent) {
		return Event{}, ErrPermissionDenied
	}
	if err := ne.Validate(); err != nil {
		return Event{}, err
	}
	evt := Event{
		Name:      ne.Name,
		StartsAt:  ne.StartsAt,
		Venue:     ne.Venue,
		Capacity:  ne.Capacity,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateEvent(ctx, evt)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Event, error) {
	return svc.repo.QueryAllEvents(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Event, error) {
	return svc.repo.GetEventByID(ctx, id)
}

// Register creates a Registration for (eventID, studentID).
// Fails with ErrEventFull when the event is at capacity and with
// ErrAlreadyRegistered on a duplicate pair; the storage layer performs the
// checks and the insert atomically.
func (svc *Service) Register(ctx context.Context, eventID int, studentID string, role user.Role) (Registration, error) {
	if !user.Can(role, user.ActionRegisterStudent) {
		return Registration{}, ErrPermissionDenied
	}
	studentID = core.CleanString(studentID, true /* lower */)
	if studentID == "" {
		return Registration{}, core.NewValidationError(errors.New("student id is required"))
	}
	return svc.repo.CreateRegistration(ctx, eventID, studentID, time.Now().UTC())
}

// CancelRegistration drops the registration and its attendance record.
func (svc *Service) CancelRegistration(ctx context.Context, eventID int, studentID string, role user.Role) error {
	if !user.Can(role, user.ActionCancelRegistration) {
		return ErrPermissionDenied
	}
	studentID = core.CleanString(studentID, true /* lower */)
	return svc.repo.DeleteRegistration(ctx, eventID, studentID)
}

// MarkAttendance upserts a Present record for the registration. It is
// idempotent; marking twice leaves a single record. Fails with ErrTooEarly
// before the event date (date precision, not time of day).
func (svc *Service) MarkAttendance(ctx context.Context, registrationID int, role user.Role) error {
	if !user.Can(role, user.ActionMarkAttendance) {
		return ErrPermissionDenied
	}

	reg, err := svc.repo.GetRegistrationByID(ctx, registrationID)
	if err != nil {
		return err
	}
	evt, err := svc.repo.GetEventByID(ctx, reg.EventID)
	if err != nil {
		return err
	}

	now := NowFunc().UTC()
	if dateOnly(now).Before(dateOnly(evt.StartsAt)) {
		return ErrTooEarly
	}
	return svc.repo.UpsertAttendance(ctx, registrationID, true, now)
}

// Registration looks up the registration for an (event, student) pair.
func (svc *Service) Registration(ctx context.Context, eventID int, studentID string) (Registration, error) {
	studentID = core.CleanString(studentID, true /* lower */)
	return svc.repo.GetRegistration(ctx, eventID, studentID)
}

// Registrants returns the joined registration rows in registration order.
func (svc *Service) Registrants(ctx context.Context, eventID int) ([]Registrant, error) {
	if _, err := svc.repo.GetEventByID(ctx, eventID); err != nil {
		return nil, err
	}
	return svc.repo.QueryRegistrants(ctx, eventID)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
