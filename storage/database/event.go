package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/hafla/core"
	"github.com/trezcool/hafla/core/event"
)

type dbEvent struct {
	ID        int       `db:"id"`
	Name      string    `db:"name"`
	StartsAt  time.Time `db:"starts_at"`
	Venue     string    `db:"venue"`
	Capacity  int       `db:"capacity"`
	CreatedAt time.Time `db:"created_at"`
}

func (e dbEvent) toEvent() event.Event {
	return event.Event(e)
}

type dbRegistration struct {
	ID        int       `db:"id"`
	EventID   int       `db:"event_id"`
	StudentID string    `db:"student_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (r dbRegistration) toRegistration() event.Registration {
	return event.Registration(r)
}

type dbRegistrant struct {
	RegistrationID int          `db:"registration_id"`
	StudentID      string       `db:"student_id"`
	Name           string       `db:"name"`
	Email          string       `db:"email"`
	RegisteredAt   time.Time    `db:"registered_at"`
	Attended       sql.NullBool `db:"attended"`
}

type eventRepository struct {
	db core.DB
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db core.DB) event.Repository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) CreateEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	q := `
	INSERT INTO event (name, starts_at, venue, capacity, created_at)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id`
	err := repo.db.QueryRowxContext(ctx, q, evt.Name, evt.StartsAt, evt.Venue, evt.Capacity, evt.CreatedAt).Scan(&evt.ID)
	if err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	return evt, nil
}

func (repo *eventRepository) QueryAllEvents(ctx context.Context) ([]event.Event, error) {
	var rows []dbEvent
	q := `SELECT * FROM event ORDER BY starts_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	events := make([]event.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.toEvent())
	}
	return events, nil
}

func (repo *eventRepository) GetEventByID(ctx context.Context, id int) (event.Event, error) {
	var row dbEvent
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM event WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, errors.Wrap(err, "getting event")
	}
	return row.toEvent(), nil
}

// CreateRegistration locks the event row for the duration of the
// transaction so the duplicate and capacity checks cannot race with a
// concurrent registration for the same event.
func (repo *eventRepository) CreateRegistration(ctx context.Context, eventID int, studentID string, at time.Time) (reg event.Registration, err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return event.Registration{}, errors.Wrap(err, "beginning tx")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var capacity int
	err = tx.GetContext(ctx, &capacity, `SELECT capacity FROM event WHERE id = $1 FOR UPDATE`, eventID)
	if err != nil {
		if err == sql.ErrNoRows {
			return event.Registration{}, event.ErrNotFound
		}
		return event.Registration{}, errors.Wrap(err, "locking event")
	}

	var exists bool
	err = tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM student WHERE id = $1)`, studentID)
	if err != nil {
		return event.Registration{}, errors.Wrap(err, "checking student")
	}
	if !exists {
		return event.Registration{}, event.ErrStudentNotFound
	}

	err = tx.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM registration WHERE event_id = $1 AND student_id = $2)`, eventID, studentID)
	if err != nil {
		return event.Registration{}, errors.Wrap(err, "checking registration")
	}
	if exists {
		return event.Registration{}, event.ErrAlreadyRegistered
	}

	var count int
	err = tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM registration WHERE event_id = $1`, eventID)
	if err != nil {
		return event.Registration{}, errors.Wrap(err, "counting registrations")
	}
	if count >= capacity {
		return event.Registration{}, event.ErrEventFull
	}

	reg = event.Registration{EventID: eventID, StudentID: studentID, CreatedAt: at}
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO registration (event_id, student_id, created_at) VALUES ($1, $2, $3) RETURNING id`,
		eventID, studentID, at,
	).Scan(&reg.ID)
	if err != nil {
		return event.Registration{}, errors.Wrap(err, "inserting registration")
	}

	if err = tx.Commit(); err != nil {
		return event.Registration{}, errors.Wrap(err, "committing tx")
	}
	return reg, nil
}

func (repo *eventRepository) GetRegistration(ctx context.Context, eventID int, studentID string) (event.Registration, error) {
	var row dbRegistration
	q := `SELECT * FROM registration WHERE event_id = $1 AND student_id = $2`
	if err := repo.db.GetContext(ctx, &row, q, eventID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return event.Registration{}, event.ErrNotRegistered
		}
		return event.Registration{}, errors.Wrap(err, "getting registration")
	}
	return row.toRegistration(), nil
}

func (repo *eventRepository) GetRegistrationByID(ctx context.Context, id int) (event.Registration, error) {
	var row dbRegistration
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM registration WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return event.Registration{}, event.ErrNotRegistered
		}
		return event.Registration{}, errors.Wrap(err, "getting registration")
	}
	return row.toRegistration(), nil
}

func (repo *eventRepository) CountRegistrations(ctx context.Context, eventID int) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM registration WHERE event_id = $1`, eventID)
	return count, errors.Wrap(err, "counting registrations")
}

// DeleteRegistration drops the attendance row first; the FK would cascade
// but the intent reads better spelled out.
func (repo *eventRepository) DeleteRegistration(ctx context.Context, eventID int, studentID string) (err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning tx")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
	DELETE FROM attendance WHERE registration_id IN
		(SELECT id FROM registration WHERE event_id = $1 AND student_id = $2)`, eventID, studentID)
	if err != nil {
		return errors.Wrap(err, "deleting attendance")
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM registration WHERE event_id = $1 AND student_id = $2`, eventID, studentID)
	if err != nil {
		return errors.Wrap(err, "deleting registration")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "checking deletion")
	}
	if n == 0 {
		return event.ErrNotRegistered
	}
	return errors.Wrap(tx.Commit(), "committing tx")
}

func (repo *eventRepository) QueryRegistrants(ctx context.Context, eventID int) ([]event.Registrant, error) {
	var rows []dbRegistrant
	q := `
	SELECT r.id AS registration_id, s.id AS student_id, s.name, s.email,
	       r.created_at AS registered_at, a.present AS attended
	FROM registration r
	JOIN student s ON s.id = r.student_id
	LEFT JOIN attendance a ON a.registration_id = r.id
	WHERE r.event_id = $1
	ORDER BY r.id`
	if err := repo.db.SelectContext(ctx, &rows, q, eventID); err != nil {
		return nil, errors.Wrap(err, "querying registrants")
	}

	registrants := make([]event.Registrant, 0, len(rows))
	for _, row := range rows {
		registrants = append(registrants, event.Registrant{
			RegistrationID: row.RegistrationID,
			StudentID:      row.StudentID,
			Name:           row.Name,
			Email:          row.Email,
			RegisteredAt:   row.RegisteredAt,
			Attended:       row.Attended.Valid && row.Attended.Bool,
		})
	}
	return registrants, nil
}

func (repo *eventRepository) UpsertAttendance(ctx context.Context, registrationID int, present bool, at time.Time) error {
	q := `
	INSERT INTO attendance (registration_id, present, marked_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (registration_id) DO UPDATE SET present = EXCLUDED.present, marked_at = EXCLUDED.marked_at`
	_, err := repo.db.ExecContext(ctx, q, registrationID, present, at)
	return errors.Wrap(err, "upserting attendance")
}

func (repo *eventRepository) CountAttended(ctx context.Context, eventID int) (int, error) {
	var count int
	q := `
	SELECT COUNT(*)
	FROM attendance a
	JOIN registration r ON r.id = a.registration_id
	WHERE r.event_id = $1 AND a.present`
	err := repo.db.GetContext(ctx, &count, q, eventID)
	return count, errors.Wrap(err, "counting attendance")
}
