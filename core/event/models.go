package event

import (
	"context"
	"time"

	"github.com/trezcool/hafla/core"
)

type Event struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	StartsAt  time.Time `json:"starts_at"` // date of the event; attendance gate
	Venue     string    `json:"venue,omitempty"`
	Capacity  int       `json:"capacity"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// Registration links a Student to an Event; unique per (event, student) pair.
type Registration struct {
	ID        int       `json:"id"`
	EventID   int       `json:"event_id"`
	StudentID string    `json:"student_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// Attendance marks presence for a Registration; only written on or after
// the event date.
type Attendance struct {
	RegistrationID int       `json:"registration_id"`
	Present        bool      `json:"present"`
	MarkedAt       time.Time `json:"marked_at"` // UTC
}

// Registrant is the joined row used by listings, reports and the CSV export.
type Registrant struct {
	RegistrationID int       `json:"registration_id"`
	StudentID      string    `json:"student_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	RegisteredAt   time.Time `json:"registered_at"`
	Attended       bool      `json:"attended"`
}

// NewEvent contains information needed to create a new Event.
type NewEvent struct {
	Name     string    `json:"name" validate:"required"`
	StartsAt time.Time `json:"starts_at" validate:"required"`
	Venue    string    `json:"venue"`
	Capacity int       `json:"capacity" validate:"required,gt=0"`
}

func (ne *NewEvent) Validate() error {
	ne.Name = core.CleanString(ne.Name)
	ne.Venue = core.CleanString(ne.Venue)
	return core.Validate.Struct(ne)
}

// Stats summarizes attendance for one event.
type Stats struct {
	EventName  string  `json:"event_name"`
	Registered int     `json:"registered"`
	Attended   int     `json:"attended"`
	Rate       float64 `json:"rate"` // percentage, 2 decimal places
}

type Repository interface {
	CreateEvent(ctx context.Context, evt Event) (Event, error)
	QueryAllEvents(ctx context.Context) ([]Event, error) // date desc
	GetEventByID(ctx context.Context, id int) (Event, error)

	// CreateRegistration atomically verifies that the event and student
	// exist, that the pair is not already registered and that capacity is
	// not exhausted, then inserts. The checks and the insert run in one
	// transaction so concurrent registrants cannot oversubscribe an event.
	CreateRegistration(ctx context.Context, eventID int, studentID string, at time.Time) (Registration, error)
	GetRegistration(ctx context.Context, eventID int, studentID string) (Registration, error)
	GetRegistrationByID(ctx context.Context, id int) (Registration, error)
	CountRegistrations(ctx context.Context, eventID int) (int, error)
	// DeleteRegistration removes the registration and any attendance row.
	DeleteRegistration(ctx context.Context, eventID int, studentID string) error
	// QueryRegistrants returns joined rows in registration order.
	QueryRegistrants(ctx context.Context, eventID int) ([]Registrant, error)

	UpsertAttendance(ctx context.Context, registrationID int, present bool, at time.Time) error
	CountAttended(ctx context.Context, eventID int) (int, error)
}
