package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/hafla/core/event"
)

var (
	eventPKCount int
	regPKCount   int
)

type eventRepository struct {
	db *eventTables
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *DB) event.Repository {
	return &eventRepository{db: db.event}
}

func (repo *eventRepository) CreateEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	eventPKCount++
	evt.ID = eventPKCount
	repo.db.events[evt.ID] = &evt
	return evt, nil
}

func (repo *eventRepository) QueryAllEvents(ctx context.Context) ([]event.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	events := make([]event.Event, 0, len(repo.db.events))
	for _, e := range repo.db.events {
		events = append(events, *e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].StartsAt.After(events[j].StartsAt) })
	return events, nil
}

func (repo *eventRepository) GetEventByID(ctx context.Context, id int) (event.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if evt, ok := repo.db.events[id]; ok {
		return *evt, nil
	}
	return event.Event{}, event.ErrNotFound
}

// CreateRegistration holds the write lock across the existence, duplicate
// and capacity checks and the insert, mirroring the row-locked transaction
// the SQL implementation uses.
func (repo *eventRepository) CreateRegistration(ctx context.Context, eventID int, studentID string, at time.Time) (event.Registration, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	evt, ok := repo.db.events[eventID]
	if !ok {
		return event.Registration{}, event.ErrNotFound
	}

	repo.db.student.RLock()
	_, ok = repo.db.student.table[studentID]
	repo.db.student.RUnlock()
	if !ok {
		return event.Registration{}, event.ErrStudentNotFound
	}

	var count int
	for _, reg := range repo.db.registrations {
		if reg.EventID != eventID {
			continue
		}
		if reg.StudentID == studentID {
			return event.Registration{}, event.ErrAlreadyRegistered
		}
		count++
	}
	if count >= evt.Capacity {
		return event.Registration{}, event.ErrEventFull
	}

	regPKCount++
	reg := event.Registration{
		ID:        regPKCount,
		EventID:   eventID,
		StudentID: studentID,
		CreatedAt: at,
	}
	repo.db.registrations[reg.ID] = &reg
	return reg, nil
}

func (repo *eventRepository) GetRegistration(ctx context.Context, eventID int, studentID string) (event.Registration, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, reg := range repo.db.registrations {
		if reg.EventID == eventID && reg.StudentID == studentID {
			return *reg, nil
		}
	}
	return event.Registration{}, event.ErrNotRegistered
}

func (repo *eventRepository) GetRegistrationByID(ctx context.Context, id int) (event.Registration, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if reg, ok := repo.db.registrations[id]; ok {
		return *reg, nil
	}
	return event.Registration{}, event.ErrNotRegistered
}

func (repo *eventRepository) CountRegistrations(ctx context.Context, eventID int) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	for _, reg := range repo.db.registrations {
		if reg.EventID == eventID {
			count++
		}
	}
	return count, nil
}

func (repo *eventRepository) DeleteRegistration(ctx context.Context, eventID int, studentID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, reg := range repo.db.registrations {
		if reg.EventID == eventID && reg.StudentID == studentID {
			delete(repo.db.attendance, id)
			delete(repo.db.registrations, id)
			return nil
		}
	}
	return event.ErrNotRegistered
}

func (repo *eventRepository) QueryRegistrants(ctx context.Context, eventID int) ([]event.Registrant, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	regs := make([]event.Registration, 0)
	for _, reg := range repo.db.registrations {
		if reg.EventID == eventID {
			regs = append(regs, *reg)
		}
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].ID < regs[j].ID })

	repo.db.student.RLock()
	defer repo.db.student.RUnlock()

	registrants := make([]event.Registrant, 0, len(regs))
	for _, reg := range regs {
		r := event.Registrant{
			RegistrationID: reg.ID,
			StudentID:      reg.StudentID,
			RegisteredAt:   reg.CreatedAt,
		}
		if std, ok := repo.db.student.table[reg.StudentID]; ok {
			r.Name = std.Name
			r.Email = std.Email
		}
		if att, ok := repo.db.attendance[reg.ID]; ok {
			r.Attended = att.Present
		}
		registrants = append(registrants, r)
	}
	return registrants, nil
}

func (repo *eventRepository) UpsertAttendance(ctx context.Context, registrationID int, present bool, at time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.registrations[registrationID]; !ok {
		return event.ErrNotRegistered
	}
	repo.db.attendance[registrationID] = &event.Attendance{
		RegistrationID: registrationID,
		Present:        present,
		MarkedAt:       at,
	}
	return nil
}

func (repo *eventRepository) CountAttended(ctx context.Context, eventID int) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	for _, att := range repo.db.attendance {
		if !att.Present {
			continue
		}
		if reg, ok := repo.db.registrations[att.RegistrationID]; ok && reg.EventID == eventID {
			count++
		}
	}
	return count, nil
}
