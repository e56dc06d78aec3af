package dummydb

import (
	"sync"

	"github.com/trezcool/hafla/core/event"
	"github.com/trezcool/hafla/core/student"
	"github.com/trezcool/hafla/core/user"
)

type (
	DB struct {
		user  *userTable
		event *eventTables
	}

	userTable struct {
		sync.RWMutex
		table map[int]*user.User
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*student.Student
	}

	// eventTables groups events, registrations and attendance under one
	// lock so registration capacity checks are atomic.
	eventTables struct {
		sync.RWMutex
		events        map[int]*event.Event
		registrations map[int]*event.Registration
		attendance    map[int]*event.Attendance // keyed by registration ID
		student       *studentTable
	}
)

func Open() (*DB, error) {
	students := &studentTable{table: make(map[string]*student.Student)}
	db := &DB{
		user: &userTable{table: make(map[int]*user.User)},
		event: &eventTables{
			events:        make(map[int]*event.Event),
			registrations: make(map[int]*event.Registration),
			attendance:    make(map[int]*event.Attendance),
			student:       students,
		},
	}
	return db, nil
}
