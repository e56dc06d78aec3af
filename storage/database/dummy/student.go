package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/hafla/core/student"
)

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.event.student}
}

func (repo *studentRepository) query() []student.Student {
	students := make([]student.Student, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		students = append(students, *s)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students
}

func (repo *studentRepository) CheckStudentUniqueness(ctx context.Context, id, email string, excluded ...student.Student) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, std := range repo.query() {
		if stdExcluded(std, excluded) {
			continue
		}
		if id != "" && std.ID == id {
			return student.ErrIDExists
		}
		if std.Email == email {
			return student.ErrEmailExists
		}
	}
	return nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[std.ID] = &std
	return std, nil
}

func (repo *studentRepository) QueryAllStudents(ctx context.Context) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(), nil
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if std, ok := repo.db.table[id]; ok {
		return *std, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) FilterStudents(ctx context.Context, filter student.QueryFilter) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := repo.query()

	if filter.Search != "" {
		var filtered []student.Student
		search := strings.ToLower(filter.Search)
		for _, s := range students {
			if strings.Contains(strings.ToLower(s.ID), search) ||
				strings.Contains(strings.ToLower(s.Name), search) ||
				strings.Contains(strings.ToLower(s.Email), search) {
				filtered = append(filtered, s)
			}
		}
		students = filtered
	}
	if students != nil && filter.Course != "" {
		var filtered []student.Student
		for _, s := range students {
			if strings.EqualFold(s.Course, filter.Course) {
				filtered = append(filtered, s)
			}
		}
		students = filtered
	}
	if students != nil && filter.Year != 0 {
		var filtered []student.Student
		for _, s := range students {
			if s.Year == filter.Year {
				filtered = append(filtered, s)
			}
		}
		students = filtered
	}

	return students, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[std.ID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	if std.Name != "" {
		orig.Name = std.Name
	}
	if std.Email != "" {
		orig.Email = std.Email
	}
	if std.Course != "" {
		orig.Course = std.Course
	}
	if std.Year != 0 {
		orig.Year = std.Year
	}
	orig.UpdatedAt = std.UpdatedAt

	repo.db.table[std.ID] = orig
	return *orig, nil
}

func (repo *studentRepository) DeleteStudentsByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}

func stdExcluded(std student.Student, excluded []student.Student) bool {
	for _, e := range excluded {
		if e.ID == std.ID {
			return true
		}
	}
	return false
}
