package student

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/hafla/core"
)

var (
	// errors
	ErrNotFound    = errors.New("student not found")
	ErrIDExists    = errors.New("a student with this id already exists")
	ErrEmailExists = errors.New("a student with this email already exists")
)

type (
	Repository interface {
		CheckStudentUniqueness(ctx context.Context, id, email string, excluded ...Student) error
		CreateStudent(ctx context.Context, std Student) (Student, error)
		QueryAllStudents(ctx context.Context) ([]Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		// FilterStudents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Student.ID, Student.Name or Student.Email.
		FilterStudents(ctx context.Context, filter QueryFilter) ([]Student, error)
		UpdateStudent(ctx context.Context, std Student) (Student, error)
		DeleteStudentsByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(ctx context.Context, id, email string, excluded ...Student) error {
	if err := svc.repo.CheckStudentUniqueness(ctx, id, email, excluded...); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrIDExists:
			field = "id"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	now := time.Now().UTC()
	std := Student{
		ID:        ns.ID,
		Name:      ns.Name,
		Email:     ns.Email,
		Course:    ns.Course,
		Year:      ns.Year,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateStudent(ctx, std)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Student, error) {
	return svc.repo.QueryAllStudents(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, core.CleanString(id, true /* lower */))
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Student, error) {
	return svc.repo.FilterStudents(ctx, filter)
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	std := Student{
		ID:        id,
		Name:      us.Name,
		Email:     us.Email,
		Course:    us.Course,
		Year:      us.Year,
		UpdatedAt: time.Now().UTC(),
	}
	return svc.repo.UpdateStudent(ctx, std)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteStudentsByID(ctx, ids...)
}
