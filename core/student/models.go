package student

import (
	"context"
	"time"

	"github.com/trezcool/hafla/core"
)

// Student is a registrant; ID is the institutional identifier (e.g. "S001").
type Student struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Course    string    `json:"course,omitempty"`
	Year      int       `json:"year,omitempty"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	ID     string `json:"id" validate:"required,alphanum_"`
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
	Course string `json:"course"`
	Year   int    `json:"year" validate:"omitempty,gt=0"`
}

func (ns *NewStudent) Validate(ctx context.Context, svc *Service) error {
	ns.ID = core.CleanString(ns.ID, true /* lower */)
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)

	if err := core.Validate.Struct(ns); err != nil {
		return err
	}
	return svc.checkUniqueness(ctx, ns.ID, ns.Email)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
type UpdateStudent struct {
	Name   string `json:"name"`
	Email  string `json:"email" validate:"omitempty,email"`
	Course string `json:"course"`
	Year   int    `json:"year" validate:"omitempty,gt=0"`
}

func (us *UpdateStudent) Validate(ctx context.Context, orig Student, svc *Service) error {
	name := core.CleanString(us.Name)
	if name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}

	email := core.CleanString(us.Email, true /* lower */)
	if email != "" {
		us.Email = email
	} else {
		us.Email = orig.Email
	}

	if us.Course == "" {
		us.Course = orig.Course
	}
	if us.Year == 0 {
		us.Year = orig.Year
	}

	if err := core.Validate.Struct(us); err != nil {
		return err
	}
	return svc.checkUniqueness(ctx, "", us.Email, orig)
}

type QueryFilter struct {
	Search string `query:"search"`
	Course string `query:"course"`
	Year   int    `query:"year"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Course == "" && qf.Year == 0
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Course = core.CleanString(qf.Course)
}
