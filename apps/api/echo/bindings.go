package echoapi

import (
	"github.com/trezcool/hafla/core"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Validate() error {
	r.Username = core.CleanString(r.Username, true /* lower */)
	return core.Validate.Struct(r)
}

type LoginResponse struct {
	Token string `json:"token"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *PasswordResetRequest) Validate() error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return core.Validate.Struct(r)
}

type SuccessResponse struct {
	Success string `json:"success"`
}

type RegistrationRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

func (r *RegistrationRequest) Validate() error {
	r.StudentID = core.CleanString(r.StudentID, true /* lower */)
	return core.Validate.Struct(r)
}

type NotifyRequest struct {
	Subject string `json:"subject" validate:"required"`
	Body    string `json:"body" validate:"required"`
}

func (r *NotifyRequest) Validate() error {
	r.Subject = core.CleanString(r.Subject)
	return core.Validate.Struct(r)
}
