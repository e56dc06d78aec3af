package user

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/hafla/core"
)

var (
	roleTag  = "role"
	roleText = "role must be one of: admin, volunteer"
)

func init() {
	_ = core.Validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(core.Validate, core.Translator, roleTag, roleText)
}

// roleValidation checks that the value is a known Role.
func roleValidation(fl validator.FieldLevel) bool {
	return Role(fl.Field().String()).IsValid()
}
