package utils

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	err := validate.RegisterValidation("command_type", validateCommandType)
	if err != nil {
		return
	}
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

var commandTypeRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,49}$`)

// Command types are snake_case identifiers such as set_relay_state or
// turn_pump_on.
func validateCommandType(fl validator.FieldLevel) bool {
	return commandTypeRe.MatchString(fl.Field().String())
}
