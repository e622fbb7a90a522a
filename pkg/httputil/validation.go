package httputil

import (
	"github.com/go-playground/validator/v10"
	"github.com/stockpulse/stockpulse-backend/pkg/errors"
)

var validate = validator.New()

// Validate checks v against its validate struct tags and folds any
// failures into a single VALIDATION_ERROR with per-field messages.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	details := make(map[string]string)
	for _, e := range err.(validator.ValidationErrors) {
		details[e.Field()] = fieldMessage(e)
	}
	return errors.Validation(details)
}

// fieldMessage renders the tags the request DTOs use; anything exotic
// falls back to a generic message rather than leaking tag syntax.
func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "datetime":
		return "must be a date in format " + e.Param()
	}
	return "invalid value"
}
