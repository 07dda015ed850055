package handler

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validationMessages turns validator errors into a field->message map
// suitable for an inline, field-scoped error response.
func validationMessages(err error) any {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}

	errors := make(map[string]string)
	for _, e := range validationErrors {
		field := e.Field()
		switch e.Tag() {
		case "required":
			errors[field] = "field is required"
		case "min":
			errors[field] = "must be at least " + e.Param() + " characters"
		case "max":
			errors[field] = "must be at most " + e.Param() + " characters"
		case "gt":
			errors[field] = "must be greater than " + e.Param()
		case "datetime":
			errors[field] = "must be a date in YYYY-MM-DD format"
		default:
			errors[field] = "validation failed on " + e.Tag()
		}
	}
	return errors
}
