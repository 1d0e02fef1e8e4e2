package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iago/blog-generation-back/internal/domain"
)

func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return validate
}

// validationError converts the first validator failure into a domain
// validation error keyed by the JSON field name.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	first := fieldErrs[0]
	field := first.Field()
	if index := strings.Index(field, "["); index > 0 {
		field = field[:index]
	}

	var message string
	switch first.Tag() {
	case "required":
		message = "is required"
	case "max":
		message = fmt.Sprintf("must be at most %s characters", first.Param())
	case "min":
		message = fmt.Sprintf("must contain at least %s value", first.Param())
	case "oneof":
		message = fmt.Sprintf("must be one of: %s", strings.ReplaceAll(first.Param(), " ", ", "))
	case "url":
		message = "must be a valid URL"
	default:
		message = fmt.Sprintf("failed %s validation", first.Tag())
	}
	return domain.NewValidationError(field, message)
}
