package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/inkpress/apiserver/internal/errs"
	"github.com/inkpress/apiserver/internal/store"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateInput runs the struct's validate tags and reports the first failing
// field as an errs.Validation error.
func validateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errs.Wrap(errs.Internal, "validate input", err)
	}
	fe := fieldErrs[0]
	return errs.Invalid(fe.Field(), fieldMessage(fe))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fe.Field() + " is invalid"
	}
}

// validID reports whether id can name a stored entity. Anything else is
// treated as not found without reaching the store.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}

// storeError classifies a repository error for callers.
func storeError(entity string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return errs.Wrap(errs.NotFound, entity+" not found", err)
	case errors.Is(err, context.DeadlineExceeded):
		return errs.Wrap(errs.DependencyUnavailable, "storage timed out", err)
	default:
		return errs.Wrap(errs.Internal, "load "+entity, err)
	}
}

func notFound(entity string) error {
	return errs.Wrap(errs.NotFound, entity+" not found", store.ErrNotFound)
}
