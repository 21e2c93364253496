package apiutil

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/codr1/courtsync/internal/timeslot"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	// clock accepts "HH:MM" up to and including "24:00".
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := timeslot.ParseClock(fl.Field().String())
		return err == nil
	})
	return v
}

// DecodeAndValidate decodes a JSON body into dst and runs its validate tags.
// Failures come back as a 400 HandlerError.
func DecodeAndValidate(r *http.Request, dst any) error {
	if err := DecodeJSON(r, dst); err != nil {
		return HandlerError{Status: http.StatusBadRequest, Message: "Invalid request body", Err: err}
	}
	return Validate(dst)
}

func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return HandlerError{Status: http.StatusBadRequest, Message: "Invalid request", Err: err}
	}
	fields := make([]FieldError, 0, len(validationErrs))
	for _, fe := range validationErrs {
		fields = append(fields, FieldError{Field: fe.Field(), Reason: reason(fe)})
	}
	return HandlerError{Status: http.StatusBadRequest, Message: "Invalid request", Err: err, Fields: fields}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt", "gte", "min":
		return "must be at least " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	case "datetime":
		return "must match " + fe.Param()
	case "clock":
		return "must be HH:MM"
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "is invalid"
	}
}
