package dto

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/support-desk/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("contact", func(fl validator.FieldLevel) bool {
		return domain.ValidContactNumber(strings.TrimSpace(fl.Field().String()))
	}); err != nil {
		panic("register contact validation: " + err.Error())
	}
	return v
}

// Validate checks a request struct and returns per-field details for the 400
// response, keyed by the JSON field name. Nil means the payload is valid.
func Validate(s any) map[string]any {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	details := map[string]any{}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			details[fe.Field()] = true
		}
	} else {
		details["payload"] = true
	}
	return details
}
