// Package validate registers the custom validation tags used by request payloads
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Sammk21/medusa-admin/infra/config"
	"github.com/go-playground/validator/v10"
)

var currencyPattern = regexp.MustCompile(`^[A-Za-z]{3}$`)

// Register adds the custom tags to v
func Register(v *validator.Validate) error {
	if err := v.RegisterValidation("currency", currency); err != nil {
		return fmt.Errorf("register currency validation: %w", err)
	}
	return nil
}

// CustomValidate registers the custom tags on the application validator
func CustomValidate() error {
	return Register(config.App().Validator)
}

// currency accepts ISO 4217 style three letter codes in any case
func currency(fl validator.FieldLevel) bool {
	return currencyPattern.MatchString(fl.Field().String())
}

// Message flattens validator errors into one readable line
func Message(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "currency":
			parts = append(parts, fmt.Sprintf("%s must be a three letter currency code", fe.Field()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
