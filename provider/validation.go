package provider

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// ConfigFieldError reports the first configuration field that failed validation
type ConfigFieldError struct {
	Provider string
	Field    string
	Reason   string
}

func (e *ConfigFieldError) Error() string {
	return e.Provider + ": " + e.Reason
}

// ValidateConfigFields checks config against the field definitions of a provider.
// Optional fields are only checked when set.
func ValidateConfigFields(providerName string, config map[string]string, fields []ConfigField) error {
	for _, field := range fields {
		if reason := checkField(field, config); reason != "" {
			return &ConfigFieldError{Provider: providerName, Field: field.Key, Reason: reason}
		}
	}
	return nil
}

func checkField(field ConfigField, config map[string]string) string {
	value, present := config[field.Key]
	blank := strings.TrimSpace(value) == ""

	switch {
	case blank && !field.Required:
		return ""
	case !present:
		return fmt.Sprintf("required field '%s' is missing", field.Key)
	case blank:
		return fmt.Sprintf("required field '%s' cannot be empty", field.Key)
	}

	for _, check := range []func(ConfigField, string) string{checkType, checkPattern, checkLength} {
		if reason := check(field, value); reason != "" {
			return reason
		}
	}
	return ""
}

func checkType(field ConfigField, value string) string {
	switch field.Type {
	case "number":
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Sprintf("field '%s' must be a number", field.Key)
		}
	case "boolean":
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Sprintf("field '%s' must be 'true' or 'false'", field.Key)
		}
	case "url":
		if u, err := url.Parse(value); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Sprintf("field '%s' must be an absolute URL", field.Key)
		}
	}
	return ""
}

func checkPattern(field ConfigField, value string) string {
	if field.Pattern == "" {
		return ""
	}

	re, err := regexp.Compile(field.Pattern)
	if err != nil {
		return fmt.Sprintf("invalid pattern for field '%s': %v", field.Key, err)
	}
	if re.MatchString(value) {
		return ""
	}

	// the environment pattern is short and tells the caller the accepted values
	if field.Key == "environment" {
		return "environment must match " + field.Pattern
	}
	return fmt.Sprintf("field '%s' does not match required pattern", field.Key)
}

func checkLength(field ConfigField, value string) string {
	switch {
	case field.MinLength > 0 && len(value) < field.MinLength:
		return fmt.Sprintf("field '%s' must be at least %d characters", field.Key, field.MinLength)
	case field.MaxLength > 0 && len(value) > field.MaxLength:
		return fmt.Sprintf("field '%s' must not exceed %d characters", field.Key, field.MaxLength)
	}
	return ""
}
