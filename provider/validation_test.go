package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfigFields(t *testing.T) {
	fields := []ConfigField{
		{Key: "keyId", Required: true, Type: "string", Pattern: "^rzp_(test|live)_", MinLength: 14},
		{Key: "environment", Required: true, Type: "string", Pattern: "^(sandbox|production)$"},
		{Key: "autoCapture", Required: false, Type: "boolean"},
		{Key: "baseURL", Required: false, Type: "url"},
		{Key: "timeoutSeconds", Required: false, Type: "number", MaxLength: 3},
	}

	valid := func() map[string]string {
		return map[string]string{
			"keyId":       "rzp_test_1234567890",
			"environment": "sandbox",
		}
	}

	tests := []struct {
		name    string
		mutate  func(map[string]string)
		wantErr string
	}{
		{"valid", func(map[string]string) {}, ""},
		{"optional_fields_valid", func(c map[string]string) {
			c["autoCapture"] = "false"
			c["baseURL"] = "http://127.0.0.1:8080/v1"
			c["timeoutSeconds"] = "30"
		}, ""},
		{"missing_required", func(c map[string]string) { delete(c, "keyId") }, "required field 'keyId' is missing"},
		{"blank_required", func(c map[string]string) { c["keyId"] = "   " }, "required field 'keyId' cannot be empty"},
		{"pattern_mismatch", func(c map[string]string) { c["keyId"] = "key_test_1234567890" }, "does not match required pattern"},
		{"too_short", func(c map[string]string) { c["keyId"] = "rzp_test_1" }, "must be at least 14 characters"},
		{"bad_environment", func(c map[string]string) { c["environment"] = "staging" }, "environment must match"},
		{"bad_boolean", func(c map[string]string) { c["autoCapture"] = "maybe" }, "must be 'true' or 'false'"},
		{"relative_url", func(c map[string]string) { c["baseURL"] = "/v1" }, "must be an absolute URL"},
		{"not_a_number", func(c map[string]string) { c["timeoutSeconds"] = "ten" }, "must be a number"},
		{"number_too_long", func(c map[string]string) { c["timeoutSeconds"] = "1000" }, "must not exceed 3 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := valid()
			tt.mutate(conf)

			err := ValidateConfigFields("razorpay", conf, fields)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
			assert.ErrorContains(t, err, "razorpay:")
		})
	}
}

func TestValidateConfigFields_FieldError(t *testing.T) {
	fields := []ConfigField{
		{Key: "keyId", Required: true},
		{Key: "keySecret", Required: true, MinLength: 8},
	}

	err := ValidateConfigFields("razorpay", map[string]string{"keyId": "rzp_test_1", "keySecret": "short"}, fields)

	var fieldErr *ConfigFieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "razorpay", fieldErr.Provider)
	assert.Equal(t, "keySecret", fieldErr.Field)
	assert.Equal(t, "razorpay: field 'keySecret' must be at least 8 characters", err.Error())
}
