package logger

import (
	"sync"
	"testing"

	"github.com/Sammk21/medusa-admin/infra/config"
	"github.com/stretchr/testify/assert"
)

func resetGlobal() {
	global.Store(nil)
	initOnce = sync.Once{}
}

func TestInitGlobalLogger(t *testing.T) {
	resetGlobal()
	defer resetGlobal()

	InitGlobalLogger(nil)

	sl := global.Load()
	assert.NotNil(t, sl)
	assert.Equal(t, serviceName, sl.service)
	assert.Equal(t, serviceVersion, sl.version)
	assert.Nil(t, sl.sink)
}

func TestGetGlobalLogger(t *testing.T) {
	resetGlobal()
	defer resetGlobal()

	logger := GetGlobalLogger()
	assert.NotNil(t, logger)
	assert.Equal(t, serviceName, logger.service)
	assert.Same(t, logger, GetGlobalLogger())
}

func TestGlobalLoggerConvenienceFunctions(t *testing.T) {
	resetGlobal()
	defer resetGlobal()

	InitGlobalLogger(nil)
	global.Load().console = nil

	Debug("Debug message")
	Info("Info message")
	Warn("Warning message")
	Error("Error message", nil)

	ctx := LogContext{Provider: "razorpay"}
	Debug("Debug with context", ctx)
	Info("Info with context", ctx)
	Warn("Warning with context", ctx)
	Error("Error with context", nil, ctx)
}

func TestInitGlobalLogger_OnlyOnce(t *testing.T) {
	resetGlobal()
	defer resetGlobal()

	InitGlobalLogger(nil)
	first := global.Load()

	InitGlobalLogger(&recordingSink{})
	assert.Same(t, first, global.Load())
	assert.Nil(t, global.Load().sink)
}

func TestGlobalLogger_EnvironmentConfiguration(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		level    string
		expected LogLevel
	}{
		{"development_forces_debug", "development", "error", LevelDebug},
		{"production_uses_configured_level", "production", "warn", LevelWarn},
		{"production_invalid_level_defaults_to_info", "production", "loud", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", tt.env)
			t.Setenv("LOGGING_LEVEL", tt.level)
			config.ResetAppConfig()
			defer config.ResetAppConfig()

			resetGlobal()
			defer resetGlobal()

			InitGlobalLogger(nil)
			assert.Equal(t, tt.expected, global.Load().minLevel)
		})
	}
}
