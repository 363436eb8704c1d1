package logger

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu      sync.Mutex
	entries []any
	done    chan struct{}
}

func (s *recordingSink) LogSystemEvent(_ context.Context, entry any) error {
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()
	if s.done != nil {
		s.done <- struct{}{}
	}
	return nil
}

func testConfig(minLevel LogLevel, console *bytes.Buffer) SystemLoggerConfig {
	cfg := SystemLoggerConfig{
		EnableConsole: console != nil,
		MinLevel:      minLevel,
		Service:       "test-service",
		Version:       "1.0.0",
		Environment:   "test",
	}
	if console != nil {
		cfg.Console = console
	}
	return cfg
}

func TestNewSystemLogger(t *testing.T) {
	config := testConfig(LevelInfo, nil)

	logger := NewSystemLogger(nil, config)

	assert.NotNil(t, logger)
	assert.Nil(t, logger.console)
	assert.Nil(t, logger.sink)
	assert.Equal(t, config.MinLevel, logger.minLevel)
	assert.Equal(t, config.Service, logger.service)
	assert.Equal(t, config.Version, logger.version)
	assert.Equal(t, config.Environment, logger.environment)
}

func TestSystemLogger_ShouldLog(t *testing.T) {
	tests := []struct {
		name     string
		minLevel LogLevel
		level    LogLevel
		expected bool
	}{
		{"debug_level_allows_all", LevelDebug, LevelDebug, true},
		{"info_level_blocks_debug", LevelInfo, LevelDebug, false},
		{"info_level_allows_info", LevelInfo, LevelInfo, true},
		{"warn_level_allows_error", LevelWarn, LevelError, true},
		{"error_level_blocks_warn", LevelError, LevelWarn, false},
		{"fatal_level_allows_fatal", LevelFatal, LevelFatal, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewSystemLogger(nil, testConfig(tt.minLevel, nil))
			assert.Equal(t, tt.expected, logger.shouldLog(tt.level))
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		" warn ":  LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"fatal":   LevelFatal,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}

	for input, want := range tests {
		if got := ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestExtractComponent(t *testing.T) {
	tests := []struct {
		name     string
		filePath string
		expected string
	}{
		{"provider_file", "/src/app/provider/razorpay/client.go", "provider/razorpay"},
		{"infra_file", "/src/app/infra/cache/webhook_store.go", "infra/cache"},
		{"handler_file", "/src/app/handler/payment.go", "handler"},
		{"unknown_file", "/some/other/path/file.go", "path"},
		{"single_part", "file.go", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractComponent(tt.filePath))
		})
	}
}

func TestSystemLogger_LogToConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSystemLogger(nil, testConfig(LevelDebug, &buf))

	logger.Info("Test console message", LogContext{
		Provider:  "razorpay",
		RequestID: "req-1",
		Fields:    map[string]any{"order_id": "order_1"},
	})
	logger.Debug("Debug console message")

	output := buf.String()
	assert.Contains(t, output, "Test console message")
	assert.Contains(t, output, "INFO")
	assert.Contains(t, output, "provider=razorpay")
	assert.Contains(t, output, "req_id=req-1")
	assert.Contains(t, output, "order_id: order_1")
	assert.Contains(t, output, "Debug console message")
}

func TestSystemLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSystemLogger(nil, testConfig(LevelWarn, &buf))

	logger.Debug("hidden debug")
	logger.Info("hidden info")
	logger.Warn("visible warning")

	output := buf.String()
	assert.NotContains(t, output, "hidden")
	assert.Contains(t, output, "visible warning")
}

func TestSystemLogger_ErrorDoesNotMutateFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSystemLogger(nil, testConfig(LevelDebug, &buf))

	fields := map[string]any{"key": "value"}
	logger.Error("Error message", errors.New("boom"), LogContext{Fields: fields})

	assert.Contains(t, buf.String(), "Error: boom")
	_, hasError := fields["error"]
	assert.False(t, hasError)
}

func TestSystemLogger_ShipsToSink(t *testing.T) {
	sink := &recordingSink{done: make(chan struct{}, 1)}
	cfg := testConfig(LevelInfo, nil)
	cfg.EnableOpenSearch = true

	logger := NewSystemLogger(sink, cfg)
	logger.Info("shipped", LogContext{Provider: "razorpay"})

	select {
	case <-sink.done:
	case <-time.After(2 * time.Second):
		t.Fatal("sink did not receive the entry")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.entries, 1)
	entry, ok := sink.entries[0].(SystemLog)
	require.True(t, ok)
	assert.Equal(t, "shipped", entry.Message)
	assert.Equal(t, "razorpay", entry.Provider)
	assert.Equal(t, "test-service", entry.Service)
}

func TestSystemLogger_SinkIgnoredWhenDisabled(t *testing.T) {
	logger := NewSystemLogger(&recordingSink{}, testConfig(LevelInfo, nil))
	assert.Nil(t, logger.sink)
}

func TestSystemLogger_CallerLocation(t *testing.T) {
	sink := &recordingSink{done: make(chan struct{}, 1)}
	cfg := testConfig(LevelInfo, nil)
	cfg.EnableOpenSearch = true

	NewSystemLogger(sink, cfg).Warn("where")
	<-sink.done

	sink.mu.Lock()
	defer sink.mu.Unlock()
	entry := sink.entries[0].(SystemLog)
	assert.Equal(t, "TestSystemLogger_CallerLocation", entry.Function)
	assert.Contains(t, entry.File, "system_logger_test.go")
}

func TestSystemLogger_Fatal(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSystemLogger(nil, testConfig(LevelInfo, &buf))

	code := -1
	logger.exit = func(c int) { code = c }
	logger.Fatal("stopping", errors.New("bad config"))

	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "FATAL")
	assert.Contains(t, buf.String(), "Error: bad config")
}
