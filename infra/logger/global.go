package logger

import (
	"sync"
	"sync/atomic"

	"github.com/Sammk21/medusa-admin/infra/config"
)

const (
	serviceName    = "medusa-razorpay"
	serviceVersion = "1.0.0"
)

var (
	global   atomic.Pointer[SystemLogger]
	initOnce sync.Once
)

// InitGlobalLogger installs the process logger from the app config. Only the first call has an effect.
// sink may be nil for console only logging.
func InitGlobalLogger(sink EventSink) {
	initOnce.Do(func() {
		app := config.GetAppConfig()

		level := ParseLevel(app.LoggingLevel)
		if app.Environment == "development" {
			level = LevelDebug
		}

		global.Store(NewSystemLogger(sink, SystemLoggerConfig{
			EnableConsole:    true,
			EnableOpenSearch: sink != nil,
			MinLevel:         level,
			Service:          serviceName,
			Version:          serviceVersion,
			Environment:      app.Environment,
		}))
	})
}

// GetGlobalLogger returns the process logger, a console logger at info level until InitGlobalLogger runs
func GetGlobalLogger() *SystemLogger {
	if sl := global.Load(); sl != nil {
		return sl
	}

	global.CompareAndSwap(nil, NewSystemLogger(nil, SystemLoggerConfig{
		EnableConsole: true,
		MinLevel:      LevelInfo,
		Service:       serviceName,
		Version:       serviceVersion,
		Environment:   "development",
	}))
	return global.Load()
}

func Debug(message string, ctx ...LogContext) {
	GetGlobalLogger().emit(2, LevelDebug, message, nil, ctx)
}

func Info(message string, ctx ...LogContext) {
	GetGlobalLogger().emit(2, LevelInfo, message, nil, ctx)
}

func Warn(message string, ctx ...LogContext) {
	GetGlobalLogger().emit(2, LevelWarn, message, nil, ctx)
}

func Error(message string, err error, ctx ...LogContext) {
	GetGlobalLogger().emit(2, LevelError, message, err, ctx)
}

// Fatal logs through the global logger and exits
func Fatal(message string, err error, ctx ...LogContext) {
	sl := GetGlobalLogger()
	sl.emit(2, LevelFatal, message, err, ctx)
	sl.exit(1)
}
