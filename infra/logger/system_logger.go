package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"runtime"
	"slices"
	"strings"
	"time"
)

// LogLevel is the severity of an entry, stored as its lowercase name
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
	LevelFatal LogLevel = "fatal"
)

func (l LogLevel) rank() int {
	switch l {
	case LevelDebug:
		return 0
	case LevelInfo:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	case LevelFatal:
		return 4
	}
	return -1
}

// ParseLevel converts a level name into a LogLevel, falling back to info
func ParseLevel(s string) LogLevel {
	level := LogLevel(strings.ToLower(strings.TrimSpace(s)))
	if level == "warning" {
		return LevelWarn
	}
	if level.rank() < 0 {
		return LevelInfo
	}
	return level
}

// SystemLog is one structured entry as shipped to the sink
type SystemLog struct {
	Timestamp   time.Time      `json:"timestamp"`
	Level       LogLevel       `json:"level"`
	Message     string         `json:"message"`
	Component   string         `json:"component"`
	Function    string         `json:"function"`
	File        string         `json:"file"`
	Line        int            `json:"line"`
	Provider    string         `json:"provider,omitempty"`
	RequestID   string         `json:"request_id,omitempty"`
	Error       string         `json:"error,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
	Environment string         `json:"environment"`
	Service     string         `json:"service"`
	Version     string         `json:"version"`
}

// EventSink receives entries for remote storage
type EventSink interface {
	LogSystemEvent(ctx context.Context, entry any) error
}

// LogContext carries the request scoped attributes of an entry
type LogContext struct {
	Provider  string
	RequestID string
	Fields    map[string]any
}

// SystemLoggerConfig configures NewSystemLogger
type SystemLoggerConfig struct {
	EnableConsole    bool
	EnableOpenSearch bool
	MinLevel         LogLevel
	Service          string
	Version          string
	Environment      string
	Console          io.Writer // defaults to os.Stdout
}

// SystemLogger writes entries to the console and ships them to an optional sink
type SystemLogger struct {
	console  io.Writer // nil disables console output
	sink     EventSink // nil disables shipping
	minLevel LogLevel

	service     string
	version     string
	environment string

	exit func(code int)
}

// NewSystemLogger creates a logger. The sink is used only when cfg.EnableOpenSearch is set.
func NewSystemLogger(sink EventSink, cfg SystemLoggerConfig) *SystemLogger {
	sl := &SystemLogger{
		minLevel:    cfg.MinLevel,
		service:     cfg.Service,
		version:     cfg.Version,
		environment: cfg.Environment,
		exit:        os.Exit,
	}
	if cfg.EnableConsole {
		sl.console = cfg.Console
		if sl.console == nil {
			sl.console = os.Stdout
		}
	}
	if cfg.EnableOpenSearch {
		sl.sink = sink
	}
	return sl
}

func (sl *SystemLogger) Debug(message string, ctx ...LogContext) {
	sl.emit(2, LevelDebug, message, nil, ctx)
}

func (sl *SystemLogger) Info(message string, ctx ...LogContext) {
	sl.emit(2, LevelInfo, message, nil, ctx)
}

func (sl *SystemLogger) Warn(message string, ctx ...LogContext) {
	sl.emit(2, LevelWarn, message, nil, ctx)
}

func (sl *SystemLogger) Error(message string, err error, ctx ...LogContext) {
	sl.emit(2, LevelError, message, err, ctx)
}

// Fatal logs and terminates the process
func (sl *SystemLogger) Fatal(message string, err error, ctx ...LogContext) {
	sl.emit(2, LevelFatal, message, err, ctx)
	sl.exit(1)
}

func (sl *SystemLogger) shouldLog(level LogLevel) bool {
	return level.rank() >= sl.minLevel.rank()
}

// emit builds the entry. skip counts frames above emit, so the level methods pass 2.
func (sl *SystemLogger) emit(skip int, level LogLevel, message string, err error, ctx []LogContext) {
	if !sl.shouldLog(level) {
		return
	}

	entry := SystemLog{
		Timestamp:   time.Now().UTC(),
		Level:       level,
		Message:     message,
		File:        "unknown",
		Function:    "unknown",
		Environment: sl.environment,
		Service:     sl.service,
		Version:     sl.version,
	}
	if pc, file, line, ok := runtime.Caller(skip); ok {
		entry.File, entry.Line = file, line
		if fn := runtime.FuncForPC(pc); fn != nil {
			entry.Function = shortFuncName(fn.Name())
		}
	}
	entry.Component = extractComponent(entry.File)

	if len(ctx) > 0 {
		entry.Provider = ctx[0].Provider
		entry.RequestID = ctx[0].RequestID
		entry.Fields = ctx[0].Fields
	}
	if err != nil {
		// copy so the caller's map is left alone
		fields := make(map[string]any, len(entry.Fields)+1)
		for k, v := range entry.Fields {
			fields[k] = v
		}
		fields["error"] = err.Error()
		entry.Fields = fields
	}
	if msg, ok := entry.Fields["error"].(string); ok {
		entry.Error = msg
	}

	if sl.console != nil {
		writeConsole(sl.console, entry)
	}
	if sl.sink != nil {
		go sl.ship(entry)
	}
}

func shortFuncName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

// top level directories of this module
var componentRoots = []string{"provider", "handler", "router", "infra", "cmd"}

// extractComponent names the package a file lives in, e.g.
// /src/app/provider/razorpay/client.go -> provider/razorpay
func extractComponent(file string) string {
	parts := strings.Split(path.Dir(file), "/")

	for i := len(parts) - 1; i >= 0; i-- {
		if slices.Contains(componentRoots, parts[i]) {
			if i+1 < len(parts) {
				return parts[i] + "/" + parts[i+1]
			}
			return parts[i]
		}
	}

	if last := parts[len(parts)-1]; last != "." && last != "" {
		return last
	}
	return "unknown"
}

var levelColors = map[LogLevel]string{
	LevelDebug: "\033[36m",
	LevelInfo:  "\033[32m",
	LevelWarn:  "\033[33m",
	LevelError: "\033[31m",
	LevelFatal: "\033[35m",
}

// writeConsole prints one header line followed by the sorted fields, one per line
func writeConsole(w io.Writer, entry SystemLog) {
	var b strings.Builder

	fmt.Fprintf(&b, "%s [%s%s\033[0m] [%s] ",
		entry.Timestamp.Format(time.DateTime),
		levelColors[entry.Level], strings.ToUpper(string(entry.Level)),
		entry.Component)

	var tags []string
	if entry.Provider != "" {
		tags = append(tags, "provider="+entry.Provider)
	}
	if id := entry.RequestID; id != "" {
		tags = append(tags, "req_id="+id[:min(len(id), 8)])
	}
	if len(tags) > 0 {
		fmt.Fprintf(&b, "[%s] ", strings.Join(tags, " "))
	}

	b.WriteString(entry.Message)
	if entry.Error != "" {
		b.WriteString(" - Error: " + entry.Error)
	}
	b.WriteByte('\n')

	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		if k != "error" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %v\n", k, entry.Fields[k])
	}

	_, _ = io.WriteString(w, b.String())
}

func (sl *SystemLogger) ship(entry SystemLog) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sl.sink.LogSystemEvent(ctx, entry); err != nil {
		log.Printf("failed to ship system log: %v", err)
	}
}
