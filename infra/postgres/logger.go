package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Sammk21/medusa-admin/infra/conn"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusError   = "error"
)

// ProviderLog is one logged provider call
type ProviderLog struct {
	ID           int64           `json:"id"`
	Provider     string          `json:"provider"`
	Environment  string          `json:"environment"`
	Operation    string          `json:"operation"`
	Status       string          `json:"status"`
	Request      json.RawMessage `json:"request,omitempty"`
	Response     json.RawMessage `json:"response,omitempty"`
	ErrorCode    string          `json:"error_code,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	ProcessingMs int64           `json:"processing_ms"`
	RequestAt    time.Time       `json:"request_at"`
	ResponseAt   *time.Time      `json:"response_at,omitempty"`
}

// LogFilter narrows SearchLogs
type LogFilter struct {
	Provider    string
	Environment string
	Operation   string
	Status      string
	SessionID   string
	StartDate   time.Time
	EndDate     time.Time
	Limit       int
}

// Logger stores provider calls in PostgreSQL
type Logger struct {
	db *sql.DB
}

// NewLogger creates a new PostgreSQL logger
func NewLogger(db *conn.DB) *Logger {
	return &Logger{
		db: db.DB,
	}
}

// LogRequest stores the sanitized request of a provider call and returns the log id
func (l *Logger) LogRequest(ctx context.Context, providerName, environment, operation string, request any) (int64, error) {
	requestJSON, err := sanitizedJSON(request)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	query := `
		INSERT INTO provider_logs (provider, environment, operation, status, request, request_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	err = l.db.QueryRowContext(ctx, query,
		strings.ToLower(providerName),
		environment,
		operation,
		StatusPending,
		string(requestJSON),
		time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert provider log: %w", err)
	}

	return id, nil
}

// LogResponse completes a log entry with the sanitized response
func (l *Logger) LogResponse(ctx context.Context, logID int64, response any, processingMs int64) error {
	responseJSON, err := sanitizedJSON(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	query := `
		UPDATE provider_logs
		SET status = $1, response = $2, processing_ms = $3, response_at = $4
		WHERE id = $5
	`

	if _, err := l.db.ExecContext(ctx, query, StatusSuccess, string(responseJSON), processingMs, time.Now().UTC(), logID); err != nil {
		return fmt.Errorf("failed to update provider log: %w", err)
	}
	return nil
}

// LogError completes a log entry with the failure of the call
func (l *Logger) LogError(ctx context.Context, logID int64, errorCode, errorMsg string, processingMs int64) error {
	query := `
		UPDATE provider_logs
		SET status = $1, error_code = $2, error_message = $3, processing_ms = $4, response_at = $5
		WHERE id = $6
	`

	if _, err := l.db.ExecContext(ctx, query, StatusError, errorCode, errorMsg, processingMs, time.Now().UTC(), logID); err != nil {
		return fmt.Errorf("failed to update provider log: %w", err)
	}
	return nil
}

// SearchLogs returns the newest provider calls matching the filter
func (l *Logger) SearchLogs(ctx context.Context, filter LogFilter) ([]ProviderLog, error) {
	query, args := buildSearchQuery(filter)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search provider logs: %w", err)
	}
	defer rows.Close()

	var logs []ProviderLog
	for rows.Next() {
		var (
			entry               ProviderLog
			request, response   sql.NullString
			errorCode, errorMsg sql.NullString
			processingMs        sql.NullInt64
			responseAt          sql.NullTime
		)

		if err := rows.Scan(&entry.ID, &entry.Provider, &entry.Environment, &entry.Operation, &entry.Status,
			&request, &response, &errorCode, &errorMsg, &processingMs, &entry.RequestAt, &responseAt); err != nil {
			return nil, fmt.Errorf("failed to scan provider log: %w", err)
		}

		if request.Valid {
			entry.Request = json.RawMessage(request.String)
		}
		if response.Valid {
			entry.Response = json.RawMessage(response.String)
		}
		entry.ErrorCode = errorCode.String
		entry.ErrorMessage = errorMsg.String
		entry.ProcessingMs = processingMs.Int64
		if responseAt.Valid {
			t := responseAt.Time
			entry.ResponseAt = &t
		}

		logs = append(logs, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating provider logs: %w", err)
	}

	return logs, nil
}

// likeEscaper makes LIKE wildcards in a search term match literally
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func buildSearchQuery(filter LogFilter) (string, []any) {
	query := `
		SELECT id, provider, environment, operation, status, request, response,
			error_code, error_message, processing_ms, request_at, response_at
		FROM provider_logs
		WHERE 1=1
	`

	var args []any
	add := func(clause string, value any) {
		args = append(args, value)
		query += fmt.Sprintf(" AND "+clause, len(args))
	}

	if filter.Provider != "" {
		add("provider = $%d", strings.ToLower(filter.Provider))
	}
	if filter.Environment != "" {
		add("environment = $%d", filter.Environment)
	}
	if filter.Operation != "" {
		add("operation = $%d", filter.Operation)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.SessionID != "" {
		add(`(request::text LIKE $%[1]d ESCAPE '\' OR response::text LIKE $%[1]d ESCAPE '\')`, "%"+likeEscaper.Replace(filter.SessionID)+"%")
	}
	if !filter.StartDate.IsZero() {
		add("request_at >= $%d", filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		add("request_at <= $%d", filter.EndDate)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query += fmt.Sprintf(" ORDER BY request_at DESC LIMIT %d", limit)

	return query, args
}

// GetProviderStats returns call statistics of a provider for the last hours
func (l *Logger) GetProviderStats(ctx context.Context, providerName string, hours int) (map[string]any, error) {
	if hours <= 0 || hours > 8760 {
		return nil, fmt.Errorf("invalid hours parameter: must be between 1 and 8760")
	}

	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'success') AS success,
			COUNT(*) FILTER (WHERE status = 'error') AS failed,
			COALESCE(AVG(processing_ms), 0) AS avg_processing_ms
		FROM provider_logs
		WHERE provider = $1
		AND request_at >= NOW() - make_interval(hours => $2)
	`

	var total, success, failed int64
	var avgMs float64
	if err := l.db.QueryRowContext(ctx, query, strings.ToLower(providerName), hours).Scan(&total, &success, &failed, &avgMs); err != nil {
		return nil, fmt.Errorf("failed to get provider stats: %w", err)
	}

	successRate := 0.0
	if total > 0 {
		successRate = float64(success) / float64(total) * 100
	}

	return map[string]any{
		"provider":          strings.ToLower(providerName),
		"display_name":      cases.Title(language.English).String(providerName),
		"hours":             hours,
		"total":             total,
		"success":           success,
		"failed":            failed,
		"success_rate":      successRate,
		"avg_processing_ms": avgMs,
	}, nil
}

// Ping checks the database connection
func (l *Logger) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

func sanitizedJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}

	return json.Marshal(sanitizeRecursive(generic))
}

// SanitizeForLog removes sensitive information from data before logging
func SanitizeForLog(data map[string]any) map[string]any {
	return sanitizeMap(data)
}

func sanitizeRecursive(data any) any {
	switch v := data.(type) {
	case map[string]any:
		return sanitizeMap(v)
	case map[string]string:
		converted := make(map[string]any, len(v))
		for key, value := range v {
			converted[key] = value
		}
		return sanitizeMap(converted)
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = sanitizeRecursive(item)
		}
		return result
	default:
		return v
	}
}

var (
	cardFields   = []string{"cardnumber", "card_number"}
	cvvFields    = []string{"cvv", "cvc"}
	secretFields = []string{"secret", "password", "signature", "authorization", "token", "api_key", "apikey"}
)

func sanitizeMap(data map[string]any) map[string]any {
	sanitized := make(map[string]any, len(data))

	for key, value := range data {
		keyLower := strings.ToLower(key)

		switch {
		case matchesAny(keyLower, cvvFields):
			sanitized[key] = "***"
		case keyLower == "pan" || matchesAny(keyLower, cardFields):
			if s, ok := value.(string); ok {
				sanitized[key] = maskCardNumber(s)
			} else {
				sanitized[key] = "***REDACTED***"
			}
		case matchesAny(keyLower, secretFields):
			if s, ok := value.(string); ok {
				sanitized[key] = maskGenericSensitive(s)
			} else {
				sanitized[key] = "***REDACTED***"
			}
		default:
			sanitized[key] = sanitizeRecursive(value)
		}
	}

	return sanitized
}

func matchesAny(key string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(key, p) {
			return true
		}
	}
	return false
}

// maskCardNumber shows only the first 4 and last 4 digits
func maskCardNumber(cardNumber string) string {
	cleaned := strings.ReplaceAll(strings.ReplaceAll(cardNumber, " ", ""), "-", "")

	if len(cleaned) <= 8 {
		return "****"
	}

	return cleaned[:4] + "********" + cleaned[len(cleaned)-4:]
}

func maskGenericSensitive(value string) string {
	if len(value) <= 8 {
		return "***REDACTED***"
	}
	return value[:2] + "***" + value[len(value)-2:]
}
