package middle

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Sammk21/medusa-admin/infra/logger"
	"github.com/google/uuid"
)

type requestIDKey struct{}

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// statusWriter wraps http.ResponseWriter to capture the status code
type statusWriter struct {
	http.ResponseWriter
	statusCode int
	bytes      int
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	n, err := sw.ResponseWriter.Write(b)
	sw.bytes += n
	return n, err
}

func (sw *statusWriter) WriteHeader(statusCode int) {
	sw.statusCode = statusCode
	sw.ResponseWriter.WriteHeader(statusCode)
}

// RequestIDMiddleware keeps an incoming X-Request-ID or assigns a new one
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
			if requestID == "" || len(requestID) > 128 {
				requestID = uuid.NewString()
			}

			r.Header.Set(RequestIDHeader, requestID)
			w.Header().Set(RequestIDHeader, requestID)

			ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRequestID returns the request id assigned by RequestIDMiddleware, falling back to the header
func GetRequestID(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey{}).(string); ok {
		return id
	}
	return r.Header.Get(RequestIDHeader)
}

// RequestLoggingMiddleware writes one structured log line per payment or webhook request
func RequestLoggingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isPaymentEndpoint(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sw, r)

			ctx := logger.LogContext{
				Provider:  ProviderFromPath(r.URL.Path),
				RequestID: GetRequestID(r),
				Fields: map[string]any{
					"method":        r.Method,
					"path":          r.URL.Path,
					"status":        sw.statusCode,
					"bytes":         sw.bytes,
					"client_ip":     GetClientIP(r),
					"user_agent":    r.UserAgent(),
					"processing_ms": time.Since(start).Milliseconds(),
				},
			}

			switch {
			case sw.statusCode >= http.StatusInternalServerError:
				logger.Warn("Request failed", ctx)
			case sw.statusCode >= http.StatusBadRequest:
				logger.Info("Request rejected", ctx)
			default:
				logger.Debug("Request completed", ctx)
			}
		})
	}
}

func isPaymentEndpoint(path string) bool {
	for _, prefix := range []string{"/v1/payments/", "/v1/webhooks/"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// ProviderFromPath extracts the provider segment of /v1/payments/{provider}/... and /v1/webhooks/{provider}
func ProviderFromPath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 3 {
		return ""
	}

	switch segments[1] {
	case "payments", "webhooks":
		return segments[2]
	}
	return ""
}
