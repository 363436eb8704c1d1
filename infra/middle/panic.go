package middle

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"runtime/debug"

	"github.com/Sammk21/medusa-admin/infra/logger"
	"github.com/Sammk21/medusa-admin/infra/response"
)

// PanicHandler writes the response for a recovered panic
type PanicHandler func(w http.ResponseWriter, r *http.Request, recovered any)

// PanicRecoveryMiddleware turns a handler panic into a JSON 500 and logs the stack
func PanicRecoveryMiddleware() func(http.Handler) http.Handler {
	return PanicRecoveryWithCustomHandler(writeInternalError)
}

// PanicRecoveryWithCustomHandler recovers panics with onPanic.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func PanicRecoveryWithCustomHandler(onPanic PanicHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if err, ok := recovered.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(recovered)
				}
				onPanic(w, r, recovered)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func writeInternalError(w http.ResponseWriter, r *http.Request, recovered any) {
	requestID := GetRequestID(r)
	if requestID == "" {
		requestID = "unknown"
	}

	// plain line first, the structured logger may be what panicked
	log.Printf("panic recovered: %v method=%s path=%s request_id=%s", recovered, r.Method, r.URL.Path, requestID)

	logger.Error("Panic recovered", fmt.Errorf("%v", recovered), logger.LogContext{
		Provider:  ProviderFromPath(r.URL.Path),
		RequestID: requestID,
		Fields: map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
			"stack":  string(debug.Stack()),
		},
	})

	h := w.Header()
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")

	response.Error(w, http.StatusInternalServerError, "Internal server error", errors.New("an unexpected error occurred"))
}
