// Package response writes the JSON envelope shared by every endpoint.
package response

import (
	"encoding/json"
	"net/http"
)

// Response is the envelope around every body the service returns
type Response struct {
	Code    int    `json:"code"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Success writes data inside a successful envelope
func Success(w http.ResponseWriter, statusCode int, message string, data any) {
	WriteJSON(w, statusCode, Response{Code: statusCode, Success: true, Message: message, Data: data})
}

// Error writes a failed envelope. err is optional and exposed as the error field.
func Error(w http.ResponseWriter, statusCode int, message string, err error) {
	body := Response{Code: statusCode, Message: message}
	if err != nil {
		body.Error = err.Error()
	}
	WriteJSON(w, statusCode, body)
}

// WriteJSON encodes v with the given status. Encoding errors are dropped since the header is already sent.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}
