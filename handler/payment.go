package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Sammk21/medusa-admin/infra/logger"
	"github.com/Sammk21/medusa-admin/infra/middle"
	"github.com/Sammk21/medusa-admin/infra/opensearch"
	"github.com/Sammk21/medusa-admin/infra/response"
	"github.com/Sammk21/medusa-admin/infra/validate"
	"github.com/Sammk21/medusa-admin/provider"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const (
	// EnvironmentHeader selects the provider environment of a call, the environment query parameter is a fallback
	EnvironmentHeader = "X-Payment-Environment"

	maxWebhookBodyBytes = 1 << 20
	operationTimeout    = 30 * time.Second
)

// PaymentServiceInterface defines the interface for payment operations
type PaymentServiceInterface interface {
	InitiatePayment(ctx context.Context, environment, providerName string, input provider.InitiatePaymentInput) (*provider.InitiatePaymentOutput, error)
	UpdatePayment(ctx context.Context, environment, providerName string, input provider.UpdatePaymentInput) (*provider.UpdatePaymentOutput, error)
	AuthorizePayment(ctx context.Context, environment, providerName string, input provider.AuthorizePaymentInput) (*provider.AuthorizePaymentOutput, error)
	CapturePayment(ctx context.Context, environment, providerName string, input provider.CapturePaymentInput) (*provider.CapturePaymentOutput, error)
	RefundPayment(ctx context.Context, environment, providerName string, input provider.RefundPaymentInput) (*provider.RefundPaymentOutput, error)
	CancelPayment(ctx context.Context, environment, providerName string, input provider.CancelPaymentInput) (*provider.CancelPaymentOutput, error)
	DeletePayment(ctx context.Context, environment, providerName string, input provider.DeletePaymentInput) (*provider.DeletePaymentOutput, error)
	RetrievePayment(ctx context.Context, environment, providerName string, input provider.RetrievePaymentInput) (*provider.RetrievePaymentOutput, error)
	GetPaymentStatus(ctx context.Context, environment, providerName string, input provider.GetPaymentStatusInput) (*provider.GetPaymentStatusOutput, error)
	HandleWebhook(ctx context.Context, environment, providerName string, payload provider.ProviderWebhookPayload) (*provider.WebhookActionResult, bool, error)
	WebhookEventID(environment, providerName string, payload provider.ProviderWebhookPayload) string
}

// WebhookAuditLogger records webhook deliveries for later inspection
type WebhookAuditLogger interface {
	LogWebhookEvent(ctx context.Context, event opensearch.WebhookEventLog) error
}

// PaymentHandler handles payment related HTTP requests
type PaymentHandler struct {
	paymentService PaymentServiceInterface
	validate       *validator.Validate
	audit          WebhookAuditLogger
}

// NewPaymentHandler creates a new payment handler. audit may be nil.
func NewPaymentHandler(paymentService PaymentServiceInterface, validate *validator.Validate, audit WebhookAuditLogger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		validate:       validate,
		audit:          audit,
	}
}

// WebhookResponse is returned to the gateway after a webhook delivery was mapped
type WebhookResponse struct {
	Action    provider.PaymentAction     `json:"action"`
	Data      provider.WebhookActionData `json:"data"`
	Duplicate bool                       `json:"duplicate"`
}

// requestEnvironment reads the target environment of a call. An empty value selects the service default.
func requestEnvironment(r *http.Request) (string, error) {
	env := r.Header.Get(EnvironmentHeader)
	if env == "" {
		env = r.URL.Query().Get("environment")
	}

	switch env {
	case "", "sandbox", "production":
		return env, nil
	default:
		return "", fmt.Errorf("unknown environment %q", env)
	}
}

// operation decodes the body of a contract call into In, validates it and runs fn
func operation[In any, Out any](h *PaymentHandler, name string, fn func(ctx context.Context, env, providerName string, input In) (Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), operationTimeout)
		defer cancel()

		providerName := chi.URLParam(r, "provider")
		if providerName == "" {
			response.Error(w, http.StatusBadRequest, "Provider parameter is required", nil)
			return
		}

		environment, err := requestEnvironment(r)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid environment", err)
			return
		}

		var input In
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			if bodyTooLarge(err) {
				response.Error(w, http.StatusRequestEntityTooLarge, "Request body too large", nil)
				return
			}
			response.Error(w, http.StatusBadRequest, "Invalid request format", err)
			return
		}

		if err := h.validate.Struct(input); err != nil {
			response.Error(w, http.StatusBadRequest, "Validation error", errors.New(validate.Message(err)))
			return
		}

		out, err := fn(ctx, environment, providerName, input)
		if err != nil {
			status, message := errorStatus(err)
			logger.Warn("Payment operation failed", logger.LogContext{
				Provider:  providerName,
				RequestID: middle.GetRequestID(r),
				Fields: map[string]any{
					"operation":   name,
					"environment": environment,
					"status":      status,
					"error":       err.Error(),
				},
			})
			response.Error(w, status, message, err)
			return
		}

		response.Success(w, http.StatusOK, "Payment "+name+" completed", out)
	}
}

// bodyTooLarge reports whether a body read failed on an http.MaxBytesReader limit
func bodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// errorStatus maps a service error to an HTTP status
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, provider.ErrProviderNotFound):
		return http.StatusNotFound, "Payment provider not available"
	case errors.Is(err, provider.ErrPaymentNotFound):
		return http.StatusNotFound, "Payment not found"
	case errors.Is(err, provider.ErrNegativeAmount):
		return http.StatusBadRequest, "Invalid amount"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Payment provider timed out"
	default:
		return http.StatusBadGateway, "Payment provider error"
	}
}

// Initiate opens a payment session
func (h *PaymentHandler) Initiate() http.HandlerFunc {
	return operation(h, "initiate", h.paymentService.InitiatePayment)
}

// Update changes the amount or currency of a session
func (h *PaymentHandler) Update() http.HandlerFunc {
	return operation(h, "update", h.paymentService.UpdatePayment)
}

// Authorize checks whether the customer paid
func (h *PaymentHandler) Authorize() http.HandlerFunc {
	return operation(h, "authorize", h.paymentService.AuthorizePayment)
}

// Capture captures an authorized payment
func (h *PaymentHandler) Capture() http.HandlerFunc {
	return operation(h, "capture", h.paymentService.CapturePayment)
}

// Refund refunds a captured payment
func (h *PaymentHandler) Refund() http.HandlerFunc {
	return operation(h, "refund", h.paymentService.RefundPayment)
}

// Cancel cancels a session
func (h *PaymentHandler) Cancel() http.HandlerFunc {
	return operation(h, "cancel", h.paymentService.CancelPayment)
}

// Delete deletes a session
func (h *PaymentHandler) Delete() http.HandlerFunc {
	return operation(h, "delete", h.paymentService.DeletePayment)
}

// Retrieve returns the gateway view of a session
func (h *PaymentHandler) Retrieve() http.HandlerFunc {
	return operation(h, "retrieve", h.paymentService.RetrievePayment)
}

// Status returns the session status
func (h *PaymentHandler) Status() http.HandlerFunc {
	return operation(h, "status", h.paymentService.GetPaymentStatus)
}

// HandleWebhook maps a gateway webhook delivery to a framework action.
// The raw body is passed through untouched since signatures are computed over it.
func (h *PaymentHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), operationTimeout)
	defer cancel()

	providerName := chi.URLParam(r, "provider")
	if providerName == "" {
		response.Error(w, http.StatusBadRequest, "Provider parameter is required", nil)
		return
	}

	environment, err := requestEnvironment(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid environment", err)
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes+1))
	if err != nil && !bodyTooLarge(err) {
		response.Error(w, http.StatusBadRequest, "Failed to read webhook body", err)
		return
	}
	if err != nil || len(raw) > maxWebhookBodyBytes {
		response.Error(w, http.StatusRequestEntityTooLarge, "Webhook body too large", nil)
		return
	}

	payload := provider.ProviderWebhookPayload{
		RawData: raw,
		Headers: make(map[string]string, len(r.Header)),
	}
	for key, values := range r.Header {
		if len(values) > 0 {
			payload.Headers[key] = values[0]
		}
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		// best effort, the provider decides whether the body is acceptable
		var data map[string]any
		if json.Unmarshal(raw, &data) == nil {
			payload.Data = data
		}
	}

	result, duplicate, err := h.paymentService.HandleWebhook(ctx, environment, providerName, payload)
	if err != nil {
		status, _ := errorStatus(err)
		if status == http.StatusBadGateway {
			status = http.StatusBadRequest
		}
		logger.Error("Webhook processing error", err, logger.LogContext{
			Provider:  providerName,
			RequestID: middle.GetRequestID(r),
			Fields:    map[string]any{"environment": environment},
		})
		response.Error(w, status, "Webhook processing failed", err)
		return
	}

	h.auditWebhook(ctx, environment, providerName, payload, result, duplicate)

	response.Success(w, http.StatusOK, "Webhook processed", WebhookResponse{
		Action:    result.Action,
		Data:      result.Data,
		Duplicate: duplicate,
	})
}

func (h *PaymentHandler) auditWebhook(ctx context.Context, environment, providerName string, payload provider.ProviderWebhookPayload, result *provider.WebhookActionResult, duplicate bool) {
	if h.audit == nil {
		return
	}

	event, _ := payload.Data["event"].(string)
	entry := opensearch.WebhookEventLog{
		Provider:  providerName,
		EventID:   h.paymentService.WebhookEventID(environment, providerName, payload),
		Event:     event,
		Action:    string(result.Action),
		SessionID: result.Data.SessionID,
		Amount:    result.Data.Amount.String(),
		Duplicate: duplicate,
		Verified:  result.Action != provider.ActionFailed || result.Data.SessionID != "",
	}

	if err := h.audit.LogWebhookEvent(ctx, entry); err != nil {
		logger.Warn("Failed to record webhook audit entry", logger.LogContext{
			Provider: providerName,
			Fields: map[string]any{
				"event_id": entry.EventID,
				"error":    err.Error(),
			},
		})
	}
}
