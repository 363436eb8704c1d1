package provider

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// PaymentSessionStatus represents the status of a payment session as the commerce framework sees it
type PaymentSessionStatus string

const (
	StatusPending      PaymentSessionStatus = "pending"
	StatusAuthorized   PaymentSessionStatus = "authorized"
	StatusCaptured     PaymentSessionStatus = "captured"
	StatusCanceled     PaymentSessionStatus = "canceled"
	StatusRequiresMore PaymentSessionStatus = "requires_more"
	StatusError        PaymentSessionStatus = "error"
)

// PaymentAction is the action the framework should take after a webhook event
type PaymentAction string

const (
	ActionAuthorized   PaymentAction = "authorized"
	ActionCaptured     PaymentAction = "captured"
	ActionFailed       PaymentAction = "failed"
	ActionNotSupported PaymentAction = "not_supported"
	ActionPending      PaymentAction = "pending"
	ActionCanceled     PaymentAction = "canceled"
	ActionRequiresMore PaymentAction = "requires_more"
)

var (
	// ErrProviderNotFound is returned when no provider is registered or configured under a name
	ErrProviderNotFound = errors.New("payment provider not found")
	// ErrPaymentNotFound is returned when the gateway has no record of the order or payment a session names
	ErrPaymentNotFound = errors.New("payment not found")
)

// ConfigField represents a required configuration field for a payment provider
type ConfigField struct {
	Key         string `json:"key"`
	Required    bool   `json:"required"`
	Type        string `json:"type"` // "string", "number", "url", "email", "boolean"
	Description string `json:"description"`
	Example     string `json:"example"`
	Pattern     string `json:"pattern,omitempty"`   // regex pattern for validation
	MinLength   int    `json:"minLength,omitempty"` // minimum length for string fields
	MaxLength   int    `json:"maxLength,omitempty"` // maximum length for string fields
}

// PaymentSessionData is the provider-owned data the framework persists on a payment session
// and hands back on every subsequent call
type PaymentSessionData map[string]any

// String returns the value stored under key when it is a non-empty string
func (d PaymentSessionData) String(key string) string {
	if d == nil {
		return ""
	}
	if v, ok := d[key].(string); ok {
		return v
	}
	return ""
}

// Clone returns a shallow copy of the data so callers can add keys without mutating the input
func (d PaymentSessionData) Clone() PaymentSessionData {
	out := make(PaymentSessionData, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Customer represents the buyer information passed through the payment context
type Customer struct {
	ID        string `json:"id,omitempty"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// PaymentContext carries framework-side context for a payment session call
type PaymentContext struct {
	SessionID      string    `json:"sessionId,omitempty"`
	IdempotencyKey string    `json:"idempotencyKey,omitempty"`
	Customer       *Customer `json:"customer,omitempty" validate:"omitempty"`
}

// InitiatePaymentInput contains the information required to open a payment session
type InitiatePaymentInput struct {
	Amount       decimal.Decimal    `json:"amount"`
	CurrencyCode string             `json:"currencyCode" validate:"required,currency"`
	Context      PaymentContext     `json:"context"`
	Data         PaymentSessionData `json:"data,omitempty"`
}

// InitiatePaymentOutput is the result of opening a payment session
type InitiatePaymentOutput struct {
	ID     string               `json:"id"`
	Status PaymentSessionStatus `json:"status"`
	Data   PaymentSessionData   `json:"data"`
}

// UpdatePaymentInput contains the new amount or currency of an existing payment session
type UpdatePaymentInput struct {
	Amount       decimal.Decimal    `json:"amount"`
	CurrencyCode string             `json:"currencyCode" validate:"required,currency"`
	Context      PaymentContext     `json:"context"`
	Data         PaymentSessionData `json:"data" validate:"required"`
}

// UpdatePaymentOutput is the result of updating a payment session
type UpdatePaymentOutput struct {
	Status PaymentSessionStatus `json:"status"`
	Data   PaymentSessionData   `json:"data"`
}

// PaymentInput is the common input of calls that only need the stored session data
type PaymentInput struct {
	Data    PaymentSessionData `json:"data" validate:"required"`
	Context PaymentContext     `json:"context"`
}

// AuthorizePaymentInput contains the information required to authorize a session
type AuthorizePaymentInput = PaymentInput

// CapturePaymentInput contains the information required to capture a session
type CapturePaymentInput = PaymentInput

// CancelPaymentInput contains the information required to cancel a session
type CancelPaymentInput = PaymentInput

// DeletePaymentInput contains the information required to delete a session
type DeletePaymentInput = PaymentInput

// RetrievePaymentInput contains the information required to retrieve a session
type RetrievePaymentInput = PaymentInput

// GetPaymentStatusInput contains the information required to look up a session status
type GetPaymentStatusInput = PaymentInput

// RefundPaymentInput contains the amount to refund for a captured session
type RefundPaymentInput struct {
	Amount  decimal.Decimal    `json:"amount"`
	Data    PaymentSessionData `json:"data" validate:"required"`
	Context PaymentContext     `json:"context"`
}

// PaymentOutput is the common output of calls that only return updated session data
type PaymentOutput struct {
	Data PaymentSessionData `json:"data"`
}

// CapturePaymentOutput is the result of a capture
type CapturePaymentOutput = PaymentOutput

// RefundPaymentOutput is the result of a refund
type RefundPaymentOutput = PaymentOutput

// CancelPaymentOutput is the result of a cancellation
type CancelPaymentOutput = PaymentOutput

// DeletePaymentOutput is the result of a deletion
type DeletePaymentOutput = PaymentOutput

// RetrievePaymentOutput is the result of a retrieval
type RetrievePaymentOutput = PaymentOutput

// StatusOutput carries a session status together with the refreshed session data
type StatusOutput struct {
	Status PaymentSessionStatus `json:"status"`
	Data   PaymentSessionData   `json:"data"`
}

// AuthorizePaymentOutput is the result of an authorization
type AuthorizePaymentOutput = StatusOutput

// GetPaymentStatusOutput is the result of a status lookup
type GetPaymentStatusOutput = StatusOutput

// ProviderWebhookPayload is an incoming webhook delivery as received over HTTP
type ProviderWebhookPayload struct {
	Data    map[string]any    `json:"data,omitempty"`
	RawData []byte            `json:"-"`
	Headers map[string]string `json:"headers,omitempty"`
}

// WebhookActionData identifies the session and amount a webhook event refers to
type WebhookActionData struct {
	SessionID string          `json:"sessionId"`
	Amount    decimal.Decimal `json:"amount"`
}

// WebhookActionResult tells the framework what to do with a webhook event
type WebhookActionResult struct {
	Action PaymentAction     `json:"action"`
	Data   WebhookActionData `json:"data"`
}

// PaymentProvider defines the payment-module contract every gateway adapter implements
type PaymentProvider interface {
	// Identifier returns the registry name of the provider
	Identifier() string

	// Initialize sets up the payment provider with authentication and configuration
	Initialize(config map[string]string) error

	// GetRequiredConfig returns the configuration fields required for this provider
	GetRequiredConfig(environment string) []ConfigField

	// ValidateConfig validates the provided configuration against provider requirements
	ValidateConfig(config map[string]string) error

	// InitiatePayment opens a payment session at the gateway
	InitiatePayment(ctx context.Context, input InitiatePaymentInput) (*InitiatePaymentOutput, error)

	// UpdatePayment reflects a changed amount or currency on the gateway side
	UpdatePayment(ctx context.Context, input UpdatePaymentInput) (*UpdatePaymentOutput, error)

	// AuthorizePayment checks whether the customer completed payment
	AuthorizePayment(ctx context.Context, input AuthorizePaymentInput) (*AuthorizePaymentOutput, error)

	// CapturePayment captures an authorized payment
	CapturePayment(ctx context.Context, input CapturePaymentInput) (*CapturePaymentOutput, error)

	// RefundPayment issues a refund for a captured payment
	RefundPayment(ctx context.Context, input RefundPaymentInput) (*RefundPaymentOutput, error)

	// CancelPayment cancels a payment session
	CancelPayment(ctx context.Context, input CancelPaymentInput) (*CancelPaymentOutput, error)

	// DeletePayment removes a payment session
	DeletePayment(ctx context.Context, input DeletePaymentInput) (*DeletePaymentOutput, error)

	// RetrievePayment returns the gateway's current view of the session
	RetrievePayment(ctx context.Context, input RetrievePaymentInput) (*RetrievePaymentOutput, error)

	// GetPaymentStatus maps the gateway state of the session to a framework status
	GetPaymentStatus(ctx context.Context, input GetPaymentStatusInput) (*GetPaymentStatusOutput, error)

	// GetWebhookActionAndData authenticates a webhook delivery and maps it to an action
	GetWebhookActionAndData(ctx context.Context, payload ProviderWebhookPayload) (*WebhookActionResult, error)
}

// ProviderFactory is a function type that creates a new PaymentProvider
type ProviderFactory func() PaymentProvider
