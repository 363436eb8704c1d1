package razorpay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Sammk21/medusa-admin/infra/logger"
	"github.com/Sammk21/medusa-admin/provider"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	providerName = "razorpay"

	// maxReceiptLength is the longest receipt the gateway accepts
	maxReceiptLength = 40

	keySessionID = "session_id"
	keyOrderID   = "id"
	keyPaymentID = "razorpay_payment_id"
	keyRefunds   = "refunds"
)

var (
	// ErrMissingOrderID is returned when the session data carries no gateway order id
	ErrMissingOrderID = errors.New("razorpay: session data has no order id")
	// ErrNoCapturablePayment is returned when an order has no payment in a state the call needs
	ErrNoCapturablePayment = errors.New("razorpay: no capturable payment")
	// ErrRefundExceedsCaptured is returned when a refund is larger than what is left of the captured amount
	ErrRefundExceedsCaptured = errors.New("razorpay: refund exceeds the refundable amount")
)

// RazorpayProvider implements the provider.PaymentProvider interface for Razorpay
type RazorpayProvider struct {
	keyID         string
	keySecret     string
	webhookSecret string
	autoCapture   bool
	client        *Client
}

// NewProvider creates a new Razorpay payment provider
func NewProvider() provider.PaymentProvider {
	return &RazorpayProvider{}
}

// Identifier returns the registry name of the provider
func (p *RazorpayProvider) Identifier() string {
	return providerName
}

// GetRequiredConfig returns the configuration fields required for Razorpay.
// Sandbox requires test keys and production requires live keys.
func (p *RazorpayProvider) GetRequiredConfig(environment string) []provider.ConfigField {
	keyPattern := "^rzp_(test|live)_[A-Za-z0-9]+$"
	switch environment {
	case "sandbox":
		keyPattern = "^rzp_test_[A-Za-z0-9]+$"
	case "production":
		keyPattern = "^rzp_live_[A-Za-z0-9]+$"
	}

	return []provider.ConfigField{
		{
			Key:         "keyId",
			Required:    true,
			Type:        "string",
			Description: "Razorpay API key id (Dashboard > Account & Settings > API Keys)",
			Example:     "rzp_test_1DP5mmOlF5G5ag",
			Pattern:     keyPattern,
			MinLength:   14,
			MaxLength:   40,
		},
		{
			Key:         "keySecret",
			Required:    true,
			Type:        "string",
			Description: "Razorpay API key secret",
			Example:     "thisissupersecret",
			MinLength:   8,
			MaxLength:   64,
		},
		{
			Key:         "webhookSecret",
			Required:    true,
			Type:        "string",
			Description: "Secret configured on the Razorpay webhook, used to verify X-Razorpay-Signature",
			Example:     "whsec_razorpay",
			MinLength:   6,
		},
		{
			Key:         "environment",
			Required:    true,
			Type:        "string",
			Description: "Environment setting (sandbox or production)",
			Example:     "sandbox",
			Pattern:     "^(sandbox|production)$",
		},
		{
			Key:         "autoCapture",
			Required:    false,
			Type:        "boolean",
			Description: "Capture payments automatically once authorized (default true)",
			Example:     "true",
		},
		{
			Key:         "baseURL",
			Required:    false,
			Type:        "url",
			Description: "Override of the API base URL",
			Example:     defaultBaseURL,
		},
	}
}

// ValidateConfig validates the provided configuration against Razorpay requirements
func (p *RazorpayProvider) ValidateConfig(config map[string]string) error {
	requiredFields := p.GetRequiredConfig(config["environment"])
	return provider.ValidateConfigFields(providerName, config, requiredFields)
}

// Initialize sets up the Razorpay payment provider with authentication credentials
func (p *RazorpayProvider) Initialize(conf map[string]string) error {
	p.keyID = conf["keyId"]
	p.keySecret = conf["keySecret"]
	p.webhookSecret = conf["webhookSecret"]

	if p.keyID == "" || p.keySecret == "" {
		return errors.New("razorpay: keyId and keySecret are required")
	}
	if p.webhookSecret == "" {
		return errors.New("razorpay: webhookSecret is required")
	}

	p.autoCapture = true
	if raw := conf["autoCapture"]; raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("razorpay: invalid autoCapture value %q: %w", raw, err)
		}
		p.autoCapture = v
	}

	p.client = NewClient(conf["baseURL"], p.keyID, p.keySecret, defaultTimeout)

	return nil
}

// InitiatePayment creates a gateway order for the session
func (p *RazorpayProvider) InitiatePayment(ctx context.Context, input provider.InitiatePaymentInput) (*provider.InitiatePaymentOutput, error) {
	sessionID := sessionIDFor(input.Data, input.Context)
	currency := strings.ToUpper(input.CurrencyCode)

	units, err := provider.ToSmallestUnit(input.Amount, currency)
	if err != nil {
		return nil, fmt.Errorf("razorpay: invalid amount: %w", err)
	}

	order, err := p.client.CreateOrder(ctx, OrderRequest{
		Amount:         units,
		Currency:       currency,
		Receipt:        truncate(sessionID, maxReceiptLength),
		Notes:          orderNotes(sessionID, input.Context.Customer),
		PaymentCapture: p.autoCapture,
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay: failed to create order: %w", err)
	}

	data := orderData(order)
	data[keySessionID] = sessionID

	logger.Debug("Razorpay order created", logger.LogContext{
		Provider: providerName,
		Fields: map[string]any{
			"order_id":   order.ID,
			"session_id": sessionID,
			"amount":     units,
			"currency":   currency,
		},
	})

	return &provider.InitiatePaymentOutput{
		ID:     order.ID,
		Status: provider.StatusPending,
		Data:   data,
	}, nil
}

// UpdatePayment replaces the order when the amount or currency changed. Orders are immutable at the gateway.
func (p *RazorpayProvider) UpdatePayment(ctx context.Context, input provider.UpdatePaymentInput) (*provider.UpdatePaymentOutput, error) {
	if orderIDFrom(input.Data) == "" {
		return nil, ErrMissingOrderID
	}

	currency := strings.ToUpper(input.CurrencyCode)
	units, err := provider.ToSmallestUnit(input.Amount, currency)
	if err != nil {
		return nil, fmt.Errorf("razorpay: invalid amount: %w", err)
	}

	storedAmount, _ := int64Value(input.Data["amount"])
	if storedAmount == units && strings.EqualFold(input.Data.String("currency"), currency) {
		return &provider.UpdatePaymentOutput{
			Status: provider.StatusPending,
			Data:   input.Data.Clone(),
		}, nil
	}

	sessionID := input.Data.String(keySessionID)
	if sessionID == "" {
		sessionID = sessionIDFor(nil, input.Context)
	}
	receipt := input.Data.String("receipt")
	if receipt == "" {
		receipt = truncate(sessionID, maxReceiptLength)
	}

	order, err := p.client.CreateOrder(ctx, OrderRequest{
		Amount:         units,
		Currency:       currency,
		Receipt:        receipt,
		Notes:          orderNotes(sessionID, input.Context.Customer),
		PaymentCapture: p.autoCapture,
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay: failed to replace order: %w", err)
	}

	data := orderData(order)
	data[keySessionID] = sessionID

	logger.Debug("Razorpay order replaced", logger.LogContext{
		Provider: providerName,
		Fields: map[string]any{
			"previous_order_id": orderIDFrom(input.Data),
			"order_id":          order.ID,
			"amount":            units,
			"currency":          currency,
		},
	})

	return &provider.UpdatePaymentOutput{
		Status: provider.StatusPending,
		Data:   data,
	}, nil
}

// AuthorizePayment reports the session as authorized once the order is paid
func (p *RazorpayProvider) AuthorizePayment(ctx context.Context, input provider.AuthorizePaymentInput) (*provider.AuthorizePaymentOutput, error) {
	status, err := p.GetPaymentStatus(ctx, input)
	if err != nil {
		return nil, err
	}
	return &provider.AuthorizePaymentOutput{
		Status: status.Status,
		Data:   status.Data,
	}, nil
}

// GetPaymentStatus fetches the order and maps its status.
// A failed fetch is reported as pending with the data unchanged.
func (p *RazorpayProvider) GetPaymentStatus(ctx context.Context, input provider.GetPaymentStatusInput) (*provider.GetPaymentStatusOutput, error) {
	orderID := orderIDFrom(input.Data)
	if orderID == "" {
		return nil, ErrMissingOrderID
	}

	order, err := p.client.FetchOrder(ctx, orderID)
	if err != nil {
		logger.Warn("Failed to fetch Razorpay order, reporting pending", logger.LogContext{
			Provider: providerName,
			Fields: map[string]any{
				"order_id": orderID,
				"error":    err.Error(),
			},
		})
		return &provider.GetPaymentStatusOutput{
			Status: provider.StatusPending,
			Data:   input.Data.Clone(),
		}, nil
	}

	return &provider.GetPaymentStatusOutput{
		Status: mapOrderStatus(order.Status),
		Data:   mergeData(input.Data, orderData(order)),
	}, nil
}

// CapturePayment captures the authorized payment of the order
func (p *RazorpayProvider) CapturePayment(ctx context.Context, input provider.CapturePaymentInput) (*provider.CapturePaymentOutput, error) {
	payment, err := p.resolvePayment(ctx, input.Data, PaymentCaptured, PaymentAuthorized)
	if err != nil {
		return nil, err
	}

	switch payment.Status {
	case PaymentCaptured:
		// auto-captured by the gateway
	case PaymentAuthorized:
		payment, err = p.client.CapturePayment(ctx, payment.ID, payment.Amount, payment.Currency)
		if err != nil {
			return nil, fmt.Errorf("razorpay: failed to capture payment: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: payment %s is %s", ErrNoCapturablePayment, payment.ID, payment.Status)
	}

	return &provider.CapturePaymentOutput{
		Data: mergeData(input.Data, paymentData(payment)),
	}, nil
}

// RefundPayment refunds amount of the captured payment of the order
func (p *RazorpayProvider) RefundPayment(ctx context.Context, input provider.RefundPaymentInput) (*provider.RefundPaymentOutput, error) {
	payment, err := p.resolvePayment(ctx, input.Data, PaymentCaptured)
	if err != nil {
		return nil, err
	}
	if payment.Status != PaymentCaptured {
		return nil, fmt.Errorf("%w: payment %s is %s", ErrNoCapturablePayment, payment.ID, payment.Status)
	}

	currency := input.Data.String("currency")
	if currency == "" {
		currency = payment.Currency
	}

	units, err := provider.ToSmallestUnit(input.Amount, currency)
	if err != nil {
		return nil, fmt.Errorf("razorpay: invalid refund amount: %w", err)
	}
	if units <= 0 {
		return nil, errors.New("razorpay: refund amount must be greater than 0")
	}
	if refundable := payment.Amount - payment.AmountRefunded; units > refundable {
		return nil, fmt.Errorf("%w: %s requested, %s %s left on payment %s", ErrRefundExceedsCaptured,
			input.Amount.String(), provider.FromSmallestUnit(refundable, currency).StringFixed(provider.CurrencyExponent(currency)),
			strings.ToUpper(currency), payment.ID)
	}

	refund, err := p.client.RefundPayment(ctx, payment.ID, RefundRequest{
		Amount: units,
		Notes:  map[string]string{keySessionID: input.Data.String(keySessionID)},
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay: failed to refund payment: %w", err)
	}

	data := mergeData(input.Data, paymentData(payment))
	data[keyRefunds] = appendRefund(input.Data[keyRefunds], refund)

	return &provider.RefundPaymentOutput{Data: data}, nil
}

// CancelPayment returns the data unchanged. Unpaid orders expire at the gateway.
func (p *RazorpayProvider) CancelPayment(ctx context.Context, input provider.CancelPaymentInput) (*provider.CancelPaymentOutput, error) {
	return &provider.CancelPaymentOutput{Data: input.Data.Clone()}, nil
}

// DeletePayment returns the data unchanged
func (p *RazorpayProvider) DeletePayment(ctx context.Context, input provider.DeletePaymentInput) (*provider.DeletePaymentOutput, error) {
	return &provider.DeletePaymentOutput{Data: input.Data.Clone()}, nil
}

// RetrievePayment fetches the order
func (p *RazorpayProvider) RetrievePayment(ctx context.Context, input provider.RetrievePaymentInput) (*provider.RetrievePaymentOutput, error) {
	orderID := orderIDFrom(input.Data)
	if orderID == "" {
		return nil, ErrMissingOrderID
	}

	order, err := p.client.FetchOrder(ctx, orderID)
	if IsNotFound(err) {
		return nil, fmt.Errorf("%w: razorpay order %s", provider.ErrPaymentNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("razorpay: failed to fetch order: %w", err)
	}

	return &provider.RetrievePaymentOutput{
		Data: mergeData(input.Data, orderData(order)),
	}, nil
}

// GetWebhookActionAndData verifies the delivery signature and maps the event
func (p *RazorpayProvider) GetWebhookActionAndData(ctx context.Context, payload provider.ProviderWebhookPayload) (*provider.WebhookActionResult, error) {
	body := payload.RawData
	signature := headerValue(payload.Headers, headerSignature)

	if len(body) == 0 || !VerifyWebhookSignature(body, signature, p.webhookSecret) {
		logger.Warn("Razorpay webhook signature verification failed", logger.LogContext{
			Provider: providerName,
			Fields: map[string]any{
				"has_signature": signature != "",
				"body_bytes":    len(body),
			},
		})
		return failedWebhook(), nil
	}

	event, err := parseWebhookEvent(body)
	if err != nil {
		return nil, fmt.Errorf("razorpay: invalid webhook payload: %w", err)
	}

	result := actionFromEvent(event)

	logger.Info("Razorpay webhook received", logger.LogContext{
		Provider: providerName,
		Fields: map[string]any{
			"event":      event.Event,
			"action":     string(result.Action),
			"session_id": result.Data.SessionID,
		},
	})

	return result, nil
}

// WebhookEventID returns the gateway's unique id of a webhook delivery
func (p *RazorpayProvider) WebhookEventID(payload provider.ProviderWebhookPayload) string {
	return headerValue(payload.Headers, headerEventID)
}

// resolvePayment returns the payment named in the data, or the first payment of the order
// whose status is one of states, in the order the states are given.
func (p *RazorpayProvider) resolvePayment(ctx context.Context, data provider.PaymentSessionData, states ...string) (*Payment, error) {
	if paymentID := data.String(keyPaymentID); paymentID != "" {
		payment, err := p.client.FetchPayment(ctx, paymentID)
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: razorpay payment %s", provider.ErrPaymentNotFound, paymentID)
		}
		if err != nil {
			return nil, fmt.Errorf("razorpay: failed to fetch payment: %w", err)
		}
		return payment, nil
	}

	orderID := orderIDFrom(data)
	if orderID == "" {
		return nil, ErrMissingOrderID
	}

	payments, err := p.client.FetchOrderPayments(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("razorpay: failed to fetch order payments: %w", err)
	}

	for _, state := range states {
		for i := range payments {
			if payments[i].Status == state {
				return &payments[i], nil
			}
		}
	}

	return nil, fmt.Errorf("%w: order %s has no payment in state %s", ErrNoCapturablePayment, orderID, strings.Join(states, "/"))
}

// sessionIDFor picks the session identifier used as order receipt
func sessionIDFor(data provider.PaymentSessionData, pctx provider.PaymentContext) string {
	if id := data.String(keySessionID); id != "" {
		return id
	}
	if pctx.SessionID != "" {
		return pctx.SessionID
	}
	if pctx.IdempotencyKey != "" {
		return pctx.IdempotencyKey
	}
	return uuid.NewString()
}

func orderIDFrom(data provider.PaymentSessionData) string {
	if id := data.String(keyOrderID); strings.HasPrefix(id, "order_") {
		return id
	}
	return data.String("razorpay_order_id")
}

func orderNotes(sessionID string, customer *provider.Customer) map[string]string {
	notes := map[string]string{keySessionID: sessionID}
	if customer != nil {
		if customer.ID != "" {
			notes["customer_id"] = customer.ID
		}
		if customer.Email != "" {
			notes["customer_email"] = customer.Email
		}
	}
	return notes
}

func orderData(order *Order) provider.PaymentSessionData {
	data := provider.PaymentSessionData{
		"id":          order.ID,
		"entity":      order.Entity,
		"amount":      order.Amount,
		"amount_paid": order.AmountPaid,
		"amount_due":  order.AmountDue,
		"currency":    order.Currency,
		"receipt":     order.Receipt,
		"status":      order.Status,
		"attempts":    order.Attempts,
		"created_at":  order.CreatedAt,
	}
	if len(order.Notes) > 0 {
		data["notes"] = map[string]string(order.Notes)
	}
	return data
}

func paymentData(payment *Payment) provider.PaymentSessionData {
	return provider.PaymentSessionData{
		keyPaymentID:      payment.ID,
		"payment_status":  payment.Status,
		"payment_method":  payment.Method,
		"payment_amount":  payment.Amount,
		"amount_refunded": payment.AmountRefunded,
	}
}

func mergeData(base, overlay provider.PaymentSessionData) provider.PaymentSessionData {
	out := base.Clone()
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

func appendRefund(existing any, refund *Refund) []any {
	var refunds []any
	switch v := existing.(type) {
	case []any:
		refunds = append(refunds, v...)
	case []map[string]any:
		for _, r := range v {
			refunds = append(refunds, r)
		}
	}

	return append(refunds, map[string]any{
		"id":         refund.ID,
		"amount":     refund.Amount,
		"currency":   refund.Currency,
		"status":     refund.Status,
		"created_at": refund.CreatedAt,
	})
}

// int64Value reads an integer that may have gone through a JSON round trip
func int64Value(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case decimal.Decimal:
		return n.IntPart(), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
