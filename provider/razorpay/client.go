package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Sammk21/medusa-admin/provider"
)

const (
	defaultBaseURL = "https://api.razorpay.com/v1"
	defaultTimeout = 30 * time.Second

	endpointOrders        = "/orders"
	endpointOrder         = "/orders/%s"
	endpointOrderPayments = "/orders/%s/payments"
	endpointPayment       = "/payments/%s"
	endpointCapture       = "/payments/%s/capture"
	endpointRefund        = "/payments/%s/refund"
)

// Order states
const (
	OrderCreated   = "created"
	OrderAttempted = "attempted"
	OrderPaid      = "paid"
)

// Payment states
const (
	PaymentCreated    = "created"
	PaymentAuthorized = "authorized"
	PaymentCaptured   = "captured"
	PaymentRefunded   = "refunded"
	PaymentFailed     = "failed"
)

// Notes holds the key/value notes of an entity. The gateway encodes empty notes as [].
type Notes map[string]string

func (n *Notes) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte("[]")) {
		*n = nil
		return nil
	}

	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	out := make(Notes, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	*n = out
	return nil
}

type Order struct {
	ID         string `json:"id"`
	Entity     string `json:"entity"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amount_paid"`
	AmountDue  int64  `json:"amount_due"`
	Currency   string `json:"currency"`
	Receipt    string `json:"receipt"`
	Status     string `json:"status"`
	Attempts   int    `json:"attempts"`
	Notes      Notes  `json:"notes"`
	CreatedAt  int64  `json:"created_at"`
}

type Payment struct {
	ID               string `json:"id"`
	Entity           string `json:"entity"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	OrderID          string `json:"order_id"`
	Method           string `json:"method"`
	Captured         bool   `json:"captured"`
	AmountRefunded   int64  `json:"amount_refunded"`
	RefundStatus     string `json:"refund_status"`
	Email            string `json:"email"`
	Contact          string `json:"contact"`
	Notes            Notes  `json:"notes"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
	CreatedAt        int64  `json:"created_at"`
}

type Refund struct {
	ID        string `json:"id"`
	Entity    string `json:"entity"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	Notes     Notes  `json:"notes"`
	CreatedAt int64  `json:"created_at"`
}

type collection[T any] struct {
	Entity string `json:"entity"`
	Count  int    `json:"count"`
	Items  []T    `json:"items"`
}

// OrderRequest is the body of POST /orders
type OrderRequest struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Receipt        string            `json:"receipt,omitempty"`
	Notes          map[string]string `json:"notes,omitempty"`
	PaymentCapture bool              `json:"payment_capture"`
}

// RefundRequest is the body of POST /payments/{id}/refund
type RefundRequest struct {
	Amount int64             `json:"amount"`
	Notes  map[string]string `json:"notes,omitempty"`
}

// APIError is an error answer of the gateway
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Reason      string `json:"reason,omitempty"`
	Field       string `json:"field,omitempty"`
	Source      string `json:"source,omitempty"`
	Step        string `json:"step,omitempty"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("razorpay: %s (%d): %s [field: %s]", e.Code, e.StatusCode, e.Description, e.Field)
	}
	return fmt.Sprintf("razorpay: %s (%d): %s", e.Code, e.StatusCode, e.Description)
}

// IsNotFound reports whether err is the gateway's answer for an unknown id.
// Payments answer with a 404, orders with a 400 naming the id field.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusNotFound:
		return true
	case http.StatusBadRequest:
		return apiErr.Field == "id" && strings.Contains(apiErr.Description, "does not exist")
	default:
		return false
	}
}

// Client is a typed wrapper over the gateway REST API
type Client struct {
	http *provider.ProviderHTTPClient
}

// NewClient creates a client authenticating with HTTP basic auth
func NewClient(baseURL, keyID, keySecret string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	conf := provider.DefaultHTTPClientConfig(baseURL, timeout)
	conf.Username = keyID
	conf.Password = keySecret

	return &Client{http: provider.NewProviderHTTPClient(conf)}
}

// CreateOrder opens a new order
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodPost, endpointOrders, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// FetchOrder returns an order by id
func (c *Client) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf(endpointOrder, url.PathEscape(orderID)), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// FetchOrderPayments returns every payment attempt of an order
func (c *Client) FetchOrderPayments(ctx context.Context, orderID string) ([]Payment, error) {
	var payments collection[Payment]
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf(endpointOrderPayments, url.PathEscape(orderID)), nil, &payments); err != nil {
		return nil, err
	}
	return payments.Items, nil
}

// FetchPayment returns a payment by id
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var payment Payment
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf(endpointPayment, url.PathEscape(paymentID)), nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// CapturePayment captures an authorized payment
func (c *Client) CapturePayment(ctx context.Context, paymentID string, amount int64, currency string) (*Payment, error) {
	body := map[string]any{
		"amount":   amount,
		"currency": currency,
	}

	var payment Payment
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf(endpointCapture, url.PathEscape(paymentID)), body, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// RefundPayment refunds part or all of a captured payment
func (c *Client) RefundPayment(ctx context.Context, paymentID string, req RefundRequest) (*Refund, error) {
	var refund Refund
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf(endpointRefund, url.PathEscape(paymentID)), req, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	_, err := c.http.Do(ctx, &provider.HTTPRequest{
		Method:   method,
		Endpoint: endpoint,
		Body:     body,
	}, out)

	var statusErr *provider.HTTPStatusError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &statusErr):
		return decodeAPIError(statusErr.Response)
	default:
		return fmt.Errorf("razorpay: %s %s: %w", method, endpoint, err)
	}
}

func decodeAPIError(resp *provider.HTTPResponse) error {
	var envelope struct {
		Error APIError `json:"error"`
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(resp.Body, &envelope); err == nil && envelope.Error.Code != "" {
		*apiErr = envelope.Error
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}

	apiErr.Code = "UNKNOWN_ERROR"
	apiErr.Description = http.StatusText(resp.StatusCode)
	return apiErr
}
