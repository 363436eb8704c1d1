package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/Sammk21/medusa-admin/provider"
	"github.com/shopspring/decimal"
)

const (
	headerSignature = "X-Razorpay-Signature"
	headerEventID   = "X-Razorpay-Event-Id"
)

type webhookEvent struct {
	Entity    string   `json:"entity"`
	AccountID string   `json:"account_id"`
	Event     string   `json:"event"`
	Contains  []string `json:"contains"`
	Payload   struct {
		Payment *struct {
			Entity Payment `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity Order `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
	CreatedAt int64 `json:"created_at"`
}

// ComputeSignature returns the hex HMAC-SHA256 of body keyed with secret
func ComputeSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature checks the signature header value of a webhook body
func VerifyWebhookSignature(body []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := ComputeSignature(body, secret)
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

// headerValue looks a header up ignoring case
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func failedWebhook() *provider.WebhookActionResult {
	return &provider.WebhookActionResult{
		Action: provider.ActionFailed,
		Data: provider.WebhookActionData{
			SessionID: "",
			Amount:    decimal.Zero,
		},
	}
}

func notSupportedWebhook() *provider.WebhookActionResult {
	return &provider.WebhookActionResult{
		Action: provider.ActionNotSupported,
		Data: provider.WebhookActionData{
			SessionID: "",
			Amount:    decimal.Zero,
		},
	}
}

func parseWebhookEvent(body []byte) (*webhookEvent, error) {
	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// actionFromEvent applies the event table to an authenticated event.
// The session id is the order receipt, falling back to the payment's order id.
func actionFromEvent(event *webhookEvent) *provider.WebhookActionResult {
	action := mapWebhookEvent(event.Event)
	if action == provider.ActionNotSupported || event.Payload.Payment == nil {
		return notSupportedWebhook()
	}

	payment := event.Payload.Payment.Entity

	sessionID := ""
	if event.Payload.Order != nil {
		sessionID = event.Payload.Order.Entity.Receipt
	}
	if sessionID == "" {
		sessionID = payment.OrderID
	}

	return &provider.WebhookActionResult{
		Action: action,
		Data: provider.WebhookActionData{
			SessionID: sessionID,
			Amount:    decimal.NewFromInt(payment.Amount),
		},
	}
}
