package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/Sammk21/medusa-admin/provider"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const authorizedEvent = `{
	"entity": "event",
	"account_id": "acc_BFQ7uQEaa7j2z7",
	"event": "payment.authorized",
	"contains": ["payment", "order"],
	"payload": {
		"payment": {"entity": {"id": "pay_29QQoUBi66xm2f", "entity": "payment", "amount": 50000, "currency": "INR", "status": "authorized", "order_id": "order_9A33XWu170gUtm", "notes": []}},
		"order": {"entity": {"id": "order_9A33XWu170gUtm", "entity": "order", "amount": 50000, "currency": "INR", "receipt": "payses_01HXYZ", "status": "attempted", "notes": {"session_id": "payses_01HXYZ"}}}
	},
	"created_at": 1700000000
}`

const capturedEventWithoutOrder = `{
	"entity": "event",
	"event": "payment.captured",
	"contains": ["payment"],
	"payload": {
		"payment": {"entity": {"id": "pay_1", "amount": 12345, "currency": "INR", "status": "captured", "order_id": "order_fallback"}}
	}
}`

const failedEvent = `{
	"event": "payment.failed",
	"payload": {
		"payment": {"entity": {"id": "pay_2", "amount": 999, "status": "failed", "order_id": "order_2", "error_code": "BAD_REQUEST_ERROR"}},
		"order": {"entity": {"id": "order_2", "receipt": ""}}
	}
}`

const orderPaidEvent = `{
	"event": "order.paid",
	"payload": {
		"payment": {"entity": {"id": "pay_3", "amount": 500, "order_id": "order_3"}},
		"order": {"entity": {"id": "order_3", "receipt": "sess_3"}}
	}
}`

func sign(body, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestComputeSignature(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)
	assert.Equal(t, sign(string(body), "secret"), ComputeSignature(body, "secret"))
	assert.NotEqual(t, ComputeSignature(body, "secret"), ComputeSignature(body, "other"))
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(authorizedEvent)
	valid := sign(authorizedEvent, testWebhookSecret)

	tests := []struct {
		name      string
		body      []byte
		signature string
		secret    string
		expected  bool
	}{
		{"valid", body, valid, testWebhookSecret, true},
		{"valid_with_whitespace", body, " " + valid + "\n", testWebhookSecret, true},
		{"wrong_secret", body, valid, "another_secret", false},
		{"tampered_body", append([]byte(" "), body...), valid, testWebhookSecret, false},
		{"empty_signature", body, "", testWebhookSecret, false},
		{"empty_secret", body, valid, "", false},
		{"uppercase_hex", body, "A" + valid[1:], testWebhookSecret, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, VerifyWebhookSignature(tt.body, tt.signature, tt.secret))
		})
	}
}

func TestGetWebhookActionAndData(t *testing.T) {
	gw := newFakeGateway(t)
	p := newTestProvider(t, gw, nil)

	tests := []struct {
		name      string
		body      string
		headers   func(body string) map[string]string
		action    provider.PaymentAction
		sessionID string
		amount    int64
	}{
		{
			name:      "authorized_uses_order_receipt",
			body:      authorizedEvent,
			headers:   func(b string) map[string]string { return map[string]string{"X-Razorpay-Signature": sign(b, testWebhookSecret)} },
			action:    provider.ActionAuthorized,
			sessionID: "payses_01HXYZ",
			amount:    50000,
		},
		{
			name:      "captured_falls_back_to_order_id",
			body:      capturedEventWithoutOrder,
			headers:   func(b string) map[string]string { return map[string]string{"x-razorpay-signature": sign(b, testWebhookSecret)} },
			action:    provider.ActionCaptured,
			sessionID: "order_fallback",
			amount:    12345,
		},
		{
			name:      "failed_with_empty_receipt",
			body:      failedEvent,
			headers:   func(b string) map[string]string { return map[string]string{"X-RAZORPAY-SIGNATURE": sign(b, testWebhookSecret)} },
			action:    provider.ActionFailed,
			sessionID: "order_2",
			amount:    999,
		},
		{
			name:      "unsupported_event",
			body:      orderPaidEvent,
			headers:   func(b string) map[string]string { return map[string]string{"X-Razorpay-Signature": sign(b, testWebhookSecret)} },
			action:    provider.ActionNotSupported,
			sessionID: "",
			amount:    0,
		},
		{
			name:      "invalid_signature",
			body:      authorizedEvent,
			headers:   func(b string) map[string]string { return map[string]string{"X-Razorpay-Signature": sign(b, "wrong")} },
			action:    provider.ActionFailed,
			sessionID: "",
			amount:    0,
		},
		{
			name:      "missing_signature",
			body:      authorizedEvent,
			headers:   func(string) map[string]string { return map[string]string{} },
			action:    provider.ActionFailed,
			sessionID: "",
			amount:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := p.GetWebhookActionAndData(context.Background(), provider.ProviderWebhookPayload{
				RawData: []byte(tt.body),
				Headers: tt.headers(tt.body),
			})
			require.NoError(t, err)

			assert.Equal(t, tt.action, result.Action)
			assert.Equal(t, tt.sessionID, result.Data.SessionID)
			assert.True(t, decimal.NewFromInt(tt.amount).Equal(result.Data.Amount), "amount %s", result.Data.Amount)
		})
	}
}

func TestGetWebhookActionAndData_EmptyBody(t *testing.T) {
	gw := newFakeGateway(t)
	p := newTestProvider(t, gw, nil)

	result, err := p.GetWebhookActionAndData(context.Background(), provider.ProviderWebhookPayload{
		Data:    map[string]any{"event": "payment.captured"},
		Headers: map[string]string{"X-Razorpay-Signature": sign("", testWebhookSecret)},
	})
	require.NoError(t, err)
	assert.Equal(t, provider.ActionFailed, result.Action)
}

func TestGetWebhookActionAndData_MalformedBody(t *testing.T) {
	gw := newFakeGateway(t)
	p := newTestProvider(t, gw, nil)

	body := `{"event": "payment.captured", "payload": `
	_, err := p.GetWebhookActionAndData(context.Background(), provider.ProviderWebhookPayload{
		RawData: []byte(body),
		Headers: map[string]string{"X-Razorpay-Signature": sign(body, testWebhookSecret)},
	})
	assert.ErrorContains(t, err, "invalid webhook payload")
}

func TestWebhookEventID(t *testing.T) {
	p := &RazorpayProvider{}

	assert.Equal(t, "evt_1", p.WebhookEventID(provider.ProviderWebhookPayload{
		Headers: map[string]string{"x-razorpay-event-id": "evt_1"},
	}))
	assert.Empty(t, p.WebhookEventID(provider.ProviderWebhookPayload{}))
}

func TestMapWebhookEvent(t *testing.T) {
	tests := map[string]provider.PaymentAction{
		"payment.authorized": provider.ActionAuthorized,
		"payment.captured":   provider.ActionCaptured,
		"payment.failed":     provider.ActionFailed,
		"order.paid":         provider.ActionNotSupported,
		"refund.processed":   provider.ActionNotSupported,
		"":                   provider.ActionNotSupported,
	}

	for event, want := range tests {
		assert.Equal(t, want, mapWebhookEvent(event), event)
	}
}
