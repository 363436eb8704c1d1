package razorpay

import "github.com/Sammk21/medusa-admin/provider"

// mapOrderStatus maps a gateway order status to a payment session status.
// Orders move created -> attempted -> paid; anything unrecognised stays pending.
func mapOrderStatus(status string) provider.PaymentSessionStatus {
	switch status {
	case OrderCreated, OrderAttempted:
		return provider.StatusPending
	case OrderPaid:
		return provider.StatusAuthorized
	default:
		return provider.StatusPending
	}
}

const (
	eventPaymentAuthorized = "payment.authorized"
	eventPaymentCaptured   = "payment.captured"
	eventPaymentFailed     = "payment.failed"
)

// mapWebhookEvent maps a webhook event name to a framework action
func mapWebhookEvent(event string) provider.PaymentAction {
	switch event {
	case eventPaymentAuthorized:
		return provider.ActionAuthorized
	case eventPaymentCaptured:
		return provider.ActionCaptured
	case eventPaymentFailed:
		return provider.ActionFailed
	default:
		return provider.ActionNotSupported
	}
}
