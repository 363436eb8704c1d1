// Package provider defines the payment provider contract of the commerce framework and the
// service that routes calls to configured gateway adapters.
//
// # Core Concepts
//
//   - PaymentProvider: the contract every gateway adapter implements
//   - PaymentSessionData: the opaque map the framework stores per payment session and hands back on every call
//   - PaymentService: resolves a provider per environment, caches it and logs every call
//   - ProviderRegistry: maps provider names to factories
//
// # Basic Usage
//
//	configs := config.NewProviderConfig(nil)
//	_ = configs.SetConfig("razorpay", "sandbox", map[string]string{
//	    "keyId":         "rzp_test_xxx",
//	    "keySecret":     "secret",
//	    "webhookSecret": "whsec",
//	})
//
//	service := provider.NewPaymentService(configs)
//	out, err := service.InitiatePayment(ctx, "sandbox", "razorpay", provider.InitiatePaymentInput{
//	    Amount:       decimal.RequireFromString("499.00"),
//	    CurrencyCode: "inr",
//	})
//
// The returned Data is stored by the framework and passed to authorize, capture, refund and
// the other calls of the same session.
//
// # Amounts
//
// Framework amounts are decimals in the major unit. ToSmallestUnit converts them to the
// integer minor unit gateways expect, using the ISO 4217 exponent of the currency.
// Negative amounts fail with ErrNegativeAmount.
//
// # Error Handling
//
// Service calls return ErrProviderNotFound (wrapped) when the provider is not registered or
// has no configuration in the requested environment. Gateway failures are wrapped with the
// operation name and logged through the PaymentLogger with an <OPERATION>_ERROR code.
//
// # Provider Registration
//
// Adapters register themselves from an init function:
//
//	func init() {
//	    provider.Register("razorpay", NewProvider)
//	}
//
// # Webhook Handling
//
// GetWebhookActionAndData maps a raw delivery to an action. When the provider also
// implements WebhookEventIdentifier and a WebhookEventStore is configured, verified
// deliveries are deduplicated on their event id. A store error never blocks a delivery.
//
// # Thread Safety
//
// PaymentService, ProviderRegistry and the provider cache are safe for concurrent use.
// Initialized providers are shared between requests of the same environment.
package provider
