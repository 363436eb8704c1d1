// Package medusaadmin is a payment gateway service that exposes Razorpay to a Medusa
// commerce backend through the payment provider contract: initiate, update, authorize,
// capture, refund, cancel, delete, retrieve, status and webhook mapping.
//
// # Overview
//
// The commerce backend never talks to Razorpay directly. It calls this service with the
// session data it stored for a payment session, and gets back updated session data and a
// normalized session status. Razorpay webhooks are verified here and translated into
// framework actions (authorized, captured, failed, not_supported).
//
// # Architecture
//
//	┌─────────────────┐    ┌─────────────────┐    ┌─────────────────┐
//	│                 │    │                 │    │                 │
//	│  Medusa backend │◄──►│  Payment API    │◄──►│    Razorpay     │
//	│                 │    │                 │    │                 │
//	└─────────────────┘    └─────────────────┘    └─────────────────┘
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//
//	    "github.com/Sammk21/medusa-admin/infra/config"
//	    "github.com/Sammk21/medusa-admin/provider"
//	    _ "github.com/Sammk21/medusa-admin/provider/razorpay" // Import to register provider
//	    "github.com/shopspring/decimal"
//	)
//
//	func main() {
//	    configs := config.NewProviderConfig(nil)
//	    _ = configs.SetConfig("razorpay", "sandbox", map[string]string{
//	        "keyId":         "rzp_test_xxx",
//	        "keySecret":     "secret",
//	        "webhookSecret": "whsec",
//	    })
//
//	    service := provider.NewPaymentService(configs)
//	    out, err := service.InitiatePayment(context.Background(), "sandbox", "razorpay", provider.InitiatePaymentInput{
//	        Amount:       decimal.RequireFromString("499.00"),
//	        CurrencyCode: "inr",
//	    })
//	    ...
//	}
//
// # Environment Support
//
// Every provider is configured per environment. Sandbox accepts rzp_test_ keys only and
// production accepts rzp_live_ keys only. A call picks its environment with the
// X-Payment-Environment header (or the environment query parameter); calls naming none use
// PAYMENT_ENVIRONMENT.
//
// # HTTP API
//
// Payment calls (Bearer API key required):
//   - POST /v1/payments/{provider}/initiate
//   - POST /v1/payments/{provider}/update
//   - POST /v1/payments/{provider}/authorize
//   - POST /v1/payments/{provider}/capture
//   - POST /v1/payments/{provider}/refund
//   - POST /v1/payments/{provider}/cancel
//   - POST /v1/payments/{provider}/delete
//   - POST /v1/payments/{provider}/retrieve
//   - POST /v1/payments/{provider}/status
//
// Provider configuration and call logs (Bearer API key required):
//   - GET /v1/config/stats
//   - GET /v1/config/{provider}/requirements
//   - GET, PUT, DELETE /v1/config/{provider}/{environment}
//   - GET /v1/logs/{provider}
//   - GET /v1/logs/{provider}/stats
//
// Public:
//   - POST /v1/webhooks/{provider}
//   - GET /health
//   - GET /health/live
//
// # Webhooks
//
// Razorpay signs the raw request body with the webhook secret. Deliveries with a missing or
// wrong X-Razorpay-Signature are answered with a failed action and never consume an event id.
// Verified deliveries are deduplicated on X-Razorpay-Event-Id through Redis, or through an
// in-process store when REDIS_URL is unset.
//
// # Logging
//
// System logs are written to the console and optionally to OpenSearch, which also keeps an
// audit trail of webhook deliveries. Every gateway call is recorded in PostgreSQL when
// DATABASE_URL is set, with sensitive fields masked.
//
// # Configuration
//
// Environment variables:
//   - APP_PORT, APP_ENV, API_KEY
//   - PAYMENT_ENVIRONMENT (sandbox or production)
//   - RAZORPAY_KEY_ID, RAZORPAY_KEY_SECRET, RAZORPAY_WEBHOOK_SECRET, RAZORPAY_ENVIRONMENT
//   - PROVIDER_CONFIG_DB (SQLite file for stored provider configuration)
//   - DATABASE_URL, REDIS_URL, WEBHOOK_EVENT_TTL_HOURS
//   - OPENSEARCH_URL, OPENSEARCH_USER, OPENSEARCH_PASSWORD, ENABLE_OPENSEARCH_LOGGING
//   - RATE_LIMIT_PER_MINUTE, CORS_ALLOWED_ORIGINS, IP_WHITELIST, LOGGING_LEVEL
//
// IP_WHITELIST restricts the Bearer-authenticated routes only; webhooks and health stay open.
package medusaadmin
