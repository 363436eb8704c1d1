// Package handler exposes the payment service over HTTP.
//
// The commerce backend calls one endpoint per contract operation. Every call carries the
// provider name in the path and optionally the target environment in the X-Payment-Environment
// header or the environment query parameter:
//
//	POST /v1/payments/{provider}/initiate
//	POST /v1/payments/{provider}/update
//	POST /v1/payments/{provider}/authorize
//	POST /v1/payments/{provider}/capture
//	POST /v1/payments/{provider}/refund
//	POST /v1/payments/{provider}/cancel
//	POST /v1/payments/{provider}/delete
//	POST /v1/payments/{provider}/retrieve
//	POST /v1/payments/{provider}/status
//
// Request bodies are the provider input types encoded as JSON, responses wrap the provider
// output in the standard response envelope.
//
// Gateway webhooks arrive unauthenticated on
//
//	POST /v1/webhooks/{provider}
//
// and are answered with the mapped action, the session it refers to and whether the
// delivery was seen before:
//
//	{"action":"captured","data":{"sessionId":"payses_01H...","amount":"50000"},"duplicate":false}
//
// ConfigHandler manages provider credentials per environment, LogsHandler reads the
// provider call log and HealthHandler reports on the backing services.
package handler
