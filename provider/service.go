package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Sammk21/medusa-admin/infra/logger"
)

// ConfigSource supplies the stored configuration of a provider in an environment.
// GetConfig returns a nil map and a nil error when the provider is not configured.
type ConfigSource interface {
	GetConfig(providerName, environment string) (map[string]string, error)
}

// PaymentLogger handles persistent logging of provider calls
type PaymentLogger interface {
	LogRequest(ctx context.Context, providerName, environment, operation string, request any) (int64, error)
	LogResponse(ctx context.Context, logID int64, response any, processingMs int64) error
	LogError(ctx context.Context, logID int64, errorCode, errorMsg string, processingMs int64) error
}

// WebhookEventStore remembers webhook deliveries that were already processed.
// MarkProcessed reports true the first time an event id is seen. Forget releases an id again.
type WebhookEventStore interface {
	MarkProcessed(ctx context.Context, providerName, eventID string) (bool, error)
	Forget(ctx context.Context, providerName, eventID string) error
}

// WebhookEventIdentifier is implemented by providers whose gateway sends a unique id per webhook delivery
type WebhookEventIdentifier interface {
	WebhookEventID(payload ProviderWebhookPayload) string
}

// NopPaymentLogger discards provider call logs
type NopPaymentLogger struct{}

func (NopPaymentLogger) LogRequest(context.Context, string, string, string, any) (int64, error) {
	return 0, nil
}

func (NopPaymentLogger) LogResponse(context.Context, int64, any, int64) error { return nil }

func (NopPaymentLogger) LogError(context.Context, int64, string, string, int64) error { return nil }

// ServiceOption configures a PaymentService
type ServiceOption func(*PaymentService)

// WithRegistry sets the registry providers are created from
func WithRegistry(r *ProviderRegistry) ServiceOption {
	return func(s *PaymentService) { s.registry = r }
}

// WithCache sets the cache of initialized providers
func WithCache(c ProviderCache) ServiceOption {
	return func(s *PaymentService) { s.cache = c }
}

// WithPaymentLogger sets the provider call logger
func WithPaymentLogger(l PaymentLogger) ServiceOption {
	return func(s *PaymentService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWebhookEventStore enables webhook de-duplication
func WithWebhookEventStore(store WebhookEventStore) ServiceOption {
	return func(s *PaymentService) { s.events = store }
}

// WithDefaultEnvironment sets the environment used when a call does not name one
func WithDefaultEnvironment(env string) ServiceOption {
	return func(s *PaymentService) {
		if env != "" {
			s.defaultEnvironment = env
		}
	}
}

// PaymentService manages payment operations through the configured providers
type PaymentService struct {
	configs            ConfigSource
	registry           *ProviderRegistry
	cache              ProviderCache
	logger             PaymentLogger
	events             WebhookEventStore
	defaultEnvironment string
}

// NewPaymentService creates a new payment service
func NewPaymentService(configs ConfigSource, opts ...ServiceOption) *PaymentService {
	s := &PaymentService{
		configs:            configs,
		registry:           DefaultRegistry,
		cache:              NewProviderCache(100, time.Hour),
		logger:             NopPaymentLogger{},
		defaultEnvironment: "sandbox",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PaymentService) environment(env string) string {
	if env == "" {
		return s.defaultEnvironment
	}
	return env
}

// GetProvider returns an initialized provider, loading its configuration on a cache miss
func (s *PaymentService) GetProvider(environment, providerName string) (PaymentProvider, error) {
	environment = s.environment(environment)

	if cached := s.cache.Get(providerName, environment); cached != nil {
		logger.Debug("Provider cache hit", logger.LogContext{
			Provider: providerName,
			Fields:   map[string]any{"environment": environment},
		})
		return cached, nil
	}

	factory, err := s.registry.Get(providerName)
	if err != nil {
		return nil, err
	}

	stored, err := s.configs.GetConfig(providerName, environment)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration for %s (%s): %w", providerName, environment, err)
	}
	if stored == nil {
		return nil, fmt.Errorf("no configuration found for provider %s (%s): %w", providerName, environment, ErrProviderNotFound)
	}

	conf := make(map[string]string, len(stored)+1)
	for k, v := range stored {
		conf[k] = v
	}
	conf["environment"] = environment

	p := factory()
	if err := p.ValidateConfig(conf); err != nil {
		return nil, err
	}
	if err := p.Initialize(conf); err != nil {
		return nil, fmt.Errorf("failed to initialize provider %s: %w", providerName, err)
	}

	s.cache.Set(providerName, environment, p)

	logger.Debug("Provider cached successfully", logger.LogContext{
		Provider: providerName,
		Fields:   map[string]any{"environment": environment},
	})

	return p, nil
}

// InvalidateProvider drops cached instances of a provider so the next call reloads its configuration
func (s *PaymentService) InvalidateProvider(providerName string) {
	s.cache.DeleteByProvider(providerName)
}

// CacheStats returns statistics of the provider cache
func (s *PaymentService) CacheStats() CacheStats {
	return s.cache.Stats()
}

// AvailableProviders returns the names of all registered providers
func (s *PaymentService) AvailableProviders() []string {
	return s.registry.GetAvailableProviders()
}

const logWriteTimeout = 5 * time.Second

// call resolves the provider and runs one contract operation with request/response logging
func call[T any](s *PaymentService, ctx context.Context, environment, providerName, operation string, request any, fn func(PaymentProvider) (T, error)) (T, error) {
	var zero T
	environment = s.environment(environment)

	p, err := s.GetProvider(environment, providerName)
	if err != nil {
		return zero, err
	}

	startTime := time.Now()
	logID, err := s.logger.LogRequest(ctx, providerName, environment, operation, request)
	if err != nil {
		logger.Warn("Failed to log provider request", logger.LogContext{
			Provider: providerName,
			Fields: map[string]any{
				"operation": operation,
				"error":     err.Error(),
			},
		})
	}

	response, err := fn(p)

	processingMs := time.Since(startTime).Milliseconds()

	if logID > 0 {
		// the call context may already be done when the gateway timed out
		logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logWriteTimeout)
		var logErr error
		if err != nil {
			logErr = s.logger.LogError(logCtx, logID, errorCode(operation), err.Error(), processingMs)
		} else {
			logErr = s.logger.LogResponse(logCtx, logID, response, processingMs)
		}
		cancel()
		if logErr != nil {
			logger.Warn("Failed to log provider response", logger.LogContext{
				Provider: providerName,
				Fields: map[string]any{
					"log_id":    logID,
					"operation": operation,
					"error":     logErr.Error(),
				},
			})
		}
	}

	if err != nil {
		logger.Error("Provider operation failed", err, logger.LogContext{
			Provider: providerName,
			Fields: map[string]any{
				"operation":     operation,
				"environment":   environment,
				"processing_ms": processingMs,
			},
		})
	}

	return response, err
}

func errorCode(operation string) string {
	return strings.ToUpper(operation) + "_ERROR"
}

// InitiatePayment opens a payment session
func (s *PaymentService) InitiatePayment(ctx context.Context, environment, providerName string, input InitiatePaymentInput) (*InitiatePaymentOutput, error) {
	return call(s, ctx, environment, providerName, "initiate", input, func(p PaymentProvider) (*InitiatePaymentOutput, error) {
		return p.InitiatePayment(ctx, input)
	})
}

// UpdatePayment updates the amount or currency of a payment session
func (s *PaymentService) UpdatePayment(ctx context.Context, environment, providerName string, input UpdatePaymentInput) (*UpdatePaymentOutput, error) {
	return call(s, ctx, environment, providerName, "update", input, func(p PaymentProvider) (*UpdatePaymentOutput, error) {
		return p.UpdatePayment(ctx, input)
	})
}

// AuthorizePayment checks whether a payment session has been paid
func (s *PaymentService) AuthorizePayment(ctx context.Context, environment, providerName string, input AuthorizePaymentInput) (*AuthorizePaymentOutput, error) {
	return call(s, ctx, environment, providerName, "authorize", input, func(p PaymentProvider) (*AuthorizePaymentOutput, error) {
		return p.AuthorizePayment(ctx, input)
	})
}

// CapturePayment captures an authorized payment
func (s *PaymentService) CapturePayment(ctx context.Context, environment, providerName string, input CapturePaymentInput) (*CapturePaymentOutput, error) {
	return call(s, ctx, environment, providerName, "capture", input, func(p PaymentProvider) (*CapturePaymentOutput, error) {
		return p.CapturePayment(ctx, input)
	})
}

// RefundPayment refunds a captured payment
func (s *PaymentService) RefundPayment(ctx context.Context, environment, providerName string, input RefundPaymentInput) (*RefundPaymentOutput, error) {
	return call(s, ctx, environment, providerName, "refund", input, func(p PaymentProvider) (*RefundPaymentOutput, error) {
		return p.RefundPayment(ctx, input)
	})
}

// CancelPayment cancels a payment session
func (s *PaymentService) CancelPayment(ctx context.Context, environment, providerName string, input CancelPaymentInput) (*CancelPaymentOutput, error) {
	return call(s, ctx, environment, providerName, "cancel", input, func(p PaymentProvider) (*CancelPaymentOutput, error) {
		return p.CancelPayment(ctx, input)
	})
}

// DeletePayment deletes a payment session
func (s *PaymentService) DeletePayment(ctx context.Context, environment, providerName string, input DeletePaymentInput) (*DeletePaymentOutput, error) {
	return call(s, ctx, environment, providerName, "delete", input, func(p PaymentProvider) (*DeletePaymentOutput, error) {
		return p.DeletePayment(ctx, input)
	})
}

// RetrievePayment returns the gateway view of a payment session
func (s *PaymentService) RetrievePayment(ctx context.Context, environment, providerName string, input RetrievePaymentInput) (*RetrievePaymentOutput, error) {
	return call(s, ctx, environment, providerName, "retrieve", input, func(p PaymentProvider) (*RetrievePaymentOutput, error) {
		return p.RetrievePayment(ctx, input)
	})
}

// GetPaymentStatus returns the framework status of a payment session
func (s *PaymentService) GetPaymentStatus(ctx context.Context, environment, providerName string, input GetPaymentStatusInput) (*GetPaymentStatusOutput, error) {
	return call(s, ctx, environment, providerName, "status", input, func(p PaymentProvider) (*GetPaymentStatusOutput, error) {
		return p.GetPaymentStatus(ctx, input)
	})
}

// HandleWebhook maps a webhook delivery to an action. The second return value reports whether
// the delivery was already processed before, in which case the caller should not act on it again.
func (s *PaymentService) HandleWebhook(ctx context.Context, environment, providerName string, payload ProviderWebhookPayload) (*WebhookActionResult, bool, error) {
	logged := map[string]any{
		"data":    payload.Data,
		"headers": payload.Headers,
	}

	var provider PaymentProvider
	result, err := call(s, ctx, environment, providerName, "webhook", logged, func(p PaymentProvider) (*WebhookActionResult, error) {
		provider = p
		return p.GetWebhookActionAndData(ctx, payload)
	})
	if err != nil {
		return nil, false, err
	}

	// Only authenticated events carry a session id; unauthenticated ones never consume an event id.
	if s.events == nil || result.Data.SessionID == "" {
		return result, false, nil
	}

	identifier, ok := provider.(WebhookEventIdentifier)
	if !ok {
		return result, false, nil
	}
	eventID := identifier.WebhookEventID(payload)
	if eventID == "" {
		return result, false, nil
	}

	first, err := s.events.MarkProcessed(ctx, providerName, eventID)
	if err != nil {
		// store unavailable: treat as a first delivery
		logger.Warn("Failed to record webhook event", logger.LogContext{
			Provider: providerName,
			Fields: map[string]any{
				"event_id": eventID,
				"error":    err.Error(),
			},
		})
		return result, false, nil
	}

	if first && ctx.Err() != nil {
		// the caller never sees this answer, so the gateway's retry must be processed
		s.forgetWebhookEvent(ctx, providerName, eventID)
		return nil, false, ctx.Err()
	}

	if !first {
		logger.Info("Duplicate webhook event ignored", logger.LogContext{
			Provider: providerName,
			Fields: map[string]any{
				"event_id":   eventID,
				"action":     string(result.Action),
				"session_id": result.Data.SessionID,
			},
		})
	}

	return result, !first, nil
}

func (s *PaymentService) forgetWebhookEvent(ctx context.Context, providerName, eventID string) {
	forgetCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logWriteTimeout)
	defer cancel()

	if err := s.events.Forget(forgetCtx, providerName, eventID); err != nil {
		logger.Warn("Failed to release webhook event", logger.LogContext{
			Provider: providerName,
			Fields: map[string]any{
				"event_id": eventID,
				"error":    err.Error(),
			},
		})
	}
}

// WebhookEventID returns the delivery id the gateway attached to a webhook, or an empty string
// when the provider does not expose one
func (s *PaymentService) WebhookEventID(environment, providerName string, payload ProviderWebhookPayload) string {
	p, err := s.GetProvider(environment, providerName)
	if err != nil {
		return ""
	}
	if identifier, ok := p.(WebhookEventIdentifier); ok {
		return identifier.WebhookEventID(payload)
	}
	return ""
}
