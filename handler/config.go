package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Sammk21/medusa-admin/infra/logger"
	"github.com/Sammk21/medusa-admin/infra/postgres"
	"github.com/Sammk21/medusa-admin/infra/response"
	"github.com/Sammk21/medusa-admin/provider"
	"github.com/go-chi/chi/v5"
)

// ConfigStore persists provider configurations per environment
type ConfigStore interface {
	SetConfig(providerName, environment string, config map[string]string) error
	GetConfig(providerName, environment string) (map[string]string, error)
	DeleteConfig(providerName, environment string) error
	GetConfiguredProviders() []string
	GetStats() map[string]any
}

// ProviderCatalog creates unconfigured provider instances
type ProviderCatalog interface {
	CreateProvider(name string) (provider.PaymentProvider, error)
}

// ProviderInvalidator drops initialized providers after their configuration changed
type ProviderInvalidator interface {
	InvalidateProvider(providerName string)
}

// ConfigHandler handles configuration related HTTP requests
type ConfigHandler struct {
	store       ConfigStore
	catalog     ProviderCatalog
	invalidator ProviderInvalidator
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(store ConfigStore, catalog ProviderCatalog, invalidator ProviderInvalidator) *ConfigHandler {
	return &ConfigHandler{
		store:       store,
		catalog:     catalog,
		invalidator: invalidator,
	}
}

func configParams(r *http.Request) (string, string, error) {
	providerName := chi.URLParam(r, "provider")
	environment := chi.URLParam(r, "environment")
	if providerName == "" {
		return "", "", fmt.Errorf("provider parameter is required")
	}
	if environment != "sandbox" && environment != "production" {
		return "", "", fmt.Errorf("environment must be sandbox or production")
	}
	return providerName, environment, nil
}

// maskConfig hides secrets before a configuration leaves the service
func maskConfig(config map[string]string) map[string]any {
	out := make(map[string]any, len(config))
	for k, v := range config {
		out[k] = v
	}
	return postgres.SanitizeForLog(out)
}

// GetRequirements lists the configuration fields a provider needs in an environment
func (h *ConfigHandler) GetRequirements(w http.ResponseWriter, r *http.Request) {
	providerName := chi.URLParam(r, "provider")
	environment := r.URL.Query().Get("environment")
	if environment == "" {
		environment = "sandbox"
	}

	p, err := h.catalog.CreateProvider(providerName)
	if err != nil {
		response.Error(w, http.StatusNotFound, "Unknown provider", err)
		return
	}

	response.Success(w, http.StatusOK, "Provider requirements retrieved", map[string]any{
		"provider":    providerName,
		"environment": environment,
		"fields":      p.GetRequiredConfig(environment),
	})
}

// SetConfig validates and stores the configuration of a provider in an environment
func (h *ConfigHandler) SetConfig(w http.ResponseWriter, r *http.Request) {
	providerName, environment, err := configParams(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid parameters", err)
		return
	}

	var conf map[string]string
	if err := json.NewDecoder(r.Body).Decode(&conf); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if len(conf) == 0 {
		response.Error(w, http.StatusBadRequest, "Configuration cannot be empty", nil)
		return
	}
	delete(conf, "environment")

	p, err := h.catalog.CreateProvider(providerName)
	if err != nil {
		response.Error(w, http.StatusNotFound, "Unknown provider", err)
		return
	}

	candidate := make(map[string]string, len(conf)+1)
	for k, v := range conf {
		candidate[k] = v
	}
	candidate["environment"] = environment
	if err := p.ValidateConfig(candidate); err != nil {
		message := "Invalid provider configuration"
		var fieldErr *provider.ConfigFieldError
		if errors.As(err, &fieldErr) {
			message += ": " + fieldErr.Field
		}
		response.Error(w, http.StatusBadRequest, message, err)
		return
	}

	if err := h.store.SetConfig(providerName, environment, conf); err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to save configuration", err)
		return
	}
	h.invalidator.InvalidateProvider(providerName)

	logger.Info("Provider configuration updated", logger.LogContext{
		Provider: providerName,
		Fields:   map[string]any{"environment": environment},
	})

	response.Success(w, http.StatusOK, "Configuration saved", map[string]any{
		"provider":    providerName,
		"environment": environment,
		"config":      maskConfig(conf),
	})
}

// GetConfig returns the stored configuration with secrets masked
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	providerName, environment, err := configParams(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid parameters", err)
		return
	}

	conf, err := h.store.GetConfig(providerName, environment)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to load configuration", err)
		return
	}
	if conf == nil {
		response.Error(w, http.StatusNotFound, "Configuration not found", nil)
		return
	}

	response.Success(w, http.StatusOK, "Configuration retrieved", map[string]any{
		"provider":    providerName,
		"environment": environment,
		"config":      maskConfig(conf),
	})
}

// DeleteConfig removes the configuration of a provider in an environment
func (h *ConfigHandler) DeleteConfig(w http.ResponseWriter, r *http.Request) {
	providerName, environment, err := configParams(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid parameters", err)
		return
	}

	if err := h.store.DeleteConfig(providerName, environment); err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to delete configuration", err)
		return
	}
	h.invalidator.InvalidateProvider(providerName)

	logger.Info("Provider configuration deleted", logger.LogContext{
		Provider: providerName,
		Fields:   map[string]any{"environment": environment},
	})

	response.Success(w, http.StatusOK, "Configuration deleted", nil)
}

// GetStats returns configuration storage statistics
func (h *ConfigHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := h.store.GetStats()
	stats["configured_providers"] = h.store.GetConfiguredProviders()

	response.Success(w, http.StatusOK, "Configuration stats retrieved", stats)
}
