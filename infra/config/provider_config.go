package config

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
)

// envField maps a provider config key to the environment variable that supplies it
type envField struct {
	Key    string
	EnvVar string
}

// providerEnvFields lists the providers that can be configured from environment variables
var providerEnvFields = map[string][]envField{
	"razorpay": {
		{Key: "keyId", EnvVar: "RAZORPAY_KEY_ID"},
		{Key: "keySecret", EnvVar: "RAZORPAY_KEY_SECRET"},
		{Key: "webhookSecret", EnvVar: "RAZORPAY_WEBHOOK_SECRET"},
		{Key: "autoCapture", EnvVar: "RAZORPAY_AUTO_CAPTURE"},
		{Key: "baseURL", EnvVar: "RAZORPAY_BASE_URL"},
	},
}

func configKey(providerName, environment string) string {
	return fmt.Sprintf("%s_%s", strings.ToLower(providerName), strings.ToLower(environment))
}

// ProviderConfig manages payment provider configurations
type ProviderConfig struct {
	configs map[string]map[string]string
	storage *SQLiteStorage
	mu      sync.RWMutex
}

// NewProviderConfig creates a provider configuration, loading persisted entries when storage is given
func NewProviderConfig(storage *SQLiteStorage) *ProviderConfig {
	c := &ProviderConfig{
		configs: make(map[string]map[string]string),
		storage: storage,
	}

	if storage != nil {
		configs, err := storage.LoadAllProviderConfigs()
		if err != nil {
			log.Printf("Warning: Failed to load provider configurations from SQLite: %v", err)
		} else {
			for k, v := range configs {
				c.configs[k] = v
			}
		}
	} else {
		log.Printf("Provider config storage not configured, using memory-only mode")
	}

	return c
}

// LoadFromEnv registers the configuration of every provider whose credentials are present in the environment.
// The environment is taken from <PROVIDER>_ENVIRONMENT and defaults to sandbox.
func (c *ProviderConfig) LoadFromEnv() []string {
	var loaded []string

	for providerName, fields := range providerEnvFields {
		conf := make(map[string]string)
		for _, f := range fields {
			if v := GetEnv(f.EnvVar, ""); v != "" {
				conf[f.Key] = v
			}
		}
		if len(conf) == 0 {
			continue
		}

		environment := GetEnv(strings.ToUpper(providerName)+"_ENVIRONMENT", "sandbox")

		c.mu.Lock()
		c.configs[configKey(providerName, environment)] = conf
		c.mu.Unlock()

		loaded = append(loaded, providerName)
	}

	sort.Strings(loaded)
	return loaded
}

// SetConfig sets and persists the configuration of a provider in an environment
func (c *ProviderConfig) SetConfig(providerName, environment string, config map[string]string) error {
	if providerName == "" {
		return fmt.Errorf("provider name cannot be empty")
	}
	if environment == "" {
		return fmt.Errorf("environment cannot be empty")
	}
	if len(config) == 0 {
		return fmt.Errorf("config cannot be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.storage != nil {
		if err := c.storage.SaveProviderConfig(providerName, environment, config); err != nil {
			return fmt.Errorf("failed to save config to SQLite: %w", err)
		}
	}

	c.configs[configKey(providerName, environment)] = copyConfig(config)
	return nil
}

// GetConfig returns a copy of the configuration of a provider in an environment,
// or a nil map when none is stored
func (c *ProviderConfig) GetConfig(providerName, environment string) (map[string]string, error) {
	key := configKey(providerName, environment)

	c.mu.RLock()
	config, exists := c.configs[key]
	c.mu.RUnlock()

	if !exists && c.storage != nil {
		stored, err := c.storage.LoadProviderConfig(providerName, environment)
		switch {
		case err == nil:
			c.mu.Lock()
			c.configs[key] = stored
			c.mu.Unlock()
			config, exists = stored, true
		case !errors.Is(err, ErrConfigNotFound):
			return nil, err
		}
	}

	if !exists {
		return nil, nil
	}

	return copyConfig(config), nil
}

// DeleteConfig removes the configuration of a provider in an environment
func (c *ProviderConfig) DeleteConfig(providerName, environment string) error {
	if providerName == "" {
		return fmt.Errorf("provider name cannot be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.storage != nil {
		if err := c.storage.DeleteProviderConfig(providerName, environment); err != nil && !errors.Is(err, ErrConfigNotFound) {
			return fmt.Errorf("failed to delete config from SQLite: %w", err)
		}
	}

	delete(c.configs, configKey(providerName, environment))
	return nil
}

// GetConfiguredProviders returns the sorted names of providers with at least one configuration
func (c *ProviderConfig) GetConfiguredProviders() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	for key := range c.configs {
		if idx := strings.LastIndex(key, "_"); idx > 0 {
			seen[key[:idx]] = true
		}
	}

	providers := make([]string, 0, len(seen))
	for name := range seen {
		providers = append(providers, name)
	}
	sort.Strings(providers)
	return providers
}

// GetStats returns configuration and storage statistics
func (c *ProviderConfig) GetStats() map[string]any {
	stats := make(map[string]any)

	c.mu.RLock()
	stats["memory_configs"] = len(c.configs)
	c.mu.RUnlock()

	if c.storage != nil {
		sqliteStats, err := c.storage.GetStats()
		if err != nil {
			stats["sqlite_error"] = err.Error()
		} else {
			stats["sqlite"] = sqliteStats
		}
	} else {
		stats["sqlite"] = "not_available"
	}

	return stats
}

func copyConfig(config map[string]string) map[string]string {
	out := make(map[string]string, len(config))
	for k, v := range config {
		out[k] = v
	}
	return out
}
