package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/Sammk21/medusa-admin/infra/response"
	"github.com/Sammk21/medusa-admin/provider"
)

const (
	statusHealthy       = "healthy"
	statusDegraded      = "degraded"
	statusUnhealthy     = "unhealthy"
	statusNotConfigured = "not_configured"

	healthCheckTimeout = 5 * time.Second
)

// ProviderInfo exposes the provider side of the payment service to health checks
type ProviderInfo interface {
	AvailableProviders() []string
	CacheStats() provider.CacheStats
}

// HealthCheck pings one backing service
type HealthCheck func(ctx context.Context) error

type dependency struct {
	check       HealthCheck
	critical    bool
	description string
}

// HealthHandler handles health check requests
type HealthHandler struct {
	providers    ProviderInfo
	environment  string
	version      string
	dependencies map[string]dependency
	startTime    time.Time
}

// HealthStatus represents overall system health
type HealthStatus struct {
	Status        string                    `json:"status"`
	Version       string                    `json:"version"`
	Timestamp     time.Time                 `json:"timestamp"`
	Uptime        string                    `json:"uptime"`
	Environment   string                    `json:"environment"`
	Providers     []string                  `json:"providers"`
	ProviderCache provider.CacheStats       `json:"provider_cache"`
	Services      map[string]*ServiceHealth `json:"services"`
	System        *SystemHealth             `json:"system"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status       string `json:"status"`
	Healthy      bool   `json:"healthy"`
	Critical     bool   `json:"critical"`
	ResponseTime string `json:"response_time"`
	LastCheck    string `json:"last_check"`
	Description  string `json:"description,omitempty"`
	Error        string `json:"error,omitempty"`
}

// SystemHealth represents system resource health
type SystemHealth struct {
	Memory     *MemoryHealth `json:"memory"`
	GoRoutines int           `json:"goroutines"`
}

// MemoryHealth represents memory usage
type MemoryHealth struct {
	Alloc      string `json:"alloc"`
	TotalAlloc string `json:"total_alloc"`
	Sys        string `json:"sys"`
	GCRuns     uint32 `json:"gc_runs"`
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(providers ProviderInfo, environment, version string) *HealthHandler {
	return &HealthHandler{
		providers:    providers,
		environment:  environment,
		version:      version,
		dependencies: make(map[string]dependency),
		startTime:    time.Now(),
	}
}

// AddCheck registers a backing service. A failing critical service makes the whole service unhealthy,
// any other failure only degrades it. A nil check reports the service as not configured.
func (h *HealthHandler) AddCheck(name, description string, critical bool, check HealthCheck) *HealthHandler {
	h.dependencies[name] = dependency{check: check, critical: critical, description: description}
	return h
}

// Live reports that the process is up without touching any dependency
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, "Service is alive", map[string]any{
		"status": "ok",
		"uptime": time.Since(h.startTime).Round(time.Second).String(),
	})
}

// CheckHealth runs every registered check concurrently
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	health := &HealthStatus{
		Version:     h.version,
		Timestamp:   time.Now().UTC(),
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
		Environment: h.environment,
		Services:    h.checkServices(ctx),
		System:      checkSystemHealth(),
	}
	if h.providers != nil {
		health.Providers = h.providers.AvailableProviders()
		health.ProviderCache = h.providers.CacheStats()
	}
	health.Status = determineOverallStatus(health.Services)

	statusCode := http.StatusOK
	if health.Status == statusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	response.WriteJSON(w, statusCode, response.Response{
		Code:    statusCode,
		Success: health.Status != statusUnhealthy,
		Message: fmt.Sprintf("Service is %s", health.Status),
		Data:    health,
	})
}

func (h *HealthHandler) checkServices(ctx context.Context) map[string]*ServiceHealth {
	services := make(map[string]*ServiceHealth, len(h.dependencies))

	names := make([]string, 0, len(h.dependencies))
	for name := range h.dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, name := range names {
		dep := h.dependencies[name]
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := runCheck(ctx, dep)
			mu.Lock()
			services[name] = result
			mu.Unlock()
		}()
	}
	wg.Wait()

	return services
}

func runCheck(ctx context.Context, dep dependency) *ServiceHealth {
	health := &ServiceHealth{
		Critical:    dep.critical,
		Description: dep.description,
		LastCheck:   time.Now().UTC().Format(time.RFC3339),
	}

	if dep.check == nil {
		health.Status = statusNotConfigured
		return health
	}

	start := time.Now()
	err := dep.check(ctx)
	health.ResponseTime = fmt.Sprintf("%dms", time.Since(start).Milliseconds())

	if err != nil {
		health.Status = statusUnhealthy
		health.Error = err.Error()
		return health
	}

	health.Status = statusHealthy
	health.Healthy = true
	return health
}

func determineOverallStatus(services map[string]*ServiceHealth) string {
	status := statusHealthy
	for _, service := range services {
		if service.Status != statusUnhealthy {
			continue
		}
		if service.Critical {
			return statusUnhealthy
		}
		status = statusDegraded
	}
	return status
}

func checkSystemHealth() *SystemHealth {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return &SystemHealth{
		Memory: &MemoryHealth{
			Alloc:      formatBytes(memStats.Alloc),
			TotalAlloc: formatBytes(memStats.TotalAlloc),
			Sys:        formatBytes(memStats.Sys),
			GCRuns:     memStats.NumGC,
		},
		GoRoutines: runtime.NumGoroutine(),
	}
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
