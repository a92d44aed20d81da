// Package service routes tool calls to the provider owning them. Tool
// ids are "{service}.{operation}"; the prefix selects the provider.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/GriffinCanCode/TenantOS/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/TenantOS/backend/internal/shared/types"
)

// Provider is a registered service implementation.
type Provider interface {
	Definition() types.Service
	Execute(ctx context.Context, toolID string, params map[string]interface{}) (*types.Result, error)
}

// Registry manages service discovery and execution.
type Registry struct {
	services sync.Map // service id -> Provider
	metrics  *monitoring.Metrics
}

// NewRegistry creates a service registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// WithMetrics enables per-call metrics recording.
func (r *Registry) WithMetrics(m *monitoring.Metrics) *Registry {
	r.metrics = m
	return r
}

// Register adds a service provider under its definition id.
func (r *Registry) Register(provider Provider) error {
	def := provider.Definition()
	if def.ID == "" {
		return fmt.Errorf("service ID cannot be empty")
	}
	r.services.Store(def.ID, provider)
	return nil
}

// Get retrieves a service by ID.
func (r *Registry) Get(serviceID string) (Provider, bool) {
	val, ok := r.services.Load(serviceID)
	if !ok {
		return nil, false
	}
	return val.(Provider), true
}

// List returns all registered service definitions.
func (r *Registry) List() []types.Service {
	var services []types.Service
	r.services.Range(func(_, value interface{}) bool {
		services = append(services, value.(Provider).Definition())
		return true
	})
	return services
}

// Execute runs a tool on the provider named by its id prefix.
func (r *Registry) Execute(ctx context.Context, toolID string, params map[string]interface{}) (*types.Result, error) {
	parts := strings.SplitN(toolID, ".", 2)
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid tool ID format: %s", toolID)
	}

	provider, ok := r.Get(parts[0])
	if !ok {
		return nil, fmt.Errorf("service not found: %s", parts[0])
	}

	if r.metrics == nil {
		return provider.Execute(ctx, toolID, params)
	}

	timer := monitoring.NewTimer(r.metrics, parts[0], toolID)
	result, err := provider.Execute(ctx, toolID, params)
	switch {
	case err != nil:
		timer.Stop("error")
		r.metrics.RecordProxyError(parts[0], toolID)
	case result != nil && !result.Success:
		timer.Stop("failure")
	default:
		timer.Stop("success")
	}
	return result, err
}

// Stats returns registry statistics.
func (r *Registry) Stats() map[string]interface{} {
	var total, totalTools int
	categories := make(map[string]int)

	r.services.Range(func(_, value interface{}) bool {
		def := value.(Provider).Definition()
		total++
		totalTools += len(def.Tools)
		categories[string(def.Category)]++
		return true
	})

	return map[string]interface{}{
		"total_services": total,
		"total_tools":    totalTools,
		"categories":     categories,
	}
}
