package backend

import (
	"fmt"
	"time"

	"github.com/everstacklabs/modelmeter/internal/config"
	"github.com/everstacklabs/modelmeter/internal/registry"
)

// Target is everything a completion client needs to call a model.
type Target struct {
	Endpoint      string
	APIKey        string
	APIVersion    string
	Deployment    string
	AllowMetadata bool
	// Timeout is the model's extended request timeout, zero for the
	// client default. It is surfaced here, not enforced.
	Timeout time.Duration
}

// UnconfiguredError is returned when a model's backend has no endpoint in
// the active environment.
type UnconfiguredError struct {
	Backend     string
	Environment string
}

func (e *UnconfiguredError) Error() string {
	return fmt.Sprintf("backend %q has no endpoint configured for environment %q", e.Backend, e.Environment)
}

// Resolver maps catalogue backends to configured connections.
type Resolver struct {
	environment string
	backends    map[string]config.BackendConfig
}

// NewResolver creates a Resolver for environment.
func NewResolver(environment string, backends map[string]config.BackendConfig) *Resolver {
	return &Resolver{environment: environment, backends: backends}
}

// Resolve returns the connection for m in the resolver's environment.
func (r *Resolver) Resolve(m registry.Model) (Target, error) {
	cfg, ok := r.backends[m.Backend.Name]
	if !ok {
		return Target{}, &UnconfiguredError{Backend: m.Backend.Name, Environment: r.environment}
	}

	endpoint, apiKey := cfg.Endpoint, cfg.APIKey
	if o, ok := cfg.Environments[r.environment]; ok {
		if o.Endpoint != "" {
			endpoint = o.Endpoint
		}
		if o.APIKey != "" {
			apiKey = o.APIKey
		}
	}
	if endpoint == "" {
		return Target{}, &UnconfiguredError{Backend: m.Backend.Name, Environment: r.environment}
	}

	return Target{
		Endpoint:      endpoint,
		APIKey:        apiKey,
		APIVersion:    m.Backend.APIVersion,
		Deployment:    m.Backend.Deployment,
		AllowMetadata: m.Backend.AllowMetadata,
		Timeout:       m.CompletionOptions.Timeout(),
	}, nil
}
