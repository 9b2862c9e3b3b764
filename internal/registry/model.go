package registry

import "time"

// HostingLocation is the data-residency region a backend runs in.
type HostingLocation string

const (
	HostingEU HostingLocation = "eu"
	HostingUS HostingLocation = "us"
)

// Valid reports whether h is a known hosting location.
func (h HostingLocation) Valid() bool {
	return h == HostingEU || h == HostingUS
}

// PriceUnit is the number of tokens a price rate refers to.
type PriceUnit string

const (
	PerThousand PriceUnit = "per_thousand"
	PerMillion  PriceUnit = "per_million"
)

// Tokens returns the conversion factor for the unit. Anything other than
// PerMillion is priced per thousand tokens.
func (u PriceUnit) Tokens() float64 {
	if u == PerMillion {
		return 1_000_000
	}
	return 1_000
}

// Valid reports whether u is a known price unit.
func (u PriceUnit) Valid() bool {
	return u == PerThousand || u == PerMillion
}

// Price is the raw provider cost in the reference currency per Unit tokens.
type Price struct {
	InputRate  float64   `yaml:"input_rate"`
	OutputRate float64   `yaml:"output_rate"`
	Unit       PriceUnit `yaml:"unit"`
}

// InputPerToken returns the input cost of a single token.
func (p Price) InputPerToken() float64 {
	return p.InputRate / p.Unit.Tokens()
}

// OutputPerToken returns the output cost of a single token.
func (p Price) OutputPerToken() float64 {
	return p.OutputRate / p.Unit.Tokens()
}

// Backend names the deployment a model is served from. Endpoint and
// credentials are environment specific and resolved from configuration.
type Backend struct {
	Name          string `yaml:"name"`
	Deployment    string `yaml:"deployment,omitempty"`
	APIVersion    string `yaml:"api_version,omitempty"`
	AllowMetadata bool   `yaml:"allow_metadata,omitempty"`
}

// CompletionOptions holds per-model overrides for the completion call.
type CompletionOptions struct {
	TimeoutSeconds int            `yaml:"timeout_seconds,omitempty"`
	Extra          map[string]any `yaml:"extra,omitempty"`
}

// Timeout returns the configured request timeout, or zero when unset.
func (o *CompletionOptions) Timeout() time.Duration {
	if o == nil || o.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// Model is one catalogued LLM backend. Entries are immutable once loaded
// and their Key is persisted elsewhere, so keys are never renamed or
// removed; retired models are flagged Deprecated instead.
type Model struct {
	Key                  string             `yaml:"key"`
	DisplayName          string             `yaml:"display_name"`
	Provider             string             `yaml:"provider"`
	InfoURL              string             `yaml:"info_url,omitempty"`
	Hosting              HostingLocation    `yaml:"hosting"`
	Quality              int                `yaml:"quality"`
	Speed                int                `yaml:"speed"`
	AllowChat            bool               `yaml:"allow_chat"`
	CitationsSupported   *bool              `yaml:"citations_supported,omitempty"`
	Capabilities         []string           `yaml:"capabilities"`
	ContextWindow        int                `yaml:"context_window"`
	MaxOutputTokens      int                `yaml:"max_output_tokens"`
	Price                Price              `yaml:"price"`
	Backend              Backend            `yaml:"backend"`
	CompletionOptions    *CompletionOptions `yaml:"completion_options,omitempty"`
	IncludeInHealthCheck *bool              `yaml:"include_in_health_check,omitempty"`
	Deprecated           bool               `yaml:"deprecated,omitempty"`
}

// HealthChecked reports whether the model takes part in liveness checks.
// Defaults to true when unset.
func (m Model) HealthChecked() bool {
	return m.IncludeInHealthCheck == nil || *m.IncludeInHealthCheck
}

// SupportsCitations reports whether the backend returns citations.
func (m Model) SupportsCitations() bool {
	return m.CitationsSupported != nil && *m.CitationsSupported
}
