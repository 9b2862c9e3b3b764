package validate

import (
	"fmt"
	"strings"

	"github.com/everstacklabs/modelmeter/internal/registry"
)

// Severity classifies validation issues.
type Severity int

const (
	SeverityError   Severity = iota // Refuses to serve the catalogue
	SeverityWarning                 // Reported but doesn't block
)

// Issue represents a single validation problem.
type Issue struct {
	Severity Severity
	Model    string
	Field    string
	Message  string
}

func (i Issue) String() string {
	sev := "ERROR"
	if i.Severity == SeverityWarning {
		sev = "WARN"
	}
	return fmt.Sprintf("[%s] %s: %s: %s", sev, i.Model, i.Field, i.Message)
}

// Result holds all validation issues.
type Result struct {
	Issues []Issue
}

// HasErrors returns true if there are any blocking errors.
func (r *Result) HasErrors() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only error-severity issues.
func (r *Result) Errors() []Issue {
	var errs []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			errs = append(errs, i)
		}
	}
	return errs
}

// Warnings returns only warning-severity issues.
func (r *Result) Warnings() []Issue {
	var warns []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityWarning {
			warns = append(warns, i)
		}
	}
	return warns
}

// Known capability tags (warn on unknown, don't block).
var knownCapabilities = map[string]bool{
	"chat":             true,
	"function_calling": true,
	"vision":           true,
	"streaming":        true,
	"reasoning":        true,
	"coding":           true,
	"long_context":     true,
	"multilingual":     true,
	"web_search":       true,
	"deep_research":    true,
}

// Per-token price ceiling: 100 currency units per million tokens.
const maxPricePerToken = 100.0 / 1_000_000

// ValidateModel checks a single catalogue entry.
func ValidateModel(m registry.Model) *Result {
	r := &Result{}
	name := m.Key
	if name == "" {
		name = "<unnamed>"
	}

	// Required fields
	if m.Key == "" {
		r.Issues = append(r.Issues, Issue{SeverityError, name, "key", "required field is empty"})
	}
	if m.DisplayName == "" {
		r.Issues = append(r.Issues, Issue{SeverityError, name, "display_name", "required field is empty"})
	}
	if m.Provider == "" {
		r.Issues = append(r.Issues, Issue{SeverityError, name, "provider", "required field is empty"})
	}
	if m.Backend.Name == "" {
		r.Issues = append(r.Issues, Issue{SeverityError, name, "backend.name", "required field is empty"})
	}
	if m.ContextWindow == 0 {
		r.Issues = append(r.Issues, Issue{SeverityError, name, "context_window", "required field is zero"})
	}

	// Enums
	if !m.Hosting.Valid() {
		r.Issues = append(r.Issues, Issue{SeverityError, name, "hosting",
			fmt.Sprintf("unknown hosting %q, expected one of: eu, us", m.Hosting)})
	}
	if !m.Price.Unit.Valid() {
		r.Issues = append(r.Issues, Issue{SeverityError, name, "price.unit",
			fmt.Sprintf("unknown unit %q, expected one of: per_thousand, per_million", m.Price.Unit)})
	}

	// Ratings are presentation only but the UI assumes 1..5
	if m.Quality < 1 || m.Quality > 5 {
		r.Issues = append(r.Issues, Issue{SeverityError, name, "quality",
			fmt.Sprintf("value %d outside expected range [1, 5]", m.Quality)})
	}
	if m.Speed < 1 || m.Speed > 5 {
		r.Issues = append(r.Issues, Issue{SeverityError, name, "speed",
			fmt.Sprintf("value %d outside expected range [1, 5]", m.Speed)})
	}

	// Pricing sanity, normalised to a single token
	if m.Price.Unit.Valid() {
		if in := m.Price.InputPerToken(); in < 0 || in > maxPricePerToken {
			r.Issues = append(r.Issues, Issue{SeverityError, name, "price.input_rate",
				fmt.Sprintf("value %g %s outside expected range", m.Price.InputRate, m.Price.Unit)})
		}
		if out := m.Price.OutputPerToken(); out < 0 || out > maxPricePerToken {
			r.Issues = append(r.Issues, Issue{SeverityError, name, "price.output_rate",
				fmt.Sprintf("value %g %s outside expected range", m.Price.OutputRate, m.Price.Unit)})
		}
		if m.Price.OutputRate == 0 {
			r.Issues = append(r.Issues, Issue{SeverityWarning, name, "price.output_rate",
				"model has zero output cost"})
		}
	}

	// Limits sanity
	if m.ContextWindow > 0 && (m.ContextWindow < 1024 || m.ContextWindow > 2_000_000) {
		r.Issues = append(r.Issues, Issue{SeverityError, name, "context_window",
			fmt.Sprintf("value %d outside expected range [1024, 2000000]", m.ContextWindow)})
	}
	if m.MaxOutputTokens < 0 {
		r.Issues = append(r.Issues, Issue{SeverityError, name, "max_output_tokens", "value is negative"})
	}
	if m.MaxOutputTokens > 0 && m.MaxOutputTokens > m.ContextWindow {
		r.Issues = append(r.Issues, Issue{SeverityError, name, "max_output_tokens",
			fmt.Sprintf("value %d exceeds context_window %d", m.MaxOutputTokens, m.ContextWindow)})
	}
	if m.CompletionOptions != nil && m.CompletionOptions.TimeoutSeconds < 0 {
		r.Issues = append(r.Issues, Issue{SeverityError, name, "completion_options.timeout_seconds", "value is negative"})
	}

	// Capability taxonomy
	for _, c := range m.Capabilities {
		if !knownCapabilities[c] {
			r.Issues = append(r.Issues, Issue{SeverityWarning, name, "capabilities",
				fmt.Sprintf("unknown capability %q", c)})
		}
	}

	return r
}

// ValidateRegistry validates every entry and the default allow-list.
func ValidateRegistry(reg *registry.Registry) *Result {
	r := &Result{}
	for _, m := range reg.List() {
		r.Issues = append(r.Issues, ValidateModel(m).Issues...)
	}

	for _, key := range reg.DefaultEnabledModels() {
		m, err := reg.Entry(key)
		if err != nil {
			r.Issues = append(r.Issues, Issue{SeverityError, key, "default_enabled", err.Error()})
			continue
		}
		if m.Deprecated {
			r.Issues = append(r.Issues, Issue{SeverityError, key, "default_enabled",
				"deprecated model must not be enabled for new organizations"})
		}
		if !m.AllowChat {
			r.Issues = append(r.Issues, Issue{SeverityWarning, key, "default_enabled",
				"generation-only model is enabled for new organizations"})
		}
	}

	if fb, err := reg.Entry(reg.FallbackKey()); err == nil && (!fb.AllowChat || fb.Deprecated) {
		r.Issues = append(r.Issues, Issue{SeverityError, fb.Key, "fallback_model",
			"fallback must be an active chat-capable model"})
	}

	return r
}

// FormatResult formats validation results for display.
func FormatResult(r *Result) string {
	if len(r.Issues) == 0 {
		return "Validation passed: no issues found."
	}

	var b strings.Builder
	errors := r.Errors()
	warnings := r.Warnings()

	if len(errors) > 0 {
		b.WriteString(fmt.Sprintf("Errors (%d):\n", len(errors)))
		for _, e := range errors {
			b.WriteString(fmt.Sprintf("  %s\n", e))
		}
	}

	if len(warnings) > 0 {
		b.WriteString(fmt.Sprintf("Warnings (%d):\n", len(warnings)))
		for _, w := range warnings {
			b.WriteString(fmt.Sprintf("  %s\n", w))
		}
	}

	return b.String()
}
