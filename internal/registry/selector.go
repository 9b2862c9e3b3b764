package registry

import "log/slog"

// DefaultFallbackKey is used when a catalogue does not name a fallback.
const DefaultFallbackKey = "gpt-4o-mini"

// Automatic defers model choice to the organization default at send time.
const Automatic Selector = "automatic"

// Selector is the model choice stored on a chat or message: either
// Automatic or a model key.
type Selector string

// IsAutomatic reports whether s defers to organization policy.
func (s Selector) IsAutomatic() bool { return s == Automatic }

// Key returns the concrete model key, or "" for Automatic.
func (s Selector) Key() string {
	if s.IsAutomatic() {
		return ""
	}
	return string(s)
}

// TryParseKey returns raw if it is a catalogued key.
func (r *Registry) TryParseKey(raw string) (string, bool) {
	if r.IsValidKey(raw) {
		return raw, true
	}
	return "", false
}

// ParseKey returns raw if it is a catalogued key and the fallback key
// otherwise. Substitutions are logged.
func (r *Registry) ParseKey(raw string) string {
	if key, ok := r.TryParseKey(raw); ok {
		return key
	}
	slog.Warn("invalid model key, using fallback", "input", raw, "fallback", r.fallback)
	return r.fallback
}

// TryParseSelector accepts "automatic" or a catalogued key.
func (r *Registry) TryParseSelector(raw string) (Selector, bool) {
	if Selector(raw) == Automatic {
		return Automatic, true
	}
	if key, ok := r.TryParseKey(raw); ok {
		return Selector(key), true
	}
	return "", false
}

// ParseSelector is TryParseSelector with the fallback key substituted for
// anything unrecognised. Every external model choice should pass through
// here before reaching selection or pricing.
func (r *Registry) ParseSelector(raw string) Selector {
	if sel, ok := r.TryParseSelector(raw); ok {
		return sel
	}
	slog.Warn("invalid model selector, using fallback", "input", raw, "fallback", r.fallback)
	return Selector(r.fallback)
}
