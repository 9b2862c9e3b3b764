package registry

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var embeddedCatalog []byte

// Document is the on-disk catalogue layout.
type Document struct {
	Version        string   `yaml:"version"`
	FallbackModel  string   `yaml:"fallback_model"`
	DefaultEnabled []string `yaml:"default_enabled"`
	Models         []Model  `yaml:"models"`
}

// Registry is the immutable catalogue of models, keyed and ordered as in
// the source document. It is safe for concurrent use.
type Registry struct {
	version        string
	fallback       string
	order          []string
	entries        map[string]Model
	defaultEnabled []string
}

// Load parses and checks a catalogue document.
func Load(data []byte) (*Registry, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return New(doc)
}

// LoadFile reads a catalogue from disk.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	reg, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

var defaultRegistry = sync.OnceValues(func() (*Registry, error) {
	return Load(embeddedCatalog)
})

// Default returns the catalogue compiled into the binary.
func Default() (*Registry, error) {
	return defaultRegistry()
}

// New builds a Registry from a decoded document, enforcing key uniqueness
// and that every referenced key exists.
func New(doc Document) (*Registry, error) {
	if len(doc.Models) == 0 {
		return nil, errors.New("catalog has no models")
	}

	r := &Registry{
		version: doc.Version,
		order:   make([]string, 0, len(doc.Models)),
		entries: make(map[string]Model, len(doc.Models)),
	}

	for i, m := range doc.Models {
		if m.Key == "" {
			return nil, fmt.Errorf("model at index %d has no key", i)
		}
		if Selector(m.Key).IsAutomatic() {
			return nil, fmt.Errorf("model at index %d: key %q is reserved for the automatic selector", i, m.Key)
		}
		if _, dup := r.entries[m.Key]; dup {
			return nil, &DuplicateKeyError{Key: m.Key}
		}
		r.entries[m.Key] = m
		r.order = append(r.order, m.Key)
	}

	r.fallback = doc.FallbackModel
	if r.fallback == "" {
		r.fallback = DefaultFallbackKey
	}
	if _, ok := r.entries[r.fallback]; !ok {
		return nil, fmt.Errorf("fallback_model: %w", &UnknownModelError{Key: r.fallback})
	}

	seen := make(map[string]bool, len(doc.DefaultEnabled))
	for _, key := range doc.DefaultEnabled {
		if _, ok := r.entries[key]; !ok {
			return nil, fmt.Errorf("default_enabled: %w", &UnknownModelError{Key: key})
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		r.defaultEnabled = append(r.defaultEnabled, key)
	}

	return r, nil
}

// Version returns the catalogue version string.
func (r *Registry) Version() string { return r.version }

// FallbackKey returns the key invalid input is mapped to.
func (r *Registry) FallbackKey() string { return r.fallback }

// Len returns the number of catalogued models.
func (r *Registry) Len() int { return len(r.order) }

// Keys returns every model key in catalogue order.
func (r *Registry) Keys() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Entry returns the model for key.
func (r *Registry) Entry(key string) (Model, error) {
	m, ok := r.entries[key]
	if !ok {
		return Model{}, &UnknownModelError{Key: key}
	}
	return m, nil
}

// IsValidKey reports whether candidate names a catalogued model.
func (r *Registry) IsValidKey(candidate string) bool {
	_, ok := r.entries[candidate]
	return ok
}

// DefaultEnabledModels returns the keys enabled for newly provisioned
// organizations, in catalogue document order.
func (r *Registry) DefaultEnabledModels() []string {
	out := make([]string, len(r.defaultEnabled))
	copy(out, r.defaultEnabled)
	return out
}

// Filter selects models in List.
type Filter func(Model) bool

// List returns the models matching every filter, in catalogue order.
func (r *Registry) List(filters ...Filter) []Model {
	var out []Model
next:
	for _, key := range r.order {
		m := r.entries[key]
		for _, f := range filters {
			if !f(m) {
				continue next
			}
		}
		out = append(out, m)
	}
	return out
}

// ChatCapable keeps models usable for interactive chat.
func ChatCapable(m Model) bool { return m.AllowChat }

// Active keeps models that are not deprecated.
func Active(m Model) bool { return !m.Deprecated }

// HealthChecked keeps models included in liveness checks.
func HealthChecked(m Model) bool { return m.HealthChecked() }

// EnabledIn keeps models whose key is in keys.
func EnabledIn(keys []string) Filter {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return func(m Model) bool { return set[m.Key] }
}

// HostedIn keeps models hosted in loc.
func HostedIn(loc HostingLocation) Filter {
	return func(m Model) bool { return m.Hosting == loc }
}
