package diff

import (
	"math"
	"slices"

	"github.com/everstacklabs/modelmeter/internal/registry"
)

// DiffOptions controls diff behavior.
type DiffOptions struct {
	// TrackDisplayName enables reporting presentation-only changes
	// (display_name, info_url, quality, speed).
	TrackDisplayName bool
}

// Compute compares a released catalogue against a working one.
func Compute(old, cur *registry.Registry, opts DiffOptions) *ChangeSet {
	cs := &ChangeSet{OldVersion: old.Version(), NewVersion: cur.Version()}

	for _, m := range cur.List() {
		existing, err := old.Entry(m.Key)
		if err != nil {
			cs.New = append(cs.New, ModelChange{Key: m.Key, Model: m})
			continue
		}

		changes := computeFieldChanges(existing, m, opts)
		if len(changes) > 0 {
			cs.Updated = append(cs.Updated, ModelUpdate{Key: m.Key, Model: m, Changes: changes})
		} else {
			cs.Unchanged++
		}
	}

	var disappeared []ModelChange
	for _, m := range old.List() {
		if !cur.IsValidKey(m.Key) {
			disappeared = append(disappeared, ModelChange{Key: m.Key, Model: m})
		}
	}

	// Try to match disappeared with new models (rename detection)
	cs.PossibleRenames = detectRenames(cs.New, disappeared)

	renamed := make(map[string]bool)
	for _, rp := range cs.PossibleRenames {
		renamed[rp.OldKey] = true
	}
	for _, mc := range disappeared {
		if !renamed[mc.Key] {
			cs.Removed = append(cs.Removed, mc)
		}
	}

	return cs
}

func computeFieldChanges(existing, m registry.Model, opts DiffOptions) []registry.FieldChange {
	var changes []registry.FieldChange
	add := func(field string, oldValue, newValue any) {
		changes = append(changes, registry.FieldChange{Field: field, OldValue: oldValue, NewValue: newValue})
	}

	if opts.TrackDisplayName {
		if existing.DisplayName != m.DisplayName {
			add("display_name", existing.DisplayName, m.DisplayName)
		}
		if existing.InfoURL != m.InfoURL {
			add("info_url", existing.InfoURL, m.InfoURL)
		}
		if existing.Quality != m.Quality {
			add("quality", existing.Quality, m.Quality)
		}
		if existing.Speed != m.Speed {
			add("speed", existing.Speed, m.Speed)
		}
	}

	if existing.Provider != m.Provider {
		add("provider", existing.Provider, m.Provider)
	}
	if existing.Hosting != m.Hosting {
		add("hosting", string(existing.Hosting), string(m.Hosting))
	}
	if existing.AllowChat != m.AllowChat {
		add("allow_chat", existing.AllowChat, m.AllowChat)
	}
	if existing.Deprecated != m.Deprecated {
		add("deprecated", existing.Deprecated, m.Deprecated)
	}
	if existing.HealthChecked() != m.HealthChecked() {
		add("include_in_health_check", existing.HealthChecked(), m.HealthChecked())
	}

	// Price: compare per token so a unit change alone is not a price change.
	if in, newIn := existing.Price.InputPerToken(), m.Price.InputPerToken(); in != newIn {
		add("price.input_per_token", in, newIn)
	}
	if out, newOut := existing.Price.OutputPerToken(), m.Price.OutputPerToken(); out != newOut {
		add("price.output_per_token", out, newOut)
	}

	if existing.ContextWindow != m.ContextWindow {
		add("context_window", existing.ContextWindow, m.ContextWindow)
	}
	if existing.MaxOutputTokens != m.MaxOutputTokens {
		add("max_output_tokens", existing.MaxOutputTokens, m.MaxOutputTokens)
	}
	if existing.CompletionOptions.Timeout() != m.CompletionOptions.Timeout() {
		add("completion_options.timeout_seconds", existing.CompletionOptions.Timeout().Seconds(), m.CompletionOptions.Timeout().Seconds())
	}
	if existing.Backend != m.Backend {
		add("backend", existing.Backend, m.Backend)
	}

	// Capabilities: symmetric set diff (detect both additions and removals).
	if !equalStringSets(existing.Capabilities, m.Capabilities) {
		add("capabilities", existing.Capabilities, m.Capabilities)
	}

	return changes
}

// equalStringSets compares two string slices ignoring order.
func equalStringSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := slices.Clone(a)
	sb := slices.Clone(b)
	slices.Sort(sa)
	slices.Sort(sb)
	return slices.Equal(sa, sb)
}

// detectRenames finds potential renames by matching disappeared + new models
// with the same provider and similar limits/price.
func detectRenames(newModels []ModelChange, disappeared []ModelChange) []RenamePair {
	var renames []RenamePair

	for _, newM := range newModels {
		for _, oldM := range disappeared {
			if newM.Model.Provider != oldM.Model.Provider || newM.Model.Provider == "" {
				continue
			}

			// Check context window similarity (within 10%)
			if oldM.Model.ContextWindow > 0 && newM.Model.ContextWindow > 0 {
				ratio := float64(newM.Model.ContextWindow) / float64(oldM.Model.ContextWindow)
				if math.Abs(ratio-1.0) > 0.1 {
					continue
				}
			}

			// Check price similarity (within 20%)
			if oldIn := oldM.Model.Price.InputPerToken(); oldIn > 0 {
				ratio := newM.Model.Price.InputPerToken() / oldIn
				if math.Abs(ratio-1.0) > 0.2 {
					continue
				}
			}

			renames = append(renames, RenamePair{
				OldKey: oldM.Key,
				NewKey: newM.Key,
				Reason: "same provider, similar limits/price",
			})
		}
	}

	return renames
}

// PriceDelta returns the relative change of a price field change, and false
// when c is not a price change. A free model becoming paid is +Inf.
func PriceDelta(c registry.FieldChange) (float64, bool) {
	if c.Field != "price.input_per_token" && c.Field != "price.output_per_token" {
		return 0, false
	}
	oldVal, okOld := c.OldValue.(float64)
	newVal, okNew := c.NewValue.(float64)
	if !okOld || !okNew || oldVal < 0 {
		return 0, false
	}
	if oldVal == 0 {
		if newVal > 0 {
			return math.Inf(1), true
		}
		return 0, false
	}
	return (newVal - oldVal) / oldVal, true
}
