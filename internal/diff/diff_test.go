package diff

import (
	"math"
	"strings"
	"testing"

	"github.com/everstacklabs/modelmeter/internal/registry"
)

func entry(key string) registry.Model {
	return registry.Model{
		Key:             key,
		DisplayName:     strings.ToUpper(key),
		Provider:        "OpenAI",
		Hosting:         registry.HostingEU,
		Quality:         3,
		Speed:           3,
		AllowChat:       true,
		Capabilities:    []string{"chat", "vision"},
		ContextWindow:   128000,
		MaxOutputTokens: 16384,
		Price:           registry.Price{InputRate: 2.5, OutputRate: 10, Unit: registry.PerMillion},
		Backend:         registry.Backend{Name: "azure-eu", Deployment: key},
	}
}

func build(t *testing.T, version string, models ...registry.Model) *registry.Registry {
	t.Helper()
	reg, err := registry.New(registry.Document{Version: version, FallbackModel: models[0].Key, Models: models})
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}
	return reg
}

func hasChange(u ModelUpdate, field string) bool {
	for _, c := range u.Changes {
		if c.Field == field {
			return true
		}
	}
	return false
}

func TestNewModelDetected(t *testing.T) {
	old := build(t, "1.0.0", entry("gpt-4o"))
	cur := build(t, "1.0.0", entry("gpt-4o"), func() registry.Model {
		m := entry("gpt-5")
		m.Provider = "Other"
		return m
	}())

	cs := Compute(old, cur, DiffOptions{})

	if len(cs.New) != 1 {
		t.Fatalf("expected 1 new model, got %d", len(cs.New))
	}
	if cs.New[0].Key != "gpt-5" {
		t.Errorf("expected new model gpt-5, got %s", cs.New[0].Key)
	}
	if cs.Unchanged != 1 {
		t.Errorf("expected 1 unchanged, got %d", cs.Unchanged)
	}
	if len(cs.Violations()) != 0 {
		t.Errorf("adding a model is not a violation: %v", cs.Violations())
	}
}

func TestUpdatedModelDetected(t *testing.T) {
	updated := entry("gpt-4o")
	updated.Price.InputRate = 3
	updated.ContextWindow = 256000
	updated.Deprecated = true

	cs := Compute(build(t, "1.0.0", entry("gpt-4o")), build(t, "1.0.0", updated), DiffOptions{})

	if len(cs.Updated) != 1 {
		t.Fatalf("expected 1 updated, got %d", len(cs.Updated))
	}
	u := cs.Updated[0]
	for _, field := range []string{"price.input_per_token", "context_window", "deprecated"} {
		if !hasChange(u, field) {
			t.Errorf("expected %s change, got %v", field, u.Changes)
		}
	}
	if hasChange(u, "price.output_per_token") {
		t.Error("output price did not change")
	}
	if got := cs.Deprecated(); len(got) != 1 || got[0] != "gpt-4o" {
		t.Errorf("Deprecated() = %v", got)
	}
}

func TestUnitChangeAloneIsNotAPriceChange(t *testing.T) {
	perThousand := entry("gpt-4o")
	perThousand.Price = registry.Price{InputRate: 0.0025, OutputRate: 0.01, Unit: registry.PerThousand}

	cs := Compute(build(t, "1.0.0", entry("gpt-4o")), build(t, "1.0.0", perThousand), DiffOptions{})

	if len(cs.Updated) != 0 {
		t.Errorf("expected no updates for an equivalent price, got %v", cs.Updated)
	}
}

func TestDisplayNameChangeIgnored(t *testing.T) {
	renamed := entry("gpt-4o")
	renamed.DisplayName = "GPT 4o Different"

	cs := Compute(build(t, "1.0.0", entry("gpt-4o")), build(t, "1.0.0", renamed), DiffOptions{})

	if len(cs.Updated) != 0 {
		t.Errorf("expected 0 updates (display_name-only changes ignored), got %d", len(cs.Updated))
	}
	if cs.Unchanged != 1 {
		t.Errorf("expected 1 unchanged, got %d", cs.Unchanged)
	}
}

func TestDisplayNameChangeTracked(t *testing.T) {
	renamed := entry("gpt-4o")
	renamed.DisplayName = "GPT 4o Different"

	cs := Compute(build(t, "1.0.0", entry("gpt-4o")), build(t, "1.0.0", renamed), DiffOptions{TrackDisplayName: true})

	if len(cs.Updated) != 1 {
		t.Fatalf("expected 1 update with TrackDisplayName, got %d", len(cs.Updated))
	}
	if !hasChange(cs.Updated[0], "display_name") {
		t.Error("expected display_name change")
	}
}

func TestCapabilitiesOrderIgnored(t *testing.T) {
	reordered := entry("gpt-4o")
	reordered.Capabilities = []string{"vision", "chat"}

	cs := Compute(build(t, "1.0.0", entry("gpt-4o")), build(t, "1.0.0", reordered), DiffOptions{})
	if len(cs.Updated) != 0 {
		t.Errorf("capability order should not matter, got %v", cs.Updated)
	}

	removed := entry("gpt-4o")
	removed.Capabilities = []string{"chat"}
	cs = Compute(build(t, "1.0.0", entry("gpt-4o")), build(t, "1.0.0", removed), DiffOptions{})
	if len(cs.Updated) != 1 || !hasChange(cs.Updated[0], "capabilities") {
		t.Errorf("expected capabilities change for a removal, got %v", cs.Updated)
	}
}

func TestRemovedModelIsViolation(t *testing.T) {
	legacy := entry("legacy")
	legacy.Provider = "Acme"

	cs := Compute(build(t, "1.0.0", entry("gpt-4o"), legacy), build(t, "1.0.0", entry("gpt-4o")), DiffOptions{})

	if len(cs.Removed) != 1 || cs.Removed[0].Key != "legacy" {
		t.Fatalf("expected legacy removed, got %v", cs.Removed)
	}
	if len(cs.Violations()) != 1 {
		t.Errorf("expected 1 violation, got %v", cs.Violations())
	}
	if !cs.HasChanges() {
		t.Error("removal should count as a change")
	}
}

func TestRenameDetected(t *testing.T) {
	renamed := entry("gpt-4o-2")
	renamed.ContextWindow = 130000

	cs := Compute(build(t, "1.0.0", entry("gpt-4o")), build(t, "1.0.0", renamed), DiffOptions{})

	if len(cs.PossibleRenames) != 1 {
		t.Fatalf("expected 1 possible rename, got %d", len(cs.PossibleRenames))
	}
	rp := cs.PossibleRenames[0]
	if rp.OldKey != "gpt-4o" || rp.NewKey != "gpt-4o-2" {
		t.Errorf("unexpected rename pair: %+v", rp)
	}
	if len(cs.Removed) != 0 {
		t.Errorf("renamed key should not also be listed as removed: %v", cs.Removed)
	}
	if len(cs.Violations()) != 1 {
		t.Errorf("a rename is a violation: %v", cs.Violations())
	}
}

func TestRenameNotDetectedForDifferentPrice(t *testing.T) {
	different := entry("gpt-4o-2")
	different.Price.InputRate = 10

	cs := Compute(build(t, "1.0.0", entry("gpt-4o")), build(t, "1.0.0", different), DiffOptions{})

	if len(cs.PossibleRenames) != 0 {
		t.Errorf("expected no renames, got %v", cs.PossibleRenames)
	}
	if len(cs.Removed) != 1 {
		t.Errorf("expected 1 removed, got %d", len(cs.Removed))
	}
}

func TestEmbeddedCatalogAgainstItself(t *testing.T) {
	reg, err := registry.Default()
	if err != nil {
		t.Fatal(err)
	}
	cs := Compute(reg, reg, DiffOptions{TrackDisplayName: true})
	if cs.HasChanges() {
		t.Errorf("identical catalogues should not differ: %s", RenderDiffSummary(cs))
	}
	if cs.Unchanged != reg.Len() {
		t.Errorf("unchanged = %d, want %d", cs.Unchanged, reg.Len())
	}
}

func TestPriceDelta(t *testing.T) {
	tests := []struct {
		name   string
		change registry.FieldChange
		want   float64
		ok     bool
	}{
		{"doubled", registry.FieldChange{Field: "price.input_per_token", OldValue: 1e-6, NewValue: 2e-6}, 1, true},
		{"halved", registry.FieldChange{Field: "price.output_per_token", OldValue: 2e-6, NewValue: 1e-6}, -0.5, true},
		{"from zero", registry.FieldChange{Field: "price.input_per_token", OldValue: 0.0, NewValue: 1e-6}, math.Inf(1), true},
		{"zero to zero", registry.FieldChange{Field: "price.input_per_token", OldValue: 0.0, NewValue: 0.0}, 0, false},
		{"not a price", registry.FieldChange{Field: "context_window", OldValue: 1, NewValue: 2}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PriceDelta(tt.change)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if math.IsInf(tt.want, 1) {
				if !math.IsInf(got, 1) {
					t.Errorf("delta = %g, want +Inf", got)
				}
				return
			}
			if ok && (got-tt.want > 1e-9 || tt.want-got > 1e-9) {
				t.Errorf("delta = %g, want %g", got, tt.want)
			}
		})
	}
}

func TestRenderPRBody(t *testing.T) {
	updated := entry("gpt-4o")
	updated.Price.InputRate = 3
	cs := Compute(build(t, "1.0.0", entry("gpt-4o")), build(t, "1.1.0", updated, func() registry.Model {
		m := entry("o3")
		m.Provider = "Other"
		return m
	}()), DiffOptions{})

	body := RenderPRBody(cs)
	for _, want := range []string{"`1.0.0` → `1.1.0`", "### New models", "`o3`", "### Updated models", "price.input_per_token"} {
		if !strings.Contains(body, want) {
			t.Errorf("PR body missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "violations") {
		t.Error("no violations expected")
	}

	summary := RenderDiffSummary(cs)
	if !strings.Contains(summary, "+ o3") || !strings.Contains(summary, "~ gpt-4o") {
		t.Errorf("unexpected summary:\n%s", summary)
	}
}
