package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Credits.CreditsPerCurrencyUnit != 100 {
		t.Errorf("credits_per_currency_unit = %g, want 100", cfg.Credits.CreditsPerCurrencyUnit)
	}
	if cfg.Credits.MarginFactor != 1.20 {
		t.Errorf("margin_factor = %g, want 1.20", cfg.Credits.MarginFactor)
	}
	if cfg.Warnings.Message != 10 || cfg.Warnings.Chat != 50 {
		t.Errorf("thresholds = %+v, want 10/50", cfg.Warnings)
	}
	if cfg.Organization.DefaultModel != "gpt-4o-mini" {
		t.Errorf("default_model = %q", cfg.Organization.DefaultModel)
	}
	if cfg.HealthCheck.Timeout != 30*time.Second {
		t.Errorf("healthcheck.timeout = %s, want 30s", cfg.HealthCheck.Timeout)
	}
	if cfg.Registry.Path != "" {
		t.Errorf("registry.path = %q, want embedded catalogue", cfg.Registry.Path)
	}
	if !filepath.IsAbs(cfg.Release.CatalogPath) {
		t.Errorf("release.catalog_path should be absolute, got %q", cfg.Release.CatalogPath)
	}
}

func TestLoadFile(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "modelmeter.yaml")
	content := `environment: staging
credits:
  margin_factor: 1.5
organization:
  enabled_models: [gpt-4o, mistral-large]
  default_model: mistral-large
  eu_only: true
backends:
  azure-eu:
    endpoint: https://eu.example.com
    api_key: secret
    environments:
      staging:
        endpoint: https://staging.example.com
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Environment != "staging" {
		t.Errorf("environment = %q", cfg.Environment)
	}
	if cfg.Credits.MarginFactor != 1.5 {
		t.Errorf("margin_factor = %g, want 1.5", cfg.Credits.MarginFactor)
	}
	if cfg.Credits.CreditsPerCurrencyUnit != 100 {
		t.Errorf("credits_per_currency_unit should keep its default, got %g", cfg.Credits.CreditsPerCurrencyUnit)
	}
	if !cfg.Organization.EUOnly || cfg.Organization.DefaultModel != "mistral-large" {
		t.Errorf("organization = %+v", cfg.Organization)
	}
	if len(cfg.Organization.EnabledModels) != 2 {
		t.Errorf("enabled_models = %v", cfg.Organization.EnabledModels)
	}

	b, ok := cfg.Backends["azure-eu"]
	if !ok {
		t.Fatal("azure-eu backend missing")
	}
	if b.APIKey != "secret" {
		t.Errorf("api_key = %q", b.APIKey)
	}
	if b.Environments["staging"].Endpoint != "https://staging.example.com" {
		t.Errorf("staging override = %+v", b.Environments["staging"])
	}
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("MODELMETER_CREDITS_MARGIN_FACTOR", "1.35")
	t.Setenv("MODELMETER_WARNINGS_CHAT_THRESHOLD", "80")
	t.Setenv("GITHUB_TOKEN", "ghp_test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Credits.MarginFactor != 1.35 {
		t.Errorf("margin_factor = %g, want 1.35", cfg.Credits.MarginFactor)
	}
	if cfg.Warnings.Chat != 80 {
		t.Errorf("chat_threshold = %g, want 80", cfg.Warnings.Chat)
	}
	if cfg.GitHub.Token != "ghp_test" {
		t.Errorf("github.token = %q", cfg.GitHub.Token)
	}
}

func TestLoadRejectsInvalidNumbers(t *testing.T) {
	isolate(t)

	tests := []struct {
		name string
		env  string
		val  string
	}{
		{"margin not above 1", "MODELMETER_CREDITS_MARGIN_FACTOR", "1.0"},
		{"zero message threshold", "MODELMETER_WARNINGS_MESSAGE_THRESHOLD", "0"},
		{"zero concurrency", "MODELMETER_HEALTHCHECK_CONCURRENCY", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.val)
			if _, err := Load(""); err == nil {
				t.Errorf("expected error for %s=%s", tt.env, tt.val)
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}
