package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/everstacklabs/modelmeter/internal/credits"
	"github.com/everstacklabs/modelmeter/internal/selection"
	"github.com/everstacklabs/modelmeter/internal/warning"
	"github.com/spf13/viper"
)

// Config holds all configuration for modelmeter.
type Config struct {
	Environment  string                   `mapstructure:"environment"`
	LogLevel     string                   `mapstructure:"log_level"`
	Registry     RegistryConfig           `mapstructure:"registry"`
	Credits      credits.Config           `mapstructure:"credits"`
	Warnings     warning.Thresholds       `mapstructure:"warnings"`
	Organization selection.Policy         `mapstructure:"organization"`
	Backends     map[string]BackendConfig `mapstructure:"backends"`
	HealthCheck  HealthCheckConfig        `mapstructure:"healthcheck"`
	Release      ReleaseConfig            `mapstructure:"release"`
	GitHub       GitHubConfig             `mapstructure:"github"`
}

// RegistryConfig points at the catalogue. An empty Path uses the embedded one.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// BackendConfig is the connection for one backend name in the catalogue.
// Environments overrides fields per deployment environment.
type BackendConfig struct {
	Endpoint     string                     `mapstructure:"endpoint"`
	APIKey       string                     `mapstructure:"api_key"`
	Environments map[string]BackendOverride `mapstructure:"environments"`
}

// BackendOverride replaces the non-empty fields of a BackendConfig.
type BackendOverride struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
}

// HealthCheckConfig holds backend liveness probe settings.
type HealthCheckConfig struct {
	Concurrency       int           `mapstructure:"concurrency"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Timeout           time.Duration `mapstructure:"timeout"`
	Path              string        `mapstructure:"path"`
}

// ReleaseConfig holds catalogue release settings.
type ReleaseConfig struct {
	CatalogPath  string `mapstructure:"catalog_path"`
	SnapshotPath string `mapstructure:"snapshot_path"`
	DryRun       bool   `mapstructure:"dry_run"`
}

// GitHubConfig holds GitHub-related settings.
type GitHubConfig struct {
	Token      string `mapstructure:"token"`
	Owner      string `mapstructure:"owner"`
	Repo       string `mapstructure:"repo"`
	BaseBranch string `mapstructure:"base_branch"`
}

// Load reads configuration from file, environment, and defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("environment", "production")
	v.SetDefault("log_level", "info")
	v.SetDefault("registry.path", "")
	v.SetDefault("credits.credits_per_currency_unit", 100.0)
	v.SetDefault("credits.margin_factor", 1.20)
	v.SetDefault("warnings.message_threshold", 10.0)
	v.SetDefault("warnings.chat_threshold", 50.0)
	v.SetDefault("organization.default_model", "gpt-4o-mini")
	v.SetDefault("organization.eu_only", false)
	v.SetDefault("healthcheck.concurrency", 4)
	v.SetDefault("healthcheck.requests_per_second", 2.0)
	v.SetDefault("healthcheck.timeout", "30s")
	v.SetDefault("healthcheck.path", "/models")
	v.SetDefault("release.catalog_path", "internal/registry/models.yaml")
	v.SetDefault("release.snapshot_path", "internal/registry/released/models.yaml")
	v.SetDefault("release.dry_run", false)
	v.SetDefault("github.base_branch", "main")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(UserConfigDir())
	}

	// Environment variables
	v.SetEnvPrefix("MODELMETER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind specific env vars
	_ = v.BindEnv("github.token", "GITHUB_TOKEN", "MODELMETER_GITHUB_TOKEN")
	_ = v.BindEnv("organization.enabled_models", "MODELMETER_ORGANIZATION_ENABLED_MODELS")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Resolve catalogue paths to absolute
	for _, p := range []*string{&cfg.Registry.Path, &cfg.Release.CatalogPath, &cfg.Release.SnapshotPath} {
		if *p == "" || filepath.IsAbs(*p) {
			continue
		}
		abs, err := filepath.Abs(*p)
		if err != nil {
			return nil, fmt.Errorf("resolving path %s: %w", *p, err)
		}
		*p = abs
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks numeric settings are sane.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Credits.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("credits: %w", err))
	}
	if err := c.Warnings.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("warnings: %w", err))
	}
	if c.HealthCheck.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("healthcheck.concurrency must be >= 1, got %d", c.HealthCheck.Concurrency))
	}
	if c.HealthCheck.RequestsPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("healthcheck.requests_per_second must be > 0, got %g", c.HealthCheck.RequestsPerSecond))
	}
	if c.HealthCheck.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("healthcheck.timeout must be > 0, got %s", c.HealthCheck.Timeout))
	}
	return errors.Join(errs...)
}

// UserConfigDir returns the directory searched for config.yaml.
func UserConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "modelmeter")
	}
	return filepath.Join(home, ".config", "modelmeter")
}
