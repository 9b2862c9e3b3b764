package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/everstacklabs/modelmeter/internal/config"
	"github.com/everstacklabs/modelmeter/internal/credits"
	"github.com/everstacklabs/modelmeter/internal/registry"
	"github.com/everstacklabs/modelmeter/internal/selection"
	"github.com/everstacklabs/modelmeter/internal/validate"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "modelmeter",
		Short:         "LLM model routing and credit metering",
		Long:          "Resolves model selections against organization policy and prices generations in credits.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	rootCmd.AddCommand(
		modelsCmd(),
		resolveCmd(),
		estimateCmd(),
		warnCmd(),
		healthcheckCmd(),
		diffCmd(),
		releaseCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// env is what every command needs: configuration, the catalogue and the
// organization policy checked against it.
type env struct {
	cfg       *config.Config
	reg       *registry.Registry
	policy    selection.Policy
	estimator *credits.Estimator
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	setupLogging(cfg.LogLevel)
	return cfg, nil
}

func loadEnv() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	reg, err := loadRegistry(cfg.Registry.Path)
	if err != nil {
		return nil, err
	}

	policy := cfg.Organization
	if len(policy.EnabledModels) == 0 {
		policy.EnabledModels = reg.DefaultEnabledModels()
	}
	if err := policy.Validate(reg); err != nil {
		return nil, fmt.Errorf("organization policy: %w", err)
	}

	est, err := credits.NewEstimator(reg, cfg.Credits)
	if err != nil {
		return nil, err
	}

	return &env{cfg: cfg, reg: reg, policy: policy, estimator: est}, nil
}

// loadRegistry loads the catalogue at path, or the embedded one, and
// refuses to serve it when validation finds errors.
func loadRegistry(path string) (*registry.Registry, error) {
	var (
		reg *registry.Registry
		err error
	)
	if path == "" {
		reg, err = registry.Default()
	} else {
		reg, err = registry.LoadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	result := validate.ValidateRegistry(reg)
	for _, w := range result.Warnings() {
		slog.Warn("catalog warning", "model", w.Model, "field", w.Field, "message", w.Message)
	}
	if result.HasErrors() {
		return nil, fmt.Errorf("catalog is invalid:\n%s", validate.FormatResult(result))
	}

	slog.Debug("catalog loaded", "version", reg.Version(), "models", reg.Len())
	return reg, nil
}

func setupLogging(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}
