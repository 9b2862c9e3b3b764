package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/everstacklabs/modelmeter/internal/backend"
	"github.com/everstacklabs/modelmeter/internal/diff"
	"github.com/everstacklabs/modelmeter/internal/healthcheck"
	"github.com/everstacklabs/modelmeter/internal/httpclient"
	"github.com/everstacklabs/modelmeter/internal/registry"
	"github.com/everstacklabs/modelmeter/internal/release"
)

func healthcheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe the backend of every health-checked model",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			hc := e.cfg.HealthCheck

			client := httpclient.New(
				httpclient.WithRateLimit(hc.RequestsPerSecond),
				httpclient.WithTimeout(hc.Timeout),
			)
			checker := healthcheck.New(client, backend.NewResolver(e.cfg.Environment, e.cfg.Backends), healthcheck.Options{
				Concurrency: hc.Concurrency,
				Timeout:     hc.Timeout,
				Path:        hc.Path,
			})

			var filters []registry.Filter
			if all, _ := cmd.Flags().GetBool("all"); !all {
				filters = append(filters, registry.Active)
			}
			results := checker.Run(cmd.Context(), e.reg.List(filters...))

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tBACKEND\tSTATUS\tLATENCY\tERROR")
			for _, r := range results {
				latency := "-"
				if r.Status == healthcheck.StatusOK {
					latency = r.Latency.String()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Key, r.Backend, statusString(r.Status), latency, r.Error)
			}
			w.Flush()

			if !healthcheck.Healthy(results) {
				os.Exit(release.ExitUnhealthy)
			}
			return nil
		},
	}

	cmd.Flags().Bool("all", false, "Include deprecated models")

	return cmd
}

func statusString(s healthcheck.Status) string {
	switch s {
	case healthcheck.StatusOK:
		return color.GreenString(string(s))
	case healthcheck.StatusFailed:
		return color.RedString(string(s))
	default:
		return color.YellowString(string(s))
	}
}

func diffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Show how the working catalogue differs from the released snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			cs, err := release.New(cfg).Diff()
			if err != nil {
				return err
			}

			fmt.Print(diff.RenderDiffSummary(cs))
			for _, v := range cs.Violations() {
				fmt.Printf("%s %s\n", color.RedString("VIOLATION:"), v)
			}

			if cs.HasChanges() {
				os.Exit(release.ExitChanges)
			}
			return nil
		},
	}
}

func releaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Release the working catalogue: diff → validate → bump → snapshot → PR",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
				cfg.Release.DryRun = true
			}

			result, err := release.New(cfg).Release(cmd.Context())
			if err != nil {
				return err
			}

			switch {
			case result.Blocked:
				fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("release blocked:"), result.Reason)
				os.Exit(release.ExitPolicyBlock)
			case result.Skipped:
				fmt.Printf("nothing to release: %s\n", result.Reason)
			case cfg.Release.DryRun:
				fmt.Print(diff.RenderDiffSummary(result.ChangeSet))
				fmt.Printf("dry run: would release (draft=%t)\n", result.PRDraft)
			case result.PRNumber > 0:
				fmt.Printf("released %s in PR #%d (draft=%t)\n", result.NewVersion, result.PRNumber, result.PRDraft)
			default:
				fmt.Printf("released %s\n", result.NewVersion)
			}
			return nil
		},
	}

	cmd.Flags().Bool("dry-run", false, "Show what would change without writing")

	return cmd
}
