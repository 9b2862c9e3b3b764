package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/everstacklabs/modelmeter/internal/registry"
	"github.com/everstacklabs/modelmeter/internal/validate"
)

func modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect and maintain the model catalogue",
	}
	cmd.AddCommand(modelsListCmd(), modelsShowCmd(), modelsValidateCmd(), modelsDeprecateCmd())
	return cmd
}

func modelsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalogued models in catalogue order",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}

			var filters []registry.Filter
			if chat, _ := cmd.Flags().GetBool("chat"); chat {
				filters = append(filters, registry.ChatCapable)
			}
			if enabled, _ := cmd.Flags().GetBool("enabled"); enabled {
				filters = append(filters, registry.EnabledIn(e.policy.EnabledModels))
			}
			if all, _ := cmd.Flags().GetBool("all"); !all {
				filters = append(filters, registry.Active)
			}
			if hosting, _ := cmd.Flags().GetString("hosting"); hosting != "" {
				loc := registry.HostingLocation(hosting)
				if !loc.Valid() {
					return fmt.Errorf("unknown hosting %q, expected eu or us", hosting)
				}
				filters = append(filters, registry.HostedIn(loc))
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tPROVIDER\tHOSTING\tCHAT\tCONTEXT\tINPUT/1M\tOUTPUT/1M\tQUALITY\tSPEED")
			models := e.reg.List(filters...)
			for _, m := range models {
				key := m.Key
				if m.Deprecated {
					key += " (deprecated)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%d\t%.4f\t%.4f\t%d\t%d\n",
					key, m.Provider, m.Hosting, m.AllowChat, m.ContextWindow,
					m.Price.InputPerToken()*1_000_000, m.Price.OutputPerToken()*1_000_000,
					m.Quality, m.Speed)
			}
			w.Flush()

			fmt.Printf("\nTotal: %d models (catalogue %s)\n", len(models), e.reg.Version())
			return nil
		},
	}

	cmd.Flags().Bool("chat", false, "Only chat-capable models")
	cmd.Flags().Bool("enabled", false, "Only models enabled for the organization")
	cmd.Flags().Bool("all", false, "Include deprecated models")
	cmd.Flags().String("hosting", "", "Only models hosted in this region (eu, us)")

	return cmd
}

func modelsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <key>",
		Short: "Print one catalogue entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}

			m, err := e.reg.Entry(args[0])
			if err != nil {
				return err
			}

			out, err := yaml.Marshal(m)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
}

func modelsValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a catalogue file (CI check)",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("path")
			if path == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				path = cfg.Registry.Path
			}

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
				return fmt.Errorf("loading catalog: %w", err)
			}

			result := validate.ValidateRegistry(reg)
			fmt.Println(validate.FormatResult(result))

			if result.HasErrors() {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().String("path", "", "Path to catalogue file (default: from config, else embedded)")

	return cmd
}

func modelsDeprecateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deprecate <key>",
		Short: "Flag a model deprecated in the working catalogue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("path")
			if path == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				path = cfg.Release.CatalogPath
			}

			result, err := registry.NewWriter(path).Deprecate(args[0])
			if err != nil {
				return err
			}
			if len(result.Changes) == 0 {
				fmt.Printf("%s is already deprecated\n", args[0])
				return nil
			}
			fmt.Printf("%s deprecated in %s\n", args[0], result.Path)
			return nil
		},
	}

	cmd.Flags().String("path", "", "Path to catalogue file (default: release.catalog_path)")

	return cmd
}
