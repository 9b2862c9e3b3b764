package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/everstacklabs/modelmeter/internal/credits"
	"github.com/everstacklabs/modelmeter/internal/registry"
	"github.com/everstacklabs/modelmeter/internal/selection"
	"github.com/everstacklabs/modelmeter/internal/tokens"
	"github.com/everstacklabs/modelmeter/internal/warning"
)

// tokenFlag reads an explicit token count, or counts the text flag when
// the count is not given.
func tokenFlag(cmd *cobra.Command, counter *tokens.Counter, countFlag, textFlag string) int {
	n, _ := cmd.Flags().GetInt(countFlag)
	if cmd.Flags().Changed(countFlag) {
		return n
	}
	if text, _ := cmd.Flags().GetString(textFlag); text != "" {
		return counter.Count(text)
	}
	return n
}

func resolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <selector>",
		Short: "Resolve a model selector under organization policy",
		Long: `Resolves "automatic" or a model key to the concrete model a send will use.
Unrecognised selectors fall back to the catalogue fallback model.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			counter := tokens.NewCounter("")

			history, _ := cmd.Flags().GetInt("history-tokens")
			generationOnly, _ := cmd.Flags().GetBool("generation-only")

			req := selection.Request{
				Selector:               e.reg.ParseSelector(args[0]),
				ChatHistoryTokens:      history,
				ProspectiveInputTokens: tokenFlag(cmd, counter, "input-tokens", "text"),
				GenerationOnly:         generationOnly,
			}

			res, err := selection.NewResolver(e.reg).Resolve(req, e.policy)
			if err != nil {
				var exceeded *selection.ContextLengthExceededError
				if errors.As(err, &exceeded) {
					return fmt.Errorf("%w\n%s", err, largerModelsHint(e, exceeded.TokenCount))
				}
				return err
			}

			fmt.Printf("model:     %s\n", res.Key)
			fmt.Printf("requested: %s\n", res.Requested)
			if res.Automatic {
				fmt.Println("automatic: true")
			}
			if res.Downgraded() {
				fmt.Printf("reason:    %s\n", res.Reason)
				fmt.Println(color.YellowString(res.Notice()))
			}
			return nil
		},
	}

	cmd.Flags().Int("history-tokens", 0, "Tokens already in the chat")
	cmd.Flags().Int("input-tokens", 0, "Tokens in the prospective message")
	cmd.Flags().String("text", "", "Prospective message text, counted when --input-tokens is not set")
	cmd.Flags().Bool("generation-only", false, "Allow models that cannot be used for chat")

	return cmd
}

// largerModelsHint names the enabled chat models whose window fits needed.
func largerModelsHint(e *env, needed int) string {
	var keys []string
	for _, m := range e.reg.List(registry.ChatCapable, registry.Active, registry.EnabledIn(e.policy.EnabledModels)) {
		if m.ContextWindow >= needed {
			keys = append(keys, m.Key)
		}
	}
	if len(keys) == 0 {
		return "Start a new chat: no enabled model has a large enough context window."
	}
	return "Switch to a larger-context model (" + strings.Join(keys, ", ") + ") or start a new chat."
}

func estimateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate <model>",
		Short: "Estimate the credit cost of a generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			counter := tokens.NewCounter("")

			output, _ := cmd.Flags().GetInt("output-tokens")
			usage := credits.Usage{
				ModelKey:     args[0],
				InputTokens:  tokenFlag(cmd, counter, "input-tokens", "text"),
				OutputTokens: output,
			}

			q, err := e.estimator.Estimate(usage)
			if err != nil {
				return err
			}

			fmt.Printf("model:          %s\n", usage.ModelKey)
			fmt.Printf("input tokens:   %d\n", usage.InputTokens)
			fmt.Printf("output tokens:  %d\n", usage.OutputTokens)
			fmt.Printf("input/token:    %g\n", q.InputCostPerToken)
			fmt.Printf("output/token:   %g\n", q.OutputCostPerToken)
			fmt.Printf("raw cost:       %g\n", q.RawCost)
			fmt.Printf("credits:        %g\n", q.TotalCreditCost)
			return nil
		},
	}

	cmd.Flags().Int("input-tokens", 0, "Input tokens")
	cmd.Flags().Int("output-tokens", 0, "Output tokens")
	cmd.Flags().String("text", "", "Input text, counted when --input-tokens is not set")

	return cmd
}

func warnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "warn <model>",
		Short: "Check whether a send should raise a credit warning",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			counter := tokens.NewCounter("")

			checker, err := warning.NewChecker(e.reg, e.estimator, e.cfg.Warnings)
			if err != nil {
				return err
			}

			chatTokens, _ := cmd.Flags().GetInt("chat-tokens")
			messageAccepted, _ := cmd.Flags().GetBool("message-accepted")
			chatAccepted, _ := cmd.Flags().GetBool("chat-accepted")

			res, err := checker.Check(warning.Input{
				ModelKey:        args[0],
				ChatTokens:      chatTokens,
				MessageTokens:   tokenFlag(cmd, counter, "message-tokens", "text"),
				EnabledModels:   e.policy.EnabledModels,
				EUOnly:          e.policy.EUOnly,
				MessageAccepted: messageAccepted,
				ChatAccepted:    chatAccepted,
			})
			if err != nil {
				return err
			}

			if !res.Raised() {
				fmt.Printf("warning: %s\n", res.Category)
				return nil
			}
			fmt.Printf("warning: %s\n", color.YellowString(string(res.Category)))
			fmt.Printf("cost:      %.2f credits (threshold %.2f)\n", res.Cost, res.Threshold)
			if res.Suggestion != "" {
				fmt.Printf("suggest:   %s (%.2f credits)\n", res.Suggestion, res.SuggestionCost)
			}
			return nil
		},
	}

	cmd.Flags().Int("chat-tokens", 0, "Tokens accumulated in the chat")
	cmd.Flags().Int("message-tokens", 0, "Tokens in the prospective message")
	cmd.Flags().String("text", "", "Prospective message text, counted when --message-tokens is not set")
	cmd.Flags().Bool("message-accepted", false, "A message-level warning was accepted for this compose action")
	cmd.Flags().Bool("chat-accepted", false, "A chat-level warning was accepted for this chat")

	return cmd
}
