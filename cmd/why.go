package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/capsim/capsim/internal/api"
	"github.com/capsim/capsim/internal/config"
	"github.com/capsim/capsim/internal/core"
	"github.com/capsim/capsim/internal/service"
)

var (
	whyUser         string
	whyContext      string
	whyPolicyFilter string
)

var whyCmd = &cobra.Command{
	Use:   "why",
	Short: "Explain why a user is allowed or blocked under a policy set",
	Long: `Traces the evaluation of one user in one scenario context against a policy
	set and shows, per policy and per condition, what matched and what did not.
	Useful for debugging why a request is being blocked or picking up the
	wrong controls.`,
	Example: `  # Why is alice blocked when travelling?
  capsim why -p baseline.yaml -u users.yaml -c contexts.yaml --user alice --context travel-abroad

  # Why is policy 'require-mfa' not applying?
  capsim why -p baseline.yaml -u users.yaml -c contexts.yaml --user alice --context office --policy require-mfa`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if f.PoliciesPath == "" {
			return fmt.Errorf("policy file not specified (use --policies)")
		}
		doc, err := config.LoadPolicyDocument(f.PoliciesPath)
		if err != nil {
			return err
		}
		users, contexts, err := f.LoadInputs()
		if err != nil {
			return err
		}

		var trace *core.EvaluationTrace

		if f.RemoteAddr != "" {
			cli, err := f.GetClient()
			if err != nil {
				return err
			}
			remote, correlation, err := cli.Explain(cmd.Context(), api.ExplainPayload{
				Set:      &api.PolicySetPayload{Name: doc.Name, Policies: doc.Policies},
				UserID:   whyUser,
				Context:  whyContext,
				Users:    users,
				Contexts: contexts,
			})
			if err != nil {
				return logError(err, correlation, "explain failed")
			}
			trace = remote
		} else {
			svc, _, err := f.GetLocalService()
			if err != nil {
				return err
			}
			trace, err = svc.Explain(cmd.Context(), service.ExplainInput{
				SetName:     doc.Name,
				Policies:    doc.Policies,
				UserID:      whyUser,
				ContextName: whyContext,
				Users:       users,
				Contexts:    contexts,
			})
			if err != nil {
				return logError(err, "", "explain failed")
			}
		}

		printTrace(trace)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whyCmd)

	f.bindPolicyFlags(whyCmd.Flags())
	f.bindInputFlags(whyCmd.Flags())
	whyCmd.Flags().StringVar(&whyUser, "user", "", "User ID to trace")
	whyCmd.Flags().StringVar(&whyContext, "context", "", "Context name to trace")
	whyCmd.Flags().StringVar(&whyPolicyFilter, "policy", "", "Only show this policy in the trace")
	_ = whyCmd.MarkFlagRequired("user")
	_ = whyCmd.MarkFlagRequired("context")
}

func printTrace(trace *core.EvaluationTrace) {
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Printf("\n%s for request %s (set: %s)\n",
		bold("Evaluation Trace"),
		bold(trace.RequestID),
		trace.PolicySet)

	fmt.Println(faint("---------------------------------------------------"))

	for _, res := range trace.PolicyResults {
		if whyPolicyFilter != "" && res.PolicyID != whyPolicyFilter {
			continue
		}

		icon := redCross
		if res.Applied {
			icon = greenCheck
		}

		suffix := ""
		if !res.Enabled {
			suffix = faint(" (disabled)")
		}

		fmt.Printf("%s Policy: %s %s%s\n", icon, bold(res.PolicyID), faint(effectLabel(res.Effect)), suffix)
		if res.Description != "" {
			fmt.Printf("  %s\n", faint(res.Description))
		}

		for _, cond := range res.ConditionResults {
			// calculate depth based on leading spaces
			trimmed := strings.TrimLeft(cond.Expression, " ")
			indentLen := len(cond.Expression) - len(trimmed)
			indent := strings.Repeat(" ", indentLen)

			// detect if this is a logic gate label
			isLogicGate := strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")

			condIcon := redCross
			if cond.Matched {
				condIcon = greenCheck
			}

			if isLogicGate {
				fmt.Printf("    %s%s %s\n", indent, condIcon, cyan(trimmed))
			} else {
				fmt.Printf("    %s%s %s\n", indent, condIcon, trimmed)
			}

			if cond.Reason != "" {
				reasonIndent := indent + "      "
				reason := cond.Reason
				if cond.Matched {
					reason = faint(reason)
				} else {
					reason = yellow(reason)
				}
				fmt.Printf("%s↳ %s\n", reasonIndent, reason)
			}
		}

		fmt.Println()
	}

	fmt.Println(faint("---------------------------------------------------"))
	fmt.Printf("%s: %s\n", bold("Final Decision"), decisionLabel(trace.Decision))
	if len(trace.Decision.PolicyIDs) > 0 {
		fmt.Printf("%s: %s\n", faint("Contributing policies"), strings.Join(trace.Decision.PolicyIDs, ", "))
	}
}
