package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/capsim/capsim/internal/api"
	"github.com/capsim/capsim/internal/core"
	"github.com/capsim/capsim/internal/service"
)

var (
	simulateWorkers       int
	simulateJSON          bool
	simulateShowUnchanged bool
	simulateFailOnChange  bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Diff a candidate policy set against a baseline over a simulated population",
	Long: `Evaluates every user/context pairing against the baseline and the candidate
	policy set, classifies how each decision changed, and prints the impact report.
	Nothing is enforced; this is a pure what-if run.`,
	Example: `  # What changes if candidate.yaml ships?
  capsim simulate -p baseline.yaml --candidate candidate.yaml -u users.yaml -c contexts.yaml

  # Machine-readable output for CI, failing the pipeline on any change
  capsim simulate -p baseline.yaml --candidate candidate.yaml -u users.yaml -c contexts.yaml --json --fail-on-change`,
	RunE: func(cmd *cobra.Command, args []string) error {
		baseline, candidate, err := f.LoadPolicyDocuments()
		if err != nil {
			return err
		}
		users, contexts, err := f.LoadInputs()
		if err != nil {
			return err
		}

		var result *service.SimulateResult

		if f.RemoteAddr != "" {
			cli, err := f.GetClient()
			if err != nil {
				return err
			}
			remote, correlation, err := cli.Simulate(cmd.Context(), api.SimulatePayload{
				Baseline:  &api.PolicySetPayload{Name: baseline.Name, Policies: baseline.Policies},
				Candidate: api.PolicySetPayload{Name: candidate.Name, Policies: candidate.Policies},
				Users:     users,
				Contexts:  contexts,
				Workers:   simulateWorkers,
			})
			if err != nil {
				return logError(err, correlation, "simulation failed")
			}
			result = remote
		} else {
			svc, _, err := f.GetLocalService()
			if err != nil {
				return err
			}
			result, err = svc.Simulate(cmd.Context(), service.SimulateInput{
				BaselineName:  baseline.Name,
				Baseline:      baseline.Policies,
				CandidateName: candidate.Name,
				Candidate:     candidate.Policies,
				Users:         users,
				Contexts:      contexts,
				Workers:       simulateWorkers,
			})
			if err != nil {
				return logError(err, "", "simulation failed")
			}
		}

		if simulateJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return fmt.Errorf("encoding result: %w", err)
			}
		} else {
			printReport(baseline.Name, candidate.Name, result)
		}

		if simulateFailOnChange && result.Report.Changed() > 0 {
			return fmt.Errorf("%d of %d decisions changed", result.Report.Changed(), result.Report.Total())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	f.bindPolicyFlags(simulateCmd.Flags())
	f.bindInputFlags(simulateCmd.Flags())
	simulateCmd.Flags().IntVar(&simulateWorkers, "workers", 0, "Evaluation parallelism (0 = number of CPUs)")
	simulateCmd.Flags().BoolVar(&simulateJSON, "json", false, "Print the full result as JSON")
	simulateCmd.Flags().BoolVar(&simulateShowUnchanged, "show-unchanged", false, "Include unchanged requests in the detail table")
	simulateCmd.Flags().BoolVar(&simulateFailOnChange, "fail-on-change", false, "Exit non-zero when any decision changed")
}

func printReport(baselineName, candidateName string, result *service.SimulateResult) {
	report := result.Report

	fmt.Printf("\n%s  %s → %s  (run %s)\n",
		bold("Impact Report"),
		baselineName,
		candidateName,
		faint(result.RunID))

	summary := table.NewWriter()
	summary.SetOutputMirror(os.Stdout)
	summary.AppendHeader(table.Row{"Category", "Count"})
	for _, category := range core.Categories {
		count := report.Counts[category]
		if count == 0 {
			continue
		}
		summary.AppendRow(table.Row{categoryLabel(category), count})
	}
	summary.AppendFooter(table.Row{"total", report.Total()})
	applyTableFormat(summary)
	summary.Render()

	rows := 0
	detail := table.NewWriter()
	detail.SetOutputMirror(os.Stdout)
	detail.AppendHeader(table.Row{"Request", "Impact", "Baseline", "Candidate", "Policies"})
	for _, record := range report.Records {
		if record.Category == core.ImpactUnchanged && !simulateShowUnchanged {
			continue
		}
		rows++
		detail.AppendRow(table.Row{
			record.RequestID,
			categoryLabel(record.Category),
			decisionLabel(record.Baseline),
			decisionLabel(record.Candidate),
			truncate(strings.Join(record.Candidate.PolicyIDs, ", "), 40),
		})
		for _, warning := range record.Warnings {
			log.Warn().Str("request", record.RequestID).Msg(warning)
		}
	}
	if rows > 0 {
		fmt.Println()
		detail.Render()
	} else {
		fmt.Printf("\n%s no decisions changed\n", greenCheck)
	}
}

func categoryLabel(category core.ImpactCategory) string {
	switch category {
	case core.ImpactNewlyBlocked:
		return color.RedString(string(category))
	case core.ImpactNewlyAllowed:
		return color.GreenString(string(category))
	case core.ImpactControlsAdded, core.ImpactControlsRemoved, core.ImpactControlsChanged:
		return color.YellowString(string(category))
	default:
		return faint(string(category))
	}
}

func decisionLabel(d core.Decision) string {
	switch d.Outcome {
	case core.OutcomeAllowWithControls:
		return fmt.Sprintf("allow+%v", d.Controls)
	default:
		return string(d.Outcome)
	}
}
