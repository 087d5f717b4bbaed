package cmd

import (
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/capsim/capsim/internal/core"
)

// runsCmd lists recorded simulation runs from a remote server.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent simulation runs recorded by a server",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}

		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Info().Msg("Fetching simulation runs...")
		runs, err := cli.ListRuns(cmd.Context(), uint(limit))
		if err != nil {
			return err
		}

		log.Info().Msgf("Retrieved %d runs", len(runs))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{
			"Time", "Run ID", "Action", "Baseline", "Candidate", "Requests", "Changed", "Error",
		})

		for _, e := range runs {
			changed := 0
			for cat, n := range e.Counts {
				if cat != core.ImpactUnchanged {
					changed += n
				}
			}

			t.AppendRow(table.Row{
				e.Time.Format(time.RFC3339),
				e.ID,
				e.Action,
				truncate(e.Baseline, 25),
				truncate(e.Candidate, 25),
				e.Requests,
				changed,
				e.Error,
			})
		}

		applyTableFormat(t)
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.Flags().IntP("limit", "n", 25, "Number of runs to retrieve")
}
