package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/capsim/capsim/internal/config"
	"github.com/capsim/capsim/internal/validation"
)

// validateCmd checks policy files without running anything.
var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Validate policy set files",
	Long: `Parses and validates one or more policy set files against the attribute
	schema: unique ids, well-formed condition trees, operators compatible with
	the referenced attribute types, and compilable expressions.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadAppConfig()
		if err != nil {
			return err
		}
		schema := cfg.BuildSchema()

		failed := 0
		for _, path := range args {
			doc, err := config.LoadPolicyDocument(path)
			if err != nil {
				log.Error().Err(err).Msgf("%s %s", redCross, path)
				failed++
				continue
			}
			if _, err := validation.ValidatePolicies(doc.Name, doc.Policies, schema); err != nil {
				log.Error().Err(err).Msgf("%s %s", redCross, path)
				failed++
				continue
			}
			log.Info().Msgf("%s %s: %s", greenCheck, path, summarizeSet(doc))
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d files invalid", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&f.AppConfigPath, "config", "", "Application config file (schema, audit, defaults)")
}
