package cmd

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/capsim/capsim/internal/config"
	"github.com/capsim/capsim/internal/validation"
)

var debugPoliciesCmd = &cobra.Command{
	Use:   "policies FILE",
	Short: "Dump a parsed and validated policy set",
	Long: `Loads a policy set file, runs it through validation and prints the
	resulting in-memory representation. Useful for checking how the YAML
	condition shorthand was expanded.`,
	Example: `  capsim debug policies baseline.yaml`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadAppConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		doc, err := config.LoadPolicyDocument(args[0])
		if err != nil {
			return fmt.Errorf("loading policies: %w", err)
		}

		set, err := validation.ValidatePolicies(doc.Name, doc.Policies, cfg.BuildSchema())
		if err != nil {
			return fmt.Errorf("validating policies: %w", err)
		}

		log.Info().Msgf("Parsed policy set %s", summarizeSet(doc))
		log.Info().Msg(spew.Sdump(set))
		return nil
	},
}

func init() {
	debugCmd.AddCommand(debugPoliciesCmd)

	debugPoliciesCmd.Flags().StringVar(&f.AppConfigPath, "config", "", "Application config file (schema, audit, defaults)")
}
