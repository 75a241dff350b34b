package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/gamecore/pkg/progression"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and level catalog",
		Long: `Validate the configuration file and the level catalog it points to.

This command checks:
  - YAML syntax and field constraints
  - Environment overrides
  - Level catalog: non-empty, unique symbols, every level has a scene`,
		Example: `  # Validate the default configuration
  gamecore validate

  # Validate a config file
  gamecore validate --config gamecore.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			levels, err := progression.Load(cfg.Progression.Path)
			if err != nil {
				return err
			}

			log.Info().
				Str("config", configPath).
				Int("levels", levels.Len()).
				Int("app_systems", len(cfg.AppSystems)).
				Int("session_systems", len(cfg.SessionSystems)).
				Msg("Configuration valid")

			fmt.Fprintf(cmd.OutOrStdout(), "✓ config valid\n✓ %d levels, first %q\n", levels.Len(), levels.FirstLevel().Symbol)
			return nil
		},
	}

	return cmd
}
