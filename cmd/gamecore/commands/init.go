package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/gamecore/pkg/config"
	"github.com/openfroyo/gamecore/pkg/progression"
	"github.com/openfroyo/gamecore/pkg/saves"
)

var defaultLevels = []progression.LevelData{
	{Symbol: "tutorial", Scene: "scene_tutorial"},
	{Symbol: "forest", Scene: "scene_forest"},
	{Symbol: "cave", Scene: "scene_cave"},
	{Symbol: "summit", Scene: "scene_summit"},
}

func newInitCommand() *cobra.Command {
	var (
		dir   string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration and level catalog",
		Long: `Create a workspace with a default config file, a sample level catalog
and an empty save database.`,
		Example: `  # Initialize in the current directory
  gamecore init

  # Initialize elsewhere
  gamecore init --dir ./game`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}

			cfgPath := configPath
			if cfgPath == "" {
				cfgPath = filepath.Join(dir, "gamecore.yaml")
			}
			if _, err := os.Stat(cfgPath); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", cfgPath)
			}

			cfg := config.Default()
			if err := config.Write(cfgPath, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Created config file: %s\n", cfgPath)

			levelsPath := filepath.Join(dir, cfg.Progression.Path)
			if err := progression.Write(levelsPath, defaultLevels); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Created level catalog: %s\n", levelsPath)

			dbPath := filepath.Join(dir, cfg.Saves.Path)
			store, err := saves.Open(cmd.Context(), saves.Config{Path: dbPath})
			if err != nil {
				return err
			}
			if err := store.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Initialized save database: %s\n", dbPath)

			log.Debug().Str("dir", dir).Msg("Workspace initialized")
			fmt.Fprintf(cmd.OutOrStdout(), "\nNext: gamecore run --config %s\n", cfgPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "workspace directory")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}
