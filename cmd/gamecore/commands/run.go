package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/openfroyo/gamecore/pkg/host"
	"github.com/openfroyo/gamecore/pkg/telemetry"
)

const shutdownTimeout = 10 * time.Second

func newRunCommand(version string) *cobra.Command {
	var noConsole bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the game runtime with an interactive console",
		Long: `Start every app system, load the lobby and tick the scheduler until
interrupted. Lines typed on stdin are console commands:

  game-enter              continue the last save or start a new one
  game-exit               return to the lobby
  level-load <symbol>     switch to a level
  level-complete          complete the current level
  pause-toggle            toggle pause
  save-clear-all          delete every save
  perf-ui-fps|audio|ram|advanced  toggle overlay meters
  status                  print the runtime state
  quit                    stop`,
		Example: `  # Run with the default configuration
  gamecore run

  # Run a config file without reading stdin
  gamecore run --config gamecore.yaml --no-console`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cfg.Telemetry.ServiceVersion = version

			tel, err := telemetry.NewTelemetry(&cfg.Telemetry)
			if err != nil {
				return fmt.Errorf("failed to initialize telemetry: %w", err)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			h, err := host.New(ctx, cfg, tel)
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return h.Run(gctx)
			})

			if !noConsole {
				console := host.NewConsole(h, cmd.OutOrStdout(), cancel)
				g.Go(func() error {
					return console.ReadLoop(gctx, os.Stdin)
				})
			}

			if srv := tel.Metrics.Server(); srv != nil {
				g.Go(func() error {
					log.Info().Str("addr", srv.Addr).Msg("Serving metrics")
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				})
				g.Go(func() error {
					<-gctx.Done()
					sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
					defer scancel()
					return srv.Shutdown(sctx)
				})
			}

			runErr := g.Wait()

			sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer scancel()
			shutdownErr := h.Shutdown(sctx)
			if err := tel.Flush(sctx); err != nil {
				log.Warn().Err(err).Msg("Telemetry flush failed")
			}
			if err := tel.Shutdown(sctx); err != nil {
				log.Warn().Err(err).Msg("Telemetry shutdown failed")
			}

			log.Info().Uint64("frames", h.Scheduler.Frame()).Msg("Stopped")
			return errors.Join(runErr, shutdownErr)
		},
	}

	cmd.Flags().BoolVar(&noConsole, "no-console", false, "do not read console commands from stdin")

	return cmd
}
