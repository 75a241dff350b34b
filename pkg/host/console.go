package host

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openfroyo/gamecore/pkg/settings"
	"github.com/openfroyo/gamecore/pkg/telemetry"
)

// Console is the in-process command tree. Commands forward to the host's
// systems and must run on the scheduler goroutine; Dispatch arranges that.
type Console struct {
	host   *Host
	out    io.Writer
	logger *telemetry.Logger
	root   *cobra.Command
	quit   func()
}

// NewConsole builds the command tree. quit is invoked by the quit command.
func NewConsole(h *Host, out io.Writer, quit func()) *Console {
	c := &Console{
		host:   h,
		out:    out,
		logger: h.tel.Logger.NewComponentLogger("console"),
		quit:   quit,
	}
	c.root = c.newRootCommand()
	return c
}

func (c *Console) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "console",
		Short:         "In-game console",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(c.out)
	root.SetErr(c.out)

	root.AddCommand(
		&cobra.Command{
			Use:   "pause-toggle",
			Short: "Toggle pause in the running session",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if !c.requireSession(cmd) {
					return nil
				}
				c.host.Pause.TogglePause()
				fmt.Fprintf(cmd.OutOrStdout(), "paused: %v\n", c.host.Pause.IsPaused())
				return nil
			},
		},
		&cobra.Command{
			Use:   "game-enter",
			Short: "Continue the last save, or start a new one",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.host.Session.EnterGame(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "game-exit",
			Short: "Exit the running session to the lobby",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if !c.requireSession(cmd) {
					return nil
				}
				return c.host.Session.ExitGame(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "level-load <symbol>",
			Short: "Switch the running session to a level",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if !c.requireSession(cmd) {
					return nil
				}
				level, ok := c.host.Levels.TryGetLevel(args[0])
				if !ok {
					c.warn(cmd, "unknown level %q%s", args[0], didYouMean(c.host.Levels.Suggest(args[0])))
					return nil
				}
				return c.host.Session.GoToLevelData(cmd.Context(), level)
			},
		},
		&cobra.Command{
			Use:   "level-complete",
			Short: "Complete the current level",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if !c.requireSession(cmd) {
					return nil
				}
				return c.host.Session.CompleteLevel(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "save-clear-all",
			Short: "Delete every save",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if c.host.Session.InSession() {
					c.warn(cmd, "cannot clear saves during a session")
					return nil
				}
				if err := c.host.Saves.DeleteAll(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "all saves deleted")
				return nil
			},
		},
		c.perfToggle("perf-ui-fps", "FPS meter", func(s *settings.UserSettings) *bool { return &s.PerfUIFPS }),
		c.perfToggle("perf-ui-audio", "audio meter", func(s *settings.UserSettings) *bool { return &s.PerfUIAudio }),
		c.perfToggle("perf-ui-ram", "memory meter", func(s *settings.UserSettings) *bool { return &s.PerfUIRAM }),
		c.perfToggle("perf-ui-advanced", "advanced meters", func(s *settings.UserSettings) *bool { return &s.PerfUIAdvanced }),
		&cobra.Command{
			Use:   "status",
			Short: "Print the runtime state",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				printStatus(cmd.OutOrStdout(), c.host.Status())
				return nil
			},
		},
		&cobra.Command{
			Use:   "quit",
			Short: "Stop the game",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if c.quit != nil {
					c.quit()
				}
				return nil
			},
		},
	)
	return root
}

func (c *Console) perfToggle(use, what string, field func(*settings.UserSettings) *bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: "Toggle the " + what,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var on bool
			err := c.host.Settings.Update(func(s *settings.UserSettings) {
				f := field(s)
				*f = !*f
				on = *f
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", what, on)
			return nil
		},
	}
}

func (c *Console) requireSession(cmd *cobra.Command) bool {
	if c.host.Session.InSession() {
		return true
	}
	c.warn(cmd, "%s needs a running session", cmd.Name())
	return false
}

func (c *Console) warn(cmd *cobra.Command, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.logger.Warn(msg)
	fmt.Fprintln(cmd.OutOrStdout(), "warning:", msg)
}

// Execute runs one command line. It must be called on the scheduler
// goroutine.
func (c *Console) Execute(ctx context.Context, line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}
	c.root.SetArgs(args)
	return c.root.ExecuteContext(ctx)
}

// Dispatch queues line for execution on the next tick. Errors are printed,
// not returned, so a bad command never stops the game.
func (c *Console) Dispatch(line string) {
	c.host.Scheduler.Post(func(ctx context.Context) error {
		if err := c.Execute(ctx, line); err != nil {
			fmt.Fprintln(c.out, "error:", err)
		}
		return nil
	})
}

// ReadLoop dispatches every line read from r until r is exhausted or ctx
// ends. A reader blocked in Read keeps its goroutine until the read returns.
func (c *Console) ReadLoop(ctx context.Context, r io.Reader) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					return err
				default:
					return nil
				}
			}
			c.Dispatch(line)
		}
	}
}

func didYouMean(suggestions []string) string {
	if len(suggestions) == 0 {
		return ""
	}
	return ", did you mean " + strings.Join(suggestions, " or ") + "?"
}

func printStatus(w io.Writer, st Status) {
	fmt.Fprintf(w, "frame:    %d\n", st.Frame)
	fmt.Fprintf(w, "app:      %s\n", st.AppPhase)
	fmt.Fprintf(w, "session:  %s\n", st.SessionPhase)
	fmt.Fprintf(w, "scene:    %s\n", st.Scene)
	if st.Level != "" {
		fmt.Fprintf(w, "level:    %s\n", st.Level)
		fmt.Fprintf(w, "save:     %s\n", st.Save)
		fmt.Fprintf(w, "paused:   %v\n", st.Paused)
	}
	fmt.Fprintf(w, "voices:   %d active, %d parked\n", st.Voices.Active, st.Voices.Inactive)
}
