package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/wallboxctl/internal/app"
	"github.com/five82/wallboxctl/internal/logstore"
	"github.com/five82/wallboxctl/internal/logtail"
	"github.com/five82/wallboxctl/internal/wallbox"
)

func newRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:           "wallboxctl",
		Short:         "Control panel for a wallbox EV charger",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), flags.options())
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file path (optional)")
	root.PersistentFlags().StringVar(&flags.prefsPath, "prefs", "", "preferences file path (optional)")
	root.PersistentFlags().StringVar(&flags.apiURL, "api", "", "wallbox controller URL, overrides api_url")
	root.PersistentFlags().IntVar(&flags.pollEvery, "poll", 0, "refresh interval in seconds (optional, defaults to 2s)")

	root.AddCommand(
		newStatusCmd(&flags),
		newHealthCmd(&flags),
		newActionGroupCmd(&flags, "charge", "Start, stop, pause or resume charging",
			wallbox.ActionStart, wallbox.ActionStop, wallbox.ActionPause, wallbox.ActionResume),
		newActionGroupCmd(&flags, "wallbox", "Enable or disable the wallbox",
			wallbox.ActionEnable, wallbox.ActionDisable),
		newLogsCmd(&flags),
	)
	return root
}

// withRuntime opens the runtime with diagnostics mirrored to stderr and
// closes it when fn returns.
func withRuntime(flags *globalFlags, fn func(rt *app.Runtime) error) error {
	opts := flags.options()
	opts.Console = os.Stderr
	rt, err := app.Open(opts)
	if err != nil {
		return err
	}
	runErr := fn(rt)
	if closeErr := rt.Close(); closeErr != nil && runErr == nil {
		runErr = closeErr
	}
	return runErr
}

func newStatusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the current charger status as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(flags, func(rt *app.Runtime) error {
				if err := rt.Poller.Refresh(cmd.Context()); err != nil {
					return err
				}
				snap := rt.Store.Snapshot()
				if snap.LastError != nil {
					return fmt.Errorf("get status: %w", snap.LastError)
				}
				return printJSON(cmd.OutOrStdout(), snap.Status)
			})
		},
	}
}

func newHealthCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the controller API answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(flags, func(rt *app.Runtime) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
				defer cancel()
				health, err := rt.Client.HealthCheck(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), health)
			})
		},
	}
}

// newActionGroupCmd builds "charge" and "wallbox", one subcommand per action.
func newActionGroupCmd(flags *globalFlags, use, short string, actions ...wallbox.Action) *cobra.Command {
	group := &cobra.Command{Use: use, Short: short}
	for _, action := range actions {
		action := action
		group.AddCommand(&cobra.Command{
			Use:   action.String(),
			Short: capitalize(action.Name()),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withRuntime(flags, func(rt *app.Runtime) error {
					result, err := rt.Controller.Do(cmd.Context(), action)
					// No poll loop runs here, so re-poll inline; the outcome
					// lands in the log store either way.
					_ = rt.Poller.Refresh(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), firstNonEmpty(result.Message, capitalize(action.Name())+" succeeded"))
					return nil
				})
			},
		})
	}
	return group
}

func newLogsCmd(flags *globalFlags) *cobra.Command {
	logs := &cobra.Command{Use: "logs", Short: "Inspect the persisted application log"}

	var level string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print log entries at or above --level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			minLevel, err := logstore.ParseLevel(level)
			if err != nil {
				return err
			}
			return withRuntime(flags, func(rt *app.Runtime) error {
				return printText(cmd.OutOrStdout(), rt.Logs.ExportFiltered(minLevel))
			})
		},
	}
	show.Flags().StringVar(&level, "level", string(logstore.LevelDebug), "minimum level: debug, info, warn or error")

	export := &cobra.Command{
		Use:   "export",
		Short: "Print every entry in export format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(flags, func(rt *app.Runtime) error {
				return printText(cmd.OutOrStdout(), rt.Logs.Export())
			})
		},
	}

	var dir string
	download := &cobra.Command{
		Use:   "download",
		Short: "Write the export to a timestamped file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(flags, func(rt *app.Runtime) error {
				saver := logstore.DirSaver{Dir: rt.Config.ExportDir}
				if dir != "" {
					saver.Dir = dir
				}
				name := rt.Logs.DownloadTo(saver)
				if name == "" {
					return fmt.Errorf("download failed, see the diagnostic log")
				}
				fmt.Fprintln(cmd.OutOrStdout(), saver.Path(name))
				return nil
			})
		},
	}
	download.Flags().StringVar(&dir, "dir", "", "target directory, overrides export_dir")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every persisted entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(flags, func(rt *app.Runtime) error {
				n := rt.Logs.Len()
				rt.Logs.Clear()
				fmt.Fprintf(cmd.OutOrStdout(), "cleared %d entries\n", n)
				return nil
			})
		},
	}

	var lines int
	diag := &cobra.Command{
		Use:   "diag",
		Short: "Tail the diagnostic log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(flags, func(rt *app.Runtime) error {
				raw, err := logtail.Read(rt.Config.DiagLogPath(), lines)
				if err != nil {
					return err
				}
				return printText(cmd.OutOrStdout(), strings.Join(logtail.FormatLines(raw), "\n"))
			})
		},
	}
	diag.Flags().IntVarP(&lines, "lines", "n", 50, "number of lines, 0 for all")

	logs.AddCommand(show, export, download, clearCmd, diag)
	return logs
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printText(w io.Writer, text string) error {
	if text == "" {
		return nil
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func secondsToDuration(n int) time.Duration {
	return time.Duration(n) * time.Second
}
