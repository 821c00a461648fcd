package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version and Commit are set via LDFLAGS at build time.
var (
	Version = "dev"
	Commit  = "none"
)

var (
	verbose    bool
	configFile string
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rungate",
		Short: "Replay-and-judge acceptance gate for recorded runs",
		Long:  "rungate drives an external run-tracking CLI through a fixed replay, judge, and gate sequence and reports whether the replayed run passes acceptance.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&configFile, "config", ".rungate.yml", "path to config file")

	root.AddCommand(newAcceptCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// isTerminal checks if stdout is a terminal.
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
