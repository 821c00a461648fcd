package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/rungate/internal/config"
	"github.com/ppiankov/rungate/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var (
		dropDir  string
		pollMode bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a drop directory and run acceptance for each *.runid file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadSettings(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !cmd.Flags().Changed("drop-dir") && cfg.DropDir != "" {
				dropDir = cfg.DropDir
			}
			if !cmd.Flags().Changed("poll") && cfg.PollMode {
				pollMode = cfg.PollMode
			}
			if dropDir == "" {
				return fmt.Errorf("drop directory is required (--drop-dir or drop_dir in config)")
			}

			ctx, cancel := signalContext()
			defer cancel()

			w, err := watch.New(watch.Config{
				DropDir:  dropDir,
				PollMode: pollMode,
				AcceptFn: func(ctx context.Context, runID string) error {
					return acceptOnce(ctx, runID, cfg, acceptOptions{})
				},
			})
			if err != nil {
				return err
			}
			return w.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&dropDir, "drop-dir", "", "directory watched for *.runid files")
	cmd.Flags().BoolVar(&pollMode, "poll", false, "poll instead of using fsnotify")

	return cmd
}
