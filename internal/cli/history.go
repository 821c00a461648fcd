package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/rungate/internal/config"
	"github.com/ppiankov/rungate/internal/history"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded acceptance attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadSettings(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return listHistory(cfg, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "max attempts to list (0 = all)")

	return cmd
}

func listHistory(cfg *config.Settings, limit int) error {
	store, err := history.Open(cfg.ResolvedHistoryDB())
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer func() { _ = store.Close() }()

	entries, err := store.List(context.Background(), limit)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("no recorded acceptance attempts")
		return nil
	}

	fmt.Printf("%-20s %-7s %-20s %-20s %-9s %s\n",
		"STARTED", "STATUS", "RUN", "NEW RUN", "DURATION", "DETAIL")
	fmt.Println(strings.Repeat("─", 100))
	for _, e := range entries {
		newID := e.NewRunID
		if newID == "" {
			newID = "-"
		}
		detail := fmt.Sprintf("%d steps", e.StepsCompleted)
		if e.Error != "" {
			detail = truncate(e.Error, 50)
		}
		fmt.Printf("%-20s %-7s %-20s %-20s %-9s %s\n",
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			e.Status,
			truncate(e.RunID, 20),
			truncate(newID, 20),
			e.Duration.Truncate(time.Millisecond).String(),
			detail)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
