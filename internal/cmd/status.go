package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/copydesk/copydesk/internal/config"
	"github.com/copydesk/copydesk/internal/draft"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a health summary of the content backend",
	Long: `Show draft counts per lifecycle status, the global publish state,
the publish queue depth, and the configured per-platform rate limits.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// statusOrder fixes the display order of the lifecycle statuses.
var statusOrder = []draft.Status{
	draft.StatusDraft,
	draft.StatusInReview,
	draft.StatusApproved,
	draft.StatusScheduled,
	draft.StatusPublished,
	draft.StatusFailed,
	draft.StatusSkipped,
	draft.StatusRejected,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Println("Drafts:")
	total := 0
	for _, status := range statusOrder {
		drafts, err := st.ListDraftsByStatus(ctx, status)
		if err != nil {
			return fmt.Errorf("failed to list %s drafts: %w", status, err)
		}
		total += len(drafts)
		fmt.Printf("  %-12s %d\n", status, len(drafts))
	}
	fmt.Printf("  %-12s %d\n", "total", total)

	state, err := st.PublishState(ctx)
	if err != nil {
		return fmt.Errorf("failed to read publish state: %w", err)
	}
	fmt.Println("\nPublishing:")
	if state.Paused {
		fmt.Printf("  state: paused (by %s at %s)\n", state.ChangedBy, state.ChangedAt.Format("2006-01-02 15:04"))
	} else {
		fmt.Println("  state: active")
	}

	depth, err := st.QueueLength(ctx)
	if err != nil {
		return fmt.Errorf("failed to read queue length: %w", err)
	}
	fmt.Printf("  queue depth: %d\n", depth)

	fmt.Println("\nRate limits:")
	if len(cfg.Publish.RateLimits) == 0 {
		fmt.Println("  none configured (all platforms unrestricted)")
		return nil
	}
	names := make([]string, 0, len(cfg.Publish.RateLimits))
	for name := range cfg.Publish.RateLimits {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rl := cfg.Publish.RateLimits[name]
		fmt.Printf("  %-12s %d calls / %s\n", name, rl.MaxCalls, rl.Window())
	}
	return nil
}
