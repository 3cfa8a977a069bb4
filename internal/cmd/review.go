package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/copydesk/copydesk/internal/approval"
	"github.com/copydesk/copydesk/internal/config"
	"github.com/copydesk/copydesk/internal/draft"
	"github.com/copydesk/copydesk/internal/logging"
	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List the review queue, oldest first",
	Long: `List drafts waiting for review, oldest first. Previously skipped
drafts are re-admitted to the queue before listing.`,
	RunE: runQueue,
}

var (
	approveActor string
	approveAuto  bool
	approveAt    string
)

var approveCmd = &cobra.Command{
	Use:   "approve <draft-id>",
	Short: "Approve a draft for publishing",
	Long: `Approve a draft. With --auto the draft is scheduled immediately and a
publish job is enqueued; otherwise it waits for an explicit schedule.`,
	Args: cobra.ExactArgs(1),
	RunE: runApprove,
}

var (
	rejectActor      string
	rejectGuidance   []string
	rejectRegenerate bool
)

var rejectCmd = &cobra.Command{
	Use:   "reject <draft-id> [reason]",
	Short: "Reject a draft",
	Long: `Reject a draft. Guidance passed with --guidance is recorded for the
next regeneration; --regenerate consumes one unit of the regeneration
budget and fails if the budget is exhausted.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runReject,
}

var skipActor string

var skipCmd = &cobra.Command{
	Use:   "skip <draft-id>",
	Short: "Defer a review decision",
	Long:  `Defer the decision on a draft. It returns to the review queue on the next queue build.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSkip,
}

var editActor string

var editCmd = &cobra.Command{
	Use:   "edit <draft-id> <new-copy>",
	Short: "Edit a draft's copy and approve it",
	Args:  cobra.ExactArgs(2),
	RunE:  runEdit,
}

func init() {
	approveCmd.Flags().StringVar(&approveActor, "actor", "operator", "who is approving")
	approveCmd.Flags().BoolVar(&approveAuto, "auto", false, "schedule and enqueue the publish job immediately")
	approveCmd.Flags().StringVar(&approveAt, "at", "", "publish time in RFC 3339 (implies --auto)")

	rejectCmd.Flags().StringVar(&rejectActor, "actor", "operator", "who is rejecting")
	rejectCmd.Flags().StringArrayVar(&rejectGuidance, "guidance", nil, "guidance for the next regeneration (repeatable)")
	rejectCmd.Flags().BoolVar(&rejectRegenerate, "regenerate", false, "request a regenerated replacement draft")

	skipCmd.Flags().StringVar(&skipActor, "actor", "operator", "who is skipping")
	editCmd.Flags().StringVar(&editActor, "actor", "operator", "who is editing")

	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(rejectCmd)
	rootCmd.AddCommand(skipCmd)
	rootCmd.AddCommand(editCmd)
}

// reviewBackend loads config and wires the backend for one-shot review
// commands.
func reviewBackend() (context.Context, *backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	ctx := context.Background()
	be, err := newBackend(ctx, cfg, logging.NopLogger())
	if err != nil {
		return nil, nil, err
	}
	return ctx, be, nil
}

func runQueue(cmd *cobra.Command, args []string) error {
	ctx, be, err := reviewBackend()
	if err != nil {
		return err
	}

	drafts, err := be.machine.Queue(ctx)
	if err != nil {
		return fmt.Errorf("failed to build review queue: %w", err)
	}
	if len(drafts) == 0 {
		fmt.Println("Review queue is empty.")
		return nil
	}

	for _, d := range drafts {
		fmt.Printf("%s  %-10s %-10s %s\n", d.ID, d.ClientID, d.Platform, excerpt(d.Copy, 60))
	}
	fmt.Printf("%d draft(s) waiting for review\n", len(drafts))
	return nil
}

func runApprove(cmd *cobra.Command, args []string) error {
	ctx, be, err := reviewBackend()
	if err != nil {
		return err
	}

	opts := approval.ApproveOptions{Mode: draft.PublishManual}
	if approveAuto || approveAt != "" {
		opts.Mode = draft.PublishAuto
	}
	if approveAt != "" {
		at, err := time.Parse(time.RFC3339, approveAt)
		if err != nil {
			return fmt.Errorf("invalid --at value %q: %w", approveAt, err)
		}
		opts.PostAt = &at
	}

	d, err := be.machine.Approve(ctx, args[0], approveActor, opts)
	if err != nil {
		return err
	}
	be.dispatcher.Wait()

	fmt.Printf("Draft %s is now %s\n", d.ID, d.Status)
	return nil
}

func runReject(cmd *cobra.Command, args []string) error {
	ctx, be, err := reviewBackend()
	if err != nil {
		return err
	}

	message := "rejected"
	if len(args) == 2 {
		message = args[1]
	}

	d, err := be.machine.Reject(ctx, args[0], rejectActor, message, approval.RejectOptions{
		Guidance:   rejectGuidance,
		Regenerate: rejectRegenerate,
	})
	if err != nil {
		return err
	}
	be.dispatcher.Wait()

	fmt.Printf("Draft %s rejected", d.ID)
	if rejectRegenerate {
		fmt.Printf(" (regeneration %d requested)", d.RegenerationCount)
	}
	fmt.Println()
	return nil
}

func runSkip(cmd *cobra.Command, args []string) error {
	ctx, be, err := reviewBackend()
	if err != nil {
		return err
	}

	d, err := be.machine.Skip(ctx, args[0], skipActor)
	if err != nil {
		return err
	}
	be.dispatcher.Wait()

	fmt.Printf("Draft %s skipped; it will return on the next queue build\n", d.ID)
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx, be, err := reviewBackend()
	if err != nil {
		return err
	}

	d, err := be.machine.Edit(ctx, args[0], editActor, args[1])
	if err != nil {
		return err
	}
	be.dispatcher.Wait()

	fmt.Printf("Draft %s edited and approved\n", d.ID)
	return nil
}

// excerpt truncates s to at most n runes for single-line display.
func excerpt(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
