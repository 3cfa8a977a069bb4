package cmd

import (
	"context"
	"fmt"

	"github.com/copydesk/copydesk/internal/config"
	"github.com/copydesk/copydesk/internal/logging"
	"github.com/spf13/cobra"
)

var pauseActor string

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause all publish execution",
	Long: `Pause all publish execution across every platform. Queued jobs are
preserved and resume exactly where they left off.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return setPublishPaused(true)
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume publish execution",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setPublishPaused(false)
	},
}

func init() {
	pauseCmd.Flags().StringVar(&pauseActor, "actor", "operator", "who is changing the publish state")
	resumeCmd.Flags().StringVar(&pauseActor, "actor", "operator", "who is changing the publish state")
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
}

func setPublishPaused(paused bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := context.Background()
	be, err := newBackend(ctx, cfg, logging.NopLogger())
	if err != nil {
		return err
	}

	if paused {
		err = be.scheduler.Pause(ctx, pauseActor)
	} else {
		err = be.scheduler.Resume(ctx, pauseActor)
	}
	if err != nil {
		return err
	}
	be.dispatcher.Wait()

	if paused {
		fmt.Println("Publishing paused. Queued jobs are preserved.")
	} else {
		fmt.Println("Publishing resumed.")
	}
	return nil
}
