package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/copydesk/copydesk/internal/approval"
	"github.com/copydesk/copydesk/internal/config"
	"github.com/copydesk/copydesk/internal/event"
	"github.com/copydesk/copydesk/internal/logging"
	"github.com/copydesk/copydesk/internal/notify"
	"github.com/copydesk/copydesk/internal/platform"
	"github.com/copydesk/copydesk/internal/publish"
	"github.com/copydesk/copydesk/internal/ratelimit"
	"github.com/copydesk/copydesk/internal/recovery"
	"github.com/copydesk/copydesk/internal/stale"
	"github.com/copydesk/copydesk/internal/store"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the publish scheduler and stale-review monitor",
	Long: `Run the copydesk background loops until interrupted.

The scheduler drains due publish jobs on every tick, honoring the global
pause flag and per-platform rate limits. The stale monitor re-flags drafts
that have sat in review past the staleness threshold.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := newBackend(ctx, cfg, log)
	if err != nil {
		return err
	}

	if cfg.Publish.StartPaused {
		if err := be.scheduler.Pause(ctx, "startup"); err != nil {
			return fmt.Errorf("failed to pause publishing at startup: %w", err)
		}
	}

	monitor, err := stale.NewMonitor(be.store, be.dispatcher, log, cfg.Approval.StaleThreshold())
	if err != nil {
		return fmt.Errorf("failed to create stale monitor: %w", err)
	}

	log.Info("copydesk serving",
		"storage", cfg.Storage.Driver,
		"tick_interval", cfg.Publish.TickInterval().String(),
		"sweep_interval", cfg.Approval.SweepInterval().String(),
		"start_paused", cfg.Publish.StartPaused)

	go monitor.Run(ctx, cfg.Approval.SweepInterval())
	be.scheduler.Run(ctx, cfg.Publish.TickInterval())

	// Let in-flight channel notifications drain before exiting.
	be.dispatcher.Wait()
	log.Info("copydesk stopped")
	return nil
}

// backend bundles the wired runtime components shared by the commands.
type backend struct {
	store      store.Store
	dispatcher *notify.Dispatcher
	machine    *approval.Machine
	scheduler  *publish.Scheduler
}

// newBackend wires the store, event bus, notification channels, rate
// limiter, approval machine, and publish scheduler from the loaded config.
func newBackend(ctx context.Context, cfg *config.Config, log *logging.Logger) (*backend, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	bus := event.NewBus(
		event.WithQueueCapacity(cfg.Events.QueueCapacity),
		event.WithMaxSubscribers(cfg.Events.MaxSubscribers),
	)
	dispatcher := notify.NewDispatcher(bus, log)
	dispatcher.Register(notify.NewLogChannel(log))
	if cfg.Notifications.Telegram.Enabled {
		tg, err := notify.NewTelegramChannel(cfg.Notifications.Telegram.Token, cfg.Notifications.Telegram.ChatID)
		if err != nil {
			return nil, fmt.Errorf("failed to create telegram channel: %w", err)
		}
		dispatcher.Register(tg)
		log.Info("telegram notifications enabled", "chat_id", cfg.Notifications.Telegram.ChatID)
	}

	limiter, err := limiterFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	machine, err := approval.NewMachine(approval.Config{
		Store:            st,
		Notifier:         dispatcher,
		Logger:           log,
		MaxRegenerations: cfg.Pipeline.MaxRegenerations,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create approval machine: %w", err)
	}

	platforms := platform.NewRegistry()
	recoverer, err := recovery.NewCoordinator(st, platforms, dispatcher, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create recovery coordinator: %w", err)
	}

	scheduler, err := publish.NewScheduler(publish.Config{
		Store:     st,
		Machine:   machine,
		Limiter:   limiter,
		Platforms: platforms,
		Recoverer: recoverer,
		Notifier:  dispatcher,
		Logger:    log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &backend{
		store:      st,
		dispatcher: dispatcher,
		machine:    machine,
		scheduler:  scheduler,
	}, nil
}

// openStore selects the persistence driver from config.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		st, err := store.NewPostgresStore(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return st, nil
	default:
		return store.NewMemoryStore(), nil
	}
}

// limiterFromConfig builds the rate limiter from the configured
// per-platform budgets.
func limiterFromConfig(cfg *config.Config) (*ratelimit.Limiter, error) {
	rules := make(map[string]ratelimit.Rule, len(cfg.Publish.RateLimits))
	for name, rl := range cfg.Publish.RateLimits {
		rules[name] = ratelimit.Rule{MaxCalls: rl.MaxCalls, Window: rl.Window()}
	}
	limiter, err := ratelimit.New(rules)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}
	return limiter, nil
}
