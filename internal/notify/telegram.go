package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/copydesk/copydesk/internal/event"
)

// TelegramChannel posts event summaries to an operator chat.
type TelegramChannel struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramChannel creates a channel from a bot token and target chat.
func NewTelegramChannel(token string, chatID int64) (*TelegramChannel, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: creating bot: %w", err)
	}
	return &TelegramChannel{bot: bot, chatID: chatID}, nil
}

// Name implements Channel.
func (t *TelegramChannel) Name() string { return "telegram" }

// Notify implements Channel.
func (t *TelegramChannel) Notify(_ context.Context, e event.Event) error {
	msg := tgbotapi.NewMessage(t.chatID, formatEvent(e))
	_, err := t.bot.Send(msg)
	return err
}

// formatEvent renders a short operator-readable summary per event type.
func formatEvent(e event.Event) string {
	switch ev := e.(type) {
	case event.DraftStatusChangedEvent:
		return fmt.Sprintf("📋 Draft %s: %s → %s (by %s)", ev.DraftID, ev.OldStatus, ev.NewStatus, ev.Actor)
	case event.PipelineCompletedEvent:
		if ev.Passed {
			return fmt.Sprintf("✅ Draft %s passed all %d gates", ev.DraftID, ev.GatesRun)
		}
		return fmt.Sprintf("❌ Draft %s rejected at gate %s", ev.DraftID, ev.FailedGate)
	case event.PublishAttemptedEvent:
		if ev.Success {
			return fmt.Sprintf("🚀 Published draft %s to %s (post %s)", ev.DraftID, ev.Platform, ev.PlatformPostID)
		}
		return fmt.Sprintf("⚠️ Publish failed for draft %s on %s: %s", ev.DraftID, ev.Platform, ev.Error)
	case event.RecoveryCompletedEvent:
		return fmt.Sprintf("🔧 Recovery for draft %s on %s: %s", ev.DraftID, ev.Platform, ev.Status)
	case event.StaleDraftEvent:
		return fmt.Sprintf("⏰ Draft %s has been awaiting review for %.1f hours", ev.DraftID, ev.HoursStale)
	case event.PublishStateChangedEvent:
		if ev.Paused {
			return fmt.Sprintf("⏸ Publishing paused by %s", ev.Actor)
		}
		return fmt.Sprintf("▶️ Publishing resumed by %s", ev.Actor)
	default:
		return fmt.Sprintf("event: %s", e.EventType())
	}
}
