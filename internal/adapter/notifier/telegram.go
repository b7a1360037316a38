// Package notifier reports backup results to chat channels.
package notifier

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/semmidev/zkbackup/internal/domain"
)

// Sender is the part of *tgbotapi.BotAPI used to deliver messages.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramOptions struct {
	BotToken string
	ChatID   int64

	// OnSuccess also reports successful runs; failures are always reported.
	OnSuccess bool

	// Endpoint overrides tgbotapi.APIEndpoint.
	Endpoint string
	Client   tgbotapi.HTTPClient
}

type Telegram struct {
	bot       Sender
	chatID    int64
	onSuccess bool
}

func NewTelegram(opts TelegramOptions) (*Telegram, error) {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	bot, err := tgbotapi.NewBotAPIWithClient(opts.BotToken, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return NewTelegramWithSender(bot, opts.ChatID, opts.OnSuccess), nil
}

func NewTelegramWithSender(bot Sender, chatID int64, onSuccess bool) *Telegram {
	return &Telegram{bot: bot, chatID: chatID, onSuccess: onSuccess}
}

func (t *Telegram) Notify(ctx context.Context, result domain.Result) error {
	if result.OK() && !t.onSuccess {
		return nil
	}

	msg := tgbotapi.NewMessage(t.chatID, FormatResult(result))
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	return nil
}

// FormatResult renders result as a plain-text chat message.
func FormatResult(result domain.Result) string {
	var b strings.Builder

	if result.OK() {
		b.WriteString("✅ ZooKeeper Snapshot Backup Succeeded\n\n")
		fmt.Fprintf(&b, "📁 Key: %s\n", result.Key)
		fmt.Fprintf(&b, "🗑 Pruned: %d\n", result.Pruned)
	} else {
		b.WriteString("❌ ZooKeeper Snapshot Backup Failed\n\n")
		fmt.Fprintf(&b, "⚠️ Kind: %s\n", result.Kind)
		fmt.Fprintf(&b, "💬 %s\n", result.Body)
	}
	if result.InvocationID != "" {
		fmt.Fprintf(&b, "🆔 Invocation: %s\n", result.InvocationID)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(&b, "⚠️ %s\n", w)
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Nop discards every result.
type Nop struct{}

func (Nop) Notify(context.Context, domain.Result) error { return nil }
