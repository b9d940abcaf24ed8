// Package notify delivers alerts for high-risk agent analysis.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/stfuassistant/stfu/internal/observability"
)

// Notifier sends one alert message
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Nop discards alerts
type Nop struct{}

func (Nop) Notify(ctx context.Context, text string) error { return nil }

// TelegramConfig configures the Telegram bot notifier
type TelegramConfig struct {
	BotToken string
	ChatID   string
	BaseURL  string
	Timeout  time.Duration
}

// TelegramNotifier posts alerts through the Telegram Bot API
type TelegramNotifier struct {
	config TelegramConfig
	http   *resty.Client
	logger zerolog.Logger
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NewTelegramNotifier creates a Telegram notifier
func NewTelegramNotifier(cfg TelegramConfig, logger zerolog.Logger) *TelegramNotifier {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.telegram.org"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &TelegramNotifier{
		config: cfg,
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetHeader("Content-Type", "application/json").
			SetTimeout(cfg.Timeout),
		logger: observability.Component(logger, "telegram"),
	}
}

// Notify sends text prefixed with a siren emoji
func (n *TelegramNotifier) Notify(ctx context.Context, text string) error {
	var result sendMessageResponse
	resp, err := n.http.R().
		SetContext(ctx).
		SetBody(sendMessageRequest{
			ChatID:                n.config.ChatID,
			Text:                  "🚨 " + text,
			ParseMode:             "Markdown",
			DisableWebPagePreview: true,
		}).
		SetResult(&result).
		SetError(&result).
		Post(fmt.Sprintf("/bot%s/sendMessage", n.config.BotToken))
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}

	if resp.IsError() || !result.OK {
		return fmt.Errorf("telegram sendMessage failed: HTTP %d %s", resp.StatusCode(), result.Description)
	}

	n.logger.Debug().Msg("Alert delivered")
	return nil
}
