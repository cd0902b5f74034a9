// Package telegram sends task result notifications through the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fgeck/cms-backup/internal/models"
	"github.com/rs/zerolog"
)

// Service defines the interface for Telegram notification operations.
type Service interface {
	SendNotification(ctx context.Context, cfg models.TelegramConfig, msg models.TelegramMessage) (*models.TelegramResult, error)
}

// HTTPClient allows mocking HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Impl implements the Telegram Service interface.
type Impl struct {
	httpClient HTTPClient
	logger     zerolog.Logger
	baseURL    string
}

// New creates a new Telegram service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:  logger,
		baseURL: "https://api.telegram.org",
	}
}

// NewWithClient creates a new Telegram service with a custom HTTP client (for testing).
func NewWithClient(logger zerolog.Logger, httpClient HTTPClient, baseURL string) *Impl {
	return &Impl{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
	}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendNotification posts msg to the configured chat. Delivery problems are
// reported in the result, never as an error, so they cannot fail a task.
func (s *Impl) SendNotification(ctx context.Context, cfg models.TelegramConfig, msg models.TelegramMessage) (*models.TelegramResult, error) {
	result := &models.TelegramResult{}

	s.logger.Debug().
		Str("chat_id", cfg.ChatID).
		Str("task", msg.Task).
		Bool("success", msg.Success).
		Msg("sending Telegram notification")

	body, err := json.Marshal(sendMessageRequest{
		ChatID:    cfg.ChatID,
		Text:      s.formatMessage(msg),
		ParseMode: "HTML",
	})
	if err != nil {
		result.Error = fmt.Errorf("failed to marshal request: %w", err)
		return result, nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, cfg.BotToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		result.Error = fmt.Errorf("failed to create request: %w", err)
		return result, nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		result.Error = fmt.Errorf("failed to send request: %w", err)
		return result, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		result.Error = fmt.Errorf("telegram API returned status %d", resp.StatusCode)
		return result, nil
	}

	result.MessageSent = true
	return result, nil
}

func (s *Impl) formatMessage(msg models.TelegramMessage) string {
	var b strings.Builder

	title := "Backup"
	if msg.Task == models.TaskCleanup {
		title = "Cleanup"
	}
	if msg.Success {
		fmt.Fprintf(&b, "✅ <b>%s Successful</b>\n\n", title)
	} else {
		fmt.Fprintf(&b, "❌ <b>%s Failed</b>\n\n", title)
	}

	fmt.Fprintf(&b, "🖥 <b>Host:</b> %s\n", escapeHTML(msg.Host))
	fmt.Fprintf(&b, "☁️ <b>Storage:</b> %s\n", escapeHTML(msg.Storage))
	fmt.Fprintf(&b, "⏰ <b>Started:</b> %s\n", msg.StartTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "⏱ <b>Duration:</b> %s\n", msg.Duration.Round(time.Second))

	if len(msg.Artifacts) > 0 {
		b.WriteString("\n<b>📦 Uploaded:</b>\n")
		for _, a := range msg.Artifacts {
			fmt.Fprintf(&b, "  • <code>%s</code>\n", escapeHTML(a))
		}
	}

	if msg.Task == models.TaskCleanup && msg.Success {
		b.WriteString("\n<b>🗑 Retention:</b>\n")
		fmt.Fprintf(&b, "  • Backups listed: %d\n", msg.BackupsListed)
		fmt.Fprintf(&b, "  • Backups deleted: %d\n", msg.BackupsDeleted)
	}

	if !msg.Success {
		b.WriteString("\n<b>⚠️ Error Details:</b>\n")
		fmt.Fprintf(&b, "  • Failed step: %s\n", escapeHTML(msg.FailedStep))
		fmt.Fprintf(&b, "  • Error: <code>%s</code>\n", escapeHTML(msg.ErrorMessage))
	}

	return b.String()
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// escapeHTML escapes the characters Telegram's HTML parse mode reserves.
func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
