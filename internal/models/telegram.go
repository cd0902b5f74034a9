package models

import "time"

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// TelegramMessage holds the data for a task notification.
type TelegramMessage struct {
	Success   bool
	Host      string
	Task      string
	Storage   string
	StartTime time.Time
	Duration  time.Duration

	// Uploaded artifact names (backup task).
	Artifacts []string

	// Cleanup stats.
	BackupsListed  int
	BackupsDeleted int

	// Error info (if failed).
	ErrorMessage string
	FailedStep   string
}

// TelegramResult holds the result of a Telegram notification.
type TelegramResult struct {
	MessageSent bool
	Error       error
}
