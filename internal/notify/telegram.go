// Package notify tells the listing agent about call activity through a
// Telegram bot.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"homekeys/server/internal/models"

	"github.com/sirupsen/logrus"
)

const DefaultBaseURL = "https://api.telegram.org"

type Options struct {
	BotToken string
	ChatID   string
	BaseURL  string
	Timeout  time.Duration
}

type Service struct {
	logger *logrus.Logger
	client *http.Client
	opts   Options
}

func NewService(logger *logrus.Logger, opts Options) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Service{
		logger: logger,
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		opts: opts,
	}
}

// Enabled reports whether both the bot token and the chat id are set
func (s *Service) Enabled() bool {
	return s.opts.BotToken != "" && s.opts.ChatID != ""
}

// SendMessage sends an HTML message to the configured chat
func (s *Service) SendMessage(ctx context.Context, message string) error {
	if s.opts.BotToken == "" {
		return errors.New("telegram bot token is not configured")
	}
	if s.opts.ChatID == "" {
		return errors.New("telegram chat ID is not configured")
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.opts.BaseURL, s.opts.BotToken)
	payload := map[string]interface{}{
		"chat_id":    s.opts.ChatID,
		"text":       message,
		"parse_mode": "HTML",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message to Telegram API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return errors.New("invalid bot token")
		case http.StatusBadRequest:
			return fmt.Errorf("invalid chat ID or message format: %s", string(body))
		case http.StatusForbidden:
			return errors.New("bot was blocked by the user or chat")
		case http.StatusNotFound:
			return errors.New("bot not found")
		default:
			return fmt.Errorf("telegram API error (status %d): %s", resp.StatusCode, string(body))
		}
	}

	return nil
}

// FormatCall renders the agent alert for an accepted call
func FormatCall(event models.CallEvent) string {
	var b strings.Builder
	b.WriteString("<b>📞 Buyer call started</b>\n\n")
	fmt.Fprintf(&b, "☎️ %s\n", html.EscapeString(event.Phone))
	if event.Outcome.CallID != "" {
		fmt.Fprintf(&b, "🆔 <code>%s</code>\n", html.EscapeString(event.Outcome.CallID))
	}
	if event.SessionID != "" {
		fmt.Fprintf(&b, "🧭 Session <code>%s</code>\n", html.EscapeString(event.SessionID))
	}
	fmt.Fprintf(&b, "🕒 %s", event.At.UTC().Format(time.RFC1123))
	return b.String()
}

// HandleCallEvent is a queue subscriber. Only accepted calls are announced;
// delivery problems are logged, not returned.
func (s *Service) HandleCallEvent(event models.CallEvent) error {
	if !s.Enabled() || !event.Outcome.Accepted {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
	defer cancel()

	if err := s.SendMessage(ctx, FormatCall(event)); err != nil {
		s.logger.WithError(err).WithField("call_id", event.Outcome.CallID).Error("Failed to send call notification")
		return nil
	}
	s.logger.WithField("call_id", event.Outcome.CallID).Info("Sent call notification")
	return nil
}
