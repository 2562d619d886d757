package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stockpulse/internal/alert"
)

// Notification carries one triggered rule to the sinks.
type Notification struct {
	Rule    alert.AlertRule
	Quote   alert.Quote
	Result  alert.Result
	Message string
	At      time.Time
}

// NewNotification builds the notification for a triggered rule.
func NewNotification(rule alert.AlertRule, q alert.Quote, res alert.Result, at time.Time) Notification {
	return Notification{
		Rule:    rule,
		Quote:   q,
		Result:  res,
		Message: alert.FormatMessage(rule, q),
		At:      at,
	}
}

// Notifier delivers a notification to one sink.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier sends messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier configures a Telegram sink.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify calls sendMessage with the rendered text.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram status: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().Str("symbol", note.Rule.Symbol).
		Str("alert_type", string(note.Rule.Type)).
		Msg("alert sent (telegram)")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString(note.Message)
	builder.WriteString("\n")
	builder.WriteString(fmt.Sprintf("Type: %s, target %s$\n", note.Rule.Type, note.Result.Target.String()))
	if note.Result.DistancePct.Valid {
		builder.WriteString(fmt.Sprintf("Distance: %s%%\n", note.Result.DistancePct.Decimal.StringFixed(1)))
	}
	builder.WriteString(fmt.Sprintf("Volume: %d", note.Quote.Volume))
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
