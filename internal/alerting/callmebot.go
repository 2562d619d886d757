package alerting

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// CallMeBotNotifier sends WhatsApp messages through the CallMeBot gateway.
type CallMeBotNotifier struct {
	phone   string
	apiKey  string
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewCallMeBotNotifier configures the WhatsApp sink.
func NewCallMeBotNotifier(phone, apiKey, baseURL string, timeout time.Duration, logger zerolog.Logger) *CallMeBotNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.callmebot.com"
	}
	return &CallMeBotNotifier{
		phone:   phone,
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "alert_callmebot").Logger(),
	}
}

// Notify issues a single GET; the gateway answers 200 on acceptance.
func (n *CallMeBotNotifier) Notify(ctx context.Context, note Notification) error {
	query := url.Values{}
	query.Set("phone", n.phone)
	query.Set("text", note.Message)
	query.Set("apikey", n.apiKey)

	endpoint := n.baseURL + "/whatsapp.php?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create callmebot request: %w", err)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send callmebot request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callmebot status: %d", resp.StatusCode)
	}

	n.logger.Info().Str("symbol", note.Rule.Symbol).Msg("alert sent (whatsapp)")
	return nil
}

var _ Notifier = (*CallMeBotNotifier)(nil)
