package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prg-04/uptime-decor-lights-sub000/internal/domain"
)

const defaultTelegramTimeout = 10 * time.Second

// TelegramConfig holds bot credentials for the operator notification channel.
type TelegramConfig struct {
	BotToken string
	ChatID   string
	// BaseURL overrides the Telegram API host, used in tests.
	BaseURL string
	Timeout time.Duration
}

// Telegram sends order summaries to a fixed chat through the Bot API.
type Telegram struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	const op = "notify.NewTelegram"

	if cfg.BotToken == "" || cfg.ChatID == "" {
		return nil, domain.Config(op, "telegram bot token and chat id are required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTelegramTimeout
	}

	return &Telegram{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func (t *Telegram) Notify(ctx context.Context, summary OrderSummary) error {
	const op = "notify.Telegram.Notify"

	body, err := json.Marshal(map[string]string{
		"chat_id":    t.chatID,
		"text":       formatSummary(summary),
		"parse_mode": "HTML",
	})
	if err != nil {
		return &domain.Error{Code: domain.EINTERNAL, Message: "failed to encode notification", Op: op, Err: err}
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &domain.Error{Code: domain.EINTERNAL, Message: "failed to build notification request", Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return &domain.Error{Code: domain.EINTERNAL, Message: "notification delivery failed", Op: op, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		return &domain.Error{
			Code:    domain.EINTERNAL,
			Message: fmt.Sprintf("notification delivery failed with status %d", resp.StatusCode),
			Op:      op,
		}
	}
	return nil
}

func formatSummary(s OrderSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Order %s</b>\n", s.OrderReference)
	fmt.Fprintf(&b, "Status: %s\n", s.Status)
	fmt.Fprintf(&b, "Amount: %.2f %s\n", s.Amount, s.Currency)
	if s.PaymentMethod != "" {
		fmt.Fprintf(&b, "Method: %s\n", s.PaymentMethod)
	}
	if s.ConfirmationCode != "" {
		fmt.Fprintf(&b, "Confirmation: %s\n", s.ConfirmationCode)
	}
	fmt.Fprintf(&b, "Items: %d\n", s.ItemCount)
	if s.ShippingAddress != "" {
		fmt.Fprintf(&b, "Ship to: %s\n", s.ShippingAddress)
	}
	if !s.FinalizedAt.IsZero() {
		fmt.Fprintf(&b, "Finalized: %s", s.FinalizedAt.UTC().Format(time.RFC3339))
	}
	return b.String()
}
