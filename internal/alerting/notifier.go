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
	"github.com/shopspring/decimal"

	"etf-tracker/internal/pricing"
)

// Notification 封装一次区间提醒的上下文。
type Notification struct {
	Code           string
	Name           string
	PositionID     string
	Reason         string
	RangeType      pricing.RangeLabel
	CurrentPrice   decimal.Decimal
	ReferencePrice decimal.Decimal
	ChangePct      decimal.Decimal
	Levels         pricing.LevelSet
	TriggeredAt    time.Time
}

// Notifier 定义提醒输送接口。
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 提醒器。
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

// Notify 调用 sendMessage API 推送文本。
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
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}

	n.logger.Info().Str("code", note.Code).
		Str("range", string(note.RangeType)).
		Str("reason", note.Reason).
		Msg("提醒已发送 (Telegram)")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[ETF Band Alert]\n")
	builder.WriteString(fmt.Sprintf("ETF: %s (%s)\n", note.Name, note.Code))
	builder.WriteString(fmt.Sprintf("Range: %s (%s)\n", note.RangeType, note.Reason))
	builder.WriteString(fmt.Sprintf("Current: %s\n", note.CurrentPrice.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Reference: %s (%s%%)\n", note.ReferencePrice.StringFixed(2), note.ChangePct.StringFixed(2)))
	switch note.RangeType {
	case pricing.RangeUpper:
		builder.WriteString(fmt.Sprintf("Band: %s ~ %s\n", note.Levels.Plus3.StringFixed(2), note.Levels.Plus5.StringFixed(2)))
	case pricing.RangeLower:
		builder.WriteString(fmt.Sprintf("Band: %s ~ %s\n", note.Levels.Minus5.StringFixed(2), note.Levels.Minus3.StringFixed(2)))
	}
	builder.WriteString(fmt.Sprintf("Time: %s UTC\n", note.TriggeredAt.UTC().Format(time.RFC3339)))
	if note.PositionID != "" {
		builder.WriteString(fmt.Sprintf("Position: %s\n", note.PositionID))
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
