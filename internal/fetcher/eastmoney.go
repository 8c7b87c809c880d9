package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	quotePath   = "/api/qt/stock/get"
	quoteFields = "f43,f57,f58"
)

var (
	dec1000 = decimal.NewFromInt(1000)

	// sanity window for fund prices; anything outside is a parse artefact
	minSanePrice = decimal.RequireFromString("0.01")
	maxSanePrice = decimal.NewFromInt(10000)
)

// EastMoneyOptions parameterise the EastMoney quote client.
type EastMoneyOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// Delay is slept before each request to stay under rate limits.
	Delay time.Duration
}

// EastMoney fetches fund quotes from the EastMoney push2 API.
type EastMoney struct {
	opts    EastMoneyOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewEastMoney constructs an EastMoney quote fetcher.
func NewEastMoney(opts EastMoneyOptions, logger zerolog.Logger) *EastMoney {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://push2.eastmoney.com"
	}

	return &EastMoney{
		opts:    opts,
		logger:  logger.With().Str("component", "quote_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchQuote retrieves the current price for a code such as SZ159915, SH510300,
// or a bare US ticker. The f43 field arrives scaled by 1000.
func (f *EastMoney) FetchQuote(ctx context.Context, code string) (Quote, error) {
	secID, err := secID(code)
	if err != nil {
		return Quote{}, err
	}

	if f.opts.Delay > 0 {
		timer := time.NewTimer(f.opts.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Quote{}, ctx.Err()
		case <-timer.C:
		}
	}

	query := url.Values{}
	query.Set("secid", secID)
	query.Set("fields", quoteFields)

	endpoint := f.baseURL + quotePath + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(f.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Quote{}, err
	}
	defer resp.Body.Close()

	payloadBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return Quote{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("eastmoney api error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payloadBytes)))
	}

	var quoteRes quoteResponse
	if err := json.Unmarshal(payloadBytes, &quoteRes); err != nil {
		return Quote{}, fmt.Errorf("decode quote response: %w", err)
	}

	if quoteRes.RC != 0 {
		msg := quoteRes.RTMessage
		if msg == "" {
			msg = "unknown error"
		}
		return Quote{}, fmt.Errorf("eastmoney api error: rc=%d %s", quoteRes.RC, msg)
	}
	if quoteRes.Data == nil {
		return Quote{}, errors.New("eastmoney response carries no data")
	}

	raw := quoteRes.Data.Price.String()
	if raw == "" || raw == "-" {
		return Quote{}, errors.New("quote has no current price")
	}

	scaled, err := decimal.NewFromString(raw)
	if err != nil {
		return Quote{}, fmt.Errorf("parse price %q: %w", raw, err)
	}
	price := scaled.Div(dec1000)

	if price.LessThan(minSanePrice) || price.GreaterThan(maxSanePrice) {
		return Quote{}, fmt.Errorf("price %s outside sane range", price)
	}

	name := quoteRes.Data.Name
	if name == "" {
		name = code
	}

	f.logger.Debug().Str("code", code).Str("price", price.String()).Msg("quote fetched")

	return Quote{Code: code, Name: name, Price: price}, nil
}

type quoteResponse struct {
	RC        int           `json:"rc"`
	RTMessage string        `json:"rtmessage"`
	Data      *quotePayload `json:"data"`
}

type quotePayload struct {
	Price json.Number `json:"f43"`
	Code  string      `json:"f57"`
	Name  string      `json:"f58"`
}

// secID maps an instrument code to the EastMoney market-prefixed identifier:
// 0 for Shenzhen, 1 for Shanghai, 107 for US tickers.
func secID(code string) (string, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "", errors.New("instrument code is empty")
	}

	upper := strings.ToUpper(trimmed)
	switch {
	case strings.HasPrefix(upper, "SZ"):
		return "0." + upper[2:], nil
	case strings.HasPrefix(upper, "SH"):
		return "1." + upper[2:], nil
	case isLetters(upper):
		return "107." + upper, nil
	default:
		return "0." + upper, nil
	}
}

func isLetters(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return len(s) > 0
}

var _ QuoteFetcher = (*EastMoney)(nil)
