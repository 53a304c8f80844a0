package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/nanopos/src/logger"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const apiKeyHeader = "x-cg-demo-api-key"

// coinGeckoCoinResponse covers both /coins/{id} and /coins/{id}/history.
// MarketData is nil for days before the coin was listed.
type coinGeckoCoinResponse struct {
	ID         string `json:"id"`
	MarketData *struct {
		CurrentPrice map[string]decimal.Decimal `json:"current_price"`
	} `json:"market_data"`
}

// PriceServiceOptions configures the CoinGecko client.
type PriceServiceOptions struct {
	BaseURL       string
	APIKey        string
	CoinID        string
	Timeout       time.Duration
	RatePerMinute int
	HTTPClient    *http.Client // overrides Timeout when set
}

// priceServiceImpl implements PriceService against the CoinGecko REST API.
type priceServiceImpl struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	apiKey     string
	coinID     string
}

// NewPriceService creates a CoinGecko client. Outgoing calls share one rate
// limiter so a burst of historical lookups stays under the provider quota.
func NewPriceService(opts PriceServiceOptions) PriceService {
	client := opts.HTTPClient
	if client == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			logger.L.Error("Failed to create cookie jar", "error", err)
		}
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		client = &http.Client{Jar: jar, Timeout: timeout}
	}

	perMinute := opts.RatePerMinute
	if perMinute <= 0 {
		perMinute = 25
	}
	coin := opts.CoinID
	if coin == "" {
		coin = "nano"
	}

	return &priceServiceImpl{
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		coinID:     coin,
	}
}

// CurrentPrice returns the live quote of one Nano in currency.
func (s *priceServiceImpl) CurrentPrice(ctx context.Context, currency string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("localization", "false")
	q.Set("tickers", "false")
	q.Set("market_data", "true")
	q.Set("community_data", "false")
	q.Set("developer_data", "false")
	q.Set("sparkline", "false")
	return s.fetch(ctx, fmt.Sprintf("%s/coins/%s?%s", s.baseURL, url.PathEscape(s.coinID), q.Encode()), currency)
}

// HistoricalPrice returns the quote of one Nano in currency on date
// (dd-mm-yyyy).
func (s *priceServiceImpl) HistoricalPrice(ctx context.Context, currency, date string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("date", date)
	q.Set("localization", "false")
	return s.fetch(ctx, fmt.Sprintf("%s/coins/%s/history?%s", s.baseURL, url.PathEscape(s.coinID), q.Encode()), currency)
}

func (s *priceServiceImpl) fetch(ctx context.Context, endpoint, currency string) (decimal.Decimal, error) {
	currency = strings.ToLower(currency)
	if err := s.limiter.Wait(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("%w: rate limiter: %v", ErrPriceUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set(apiKeyHeader, s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: request failed: %v", ErrPriceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Zero, fmt.Errorf("%w: provider returned status %d: %s", ErrPriceUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var coin coinGeckoCoinResponse
	if err := json.NewDecoder(resp.Body).Decode(&coin); err != nil {
		return decimal.Zero, fmt.Errorf("%w: decoding provider response: %v", ErrPriceUnavailable, err)
	}
	if coin.MarketData == nil {
		return decimal.Zero, fmt.Errorf("%w: no market data", ErrPriceUnavailable)
	}
	price, ok := coin.MarketData.CurrentPrice[currency]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no quote for currency %q", ErrPriceUnavailable, currency)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: non-positive quote %s for %q", ErrPriceUnavailable, price, currency)
	}
	logger.L.Debug("Price fetched", "currency", currency, "price", price.String())
	return price, nil
}
