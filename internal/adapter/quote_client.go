package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	apperrors "github.com/home-ledger/internal/errors"
)

const providerQuote = "quote"

// Quote is one normalized market quote. Price is always in the major
// currency unit (pounds, dollars); pence quotes are converted on the way in.
type Quote struct {
	Symbol    string
	Price     decimal.Decimal
	Currency  string
	FetchedAt time.Time
}

// QuoteClient fetches market prices from a Yahoo-style chart endpoint.
type QuoteClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	now     func() time.Time
}

// NewQuoteClient creates a quote client against the given base URL.
func NewQuoteClient(baseURL string) *QuoteClient {
	return &QuoteClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(2), 4),
		now:     time.Now,
	}
}

// chartResponse mirrors the chart endpoint's envelope. Only the meta block
// is needed for a latest-price lookup.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string  `json:"currency"`
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchQuote returns the latest price for a symbol. Quotes reported in
// GBp or GBX are pence and are divided by 100, with the currency
// normalized to GBP.
func (c *QuoteClient) FetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, apperrors.NewInvalidParameterError("symbol", "must not be empty")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d", c.baseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create quote request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "home-ledger/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.NewProviderUnavailableError(providerQuote)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperrors.NewProviderError(providerQuote, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.NewNotFoundError("quote", symbol)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, apperrors.NewProviderUnavailableError(providerQuote)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewProviderError(providerQuote,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var parsed chartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperrors.NewProviderError(providerQuote, fmt.Errorf("failed to parse response: %w", err))
	}
	if parsed.Chart.Error != nil {
		return nil, apperrors.NewProviderError(providerQuote,
			fmt.Errorf("%s: %s", parsed.Chart.Error.Code, parsed.Chart.Error.Description))
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, apperrors.NewNotFoundError("quote", symbol)
	}

	meta := parsed.Chart.Result[0].Meta
	price := decimal.NewFromFloat(meta.RegularMarketPrice)
	currency := meta.Currency
	if isPenceCurrency(currency) {
		price = price.Div(decimal.NewFromInt(100))
		currency = "GBP"
	}

	return &Quote{
		Symbol:    symbol,
		Price:     price,
		Currency:  currency,
		FetchedAt: c.now().UTC(),
	}, nil
}

// isPenceCurrency reports whether the currency code denotes pence sterling.
// "GBp" is distinguished from "GBP" by case alone.
func isPenceCurrency(currency string) bool {
	currency = strings.TrimSpace(currency)
	return currency == "GBp" || strings.EqualFold(currency, "GBX")
}
