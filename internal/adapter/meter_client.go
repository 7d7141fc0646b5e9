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

	"golang.org/x/time/rate"

	apperrors "github.com/home-ledger/internal/errors"
	"github.com/home-ledger/internal/models"
	"github.com/home-ledger/internal/retry"
	"github.com/home-ledger/internal/types"
)

const providerMeter = "meter"

// MeterClient pulls half-hourly consumption from the smart-meter vendor API.
// The API is keyed per household; readings arrive with a lag of up to a day,
// so callers re-pull a trailing window rather than only new intervals.
type MeterClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	retry   *retry.RetryConfig
}

// NewMeterClient creates a smart-meter API client.
func NewMeterClient(apiKey, baseURL string) *MeterClient {
	return &MeterClient{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(1), 2),
		retry:   retry.DefaultRetryConfig(),
	}
}

// meterReading is the vendor's representation of one interval
type meterReading struct {
	IntervalStart string  `json:"interval_start"`
	Consumption   float64 `json:"consumption"`
}

type meterResponse struct {
	Results []meterReading `json:"results"`
	Next    string         `json:"next"`
}

// FetchConsumption returns half-hourly readings for a fuel between from and
// to, following the vendor's pagination. Readings are tagged with the given
// user so they can go straight into the readings store.
func (c *MeterClient) FetchConsumption(ctx context.Context, userID string, fuel types.Fuel, from, to time.Time) ([]models.EnergyReading, error) {
	if c.apiKey == "" {
		return nil, apperrors.NewInternalError("meter API key not configured", nil)
	}
	if !from.Before(to) {
		return nil, apperrors.NewInvalidParameterError("from", "must be before to")
	}

	query := url.Values{}
	query.Set("period_from", from.UTC().Format(time.RFC3339))
	query.Set("period_to", to.UTC().Format(time.RFC3339))
	query.Set("page_size", "1500")
	pageURL := fmt.Sprintf("%s/consumption/%s?%s", c.baseURL, url.PathEscape(string(fuel)), query.Encode())

	var readings []models.EnergyReading
	for pageURL != "" {
		page, err := c.fetchPageWithRetry(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		for _, r := range page.Results {
			readAt, err := parseMeterTime(r.IntervalStart)
			if err != nil {
				continue // skip malformed intervals rather than failing the pull
			}
			readings = append(readings, models.EnergyReading{
				UserID:         userID,
				Fuel:           fuel,
				ReadAt:         readAt,
				ConsumptionKWh: r.Consumption,
				Source:         types.ReadingSourceSmartMeter,
			})
		}
		pageURL = page.Next
	}
	return readings, nil
}

// fetchPageWithRetry retries transient vendor failures with backoff.
// Auth rejections and malformed responses fail immediately.
func (c *MeterClient) fetchPageWithRetry(ctx context.Context, pageURL string) (*meterResponse, error) {
	var page *meterResponse
	var permanent error
	result := retry.WithExponentialBackoff(ctx, c.retry, func(ctx context.Context, attempt int) error {
		p, err := c.fetchPage(ctx, pageURL)
		if err != nil {
			if !apperrors.IsRetryable(err) {
				permanent = err
				return nil
			}
			return err
		}
		page = p
		return nil
	})
	if permanent != nil {
		return nil, permanent
	}
	if !result.Success {
		return nil, result.LastError
	}
	return page, nil
}

func (c *MeterClient) fetchPage(ctx context.Context, pageURL string) (*meterResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create meter request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, "")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.NewProviderUnavailableError(providerMeter)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, apperrors.NewProviderError(providerMeter, err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, apperrors.NewProviderError(providerMeter,
			fmt.Errorf("authentication rejected (status %d)", resp.StatusCode))
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, apperrors.NewProviderUnavailableError(providerMeter)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewProviderError(providerMeter,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var parsed meterResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperrors.NewProviderError(providerMeter, fmt.Errorf("failed to parse response: %w", err))
	}
	return &parsed, nil
}

// parseMeterTime handles the vendor's interval timestamps, which come back
// in RFC3339 with or without sub-second precision.
func parseMeterTime(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.999999999Z0700", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}
