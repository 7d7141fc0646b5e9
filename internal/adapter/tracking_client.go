// Package adapter provides clients for third-party provider APIs.
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/home-ledger/internal/errors"
	"github.com/home-ledger/internal/quota"
	"github.com/home-ledger/internal/types"
)

// providerTracking is the quota bucket name for the tracking API
const providerTracking = "tracking"

// TrackingClient fetches parcel status from the tracking provider's v4 API.
// The free tier allows a small daily request budget, so every call is
// metered through the shared quota tracker.
type TrackingClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	quota   *quota.Tracker
}

// NewTrackingClient creates a new tracking API client. The quota tracker
// may be nil, in which case calls are not metered.
func NewTrackingClient(apiKey, baseURL string, quotaTracker *quota.Tracker) *TrackingClient {
	// Free tier: 2 requests per second
	return &TrackingClient{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(2), 2),
		quota:   quotaTracker,
	}
}

// trackingInfo is the provider's representation of one tracking
type trackingInfo struct {
	TrackingNumber string          `json:"tracking_number"`
	CourierCode    string          `json:"courier_code"`
	DeliveryStatus string          `json:"delivery_status"`
	LatestEvent    string          `json:"latest_event"`
	ScheduledDate  string          `json:"scheduled_delivery_date"`
	DeliveredDate  string          `json:"delivery_date"`
	OriginInfo     *trackingOrigin `json:"origin_info"`
}

type trackingOrigin struct {
	Trackinfo []trackingEvent `json:"trackinfo"`
}

// trackingEvent is one scan in the provider's event list
type trackingEvent struct {
	CheckpointDate   string `json:"checkpoint_date"`
	Description      string `json:"tracking_detail"`
	Location         string `json:"location"`
	CheckpointStatus string `json:"checkpoint_delivery_status"`
}

type trackingResponse struct {
	Meta struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"meta"`
	Data json.RawMessage `json:"data"`
}

// TrackingUpdate is the normalized result of a provider poll
type TrackingUpdate struct {
	TrackingNumber string
	Status         types.TrackingStatus
	LatestEvent    string
	ExpectedDate   *time.Time
	DeliveredAt    *time.Time
	Events         []TrackingEventUpdate
}

// TrackingEventUpdate is one normalized scan event
type TrackingEventUpdate struct {
	OccurredAt  time.Time
	Status      types.TrackingStatus
	Description string
	Location    string
}

// statusMap translates the provider's delivery status vocabulary into the
// normalized set. Anything missing maps to unknown.
var statusMap = map[string]types.TrackingStatus{
	"pending":        types.StatusPending,
	"notfound":       types.StatusPending,
	"inforeceived":   types.StatusPending,
	"transit":        types.StatusInTransit,
	"pickup":         types.StatusOutForDelivery,
	"delivered":      types.StatusDelivered,
	"undelivered":    types.StatusException,
	"exception":      types.StatusException,
	"expired":        types.StatusException,
}

// NormalizeStatus maps a provider status string onto the fixed enum
func NormalizeStatus(providerStatus string) types.TrackingStatus {
	if status, ok := statusMap[strings.ToLower(strings.TrimSpace(providerStatus))]; ok {
		return status
	}
	return types.StatusUnknown
}

// Register creates a tracking on the provider so subsequent polls return data
func (c *TrackingClient) Register(ctx context.Context, trackingNumber, carrier string) error {
	if c.apiKey == "" {
		return apperrors.NewInternalError("tracking API key not configured", nil)
	}

	if err := c.consume(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]string{
		"tracking_number": trackingNumber,
		"courier_code":    carrier,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal tracking request: %w", err)
	}

	body, err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/trackings/create", payload)
	if err != nil {
		return err
	}

	var resp trackingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return apperrors.NewProviderError(providerTracking, fmt.Errorf("failed to parse response: %w", err))
	}

	// 4016 means the tracking already exists, which is fine for re-registration
	if resp.Meta.Code != 200 && resp.Meta.Code != 4016 {
		return apperrors.NewProviderError(providerTracking,
			fmt.Errorf("API error %d: %s", resp.Meta.Code, resp.Meta.Message))
	}

	return nil
}

// Fetch polls the provider for the current state of a tracking
func (c *TrackingClient) Fetch(ctx context.Context, trackingNumber, carrier string) (*TrackingUpdate, error) {
	if c.apiKey == "" {
		return nil, apperrors.NewInternalError("tracking API key not configured", nil)
	}

	if err := c.consume(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/trackings/get?tracking_numbers=%s&courier_code=%s",
		c.baseURL, trackingNumber, carrier)

	body, err := c.doRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var resp trackingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.NewProviderError(providerTracking, fmt.Errorf("failed to parse response: %w", err))
	}

	if resp.Meta.Code != 200 {
		return nil, apperrors.NewProviderError(providerTracking,
			fmt.Errorf("API error %d: %s", resp.Meta.Code, resp.Meta.Message))
	}

	var infos []trackingInfo
	if err := json.Unmarshal(resp.Data, &infos); err != nil {
		return nil, apperrors.NewProviderError(providerTracking, fmt.Errorf("failed to parse data: %w", err))
	}
	if len(infos) == 0 {
		return nil, apperrors.NewNotFoundError("tracking", trackingNumber)
	}

	return normalizeInfo(&infos[0]), nil
}

func normalizeInfo(info *trackingInfo) *TrackingUpdate {
	update := &TrackingUpdate{
		TrackingNumber: info.TrackingNumber,
		Status:         NormalizeStatus(info.DeliveryStatus),
		LatestEvent:    info.LatestEvent,
		ExpectedDate:   parseProviderDate(info.ScheduledDate),
		DeliveredAt:    parseProviderDate(info.DeliveredDate),
	}

	if info.OriginInfo != nil {
		for _, ev := range info.OriginInfo.Trackinfo {
			occurred := parseProviderDate(ev.CheckpointDate)
			if occurred == nil {
				continue
			}
			update.Events = append(update.Events, TrackingEventUpdate{
				OccurredAt:  *occurred,
				Status:      NormalizeStatus(ev.CheckpointStatus),
				Description: ev.Description,
				Location:    ev.Location,
			})
		}
	}

	return update
}

// parseProviderDate handles the provider's date formats, returning nil for
// empty or unparseable values.
func parseProviderDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	formats := []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return &t
		}
	}
	return nil
}

func (c *TrackingClient) consume(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	if c.quota != nil {
		if err := c.quota.TryConsume(ctx, providerTracking, 1); err != nil {
			return err
		}
	}
	return nil
}

func (c *TrackingClient) doRequest(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Tracking-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.NewProviderUnavailableError(providerTracking)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewProviderError(providerTracking, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperrors.NewProviderUnavailableError(providerTracking)
	}
	if resp.StatusCode >= 500 {
		return nil, apperrors.NewProviderUnavailableError(providerTracking)
	}
	if resp.StatusCode >= 400 {
		return nil, apperrors.NewProviderError(providerTracking,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	return body, nil
}
