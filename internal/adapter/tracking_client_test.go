package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/home-ledger/internal/errors"
	"github.com/home-ledger/internal/types"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		provider string
		want     types.TrackingStatus
	}{
		{"pending", types.StatusPending},
		{"notfound", types.StatusPending},
		{"inforeceived", types.StatusPending},
		{"transit", types.StatusInTransit},
		{"pickup", types.StatusOutForDelivery},
		{"delivered", types.StatusDelivered},
		{"undelivered", types.StatusException},
		{"exception", types.StatusException},
		{"expired", types.StatusException},
		{"Delivered", types.StatusDelivered},
		{"  transit  ", types.StatusInTransit},
		{"something-new", types.StatusUnknown},
		{"", types.StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeStatus(tt.provider))
		})
	}
}

func TestParseProviderDate(t *testing.T) {
	got := parseProviderDate("2025-06-20 14:30:00")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2025, 6, 20, 14, 30, 0, 0, time.UTC), *got)

	got = parseProviderDate("2025-06-20")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC), *got)

	assert.Nil(t, parseProviderDate(""))
	assert.Nil(t, parseProviderDate("not a date"))
}

func TestTrackingClientFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("Tracking-Api-Key"))
		assert.Equal(t, "/trackings/get", r.URL.Path)
		assert.Equal(t, "RM123456789GB", r.URL.Query().Get("tracking_numbers"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"meta": {"code": 200, "message": "success"},
			"data": [{
				"tracking_number": "RM123456789GB",
				"courier_code": "royal-mail",
				"delivery_status": "transit",
				"latest_event": "Item received at depot",
				"scheduled_delivery_date": "2025-06-23",
				"origin_info": {
					"trackinfo": [
						{"checkpoint_date": "2025-06-20 09:15:00", "tracking_detail": "Accepted", "location": "Bristol", "checkpoint_delivery_status": "transit"},
						{"checkpoint_date": "", "tracking_detail": "no timestamp", "location": "", "checkpoint_delivery_status": "transit"}
					]
				}
			}]
		}`))
	}))
	defer server.Close()

	client := NewTrackingClient("test-key", server.URL, nil)
	update, err := client.Fetch(context.Background(), "RM123456789GB", "royal-mail")
	require.NoError(t, err)

	assert.Equal(t, "RM123456789GB", update.TrackingNumber)
	assert.Equal(t, types.StatusInTransit, update.Status)
	assert.Equal(t, "Item received at depot", update.LatestEvent)
	require.NotNil(t, update.ExpectedDate)
	assert.Equal(t, time.Date(2025, 6, 23, 0, 0, 0, 0, time.UTC), *update.ExpectedDate)
	assert.Nil(t, update.DeliveredAt)

	// the event without a parseable timestamp is dropped
	require.Len(t, update.Events, 1)
	assert.Equal(t, "Accepted", update.Events[0].Description)
	assert.Equal(t, "Bristol", update.Events[0].Location)
}

func TestTrackingClientFetchNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"meta": {"code": 200, "message": "success"}, "data": []}`))
	}))
	defer server.Close()

	client := NewTrackingClient("test-key", server.URL, nil)
	_, err := client.Fetch(context.Background(), "UNKNOWN123", "ups")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperrors.GetHTTPStatusCode(err))
}

func TestTrackingClientFetchProviderDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewTrackingClient("test-key", server.URL, nil)
	_, err := client.Fetch(context.Background(), "RM123456789GB", "royal-mail")
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))
}

func TestTrackingClientRegister(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/trackings/create", r.URL.Path)
			_, _ = w.Write([]byte(`{"meta": {"code": 200, "message": "success"}}`))
		}))
		defer server.Close()

		client := NewTrackingClient("test-key", server.URL, nil)
		require.NoError(t, client.Register(context.Background(), "1Z999AA10123456784", "ups"))
	})

	t.Run("already registered is not an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"meta": {"code": 4016, "message": "tracking already exists"}}`))
		}))
		defer server.Close()

		client := NewTrackingClient("test-key", server.URL, nil)
		require.NoError(t, client.Register(context.Background(), "1Z999AA10123456784", "ups"))
	})

	t.Run("other API error fails", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"meta": {"code": 4101, "message": "courier not supported"}}`))
		}))
		defer server.Close()

		client := NewTrackingClient("test-key", server.URL, nil)
		require.Error(t, client.Register(context.Background(), "1Z999AA10123456784", "ups"))
	})
}

func TestTrackingClientMissingKey(t *testing.T) {
	client := NewTrackingClient("", "http://localhost:1", nil)
	_, err := client.Fetch(context.Background(), "X", "ups")
	require.Error(t, err)
	assert.Error(t, client.Register(context.Background(), "X", "ups"))
}
