package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/home-ledger/internal/adapter"
	apperrors "github.com/home-ledger/internal/errors"
	"github.com/home-ledger/internal/models"
)

func newTestOrderService(t *testing.T) (*OrderService, *mockShipmentRepo) {
	t.Helper()

	repo := newMockShipmentRepo()
	svc := NewOrderService(repo, nil)
	svc.now = func() time.Time { return time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC) }
	return svc, repo
}

func TestOrderService_CreateOrder(t *testing.T) {
	svc, _ := newTestOrderService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, &CreateOrderInput{
		UserID:   "user-1",
		Retailer: "amazon.co.uk",
		Total:    decimal.RequireFromString("42.99"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderSourceManual, order.Source)
	assert.Equal(t, time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC), order.OrderedAt)
}

func TestOrderService_CreateOrder_Validation(t *testing.T) {
	svc, _ := newTestOrderService(t)
	ctx := context.Background()

	_, err := svc.CreateOrder(ctx, &CreateOrderInput{Retailer: "x"})
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.GetHTTPStatusCode(err))

	_, err = svc.CreateOrder(ctx, &CreateOrderInput{UserID: "u"})
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.GetHTTPStatusCode(err))
}

func TestOrderService_IngestReceipt(t *testing.T) {
	svc, repo := newTestOrderService(t)
	ctx := context.Background()

	total := decimal.RequireFromString("31.48")
	receivedAt := time.Date(2025, 6, 28, 9, 15, 0, 0, time.UTC)

	result, err := svc.IngestReceipt(ctx, "user-1", &adapter.ExtractedReceipt{
		Retailer: "boots.com",
		Total:    &total,
		Trackings: []adapter.ExtractedTracking{
			{TrackingNumber: "AB123456789GB", Carrier: "royal-mail"},
		},
	}, receivedAt)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, models.OrderSourceEmail, result.Order.Source)
	assert.Equal(t, "boots.com", result.Order.Retailer)
	assert.Equal(t, receivedAt, result.Order.OrderedAt)
	assert.Equal(t, 0, result.Skipped)

	require.Len(t, result.NewShipments, 1)
	shipment := result.NewShipments[0]
	assert.Equal(t, "AB123456789GB", shipment.TrackingNumber)
	assert.Equal(t, "royal-mail", shipment.Carrier)
	require.NotNil(t, shipment.OrderID)
	assert.Equal(t, result.Order.ID, *shipment.OrderID)

	stored, err := repo.GetByTrackingNumber(ctx, "AB123456789GB")
	require.NoError(t, err)
	assert.Equal(t, "user-1", stored.UserID)
}

func TestOrderService_IngestReceipt_SkipsKnownTracking(t *testing.T) {
	svc, repo := newTestOrderService(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Shipment{
		UserID:         "user-1",
		TrackingNumber: "CD123456789GB",
		Carrier:        "royal-mail",
	}))

	total := decimal.RequireFromString("10.00")
	result, err := svc.IngestReceipt(ctx, "user-1", &adapter.ExtractedReceipt{
		Retailer: "argos.co.uk",
		Total:    &total,
		Trackings: []adapter.ExtractedTracking{
			{TrackingNumber: "CD123456789GB", Carrier: "royal-mail"},
			{TrackingNumber: "EF123456789GB", Carrier: "royal-mail"},
		},
	}, time.Date(2025, 6, 28, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.NewShipments, 1)
	assert.Equal(t, "EF123456789GB", result.NewShipments[0].TrackingNumber)
}

func TestOrderService_IngestReceipt_NoSignalIgnored(t *testing.T) {
	svc, repo := newTestOrderService(t)

	result, err := svc.IngestReceipt(context.Background(), "user-1",
		&adapter.ExtractedReceipt{Retailer: "newsletter"}, time.Now())
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Empty(t, repo.orders)
}

func TestOrderService_IngestReceipt_UnknownRetailer(t *testing.T) {
	svc, _ := newTestOrderService(t)

	total := decimal.RequireFromString("5.00")
	result, err := svc.IngestReceipt(context.Background(), "user-1",
		&adapter.ExtractedReceipt{Total: &total}, time.Date(2025, 6, 28, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "unknown", result.Order.Retailer)
}
