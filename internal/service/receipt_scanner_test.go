package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/home-ledger/internal/adapter"
	"github.com/home-ledger/internal/models"
)

// mockTokenRefresher hands out access tokens keyed by refresh token
type mockTokenRefresher struct {
	tokens map[string]string
}

func (m *mockTokenRefresher) RefreshAccessToken(ctx context.Context, refreshToken string) (*adapter.TokenResponse, error) {
	access, ok := m.tokens[refreshToken]
	if !ok {
		return nil, errors.New("invalid grant")
	}
	return &adapter.TokenResponse{AccessToken: access, ExpiresIn: 3600}, nil
}

// mockMailReader serves canned messages and records the list query
type mockMailReader struct {
	messages  map[string]*adapter.MailMessage
	listAfter time.Time
	listCalls int
}

func (m *mockMailReader) ListMessageIDs(ctx context.Context, accessToken, query string, after time.Time, limit int) ([]string, error) {
	m.listCalls++
	m.listAfter = after
	ids := make([]string, 0, len(m.messages))
	for id := range m.messages {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *mockMailReader) GetMessage(ctx context.Context, accessToken, messageID string) (*adapter.MailMessage, error) {
	msg, ok := m.messages[messageID]
	if !ok || msg == nil {
		return nil, errors.New("message not found")
	}
	return msg, nil
}

// recordingIngester captures what the scanner feeds into the order pipeline
type recordingIngester struct {
	received []*adapter.ExtractedReceipt
	users    []string
}

func (r *recordingIngester) IngestReceipt(ctx context.Context, userID string, receipt *adapter.ExtractedReceipt, receivedAt time.Time) (*IngestReceiptResult, error) {
	r.received = append(r.received, receipt)
	r.users = append(r.users, userID)
	if receipt.Total == nil && len(receipt.Trackings) == 0 {
		return nil, nil
	}
	return &IngestReceiptResult{Order: &models.OnlineOrder{Retailer: receipt.Retailer}}, nil
}

func newConnectedUserRepo(t *testing.T) *mockUserRepo {
	t.Helper()

	users := newMockUserRepo()
	require.NoError(t, users.UpsertGmailConnection(context.Background(), &models.GmailConnection{
		UserID:       "user-1",
		RefreshToken: "refresh-1",
		Email:        "sam@gmail.com",
	}))
	return users
}

func TestReceiptScanner_ScanAll(t *testing.T) {
	users := newConnectedUserRepo(t)
	oauth := &mockTokenRefresher{tokens: map[string]string{"refresh-1": "access-1"}}
	mail := &mockMailReader{messages: map[string]*adapter.MailMessage{
		"msg-1": {
			ID:         "msg-1",
			From:       "Boots <noreply@boots.com>",
			Subject:    "Your order has been dispatched",
			ReceivedAt: time.Date(2025, 6, 28, 9, 0, 0, 0, time.UTC),
			Body:       "Order total: £31.48\nTracking number AB123456789GB",
		},
	}}
	ingester := &recordingIngester{}
	scanner := NewReceiptScanner(users, oauth, mail, ingester, nil)

	err := scanner.ScanAll(context.Background(), time.Date(2025, 6, 25, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, ingester.received, 1)
	assert.Equal(t, "user-1", ingester.users[0])
	assert.Equal(t, "boots.com", ingester.received[0].Retailer)
	require.NotNil(t, ingester.received[0].Total)
	assert.True(t, ingester.received[0].Total.Equal(decimal.RequireFromString("31.48")))
	require.Len(t, ingester.received[0].Trackings, 1)
	assert.Equal(t, "AB123456789GB", ingester.received[0].Trackings[0].TrackingNumber)
}

func TestReceiptScanner_ScanAll_ZeroSinceDefaultsToWindow(t *testing.T) {
	users := newConnectedUserRepo(t)
	oauth := &mockTokenRefresher{tokens: map[string]string{"refresh-1": "access-1"}}
	mail := &mockMailReader{messages: map[string]*adapter.MailMessage{}}
	scanner := NewReceiptScanner(users, oauth, mail, &recordingIngester{}, nil)

	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	scanner.now = func() time.Time { return now }

	require.NoError(t, scanner.ScanAll(context.Background(), time.Time{}))
	assert.Equal(t, now.AddDate(0, 0, -7), mail.listAfter)
}

func TestReceiptScanner_ScanAll_BadMessageDoesNotStopScan(t *testing.T) {
	users := newConnectedUserRepo(t)
	oauth := &mockTokenRefresher{tokens: map[string]string{"refresh-1": "access-1"}}
	mail := &mockMailReader{messages: map[string]*adapter.MailMessage{
		"msg-ok": {
			ID:         "msg-ok",
			From:       "orders@argos.co.uk",
			Subject:    "Order confirmation",
			ReceivedAt: time.Date(2025, 6, 28, 9, 0, 0, 0, time.UTC),
			Body:       "Grand total: £10.00",
		},
	}}
	ingester := &recordingIngester{}
	scanner := NewReceiptScanner(users, oauth, mail, ingester, nil)

	// GetMessage fails for unknown ids; inject one by listing it
	mail.messages["msg-gone"] = nil

	err := scanner.ScanAll(context.Background(), time.Date(2025, 6, 25, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, ingester.received, 1)
}

func TestReceiptScanner_ScanAll_ExpiredGrantReported(t *testing.T) {
	users := newConnectedUserRepo(t)
	oauth := &mockTokenRefresher{tokens: map[string]string{}} // grant revoked
	mail := &mockMailReader{messages: map[string]*adapter.MailMessage{}}
	scanner := NewReceiptScanner(users, oauth, mail, &recordingIngester{}, nil)

	err := scanner.ScanAll(context.Background(), time.Date(2025, 6, 25, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 mailbox scans failed")
	assert.Equal(t, 0, mail.listCalls)
}
