package service

import (
	"context"
	"fmt"
	"time"

	"github.com/home-ledger/internal/adapter"
	"github.com/home-ledger/internal/logging"
	"github.com/home-ledger/internal/models"
)

// receiptQuery narrows the mailbox scan to order-style email
const receiptQuery = `subject:(order OR dispatched OR shipped OR delivery)`

// defaultScanWindow is how far back a scan looks when there is no prior run
const defaultScanWindow = 7 * 24 * time.Hour

// scanBatchLimit caps messages fetched per user per scan
const scanBatchLimit = 25

// GmailConnectionLister lists stored OAuth grants across all users
type GmailConnectionLister interface {
	ListGmailConnections(ctx context.Context) ([]*models.GmailConnection, error)
}

// TokenRefresher trades a refresh token for an access token
type TokenRefresher interface {
	RefreshAccessToken(ctx context.Context, refreshToken string) (*adapter.TokenResponse, error)
}

// MailReader lists and fetches messages with a bearer token
type MailReader interface {
	ListMessageIDs(ctx context.Context, accessToken, query string, after time.Time, limit int) ([]string, error)
	GetMessage(ctx context.Context, accessToken, messageID string) (*adapter.MailMessage, error)
}

// ReceiptIngester turns extracted receipts into orders and shipments
type ReceiptIngester interface {
	IngestReceipt(ctx context.Context, userID string, receipt *adapter.ExtractedReceipt, receivedAt time.Time) (*IngestReceiptResult, error)
}

// ReceiptScanner walks connected mailboxes for order email and feeds what it
// finds into the order pipeline.
type ReceiptScanner struct {
	connections GmailConnectionLister
	oauth       TokenRefresher
	mail        MailReader
	orders      ReceiptIngester
	logger      *logging.Logger
	now         func() time.Time
}

// NewReceiptScanner creates a new receipt scanner
func NewReceiptScanner(connections GmailConnectionLister, oauth TokenRefresher, mail MailReader, orders ReceiptIngester, logger *logging.Logger) *ReceiptScanner {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &ReceiptScanner{
		connections: connections,
		oauth:       oauth,
		mail:        mail,
		orders:      orders,
		logger:      logger.WithField("service", "receipt_scanner"),
		now:         time.Now,
	}
}

// ScanAll scans every connected mailbox for messages received after since.
// A zero since falls back to a 7 day window. One failing mailbox does not
// stop the rest.
func (s *ReceiptScanner) ScanAll(ctx context.Context, since time.Time) error {
	connections, err := s.connections.ListGmailConnections(ctx)
	if err != nil {
		return err
	}
	if since.IsZero() {
		since = s.now().Add(-defaultScanWindow)
	}

	var failed int
	for _, conn := range connections {
		if err := s.scanMailbox(ctx, conn, since); err != nil {
			failed++
			s.logger.WithError(err).WithField("userId", conn.UserID).
				Warn("failed to scan mailbox")
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d mailbox scans failed", failed, len(connections))
	}
	return nil
}

func (s *ReceiptScanner) scanMailbox(ctx context.Context, conn *models.GmailConnection, since time.Time) error {
	token, err := s.oauth.RefreshAccessToken(ctx, conn.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to refresh access token: %w", err)
	}

	ids, err := s.mail.ListMessageIDs(ctx, token.AccessToken, receiptQuery, since, scanBatchLimit)
	if err != nil {
		return fmt.Errorf("failed to list messages: %w", err)
	}

	for _, id := range ids {
		msg, err := s.mail.GetMessage(ctx, token.AccessToken, id)
		if err != nil {
			s.logger.WithError(err).WithField("messageId", id).Warn("failed to fetch message")
			continue
		}

		receipt := adapter.ExtractReceipt(msg)
		result, err := s.orders.IngestReceipt(ctx, conn.UserID, &receipt, msg.ReceivedAt)
		if err != nil {
			s.logger.WithError(err).WithField("messageId", id).Warn("failed to ingest receipt")
			continue
		}
		if result != nil && len(result.NewShipments) > 0 {
			s.logger.WithFields(map[string]interface{}{
				"userId":    conn.UserID,
				"retailer":  result.Order.Retailer,
				"shipments": len(result.NewShipments),
			}).Info("created shipments from scanned receipt")
		}
	}
	return nil
}
