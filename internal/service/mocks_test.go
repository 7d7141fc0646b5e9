package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/home-ledger/internal/adapter"
	"github.com/home-ledger/internal/models"
	"github.com/home-ledger/internal/quota"
	"github.com/home-ledger/internal/storage"
	"github.com/home-ledger/internal/types"
)

// mockBillRepo is a map-backed BillRepository
type mockBillRepo struct {
	mu    sync.Mutex
	bills map[string]*models.Bill
}

func newMockBillRepo() *mockBillRepo {
	return &mockBillRepo{bills: make(map[string]*models.Bill)}
}

func (m *mockBillRepo) Create(ctx context.Context, bill *models.Bill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	copied := *bill
	m.bills[bill.ID] = &copied
	return nil
}

func (m *mockBillRepo) GetByID(ctx context.Context, userID, id string) (*models.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bill, ok := m.bills[id]
	if !ok || bill.UserID != userID {
		return nil, fmt.Errorf("bill %s: %w", id, storage.ErrNotFound)
	}
	copied := *bill
	return &copied, nil
}

func (m *mockBillRepo) List(ctx context.Context, userID string, activeOnly bool) ([]*models.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Bill
	for _, bill := range m.bills {
		if bill.UserID != userID {
			continue
		}
		if activeOnly && !bill.Active {
			continue
		}
		copied := *bill
		out = append(out, &copied)
	}
	return out, nil
}

func (m *mockBillRepo) Update(ctx context.Context, bill *models.Bill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bills[bill.ID]; !ok {
		return fmt.Errorf("bill %s: %w", bill.ID, storage.ErrNotFound)
	}
	copied := *bill
	m.bills[bill.ID] = &copied
	return nil
}

func (m *mockBillRepo) Delete(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bill, ok := m.bills[id]
	if !ok || bill.UserID != userID {
		return fmt.Errorf("bill %s: %w", id, storage.ErrNotFound)
	}
	delete(m.bills, id)
	return nil
}

// mockUserRepo is a map-backed UserRepository / UserReader
type mockUserRepo struct {
	mu          sync.Mutex
	users       map[string]*models.User
	connections map[string]*models.GmailConnection
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users:       make(map[string]*models.User),
		connections: make(map[string]*models.GmailConnection),
	}
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user: %w", storage.ErrNotFound)
	}
	copied := *user
	return &copied, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("user: %w", storage.ErrNotFound)
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return fmt.Errorf("user: %w", storage.ErrNotFound)
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *mockUserRepo) UpdatePaySettings(ctx context.Context, userID string, pay *models.PaySettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return fmt.Errorf("user: %w", storage.ErrNotFound)
	}
	user.Pay = pay
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return fmt.Errorf("user: %w", storage.ErrNotFound)
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) GetUserTier(ctx context.Context, userID string) (types.UserTier, error) {
	user, err := m.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Tier, nil
}

func (m *mockUserRepo) UpsertGmailConnection(ctx context.Context, conn *models.GmailConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *conn
	m.connections[conn.UserID] = &copied
	return nil
}

func (m *mockUserRepo) GetGmailConnection(ctx context.Context, userID string) (*models.GmailConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.connections[userID]
	if !ok {
		return nil, fmt.Errorf("gmail connection: %w", storage.ErrNotFound)
	}
	copied := *conn
	return &copied, nil
}

func (m *mockUserRepo) ListGmailConnections(ctx context.Context) ([]*models.GmailConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.GmailConnection
	for _, conn := range m.connections {
		copied := *conn
		out = append(out, &copied)
	}
	return out, nil
}

func (m *mockUserRepo) DeleteGmailConnection(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.connections[userID]; !ok {
		return fmt.Errorf("gmail connection: %w", storage.ErrNotFound)
	}
	delete(m.connections, userID)
	return nil
}

// mockTxSummer returns fixed sums
type mockTxSummer struct {
	in         decimal.Decimal
	out        decimal.Decimal
	byCategory []*storage.CategoryTotal
}

func (m *mockTxSummer) SumByDirection(ctx context.Context, userID string, from, to time.Time) (decimal.Decimal, decimal.Decimal, error) {
	return m.in, m.out, nil
}

func (m *mockTxSummer) SumByCategory(ctx context.Context, userID string, from, to time.Time) ([]*storage.CategoryTotal, error) {
	return m.byCategory, nil
}

// mockDebtRepo is a map-backed DebtRepository
type mockDebtRepo struct {
	mu       sync.Mutex
	debts    map[string]*models.Debt
	payments map[string]*models.DebtPayment
}

func newMockDebtRepo() *mockDebtRepo {
	return &mockDebtRepo{
		debts:    make(map[string]*models.Debt),
		payments: make(map[string]*models.DebtPayment),
	}
}

func (m *mockDebtRepo) Create(ctx context.Context, debt *models.Debt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if debt.ID == "" {
		debt.ID = uuid.New().String()
	}
	copied := *debt
	m.debts[debt.ID] = &copied
	return nil
}

func (m *mockDebtRepo) GetByID(ctx context.Context, userID, id string) (*models.Debt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	debt, ok := m.debts[id]
	if !ok || debt.UserID != userID {
		return nil, fmt.Errorf("debt %s: %w", id, storage.ErrNotFound)
	}
	copied := *debt
	return &copied, nil
}

func (m *mockDebtRepo) List(ctx context.Context, userID string) ([]*models.Debt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Debt
	for _, debt := range m.debts {
		if debt.UserID == userID {
			copied := *debt
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockDebtRepo) Update(ctx context.Context, debt *models.Debt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.debts[debt.ID]; !ok {
		return fmt.Errorf("debt %s: %w", debt.ID, storage.ErrNotFound)
	}
	copied := *debt
	m.debts[debt.ID] = &copied
	return nil
}

func (m *mockDebtRepo) Delete(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	debt, ok := m.debts[id]
	if !ok || debt.UserID != userID {
		return fmt.Errorf("debt %s: %w", id, storage.ErrNotFound)
	}
	delete(m.debts, id)
	return nil
}

func (m *mockDebtRepo) AddPayment(ctx context.Context, payment *models.DebtPayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	copied := *payment
	m.payments[payment.ID] = &copied
	return nil
}

func (m *mockDebtRepo) ListPayments(ctx context.Context, userID, debtID string) ([]*models.DebtPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.DebtPayment
	for _, p := range m.payments {
		if p.UserID == userID && p.DebtID == debtID {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockDebtRepo) SumPayments(ctx context.Context, userID, debtID string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, p := range m.payments {
		if p.UserID == userID && p.DebtID == debtID {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

func (m *mockDebtRepo) DeletePayment(ctx context.Context, userID, paymentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok || p.UserID != userID {
		return fmt.Errorf("payment %s: %w", paymentID, storage.ErrNotFound)
	}
	delete(m.payments, paymentID)
	return nil
}

// mockToiletryRepo is a map-backed ToiletryRepository
type mockToiletryRepo struct {
	mu        sync.Mutex
	items     map[string]*models.ToiletryItem
	usage     []*models.ToiletryUsageLog
	purchases []*models.ToiletryPurchase
}

func newMockToiletryRepo() *mockToiletryRepo {
	return &mockToiletryRepo{items: make(map[string]*models.ToiletryItem)}
}

func (m *mockToiletryRepo) CreateItem(ctx context.Context, item *models.ToiletryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	copied := *item
	m.items[item.ID] = &copied
	return nil
}

func (m *mockToiletryRepo) GetItem(ctx context.Context, userID, id string) (*models.ToiletryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok || item.UserID != userID {
		return nil, fmt.Errorf("toiletry item %s: %w", id, storage.ErrNotFound)
	}
	copied := *item
	return &copied, nil
}

func (m *mockToiletryRepo) ListItems(ctx context.Context, userID string) ([]*models.ToiletryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ToiletryItem
	for _, item := range m.items {
		if item.UserID == userID {
			copied := *item
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockToiletryRepo) UpdateItem(ctx context.Context, item *models.ToiletryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.ID]; !ok {
		return fmt.Errorf("toiletry item %s: %w", item.ID, storage.ErrNotFound)
	}
	copied := *item
	m.items[item.ID] = &copied
	return nil
}

func (m *mockToiletryRepo) AdjustStock(ctx context.Context, userID, id string, delta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok || item.UserID != userID {
		return fmt.Errorf("toiletry item %s: %w", id, storage.ErrNotFound)
	}
	item.Stock += delta
	if item.Stock < 0 {
		item.Stock = 0
	}
	return nil
}

func (m *mockToiletryRepo) DeleteItem(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok || item.UserID != userID {
		return fmt.Errorf("toiletry item %s: %w", id, storage.ErrNotFound)
	}
	delete(m.items, id)
	return nil
}

func (m *mockToiletryRepo) LogUsage(ctx context.Context, log *models.ToiletryUsageLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	copied := *log
	m.usage = append(m.usage, &copied)
	return nil
}

func (m *mockToiletryRepo) ListUsageSince(ctx context.Context, userID, itemID string, since time.Time) ([]*models.ToiletryUsageLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ToiletryUsageLog
	for _, l := range m.usage {
		if l.UserID == userID && l.ItemID == itemID && !l.LoggedAt.Before(since) {
			copied := *l
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockToiletryRepo) AddPurchase(ctx context.Context, purchase *models.ToiletryPurchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if purchase.ID == "" {
		purchase.ID = uuid.New().String()
	}
	copied := *purchase
	m.purchases = append(m.purchases, &copied)
	return nil
}

func (m *mockToiletryRepo) ListPurchases(ctx context.Context, userID, itemID string) ([]*models.ToiletryPurchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ToiletryPurchase
	for _, p := range m.purchases {
		if p.UserID == userID && p.ItemID == itemID {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

// mockSubscriptionRepo is a map-backed SubscriptionRepository
type mockSubscriptionRepo struct {
	mu          sync.Mutex
	services    map[string]*models.TrackedService
	comparisons []*models.ComparisonResult
}

func newMockSubscriptionRepo() *mockSubscriptionRepo {
	return &mockSubscriptionRepo{services: make(map[string]*models.TrackedService)}
}

func (m *mockSubscriptionRepo) Create(ctx context.Context, svc *models.TrackedService) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if svc.ID == "" {
		svc.ID = uuid.New().String()
	}
	copied := *svc
	m.services[svc.ID] = &copied
	return nil
}

func (m *mockSubscriptionRepo) GetByID(ctx context.Context, userID, id string) (*models.TrackedService, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	svc, ok := m.services[id]
	if !ok || svc.UserID != userID {
		return nil, fmt.Errorf("tracked service %s: %w", id, storage.ErrNotFound)
	}
	copied := *svc
	return &copied, nil
}

func (m *mockSubscriptionRepo) List(ctx context.Context, userID string) ([]*models.TrackedService, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.TrackedService
	for _, svc := range m.services {
		if svc.UserID == userID {
			copied := *svc
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockSubscriptionRepo) Update(ctx context.Context, svc *models.TrackedService) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.services[svc.ID]; !ok {
		return fmt.Errorf("tracked service %s: %w", svc.ID, storage.ErrNotFound)
	}
	copied := *svc
	m.services[svc.ID] = &copied
	return nil
}

func (m *mockSubscriptionRepo) Delete(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	svc, ok := m.services[id]
	if !ok || svc.UserID != userID {
		return fmt.Errorf("tracked service %s: %w", id, storage.ErrNotFound)
	}
	delete(m.services, id)
	return nil
}

func (m *mockSubscriptionRepo) AddComparisonResult(ctx context.Context, result *models.ComparisonResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	copied := *result
	m.comparisons = append(m.comparisons, &copied)
	return nil
}

func (m *mockSubscriptionRepo) LatestComparison(ctx context.Context, userID, serviceID string) (*models.ComparisonResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.ComparisonResult
	for _, c := range m.comparisons {
		if c.UserID != userID || c.ServiceID != serviceID {
			continue
		}
		if latest == nil || c.CheckedAt.After(latest.CheckedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("comparison result: %w", storage.ErrNotFound)
	}
	copied := *latest
	return &copied, nil
}

// shipmentEventKey dedupes events the way the real unique index does
type shipmentEventKey struct {
	shipmentID string
	occurredAt time.Time
	status     types.TrackingStatus
}

// mockShipmentRepo is a map-backed ShipmentRepository / OrderRepository
type mockShipmentRepo struct {
	mu        sync.Mutex
	shipments map[string]*models.Shipment
	events    map[shipmentEventKey]*models.ShipmentEvent
	orders    map[string]*models.OnlineOrder
}

func newMockShipmentRepo() *mockShipmentRepo {
	return &mockShipmentRepo{
		shipments: make(map[string]*models.Shipment),
		events:    make(map[shipmentEventKey]*models.ShipmentEvent),
		orders:    make(map[string]*models.OnlineOrder),
	}
}

func (m *mockShipmentRepo) Create(ctx context.Context, s *models.Shipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Status == "" {
		s.Status = types.StatusPending
	}
	copied := *s
	m.shipments[s.ID] = &copied
	return nil
}

func (m *mockShipmentRepo) GetByID(ctx context.Context, userID, id string) (*models.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shipments[id]
	if !ok || s.UserID != userID {
		return nil, fmt.Errorf("shipment %s: %w", id, storage.ErrNotFound)
	}
	copied := *s
	return &copied, nil
}

func (m *mockShipmentRepo) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.shipments {
		if s.TrackingNumber == trackingNumber {
			copied := *s
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("shipment %s: %w", trackingNumber, storage.ErrNotFound)
}

func (m *mockShipmentRepo) List(ctx context.Context, userID string, activeOnly bool) ([]*models.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Shipment
	for _, s := range m.shipments {
		if s.UserID != userID {
			continue
		}
		if activeOnly && (s.Status == types.StatusDelivered || s.Status == types.StatusException) {
			continue
		}
		copied := *s
		out = append(out, &copied)
	}
	return out, nil
}

func (m *mockShipmentRepo) ListUndelivered(ctx context.Context) ([]*models.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Shipment
	for _, s := range m.shipments {
		if s.Status != types.StatusDelivered {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockShipmentRepo) UpdateStatus(ctx context.Context, id string, status types.TrackingStatus, lastEvent *string, expectedDate, deliveredAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shipments[id]
	if !ok {
		return fmt.Errorf("shipment %s: %w", id, storage.ErrNotFound)
	}
	s.Status = status
	s.LastEvent = lastEvent
	s.ExpectedDate = expectedDate
	s.DeliveredAt = deliveredAt
	return nil
}

func (m *mockShipmentRepo) Delete(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shipments[id]
	if !ok || s.UserID != userID {
		return fmt.Errorf("shipment %s: %w", id, storage.ErrNotFound)
	}
	delete(m.shipments, id)
	return nil
}

func (m *mockShipmentRepo) AddEvent(ctx context.Context, event *models.ShipmentEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := shipmentEventKey{event.ShipmentID, event.OccurredAt, event.Status}
	if _, ok := m.events[key]; ok {
		return false, nil
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	copied := *event
	m.events[key] = &copied
	return true, nil
}

func (m *mockShipmentRepo) ListEvents(ctx context.Context, shipmentID string) ([]*models.ShipmentEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ShipmentEvent
	for _, ev := range m.events {
		if ev.ShipmentID == shipmentID {
			copied := *ev
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockShipmentRepo) CreateOrder(ctx context.Context, order *models.OnlineOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.Source == "" {
		order.Source = models.OrderSourceManual
	}
	copied := *order
	m.orders[order.ID] = &copied
	return nil
}

func (m *mockShipmentRepo) ListOrders(ctx context.Context, userID string, limit, offset int) ([]*models.OnlineOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.OnlineOrder
	for _, o := range m.orders {
		if o.UserID == userID {
			copied := *o
			out = append(out, &copied)
		}
	}
	return out, nil
}

// mockTrackingProvider returns canned updates per tracking number
type mockTrackingProvider struct {
	mu          sync.Mutex
	updates     map[string]*adapter.TrackingUpdate
	fetchErr    error
	registered  []string
	fetches     int
	interactive []bool // quota priority observed per fetch
}

func newMockTrackingProvider() *mockTrackingProvider {
	return &mockTrackingProvider{updates: make(map[string]*adapter.TrackingUpdate)}
}

func (m *mockTrackingProvider) Register(ctx context.Context, trackingNumber, carrier string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registered = append(m.registered, trackingNumber)
	return nil
}

func (m *mockTrackingProvider) Fetch(ctx context.Context, trackingNumber, carrier string) (*adapter.TrackingUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	m.interactive = append(m.interactive, quota.IsInteractive(ctx))
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	update, ok := m.updates[trackingNumber]
	if !ok {
		return nil, fmt.Errorf("no canned update for %s", trackingNumber)
	}
	return update, nil
}

// mockInvestRepo is a map-backed InvestmentRepository
type mockInvestRepo struct {
	mu         sync.Mutex
	accounts   map[string]*models.InvestmentAccount
	txs        []*models.InvestmentTransaction
	valuations map[string]*models.InvestmentValuation // keyed account|date
}

func newMockInvestRepo() *mockInvestRepo {
	return &mockInvestRepo{
		accounts:   make(map[string]*models.InvestmentAccount),
		valuations: make(map[string]*models.InvestmentValuation),
	}
}

func (m *mockInvestRepo) CreateAccount(ctx context.Context, account *models.InvestmentAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	copied := *account
	m.accounts[account.ID] = &copied
	return nil
}

func (m *mockInvestRepo) GetAccount(ctx context.Context, userID, id string) (*models.InvestmentAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok || account.UserID != userID {
		return nil, fmt.Errorf("investment account %s: %w", id, storage.ErrNotFound)
	}
	copied := *account
	return &copied, nil
}

func (m *mockInvestRepo) ListAccounts(ctx context.Context, userID string) ([]*models.InvestmentAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.InvestmentAccount
	for _, a := range m.accounts {
		if a.UserID == userID {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockInvestRepo) ListAccountsWithSymbols(ctx context.Context) ([]*models.InvestmentAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.InvestmentAccount
	for _, a := range m.accounts {
		if a.QuoteSymbol != nil && *a.QuoteSymbol != "" {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockInvestRepo) UpdateAccount(ctx context.Context, account *models.InvestmentAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[account.ID]; !ok {
		return fmt.Errorf("investment account %s: %w", account.ID, storage.ErrNotFound)
	}
	copied := *account
	m.accounts[account.ID] = &copied
	return nil
}

func (m *mockInvestRepo) DeleteAccount(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok || account.UserID != userID {
		return fmt.Errorf("investment account %s: %w", id, storage.ErrNotFound)
	}
	delete(m.accounts, id)
	return nil
}

func (m *mockInvestRepo) AddTransaction(ctx context.Context, tx *models.InvestmentTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	copied := *tx
	m.txs = append(m.txs, &copied)
	return nil
}

func (m *mockInvestRepo) ListTransactions(ctx context.Context, userID, accountID string) ([]*models.InvestmentTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.InvestmentTransaction
	for _, tx := range m.txs {
		if tx.UserID == userID && tx.AccountID == accountID {
			copied := *tx
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockInvestRepo) AddValuation(ctx context.Context, v *models.InvestmentValuation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	key := v.AccountID + "|" + v.Date.Format("2006-01-02")
	copied := *v
	m.valuations[key] = &copied
	return nil
}

func (m *mockInvestRepo) ListValuations(ctx context.Context, userID, accountID string) ([]*models.InvestmentValuation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.InvestmentValuation
	for _, v := range m.valuations {
		if v.UserID == userID && v.AccountID == accountID {
			copied := *v
			out = append(out, &copied)
		}
	}
	return out, nil
}

// mockLedgerRepo is a map-backed LedgerRepository
type mockLedgerRepo struct {
	mu         sync.Mutex
	categories map[string]*models.Category
	accounts   map[string]*models.Account
	txs        map[string]*models.Transaction
}

func newMockLedgerRepo() *mockLedgerRepo {
	return &mockLedgerRepo{
		categories: make(map[string]*models.Category),
		accounts:   make(map[string]*models.Account),
		txs:        make(map[string]*models.Transaction),
	}
}

func (m *mockLedgerRepo) CreateCategory(ctx context.Context, category *models.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if category.ID == "" {
		category.ID = uuid.New().String()
	}
	copied := *category
	m.categories[category.ID] = &copied
	return nil
}

func (m *mockLedgerRepo) ListCategories(ctx context.Context, userID string) ([]*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Category
	for _, c := range m.categories {
		if c.UserID == userID {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockLedgerRepo) DeleteCategory(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok || c.UserID != userID {
		return fmt.Errorf("category %s: %w", id, storage.ErrNotFound)
	}
	delete(m.categories, id)
	return nil
}

func (m *mockLedgerRepo) CreateAccount(ctx context.Context, account *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	copied := *account
	m.accounts[account.ID] = &copied
	return nil
}

func (m *mockLedgerRepo) ListAccounts(ctx context.Context, userID string) ([]*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Account
	for _, a := range m.accounts {
		if a.UserID == userID {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockLedgerRepo) DeleteAccount(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.UserID != userID {
		return fmt.Errorf("account %s: %w", id, storage.ErrNotFound)
	}
	delete(m.accounts, id)
	return nil
}

func (m *mockLedgerRepo) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	copied := *tx
	m.txs[tx.ID] = &copied
	return nil
}

func (m *mockLedgerRepo) GetTransaction(ctx context.Context, userID, id string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[id]
	if !ok || tx.UserID != userID {
		return nil, fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
	}
	copied := *tx
	return &copied, nil
}

func (m *mockLedgerRepo) ListTransactions(ctx context.Context, userID string, filter storage.TransactionFilter) ([]*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Transaction
	for _, tx := range m.txs {
		if tx.UserID != userID {
			continue
		}
		if filter.From != nil && tx.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && tx.Date.After(*filter.To) {
			continue
		}
		if filter.Direction != nil && tx.Direction != *filter.Direction {
			continue
		}
		if filter.CategoryID != nil && (tx.CategoryID == nil || *tx.CategoryID != *filter.CategoryID) {
			continue
		}
		if filter.AccountID != nil && (tx.AccountID == nil || *tx.AccountID != *filter.AccountID) {
			continue
		}
		copied := *tx
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *mockLedgerRepo) DeleteTransaction(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[id]
	if !ok || tx.UserID != userID {
		return fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
	}
	delete(m.txs, id)
	return nil
}

// mockTariffRepo is a map-backed EnergyTariffRepository. List returns
// newest valid-from first, the order the real repo guarantees.
type mockTariffRepo struct {
	mu      sync.Mutex
	tariffs map[string]*models.EnergyTariff
}

func newMockTariffRepo() *mockTariffRepo {
	return &mockTariffRepo{tariffs: make(map[string]*models.EnergyTariff)}
}

func (m *mockTariffRepo) Create(ctx context.Context, tariff *models.EnergyTariff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tariff.ID == "" {
		tariff.ID = uuid.New().String()
	}
	copied := *tariff
	m.tariffs[tariff.ID] = &copied
	return nil
}

func (m *mockTariffRepo) List(ctx context.Context, userID string, fuel types.Fuel) ([]*models.EnergyTariff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.EnergyTariff
	for _, t := range m.tariffs {
		if t.UserID == userID && t.Fuel == fuel {
			copied := *t
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ValidFrom.After(out[j].ValidFrom) })
	return out, nil
}

func (m *mockTariffRepo) ActiveAt(ctx context.Context, userID string, fuel types.Fuel, at time.Time) (*models.EnergyTariff, error) {
	tariffs, _ := m.List(ctx, userID, fuel)
	for _, t := range tariffs {
		if !t.ValidFrom.After(at) {
			return t, nil
		}
	}
	return nil, fmt.Errorf("tariff: %w", storage.ErrNotFound)
}

func (m *mockTariffRepo) Delete(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tariffs[id]
	if !ok || t.UserID != userID {
		return fmt.Errorf("tariff %s: %w", id, storage.ErrNotFound)
	}
	delete(m.tariffs, id)
	return nil
}

// mockReadingStore deduplicates on (user, fuel, read-at) the way the
// ReplacingMergeTree table does
type mockReadingStore struct {
	mu       sync.Mutex
	readings map[string]*models.EnergyReading
}

func newMockReadingStore() *mockReadingStore {
	return &mockReadingStore{readings: make(map[string]*models.EnergyReading)}
}

func (m *mockReadingStore) InsertBatch(ctx context.Context, readings []*models.EnergyReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range readings {
		key := fmt.Sprintf("%s|%s|%d", r.UserID, r.Fuel, r.ReadAt.Unix())
		copied := *r
		m.readings[key] = &copied
	}
	return nil
}

func (m *mockReadingStore) ListReadings(ctx context.Context, userID string, fuel types.Fuel, from, to time.Time) ([]*models.EnergyReading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.EnergyReading
	for _, r := range m.readings {
		if r.UserID == userID && r.Fuel == fuel && !r.ReadAt.Before(from) && !r.ReadAt.After(to) {
			copied := *r
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReadAt.Before(out[j].ReadAt) })
	return out, nil
}

func (m *mockReadingStore) SumDaily(ctx context.Context, userID string, fuel types.Fuel, from, to time.Time) ([]storage.DailyConsumption, error) {
	rows, err := m.ListReadings(ctx, userID, fuel, from, to)
	if err != nil {
		return nil, err
	}
	byDay := make(map[time.Time]float64)
	for _, r := range rows {
		day := time.Date(r.ReadAt.Year(), r.ReadAt.Month(), r.ReadAt.Day(), 0, 0, 0, 0, time.UTC)
		byDay[day] += r.ConsumptionKWh
	}
	var out []storage.DailyConsumption
	for day, kwh := range byDay {
		out = append(out, storage.DailyConsumption{Day: day, ConsumptionKWh: kwh})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

// mockNutritionRepo is a map-backed NutritionRepository / BlackoutRepository
type mockNutritionRepo struct {
	mu        sync.Mutex
	targets   map[string]*models.WeeklyNutritionTarget // keyed user|weekStart
	blackouts map[string]*models.MealPlanBlackout
}

func newMockNutritionRepo() *mockNutritionRepo {
	return &mockNutritionRepo{
		targets:   make(map[string]*models.WeeklyNutritionTarget),
		blackouts: make(map[string]*models.MealPlanBlackout),
	}
}

func (m *mockNutritionRepo) UpsertWeeklyTarget(ctx context.Context, target *models.WeeklyNutritionTarget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if target.ID == "" {
		target.ID = uuid.New().String()
	}
	key := target.UserID + "|" + target.WeekStart.Format("2006-01-02")
	copied := *target
	m.targets[key] = &copied
	return nil
}

func (m *mockNutritionRepo) GetWeeklyTarget(ctx context.Context, userID string, weekStart time.Time) (*models.WeeklyNutritionTarget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := userID + "|" + weekStart.Format("2006-01-02")
	target, ok := m.targets[key]
	if !ok {
		return nil, fmt.Errorf("weekly target: %w", storage.ErrNotFound)
	}
	copied := *target
	return &copied, nil
}

func (m *mockNutritionRepo) ListWeeklyTargets(ctx context.Context, userID string, limit int) ([]*models.WeeklyNutritionTarget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.WeeklyNutritionTarget
	for _, t := range m.targets {
		if t.UserID == userID {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockNutritionRepo) CreateBlackout(ctx context.Context, blackout *models.MealPlanBlackout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if blackout.ID == "" {
		blackout.ID = uuid.New().String()
	}
	copied := *blackout
	m.blackouts[blackout.ID] = &copied
	return nil
}

func (m *mockNutritionRepo) ListBlackoutsOverlapping(ctx context.Context, userID string, from, to time.Time) ([]*models.MealPlanBlackout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.MealPlanBlackout
	for _, b := range m.blackouts {
		if b.UserID == userID && !b.StartDate.After(to) && !b.EndDate.Before(from) {
			copied := *b
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockNutritionRepo) DeleteBlackout(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blackouts[id]
	if !ok || b.UserID != userID {
		return fmt.Errorf("blackout %s: %w", id, storage.ErrNotFound)
	}
	delete(m.blackouts, id)
	return nil
}
