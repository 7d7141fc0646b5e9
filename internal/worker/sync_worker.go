// Package worker runs the background sync loop that keeps provider-backed
// data fresh: smart-meter readings, parcel tracking, market quotes and
// receipt scanning.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/home-ledger/internal/breaker"
	"github.com/home-ledger/internal/logging"
	"github.com/home-ledger/internal/models"
	"github.com/home-ledger/internal/types"
)

// Task names as persisted in sync_task_status.
const (
	TaskMeterPull       = "meter_pull"
	TaskShipmentRefresh = "shipment_refresh"
	TaskQuoteRefresh    = "quote_refresh"
	TaskMailScan        = "mail_scan"
)

// meterLag is how far back each meter pull re-reads. The vendor backfills
// intervals with up to a day of delay, and re-ingesting is idempotent.
const meterLag = 48 * time.Hour

// meterBootstrapWindow bounds the first pull for a user with no stored
// readings.
const meterBootstrapWindow = 30 * 24 * time.Hour

// ShipmentRefresher polls the tracking provider for undelivered parcels.
type ShipmentRefresher interface {
	RefreshAll(ctx context.Context) error
}

// QuoteRefresher fetches market quotes for symbol-linked accounts.
type QuoteRefresher interface {
	RefreshAllQuotes(ctx context.Context) error
}

// MailScanner scans connected mailboxes for receipts received after since.
type MailScanner interface {
	ScanAll(ctx context.Context, since time.Time) error
}

// MeterSource pulls half-hourly consumption from the smart-meter vendor.
type MeterSource interface {
	FetchConsumption(ctx context.Context, userID string, fuel types.Fuel, from, to time.Time) ([]models.EnergyReading, error)
}

// ReadingStorer persists pulled meter readings.
type ReadingStorer interface {
	StoreReadings(ctx context.Context, readings []models.EnergyReading) error
}

// MeterProgress reports how far a user's stored readings reach.
type MeterProgress interface {
	LatestReadingAt(ctx context.Context, userID string, fuel types.Fuel) (time.Time, error)
}

// UserLister pages through registered users.
type UserLister interface {
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
}

// StatusRecorder persists per-task run outcomes.
type StatusRecorder interface {
	RecordSuccess(ctx context.Context, task string) error
	RecordFailure(ctx context.Context, task string, runErr error) error
	Get(ctx context.Context, task string) (*models.SyncTaskStatus, error)
}

// SyncWorker runs a fixed, ordered set of sync tasks on one ticker. A tick
// that fires while the previous one is still in flight is skipped rather
// than queued.
type SyncWorker struct {
	interval      time.Duration
	meterEnabled  bool
	parcelEnabled bool
	quoteEnabled  bool
	mailEnabled   bool

	meter     MeterSource
	readings  ReadingStorer
	progress  MeterProgress
	users     UserLister
	shipments ShipmentRefresher
	quotes    QuoteRefresher
	mail      MailScanner
	status    StatusRecorder

	breakers *breaker.Manager
	logger   *logging.Logger

	running     bool
	tickRunning bool
	lastTickAt  time.Time
	mu          sync.RWMutex
	wg          sync.WaitGroup
	stopCh      chan struct{}
	doneCh      chan struct{}
}

// SyncWorkerConfig holds configuration and dependencies for the sync worker.
type SyncWorkerConfig struct {
	Interval      time.Duration // default 5 minutes
	MeterEnabled  bool
	ParcelEnabled bool
	QuoteEnabled  bool
	MailEnabled   bool

	Meter     MeterSource
	Readings  ReadingStorer
	Progress  MeterProgress
	Users     UserLister
	Shipments ShipmentRefresher
	Quotes    QuoteRefresher
	Mail      MailScanner
	Status    StatusRecorder

	Logger *logging.Logger
}

// NewSyncWorker creates a sync worker. Each enabled task must have its
// dependencies set.
func NewSyncWorker(cfg *SyncWorkerConfig) (*SyncWorker, error) {
	if cfg.Status == nil {
		return nil, fmt.Errorf("status recorder cannot be nil")
	}
	if cfg.MeterEnabled && (cfg.Meter == nil || cfg.Readings == nil || cfg.Progress == nil || cfg.Users == nil) {
		return nil, fmt.Errorf("meter task enabled without meter dependencies")
	}
	if cfg.ParcelEnabled && cfg.Shipments == nil {
		return nil, fmt.Errorf("parcel task enabled without tracking service")
	}
	if cfg.QuoteEnabled && cfg.Quotes == nil {
		return nil, fmt.Errorf("quote task enabled without invest service")
	}
	if cfg.MailEnabled && cfg.Mail == nil {
		return nil, fmt.Errorf("mail task enabled without receipt scanner")
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	logger = logger.WithField("component", "sync_worker")

	return &SyncWorker{
		interval:      interval,
		meterEnabled:  cfg.MeterEnabled,
		parcelEnabled: cfg.ParcelEnabled,
		quoteEnabled:  cfg.QuoteEnabled,
		mailEnabled:   cfg.MailEnabled,
		meter:         cfg.Meter,
		readings:      cfg.Readings,
		progress:      cfg.Progress,
		users:         cfg.Users,
		shipments:     cfg.Shipments,
		quotes:        cfg.Quotes,
		mail:          cfg.Mail,
		status:        cfg.Status,
		breakers:      breaker.NewManager(logger),
		logger:        logger,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}, nil
}

// Start begins the tick loop.
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("sync worker is already running")
	}
	w.running = true
	w.mu.Unlock()

	w.logger.WithField("interval", w.interval.String()).Info("starting sync worker")

	go w.loop(ctx)

	return nil
}

// Stop gracefully stops the worker, waiting for any in-flight tick.
func (w *SyncWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("sync worker is not running")
	}
	w.mu.Unlock()

	w.logger.Info("stopping sync worker")

	close(w.stopCh)

	select {
	case <-w.doneCh:
		w.logger.Info("sync worker stopped")
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(30 * time.Second):
		return fmt.Errorf("stop timeout")
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	return nil
}

// loop is the tick loop that runs in a goroutine.
func (w *SyncWorker) loop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			return
		case <-w.stopCh:
			w.wg.Wait()
			return
		case <-ticker.C:
			if !w.beginTick() {
				w.logger.Warn("previous tick still in flight, skipping")
				continue
			}
			w.wg.Add(1)
			go func() {
				defer w.wg.Done()
				defer w.endTick()
				w.RunOnce(ctx)
			}()
		}
	}
}

func (w *SyncWorker) beginTick() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.tickRunning {
		return false
	}
	w.tickRunning = true
	w.lastTickAt = time.Now()
	return true
}

func (w *SyncWorker) endTick() {
	w.mu.Lock()
	w.tickRunning = false
	w.mu.Unlock()
}

// RunOnce runs the enabled tasks in their fixed order: meter pull, shipment
// refresh, quote refresh, mail scan. A failing task is logged and recorded
// but never aborts the tasks after it.
func (w *SyncWorker) RunOnce(ctx context.Context) {
	if w.meterEnabled {
		w.runTask(ctx, TaskMeterPull, w.pullMeters)
	}
	if w.parcelEnabled {
		w.runTask(ctx, TaskShipmentRefresh, w.shipments.RefreshAll)
	}
	if w.quoteEnabled {
		w.runTask(ctx, TaskQuoteRefresh, w.quotes.RefreshAllQuotes)
	}
	if w.mailEnabled {
		w.runTask(ctx, TaskMailScan, w.scanMail)
	}
}

// runTask executes one task behind its circuit breaker and records the
// outcome.
func (w *SyncWorker) runTask(ctx context.Context, name string, fn func(ctx context.Context) error) {
	cb := w.breakers.GetOrCreate(name, breaker.DefaultConfig(name))

	err := cb.Execute(ctx, fn)
	if err != nil {
		w.logger.WithField("task", name).WithError(err).Warn("sync task failed")
		if recordErr := w.status.RecordFailure(ctx, name, err); recordErr != nil {
			w.logger.WithField("task", name).WithError(recordErr).Error("failed to record task failure")
		}
		return
	}

	if recordErr := w.status.RecordSuccess(ctx, name); recordErr != nil {
		w.logger.WithField("task", name).WithError(recordErr).Error("failed to record task success")
	}
}

// pullMeters pulls fresh half-hourly readings for every user and fuel. The
// window resumes from the newest stored reading minus a re-read lag, because
// the vendor backfills late intervals.
func (w *SyncWorker) pullMeters(ctx context.Context) error {
	now := time.Now().UTC()
	fuels := []types.Fuel{types.FuelElectricity, types.FuelGas}

	pulls := 0
	failures := 0
	offset := 0
	const pageSize = 100
	for {
		users, err := w.users.List(ctx, pageSize, offset)
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}
		if len(users) == 0 {
			break
		}
		offset += len(users)

		for _, user := range users {
			for _, fuel := range fuels {
				pulls++
				if err := w.pullMeter(ctx, user.ID, fuel, now); err != nil {
					failures++
					w.logger.WithFields(map[string]interface{}{
						"user": user.ID,
						"fuel": fuel,
					}).WithError(err).Warn("meter pull failed")
				}
			}
		}

		if len(users) < pageSize {
			break
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d meter pulls failed", failures, pulls)
	}
	return nil
}

func (w *SyncWorker) pullMeter(ctx context.Context, userID string, fuel types.Fuel, now time.Time) error {
	latest, err := w.progress.LatestReadingAt(ctx, userID, fuel)
	if err != nil {
		return fmt.Errorf("failed to find latest reading: %w", err)
	}

	from := now.Add(-meterBootstrapWindow)
	if !latest.IsZero() {
		from = latest.Add(-meterLag)
	}

	readings, err := w.meter.FetchConsumption(ctx, userID, fuel, from, now)
	if err != nil {
		return err
	}
	if len(readings) == 0 {
		return nil
	}

	return w.readings.StoreReadings(ctx, readings)
}

// scanMail scans mailboxes for receipts received since the task's last
// successful run. With no recorded success the scanner applies its own
// default window.
func (w *SyncWorker) scanMail(ctx context.Context) error {
	var since time.Time
	if status, err := w.status.Get(ctx, TaskMailScan); err == nil && status != nil && status.LastSuccessAt != nil {
		since = *status.LastSuccessAt
	}

	return w.mail.ScanAll(ctx, since)
}

// SyncWorkerStatus represents the current state of the worker.
type SyncWorkerStatus struct {
	Running         bool      `json:"running"`
	TickInFlight    bool      `json:"tickInFlight"`
	LastTickAt      time.Time `json:"lastTickAt"`
	IntervalSeconds int       `json:"intervalSeconds"`
}

// GetStatus returns the current worker status.
func (w *SyncWorker) GetStatus() *SyncWorkerStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return &SyncWorkerStatus{
		Running:         w.running,
		TickInFlight:    w.tickRunning,
		LastTickAt:      w.lastTickAt,
		IntervalSeconds: int(w.interval.Seconds()),
	}
}
