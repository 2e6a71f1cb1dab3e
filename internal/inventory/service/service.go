package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bloodlink/internal/inventory/models"
	"bloodlink/internal/inventory/store"
	"bloodlink/internal/platform/metrics"
	"bloodlink/pkg/clock"
	"bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/sentinel"
)

// Thresholds for derived ledger signals.
const (
	expiryWarningWindow = 7 * 24 * time.Hour
	// shortageThreshold marks a blood group as globally short when the
	// total across banks drops below it.
	shortageThreshold = 10
)

// Ledger is the blood-unit inventory service: addition decomposes into
// unit-granularity lots, consumption is FIFO by expiry and atomic, and all
// derived statuses come from the caller-visible clock.
type Ledger struct {
	store   store.Store
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

func New(st store.Store, clk clock.Clock, opts ...Option) (*Ledger, error) {
	if st == nil {
		return nil, fmt.Errorf("inventory store is required")
	}
	if clk == nil {
		return nil, fmt.Errorf("clock is required")
	}
	l := &Ledger{store: st, clock: clk, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// AddUnits records count freshly collected units as individual lots sharing
// one expiry, preserving bag-level identity for FIFO and status reporting.
func (l *Ledger) AddUnits(ctx context.Context, bankID domain.AccountID, group domain.BloodGroup, count int, expiry time.Time) ([]*models.Lot, error) {
	if count <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "unit count must be positive")
	}
	if !group.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid blood group: %s", group)
	}
	now := l.clock.Now()
	if expiry.IsZero() || expiry.Before(now) {
		return nil, dErrors.New(dErrors.CodeValidation, "expiry date must be in the future")
	}

	lots := make([]*models.Lot, 0, count)
	for i := 0; i < count; i++ {
		lots = append(lots, &models.Lot{
			ID:          domain.NewLotID(),
			BankID:      bankID,
			BloodGroup:  group,
			Units:       1,
			ExpiryDate:  expiry,
			CollectedAt: now,
		})
	}
	if err := l.store.Add(ctx, lots); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to add inventory lots")
	}

	l.logger.InfoContext(ctx, "inventory added",
		"bank_id", bankID.String(),
		"blood_group", group.String(),
		"units", count,
	)
	return lots, nil
}

// RemoveUnits consumes count units of the group from the bank's lots,
// earliest expiry first. The consumption is atomic: on insufficient stock
// the ledger is unchanged and CodeInsufficientStock is reported.
func (l *Ledger) RemoveUnits(ctx context.Context, bankID domain.AccountID, group domain.BloodGroup, count int) error {
	if count <= 0 {
		return dErrors.New(dErrors.CodeValidation, "unit count must be positive")
	}
	if !group.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "invalid blood group: %s", group)
	}

	if err := l.store.ConsumeFIFO(ctx, bankID, group, count); err != nil {
		if errors.Is(err, sentinel.ErrInsufficientStock) {
			return dErrors.Newf(dErrors.CodeInsufficientStock,
				"insufficient stock: %d units of %s requested", count, group)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume inventory")
	}

	if l.metrics != nil {
		l.metrics.InventoryConsumptions.WithLabelValues(group.String()).Add(float64(count))
	}
	return nil
}

// Summarize reports the bank's total units, units added today, and units
// expiring within the 7-day window (inclusive) that have not yet expired.
func (l *Ledger) Summarize(ctx context.Context, bankID domain.AccountID) (models.Summary, error) {
	now := l.clock.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	total, err := l.store.TotalUnits(ctx, bankID)
	if err != nil {
		return models.Summary{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to total inventory")
	}
	addedToday, err := l.store.UnitsAddedSince(ctx, bankID, startOfDay)
	if err != nil {
		return models.Summary{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count today's additions")
	}
	expiring, err := l.store.UnitsExpiringBetween(ctx, bankID, now, now.Add(expiryWarningWindow))
	if err != nil {
		return models.Summary{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count expiring units")
	}
	return models.Summary{TotalUnits: total, AddedToday: addedToday, ExpiringSoon: expiring}, nil
}

// LotDetail decorates a lot with its bag identifier and derived status.
type LotDetail struct {
	models.Lot
	BagID  string
	Status models.Status
}

// Details lists a bank's lots in FIFO order with bag-level status.
func (l *Ledger) Details(ctx context.Context, bankID domain.AccountID) ([]LotDetail, error) {
	lots, err := l.store.ListByBank(ctx, bankID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list inventory")
	}
	now := l.clock.Now()
	out := make([]LotDetail, 0, len(lots))
	for _, lot := range lots {
		out = append(out, LotDetail{Lot: *lot, BagID: lot.BagID(), Status: lot.StatusAt(now)})
	}
	return out, nil
}

// TotalAcrossBanks sums a blood group over every bank's stock.
func (l *Ledger) TotalAcrossBanks(ctx context.Context, group domain.BloodGroup) (int, error) {
	if !group.IsValid() {
		return 0, dErrors.Newf(dErrors.CodeValidation, "invalid blood group: %s", group)
	}
	total, err := l.store.TotalForGroup(ctx, group, time.Time{})
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to total blood group")
	}
	return total, nil
}

// UnexpiredTotal sums the group's units that are still usable now. The
// alert pipeline projects balances from this figure.
func (l *Ledger) UnexpiredTotal(ctx context.Context, group domain.BloodGroup) (int, error) {
	total, err := l.store.TotalForGroup(ctx, group, l.clock.Now())
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to total unexpired stock")
	}
	return total, nil
}

// ShortageGroups returns every blood group whose global total is below the
// shortage threshold.
func (l *Ledger) ShortageGroups(ctx context.Context) ([]domain.BloodGroup, error) {
	var short []domain.BloodGroup
	for _, group := range domain.AllBloodGroups() {
		total, err := l.store.TotalForGroup(ctx, group, time.Time{})
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to total blood group")
		}
		if total < shortageThreshold {
			short = append(short, group)
		}
	}
	return short, nil
}

// Distribution returns per-group totals for one bank (or all banks when
// bankID is nil-valued), with every group present even at zero.
func (l *Ledger) Distribution(ctx context.Context, bankID domain.AccountID) (map[domain.BloodGroup]int, error) {
	var (
		dist map[domain.BloodGroup]int
		err  error
	)
	if bankID.IsNil() {
		dist, err = l.store.DistributionAll(ctx)
	} else {
		dist, err = l.store.DistributionForBank(ctx, bankID)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to aggregate distribution")
	}
	full := make(map[domain.BloodGroup]int, 8)
	for _, group := range domain.AllBloodGroups() {
		full[group] = dist[group]
	}
	return full, nil
}

// StockAvailability reports which banks hold the group and how much.
func (l *Ledger) StockAvailability(ctx context.Context, group domain.BloodGroup) ([]models.BankStock, error) {
	if !group.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid blood group: %s", group)
	}
	stocks, err := l.store.AvailabilityForGroup(ctx, group)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query availability")
	}
	return stocks, nil
}

// ExpiringLots feeds the expiry sweep: all banks' lots inside the warning
// window that have not yet expired.
func (l *Ledger) ExpiringLots(ctx context.Context) ([]*models.Lot, error) {
	now := l.clock.Now()
	lots, err := l.store.ExpiringBetween(ctx, now, now.Add(expiryWarningWindow))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list expiring lots")
	}
	return lots, nil
}
