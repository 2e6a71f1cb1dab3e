// Package alert projects stock against forecast demand and turns the
// balance into deduplicated notifications.
package alert

import (
	"context"
	"fmt"
	"log/slog"

	accountmodels "bloodlink/internal/account/models"
	inventorymodels "bloodlink/internal/inventory/models"
	notifmodels "bloodlink/internal/notification/models"
	"bloodlink/internal/platform/metrics"
	"bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

// safetyBuffer is the projected balance below which a group counts as
// heading for shortage.
const safetyBuffer = 5

// driveThreshold is the aggregate shortage above which banks are asked to
// organize donation drives.
const driveThreshold = 20

// Ledger supplies current usable stock and the expiry feed.
type Ledger interface {
	UnexpiredTotal(ctx context.Context, group domain.BloodGroup) (int, error)
	ExpiringLots(ctx context.Context) ([]*inventorymodels.Lot, error)
}

// Forecast supplies predicted demand for the coming week.
type Forecast interface {
	NextWeekDemand(ctx context.Context) (map[domain.BloodGroup]int, error)
}

// Directory resolves the notification audiences.
type Directory interface {
	ActiveByRole(ctx context.Context, role domain.Role) ([]*accountmodels.Account, error)
}

// Notifier delivers deduplicated notifications. The boolean result is how
// the engine counts genuinely new alerts.
type Notifier interface {
	Notify(ctx context.Context, accountID domain.AccountID, typ notifmodels.Type, subject, message string) (bool, error)
}

// Engine runs the shortage projection and the expiry sweep. Both are
// idempotent: repeated runs against unchanged state create nothing new
// because the notification layer suppresses unread duplicates.
type Engine struct {
	ledger    Ledger
	forecast  Forecast
	directory Directory
	notifier  Notifier
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func New(ledger Ledger, forecast Forecast, directory Directory, notifier Notifier, opts ...Option) (*Engine, error) {
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger is required")
	}
	if forecast == nil {
		return nil, fmt.Errorf("forecast is required")
	}
	if directory == nil {
		return nil, fmt.Errorf("account directory is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	e := &Engine{ledger: ledger, forecast: forecast, directory: directory, notifier: notifier, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ShortageAlert explains one group's projected shortfall.
type ShortageAlert struct {
	Group     domain.BloodGroup
	Stock     int
	Predicted int
	Projected int
	Shortage  int
}

// Report is the outcome of one shortage run.
type Report struct {
	Shortages         []ShortageAlert
	AggregateShortage int
	// Created counts notifications actually delivered; duplicates
	// suppressed by the dedup layer are excluded.
	Created int
}

// Run projects each group's balance over the next week and alerts donors
// about shortages. When the aggregate shortfall is large, banks are asked
// to organize drives.
func (e *Engine) Run(ctx context.Context) (Report, error) {
	predicted, err := e.forecast.NextWeekDemand(ctx)
	if err != nil {
		return Report{}, err
	}

	var report Report
	for _, group := range domain.AllBloodGroups() {
		stock, err := e.ledger.UnexpiredTotal(ctx, group)
		if err != nil {
			return Report{}, err
		}
		projected := stock - predicted[group]
		if projected >= safetyBuffer {
			continue
		}
		report.Shortages = append(report.Shortages, ShortageAlert{
			Group:     group,
			Stock:     stock,
			Predicted: predicted[group],
			Projected: projected,
			Shortage:  safetyBuffer - projected,
		})
		report.AggregateShortage += safetyBuffer - projected
	}

	if len(report.Shortages) == 0 {
		return report, nil
	}

	donors, err := e.directory.ActiveByRole(ctx, domain.RoleDonor)
	if err != nil {
		return Report{}, err
	}
	for _, shortage := range report.Shortages {
		subject := "shortage:" + shortage.Group.String()
		message := fmt.Sprintf(
			"URGENT: %s stock is projected %d units short of next week's demand (%d on hand, %d predicted). Please donate.",
			shortage.Group, shortage.Shortage, shortage.Stock, shortage.Predicted)
		for _, donor := range donors {
			// Only donors of the short group are asked to donate.
			if donor.Profile.BloodGroup != shortage.Group {
				continue
			}
			created, err := e.notifier.Notify(ctx, donor.ID, notifmodels.TypeUrgent, subject, message)
			if err != nil {
				return Report{}, err
			}
			if created {
				report.Created++
			}
		}
	}

	if report.AggregateShortage > driveThreshold {
		banks, err := e.directory.ActiveByRole(ctx, domain.RoleBank)
		if err != nil {
			return Report{}, err
		}
		message := fmt.Sprintf(
			"Projected shortfall of %d units across blood groups next week. Consider organizing a donation drive.",
			report.AggregateShortage)
		for _, bank := range banks {
			created, err := e.notifier.Notify(ctx, bank.ID, notifmodels.TypeWarning, "drive:aggregate", message)
			if err != nil {
				return Report{}, err
			}
			if created {
				report.Created++
			}
		}
	}

	if e.metrics != nil {
		e.metrics.AlertsGenerated.Add(float64(report.Created))
	}
	e.logger.InfoContext(ctx, "shortage run complete",
		"shortage_groups", len(report.Shortages),
		"aggregate_shortage", report.AggregateShortage,
		"alerts_created", report.Created,
	)
	return report, nil
}

// ExpirySweep warns each bank about lots inside the expiry window. Each lot
// alerts at most once while the warning stays unread.
func (e *Engine) ExpirySweep(ctx context.Context) (int, error) {
	lots, err := e.ledger.ExpiringLots(ctx)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, lot := range lots {
		subject := "expiry:" + lot.ID.String()
		message := fmt.Sprintf("Bag %s (%s) expires on %s. Prioritize it for fulfilment.",
			lot.BagID(), lot.BloodGroup, lot.ExpiryDate.Format("2006-01-02"))
		ok, err := e.notifier.Notify(ctx, lot.BankID, notifmodels.TypeExpiry, subject, message)
		if err != nil {
			return created, dErrors.Wrap(err, dErrors.CodeInternal, "failed to deliver expiry warning")
		}
		if ok {
			created++
		}
	}

	if e.metrics != nil && created > 0 {
		e.metrics.AlertsGenerated.Add(float64(created))
	}
	return created, nil
}
