package store

import (
	"context"
	"time"

	"bloodlink/internal/inventory/models"
	"bloodlink/pkg/domain"
)

// Store persists inventory lots. ConsumeFIFO must be atomic: either the full
// count is consumed or the ledger is left untouched and
// sentinel.ErrInsufficientStock is returned. Implementations must serialize
// conflicting consumptions of the same lot set.
type Store interface {
	Add(ctx context.Context, lots []*models.Lot) error
	ConsumeFIFO(ctx context.Context, bankID domain.AccountID, group domain.BloodGroup, count int) error

	// ListByBank returns the bank's lots ordered by ascending expiry.
	ListByBank(ctx context.Context, bankID domain.AccountID) ([]*models.Lot, error)
	// ExpiringBetween returns all banks' lots with expiry in [from, until].
	ExpiringBetween(ctx context.Context, from, until time.Time) ([]*models.Lot, error)

	TotalUnits(ctx context.Context, bankID domain.AccountID) (int, error)
	UnitsAddedSince(ctx context.Context, bankID domain.AccountID, since time.Time) (int, error)
	UnitsExpiringBetween(ctx context.Context, bankID domain.AccountID, from, until time.Time) (int, error)

	// TotalForGroup sums units of a group across all banks. When
	// unexpiredAfter is non-zero only lots expiring after it are counted.
	TotalForGroup(ctx context.Context, group domain.BloodGroup, unexpiredAfter time.Time) (int, error)
	DistributionForBank(ctx context.Context, bankID domain.AccountID) (map[domain.BloodGroup]int, error)
	DistributionAll(ctx context.Context) (map[domain.BloodGroup]int, error)
	// AvailabilityForGroup returns per-bank unit totals for a group,
	// excluding banks with no stock.
	AvailabilityForGroup(ctx context.Context, group domain.BloodGroup) ([]models.BankStock, error)
}
