package models

import (
	"fmt"
	"time"

	"bloodlink/pkg/domain"
)

// expiryWarningWindow is how far ahead a lot counts as expiring soon.
const expiryWarningWindow = 7 * 24 * time.Hour

// Status is the derived freshness of a lot at a point in time.
type Status string

const (
	StatusAvailable    Status = "available"
	StatusExpiringSoon Status = "expiring_soon"
	StatusExpired      Status = "expired"
)

// Lot is one tracked bag of blood. The ledger stores unit-granularity lots
// (Units is always 1 on creation) so every physical bag is independently
// identifiable and FIFO consumption deletes whole rows.
type Lot struct {
	ID          domain.LotID
	BankID      domain.AccountID
	BloodGroup  domain.BloodGroup
	Units       int
	ExpiryDate  time.Time
	CollectedAt time.Time
}

// StatusAt classifies the lot relative to now: expired if the expiry has
// passed, expiring soon within the 7-day window (inclusive), available
// otherwise.
func (l *Lot) StatusAt(now time.Time) Status {
	if l.ExpiryDate.Before(now) {
		return StatusExpired
	}
	if !l.ExpiryDate.After(now.Add(expiryWarningWindow)) {
		return StatusExpiringSoon
	}
	return StatusAvailable
}

// BagID renders the stable human-facing bag identifier.
func (l *Lot) BagID() string {
	return fmt.Sprintf("BB-%d-%.8s", l.CollectedAt.Year(), l.ID.String())
}

// Summary aggregates a bank's ledger position.
type Summary struct {
	TotalUnits   int
	AddedToday   int
	ExpiringSoon int
}

// BankStock is one bank's availability for a blood group.
type BankStock struct {
	BankID domain.AccountID
	Units  int
}
