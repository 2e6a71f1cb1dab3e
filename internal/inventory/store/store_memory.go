package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"bloodlink/internal/inventory/models"
	"bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

// InMemory is the map-backed lot store. One mutex covers every operation,
// so the FIFO scan-and-delete in ConsumeFIFO is atomic with respect to
// concurrent consumers.
type InMemory struct {
	mu   sync.RWMutex
	lots map[domain.LotID]*models.Lot
}

func NewInMemory() *InMemory {
	return &InMemory{lots: make(map[domain.LotID]*models.Lot)}
}

func (s *InMemory) Add(_ context.Context, lots []*models.Lot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range lots {
		cp := *l
		s.lots[l.ID] = &cp
	}
	return nil
}

func (s *InMemory) ConsumeFIFO(_ context.Context, bankID domain.AccountID, group domain.BloodGroup, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	matching := s.sortedLots(func(l *models.Lot) bool {
		return l.BankID == bankID && l.BloodGroup == group
	})

	available := 0
	for _, l := range matching {
		available += l.Units
	}
	if available < count {
		return sentinel.ErrInsufficientStock
	}

	remaining := count
	for _, l := range matching {
		if remaining == 0 {
			break
		}
		if l.Units <= remaining {
			remaining -= l.Units
			delete(s.lots, l.ID)
			continue
		}
		s.lots[l.ID].Units -= remaining
		remaining = 0
	}
	return nil
}

func (s *InMemory) ListByBank(_ context.Context, bankID domain.AccountID) ([]*models.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lots := s.sortedLots(func(l *models.Lot) bool { return l.BankID == bankID })
	out := make([]*models.Lot, 0, len(lots))
	for _, l := range lots {
		cp := *l
		out = append(out, &cp)
	}
	return out, nil
}

func (s *InMemory) ExpiringBetween(_ context.Context, from, until time.Time) ([]*models.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lots := s.sortedLots(func(l *models.Lot) bool {
		return !l.ExpiryDate.Before(from) && !l.ExpiryDate.After(until)
	})
	out := make([]*models.Lot, 0, len(lots))
	for _, l := range lots {
		cp := *l
		out = append(out, &cp)
	}
	return out, nil
}

func (s *InMemory) TotalUnits(_ context.Context, bankID domain.AccountID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, l := range s.lots {
		if l.BankID == bankID {
			total += l.Units
		}
	}
	return total, nil
}

func (s *InMemory) UnitsAddedSince(_ context.Context, bankID domain.AccountID, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, l := range s.lots {
		if l.BankID == bankID && !l.CollectedAt.Before(since) {
			total += l.Units
		}
	}
	return total, nil
}

func (s *InMemory) UnitsExpiringBetween(_ context.Context, bankID domain.AccountID, from, until time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, l := range s.lots {
		if l.BankID == bankID && !l.ExpiryDate.Before(from) && !l.ExpiryDate.After(until) {
			total += l.Units
		}
	}
	return total, nil
}

func (s *InMemory) TotalForGroup(_ context.Context, group domain.BloodGroup, unexpiredAfter time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, l := range s.lots {
		if l.BloodGroup != group {
			continue
		}
		if !unexpiredAfter.IsZero() && !l.ExpiryDate.After(unexpiredAfter) {
			continue
		}
		total += l.Units
	}
	return total, nil
}

func (s *InMemory) DistributionForBank(_ context.Context, bankID domain.AccountID) (map[domain.BloodGroup]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dist := make(map[domain.BloodGroup]int)
	for _, l := range s.lots {
		if l.BankID == bankID {
			dist[l.BloodGroup] += l.Units
		}
	}
	return dist, nil
}

func (s *InMemory) DistributionAll(_ context.Context) (map[domain.BloodGroup]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dist := make(map[domain.BloodGroup]int)
	for _, l := range s.lots {
		dist[l.BloodGroup] += l.Units
	}
	return dist, nil
}

func (s *InMemory) AvailabilityForGroup(_ context.Context, group domain.BloodGroup) ([]models.BankStock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byBank := make(map[domain.AccountID]int)
	for _, l := range s.lots {
		if l.BloodGroup == group {
			byBank[l.BankID] += l.Units
		}
	}
	out := make([]models.BankStock, 0, len(byBank))
	for bankID, units := range byBank {
		out = append(out, models.BankStock{BankID: bankID, Units: units})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Units > out[j].Units })
	return out, nil
}

// sortedLots filters and orders lots by ascending expiry with a stable
// tiebreak so FIFO order is deterministic.
func (s *InMemory) sortedLots(keep func(*models.Lot) bool) []*models.Lot {
	var lots []*models.Lot
	for _, l := range s.lots {
		if keep(l) {
			lots = append(lots, l)
		}
	}
	sort.Slice(lots, func(i, j int) bool {
		if !lots[i].ExpiryDate.Equal(lots[j].ExpiryDate) {
			return lots[i].ExpiryDate.Before(lots[j].ExpiryDate)
		}
		if !lots[i].CollectedAt.Equal(lots[j].CollectedAt) {
			return lots[i].CollectedAt.Before(lots[j].CollectedAt)
		}
		return lots[i].ID.String() < lots[j].ID.String()
	})
	return lots
}
