package store

import (
	"context"
	"sort"
	"sync"

	"bloodlink/internal/notification/models"
	"bloodlink/pkg/domain"
)

// InMemory is the map-backed notification store used in tests and
// single-node deployments.
type InMemory struct {
	mu            sync.RWMutex
	notifications map[domain.NotificationID]*models.Notification
}

func NewInMemory() *InMemory {
	return &InMemory{notifications: make(map[domain.NotificationID]*models.Notification)}
}

func (s *InMemory) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *n
	s.notifications[n.ID] = &cp
	return nil
}

func (s *InMemory) ExistsUnread(_ context.Context, accountID domain.AccountID, typ models.Type, subject string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, n := range s.notifications {
		if n.AccountID == accountID && n.Type == typ && n.Subject == subject && !n.Read {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemory) ListByAccount(_ context.Context, accountID domain.AccountID) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Notification
	for _, n := range s.notifications {
		if n.AccountID == accountID {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) MarkAllRead(_ context.Context, accountID domain.AccountID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flipped := 0
	for _, n := range s.notifications {
		if n.AccountID == accountID && !n.Read {
			n.Read = true
			flipped++
		}
	}
	return flipped, nil
}
