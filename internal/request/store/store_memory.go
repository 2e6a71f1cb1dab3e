package store

import (
	"context"
	"sort"
	"sync"

	"bloodlink/internal/request/models"
	"bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

// InMemory is a map-backed Store for tests and local development.
type InMemory struct {
	mu       sync.RWMutex
	requests map[domain.RequestID]*models.Request
}

func NewInMemory() *InMemory {
	return &InMemory{requests: make(map[domain.RequestID]*models.Request)}
}

func (s *InMemory) Create(_ context.Context, request *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[request.ID]; ok {
		return sentinel.ErrConflict
	}
	s.requests[request.ID] = copyRequest(request)
	return nil
}

func (s *InMemory) GetByID(_ context.Context, id domain.RequestID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	request, ok := s.requests[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyRequest(request), nil
}

func (s *InMemory) Update(_ context.Context, request *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[request.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.requests[request.ID] = copyRequest(request)
	return nil
}

func (s *InMemory) ListByHospital(_ context.Context, hospitalID domain.AccountID) ([]*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Request
	for _, request := range s.requests {
		if request.HospitalID == hospitalID {
			out = append(out, copyRequest(request))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) ListPendingForBank(_ context.Context, bankID domain.AccountID) ([]*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Request
	for _, request := range s.requests {
		if request.Status == models.StatusPending && routedTo(request, bankID) {
			out = append(out, copyRequest(request))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) ListPending(_ context.Context) ([]*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Request
	for _, request := range s.requests {
		if request.Status == models.StatusPending {
			out = append(out, copyRequest(request))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) ListUrgentForBank(_ context.Context, bankID domain.AccountID) ([]*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Request
	for _, request := range s.requests {
		if request.Status != models.StatusPending || !routedTo(request, bankID) {
			continue
		}
		if request.Priority == models.PriorityUrgent || request.Priority == models.PriorityEmergency {
			out = append(out, copyRequest(request))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// routedTo reports whether the bank may see the request: addressed to it or
// unrouted.
func routedTo(r *models.Request, bankID domain.AccountID) bool {
	return r.BankID == nil || *r.BankID == bankID
}

func copyRequest(r *models.Request) *models.Request {
	c := *r
	if r.BankID != nil {
		id := *r.BankID
		c.BankID = &id
	}
	if r.DecidedAt != nil {
		t := *r.DecidedAt
		c.DecidedAt = &t
	}
	if r.DecidedBy != nil {
		id := *r.DecidedBy
		c.DecidedBy = &id
	}
	return &c
}
