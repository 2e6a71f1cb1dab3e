package store

import (
	"context"
	"sort"
	"sync"

	"bloodlink/internal/appointment/models"
	"bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

// InMemory is a map-backed Store for tests and local development.
type InMemory struct {
	mu           sync.RWMutex
	appointments map[domain.AppointmentID]*models.Appointment
}

func NewInMemory() *InMemory {
	return &InMemory{appointments: make(map[domain.AppointmentID]*models.Appointment)}
}

func (s *InMemory) Create(_ context.Context, appointment *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.appointments[appointment.ID]; ok {
		return sentinel.ErrConflict
	}
	s.appointments[appointment.ID] = copyAppointment(appointment)
	return nil
}

func (s *InMemory) GetByID(_ context.Context, id domain.AppointmentID) (*models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	appointment, ok := s.appointments[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyAppointment(appointment), nil
}

func (s *InMemory) Update(_ context.Context, appointment *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.appointments[appointment.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.appointments[appointment.ID] = copyAppointment(appointment)
	return nil
}

func (s *InMemory) ListByDonor(_ context.Context, donorID domain.AccountID) ([]*models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Appointment
	for _, appointment := range s.appointments {
		if appointment.DonorID == donorID {
			out = append(out, copyAppointment(appointment))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *InMemory) ListByCampaign(_ context.Context, campaignID domain.CampaignID) ([]*models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Appointment
	for _, appointment := range s.appointments {
		if appointment.CampaignID != nil && *appointment.CampaignID == campaignID {
			out = append(out, copyAppointment(appointment))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *InMemory) ListCompletedForBank(_ context.Context, bankID domain.AccountID) ([]*models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Appointment
	for _, appointment := range s.appointments {
		if appointment.Status != models.StatusCompleted {
			continue
		}
		if appointment.BankID != nil && *appointment.BankID == bankID {
			out = append(out, copyAppointment(appointment))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func copyAppointment(a *models.Appointment) *models.Appointment {
	c := *a
	if a.CampaignID != nil {
		id := *a.CampaignID
		c.CampaignID = &id
	}
	if a.BankID != nil {
		id := *a.BankID
		c.BankID = &id
	}
	return &c
}
