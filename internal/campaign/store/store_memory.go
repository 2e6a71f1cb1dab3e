package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"bloodlink/internal/campaign/models"
	"bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

// InMemory is a map-backed Store for tests and local development.
type InMemory struct {
	mu        sync.RWMutex
	campaigns map[domain.CampaignID]*models.Campaign
}

func NewInMemory() *InMemory {
	return &InMemory{campaigns: make(map[domain.CampaignID]*models.Campaign)}
}

func (s *InMemory) Create(_ context.Context, campaign *models.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.campaigns[campaign.ID]; ok {
		return sentinel.ErrConflict
	}
	s.campaigns[campaign.ID] = copyCampaign(campaign)
	return nil
}

func (s *InMemory) GetByID(_ context.Context, id domain.CampaignID) (*models.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	campaign, ok := s.campaigns[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyCampaign(campaign), nil
}

func (s *InMemory) Update(_ context.Context, campaign *models.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.campaigns[campaign.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.campaigns[campaign.ID] = copyCampaign(campaign)
	return nil
}

func (s *InMemory) ListUpcoming(_ context.Context, after time.Time) ([]*models.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Campaign
	for _, campaign := range s.campaigns {
		if campaign.Status == models.StatusScheduled && !campaign.ScheduledFor.Before(after) {
			out = append(out, copyCampaign(campaign))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.Before(out[j].ScheduledFor) })
	return out, nil
}

func (s *InMemory) ListByOrganizer(_ context.Context, organizerID domain.AccountID) ([]*models.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Campaign
	for _, campaign := range s.campaigns {
		if campaign.OrganizerID == organizerID {
			out = append(out, copyCampaign(campaign))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func copyCampaign(c *models.Campaign) *models.Campaign {
	cp := *c
	if c.TargetGroups != nil {
		cp.TargetGroups = make([]domain.BloodGroup, len(c.TargetGroups))
		copy(cp.TargetGroups, c.TargetGroups)
	}
	return &cp
}
