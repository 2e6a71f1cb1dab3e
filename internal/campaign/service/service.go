package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bloodlink/internal/campaign/models"
	"bloodlink/internal/campaign/store"
	"bloodlink/pkg/clock"
	"bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/sentinel"
)

// Service manages donation drives.
type Service struct {
	store  store.Store
	clock  clock.Clock
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(st store.Store, clk clock.Clock, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("campaign store is required")
	}
	if clk == nil {
		return nil, fmt.Errorf("clock is required")
	}
	s := &Service{store: st, clock: clk, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateInput is a full campaign form from an organizer.
type CreateInput struct {
	Title        string
	Description  string
	Location     string
	ScheduledFor time.Time
	TargetGroups []domain.BloodGroup
}

func (s *Service) Create(ctx context.Context, organizerID domain.AccountID, in CreateInput) (*models.Campaign, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "campaign title is required")
	}
	now := s.clock.Now()
	if in.ScheduledFor.Before(now) {
		return nil, dErrors.New(dErrors.CodeValidation, "campaign date must be in the future")
	}
	for _, group := range in.TargetGroups {
		if !group.IsValid() {
			return nil, dErrors.Newf(dErrors.CodeValidation, "invalid blood group: %s", group)
		}
	}

	campaign := &models.Campaign{
		ID:           domain.NewCampaignID(),
		OrganizerID:  organizerID,
		Title:        in.Title,
		Description:  in.Description,
		Location:     in.Location,
		ScheduledFor: in.ScheduledFor,
		TargetGroups: in.TargetGroups,
		Status:       models.StatusScheduled,
		CreatedAt:    now,
	}
	if err := s.store.Create(ctx, campaign); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create campaign")
	}
	return campaign, nil
}

// CreateEmergencyDraft schedules a next-day drive targeting one group,
// located at the organizing bank's address. The emergency request pipeline
// calls this once per active bank.
func (s *Service) CreateEmergencyDraft(ctx context.Context, organizerID domain.AccountID, group domain.BloodGroup, hospitalName, location string) (*models.Campaign, error) {
	if !group.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid blood group: %s", group)
	}
	now := s.clock.Now()
	campaign := &models.Campaign{
		ID:           domain.NewCampaignID(),
		OrganizerID:  organizerID,
		Title:        fmt.Sprintf("Emergency %s donation drive", group),
		Description:  fmt.Sprintf("Urgent collection drive for %s blood requested by %s.", group, hospitalName),
		Location:     location,
		ScheduledFor: now.Add(24 * time.Hour),
		TargetGroups: []domain.BloodGroup{group},
		Status:       models.StatusScheduled,
		CreatedAt:    now,
	}
	if err := s.store.Create(ctx, campaign); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create draft campaign")
	}
	s.logger.InfoContext(ctx, "emergency draft campaign created",
		"campaign_id", campaign.ID.String(),
		"organizer_id", organizerID.String(),
		"blood_group", group.String(),
	)
	return campaign, nil
}

// UpdateInput carries partial edits; nil fields are left unchanged.
type UpdateInput struct {
	Title        *string
	Description  *string
	Location     *string
	ScheduledFor *time.Time
	TargetGroups []domain.BloodGroup
}

func (s *Service) Update(ctx context.Context, organizerID domain.AccountID, id domain.CampaignID, in UpdateInput) (*models.Campaign, error) {
	campaign, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign.OrganizerID != organizerID {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "campaign belongs to another organizer")
	}
	if campaign.Status != models.StatusScheduled {
		return nil, dErrors.Newf(dErrors.CodeConflict, "campaign is %s", campaign.Status)
	}

	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "campaign title is required")
		}
		campaign.Title = *in.Title
	}
	if in.Description != nil {
		campaign.Description = *in.Description
	}
	if in.Location != nil {
		campaign.Location = *in.Location
	}
	if in.ScheduledFor != nil {
		if in.ScheduledFor.Before(s.clock.Now()) {
			return nil, dErrors.New(dErrors.CodeValidation, "campaign date must be in the future")
		}
		campaign.ScheduledFor = *in.ScheduledFor
	}
	if in.TargetGroups != nil {
		for _, group := range in.TargetGroups {
			if !group.IsValid() {
				return nil, dErrors.Newf(dErrors.CodeValidation, "invalid blood group: %s", group)
			}
		}
		campaign.TargetGroups = in.TargetGroups
	}

	if err := s.store.Update(ctx, campaign); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update campaign")
	}
	return campaign, nil
}

func (s *Service) Cancel(ctx context.Context, organizerID domain.AccountID, id domain.CampaignID) (*models.Campaign, error) {
	campaign, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign.OrganizerID != organizerID {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "campaign belongs to another organizer")
	}
	if campaign.Status != models.StatusScheduled {
		return nil, dErrors.Newf(dErrors.CodeConflict, "campaign is %s", campaign.Status)
	}

	campaign.Status = models.StatusCancelled
	if err := s.store.Update(ctx, campaign); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel campaign")
	}
	return campaign, nil
}

// ListUpcoming returns scheduled drives from now on, soonest first.
func (s *Service) ListUpcoming(ctx context.Context) ([]*models.Campaign, error) {
	campaigns, err := s.store.ListUpcoming(ctx, s.clock.Now())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list campaigns")
	}
	return campaigns, nil
}

func (s *Service) ListByOrganizer(ctx context.Context, organizerID domain.AccountID) ([]*models.Campaign, error) {
	campaigns, err := s.store.ListByOrganizer(ctx, organizerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list organizer campaigns")
	}
	return campaigns, nil
}

func (s *Service) get(ctx context.Context, id domain.CampaignID) (*models.Campaign, error) {
	campaign, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "campaign not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up campaign")
	}
	return campaign, nil
}
