package store

import (
	"context"
	"time"

	"bloodlink/internal/campaign/models"
	"bloodlink/pkg/domain"
)

// Store persists donation drives.
type Store interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	GetByID(ctx context.Context, id domain.CampaignID) (*models.Campaign, error)
	Update(ctx context.Context, campaign *models.Campaign) error
	// ListUpcoming returns scheduled campaigns on or after the given time,
	// soonest first.
	ListUpcoming(ctx context.Context, after time.Time) ([]*models.Campaign, error)
	ListByOrganizer(ctx context.Context, organizerID domain.AccountID) ([]*models.Campaign, error)
}
