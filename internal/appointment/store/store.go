package store

import (
	"context"

	"bloodlink/internal/appointment/models"
	"bloodlink/pkg/domain"
)

// Store persists donation appointments.
type Store interface {
	Create(ctx context.Context, appointment *models.Appointment) error
	GetByID(ctx context.Context, id domain.AppointmentID) (*models.Appointment, error)
	// Update persists status changes.
	Update(ctx context.Context, appointment *models.Appointment) error
	// ListByDonor returns the donor's appointments, earliest date first.
	ListByDonor(ctx context.Context, donorID domain.AccountID) ([]*models.Appointment, error)
	// ListByCampaign returns a campaign's booked slots, earliest date first.
	ListByCampaign(ctx context.Context, campaignID domain.CampaignID) ([]*models.Appointment, error)
	// ListCompletedForBank returns the bank's completed donations, newest
	// date first.
	ListCompletedForBank(ctx context.Context, bankID domain.AccountID) ([]*models.Appointment, error)
}
