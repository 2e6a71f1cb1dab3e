package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	accountmodels "bloodlink/internal/account/models"
	"bloodlink/internal/appointment/models"
	"bloodlink/internal/appointment/store"
	campaignmodels "bloodlink/internal/campaign/models"
	"bloodlink/pkg/clock"
	"bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/sentinel"
)

// Directory resolves accounts for booking validation and listing views.
type Directory interface {
	GetByID(ctx context.Context, id domain.AccountID) (*accountmodels.Account, error)
}

// Drives resolves campaigns for slot booking.
type Drives interface {
	GetByID(ctx context.Context, id domain.CampaignID) (*campaignmodels.Campaign, error)
}

// Service manages donation appointments. Completed appointments double as
// the bank's donation history.
type Service struct {
	store     store.Store
	directory Directory
	drives    Drives
	clock     clock.Clock
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(st store.Store, directory Directory, drives Drives, clk clock.Clock, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("appointment store is required")
	}
	if directory == nil {
		return nil, fmt.Errorf("account directory is required")
	}
	if drives == nil {
		return nil, fmt.Errorf("campaign lookup is required")
	}
	if clk == nil {
		return nil, fmt.Errorf("clock is required")
	}
	s := &Service{store: st, directory: directory, drives: drives, clock: clk, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BookInput is a donor's slot booking. Exactly one of CampaignID and BankID
// names the place of donation.
type BookInput struct {
	CampaignID *domain.CampaignID
	BankID     *domain.AccountID
	Date       time.Time
	TimeSlot   string
}

// Book validates and records a scheduled appointment.
func (s *Service) Book(ctx context.Context, donorID domain.AccountID, in BookInput) (*models.Appointment, error) {
	if in.TimeSlot == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "time slot is required")
	}
	if in.Date.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "appointment date is required")
	}
	if in.Date.Before(s.clock.Now().Truncate(24 * time.Hour)) {
		return nil, dErrors.New(dErrors.CodeValidation, "appointment date is in the past")
	}
	if (in.CampaignID == nil) == (in.BankID == nil) {
		return nil, dErrors.New(dErrors.CodeValidation, "book either a campaign slot or a bank visit")
	}

	donor, err := s.directory.GetByID(ctx, donorID)
	if err != nil {
		return nil, err
	}
	if donor.Role != domain.RoleDonor {
		return nil, dErrors.New(dErrors.CodeValidation, "only donors book appointments")
	}

	if in.CampaignID != nil {
		campaign, err := s.getCampaign(ctx, *in.CampaignID)
		if err != nil {
			return nil, err
		}
		if campaign.Status != campaignmodels.StatusScheduled {
			return nil, dErrors.Newf(dErrors.CodeConflict, "campaign is %s", campaign.Status)
		}
	}
	if in.BankID != nil {
		bank, err := s.directory.GetByID(ctx, *in.BankID)
		if err != nil {
			return nil, err
		}
		if bank.Role != domain.RoleBank {
			return nil, dErrors.New(dErrors.CodeValidation, "bank visits must name a blood bank")
		}
	}

	appointment := &models.Appointment{
		ID:         domain.NewAppointmentID(),
		DonorID:    donorID,
		CampaignID: in.CampaignID,
		BankID:     in.BankID,
		Date:       in.Date,
		TimeSlot:   in.TimeSlot,
		Status:     models.StatusScheduled,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.store.Create(ctx, appointment); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create appointment")
	}

	s.logger.InfoContext(ctx, "appointment booked",
		"appointment_id", appointment.ID.String(),
		"donor_id", donorID.String(),
		"date", in.Date.Format("2006-01-02"),
		"slot", in.TimeSlot,
	)
	return appointment, nil
}

// Cancel lets the donor withdraw a scheduled appointment.
func (s *Service) Cancel(ctx context.Context, donorID domain.AccountID, id domain.AppointmentID) (*models.Appointment, error) {
	appointment, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appointment.DonorID != donorID {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "appointment belongs to another donor")
	}
	if appointment.Status != models.StatusScheduled {
		return nil, dErrors.Newf(dErrors.CodeConflict, "appointment is already %s", appointment.Status)
	}

	appointment.Status = models.StatusCancelled
	if err := s.store.Update(ctx, appointment); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update appointment")
	}
	return appointment, nil
}

// Complete records that the donor showed up and donated. Bank visits are
// completed by the booked bank; campaign slots by the organizing bank.
func (s *Service) Complete(ctx context.Context, bankID domain.AccountID, id domain.AppointmentID) (*models.Appointment, error) {
	appointment, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeHost(ctx, bankID, appointment); err != nil {
		return nil, err
	}
	if appointment.Status != models.StatusScheduled {
		return nil, dErrors.Newf(dErrors.CodeConflict, "appointment is already %s", appointment.Status)
	}

	appointment.Status = models.StatusCompleted
	if err := s.store.Update(ctx, appointment); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update appointment")
	}
	return appointment, nil
}

// authorizeHost checks the caller hosts the appointment: the booked bank,
// or the organizer of the booked campaign.
func (s *Service) authorizeHost(ctx context.Context, bankID domain.AccountID, appointment *models.Appointment) error {
	if appointment.BankID != nil {
		if *appointment.BankID != bankID {
			return dErrors.New(dErrors.CodeUnauthorized, "appointment is booked with another bank")
		}
		return nil
	}
	campaign, err := s.getCampaign(ctx, *appointment.CampaignID)
	if err != nil {
		return err
	}
	if campaign.OrganizerID != bankID {
		return dErrors.New(dErrors.CodeUnauthorized, "campaign is organized by another bank")
	}
	return nil
}

// DonorAppointment is an appointment with its place of donation rendered.
type DonorAppointment struct {
	Appointment *models.Appointment
	Title       string
	Location    string
}

// ListForDonor returns the donor's appointments, earliest first, with the
// campaign or bank they are booked at.
func (s *Service) ListForDonor(ctx context.Context, donorID domain.AccountID) ([]DonorAppointment, error) {
	appointments, err := s.store.ListByDonor(ctx, donorID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list appointments")
	}

	out := make([]DonorAppointment, 0, len(appointments))
	for _, appointment := range appointments {
		entry := DonorAppointment{Appointment: appointment}
		if appointment.CampaignID != nil {
			campaign, err := s.getCampaign(ctx, *appointment.CampaignID)
			if err != nil {
				return nil, err
			}
			entry.Title = campaign.Title
			entry.Location = campaign.Location
		} else {
			bank, err := s.directory.GetByID(ctx, *appointment.BankID)
			if err != nil {
				return nil, err
			}
			entry.Title = bank.Handle
			entry.Location = bank.Profile.Address
		}
		out = append(out, entry)
	}
	return out, nil
}

// Slot is one booked campaign slot for the organizer's roster.
type Slot struct {
	ID          domain.AppointmentID
	DonorHandle string
	TimeSlot    string
	Status      models.Status
}

// SlotsForCampaign returns the campaign's booked slots. Only the organizer
// sees the roster.
func (s *Service) SlotsForCampaign(ctx context.Context, organizerID domain.AccountID, campaignID domain.CampaignID) ([]Slot, error) {
	campaign, err := s.getCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.OrganizerID != organizerID {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "campaign is organized by another bank")
	}

	appointments, err := s.store.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list campaign slots")
	}
	out := make([]Slot, 0, len(appointments))
	for _, appointment := range appointments {
		donor, err := s.directory.GetByID(ctx, appointment.DonorID)
		if err != nil {
			return nil, err
		}
		out = append(out, Slot{
			ID:          appointment.ID,
			DonorHandle: donor.Handle,
			TimeSlot:    appointment.TimeSlot,
			Status:      appointment.Status,
		})
	}
	return out, nil
}

// Donation is one completed appointment in the bank's donation history.
type Donation struct {
	ID          domain.AppointmentID
	DonorHandle string
	BloodGroup  domain.BloodGroup
	Date        time.Time
}

// DonationsForBank returns the bank's completed donations, newest first.
func (s *Service) DonationsForBank(ctx context.Context, bankID domain.AccountID) ([]Donation, error) {
	appointments, err := s.store.ListCompletedForBank(ctx, bankID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list donations")
	}
	return s.renderDonations(ctx, appointments)
}

// DonationsToday narrows the donation history to the current calendar day.
func (s *Service) DonationsToday(ctx context.Context, bankID domain.AccountID) ([]Donation, error) {
	appointments, err := s.store.ListCompletedForBank(ctx, bankID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list donations")
	}

	y, m, d := s.clock.Now().Date()
	var today []*models.Appointment
	for _, appointment := range appointments {
		ay, am, ad := appointment.Date.Date()
		if ay == y && am == m && ad == d {
			today = append(today, appointment)
		}
	}
	return s.renderDonations(ctx, today)
}

func (s *Service) renderDonations(ctx context.Context, appointments []*models.Appointment) ([]Donation, error) {
	out := make([]Donation, 0, len(appointments))
	for _, appointment := range appointments {
		donor, err := s.directory.GetByID(ctx, appointment.DonorID)
		if err != nil {
			return nil, err
		}
		out = append(out, Donation{
			ID:          appointment.ID,
			DonorHandle: donor.Handle,
			BloodGroup:  donor.Profile.BloodGroup,
			Date:        appointment.Date,
		})
	}
	return out, nil
}

// StatsForDonor derives donation totals and the next eligible date from the
// donor's completed appointments.
func (s *Service) StatsForDonor(ctx context.Context, donorID domain.AccountID) (models.DonorStats, error) {
	appointments, err := s.store.ListByDonor(ctx, donorID)
	if err != nil {
		return models.DonorStats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list appointments")
	}
	return models.StatsFrom(appointments, s.clock.Now()), nil
}

func (s *Service) get(ctx context.Context, id domain.AppointmentID) (*models.Appointment, error) {
	appointment, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "appointment not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up appointment")
	}
	return appointment, nil
}

func (s *Service) getCampaign(ctx context.Context, id domain.CampaignID) (*campaignmodels.Campaign, error) {
	campaign, err := s.drives.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "campaign not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up campaign")
	}
	return campaign, nil
}
