package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accountmodels "bloodlink/internal/account/models"
	accountservice "bloodlink/internal/account/service"
	accountstore "bloodlink/internal/account/store"
	"bloodlink/internal/appointment/models"
	"bloodlink/internal/appointment/store"
	campaignmodels "bloodlink/internal/campaign/models"
	campaignstore "bloodlink/internal/campaign/store"
	"bloodlink/pkg/clock"
	"bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

type fixture struct {
	svc       *Service
	accounts  *accountstore.InMemory
	campaigns *campaignstore.InMemory
	clk       *clock.Fixed
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewFixed(time.Date(2026, 7, 10, 9, 0, 0, 0, time.UTC))

	accounts := accountstore.NewInMemory()
	tokens, err := accountservice.NewTokenIssuer("fixture-key", time.Hour, clk)
	require.NoError(t, err)
	directory, err := accountservice.New(accounts, tokens, clk)
	require.NoError(t, err)

	campaigns := campaignstore.NewInMemory()
	svc, err := New(store.NewInMemory(), directory, campaigns, clk)
	require.NoError(t, err)
	return &fixture{svc: svc, accounts: accounts, campaigns: campaigns, clk: clk}
}

func (f *fixture) seedAccount(t *testing.T, role domain.Role, handle string) *accountmodels.Account {
	t.Helper()
	account := &accountmodels.Account{
		ID:          domain.NewAccountID(),
		Handle:      handle,
		Email:       handle + "@bloodlink.test",
		Role:        role,
		Status:      accountmodels.AccountActive,
		TrustStatus: accountmodels.TrustManualApproved,
		TrustScore:  100,
		CreatedAt:   f.clk.Now(),
	}
	if role == domain.RoleDonor {
		account.Profile.BloodGroup = domain.OPos
	}
	require.NoError(t, f.accounts.Create(context.Background(), account))
	return account
}

func (f *fixture) seedCampaign(t *testing.T, organizerID domain.AccountID, status campaignmodels.Status) *campaignmodels.Campaign {
	t.Helper()
	campaign := &campaignmodels.Campaign{
		ID:           domain.NewCampaignID(),
		OrganizerID:  organizerID,
		Title:        "Community Drive",
		Location:     "City Hall",
		ScheduledFor: f.clk.Now().Add(48 * time.Hour),
		Status:       status,
		CreatedAt:    f.clk.Now(),
	}
	require.NoError(t, f.campaigns.Create(context.Background(), campaign))
	return campaign
}

func TestBook_CampaignSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bank := f.seedAccount(t, domain.RoleBank, "central_bank")
	donor := f.seedAccount(t, domain.RoleDonor, "asha")
	campaign := f.seedCampaign(t, bank.ID, campaignmodels.StatusScheduled)

	appointment, err := f.svc.Book(ctx, donor.ID, BookInput{
		CampaignID: &campaign.ID,
		Date:       campaign.ScheduledFor,
		TimeSlot:   "10:00-10:30",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, appointment.Status)
	require.NotNil(t, appointment.CampaignID)
	assert.Equal(t, campaign.ID, *appointment.CampaignID)
	assert.Nil(t, appointment.BankID)

	listed, err := f.svc.ListForDonor(ctx, donor.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "Community Drive", listed[0].Title)
	assert.Equal(t, "City Hall", listed[0].Location)
}

func TestBook_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bank := f.seedAccount(t, domain.RoleBank, "central_bank")
	donor := f.seedAccount(t, domain.RoleDonor, "asha")
	campaign := f.seedCampaign(t, bank.ID, campaignmodels.StatusScheduled)
	date := f.clk.Now().Add(24 * time.Hour)

	_, err := f.svc.Book(ctx, donor.ID, BookInput{CampaignID: &campaign.ID, Date: date})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "missing time slot")

	_, err = f.svc.Book(ctx, donor.ID, BookInput{CampaignID: &campaign.ID, TimeSlot: "10:00"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "missing date")

	_, err = f.svc.Book(ctx, donor.ID, BookInput{
		CampaignID: &campaign.ID,
		Date:       f.clk.Now().Add(-48 * time.Hour),
		TimeSlot:   "10:00",
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "past date")

	_, err = f.svc.Book(ctx, donor.ID, BookInput{Date: date, TimeSlot: "10:00"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "no target")

	_, err = f.svc.Book(ctx, donor.ID, BookInput{
		CampaignID: &campaign.ID,
		BankID:     &bank.ID,
		Date:       date,
		TimeSlot:   "10:00",
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "both targets")

	_, err = f.svc.Book(ctx, bank.ID, BookInput{CampaignID: &campaign.ID, Date: date, TimeSlot: "10:00"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "non-donor caller")

	_, err = f.svc.Book(ctx, donor.ID, BookInput{BankID: &donor.ID, Date: date, TimeSlot: "10:00"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "bank visit at a non-bank")
}

func TestBook_RejectsCancelledCampaign(t *testing.T) {
	f := newFixture(t)
	bank := f.seedAccount(t, domain.RoleBank, "central_bank")
	donor := f.seedAccount(t, domain.RoleDonor, "asha")
	campaign := f.seedCampaign(t, bank.ID, campaignmodels.StatusCancelled)

	_, err := f.svc.Book(context.Background(), donor.ID, BookInput{
		CampaignID: &campaign.ID,
		Date:       f.clk.Now().Add(24 * time.Hour),
		TimeSlot:   "10:00",
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestCancel_OwnScheduledOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bank := f.seedAccount(t, domain.RoleBank, "central_bank")
	donor := f.seedAccount(t, domain.RoleDonor, "asha")
	other := f.seedAccount(t, domain.RoleDonor, "ravi")

	appointment, err := f.svc.Book(ctx, donor.ID, BookInput{
		BankID:   &bank.ID,
		Date:     f.clk.Now().Add(24 * time.Hour),
		TimeSlot: "11:00",
	})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, other.ID, appointment.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	cancelled, err := f.svc.Cancel(ctx, donor.ID, appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	_, err = f.svc.Cancel(ctx, donor.ID, appointment.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestComplete_BankVisitFeedsDonationHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bank := f.seedAccount(t, domain.RoleBank, "central_bank")
	otherBank := f.seedAccount(t, domain.RoleBank, "north_bank")
	donor := f.seedAccount(t, domain.RoleDonor, "asha")

	appointment, err := f.svc.Book(ctx, donor.ID, BookInput{
		BankID:   &bank.ID,
		Date:     f.clk.Now(),
		TimeSlot: "09:30",
	})
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, otherBank.ID, appointment.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	completed, err := f.svc.Complete(ctx, bank.ID, appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)

	donations, err := f.svc.DonationsForBank(ctx, bank.ID)
	require.NoError(t, err)
	require.Len(t, donations, 1)
	assert.Equal(t, "asha", donations[0].DonorHandle)
	assert.Equal(t, domain.OPos, donations[0].BloodGroup)

	today, err := f.svc.DonationsToday(ctx, bank.ID)
	require.NoError(t, err)
	assert.Len(t, today, 1)

	f.clk.Advance(24 * time.Hour)
	today, err = f.svc.DonationsToday(ctx, bank.ID)
	require.NoError(t, err)
	assert.Empty(t, today)
}

func TestComplete_CampaignSlotByOrganizerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	organizer := f.seedAccount(t, domain.RoleBank, "central_bank")
	otherBank := f.seedAccount(t, domain.RoleBank, "north_bank")
	donor := f.seedAccount(t, domain.RoleDonor, "asha")
	campaign := f.seedCampaign(t, organizer.ID, campaignmodels.StatusScheduled)

	appointment, err := f.svc.Book(ctx, donor.ID, BookInput{
		CampaignID: &campaign.ID,
		Date:       campaign.ScheduledFor,
		TimeSlot:   "10:00",
	})
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, otherBank.ID, appointment.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	completed, err := f.svc.Complete(ctx, organizer.ID, appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)
}

func TestSlotsForCampaign_OrganizerRoster(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	organizer := f.seedAccount(t, domain.RoleBank, "central_bank")
	otherBank := f.seedAccount(t, domain.RoleBank, "north_bank")
	donor := f.seedAccount(t, domain.RoleDonor, "asha")
	campaign := f.seedCampaign(t, organizer.ID, campaignmodels.StatusScheduled)

	_, err := f.svc.Book(ctx, donor.ID, BookInput{
		CampaignID: &campaign.ID,
		Date:       campaign.ScheduledFor,
		TimeSlot:   "10:00-10:30",
	})
	require.NoError(t, err)

	_, err = f.svc.SlotsForCampaign(ctx, otherBank.ID, campaign.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	slots, err := f.svc.SlotsForCampaign(ctx, organizer.ID, campaign.ID)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "asha", slots[0].DonorHandle)
	assert.Equal(t, "10:00-10:30", slots[0].TimeSlot)
	assert.Equal(t, models.StatusScheduled, slots[0].Status)
}

func TestStatsForDonor_EligibilityWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bank := f.seedAccount(t, domain.RoleBank, "central_bank")
	donor := f.seedAccount(t, domain.RoleDonor, "asha")

	stats, err := f.svc.StatsForDonor(ctx, donor.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.Donations)
	assert.Nil(t, stats.NextEligible)

	appointment, err := f.svc.Book(ctx, donor.ID, BookInput{
		BankID:   &bank.ID,
		Date:     f.clk.Now(),
		TimeSlot: "09:00",
	})
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, bank.ID, appointment.ID)
	require.NoError(t, err)

	stats, err = f.svc.StatsForDonor(ctx, donor.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Donations)
	assert.Equal(t, 3, stats.LivesSaved)
	require.NotNil(t, stats.NextEligible)
	assert.Equal(t, 90, stats.DaysUntilEligible)

	f.clk.Advance(120 * 24 * time.Hour)
	stats, err = f.svc.StatsForDonor(ctx, donor.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.DaysUntilEligible)
}
