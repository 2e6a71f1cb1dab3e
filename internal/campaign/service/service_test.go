package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/internal/campaign/models"
	"bloodlink/internal/campaign/store"
	"bloodlink/pkg/clock"
	"bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

func newTestService(t *testing.T) (*Service, *clock.Fixed) {
	t.Helper()
	clk := clock.NewFixed(time.Date(2026, 5, 20, 8, 0, 0, 0, time.UTC))
	svc, err := New(store.NewInMemory(), clk)
	require.NoError(t, err)
	return svc, clk
}

func TestCreate_ValidatesTitleDateAndGroups(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()
	organizer := domain.NewAccountID()

	_, err := svc.Create(ctx, organizer, CreateInput{Title: "   ", ScheduledFor: clk.Now().Add(time.Hour)})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = svc.Create(ctx, organizer, CreateInput{Title: "Drive", ScheduledFor: clk.Now().Add(-time.Hour)})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = svc.Create(ctx, organizer, CreateInput{
		Title:        "Drive",
		ScheduledFor: clk.Now().Add(time.Hour),
		TargetGroups: []domain.BloodGroup{"X+"},
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	campaign, err := svc.Create(ctx, organizer, CreateInput{
		Title:        "Community Drive",
		Location:     "City Hall",
		ScheduledFor: clk.Now().Add(48 * time.Hour),
		TargetGroups: []domain.BloodGroup{domain.OPos, domain.ONeg},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, campaign.Status)
}

func TestCreateEmergencyDraft_SchedulesNextDay(t *testing.T) {
	svc, clk := newTestService(t)
	organizer := domain.NewAccountID()

	campaign, err := svc.CreateEmergencyDraft(context.Background(), organizer, domain.ONeg, "City Care Hospital", "12 Harbour Road")
	require.NoError(t, err)
	assert.True(t, campaign.ScheduledFor.Equal(clk.Now().Add(24*time.Hour)))
	assert.Equal(t, []domain.BloodGroup{domain.ONeg}, campaign.TargetGroups)
	assert.Contains(t, campaign.Title, "O-")
	assert.Contains(t, campaign.Description, "City Care Hospital")
	assert.Equal(t, "12 Harbour Road", campaign.Location)
}

func TestUpdate_PartialAndOwnershipChecks(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()
	organizer := domain.NewAccountID()

	campaign, err := svc.Create(ctx, organizer, CreateInput{
		Title:        "Spring Drive",
		ScheduledFor: clk.Now().Add(72 * time.Hour),
	})
	require.NoError(t, err)

	newTitle := "Spring Drive 2026"
	updated, err := svc.Update(ctx, organizer, campaign.ID, UpdateInput{Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, "Spring Drive 2026", updated.Title)
	// Unspecified fields are untouched.
	assert.True(t, updated.ScheduledFor.Equal(campaign.ScheduledFor))

	_, err = svc.Update(ctx, domain.NewAccountID(), campaign.ID, UpdateInput{Title: &newTitle})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestCancel_BlocksFurtherEdits(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()
	organizer := domain.NewAccountID()

	campaign, err := svc.Create(ctx, organizer, CreateInput{
		Title:        "Autumn Drive",
		ScheduledFor: clk.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, organizer, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	title := "Renamed"
	_, err = svc.Update(ctx, organizer, campaign.ID, UpdateInput{Title: &title})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = svc.Cancel(ctx, organizer, campaign.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestListUpcoming_ExcludesPastAndCancelled(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()
	organizer := domain.NewAccountID()

	soon, err := svc.Create(ctx, organizer, CreateInput{Title: "Soon", ScheduledFor: clk.Now().Add(24 * time.Hour)})
	require.NoError(t, err)
	later, err := svc.Create(ctx, organizer, CreateInput{Title: "Later", ScheduledFor: clk.Now().Add(96 * time.Hour)})
	require.NoError(t, err)
	dropped, err := svc.Create(ctx, organizer, CreateInput{Title: "Dropped", ScheduledFor: clk.Now().Add(48 * time.Hour)})
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, organizer, dropped.ID)
	require.NoError(t, err)

	// The first drive's date passes.
	clk.Advance(36 * time.Hour)

	upcoming, err := svc.ListUpcoming(ctx)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, later.ID, upcoming[0].ID)
	assert.NotEqual(t, soon.ID, upcoming[0].ID)
}
