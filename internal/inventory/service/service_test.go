package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/internal/inventory/models"
	"bloodlink/internal/inventory/store"
	"bloodlink/pkg/clock"
	"bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

func newTestLedger(t *testing.T) (*Ledger, *store.InMemory, *clock.Fixed) {
	t.Helper()
	st := store.NewInMemory()
	clk := clock.NewFixed(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	ledger, err := New(st, clk)
	require.NoError(t, err)
	return ledger, st, clk
}

func TestAddUnits_CreatesUnitGranularityLots(t *testing.T) {
	ledger, _, clk := newTestLedger(t)
	bankID := domain.NewAccountID()
	expiry := clk.Now().Add(30 * 24 * time.Hour)

	lots, err := ledger.AddUnits(context.Background(), bankID, domain.APos, 5, expiry)
	require.NoError(t, err)
	require.Len(t, lots, 5)
	for _, lot := range lots {
		assert.Equal(t, 1, lot.Units)
		assert.Equal(t, bankID, lot.BankID)
		assert.True(t, lot.ExpiryDate.Equal(expiry))
	}

	summary, err := ledger.Summarize(context.Background(), bankID)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.TotalUnits)
	assert.Equal(t, 5, summary.AddedToday)
}

func TestAddUnits_Validation(t *testing.T) {
	ledger, _, clk := newTestLedger(t)
	bankID := domain.NewAccountID()
	expiry := clk.Now().Add(24 * time.Hour)

	_, err := ledger.AddUnits(context.Background(), bankID, domain.APos, 0, expiry)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = ledger.AddUnits(context.Background(), bankID, domain.BloodGroup("Z+"), 1, expiry)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = ledger.AddUnits(context.Background(), bankID, domain.APos, 1, clk.Now().Add(-time.Hour))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestRemoveUnits_ConsumesEarliestExpiryFirst(t *testing.T) {
	ledger, _, clk := newTestLedger(t)
	ctx := context.Background()
	bankID := domain.NewAccountID()

	e1 := clk.Now().Add(5 * 24 * time.Hour)
	e2 := clk.Now().Add(10 * 24 * time.Hour)
	e3 := clk.Now().Add(20 * 24 * time.Hour)

	_, err := ledger.AddUnits(ctx, bankID, domain.OPos, 3, e1)
	require.NoError(t, err)
	_, err = ledger.AddUnits(ctx, bankID, domain.OPos, 2, e2)
	require.NoError(t, err)
	_, err = ledger.AddUnits(ctx, bankID, domain.OPos, 4, e3)
	require.NoError(t, err)

	require.NoError(t, ledger.RemoveUnits(ctx, bankID, domain.OPos, 4))

	remaining := map[string]int{}
	details, err := ledger.Details(ctx, bankID)
	require.NoError(t, err)
	for _, d := range details {
		remaining[d.ExpiryDate.Format(time.RFC3339)] += d.Units
	}
	assert.Equal(t, 0, remaining[e1.Format(time.RFC3339)])
	assert.Equal(t, 1, remaining[e2.Format(time.RFC3339)])
	assert.Equal(t, 4, remaining[e3.Format(time.RFC3339)])

	summary, err := ledger.Summarize(ctx, bankID)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.TotalUnits)
}

func TestRemoveUnits_InsufficientStockLeavesLedgerUnchanged(t *testing.T) {
	ledger, _, clk := newTestLedger(t)
	ctx := context.Background()
	bankID := domain.NewAccountID()

	_, err := ledger.AddUnits(ctx, bankID, domain.ANeg, 3, clk.Now().Add(14*24*time.Hour))
	require.NoError(t, err)

	err = ledger.RemoveUnits(ctx, bankID, domain.ANeg, 5)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientStock))

	summary, err := ledger.Summarize(ctx, bankID)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalUnits)
}

func TestRemoveUnits_DoesNotCrossGroups(t *testing.T) {
	ledger, _, clk := newTestLedger(t)
	ctx := context.Background()
	bankID := domain.NewAccountID()
	expiry := clk.Now().Add(14 * 24 * time.Hour)

	_, err := ledger.AddUnits(ctx, bankID, domain.APos, 2, expiry)
	require.NoError(t, err)
	_, err = ledger.AddUnits(ctx, bankID, domain.BPos, 2, expiry)
	require.NoError(t, err)

	err = ledger.RemoveUnits(ctx, bankID, domain.APos, 3)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientStock))

	dist, err := ledger.Distribution(ctx, bankID)
	require.NoError(t, err)
	assert.Equal(t, 2, dist[domain.APos])
	assert.Equal(t, 2, dist[domain.BPos])
}

func TestSummarize_ExpiringSoonWindow(t *testing.T) {
	ledger, _, clk := newTestLedger(t)
	ctx := context.Background()
	bankID := domain.NewAccountID()

	// Inside the 7-day window.
	_, err := ledger.AddUnits(ctx, bankID, domain.OPos, 2, clk.Now().Add(3*24*time.Hour))
	require.NoError(t, err)
	// Exactly on the boundary.
	_, err = ledger.AddUnits(ctx, bankID, domain.OPos, 1, clk.Now().Add(7*24*time.Hour))
	require.NoError(t, err)
	// Beyond it.
	_, err = ledger.AddUnits(ctx, bankID, domain.OPos, 4, clk.Now().Add(20*24*time.Hour))
	require.NoError(t, err)

	summary, err := ledger.Summarize(ctx, bankID)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.ExpiringSoon)
}

func TestDetails_ReportsStatusAndBagID(t *testing.T) {
	ledger, _, clk := newTestLedger(t)
	ctx := context.Background()
	bankID := domain.NewAccountID()

	_, err := ledger.AddUnits(ctx, bankID, domain.ABNeg, 1, clk.Now().Add(2*24*time.Hour))
	require.NoError(t, err)
	_, err = ledger.AddUnits(ctx, bankID, domain.ABNeg, 1, clk.Now().Add(60*24*time.Hour))
	require.NoError(t, err)

	details, err := ledger.Details(ctx, bankID)
	require.NoError(t, err)
	require.Len(t, details, 2)
	// FIFO ordering: earliest expiry first.
	assert.Equal(t, models.StatusExpiringSoon, details[0].Status)
	assert.Equal(t, models.StatusAvailable, details[1].Status)
	for _, d := range details {
		assert.Regexp(t, `^BB-\d{4}-[0-9a-f]{8}$`, d.BagID)
	}
}

func TestShortageGroups_ThresholdIsTen(t *testing.T) {
	ledger, _, clk := newTestLedger(t)
	ctx := context.Background()
	bankID := domain.NewAccountID()
	expiry := clk.Now().Add(30 * 24 * time.Hour)

	_, err := ledger.AddUnits(ctx, bankID, domain.OPos, 10, expiry)
	require.NoError(t, err)
	_, err = ledger.AddUnits(ctx, bankID, domain.APos, 9, expiry)
	require.NoError(t, err)

	short, err := ledger.ShortageGroups(ctx)
	require.NoError(t, err)
	assert.NotContains(t, short, domain.OPos)
	assert.Contains(t, short, domain.APos)
	// Groups with zero stock are short too.
	assert.Contains(t, short, domain.ABNeg)
}

func TestDistribution_ZeroFillsAllGroups(t *testing.T) {
	ledger, _, clk := newTestLedger(t)
	ctx := context.Background()
	bankID := domain.NewAccountID()

	_, err := ledger.AddUnits(ctx, bankID, domain.BNeg, 2, clk.Now().Add(30*24*time.Hour))
	require.NoError(t, err)

	dist, err := ledger.Distribution(ctx, domain.AccountID{})
	require.NoError(t, err)
	require.Len(t, dist, 8)
	assert.Equal(t, 2, dist[domain.BNeg])
	assert.Equal(t, 0, dist[domain.OPos])
}

func TestStockAvailability_ListsHoldingBanks(t *testing.T) {
	ledger, _, clk := newTestLedger(t)
	ctx := context.Background()
	bankA := domain.NewAccountID()
	bankB := domain.NewAccountID()
	expiry := clk.Now().Add(30 * 24 * time.Hour)

	_, err := ledger.AddUnits(ctx, bankA, domain.ONeg, 3, expiry)
	require.NoError(t, err)
	_, err = ledger.AddUnits(ctx, bankB, domain.ONeg, 1, expiry)
	require.NoError(t, err)

	stocks, err := ledger.StockAvailability(ctx, domain.ONeg)
	require.NoError(t, err)
	require.Len(t, stocks, 2)
	byBank := map[domain.AccountID]int{}
	for _, s := range stocks {
		byBank[s.BankID] = s.Units
	}
	assert.Equal(t, 3, byBank[bankA])
	assert.Equal(t, 1, byBank[bankB])
}

func TestUnexpiredTotal_ExcludesExpiredLots(t *testing.T) {
	ledger, _, clk := newTestLedger(t)
	ctx := context.Background()
	bankID := domain.NewAccountID()

	_, err := ledger.AddUnits(ctx, bankID, domain.BPos, 4, clk.Now().Add(2*24*time.Hour))
	require.NoError(t, err)

	// Advance past the expiry; those lots no longer count as usable.
	clk.Advance(3 * 24 * time.Hour)
	_, err = ledger.AddUnits(ctx, bankID, domain.BPos, 2, clk.Now().Add(30*24*time.Hour))
	require.NoError(t, err)

	usable, err := ledger.UnexpiredTotal(ctx, domain.BPos)
	require.NoError(t, err)
	assert.Equal(t, 2, usable)

	total, err := ledger.TotalAcrossBanks(ctx, domain.BPos)
	require.NoError(t, err)
	assert.Equal(t, 6, total)
}
