//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"bloodlink/internal/inventory/models"
	"bloodlink/internal/inventory/store"
	"bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
	"bloodlink/pkg/testutil/containers"
)

func seedLots(t *testing.T, st *store.Postgres, bankID domain.AccountID, group domain.BloodGroup, expiries []time.Time) []*models.Lot {
	t.Helper()
	collected := time.Now().UTC().Truncate(time.Microsecond)
	lots := make([]*models.Lot, 0, len(expiries))
	for _, exp := range expiries {
		lots = append(lots, &models.Lot{
			ID:          domain.NewLotID(),
			BankID:      bankID,
			BloodGroup:  group,
			Units:       1,
			ExpiryDate:  exp,
			CollectedAt: collected,
		})
	}
	require.NoError(t, st.Add(context.Background(), lots))
	return lots
}

func TestPostgresInventoryStore(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	ctx := context.Background()
	st := store.NewPostgres(pc.DB)
	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("consume drains lots in expiry order", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))
		bankID := domain.NewAccountID()
		seedLots(t, st, bankID, domain.OPos, []time.Time{
			now.Add(72 * time.Hour),
			now.Add(24 * time.Hour),
			now.Add(48 * time.Hour),
		})

		require.NoError(t, st.ConsumeFIFO(ctx, bankID, domain.OPos, 2))

		remaining, err := st.ListByBank(ctx, bankID)
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		assert.WithinDuration(t, now.Add(72*time.Hour), remaining[0].ExpiryDate, time.Second)
	})

	t.Run("insufficient stock leaves the ledger untouched", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))
		bankID := domain.NewAccountID()
		seedLots(t, st, bankID, domain.BNeg, []time.Time{
			now.Add(24 * time.Hour),
			now.Add(48 * time.Hour),
		})

		err := st.ConsumeFIFO(ctx, bankID, domain.BNeg, 3)
		assert.ErrorIs(t, err, sentinel.ErrInsufficientStock)

		total, err := st.TotalUnits(ctx, bankID)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
	})

	t.Run("concurrent consumers never oversell", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))
		bankID := domain.NewAccountID()
		expiries := make([]time.Time, 10)
		for i := range expiries {
			expiries[i] = now.Add(time.Duration(i+1) * 24 * time.Hour)
		}
		seedLots(t, st, bankID, domain.APos, expiries)

		var (
			mu        sync.Mutex
			succeeded int
		)
		var g errgroup.Group
		for range 4 {
			g.Go(func() error {
				err := st.ConsumeFIFO(ctx, bankID, domain.APos, 3)
				if errors.Is(err, sentinel.ErrInsufficientStock) {
					return nil
				}
				if err != nil {
					return err
				}
				mu.Lock()
				succeeded++
				mu.Unlock()
				return nil
			})
		}
		require.NoError(t, g.Wait())

		// 10 units serve exactly three of the four 3-unit consumers.
		assert.Equal(t, 3, succeeded)
		total, err := st.TotalUnits(ctx, bankID)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
	})

	t.Run("group totals honor the expiry cutoff", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))
		bankID := domain.NewAccountID()
		seedLots(t, st, bankID, domain.ABNeg, []time.Time{
			now.Add(-24 * time.Hour),
			now.Add(24 * time.Hour),
			now.Add(48 * time.Hour),
		})

		all, err := st.TotalForGroup(ctx, domain.ABNeg, time.Time{})
		require.NoError(t, err)
		assert.Equal(t, 3, all)

		unexpired, err := st.TotalForGroup(ctx, domain.ABNeg, now)
		require.NoError(t, err)
		assert.Equal(t, 2, unexpired)
	})

	t.Run("distribution and per-bank availability", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))
		bankA := domain.NewAccountID()
		bankB := domain.NewAccountID()
		seedLots(t, st, bankA, domain.OPos, []time.Time{now.Add(24 * time.Hour), now.Add(48 * time.Hour)})
		seedLots(t, st, bankB, domain.OPos, []time.Time{now.Add(24 * time.Hour)})
		seedLots(t, st, bankB, domain.ANeg, []time.Time{now.Add(24 * time.Hour)})

		dist, err := st.DistributionAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, dist[domain.OPos])
		assert.Equal(t, 1, dist[domain.ANeg])

		banks, err := st.AvailabilityForGroup(ctx, domain.OPos)
		require.NoError(t, err)
		require.Len(t, banks, 2)
		byBank := map[domain.AccountID]int{}
		for _, b := range banks {
			byBank[b.BankID] = b.Units
		}
		assert.Equal(t, 2, byBank[bankA])
		assert.Equal(t, 1, byBank[bankB])
	})

	t.Run("expiring window spans all banks", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))
		bankA := domain.NewAccountID()
		bankB := domain.NewAccountID()
		seedLots(t, st, bankA, domain.OPos, []time.Time{now.Add(48 * time.Hour)})
		seedLots(t, st, bankB, domain.BPos, []time.Time{now.Add(6 * 24 * time.Hour), now.Add(30 * 24 * time.Hour)})

		lots, err := st.ExpiringBetween(ctx, now, now.Add(7*24*time.Hour))
		require.NoError(t, err)
		assert.Len(t, lots, 2)
	})
}
