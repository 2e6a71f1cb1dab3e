//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/internal/request/models"
	"bloodlink/internal/request/store"
	"bloodlink/pkg/domain"
	"bloodlink/pkg/testutil/containers"
)

func newRequest(hospitalID domain.AccountID, bankID *domain.AccountID, priority models.Priority, createdAt time.Time) *models.Request {
	return &models.Request{
		ID:          domain.NewRequestID(),
		HospitalID:  hospitalID,
		BankID:      bankID,
		PatientName: "A. Verma",
		PatientRef:  "PT-" + createdAt.Format("150405.000000"),
		BloodGroup:  domain.OPos,
		Units:       2,
		Priority:    priority,
		Status:      models.StatusPending,
		Reason:      "transfusion",
		CreatedAt:   createdAt,
	}
}

func TestPostgresRequestStore(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	ctx := context.Background()
	st := store.NewPostgres(pc.DB)
	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("routed request round-trips", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))
		hospital := domain.NewAccountID()
		bank := domain.NewAccountID()

		created := newRequest(hospital, &bank, models.PriorityRoutine, now)
		require.NoError(t, st.Create(ctx, created))

		got, err := st.GetByID(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, got.BankID)
		assert.Equal(t, bank, *got.BankID)
		assert.Equal(t, created.PatientRef, got.PatientRef)
		assert.Equal(t, "A. Verma", got.PatientName)
		assert.True(t, got.CreatedAt.Equal(now))
	})

	t.Run("unrouted request keeps nil bank until claimed", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))
		hospital := domain.NewAccountID()
		bank := domain.NewAccountID()

		created := newRequest(hospital, nil, models.PriorityUrgent, now)
		require.NoError(t, st.Create(ctx, created))

		got, err := st.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, got.BankID)

		decided := now.Add(time.Minute)
		got.BankID = &bank
		got.Status = models.StatusApproved
		got.DecidedAt = &decided
		got.DecidedBy = &bank
		require.NoError(t, st.Update(ctx, got))

		claimed, err := st.GetByID(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, claimed.BankID)
		assert.Equal(t, bank, *claimed.BankID)
		assert.Equal(t, models.StatusApproved, claimed.Status)
	})

	t.Run("bank queue includes unrouted requests oldest first", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))
		hospital := domain.NewAccountID()
		bank := domain.NewAccountID()
		other := domain.NewAccountID()

		unrouted := newRequest(hospital, nil, models.PriorityRoutine, now)
		routed := newRequest(hospital, &bank, models.PriorityRoutine, now.Add(time.Minute))
		elsewhere := newRequest(hospital, &other, models.PriorityRoutine, now.Add(2*time.Minute))
		for _, r := range []*models.Request{unrouted, routed, elsewhere} {
			require.NoError(t, st.Create(ctx, r))
		}

		queue, err := st.ListPendingForBank(ctx, bank)
		require.NoError(t, err)
		require.Len(t, queue, 2)
		assert.Equal(t, unrouted.ID, queue[0].ID)
		assert.Equal(t, routed.ID, queue[1].ID)

		all, err := st.ListPending(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("urgent queue filters routine priority", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))
		hospital := domain.NewAccountID()
		bank := domain.NewAccountID()

		routine := newRequest(hospital, &bank, models.PriorityRoutine, now)
		urgent := newRequest(hospital, &bank, models.PriorityUrgent, now.Add(time.Minute))
		emergency := newRequest(hospital, nil, models.PriorityEmergency, now.Add(2*time.Minute))
		for _, r := range []*models.Request{routine, urgent, emergency} {
			require.NoError(t, st.Create(ctx, r))
		}

		queue, err := st.ListUrgentForBank(ctx, bank)
		require.NoError(t, err)
		require.Len(t, queue, 2)
		assert.Equal(t, urgent.ID, queue[0].ID)
		assert.Equal(t, emergency.ID, queue[1].ID)
	})

	t.Run("hospital listing is newest first", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))
		hospital := domain.NewAccountID()
		bank := domain.NewAccountID()

		first := newRequest(hospital, &bank, models.PriorityRoutine, now)
		second := newRequest(hospital, &bank, models.PriorityRoutine, now.Add(time.Minute))
		for _, r := range []*models.Request{first, second} {
			require.NoError(t, st.Create(ctx, r))
		}
		require.NoError(t, st.Create(ctx, newRequest(domain.NewAccountID(), &bank, models.PriorityRoutine, now)))

		mine, err := st.ListByHospital(ctx, hospital)
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, second.ID, mine[0].ID)
		assert.Equal(t, first.ID, mine[1].ID)
	})
}
