//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/internal/account/models"
	"bloodlink/internal/account/store"
	"bloodlink/internal/trust"
	"bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
	"bloodlink/pkg/testutil/containers"
)

func newDonor(handle, email string, score int) *models.Account {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Account{
		ID:           domain.NewAccountID(),
		Handle:       handle,
		Email:        email,
		Phone:        "9876543210",
		PasswordHash: "$2a$10$not-a-real-hash",
		Role:         domain.RoleDonor,
		Status:       models.AccountPending,
		Profile: models.Profile{
			BloodGroup: domain.OPos,
			City:       "Pune",
			State:      "Maharashtra",
		},
		TrustStatus: models.TrustFlagged,
		TrustScore:  score,
		Findings: []trust.Finding{
			{Reason: "Missing address", Penalty: 10, Timestamp: now},
		},
		CreatedAt: now,
	}
}

func TestPostgresAccountStore(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	ctx := context.Background()
	st := store.NewPostgres(pc.DB)

	t.Run("create and fetch round-trips profile and findings", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))
		account := newDonor("priya_sharma", "priya@gmail.com", 65)
		require.NoError(t, st.Create(ctx, account))

		got, err := st.GetByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, account.Handle, got.Handle)
		assert.Equal(t, domain.OPos, got.Profile.BloodGroup)
		assert.Equal(t, "Pune", got.Profile.City)
		require.Len(t, got.Findings, 1)
		assert.Equal(t, "Missing address", got.Findings[0].Reason)
		assert.Equal(t, 10, got.Findings[0].Penalty)
	})

	t.Run("email lookup is case-insensitive", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))
		account := newDonor("priya_sharma", "Priya@Gmail.com", 65)
		require.NoError(t, st.Create(ctx, account))

		got, err := st.GetByEmail(ctx, "PRIYA@GMAIL.COM")
		require.NoError(t, err)
		assert.Equal(t, account.ID, got.ID)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))
		require.NoError(t, st.Create(ctx, newDonor("priya_sharma", "priya@gmail.com", 65)))

		err := st.Create(ctx, newDonor("other_handle", "priya@gmail.com", 80))
		assert.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("update persists verification fields", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))
		account := newDonor("priya_sharma", "priya@gmail.com", 65)
		require.NoError(t, st.Create(ctx, account))

		admin := domain.NewAccountID()
		now := time.Now().UTC().Truncate(time.Microsecond)
		account.Status = models.AccountActive
		account.TrustStatus = models.TrustManualApproved
		account.VerifiedAt = &now
		account.VerifiedBy = &admin
		account.Findings = append(account.Findings, trust.Finding{
			Reason: "admin_review: approved", Timestamp: now,
		})
		require.NoError(t, st.Update(ctx, account))

		got, err := st.GetByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, models.AccountActive, got.Status)
		assert.Equal(t, models.TrustManualApproved, got.TrustStatus)
		require.NotNil(t, got.VerifiedBy)
		assert.Equal(t, admin, *got.VerifiedBy)
		require.NotNil(t, got.VerifiedAt)
		assert.WithinDuration(t, now, *got.VerifiedAt, time.Second)
		assert.Len(t, got.Findings, 2)
	})

	t.Run("pending verification queue is ordered by ascending score", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))
		require.NoError(t, st.Create(ctx, newDonor("mid_score", "mid@gmail.com", 50)))
		require.NoError(t, st.Create(ctx, newDonor("low_score", "low@gmail.com", 20)))
		require.NoError(t, st.Create(ctx, newDonor("high_score", "high@gmail.com", 75)))

		pending, err := st.ListPendingVerification(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 3)
		assert.Equal(t, "low_score", pending[0].Handle)
		assert.Equal(t, "mid_score", pending[1].Handle)
		assert.Equal(t, "high_score", pending[2].Handle)
	})

	t.Run("documents round-trip with review state", func(t *testing.T) {
		require.NoError(t, pc.TruncateAll(ctx))
		account := newDonor("priya_sharma", "priya@gmail.com", 65)
		require.NoError(t, st.Create(ctx, account))

		doc := &models.SupportingDocument{
			ID:         domain.NewDocumentID(),
			AccountID:  account.ID,
			Kind:       "government_id",
			FileName:   "id.pdf",
			Status:     models.DocumentPending,
			UploadedAt: time.Now().UTC().Truncate(time.Microsecond),
		}
		require.NoError(t, st.CreateDocument(ctx, doc))

		pending, err := st.ListPendingDocuments(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 1)

		admin := domain.NewAccountID()
		now := time.Now().UTC().Truncate(time.Microsecond)
		doc.Status = models.DocumentApproved
		doc.Note = "id checks out"
		doc.ReviewedAt = &now
		doc.ReviewedBy = &admin
		require.NoError(t, st.UpdateDocument(ctx, doc))

		got, err := st.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, models.DocumentApproved, got.Status)
		assert.Equal(t, "id checks out", got.Note)
		require.NotNil(t, got.ReviewedBy)
		assert.Equal(t, admin, *got.ReviewedBy)

		pending, err = st.ListPendingDocuments(ctx)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})
}
