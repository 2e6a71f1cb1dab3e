package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/internal/notification/models"
	"bloodlink/internal/notification/store"
	"bloodlink/pkg/clock"
	"bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

func newService(t *testing.T) (*Service, *clock.Fixed) {
	t.Helper()
	clk := clock.NewFixed(time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC))
	svc, err := New(store.NewInMemory(), clk)
	require.NoError(t, err)
	return svc, clk
}

func TestNotify_DeduplicatesWhileUnread(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	account := domain.NewAccountID()

	created, err := svc.Notify(ctx, account, models.TypeUrgent, "shortage:O-", "3 units of O- needed")
	require.NoError(t, err)
	assert.True(t, created)

	// Same subject and type, different wording: still suppressed.
	created, err = svc.Notify(ctx, account, models.TypeUrgent, "shortage:O-", "5 units of O- needed")
	require.NoError(t, err)
	assert.False(t, created)

	// A different type on the same subject is a separate channel.
	created, err = svc.Notify(ctx, account, models.TypeWarning, "shortage:O-", "organize a drive")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestNotify_MarkReadReArmsDedup(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	account := domain.NewAccountID()

	created, err := svc.Notify(ctx, account, models.TypeExpiry, "expiry:lot-1", "unit expiring soon")
	require.NoError(t, err)
	require.True(t, created)

	flipped, err := svc.MarkAllRead(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, 1, flipped)

	created, err = svc.Notify(ctx, account, models.TypeExpiry, "expiry:lot-1", "unit expiring soon")
	require.NoError(t, err)
	assert.True(t, created, "consumed notifications no longer suppress re-derivation")
}

func TestNotify_Validation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Notify(ctx, domain.NewAccountID(), models.Type("shouting"), "s", "m")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = svc.Notify(ctx, domain.NewAccountID(), models.TypeInfo, "s", "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestListForAccount_NewestFirstWithAge(t *testing.T) {
	svc, clk := newService(t)
	ctx := context.Background()
	account := domain.NewAccountID()

	_, err := svc.Notify(ctx, account, models.TypeInfo, "a", "first")
	require.NoError(t, err)
	clk.Advance(2 * time.Hour)
	_, err = svc.Notify(ctx, account, models.TypeInfo, "b", "second")
	require.NoError(t, err)
	clk.Advance(30 * time.Second)

	list, err := svc.ListForAccount(ctx, account)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Message)
	assert.Equal(t, "Just now", list[0].TimeAgo)
	assert.Equal(t, "first", list[1].Message)
	assert.Equal(t, "2 hours ago", list[1].TimeAgo)
}
