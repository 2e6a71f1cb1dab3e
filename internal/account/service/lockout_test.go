package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

func TestLogin_LockedOutAfterRepeatedFailures(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	account, _, err := svc.Register(ctx, cleanDonorInput())
	require.NoError(t, err)
	_, err = svc.Adjudicate(ctx, domain.NewAccountID(), account.ID, true, "")
	require.NoError(t, err)

	for range maxLoginFailures {
		_, _, err = svc.Login(ctx, account.Email, "wrong-password", domain.RoleDonor)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	}

	// The sixth attempt is throttled even with the right password.
	_, _, err = svc.Login(ctx, account.Email, "correct-horse", domain.RoleDonor)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeRateLimited))

	// The lock expires after the lockout duration.
	clk.Advance(loginLockDuration + 1)
	_, _, err = svc.Login(ctx, account.Email, "correct-horse", domain.RoleDonor)
	assert.NoError(t, err)
}

func TestLogin_SuccessResetsFailureCount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	account, _, err := svc.Register(ctx, cleanDonorInput())
	require.NoError(t, err)
	_, err = svc.Adjudicate(ctx, domain.NewAccountID(), account.ID, true, "")
	require.NoError(t, err)

	for range maxLoginFailures - 1 {
		_, _, err = svc.Login(ctx, account.Email, "wrong-password", domain.RoleDonor)
		assert.Error(t, err)
	}
	_, _, err = svc.Login(ctx, account.Email, "correct-horse", domain.RoleDonor)
	require.NoError(t, err)

	// A fresh failure after the reset does not trip the lock.
	_, _, err = svc.Login(ctx, account.Email, "wrong-password", domain.RoleDonor)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	_, _, err = svc.Login(ctx, account.Email, "correct-horse", domain.RoleDonor)
	assert.NoError(t, err)
}
