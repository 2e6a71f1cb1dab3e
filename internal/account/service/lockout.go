package service

import (
	"strings"
	"sync"
	"time"

	"bloodlink/pkg/clock"
	dErrors "bloodlink/pkg/domain-errors"
)

const (
	maxLoginFailures   = 5
	loginFailureWindow = 15 * time.Minute
	loginLockDuration  = 15 * time.Minute
)

// loginThrottle hard-locks an email for loginLockDuration after
// maxLoginFailures failed attempts inside the failure window. State is
// per-process; a distributed deployment would move this behind the store.
type loginThrottle struct {
	mu      sync.Mutex
	clock   clock.Clock
	records map[string]*loginRecord
}

type loginRecord struct {
	failures    int
	windowStart time.Time
	lockedUntil time.Time
}

func newLoginThrottle(clk clock.Clock) *loginThrottle {
	return &loginThrottle{clock: clk, records: make(map[string]*loginRecord)}
}

// check returns a rate-limited error while the email is locked out.
func (t *loginThrottle) check(email string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[t.key(email)]
	if !ok {
		return nil
	}
	now := t.clock.Now()
	if now.Before(rec.lockedUntil) {
		retryAfter := int(rec.lockedUntil.Sub(now).Seconds())
		return dErrors.Newf(dErrors.CodeRateLimited,
			"too many failed login attempts, retry in %d seconds", retryAfter)
	}
	return nil
}

func (t *loginThrottle) recordFailure(email string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	key := t.key(email)
	rec, ok := t.records[key]
	if !ok || now.Sub(rec.windowStart) > loginFailureWindow {
		rec = &loginRecord{windowStart: now}
		t.records[key] = rec
	}
	rec.failures++
	if rec.failures >= maxLoginFailures {
		rec.lockedUntil = now.Add(loginLockDuration)
	}
}

func (t *loginThrottle) clear(email string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, t.key(email))
}

func (t *loginThrottle) key(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
