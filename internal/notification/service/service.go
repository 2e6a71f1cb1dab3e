package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bloodlink/internal/notification/models"
	"bloodlink/internal/notification/store"
	"bloodlink/internal/platform/metrics"
	"bloodlink/pkg/clock"
	"bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

// Service owns notification creation and the deduplication invariant: the
// same (account, type, subject) is never created twice while an unread
// instance exists.
type Service struct {
	store   store.Store
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(st store.Store, clk clock.Clock, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("notification store is required")
	}
	if clk == nil {
		return nil, fmt.Errorf("clock is required")
	}
	svc := &Service{store: st, clock: clk, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Notify creates a notification unless the dedup invariant suppresses it.
// Returns whether a new notification was created.
func (s *Service) Notify(ctx context.Context, accountID domain.AccountID, typ models.Type, subject, message string) (bool, error) {
	if !typ.IsValid() {
		return false, dErrors.Newf(dErrors.CodeValidation, "invalid notification type %q", typ)
	}
	if message == "" {
		return false, dErrors.New(dErrors.CodeValidation, "message is required")
	}

	exists, err := s.store.ExistsUnread(ctx, accountID, typ, subject)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing notifications")
	}
	if exists {
		if s.metrics != nil {
			s.metrics.NotificationsDeduped.Inc()
		}
		return false, nil
	}

	n := &models.Notification{
		ID:        domain.NewNotificationID(),
		AccountID: accountID,
		Message:   message,
		Type:      typ,
		Subject:   subject,
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.Create(ctx, n); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create notification")
	}
	return true, nil
}

// View is a notification decorated for display.
type View struct {
	models.Notification
	TimeAgo string
}

// ListForAccount returns the account's notifications newest first with a
// human-readable age.
func (s *Service) ListForAccount(ctx context.Context, accountID domain.AccountID) ([]View, error) {
	list, err := s.store.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
	}
	now := s.clock.Now()
	out := make([]View, 0, len(list))
	for _, n := range list {
		out = append(out, View{Notification: *n, TimeAgo: timeAgo(now, n.CreatedAt)})
	}
	return out, nil
}

// MarkAllRead consumes every unread notification for the account, re-arming
// deduplication for their subjects.
func (s *Service) MarkAllRead(ctx context.Context, accountID domain.AccountID) (int, error) {
	n, err := s.store.MarkAllRead(ctx, accountID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notifications read")
	}
	return n, nil
}

func timeAgo(now, created time.Time) string {
	diff := now.Sub(created)
	switch {
	case diff >= 24*time.Hour:
		days := int(diff.Hours()) / 24
		return fmt.Sprintf("%d day%s ago", days, plural(days))
	case diff >= time.Hour:
		hours := int(diff.Hours())
		return fmt.Sprintf("%d hour%s ago", hours, plural(hours))
	case diff >= time.Minute:
		minutes := int(diff.Minutes())
		return fmt.Sprintf("%d minute%s ago", minutes, plural(minutes))
	default:
		return "Just now"
	}
}

func plural(n int) string {
	if n > 1 {
		return "s"
	}
	return ""
}
