package store

import (
	"context"

	"bloodlink/internal/notification/models"
	"bloodlink/pkg/domain"
)

// Store persists notifications. Implementations must be safe for concurrent
// use; the dedup read-then-create decision belongs to the service.
type Store interface {
	Create(ctx context.Context, n *models.Notification) error
	// ExistsUnread reports whether an unconsumed notification with the same
	// dedup key already exists for the account.
	ExistsUnread(ctx context.Context, accountID domain.AccountID, typ models.Type, subject string) (bool, error)
	// ListByAccount returns the account's notifications newest first.
	ListByAccount(ctx context.Context, accountID domain.AccountID) ([]*models.Notification, error)
	// MarkAllRead flips every unread notification for the account and
	// returns how many were flipped.
	MarkAllRead(ctx context.Context, accountID domain.AccountID) (int, error)
}
