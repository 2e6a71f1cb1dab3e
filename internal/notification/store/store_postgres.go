package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"bloodlink/internal/notification/models"
	"bloodlink/pkg/domain"
)

// Postgres persists notifications in PostgreSQL. This store is pure I/O;
// the dedup decision belongs to the service.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (id, account_id, message, type, subject, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(n.ID),
		uuid.UUID(n.AccountID),
		n.Message,
		string(n.Type),
		n.Subject,
		n.Read,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (s *Postgres) ExistsUnread(ctx context.Context, accountID domain.AccountID, typ models.Type, subject string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE account_id = $1 AND type = $2 AND subject = $3 AND read = FALSE
		)
	`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, uuid.UUID(accountID), string(typ), subject).Scan(&exists); err != nil {
		return false, fmt.Errorf("check unread notification: %w", err)
	}
	return exists, nil
}

func (s *Postgres) ListByAccount(ctx context.Context, accountID domain.AccountID) ([]*models.Notification, error) {
	query := `
		SELECT id, account_id, message, type, subject, read, created_at
		FROM notifications
		WHERE account_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(accountID))
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		var (
			n         models.Notification
			id, accID uuid.UUID
			typ       string
		)
		if err := rows.Scan(&id, &accID, &n.Message, &typ, &n.Subject, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.ID = domain.NotificationID(id)
		n.AccountID = domain.AccountID(accID)
		n.Type = models.Type(typ)
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

func (s *Postgres) MarkAllRead(ctx context.Context, accountID domain.AccountID) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE account_id = $1 AND read = FALSE`,
		uuid.UUID(accountID),
	)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return int(n), nil
}
