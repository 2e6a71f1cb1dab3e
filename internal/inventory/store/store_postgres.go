package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"bloodlink/internal/inventory/models"
	"bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

// Postgres persists lots in PostgreSQL. The FIFO consumption runs inside a
// single transaction with row locks so a concurrent consumer can never act
// on a lot already claimed.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Add(ctx context.Context, lots []*models.Lot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("add lots: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO inventory_lots (id, bank_id, blood_group, units, expiry_date, collected_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return fmt.Errorf("add lots: prepare: %w", err)
	}
	defer stmt.Close()

	for _, l := range lots {
		if _, err := stmt.ExecContext(ctx,
			uuid.UUID(l.ID), uuid.UUID(l.BankID), string(l.BloodGroup),
			l.Units, l.ExpiryDate, l.CollectedAt,
		); err != nil {
			return fmt.Errorf("add lots: insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("add lots: commit: %w", err)
	}
	return nil
}

func (s *Postgres) ConsumeFIFO(ctx context.Context, bankID domain.AccountID, group domain.BloodGroup, count int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("consume fifo: begin: %w", err)
	}
	defer tx.Rollback()

	// Lock the candidate rows in FIFO order before touching anything.
	rows, err := tx.QueryContext(ctx, `
		SELECT id, units
		FROM inventory_lots
		WHERE bank_id = $1 AND blood_group = $2
		ORDER BY expiry_date ASC, collected_at ASC, id ASC
		FOR UPDATE
	`, uuid.UUID(bankID), string(group))
	if err != nil {
		return fmt.Errorf("consume fifo: lock: %w", err)
	}

	type lockedLot struct {
		id    uuid.UUID
		units int
	}
	var (
		locked    []lockedLot
		available int
	)
	for rows.Next() {
		var l lockedLot
		if err := rows.Scan(&l.id, &l.units); err != nil {
			rows.Close()
			return fmt.Errorf("consume fifo: scan: %w", err)
		}
		locked = append(locked, l)
		available += l.units
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("consume fifo: %w", err)
	}
	rows.Close()

	if available < count {
		return sentinel.ErrInsufficientStock
	}

	remaining := count
	var toDelete []uuid.UUID
	for _, l := range locked {
		if remaining == 0 {
			break
		}
		if l.units <= remaining {
			remaining -= l.units
			toDelete = append(toDelete, l.id)
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE inventory_lots SET units = units - $2 WHERE id = $1`,
			l.id, remaining,
		); err != nil {
			return fmt.Errorf("consume fifo: split: %w", err)
		}
		remaining = 0
	}
	if len(toDelete) > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM inventory_lots WHERE id = ANY($1)`,
			pq.Array(toDelete),
		); err != nil {
			return fmt.Errorf("consume fifo: delete: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("consume fifo: commit: %w", err)
	}
	return nil
}

func (s *Postgres) ListByBank(ctx context.Context, bankID domain.AccountID) ([]*models.Lot, error) {
	return s.queryLots(ctx, `
		SELECT id, bank_id, blood_group, units, expiry_date, collected_at
		FROM inventory_lots
		WHERE bank_id = $1
		ORDER BY expiry_date ASC, collected_at ASC, id ASC
	`, uuid.UUID(bankID))
}

func (s *Postgres) ExpiringBetween(ctx context.Context, from, until time.Time) ([]*models.Lot, error) {
	return s.queryLots(ctx, `
		SELECT id, bank_id, blood_group, units, expiry_date, collected_at
		FROM inventory_lots
		WHERE expiry_date >= $1 AND expiry_date <= $2
		ORDER BY expiry_date ASC, collected_at ASC, id ASC
	`, from, until)
}

func (s *Postgres) TotalUnits(ctx context.Context, bankID domain.AccountID) (int, error) {
	return s.scanSum(ctx,
		`SELECT COALESCE(SUM(units), 0) FROM inventory_lots WHERE bank_id = $1`,
		uuid.UUID(bankID))
}

func (s *Postgres) UnitsAddedSince(ctx context.Context, bankID domain.AccountID, since time.Time) (int, error) {
	return s.scanSum(ctx,
		`SELECT COALESCE(SUM(units), 0) FROM inventory_lots WHERE bank_id = $1 AND collected_at >= $2`,
		uuid.UUID(bankID), since)
}

func (s *Postgres) UnitsExpiringBetween(ctx context.Context, bankID domain.AccountID, from, until time.Time) (int, error) {
	return s.scanSum(ctx,
		`SELECT COALESCE(SUM(units), 0) FROM inventory_lots WHERE bank_id = $1 AND expiry_date >= $2 AND expiry_date <= $3`,
		uuid.UUID(bankID), from, until)
}

func (s *Postgres) TotalForGroup(ctx context.Context, group domain.BloodGroup, unexpiredAfter time.Time) (int, error) {
	if unexpiredAfter.IsZero() {
		return s.scanSum(ctx,
			`SELECT COALESCE(SUM(units), 0) FROM inventory_lots WHERE blood_group = $1`,
			string(group))
	}
	return s.scanSum(ctx,
		`SELECT COALESCE(SUM(units), 0) FROM inventory_lots WHERE blood_group = $1 AND expiry_date > $2`,
		string(group), unexpiredAfter)
}

func (s *Postgres) DistributionForBank(ctx context.Context, bankID domain.AccountID) (map[domain.BloodGroup]int, error) {
	return s.queryDistribution(ctx, `
		SELECT blood_group, COALESCE(SUM(units), 0)
		FROM inventory_lots
		WHERE bank_id = $1
		GROUP BY blood_group
	`, uuid.UUID(bankID))
}

func (s *Postgres) DistributionAll(ctx context.Context) (map[domain.BloodGroup]int, error) {
	return s.queryDistribution(ctx, `
		SELECT blood_group, COALESCE(SUM(units), 0)
		FROM inventory_lots
		GROUP BY blood_group
	`)
}

func (s *Postgres) AvailabilityForGroup(ctx context.Context, group domain.BloodGroup) ([]models.BankStock, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT bank_id, SUM(units) AS units
		FROM inventory_lots
		WHERE blood_group = $1
		GROUP BY bank_id
		HAVING SUM(units) > 0
		ORDER BY units DESC
	`, string(group))
	if err != nil {
		return nil, fmt.Errorf("availability for group: %w", err)
	}
	defer rows.Close()

	var out []models.BankStock
	for rows.Next() {
		var (
			bankID uuid.UUID
			units  int
		)
		if err := rows.Scan(&bankID, &units); err != nil {
			return nil, fmt.Errorf("availability for group: scan: %w", err)
		}
		out = append(out, models.BankStock{BankID: domain.AccountID(bankID), Units: units})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("availability for group: %w", err)
	}
	return out, nil
}

func (s *Postgres) queryLots(ctx context.Context, query string, args ...any) ([]*models.Lot, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query lots: %w", err)
	}
	defer rows.Close()

	var out []*models.Lot
	for rows.Next() {
		var (
			l          models.Lot
			id, bankID uuid.UUID
			group      string
		)
		if err := rows.Scan(&id, &bankID, &group, &l.Units, &l.ExpiryDate, &l.CollectedAt); err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		l.ID = domain.LotID(id)
		l.BankID = domain.AccountID(bankID)
		l.BloodGroup = domain.BloodGroup(group)
		out = append(out, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query lots: %w", err)
	}
	return out, nil
}

func (s *Postgres) queryDistribution(ctx context.Context, query string, args ...any) (map[domain.BloodGroup]int, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query distribution: %w", err)
	}
	defer rows.Close()

	dist := make(map[domain.BloodGroup]int)
	for rows.Next() {
		var (
			group string
			units int
		)
		if err := rows.Scan(&group, &units); err != nil {
			return nil, fmt.Errorf("scan distribution: %w", err)
		}
		dist[domain.BloodGroup(group)] = units
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query distribution: %w", err)
	}
	return dist, nil
}

func (s *Postgres) scanSum(ctx context.Context, query string, args ...any) (int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("scan sum: %w", err)
	}
	return total, nil
}
