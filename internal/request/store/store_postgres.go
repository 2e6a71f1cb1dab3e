package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bloodlink/internal/request/models"
	"bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

// Postgres is the production Store backed by the blood_requests table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const requestColumns = `id, hospital_id, bank_id, patient_name, patient_ref,
	blood_group, units, priority, status, reason, decision_note, decided_at,
	decided_by, created_at`

func (s *Postgres) Create(ctx context.Context, request *models.Request) error {
	query := `
		INSERT INTO blood_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := s.db.ExecContext(ctx, query,
		request.ID.String(), request.HospitalID.String(), accountIDValue(request.BankID),
		request.PatientName, request.PatientRef,
		request.BloodGroup.String(), request.Units, string(request.Priority),
		string(request.Status), request.Reason, request.DecisionNote,
		request.DecidedAt, accountIDValue(request.DecidedBy), request.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert blood request: %w", err)
	}
	return nil
}

func (s *Postgres) GetByID(ctx context.Context, id domain.RequestID) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM blood_requests WHERE id = $1`
	return scanRequest(s.db.QueryRowContext(ctx, query, id.String()))
}

func (s *Postgres) Update(ctx context.Context, request *models.Request) error {
	query := `
		UPDATE blood_requests
		SET bank_id = $2, status = $3, decision_note = $4, decided_at = $5,
			decided_by = $6
		WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query,
		request.ID.String(), accountIDValue(request.BankID), string(request.Status),
		request.DecisionNote, request.DecidedAt, accountIDValue(request.DecidedBy),
	)
	if err != nil {
		return fmt.Errorf("update blood request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update blood request rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListByHospital(ctx context.Context, hospitalID domain.AccountID) ([]*models.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM blood_requests
		WHERE hospital_id = $1
		ORDER BY created_at DESC`
	return s.queryRequests(ctx, query, hospitalID.String())
}

func (s *Postgres) ListPendingForBank(ctx context.Context, bankID domain.AccountID) ([]*models.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM blood_requests
		WHERE (bank_id = $1 OR bank_id IS NULL) AND status = 'pending'
		ORDER BY created_at ASC`
	return s.queryRequests(ctx, query, bankID.String())
}

func (s *Postgres) ListPending(ctx context.Context) ([]*models.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM blood_requests
		WHERE status = 'pending'
		ORDER BY created_at ASC`
	return s.queryRequests(ctx, query)
}

func (s *Postgres) ListUrgentForBank(ctx context.Context, bankID domain.AccountID) ([]*models.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM blood_requests
		WHERE (bank_id = $1 OR bank_id IS NULL)
			AND status = 'pending'
			AND priority IN ('urgent', 'emergency')
		ORDER BY created_at ASC`
	return s.queryRequests(ctx, query, bankID.String())
}

func (s *Postgres) queryRequests(ctx context.Context, query string, args ...any) ([]*models.Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query blood requests: %w", err)
	}
	defer rows.Close()

	var out []*models.Request
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, request)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.Request, error) {
	var (
		request          models.Request
		id, hospital     string
		bank, decidedBy  sql.NullString
		group            string
		priority, status string
		decidedAt        sql.NullTime
	)
	err := row.Scan(&id, &hospital, &bank, &request.PatientName, &request.PatientRef,
		&group, &request.Units, &priority, &status, &request.Reason,
		&request.DecisionNote, &decidedAt, &decidedBy, &request.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan blood request: %w", err)
	}

	request.ID, err = domain.ParseRequestID(id)
	if err != nil {
		return nil, fmt.Errorf("parse request id: %w", err)
	}
	request.HospitalID, err = domain.ParseAccountID(hospital)
	if err != nil {
		return nil, fmt.Errorf("parse request hospital id: %w", err)
	}
	if bank.Valid {
		bankID, err := domain.ParseAccountID(bank.String)
		if err != nil {
			return nil, fmt.Errorf("parse request bank id: %w", err)
		}
		request.BankID = &bankID
	}
	request.BloodGroup = domain.BloodGroup(group)
	request.Priority = models.Priority(priority)
	request.Status = models.Status(status)
	if decidedAt.Valid {
		t := decidedAt.Time
		request.DecidedAt = &t
	}
	if decidedBy.Valid {
		by, err := domain.ParseAccountID(decidedBy.String)
		if err != nil {
			return nil, fmt.Errorf("parse decided-by id: %w", err)
		}
		request.DecidedBy = &by
	}
	return &request, nil
}

func accountIDValue(id *domain.AccountID) any {
	if id == nil {
		return nil
	}
	return id.String()
}
