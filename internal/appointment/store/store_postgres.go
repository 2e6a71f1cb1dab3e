package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bloodlink/internal/appointment/models"
	"bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

// Postgres is the production Store backed by the appointments table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const appointmentColumns = `id, donor_id, campaign_id, bank_id, date,
	time_slot, status, created_at`

func (s *Postgres) Create(ctx context.Context, appointment *models.Appointment) error {
	query := `
		INSERT INTO appointments (` + appointmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query,
		appointment.ID.String(), appointment.DonorID.String(),
		campaignIDValue(appointment.CampaignID), bankIDValue(appointment.BankID),
		appointment.Date, appointment.TimeSlot, string(appointment.Status),
		appointment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (s *Postgres) GetByID(ctx context.Context, id domain.AppointmentID) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	return scanAppointment(s.db.QueryRowContext(ctx, query, id.String()))
}

func (s *Postgres) Update(ctx context.Context, appointment *models.Appointment) error {
	query := `UPDATE appointments SET status = $2 WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query,
		appointment.ID.String(), string(appointment.Status),
	)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update appointment rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListByDonor(ctx context.Context, donorID domain.AccountID) ([]*models.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE donor_id = $1
		ORDER BY date ASC`
	return s.queryAppointments(ctx, query, donorID.String())
}

func (s *Postgres) ListByCampaign(ctx context.Context, campaignID domain.CampaignID) ([]*models.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE campaign_id = $1
		ORDER BY date ASC`
	return s.queryAppointments(ctx, query, campaignID.String())
}

func (s *Postgres) ListCompletedForBank(ctx context.Context, bankID domain.AccountID) ([]*models.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE bank_id = $1 AND status = 'completed'
		ORDER BY date DESC`
	return s.queryAppointments(ctx, query, bankID.String())
}

func (s *Postgres) queryAppointments(ctx context.Context, query string, args ...any) ([]*models.Appointment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	defer rows.Close()

	var out []*models.Appointment
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, appointment)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*models.Appointment, error) {
	var (
		appointment    models.Appointment
		id, donor      string
		campaign, bank sql.NullString
		status         string
	)
	err := row.Scan(&id, &donor, &campaign, &bank, &appointment.Date,
		&appointment.TimeSlot, &status, &appointment.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan appointment: %w", err)
	}

	appointment.ID, err = domain.ParseAppointmentID(id)
	if err != nil {
		return nil, fmt.Errorf("parse appointment id: %w", err)
	}
	appointment.DonorID, err = domain.ParseAccountID(donor)
	if err != nil {
		return nil, fmt.Errorf("parse appointment donor id: %w", err)
	}
	if campaign.Valid {
		campaignID, err := domain.ParseCampaignID(campaign.String)
		if err != nil {
			return nil, fmt.Errorf("parse appointment campaign id: %w", err)
		}
		appointment.CampaignID = &campaignID
	}
	if bank.Valid {
		bankID, err := domain.ParseAccountID(bank.String)
		if err != nil {
			return nil, fmt.Errorf("parse appointment bank id: %w", err)
		}
		appointment.BankID = &bankID
	}
	appointment.Status = models.Status(status)
	return &appointment, nil
}

func campaignIDValue(id *domain.CampaignID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func bankIDValue(id *domain.AccountID) any {
	if id == nil {
		return nil
	}
	return id.String()
}
