package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"bloodlink/internal/campaign/models"
	"bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

// Postgres is the production Store backed by the campaigns table. Target
// groups are stored as a text array.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const campaignColumns = `id, organizer_id, title, description, location,
	scheduled_for, target_groups, status, created_at`

func (s *Postgres) Create(ctx context.Context, campaign *models.Campaign) error {
	query := `
		INSERT INTO campaigns (` + campaignColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.db.ExecContext(ctx, query,
		campaign.ID.String(), campaign.OrganizerID.String(), campaign.Title,
		campaign.Description, campaign.Location, campaign.ScheduledFor,
		pq.Array(groupStrings(campaign.TargetGroups)), string(campaign.Status),
		campaign.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

func (s *Postgres) GetByID(ctx context.Context, id domain.CampaignID) (*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`
	return scanCampaign(s.db.QueryRowContext(ctx, query, id.String()))
}

func (s *Postgres) Update(ctx context.Context, campaign *models.Campaign) error {
	query := `
		UPDATE campaigns
		SET title = $2, description = $3, location = $4, scheduled_for = $5,
		    target_groups = $6, status = $7
		WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query,
		campaign.ID.String(), campaign.Title, campaign.Description,
		campaign.Location, campaign.ScheduledFor,
		pq.Array(groupStrings(campaign.TargetGroups)), string(campaign.Status),
	)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update campaign rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListUpcoming(ctx context.Context, after time.Time) ([]*models.Campaign, error) {
	query := `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE status = 'scheduled' AND scheduled_for >= $1
		ORDER BY scheduled_for ASC`
	return s.queryCampaigns(ctx, query, after)
}

func (s *Postgres) ListByOrganizer(ctx context.Context, organizerID domain.AccountID) ([]*models.Campaign, error) {
	query := `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE organizer_id = $1
		ORDER BY created_at ASC`
	return s.queryCampaigns(ctx, query, organizerID.String())
}

func (s *Postgres) queryCampaigns(ctx context.Context, query string, args ...any) ([]*models.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query campaigns: %w", err)
	}
	defer rows.Close()

	var out []*models.Campaign
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, campaign)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*models.Campaign, error) {
	var (
		campaign  models.Campaign
		id, org   string
		status    string
		rawGroups pq.StringArray
	)
	err := row.Scan(&id, &org, &campaign.Title, &campaign.Description,
		&campaign.Location, &campaign.ScheduledFor, &rawGroups, &status,
		&campaign.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan campaign: %w", err)
	}

	campaign.ID, err = domain.ParseCampaignID(id)
	if err != nil {
		return nil, fmt.Errorf("parse campaign id: %w", err)
	}
	campaign.OrganizerID, err = domain.ParseAccountID(org)
	if err != nil {
		return nil, fmt.Errorf("parse campaign organizer id: %w", err)
	}
	campaign.Status = models.Status(status)
	for _, raw := range rawGroups {
		campaign.TargetGroups = append(campaign.TargetGroups, domain.BloodGroup(raw))
	}
	return &campaign, nil
}

func groupStrings(groups []domain.BloodGroup) []string {
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		out = append(out, string(g))
	}
	return out
}
