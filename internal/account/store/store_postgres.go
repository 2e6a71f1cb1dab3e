package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"bloodlink/internal/account/models"
	"bloodlink/internal/trust"
	"bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

// Postgres is the production Store backed by the accounts and
// supporting_documents tables. Profile and findings are stored as JSONB.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const accountColumns = `id, handle, email, phone, password_hash, role, status,
	profile, trust_status, trust_score, findings, verified_at, verified_by, created_at`

func (s *Postgres) Create(ctx context.Context, account *models.Account) error {
	profile, findings, err := marshalAccountJSON(account)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, LOWER($3), $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = s.db.ExecContext(ctx, query,
		account.ID.String(), account.Handle, account.Email, account.Phone,
		account.PasswordHash, string(account.Role), string(account.Status),
		profile, string(account.TrustStatus), account.TrustScore, findings,
		account.VerifiedAt, verifiedByValue(account.VerifiedBy), account.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *Postgres) GetByID(ctx context.Context, id domain.AccountID) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return s.scanAccount(s.db.QueryRowContext(ctx, query, id.String()))
}

func (s *Postgres) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = LOWER($1)`
	return s.scanAccount(s.db.QueryRowContext(ctx, query, email))
}

func (s *Postgres) Update(ctx context.Context, account *models.Account) error {
	_, findings, err := marshalAccountJSON(account)
	if err != nil {
		return err
	}

	query := `
		UPDATE accounts
		SET status = $2, trust_status = $3, trust_score = $4, findings = $5,
		    verified_at = $6, verified_by = $7
		WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query,
		account.ID.String(), string(account.Status), string(account.TrustStatus),
		account.TrustScore, findings, account.VerifiedAt, verifiedByValue(account.VerifiedBy),
	)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListPendingVerification(ctx context.Context) ([]*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE status = 'pending' AND trust_status != 'rejected'
		ORDER BY trust_score ASC, created_at ASC`
	return s.queryAccounts(ctx, query)
}

func (s *Postgres) ListByTrustStatus(ctx context.Context, status models.TrustStatus) ([]*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE trust_status = $1
		ORDER BY created_at ASC`
	return s.queryAccounts(ctx, query, string(status))
}

func (s *Postgres) ListActiveByRole(ctx context.Context, role domain.Role) ([]*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE role = $1 AND status = 'active'
		ORDER BY created_at ASC`
	return s.queryAccounts(ctx, query, string(role))
}

func (s *Postgres) CountByTrustStatus(ctx context.Context) (map[models.TrustStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT trust_status, COUNT(*) FROM accounts GROUP BY trust_status`)
	if err != nil {
		return nil, fmt.Errorf("count accounts by trust status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.TrustStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan trust status count: %w", err)
		}
		counts[models.TrustStatus(status)] = n
	}
	return counts, rows.Err()
}

func (s *Postgres) AverageTrustScore(ctx context.Context) (float64, error) {
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT AVG(trust_score) FROM accounts WHERE role != 'admin'`,
	).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("average trust score: %w", err)
	}
	return avg.Float64, nil
}

const documentColumns = `id, account_id, kind, file_name, status, note, uploaded_at, reviewed_at, reviewed_by`

func (s *Postgres) CreateDocument(ctx context.Context, doc *models.SupportingDocument) error {
	query := `
		INSERT INTO supporting_documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.db.ExecContext(ctx, query,
		doc.ID.String(), doc.AccountID.String(), doc.Kind, doc.FileName,
		string(doc.Status), doc.Note, doc.UploadedAt, doc.ReviewedAt,
		verifiedByValue(doc.ReviewedBy),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert supporting document: %w", err)
	}
	return nil
}

func (s *Postgres) GetDocument(ctx context.Context, id domain.DocumentID) (*models.SupportingDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM supporting_documents WHERE id = $1`
	return scanDocument(s.db.QueryRowContext(ctx, query, id.String()))
}

func (s *Postgres) UpdateDocument(ctx context.Context, doc *models.SupportingDocument) error {
	query := `
		UPDATE supporting_documents
		SET status = $2, note = $3, reviewed_at = $4, reviewed_by = $5
		WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query,
		doc.ID.String(), string(doc.Status), doc.Note, doc.ReviewedAt,
		verifiedByValue(doc.ReviewedBy),
	)
	if err != nil {
		return fmt.Errorf("update supporting document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update supporting document rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListPendingDocuments(ctx context.Context) ([]*models.SupportingDocument, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM supporting_documents
		WHERE status = 'pending'
		ORDER BY uploaded_at ASC`
	return s.queryDocuments(ctx, query)
}

func (s *Postgres) ListDocumentsByAccount(ctx context.Context, accountID domain.AccountID) ([]*models.SupportingDocument, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM supporting_documents
		WHERE account_id = $1
		ORDER BY uploaded_at ASC`
	return s.queryDocuments(ctx, query, accountID.String())
}

func (s *Postgres) queryAccounts(ctx context.Context, query string, args ...any) ([]*models.Account, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var out []*models.Account
	for rows.Next() {
		account, err := s.scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, account)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Postgres) scanAccount(row rowScanner) (*models.Account, error) {
	var (
		account      models.Account
		id, role     string
		status       string
		trustStatus  string
		profileJSON  []byte
		findingsJSON []byte
		verifiedAt   sql.NullTime
		verifiedBy   sql.NullString
	)
	err := row.Scan(&id, &account.Handle, &account.Email, &account.Phone,
		&account.PasswordHash, &role, &status, &profileJSON, &trustStatus,
		&account.TrustScore, &findingsJSON, &verifiedAt, &verifiedBy, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	account.ID, err = domain.ParseAccountID(id)
	if err != nil {
		return nil, fmt.Errorf("parse account id: %w", err)
	}
	account.Role = domain.Role(role)
	account.Status = models.AccountStatus(status)
	account.TrustStatus = models.TrustStatus(trustStatus)
	if len(profileJSON) > 0 {
		if err := json.Unmarshal(profileJSON, &account.Profile); err != nil {
			return nil, fmt.Errorf("unmarshal account profile: %w", err)
		}
	}
	if len(findingsJSON) > 0 {
		if err := json.Unmarshal(findingsJSON, &account.Findings); err != nil {
			return nil, fmt.Errorf("unmarshal account findings: %w", err)
		}
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		account.VerifiedAt = &t
	}
	if verifiedBy.Valid {
		by, err := domain.ParseAccountID(verifiedBy.String)
		if err != nil {
			return nil, fmt.Errorf("parse verified-by id: %w", err)
		}
		account.VerifiedBy = &by
	}
	return &account, nil
}

func (s *Postgres) queryDocuments(ctx context.Context, query string, args ...any) ([]*models.SupportingDocument, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query supporting documents: %w", err)
	}
	defer rows.Close()

	var out []*models.SupportingDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func scanDocument(row rowScanner) (*models.SupportingDocument, error) {
	var (
		doc        models.SupportingDocument
		id, acct   string
		status     string
		reviewedAt sql.NullTime
		reviewedBy sql.NullString
	)
	err := row.Scan(&id, &acct, &doc.Kind, &doc.FileName, &status, &doc.Note,
		&doc.UploadedAt, &reviewedAt, &reviewedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan supporting document: %w", err)
	}

	doc.ID, err = domain.ParseDocumentID(id)
	if err != nil {
		return nil, fmt.Errorf("parse document id: %w", err)
	}
	doc.AccountID, err = domain.ParseAccountID(acct)
	if err != nil {
		return nil, fmt.Errorf("parse document account id: %w", err)
	}
	doc.Status = models.DocumentStatus(status)
	if reviewedAt.Valid {
		t := reviewedAt.Time
		doc.ReviewedAt = &t
	}
	if reviewedBy.Valid {
		by, err := domain.ParseAccountID(reviewedBy.String)
		if err != nil {
			return nil, fmt.Errorf("parse reviewed-by id: %w", err)
		}
		doc.ReviewedBy = &by
	}
	return &doc, nil
}

func marshalAccountJSON(account *models.Account) ([]byte, []byte, error) {
	profile, err := json.Marshal(account.Profile)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal account profile: %w", err)
	}
	findings := account.Findings
	if findings == nil {
		findings = []trust.Finding{}
	}
	findingsJSON, err := json.Marshal(findings)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal account findings: %w", err)
	}
	return profile, findingsJSON, nil
}

// verifiedByValue converts an optional account reference for binding.
func verifiedByValue(id *domain.AccountID) any {
	if id == nil {
		return nil
	}
	return id.String()
}
