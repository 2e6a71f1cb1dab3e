package store

import (
	"context"

	"bloodlink/internal/account/models"
	"bloodlink/pkg/domain"
)

// Store persists accounts and their supporting documents. Implementations
// return sentinel errors; services translate them into coded errors.
type Store interface {
	// Create inserts a new account. A duplicate email or handle returns
	// sentinel.ErrConflict.
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id domain.AccountID) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)

	// Update persists the account's mutable verification fields: status,
	// trust status, findings, and the verified-at/by stamps.
	Update(ctx context.Context, account *models.Account) error

	// ListPendingVerification returns accounts still awaiting an admin
	// decision, lowest trust score first.
	ListPendingVerification(ctx context.Context) ([]*models.Account, error)
	ListByTrustStatus(ctx context.Context, status models.TrustStatus) ([]*models.Account, error)
	// ListActiveByRole returns active accounts holding the role.
	ListActiveByRole(ctx context.Context, role domain.Role) ([]*models.Account, error)
	CountByTrustStatus(ctx context.Context) (map[models.TrustStatus]int, error)
	// AverageTrustScore is the mean score over all non-admin accounts;
	// zero when none exist.
	AverageTrustScore(ctx context.Context) (float64, error)

	CreateDocument(ctx context.Context, doc *models.SupportingDocument) error
	GetDocument(ctx context.Context, id domain.DocumentID) (*models.SupportingDocument, error)
	UpdateDocument(ctx context.Context, doc *models.SupportingDocument) error
	ListPendingDocuments(ctx context.Context) ([]*models.SupportingDocument, error)
	ListDocumentsByAccount(ctx context.Context, accountID domain.AccountID) ([]*models.SupportingDocument, error)
}
