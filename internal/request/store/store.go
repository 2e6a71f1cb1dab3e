package store

import (
	"context"

	"bloodlink/internal/request/models"
	"bloodlink/pkg/domain"
)

// Store persists hospital blood requests.
type Store interface {
	Create(ctx context.Context, request *models.Request) error
	GetByID(ctx context.Context, id domain.RequestID) (*models.Request, error)
	// Update persists the decision fields: status, note, decided-at/by.
	Update(ctx context.Context, request *models.Request) error
	// ListByHospital returns the hospital's requests, newest first.
	ListByHospital(ctx context.Context, hospitalID domain.AccountID) ([]*models.Request, error)
	// ListPendingForBank returns undecided requests addressed to the bank
	// plus unrouted ones, oldest first.
	ListPendingForBank(ctx context.Context, bankID domain.AccountID) ([]*models.Request, error)
	// ListPending returns every undecided request, oldest first.
	ListPending(ctx context.Context) ([]*models.Request, error)
	// ListUrgentForBank narrows the bank's pending queue to urgent and
	// emergency priorities.
	ListUrgentForBank(ctx context.Context, bankID domain.AccountID) ([]*models.Request, error)
}
