package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"bloodlink/internal/account/models"
	"bloodlink/internal/trust"
	"bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

// InMemory is a map-backed Store for tests and local development.
type InMemory struct {
	mu        sync.RWMutex
	accounts  map[domain.AccountID]*models.Account
	byEmail   map[string]domain.AccountID
	byHandle  map[string]domain.AccountID
	documents map[domain.DocumentID]*models.SupportingDocument
}

func NewInMemory() *InMemory {
	return &InMemory{
		accounts:  make(map[domain.AccountID]*models.Account),
		byEmail:   make(map[string]domain.AccountID),
		byHandle:  make(map[string]domain.AccountID),
		documents: make(map[domain.DocumentID]*models.SupportingDocument),
	}
}

func (s *InMemory) Create(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(account.Email)
	handle := strings.ToLower(account.Handle)
	if _, ok := s.byEmail[email]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.byHandle[handle]; ok {
		return sentinel.ErrConflict
	}
	s.accounts[account.ID] = copyAccount(account)
	s.byEmail[email] = account.ID
	s.byHandle[handle] = account.ID
	return nil
}

func (s *InMemory) GetByID(_ context.Context, id domain.AccountID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyAccount(account), nil
}

func (s *InMemory) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyAccount(s.accounts[id]), nil
}

func (s *InMemory) Update(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.accounts[account.ID] = copyAccount(account)
	return nil
}

func (s *InMemory) ListPendingVerification(_ context.Context) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Account
	for _, account := range s.accounts {
		if account.Status != models.AccountPending {
			continue
		}
		if account.TrustStatus == models.TrustRejected {
			continue
		}
		out = append(out, copyAccount(account))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TrustScore != out[j].TrustScore {
			return out[i].TrustScore < out[j].TrustScore
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) ListByTrustStatus(_ context.Context, status models.TrustStatus) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Account
	for _, account := range s.accounts {
		if account.TrustStatus == status {
			out = append(out, copyAccount(account))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) ListActiveByRole(_ context.Context, role domain.Role) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Account
	for _, account := range s.accounts {
		if account.Role == role && account.Status == models.AccountActive {
			out = append(out, copyAccount(account))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) CountByTrustStatus(_ context.Context) (map[models.TrustStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[models.TrustStatus]int)
	for _, account := range s.accounts {
		counts[account.TrustStatus]++
	}
	return counts, nil
}

func (s *InMemory) AverageTrustScore(_ context.Context) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum, n := 0, 0
	for _, account := range s.accounts {
		if account.Role == domain.RoleAdmin {
			continue
		}
		sum += account.TrustScore
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return float64(sum) / float64(n), nil
}

func (s *InMemory) CreateDocument(_ context.Context, doc *models.SupportingDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[doc.ID]; ok {
		return sentinel.ErrConflict
	}
	s.documents[doc.ID] = copyDocument(doc)
	return nil
}

func (s *InMemory) GetDocument(_ context.Context, id domain.DocumentID) (*models.SupportingDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyDocument(doc), nil
}

func (s *InMemory) UpdateDocument(_ context.Context, doc *models.SupportingDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[doc.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.documents[doc.ID] = copyDocument(doc)
	return nil
}

func (s *InMemory) ListPendingDocuments(_ context.Context) ([]*models.SupportingDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.SupportingDocument
	for _, doc := range s.documents {
		if doc.Status == models.DocumentPending {
			out = append(out, copyDocument(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return out, nil
}

func (s *InMemory) ListDocumentsByAccount(_ context.Context, accountID domain.AccountID) ([]*models.SupportingDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.SupportingDocument
	for _, doc := range s.documents {
		if doc.AccountID == accountID {
			out = append(out, copyDocument(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return out, nil
}

func copyAccount(a *models.Account) *models.Account {
	c := *a
	if a.Findings != nil {
		c.Findings = make([]trust.Finding, len(a.Findings))
		copy(c.Findings, a.Findings)
	}
	if a.VerifiedAt != nil {
		t := *a.VerifiedAt
		c.VerifiedAt = &t
	}
	if a.VerifiedBy != nil {
		id := *a.VerifiedBy
		c.VerifiedBy = &id
	}
	return &c
}

func copyDocument(d *models.SupportingDocument) *models.SupportingDocument {
	c := *d
	if d.ReviewedAt != nil {
		t := *d.ReviewedAt
		c.ReviewedAt = &t
	}
	if d.ReviewedBy != nil {
		id := *d.ReviewedBy
		c.ReviewedBy = &id
	}
	return &c
}
