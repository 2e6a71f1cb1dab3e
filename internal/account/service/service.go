package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"bloodlink/internal/account/models"
	"bloodlink/internal/account/store"
	"bloodlink/internal/platform/metrics"
	"bloodlink/internal/trust"
	"bloodlink/pkg/clock"
	"bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/sentinel"
)

// Service owns registration, screening, login, and admin verification.
//
// Every registration is scored but none is activated by the score alone:
// accounts stay pending until an admin decision or an approved supporting
// document flips them active.
type Service struct {
	store    store.Store
	tokens   *TokenIssuer
	clock    clock.Clock
	logger   *slog.Logger
	metrics  *metrics.Metrics
	throttle *loginThrottle
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(st store.Store, tokens *TokenIssuer, clk clock.Clock, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("account store is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token issuer is required")
	}
	if clk == nil {
		return nil, fmt.Errorf("clock is required")
	}
	s := &Service{store: st, tokens: tokens, clock: clk, logger: slog.Default(), throttle: newLoginThrottle(clk)}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RegisterInput is the raw registration form. Role-specific fields are
// ignored for other roles.
type RegisterInput struct {
	Handle   string
	Email    string
	Phone    string
	Password string
	Role     domain.Role

	BloodGroup     string
	ContactPerson  string
	Address        string
	City           string
	State          string
	LicenseID      string
	RegistrationID string
	OperatingHours string
	Capacity       string
	HospitalType   string
}

// Register screens the submission, hashes the password, and persists a
// pending account. The trust result is returned so callers can show the
// applicant their screening outcome.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.Account, trust.Result, error) {
	switch in.Role {
	case domain.RoleDonor, domain.RoleHospital, domain.RoleBank:
	default:
		return nil, trust.Result{}, dErrors.Newf(dErrors.CodeValidation, "invalid role: %s", in.Role)
	}
	if strings.TrimSpace(in.Email) == "" {
		return nil, trust.Result{}, dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if len(in.Password) < 8 {
		return nil, trust.Result{}, dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}

	now := s.clock.Now()
	result := trust.Score(trust.Submission{
		Handle:         in.Handle,
		Email:          in.Email,
		Phone:          in.Phone,
		BloodGroup:     in.BloodGroup,
		ContactPerson:  in.ContactPerson,
		Address:        in.Address,
		City:           in.City,
		State:          in.State,
		LicenseID:      in.LicenseID,
		RegistrationID: in.RegistrationID,
		OperatingHours: in.OperatingHours,
		Capacity:       in.Capacity,
		HospitalType:   in.HospitalType,
	}, in.Role, now)

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, trust.Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	trustStatus := models.TrustFlagged
	if result.Status == trust.StatusAutoApproved {
		trustStatus = models.TrustAutoApproved
	}

	account := &models.Account{
		ID:           domain.NewAccountID(),
		Handle:       in.Handle,
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:        in.Phone,
		PasswordHash: string(hash),
		Role:         in.Role,
		Status:       models.AccountPending,
		Profile: models.Profile{
			BloodGroup:     domain.BloodGroup(in.BloodGroup),
			ContactPerson:  in.ContactPerson,
			Address:        in.Address,
			City:           in.City,
			State:          in.State,
			LicenseID:      in.LicenseID,
			RegistrationID: in.RegistrationID,
			OperatingHours: in.OperatingHours,
			Capacity:       in.Capacity,
			HospitalType:   in.HospitalType,
		},
		TrustStatus: trustStatus,
		TrustScore:  result.Score,
		Findings:    result.Findings,
		CreatedAt:   now,
	}

	if err := s.store.Create(ctx, account); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, trust.Result{}, dErrors.New(dErrors.CodeConflict, "email or username already registered")
		}
		return nil, trust.Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
	}

	if s.metrics != nil {
		s.metrics.RegistrationsScored.WithLabelValues(string(result.Status)).Inc()
	}
	s.logger.InfoContext(ctx, "account registered",
		"account_id", account.ID.String(),
		"role", string(account.Role),
		"trust_score", result.Score,
		"trust_status", string(result.Status),
	)
	return account, result, nil
}

// Login verifies the credentials for the stated role and returns a session
// token. A role mismatch reads as invalid credentials so the response does
// not leak which roles an email holds; a pending account with valid
// credentials is told it awaits approval instead.
func (s *Service) Login(ctx context.Context, email, password string, role domain.Role) (string, *models.Account, error) {
	if err := s.throttle.check(email); err != nil {
		s.logger.WarnContext(ctx, "login throttled", "email", email)
		return "", nil, err
	}

	account, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.throttle.recordFailure(email)
			return "", nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up account")
	}
	if account.Role != role {
		s.throttle.recordFailure(email)
		return "", nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		s.throttle.recordFailure(email)
		return "", nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	s.throttle.clear(email)

	switch account.Status {
	case models.AccountActive:
	case models.AccountPending:
		return "", nil, dErrors.New(dErrors.CodeUnauthorized, "account pending admin approval")
	default:
		return "", nil, dErrors.New(dErrors.CodeUnauthorized, "account is not active")
	}

	token, err := s.tokens.Issue(account.ID, account.Role)
	if err != nil {
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session token")
	}
	return token, account, nil
}

func (s *Service) GetByID(ctx context.Context, id domain.AccountID) (*models.Account, error) {
	account, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up account")
	}
	return account, nil
}

// Adjudicate records an admin decision on a pending account. The decision
// is appended to the account's findings so the screening history stays
// complete.
func (s *Service) Adjudicate(ctx context.Context, adminID, accountID domain.AccountID, approve bool, note string) (*models.Account, error) {
	account, err := s.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Status != models.AccountPending {
		return nil, dErrors.Newf(dErrors.CodeConflict, "account is already %s", account.Status)
	}

	now := s.clock.Now()
	reason := "admin_review: approved"
	if !approve {
		reason = "admin_review: rejected"
	}
	if note != "" {
		reason += " - " + note
	}
	account.Findings = append(account.Findings, trust.Finding{Reason: reason, Timestamp: now})

	if approve {
		account.Status = models.AccountActive
		account.TrustStatus = models.TrustManualApproved
	} else {
		account.Status = models.AccountSuspended
		account.TrustStatus = models.TrustRejected
	}
	account.VerifiedAt = &now
	account.VerifiedBy = &adminID

	if err := s.store.Update(ctx, account); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update account")
	}

	s.logger.InfoContext(ctx, "account adjudicated",
		"account_id", accountID.String(),
		"admin_id", adminID.String(),
		"approved", approve,
	)
	return account, nil
}

// SubmitDocument records identity evidence for a donor awaiting approval.
func (s *Service) SubmitDocument(ctx context.Context, accountID domain.AccountID, kind, fileName string) (*models.SupportingDocument, error) {
	if strings.TrimSpace(kind) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "document kind is required")
	}
	account, err := s.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Role != domain.RoleDonor {
		return nil, dErrors.New(dErrors.CodeValidation, "only donors submit supporting documents")
	}
	if account.Status == models.AccountActive {
		return nil, dErrors.New(dErrors.CodeConflict, "account is already active")
	}

	doc := &models.SupportingDocument{
		ID:         domain.NewDocumentID(),
		AccountID:  accountID,
		Kind:       kind,
		FileName:   fileName,
		Status:     models.DocumentPending,
		UploadedAt: s.clock.Now(),
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store document")
	}
	return doc, nil
}

// ReviewDocument approves or rejects a pending document. Approval activates
// the submitting account.
func (s *Service) ReviewDocument(ctx context.Context, adminID domain.AccountID, docID domain.DocumentID, approve bool, note string) (*models.SupportingDocument, error) {
	doc, err := s.store.GetDocument(ctx, docID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up document")
	}
	if doc.Status != models.DocumentPending {
		return nil, dErrors.Newf(dErrors.CodeConflict, "document is already %s", doc.Status)
	}

	now := s.clock.Now()
	doc.Note = note
	doc.ReviewedAt = &now
	doc.ReviewedBy = &adminID
	if approve {
		doc.Status = models.DocumentApproved
	} else {
		doc.Status = models.DocumentRejected
	}
	if err := s.store.UpdateDocument(ctx, doc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update document")
	}

	if approve {
		account, err := s.GetByID(ctx, doc.AccountID)
		if err != nil {
			return nil, err
		}
		if account.Status == models.AccountPending {
			account.Status = models.AccountActive
			account.TrustStatus = models.TrustManualApproved
			account.Findings = append(account.Findings, trust.Finding{
				Reason:    "admin_review: supporting document approved",
				Timestamp: now,
			})
			account.VerifiedAt = &now
			account.VerifiedBy = &adminID
			if err := s.store.Update(ctx, account); err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to activate account")
			}
		}
	}
	return doc, nil
}

// PendingVerifications lists accounts awaiting review, riskiest first.
func (s *Service) PendingVerifications(ctx context.Context) ([]*models.Account, error) {
	accounts, err := s.store.ListPendingVerification(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending accounts")
	}
	return accounts, nil
}

// AutoApproved lists accounts whose screening cleared the threshold.
func (s *Service) AutoApproved(ctx context.Context) ([]*models.Account, error) {
	accounts, err := s.store.ListByTrustStatus(ctx, models.TrustAutoApproved)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list auto-approved accounts")
	}
	return accounts, nil
}

// ActiveByRole lists active accounts holding the role. Request fan-out and
// the alert pipeline address their audiences through this.
func (s *Service) ActiveByRole(ctx context.Context, role domain.Role) ([]*models.Account, error) {
	if !role.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid role: %s", role)
	}
	accounts, err := s.store.ListActiveByRole(ctx, role)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list accounts by role")
	}
	return accounts, nil
}

// ScreeningStats summarizes screening outcomes across all registrations.
// AutomationRate is the share of registrations the scorer cleared without a
// manual decision.
type ScreeningStats struct {
	Total          int
	AutoApproved   int
	Flagged        int
	ManualReviews  int
	Rejected       int
	AverageScore   float64
	AutomationRate float64
}

func (s *Service) Screening(ctx context.Context) (ScreeningStats, error) {
	counts, err := s.store.CountByTrustStatus(ctx)
	if err != nil {
		return ScreeningStats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count screening outcomes")
	}
	stats := ScreeningStats{
		AutoApproved:  counts[models.TrustAutoApproved],
		Flagged:       counts[models.TrustFlagged],
		ManualReviews: counts[models.TrustManualApproved],
		Rejected:      counts[models.TrustRejected],
	}
	for _, n := range counts {
		stats.Total += n
	}
	if stats.AverageScore, err = s.store.AverageTrustScore(ctx); err != nil {
		return ScreeningStats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to average trust scores")
	}
	if stats.Total > 0 {
		stats.AutomationRate = float64(stats.AutoApproved) / float64(stats.Total)
	}
	return stats, nil
}

// PendingDocuments lists documents awaiting review, oldest first.
func (s *Service) PendingDocuments(ctx context.Context) ([]*models.SupportingDocument, error) {
	docs, err := s.store.ListPendingDocuments(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending documents")
	}
	return docs, nil
}

// EnsureAdmin seeds the bootstrap admin account idempotently.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.store.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check admin account")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash admin password")
	}
	now := s.clock.Now()
	admin := &models.Account{
		ID:           domain.NewAccountID(),
		Handle:       "admin",
		Email:        strings.ToLower(email),
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		Status:       models.AccountActive,
		TrustStatus:  models.TrustManualApproved,
		TrustScore:   100,
		VerifiedAt:   &now,
		CreatedAt:    now,
	}
	if err := s.store.Create(ctx, admin); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed admin account")
	}
	s.logger.InfoContext(ctx, "admin account seeded", "email", admin.Email)
	return nil
}
