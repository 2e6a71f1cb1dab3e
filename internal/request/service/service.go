package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	accountmodels "bloodlink/internal/account/models"
	campaignmodels "bloodlink/internal/campaign/models"
	notifmodels "bloodlink/internal/notification/models"
	"bloodlink/internal/platform/metrics"
	"bloodlink/internal/request/models"
	"bloodlink/internal/request/store"
	"bloodlink/pkg/clock"
	"bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/sentinel"
)

// fanOutConcurrency caps how many banks the emergency broadcast touches at
// once.
const fanOutConcurrency = 8

// Directory resolves accounts for routing and fan-out audiences.
type Directory interface {
	GetByID(ctx context.Context, id domain.AccountID) (*accountmodels.Account, error)
	ActiveByRole(ctx context.Context, role domain.Role) ([]*accountmodels.Account, error)
}

// Ledger consumes inventory when a bank approves a request.
type Ledger interface {
	RemoveUnits(ctx context.Context, bankID domain.AccountID, group domain.BloodGroup, count int) error
}

// Notifier delivers deduplicated notifications.
type Notifier interface {
	Notify(ctx context.Context, accountID domain.AccountID, typ notifmodels.Type, subject, message string) (bool, error)
}

// CampaignDrafter schedules next-day drives during emergencies.
type CampaignDrafter interface {
	CreateEmergencyDraft(ctx context.Context, organizerID domain.AccountID, group domain.BloodGroup, hospitalName, location string) (*campaignmodels.Campaign, error)
}

// Service routes hospital blood requests to banks. Emergency submissions
// additionally broadcast to every active bank and seed draft campaigns;
// the broadcast is best-effort and never fails the submission.
type Service struct {
	store     store.Store
	directory Directory
	ledger    Ledger
	notifier  Notifier
	campaigns CampaignDrafter
	clock     clock.Clock
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(st store.Store, directory Directory, ledger Ledger, notifier Notifier, campaigns CampaignDrafter, clk clock.Clock, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("request store is required")
	}
	if directory == nil {
		return nil, fmt.Errorf("account directory is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if campaigns == nil {
		return nil, fmt.Errorf("campaign drafter is required")
	}
	if clk == nil {
		return nil, fmt.Errorf("clock is required")
	}
	s := &Service{
		store:     st,
		directory: directory,
		ledger:    ledger,
		notifier:  notifier,
		campaigns: campaigns,
		clock:     clk,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SubmitInput is a hospital's request form. A nil BankID leaves the request
// unrouted, open for any bank to pick up.
type SubmitInput struct {
	BankID      *domain.AccountID
	PatientName string
	PatientRef  string
	BloodGroup  domain.BloodGroup
	Units       int
	Priority    models.Priority
	Reason      string
}

// Submit validates and records a request. Emergency priority triggers the
// broadcast after the request is durable.
func (s *Service) Submit(ctx context.Context, hospitalID domain.AccountID, in SubmitInput) (*models.Request, error) {
	if in.PatientRef == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "patient reference is required")
	}
	if !in.BloodGroup.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid blood group: %s", in.BloodGroup)
	}
	if in.Units <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "unit count must be positive")
	}
	if !in.Priority.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid priority: %s", in.Priority)
	}

	hospital, err := s.directory.GetByID(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	if hospital.Role != domain.RoleHospital {
		return nil, dErrors.New(dErrors.CodeValidation, "only hospitals submit blood requests")
	}
	if in.BankID != nil {
		bank, err := s.directory.GetByID(ctx, *in.BankID)
		if err != nil {
			return nil, err
		}
		if bank.Role != domain.RoleBank {
			return nil, dErrors.New(dErrors.CodeValidation, "requests must be addressed to a blood bank")
		}
	}

	request := &models.Request{
		ID:          domain.NewRequestID(),
		HospitalID:  hospitalID,
		BankID:      in.BankID,
		PatientName: in.PatientName,
		PatientRef:  in.PatientRef,
		BloodGroup:  in.BloodGroup,
		Units:       in.Units,
		Priority:    in.Priority,
		Status:      models.StatusPending,
		Reason:      in.Reason,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.store.Create(ctx, request); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create request")
	}

	if s.metrics != nil {
		s.metrics.RequestsSubmitted.WithLabelValues(string(in.Priority)).Inc()
	}
	s.logger.InfoContext(ctx, "blood request submitted",
		"request_id", request.ID.String(),
		"hospital_id", hospitalID.String(),
		"blood_group", in.BloodGroup.String(),
		"units", in.Units,
		"priority", string(in.Priority),
	)

	if in.Priority == models.PriorityEmergency {
		s.broadcastEmergency(ctx, request, hospital.Handle)
	}
	return request, nil
}

// broadcastEmergency notifies every active bank and seeds a next-day draft
// campaign per bank. Individual failures are logged and skipped; the
// request itself already succeeded.
func (s *Service) broadcastEmergency(ctx context.Context, request *models.Request, hospitalName string) {
	banks, err := s.directory.ActiveByRole(ctx, domain.RoleBank)
	if err != nil {
		s.logger.ErrorContext(ctx, "emergency broadcast: listing banks failed", "error", err)
		return
	}

	subject := "emergency:" + request.ID.String()
	message := fmt.Sprintf("EMERGENCY: %s needs %d units of %s immediately.",
		hospitalName, request.Units, request.BloodGroup)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutConcurrency)
	for _, bank := range banks {
		g.Go(func() error {
			if _, err := s.notifier.Notify(gctx, bank.ID, notifmodels.TypeEmergency, subject, message); err != nil {
				s.logger.WarnContext(gctx, "emergency broadcast: notify failed",
					"bank_id", bank.ID.String(), "error", err)
			}
			if _, err := s.campaigns.CreateEmergencyDraft(gctx, bank.ID, request.BloodGroup, hospitalName, bank.Profile.Address); err != nil {
				s.logger.WarnContext(gctx, "emergency broadcast: draft campaign failed",
					"bank_id", bank.ID.String(), "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	s.logger.InfoContext(ctx, "emergency broadcast complete",
		"request_id", request.ID.String(),
		"banks", len(banks),
	)
}

// Decide records the bank's approval or rejection. Approval consumes the
// requested units from the deciding bank's ledger first; if stock is
// insufficient the request stays pending. Approving an unrouted request
// claims it for the deciding bank.
func (s *Service) Decide(ctx context.Context, bankID domain.AccountID, requestID domain.RequestID, approve bool, note string) (*models.Request, error) {
	request, err := s.get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.BankID != nil && *request.BankID != bankID {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "request is addressed to another bank")
	}
	if request.Status != models.StatusPending {
		return nil, dErrors.Newf(dErrors.CodeConflict, "request is already %s", request.Status)
	}

	if approve {
		if err := s.ledger.RemoveUnits(ctx, bankID, request.BloodGroup, request.Units); err != nil {
			return nil, err
		}
		request.Status = models.StatusApproved
		request.BankID = &bankID
	} else {
		request.Status = models.StatusRejected
	}

	now := s.clock.Now()
	request.DecisionNote = note
	request.DecidedAt = &now
	request.DecidedBy = &bankID
	if err := s.store.Update(ctx, request); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update request")
	}

	s.notifyDecision(ctx, request)
	return request, nil
}

func (s *Service) notifyDecision(ctx context.Context, request *models.Request) {
	subject := "decision:" + request.ID.String()
	var (
		typ     notifmodels.Type
		message string
	)
	if request.Status == models.StatusApproved {
		typ = notifmodels.TypeSuccess
		message = fmt.Sprintf("Your request for %d units of %s was approved.", request.Units, request.BloodGroup)
	} else {
		typ = notifmodels.TypeWarning
		message = fmt.Sprintf("Your request for %d units of %s was rejected.", request.Units, request.BloodGroup)
		if request.DecisionNote != "" {
			message += " Reason: " + request.DecisionNote
		}
	}
	if _, err := s.notifier.Notify(ctx, request.HospitalID, typ, subject, message); err != nil {
		s.logger.WarnContext(ctx, "decision notification failed",
			"request_id", request.ID.String(), "error", err)
	}
}

// Complete lets the hospital confirm fulfilment of an approved request.
func (s *Service) Complete(ctx context.Context, hospitalID domain.AccountID, requestID domain.RequestID) (*models.Request, error) {
	request, err := s.get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.HospitalID != hospitalID {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "request belongs to another hospital")
	}
	if request.Status != models.StatusApproved {
		return nil, dErrors.Newf(dErrors.CodeConflict, "request is %s", request.Status)
	}

	request.Status = models.StatusCompleted
	if err := s.store.Update(ctx, request); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update request")
	}
	return request, nil
}

// ListForHospital returns the hospital's requests, newest first. A non-empty
// status narrows the listing.
func (s *Service) ListForHospital(ctx context.Context, hospitalID domain.AccountID, status models.Status) ([]*models.Request, error) {
	if status != "" && !status.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid status: %s", status)
	}
	requests, err := s.store.ListByHospital(ctx, hospitalID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list requests")
	}
	if status == "" {
		return requests, nil
	}
	filtered := make([]*models.Request, 0, len(requests))
	for _, request := range requests {
		if request.Status == status {
			filtered = append(filtered, request)
		}
	}
	return filtered, nil
}

// PendingForBank returns the bank's undecided queue, oldest first, unrouted
// requests included.
func (s *Service) PendingForBank(ctx context.Context, bankID domain.AccountID) ([]*models.Request, error) {
	requests, err := s.store.ListPendingForBank(ctx, bankID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending requests")
	}
	return requests, nil
}

// UrgentForBank narrows the bank's pending queue to urgent and emergency
// priorities.
func (s *Service) UrgentForBank(ctx context.Context, bankID domain.AccountID) ([]*models.Request, error) {
	requests, err := s.store.ListUrgentForBank(ctx, bankID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list urgent requests")
	}
	return requests, nil
}

// PendingAll returns every undecided request for the admin overview.
func (s *Service) PendingAll(ctx context.Context) ([]*models.Request, error) {
	requests, err := s.store.ListPending(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending requests")
	}
	return requests, nil
}

// HospitalStats summarizes a hospital's request history.
func (s *Service) HospitalStats(ctx context.Context, hospitalID domain.AccountID) (models.Stats, error) {
	requests, err := s.store.ListByHospital(ctx, hospitalID)
	if err != nil {
		return models.Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list requests")
	}

	now := s.clock.Now()
	var stats models.Stats
	for _, request := range requests {
		stats.Total++
		switch request.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusApproved, models.StatusCompleted:
			stats.Approved++
		case models.StatusRejected:
			stats.Rejected++
		}
		if request.DecidedAt == nil {
			continue
		}
		decided := *request.DecidedAt
		fulfilled := request.Status == models.StatusApproved || request.Status == models.StatusCompleted
		if fulfilled && decided.Year() == now.Year() && decided.Month() == now.Month() {
			stats.FulfilledThisMonth++
			stats.UnitsThisMonth += request.Units
		}
	}
	return stats, nil
}

func (s *Service) get(ctx context.Context, id domain.RequestID) (*models.Request, error) {
	request, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up request")
	}
	return request, nil
}
