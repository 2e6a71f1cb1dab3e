package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	accountmodels "bloodlink/internal/account/models"
	accountservice "bloodlink/internal/account/service"
	"bloodlink/internal/alert"
	"bloodlink/internal/platform/middleware"
	"bloodlink/internal/transport/http/shared"
	"bloodlink/internal/trust"
	"bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

// Accounts is the slice of the account service the admin surface needs.
type Accounts interface {
	GetByID(ctx context.Context, id domain.AccountID) (*accountmodels.Account, error)
	Adjudicate(ctx context.Context, adminID, accountID domain.AccountID, approve bool, note string) (*accountmodels.Account, error)
	ReviewDocument(ctx context.Context, adminID domain.AccountID, docID domain.DocumentID, approve bool, note string) (*accountmodels.SupportingDocument, error)
	PendingVerifications(ctx context.Context) ([]*accountmodels.Account, error)
	AutoApproved(ctx context.Context) ([]*accountmodels.Account, error)
	PendingDocuments(ctx context.Context) ([]*accountmodels.SupportingDocument, error)
	Screening(ctx context.Context) (accountservice.ScreeningStats, error)
}

// Ledger supplies the global stock views on the admin dashboard.
type Ledger interface {
	Distribution(ctx context.Context, bankID domain.AccountID) (map[domain.BloodGroup]int, error)
	ShortageGroups(ctx context.Context) ([]domain.BloodGroup, error)
}

// Forecast supplies the demand prediction shown alongside stock.
type Forecast interface {
	NextWeekDemand(ctx context.Context) (map[domain.BloodGroup]int, error)
}

// Handler exposes the admin verification queue, screening stats, and the
// alert pipeline triggers.
type Handler struct {
	accounts Accounts
	ledger   Ledger
	forecast Forecast
	engine   *alert.Engine
	logger   *slog.Logger
	tokens   middleware.TokenValidator
}

func New(accounts Accounts, ledger Ledger, forecast Forecast, engine *alert.Engine, tokens middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		accounts: accounts,
		ledger:   ledger,
		forecast: forecast,
		engine:   engine,
		logger:   logger,
		tokens:   tokens,
	}
}

// Register mounts the admin subtree. Every route requires the admin role.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.tokens, h.logger))
		r.Use(middleware.RequireRole(string(domain.RoleAdmin)))

		r.Get("/admin/verifications", h.handlePendingVerifications)
		r.Post("/admin/verifications/{accountID}", h.handleAdjudicate)
		r.Get("/admin/auto-approved", h.handleAutoApproved)
		r.Get("/admin/screening-stats", h.handleScreeningStats)
		r.Get("/admin/documents", h.handlePendingDocuments)
		r.Post("/admin/documents/{documentID}", h.handleReviewDocument)
		r.Get("/admin/overview", h.handleOverview)
		r.Post("/admin/alerts/run", h.handleRunAlerts)
		r.Post("/admin/alerts/expiry-sweep", h.handleExpirySweep)
		r.Get("/admin/forecast", h.handleForecast)
	})
}

type verificationView struct {
	AccountID   string          `json:"account_id"`
	Username    string          `json:"username"`
	Email       string          `json:"email"`
	Role        string          `json:"role"`
	TrustScore  int             `json:"trust_score"`
	TrustStatus string          `json:"trust_status"`
	Findings    []trust.Finding `json:"findings"`
	CreatedAt   time.Time       `json:"created_at"`
}

func accountViews(accounts []*accountmodels.Account) []verificationView {
	out := make([]verificationView, 0, len(accounts))
	for _, a := range accounts {
		findings := a.Findings
		if findings == nil {
			findings = []trust.Finding{}
		}
		out = append(out, verificationView{
			AccountID:   a.ID.String(),
			Username:    a.Handle,
			Email:       a.Email,
			Role:        string(a.Role),
			TrustScore:  a.TrustScore,
			TrustStatus: string(a.TrustStatus),
			Findings:    findings,
			CreatedAt:   a.CreatedAt,
		})
	}
	return out
}

func (h *Handler) handlePendingVerifications(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.PendingVerifications(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, accountViews(accounts))
}

func (h *Handler) handleAutoApproved(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.AutoApproved(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, accountViews(accounts))
}

type decisionRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

func (h *Handler) handleAdjudicate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	adminID, err := domain.ParseAccountID(middleware.GetAccountID(ctx))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	accountID, err := domain.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	account, err := h.accounts.Adjudicate(ctx, adminID, accountID, req.Approve, req.Note)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{
		"account_id":     account.ID.String(),
		"account_status": string(account.Status),
		"trust_status":   string(account.TrustStatus),
	})
}

func (h *Handler) handleScreeningStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.accounts.Screening(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int{
		"total":            stats.Total,
		"auto_approved":    stats.AutoApproved,
		"flagged":          stats.Flagged,
		"manually_cleared": stats.ManualReviews,
		"rejected":         stats.Rejected,
	})
}

func (h *Handler) handlePendingDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.accounts.PendingDocuments(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	type docView struct {
		DocumentID string    `json:"document_id"`
		AccountID  string    `json:"account_id"`
		Kind       string    `json:"kind"`
		FileName   string    `json:"file_name"`
		UploadedAt time.Time `json:"uploaded_at"`
	}
	out := make([]docView, 0, len(docs))
	for _, d := range docs {
		out = append(out, docView{
			DocumentID: d.ID.String(),
			AccountID:  d.AccountID.String(),
			Kind:       d.Kind,
			FileName:   d.FileName,
			UploadedAt: d.UploadedAt,
		})
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleReviewDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	adminID, err := domain.ParseAccountID(middleware.GetAccountID(ctx))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	docID, err := domain.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	doc, err := h.accounts.ReviewDocument(ctx, adminID, docID, req.Approve, req.Note)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{
		"document_id": doc.ID.String(),
		"status":      string(doc.Status),
	})
}

// handleOverview reports global stock against predicted demand.
func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	distribution, err := h.ledger.Distribution(ctx, domain.AccountID{})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shortages, err := h.ledger.ShortageGroups(ctx)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	predicted, err := h.forecast.NextWeekDemand(ctx)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	type groupView struct {
		Stock     int `json:"stock"`
		Predicted int `json:"predicted_weekly_demand"`
	}
	groups := make(map[string]groupView, len(distribution))
	for group, stock := range distribution {
		groups[group.String()] = groupView{Stock: stock, Predicted: predicted[group]}
	}
	shortageNames := make([]string, 0, len(shortages))
	for _, g := range shortages {
		shortageNames = append(shortageNames, g.String())
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"groups":    groups,
		"shortages": shortageNames,
	})
}

func (h *Handler) handleRunAlerts(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.Run(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	type shortageView struct {
		BloodGroup string `json:"blood_group"`
		Stock      int    `json:"stock"`
		Predicted  int    `json:"predicted"`
		Shortage   int    `json:"shortage"`
	}
	shortages := make([]shortageView, 0, len(report.Shortages))
	for _, s := range report.Shortages {
		shortages = append(shortages, shortageView{
			BloodGroup: s.Group.String(),
			Stock:      s.Stock,
			Predicted:  s.Predicted,
			Shortage:   s.Shortage,
		})
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"shortages":          shortages,
		"aggregate_shortage": report.AggregateShortage,
		"alerts_created":     report.Created,
	})
}

func (h *Handler) handleExpirySweep(w http.ResponseWriter, r *http.Request) {
	created, err := h.engine.ExpirySweep(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int{"warnings_created": created})
}

func (h *Handler) handleForecast(w http.ResponseWriter, r *http.Request) {
	predicted, err := h.forecast.NextWeekDemand(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make(map[string]int, len(predicted))
	for group, demand := range predicted {
		out[group.String()] = demand
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"next_week_demand": out})
}
