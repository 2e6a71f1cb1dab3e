package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bloodlink/internal/platform/middleware"
	"bloodlink/internal/request/models"
	"bloodlink/internal/request/service"
	"bloodlink/internal/transport/http/shared"
	"bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

// Handler exposes the hospital request flow and the bank decision queue.
type Handler struct {
	requests *service.Service
	logger   *slog.Logger
	tokens   middleware.TokenValidator
}

func New(requests *service.Service, tokens middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{requests: requests, logger: logger, tokens: tokens}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.tokens, h.logger))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(domain.RoleHospital)))
			r.Post("/requests", h.handleSubmit)
			r.Get("/requests", h.handleListMine)
			r.Get("/requests/stats", h.handleStats)
			r.Post("/requests/{requestID}/complete", h.handleComplete)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(domain.RoleBank)))
			r.Get("/requests/pending", h.handlePendingQueue)
			r.Get("/requests/urgent", h.handleUrgentQueue)
			r.Post("/requests/{requestID}/decision", h.handleDecide)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(domain.RoleAdmin)))
			r.Get("/admin/requests", h.handleAllPending)
		})
	})
}

func callerID(r *http.Request) (domain.AccountID, error) {
	id, err := domain.ParseAccountID(middleware.GetAccountID(r.Context()))
	if err != nil {
		return domain.AccountID{}, dErrors.New(dErrors.CodeInternal, "authentication context error")
	}
	return id, nil
}

type submitRequest struct {
	BankID      string `json:"bank_id,omitempty"`
	PatientName string `json:"patient_name,omitempty"`
	PatientRef  string `json:"patient_ref"`
	BloodGroup  string `json:"blood_group"`
	Units       int    `json:"units"`
	Priority    string `json:"priority"`
	Reason      string `json:"reason"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	hospitalID, err := callerID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	var targetBank *domain.AccountID
	if req.BankID != "" {
		bankID, err := domain.ParseAccountID(req.BankID)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		targetBank = &bankID
	}

	request, err := h.requests.Submit(ctx, hospitalID, service.SubmitInput{
		BankID:      targetBank,
		PatientName: req.PatientName,
		PatientRef:  req.PatientRef,
		BloodGroup:  domain.BloodGroup(req.BloodGroup),
		Units:       req.Units,
		Priority:    models.Priority(req.Priority),
		Reason:      req.Reason,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, requestView(request))
}

type view struct {
	RequestID   string     `json:"request_id"`
	BankID      string     `json:"bank_id,omitempty"`
	HospitalID  string     `json:"hospital_id"`
	PatientName string     `json:"patient_name,omitempty"`
	PatientRef  string     `json:"patient_ref"`
	BloodGroup  string     `json:"blood_group"`
	Units       int        `json:"units"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	Reason      string     `json:"reason,omitempty"`
	Note        string     `json:"decision_note,omitempty"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func requestView(request *models.Request) view {
	v := view{
		RequestID:   request.ID.String(),
		HospitalID:  request.HospitalID.String(),
		PatientName: request.PatientName,
		PatientRef:  request.PatientRef,
		BloodGroup:  request.BloodGroup.String(),
		Units:       request.Units,
		Priority:    string(request.Priority),
		Status:      string(request.Status),
		Reason:      request.Reason,
		Note:        request.DecisionNote,
		DecidedAt:   request.DecidedAt,
		CreatedAt:   request.CreatedAt,
	}
	if request.BankID != nil {
		v.BankID = request.BankID.String()
	}
	return v
}

func requestViews(requests []*models.Request) []view {
	out := make([]view, 0, len(requests))
	for _, request := range requests {
		out = append(out, requestView(request))
	}
	return out
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	hospitalID, err := callerID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	status := models.Status(r.URL.Query().Get("status"))
	requests, err := h.requests.ListForHospital(r.Context(), hospitalID, status)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, requestViews(requests))
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	hospitalID, err := callerID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	stats, err := h.requests.HospitalStats(r.Context(), hospitalID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int{
		"total":                stats.Total,
		"pending":              stats.Pending,
		"approved":             stats.Approved,
		"rejected":             stats.Rejected,
		"fulfilled_this_month": stats.FulfilledThisMonth,
		"units_this_month":     stats.UnitsThisMonth,
	})
}

func (h *Handler) handlePendingQueue(w http.ResponseWriter, r *http.Request) {
	bankID, err := callerID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	requests, err := h.requests.PendingForBank(r.Context(), bankID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, requestViews(requests))
}

func (h *Handler) handleUrgentQueue(w http.ResponseWriter, r *http.Request) {
	bankID, err := callerID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	requests, err := h.requests.UrgentForBank(r.Context(), bankID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, requestViews(requests))
}

func (h *Handler) handleAllPending(w http.ResponseWriter, r *http.Request) {
	requests, err := h.requests.PendingAll(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, requestViews(requests))
}

type decisionRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

func (h *Handler) handleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	bankID, err := callerID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	requestID, err := domain.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	request, err := h.requests.Decide(ctx, bankID, requestID, req.Approve, req.Note)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, requestView(request))
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	hospitalID, err := callerID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	requestID, err := domain.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	request, err := h.requests.Complete(r.Context(), hospitalID, requestID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, requestView(request))
}
