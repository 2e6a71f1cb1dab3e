package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bloodlink/internal/inventory/service"
	"bloodlink/internal/platform/middleware"
	"bloodlink/internal/transport/http/shared"
	"bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

// Handler exposes the bank inventory ledger and the public stock lookups.
type Handler struct {
	ledger *service.Ledger
	logger *slog.Logger
	tokens middleware.TokenValidator
}

func New(ledger *service.Ledger, tokens middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{ledger: ledger, logger: logger, tokens: tokens}
}

// Register mounts bank-only ledger routes and the authenticated stock
// lookups hospitals use before requesting.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.tokens, h.logger))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(domain.RoleBank)))
			r.Post("/inventory/units", h.handleAddUnits)
			r.Post("/inventory/consume", h.handleConsume)
			r.Get("/inventory/summary", h.handleSummary)
			r.Get("/inventory/details", h.handleDetails)
			r.Get("/inventory/distribution", h.handleDistribution)
		})

		r.Get("/stock/{group}", h.handleStockAvailability)
		r.Get("/stock-distribution", h.handleGlobalDistribution)
	})
}

func bankID(r *http.Request) (domain.AccountID, error) {
	id, err := domain.ParseAccountID(middleware.GetAccountID(r.Context()))
	if err != nil {
		return domain.AccountID{}, dErrors.New(dErrors.CodeInternal, "authentication context error")
	}
	return id, nil
}

type addUnitsRequest struct {
	BloodGroup string    `json:"blood_group"`
	Units      int       `json:"units"`
	ExpiryDate time.Time `json:"expiry_date"`
}

func (h *Handler) handleAddUnits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := bankID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req addUnitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	lots, err := h.ledger.AddUnits(ctx, id, domain.BloodGroup(req.BloodGroup), req.Units, req.ExpiryDate)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	bagIDs := make([]string, 0, len(lots))
	for _, lot := range lots {
		bagIDs = append(bagIDs, lot.BagID())
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]any{
		"units_added": len(lots),
		"bag_ids":     bagIDs,
	})
}

type consumeRequest struct {
	BloodGroup string `json:"blood_group"`
	Units      int    `json:"units"`
}

func (h *Handler) handleConsume(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := bankID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req consumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.ledger.RemoveUnits(ctx, id, domain.BloodGroup(req.BloodGroup), req.Units); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int{"units_removed": req.Units})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	id, err := bankID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	summary, err := h.ledger.Summarize(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int{
		"total_units":   summary.TotalUnits,
		"added_today":   summary.AddedToday,
		"expiring_soon": summary.ExpiringSoon,
	})
}

func (h *Handler) handleDetails(w http.ResponseWriter, r *http.Request) {
	id, err := bankID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	details, err := h.ledger.Details(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	type lotView struct {
		BagID      string    `json:"bag_id"`
		BloodGroup string    `json:"blood_group"`
		Units      int       `json:"units"`
		ExpiryDate time.Time `json:"expiry_date"`
		Status     string    `json:"status"`
	}
	out := make([]lotView, 0, len(details))
	for _, d := range details {
		out = append(out, lotView{
			BagID:      d.BagID,
			BloodGroup: d.BloodGroup.String(),
			Units:      d.Units,
			ExpiryDate: d.ExpiryDate,
			Status:     string(d.Status),
		})
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleDistribution(w http.ResponseWriter, r *http.Request) {
	id, err := bankID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	h.writeDistribution(w, r, id)
}

func (h *Handler) handleGlobalDistribution(w http.ResponseWriter, r *http.Request) {
	h.writeDistribution(w, r, domain.AccountID{})
}

func (h *Handler) writeDistribution(w http.ResponseWriter, r *http.Request, id domain.AccountID) {
	dist, err := h.ledger.Distribution(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make(map[string]int, len(dist))
	for group, units := range dist {
		out[group.String()] = units
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleStockAvailability(w http.ResponseWriter, r *http.Request) {
	group := domain.BloodGroup(chi.URLParam(r, "group"))
	stocks, err := h.ledger.StockAvailability(r.Context(), group)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	type stockView struct {
		BankID string `json:"bank_id"`
		Units  int    `json:"units"`
	}
	out := make([]stockView, 0, len(stocks))
	total := 0
	for _, s := range stocks {
		out = append(out, stockView{BankID: s.BankID.String(), Units: s.Units})
		total += s.Units
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"blood_group": group.String(),
		"total_units": total,
		"banks":       out,
	})
}
