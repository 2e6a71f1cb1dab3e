package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bloodlink/internal/campaign/models"
	"bloodlink/internal/campaign/service"
	"bloodlink/internal/platform/middleware"
	"bloodlink/internal/transport/http/shared"
	"bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

// Handler exposes donation drive management for banks and the public
// upcoming list for everyone authenticated.
type Handler struct {
	campaigns *service.Service
	logger    *slog.Logger
	tokens    middleware.TokenValidator
}

func New(campaigns *service.Service, tokens middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{campaigns: campaigns, logger: logger, tokens: tokens}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.tokens, h.logger))

		r.Get("/campaigns", h.handleListUpcoming)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(domain.RoleBank)))
			r.Post("/campaigns", h.handleCreate)
			r.Get("/campaigns/mine", h.handleListMine)
			r.Patch("/campaigns/{campaignID}", h.handleUpdate)
			r.Post("/campaigns/{campaignID}/cancel", h.handleCancel)
		})
	})
}

func organizerID(r *http.Request) (domain.AccountID, error) {
	id, err := domain.ParseAccountID(middleware.GetAccountID(r.Context()))
	if err != nil {
		return domain.AccountID{}, dErrors.New(dErrors.CodeInternal, "authentication context error")
	}
	return id, nil
}

type campaignView struct {
	CampaignID   string    `json:"campaign_id"`
	OrganizerID  string    `json:"organizer_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Location     string    `json:"location,omitempty"`
	ScheduledFor time.Time `json:"scheduled_for"`
	TargetGroups []string  `json:"target_groups"`
	Status       string    `json:"status"`
}

func toView(c *models.Campaign) campaignView {
	groups := make([]string, 0, len(c.TargetGroups))
	for _, g := range c.TargetGroups {
		groups = append(groups, g.String())
	}
	return campaignView{
		CampaignID:   c.ID.String(),
		OrganizerID:  c.OrganizerID.String(),
		Title:        c.Title,
		Description:  c.Description,
		Location:     c.Location,
		ScheduledFor: c.ScheduledFor,
		TargetGroups: groups,
		Status:       string(c.Status),
	}
}

func toViews(campaigns []*models.Campaign) []campaignView {
	out := make([]campaignView, 0, len(campaigns))
	for _, c := range campaigns {
		out = append(out, toView(c))
	}
	return out
}

type createRequest struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Location     string    `json:"location"`
	ScheduledFor time.Time `json:"scheduled_for"`
	TargetGroups []string  `json:"target_groups"`
}

func parseGroups(raw []string) []domain.BloodGroup {
	groups := make([]domain.BloodGroup, 0, len(raw))
	for _, g := range raw {
		groups = append(groups, domain.BloodGroup(g))
	}
	return groups
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	id, err := organizerID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	campaign, err := h.campaigns.Create(r.Context(), id, service.CreateInput{
		Title:        req.Title,
		Description:  req.Description,
		Location:     req.Location,
		ScheduledFor: req.ScheduledFor,
		TargetGroups: parseGroups(req.TargetGroups),
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toView(campaign))
}

type updateRequest struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	Location     *string    `json:"location"`
	ScheduledFor *time.Time `json:"scheduled_for"`
	TargetGroups []string   `json:"target_groups"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := organizerID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	campaignID, err := domain.ParseCampaignID(chi.URLParam(r, "campaignID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	in := service.UpdateInput{
		Title:        req.Title,
		Description:  req.Description,
		Location:     req.Location,
		ScheduledFor: req.ScheduledFor,
	}
	if req.TargetGroups != nil {
		in.TargetGroups = parseGroups(req.TargetGroups)
	}
	campaign, err := h.campaigns.Update(r.Context(), id, campaignID, in)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toView(campaign))
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := organizerID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	campaignID, err := domain.ParseCampaignID(chi.URLParam(r, "campaignID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	campaign, err := h.campaigns.Cancel(r.Context(), id, campaignID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toView(campaign))
}

func (h *Handler) handleListUpcoming(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.campaigns.ListUpcoming(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toViews(campaigns))
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	id, err := organizerID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	campaigns, err := h.campaigns.ListByOrganizer(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toViews(campaigns))
}
