package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bloodlink/internal/appointment/models"
	"bloodlink/internal/appointment/service"
	"bloodlink/internal/platform/middleware"
	"bloodlink/internal/transport/http/shared"
	"bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

// Handler exposes donor slot booking and the bank's donation history.
type Handler struct {
	appointments *service.Service
	logger       *slog.Logger
	tokens       middleware.TokenValidator
}

func New(appointments *service.Service, tokens middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{appointments: appointments, logger: logger, tokens: tokens}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.tokens, h.logger))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(domain.RoleDonor)))
			r.Post("/appointments", h.handleBook)
			r.Get("/appointments", h.handleListMine)
			r.Post("/appointments/{appointmentID}/cancel", h.handleCancel)
			r.Get("/donor/stats", h.handleDonorStats)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(domain.RoleBank)))
			r.Get("/campaigns/{campaignID}/slots", h.handleCampaignSlots)
			r.Post("/appointments/{appointmentID}/complete", h.handleComplete)
			r.Get("/donations", h.handleDonations)
			r.Get("/donations/today", h.handleDonationsToday)
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

type bookRequest struct {
	CampaignID string `json:"campaign_id,omitempty"`
	BankID     string `json:"bank_id,omitempty"`
	Date       string `json:"date"`
	TimeSlot   string `json:"time_slot"`
}

func (h *Handler) handleBook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	donorID, err := callerID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "date must be YYYY-MM-DD"))
		return
	}
	var in service.BookInput
	in.Date = date
	in.TimeSlot = req.TimeSlot
	if req.CampaignID != "" {
		campaignID, err := domain.ParseCampaignID(req.CampaignID)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		in.CampaignID = &campaignID
	}
	if req.BankID != "" {
		bankID, err := domain.ParseAccountID(req.BankID)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		in.BankID = &bankID
	}

	appointment, err := h.appointments.Book(ctx, donorID, in)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, appointmentView(appointment, "", ""))
}

type view struct {
	AppointmentID string    `json:"appointment_id"`
	CampaignID    string    `json:"campaign_id,omitempty"`
	BankID        string    `json:"bank_id,omitempty"`
	Title         string    `json:"title,omitempty"`
	Location      string    `json:"location,omitempty"`
	Date          string    `json:"date"`
	TimeSlot      string    `json:"time_slot"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

func appointmentView(appointment *models.Appointment, title, location string) view {
	v := view{
		AppointmentID: appointment.ID.String(),
		Title:         title,
		Location:      location,
		Date:          appointment.Date.Format("2006-01-02"),
		TimeSlot:      appointment.TimeSlot,
		Status:        string(appointment.Status),
		CreatedAt:     appointment.CreatedAt,
	}
	if appointment.CampaignID != nil {
		v.CampaignID = appointment.CampaignID.String()
	}
	if appointment.BankID != nil {
		v.BankID = appointment.BankID.String()
	}
	return v
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	donorID, err := callerID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	listed, err := h.appointments.ListForDonor(r.Context(), donorID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]view, 0, len(listed))
	for _, entry := range listed {
		out = append(out, appointmentView(entry.Appointment, entry.Title, entry.Location))
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	donorID, err := callerID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	appointmentID, err := domain.ParseAppointmentID(chi.URLParam(r, "appointmentID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	appointment, err := h.appointments.Cancel(r.Context(), donorID, appointmentID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, appointmentView(appointment, "", ""))
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	bankID, err := callerID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	appointmentID, err := domain.ParseAppointmentID(chi.URLParam(r, "appointmentID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	appointment, err := h.appointments.Complete(r.Context(), bankID, appointmentID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, appointmentView(appointment, "", ""))
}

func (h *Handler) handleDonorStats(w http.ResponseWriter, r *http.Request) {
	donorID, err := callerID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	stats, err := h.appointments.StatsForDonor(r.Context(), donorID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	resp := map[string]any{
		"donations":           stats.Donations,
		"lives_saved":         stats.LivesSaved,
		"days_until_eligible": stats.DaysUntilEligible,
	}
	if stats.NextEligible != nil {
		resp["next_eligible"] = stats.NextEligible.Format("2006-01-02")
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCampaignSlots(w http.ResponseWriter, r *http.Request) {
	organizerID, err := callerID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	campaignID, err := domain.ParseCampaignID(chi.URLParam(r, "campaignID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	slots, err := h.appointments.SlotsForCampaign(r.Context(), organizerID, campaignID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	type slotView struct {
		AppointmentID string `json:"appointment_id"`
		Donor         string `json:"donor"`
		TimeSlot      string `json:"time_slot"`
		Status        string `json:"status"`
	}
	out := make([]slotView, 0, len(slots))
	for _, slot := range slots {
		out = append(out, slotView{
			AppointmentID: slot.ID.String(),
			Donor:         slot.DonorHandle,
			TimeSlot:      slot.TimeSlot,
			Status:        string(slot.Status),
		})
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

type donationView struct {
	AppointmentID string `json:"appointment_id"`
	Donor         string `json:"donor"`
	BloodGroup    string `json:"blood_group"`
	Date          string `json:"date"`
}

func donationViews(donations []service.Donation) []donationView {
	out := make([]donationView, 0, len(donations))
	for _, donation := range donations {
		out = append(out, donationView{
			AppointmentID: donation.ID.String(),
			Donor:         donation.DonorHandle,
			BloodGroup:    donation.BloodGroup.String(),
			Date:          donation.Date.Format("2006-01-02"),
		})
	}
	return out
}

func (h *Handler) handleDonations(w http.ResponseWriter, r *http.Request) {
	bankID, err := callerID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	donations, err := h.appointments.DonationsForBank(r.Context(), bankID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, donationViews(donations))
}

func (h *Handler) handleDonationsToday(w http.ResponseWriter, r *http.Request) {
	bankID, err := callerID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	donations, err := h.appointments.DonationsToday(r.Context(), bankID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, donationViews(donations))
}
