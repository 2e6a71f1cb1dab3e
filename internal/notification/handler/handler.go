package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bloodlink/internal/notification/service"
	"bloodlink/internal/platform/middleware"
	"bloodlink/internal/transport/http/shared"
	"bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

// Handler exposes the authenticated notification feed.
type Handler struct {
	notifications *service.Service
	logger        *slog.Logger
	tokens        middleware.TokenValidator
}

func New(notifications *service.Service, tokens middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{notifications: notifications, logger: logger, tokens: tokens}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.tokens, h.logger))
		r.Get("/notifications", h.handleList)
		r.Post("/notifications/read", h.handleMarkAllRead)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, err := domain.ParseAccountID(middleware.GetAccountID(ctx))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	views, err := h.notifications.ListForAccount(ctx, accountID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	type notificationView struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Message string `json:"message"`
		Read    bool   `json:"read"`
		TimeAgo string `json:"time_ago"`
	}
	out := make([]notificationView, 0, len(views))
	for _, v := range views {
		out = append(out, notificationView{
			ID:      v.ID.String(),
			Type:    string(v.Type),
			Message: v.Message,
			Read:    v.Read,
			TimeAgo: v.TimeAgo,
		})
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, err := domain.ParseAccountID(middleware.GetAccountID(ctx))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	n, err := h.notifications.MarkAllRead(ctx, accountID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int{"marked_read": n})
}
