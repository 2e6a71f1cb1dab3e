package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bloodlink/internal/account/models"
	"bloodlink/internal/account/service"
	"bloodlink/internal/platform/middleware"
	"bloodlink/internal/transport/http/shared"
	"bloodlink/internal/trust"
	"bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

// Handler exposes registration, login, and the authenticated profile.
type Handler struct {
	accounts *service.Service
	logger   *slog.Logger
	tokens   middleware.TokenValidator
}

func New(accounts *service.Service, tokens middleware.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{accounts: accounts, tokens: tokens, logger: logger}
}

// Register mounts public auth routes and the authenticated /me subtree.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.tokens, h.logger))
		r.Get("/me", h.handleMe)
		r.Post("/me/documents", h.handleSubmitDocument)
	})
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`

	BloodGroup     string `json:"blood_group,omitempty"`
	ContactPerson  string `json:"contact_person,omitempty"`
	Address        string `json:"address,omitempty"`
	City           string `json:"city,omitempty"`
	State          string `json:"state,omitempty"`
	LicenseID      string `json:"license_id,omitempty"`
	RegistrationID string `json:"registration_id,omitempty"`
	OperatingHours string `json:"operating_hours,omitempty"`
	Capacity       string `json:"capacity,omitempty"`
	HospitalType   string `json:"hospital_type,omitempty"`
}

type screeningResponse struct {
	Status   string          `json:"status"`
	Score    int             `json:"score"`
	Findings []trust.Finding `json:"findings"`
}

type registerResponse struct {
	AccountID     string            `json:"account_id"`
	AccountStatus string            `json:"account_status"`
	Screening     screeningResponse `json:"screening"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	account, result, err := h.accounts.Register(ctx, service.RegisterInput{
		Handle:         req.Username,
		Email:          req.Email,
		Phone:          req.Phone,
		Password:       req.Password,
		Role:           domain.Role(req.Role),
		BloodGroup:     req.BloodGroup,
		ContactPerson:  req.ContactPerson,
		Address:        req.Address,
		City:           req.City,
		State:          req.State,
		LicenseID:      req.LicenseID,
		RegistrationID: req.RegistrationID,
		OperatingHours: req.OperatingHours,
		Capacity:       req.Capacity,
		HospitalType:   req.HospitalType,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "registration failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	findings := result.Findings
	if findings == nil {
		findings = []trust.Finding{}
	}
	shared.WriteJSON(w, http.StatusCreated, registerResponse{
		AccountID:     account.ID.String(),
		AccountStatus: string(account.Status),
		Screening: screeningResponse{
			Status:   string(result.Status),
			Score:    result.Score,
			Findings: findings,
		},
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Role     string `json:"role"`
	Username string `json:"username"`
	Redirect string `json:"redirect"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	token, account, err := h.accounts.Login(ctx, req.Email, req.Password, domain.Role(req.Role))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, loginResponse{
		Token:    token,
		Role:     string(account.Role),
		Username: account.Handle,
		Redirect: dashboardFor(account.Role),
	})
}

// dashboardFor maps a role to its post-login landing path.
func dashboardFor(role domain.Role) string {
	return "/" + string(role) + "/dashboard"
}

type profileResponse struct {
	AccountID   string         `json:"account_id"`
	Username    string         `json:"username"`
	Email       string         `json:"email"`
	Role        string         `json:"role"`
	Status      string         `json:"status"`
	TrustStatus string         `json:"trust_status"`
	TrustScore  int            `json:"trust_score"`
	Profile     models.Profile `json:"profile"`
	CreatedAt   time.Time      `json:"created_at"`
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, err := domain.ParseAccountID(middleware.GetAccountID(ctx))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	account, err := h.accounts.GetByID(ctx, accountID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, profileResponse{
		AccountID:   account.ID.String(),
		Username:    account.Handle,
		Email:       account.Email,
		Role:        string(account.Role),
		Status:      string(account.Status),
		TrustStatus: string(account.TrustStatus),
		TrustScore:  account.TrustScore,
		Profile:     account.Profile,
		CreatedAt:   account.CreatedAt,
	})
}

type submitDocumentRequest struct {
	Kind     string `json:"kind"`
	FileName string `json:"file_name"`
}

func (h *Handler) handleSubmitDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, err := domain.ParseAccountID(middleware.GetAccountID(ctx))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req submitDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	doc, err := h.accounts.SubmitDocument(ctx, accountID, req.Kind, req.FileName)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]string{
		"document_id": doc.ID.String(),
		"status":      string(doc.Status),
	})
}
