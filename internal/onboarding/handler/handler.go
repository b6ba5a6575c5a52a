package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"trustid/internal/onboarding/models"
	"trustid/internal/onboarding/service"
	id "trustid/pkg/domain"
	"trustid/pkg/platform/httputil"
	pkgstring "trustid/pkg/string"
)

type Service interface {
	Submit(ctx context.Context, in models.SubmitInput) (*models.Request, error)
	ListPending(ctx context.Context, actor id.UserID) ([]*models.Request, error)
	Approve(ctx context.Context, actor id.UserID, reqID id.OrgRequestID) (*service.Approval, error)
	Reject(ctx context.Context, actor id.UserID, reqID id.OrgRequestID) (*models.Request, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the application form.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/org-request", h.HandleSubmit)
}

// Register mounts the government review queue.
func (h *Handler) Register(r chi.Router) {
	r.Get("/auth/govt/org-requests", h.HandleListPending)
	r.Post("/auth/govt/org-requests/{id}/approve", h.HandleApprove)
	r.Post("/auth/govt/org-requests/{id}/reject", h.HandleReject)
}

type SubmitRequest struct {
	Name               string `json:"name" validate:"required,notblank,max=200"`
	Email              string `json:"email" validate:"required,email,max=255"`
	RegistrationNumber string `json:"registration_number" validate:"required,notblank,max=64"`
	Jurisdiction       string `json:"jurisdiction,omitempty" validate:"max=100"`
	Address            string `json:"address,omitempty" validate:"max=500"`
}

func (r *SubmitRequest) Normalize() {
	pkgstring.TrimStrings(&r.Name, &r.RegistrationNumber, &r.Jurisdiction, &r.Address)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

type RequestResponse struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	Email              string        `json:"email"`
	RegistrationNumber string        `json:"registration_number"`
	Jurisdiction       string        `json:"jurisdiction,omitempty"`
	Address            string        `json:"address,omitempty"`
	Status             models.Status `json:"status"`
	CreatedAt          time.Time     `json:"created_at"`
	DecidedAt          *time.Time    `json:"decided_at,omitempty"`
}

type ListResponse struct {
	Requests []RequestResponse `json:"requests"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ApprovalResponse struct {
	Request     RequestResponse `json:"request"`
	UserID      string          `json:"user_id"`
	EntityID    string          `json:"entity_id"`
	Credentials Credentials     `json:"credentials"`
}

func toResponse(r *models.Request) RequestResponse {
	return RequestResponse{
		ID:                 r.ID.String(),
		Name:               r.Name,
		Email:              r.Email,
		RegistrationNumber: r.RegistrationNumber,
		Jurisdiction:       r.Jurisdiction,
		Address:            r.Address,
		Status:             r.Status,
		CreatedAt:          r.CreatedAt,
		DecidedAt:          r.DecidedAt,
	}
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	submitted, err := h.service.Submit(ctx, models.SubmitInput{
		Name:               req.Name,
		Email:              req.Email,
		RegistrationNumber: req.RegistrationNumber,
		Jurisdiction:       req.Jurisdiction,
		Address:            req.Address,
	})
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to submit organization request", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(submitted))
}

func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := httputil.RequireUserID(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	reqs, err := h.service.ListPending(ctx, userID)
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to list organization requests", err)
		httputil.WriteError(w, err)
		return
	}
	resp := ListResponse{Requests: make([]RequestResponse, 0, len(reqs))}
	for _, req := range reqs {
		resp.Requests = append(resp.Requests, toResponse(req))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := httputil.RequireUserID(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	reqID, err := id.ParseOrgRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	approval, err := h.service.Approve(ctx, userID, reqID)
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to approve organization request", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ApprovalResponse{
		Request:  toResponse(approval.Request),
		UserID:   approval.UserID.String(),
		EntityID: approval.EntityID.String(),
		Credentials: Credentials{
			Email:    approval.Email,
			Password: approval.Password,
		},
	})
}

func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := httputil.RequireUserID(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	reqID, err := id.ParseOrgRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rejected, err := h.service.Reject(ctx, userID, reqID)
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to reject organization request", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(rejected))
}
