package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"trustid/internal/alert/models"
	id "trustid/pkg/domain"
	"trustid/pkg/platform/httputil"
)

type Service interface {
	Acknowledge(ctx context.Context, actor id.UserID, alertID id.AlertID) (*models.Alert, error)
	Dismiss(ctx context.Context, actor id.UserID, alertID id.AlertID) error
	ListForSubject(ctx context.Context, actor id.UserID, subjectID id.EntityID) ([]*models.Alert, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/entities/{id}/alerts", h.HandleList)
	r.Post("/alerts/{id}/acknowledge", h.HandleAcknowledge)
	r.Post("/alerts/{id}/dismiss", h.HandleDismiss)
}

type AlertResponse struct {
	ID           string          `json:"id"`
	SubjectID    string          `json:"subject_id"`
	Severity     models.Severity `json:"severity"`
	Title        string          `json:"title"`
	Message      string          `json:"message"`
	Acknowledged bool            `json:"acknowledged"`
	CreatedAt    time.Time       `json:"created_at"`
}

type ListResponse struct {
	Alerts []AlertResponse `json:"alerts"`
}

func toResponse(a *models.Alert) AlertResponse {
	return AlertResponse{
		ID:           a.ID.String(),
		SubjectID:    a.SubjectID.String(),
		Severity:     a.Severity,
		Title:        a.Title,
		Message:      a.Message,
		Acknowledged: a.Acknowledged,
		CreatedAt:    a.CreatedAt,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := httputil.RequireUserID(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	subjectID, err := id.ParseEntityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	alerts, err := h.service.ListForSubject(ctx, userID, subjectID)
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to list alerts", err)
		httputil.WriteError(w, err)
		return
	}
	resp := ListResponse{Alerts: make([]AlertResponse, 0, len(alerts))}
	for _, a := range alerts {
		resp.Alerts = append(resp.Alerts, toResponse(a))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleAcknowledge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := httputil.RequireUserID(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	alertID, err := id.ParseAlertID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	alert, err := h.service.Acknowledge(ctx, userID, alertID)
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to acknowledge alert", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(alert))
}

func (h *Handler) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := httputil.RequireUserID(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	alertID, err := id.ParseAlertID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Dismiss(ctx, userID, alertID); err != nil {
		httputil.LogError(ctx, h.logger, "failed to dismiss alert", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
