package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"trustid/internal/accesslog/models"
	id "trustid/pkg/domain"
	"trustid/pkg/platform/httputil"
)

type Service interface {
	ListForOwner(ctx context.Context, actor id.UserID, subjectID id.EntityID) ([]*models.Entry, error)
	EraseForSubject(ctx context.Context, subjectID id.EntityID) (int64, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/entities/{id}/access-logs", h.HandleList)
}

// RegisterAdmin mounts the compliance erasure route; r must carry admin auth.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Delete("/admin/entities/{id}/access-logs", h.HandleErase)
}

type EntryResponse struct {
	ID         string    `json:"id"`
	ConsentID  *string   `json:"consent_id,omitempty"`
	Service    string    `json:"service"`
	Purpose    string    `json:"purpose"`
	Attributes []string  `json:"attributes"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

type ListResponse struct {
	Entries []EntryResponse `json:"entries"`
}

type EraseResponse struct {
	Erased int64 `json:"erased"`
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
	entries, err := h.service.ListForOwner(ctx, userID, subjectID)
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to list access logs", err)
		httputil.WriteError(w, err)
		return
	}

	resp := ListResponse{Entries: make([]EntryResponse, 0, len(entries))}
	for _, e := range entries {
		item := EntryResponse{
			ID:         e.ID.String(),
			Service:    e.Service,
			Purpose:    e.Purpose,
			Attributes: e.Attributes,
			Status:     e.Status,
			Timestamp:  e.Timestamp,
		}
		if e.ConsentID != nil {
			cid := e.ConsentID.String()
			item.ConsentID = &cid
		}
		resp.Entries = append(resp.Entries, item)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleErase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, err := id.ParseEntityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	n, err := h.service.EraseForSubject(ctx, subjectID)
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to erase access logs", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, EraseResponse{Erased: n})
}
