package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"trustid/internal/entity/models"
	id "trustid/pkg/domain"
	"trustid/pkg/platform/httputil"
)

// Service defines the entity operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, owner id.UserID, in models.CreateInput) (*models.Entity, error)
	Update(ctx context.Context, owner id.UserID, entityID id.EntityID, patch models.Patch) (*models.Entity, error)
	GetOwned(ctx context.Context, owner id.UserID, entityID id.EntityID) (*models.Entity, error)
	ListByOwner(ctx context.Context, owner id.UserID) ([]*models.Entity, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the entity routes. Callers wrap r with auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/entities", h.HandleList)
	r.Post("/entities", h.HandleCreate)
	r.Get("/entities/{id}", h.HandleGet)
	r.Put("/entities/{id}", h.HandleUpdate)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := httputil.RequireUserID(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}

	entity, err := h.service.Create(ctx, userID, req.ToInput())
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to create entity", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(entity))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := httputil.RequireUserID(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entities, err := h.service.ListByOwner(ctx, userID)
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to list entities", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toListResponse(entities))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := httputil.RequireUserID(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entityID, err := id.ParseEntityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entity, err := h.service.GetOwned(ctx, userID, entityID)
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to get entity", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(entity))
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := httputil.RequireUserID(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entityID, err := id.ParseEntityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}

	entity, err := h.service.Update(ctx, userID, entityID, req.ToPatch())
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to update entity", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(entity))
}
