package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"trustid/internal/directory/models"
	"trustid/internal/directory/service"
	entitymodels "trustid/internal/entity/models"
	id "trustid/pkg/domain"
	"trustid/pkg/platform/httputil"
	pkgstring "trustid/pkg/string"
)

type Service interface {
	List(ctx context.Context) ([]service.Listing, error)
	Get(ctx context.Context, entityID id.EntityID) (*service.Listing, error)
	Upsert(ctx context.Context, actor id.UserID, entityID id.EntityID, profile models.Profile) (*service.Listing, error)
	Promote(ctx context.Context, entityID id.EntityID, description, contactEmail string) (*service.Listing, error)
	Demote(ctx context.Context, entityID id.EntityID) (*service.Listing, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the browsable directory.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/services", h.HandleList)
	r.Get("/services/{id}", h.HandleGet)
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/services", h.HandleUpsert)
}

// RegisterAdmin mounts government-service curation. Callers must wrap r
// with the admin token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/services/{id}/promote", h.HandlePromote)
	r.Post("/admin/services/{id}/demote", h.HandleDemote)
}

type UpsertRequest struct {
	EntityID     id.EntityID `json:"entity_id" validate:"required"`
	Name         string      `json:"name" validate:"required,notblank,max=200"`
	Description  string      `json:"description,omitempty" validate:"max=2000"`
	Category     string      `json:"category" validate:"required,notblank,max=50"`
	Website      string      `json:"website,omitempty" validate:"omitempty,url,max=500"`
	ContactEmail string      `json:"contact_email,omitempty" validate:"omitempty,email,max=255"`
}

func (r *UpsertRequest) Normalize() {
	pkgstring.TrimStrings(&r.Name, &r.Description, &r.Category, &r.Website, &r.ContactEmail)
}

func (r *UpsertRequest) profile() models.Profile {
	return models.Profile{
		Name:         r.Name,
		Description:  r.Description,
		Category:     r.Category,
		Website:      r.Website,
		ContactEmail: r.ContactEmail,
	}
}

type PromoteRequest struct {
	Description  string `json:"description,omitempty" validate:"max=2000"`
	ContactEmail string `json:"contact_email,omitempty" validate:"omitempty,email,max=255"`
}

func (r *PromoteRequest) Normalize() {
	pkgstring.TrimStrings(&r.Description, &r.ContactEmail)
}

type ProviderResponse struct {
	EntityID          string               `json:"entity_id"`
	EntityVariant     entitymodels.Variant `json:"entity_variant"`
	Name              string               `json:"name"`
	Description       string               `json:"description,omitempty"`
	Category          string               `json:"category"`
	Website           string               `json:"website,omitempty"`
	ContactEmail      string               `json:"contact_email,omitempty"`
	Verified          bool                 `json:"verified"`
	GovernmentService bool                 `json:"government_service"`
	Active            bool                 `json:"active"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

type ListResponse struct {
	Services []ProviderResponse `json:"services"`
}

func toResponse(l service.Listing) ProviderResponse {
	p := l.Provider
	return ProviderResponse{
		EntityID:          p.EntityID.String(),
		EntityVariant:     l.Entity.Variant,
		Name:              p.Name,
		Description:       p.Description,
		Category:          p.Category,
		Website:           p.Website,
		ContactEmail:      p.ContactEmail,
		Verified:          p.Verified,
		GovernmentService: p.GovernmentService,
		Active:            p.Active,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	listings, err := h.service.List(ctx)
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to list services", err)
		httputil.WriteError(w, err)
		return
	}
	resp := ListResponse{Services: make([]ProviderResponse, 0, len(listings))}
	for _, l := range listings {
		resp.Services = append(resp.Services, toResponse(l))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityID, err := id.ParseEntityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	listing, err := h.service.Get(ctx, entityID)
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to get service", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(*listing))
}

func (h *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := httputil.RequireUserID(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpsertRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	listing, err := h.service.Upsert(ctx, userID, req.EntityID, req.profile())
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to save service", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(*listing))
}

func (h *Handler) HandlePromote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityID, err := id.ParseEntityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[PromoteRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	listing, err := h.service.Promote(ctx, entityID, req.Description, req.ContactEmail)
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to promote service", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(*listing))
}

func (h *Handler) HandleDemote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityID, err := id.ParseEntityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	listing, err := h.service.Demote(ctx, entityID)
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to demote service", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(*listing))
}
