package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	accesslogmodels "trustid/internal/accesslog/models"
	"trustid/internal/consent/models"
	"trustid/internal/consent/service"
	id "trustid/pkg/domain"
	"trustid/pkg/platform/httputil"
)

// Service defines the consent ledger operations exposed over HTTP.
type Service interface {
	Request(ctx context.Context, actor id.UserID, in service.RequestInput) (*models.Consent, error)
	Respond(ctx context.Context, actor id.UserID, consentID id.ConsentID, in service.RespondInput) (*models.Consent, error)
	Revoke(ctx context.Context, actor id.UserID, consentID id.ConsentID) (*models.Consent, error)
	LogAccess(ctx context.Context, actor id.UserID, consentID id.ConsentID) (*accesslogmodels.Entry, error)
	ListPending(ctx context.Context, actor id.UserID, subjectID id.EntityID) ([]*models.Consent, error)
	ListInbound(ctx context.Context, actor id.UserID, subjectID id.EntityID) ([]service.InboundConsent, error)
	ListOutbound(ctx context.Context, actor id.UserID, requesterID id.EntityID) ([]service.Disclosure, error)
	RetireEntity(ctx context.Context, entityID id.EntityID) (*service.RetireResult, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the user-facing consent routes behind auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/consents/request", h.HandleRequest)
	r.Post("/consents/{id}/respond", h.HandleRespond)
	r.Post("/consents/{id}/revoke", h.HandleRevoke)
	r.Post("/consents/{id}/access", h.HandleLogAccess)
	r.Get("/entities/{id}/consents/pending", h.HandleListPending)
	r.Get("/entities/{id}/consents/inbound", h.HandleListInbound)
	r.Get("/entities/{id}/consents/outbound", h.HandleListOutbound)
}

// RegisterAdmin mounts administrative routes. Callers must wrap r with the
// admin token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Delete("/admin/entities/{id}", h.HandleRetireEntity)
}

func (h *Handler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := httputil.RequireUserID(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[RequestConsentRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}

	consent, err := h.service.Request(ctx, userID, req.ToInput())
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to request consent", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toConsentResponse(consent, consent.Status))
}

func (h *Handler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, consentID, ok := h.consentParams(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RespondRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}

	consent, err := h.service.Respond(ctx, userID, consentID, req.ToInput())
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to respond to consent", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toConsentResponse(consent, consent.Status))
}

func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, consentID, ok := h.consentParams(w, r)
	if !ok {
		return
	}
	consent, err := h.service.Revoke(ctx, userID, consentID)
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to revoke consent", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toConsentResponse(consent, consent.Status))
}

func (h *Handler) HandleLogAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, consentID, ok := h.consentParams(w, r)
	if !ok {
		return
	}
	entry, err := h.service.LogAccess(ctx, userID, consentID)
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to log consent access", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toAccessResponse(entry))
}

func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, entityID, ok := h.entityParams(w, r)
	if !ok {
		return
	}
	consents, err := h.service.ListPending(ctx, userID, entityID)
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to list pending consents", err)
		httputil.WriteError(w, err)
		return
	}
	out := make([]*ConsentResponse, 0, len(consents))
	for _, c := range consents {
		out = append(out, toConsentResponse(c, c.Status))
	}
	httputil.WriteJSON(w, http.StatusOK, &ListResponse{Consents: out})
}

func (h *Handler) HandleListInbound(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, entityID, ok := h.entityParams(w, r)
	if !ok {
		return
	}
	consents, err := h.service.ListInbound(ctx, userID, entityID)
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to list inbound consents", err)
		httputil.WriteError(w, err)
		return
	}
	out := make([]*ConsentResponse, 0, len(consents))
	for _, c := range consents {
		out = append(out, toConsentResponse(c.Consent, c.Status))
	}
	httputil.WriteJSON(w, http.StatusOK, &ListResponse{Consents: out})
}

func (h *Handler) HandleListOutbound(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, entityID, ok := h.entityParams(w, r)
	if !ok {
		return
	}
	disclosures, err := h.service.ListOutbound(ctx, userID, entityID)
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to list outbound consents", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toOutboundResponse(disclosures))
}

func (h *Handler) HandleRetireEntity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityID, err := id.ParseEntityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.service.RetireEntity(ctx, entityID)
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to retire entity", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &RetireResponse{
		EntityID:         entityID.String(),
		ConsentsRejected: result.Rejected,
		ConsentsRevoked:  result.Revoked,
		AlertsDeleted:    result.AlertsDeleted,
	})
}

func (h *Handler) consentParams(w http.ResponseWriter, r *http.Request) (id.UserID, id.ConsentID, bool) {
	userID, err := httputil.RequireUserID(r.Context(), h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return id.UserID{}, id.ConsentID{}, false
	}
	consentID, err := id.ParseConsentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.UserID{}, id.ConsentID{}, false
	}
	return userID, consentID, true
}

func (h *Handler) entityParams(w http.ResponseWriter, r *http.Request) (id.UserID, id.EntityID, bool) {
	userID, err := httputil.RequireUserID(r.Context(), h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return id.UserID{}, id.EntityID{}, false
	}
	entityID, err := id.ParseEntityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.UserID{}, id.EntityID{}, false
	}
	return userID, entityID, true
}
