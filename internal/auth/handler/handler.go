package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"trustid/internal/auth/models"
	"trustid/internal/auth/service"
	id "trustid/pkg/domain"
	"trustid/pkg/platform/httputil"
	"trustid/pkg/requestcontext"
)

// Service defines the account and session operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, phone, password string) (*service.RegisterResult, error)
	RegisterGovernment(ctx context.Context, serviceID, serviceName, password string) (*service.RegisterResult, error)
	Login(ctx context.Context, phone, email, password string) (*service.LoginResult, error)
	LoginGovernment(ctx context.Context, serviceID, password string) (*models.Token, error)
	SendOTP(ctx context.Context, phone string, purpose models.OTPPurpose) error
	VerifyOTP(ctx context.Context, phone, code string) (*models.Token, error)
	ResetPassword(ctx context.Context, phone, code, newPassword string) error
	PhoneRegistered(ctx context.Context, phone string) (bool, error)
	EmailRegistered(ctx context.Context, email string) (bool, error)
	ChangePassword(ctx context.Context, userID id.UserID, current id.SessionID, oldPassword, newPassword string) error
	Logout(ctx context.Context, userID id.UserID, sessionID id.SessionID) error
	ListSessions(ctx context.Context, userID id.UserID, current id.SessionID) ([]models.SessionView, error)
	TerminateSession(ctx context.Context, userID id.UserID, sessionID id.SessionID) error
	TerminateOtherSessions(ctx context.Context, userID id.UserID, current id.SessionID) (int, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts sign-up and sign-in routes.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/register", h.HandleRegister)
	r.Post("/auth/register-gov", h.HandleRegisterGovernment)
	r.Post("/auth/login", h.HandleLogin)
	r.Post("/auth/login-gov", h.HandleLoginGovernment)
	r.Post("/auth/send-otp", h.HandleSendOTP)
	r.Post("/auth/verify-otp", h.HandleVerifyOTP)
	r.Post("/auth/reset-password", h.HandleResetPassword)
	r.Post("/auth/check-phone", h.HandleCheckPhone)
	r.Post("/auth/check-email", h.HandleCheckEmail)
}

// Register mounts routes that need an authenticated session.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/logout", h.HandleLogout)
	r.Put("/auth/password", h.HandleChangePassword)
	r.Get("/sessions", h.HandleListSessions)
	r.Post("/sessions/terminate-all", h.HandleTerminateAll)
	r.Post("/sessions/{id}/terminate", h.HandleTerminateSession)
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	res, err := h.service.Register(ctx, req.Phone, req.Password)
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to register", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, &RegisterResponse{UserID: res.UserID.String(), EntityID: res.EntityID.String()})
}

func (h *Handler) HandleRegisterGovernment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[RegisterGovernmentRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	res, err := h.service.RegisterGovernment(ctx, req.ServiceID, req.ServiceName, req.Password)
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to register government service", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, &RegisterResponse{UserID: res.UserID.String(), EntityID: res.EntityID.String()})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	res, err := h.service.Login(ctx, req.Phone, req.Email, req.Password)
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to log in", err)
		httputil.WriteError(w, err)
		return
	}
	out := &LoginResponse{OTPSent: res.OTPSent}
	if res.Token != nil {
		out.Token = toTokenResponse(res.Token)
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleLoginGovernment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[LoginGovernmentRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	token, err := h.service.LoginGovernment(ctx, req.ServiceID, req.Password)
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to log in government service", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &LoginResponse{Token: toTokenResponse(token)})
}

func (h *Handler) HandleSendOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[SendOTPRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	if err := h.service.SendOTP(ctx, req.Phone, models.OTPPurpose(req.Purpose)); err != nil {
		httputil.LogError(ctx, h.logger, "failed to send otp", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &MessageResponse{Message: "OTP sent successfully"})
}

func (h *Handler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[VerifyOTPRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	token, err := h.service.VerifyOTP(ctx, req.Phone, req.OTP)
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to verify otp", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &LoginResponse{Token: toTokenResponse(token)})
}

func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[ResetPasswordRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	if err := h.service.ResetPassword(ctx, req.Phone, req.OTP, req.NewPassword); err != nil {
		httputil.LogError(ctx, h.logger, "failed to reset password", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &MessageResponse{Message: "Password reset"})
}

func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := httputil.RequireUserID(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ChangePasswordRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	if err := h.service.ChangePassword(ctx, userID, requestcontext.SessionID(ctx), req.OldPassword, req.NewPassword); err != nil {
		httputil.LogError(ctx, h.logger, "failed to change password", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &MessageResponse{Message: "Password changed"})
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := httputil.RequireUserID(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.Logout(ctx, userID, requestcontext.SessionID(ctx)); err != nil {
		httputil.LogError(ctx, h.logger, "failed to log out", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := httputil.RequireUserID(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	views, err := h.service.ListSessions(ctx, userID, requestcontext.SessionID(ctx))
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to list sessions", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionsResponse(views))
}

func (h *Handler) HandleTerminateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := httputil.RequireUserID(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sessionID, err := id.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.TerminateSession(ctx, userID, sessionID); err != nil {
		httputil.LogError(ctx, h.logger, "failed to terminate session", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleTerminateAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := httputil.RequireUserID(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	removed, err := h.service.TerminateOtherSessions(ctx, userID, requestcontext.SessionID(ctx))
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to terminate sessions", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &TerminateAllResponse{Terminated: removed})
}

// HandleCheckPhone tells a sign-up form whether the phone already has an account.
func (h *Handler) HandleCheckPhone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CheckPhoneRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	exists, err := h.service.PhoneRegistered(ctx, req.Phone)
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to check phone", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &ExistsResponse{Exists: exists})
}

func (h *Handler) HandleCheckEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CheckEmailRequest](w, r, h.logger, ctx)
	if !ok {
		return
	}
	exists, err := h.service.EmailRegistered(ctx, req.Email)
	if err != nil {
		httputil.LogError(ctx, h.logger, "failed to check email", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &ExistsResponse{Exists: exists})
}
