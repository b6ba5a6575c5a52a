package handler

import (
	"time"

	"trustid/internal/auth/models"
)

type RegisterResponse struct {
	UserID   string `json:"user_id"`
	EntityID string `json:"entity_id"`
}

type UserResponse struct {
	ID        string      `json:"id"`
	Kind      models.Kind `json:"kind"`
	Phone     *string     `json:"phone,omitempty"`
	Email     *string     `json:"email,omitempty"`
	ServiceID *string     `json:"service_id,omitempty"`
}

type TokenResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresAt   time.Time     `json:"expires_at"`
	SessionID   string        `json:"session_id"`
	User        *UserResponse `json:"user"`
}

// LoginResponse carries a token, or OTPSent when the caller must verify a
// code next.
type LoginResponse struct {
	OTPSent bool           `json:"otp_sent"`
	Token   *TokenResponse `json:"token,omitempty"`
}

type ExistsResponse struct {
	Exists bool `json:"exists"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type SessionResponse struct {
	ID         string    `json:"id"`
	Device     string    `json:"device"`
	IP         string    `json:"ip"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Current    bool      `json:"current"`
}

type SessionsResponse struct {
	Sessions []*SessionResponse `json:"sessions"`
}

type TerminateAllResponse struct {
	Terminated int `json:"terminated"`
}

func toTokenResponse(t *models.Token) *TokenResponse {
	return &TokenResponse{
		AccessToken: t.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   t.ExpiresAt,
		SessionID:   t.SessionID.String(),
		User: &UserResponse{
			ID:        t.User.ID.String(),
			Kind:      t.User.Kind,
			Phone:     t.User.Phone,
			Email:     t.User.Email,
			ServiceID: t.User.ServiceID,
		},
	}
}

func toSessionsResponse(views []models.SessionView) *SessionsResponse {
	out := make([]*SessionResponse, 0, len(views))
	for _, v := range views {
		out = append(out, &SessionResponse{
			ID:         v.Session.ID.String(),
			Device:     v.Session.Device,
			IP:         v.Session.IP,
			CreatedAt:  v.Session.CreatedAt,
			LastSeenAt: v.Session.LastSeenAt,
			ExpiresAt:  v.Session.ExpiresAt,
			Current:    v.Current,
		})
	}
	return &SessionsResponse{Sessions: out}
}
