package models

import (
	"time"

	id "trustid/pkg/domain"
)

// Kind is the account type. It decides how the account signs in and how
// long its tokens live.
type Kind string

const (
	KindCitizen      Kind = "citizen"
	KindOrganization Kind = "organization"
	KindGovernment   Kind = "government"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindCitizen, KindOrganization, KindGovernment:
		return true
	}
	return false
}

// User is a login account. Exactly one of Phone, Email or ServiceID is set,
// matching Kind.
type User struct {
	ID           id.UserID
	Kind         Kind
	Phone        *string
	Email        *string
	ServiceID    *string
	PasswordHash string
	CreatedAt    time.Time
}

// OwnerKey is the phone number or e-mail that identifies the account to other
// users when they look up its entities.
func (u *User) OwnerKey() string {
	switch {
	case u.Phone != nil:
		return *u.Phone
	case u.Email != nil:
		return *u.Email
	case u.ServiceID != nil:
		return *u.ServiceID
	}
	return ""
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Phone = cloneString(u.Phone)
	c.Email = cloneString(u.Email)
	c.ServiceID = cloneString(u.ServiceID)
	return &c
}

// Session backs every issued bearer token. Deleting it invalidates the token.
type Session struct {
	ID         id.SessionID
	UserID     id.UserID
	Device     string
	IP         string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	LastSeenAt time.Time
}

func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// OTPPurpose scopes a one-time code so a code sent for a password reset
// cannot be used to sign in.
type OTPPurpose string

const (
	OTPLogin         OTPPurpose = "login"
	OTPPasswordReset OTPPurpose = "password_reset"
)

// MaxOTPAttempts is how many wrong guesses burn a code.
const MaxOTPAttempts = 5

// OTP is a pending six digit code sent to a phone number.
type OTP struct {
	Phone     string
	Purpose   OTPPurpose
	Code      string
	Attempts  int
	ExpiresAt time.Time
}

// SessionView is a session as listed to its owner.
type SessionView struct {
	Session *Session
	Current bool
}

// Token is a signed bearer token and the session it is bound to.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
	SessionID   id.SessionID
	User        *User
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
