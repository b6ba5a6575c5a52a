// Package domain provides type-safe identifiers so an entity ID can never be
// passed where a user or consent ID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "trustid/pkg/domain-errors"
)

type (
	UserID       uuid.UUID
	SessionID    uuid.UUID
	EntityID     uuid.UUID
	ConsentID    uuid.UUID
	AlertID      uuid.UUID
	AccessLogID  uuid.UUID
	OrgRequestID uuid.UUID
)

// Parse functions are used at trust boundaries (handlers, token claims).

func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "user ID")
	return UserID(id), err
}

func ParseSessionID(s string) (SessionID, error) {
	id, err := parseUUID(s, "session ID")
	return SessionID(id), err
}

func ParseEntityID(s string) (EntityID, error) {
	id, err := parseUUID(s, "entity ID")
	return EntityID(id), err
}

func ParseConsentID(s string) (ConsentID, error) {
	id, err := parseUUID(s, "consent ID")
	return ConsentID(id), err
}

func ParseAlertID(s string) (AlertID, error) {
	id, err := parseUUID(s, "alert ID")
	return AlertID(id), err
}

func ParseOrgRequestID(s string) (OrgRequestID, error) {
	id, err := parseUUID(s, "organization request ID")
	return OrgRequestID(id), err
}

// New* helpers mint random identifiers.

func NewUserID() UserID             { return UserID(uuid.New()) }
func NewSessionID() SessionID       { return SessionID(uuid.New()) }
func NewEntityID() EntityID         { return EntityID(uuid.New()) }
func NewConsentID() ConsentID       { return ConsentID(uuid.New()) }
func NewAlertID() AlertID           { return AlertID(uuid.New()) }
func NewAccessLogID() AccessLogID   { return AccessLogID(uuid.New()) }
func NewOrgRequestID() OrgRequestID { return OrgRequestID(uuid.New()) }

func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id SessionID) String() string    { return uuid.UUID(id).String() }
func (id EntityID) String() string     { return uuid.UUID(id).String() }
func (id ConsentID) String() string    { return uuid.UUID(id).String() }
func (id AlertID) String() string      { return uuid.UUID(id).String() }
func (id AccessLogID) String() string  { return uuid.UUID(id).String() }
func (id OrgRequestID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id EntityID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ConsentID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id AlertID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id AccessLogID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id OrgRequestID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// JSON encoding renders IDs as their canonical UUID string.

func (id UserID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id EntityID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id ConsentID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id AlertID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id SessionID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id AccessLogID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id OrgRequestID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *EntityID) UnmarshalText(b []byte) error {
	parsed, err := ParseEntityID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// parseUUID allows the nil UUID through; services reject it with IsNil so
// lookups of unknown records still surface as not found.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid "+label+" format")
	}
	return id, nil
}
