package models

import (
	"slices"
	"strings"
	"time"

	id "trustid/pkg/domain"
	dErrors "trustid/pkg/domain-errors"
	platformstrings "trustid/pkg/platform/strings"
	"trustid/pkg/validation"
)

const (
	// DefaultDurationDays applies when an approval does not name a duration.
	DefaultDurationDays = 90
	MaxDurationDays     = validation.MaxDurationDays
)

// Consent is one requester's time-boxed permission to view a subset of one
// subject entity's attributes.
//
// Invariants:
//   - pending: GrantedOn and ExpiresOn are nil, Attributes equals RequestedAttributes
//   - active: GrantedOn and ExpiresOn are set and ExpiresOn > GrantedOn
//   - Attributes is always a subset of RequestedAttributes
//   - rejected and revoked are terminal
type Consent struct {
	ID                  id.ConsentID
	SubjectID           id.EntityID
	RequesterID         id.EntityID
	RequesterName       string
	Purpose             string
	RequestedAttributes []string
	Attributes          []string
	Status              Status
	GrantedOn           *time.Time
	ExpiresOn           *time.Time
	DurationDays        int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewRequest builds a pending consent. Attribute names are trimmed and
// de-duplicated preserving first occurrence.
func NewRequest(consentID id.ConsentID, subject, requester id.EntityID, requesterName, purpose string, attrs []string, now time.Time) (*Consent, error) {
	if consentID.IsNil() || subject.IsNil() || requester.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "consent, subject and requester IDs required")
	}
	if subject == requester {
		return nil, dErrors.New(dErrors.CodeValidation, "an entity cannot request consent from itself")
	}
	requested := platformstrings.DedupeAndTrim(attrs)
	if len(requested) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "requested attributes must not be empty")
	}
	purpose = strings.TrimSpace(purpose)
	if purpose == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "purpose is required")
	}
	return &Consent{
		ID:                  consentID,
		SubjectID:           subject,
		RequesterID:         requester,
		RequesterName:       strings.TrimSpace(requesterName),
		Purpose:             purpose,
		RequestedAttributes: requested,
		Attributes:          slices.Clone(requested),
		Status:              StatusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// Approve moves a pending consent to active. A nil approved slice grants
// everything requested.
func (c *Consent) Approve(approved []string, durationDays int, now time.Time) error {
	if c.Status != StatusPending {
		return notPending(c.Status)
	}
	if durationDays <= 0 || durationDays > MaxDurationDays {
		return dErrors.New(dErrors.CodeValidation, "duration must be between 1 and 100000 days")
	}
	grant := slices.Clone(c.RequestedAttributes)
	if approved != nil {
		grant = platformstrings.DedupeAndTrim(approved)
	}
	if len(grant) == 0 {
		return dErrors.New(dErrors.CodeValidation, "approved attributes must not be empty")
	}
	if extra := platformstrings.Missing(grant, c.RequestedAttributes); len(extra) > 0 {
		return dErrors.New(dErrors.CodeValidation, "attributes were not requested: "+strings.Join(extra, ", "))
	}

	granted := now
	expires := now.Add(time.Duration(durationDays) * 24 * time.Hour)
	c.Attributes = grant
	c.Status = StatusActive
	c.GrantedOn = &granted
	c.ExpiresOn = &expires
	c.DurationDays = durationDays
	c.UpdatedAt = now
	return nil
}

func (c *Consent) Reject(now time.Time) error {
	if c.Status != StatusPending {
		return notPending(c.Status)
	}
	c.Status = StatusRejected
	c.UpdatedAt = now
	return nil
}

// Revoke ends an effectively active consent.
func (c *Consent) Revoke(now time.Time) error {
	if !IsEffectivelyActive(c, now) {
		status := c.EffectiveStatus(now)
		if status.IsTerminal() {
			return dErrors.New(dErrors.CodeInvalidState, "consent is already "+string(status))
		}
		return dErrors.New(dErrors.CodeInvalidState, "consent is "+string(status)+", not active")
	}
	c.Status = StatusRevoked
	c.UpdatedAt = now
	return nil
}

// Retire closes a consent whose subject or requester is being removed:
// pending becomes rejected and active becomes revoked. It reports whether the
// consent changed.
func (c *Consent) Retire(now time.Time) bool {
	switch c.Status {
	case StatusPending:
		c.Status = StatusRejected
	case StatusActive:
		c.Status = StatusRevoked
	default:
		return false
	}
	c.UpdatedAt = now
	return true
}

// IsEffectivelyActive reports whether c is active and not past its expiry.
// The expiry instant itself still counts as active.
func IsEffectivelyActive(c *Consent, now time.Time) bool {
	return c != nil && c.Status == StatusActive && c.ExpiresOn != nil && !now.After(*c.ExpiresOn)
}

// EffectiveStatus is the stored status, except that active consents past
// their expiry report StatusExpired.
func (c *Consent) EffectiveStatus(now time.Time) Status {
	if c.Status == StatusActive && !IsEffectivelyActive(c, now) {
		return StatusExpired
	}
	return c.Status
}

func (c *Consent) Clone() *Consent {
	if c == nil {
		return nil
	}
	cp := *c
	cp.RequestedAttributes = slices.Clone(c.RequestedAttributes)
	cp.Attributes = slices.Clone(c.Attributes)
	if c.GrantedOn != nil {
		t := *c.GrantedOn
		cp.GrantedOn = &t
	}
	if c.ExpiresOn != nil {
		t := *c.ExpiresOn
		cp.ExpiresOn = &t
	}
	return &cp
}

func notPending(status Status) error {
	if status.IsTerminal() {
		return dErrors.New(dErrors.CodeInvalidState, "consent is already "+string(status))
	}
	return dErrors.New(dErrors.CodeInvalidState, "consent is "+string(status)+", not pending")
}
