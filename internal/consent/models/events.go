package models

import "time"

// Outbox event types for consent lifecycle changes.
const (
	EventConsentRequested = "consent_requested"
	EventConsentApproved  = "consent_approved"
	EventConsentRejected  = "consent_rejected"
	EventConsentRevoked   = "consent_revoked"
	EventConsentAccessed  = "consent_accessed"
)

// Event is the payload published for a consent transition. Attribute names
// are included; attribute values never are.
type Event struct {
	Type        string     `json:"type"`
	ConsentID   string     `json:"consent_id"`
	SubjectID   string     `json:"subject_id"`
	RequesterID string     `json:"requester_id"`
	Status      Status     `json:"status"`
	Attributes  []string   `json:"attributes"`
	ExpiresOn   *time.Time `json:"expires_on,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

func NewEvent(eventType string, c *Consent, now time.Time) Event {
	return Event{
		Type:        eventType,
		ConsentID:   c.ID.String(),
		SubjectID:   c.SubjectID.String(),
		RequesterID: c.RequesterID.String(),
		Status:      c.Status,
		Attributes:  c.Attributes,
		ExpiresOn:   c.ExpiresOn,
		OccurredAt:  now,
	}
}
