package models

import (
	"slices"
	"time"

	id "trustid/pkg/domain"
)

// StatusSuccess is the only outcome recorded today.
const StatusSuccess = "Success"

const (
	PurposeConsentGranted = "Consent Granted"
	accessPurposePrefix   = "Accessed data for: "
)

// Entry records one disclosure of a subject's data. Entries are immutable.
type Entry struct {
	ID         id.AccessLogID
	SubjectID  id.EntityID
	ConsentID  *id.ConsentID
	Service    string
	Purpose    string
	Attributes []string
	Status     string
	Timestamp  time.Time
}

func newEntry(subject id.EntityID, consentID id.ConsentID, service, purpose string, attrs []string, now time.Time) *Entry {
	cid := consentID
	return &Entry{
		ID:         id.NewAccessLogID(),
		SubjectID:  subject,
		ConsentID:  &cid,
		Service:    service,
		Purpose:    purpose,
		Attributes: slices.Clone(attrs),
		Status:     StatusSuccess,
		Timestamp:  now,
	}
}

// NewGrantEntry records the approval itself with the approved attribute snapshot.
func NewGrantEntry(subject id.EntityID, consentID id.ConsentID, service string, approved []string, now time.Time) *Entry {
	return newEntry(subject, consentID, service, PurposeConsentGranted, approved, now)
}

// NewAccessEntry records a requester viewing data under a consent.
func NewAccessEntry(subject id.EntityID, consentID id.ConsentID, service, consentPurpose string, attrs []string, now time.Time) *Entry {
	return newEntry(subject, consentID, service, accessPurposePrefix+consentPurpose, attrs, now)
}

func (e *Entry) Clone() *Entry {
	cp := *e
	cp.Attributes = slices.Clone(e.Attributes)
	if e.ConsentID != nil {
		cid := *e.ConsentID
		cp.ConsentID = &cid
	}
	return &cp
}
