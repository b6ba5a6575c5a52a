package handler

import (
	"time"

	accesslogmodels "trustid/internal/accesslog/models"
	"trustid/internal/consent/models"
	"trustid/internal/consent/service"
	entitymodels "trustid/internal/entity/models"
)

type ConsentResponse struct {
	ID                  string        `json:"id"`
	SubjectID           string        `json:"subject_id"`
	RequesterID         string        `json:"requester_id"`
	RequesterName       string        `json:"requester_name"`
	Purpose             string        `json:"purpose"`
	RequestedAttributes []string      `json:"requested_attributes"`
	Attributes          []string      `json:"attributes"`
	Status              models.Status `json:"status"`
	GrantedOn           *time.Time    `json:"granted_on,omitempty"`
	ExpiresOn           *time.Time    `json:"expires_on,omitempty"`
	DurationDays        int           `json:"duration_days,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
}

type ListResponse struct {
	Consents []*ConsentResponse `json:"consents"`
}

// SharedDataResponse is one consent as seen by its requester.
type SharedDataResponse struct {
	Consent     *ConsentResponse        `json:"consent"`
	SubjectName string                  `json:"subject_name"`
	Data        entitymodels.Attributes `json:"data"`
}

type OutboundResponse struct {
	Shared []*SharedDataResponse `json:"shared"`
}

type AccessResponse struct {
	ID         string    `json:"id"`
	SubjectID  string    `json:"subject_id"`
	ConsentID  string    `json:"consent_id"`
	Service    string    `json:"service"`
	Purpose    string    `json:"purpose"`
	Attributes []string  `json:"attributes"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

type RetireResponse struct {
	EntityID         string `json:"entity_id"`
	ConsentsRejected int    `json:"consents_rejected"`
	ConsentsRevoked  int    `json:"consents_revoked"`
	AlertsDeleted    int64  `json:"alerts_deleted"`
}

func toConsentResponse(c *models.Consent, status models.Status) *ConsentResponse {
	return &ConsentResponse{
		ID:                  c.ID.String(),
		SubjectID:           c.SubjectID.String(),
		RequesterID:         c.RequesterID.String(),
		RequesterName:       c.RequesterName,
		Purpose:             c.Purpose,
		RequestedAttributes: c.RequestedAttributes,
		Attributes:          c.Attributes,
		Status:              status,
		GrantedOn:           c.GrantedOn,
		ExpiresOn:           c.ExpiresOn,
		DurationDays:        c.DurationDays,
		CreatedAt:           c.CreatedAt,
	}
}

func toOutboundResponse(disclosures []service.Disclosure) *OutboundResponse {
	out := make([]*SharedDataResponse, 0, len(disclosures))
	for _, d := range disclosures {
		out = append(out, &SharedDataResponse{
			Consent:     toConsentResponse(d.Consent, d.Consent.Status),
			SubjectName: d.SubjectName,
			Data:        d.Data,
		})
	}
	return &OutboundResponse{Shared: out}
}

func toAccessResponse(e *accesslogmodels.Entry) *AccessResponse {
	resp := &AccessResponse{
		ID:         e.ID.String(),
		SubjectID:  e.SubjectID.String(),
		Service:    e.Service,
		Purpose:    e.Purpose,
		Attributes: e.Attributes,
		Status:     e.Status,
		Timestamp:  e.Timestamp,
	}
	if e.ConsentID != nil {
		resp.ConsentID = e.ConsentID.String()
	}
	return resp
}
