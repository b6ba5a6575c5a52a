// Package models holds organization onboarding requests. An organization
// asks to join, a government service account reviews the request, and
// approval opens an organization account with a verified entity.
package models

import (
	"net/mail"
	"strings"
	"time"

	id "trustid/pkg/domain"
	dErrors "trustid/pkg/domain-errors"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// Request is one organization's application. Email is unique across
// requests and becomes the account's sign-in address on approval.
type Request struct {
	ID                 id.OrgRequestID
	Name               string
	Email              string
	RegistrationNumber string
	Jurisdiction       string
	Address            string
	Status             Status
	CreatedAt          time.Time
	// DecidedBy and DecidedAt are zero while the request is pending.
	DecidedBy id.UserID
	DecidedAt *time.Time
}

// SubmitInput carries the fields an organization supplies.
type SubmitInput struct {
	Name               string
	Email              string
	RegistrationNumber string
	Jurisdiction       string
	Address            string
}

func NewRequest(in SubmitInput, now time.Time) (*Request, error) {
	r := &Request{
		ID:                 id.NewOrgRequestID(),
		Name:               strings.TrimSpace(in.Name),
		Email:              strings.ToLower(strings.TrimSpace(in.Email)),
		RegistrationNumber: strings.TrimSpace(in.RegistrationNumber),
		Jurisdiction:       strings.TrimSpace(in.Jurisdiction),
		Address:            strings.TrimSpace(in.Address),
		Status:             StatusPending,
		CreatedAt:          now,
	}
	if r.Name == "" || r.Email == "" || r.RegistrationNumber == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name, email and registration number are required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "email must be a valid address")
	}
	return r, nil
}

// Profile lists the entity attributes recorded when the request is approved.
func (r *Request) Profile() map[string]string {
	if r.Address == "" {
		return nil
	}
	return map[string]string{"address": r.Address}
}
