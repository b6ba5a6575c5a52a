// Package models describes the public directory of service providers: the
// organizations and government services that request consent.
package models

import (
	"strings"
	"time"

	id "trustid/pkg/domain"
	dErrors "trustid/pkg/domain-errors"
)

// CategoryGovernment is reserved for promoted government services.
const (
	CategoryGovernment = "GOVT"
	CategoryOther      = "OTHER"
)

// Provider is the directory listing of one entity.
type Provider struct {
	EntityID          id.EntityID
	Name              string
	Description       string
	Category          string
	Website           string
	ContactEmail      string
	Verified          bool
	GovernmentService bool
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Profile is the part of a listing the entity's owner maintains.
type Profile struct {
	Name         string
	Description  string
	Category     string
	Website      string
	ContactEmail string
}

// Normalize trims every field and upper-cases the category.
func (p *Profile) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	p.Category = strings.ToUpper(strings.TrimSpace(p.Category))
	p.Website = strings.TrimSpace(p.Website)
	p.ContactEmail = strings.ToLower(strings.TrimSpace(p.ContactEmail))
}

// Apply writes an owner's profile onto the listing. Only promotion may set
// the government category, and a promoted listing keeps it.
func (p *Provider) Apply(profile Profile, now time.Time) error {
	profile.Normalize()
	if profile.Name == "" || profile.Category == "" {
		return dErrors.New(dErrors.CodeValidation, "name and category are required")
	}
	if profile.Category == CategoryGovernment && !p.GovernmentService {
		return dErrors.New(dErrors.CodeForbidden, "the GOVT category is reserved for government services")
	}
	if p.GovernmentService {
		profile.Category = CategoryGovernment
	}
	p.Name = profile.Name
	p.Description = profile.Description
	p.Category = profile.Category
	p.Website = profile.Website
	p.ContactEmail = profile.ContactEmail
	p.UpdatedAt = now
	return nil
}

// Promote marks the listing as a verified government service.
func (p *Provider) Promote(description, contactEmail string, now time.Time) {
	p.GovernmentService = true
	p.Category = CategoryGovernment
	p.Verified = true
	p.Active = true
	if d := strings.TrimSpace(description); d != "" {
		p.Description = d
	}
	if e := strings.TrimSpace(contactEmail); e != "" {
		p.ContactEmail = strings.ToLower(e)
	}
	p.UpdatedAt = now
}

// Demote clears the government flag and moves the listing to CategoryOther.
func (p *Provider) Demote(now time.Time) {
	p.GovernmentService = false
	p.Category = CategoryOther
	p.UpdatedAt = now
}
