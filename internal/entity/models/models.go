package models

import (
	"strings"
	"time"

	id "trustid/pkg/domain"
	dErrors "trustid/pkg/domain-errors"
	platformstrings "trustid/pkg/platform/strings"
	"trustid/pkg/validation"
)

// Variant tags what kind of identity an entity represents.
type Variant string

const (
	VariantIndividual   Variant = "individual"
	VariantOrganization Variant = "organization"
	VariantGovernment   Variant = "government"
)

func (v Variant) IsValid() bool {
	switch v {
	case VariantIndividual, VariantOrganization, VariantGovernment:
		return true
	}
	return false
}

// IDNumberAttribute is the attribute whose value becomes the uniqueness key
// when no registration number is given.
const IDNumberAttribute = "idNumber"

// Entity is a registered identity subject and its disclosable attributes.
//
// At most one entity holds a given non-nil UniquenessKey, across all variants.
type Entity struct {
	ID         id.EntityID
	OwnerID    id.UserID
	Variant    Variant
	Name       string
	Verified   bool
	Attributes Attributes
	// RegistrationNumber is the explicit key supplied by the owner, if any.
	RegistrationNumber *string
	UniquenessKey      *string
	Jurisdiction       string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Clone returns a deep copy so stores never share attribute maps with callers.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	c := *e
	c.Attributes = e.Attributes.Clone()
	c.RegistrationNumber = cloneString(e.RegistrationNumber)
	c.UniquenessKey = cloneString(e.UniquenessKey)
	return &c
}

// CreateInput carries the fields accepted when an entity is created.
type CreateInput struct {
	Variant            Variant
	Name               string
	Attributes         Attributes
	RegistrationNumber *string
	Jurisdiction       string
	// Verified marks entities created by a trusted registration flow, such as
	// a government service account. HTTP callers never set it.
	Verified bool
}

// Patch is a partial update. Nil fields are left unchanged; attribute entries
// are merged, and RemoveAttributes names entries to drop.
type Patch struct {
	Name               *string
	Attributes         Attributes
	RemoveAttributes   []string
	RegistrationNumber *string
	Jurisdiction       *string
}

// DeriveUniquenessKey picks the registration number when non-blank, else the
// idNumber attribute when it is a non-blank string, else nil.
func DeriveUniquenessKey(registrationNumber *string, attrs Attributes) *string {
	if registrationNumber != nil {
		if key := strings.TrimSpace(*registrationNumber); key != "" {
			return &key
		}
	}
	if v, ok := attrs[IDNumberAttribute]; ok {
		if s, ok := v.AsString(); ok {
			if key := strings.TrimSpace(s); key != "" {
				return &key
			}
		}
	}
	return nil
}

// NewEntity validates input and builds an entity owned by owner.
func NewEntity(entityID id.EntityID, owner id.UserID, in CreateInput, now time.Time) (*Entity, error) {
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "owner required")
	}
	if !in.Variant.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "variant must be one of individual, organization, government")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if err := in.Attributes.Validate(); err != nil {
		return nil, err
	}
	attrs := in.Attributes.Clone()
	registration := platformstrings.TrimSpacePtr(in.RegistrationNumber)
	return &Entity{
		ID:                 entityID,
		OwnerID:            owner,
		Variant:            in.Variant,
		Name:               name,
		Verified:           in.Verified || len(attrs) > 0,
		Attributes:         attrs,
		RegistrationNumber: registration,
		UniquenessKey:      DeriveUniquenessKey(registration, attrs),
		Jurisdiction:       strings.TrimSpace(in.Jurisdiction),
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// Apply merges p into e and recomputes the uniqueness key. A blank
// registration number in the patch clears the stored one.
func (e *Entity) Apply(p Patch, now time.Time) error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return dErrors.New(dErrors.CodeValidation, "name must not be blank")
		}
		e.Name = name
	}
	if err := p.Attributes.Validate(); err != nil {
		return err
	}
	if e.Attributes == nil {
		e.Attributes = Attributes{}
	}
	for k, v := range p.Attributes {
		e.Attributes[k] = v
	}
	for _, k := range p.RemoveAttributes {
		delete(e.Attributes, k)
	}
	if len(e.Attributes) > validation.MaxAttributes {
		return dErrors.New(dErrors.CodeValidation, "too many attributes")
	}
	if p.Jurisdiction != nil {
		e.Jurisdiction = strings.TrimSpace(*p.Jurisdiction)
	}

	if p.RegistrationNumber != nil {
		e.RegistrationNumber = platformstrings.TrimSpacePtr(p.RegistrationNumber)
	}
	e.UniquenessKey = DeriveUniquenessKey(e.RegistrationNumber, e.Attributes)
	e.UpdatedAt = now
	return nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
