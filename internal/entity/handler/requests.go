package handler

import (
	"strings"

	"trustid/internal/entity/models"
	dErrors "trustid/pkg/domain-errors"
	platformstrings "trustid/pkg/platform/strings"
	"trustid/pkg/validation"
)

type CreateRequest struct {
	Variant            string            `json:"variant" validate:"required,oneof=individual organization government"`
	Name               string            `json:"name" validate:"required,notblank,max=255"`
	Attributes         models.Attributes `json:"attributes"`
	RegistrationNumber *string           `json:"registration_number,omitempty" validate:"omitempty,max=100"`
	Jurisdiction       string            `json:"jurisdiction" validate:"max=255"`
}

func (r *CreateRequest) Normalize() {
	r.Variant = strings.ToLower(strings.TrimSpace(r.Variant))
	r.Name = strings.TrimSpace(r.Name)
	r.Jurisdiction = strings.TrimSpace(r.Jurisdiction)
}

func (r *CreateRequest) Validate() error {
	if err := validation.Validate(r); err != nil {
		return err
	}
	return r.Attributes.Validate()
}

func (r *CreateRequest) ToInput() models.CreateInput {
	return models.CreateInput{
		Variant:            models.Variant(r.Variant),
		Name:               r.Name,
		Attributes:         r.Attributes,
		RegistrationNumber: r.RegistrationNumber,
		Jurisdiction:       r.Jurisdiction,
	}
}

type UpdateRequest struct {
	Name               *string           `json:"name,omitempty" validate:"omitempty,max=255"`
	Attributes         models.Attributes `json:"attributes,omitempty"`
	RemoveAttributes   []string          `json:"remove_attributes,omitempty" validate:"max=100"`
	RegistrationNumber *string           `json:"registration_number,omitempty" validate:"omitempty,max=100"`
	Jurisdiction       *string           `json:"jurisdiction,omitempty" validate:"omitempty,max=255"`
}

func (r *UpdateRequest) Normalize() {
	r.RemoveAttributes = platformstrings.DedupeAndTrim(r.RemoveAttributes)
}

func (r *UpdateRequest) Validate() error {
	if err := validation.Validate(r); err != nil {
		return err
	}
	if r.Name == nil && len(r.Attributes) == 0 && len(r.RemoveAttributes) == 0 &&
		r.RegistrationNumber == nil && r.Jurisdiction == nil {
		return dErrors.New(dErrors.CodeValidation, "update must change at least one field")
	}
	return r.Attributes.Validate()
}

func (r *UpdateRequest) ToPatch() models.Patch {
	return models.Patch{
		Name:               r.Name,
		Attributes:         r.Attributes,
		RemoveAttributes:   r.RemoveAttributes,
		RegistrationNumber: r.RegistrationNumber,
		Jurisdiction:       r.Jurisdiction,
	}
}
