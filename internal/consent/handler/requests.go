package handler

import (
	"strings"

	"trustid/internal/consent/models"
	"trustid/internal/consent/service"
	id "trustid/pkg/domain"
	dErrors "trustid/pkg/domain-errors"
	platformstrings "trustid/pkg/platform/strings"
	"trustid/pkg/validation"
)

// RequestConsentRequest names the subject by entity ID or by the phone/e-mail
// of its owner.
type RequestConsentRequest struct {
	SubjectID   *id.EntityID `json:"subject_id,omitempty"`
	SubjectKey  string       `json:"subject_key,omitempty" validate:"max=255"`
	RequesterID id.EntityID  `json:"requester_id" validate:"required"`
	Purpose     string       `json:"purpose" validate:"required,notblank,max=500"`
	Attributes  []string     `json:"attributes" validate:"required,min=1,max=100,dive,max=100"`
}

func (r *RequestConsentRequest) Normalize() {
	r.SubjectKey = strings.TrimSpace(r.SubjectKey)
	r.Purpose = strings.TrimSpace(r.Purpose)
	r.Attributes = platformstrings.DedupeAndTrim(r.Attributes)
}

func (r *RequestConsentRequest) Validate() error {
	if err := validation.Validate(r); err != nil {
		return err
	}
	if (r.SubjectID == nil || r.SubjectID.IsNil()) && r.SubjectKey == "" {
		return dErrors.New(dErrors.CodeValidation, "subject_id or subject_key is required")
	}
	return nil
}

func (r *RequestConsentRequest) ToInput() service.RequestInput {
	in := service.RequestInput{
		SubjectKey:  r.SubjectKey,
		RequesterID: r.RequesterID,
		Purpose:     r.Purpose,
		Attributes:  r.Attributes,
	}
	if r.SubjectID != nil {
		in.SubjectID = *r.SubjectID
	}
	return in
}

// RespondRequest omits approved_attributes to approve everything requested.
type RespondRequest struct {
	Action             string   `json:"action" validate:"required,oneof=approve reject"`
	ApprovedAttributes []string `json:"approved_attributes,omitempty" validate:"max=100,dive,max=100"`
	DurationDays       int      `json:"duration_days" validate:"gte=0,lte=100000"`
}

func (r *RespondRequest) Normalize() {
	r.Action = strings.ToLower(strings.TrimSpace(r.Action))
	r.ApprovedAttributes = platformstrings.DedupeAndTrim(r.ApprovedAttributes)
}

func (r *RespondRequest) Validate() error {
	return validation.Validate(r)
}

func (r *RespondRequest) ToInput() service.RespondInput {
	return service.RespondInput{
		Action:       models.Action(r.Action),
		Approved:     r.ApprovedAttributes,
		DurationDays: r.DurationDays,
	}
}
