package handler

import (
	"maps"
	"slices"
	"time"

	"trustid/internal/entity/models"
)

type EntityResponse struct {
	ID                 string                       `json:"id"`
	OwnerID            string                       `json:"owner_id"`
	Variant            models.Variant               `json:"variant"`
	Name               string                       `json:"name"`
	Verified           bool                         `json:"verified"`
	Attributes         models.Attributes            `json:"attributes"`
	Categories         map[string]models.Category   `json:"categories"`
	AttributeGroups    map[models.Category][]string `json:"attribute_groups"`
	RegistrationNumber *string                      `json:"registration_number,omitempty"`
	Jurisdiction       string                       `json:"jurisdiction,omitempty"`
	CreatedAt          time.Time                    `json:"created_at"`
	UpdatedAt          time.Time                    `json:"updated_at"`
}

type ListResponse struct {
	Entities []*EntityResponse `json:"entities"`
}

func toResponse(e *models.Entity) *EntityResponse {
	categories := make(map[string]models.Category, len(e.Attributes))
	groups := make(map[models.Category][]string)
	for category, attrs := range models.GroupByCategory(e.Attributes) {
		names := slices.Sorted(maps.Keys(attrs))
		groups[category] = names
		for _, name := range names {
			categories[name] = category
		}
	}
	return &EntityResponse{
		ID:                 e.ID.String(),
		OwnerID:            e.OwnerID.String(),
		Variant:            e.Variant,
		Name:               e.Name,
		Verified:           e.Verified,
		Attributes:         e.Attributes,
		Categories:         categories,
		AttributeGroups:    groups,
		RegistrationNumber: e.RegistrationNumber,
		Jurisdiction:       e.Jurisdiction,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}
}

func toListResponse(entities []*models.Entity) *ListResponse {
	out := make([]*EntityResponse, 0, len(entities))
	for _, e := range entities {
		out = append(out, toResponse(e))
	}
	return &ListResponse{Entities: out}
}
