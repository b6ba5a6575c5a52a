package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"trustid/internal/entity/handler/mocks"
	"trustid/internal/entity/models"
	id "trustid/pkg/domain"
	dErrors "trustid/pkg/domain-errors"
	"trustid/pkg/requestcontext"
)

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
	userID  id.UserID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.userID = id.NewUserID()

	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithUserID(r.Context(), s.userID)))
		})
	})
	h.Register(r)
	s.router = r
}

func (s *HandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) sampleEntity() *models.Entity {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return &models.Entity{
		ID:         id.NewEntityID(),
		OwnerID:    s.userID,
		Variant:    models.VariantIndividual,
		Name:       "Asha Rao",
		Verified:   true,
		Attributes: models.Attributes{"email": models.StringValue("asha@example.com")},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (s *HandlerSuite) TestCreate() {
	s.Run("created with categories", func() {
		entity := s.sampleEntity()
		s.service.EXPECT().
			Create(gomock.Any(), s.userID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ id.UserID, in models.CreateInput) (*models.Entity, error) {
				s.Equal(models.VariantIndividual, in.Variant)
				s.Equal("Asha Rao", in.Name)
				return entity, nil
			})

		rec := s.do(http.MethodPost, "/entities", `{"variant":" Individual ","name":" Asha Rao ","attributes":{"email":"asha@example.com"}}`)
		s.Equal(http.StatusCreated, rec.Code)

		var resp EntityResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Equal(entity.ID.String(), resp.ID)
		s.Equal(models.CategoryContact, resp.Categories["email"])
		s.Equal([]string{"email"}, resp.AttributeGroups[models.CategoryContact])
	})

	s.Run("invalid variant never reaches service", func() {
		rec := s.do(http.MethodPost, "/entities", `{"variant":"robot","name":"x"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("nested attribute values rejected", func() {
		rec := s.do(http.MethodPost, "/entities", `{"variant":"individual","name":"x","attributes":{"a":{"b":1}}}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("duplicate key is a conflict", func() {
		s.service.EXPECT().Create(gomock.Any(), s.userID, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeDuplicateKey, "taken"))
		rec := s.do(http.MethodPost, "/entities", `{"variant":"organization","name":"Acme","registration_number":"U1"}`)
		s.Equal(http.StatusConflict, rec.Code)
	})
}

func (s *HandlerSuite) TestGetAndList() {
	entity := s.sampleEntity()

	s.Run("get", func() {
		s.service.EXPECT().GetOwned(gomock.Any(), s.userID, entity.ID).Return(entity, nil)
		rec := s.do(http.MethodGet, "/entities/"+entity.ID.String(), "")
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("malformed id", func() {
		rec := s.do(http.MethodGet, "/entities/not-a-uuid", "")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("not owned", func() {
		s.service.EXPECT().GetOwned(gomock.Any(), s.userID, entity.ID).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "entity not found"))
		rec := s.do(http.MethodGet, "/entities/"+entity.ID.String(), "")
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("list", func() {
		s.service.EXPECT().ListByOwner(gomock.Any(), s.userID).Return([]*models.Entity{entity}, nil)
		rec := s.do(http.MethodGet, "/entities", "")
		s.Equal(http.StatusOK, rec.Code)

		var resp ListResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Len(resp.Entities, 1)
	})
}

func (s *HandlerSuite) TestUpdate() {
	entity := s.sampleEntity()

	s.Run("empty patch rejected", func() {
		rec := s.do(http.MethodPut, "/entities/"+entity.ID.String(), `{}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("patch forwarded", func() {
		s.service.EXPECT().
			Update(gomock.Any(), s.userID, entity.ID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ id.UserID, _ id.EntityID, p models.Patch) (*models.Entity, error) {
				s.Equal([]string{"city"}, p.RemoveAttributes)
				return entity, nil
			})
		rec := s.do(http.MethodPut, "/entities/"+entity.ID.String(), `{"remove_attributes":[" city ","city"]}`)
		s.Equal(http.StatusOK, rec.Code)
	})
}
