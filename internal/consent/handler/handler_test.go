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

	accesslogmodels "trustid/internal/accesslog/models"
	"trustid/internal/consent/handler/mocks"
	"trustid/internal/consent/models"
	"trustid/internal/consent/service"
	entitymodels "trustid/internal/entity/models"
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
	now     time.Time
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.userID = id.NewUserID()
	s.now = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(requestcontext.WithUserID(r.Context(), s.userID)))
			})
		})
		h.Register(r)
	})
	h.RegisterAdmin(r)
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

func (s *HandlerSuite) pendingConsent() *models.Consent {
	c, err := models.NewRequest(id.NewConsentID(), id.NewEntityID(), id.NewEntityID(), "Acme Bank", "KYC",
		[]string{"Name", "Address"}, s.now)
	s.Require().NoError(err)
	return c
}

func (s *HandlerSuite) TestRequest() {
	s.Run("by subject id", func() {
		c := s.pendingConsent()
		s.service.EXPECT().
			Request(gomock.Any(), s.userID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ id.UserID, in service.RequestInput) (*models.Consent, error) {
				s.Equal(c.SubjectID, in.SubjectID)
				s.Equal([]string{"Name", "Address"}, in.Attributes)
				s.Equal("KYC", in.Purpose)
				return c, nil
			})

		body := `{"subject_id":"` + c.SubjectID.String() + `","requester_id":"` + c.RequesterID.String() +
			`","purpose":" KYC ","attributes":["Name"," Address ","Name"]}`
		rec := s.do(http.MethodPost, "/consents/request", body)
		s.Equal(http.StatusCreated, rec.Code)

		var resp ConsentResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Equal(models.StatusPending, resp.Status)
		s.Nil(resp.ExpiresOn)
	})

	s.Run("by owner phone", func() {
		c := s.pendingConsent()
		s.service.EXPECT().
			Request(gomock.Any(), s.userID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ id.UserID, in service.RequestInput) (*models.Consent, error) {
				s.True(in.SubjectID.IsNil())
				s.Equal("9876543210", in.SubjectKey)
				return c, nil
			})

		body := `{"subject_key":"9876543210","requester_id":"` + c.RequesterID.String() +
			`","purpose":"KYC","attributes":["Name"]}`
		s.Equal(http.StatusCreated, s.do(http.MethodPost, "/consents/request", body).Code)
	})

	s.Run("missing subject never reaches service", func() {
		body := `{"requester_id":"` + id.NewEntityID().String() + `","purpose":"KYC","attributes":["Name"]}`
		s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/consents/request", body).Code)
	})

	s.Run("empty attributes never reach service", func() {
		body := `{"subject_key":"9876543210","requester_id":"` + id.NewEntityID().String() +
			`","purpose":"KYC","attributes":[]}`
		s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/consents/request", body).Code)
	})
}

func (s *HandlerSuite) TestRespond() {
	c := s.pendingConsent()
	path := "/consents/" + c.ID.String() + "/respond"

	s.Run("approve subset", func() {
		active := c.Clone()
		s.Require().NoError(active.Approve([]string{"Name"}, 30, s.now))
		s.service.EXPECT().
			Respond(gomock.Any(), s.userID, c.ID, service.RespondInput{
				Action:       models.ActionApprove,
				Approved:     []string{"Name"},
				DurationDays: 30,
			}).
			Return(active, nil)

		rec := s.do(http.MethodPost, path, `{"action":"Approve","approved_attributes":["Name"],"duration_days":30}`)
		s.Equal(http.StatusOK, rec.Code)

		var resp ConsentResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Equal(models.StatusActive, resp.Status)
		s.Require().NotNil(resp.ExpiresOn)
		s.Equal(s.now.Add(30*24*time.Hour), resp.ExpiresOn.UTC())
	})

	s.Run("omitted attributes approve everything", func() {
		s.service.EXPECT().
			Respond(gomock.Any(), s.userID, c.ID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ id.UserID, _ id.ConsentID, in service.RespondInput) (*models.Consent, error) {
				s.Nil(in.Approved)
				s.Zero(in.DurationDays)
				return c, nil
			})
		s.Equal(http.StatusOK, s.do(http.MethodPost, path, `{"action":"approve"}`).Code)
	})

	s.Run("already decided is a conflict", func() {
		s.service.EXPECT().Respond(gomock.Any(), s.userID, c.ID, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInvalidState, "consent is rejected, not pending"))
		s.Equal(http.StatusConflict, s.do(http.MethodPost, path, `{"action":"reject"}`).Code)
	})

	s.Run("unknown action", func() {
		s.Equal(http.StatusBadRequest, s.do(http.MethodPost, path, `{"action":"maybe"}`).Code)
	})

	s.Run("duration beyond the representable range", func() {
		s.Equal(http.StatusBadRequest, s.do(http.MethodPost, path, `{"action":"approve","duration_days":100001}`).Code)
	})

	s.Run("malformed consent id", func() {
		s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/consents/nope/respond", `{"action":"reject"}`).Code)
	})
}

func (s *HandlerSuite) TestRevokeAndAccess() {
	c := s.pendingConsent()

	s.Run("revoke not active", func() {
		s.service.EXPECT().Revoke(gomock.Any(), s.userID, c.ID).
			Return(nil, dErrors.New(dErrors.CodeInvalidState, "consent is pending, not active"))
		s.Equal(http.StatusConflict, s.do(http.MethodPost, "/consents/"+c.ID.String()+"/revoke", "").Code)
	})

	s.Run("access by non requester", func() {
		s.service.EXPECT().LogAccess(gomock.Any(), s.userID, c.ID).
			Return(nil, dErrors.New(dErrors.CodeForbidden, "entity is not managed by this account"))
		s.Equal(http.StatusForbidden, s.do(http.MethodPost, "/consents/"+c.ID.String()+"/access", "").Code)
	})

	s.Run("access logged", func() {
		entry := accesslogmodels.NewAccessEntry(c.SubjectID, c.ID, "Acme Bank", "KYC", []string{"Name"}, s.now)
		s.service.EXPECT().LogAccess(gomock.Any(), s.userID, c.ID).Return(entry, nil)

		rec := s.do(http.MethodPost, "/consents/"+c.ID.String()+"/access", "")
		s.Equal(http.StatusCreated, rec.Code)

		var resp AccessResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Equal("Accessed data for: KYC", resp.Purpose)
		s.Equal(c.ID.String(), resp.ConsentID)
	})
}

func (s *HandlerSuite) TestLists() {
	entityID := id.NewEntityID()
	c := s.pendingConsent()

	s.Run("inbound reports effective status", func() {
		s.service.EXPECT().ListInbound(gomock.Any(), s.userID, entityID).
			Return([]service.InboundConsent{{Consent: c, Status: models.StatusExpired}}, nil)

		rec := s.do(http.MethodGet, "/entities/"+entityID.String()+"/consents/inbound", "")
		s.Equal(http.StatusOK, rec.Code)

		var resp ListResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Require().Len(resp.Consents, 1)
		s.Equal(models.StatusExpired, resp.Consents[0].Status)
	})

	s.Run("pending", func() {
		s.service.EXPECT().ListPending(gomock.Any(), s.userID, entityID).Return([]*models.Consent{c}, nil)
		s.Equal(http.StatusOK, s.do(http.MethodGet, "/entities/"+entityID.String()+"/consents/pending", "").Code)
	})

	s.Run("outbound carries only disclosed data", func() {
		s.service.EXPECT().ListOutbound(gomock.Any(), s.userID, entityID).Return([]service.Disclosure{{
			Consent:     c,
			SubjectName: "Asha Rao",
			Data:        entitymodels.Attributes{"Name": entitymodels.StringValue("Asha Rao")},
		}}, nil)

		rec := s.do(http.MethodGet, "/entities/"+entityID.String()+"/consents/outbound", "")
		s.Equal(http.StatusOK, rec.Code)
		s.JSONEq(`{"Name":"Asha Rao"}`, string(mustField(s, rec.Body.Bytes(), "data")))
	})
}

func (s *HandlerSuite) TestRetireEntity() {
	entityID := id.NewEntityID()

	s.service.EXPECT().RetireEntity(gomock.Any(), entityID).
		Return(&service.RetireResult{Rejected: 1, Revoked: 2, AlertsDeleted: 3}, nil)
	rec := s.do(http.MethodDelete, "/admin/entities/"+entityID.String(), "")
	s.Equal(http.StatusOK, rec.Code)

	var resp RetireResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(2, resp.ConsentsRevoked)

	s.service.EXPECT().RetireEntity(gomock.Any(), entityID).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "entity not found"))
	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, "/admin/entities/"+entityID.String(), "").Code)
}

// mustField extracts a field of the first shared entry of an outbound response.
func mustField(s *HandlerSuite, body []byte, field string) json.RawMessage {
	var resp struct {
		Shared []map[string]json.RawMessage `json:"shared"`
	}
	s.Require().NoError(json.Unmarshal(body, &resp))
	s.Require().Len(resp.Shared, 1)
	return resp.Shared[0][field]
}
