package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	accesslogmodels "trustid/internal/accesslog/models"
	alertmodels "trustid/internal/alert/models"
	"trustid/internal/consent/metrics"
	"trustid/internal/consent/models"
	entitymodels "trustid/internal/entity/models"
	"trustid/internal/outbox"
	"trustid/internal/platform/tracing"
	id "trustid/pkg/domain"
	dErrors "trustid/pkg/domain-errors"
	"trustid/pkg/platform/sentinel"
	"trustid/pkg/requestcontext"
)

// Entities is the slice of the entity service the ledger reads through.
type Entities interface {
	Get(ctx context.Context, entityID id.EntityID) (*entitymodels.Entity, error)
	FindPrimaryIndividual(ctx context.Context, ownerKey string) (*entitymodels.Entity, error)
}

// AggregateConsent tags outbox entries written by the ledger.
const AggregateConsent = "consent"

const (
	opRequest  = "request"
	opRespond  = "respond"
	opRevoke   = "revoke"
	opAccess   = "log_access"
	opRetire   = "retire_entity"
	opOutbound = "list_outbound"
)

// RequestInput names the subject either by entity ID or by the phone/e-mail
// of the account that owns it. SubjectID wins when both are set.
type RequestInput struct {
	SubjectID   id.EntityID
	SubjectKey  string
	RequesterID id.EntityID
	Purpose     string
	Attributes  []string
}

// RespondInput carries a subject's decision on a pending consent.
// A nil Approved grants everything requested; zero DurationDays means the default.
type RespondInput struct {
	Action       models.Action
	Approved     []string
	DurationDays int
}

// Disclosure is an active consent joined with the subject's current values
// for the approved attributes only.
type Disclosure struct {
	Consent     *models.Consent
	SubjectName string
	Data        entitymodels.Attributes
}

// InboundConsent pairs a consent with its status as of the read.
type InboundConsent struct {
	Consent *models.Consent
	Status  models.Status
}

// RetireResult counts the consents closed while retiring an entity.
type RetireResult struct {
	Rejected      int
	Revoked       int
	AlertsDeleted int64
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(t tracing.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// RequestNotifier hears about consent requests once they are committed. It
// returns nothing: delivery problems are its own to log.
type RequestNotifier interface {
	ConsentRequested(ctx context.Context, subject *entitymodels.Entity, consent *models.Consent)
}

func WithRequestNotifier(n RequestNotifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithDefaultDuration overrides the grant length used when a response names none.
func WithDefaultDuration(days int) Option {
	return func(s *Service) {
		if days > 0 && days <= models.MaxDurationDays {
			s.defaultDuration = days
		}
	}
}

// Service is the consent ledger. Every mutating operation runs as one
// LedgerTx transaction covering the consent, its access log entry, alert and
// outbox event.
type Service struct {
	stores          Stores
	tx              LedgerTx
	entities        Entities
	metrics         *metrics.Metrics
	tracer          tracing.Tracer
	logger          *slog.Logger
	notifier        RequestNotifier
	defaultDuration int
}

// NewService wires the ledger. stores serves reads outside a transaction.
func NewService(stores Stores, tx LedgerTx, entities Entities, opts ...Option) *Service {
	svc := &Service{
		stores:          stores,
		tx:              tx,
		entities:        entities,
		tracer:          tracing.NewNoop(),
		logger:          slog.Default(),
		defaultDuration: models.DefaultDurationDays,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Request creates a pending consent from requester to subject and raises a
// "Data Access Request" alert on the subject.
func (s *Service) Request(ctx context.Context, actor id.UserID, in RequestInput) (_ *models.Consent, err error) {
	ctx, span := s.tracer.Start(ctx, tracing.SpanConsentRequest,
		tracing.String(tracing.AttrRequesterID, in.RequesterID.String()),
		tracing.Int(tracing.AttrAttrCount, len(in.Attributes)),
	)
	defer func(start time.Time) { s.finish(span, opRequest, start, err) }(time.Now())

	requester, err := s.requireOwner(ctx, actor, in.RequesterID)
	if err != nil {
		return nil, err
	}
	subject, err := s.resolveSubject(ctx, in)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	consent, err := models.NewRequest(id.NewConsentID(), subject.ID, requester.ID, requester.Name, in.Purpose, in.Attributes, now)
	if err != nil {
		return nil, err
	}
	alert, err := alertmodels.NewAlert(subject.ID, alertmodels.SeverityInfo,
		alertmodels.TitleDataAccessRequest, alertmodels.DataAccessRequestMessage(requester.Name), now)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context, st Stores) error {
		if err := st.Consents.Create(ctx, consent); err != nil {
			return err
		}
		if err := st.Alerts.Create(ctx, alert); err != nil {
			return err
		}
		span.AddEvent(tracing.EventAlertRaised)
		return appendEvent(ctx, st.Outbox, models.EventConsentRequested, consent, now)
	})
	if err != nil {
		return nil, translate(err, "request consent")
	}

	span.SetAttributes(tracing.String(tracing.AttrConsentID, consent.ID.String()))
	if s.metrics != nil {
		s.metrics.IncrementRequested()
	}
	s.logger.InfoContext(ctx, "consent requested",
		"consent_id", consent.ID,
		"subject_id", consent.SubjectID,
		"requester_id", consent.RequesterID,
		"attribute_count", len(consent.RequestedAttributes),
	)
	if s.notifier != nil {
		s.notifier.ConsentRequested(ctx, subject, consent)
	}
	return consent, nil
}

// Respond approves or rejects a pending consent. Only the subject's owner may
// respond. Approval records a "Consent Granted" access log entry.
func (s *Service) Respond(ctx context.Context, actor id.UserID, consentID id.ConsentID, in RespondInput) (_ *models.Consent, err error) {
	ctx, span := s.tracer.Start(ctx, tracing.SpanConsentRespond,
		tracing.String(tracing.AttrConsentID, consentID.String()),
		tracing.String(tracing.AttrAction, string(in.Action)),
	)
	defer func(start time.Time) { s.finish(span, opRespond, start, err) }(time.Now())

	if !in.Action.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "action must be approve or reject")
	}
	days := in.DurationDays
	if days == 0 {
		days = s.defaultDuration
	}

	existing, err := s.load(ctx, consentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireOwner(ctx, actor, existing.SubjectID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var updated *models.Consent
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st Stores) error {
		c, err := st.Consents.Execute(ctx, consentID, func(c *models.Consent) error {
			if in.Action == models.ActionApprove {
				return c.Approve(in.Approved, days, now)
			}
			return c.Reject(now)
		})
		if err != nil {
			return err
		}
		updated = c

		eventType := models.EventConsentRejected
		if c.Status == models.StatusActive {
			eventType = models.EventConsentApproved
			entry := accesslogmodels.NewGrantEntry(c.SubjectID, c.ID, c.RequesterName, c.Attributes, now)
			if err := st.AccessLog.Append(ctx, entry); err != nil {
				return err
			}
			span.AddEvent(tracing.EventAccessLogged)
		}
		return appendEvent(ctx, st.Outbox, eventType, c, now)
	})
	if err != nil {
		return nil, translate(err, "respond to consent")
	}

	span.SetAttributes(tracing.String(tracing.AttrStatus, string(updated.Status)))
	if s.metrics != nil {
		s.metrics.IncrementResolved(string(in.Action))
		if updated.Status == models.StatusActive {
			s.metrics.ObserveApprovedAttributes(len(updated.Attributes))
		}
	}
	s.logger.InfoContext(ctx, "consent resolved",
		"consent_id", updated.ID,
		"status", updated.Status,
		"duration_days", updated.DurationDays,
	)
	return updated, nil
}

// Revoke ends an effectively active consent. Only the subject's owner may revoke.
func (s *Service) Revoke(ctx context.Context, actor id.UserID, consentID id.ConsentID) (_ *models.Consent, err error) {
	ctx, span := s.tracer.Start(ctx, tracing.SpanConsentRevoke,
		tracing.String(tracing.AttrConsentID, consentID.String()),
	)
	defer func(start time.Time) { s.finish(span, opRevoke, start, err) }(time.Now())

	existing, err := s.load(ctx, consentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireOwner(ctx, actor, existing.SubjectID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var revoked *models.Consent
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st Stores) error {
		c, err := st.Consents.Execute(ctx, consentID, func(c *models.Consent) error {
			return c.Revoke(now)
		})
		if err != nil {
			return err
		}
		revoked = c
		return appendEvent(ctx, st.Outbox, models.EventConsentRevoked, c, now)
	})
	if err != nil {
		return nil, translate(err, "revoke consent")
	}

	if s.metrics != nil {
		s.metrics.IncrementRevoked()
	}
	s.logger.InfoContext(ctx, "consent revoked", "consent_id", revoked.ID, "subject_id", revoked.SubjectID)
	return revoked, nil
}

// LogAccess records that the requester viewed the subject's data under an
// effectively active consent. Only the requester's owner may log access.
func (s *Service) LogAccess(ctx context.Context, actor id.UserID, consentID id.ConsentID) (_ *accesslogmodels.Entry, err error) {
	ctx, span := s.tracer.Start(ctx, tracing.SpanConsentAccess,
		tracing.String(tracing.AttrConsentID, consentID.String()),
	)
	defer func(start time.Time) { s.finish(span, opAccess, start, err) }(time.Now())

	existing, err := s.load(ctx, consentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireOwner(ctx, actor, existing.RequesterID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var entry *accesslogmodels.Entry
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st Stores) error {
		c, err := st.Consents.FindByID(ctx, consentID)
		if err != nil {
			return err
		}
		if !models.IsEffectivelyActive(c, now) {
			return dErrors.New(dErrors.CodeInvalidState, "consent is "+string(c.EffectiveStatus(now))+", not active")
		}
		entry = accesslogmodels.NewAccessEntry(c.SubjectID, c.ID, c.RequesterName, c.Purpose, c.Attributes, now)
		if err := st.AccessLog.Append(ctx, entry); err != nil {
			return err
		}
		return appendEvent(ctx, st.Outbox, models.EventConsentAccessed, c, now)
	})
	if err != nil {
		return nil, translate(err, "log access")
	}

	if s.metrics != nil {
		s.metrics.IncrementAccessLogged()
	}
	return entry, nil
}

// ListPending returns the subject's pending consents, newest first.
func (s *Service) ListPending(ctx context.Context, actor id.UserID, subjectID id.EntityID) ([]*models.Consent, error) {
	if _, err := s.requireOwner(ctx, actor, subjectID); err != nil {
		return nil, err
	}
	all, err := s.stores.Consents.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, translate(err, "list pending consents")
	}
	pending := make([]*models.Consent, 0, len(all))
	for _, c := range all {
		if c.Status == models.StatusPending {
			pending = append(pending, c)
		}
	}
	return pending, nil
}

// ListInbound returns every consent naming the entity as subject with its
// status as of now.
func (s *Service) ListInbound(ctx context.Context, actor id.UserID, subjectID id.EntityID) ([]InboundConsent, error) {
	if _, err := s.requireOwner(ctx, actor, subjectID); err != nil {
		return nil, err
	}
	all, err := s.stores.Consents.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, translate(err, "list inbound consents")
	}
	now := requestcontext.Now(ctx)
	out := make([]InboundConsent, 0, len(all))
	for _, c := range all {
		out = append(out, InboundConsent{Consent: c, Status: c.EffectiveStatus(now)})
	}
	return out, nil
}

// ListOutbound returns the requester's effectively active consents with the
// subject's current values for approved attributes. Values are read at call
// time, never from a snapshot.
func (s *Service) ListOutbound(ctx context.Context, actor id.UserID, requesterID id.EntityID) (_ []Disclosure, err error) {
	ctx, span := s.tracer.Start(ctx, tracing.SpanConsentOutbound,
		tracing.String(tracing.AttrRequesterID, requesterID.String()),
	)
	defer func(start time.Time) { s.finish(span, opOutbound, start, err) }(time.Now())

	if _, err := s.requireOwner(ctx, actor, requesterID); err != nil {
		return nil, err
	}
	all, err := s.stores.Consents.ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, translate(err, "list outbound consents")
	}

	now := requestcontext.Now(ctx)
	out := make([]Disclosure, 0, len(all))
	for _, c := range all {
		if !models.IsEffectivelyActive(c, now) {
			continue
		}
		subject, err := s.stores.Entities.FindByID(ctx, c.SubjectID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, translate(err, "load consent subject")
		}
		out = append(out, Disclosure{
			Consent:     c,
			SubjectName: subject.Name,
			Data:        subject.Attributes.Restrict(c.Attributes),
		})
	}
	return out, nil
}

// RetireEntity closes every open consent the entity takes part in, deletes its
// alerts and then the entity itself, all in one transaction.
func (s *Service) RetireEntity(ctx context.Context, entityID id.EntityID) (_ *RetireResult, err error) {
	ctx, span := s.tracer.Start(ctx, tracing.SpanEntityRetire,
		tracing.String(tracing.AttrEntityID, entityID.String()),
	)
	defer func(start time.Time) { s.finish(span, opRetire, start, err) }(time.Now())

	now := requestcontext.Now(ctx)
	result := &RetireResult{}
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st Stores) error {
		if _, err := st.Entities.FindByID(ctx, entityID); err != nil {
			return err
		}
		open, err := st.Consents.ListOpenByEntity(ctx, entityID)
		if err != nil {
			return err
		}
		for _, c := range open {
			retired, err := st.Consents.Execute(ctx, c.ID, func(c *models.Consent) error {
				c.Retire(now)
				return nil
			})
			if err != nil {
				return err
			}
			eventType := models.EventConsentRevoked
			if retired.Status == models.StatusRejected {
				eventType = models.EventConsentRejected
				result.Rejected++
			} else {
				result.Revoked++
			}
			if err := appendEvent(ctx, st.Outbox, eventType, retired, now); err != nil {
				return err
			}
		}
		deleted, err := st.Alerts.DeleteForSubject(ctx, entityID)
		if err != nil {
			return err
		}
		result.AlertsDeleted = deleted
		return st.Entities.Delete(ctx, entityID)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "entity not found")
		}
		return nil, translate(err, "retire entity")
	}

	if s.metrics != nil {
		s.metrics.IncrementEntitiesRetired()
	}
	s.logger.WarnContext(ctx, "entity retired",
		"entity_id", entityID,
		"admin_actor", requestcontext.AdminActor(ctx),
		"consents_rejected", result.Rejected,
		"consents_revoked", result.Revoked,
		"alerts_deleted", result.AlertsDeleted,
	)
	return result, nil
}

func (s *Service) resolveSubject(ctx context.Context, in RequestInput) (*entitymodels.Entity, error) {
	if !in.SubjectID.IsNil() {
		return s.entities.Get(ctx, in.SubjectID)
	}
	if strings.TrimSpace(in.SubjectKey) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "subject entity ID or owner phone/e-mail is required")
	}
	return s.entities.FindPrimaryIndividual(ctx, in.SubjectKey)
}

// requireOwner loads the entity and returns Forbidden unless actor owns it.
func (s *Service) requireOwner(ctx context.Context, actor id.UserID, entityID id.EntityID) (*entitymodels.Entity, error) {
	if actor.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing user context")
	}
	entity, err := s.entities.Get(ctx, entityID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeForbidden, "entity is not managed by this account")
		}
		return nil, err
	}
	if entity.OwnerID != actor {
		return nil, dErrors.New(dErrors.CodeForbidden, "entity is not managed by this account")
	}
	return entity, nil
}

func (s *Service) load(ctx context.Context, consentID id.ConsentID) (*models.Consent, error) {
	c, err := s.stores.Consents.FindByID(ctx, consentID)
	if err != nil {
		return nil, translate(err, "load consent")
	}
	return c, nil
}

func (s *Service) finish(span tracing.Span, op string, start time.Time, err error) {
	span.End(err)
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveOperationLatency(op, time.Since(start).Seconds())
	if err != nil {
		code, ok := dErrors.CodeOf(err)
		if !ok {
			code = dErrors.CodeInternal
		}
		s.metrics.IncrementTxFailure(op, string(code))
	}
}

func appendEvent(ctx context.Context, store outbox.Store, eventType string, c *models.Consent, now time.Time) error {
	entry, err := outbox.NewEntry(AggregateConsent, c.ID.String(), eventType, models.NewEvent(eventType, c, now), now)
	if err != nil {
		return err
	}
	return store.Append(ctx, entry)
}

// translate maps store sentinels to domain errors. Domain errors raised by
// the consent model pass through unchanged.
func translate(err error, op string) error {
	if _, ok := dErrors.CodeOf(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "consent not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidState, "consent changed concurrently")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeDuplicateKey, "consent already exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, op)
	}
}
