// Package tracing is a small span abstraction over OpenTelemetry used by the
// consent ledger. Services depend on the Tracer interface; production wires
// the OTel adapter and tests use Noop.
package tracing

import (
	"context"
)

type Span interface {
	// End completes the span and marks it failed when err is non-nil.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute    { return Attribute{Key: key, Value: value} }
func Bool(key string, value bool) Attribute { return Attribute{Key: key, Value: value} }
func Int(key string, value int) Attribute   { return Attribute{Key: key, Value: value} }

// Ledger span names.
const (
	SpanConsentRequest  = "consent.request"
	SpanConsentRespond  = "consent.respond"
	SpanConsentRevoke   = "consent.revoke"
	SpanConsentAccess   = "consent.log_access"
	SpanConsentOutbound = "consent.list_outbound"
	SpanEntityRetire    = "entity.retire"
)

// Attribute keys.
const (
	AttrConsentID   = "consent.id"
	AttrSubjectID   = "consent.subject_id"
	AttrRequesterID = "consent.requester_id"
	AttrAction      = "consent.action"
	AttrStatus      = "consent.status"
	AttrAttrCount   = "consent.attribute_count"
	AttrEntityID    = "entity.id"
)

// Event names.
const (
	EventAccessLogged = "access_log.appended"
	EventAlertRaised  = "alert.raised"
)
