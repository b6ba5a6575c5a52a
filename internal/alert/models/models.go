package models

import (
	"strings"
	"time"

	id "trustid/pkg/domain"
	dErrors "trustid/pkg/domain-errors"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

func (s Severity) IsValid() bool {
	return s == SeverityInfo || s == SeverityWarning || s == SeverityError
}

// Alert is a notice shown to the owner of a subject entity.
type Alert struct {
	ID           id.AlertID
	SubjectID    id.EntityID
	Severity     Severity
	Title        string
	Message      string
	Acknowledged bool
	CreatedAt    time.Time
}

func NewAlert(subject id.EntityID, severity Severity, title, message string, now time.Time) (*Alert, error) {
	if subject.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "alert subject required")
	}
	if !severity.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "severity must be one of info, warning, error")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "alert title is required")
	}
	return &Alert{
		ID:        id.NewAlertID(),
		SubjectID: subject,
		Severity:  severity,
		Title:     title,
		Message:   strings.TrimSpace(message),
		CreatedAt: now,
	}, nil
}

// Alert texts raised by other modules.
const (
	TitleDataAccessRequest = "Data Access Request"
	TitleNewLogin          = "New Login Detected"
)

func DataAccessRequestMessage(serviceName string) string {
	return serviceName + " requested access to your data."
}

func NewLoginMessage(device, ip string) string {
	return "A new login from " + device + " (IP " + ip + ") was recorded on your account."
}
