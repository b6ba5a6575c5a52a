package models

// Status represents the lifecycle state of a consent. StatusExpired is never
// stored; it is derived at read time from an active consent past its expiry.
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusRejected Status = "rejected"
	StatusRevoked  Status = "revoked"
	StatusExpired  Status = "expired"
)

// IsStored reports whether s may appear in persisted rows.
func (s Status) IsStored() bool {
	switch s {
	case StatusPending, StatusActive, StatusRejected, StatusRevoked:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is permitted from s.
func (s Status) IsTerminal() bool {
	return s == StatusRejected || s == StatusRevoked
}

// Action is the subject's answer to a pending request.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

func (a Action) IsValid() bool {
	return a == ActionApprove || a == ActionReject
}
