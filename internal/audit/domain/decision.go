package domain

import "time"

// Decision records one authentication decision with its fine-grained
// internal reason. Callers only ever see the opaque outcome class; the
// reason lives here for operators.
type Decision struct {
	ID         string
	IdentityID string
	Mechanism  string
	Outcome    string
	Reason     string
	IP         string
	Platform   string
	CreatedAt  time.Time
}
