package domain

import "time"

// Challenge is an issued two-factor code awaiting verification
// (stored in two_factor_challenges table). At most one challenge
// exists per subject; issuing a new code replaces the prior row.
type Challenge struct {
	ID        string
	Subject   string
	CodeHash  string
	ExpiresAt time.Time
	Attempts  int
	CreatedAt time.Time
}
