package domain

// Mechanism identifies how the caller claims to authenticate.
type Mechanism string

const (
	MechanismSigned   Mechanism = "signed"
	MechanismOAuth    Mechanism = "oauth"
	MechanismPassword Mechanism = "password"
)

// Class is the coarse outcome category callers are allowed to branch on.
// Fine-grained reasons stay in the decision log.
type Class int

const (
	MalformedInput Class = iota
	Unauthenticated
	ChallengeRequired
	TransientUpstreamFailure
	TerminalUpstreamRejection
)

func (c Class) String() string {
	switch c {
	case MalformedInput:
		return "malformed_input"
	case Unauthenticated:
		return "unauthenticated"
	case ChallengeRequired:
		return "challenge_required"
	case TransientUpstreamFailure:
		return "transient_upstream_failure"
	case TerminalUpstreamRejection:
		return "terminal_upstream_rejection"
	default:
		return "unknown"
	}
}

// Rejection is a typed authentication failure. Its message depends only on
// the class, never on Reason, so callers of any transport cannot distinguish
// "key not registered" from "signature invalid" and similar oracles.
type Rejection struct {
	Class  Class
	Reason string
}

func (r *Rejection) Error() string {
	switch r.Class {
	case MalformedInput:
		return "malformed authentication request"
	case ChallengeRequired:
		return "challenge required"
	case TransientUpstreamFailure:
		return "authentication temporarily unavailable"
	case TerminalUpstreamRejection:
		return "authentication rejected by provider"
	default:
		return "authentication failed"
	}
}

// Reject builds a rejection with an internal reason.
func Reject(class Class, reason string) *Rejection {
	return &Rejection{Class: class, Reason: reason}
}
