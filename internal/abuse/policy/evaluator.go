package policy

import "context"

// Input carries the facts the challenge policy decides over.
type Input struct {
	// PlatformKnown is false when the request named a platform with no
	// configured scoring policy.
	PlatformKnown bool
	// AssessmentOK is false when the risk-assessment collaborator failed.
	AssessmentOK bool
	// Score is the assessed risk score, valid only when AssessmentOK.
	Score float64
	// Threshold is the minimum acceptable score for the platform.
	Threshold float64
	// AllowOnUnavailable relaxes the fail-closed default when the
	// assessment service is down.
	AllowOnUnavailable bool
}

// Evaluator decides whether a request must pass a risk challenge.
type Evaluator interface {
	// EvaluateChallenge returns true when a challenge is required.
	EvaluateChallenge(ctx context.Context, input Input) (bool, error)
}
