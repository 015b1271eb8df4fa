package abuse

import (
	"context"
	"log"
	"net/netip"

	"github.com/projectNEWM/newm-server-sub005/internal/abuse/policy"
)

// Assessor scores a caller-supplied assessment token for a platform.
type Assessor interface {
	Assess(ctx context.Context, token, platform string) (float64, error)
}

// WhitelistEntry exempts a source range from challenges (office/VPN ranges).
type WhitelistEntry struct {
	Prefix      netip.Prefix
	Description string
}

// Config is the gate's explicit configuration.
type Config struct {
	Whitelist []WhitelistEntry
	// Thresholds maps platform tag to the minimum acceptable score.
	// Platforms absent from the map are always challenged.
	Thresholds map[string]float64
	// AllowOnUnavailable lets traffic pass when the assessor is down.
	// Default false: assessment-unavailable reads as challenge-required.
	AllowOnUnavailable bool
}

// Gate decides whether a request must pass a risk challenge.
// The whitelist is consulted first and short-circuits everything else.
type Gate struct {
	cfg       Config
	assessor  Assessor
	evaluator policy.Evaluator
}

func NewGate(cfg Config, assessor Assessor, evaluator policy.Evaluator) *Gate {
	return &Gate{cfg: cfg, assessor: assessor, evaluator: evaluator}
}

// ShouldChallenge reports whether the request from source must be challenged.
// Never fails open: any internal failure outside the opt-in reads as true.
func (g *Gate) ShouldChallenge(ctx context.Context, source netip.Addr, platform, token string) bool {
	for _, entry := range g.cfg.Whitelist {
		if entry.Prefix.Contains(source) {
			return false
		}
	}

	threshold, platformKnown := g.cfg.Thresholds[platform]
	input := policy.Input{
		PlatformKnown:      platformKnown,
		Threshold:          threshold,
		AllowOnUnavailable: g.cfg.AllowOnUnavailable,
	}
	if platformKnown && g.assessor != nil {
		score, err := g.assessor.Assess(ctx, token, platform)
		if err != nil {
			log.Printf("abuse: assessment unavailable for platform=%s: %v", platform, err)
		} else {
			input.AssessmentOK = true
			input.Score = score
		}
	}

	required, err := g.evaluator.EvaluateChallenge(ctx, input)
	if err != nil {
		log.Printf("abuse: challenge policy evaluation failed: %v", err)
		return true
	}
	return required
}
