package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

// Default Rego policy. Challenge is required unless the platform is known
// and either the score clears the threshold or the operator opted into
// allowing traffic while the assessment service is unavailable.
const defaultRegoPolicy = `package newm.abuse

default challenge_required = true

challenge_required = false if {
	input.platform_known
	input.assessment_ok
	input.score >= input.threshold
}

challenge_required = false if {
	input.platform_known
	not input.assessment_ok
	input.allow_on_unavailable
}
`

// OPAEvaluator evaluates the challenge decision with in-process OPA Rego.
type OPAEvaluator struct {
	compiler *ast.Compiler
}

// NewOPAEvaluator compiles the default challenge policy.
func NewOPAEvaluator() (*OPAEvaluator, error) {
	compiler, err := ast.CompileModules(map[string]string{"abuse.rego": defaultRegoPolicy})
	if err != nil {
		return nil, fmt.Errorf("compile challenge policy: %w", err)
	}
	return &OPAEvaluator{compiler: compiler}, nil
}

// HealthCheck verifies the compiled policy evaluates end to end.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	required, err := e.EvaluateChallenge(ctx, Input{})
	if err != nil {
		return err
	}
	if !required {
		return fmt.Errorf("challenge policy default is not fail-closed")
	}
	return nil
}

// EvaluateChallenge queries challenge_required against the compiled policy.
// Any evaluation failure reads as challenge-required.
func (e *OPAEvaluator) EvaluateChallenge(ctx context.Context, input Input) (bool, error) {
	q := rego.New(
		rego.Query("data.newm.abuse.challenge_required"),
		rego.Compiler(e.compiler),
		rego.Input(map[string]interface{}{
			"platform_known":       input.PlatformKnown,
			"assessment_ok":        input.AssessmentOK,
			"score":                input.Score,
			"threshold":            input.Threshold,
			"allow_on_unavailable": input.AllowOnUnavailable,
		}),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return true, fmt.Errorf("eval challenge policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return true, fmt.Errorf("challenge policy query returned no result")
	}
	required, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return true, fmt.Errorf("challenge policy returned non-boolean %T", rs[0].Expressions[0].Value)
	}
	return required, nil
}
