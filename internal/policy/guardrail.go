// Package policy holds the hard business limits evaluated after a token is
// verified. No token can raise or bypass them.
package policy

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/vbncursed/vkr/intent-gate/internal/canonical"
	"github.com/vbncursed/vkr/intent-gate/internal/models"
)

type compiledRule struct {
	Rule
	prg cel.Program
}

// Guardrail evaluates actions against Limits. Immutable after New and safe
// for concurrent use.
type Guardrail struct {
	limits Limits
	digest string
	rules  []compiledRule
}

// New validates limits and compiles their rules.
func New(limits Limits) (*Guardrail, error) {
	l, err := limits.Normalize()
	if err != nil {
		return nil, err
	}
	digest, err := l.Digest()
	if err != nil {
		return nil, err
	}

	env, err := cel.NewEnv(
		cel.Variable("action", cel.StringType),
		cel.Variable("params", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("amount", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	g := &Guardrail{limits: l, digest: digest}
	for _, r := range l.Rules {
		ast, issues := env.Compile(r.Expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("%w: rule %s: %v", ErrInvalidLimits, r.Name, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, fmt.Errorf("%w: rule %s must be boolean", ErrInvalidLimits, r.Name)
		}
		prg, err := env.Program(ast, cel.InterruptCheckFrequency(100), cel.CostLimit(10000))
		if err != nil {
			return nil, fmt.Errorf("%w: rule %s: %v", ErrInvalidLimits, r.Name, err)
		}
		g.rules = append(g.rules, compiledRule{Rule: r, prg: prg})
	}
	return g, nil
}

func (g *Guardrail) Limits() Limits         { return g.limits }
func (g *Guardrail) Digest() string         { return g.digest }
func (g *Guardrail) RuleSetVersion() string { return g.limits.RuleSetVersion }

// Evaluate checks numeric caps first, then CEL rules. Any evaluation error
// is a refusal.
func (g *Guardrail) Evaluate(action models.ActionDescriptor) models.PolicyResult {
	name := models.NormalizeActionName(action.Name)

	amount, hasAmount, err := g.amount(action)
	if err != nil {
		return deny("amount", err.Error())
	}
	if !hasAmount && g.requiresAmount(name) {
		return deny("amount", fmt.Sprintf("%s requires a numeric %s", name, g.limits.AmountField))
	}
	if hasAmount {
		if math.IsNaN(amount) || math.IsInf(amount, 0) {
			return deny("amount", "amount must be finite")
		}
		if amount < 0 {
			return deny("amount", "amount must not be negative")
		}
		if amount > g.limits.MaxTransactionAmount {
			return deny("max_transaction_amount", fmt.Sprintf("amount %s exceeds the safety cap of %s",
				g.format(amount), g.format(g.limits.MaxTransactionAmount)))
		}
		if c, ok := g.limits.ActionCeilings[name]; ok && amount > c {
			return deny("action_ceiling", fmt.Sprintf("amount %s exceeds the %s ceiling of %s",
				g.format(amount), name, g.format(c)))
		}
	}

	if len(g.rules) == 0 {
		return models.PolicyResult{Allowed: true}
	}
	input := map[string]any{
		"action": name,
		"params": action.ParamMap(),
		"amount": amount,
	}
	for _, r := range g.rules {
		if len(r.Actions) > 0 && !slices.Contains(r.Actions, name) {
			continue
		}
		out, _, err := r.prg.Eval(input)
		if err != nil {
			return deny(r.Name, fmt.Sprintf("rule %s failed: %v", r.Name, err))
		}
		ok, isBool := out.Value().(bool)
		if !isBool || !ok {
			return deny(r.Name, fmt.Sprintf("rule %s denied the action", r.Name))
		}
	}
	return models.PolicyResult{Allowed: true}
}

// requiresAmount reports whether a limit is scoped to the action, in which
// case a missing amount is a refusal rather than a pass.
func (g *Guardrail) requiresAmount(name string) bool {
	if _, ok := g.limits.ActionCeilings[name]; ok {
		return true
	}
	for _, r := range g.rules {
		if slices.Contains(r.Actions, name) {
			return true
		}
	}
	return false
}

func (g *Guardrail) amount(action models.ActionDescriptor) (float64, bool, error) {
	// Parameter names are case-sensitive in the signed message, so a
	// case variant of a limit field would otherwise slip past the caps.
	for _, p := range action.Params {
		for _, f := range []string{g.limits.AmountField, g.limits.QuantityField} {
			if p.Name != f && strings.EqualFold(strings.TrimSpace(p.Name), f) {
				return 0, false, fmt.Errorf("parameter %q shadows %s", p.Name, f)
			}
		}
	}
	v, ok := action.Param(g.limits.AmountField)
	if !ok {
		return 0, false, nil
	}
	price, isNum := v.Float()
	if !isNum {
		return 0, false, fmt.Errorf("%s must be a number", g.limits.AmountField)
	}
	if q, ok := action.Param(g.limits.QuantityField); ok {
		qty, isNum := q.Float()
		if !isNum {
			return 0, false, fmt.Errorf("%s must be a number", g.limits.QuantityField)
		}
		if qty < 0 {
			return 0, false, fmt.Errorf("%s must not be negative", g.limits.QuantityField)
		}
		price *= qty
	}
	return price, true, nil
}

func (g *Guardrail) format(f float64) string {
	s, err := canonical.FormatNumber(f)
	if err != nil {
		s = "NaN"
	}
	if g.limits.Currency != "" {
		return g.limits.Currency + " " + s
	}
	return s
}

func deny(rule, reason string) models.PolicyResult {
	return models.PolicyResult{Allowed: false, Rule: rule, Reason: reason}
}
