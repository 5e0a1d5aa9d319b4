package policy

import (
	"errors"
	"fmt"
	"math"

	"github.com/Masterminds/semver/v3"

	"github.com/vbncursed/vkr/intent-gate/internal/canonical"
	"github.com/vbncursed/vkr/intent-gate/internal/models"
)

const (
	DefaultRuleSetVersion = "1.0.0"
	DefaultAmountField    = "price"
	DefaultQuantityField  = "quantity"
	// DefaultMaxTransactionAmount matches the hard cap of the booking tool.
	DefaultMaxTransactionAmount = 50000
)

var ErrInvalidLimits = errors.New("invalid policy limits")

// Rule is a CEL boolean expression over action, params and amount.
// Actions limits the rule to the named actions; empty means all.
type Rule struct {
	Name    string   `yaml:"name" json:"name"`
	Expr    string   `yaml:"expr" json:"expr"`
	Actions []string `yaml:"actions,omitempty" json:"actions,omitempty"`
}

// Limits are static thresholds loaded once at startup.
type Limits struct {
	RuleSetVersion       string             `yaml:"rule_set_version" json:"rule_set_version"`
	Currency             string             `yaml:"currency,omitempty" json:"currency,omitempty"`
	MaxTransactionAmount float64            `yaml:"max_transaction_amount" json:"max_transaction_amount"`
	ActionCeilings       map[string]float64 `yaml:"action_ceilings,omitempty" json:"action_ceilings,omitempty"`
	AmountField          string             `yaml:"amount_field,omitempty" json:"amount_field,omitempty"`
	QuantityField        string             `yaml:"quantity_field,omitempty" json:"quantity_field,omitempty"`
	Rules                []Rule             `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// DefaultLimits returns the built-in booking limits.
func DefaultLimits() Limits {
	return Limits{
		RuleSetVersion:       DefaultRuleSetVersion,
		Currency:             "INR",
		MaxTransactionAmount: DefaultMaxTransactionAmount,
		AmountField:          DefaultAmountField,
		QuantityField:        DefaultQuantityField,
	}
}

// Normalize fills defaults and validates. It returns a copy.
func (l Limits) Normalize() (Limits, error) {
	if l.RuleSetVersion == "" {
		l.RuleSetVersion = DefaultRuleSetVersion
	}
	v, err := semver.NewVersion(l.RuleSetVersion)
	if err != nil {
		return Limits{}, fmt.Errorf("%w: rule_set_version %q: %v", ErrInvalidLimits, l.RuleSetVersion, err)
	}
	l.RuleSetVersion = v.String()
	if l.AmountField == "" {
		l.AmountField = DefaultAmountField
	}
	if l.QuantityField == "" {
		l.QuantityField = DefaultQuantityField
	}
	if !validCap(l.MaxTransactionAmount) {
		return Limits{}, fmt.Errorf("%w: max_transaction_amount must be positive", ErrInvalidLimits)
	}
	ceilings := make(map[string]float64, len(l.ActionCeilings))
	for name, c := range l.ActionCeilings {
		if !validCap(c) {
			return Limits{}, fmt.Errorf("%w: ceiling for %q must be positive", ErrInvalidLimits, name)
		}
		ceilings[models.NormalizeActionName(name)] = c
	}
	l.ActionCeilings = ceilings
	rules := make([]Rule, len(l.Rules))
	for i, r := range l.Rules {
		if r.Expr == "" {
			return Limits{}, fmt.Errorf("%w: rule %d has no expr", ErrInvalidLimits, i)
		}
		if r.Name == "" {
			r.Name = fmt.Sprintf("rule-%d", i)
		}
		acts := make([]string, len(r.Actions))
		for j, a := range r.Actions {
			acts[j] = models.NormalizeActionName(a)
		}
		r.Actions = acts
		rules[i] = r
	}
	l.Rules = rules
	return l, nil
}

// Digest is the SHA-256 of the RFC 8785 form of the limits. Tokens carry it
// so drift between issuance and use can be detected.
func (l Limits) Digest() (string, error) {
	return canonical.Digest(l)
}

func validCap(f float64) bool {
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}
