package recon

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Operator is the comparison applied by a rule field constraint.
type Operator string

const (
	// OpEQ requires both sides to be equal after normalization.
	OpEQ Operator = "EQ"
	// OpGE requires the left side to be numerically >= the right side.
	OpGE Operator = "GE"
)

// ParseOperator maps a wire-form condition to an Operator. Unknown or
// empty conditions fall back to equality, the original editor's default.
func ParseOperator(s string) Operator {
	if strings.EqualFold(strings.TrimSpace(s), string(OpGE)) {
		return OpGE
	}
	return OpEQ
}

// UnmarshalJSON normalizes wire-form conditions so "ge" and "GE" decode
// to the same operator.
func (o *Operator) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*o = ParseOperator(s)
	return nil
}

// RuleField is one constraint of a matching group. Which stage it binds
// is determined by which sides are populated: {A,B} is an ATM<->Switch
// constraint, {B,C} is a Switch<->CBS constraint. Any other combination
// is inert and skipped without error.
type RuleField struct {
	FieldA   string   `json:"matching_fieldA,omitempty"`
	FieldB   string   `json:"matching_fieldB,omitempty"`
	FieldC   string   `json:"matching_fieldC,omitempty"`
	Operator Operator `json:"condition,omitempty"`
}

// appliesAB reports whether this constraint binds the ATM<->Switch stage.
func (f RuleField) appliesAB() bool {
	return f.FieldA != "" && f.FieldB != "" && f.FieldC == ""
}

// appliesBC reports whether this constraint binds the Switch<->CBS stage.
func (f RuleField) appliesBC() bool {
	return f.FieldB != "" && f.FieldC != "" && f.FieldA == ""
}

// MatchingGroup is an ordered list of constraints that must all hold.
type MatchingGroup struct {
	Fields []RuleField `json:"fields"`
}

// MatchCondition carries the rule's matching groups in wire form.
type MatchCondition struct {
	MatchingGroups []MatchingGroup `json:"matchingGroups"`
}

// Tolerance configures the ATM-amount vs CBS-debit check applied in the
// final stage. The pinned polarity: AllowAmountDiff == "Y" disables the
// check entirely; any other value enforces AmountDiff as an inclusive
// upper bound on |ATM.amount - CBS.dr|.
type Tolerance struct {
	AllowAmountDiff string          `json:"allowAmountDiff"`
	AmountDiff      decimal.Decimal `json:"amountDiff"`
}

// Enforced reports whether the amount check applies.
func (t Tolerance) Enforced() bool {
	return !strings.EqualFold(strings.TrimSpace(t.AllowAmountDiff), "Y")
}

// Rule is a versioned matching rule. Rules are versioned by
// (owner, category); the active rule is the one with the highest ID.
type Rule struct {
	ID             int64          `json:"id"`
	Owner          string         `json:"addedBy"`
	Category       int            `json:"ruleCategory"`
	BasicDetails   map[string]any `json:"basic,omitempty"`
	Classification map[string]any `json:"classification,omitempty"`
	MatchCondition MatchCondition `json:"matchCondition"`
	Tolerance      Tolerance      `json:"tolerance"`
}

// Groups returns the rule's matching groups; safe on a nil rule so a
// missing or malformed rule degrades to "nothing matches" rather than
// raising.
func (r *Rule) Groups() []MatchingGroup {
	if r == nil {
		return nil
	}
	return r.MatchCondition.MatchingGroups
}

// tolerance returns the tolerance config; zero value (enforced, diff 0)
// for a nil rule, the most conservative reading.
func (r *Rule) tolerance() Tolerance {
	if r == nil {
		return Tolerance{}
	}
	return r.Tolerance
}
