package recon

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Field names the tolerance stage compares. The ATM feed reports a
// single amount; the CBS ledger reports the debit side.
const (
	atmAmountField = "amount"
	cbsDebitField  = "dr"
)

// Classify runs the three-way match over a snapshot of the three record
// lists and buckets every ATM record as matched, partially matched, or
// unmatched.
//
// Candidate order is the tie-break rule: Switch and CBS lists are probed
// in caller-supplied order and the first fully-satisfying (switch, cbs)
// pair wins — this is first-candidate-wins, not best-score selection.
// The production path is a hash join on the rule's normalized EQ
// constraint fields; classifyNestedLoop is the reference implementation
// the tests hold it against.
//
// A nil rule, or one with zero matching groups, fails every stage:
// absence of a rule never silently matches everything.
func Classify(atmList, switchList, cbsList []*Record, rule *Rule) Buckets {
	buckets := Buckets{
		Matched:   []Outcome{},
		Partial:   []Outcome{},
		Unmatched: []Outcome{},
	}

	ab, bc, ok := buildPlans(rule)
	if !ok {
		for _, a := range atmList {
			buckets.Unmatched = append(buckets.Unmatched, Outcome{
				ATM:    a,
				Result: ResultUnmatched,
				Reason: ReasonNoSwitch,
			})
		}
		return buckets
	}

	tol := rule.tolerance()
	switchIndex := buildIndex(switchList, ab)
	cbsIndex := buildIndex(cbsList, bc)

	for _, a := range atmList {
		out := classifyOne(a, switchList, cbsList, switchIndex, cbsIndex, ab, bc, tol)
		switch out.Result {
		case ResultMatched:
			buckets.Matched = append(buckets.Matched, out)
		case ResultPartial:
			buckets.Partial = append(buckets.Partial, out)
		default:
			buckets.Unmatched = append(buckets.Unmatched, out)
		}
	}

	return buckets
}

// fieldPair binds a field on the probing record (left) to a field on the
// indexed record (right).
type fieldPair struct {
	left  string
	right string
}

// stagePlan is the flattened constraint set for one stage. Group
// structure is a pure conjunction — every group and every constraint
// within it must hold — so the stage collapses to one EQ list (served by
// the index) and one GE list (filtered after probing).
type stagePlan struct {
	eq []fieldPair
	ge []fieldPair
}

// buildPlans flattens the rule's matching groups into per-stage plans.
// ok is false when the rule has no matching groups at all; one-sided or
// fully-populated field sets are inert and skipped.
func buildPlans(rule *Rule) (ab, bc stagePlan, ok bool) {
	groups := rule.Groups()
	if len(groups) == 0 {
		return stagePlan{}, stagePlan{}, false
	}
	for _, g := range groups {
		for _, f := range g.Fields {
			switch {
			case f.appliesAB():
				pair := fieldPair{left: f.FieldA, right: f.FieldB}
				if f.Operator == OpGE {
					ab.ge = append(ab.ge, pair)
				} else {
					ab.eq = append(ab.eq, pair)
				}
			case f.appliesBC():
				pair := fieldPair{left: f.FieldB, right: f.FieldC}
				if f.Operator == OpGE {
					bc.ge = append(bc.ge, pair)
				} else {
					bc.eq = append(bc.eq, pair)
				}
			}
		}
	}
	return ab, bc, true
}

// recordIndex maps normalized EQ-field values to record positions in
// input order. Position order is what preserves first-candidate-wins
// when probing instead of scanning.
type recordIndex struct {
	keyed map[string][]int
	all   []int
}

const indexKeySep = "\x1f"

func buildIndex(records []*Record, plan stagePlan) recordIndex {
	if len(plan.eq) == 0 {
		ix := recordIndex{all: make([]int, len(records))}
		for i := range records {
			ix.all[i] = i
		}
		return ix
	}
	ix := recordIndex{keyed: make(map[string][]int, len(records))}
	for i, r := range records {
		key := indexKey(r, plan.eq, false)
		ix.keyed[key] = append(ix.keyed[key], i)
	}
	return ix
}

// candidates returns the positions that satisfy the plan's EQ
// constraints against the probe record, in input order.
func (ix recordIndex) candidates(probe *Record, plan stagePlan) []int {
	if ix.keyed == nil {
		return ix.all
	}
	return ix.keyed[indexKey(probe, plan.eq, true)]
}

func indexKey(r *Record, eq []fieldPair, probing bool) string {
	key := ""
	for _, p := range eq {
		name := p.right
		if probing {
			name = p.left
		}
		v, present := r.Get(name)
		key += normalizeValue(v, present) + indexKeySep
	}
	return key
}

func classifyOne(
	a *Record,
	switchList, cbsList []*Record,
	switchIndex, cbsIndex recordIndex,
	ab, bc stagePlan,
	tol Tolerance,
) Outcome {
	var lastSwitch *Record
	var rejectedCBS *Record
	toleranceHit := false

	for _, si := range switchIndex.candidates(a, ab) {
		s := switchList[si]
		if !geHoldsAll(a, s, ab.ge) {
			continue
		}

		// A<->B passed: at worst this record is now a partial.
		lastSwitch = s

		for _, ci := range cbsIndex.candidates(s, bc) {
			c := cbsList[ci]
			if !geHoldsAll(s, c, bc.ge) {
				continue
			}
			if tol.Enforced() && !withinTolerance(a, c, tol) {
				toleranceHit = true
				rejectedCBS = c
				continue
			}
			return Outcome{ATM: a, Switch: s, CBS: c, Result: ResultMatched}
		}
	}

	if lastSwitch != nil {
		if toleranceHit {
			return Outcome{
				ATM:    a,
				Switch: lastSwitch,
				CBS:    rejectedCBS,
				Result: ResultPartial,
				Reason: ReasonTolerance,
			}
		}
		return Outcome{
			ATM:    a,
			Switch: lastSwitch,
			Result: ResultPartial,
			Reason: ReasonNoCBS,
		}
	}

	return Outcome{ATM: a, Result: ResultUnmatched, Reason: ReasonNoSwitch}
}

// geHoldsAll evaluates GE constraints: numeric comparison, failing when
// the left value is smaller or either side is not a number.
func geHoldsAll(left, right *Record, pairs []fieldPair) bool {
	for _, p := range pairs {
		lv, lok := left.Get(p.left)
		rv, rok := right.Get(p.right)
		lf, lnum := lv.Float()
		rf, rnum := rv.Float()
		if !lok || !rok || !lnum || !rnum || lf < rf {
			return false
		}
	}
	return true
}

// withinTolerance checks |ATM.amount - CBS.dr| <= amountDiff, boundary
// inclusive. Missing or non-numeric amounts fail the check; bad data
// downgrades the classification, it never raises.
func withinTolerance(a, c *Record, tol Tolerance) bool {
	atmAmt, ok := amountOf(a, atmAmountField)
	if !ok {
		return false
	}
	cbsAmt, ok := amountOf(c, cbsDebitField)
	if !ok {
		return false
	}
	diff := atmAmt.Sub(cbsAmt).Abs()
	return diff.Cmp(tol.AmountDiff) <= 0
}

func amountOf(r *Record, field string) (decimal.Decimal, bool) {
	v, present := r.Get(field)
	if !present {
		return decimal.Zero, false
	}
	switch v.Kind {
	case KindNumber:
		return decimal.NewFromFloat(v.Num), true
	case KindString:
		d, err := decimal.NewFromString(strings.TrimSpace(v.Str))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}
