package recon

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rec builds a record from alternating name/value pairs.
func rec(source Source, kv ...any) *Record {
	var fields []Field
	for i := 0; i+1 < len(kv); i += 2 {
		name := kv[i].(string)
		var v Value
		switch val := kv[i+1].(type) {
		case nil:
			v = Null()
		case string:
			v = String(val)
		case int:
			v = Number(float64(val))
		case float64:
			v = Number(val)
		case time.Time:
			v = Time(val)
		default:
			panic(fmt.Sprintf("unsupported field value %T", val))
		}
		fields = append(fields, Field{Name: name, Value: v})
	}
	return NewRecord(source, fields)
}

// refRule matches on RRN across all three sources: A.rrn=B.rrn, B.rrn=C.rrn.
func refRule(tol Tolerance) *Rule {
	return &Rule{
		ID:       1,
		Owner:    "10",
		Category: 1,
		MatchCondition: MatchCondition{
			MatchingGroups: []MatchingGroup{
				{Fields: []RuleField{
					{FieldA: "rrn", FieldB: "rrn", Operator: OpEQ},
					{FieldB: "rrn", FieldC: "rrn", Operator: OpEQ},
				}},
			},
		},
		Tolerance: tol,
	}
}

func toleranceOff() Tolerance {
	return Tolerance{AllowAmountDiff: "Y"}
}

func toleranceOn(diff int64) Tolerance {
	return Tolerance{AllowAmountDiff: "N", AmountDiff: decimal.NewFromInt(diff)}
}

func TestClassify_FullMatch(t *testing.T) {
	atm := []*Record{rec(SourceATM, "rrn", "A1", "amount", 100)}
	sw := []*Record{rec(SourceSwitch, "rrn", "A1")}
	cbs := []*Record{rec(SourceCBS, "rrn", "A1", "dr", 100)}

	buckets := Classify(atm, sw, cbs, refRule(toleranceOn(0)))

	require.Len(t, buckets.Matched, 1)
	assert.Empty(t, buckets.Partial)
	assert.Empty(t, buckets.Unmatched)
	assert.Same(t, atm[0], buckets.Matched[0].ATM)
	assert.Same(t, sw[0], buckets.Matched[0].Switch)
	assert.Same(t, cbs[0], buckets.Matched[0].CBS)
	assert.Empty(t, buckets.Matched[0].Reason)
}

func TestClassify_ToleranceExceededIsPartial(t *testing.T) {
	atm := []*Record{rec(SourceATM, "rrn", "A1", "amount", 100)}
	sw := []*Record{rec(SourceSwitch, "rrn", "A1")}
	cbs := []*Record{rec(SourceCBS, "rrn", "A1", "dr", 150)}

	buckets := Classify(atm, sw, cbs, refRule(toleranceOn(0)))

	require.Len(t, buckets.Partial, 1)
	assert.Empty(t, buckets.Matched)
	out := buckets.Partial[0]
	assert.Equal(t, ReasonTolerance, out.Reason)
	assert.Same(t, sw[0], out.Switch)
	assert.Same(t, cbs[0], out.CBS) // the rejected leg is carried
}

func TestClassify_NoSwitchIsUnmatched(t *testing.T) {
	atm := []*Record{rec(SourceATM, "rrn", "A1", "amount", 100)}
	sw := []*Record{rec(SourceSwitch, "rrn", "B7")}
	cbs := []*Record{rec(SourceCBS, "rrn", "A1", "dr", 100)}

	buckets := Classify(atm, sw, cbs, refRule(toleranceOff()))

	require.Len(t, buckets.Unmatched, 1)
	assert.Equal(t, ReasonNoSwitch, buckets.Unmatched[0].Reason)
	assert.Nil(t, buckets.Unmatched[0].Switch)
	assert.Nil(t, buckets.Unmatched[0].CBS)
}

func TestClassify_NoCBSIsPartial(t *testing.T) {
	atm := []*Record{rec(SourceATM, "rrn", "A1", "amount", 100)}
	sw := []*Record{rec(SourceSwitch, "rrn", "A1")}

	buckets := Classify(atm, sw, nil, refRule(toleranceOff()))

	require.Len(t, buckets.Partial, 1)
	assert.Equal(t, ReasonNoCBS, buckets.Partial[0].Reason)
	assert.Nil(t, buckets.Partial[0].CBS)
}

// Degradation chain: removing the only CBS candidate turns a match into
// a partial; removing the only Switch candidate turns it unmatched.
func TestClassify_DegradationChain(t *testing.T) {
	atm := []*Record{rec(SourceATM, "rrn", "A1", "amount", 100)}
	sw := []*Record{rec(SourceSwitch, "rrn", "A1")}
	cbs := []*Record{rec(SourceCBS, "rrn", "A1", "dr", 100)}
	rule := refRule(toleranceOff())

	full := Classify(atm, sw, cbs, rule)
	require.Len(t, full.Matched, 1)

	noCBS := Classify(atm, sw, nil, rule)
	require.Len(t, noCBS.Partial, 1)
	assert.Equal(t, ReasonNoCBS, noCBS.Partial[0].Reason)

	noSwitch := Classify(atm, nil, nil, rule)
	require.Len(t, noSwitch.Unmatched, 1)
	assert.Equal(t, ReasonNoSwitch, noSwitch.Unmatched[0].Reason)
}

func TestClassify_ToleranceBoundaries(t *testing.T) {
	mk := func(dr int) ([]*Record, []*Record, []*Record) {
		return []*Record{rec(SourceATM, "rrn", "A1", "amount", 100)},
			[]*Record{rec(SourceSwitch, "rrn", "A1")},
			[]*Record{rec(SourceCBS, "rrn", "A1", "dr", dr)}
	}

	// Disabled: a 1000-unit difference still matches.
	atm, sw, cbs := mk(1100)
	assert.Len(t, Classify(atm, sw, cbs, refRule(toleranceOff())).Matched, 1)

	// Enabled, threshold 10: diff 10 matches (inclusive), diff 11 does not.
	atm, sw, cbs = mk(110)
	assert.Len(t, Classify(atm, sw, cbs, refRule(toleranceOn(10))).Matched, 1)

	atm, sw, cbs = mk(111)
	buckets := Classify(atm, sw, cbs, refRule(toleranceOn(10)))
	require.Len(t, buckets.Partial, 1)
	assert.Equal(t, ReasonTolerance, buckets.Partial[0].Reason)
}

// Pinned polarity: only "Y" disables the check; empty or any other flag
// enforces it.
func TestClassify_TolerancePolarity(t *testing.T) {
	for _, tc := range []struct {
		flag    string
		matched bool
	}{
		{"Y", true},
		{"y", true},
		{"N", false},
		{"", false},
		{"anything", false},
	} {
		t.Run("flag="+tc.flag, func(t *testing.T) {
			atm := []*Record{rec(SourceATM, "rrn", "A1", "amount", 100)}
			sw := []*Record{rec(SourceSwitch, "rrn", "A1")}
			cbs := []*Record{rec(SourceCBS, "rrn", "A1", "dr", 150)}
			rule := refRule(Tolerance{AllowAmountDiff: tc.flag, AmountDiff: decimal.NewFromInt(10)})

			buckets := Classify(atm, sw, cbs, rule)
			if tc.matched {
				assert.Len(t, buckets.Matched, 1)
			} else {
				assert.Len(t, buckets.Partial, 1)
			}
		})
	}
}

func TestClassify_MissingAmountFailsTolerance(t *testing.T) {
	atm := []*Record{rec(SourceATM, "rrn", "A1")} // no amount field
	sw := []*Record{rec(SourceSwitch, "rrn", "A1")}
	cbs := []*Record{rec(SourceCBS, "rrn", "A1", "dr", 0)}

	buckets := Classify(atm, sw, cbs, refRule(toleranceOn(1000)))

	require.Len(t, buckets.Partial, 1)
	assert.Equal(t, ReasonTolerance, buckets.Partial[0].Reason)
}

func TestClassify_NonNumericAmountFailsTolerance(t *testing.T) {
	atm := []*Record{rec(SourceATM, "rrn", "A1", "amount", "abc")}
	sw := []*Record{rec(SourceSwitch, "rrn", "A1")}
	cbs := []*Record{rec(SourceCBS, "rrn", "A1", "dr", 100)}

	buckets := Classify(atm, sw, cbs, refRule(toleranceOn(1000)))

	require.Len(t, buckets.Partial, 1)
	assert.Equal(t, ReasonTolerance, buckets.Partial[0].Reason)
}

// First-satisfying-candidate wins: with two Switch candidates sharing
// the reference, the later one that completes the chain must be chosen —
// and the record is Matched, not best-scored.
func TestClassify_FirstSatisfyingCandidateWins(t *testing.T) {
	atm := []*Record{rec(SourceATM, "rrn", "A1", "amount", 100)}
	sw := []*Record{
		rec(SourceSwitch, "rrn", "A1", "stan", "111"),
		rec(SourceSwitch, "rrn", "A1", "stan", "222"),
	}
	cbs := []*Record{rec(SourceCBS, "rrn", "A1", "stan", "222", "dr", 100)}

	rule := &Rule{
		MatchCondition: MatchCondition{MatchingGroups: []MatchingGroup{
			{Fields: []RuleField{
				{FieldA: "rrn", FieldB: "rrn"},
				{FieldB: "stan", FieldC: "stan"},
			}},
		}},
		Tolerance: toleranceOff(),
	}

	buckets := Classify(atm, sw, cbs, rule)

	require.Len(t, buckets.Matched, 1)
	assert.Same(t, sw[1], buckets.Matched[0].Switch)
}

// The partial partner is the last A<->B qualifying switch candidate.
func TestClassify_PartialCarriesLastQualifyingSwitch(t *testing.T) {
	atm := []*Record{rec(SourceATM, "rrn", "A1", "amount", 100)}
	sw := []*Record{
		rec(SourceSwitch, "rrn", "A1", "stan", "111"),
		rec(SourceSwitch, "rrn", "A1", "stan", "222"),
	}

	buckets := Classify(atm, sw, nil, refRule(toleranceOff()))

	require.Len(t, buckets.Partial, 1)
	assert.Same(t, sw[1], buckets.Partial[0].Switch)
}

func TestClassify_NilOrEmptyRuleMatchesNothing(t *testing.T) {
	atm := []*Record{rec(SourceATM, "rrn", "A1", "amount", 100)}
	sw := []*Record{rec(SourceSwitch, "rrn", "A1")}
	cbs := []*Record{rec(SourceCBS, "rrn", "A1", "dr", 100)}

	for name, rule := range map[string]*Rule{
		"nil rule":    nil,
		"zero groups": {Tolerance: toleranceOff()},
	} {
		t.Run(name, func(t *testing.T) {
			buckets := Classify(atm, sw, cbs, rule)
			require.Len(t, buckets.Unmatched, 1)
			assert.Equal(t, ReasonNoSwitch, buckets.Unmatched[0].Reason)
		})
	}
}

// A one-sided rule field is inert; a group of only inert fields passes
// vacuously (the stage still has a group, so it is not the empty-rule
// case).
func TestClassify_OneSidedFieldIsSkipped(t *testing.T) {
	atm := []*Record{rec(SourceATM, "rrn", "A1", "amount", 100)}
	sw := []*Record{rec(SourceSwitch, "rrn", "ZZZ")}
	cbs := []*Record{rec(SourceCBS, "rrn", "ZZZ", "dr", 100)}

	rule := &Rule{
		MatchCondition: MatchCondition{MatchingGroups: []MatchingGroup{
			{Fields: []RuleField{{FieldA: "rrn"}}}, // fieldB absent: no-op
		}},
		Tolerance: toleranceOff(),
	}

	buckets := Classify(atm, sw, cbs, rule)
	assert.Len(t, buckets.Matched, 1)
}

func TestClassify_GEConstraint(t *testing.T) {
	rule := &Rule{
		MatchCondition: MatchCondition{MatchingGroups: []MatchingGroup{
			{Fields: []RuleField{
				{FieldA: "rrn", FieldB: "rrn"},
				{FieldA: "amount", FieldB: "amountminor", Operator: OpGE},
				{FieldB: "rrn", FieldC: "rrn"},
			}},
		}},
		Tolerance: toleranceOff(),
	}
	cbs := []*Record{rec(SourceCBS, "rrn", "A1", "dr", 100)}

	// Left >= right holds.
	atm := []*Record{rec(SourceATM, "rrn", "A1", "amount", 100)}
	sw := []*Record{rec(SourceSwitch, "rrn", "A1", "amountminor", 90)}
	assert.Len(t, Classify(atm, sw, cbs, rule).Matched, 1)

	// Left smaller fails the stage.
	sw = []*Record{rec(SourceSwitch, "rrn", "A1", "amountminor", 110)}
	assert.Len(t, Classify(atm, sw, cbs, rule).Unmatched, 1)

	// Non-numeric operand fails conservatively.
	sw = []*Record{rec(SourceSwitch, "rrn", "A1", "amountminor", "n/a")}
	assert.Len(t, Classify(atm, sw, cbs, rule).Unmatched, 1)
}

// Differing representations of the same key must not cause false
// mismatches: numeric strings, floats, padding and case all normalize.
func TestClassify_ValueNormalization(t *testing.T) {
	atm := []*Record{rec(SourceATM, "rrn", " 251218000001 ", "amount", 100)}
	sw := []*Record{rec(SourceSwitch, "rrn", 251218000001.0)}
	cbs := []*Record{rec(SourceCBS, "rrn", "251218000001.0", "dr", "100.00")}

	buckets := Classify(atm, sw, cbs, refRule(toleranceOn(0)))
	assert.Len(t, buckets.Matched, 1)
}

func TestClassify_Totality(t *testing.T) {
	atm := []*Record{
		rec(SourceATM, "rrn", "A1", "amount", 100),
		rec(SourceATM, "rrn", "A2", "amount", 200),
		rec(SourceATM, "rrn", "A3", "amount", 300),
		rec(SourceATM, "rrn", nil),
	}
	sw := []*Record{
		rec(SourceSwitch, "rrn", "A1"),
		rec(SourceSwitch, "rrn", "A2"),
	}
	cbs := []*Record{rec(SourceCBS, "rrn", "A1", "dr", 100)}

	buckets := Classify(atm, sw, cbs, refRule(toleranceOn(0)))

	assert.Equal(t, len(atm), buckets.Total())
	assert.Len(t, buckets.Matched, 1)
	assert.Len(t, buckets.Partial, 1)
	assert.Len(t, buckets.Unmatched, 2)
}

func TestClassify_DoesNotMutateInputs(t *testing.T) {
	atm := []*Record{rec(SourceATM, "rrn", "A1", "amount", 100)}
	sw := []*Record{rec(SourceSwitch, "rrn", "A1")}
	cbs := []*Record{rec(SourceCBS, "rrn", "A1", "dr", 100)}
	rule := refRule(toleranceOn(0))

	first := Classify(atm, sw, cbs, rule)
	second := Classify(atm, sw, cbs, rule)

	assert.Equal(t, first, second)
}

// The hash-join production path must agree with the nested-loop
// reference on every classification, including tie-breaks and reasons.
func TestClassify_AgreesWithNestedLoopReference(t *testing.T) {
	refs := []string{"R1", "R2", "R3", "R4", "R5", "R6"}
	stans := []string{"1", "2", "3"}

	var atm, sw, cbs []*Record
	for i, ref := range refs {
		atm = append(atm, rec(SourceATM, "rrn", ref, "amount", 100+i*7, "stan", stans[i%3]))
	}
	// Duplicated and shuffled candidates to exercise tie-breaks.
	for i := 0; i < 12; i++ {
		sw = append(sw, rec(SourceSwitch,
			"rrn", refs[(i*5)%len(refs)],
			"stan", stans[i%3],
			"amountminor", 90+i*3,
		))
	}
	for i := 0; i < 9; i++ {
		cbs = append(cbs, rec(SourceCBS,
			"rrn", refs[(i*7)%len(refs)],
			"stan", stans[(i+1)%3],
			"dr", 95+i*8,
		))
	}

	rules := []*Rule{
		refRule(toleranceOff()),
		refRule(toleranceOn(25)),
		{
			MatchCondition: MatchCondition{MatchingGroups: []MatchingGroup{
				{Fields: []RuleField{
					{FieldA: "rrn", FieldB: "rrn"},
					{FieldA: "amount", FieldB: "amountminor", Operator: OpGE},
				}},
				{Fields: []RuleField{
					{FieldB: "stan", FieldC: "stan"},
				}},
			}},
			Tolerance: toleranceOn(40),
		},
	}

	for i, rule := range rules {
		t.Run(fmt.Sprintf("rule_%d", i), func(t *testing.T) {
			got := Classify(atm, sw, cbs, rule)
			want := classifyNestedLoop(atm, sw, cbs, rule)
			assert.Equal(t, want, got)
		})
	}
}
