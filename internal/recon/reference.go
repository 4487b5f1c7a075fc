package recon

// classifyNestedLoop is the straight O(|ATM|*|Switch|*|CBS|) rendition
// of the classification contract, evaluating the rule's group structure
// literally against every candidate. It exists so the hash-join path in
// Classify can be checked against it; tests assert the two produce
// identical buckets for the same ordered inputs.
func classifyNestedLoop(atmList, switchList, cbsList []*Record, rule *Rule) Buckets {
	buckets := Buckets{
		Matched:   []Outcome{},
		Partial:   []Outcome{},
		Unmatched: []Outcome{},
	}

	groups := rule.Groups()
	tol := rule.tolerance()

	for _, a := range atmList {
		var matched *Outcome
		var lastSwitch *Record
		var rejectedCBS *Record
		toleranceHit := false

		for _, s := range switchList {
			if len(groups) == 0 || !stagePasses(groups, func(f RuleField) (bool, bool) {
				if !f.appliesAB() {
					return true, false
				}
				return constraintHolds(a, s, f.FieldA, f.FieldB, f.Operator), true
			}) {
				continue
			}

			lastSwitch = s

			for _, c := range cbsList {
				if !stagePasses(groups, func(f RuleField) (bool, bool) {
					if !f.appliesBC() {
						return true, false
					}
					return constraintHolds(s, c, f.FieldB, f.FieldC, f.Operator), true
				}) {
					continue
				}
				if tol.Enforced() && !withinTolerance(a, c, tol) {
					toleranceHit = true
					rejectedCBS = c
					continue
				}
				matched = &Outcome{ATM: a, Switch: s, CBS: c, Result: ResultMatched}
				break
			}
			if matched != nil {
				break
			}
		}

		switch {
		case matched != nil:
			buckets.Matched = append(buckets.Matched, *matched)
		case lastSwitch != nil && toleranceHit:
			buckets.Partial = append(buckets.Partial, Outcome{
				ATM: a, Switch: lastSwitch, CBS: rejectedCBS,
				Result: ResultPartial, Reason: ReasonTolerance,
			})
		case lastSwitch != nil:
			buckets.Partial = append(buckets.Partial, Outcome{
				ATM: a, Switch: lastSwitch,
				Result: ResultPartial, Reason: ReasonNoCBS,
			})
		default:
			buckets.Unmatched = append(buckets.Unmatched, Outcome{
				ATM: a, Result: ResultUnmatched, Reason: ReasonNoSwitch,
			})
		}
	}

	return buckets
}

// stagePasses walks every group and constraint; eval returns
// (holds, applicable). A group fails on its first applicable constraint
// that does not hold; the stage passes only when all groups pass.
func stagePasses(groups []MatchingGroup, eval func(RuleField) (bool, bool)) bool {
	for _, g := range groups {
		for _, f := range g.Fields {
			holds, applicable := eval(f)
			if applicable && !holds {
				return false
			}
		}
	}
	return true
}

func constraintHolds(left, right *Record, leftField, rightField string, op Operator) bool {
	if op == OpGE {
		return geHoldsAll(left, right, []fieldPair{{left: leftField, right: rightField}})
	}
	lv, lok := left.Get(leftField)
	rv, rok := right.Get(rightField)
	return normalizeValue(lv, lok) == normalizeValue(rv, rok)
}
