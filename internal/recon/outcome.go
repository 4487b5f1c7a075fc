package recon

// ResultTag labels the classification bucket an ATM record landed in.
type ResultTag string

const (
	ResultMatched   ResultTag = "MATCHED"
	ResultPartial   ResultTag = "PARTIAL"
	ResultUnmatched ResultTag = "UNMATCHED"
)

// Classification reasons surfaced on non-matched outcomes. All
// classification-time failures are absorbed into these; the engine
// never returns an error.
const (
	ReasonNoSwitch  = "No matching Switch record"
	ReasonNoCBS     = "No matching CBS record"
	ReasonTolerance = "Amount tolerance exceeded"
)

// Outcome is the classification of one ATM record. Exactly one outcome
// is produced per ATM record per run.
//
//	Matched:   Switch and CBS are both set, Reason is empty.
//	Partial:   Switch is the last A<->B qualifying candidate; CBS is the
//	           tolerance-rejected leg when Reason is ReasonTolerance,
//	           nil otherwise.
//	Unmatched: only ATM is set.
type Outcome struct {
	ATM    *Record
	Switch *Record
	CBS    *Record
	Result ResultTag
	Reason string
}

// Buckets groups a run's outcomes by classification.
type Buckets struct {
	Matched   []Outcome
	Partial   []Outcome
	Unmatched []Outcome
}

// Total returns the number of classified ATM records.
func (b Buckets) Total() int {
	return len(b.Matched) + len(b.Partial) + len(b.Unmatched)
}
