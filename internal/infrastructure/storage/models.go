package storage

import (
	"time"

	"github.com/nitindhyani1996/recon-backend/internal/recon"
)

// ATMTransaction is one row of the ATM channel feed.
type ATMTransaction struct {
	ID              int64      `json:"id"`
	DateTime        *time.Time `json:"datetime,omitempty"`
	TerminalID      string     `json:"terminalid"`
	Location        string     `json:"location"`
	ATMIndex        string     `json:"atmindex"`
	PANMasked       string     `json:"pan_masked"`
	AccountMasked   string     `json:"account_masked"`
	TransactionType string     `json:"transactiontype"`
	Amount          *float64   `json:"amount,omitempty"`
	Currency        string     `json:"currency"`
	STAN            string     `json:"stan"`
	RRN             string     `json:"rrn"`
	Auth            string     `json:"auth"`
	ResponseCode    string     `json:"responsecode"`
	ResponseDesc    string     `json:"responsedesc"`
	UploadedBy      int64      `json:"uploaded_by"`
}

// SwitchTransaction is one row of the card-network switch feed.
type SwitchTransaction struct {
	ID             int64      `json:"id"`
	DateTime       *time.Time `json:"datetime,omitempty"`
	Direction      string     `json:"direction"`
	MTI            int64      `json:"mti"`
	PANMasked      string     `json:"pan_masked"`
	ProcessingCode int64      `json:"processingcode"`
	AmountMinor    *float64   `json:"amountminor,omitempty"`
	Currency       string     `json:"currency"`
	STAN           string     `json:"stan"`
	RRN            string     `json:"rrn"`
	TerminalID     string     `json:"terminalid"`
	Source         string     `json:"source"`
	Destination    string     `json:"destination"`
	ResponseCode   string     `json:"responsecode"`
	AuthID         string     `json:"authid"`
	UploadedBy     int64      `json:"uploaded_by"`
}

// CBSTransaction is one row of the core-banking ledger feed.
type CBSTransaction struct {
	ID             int64      `json:"id"`
	PostedDateTime *time.Time `json:"posted_datetime,omitempty"`
	FCTxnID        string     `json:"fc_txn_id"`
	RRN            string     `json:"rrn"`
	STAN           string     `json:"stan"`
	AccountMasked  string     `json:"account_masked"`
	DR             *float64   `json:"dr,omitempty"`
	CR             *float64   `json:"cr,omitempty"`
	Currency       string     `json:"currency"`
	Status         string     `json:"status"`
	Description    string     `json:"description"`
	UploadedBy     int64      `json:"uploaded_by"`
}

// ReconSummary is one persisted reconciliation run: the three encoded
// buckets keyed by a unique run reference. Re-running with the same
// reference overwrites the buckets in place.
type ReconSummary struct {
	ID               int64     `json:"id"`
	Reference        string    `json:"recon_reference_number"`
	MatchedEncoded   string    `json:"matched"`
	PartialEncoded   string    `json:"partially_matched"`
	UnmatchedEncoded string    `json:"un_matched"`
	AddedBy          int64     `json:"added_by"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// RuleUpdate is a partial update of a stored matching rule; nil fields
// are left unchanged.
type RuleUpdate struct {
	BasicDetails   *map[string]any
	Classification *map[string]any
	Category       *int
	MatchCondition *recon.MatchCondition
	Tolerance      *recon.Tolerance
	Owner          *string
}

// SourceField describes one matchable column of a source feed, used to
// populate the rule editor.
type SourceField struct {
	ColumnName string `json:"column_name"`
	Type       string `json:"type"`
}

// PageQuery carries pagination and filtering for aggregate listings.
type PageQuery struct {
	Offset int
	Limit  int
	Search string       // optional RRN substring filter
	Source recon.Source // optional source filter (unmatched listing only)
}

// normalize applies the listing defaults and bounds.
func (q PageQuery) normalize() PageQuery {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Limit > 500 {
		q.Limit = 500
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// MatchTotals are the live aggregate counts over the raw tables.
type MatchTotals struct {
	TotalRecords     int     `json:"totalRecords"`
	FullyMatched     int     `json:"fullyMatched"`
	PartiallyMatched int     `json:"partiallyMatched"`
	Unmatched        int     `json:"unmatched"`
	MatchPercentage  float64 `json:"matchPercentage"`
}

// TxnLeg is one source's contribution to an aggregate row. Fields not
// reported by a source stay nil and are omitted from responses.
type TxnLeg struct {
	DateTime  *string  `json:"datetime,omitempty"`
	Terminal  *string  `json:"terminal,omitempty"`
	Location  *string  `json:"location,omitempty"`
	Direction *string  `json:"direction,omitempty"`
	TxnID     *string  `json:"txn_id,omitempty"`
	Amount    *float64 `json:"amount,omitempty"`
	Type      *string  `json:"type,omitempty"`
	Status    *string  `json:"status,omitempty"`
	Response  *string  `json:"response,omitempty"`
}

// MatchedRow is one fully matched RRN with its three legs.
type MatchedRow struct {
	RRN         string  `json:"rrn"`
	MatchStatus string  `json:"match_status"`
	ATM         *TxnLeg `json:"atm"`
	Switch      *TxnLeg `json:"switch"`
	CBS         *TxnLeg `json:"cbs"`
}

// PartialRow is one RRN present in exactly two sources.
type PartialRow struct {
	RRN            string   `json:"rrn"`
	MatchStatus    string   `json:"match_status"`
	MatchedSources []string `json:"matched_sources"`
	MissingSource  string   `json:"missing_source"`
	ATM            *TxnLeg  `json:"atm,omitempty"`
	Switch         *TxnLeg  `json:"switch,omitempty"`
	CBS            *TxnLeg  `json:"cbs,omitempty"`
}

// UnmatchedRow is one RRN present in only a single source.
type UnmatchedRow struct {
	RRN         string   `json:"rrn"`
	MatchStatus string   `json:"match_status"`
	Source      string   `json:"source"`
	DateTime    *string  `json:"datetime,omitempty"`
	Terminal    *string  `json:"terminal,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
	Type        *string  `json:"type,omitempty"`
	Response    *string  `json:"response,omitempty"`
}

// RRNDetail is the per-reference investigation view: which sources hold
// the RRN and what each reported.
type RRNDetail struct {
	RRN          string   `json:"rrn"`
	MatchStatus  string   `json:"match_status"`
	SourcesFound []string `json:"sources_found"`
	SourceCount  int      `json:"source_count"`
	ATM          *TxnLeg  `json:"atm,omitempty"`
	Switch       *TxnLeg  `json:"switch,omitempty"`
	CBS          *TxnLeg  `json:"cbs,omitempty"`
}

// Aggregate match status labels shared with the HTTP layer.
const (
	StatusFullyMatched     = "FULLY_MATCHED"
	StatusPartiallyMatched = "PARTIALLY_MATCHED"
	StatusUnmatched        = "UNMATCHED"
)
