package dto

import (
	"github.com/nitindhyani1996/recon-backend/internal/recon"
)

// CreateRuleRequest is the wire form of a new matching rule.
type CreateRuleRequest struct {
	AddedBy        string               `json:"addedBy"`
	RuleCategory   int                  `json:"ruleCategory"`
	Basic          map[string]any       `json:"basic,omitempty"`
	Classification map[string]any       `json:"classification,omitempty"`
	MatchCondition recon.MatchCondition `json:"matchCondition"`
	Tolerance      recon.Tolerance      `json:"tolerance"`
}

// ToRule converts the request to a domain rule.
func (r CreateRuleRequest) ToRule() *recon.Rule {
	return &recon.Rule{
		Owner:          r.AddedBy,
		Category:       r.RuleCategory,
		BasicDetails:   r.Basic,
		Classification: r.Classification,
		MatchCondition: r.MatchCondition,
		Tolerance:      r.Tolerance,
	}
}

// UpdateRuleRequest carries a partial rule update; absent fields keep
// their stored value.
type UpdateRuleRequest struct {
	AddedBy        *string               `json:"addedBy,omitempty"`
	RuleCategory   *int                  `json:"ruleCategory,omitempty"`
	Basic          *map[string]any       `json:"basic,omitempty"`
	Classification *map[string]any       `json:"classification,omitempty"`
	MatchCondition *recon.MatchCondition `json:"matchCondition,omitempty"`
	Tolerance      *recon.Tolerance      `json:"tolerance,omitempty"`
}

// StartRunRequest starts a reconciliation run.
type StartRunRequest struct {
	AddedBy      int64 `json:"addedBy,omitempty"`
	RuleCategory int   `json:"ruleCategory,omitempty"`
	RuleID       int64 `json:"ruleId,omitempty"`
}

// UploadATMRequest is a bulk upload of ATM feed rows.
type UploadATMRequest struct {
	Transactions []ATMTransactionRequest `json:"transactions" binding:"required"`
}

type ATMTransactionRequest struct {
	DateTime        string   `json:"datetime,omitempty"`
	TerminalID      string   `json:"terminalid,omitempty"`
	Location        string   `json:"location,omitempty"`
	ATMIndex        string   `json:"atmindex,omitempty"`
	PANMasked       string   `json:"pan_masked,omitempty"`
	AccountMasked   string   `json:"account_masked,omitempty"`
	TransactionType string   `json:"transactiontype,omitempty"`
	Amount          *float64 `json:"amount,omitempty"`
	Currency        string   `json:"currency,omitempty"`
	STAN            string   `json:"stan,omitempty"`
	RRN             string   `json:"rrn"`
	Auth            string   `json:"auth,omitempty"`
	ResponseCode    string   `json:"responsecode,omitempty"`
	ResponseDesc    string   `json:"responsedesc,omitempty"`
}

// UploadSwitchRequest is a bulk upload of switch feed rows.
type UploadSwitchRequest struct {
	Transactions []SwitchTransactionRequest `json:"transactions" binding:"required"`
}

type SwitchTransactionRequest struct {
	DateTime       string   `json:"datetime,omitempty"`
	Direction      string   `json:"direction,omitempty"`
	MTI            int64    `json:"mti,omitempty"`
	PANMasked      string   `json:"pan_masked,omitempty"`
	ProcessingCode int64    `json:"processingcode,omitempty"`
	AmountMinor    *float64 `json:"amountminor,omitempty"`
	Currency       string   `json:"currency,omitempty"`
	STAN           string   `json:"stan,omitempty"`
	RRN            string   `json:"rrn"`
	TerminalID     string   `json:"terminalid,omitempty"`
	Source         string   `json:"source,omitempty"`
	Destination    string   `json:"destination,omitempty"`
	ResponseCode   string   `json:"responsecode,omitempty"`
	AuthID         string   `json:"authid,omitempty"`
}

// UploadCBSRequest is a bulk upload of core-banking ledger rows.
type UploadCBSRequest struct {
	Transactions []CBSTransactionRequest `json:"transactions" binding:"required"`
}

type CBSTransactionRequest struct {
	PostedDateTime string   `json:"posted_datetime,omitempty"`
	FCTxnID        string   `json:"fc_txn_id,omitempty"`
	RRN            string   `json:"rrn"`
	STAN           string   `json:"stan,omitempty"`
	AccountMasked  string   `json:"account_masked,omitempty"`
	DR             *float64 `json:"dr,omitempty"`
	CR             *float64 `json:"cr,omitempty"`
	Currency       string   `json:"currency,omitempty"`
	Status         string   `json:"status,omitempty"`
	Description    string   `json:"description,omitempty"`
}
