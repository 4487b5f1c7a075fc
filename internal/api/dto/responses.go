package dto

import (
	"time"

	"github.com/nitindhyani1996/recon-backend/internal/codec"
	"github.com/nitindhyani1996/recon-backend/internal/recon"
)

// RuleResponse is the wire form of a stored rule.
type RuleResponse struct {
	ID             int64                `json:"id"`
	AddedBy        string               `json:"addedBy"`
	RuleCategory   int                  `json:"ruleCategory"`
	Basic          map[string]any       `json:"basic,omitempty"`
	Classification map[string]any       `json:"classification,omitempty"`
	MatchCondition recon.MatchCondition `json:"matchCondition"`
	Tolerance      recon.Tolerance      `json:"tolerance"`
}

// ToRuleResponse converts a domain rule to its wire form.
func ToRuleResponse(r *recon.Rule) RuleResponse {
	return RuleResponse{
		ID:             r.ID,
		AddedBy:        r.Owner,
		RuleCategory:   r.Category,
		Basic:          r.BasicDetails,
		Classification: r.Classification,
		MatchCondition: r.MatchCondition,
		Tolerance:      r.Tolerance,
	}
}

// RunResponse reports the state of one reconciliation job.
type RunResponse struct {
	JobID       string             `json:"jobId"`
	Status      string             `json:"status"`
	Phase       string             `json:"phase"`
	StartedAt   time.Time          `json:"startedAt"`
	CompletedAt *time.Time         `json:"completedAt,omitempty"`
	Result      *RunResultResponse `json:"result,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// RunResultResponse summarizes a completed run.
type RunResultResponse struct {
	Reference        string `json:"reconReferenceNumber"`
	TotalRecords     int    `json:"totalRecords"`
	Matched          int    `json:"matched"`
	PartiallyMatched int    `json:"partiallyMatched"`
	Unmatched        int    `json:"unmatched"`
}

// StartRunResponse acknowledges an accepted run.
type StartRunResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

// SummaryResponse is a persisted run decoded for display: the three
// buckets as frontend projection rows.
type SummaryResponse struct {
	Reference        string      `json:"reconReferenceNumber"`
	Matched          []codec.Row `json:"matched"`
	PartiallyMatched []codec.Row `json:"partiallyMatched"`
	Unmatched        []codec.Row `json:"unmatched"`
	AddedBy          int64       `json:"addedBy"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// ListResponse is the envelope for paged aggregate listings.
type ListResponse struct {
	Status    string `json:"status"`
	MatchType string `json:"matchType"`
	Total     int    `json:"total"`
	Offset    int    `json:"offset"`
	Limit     int    `json:"limit"`
	Data      any    `json:"data"`
}

// UploadResponse acknowledges a bulk feed upload.
type UploadResponse struct {
	Source   string `json:"source"`
	Inserted int    `json:"inserted"`
}
