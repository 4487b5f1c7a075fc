package storage

import (
	"context"

	"github.com/nitindhyani1996/recon-backend/internal/recon"
)

// TransactionRepository persists and loads the three source feeds.
type TransactionRepository interface {
	InsertATMTransactions(ctx context.Context, txns []*ATMTransaction) (int, error)
	InsertSwitchTransactions(ctx context.Context, txns []*SwitchTransaction) (int, error)
	InsertCBSTransactions(ctx context.Context, txns []*CBSTransaction) (int, error)

	// LoadRecords returns every row of one source as matching records,
	// ordered by insertion id.
	LoadRecords(ctx context.Context, source recon.Source) ([]*recon.Record, error)
	CountTransactions(ctx context.Context, source recon.Source) (int, error)
}

// RuleRepository manages stored matching rules. Lookups return
// (nil, nil) when no rule exists.
type RuleRepository interface {
	SaveRule(ctx context.Context, rule *recon.Rule) (*recon.Rule, error)
	UpdateRule(ctx context.Context, id int64, update RuleUpdate) (*recon.Rule, error)
	GetRule(ctx context.Context, id int64) (*recon.Rule, error)
	ListRules(ctx context.Context, owner string, category int) ([]*recon.Rule, error)
	// GetActiveRule returns the newest rule for one (owner, category)
	// pair.
	GetActiveRule(ctx context.Context, owner string, category int) (*recon.Rule, error)
	SourceFields(ctx context.Context, source recon.Source) ([]SourceField, error)
}

// SummaryRepository stores encoded reconciliation run results.
// Reference lookups return (nil, nil) on a miss.
type SummaryRepository interface {
	// SaveSummary inserts the summary, or overwrites the bucket columns
	// when the reference already exists. The write is atomic.
	SaveSummary(ctx context.Context, summary *ReconSummary) (*ReconSummary, error)
	GetSummaryByReference(ctx context.Context, reference string) (*ReconSummary, error)
	GetLatestSummary(ctx context.Context) (*ReconSummary, error)
	DeleteSummary(ctx context.Context, reference string) error
}

// AggregateRepository answers presence-based queries over the raw
// feeds, independent of any stored rule or run.
type AggregateRepository interface {
	MatchTotals(ctx context.Context) (*MatchTotals, error)
	ListFullyMatched(ctx context.Context, q PageQuery) ([]*MatchedRow, int, error)
	ListPartiallyMatched(ctx context.Context, q PageQuery) ([]*PartialRow, int, error)
	ListUnmatched(ctx context.Context, q PageQuery) ([]*UnmatchedRow, int, error)
	InvestigateRRN(ctx context.Context, rrn string) (*RRNDetail, error)
}

// Repository is the full persistence surface the application depends on.
type Repository interface {
	TransactionRepository
	RuleRepository
	SummaryRepository
	AggregateRepository

	Close() error
}
