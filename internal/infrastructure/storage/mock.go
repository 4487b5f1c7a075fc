package storage

import (
	"context"
	"strings"
	"time"

	"github.com/nitindhyani1996/recon-backend/internal/recon"
)

// MockRepository is an in-memory Repository for tests. Each method
// records that it was called and returns the injected error if one is
// set.
type MockRepository struct {
	ATMTransactions    []*ATMTransaction
	SwitchTransactions []*SwitchTransaction
	CBSTransactions    []*CBSTransaction

	Records   map[recon.Source][]*recon.Record
	Rules     []*recon.Rule
	Summaries []*ReconSummary

	Fields map[recon.Source][]SourceField
	Totals *MatchTotals

	InsertCalled      bool
	LoadRecordsCalled bool
	SaveRuleCalled    bool
	GetActiveCalled   bool
	SaveSummaryCalled bool
	DeleteCalled      bool
	CloseCalled       bool

	InsertError      error
	LoadRecordsError error
	RuleError        error
	SummaryError     error
	AggregateError   error

	nextRuleID    int64
	nextSummaryID int64
}

// NewMockRepository returns an empty mock ready for use.
func NewMockRepository() *MockRepository {
	return &MockRepository{
		Records: make(map[recon.Source][]*recon.Record),
		Fields:  make(map[recon.Source][]SourceField),
	}
}

func (m *MockRepository) InsertATMTransactions(_ context.Context, txns []*ATMTransaction) (int, error) {
	m.InsertCalled = true
	if m.InsertError != nil {
		return 0, m.InsertError
	}
	m.ATMTransactions = append(m.ATMTransactions, txns...)
	return len(txns), nil
}

func (m *MockRepository) InsertSwitchTransactions(_ context.Context, txns []*SwitchTransaction) (int, error) {
	m.InsertCalled = true
	if m.InsertError != nil {
		return 0, m.InsertError
	}
	m.SwitchTransactions = append(m.SwitchTransactions, txns...)
	return len(txns), nil
}

func (m *MockRepository) InsertCBSTransactions(_ context.Context, txns []*CBSTransaction) (int, error) {
	m.InsertCalled = true
	if m.InsertError != nil {
		return 0, m.InsertError
	}
	m.CBSTransactions = append(m.CBSTransactions, txns...)
	return len(txns), nil
}

func (m *MockRepository) LoadRecords(_ context.Context, source recon.Source) ([]*recon.Record, error) {
	m.LoadRecordsCalled = true
	if m.LoadRecordsError != nil {
		return nil, m.LoadRecordsError
	}
	return m.Records[source], nil
}

func (m *MockRepository) CountTransactions(_ context.Context, source recon.Source) (int, error) {
	if m.LoadRecordsError != nil {
		return 0, m.LoadRecordsError
	}
	return len(m.Records[source]), nil
}

func (m *MockRepository) SaveRule(_ context.Context, rule *recon.Rule) (*recon.Rule, error) {
	m.SaveRuleCalled = true
	if m.RuleError != nil {
		return nil, m.RuleError
	}
	m.nextRuleID++
	saved := *rule
	saved.ID = m.nextRuleID
	m.Rules = append(m.Rules, &saved)
	return &saved, nil
}

func (m *MockRepository) UpdateRule(_ context.Context, id int64, update RuleUpdate) (*recon.Rule, error) {
	if m.RuleError != nil {
		return nil, m.RuleError
	}
	for _, r := range m.Rules {
		if r.ID != id {
			continue
		}
		if update.Category != nil {
			r.Category = *update.Category
		}
		if update.MatchCondition != nil {
			r.MatchCondition = *update.MatchCondition
		}
		if update.Tolerance != nil {
			r.Tolerance = *update.Tolerance
		}
		if update.Owner != nil {
			r.Owner = *update.Owner
		}
		if update.BasicDetails != nil {
			r.BasicDetails = *update.BasicDetails
		}
		if update.Classification != nil {
			r.Classification = *update.Classification
		}
		return r, nil
	}
	return nil, nil
}

func (m *MockRepository) GetRule(_ context.Context, id int64) (*recon.Rule, error) {
	if m.RuleError != nil {
		return nil, m.RuleError
	}
	for _, r := range m.Rules {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (m *MockRepository) ListRules(_ context.Context, owner string, category int) ([]*recon.Rule, error) {
	if m.RuleError != nil {
		return nil, m.RuleError
	}
	var out []*recon.Rule
	for i := len(m.Rules) - 1; i >= 0; i-- {
		r := m.Rules[i]
		if owner != "" && r.Owner != owner {
			continue
		}
		if category >= 0 && r.Category != category {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *MockRepository) GetActiveRule(_ context.Context, owner string, category int) (*recon.Rule, error) {
	m.GetActiveCalled = true
	if m.RuleError != nil {
		return nil, m.RuleError
	}
	for i := len(m.Rules) - 1; i >= 0; i-- {
		r := m.Rules[i]
		if r.Owner == owner && r.Category == category {
			return r, nil
		}
	}
	return nil, nil
}

func (m *MockRepository) SourceFields(_ context.Context, source recon.Source) ([]SourceField, error) {
	if m.RuleError != nil {
		return nil, m.RuleError
	}
	return m.Fields[source], nil
}

func (m *MockRepository) SaveSummary(_ context.Context, summary *ReconSummary) (*ReconSummary, error) {
	m.SaveSummaryCalled = true
	if m.SummaryError != nil {
		return nil, m.SummaryError
	}
	for _, s := range m.Summaries {
		if s.Reference == summary.Reference {
			s.MatchedEncoded = summary.MatchedEncoded
			s.PartialEncoded = summary.PartialEncoded
			s.UnmatchedEncoded = summary.UnmatchedEncoded
			s.AddedBy = summary.AddedBy
			s.UpdatedAt = time.Now()
			return s, nil
		}
	}
	m.nextSummaryID++
	saved := *summary
	saved.ID = m.nextSummaryID
	saved.CreatedAt = time.Now()
	saved.UpdatedAt = saved.CreatedAt
	m.Summaries = append(m.Summaries, &saved)
	return &saved, nil
}

func (m *MockRepository) GetSummaryByReference(_ context.Context, reference string) (*ReconSummary, error) {
	if m.SummaryError != nil {
		return nil, m.SummaryError
	}
	for _, s := range m.Summaries {
		if s.Reference == reference {
			return s, nil
		}
	}
	return nil, nil
}

func (m *MockRepository) GetLatestSummary(_ context.Context) (*ReconSummary, error) {
	if m.SummaryError != nil {
		return nil, m.SummaryError
	}
	if len(m.Summaries) == 0 {
		return nil, nil
	}
	return m.Summaries[len(m.Summaries)-1], nil
}

func (m *MockRepository) DeleteSummary(_ context.Context, reference string) error {
	m.DeleteCalled = true
	if m.SummaryError != nil {
		return m.SummaryError
	}
	for i, s := range m.Summaries {
		if s.Reference == reference {
			m.Summaries = append(m.Summaries[:i], m.Summaries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MockRepository) MatchTotals(_ context.Context) (*MatchTotals, error) {
	if m.AggregateError != nil {
		return nil, m.AggregateError
	}
	if m.Totals != nil {
		return m.Totals, nil
	}
	return &MatchTotals{}, nil
}

func (m *MockRepository) ListFullyMatched(_ context.Context, _ PageQuery) ([]*MatchedRow, int, error) {
	if m.AggregateError != nil {
		return nil, 0, m.AggregateError
	}
	return nil, 0, nil
}

func (m *MockRepository) ListPartiallyMatched(_ context.Context, _ PageQuery) ([]*PartialRow, int, error) {
	if m.AggregateError != nil {
		return nil, 0, m.AggregateError
	}
	return nil, 0, nil
}

func (m *MockRepository) ListUnmatched(_ context.Context, _ PageQuery) ([]*UnmatchedRow, int, error) {
	if m.AggregateError != nil {
		return nil, 0, m.AggregateError
	}
	return nil, 0, nil
}

func (m *MockRepository) InvestigateRRN(_ context.Context, rrn string) (*RRNDetail, error) {
	if m.AggregateError != nil {
		return nil, m.AggregateError
	}
	key := strings.ToUpper(strings.TrimSpace(rrn))
	var found []string
	for _, src := range []recon.Source{recon.SourceATM, recon.SourceSwitch, recon.SourceCBS} {
		for _, rec := range m.Records[src] {
			if rec.Key == key {
				found = append(found, string(src))
				break
			}
		}
	}
	if len(found) == 0 {
		return nil, nil
	}
	detail := &RRNDetail{RRN: key, SourcesFound: found, SourceCount: len(found)}
	switch len(found) {
	case 3:
		detail.MatchStatus = StatusFullyMatched
	case 2:
		detail.MatchStatus = StatusPartiallyMatched
	default:
		detail.MatchStatus = StatusUnmatched
	}
	return detail, nil
}

func (m *MockRepository) Close() error {
	m.CloseCalled = true
	return nil
}

var _ Repository = (*MockRepository)(nil)
