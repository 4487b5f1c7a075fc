package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/nitindhyani1996/recon-backend/internal/recon"
)

// Presence queries work over normalized references: trimmed, uppercased
// and cast to text so numeric and padded variants of the same RRN
// collapse to one key.
const rrnUnion = `
	all_rrns AS (
		SELECT UPPER(TRIM(CAST(rrn AS TEXT))) AS rrn, 'ATM' AS source
		FROM atm_transactions
		WHERE rrn IS NOT NULL AND TRIM(CAST(rrn AS TEXT)) != ''
		UNION ALL
		SELECT UPPER(TRIM(CAST(rrn AS TEXT))), 'SWITCH'
		FROM switch_transactions
		WHERE rrn IS NOT NULL AND TRIM(CAST(rrn AS TEXT)) != ''
		UNION ALL
		SELECT UPPER(TRIM(CAST(rrn AS TEXT))), 'CBS'
		FROM cbs_transactions
		WHERE rrn IS NOT NULL AND TRIM(CAST(rrn AS TEXT)) != ''
	),
	rrn_presence AS (
		SELECT rrn,
		       COUNT(DISTINCT source) AS source_count,
		       GROUP_CONCAT(DISTINCT source) AS sources
		FROM all_rrns
		GROUP BY rrn
	)`

// MatchTotals computes the live presence counts over the raw feeds.
func (s *Storage) MatchTotals(ctx context.Context) (*MatchTotals, error) {
	row := s.db.QueryRowContext(ctx, `
		WITH `+rrnUnion+`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN source_count = 3 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN source_count = 2 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN source_count = 1 THEN 1 ELSE 0 END), 0)
		FROM rrn_presence
	`)

	var totals MatchTotals
	if err := row.Scan(&totals.TotalRecords, &totals.FullyMatched,
		&totals.PartiallyMatched, &totals.Unmatched); err != nil {
		return nil, fmt.Errorf("failed to compute match totals: %w", err)
	}
	if totals.TotalRecords > 0 {
		pct := float64(totals.FullyMatched) / float64(totals.TotalRecords) * 100
		totals.MatchPercentage = math.Round(pct*100) / 100
	}
	return &totals, nil
}

// ListFullyMatched pages through the RRNs present in all three sources.
func (s *Storage) ListFullyMatched(ctx context.Context, q PageQuery) ([]*MatchedRow, int, error) {
	q = q.normalize()
	rrns, total, err := s.pageRRNs(ctx, 3, q, "")
	if err != nil {
		return nil, 0, err
	}

	rows := make([]*MatchedRow, 0, len(rrns))
	for _, rrn := range rrns {
		atm, err := s.atmLeg(ctx, rrn)
		if err != nil {
			return nil, 0, err
		}
		sw, err := s.switchLeg(ctx, rrn)
		if err != nil {
			return nil, 0, err
		}
		cbs, err := s.cbsLeg(ctx, rrn)
		if err != nil {
			return nil, 0, err
		}
		rows = append(rows, &MatchedRow{
			RRN:         rrn,
			MatchStatus: StatusFullyMatched,
			ATM:         atm,
			Switch:      sw,
			CBS:         cbs,
		})
	}
	return rows, total, nil
}

// ListPartiallyMatched pages through the RRNs present in exactly two
// sources, reporting which source is missing.
func (s *Storage) ListPartiallyMatched(ctx context.Context, q PageQuery) ([]*PartialRow, int, error) {
	q = q.normalize()
	rrns, total, err := s.pageRRNsWithSources(ctx, 2, q, "")
	if err != nil {
		return nil, 0, err
	}

	rows := make([]*PartialRow, 0, len(rrns))
	for _, entry := range rrns {
		row := &PartialRow{
			RRN:            entry.rrn,
			MatchStatus:    StatusPartiallyMatched,
			MatchedSources: entry.sources,
			MissingSource:  missingSource(entry.sources),
		}
		for _, src := range entry.sources {
			switch src {
			case string(recon.SourceATM):
				if row.ATM, err = s.atmLeg(ctx, entry.rrn); err != nil {
					return nil, 0, err
				}
			case string(recon.SourceSwitch):
				if row.Switch, err = s.switchLeg(ctx, entry.rrn); err != nil {
					return nil, 0, err
				}
			case string(recon.SourceCBS):
				if row.CBS, err = s.cbsLeg(ctx, entry.rrn); err != nil {
					return nil, 0, err
				}
			}
		}
		rows = append(rows, row)
	}
	return rows, total, nil
}

// ListUnmatched pages through the RRNs seen in only one source,
// optionally restricted to a single source.
func (s *Storage) ListUnmatched(ctx context.Context, q PageQuery) ([]*UnmatchedRow, int, error) {
	q = q.normalize()
	var sourceFilter string
	if q.Source != "" {
		sourceFilter = string(q.Source)
	}
	rrns, total, err := s.pageRRNsWithSources(ctx, 1, q, sourceFilter)
	if err != nil {
		return nil, 0, err
	}

	rows := make([]*UnmatchedRow, 0, len(rrns))
	for _, entry := range rrns {
		src := entry.sources[0]
		row := &UnmatchedRow{
			RRN:         entry.rrn,
			MatchStatus: StatusUnmatched,
			Source:      src,
		}
		switch src {
		case string(recon.SourceATM):
			leg, err := s.atmLeg(ctx, entry.rrn)
			if err != nil {
				return nil, 0, err
			}
			if leg != nil {
				row.DateTime = leg.DateTime
				row.Terminal = leg.Terminal
				row.Amount = leg.Amount
				row.Type = leg.Type
				row.Response = leg.Response
			}
		case string(recon.SourceSwitch):
			leg, err := s.switchLeg(ctx, entry.rrn)
			if err != nil {
				return nil, 0, err
			}
			if leg != nil {
				row.DateTime = leg.DateTime
				row.Terminal = leg.Terminal
				row.Amount = leg.Amount
				row.Response = leg.Response
			}
		case string(recon.SourceCBS):
			leg, err := s.cbsLeg(ctx, entry.rrn)
			if err != nil {
				return nil, 0, err
			}
			if leg != nil {
				row.DateTime = leg.DateTime
				row.Amount = leg.Amount
				row.Response = leg.Status
			}
		}
		rows = append(rows, row)
	}
	return rows, total, nil
}

// InvestigateRRN reports which sources hold one reference and what each
// reported. Returns (nil, nil) when the RRN appears nowhere.
func (s *Storage) InvestigateRRN(ctx context.Context, rrn string) (*RRNDetail, error) {
	key := strings.ToUpper(strings.TrimSpace(rrn))
	if key == "" {
		return nil, nil
	}

	row := s.db.QueryRowContext(ctx, `
		WITH `+rrnUnion+`
		SELECT source_count, sources
		FROM rrn_presence
		WHERE rrn = ?
	`, key)

	var (
		count   int
		sources string
	)
	if err := row.Scan(&count, &sources); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up rrn: %w", err)
	}

	detail := &RRNDetail{
		RRN:          key,
		SourcesFound: strings.Split(sources, ","),
		SourceCount:  count,
	}
	switch count {
	case 3:
		detail.MatchStatus = StatusFullyMatched
	case 2:
		detail.MatchStatus = StatusPartiallyMatched
	default:
		detail.MatchStatus = StatusUnmatched
	}

	var err error
	for _, src := range detail.SourcesFound {
		switch src {
		case string(recon.SourceATM):
			if detail.ATM, err = s.atmLeg(ctx, key); err != nil {
				return nil, err
			}
		case string(recon.SourceSwitch):
			if detail.Switch, err = s.switchLeg(ctx, key); err != nil {
				return nil, err
			}
		case string(recon.SourceCBS):
			if detail.CBS, err = s.cbsLeg(ctx, key); err != nil {
				return nil, err
			}
		}
	}
	return detail, nil
}

// pageRRNs returns one page of normalized RRNs with the given source
// count plus the total matching that count and search.
func (s *Storage) pageRRNs(ctx context.Context, sourceCount int, q PageQuery, sourceFilter string) ([]string, int, error) {
	entries, total, err := s.pageRRNsWithSources(ctx, sourceCount, q, sourceFilter)
	if err != nil {
		return nil, 0, err
	}
	rrns := make([]string, len(entries))
	for i, e := range entries {
		rrns[i] = e.rrn
	}
	return rrns, total, nil
}

type rrnEntry struct {
	rrn     string
	sources []string
}

func (s *Storage) pageRRNsWithSources(ctx context.Context, sourceCount int, q PageQuery, sourceFilter string) ([]rrnEntry, int, error) {
	where := "WHERE source_count = ?"
	args := []any{sourceCount}
	if q.Search != "" {
		where += " AND rrn LIKE ?"
		args = append(args, "%"+strings.ToUpper(strings.TrimSpace(q.Search))+"%")
	}
	if sourceFilter != "" {
		where += " AND sources = ?"
		args = append(args, sourceFilter)
	}

	var total int
	countArgs := append([]any{}, args...)
	err := s.db.QueryRowContext(ctx, `
		WITH `+rrnUnion+`
		SELECT COUNT(*) FROM rrn_presence `+where, countArgs...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count rrns: %w", err)
	}

	args = append(args, q.Limit, q.Offset)
	rows, err := s.db.QueryContext(ctx, `
		WITH `+rrnUnion+`
		SELECT rrn, sources FROM rrn_presence `+where+`
		ORDER BY rrn
		LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to page rrns: %w", err)
	}
	defer rows.Close()

	var entries []rrnEntry
	for rows.Next() {
		var (
			rrn     string
			sources string
		)
		if err := rows.Scan(&rrn, &sources); err != nil {
			return nil, 0, fmt.Errorf("failed to scan rrn page: %w", err)
		}
		entries = append(entries, rrnEntry{rrn: rrn, sources: strings.Split(sources, ",")})
	}
	return entries, total, rows.Err()
}

func missingSource(present []string) string {
	seen := map[string]bool{}
	for _, s := range present {
		seen[s] = true
	}
	for _, s := range []string{
		string(recon.SourceATM),
		string(recon.SourceSwitch),
		string(recon.SourceCBS),
	} {
		if !seen[s] {
			return s
		}
	}
	return ""
}

// atmLeg returns the first ATM row for a normalized RRN.
func (s *Storage) atmLeg(ctx context.Context, rrn string) (*TxnLeg, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT datetime, terminalid, location, amount, transactiontype, responsecode
		FROM atm_transactions
		WHERE UPPER(TRIM(CAST(rrn AS TEXT))) = ?
		ORDER BY id
		LIMIT 1
	`, rrn)

	var (
		datetime                           sql.NullTime
		amount                             sql.NullFloat64
		terminal, location, txnType, rcode sql.NullString
	)
	if err := row.Scan(&datetime, &terminal, &location, &amount, &txnType, &rcode); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load atm leg: %w", err)
	}
	return &TxnLeg{
		DateTime: timeString(datetime),
		Terminal: nullString(terminal),
		Location: nullString(location),
		Amount:   nullFloat(amount),
		Type:     nullString(txnType),
		Response: nullString(rcode),
	}, nil
}

// switchLeg returns the first switch row for a normalized RRN.
func (s *Storage) switchLeg(ctx context.Context, rrn string) (*TxnLeg, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT datetime, terminalid, direction, amountminor, responsecode
		FROM switch_transactions
		WHERE UPPER(TRIM(CAST(rrn AS TEXT))) = ?
		ORDER BY id
		LIMIT 1
	`, rrn)

	var (
		datetime                   sql.NullTime
		amount                     sql.NullFloat64
		terminal, direction, rcode sql.NullString
	)
	if err := row.Scan(&datetime, &terminal, &direction, &amount, &rcode); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load switch leg: %w", err)
	}
	return &TxnLeg{
		DateTime:  timeString(datetime),
		Terminal:  nullString(terminal),
		Direction: nullString(direction),
		Amount:    nullFloat(amount),
		Response:  nullString(rcode),
	}, nil
}

// cbsLeg returns the first ledger row for a normalized RRN. The amount
// reported is the debit leg.
func (s *Storage) cbsLeg(ctx context.Context, rrn string) (*TxnLeg, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT posted_datetime, fc_txn_id, dr, status
		FROM cbs_transactions
		WHERE UPPER(TRIM(CAST(rrn AS TEXT))) = ?
		ORDER BY id
		LIMIT 1
	`, rrn)

	var (
		posted        sql.NullTime
		dr            sql.NullFloat64
		txnID, status sql.NullString
	)
	if err := row.Scan(&posted, &txnID, &dr, &status); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load cbs leg: %w", err)
	}
	return &TxnLeg{
		DateTime: timeString(posted),
		TxnID:    nullString(txnID),
		Amount:   nullFloat(dr),
		Status:   nullString(status),
	}, nil
}

func timeString(t sql.NullTime) *string {
	if !t.Valid {
		return nil
	}
	s := t.Time.Format(time.DateTime)
	return &s
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func nullFloat(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	return &f.Float64
}
