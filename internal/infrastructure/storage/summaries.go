package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// SaveSummary persists one reconciliation run. If a summary with the
// same reference already exists its bucket columns are overwritten;
// either way the write happens in a single transaction.
func (s *Storage) SaveSummary(ctx context.Context, summary *ReconSummary) (*ReconSummary, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO recon_matching_summary (
			recon_reference_number, matched, partially_matched, un_matched, added_by
		) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(recon_reference_number) DO UPDATE SET
			matched = excluded.matched,
			partially_matched = excluded.partially_matched,
			un_matched = excluded.un_matched,
			added_by = excluded.added_by,
			updated_at = CURRENT_TIMESTAMP
	`, summary.Reference, summary.MatchedEncoded, summary.PartialEncoded,
		summary.UnmatchedEncoded, summary.AddedBy)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert summary: %w", err)
	}

	saved, err := scanSummary(tx.QueryRowContext(ctx, summarySelect+`
		WHERE recon_reference_number = ?
	`, summary.Reference))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return saved, nil
}

// GetSummaryByReference returns the summary for one run reference, or
// (nil, nil) when it does not exist.
func (s *Storage) GetSummaryByReference(ctx context.Context, reference string) (*ReconSummary, error) {
	summary, err := scanSummary(s.db.QueryRowContext(ctx, summarySelect+`
		WHERE recon_reference_number = ?
	`, reference))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return summary, err
}

// GetLatestSummary returns the most recently created summary, or
// (nil, nil) when no run has been persisted yet.
func (s *Storage) GetLatestSummary(ctx context.Context) (*ReconSummary, error) {
	summary, err := scanSummary(s.db.QueryRowContext(ctx, summarySelect+`
		ORDER BY id DESC
		LIMIT 1
	`))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return summary, err
}

// DeleteSummary removes one persisted run. Deleting a reference that
// does not exist is not an error.
func (s *Storage) DeleteSummary(ctx context.Context, reference string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM recon_matching_summary WHERE recon_reference_number = ?
	`, reference)
	if err != nil {
		return fmt.Errorf("failed to delete summary: %w", err)
	}
	return nil
}

const summarySelect = `
	SELECT id, recon_reference_number, matched, partially_matched,
	       un_matched, added_by, created_at, updated_at
	FROM recon_matching_summary
`

func scanSummary(row *sql.Row) (*ReconSummary, error) {
	var (
		summary                     ReconSummary
		matched, partial, unmatched sql.NullString
		addedBy                     sql.NullInt64
	)
	err := row.Scan(&summary.ID, &summary.Reference, &matched, &partial,
		&unmatched, &addedBy, &summary.CreatedAt, &summary.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan summary: %w", err)
	}
	summary.MatchedEncoded = matched.String
	summary.PartialEncoded = partial.String
	summary.UnmatchedEncoded = unmatched.String
	summary.AddedBy = addedBy.Int64
	return &summary, nil
}
