package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nitindhyani1996/recon-backend/internal/recon"
)

// InsertATMTransactions bulk-inserts ATM feed rows in a single
// transaction and returns the number of rows written.
func (s *Storage) InsertATMTransactions(ctx context.Context, txns []*ATMTransaction) (int, error) {
	if len(txns) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO atm_transactions (
			datetime, terminalid, location, atmindex, pan_masked,
			account_masked, transactiontype, amount, currency, stan,
			rrn, auth, responsecode, responsedesc, uploaded_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range txns {
		_, err := stmt.ExecContext(ctx,
			nullableTime(t.DateTime), t.TerminalID, t.Location, t.ATMIndex, t.PANMasked,
			t.AccountMasked, t.TransactionType, nullableFloat(t.Amount), t.Currency, t.STAN,
			t.RRN, t.Auth, t.ResponseCode, t.ResponseDesc, t.UploadedBy,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert atm transaction: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(txns), nil
}

// InsertSwitchTransactions bulk-inserts switch feed rows.
func (s *Storage) InsertSwitchTransactions(ctx context.Context, txns []*SwitchTransaction) (int, error) {
	if len(txns) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO switch_transactions (
			datetime, direction, mti, pan_masked, processingcode,
			amountminor, currency, stan, rrn, terminalid,
			source, destination, responsecode, authid, uploaded_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range txns {
		_, err := stmt.ExecContext(ctx,
			nullableTime(t.DateTime), t.Direction, t.MTI, t.PANMasked, t.ProcessingCode,
			nullableFloat(t.AmountMinor), t.Currency, t.STAN, t.RRN, t.TerminalID,
			t.Source, t.Destination, t.ResponseCode, t.AuthID, t.UploadedBy,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert switch transaction: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(txns), nil
}

// InsertCBSTransactions bulk-inserts core-banking ledger rows.
func (s *Storage) InsertCBSTransactions(ctx context.Context, txns []*CBSTransaction) (int, error) {
	if len(txns) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cbs_transactions (
			posted_datetime, fc_txn_id, rrn, stan, account_masked,
			dr, cr, currency, status, description, uploaded_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range txns {
		_, err := stmt.ExecContext(ctx,
			nullableTime(t.PostedDateTime), t.FCTxnID, t.RRN, t.STAN, t.AccountMasked,
			nullableFloat(t.DR), nullableFloat(t.CR), t.Currency, t.Status, t.Description, t.UploadedBy,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert cbs transaction: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(txns), nil
}

// CountTransactions returns the row count of one source feed.
func (s *Storage) CountTransactions(ctx context.Context, source recon.Source) (int, error) {
	table, err := tableFor(source)
	if err != nil {
		return 0, err
	}
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return count, nil
}

// LoadRecords materializes one source feed as matching records in
// insertion order. Every column is exposed as a field under its
// lowercase column name so rules can reference any of them.
func (s *Storage) LoadRecords(ctx context.Context, source recon.Source) ([]*recon.Record, error) {
	switch source {
	case recon.SourceATM:
		return s.loadATMRecords(ctx)
	case recon.SourceSwitch:
		return s.loadSwitchRecords(ctx)
	case recon.SourceCBS:
		return s.loadCBSRecords(ctx)
	default:
		return nil, fmt.Errorf("unknown source %q", source)
	}
}

func (s *Storage) loadATMRecords(ctx context.Context) ([]*recon.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, datetime, terminalid, location, atmindex, pan_masked,
		       account_masked, transactiontype, amount, currency, stan,
		       rrn, auth, responsecode, responsedesc
		FROM atm_transactions
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query atm transactions: %w", err)
	}
	defer rows.Close()

	var records []*recon.Record
	for rows.Next() {
		var (
			id       int64
			datetime sql.NullTime
			amount   sql.NullFloat64

			terminalid, location, atmindex, panMasked, accountMasked,
			transactiontype, currency, stan, rrn, auth,
			responsecode, responsedesc sql.NullString
		)
		if err := rows.Scan(&id, &datetime, &terminalid, &location, &atmindex, &panMasked,
			&accountMasked, &transactiontype, &amount, &currency, &stan,
			&rrn, &auth, &responsecode, &responsedesc); err != nil {
			return nil, fmt.Errorf("failed to scan atm transaction: %w", err)
		}
		records = append(records, recon.NewRecord(recon.SourceATM, []recon.Field{
			{Name: "id", Value: recon.Number(float64(id))},
			{Name: "datetime", Value: timeValue(datetime)},
			{Name: "terminalid", Value: stringValue(terminalid)},
			{Name: "location", Value: stringValue(location)},
			{Name: "atmindex", Value: stringValue(atmindex)},
			{Name: "pan_masked", Value: stringValue(panMasked)},
			{Name: "account_masked", Value: stringValue(accountMasked)},
			{Name: "transactiontype", Value: stringValue(transactiontype)},
			{Name: "amount", Value: floatValue(amount)},
			{Name: "currency", Value: stringValue(currency)},
			{Name: "stan", Value: stringValue(stan)},
			{Name: "rrn", Value: stringValue(rrn)},
			{Name: "auth", Value: stringValue(auth)},
			{Name: "responsecode", Value: stringValue(responsecode)},
			{Name: "responsedesc", Value: stringValue(responsedesc)},
		}))
	}
	return records, rows.Err()
}

func (s *Storage) loadSwitchRecords(ctx context.Context) ([]*recon.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, datetime, direction, mti, pan_masked, processingcode,
		       amountminor, currency, stan, rrn, terminalid,
		       source, destination, responsecode, authid
		FROM switch_transactions
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query switch transactions: %w", err)
	}
	defer rows.Close()

	var records []*recon.Record
	for rows.Next() {
		var (
			id          int64
			datetime    sql.NullTime
			mti         sql.NullInt64
			processing  sql.NullInt64
			amountMinor sql.NullFloat64

			direction, panMasked, currency, stan, rrn, terminalid,
			src, destination, responsecode, authid sql.NullString
		)
		if err := rows.Scan(&id, &datetime, &direction, &mti, &panMasked, &processing,
			&amountMinor, &currency, &stan, &rrn, &terminalid,
			&src, &destination, &responsecode, &authid); err != nil {
			return nil, fmt.Errorf("failed to scan switch transaction: %w", err)
		}
		records = append(records, recon.NewRecord(recon.SourceSwitch, []recon.Field{
			{Name: "id", Value: recon.Number(float64(id))},
			{Name: "datetime", Value: timeValue(datetime)},
			{Name: "direction", Value: stringValue(direction)},
			{Name: "mti", Value: intValue(mti)},
			{Name: "pan_masked", Value: stringValue(panMasked)},
			{Name: "processingcode", Value: intValue(processing)},
			{Name: "amountminor", Value: floatValue(amountMinor)},
			{Name: "currency", Value: stringValue(currency)},
			{Name: "stan", Value: stringValue(stan)},
			{Name: "rrn", Value: stringValue(rrn)},
			{Name: "terminalid", Value: stringValue(terminalid)},
			{Name: "source", Value: stringValue(src)},
			{Name: "destination", Value: stringValue(destination)},
			{Name: "responsecode", Value: stringValue(responsecode)},
			{Name: "authid", Value: stringValue(authid)},
		}))
	}
	return records, rows.Err()
}

func (s *Storage) loadCBSRecords(ctx context.Context) ([]*recon.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, posted_datetime, fc_txn_id, rrn, stan, account_masked,
		       dr, cr, currency, status, description
		FROM cbs_transactions
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cbs transactions: %w", err)
	}
	defer rows.Close()

	var records []*recon.Record
	for rows.Next() {
		var (
			id     int64
			posted sql.NullTime
			dr, cr sql.NullFloat64

			fcTxnID, rrn, stan, accountMasked, currency,
			status, description sql.NullString
		)
		if err := rows.Scan(&id, &posted, &fcTxnID, &rrn, &stan, &accountMasked,
			&dr, &cr, &currency, &status, &description); err != nil {
			return nil, fmt.Errorf("failed to scan cbs transaction: %w", err)
		}
		records = append(records, recon.NewRecord(recon.SourceCBS, []recon.Field{
			{Name: "id", Value: recon.Number(float64(id))},
			{Name: "posted_datetime", Value: timeValue(posted)},
			{Name: "fc_txn_id", Value: stringValue(fcTxnID)},
			{Name: "rrn", Value: stringValue(rrn)},
			{Name: "stan", Value: stringValue(stan)},
			{Name: "account_masked", Value: stringValue(accountMasked)},
			{Name: "dr", Value: floatValue(dr)},
			{Name: "cr", Value: floatValue(cr)},
			{Name: "currency", Value: stringValue(currency)},
			{Name: "status", Value: stringValue(status)},
			{Name: "description", Value: stringValue(description)},
		}))
	}
	return records, rows.Err()
}

func tableFor(source recon.Source) (string, error) {
	switch source {
	case recon.SourceATM:
		return "atm_transactions", nil
	case recon.SourceSwitch:
		return "switch_transactions", nil
	case recon.SourceCBS:
		return "cbs_transactions", nil
	default:
		return "", fmt.Errorf("unknown source %q", source)
	}
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func stringValue(s sql.NullString) recon.Value {
	if !s.Valid {
		return recon.Null()
	}
	return recon.String(s.String)
}

func floatValue(f sql.NullFloat64) recon.Value {
	if !f.Valid {
		return recon.Null()
	}
	return recon.Number(f.Float64)
}

func intValue(i sql.NullInt64) recon.Value {
	if !i.Valid {
		return recon.Null()
	}
	return recon.Number(float64(i.Int64))
}

func timeValue(t sql.NullTime) recon.Value {
	if !t.Valid {
		return recon.Null()
	}
	return recon.Time(t.Time)
}
