// Package codec implements the dense text encoding used to persist
// classification buckets in the recon summary table and redisplay them.
//
// Each record is six pipe-separated fields:
//
//	reference|txn type|terminal id|date|amount|result
//
// records are semicolon-joined. Field values must not contain '|' or
// ';' — that is an upstream data constraint of the feeds, and the
// encoder deliberately does not escape. Decoding is lossy by design:
// any line that does not split into exactly six parts is dropped.
package codec

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nitindhyani1996/recon-backend/internal/recon"
)

const (
	fieldSep  = "|"
	recordSep = ";"
	numFields = 6
)

// Entry is one encoded record. Amount holds the rendered two-decimal
// string; Date is display-only and not guaranteed to re-parse into a
// structured timestamp.
type Entry struct {
	Reference  string
	TxnType    string
	TerminalID string
	Date       string
	Amount     string
	Result     string
}

// Encode renders entries into the storage form. Amounts are normalized
// to exactly two decimal places; missing or unparseable amounts render
// as "0.00".
func Encode(entries []Entry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, strings.Join([]string{
			e.Reference,
			e.TxnType,
			e.TerminalID,
			e.Date,
			formatAmount(e.Amount),
			e.Result,
		}, fieldSep))
	}
	return strings.Join(lines, recordSep)
}

// Decode parses the storage form back into entries. Blank lines and
// lines with other than six parts are skipped silently; well-formed
// neighbors are unaffected.
func Decode(encoded string) []Entry {
	if strings.TrimSpace(encoded) == "" {
		return []Entry{}
	}
	entries := []Entry{}
	for _, line := range strings.Split(encoded, recordSep) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, fieldSep)
		if len(parts) != numFields {
			continue
		}
		entries = append(entries, Entry{
			Reference:  parts[0],
			TxnType:    parts[1],
			TerminalID: parts[2],
			Date:       parts[3],
			Amount:     parts[4],
			Result:     parts[5],
		})
	}
	return entries
}

// Row is the fixed display schema the frontend consumes. Re-projecting
// and re-encoding a decoded row yields the same six field values.
type Row struct {
	RRN        string `json:"RRN"`
	TxnType    string `json:"Txn Type"`
	TerminalID string `json:"Terminal Id"`
	Date       string `json:"Date"`
	Amount     string `json:"Amount"`
	Result     string `json:"Result"`
}

// Project re-keys decoded entries into the display schema.
func Project(entries []Entry) []Row {
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, Row{
			RRN:        e.Reference,
			TxnType:    e.TxnType,
			TerminalID: e.TerminalID,
			Date:       e.Date,
			Amount:     formatAmount(e.Amount),
			Result:     e.Result,
		})
	}
	return rows
}

// Entry converts a display row back into its encodable form.
func (r Row) Entry() Entry {
	return Entry{
		Reference:  r.RRN,
		TxnType:    r.TxnType,
		TerminalID: r.TerminalID,
		Date:       r.Date,
		Amount:     r.Amount,
		Result:     r.Result,
	}
}

// FromOutcomes projects the ATM leg of each outcome into entries, the
// side the summary table stores for every bucket.
func FromOutcomes(outcomes []recon.Outcome) []Entry {
	entries := make([]Entry, 0, len(outcomes))
	for _, out := range outcomes {
		a := out.ATM
		if a == nil {
			continue
		}
		entries = append(entries, Entry{
			Reference:  fieldString(a, "rrn"),
			TxnType:    fieldStringDefault(a, "transactiontype", "Unknown"),
			TerminalID: fieldString(a, "terminalid"),
			Date:       fieldString(a, "datetime"),
			Amount:     formatAmount(fieldString(a, "amount")),
			Result:     string(out.Result),
		})
	}
	return entries
}

func fieldString(r *recon.Record, name string) string {
	v, ok := r.Get(name)
	if !ok {
		return ""
	}
	return v.Render()
}

func fieldStringDefault(r *recon.Record, name, def string) string {
	if s := fieldString(r, name); s != "" {
		return s
	}
	return def
}

// formatAmount renders an amount to exactly two decimal places, falling
// back to "0.00" for anything that does not parse as a number.
func formatAmount(s string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
