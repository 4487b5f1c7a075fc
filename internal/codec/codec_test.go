package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nitindhyani1996/recon-backend/internal/recon"
)

func sampleEntries() []Entry {
	return []Entry{
		{
			Reference:  "251218000001",
			TxnType:    "Withdrawal",
			TerminalID: "IZY00055",
			Date:       "2025-12-18 10:30:00",
			Amount:     "10000.00",
			Result:     "MATCHED",
		},
		{
			Reference:  "251218000002",
			TxnType:    "Deposit",
			TerminalID: "IZY00012",
			Date:       "2025-12-18 14:45:30",
			Amount:     "5000.50",
			Result:     "PARTIAL",
		},
	}
}

func TestEncode(t *testing.T) {
	got := Encode(sampleEntries())

	want := "251218000001|Withdrawal|IZY00055|2025-12-18 10:30:00|10000.00|MATCHED;" +
		"251218000002|Deposit|IZY00012|2025-12-18 14:45:30|5000.50|PARTIAL"
	assert.Equal(t, want, got)
}

func TestEncode_AmountNormalization(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"10000", "10000.00"},
		{"5000.5", "5000.50"},
		{" 12.345 ", "12.35"},
		{"", "0.00"},
		{"None", "0.00"},
		{"n/a", "0.00"},
	}
	for _, tt := range tests {
		encoded := Encode([]Entry{{Reference: "R1", Amount: tt.amount, Result: "MATCHED"}})
		got := Decode(encoded)
		require.Len(t, got, 1)
		assert.Equal(t, tt.want, got[0].Amount, "amount %q", tt.amount)
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	entries := sampleEntries()
	assert.Equal(t, entries, Decode(Encode(entries)))
}

func TestDecode_DropsMalformedLines(t *testing.T) {
	encoded := "R1|Withdrawal|T1|2025-12-18 10:30:00|100.00|MATCHED;" +
		"garbage-without-pipes;" +
		"R2|Deposit|T2|too|few;" +
		"R3|Deposit|T3|2025-12-18 11:00:00|50.00|PARTIAL|extra;" +
		";" +
		"R4|Deposit|T4|2025-12-18 12:00:00|25.00|UNMATCHED"

	got := Decode(encoded)

	require.Len(t, got, 2)
	assert.Equal(t, "R1", got[0].Reference)
	assert.Equal(t, "R4", got[1].Reference)
}

func TestDecode_Empty(t *testing.T) {
	assert.Empty(t, Decode(""))
	assert.Empty(t, Decode("   "))
}

// decode(encode(X)) == X after the frontend projection is applied
// consistently: projecting, converting back and re-encoding preserves
// all six field values.
func TestProject_RoundTripIdempotent(t *testing.T) {
	encoded := Encode(sampleEntries())
	decoded := Decode(encoded)
	rows := Project(decoded)

	reprojected := make([]Entry, 0, len(rows))
	for _, row := range rows {
		reprojected = append(reprojected, row.Entry())
	}

	assert.Equal(t, encoded, Encode(reprojected))
	assert.Equal(t, decoded, Decode(Encode(reprojected)))
}

func TestProject_FixedSchema(t *testing.T) {
	rows := Project(sampleEntries())

	require.Len(t, rows, 2)
	assert.Equal(t, "251218000001", rows[0].RRN)
	assert.Equal(t, "Withdrawal", rows[0].TxnType)
	assert.Equal(t, "IZY00055", rows[0].TerminalID)
	assert.Equal(t, "10000.00", rows[0].Amount)
	assert.Equal(t, "MATCHED", rows[0].Result)
}

func TestFromOutcomes_ProjectsATMLeg(t *testing.T) {
	atm := recon.NewRecord(recon.SourceATM, []recon.Field{
		{Name: "datetime", Value: recon.Time(time.Date(2025, 12, 18, 10, 30, 0, 0, time.UTC))},
		{Name: "terminalid", Value: recon.String("IZY00055")},
		{Name: "transactiontype", Value: recon.String("Withdrawal")},
		{Name: "amount", Value: recon.Number(10000)},
		{Name: "rrn", Value: recon.String("251218000001")},
	})
	sw := recon.NewRecord(recon.SourceSwitch, []recon.Field{
		{Name: "rrn", Value: recon.String("251218000001")},
	})

	entries := FromOutcomes([]recon.Outcome{
		{ATM: atm, Switch: sw, Result: recon.ResultPartial, Reason: recon.ReasonNoCBS},
	})

	require.Len(t, entries, 1)
	assert.Equal(t, Entry{
		Reference:  "251218000001",
		TxnType:    "Withdrawal",
		TerminalID: "IZY00055",
		Date:       "2025-12-18 10:30:00",
		Amount:     "10000.00",
		Result:     "PARTIAL",
	}, entries[0])
}

func TestFromOutcomes_MissingFieldsDefault(t *testing.T) {
	atm := recon.NewRecord(recon.SourceATM, []recon.Field{
		{Name: "rrn", Value: recon.String("R9")},
	})

	entries := FromOutcomes([]recon.Outcome{
		{ATM: atm, Result: recon.ResultUnmatched, Reason: recon.ReasonNoSwitch},
	})

	require.Len(t, entries, 1)
	assert.Equal(t, "Unknown", entries[0].TxnType)
	assert.Equal(t, "0.00", entries[0].Amount)
	assert.Equal(t, "", entries[0].TerminalID)
}
