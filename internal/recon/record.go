// Package recon implements the three-way matching engine that reconciles
// transactions reported by the ATM channel, the card-network switch, and
// the core-banking system (CBS).
//
// The engine consumes already-normalized per-source record lists and a
// user-editable matching rule, and classifies every ATM record as fully
// matched, partially matched, or unmatched. It is a pure function over
// its inputs: no mutation, no I/O, and deterministic for identical
// ordered inputs.
package recon

import (
	"strconv"
	"strings"
	"time"
)

// Source identifies which feed a record came from.
type Source string

const (
	SourceATM    Source = "ATM"
	SourceSwitch Source = "SWITCH"
	SourceCBS    Source = "CBS"
)

// Sources lists all feeds in canonical order.
var Sources = []Source{SourceATM, SourceSwitch, SourceCBS}

// ParseSource validates a source name, case-insensitively. The CBS feed
// also answers to its historical name "FLEXCUBE".
func ParseSource(s string) (Source, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ATM":
		return SourceATM, true
	case "SWITCH":
		return SourceSwitch, true
	case "CBS", "FLEXCUBE":
		return SourceCBS, true
	}
	return "", false
}

// ValueKind discriminates the closed set of field value types.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindTime
)

// Value is a small union over the types a source field can hold.
// Source schemas are heterogeneous (CBS has debit/credit columns, ATM a
// single amount), so records never rely on implicit field presence.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Time time.Time
}

// Null returns the null value.
func Null() Value { return Value{Kind: KindNull} }

// String wraps a string value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Number wraps a numeric value.
func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }

// Time wraps a timestamp value.
func Time(t time.Time) Value { return Value{Kind: KindTime, Time: t} }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Render converts the value to its comparison/display string. Timestamps
// use the fixed "2006-01-02 15:04:05" layout the summary encoding expects.
func (v Value) Render() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindTime:
		return v.Time.Format("2006-01-02 15:04:05")
	default:
		return ""
	}
}

// Float converts the value to a float64 where possible.
func (v Value) Float() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Num, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Field is one named value of a source record.
type Field struct {
	Name  string
	Value Value
}

// Record is a single transaction from exactly one source: an ordered
// field list with name-based lookup, a source tag, and the normalized
// join key (the trimmed, upper-cased retrieval reference number).
type Record struct {
	Source Source
	Key    string

	fields []Field
	index  map[string]int
}

// ReferenceField is the cross-source join key column name.
const ReferenceField = "rrn"

// NewRecord builds a record from ordered fields. The join key is derived
// from the reference field if present; field names are matched
// case-insensitively on lookup.
func NewRecord(source Source, fields []Field) *Record {
	r := &Record{
		Source: source,
		fields: fields,
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		name := strings.ToLower(strings.TrimSpace(f.Name))
		if _, dup := r.index[name]; !dup {
			r.index[name] = i
		}
	}
	if ref, ok := r.Get(ReferenceField); ok {
		r.Key = NormalizeKey(ref.Render())
	}
	return r
}

// Get returns the value for a field name, case-insensitively.
func (r *Record) Get(name string) (Value, bool) {
	i, ok := r.index[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Null(), false
	}
	return r.fields[i].Value, true
}

// Fields returns the record's fields in input order. The returned slice
// must not be mutated.
func (r *Record) Fields() []Field { return r.fields }

// NormalizeKey canonicalizes a reference number for joining: trimmed and
// upper-cased, with a trailing ".0" stripped when the key is numeric
// (spreadsheet exports render integer RRNs as floats).
func NormalizeKey(key string) string {
	k := strings.ToUpper(strings.TrimSpace(key))
	if f, err := strconv.ParseFloat(k, 64); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return k
}

// normalizeValue prepares a field value for rule comparison: trimmed,
// upper-cased, and collapsed to a canonical numeric form when the value
// parses as a number, so "100", "100.00" and 100 do not produce false
// mismatches. The same canonical form feeds both the nested-loop
// comparison and the hash-join index keys, which keeps the two paths
// provably equivalent.
func normalizeValue(v Value, present bool) string {
	if !present || v.IsNull() {
		return ""
	}
	s := strings.ToUpper(strings.TrimSpace(v.Render()))
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return s
}
