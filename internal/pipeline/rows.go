// Package pipeline turns spreadsheet rows into enriched output rows.
package pipeline

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Row is one spreadsheet row. Cells holds the input values by column name;
// Ext holds the columns enrichment added. Ext wins when a name appears in
// both.
type Row struct {
	Cells map[string]string
	Ext   map[string]string
}

// Cell returns the value of a column, preferring enrichment output.
func (r *Row) Cell(name string) string {
	if v, ok := r.Ext[name]; ok {
		return v
	}
	return r.Cells[name]
}

// SetExt records an enrichment value for a column.
func (r *Row) SetExt(name, value string) {
	if r.Ext == nil {
		r.Ext = make(map[string]string)
	}
	r.Ext[name] = value
}

// MatchRule requires a directory attribute to equal the value of one input
// column. All rules of a job must hold for an entry to match a row.
type MatchRule struct {
	Column    string
	Attribute string
}

// Summary totals one enrichment run for the notification email.
type Summary struct {
	RowCount     int
	MatchedCount int
	AddedColumns []string
}

// ErrorLog collects a run's non-fatal problems as unique messages in
// first-seen order.
type ErrorLog struct {
	seen map[string]struct{}
	msgs []string
}

// Add records msg unless an identical message was already recorded.
func (l *ErrorLog) Add(msg string) {
	if l.seen == nil {
		l.seen = make(map[string]struct{})
	}
	if _, ok := l.seen[msg]; ok {
		return
	}
	l.seen[msg] = struct{}{}
	l.msgs = append(l.msgs, msg)
}

// Addf records a formatted message.
func (l *ErrorLog) Addf(format string, args ...any) {
	l.Add(fmt.Sprintf(format, args...))
}

// Messages returns the recorded messages in insertion order.
func (l *ErrorLog) Messages() []string {
	out := make([]string, len(l.msgs))
	copy(out, l.msgs)
	return out
}

// Empty reports whether nothing was recorded.
func (l *ErrorLog) Empty() bool {
	return len(l.msgs) == 0
}

// AddedColumn returns the output column name for a requested attribute:
// "displayName" becomes "adDisplayName".
func AddedColumn(attr string) string {
	attr = strings.TrimSpace(attr)
	if attr == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(attr)
	return "ad" + string(unicode.ToUpper(r)) + attr[size:]
}

// AddedColumns lists every column enrichment appends for the requested
// attributes, in output order. Requesting the canonical name also yields the
// derived adOu column.
func AddedColumns(attrs []string) []string {
	cols := make([]string, 0, len(attrs)+1)
	for _, a := range attrs {
		cols = append(cols, AddedColumn(a))
	}
	if _, ok := findAttr(attrs, canonicalAttr); ok {
		cols = append(cols, ouColumn)
	}
	return cols
}

// OutputColumns is the full output header: the input columns followed by the
// added columns.
func OutputColumns(input, attrs []string) []string {
	out := make([]string, 0, len(input)+len(attrs)+1)
	out = append(out, input...)
	out = append(out, AddedColumns(attrs)...)
	return out
}

// findAttr returns the requested attribute matching name case-insensitively,
// trimmed, so callers derive column names with the job's own spelling.
func findAttr(attrs []string, name string) (string, bool) {
	for _, a := range attrs {
		if strings.EqualFold(strings.TrimSpace(a), name) {
			return strings.TrimSpace(a), true
		}
	}
	return "", false
}
