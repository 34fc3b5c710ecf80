// Package directory is the client surface for the identity directory the
// pipeline enriches rows from. Lookups are read-only; the package never
// writes to the directory.
package directory

import (
	"context"
	"fmt"
	"strings"
)

// Entry is one directory record: its DN plus the attribute values the lookup
// requested. Attribute names are compared case-insensitively, matching how
// the directory itself treats them.
type Entry struct {
	DN string

	attrs map[string][]string
}

// NewEntry builds an Entry from attribute values keyed by name.
func NewEntry(dn string, attrs map[string][]string) Entry {
	norm := make(map[string][]string, len(attrs))
	for name, values := range attrs {
		norm[strings.ToLower(name)] = values
	}
	return Entry{DN: dn, attrs: norm}
}

// Value returns the first value of the named attribute, or "" when the entry
// does not carry it.
func (e Entry) Value(name string) string {
	vals := e.attrs[strings.ToLower(name)]
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// Values returns all values of the named attribute in server order.
func (e Entry) Values(name string) []string {
	return e.attrs[strings.ToLower(name)]
}

// Client is the read surface the pipeline needs from a directory service.
type Client interface {
	// Search returns every entry matching the filter, in server order. An
	// empty result is not an error.
	Search(ctx context.Context, f Filter, attrs []string) ([]Entry, error)

	// ResolveDN reads the single entry at dn. A missing entry returns
	// (nil, nil); only transport or protocol failures return an error.
	ResolveDN(ctx context.Context, dn string, attrs []string) (*Entry, error)

	Close() error
}

// OpError is a sanitized failure from one directory operation. Detail carries
// the rendered filter or DN, never credentials.
type OpError struct {
	Op     string
	Detail string
	Err    error
}

func (e *OpError) Error() string {
	if e == nil {
		return "directory error"
	}
	if strings.TrimSpace(e.Detail) == "" {
		return fmt.Sprintf("directory %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("directory %s %s: %v", e.Op, e.Detail, e.Err)
}

func (e *OpError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
