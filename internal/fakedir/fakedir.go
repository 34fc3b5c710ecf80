// Package fakedir is an in-memory directory.Client for tests.
package fakedir

import (
	"context"
	"strings"
	"sync"

	"adenrich/internal/directory"
)

// Directory holds canned entries and records the searches made against it.
type Directory struct {
	mu         sync.Mutex
	entries    []directory.Entry
	searches   []string
	resolves   []string
	searchErr  error
	resolveErr map[string]error
	closed     bool
}

var _ directory.Client = (*Directory)(nil)

func New() *Directory {
	return &Directory{resolveErr: make(map[string]error)}
}

// Add registers an entry. Matching follows directory equality rules:
// attribute names and values compare case-insensitively.
func (d *Directory) Add(e directory.Entry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, e)
}

// FailSearches makes every subsequent Search return err.
func (d *Directory) FailSearches(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.searchErr = err
}

// FailResolve makes ResolveDN fail for one specific DN.
func (d *Directory) FailResolve(dn string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resolveErr[strings.ToLower(dn)] = err
}

func (d *Directory) Search(ctx context.Context, f directory.Filter, attrs []string) ([]directory.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.searches = append(d.searches, f.String())
	if d.searchErr != nil {
		return nil, d.searchErr
	}

	var out []directory.Entry
	for _, e := range d.entries {
		if matches(e, f) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (d *Directory) ResolveDN(ctx context.Context, dn string, attrs []string) (*directory.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resolves = append(d.resolves, dn)
	if err, ok := d.resolveErr[strings.ToLower(dn)]; ok {
		return nil, err
	}
	for _, e := range d.entries {
		if strings.EqualFold(e.DN, dn) {
			entry := e
			return &entry, nil
		}
	}
	return nil, nil
}

func (d *Directory) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Searches returns the rendered filter of every Search call in order.
func (d *Directory) Searches() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.searches))
	copy(out, d.searches)
	return out
}

// Resolves returns the DN of every ResolveDN call in order.
func (d *Directory) Resolves() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.resolves))
	copy(out, d.resolves)
	return out
}

// Closed reports whether Close was called.
func (d *Directory) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func matches(e directory.Entry, f directory.Filter) bool {
	for _, c := range f {
		if !strings.EqualFold(e.Value(c.Attribute), c.Value) {
			return false
		}
	}
	return len(f) > 0
}
