package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"adenrich/internal/directory"
)

type Options struct {
	// LookupRPS is a cap on directory lookups per second. Set to <=0 to
	// disable.
	LookupRPS float64
}

// EnrichRows looks every row up in the directory and attaches the requested
// attributes as added columns. Rows without a match keep empty values in the
// added columns; when several entries match, the first one wins. A failed
// lookup aborts the run.
//
// Rows are processed one at a time, in sheet order.
func EnrichRows(ctx context.Context, rows []Row, match []MatchRule, attrs []string, client directory.Client, log *zap.Logger, opts Options) (Summary, error) {
	var limiter *rate.Limiter
	if opts.LookupRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.LookupRPS), 1)
	}

	summary := Summary{RowCount: len(rows), AddedColumns: AddedColumns(attrs)}
	for i := range rows {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return Summary{}, err
			}
		} else if err := ctx.Err(); err != nil {
			return Summary{}, err
		}

		var f directory.Filter
		for _, rule := range match {
			f = f.Equals(rule.Attribute, rows[i].Cell(rule.Column))
		}

		entries, err := client.Search(ctx, f, attrs)
		if err != nil {
			return Summary{}, fmt.Errorf("row %d: %w", i+1, err)
		}

		if len(entries) == 0 {
			log.Warn("no directory match", zap.Int("row", i+1), zap.String("filter", f.String()))
			for _, a := range attrs {
				rows[i].SetExt(AddedColumn(a), "")
			}
			continue
		}
		if len(entries) > 1 {
			log.Warn("multiple directory matches, keeping the first",
				zap.Int("row", i+1), zap.Int("matches", len(entries)), zap.String("filter", f.String()))
		}

		summary.MatchedCount++
		entry := entries[0]
		for _, a := range attrs {
			rows[i].SetExt(AddedColumn(a), strings.Join(entry.Values(a), "; "))
		}
	}
	return summary, nil
}
