// Package app wires the pipeline stages into complete runs.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"adenrich/internal/config"
	"adenrich/internal/directory"
	"adenrich/internal/excel"
	"adenrich/internal/pipeline"
	"adenrich/internal/report"
)

// Result reports where a finished run left its artifacts.
type Result struct {
	Summary pipeline.Summary
	Errors  []string

	// WorkbookPath is empty when the input had no rows and the run recorded
	// no problems, in which case no workbook is produced.
	WorkbookPath string
	BodyPath     string
}

// ArtifactBase names a run's artifacts: the job name plus a second-resolution
// timestamp, e.g. "weekly-staff-20240131-091530".
func ArtifactBase(name string, now time.Time) string {
	return name + "-" + now.Format("20060102-150405")
}

// Run executes one enrichment job end to end: load the workbook, enrich every
// row against the directory, write the output workbook and saved email body
// under base, and send the summary email. With dryRun no mail goes out but
// every artifact is still written.
func Run(ctx context.Context, job *config.Job, dir directory.Client, sender report.Sender, log *zap.Logger, base string, dryRun bool) (*Result, error) {
	runStart := time.Now()
	log = log.With(zap.String("run_id", uuid.NewString()), zap.String("job", job.Name))
	log.Info("run started", zap.String("input", job.ExcelFile), zap.Bool("dry_run", dryRun))

	readStart := time.Now()
	rows, columns, err := excel.ReadRows(job.ExcelFile)
	if err != nil {
		return nil, err
	}
	log.Info("input loaded",
		zap.Int("rows", len(rows)),
		zap.Int("columns", len(columns)),
		zap.Duration("duration", time.Since(readStart).Round(time.Millisecond)))

	match, attrs, err := normalizeJob(job, columns)
	if err != nil {
		return nil, err
	}

	enrichStart := time.Now()
	sum, err := pipeline.EnrichRows(ctx, rows, match, attrs, dir, log, pipeline.Options{
		LookupRPS: job.Directory.RateLimitRPS,
	})
	if err != nil {
		return nil, err
	}

	var errlog pipeline.ErrorLog
	if err := pipeline.ComputeDerived(ctx, rows, attrs, dir, log, &errlog); err != nil {
		return nil, err
	}
	log.Info("enrichment complete",
		zap.Int("matched", sum.MatchedCount),
		zap.Int("problems", len(errlog.Messages())),
		zap.Duration("duration", time.Since(enrichStart).Round(time.Millisecond)))

	res := &Result{Summary: sum, Errors: errlog.Messages()}

	if len(rows) > 0 || !errlog.Empty() {
		res.WorkbookPath = base + ".xlsx"
		cols := pipeline.OutputColumns(columns, attrs)
		if err := excel.WriteWorkbook(res.WorkbookPath, cols, rows, res.Errors); err != nil {
			return nil, err
		}
		log.Info("workbook written", zap.String("path", res.WorkbookPath))
	} else {
		log.Warn("input had no data rows, skipping workbook")
	}

	body, err := report.SummaryHTML(report.Summary{
		Job:     job.Name,
		Source:  filepath.Base(job.ExcelFile),
		Rows:    sum.RowCount,
		Matched: sum.MatchedCount,
		Columns: sum.AddedColumns,
		Errors:  res.Errors,
	})
	if err != nil {
		return nil, err
	}
	res.BodyPath = base + ".html"
	if err := os.WriteFile(res.BodyPath, []byte(body), 0o644); err != nil {
		return nil, fmt.Errorf("save email body: %w", err)
	}

	msg := report.Message{
		Subject:    report.SummarySubject(job.Name),
		To:         job.MailTo,
		Cc:         job.Admins,
		HTML:       body,
		Attachment: res.WorkbookPath,
	}
	if dryRun {
		log.Info("dry run, summary email not sent", zap.Strings("to", msg.To))
	} else {
		sendStart := time.Now()
		if err := sender.Send(ctx, msg); err != nil {
			return nil, err
		}
		log.Info("summary email sent",
			zap.Strings("to", msg.To),
			zap.Strings("cc", msg.Cc),
			zap.Duration("duration", time.Since(sendStart).Round(time.Millisecond)))
	}

	log.Info("run complete",
		zap.Int("rows", sum.RowCount),
		zap.Int("matched", sum.MatchedCount),
		zap.Int("problems", len(res.Errors)),
		zap.Duration("duration", time.Since(runStart).Round(time.Millisecond)))
	return res, nil
}

// normalizeJob trims the job's match rules and attributes and checks every
// match column against the worksheet header.
func normalizeJob(job *config.Job, columns []string) ([]pipeline.MatchRule, []string, error) {
	colSet := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		colSet[c] = struct{}{}
	}

	match := make([]pipeline.MatchRule, len(job.Match))
	for i, r := range job.Match {
		col := strings.TrimSpace(r.Column)
		if _, ok := colSet[col]; !ok {
			return nil, nil, &excel.InputError{
				Path: job.ExcelFile,
				Err:  fmt.Errorf("match column %q not in worksheet header", col),
			}
		}
		match[i] = pipeline.MatchRule{Column: col, Attribute: strings.TrimSpace(r.Attribute)}
	}

	attrs := make([]string, len(job.Attributes))
	for i, a := range job.Attributes {
		attrs[i] = strings.TrimSpace(a)
	}
	return match, attrs, nil
}

// NotifyFailure emails the admins that a run aborted, with the redacted
// failure reason in the body. Admin-less jobs alert the normal recipients.
func NotifyFailure(ctx context.Context, sender report.Sender, job *config.Job, runErr error) error {
	body, err := report.FailureHTML(report.Failure{
		Job:    job.Name,
		Source: filepath.Base(job.ExcelFile),
		Reason: runErr.Error(),
	})
	if err != nil {
		return err
	}

	to := job.Admins
	if len(to) == 0 {
		to = job.MailTo
	}
	return sender.Send(ctx, report.Message{
		Subject:      report.FailureSubject(job.Name),
		To:           to,
		HTML:         body,
		HighPriority: true,
	})
}
