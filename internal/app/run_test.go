package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"adenrich/internal/app"
	"adenrich/internal/config"
	"adenrich/internal/directory"
	"adenrich/internal/fakedir"
	"adenrich/internal/report"
)

type recordingSender struct {
	msgs []report.Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, m report.Message) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, m)
	return nil
}

func writeInput(t *testing.T, dir string, grid [][]string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for r, cells := range grid {
		for c, v := range cells {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if err := f.SetCellValue("Sheet1", cell, v); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	path := filepath.Join(dir, "staff.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save fixture: %v", err)
	}
	return path
}

func testJob(input, folder string) *config.Job {
	return &config.Job{
		Name:       "weekly-staff",
		ExcelFile:  input,
		Match:      []config.MatchRule{{Column: "Mail", Attribute: "mail"}},
		Attributes: []string{"displayName", "manager", "canonicalName"},
		MailTo:     []string{"hr@example.com"},
		LogFolder:  folder,
		Admins:     []string{"ops@example.com"},
	}
}

func staffedDirectory() *fakedir.Directory {
	dir := fakedir.New()
	dir.Add(directory.NewEntry("CN=Alice,OU=IT,DC=example,DC=com", map[string][]string{
		"mail":          {"alice@example.com"},
		"displayName":   {"Alice Example"},
		"manager":       {"CN=Boss,OU=IT,DC=example,DC=com"},
		"canonicalName": {"example.com/Staff/IT/Alice Example"},
	}))
	dir.Add(directory.NewEntry("CN=Bob,OU=HR,DC=example,DC=com", map[string][]string{
		"mail":          {"bob@example.com"},
		"displayName":   {"Bob Example"},
		"canonicalName": {"example.com/Staff/HR/Bob Example"},
	}))
	dir.Add(directory.NewEntry("CN=Boss,OU=IT,DC=example,DC=com", map[string][]string{
		"displayName": {"Boss Example"},
	}))
	return dir
}

func cellAt(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}

func TestRunEndToEnd(t *testing.T) {
	tmp := t.TempDir()
	input := writeInput(t, tmp, [][]string{
		{"Name", "Mail"},
		{"Alice", "alice@example.com"},
		{"Carol", "carol@example.com"},
		{"Bob", "bob@example.com"},
	})
	job := testJob(input, tmp)
	sender := &recordingSender{}
	base := filepath.Join(tmp, "weekly-staff-20240131-091530")

	res, err := app.Run(context.Background(), job, staffedDirectory(), sender, zap.NewNop(), base, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Summary.RowCount != 3 || res.Summary.MatchedCount != 2 {
		t.Fatalf("summary = %+v, want 3 rows with 2 matched", res.Summary)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected problems: %v", res.Errors)
	}
	if res.WorkbookPath != base+".xlsx" {
		t.Fatalf("workbook path = %q", res.WorkbookPath)
	}

	f, err := excelize.OpenFile(res.WorkbookPath)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != "Data" {
		t.Fatalf("sheets = %v, want [Data]", sheets)
	}
	rows, err := f.GetRows("Data")
	if err != nil {
		t.Fatalf("read Data: %v", err)
	}
	wantHeader := []string{"Name", "Mail", "adDisplayName", "adManager", "adCanonicalName", "adOu"}
	for i, want := range wantHeader {
		if got := cellAt(rows[0], i); got != want {
			t.Fatalf("header[%d] = %q, want %q (row %v)", i, got, want, rows[0])
		}
	}
	if cellAt(rows[1], 3) != "Boss Example" {
		t.Fatalf("Alice adManager = %q, want the resolved display name", cellAt(rows[1], 3))
	}
	if cellAt(rows[1], 5) != "Staff/IT" {
		t.Fatalf("Alice adOu = %q, want Staff/IT", cellAt(rows[1], 5))
	}
	for i := 2; i < 6; i++ {
		if got := cellAt(rows[2], i); got != "" {
			t.Fatalf("unmatched Carol column %d = %q, want empty", i, got)
		}
	}
	if cellAt(rows[3], 2) != "Bob Example" || cellAt(rows[3], 5) != "Staff/HR" {
		t.Fatalf("Bob row = %v", rows[3])
	}

	body, err := os.ReadFile(res.BodyPath)
	if err != nil {
		t.Fatalf("read saved body: %v", err)
	}
	if !strings.Contains(string(body), "2 matched a directory entry") {
		t.Fatalf("saved body missing counts: %q", string(body))
	}

	if len(sender.msgs) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sender.msgs))
	}
	msg := sender.msgs[0]
	if msg.To[0] != "hr@example.com" || msg.Cc[0] != "ops@example.com" {
		t.Fatalf("recipients = %+v", msg)
	}
	if msg.Attachment != res.WorkbookPath {
		t.Fatalf("attachment = %q", msg.Attachment)
	}
	if msg.HighPriority {
		t.Fatalf("summary email should not be high priority")
	}
	if !strings.Contains(msg.Subject, "weekly-staff") {
		t.Fatalf("subject = %q", msg.Subject)
	}
}

func TestRunTwiceProducesIdenticalData(t *testing.T) {
	tmp := t.TempDir()
	input := writeInput(t, tmp, [][]string{
		{"Name", "Mail"},
		{"Alice", "alice@example.com"},
		{"Carol", "carol@example.com"},
		{"Bob", "bob@example.com"},
	})

	dataRows := func(base string) [][]string {
		t.Helper()
		res, err := app.Run(context.Background(), testJob(input, tmp), staffedDirectory(), &recordingSender{}, zap.NewNop(), base, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		f, err := excelize.OpenFile(res.WorkbookPath)
		if err != nil {
			t.Fatalf("open workbook: %v", err)
		}
		defer f.Close()
		rows, err := f.GetRows("Data")
		if err != nil {
			t.Fatalf("read Data: %v", err)
		}
		return rows
	}

	first := dataRows(filepath.Join(tmp, "first"))
	second := dataRows(filepath.Join(tmp, "second"))
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("unchanged input and directory must reproduce the Data sheet:\nfirst:  %v\nsecond: %v", first, second)
	}
}

func TestRunRecordsManagerProblems(t *testing.T) {
	tmp := t.TempDir()
	input := writeInput(t, tmp, [][]string{
		{"Name", "Mail"},
		{"Alice", "alice@example.com"},
	})
	dir := staffedDirectory()
	dir.FailResolve("CN=Boss,OU=IT,DC=example,DC=com", errors.New("result code 52"))
	sender := &recordingSender{}
	base := filepath.Join(tmp, "run")

	res, err := app.Run(context.Background(), testJob(input, tmp), dir, sender, zap.NewNop(), base, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("problems = %v, want one", res.Errors)
	}

	f, err := excelize.OpenFile(res.WorkbookPath)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[1] != "Errors" {
		t.Fatalf("sheets = %v, want an Errors tab", sheets)
	}
	// The DN stays in place when resolution fails.
	rows, err := f.GetRows("Data")
	if err != nil {
		t.Fatalf("read Data: %v", err)
	}
	if cellAt(rows[1], 3) != "CN=Boss,OU=IT,DC=example,DC=com" {
		t.Fatalf("adManager = %q, want the unresolved DN", cellAt(rows[1], 3))
	}
}

func TestRunDryRunWritesArtifactsButSendsNothing(t *testing.T) {
	tmp := t.TempDir()
	input := writeInput(t, tmp, [][]string{
		{"Name", "Mail"},
		{"Alice", "alice@example.com"},
	})
	sender := &recordingSender{}
	base := filepath.Join(tmp, "run")

	res, err := app.Run(context.Background(), testJob(input, tmp), staffedDirectory(), sender, zap.NewNop(), base, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.msgs) != 0 {
		t.Fatalf("dry run sent %d emails", len(sender.msgs))
	}
	for _, path := range []string{res.WorkbookPath, res.BodyPath} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("artifact missing: %v", err)
		}
	}
}

func TestRunRejectsUnknownMatchColumn(t *testing.T) {
	tmp := t.TempDir()
	input := writeInput(t, tmp, [][]string{
		{"Name", "Mail"},
		{"Alice", "alice@example.com"},
	})
	job := testJob(input, tmp)
	job.Match = []config.MatchRule{{Column: "Email", Attribute: "mail"}}
	sender := &recordingSender{}

	_, err := app.Run(context.Background(), job, staffedDirectory(), sender, zap.NewNop(), filepath.Join(tmp, "run"), false)
	if err == nil || !strings.Contains(err.Error(), `match column "Email"`) {
		t.Fatalf("expected match column error, got %v", err)
	}
	if len(sender.msgs) != 0 {
		t.Fatalf("failed run must not send the summary email")
	}
}

func TestRunAbortsOnSearchFailure(t *testing.T) {
	tmp := t.TempDir()
	input := writeInput(t, tmp, [][]string{
		{"Name", "Mail"},
		{"Alice", "alice@example.com"},
	})
	dir := fakedir.New()
	dir.FailSearches(errors.New("connection reset"))
	sender := &recordingSender{}
	base := filepath.Join(tmp, "run")

	_, err := app.Run(context.Background(), testJob(input, tmp), dir, sender, zap.NewNop(), base, false)
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("expected search failure, got %v", err)
	}
	if _, serr := os.Stat(base + ".xlsx"); !os.IsNotExist(serr) {
		t.Fatalf("aborted run must not leave a workbook behind")
	}
}

func TestRunSkipsWorkbookForHeaderOnlyInput(t *testing.T) {
	tmp := t.TempDir()
	input := writeInput(t, tmp, [][]string{
		{"Name", "Mail"},
	})
	sender := &recordingSender{}

	res, err := app.Run(context.Background(), testJob(input, tmp), staffedDirectory(), sender, zap.NewNop(), filepath.Join(tmp, "run"), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.WorkbookPath != "" {
		t.Fatalf("workbook path = %q, want none for empty input", res.WorkbookPath)
	}
	if len(sender.msgs) != 1 || sender.msgs[0].Attachment != "" {
		t.Fatalf("summary email should still go out, without attachment: %+v", sender.msgs)
	}
}

func TestRunPropagatesSendFailure(t *testing.T) {
	tmp := t.TempDir()
	input := writeInput(t, tmp, [][]string{
		{"Name", "Mail"},
		{"Alice", "alice@example.com"},
	})
	sender := &recordingSender{err: errors.New("smtp 554")}

	_, err := app.Run(context.Background(), testJob(input, tmp), staffedDirectory(), sender, zap.NewNop(), filepath.Join(tmp, "run"), false)
	if err == nil || !strings.Contains(err.Error(), "smtp 554") {
		t.Fatalf("expected send failure, got %v", err)
	}
}

func TestNotifyFailure(t *testing.T) {
	job := testJob("staff.xlsx", ".")
	sender := &recordingSender{}

	err := app.NotifyFailure(context.Background(), sender, job, errors.New("ldap bind failed: password=hunter2"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.msgs) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(sender.msgs))
	}
	msg := sender.msgs[0]
	if msg.To[0] != "ops@example.com" {
		t.Fatalf("alert recipients = %v, want the admins", msg.To)
	}
	if !msg.HighPriority {
		t.Fatalf("alerts must be high priority")
	}
	if strings.Contains(msg.HTML, "hunter2") {
		t.Fatalf("alert body leaked a secret: %q", msg.HTML)
	}

	job.Admins = nil
	sender.msgs = nil
	if err := app.NotifyFailure(context.Background(), sender, job, errors.New("boom")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.msgs[0].To[0] != "hr@example.com" {
		t.Fatalf("admin-less alert should fall back to mail_to, got %v", sender.msgs[0].To)
	}
}

func TestArtifactBase(t *testing.T) {
	ts, err := time.Parse(time.RFC3339, "2024-01-31T09:15:30Z")
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	if base := app.ArtifactBase("weekly-staff", ts); base != "weekly-staff-20240131-091530" {
		t.Fatalf("base = %q", base)
	}
}
