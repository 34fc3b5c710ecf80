package report

import (
	"fmt"
	"html/template"
	"strings"

	"adenrich/internal/util"
)

// Summary describes a finished run for the notification body.
type Summary struct {
	Job     string
	Source  string
	Rows    int
	Matched int
	Columns []string
	Errors  []string
}

// Failure describes an aborted run for the admin alert body.
type Failure struct {
	Job    string
	Source string
	Reason string
}

var summaryTmpl = template.Must(template.New("summary").Parse(`<html>
<body>
<h2>{{.Job}}</h2>
<p>Enriched <b>{{.Rows}}</b> row{{if ne .Rows 1}}s{{end}} from {{.Source}};
{{.Matched}} matched a directory entry.</p>
<p>Columns added:</p>
<ul>
{{- range .Columns}}
<li>{{.}}</li>
{{- end}}
</ul>
{{- if .Errors}}
<p>{{len .Errors}} problem{{if ne (len .Errors) 1}}s were{{else}} was{{end}} recorded
during the run; see the Errors sheet of the attached workbook.</p>
{{- end}}
<p>The enriched workbook is attached.</p>
</body>
</html>
`))

var failureTmpl = template.Must(template.New("failure").Parse(`<html>
<body>
<h2>{{.Job}} FAILED</h2>
<p>The run against {{.Source}} aborted before producing output.</p>
<pre>{{.Reason}}</pre>
<p>Check the run log for details.</p>
</body>
</html>
`))

// SummaryHTML renders the body of the results email.
func SummaryHTML(s Summary) (string, error) {
	var b strings.Builder
	if err := summaryTmpl.Execute(&b, s); err != nil {
		return "", fmt.Errorf("render summary body: %w", err)
	}
	return b.String(), nil
}

// FailureHTML renders the body of the admin alert sent when a run aborts. The
// reason is redacted before it enters the body.
func FailureHTML(f Failure) (string, error) {
	f.Reason = util.RedactSecrets(f.Reason)
	var b strings.Builder
	if err := failureTmpl.Execute(&b, f); err != nil {
		return "", fmt.Errorf("render failure body: %w", err)
	}
	return b.String(), nil
}

// SummarySubject is the subject line of the results email.
func SummarySubject(job string) string {
	return job + ": enrichment results"
}

// FailureSubject is the subject line of the admin alert.
func FailureSubject(job string) string {
	return "FAILURE: " + job
}
