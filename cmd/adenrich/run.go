package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"adenrich/internal/app"
	"adenrich/internal/config"
	"adenrich/internal/directory"
	"adenrich/internal/logging"
	"adenrich/internal/report"
	"adenrich/internal/util"
)

var (
	excelFile string
	logFolder string
	dryRun    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one enrichment job end to end",
	Long: `Reads the job's workbook, enriches every row from the directory, writes
the .log, .xlsx and .html artifacts into the log folder, and emails the
result. A failed run alerts the admins and exits 1.`,
	RunE: runJob,
}

func init() {
	runCmd.Flags().StringVar(&excelFile, "excel-file", "", "Override the job's input workbook")
	runCmd.Flags().StringVar(&logFolder, "log-folder", "", "Override the job's artifact folder")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Write all artifacts but send no mail")
}

func runJob(cmd *cobra.Command, _ []string) error {
	job, err := loadJob()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	sender := report.NewSMTPSender(job.SMTP)

	base := filepath.Join(job.LogFolder, app.ArtifactBase(job.Name, time.Now()))
	runlog, err := logging.New(base+".log", verbose)
	if err != nil {
		return failRun(ctx, logging.Console(verbose), sender, job, err)
	}
	defer func() {
		_ = runlog.Close()
	}()

	dir, err := directory.Dial(directory.Config{
		URL:          job.Directory.URL,
		BaseDN:       job.Directory.BaseDN,
		BindDN:       job.Directory.BindDN,
		BindPassword: job.Directory.BindPassword,
		StartTLS:     job.Directory.StartTLS,
	})
	if err != nil {
		return failRun(ctx, runlog.Logger, sender, job, err)
	}
	defer func() {
		_ = dir.Close()
	}()

	if _, err := app.Run(ctx, job, dir, sender, runlog.Logger, base, dryRun); err != nil {
		return failRun(ctx, runlog.Logger, sender, job, err)
	}
	return nil
}

// failRun logs the failure, alerts the admins best-effort, and maps the
// error to exit code 1. Dry runs skip the alert along with everything else.
func failRun(ctx context.Context, log *zap.Logger, sender report.Sender, job *config.Job, err error) error {
	log.Error("run failed", zap.String("error", util.RedactSecrets(err.Error())))
	if !dryRun {
		if aerr := app.NotifyFailure(ctx, sender, job, err); aerr != nil {
			log.Error("failure alert not sent", zap.String("error", util.RedactSecrets(aerr.Error())))
		}
	}
	return &exitError{code: 1, err: err}
}

func loadJob() (*config.Job, error) {
	if jobFile == "" {
		return nil, fmt.Errorf("--job is required")
	}
	job, err := config.Load(jobFile)
	if err != nil {
		return nil, err
	}
	if excelFile != "" {
		job.ExcelFile = excelFile
	}
	if logFolder != "" {
		job.LogFolder = logFolder
	}
	return job, nil
}
