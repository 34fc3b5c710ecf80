package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"adenrich/internal/directory"
	"adenrich/internal/report"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the job file and confirm the directory and mail hosts are reachable",
	Long: `Loads and validates the job file, checks that the input workbook exists,
binds to the directory, and greets the SMTP host. Nothing is read from the
workbook and no mail is sent.`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, _ []string) error {
	job, err := loadJob()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "job file: ok (%s)\n", job.Name)

	if _, err := os.Stat(job.ExcelFile); err != nil {
		return &exitError{code: 1, err: fmt.Errorf("input workbook: %w", err)}
	}
	fmt.Fprintf(out, "input workbook: ok (%s)\n", job.ExcelFile)

	dir, err := directory.Dial(directory.Config{
		URL:          job.Directory.URL,
		BaseDN:       job.Directory.BaseDN,
		BindDN:       job.Directory.BindDN,
		BindPassword: job.Directory.BindPassword,
		StartTLS:     job.Directory.StartTLS,
	})
	if err != nil {
		return &exitError{code: 1, err: err}
	}
	_ = dir.Close()
	fmt.Fprintf(out, "directory bind: ok (%s)\n", job.Directory.URL)

	if err := report.NewSMTPSender(job.SMTP).Ping(cmd.Context()); err != nil {
		return &exitError{code: 1, err: err}
	}
	fmt.Fprintf(out, "smtp: ok (%s:%d)\n", job.SMTP.Host, job.SMTP.Port)
	return nil
}
