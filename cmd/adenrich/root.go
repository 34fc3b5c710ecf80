package main

import (
	"github.com/spf13/cobra"
)

var (
	jobFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "adenrich",
	Short: "Enrich spreadsheet rows with directory attributes",
	Long: `adenrich reads an xlsx workbook, looks each row up in a directory
service, appends the requested attributes as new columns, and emails the
enriched workbook to the configured recipients.

Secrets never live in the job file: the directory bind password and the SMTP
password come from ADENRICH_BIND_PASSWORD and ADENRICH_SMTP_PASSWORD.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&jobFile, "job", "", "Job file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(runCmd, checkCmd, versionCmd)
}
