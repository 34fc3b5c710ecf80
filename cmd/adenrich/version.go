package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"adenrich/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the adenrich version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Current)
	},
}
