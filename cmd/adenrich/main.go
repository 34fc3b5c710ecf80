package main

import (
	"errors"
	"fmt"
	"os"

	"adenrich/internal/util"
)

// exitError carries the process exit code for a failed run. Anything else
// that escapes Execute is a usage or configuration problem and exits 2.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 2
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %s\n", util.RedactSecrets(err.Error()))
		os.Exit(exitCode(err))
	}
}
