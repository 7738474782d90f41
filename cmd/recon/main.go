package main

import (
	"fmt"
	"os"

	"payment-recon-service/cmd/recon/cmd"
	"payment-recon-service/pkg/errors"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, date)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var appErr *errors.Error
		if errors.AsError(err, &appErr) {
			if appErr.Suggestion != "" {
				fmt.Fprintf(os.Stderr, "Suggestion: %s\n", appErr.Suggestion)
			}
			os.Exit(appErr.ExitCode())
		}
		os.Exit(1)
	}
}
