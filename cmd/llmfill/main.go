// Package main is the entry point for the llmfill CLI.
package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"

	"llmfill/cmd/llmfill/commands"
	llmerrors "llmfill/internal/errors"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)

		code := llmerrors.ExitUser
		var exit *llmerrors.ExitError
		if errors.As(err, &exit) {
			code = exit.Code
			if exit.Suggestion != "" {
				fmt.Fprintln(os.Stderr, exit.Suggestion)
			}
		}
		os.Exit(code)
	}
}
