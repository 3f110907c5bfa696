// Package editor launches the user's preferred text editor.
package editor

import (
	"os"
	"os/exec"

	"github.com/cockroachdb/errors"
)

// Open launches the user's preferred editor on the given path and blocks
// until it exits. The editor is resolved from $EDITOR, then $VISUAL, then
// nano, then vi.
func Open(path string) error {
	cmd := exec.Command(detectEditor(), path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return errors.Wrap(err, "running editor")
	}
	return nil
}

// detectEditor returns the editor command to use.
// Fallback chain: $EDITOR, $VISUAL, nano, vi.
func detectEditor() string {
	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor
	}
	if visual := os.Getenv("VISUAL"); visual != "" {
		return visual
	}
	if _, err := exec.LookPath("nano"); err == nil {
		return "nano"
	}
	return "vi"
}
