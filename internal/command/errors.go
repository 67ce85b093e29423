package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/adamavenir/tavern/internal/db"
	"github.com/spf13/cobra"
)

func writeCommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())

	switch {
	case isSchemaError(err):
		fmt.Fprintln(cmd.ErrOrStderr(), "Hint: This looks like a schema mismatch. Try a fresh --db path.")
	case errors.Is(err, db.ErrEmptyMessage):
		fmt.Fprintln(cmd.ErrOrStderr(), "Hint: pass the message text or an --attach file.")
	}

	return err
}

// isSchemaError checks if an error is a SQLite schema mismatch.
func isSchemaError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no such column") ||
		strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "has no column") ||
		strings.Contains(msg, "newer than this build")
}
