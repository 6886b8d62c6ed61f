package cmd

import (
	"os"

	"github.com/bomanihosts/backend/internal/audit"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// newAuditLogger writes audit lines to stderr so command output stays parseable.
func newAuditLogger(cmd *cobra.Command) *audit.Logger {
	return audit.NewLogger(zerolog.New(cmd.ErrOrStderr()).With().Timestamp().Logger())
}

// auditActor names the operator running an admin command.
func auditActor() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}
