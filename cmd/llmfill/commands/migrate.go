package commands

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	llmerrors "llmfill/internal/errors"
	"llmfill/internal/migrate"
	"llmfill/internal/schema"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the stored configuration to the current schema",
	Long: `Load the stored configuration and migrate it to the current schema.

Ordinarily this happens automatically on every load; run it explicitly to
see why a migration is not happening. Unlike the automatic path, this
command reports migration failures instead of silently serving defaults.

A snapshot of the pre-migration document is taken first; use
'llmfill backup restore' to undo.`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	m := getManager()

	// The stored version is read up front; the manager rewrites the
	// document on success.
	raw, err := fileStore.Read()
	if err != nil {
		return llmerrors.NewUserError(err,
			"the stored document is unreadable; inspect it by hand or restore a snapshot")
	}
	from := raw.Version()

	cfg, err := m.Migrate()
	if err != nil {
		var unsupported *migrate.UnsupportedVersionError
		if errors.As(err, &unsupported) {
			return llmerrors.NewUserError(err,
				"this config was written by a newer llmfill; upgrade to use it")
		}
		return llmerrors.NewSystemError(err,
			"the stored document was left untouched; 'llmfill doctor' shows its defects")
	}

	if from == schema.CurrentVersion {
		cmd.Printf("already at schema version %d\n", schema.CurrentVersion)
		return nil
	}
	cmd.Printf("migrated schema version %d -> %d\n", from, cfg.SchemaVersion)
	return nil
}
