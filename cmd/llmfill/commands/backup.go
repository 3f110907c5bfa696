package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"llmfill/internal/backup"
	llmerrors "llmfill/internal/errors"
)

func init() {
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	rootCmd.AddCommand(backupCmd)
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage pre-migration snapshots",
	Long: `Manage the snapshots taken before configuration migrations.

One generation is kept: the document as it was before the most recent
migration. Restoring it puts the stored config back to that state; the next
load will migrate it again.`,
	RunE: runBackupList,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available snapshots",
	RunE:  runBackupList,
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore [id]",
	Short: "Restore a snapshot over the stored configuration",
	Long: `Restore a snapshot over the stored configuration.

Without an ID, the most recent snapshot is restored. The current stored
document is snapshotted first, so a restore can itself be undone.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBackupRestore,
}

func runBackupList(cmd *cobra.Command, _ []string) error {
	getManager()

	manifests, err := snapshots.List()
	if err != nil {
		if errors.Is(err, backup.ErrNoSnapshots) {
			cmd.Println("no snapshots")
			return nil
		}
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tSCHEMA VERSION")
	for _, m := range manifests {
		fmt.Fprintf(w, "%s\t%s\t%d\n", m.ID, m.CreatedAt.Local().Format(time.RFC3339), m.SchemaVersion)
	}
	return w.Flush()
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	getManager()

	id := ""
	if len(args) == 1 {
		id = args[0]
	} else {
		latest, err := snapshots.Latest()
		if err != nil {
			if errors.Is(err, backup.ErrNoSnapshots) {
				return llmerrors.NewUserError(err, "snapshots are taken automatically before migrations")
			}
			return err
		}
		id = latest.ID
	}

	restored, err := snapshots.Restore(id)
	if err != nil {
		if errors.Is(err, llmerrors.ErrNotFound) {
			return llmerrors.NewUserError(err, "run 'llmfill backup list' to see available snapshots")
		}
		return err
	}

	// Snapshot the current document first so the restore is undoable.
	if current, err := fileStore.Read(); err == nil && current != nil {
		if _, err := snapshots.Snapshot(current); err != nil {
			return errors.Wrap(err, "snapshotting current config before restore")
		}
	}

	if err := fileStore.Write(restored); err != nil {
		return errors.Wrap(err, "writing restored config")
	}
	cmd.Printf("restored snapshot %s (schema version %d)\n", id, restored.Version())
	return nil
}
