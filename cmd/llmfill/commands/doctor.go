package commands

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"llmfill/internal/doctor"
	llmerrors "llmfill/internal/errors"
	"llmfill/internal/schema"
)

var (
	doctorFix  bool
	doctorJSON bool
)

func init() {
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false,
		"repair what can be repaired and persist the result")
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false,
		"output results as JSON")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the stored configuration for problems",
	Long: `Run diagnostic checks over the stored configuration document: storage
health, schema version, validation defects, snapshot integrity, and
credentials.

Repairable defects (wrong types, missing fields with known defaults) are
fixed automatically during migration; --fix applies those repairs now and
persists the result. Defects marked fatal cannot be repaired and will make
the application fall back to defaults.

Exit codes:
  0 - All checks passed
  1 - Warnings or errors found`,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	m := getManager()

	runner := doctor.NewRunner(
		&doctor.StorageCheck{Store: fileStore},
		&doctor.SchemaVersionCheck{Store: fileStore},
		&doctor.DefectsCheck{Store: fileStore},
		&doctor.SnapshotCheck{Backups: snapshots},
		&doctor.APIKeyCheck{Manager: m},
	)
	report := runner.Run()

	if doctorJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return errors.Wrap(err, "encoding report")
		}
		cmd.Println(string(data))
	} else {
		printReport(cmd, report)
	}

	if doctorFix && report.Fixable() {
		if _, err := m.Migrate(); err != nil {
			return llmerrors.NewSystemError(err,
				"the defects could not be repaired; the stored document was left untouched")
		}
		cmd.Printf("%s repaired and migrated to schema version %d\n",
			color.GreenString("✓"), schema.CurrentVersion)
		return nil
	}

	if report.HasErrors() || report.HasWarnings() {
		suggestion := ""
		if report.Fixable() {
			suggestion = "run 'llmfill doctor --fix' to repair what can be repaired"
		}
		return llmerrors.NewUserError(
			errors.Newf("%d error(s), %d warning(s)",
				report.Summary.Errors, report.Summary.Warnings),
			suggestion)
	}
	return nil
}

// printReport lists each check result with a severity marker, and any
// per-field details beneath it.
func printReport(cmd *cobra.Command, report *doctor.Report) {
	for _, res := range report.Results {
		cmd.Printf("%s %s: %s\n", severityMarker(res.Status), res.Name, res.Message)
		for _, detail := range res.Details {
			cmd.Printf("    %s\n", detail)
		}
		if res.FixHint != "" && res.Status >= doctor.SeverityWarning {
			cmd.Printf("    hint: %s\n", res.FixHint)
		}
	}
}

func severityMarker(s doctor.Severity) string {
	switch s {
	case doctor.SeverityPass:
		return color.GreenString("✓")
	case doctor.SeverityInfo:
		return color.CyanString("i")
	case doctor.SeverityWarning:
		return color.YellowString("!")
	default:
		return color.RedString("✗")
	}
}
