package commands

import (
	"github.com/spf13/cobra"

	"llmfill/cmd"
	"llmfill/internal/schema"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Long:  `Print the version, commit, build date, and supported config schema version.`,
	Run: func(c *cobra.Command, _ []string) {
		c.Printf("llmfill version %s\n", cmd.Version)
		c.Printf("  commit: %s\n", cmd.Commit)
		c.Printf("  built:  %s\n", cmd.Date)
		c.Printf("  schema: %d\n", schema.CurrentVersion)
	},
}
