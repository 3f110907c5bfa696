// Package commands implements the CLI commands for llmfill.
package commands

import (
	"log/slog"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"llmfill/internal/backup"
	"llmfill/internal/config"
	"llmfill/internal/errors"
	"llmfill/internal/logging"
	"llmfill/internal/paths"
	"llmfill/internal/store"
)

// verbosity holds the count of -v flags.
var verbosity int

// quiet holds the value of the -q/--quiet flag.
var quiet bool

// logFormat holds the value of the --log-format flag.
var logFormat string

// logFile holds the path to the log file.
var logFile string

// configPath holds the value of the --config flag.
var configPath string

func init() {
	cobra.OnInitialize(initSettings)

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"increase verbosity level (e.g., -v, -vv)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"log format: text, json")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"write logs to a rotating file in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to the config document (default: "+paths.ConfigPath()+")")

	// Silence errors and usage so main controls error output
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

// initSettings wires the CLI's own settings through viper: flags win,
// then LLMFILL_* environment variables, then defaults.
func initSettings() {
	viper.SetEnvPrefix("LLMFILL")
	viper.AutomaticEnv()

	viper.SetDefault("config_path", paths.ConfigPath())
	viper.SetDefault("backup_dir", paths.BackupDir())
	viper.SetDefault("log_file", "")
}

var rootCmd = &cobra.Command{
	Use:   "llmfill",
	Short: "Manage LLM card-fill configuration",
	Long: `llmfill manages the configuration used to fill flashcard fields
with LLM-generated content: client and model selection, API keys, prompt
templates, and per-note-type field rules.

The stored document is migrated to the current schema automatically on
load. A snapshot of the pre-migration state is kept so a migration can
always be undone with 'llmfill backup restore'.`,
	Example: `  # Show the effective configuration
  llmfill config show

  # Pick a model from the remembered list
  llmfill config set model

  # Check the stored document for problems
  llmfill doctor`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(cmd)
	},
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// setupLogging configures the default logger from the verbosity flags.
func setupLogging(cmd *cobra.Command) error {
	if quiet && verbosity > 0 {
		return errors.NewUserError(nil, "cannot use --quiet and --verbose together")
	}

	var level slog.Level
	if quiet {
		level = slog.LevelError
	} else {
		level = logging.LevelFromVerbosity(verbosity)
	}

	opts := &slog.HandlerOptions{Level: level}

	var primary slog.Handler
	switch logging.Format(logFormat) {
	case logging.FormatJSON:
		primary = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	default:
		primary = logging.NewHandler(cmd.ErrOrStderr(), opts)
	}

	handlers := []slog.Handler{primary}

	path := logFile
	if path == "" {
		path = viper.GetString("log_file")
	}
	if path != "" {
		handlers = append(handlers, logging.NewFileHandler(path, level))
	}

	var handler slog.Handler
	if len(handlers) > 1 {
		handler = logging.NewMultiHandler(handlers...)
	} else {
		handler = handlers[0]
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

var (
	managerOnce sync.Once
	manager     *config.Manager
	fileStore   *store.FileStore
	snapshots   *backup.Manager
)

// getManager lazily builds the shared configuration manager. Commands share
// one instance so the load-once cache behaves the same as in the host
// application.
func getManager() *config.Manager {
	managerOnce.Do(func() {
		path := configPath
		if path == "" {
			path = viper.GetString("config_path")
		}
		fileStore = store.NewFileStore(path)
		snapshots = backup.NewManager(backup.WithDir(viper.GetString("backup_dir")))
		manager = config.NewManager(fileStore,
			config.WithBackups(snapshots),
			config.WithLogger(slog.Default()),
		)
	})
	return manager
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
