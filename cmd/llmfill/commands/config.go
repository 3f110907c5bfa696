package commands

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"llmfill/internal/editor"
	llmerrors "llmfill/internal/errors"
	"llmfill/internal/schema"
)

var configShowFormat string

func init() {
	configShowCmd.Flags().StringVar(&configShowFormat, "format", "json",
		"output format: json, yaml, toml")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetKeyCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change configuration values",
	Long: `Inspect and change configuration values.

Without a subcommand, shows the effective configuration. Values read here
have already been migrated to the current schema and filled with defaults;
'config show' never fails even when the stored document is damaged.`,
	Example: `  # Show the effective configuration
  llmfill config show

  # Get a single value
  llmfill config get temperature

  # Change the sampling temperature
  llmfill config set temperature 0.4

See Also: llmfill doctor, llmfill migrate`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Render the effective (migrated, default-filled) configuration.

API keys are masked; use 'config get api-key' to print one in full.`,
	Example: `  # JSON (default)
  llmfill config show

  # YAML or TOML
  llmfill config show --format yaml
  llmfill config show --format toml`,
	RunE: runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Print a single configuration value.

Keys: client, model, api-key, temperature, max-length, max-prompt-tokens,
global-prompt, shortcut, models.`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Set a configuration value",
	Long: `Set a configuration value.

Keys: client, model, temperature, max-length, max-prompt-tokens,
global-prompt, shortcut.

'set model' without a value opens a fuzzy finder over the models previously
used with the active client.`,
	Example: `  # Switch clients
  llmfill config set client Anthropic

  # Pick a remembered model interactively
  llmfill config set model`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConfigSet,
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key <client> <key>",
	Short: "Store an API key for a client",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSetKey,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the stored config document in $EDITOR",
	Long: `Open the stored config document in your default editor.

Uses $EDITOR, falling back to $VISUAL, nano, then vi. The edited document is
validated and migrated on the next load; 'llmfill doctor' shows what a hand
edit broke.`,
	RunE: runConfigEdit,
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg := getManager().Load()
	for client, key := range cfg.APIKeys {
		cfg.APIKeys[client] = maskKey(key)
	}

	out, err := renderConfig(cfg, configShowFormat)
	if err != nil {
		return err
	}
	cmd.Println(out)
	return nil
}

// renderConfig encodes cfg in the requested format. Rendering goes through
// the raw document form so every format shows the same key names the stored
// file uses.
func renderConfig(cfg *schema.Config, format string) (string, error) {
	raw, err := schema.ToRaw(cfg)
	if err != nil {
		return "", errors.Wrap(err, "encoding config")
	}
	doc := map[string]any(raw)

	switch format {
	case "json", "":
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return "", errors.Wrap(err, "encoding config as JSON")
		}
		return string(data), nil
	case "yaml":
		data, err := yaml.Marshal(doc)
		if err != nil {
			return "", errors.Wrap(err, "encoding config as YAML")
		}
		return strings.TrimRight(string(data), "\n"), nil
	case "toml":
		data, err := toml.Marshal(doc)
		if err != nil {
			return "", errors.Wrap(err, "encoding config as TOML")
		}
		return strings.TrimRight(string(data), "\n"), nil
	default:
		return "", llmerrors.NewUserError(
			errors.Newf("unknown format %q", format),
			"valid formats: json, yaml, toml")
	}
}

// maskKey hides the middle of an API key, keeping just enough to recognize it.
func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	m := getManager()

	switch args[0] {
	case "client":
		cmd.Println(m.Client())
	case "model":
		cmd.Println(m.Model(""))
	case "api-key":
		cmd.Println(m.APIKey(""))
	case "temperature":
		cmd.Println(m.Temperature())
	case "max-length":
		cmd.Println(m.MaxLength())
	case "max-prompt-tokens":
		cmd.Println(m.MaxPromptTokens())
	case "global-prompt":
		cmd.Println(m.GlobalPrompt())
	case "shortcut":
		cmd.Println(m.Shortcut())
	case "models":
		for _, model := range m.ModelList() {
			cmd.Println(model)
		}
	default:
		return llmerrors.NewUserError(
			errors.Newf("unknown key %q", args[0]),
			"run 'llmfill config get --help' for the list of keys")
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	m := getManager()
	key := args[0]

	if len(args) == 1 {
		if key != "model" {
			return llmerrors.NewUserError(
				errors.Newf("key %q requires a value", key), "")
		}
		return pickModel()
	}
	value := args[1]

	switch key {
	case "client":
		return m.SetClient(value)
	case "model":
		return m.SetModel("", value)
	case "shortcut":
		return m.SetShortcut(value)
	case "global-prompt":
		return m.Update(func(cfg *schema.Config) { cfg.GlobalPrompt = value })
	case "temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return llmerrors.NewUserError(err, "temperature must be a number between 0.0 and 2.0")
		}
		return m.Update(func(cfg *schema.Config) { cfg.Temperature = f })
	case "max-length":
		n, err := strconv.Atoi(value)
		if err != nil {
			return llmerrors.NewUserError(err, "max-length must be a positive integer")
		}
		return m.Update(func(cfg *schema.Config) { cfg.MaxLength = n })
	case "max-prompt-tokens":
		n, err := strconv.Atoi(value)
		if err != nil {
			return llmerrors.NewUserError(err, "max-prompt-tokens must be a positive integer")
		}
		return m.Update(func(cfg *schema.Config) { cfg.MaxPromptTokens = n })
	default:
		return llmerrors.NewUserError(
			errors.Newf("unknown key %q", key),
			"run 'llmfill config set --help' for the list of keys")
	}
}

// pickModel opens a fuzzy finder over the remembered models for the active
// client and selects the chosen one.
func pickModel() error {
	m := getManager()
	models := m.ModelList()
	if len(models) == 0 {
		return llmerrors.NewUserError(
			errors.New("no remembered models for the active client"),
			"set one explicitly first: llmfill config set model <name>")
	}

	idx, err := fuzzyfinder.Find(
		models,
		func(i int) string { return models[i] },
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return nil
		}
		return errors.Wrap(err, "selecting model")
	}
	return m.SetModel("", models[idx])
}

func runConfigSetKey(_ *cobra.Command, args []string) error {
	return getManager().SetAPIKey(args[0], args[1])
}

func runConfigEdit(cmd *cobra.Command, _ []string) error {
	getManager()

	cmd.Printf("editing %s\n", fileStore.Path())
	if err := editor.Open(fileStore.Path()); err != nil {
		return err
	}

	// Show what the edit did to the document.
	cfg := getManager().Reload()
	cmd.Printf("loaded schema version %d\n", cfg.SchemaVersion)
	return nil
}
