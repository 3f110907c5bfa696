package migrate

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmfill/internal/logging"
	"llmfill/internal/schema"
)

func TestMigrate_EmptyDocument(t *testing.T) {
	cfg, err := New(WithLogger(logging.ForTest(t))).Migrate(schema.Raw{})
	require.NoError(t, err)

	assert.Equal(t, schema.CurrentVersion, cfg.SchemaVersion)
	assert.Empty(t, cfg.APIKeys)
	assert.Empty(t, cfg.Models)
	assert.InDelta(t, 0.7, cfg.Temperature, 0.0001)
	assert.Equal(t, 300, cfg.MaxLength)
}

func TestMigrate_NilDocument(t *testing.T) {
	cfg, err := New().Migrate(nil)
	require.NoError(t, err)
	assert.Equal(t, schema.Defaults(), cfg)
}

func TestMigrate_V0Shape(t *testing.T) {
	raw := schema.Raw{
		"api_key": "sk-abc",
		"model":   "gpt-4o",
		"client":  "OpenAI",
	}
	cfg, err := New(WithLogger(logging.ForTest(t))).Migrate(raw)
	require.NoError(t, err)

	assert.Equal(t, "sk-abc", cfg.APIKeys["OpenAI"])
	assert.Equal(t, "gpt-4o", cfg.Models["OpenAI"])
	assert.Equal(t, schema.CurrentVersion, cfg.SchemaVersion)
	assert.Equal(t, []string{"gpt-4o"}, cfg.ModelLists["OpenAI"])

	// Legacy scalar keys must not survive migration.
	out, err := schema.ToRaw(cfg)
	require.NoError(t, err)
	assert.NotContains(t, out, "api_key")
	assert.NotContains(t, out, "model")

	// The input blob is never mutated.
	assert.Equal(t, "sk-abc", raw["api_key"])
	assert.NotContains(t, raw, "api_keys")
}

func TestMigrate_V1MissingMaxPromptTokens(t *testing.T) {
	raw := schema.Raw{
		"schema_version": 1,
		"client":         "OpenAI",
		"api_keys":       map[string]any{"OpenAI": "x"},
		"models":         map[string]any{"OpenAI": "y"},
	}
	cfg, err := New(WithLogger(logging.ForTest(t))).Migrate(raw)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.MaxPromptTokens)
	assert.Equal(t, schema.CurrentVersion, cfg.SchemaVersion)
	assert.Equal(t, "x", cfg.APIKeys["OpenAI"])
	assert.Equal(t, "y", cfg.Models["OpenAI"])
}

func TestMigrate_FieldMappingsTextToRules(t *testing.T) {
	raw := schema.Raw{
		"schema_version":    3,
		"client":            "OpenAI",
		"api_keys":          map[string]any{},
		"models":            map[string]any{},
		"max_prompt_tokens": 500,
		"global_prompt":     "Explain {Front}",
		"field_mappings":    "Back: the answer\nExtra: a mnemonic\nmalformed line\n",
	}
	cfg, err := New(WithLogger(logging.ForTest(t))).Migrate(raw)
	require.NoError(t, err)

	p, ok := cfg.NotePrompt(schema.DefaultNoteType)
	require.True(t, ok)
	assert.Equal(t, "Explain {Front}", p.UpdatePrompt)
	assert.Equal(t, "", p.CreatePrompt)
	require.Len(t, p.FieldRules, 2)
	assert.Equal(t, schema.FieldRule{Mode: schema.ModeFill, Description: "the answer"}, p.FieldRules["Back"])
	assert.Equal(t, schema.FieldRule{Mode: schema.ModeFill, Description: "a mnemonic"}, p.FieldRules["Extra"])
}

func TestMigrate_CreateOnlyFieldsFoldIntoRules(t *testing.T) {
	raw := schema.Raw{
		"schema_version":    6,
		"client":            "OpenAI",
		"api_keys":          map[string]any{},
		"models":            map[string]any{},
		"max_prompt_tokens": 500,
		"note_prompts": map[string]any{
			"Basic": map[string]any{
				"update_prompt":      "u",
				"create_prompt":      "c",
				"field_mappings":     map[string]any{"Back": "the answer", "Extra": "set once"},
				"create_only_fields": []any{"Extra"},
			},
		},
	}
	cfg, err := New(WithLogger(logging.ForTest(t))).Migrate(raw)
	require.NoError(t, err)

	p := cfg.NotePrompts["Basic"]
	assert.Equal(t, schema.ModeFill, p.FieldRules["Back"].Mode)
	assert.Equal(t, schema.ModeCreateOnly, p.FieldRules["Extra"].Mode)
}

func TestMigrate_Idempotent(t *testing.T) {
	chain := New(WithLogger(logging.ForTest(t)))

	first, err := chain.Migrate(schema.Raw{
		"api_key": "sk-abc",
		"model":   "gpt-4o",
		"client":  "OpenAI",
	})
	require.NoError(t, err)

	asRaw, err := schema.ToRaw(first)
	require.NoError(t, err)
	second, err := chain.Migrate(asRaw)
	require.NoError(t, err)

	assert.Equal(t, first, second, "re-running migration on current output must be a fixed point")
}

func TestMigrate_EveryStepValidates(t *testing.T) {
	// Walk the chain one version at a time, asserting the intermediate
	// document validates at each destination version.
	work := schema.Raw{
		"client":         "OpenAI",
		"api_key":        "sk-abc",
		"model":          "gpt-4o",
		"global_prompt":  "Explain {Front}",
		"field_mappings": "Back: the answer",
	}
	for v, step := range Registry() {
		next, err := step.Apply(work.Clone())
		require.NoError(t, err, "step %d -> %d", v, step.To)
		next["schema_version"] = step.To
		report := schema.ValidateAt(next, step.To)
		assert.True(t, report.Ok(), "defects after step to v%d: %v", step.To, report.Err())
		work = next
	}
	assert.Equal(t, schema.CurrentVersion, work.Version())
}

func TestMigrate_MalformedVersionStamp(t *testing.T) {
	// A hand-damaged stamp must never derail the chain; the document is
	// migrated from version 0 like any unstamped input.
	for _, stamp := range []any{float64(-1.5), -1, float64(3.7), "two", true} {
		raw := schema.Raw{
			"schema_version": stamp,
			"api_key":        "sk-abc",
			"client":         "OpenAI",
		}
		cfg, err := New(WithLogger(logging.ForTest(t))).Migrate(raw)
		require.NoError(t, err, "stamp %v", stamp)
		assert.Equal(t, schema.CurrentVersion, cfg.SchemaVersion, "stamp %v", stamp)
		assert.Equal(t, "sk-abc", cfg.APIKeys["OpenAI"], "stamp %v", stamp)
	}
}

func TestMigrate_UnsupportedVersion(t *testing.T) {
	raw := schema.Raw{"schema_version": 999}
	_, err := New().Migrate(raw)

	var unsupported *UnsupportedVersionError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, 999, unsupported.Version)
	assert.Equal(t, schema.CurrentVersion, unsupported.Supported)
}

func TestMigrate_StepFailureCarriesContext(t *testing.T) {
	boom := errors.New("boom")
	chain := &Chain{
		target: 2,
		logger: logging.ForTest(t),
		steps: []Step{
			{To: 1, Note: "ok", Apply: func(r schema.Raw) (schema.Raw, error) { return r, nil }},
			{To: 2, Note: "explodes", Apply: func(schema.Raw) (schema.Raw, error) { return nil, boom }},
		},
	}

	original := schema.Raw{"marker": "untouched"}
	_, err := chain.Migrate(original)

	var merr *Error
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, 0, merr.From)
	assert.Equal(t, 1, merr.Reached)
	assert.Equal(t, "untouched", merr.Raw["marker"])
	assert.ErrorIs(t, err, boom)
}

func TestMigrate_MissingStep(t *testing.T) {
	chain := &Chain{target: 2, logger: logging.NewDiscard(), steps: []Step{}}
	_, err := chain.Migrate(schema.Raw{})

	var merr *Error
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, 0, merr.Reached)
}

func TestMigrate_RepairsDefectiveScalars(t *testing.T) {
	raw := schema.Raw{
		"api_key":     "sk-abc",
		"client":      "OpenAI",
		"temperature": "hot",
	}
	cfg, err := New(WithLogger(logging.ForTest(t))).Migrate(raw)
	require.NoError(t, err)
	assert.InDelta(t, schema.DefaultTemperature, cfg.Temperature, 0.0001)
	assert.Equal(t, "sk-abc", cfg.APIKeys["OpenAI"])
}
