package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRaw_Version(t *testing.T) {
	tests := []struct {
		name string
		raw  Raw
		want int
	}{
		{"missing stamp is version zero", Raw{}, 0},
		{"int", Raw{"schema_version": 3}, 3},
		{"float from json decode", Raw{"schema_version": float64(7)}, 7},
		{"garbage stamp treated as zero", Raw{"schema_version": "two"}, 0},
		{"negative stamp treated as zero", Raw{"schema_version": -3}, 0},
		{"negative fractional stamp treated as zero", Raw{"schema_version": float64(-1.5)}, 0},
		{"fractional stamp treated as zero", Raw{"schema_version": float64(2.7)}, 0},
		{"negative json number treated as zero", Raw{"schema_version": json.Number("-4")}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.raw.Version())
		})
	}
}

func TestRaw_Clone(t *testing.T) {
	raw := Raw{
		"api_keys": map[string]any{"OpenAI": "sk-abc"},
		"lists":    []any{"a", "b"},
	}
	clone := raw.Clone()

	clone["api_keys"].(map[string]any)["OpenAI"] = "changed"
	clone["lists"].([]any)[0] = "changed"

	assert.Equal(t, "sk-abc", raw["api_keys"].(map[string]any)["OpenAI"])
	assert.Equal(t, "a", raw["lists"].([]any)[0])
}

func TestDefaults_Canonical(t *testing.T) {
	cfg := Defaults()
	require.True(t, ValidateCanonical(cfg).Ok())
	assert.Equal(t, CurrentVersion, cfg.SchemaVersion)
	assert.Equal(t, DefaultClient, cfg.Client)
	assert.InDelta(t, 0.7, cfg.Temperature, 0.0001)
	assert.Equal(t, 300, cfg.MaxLength)
	assert.Equal(t, 500, cfg.MaxPromptTokens)
	assert.Empty(t, cfg.APIKeys)
	assert.Empty(t, cfg.Models)
}

func TestFillDefaults_EmptyDocument(t *testing.T) {
	raw := Raw{}
	filled := FillDefaults(raw)
	assert.NotEmpty(t, filled)

	cfg, err := FromRaw(raw)
	require.NoError(t, err)
	assert.True(t, ValidateCanonical(cfg).Ok())
	assert.InDelta(t, DefaultTemperature, cfg.Temperature, 0.0001)
	assert.Equal(t, DefaultMaxLength, cfg.MaxLength)
}

func TestFillDefaults_PreservesExisting(t *testing.T) {
	raw := Raw{"temperature": 1.5, "client": "Anthropic"}
	FillDefaults(raw)
	assert.Equal(t, 1.5, raw["temperature"])
	assert.Equal(t, "Anthropic", raw["client"])
}

func TestRoundTrip_RawConversion(t *testing.T) {
	cfg := Defaults()
	cfg.APIKeys["OpenAI"] = "sk-abc"
	cfg.Models["OpenAI"] = "gpt-4o"
	cfg.NotePrompts["Basic"] = NotePrompt{
		UpdatePrompt: "update {Front}",
		CreatePrompt: "create",
		FieldRules: map[string]FieldRule{
			"Back":  {Mode: ModeFill, Description: "the answer"},
			"Extra": {Mode: ModeCreateOnly, Description: "mnemonic"},
		},
	}

	raw, err := ToRaw(cfg)
	require.NoError(t, err)
	back, err := FromRaw(raw)
	require.NoError(t, err)

	assert.Equal(t, cfg, back)
}

func TestValidateAt_V0AnythingGoes(t *testing.T) {
	raw := Raw{"api_key": "sk-abc", "model": "gpt-4o", "client": "OpenAI"}
	assert.True(t, ValidateAt(raw, 0).Ok())
}

func TestValidateAt_ScalarTypes(t *testing.T) {
	raw := Raw{
		"temperature": "hot",
		"max_length":  -5,
		"shortcut":    12,
	}
	report := ValidateAt(raw, 0)
	require.Len(t, report.Defects, 3)
	for _, d := range report.Defects {
		assert.True(t, d.Repairable, "scalar defects repair via default fill: %s", d.Field)
	}
}

func TestValidateAt_TemperatureRange(t *testing.T) {
	assert.False(t, ValidateAt(Raw{"temperature": 2.5}, 0).Ok())
	assert.True(t, ValidateAt(Raw{"temperature": 2.0}, 0).Ok())
	assert.True(t, ValidateAt(Raw{"temperature": 0}, 0).Ok())
}

func TestValidateAt_NestedMappingsAreMappings(t *testing.T) {
	raw := Raw{
		"api_keys": "sk-abc",
		"models":   map[string]any{"OpenAI": "gpt-4o"},
	}
	report := ValidateAt(raw, 1)
	require.Len(t, report.Defects, 1)
	assert.Equal(t, "api_keys", report.Defects[0].Field)
}

func TestValidateAt_RequiredByVersion(t *testing.T) {
	raw := Raw{
		"api_keys": map[string]any{},
		"models":   map[string]any{},
	}
	assert.True(t, ValidateAt(raw, 1).Ok())

	report := ValidateAt(raw, 2)
	require.Len(t, report.Defects, 1)
	assert.Equal(t, "max_prompt_tokens", report.Defects[0].Field)
}

func TestValidateAt_NotePromptEntries(t *testing.T) {
	raw := Raw{
		"api_keys":          map[string]any{},
		"models":            map[string]any{},
		"max_prompt_tokens": 500,
		"note_prompts": map[string]any{
			"Basic": map[string]any{
				"update_prompt": "u",
				"create_prompt": "c",
				"field_rules": map[string]any{
					"Back": map[string]any{"mode": "fill", "description": "answer"},
				},
			},
			"Broken": "not a mapping",
		},
	}
	report := ValidateAt(raw, 7)
	require.Len(t, report.Defects, 1)
	assert.Equal(t, "note_prompts.Broken", report.Defects[0].Field)
}

func TestValidateAt_BadRuleMode(t *testing.T) {
	raw := Raw{
		"api_keys":          map[string]any{},
		"models":            map[string]any{},
		"max_prompt_tokens": 500,
		"note_prompts": map[string]any{
			"Basic": map[string]any{
				"update_prompt": "u",
				"create_prompt": "c",
				"field_rules": map[string]any{
					"Back": map[string]any{"mode": "sometimes"},
				},
			},
		},
	}
	report := ValidateAt(raw, 7)
	require.Len(t, report.Defects, 1)
	assert.Contains(t, report.Defects[0].Field, "mode")
}

func TestRepair_FillsScalars(t *testing.T) {
	raw := Raw{"temperature": "hot"}
	report := ValidateAt(raw, 0)
	require.False(t, report.Ok())

	repaired := Repair(raw, report)
	assert.Contains(t, repaired, "temperature")
	assert.Equal(t, DefaultTemperature, raw["temperature"])
	assert.True(t, ValidateAt(raw, 0).Ok())
}

func TestRepair_DropsBadPerClientEntries(t *testing.T) {
	raw := Raw{
		"api_keys": map[string]any{"OpenAI": "sk-abc", "Bad": 42},
		"models":   map[string]any{},
	}
	report := ValidateAt(raw, 1)
	require.False(t, report.Ok())

	Repair(raw, report)
	keys := raw["api_keys"].(map[string]any)
	assert.Equal(t, "sk-abc", keys["OpenAI"])
	assert.NotContains(t, keys, "Bad")
	assert.True(t, ValidateAt(raw, 1).Ok())
}

func TestRepair_NormalizesNotePrompts(t *testing.T) {
	raw := Raw{
		"api_keys":          map[string]any{},
		"models":            map[string]any{},
		"max_prompt_tokens": 500,
		"shortcut":          "Ctrl+G",
		"model_lists":       map[string]any{},
		"note_prompts": map[string]any{
			"Broken": 42,
			"Basic": map[string]any{
				"update_prompt": 1,
				"field_rules": map[string]any{
					"Back": map[string]any{"mode": "sometimes", "description": "answer"},
					"Bad":  "nope",
				},
			},
		},
	}
	report := ValidateAt(raw, 8)
	require.False(t, report.Ok())

	Repair(raw, report)
	require.True(t, ValidateAt(raw, 8).Ok(), "repair must leave a clean document")

	prompts := raw["note_prompts"].(map[string]any)
	assert.NotContains(t, prompts, "Broken")
	basic := prompts["Basic"].(map[string]any)
	assert.Equal(t, "", basic["update_prompt"])
	rules := basic["field_rules"].(map[string]any)
	assert.NotContains(t, rules, "Bad")
	back := rules["Back"].(map[string]any)
	assert.Equal(t, "fill", back["mode"])
	assert.Equal(t, "answer", back["description"])
}

func TestNotePrompt_UpdateRulesExcludeCreateOnly(t *testing.T) {
	p := NotePrompt{
		FieldRules: map[string]FieldRule{
			"Back":  {Mode: ModeFill, Description: "the answer"},
			"Hint":  {Mode: ModeFill, Description: "a hint"},
			"Extra": {Mode: ModeCreateOnly, Description: "set once"},
		},
	}

	update := p.UpdateRules()
	assert.Len(t, update, 2)
	assert.NotContains(t, update, "Extra")

	create := p.CreateRules()
	assert.Len(t, create, 3)
	assert.Contains(t, create, "Extra")
}

func TestConfig_NotePromptFallback(t *testing.T) {
	cfg := Defaults()
	cfg.NotePrompts["Basic"] = NotePrompt{UpdatePrompt: "basic"}
	cfg.NotePrompts[DefaultNoteType] = NotePrompt{UpdatePrompt: "fallback"}

	p, ok := cfg.NotePrompt("Basic")
	require.True(t, ok)
	assert.Equal(t, "basic", p.UpdatePrompt)

	p, ok = cfg.NotePrompt("Cloze")
	require.True(t, ok)
	assert.Equal(t, "fallback", p.UpdatePrompt)
}

func TestConfig_CloneIsDeep(t *testing.T) {
	cfg := Defaults()
	cfg.APIKeys["OpenAI"] = "sk-abc"
	cfg.ModelLists["OpenAI"] = []string{"gpt-4o"}

	clone := cfg.Clone()
	clone.APIKeys["OpenAI"] = "changed"
	clone.ModelLists["OpenAI"][0] = "changed"
	clone.NotePrompts["new"] = NotePrompt{}

	assert.Equal(t, "sk-abc", cfg.APIKeys["OpenAI"])
	assert.Equal(t, "gpt-4o", cfg.ModelLists["OpenAI"][0])
	assert.NotContains(t, cfg.NotePrompts, "new")
}
