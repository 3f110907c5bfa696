package schema

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/go-viper/mapstructure/v2"
)

// CurrentVersion is the schema version this build reads and writes.
const CurrentVersion = 8

// DefaultNoteType is the note_prompts key holding the fallback entry used
// when a note type has no configuration of its own.
const DefaultNoteType = "__default__"

// Raw is a configuration document as read from storage, before migration.
type Raw map[string]any

// Version returns the schema version stamped on the document. A document
// without a usable stamp is treated as version 0: that covers a missing
// key, a non-numeric value, and numerics that are negative or fractional.
func (r Raw) Version() int {
	switch v := r["schema_version"].(type) {
	case int:
		return clampVersion(v)
	case int64:
		return clampVersion(int(v))
	case float64:
		if v != float64(int(v)) {
			return 0
		}
		return clampVersion(int(v))
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return clampVersion(int(n))
	default:
		return 0
	}
}

func clampVersion(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// Clone returns a deep copy of the document. Migration steps receive copies
// so a failed chain never leaves the caller's blob half-mutated.
func (r Raw) Clone() Raw {
	if r == nil {
		return nil
	}
	return cloneValue(map[string]any(r)).(map[string]any)
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return val
	}
}

// FieldMode says how an LLM-generated value is applied to a note field.
type FieldMode string

const (
	// ModeFill fields are written both when updating an existing card and
	// when creating a new one.
	ModeFill FieldMode = "fill"

	// ModeCreateOnly fields are written only during card creation and must
	// never be touched by an update operation.
	ModeCreateOnly FieldMode = "create-only"
)

// Valid reports whether the mode is one of the known values.
func (m FieldMode) Valid() bool {
	return m == ModeFill || m == ModeCreateOnly
}

// FieldRule configures one note field: how generated content is applied and
// the natural-language description handed to the prompt builder.
type FieldRule struct {
	Mode        FieldMode `json:"mode" mapstructure:"mode"`
	Description string    `json:"description" mapstructure:"description"`
}

// NotePrompt holds the per-note-type prompt templates and field rules.
type NotePrompt struct {
	UpdatePrompt string               `json:"update_prompt" mapstructure:"update_prompt"`
	CreatePrompt string               `json:"create_prompt" mapstructure:"create_prompt"`
	FieldRules   map[string]FieldRule `json:"field_rules" mapstructure:"field_rules"`
}

// UpdateRules returns the field rules considered during a card update.
// Create-only fields are excluded.
func (p NotePrompt) UpdateRules() map[string]FieldRule {
	out := make(map[string]FieldRule, len(p.FieldRules))
	for name, rule := range p.FieldRules {
		if rule.Mode == ModeCreateOnly {
			continue
		}
		out[name] = rule
	}
	return out
}

// CreateRules returns the field rules considered during card creation,
// which is every configured field.
func (p NotePrompt) CreateRules() map[string]FieldRule {
	out := make(map[string]FieldRule, len(p.FieldRules))
	for name, rule := range p.FieldRules {
		out[name] = rule
	}
	return out
}

// Config is the canonical, current-version configuration. It is only ever
// produced by a successful migration or by Defaults.
type Config struct {
	SchemaVersion   int                   `json:"schema_version" mapstructure:"schema_version"`
	Client          string                `json:"client" mapstructure:"client"`
	APIKeys         map[string]string     `json:"api_keys" mapstructure:"api_keys"`
	Models          map[string]string     `json:"models" mapstructure:"models"`
	ModelLists      map[string][]string   `json:"model_lists" mapstructure:"model_lists"`
	Temperature     float64               `json:"temperature" mapstructure:"temperature"`
	MaxLength       int                   `json:"max_length" mapstructure:"max_length"`
	MaxPromptTokens int                   `json:"max_prompt_tokens" mapstructure:"max_prompt_tokens"`
	GlobalPrompt    string                `json:"global_prompt" mapstructure:"global_prompt"`
	Shortcut        string                `json:"shortcut" mapstructure:"shortcut"`
	NotePrompts     map[string]NotePrompt `json:"note_prompts" mapstructure:"note_prompts"`
}

// Clone returns a deep copy. Consumers get copies so the manager's cached
// instance is never mutated in place.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	out.APIKeys = make(map[string]string, len(c.APIKeys))
	for k, v := range c.APIKeys {
		out.APIKeys[k] = v
	}
	out.Models = make(map[string]string, len(c.Models))
	for k, v := range c.Models {
		out.Models[k] = v
	}
	out.ModelLists = make(map[string][]string, len(c.ModelLists))
	for k, v := range c.ModelLists {
		out.ModelLists[k] = append([]string(nil), v...)
	}
	out.NotePrompts = make(map[string]NotePrompt, len(c.NotePrompts))
	for k, p := range c.NotePrompts {
		rules := make(map[string]FieldRule, len(p.FieldRules))
		for name, rule := range p.FieldRules {
			rules[name] = rule
		}
		p.FieldRules = rules
		out.NotePrompts[k] = p
	}
	return &out
}

// NotePrompt returns the configuration for a note type, falling back to the
// DefaultNoteType entry when the type has no entry of its own. The second
// return is false when neither exists.
func (c *Config) NotePrompt(noteType string) (NotePrompt, bool) {
	if p, ok := c.NotePrompts[noteType]; ok {
		return p, true
	}
	p, ok := c.NotePrompts[DefaultNoteType]
	return p, ok
}

// FromRaw decodes a current-version raw document into the canonical form.
// The document must already have passed validation at CurrentVersion.
func FromRaw(raw Raw) (*Config, error) {
	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, errors.Wrap(err, "building decoder")
	}
	if err := dec.Decode(map[string]any(raw)); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	return &cfg, nil
}

// ToRaw converts a canonical config back into the raw document form used
// for persistence and re-migration checks.
func ToRaw(cfg *Config) (Raw, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling config")
	}
	var raw Raw
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	return raw, nil
}
