package schema

// Default values for every canonical field. These are the single source used
// both for "no config found" and for repairing fields the validator flags.
// Two callers must never maintain separate default tables.
const (
	DefaultClient          = "OpenAI"
	DefaultTemperature     = 0.7
	DefaultMaxLength       = 300
	DefaultMaxPromptTokens = 500
	DefaultShortcut        = "Ctrl+Shift+G"
)

// Defaults returns a canonical configuration built entirely from defaults,
// stamped at the current schema version.
func Defaults() *Config {
	return &Config{
		SchemaVersion:   CurrentVersion,
		Client:          DefaultClient,
		APIKeys:         map[string]string{},
		Models:          map[string]string{},
		ModelLists:      map[string][]string{},
		Temperature:     DefaultTemperature,
		MaxLength:       DefaultMaxLength,
		MaxPromptTokens: DefaultMaxPromptTokens,
		GlobalPrompt:    "",
		Shortcut:        DefaultShortcut,
		NotePrompts: map[string]NotePrompt{
			DefaultNoteType: {FieldRules: map[string]FieldRule{}},
		},
	}
}

// defaultRaw returns the default table keyed by raw document field name.
func defaultRaw() Raw {
	raw, err := ToRaw(Defaults())
	if err != nil {
		// Defaults is a fixed literal; it always marshals.
		panic(err)
	}
	return raw
}

// DefaultValue returns the default for a top-level raw field name.
func DefaultValue(field string) (any, bool) {
	v, ok := defaultRaw()[field]
	return v, ok
}

// FillDefaults inserts the default value for every canonical top-level field
// absent from the document. It returns the names of the fields it filled.
// This is the explicit default-fill pass; callers are expected to log it.
func FillDefaults(raw Raw) []string {
	var filled []string
	for field, def := range defaultRaw() {
		if _, ok := raw[field]; !ok {
			raw[field] = def
			filled = append(filled, field)
		}
	}
	return filled
}
