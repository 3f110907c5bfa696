package schema

import (
	"fmt"
	"math"

	"llmfill/internal/validator"
)

// ValidateAt checks the shape of a raw document against the requirements of
// the given schema version. It reports every defect it finds and never
// panics or stops early. A clean report means the document is safe to read
// with the accessors that version's migration step expects.
func ValidateAt(raw Raw, version int) *validator.Report {
	r := &validator.Report{}
	if raw == nil {
		return r
	}

	if v, ok := raw["schema_version"]; ok {
		if n, isNum := asInt(v); !isNum || n < 0 {
			r.AddWrongType("schema_version", "non-negative integer", v)
		}
	}

	checkScalars(raw, r)

	if version >= 1 {
		checkStringMap(raw, "api_keys", true, r)
		checkStringMap(raw, "models", true, r)
	}
	if version >= 2 {
		if _, ok := raw["max_prompt_tokens"]; !ok {
			r.AddMissing("max_prompt_tokens", "positive integer")
		}
	}
	if version >= 4 && version < 5 {
		if v, ok := raw["field_mappings"]; ok && !isMapping(v) {
			r.AddWrongType("field_mappings", "mapping", v)
		}
	}
	if version >= 5 {
		checkNotePrompts(raw, version, r)
	}
	if version >= 8 {
		if _, ok := raw["shortcut"]; !ok {
			r.AddMissing("shortcut", "string")
		}
		checkModelLists(raw, r)
	}

	return r
}

// checkScalars type-checks the scalar fields wherever they are present.
// Presence is only demanded by the per-version rules; scalars missing at the
// current version are supplied by the default-fill pass.
func checkScalars(raw Raw, r *validator.Report) {
	if v, ok := raw["client"]; ok {
		if _, isStr := v.(string); !isStr {
			r.AddWrongType("client", "string", v)
		}
	}
	if v, ok := raw["temperature"]; ok {
		f, isNum := asFloat(v)
		switch {
		case !isNum:
			r.AddWrongType("temperature", "number", v)
		case f < 0 || f > 2:
			r.AddWrongType("temperature", "number between 0.0 and 2.0", v)
		}
	}
	for _, field := range []string{"max_length", "max_prompt_tokens"} {
		if v, ok := raw[field]; ok {
			n, isInt := asInt(v)
			if !isInt || n <= 0 {
				r.AddWrongType(field, "positive integer", v)
			}
		}
	}
	for _, field := range []string{"global_prompt", "shortcut"} {
		if v, ok := raw[field]; ok {
			if _, isStr := v.(string); !isStr {
				r.AddWrongType(field, "string", v)
			}
		}
	}
}

// checkStringMap verifies the field is a mapping with string values.
// Individual bad entries are reported per key so repair can drop just them.
func checkStringMap(raw Raw, field string, required bool, r *validator.Report) {
	v, ok := raw[field]
	if !ok {
		if required {
			r.AddMissing(field, "mapping")
		}
		return
	}
	m, ok := asMapping(v)
	if !ok {
		r.AddWrongType(field, "mapping", v)
		return
	}
	for k, e := range m {
		if _, isStr := e.(string); !isStr {
			r.AddWrongType(field+"."+k, "string", e)
		}
	}
}

func checkModelLists(raw Raw, r *validator.Report) {
	v, ok := raw["model_lists"]
	if !ok {
		r.AddMissing("model_lists", "mapping")
		return
	}
	m, ok := asMapping(v)
	if !ok {
		r.AddWrongType("model_lists", "mapping", v)
		return
	}
	for client, e := range m {
		if !isStringList(e) {
			r.AddWrongType("model_lists."+client, "list of strings", e)
		}
	}
}

func checkNotePrompts(raw Raw, version int, r *validator.Report) {
	v, ok := raw["note_prompts"]
	if !ok {
		r.AddMissing("note_prompts", "mapping")
		return
	}
	m, ok := asMapping(v)
	if !ok {
		r.AddWrongType("note_prompts", "mapping", v)
		return
	}
	for noteType, e := range m {
		entry, ok := asMapping(e)
		if !ok {
			r.AddWrongType("note_prompts."+noteType, "mapping", e)
			continue
		}
		if version >= 6 {
			for _, key := range []string{"update_prompt", "create_prompt"} {
				if p, present := entry[key]; present {
					if _, isStr := p.(string); !isStr {
						r.AddWrongType(fmt.Sprintf("note_prompts.%s.%s", noteType, key), "string", p)
					}
				} else {
					r.AddMissing(fmt.Sprintf("note_prompts.%s.%s", noteType, key), "string")
				}
			}
		}
		if version >= 7 {
			checkFieldRules(noteType, entry, r)
		}
	}
}

func checkFieldRules(noteType string, entry map[string]any, r *validator.Report) {
	prefix := "note_prompts." + noteType + ".field_rules"
	v, ok := entry["field_rules"]
	if !ok {
		r.AddMissing(prefix, "mapping")
		return
	}
	rules, ok := asMapping(v)
	if !ok {
		r.AddWrongType(prefix, "mapping", v)
		return
	}
	for field, e := range rules {
		rule, ok := asMapping(e)
		if !ok {
			r.AddWrongType(prefix+"."+field, "mapping", e)
			continue
		}
		mode, _ := rule["mode"].(string)
		if !FieldMode(mode).Valid() {
			r.AddWrongType(prefix+"."+field+".mode", `"fill" or "create-only"`, rule["mode"])
		}
		if d, present := rule["description"]; present {
			if _, isStr := d.(string); !isStr {
				r.AddWrongType(prefix+"."+field+".description", "string", d)
			}
		}
	}
}

// ValidateCanonical checks a migrated, typed configuration. It exists to
// catch migration bugs before they reach the rest of the application.
func ValidateCanonical(cfg *Config) *validator.Report {
	r := &validator.Report{}
	if cfg == nil {
		r.AddInvalid("config", "config is nil", nil)
		return r
	}
	if cfg.SchemaVersion != CurrentVersion {
		r.AddInvalid("schema_version", fmt.Sprintf("must be %d", CurrentVersion), cfg.SchemaVersion)
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		r.AddWrongType("temperature", "number between 0.0 and 2.0", cfg.Temperature)
	}
	if cfg.MaxLength <= 0 {
		r.AddWrongType("max_length", "positive integer", cfg.MaxLength)
	}
	if cfg.MaxPromptTokens <= 0 {
		r.AddWrongType("max_prompt_tokens", "positive integer", cfg.MaxPromptTokens)
	}
	if cfg.Client == "" {
		r.AddMissing("client", "non-empty string")
	}
	if cfg.APIKeys == nil {
		r.AddMissing("api_keys", "mapping")
	}
	if cfg.Models == nil {
		r.AddMissing("models", "mapping")
	}
	if cfg.ModelLists == nil {
		r.AddMissing("model_lists", "mapping")
	}
	if cfg.NotePrompts == nil {
		r.AddMissing("note_prompts", "mapping")
	}
	for noteType, p := range cfg.NotePrompts {
		for field, rule := range p.FieldRules {
			if !rule.Mode.Valid() {
				r.AddInvalid(
					fmt.Sprintf("note_prompts.%s.field_rules.%s.mode", noteType, field),
					"unknown field mode", string(rule.Mode))
			}
		}
	}
	return r
}

// Repair fixes every repairable defect in place: top-level fields are
// replaced with the centrally-defined default, and malformed nested entries
// (per-client keys, note prompt entries, field rules) are normalized or
// dropped so migration can continue. It returns the fields it touched.
func Repair(raw Raw, report *validator.Report) []string {
	var repaired []string
	normalizedPrompts := false
	for _, d := range report.Repairable() {
		field, rest, nested := splitField(d.Field)
		if !nested {
			if def, ok := DefaultValue(field); ok {
				raw[field] = def
				repaired = append(repaired, field)
			}
			continue
		}
		switch field {
		case "api_keys", "models", "model_lists":
			if m, ok := asMapping(raw[field]); ok {
				delete(m, rest)
				raw[field] = m
				repaired = append(repaired, d.Field)
			}
		case "note_prompts":
			if !normalizedPrompts {
				normalizeNotePrompts(raw)
				normalizedPrompts = true
				repaired = append(repaired, "note_prompts")
			}
		}
	}
	return repaired
}

// normalizeNotePrompts coerces every note_prompts entry into the canonical
// shape, dropping what cannot be saved. Prompt strings default to empty,
// unknown rule modes default to fill.
func normalizeNotePrompts(raw Raw) {
	m, ok := asMapping(raw["note_prompts"])
	if !ok {
		if def, found := DefaultValue("note_prompts"); found {
			raw["note_prompts"] = def
		}
		return
	}
	for noteType, e := range m {
		entry, ok := asMapping(e)
		if !ok {
			delete(m, noteType)
			continue
		}
		for _, key := range []string{"update_prompt", "create_prompt"} {
			if _, isStr := entry[key].(string); !isStr {
				entry[key] = ""
			}
		}
		rules, ok := asMapping(entry["field_rules"])
		if !ok {
			rules = map[string]any{}
		}
		for field, rv := range rules {
			rule, ok := asMapping(rv)
			if !ok {
				delete(rules, field)
				continue
			}
			if mode, _ := rule["mode"].(string); !FieldMode(mode).Valid() {
				rule["mode"] = string(ModeFill)
			}
			if _, isStr := rule["description"].(string); !isStr {
				rule["description"] = ""
			}
			rules[field] = rule
		}
		entry["field_rules"] = rules
		m[noteType] = entry
	}
	raw["note_prompts"] = m
}

func splitField(field string) (top, rest string, nested bool) {
	for i := 0; i < len(field); i++ {
		if field[i] == '.' {
			return field[:i], field[i+1:], true
		}
	}
	return field, "", false
}

// asMapping accepts the map shapes that appear in practice: JSON decoding
// produces map[string]any, hand-built steps may produce map[string]string.
func asMapping(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Raw:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, e := range m {
			out[k] = e
		}
		return out, true
	default:
		return nil, false
	}
}

func isMapping(v any) bool {
	_, ok := asMapping(v)
	return ok
}

func isStringList(v any) bool {
	switch l := v.(type) {
	case []string:
		return true
	case []any:
		for _, e := range l {
			if _, ok := e.(string); !ok {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
