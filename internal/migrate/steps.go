package migrate

import (
	"strings"

	"llmfill/internal/schema"
)

// Step upgrades a document from one schema version to the next.
type Step struct {
	// To is the version the step produces. The step at index v of a chain
	// has To == v+1.
	To int
	// Note is a short description used in logs.
	Note string
	// Apply performs the upgrade. It may mutate and return its argument.
	// It must be pure (no I/O) and total over any document that validated
	// at the source version.
	Apply func(schema.Raw) (schema.Raw, error)
}

// Registry returns the ordered table of migration steps, index v holding the
// step v -> v+1.
func Registry() []Step {
	return []Step{
		{To: 1, Note: "relocate scalar api_key/model into per-client mappings", Apply: toClientMappings},
		{To: 2, Note: "add max_prompt_tokens", Apply: addMaxPromptTokens},
		{To: 3, Note: "formalize the schema version stamp", Apply: stampOnly},
		{To: 4, Note: "parse field_mappings text into a mapping", Apply: parseFieldMappings},
		{To: 5, Note: "move global prompt and mappings under note_prompts", Apply: toNotePrompts},
		{To: 6, Note: "split prompts into update_prompt and create_prompt", Apply: splitPrompts},
		{To: 7, Note: "convert field mappings into field rules", Apply: toFieldRules},
		{To: 8, Note: "add shortcut and per-client model lists", Apply: addShortcutAndModelLists},
	}
}

// toClientMappings (v0 -> v1) moves the legacy scalar api_key and model
// fields into mappings keyed by the selected client. The scalar keys are
// removed and must never be reintroduced.
func toClientMappings(raw schema.Raw) (schema.Raw, error) {
	keys := mappingAt(raw, "api_keys")
	models := mappingAt(raw, "models")
	client := stringAt(raw, "client", schema.DefaultClient)

	if key, ok := raw["api_key"].(string); ok && key != "" {
		keys[client] = key
	}
	delete(raw, "api_key")

	if model, ok := raw["model"].(string); ok && model != "" {
		models[client] = model
	}
	delete(raw, "model")

	raw["api_keys"] = keys
	raw["models"] = models
	return raw, nil
}

// addMaxPromptTokens (v1 -> v2) inserts the prompt token budget if absent.
func addMaxPromptTokens(raw schema.Raw) (schema.Raw, error) {
	if _, ok := raw["max_prompt_tokens"]; !ok {
		raw["max_prompt_tokens"] = schema.DefaultMaxPromptTokens
	}
	return raw, nil
}

// stampOnly (v2 -> v3) has no shape change. Version 3 formalized the
// requirement that every stored document carries a schema_version stamp;
// the chain itself writes the stamp.
func stampOnly(raw schema.Raw) (schema.Raw, error) {
	return raw, nil
}

// parseFieldMappings (v3 -> v4) converts the legacy newline-separated
// "Field: description" text into a mapping. Anything unparsable becomes an
// empty mapping rather than failing the chain.
func parseFieldMappings(raw schema.Raw) (schema.Raw, error) {
	switch v := raw["field_mappings"].(type) {
	case string:
		raw["field_mappings"] = parseMappingText(v)
	case map[string]any:
		// Already migrated by hand or by a partial run.
	default:
		raw["field_mappings"] = map[string]any{}
	}
	return raw, nil
}

func parseMappingText(text string) map[string]any {
	out := map[string]any{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, desc, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(desc)
	}
	return out
}

// toNotePrompts (v4 -> v5) moves the global prompt and field mappings under
// a per-note-type table, seeding the fallback entry.
func toNotePrompts(raw schema.Raw) (schema.Raw, error) {
	prompt := stringAt(raw, "global_prompt", "")
	mappings := mappingAt(raw, "field_mappings")

	raw["note_prompts"] = map[string]any{
		schema.DefaultNoteType: map[string]any{
			"prompt":         prompt,
			"field_mappings": mappings,
		},
	}
	delete(raw, "global_prompt")
	delete(raw, "field_mappings")
	return raw, nil
}

// splitPrompts (v5 -> v6) renames each entry's prompt to update_prompt and
// adds an empty create_prompt for card creation.
func splitPrompts(raw schema.Raw) (schema.Raw, error) {
	for _, entry := range notePromptEntries(raw) {
		entry["update_prompt"] = stringAt(entry, "prompt", "")
		delete(entry, "prompt")
		if _, ok := entry["create_prompt"].(string); !ok {
			entry["create_prompt"] = ""
		}
	}
	return raw, nil
}

// toFieldRules (v6 -> v7) converts each entry's field_mappings (field name
// to description) into field rules carrying an application mode. Fields
// listed in a legacy create_only_fields list fold in as create-only.
func toFieldRules(raw schema.Raw) (schema.Raw, error) {
	for _, entry := range notePromptEntries(raw) {
		createOnly := map[string]bool{}
		if list, ok := entry["create_only_fields"].([]any); ok {
			for _, f := range list {
				if name, ok := f.(string); ok {
					createOnly[name] = true
				}
			}
		}

		rules := map[string]any{}
		for name, desc := range mappingAt(entry, "field_mappings") {
			mode := schema.ModeFill
			if createOnly[name] {
				mode = schema.ModeCreateOnly
			}
			description, _ := desc.(string)
			rules[name] = map[string]any{
				"mode":        string(mode),
				"description": description,
			}
		}

		entry["field_rules"] = rules
		delete(entry, "field_mappings")
		delete(entry, "create_only_fields")
	}
	return raw, nil
}

// addShortcutAndModelLists (v7 -> v8) adds the keyboard shortcut and the
// per-client remembered model lists. The selected model, if any, seeds the
// list for its client.
func addShortcutAndModelLists(raw schema.Raw) (schema.Raw, error) {
	if _, ok := raw["shortcut"].(string); !ok {
		raw["shortcut"] = schema.DefaultShortcut
	}

	lists := mappingAt(raw, "model_lists")
	client := stringAt(raw, "client", schema.DefaultClient)
	if models, ok := raw["models"].(map[string]any); ok {
		if model, ok := models[client].(string); ok && model != "" {
			if _, seeded := lists[client]; !seeded {
				lists[client] = []any{model}
			}
		}
	}
	raw["model_lists"] = lists
	return raw, nil
}

// mappingAt returns the mapping stored at key, or a fresh one when the key
// is absent or holds something else.
func mappingAt(raw map[string]any, key string) map[string]any {
	if m, ok := raw[key].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func stringAt(raw map[string]any, key, fallback string) string {
	if s, ok := raw[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

// notePromptEntries returns every well-formed note_prompts entry for
// in-place editing. Malformed entries are left for validation to flag.
func notePromptEntries(raw schema.Raw) []map[string]any {
	prompts, ok := raw["note_prompts"].(map[string]any)
	if !ok {
		return nil
	}
	var entries []map[string]any
	for _, e := range prompts {
		if entry, ok := e.(map[string]any); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}
