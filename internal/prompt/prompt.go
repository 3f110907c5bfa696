// Package prompt builds the fill request sent to the LLM and parses its
// reply. It is a read-only consumer of the configuration: field rules come
// in, text goes out, and nothing here ever writes settings back.
package prompt

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"

	"llmfill/internal/schema"
)

// Build renders a fill prompt from the configured template.
//
// Every {Field} placeholder is replaced with the note's current value for
// that field. The per-field instructions and the JSON output contract are
// appended after the template so the model knows exactly which fields to
// produce. Field order is alphabetical to keep prompts stable across runs.
func Build(template string, noteFields map[string]string, rules map[string]schema.FieldRule) string {
	var b strings.Builder
	b.WriteString(substituteFields(template, noteFields))

	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	slices.Sort(names)

	b.WriteString("\n\nPlease generate content for these fields:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "\n- %s: %s", name, rules[name].Description)
	}

	b.WriteString("\n\nProvide your response in JSON format with field names as keys. For example:\n{\n")
	for _, name := range exampleFields(names) {
		fmt.Fprintf(&b, "  %q: \"Content for %s\",\n", name, name)
	}
	b.WriteString("  ...\n}")
	b.WriteString("\nYour response should be a valid JSON, so I can parse it directly.")
	b.WriteString("\nThe response should contain only one combination.")

	return b.String()
}

// substituteFields replaces {Field} placeholders with the note's values.
// Placeholders without a matching field are left as-is so a typo in the
// template stays visible instead of silently vanishing.
func substituteFields(template string, noteFields map[string]string) string {
	if len(noteFields) == 0 {
		return template
	}
	pairs := make([]string, 0, 2*len(noteFields))
	for name, value := range noteFields {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// exampleFields picks the fields shown in the JSON example: the first two
// when there are several, all of them otherwise.
func exampleFields(names []string) []string {
	if len(names) > 2 {
		return names[:2]
	}
	return names
}

// ParseResponse extracts the first JSON object from an LLM reply and decodes
// it into field contents. Models routinely wrap the object in prose or code
// fences; everything outside the outermost braces is ignored.
func ParseResponse(s string) (map[string]string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return nil, errors.New("no JSON object found in response")
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(s[start:end+1]), &fields); err != nil {
		return nil, errors.Wrap(err, "parsing JSON from response")
	}
	return fields, nil
}
