// Package validator collects configuration defects without halting on the
// first problem. A Defect names the offending field, what was expected, and
// whether filling the central default can repair it.
package validator

import (
	"fmt"
	"strings"
)

// Defect is a single validation failure.
type Defect struct {
	// Field identifies the field with the problem. Nested fields use dot
	// notation (e.g. "note_prompts.Basic").
	Field string
	// Message is a human-readable description of the problem.
	Message string
	// Want names the expected type or constraint.
	Want string
	// Got is the value that failed validation, if any.
	Got any
	// Repairable indicates the defect can be fixed by substituting the
	// centrally-defined default for the field.
	Repairable bool
}

// Error implements the error interface.
func (d Defect) Error() string {
	var sb strings.Builder
	sb.WriteString("field \"")
	sb.WriteString(d.Field)
	sb.WriteString("\": ")
	sb.WriteString(d.Message)
	if d.Want != "" {
		sb.WriteString(" (want ")
		sb.WriteString(d.Want)
		if d.Got != nil {
			fmt.Fprintf(&sb, ", got %v", d.Got)
		}
		sb.WriteString(")")
	} else if d.Got != nil {
		fmt.Fprintf(&sb, " (got %v)", d.Got)
	}
	return sb.String()
}

// Report aggregates the defects found in one validation pass.
type Report struct {
	Defects []Defect
}

// Add appends a defect to the report.
func (r *Report) Add(d Defect) {
	r.Defects = append(r.Defects, d)
}

// AddMissing records a required field that is absent. Missing fields are
// repairable by default-fill.
func (r *Report) AddMissing(field, want string) {
	r.Defects = append(r.Defects, Defect{
		Field:      field,
		Message:    "required field is missing",
		Want:       want,
		Repairable: true,
	})
}

// AddWrongType records a field whose value has the wrong type. Mistyped
// fields are repairable by default-fill.
func (r *Report) AddWrongType(field, want string, got any) {
	r.Defects = append(r.Defects, Defect{
		Field:      field,
		Message:    "wrong type",
		Want:       want,
		Got:        got,
		Repairable: true,
	})
}

// AddInvalid records a defect that cannot be repaired by default-fill.
func (r *Report) AddInvalid(field, message string, got any) {
	r.Defects = append(r.Defects, Defect{
		Field:   field,
		Message: message,
		Got:     got,
	})
}

// Ok returns true if no defects were found.
func (r *Report) Ok() bool {
	return r == nil || len(r.Defects) == 0
}

// Repairable returns the defects that default-fill can fix.
func (r *Report) Repairable() []Defect {
	if r == nil {
		return nil
	}
	var out []Defect
	for _, d := range r.Defects {
		if d.Repairable {
			out = append(out, d)
		}
	}
	return out
}

// Fatal returns the defects that cannot be repaired.
func (r *Report) Fatal() []Defect {
	if r == nil {
		return nil
	}
	var out []Defect
	for _, d := range r.Defects {
		if !d.Repairable {
			out = append(out, d)
		}
	}
	return out
}

// Err returns an error summarizing the report, or nil if it is clean.
func (r *Report) Err() error {
	if r.Ok() {
		return nil
	}
	msgs := make([]string, len(r.Defects))
	for i, d := range r.Defects {
		msgs[i] = d.Error()
	}
	return fmt.Errorf("%d validation defect(s): %s", len(r.Defects), strings.Join(msgs, "; "))
}
