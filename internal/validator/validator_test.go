package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_Empty(t *testing.T) {
	var r Report
	assert.True(t, r.Ok())
	assert.NoError(t, r.Err())
	assert.Empty(t, r.Repairable())
	assert.Empty(t, r.Fatal())
}

func TestReport_NilSafe(t *testing.T) {
	var r *Report
	assert.True(t, r.Ok())
	assert.Nil(t, r.Repairable())
	assert.Nil(t, r.Fatal())
}

func TestReport_Partition(t *testing.T) {
	var r Report
	r.AddMissing("temperature", "number")
	r.AddWrongType("api_keys", "mapping", "oops")
	r.AddInvalid("note_prompts.Basic", "entry is not a mapping", 42)

	require.Len(t, r.Defects, 3)
	assert.Len(t, r.Repairable(), 2)
	assert.Len(t, r.Fatal(), 1)
	assert.False(t, r.Ok())
	require.Error(t, r.Err())
	assert.Contains(t, r.Err().Error(), "3 validation defect(s)")
}

func TestDefect_Error(t *testing.T) {
	tests := []struct {
		name   string
		defect Defect
		want   string
	}{
		{
			name:   "missing",
			defect: Defect{Field: "temperature", Message: "required field is missing", Want: "number"},
			want:   `field "temperature": required field is missing (want number)`,
		},
		{
			name:   "wrong type",
			defect: Defect{Field: "models", Message: "wrong type", Want: "mapping", Got: "gpt-4o"},
			want:   `field "models": wrong type (want mapping, got gpt-4o)`,
		},
		{
			name:   "invalid",
			defect: Defect{Field: "schema_version", Message: "out of range", Got: -1},
			want:   `field "schema_version": out of range (got -1)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.defect.Error())
		})
	}
}
