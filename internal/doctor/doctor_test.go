package doctor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmfill/internal/backup"
	"llmfill/internal/config"
	llmerrors "llmfill/internal/errors"
	"llmfill/internal/logging"
	"llmfill/internal/schema"
	"llmfill/internal/store"
)

type stubCheck struct {
	name   string
	status Severity
}

func (c *stubCheck) Name() string     { return c.name }
func (c *stubCheck) Category() string { return "stub" }
func (c *stubCheck) Run() *CheckResult {
	return &CheckResult{Name: c.name, Category: "stub", Status: c.status}
}

func TestRunnerSummarizes(t *testing.T) {
	runner := NewRunner(
		&stubCheck{name: "a", status: SeverityPass},
		&stubCheck{name: "b", status: SeverityWarning},
	)
	runner.AddCheck(&stubCheck{name: "c", status: SeverityError})
	runner.AddCheck(&stubCheck{name: "d", status: SeverityInfo})

	report := runner.Run()
	require.Len(t, report.Results, 4)
	assert.Equal(t, Summary{Passed: 1, Info: 1, Warnings: 1, Errors: 1}, report.Summary)
	assert.True(t, report.HasErrors())
	assert.True(t, report.HasWarnings())
	assert.False(t, report.Timestamp.IsZero())
}

func TestStorageCheck(t *testing.T) {
	tests := []struct {
		name       string
		store      *store.MemStore
		wantStatus Severity
	}{
		{
			name:       "empty store is informational",
			store:      store.NewMemStore(nil),
			wantStatus: SeverityInfo,
		},
		{
			name: "readable document passes",
			store: func() *store.MemStore {
				return store.NewMemStore(schema.Raw{"schema_version": 8})
			}(),
			wantStatus: SeverityPass,
		},
		{
			name: "corrupt document errors",
			store: func() *store.MemStore {
				s := store.NewMemStore(nil)
				s.ReadErr = llmerrors.ErrCorruptConfig
				return s
			}(),
			wantStatus: SeverityError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := (&StorageCheck{Store: tt.store}).Run()
			assert.Equal(t, tt.wantStatus, result.Status, result.Message)
		})
	}
}

func TestSchemaVersionCheck(t *testing.T) {
	tests := []struct {
		name       string
		doc        schema.Raw
		wantStatus Severity
		fixable    bool
	}{
		{
			name:       "current version passes",
			doc:        schema.Raw{"schema_version": schema.CurrentVersion},
			wantStatus: SeverityPass,
		},
		{
			name:       "old version warns and is fixable",
			doc:        schema.Raw{"schema_version": 3},
			wantStatus: SeverityWarning,
			fixable:    true,
		},
		{
			name:       "future version errors",
			doc:        schema.Raw{"schema_version": 999},
			wantStatus: SeverityError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := (&SchemaVersionCheck{Store: store.NewMemStore(tt.doc)}).Run()
			assert.Equal(t, tt.wantStatus, result.Status, result.Message)
			assert.Equal(t, tt.fixable, result.Fixable)
		})
	}
}

func TestDefectsCheck(t *testing.T) {
	t.Run("clean document passes", func(t *testing.T) {
		s := store.NewMemStore(schema.Raw{"schema_version": 2,
			"api_keys": map[string]any{}, "models": map[string]any{}, "max_prompt_tokens": 500})
		result := (&DefectsCheck{Store: s}).Run()
		assert.Equal(t, SeverityPass, result.Status, result.Message)
	})

	t.Run("repairable defects warn", func(t *testing.T) {
		s := store.NewMemStore(schema.Raw{"schema_version": 2,
			"api_keys": map[string]any{}, "models": map[string]any{},
			"max_prompt_tokens": 500, "temperature": "hot"})
		result := (&DefectsCheck{Store: s}).Run()
		assert.Equal(t, SeverityWarning, result.Status, result.Message)
		assert.True(t, result.Fixable)
		assert.NotEmpty(t, result.Details)
	})
}

func TestSnapshotCheck(t *testing.T) {
	backups := backup.NewManager(backup.WithDir(t.TempDir()))

	result := (&SnapshotCheck{Backups: backups}).Run()
	assert.Equal(t, SeverityInfo, result.Status, result.Message)

	_, err := backups.Snapshot(schema.Raw{"schema_version": 3})
	require.NoError(t, err)

	result = (&SnapshotCheck{Backups: backups}).Run()
	assert.Equal(t, SeverityPass, result.Status, result.Message)
}

func TestAPIKeyCheck(t *testing.T) {
	m := config.NewManager(store.NewMemStore(nil), config.WithLogger(logging.ForTest(t)))

	result := (&APIKeyCheck{Manager: m}).Run()
	assert.Equal(t, SeverityWarning, result.Status, result.Message)

	require.NoError(t, m.SetAPIKey("", "sk-abc"))
	result = (&APIKeyCheck{Manager: m}).Run()
	assert.Equal(t, SeverityPass, result.Status, result.Message)
}
