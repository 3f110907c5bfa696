package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmerrors "llmfill/internal/errors"
	"llmfill/internal/schema"
)

func TestFileStore_ReadMissing(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "config.json"))

	raw, err := s.Read()
	require.NoError(t, err)
	assert.Nil(t, raw, "missing document reads as nil, not an error")
}

func TestFileStore_RoundTrip(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "nested", "config.json"))

	doc := schema.Raw{
		"schema_version": 8,
		"client":         "OpenAI",
		"api_keys":       map[string]any{"OpenAI": "sk-abc"},
	}
	require.NoError(t, s.Write(doc))

	got, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, 8, got.Version())
	assert.Equal(t, "OpenAI", got["client"])
	assert.Equal(t, "sk-abc", got["api_keys"].(map[string]any)["OpenAI"])
}

func TestFileStore_ReadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, nil, 0600))

	raw, err := NewFileStore(path).Read()
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestFileStore_CorruptBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewFileStore(path).Read()
	assert.ErrorIs(t, err, llmerrors.ErrCorruptConfig)

	// The corrupt file is preserved for manual recovery.
	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "{not json", string(data))
}

func TestFileStore_NonMappingDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`[1,2,3]`), 0600))

	_, err := NewFileStore(path).Read()
	assert.ErrorIs(t, err, llmerrors.ErrCorruptConfig)
}

func TestFileStore_DefaultPath(t *testing.T) {
	s := NewFileStore("")
	assert.NotEmpty(t, s.Path())
}

func TestFileStore_Watch(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(filepath.Join(dir, "config.json"))
	require.NoError(t, s.Write(schema.Raw{"schema_version": 8}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, s.Write(schema.Raw{"schema_version": 8, "client": "OpenAI"}))

	select {
	case <-changed:
	case <-ctx.Done():
		t.Fatal("watcher did not observe the write")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestMemStore_ErrorInjection(t *testing.T) {
	s := NewMemStore(nil)
	s.ReadErr = llmerrors.ErrCorruptConfig

	_, err := s.Read()
	assert.ErrorIs(t, err, llmerrors.ErrCorruptConfig)
}

func TestMemStore_CopiesOnReadAndWrite(t *testing.T) {
	doc := schema.Raw{"client": "OpenAI"}
	s := NewMemStore(doc)

	doc["client"] = "mutated"
	got, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, "OpenAI", got["client"])

	got["client"] = "mutated again"
	assert.Equal(t, "OpenAI", s.Doc()["client"])
}
