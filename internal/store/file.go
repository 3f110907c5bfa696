package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	llmerrors "llmfill/internal/errors"
	"llmfill/internal/paths"
	"llmfill/internal/schema"
	"llmfill/pkg/fileutil"
)

// FileStore persists the document as a single JSON file, written atomically
// so an interrupted save never leaves a half-written primary slot.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore at the given path. An empty path uses
// the default location under the XDG config home.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = paths.ConfigPath()
	}
	return &FileStore{path: path}
}

// Path returns the location of the primary config slot.
func (s *FileStore) Path() string {
	return s.path
}

// Read loads and parses the document. A missing or empty file yields
// (nil, nil). Unparsable bytes or a non-mapping document yield an error
// wrapping ErrCorruptConfig; the file itself is left untouched so the user
// can recover it by hand.
func (s *FileStore) Read() (schema.Raw, error) {
	data, err := fileutil.ReadFileWithLimit(s.path)
	if err != nil {
		if os.IsNotExist(errors.UnwrapAll(err)) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "reading %s", s.path)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var probe any
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, errors.Wrapf(llmerrors.ErrCorruptConfig, "parsing %s: %v", s.path, err)
	}
	doc, ok := probe.(map[string]any)
	if !ok {
		return nil, errors.Wrapf(llmerrors.ErrCorruptConfig, "%s does not hold a mapping", s.path)
	}
	return schema.Raw(doc), nil
}

// Write atomically replaces the document, creating the parent directory on
// first save.
func (s *FileStore) Write(raw schema.Raw) error {
	if err := paths.EnsureDir(filepath.Dir(s.path), 0); err != nil {
		return errors.Wrap(err, "creating config directory")
	}
	if err := fileutil.AtomicWriteJSON(s.path, map[string]any(raw)); err != nil {
		return errors.Wrapf(err, "writing %s", s.path)
	}
	return nil
}
