package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/cockroachdb/errors"

	llmerrors "llmfill/internal/errors"
	"llmfill/internal/paths"
	"llmfill/internal/schema"
	"llmfill/pkg/fileutil"
)

// Manifest format version for forward compatibility.
const ManifestVersion = 1

// DefaultRetention is the number of snapshots to keep. One generation is
// enough: a snapshot exists to undo the migration that immediately follows
// it, not to serve as a general-purpose archive.
const DefaultRetention = 1

// documentName is the file the snapshotted document is stored under.
const documentName = "config.json"

// Sentinel errors for snapshot operations.
var (
	// ErrNoSnapshots indicates no snapshots exist.
	ErrNoSnapshots = errors.New("no snapshots found")

	// ErrSnapshotCorrupted indicates a snapshot failed its SHA256 check.
	ErrSnapshotCorrupted = errors.New("snapshot corrupted")
)

// Manifest describes one snapshot. It is stored as manifest.json alongside
// the snapshotted document.
type Manifest struct {
	// Version is the manifest format version.
	Version int `json:"version"`

	// CreatedAt is when the snapshot was taken.
	CreatedAt time.Time `json:"created_at"`

	// SchemaVersion is the schema_version the document carried when it
	// was snapshotted. Useful when deciding whether a restore is safe.
	SchemaVersion int `json:"schema_version"`

	// SHA256Hash is the hex-encoded hash of the document bytes.
	SHA256Hash string `json:"sha256_hash"`

	// ID is the snapshot identifier (timestamp format: 20260123T100712).
	// Populated when loading from disk but not stored in JSON.
	ID string `json:"-"`
}

// Manager takes and restores snapshots of the configuration document.
type Manager struct {
	rootDir   string
	retention int
}

// Option configures a Manager.
type Option func(*Manager)

// WithDir sets the root snapshot directory.
func WithDir(dir string) Option {
	return func(m *Manager) {
		m.rootDir = dir
	}
}

// WithRetention sets the number of snapshots to retain.
func WithRetention(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.retention = n
		}
	}
}

// NewManager creates a snapshot Manager with the given options.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		rootDir:   paths.BackupDir(),
		retention: DefaultRetention,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dir returns the root snapshot directory.
func (m *Manager) Dir() string {
	return m.rootDir
}

// Snapshot stores a copy of raw in a new timestamped snapshot directory and
// prunes anything beyond the retention count. The returned manifest
// describes the snapshot just taken.
func (m *Manager) Snapshot(raw schema.Raw) (*Manifest, error) {
	if raw == nil {
		return nil, errors.New("nothing to snapshot")
	}

	data, err := json.MarshalIndent(map[string]any(raw), "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encoding document")
	}

	now := time.Now()
	id, dir, err := m.newSnapshotDir(now)
	if err != nil {
		return nil, err
	}

	if err := fileutil.AtomicWriteFile(filepath.Join(dir, documentName), data, 0o644); err != nil {
		return nil, errors.Wrap(err, "writing snapshot document")
	}

	sum := sha256.Sum256(data)
	manifest := &Manifest{
		Version:       ManifestVersion,
		CreatedAt:     now.UTC(),
		SchemaVersion: raw.Version(),
		SHA256Hash:    hex.EncodeToString(sum[:]),
		ID:            id,
	}
	if err := fileutil.AtomicWriteJSON(filepath.Join(dir, "manifest.json"), manifest); err != nil {
		return nil, errors.Wrap(err, "writing manifest")
	}

	if err := m.Prune(m.retention); err != nil {
		return nil, err
	}
	return manifest, nil
}

// newSnapshotDir reserves a fresh snapshot directory. IDs have one-second
// granularity, so a second snapshot taken within the same second gets a
// numeric suffix instead of silently reusing the first one's directory.
func (m *Manager) newSnapshotDir(now time.Time) (string, string, error) {
	if err := paths.EnsureDir(m.rootDir, 0o755); err != nil {
		return "", "", errors.Wrap(err, "creating snapshot root")
	}
	base := now.Format("20060102T150405")
	for i := 0; ; i++ {
		id := base
		if i > 0 {
			id = fmt.Sprintf("%s-%d", base, i)
		}
		dir := filepath.Join(m.rootDir, id)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return id, dir, nil
		}
		if !os.IsExist(err) {
			return "", "", errors.Wrap(err, "creating snapshot directory")
		}
	}
}

// List returns all snapshots sorted by date, newest first.
func (m *Manager) List() ([]Manifest, error) {
	entries, err := os.ReadDir(m.rootDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSnapshots
		}
		return nil, errors.Wrap(err, "reading snapshot directory")
	}

	manifests := make([]Manifest, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		manifest, err := m.Get(entry.Name())
		if err != nil {
			// Skip directories without a readable manifest.
			continue
		}
		manifests = append(manifests, *manifest)
	}

	if len(manifests) == 0 {
		return nil, ErrNoSnapshots
	}

	slices.SortFunc(manifests, func(a, b Manifest) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return manifests, nil
}

// Latest returns the most recent snapshot's manifest.
func (m *Manager) Latest() (*Manifest, error) {
	manifests, err := m.List()
	if err != nil {
		return nil, err
	}
	return &manifests[0], nil
}

// Get returns the manifest for a specific snapshot.
func (m *Manager) Get(id string) (*Manifest, error) {
	if id == "" {
		return nil, errors.New("snapshot ID is required")
	}

	data, err := os.ReadFile(filepath.Join(m.rootDir, id, "manifest.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(llmerrors.ErrNotFound, "snapshot %s", id)
		}
		return nil, errors.Wrap(err, "reading manifest")
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, errors.Wrap(err, "parsing manifest")
	}
	manifest.ID = id
	return &manifest, nil
}

// Restore loads the snapshotted document, verifying its hash against the
// manifest first. The caller decides where the document goes; Restore never
// writes to the primary slot itself.
func (m *Manager) Restore(id string) (schema.Raw, error) {
	manifest, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(m.rootDir, id, documentName))
	if err != nil {
		return nil, errors.Wrap(err, "reading snapshot document")
	}

	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != manifest.SHA256Hash {
		return nil, errors.Wrapf(ErrSnapshotCorrupted, "snapshot %s hash mismatch", id)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing snapshot document")
	}
	return schema.Raw(doc), nil
}

// Prune removes snapshots beyond the given retention count, oldest first.
func (m *Manager) Prune(keep int) error {
	if keep < 0 {
		return errors.New("keep must be non-negative")
	}

	manifests, err := m.List()
	if err != nil {
		if errors.Is(err, ErrNoSnapshots) {
			return nil
		}
		return err
	}

	for i := keep; i < len(manifests); i++ {
		if err := os.RemoveAll(filepath.Join(m.rootDir, manifests[i].ID)); err != nil {
			return errors.Wrapf(err, "removing snapshot %s", manifests[i].ID)
		}
	}
	return nil
}
