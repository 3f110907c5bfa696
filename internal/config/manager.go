package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/cockroachdb/errors"

	"llmfill/internal/backup"
	"llmfill/internal/logging"
	"llmfill/internal/migrate"
	"llmfill/internal/schema"
	"llmfill/internal/store"
)

// Manager loads, migrates, and persists the configuration document.
//
// All methods are safe for concurrent use. Returned *schema.Config values
// are copies; mutating one never affects the manager's cached state.
type Manager struct {
	mu      sync.Mutex
	store   store.Store
	chain   *migrate.Chain
	backups *backup.Manager
	logger  *slog.Logger

	cfg *schema.Config
	// fallback marks that cfg is the in-memory defaults standing in for a
	// stored document that could not be loaded. Mutations are refused in
	// this state so the preserved bytes are never overwritten.
	fallback bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithBackups sets the snapshot manager consulted before migrations.
// Without one, migrations run unprotected.
func WithBackups(b *backup.Manager) Option {
	return func(m *Manager) {
		m.backups = b
	}
}

// WithLogger sets the logger load and migration events are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates a Manager over the given store.
func NewManager(s store.Store, opts ...Option) *Manager {
	m := &Manager{
		store:  s,
		logger: logging.NewDiscard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.chain = migrate.New(migrate.WithLogger(m.logger))
	return m
}

// Load returns the current-version configuration. It never fails: when the
// stored document cannot be read, migrated, or repaired, Load logs the
// reason, leaves the stored bytes untouched, and returns the built-in
// defaults. A successfully migrated document is persisted back so the next
// load is a no-op.
//
// The result is cached; subsequent calls return copies of the cached
// configuration until Reload or a mutation.
func (m *Manager) Load() *schema.Config {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg != nil {
		return m.cfg.Clone()
	}

	cfg, err := m.loadLocked()
	if err != nil {
		m.logFallback(err)
		cfg = schema.Defaults()
		m.fallback = true
	}
	m.cfg = cfg
	return cfg.Clone()
}

// Reload drops the cached configuration and loads from storage again.
func (m *Manager) Reload() *schema.Config {
	m.mu.Lock()
	m.cfg = nil
	m.fallback = false
	m.mu.Unlock()
	return m.Load()
}

// Migrate runs the load-and-migrate pipeline and surfaces its error instead
// of falling back to defaults. The CLI uses it where the user asked for a
// migration explicitly and wants to know why it did not happen.
func (m *Manager) Migrate() (*schema.Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, err := m.loadLocked()
	if err != nil {
		return nil, err
	}
	m.cfg = cfg
	m.fallback = false
	return cfg.Clone(), nil
}

// loadLocked reads, migrates, and (on change) persists the stored document.
// Callers hold m.mu.
func (m *Manager) loadLocked() (*schema.Config, error) {
	raw, err := m.store.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading stored config")
	}

	// An on-disk document older than current gets one pre-migration
	// snapshot. If the snapshot cannot be taken, the migration does not
	// run: losing the ability to undo is worse than staying on defaults
	// for this session.
	if raw != nil && raw.Version() < schema.CurrentVersion && m.backups != nil {
		manifest, err := m.backups.Snapshot(raw)
		if err != nil {
			return nil, errors.Wrap(err, "snapshotting config before migration")
		}
		m.logger.Info("snapshotted config before migration",
			"id", manifest.ID, "schema_version", manifest.SchemaVersion)
	}

	cfg, err := m.chain.Migrate(raw)
	if err != nil {
		return nil, err
	}

	out, err := schema.ToRaw(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "encoding migrated config")
	}
	if !rawEqual(out, raw) {
		if err := m.store.Write(out); err != nil {
			// The migrated config is still good; serve it from memory
			// and try persisting again on the next mutation.
			m.logger.Warn("could not persist migrated config", "error", err)
		}
	}
	return cfg, nil
}

// Save validates and persists cfg, replacing the cached configuration.
func (m *Manager) Save(cfg *schema.Config) error {
	if cfg == nil {
		return errors.New("nothing to save")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(cfg.Clone())
}

func (m *Manager) saveLocked(cfg *schema.Config) error {
	cfg.SchemaVersion = schema.CurrentVersion
	if report := schema.ValidateCanonical(cfg); !report.Ok() {
		return errors.Wrap(report.Err(), "refusing to save invalid config")
	}

	raw, err := schema.ToRaw(cfg)
	if err != nil {
		return errors.Wrap(err, "encoding config")
	}
	if err := m.store.Write(raw); err != nil {
		return errors.Wrap(err, "writing config")
	}
	m.cfg = cfg
	return nil
}

// Update applies fn to a copy of the current configuration and saves the
// result. All typed mutators funnel through here so read-modify-write is a
// single critical section.
//
// Unlike Load, Update fails when the stored document could not be loaded:
// persisting a mutation then would overwrite the very bytes Load preserved
// for recovery.
func (m *Manager) Update(fn func(cfg *schema.Config)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fallback {
		return errors.New("refusing to modify a config that did not load; the stored document is preserved as-is")
	}
	if m.cfg == nil {
		cfg, err := m.loadLocked()
		if err != nil {
			return errors.Wrap(err, "refusing to modify a config that did not load")
		}
		m.cfg = cfg
	}

	next := m.cfg.Clone()
	fn(next)
	return m.saveLocked(next)
}

// logFallback reports why the stored document is being bypassed this
// session. The stored bytes are deliberately left as they are.
func (m *Manager) logFallback(err error) {
	var unsupported *migrate.UnsupportedVersionError
	var migErr *migrate.Error
	switch {
	case errors.As(err, &unsupported):
		m.logger.Warn("config was written by a newer version; using defaults",
			"stored_version", unsupported.Version,
			"supported_version", unsupported.Supported)
	case errors.As(err, &migErr):
		m.logger.Warn("config migration failed; using defaults",
			"from", migErr.From, "reached", migErr.Reached, "error", migErr.Err)
	default:
		m.logger.Warn("could not load config; using defaults", "error", err)
	}
}

// rawEqual compares two documents by their canonical JSON encoding, which
// tolerates the numeric type drift (int vs float64) a round trip introduces.
// encoding/json emits map keys sorted, so byte equality is structural
// equality here.
func rawEqual(a, b schema.Raw) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	aj, err := json.Marshal(map[string]any(a))
	if err != nil {
		return false
	}
	bj, err := json.Marshal(map[string]any(b))
	if err != nil {
		return false
	}
	return bytes.Equal(aj, bj)
}
