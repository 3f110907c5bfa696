package doctor

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"llmfill/internal/backup"
	"llmfill/internal/config"
	llmerrors "llmfill/internal/errors"
	"llmfill/internal/schema"
	"llmfill/internal/store"
)

// StorageCheck verifies the stored document can be read and parsed.
type StorageCheck struct {
	Store store.Store
}

func (c *StorageCheck) Name() string     { return "storage" }
func (c *StorageCheck) Category() string { return "storage" }

func (c *StorageCheck) Run() *CheckResult {
	result := &CheckResult{Name: c.Name(), Category: c.Category()}

	raw, err := c.Store.Read()
	switch {
	case errors.Is(err, llmerrors.ErrCorruptConfig):
		result.Status = SeverityError
		result.Message = "stored bytes are not a JSON mapping"
		result.FixHint = "restore a snapshot with 'llmfill backup restore' or delete the file"
	case err != nil:
		result.Status = SeverityError
		result.Message = fmt.Sprintf("cannot read stored config: %v", err)
	case raw == nil:
		result.Status = SeverityInfo
		result.Message = "no config stored; the built-in defaults are in effect"
	default:
		result.Status = SeverityPass
		result.Message = "stored config is readable"
	}
	return result
}

// SchemaVersionCheck compares the stored schema version against the current one.
type SchemaVersionCheck struct {
	Store store.Store
}

func (c *SchemaVersionCheck) Name() string     { return "schema-version" }
func (c *SchemaVersionCheck) Category() string { return "schema" }

func (c *SchemaVersionCheck) Run() *CheckResult {
	result := &CheckResult{Name: c.Name(), Category: c.Category()}

	raw, err := c.Store.Read()
	if err != nil || raw == nil {
		result.Status = SeverityInfo
		result.Message = "no readable document to version-check"
		return result
	}

	version := raw.Version()
	switch {
	case version > schema.CurrentVersion:
		result.Status = SeverityError
		result.Message = fmt.Sprintf("schema version %d is newer than the supported %d", version, schema.CurrentVersion)
		result.FixHint = "upgrade llmfill to use this config; it is preserved as-is until then"
	case version < schema.CurrentVersion:
		result.Status = SeverityWarning
		result.Fixable = true
		result.Message = fmt.Sprintf("schema version %d is behind %d", version, schema.CurrentVersion)
		result.FixHint = "'llmfill migrate' upgrades it"
	default:
		result.Status = SeverityPass
		result.Message = fmt.Sprintf("schema version %d is current", version)
	}
	return result
}

// DefectsCheck validates the stored document at its own schema version and
// reports every defect.
type DefectsCheck struct {
	Store store.Store
}

func (c *DefectsCheck) Name() string     { return "defects" }
func (c *DefectsCheck) Category() string { return "schema" }

func (c *DefectsCheck) Run() *CheckResult {
	result := &CheckResult{Name: c.Name(), Category: c.Category()}

	raw, err := c.Store.Read()
	if err != nil || raw == nil {
		result.Status = SeverityInfo
		result.Message = "no readable document to validate"
		return result
	}

	version := raw.Version()
	if version > schema.CurrentVersion {
		result.Status = SeverityInfo
		result.Message = "document is newer than this version; not validated"
		return result
	}

	report := schema.ValidateAt(raw, version)
	if report.Ok() {
		result.Status = SeverityPass
		result.Message = "no defects"
		return result
	}

	for _, d := range report.Repairable() {
		result.Details = append(result.Details, "repairable: "+d.Error())
	}
	for _, d := range report.Fatal() {
		result.Details = append(result.Details, "fatal: "+d.Error())
	}

	if len(report.Fatal()) > 0 {
		result.Status = SeverityError
		result.Message = fmt.Sprintf("%d defect(s), %d beyond repair", len(report.Defects), len(report.Fatal()))
		result.FixHint = "fatal defects need hand-editing or a snapshot restore"
		return result
	}

	result.Status = SeverityWarning
	result.Fixable = true
	result.Message = fmt.Sprintf("%d repairable defect(s)", len(report.Defects))
	result.FixHint = "'llmfill doctor --fix' repairs them with the defaults"
	return result
}

// SnapshotCheck verifies the integrity of the latest pre-migration snapshot.
type SnapshotCheck struct {
	Backups *backup.Manager
}

func (c *SnapshotCheck) Name() string     { return "snapshot" }
func (c *SnapshotCheck) Category() string { return "backup" }

func (c *SnapshotCheck) Run() *CheckResult {
	result := &CheckResult{Name: c.Name(), Category: c.Category()}

	latest, err := c.Backups.Latest()
	if err != nil {
		if errors.Is(err, backup.ErrNoSnapshots) {
			result.Status = SeverityInfo
			result.Message = "no snapshots yet; one is taken before each migration"
			return result
		}
		result.Status = SeverityError
		result.Message = fmt.Sprintf("cannot list snapshots: %v", err)
		return result
	}

	if _, err := c.Backups.Restore(latest.ID); err != nil {
		result.Status = SeverityError
		result.Message = fmt.Sprintf("latest snapshot %s fails verification: %v", latest.ID, err)
		return result
	}

	result.Status = SeverityPass
	result.Message = fmt.Sprintf("latest snapshot %s verifies (schema version %d)", latest.ID, latest.SchemaVersion)
	return result
}

// APIKeyCheck warns when the active client has no API key configured.
type APIKeyCheck struct {
	Manager *config.Manager
}

func (c *APIKeyCheck) Name() string     { return "api-key" }
func (c *APIKeyCheck) Category() string { return "credentials" }

func (c *APIKeyCheck) Run() *CheckResult {
	result := &CheckResult{Name: c.Name(), Category: c.Category()}

	cfg := c.Manager.Load()
	if cfg.APIKeys[cfg.Client] == "" {
		result.Status = SeverityWarning
		result.Message = fmt.Sprintf("no API key for the active client %q", cfg.Client)
		result.FixHint = fmt.Sprintf("set one with 'llmfill config set-key %s <key>'", cfg.Client)
		return result
	}

	result.Status = SeverityPass
	result.Message = fmt.Sprintf("API key configured for %q", cfg.Client)
	return result
}
