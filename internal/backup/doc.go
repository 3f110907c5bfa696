// Package backup keeps pre-migration snapshots of the configuration
// document.
//
// Each snapshot is a timestamped directory containing the document itself
// (config.json) and a manifest.json with its SHA256 hash. Before a migration
// rewrites the stored document, the manager takes one snapshot; retention
// defaults to a single generation, so the directory always holds the last
// pre-migration state and nothing older.
//
//	<backup dir>/
//	└── {timestamp}/
//	    ├── manifest.json
//	    └── config.json
//
// Restore verifies the snapshot's hash before handing the document back;
// a mismatch yields [ErrSnapshotCorrupted].
package backup
