package history

// Schema v1 - run log
const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- One row per reconciliation run
CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  started_at DATETIME NOT NULL,
  duration_ms INTEGER NOT NULL DEFAULT 0,
  mode TEXT NOT NULL,
  files INTEGER NOT NULL DEFAULT 0,
  locations INTEGER NOT NULL DEFAULT 0,
  borrowings INTEGER NOT NULL DEFAULT 0,
  orphaned_refs INTEGER NOT NULL DEFAULT 0,
  missing_locations INTEGER NOT NULL DEFAULT 0,
  unused_locations INTEGER NOT NULL DEFAULT 0,
  status_mismatches INTEGER NOT NULL DEFAULT 0,
  borrowing_mismatches INTEGER NOT NULL DEFAULT 0,
  writes INTEGER NOT NULL DEFAULT 0,
  failed_writes INTEGER NOT NULL DEFAULT 0,
  health_score INTEGER NOT NULL DEFAULT 0,
  passed INTEGER NOT NULL DEFAULT 0,
  report_path TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_mode ON runs(mode);
`
