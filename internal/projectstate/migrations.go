package projectstate

import (
	"context"

	"github.com/kkkqkx123/codeforge-index/internal/errkind"
)

// migration is one ordered, idempotent schema step. Each migration's
// statements and its schema_version row commit in one transaction, so a
// crash mid-migration never leaves schema_version ahead of the DDL it names.
type migration struct {
	version int
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER NOT NULL,
				applied_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS projects (
				project_id TEXT PRIMARY KEY,
				path TEXT NOT NULL UNIQUE,
				name TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				last_indexed_at TEXT,
				status TEXT NOT NULL,
				include_globs TEXT NOT NULL DEFAULT '',
				exclude_globs TEXT NOT NULL DEFAULT '',
				hot_reload_json TEXT NOT NULL DEFAULT '{}',
				collection_name TEXT NOT NULL,
				space_name TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS project_status (
				project_id TEXT PRIMARY KEY REFERENCES projects(project_id) ON DELETE CASCADE,
				vector_state TEXT NOT NULL DEFAULT 'idle',
				vector_progress REAL NOT NULL DEFAULT 0,
				vector_count INTEGER NOT NULL DEFAULT 0,
				vector_last_error TEXT NOT NULL DEFAULT '',
				vector_updated_at TEXT NOT NULL,
				graph_state TEXT NOT NULL DEFAULT 'idle',
				graph_progress REAL NOT NULL DEFAULT 0,
				graph_count INTEGER NOT NULL DEFAULT 0,
				graph_last_error TEXT NOT NULL DEFAULT '',
				graph_updated_at TEXT NOT NULL,
				indexing_progress REAL NOT NULL DEFAULT 0,
				total_files INTEGER NOT NULL DEFAULT 0,
				indexed_files INTEGER NOT NULL DEFAULT 0,
				failed_files INTEGER NOT NULL DEFAULT 0,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS file_index_states (
				project_id TEXT NOT NULL REFERENCES projects(project_id) ON DELETE CASCADE,
				relative_path TEXT NOT NULL,
				content_hash TEXT NOT NULL,
				size INTEGER NOT NULL,
				last_modified TEXT NOT NULL,
				last_indexed TEXT NOT NULL,
				status TEXT NOT NULL,
				chunk_count INTEGER NOT NULL DEFAULT 0,
				language TEXT NOT NULL DEFAULT '',
				error_message TEXT NOT NULL DEFAULT '',
				PRIMARY KEY (project_id, relative_path)
			)`,
			`CREATE TABLE IF NOT EXISTS file_change_history (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				project_id TEXT NOT NULL REFERENCES projects(project_id) ON DELETE CASCADE,
				relative_path TEXT NOT NULL,
				kind TEXT NOT NULL,
				old_hash TEXT NOT NULL DEFAULT '',
				new_hash TEXT NOT NULL DEFAULT '',
				occurred_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_file_change_history_project
				ON file_change_history(project_id, occurred_at)`,
		},
	},
	{
		// Additive columns for hot-reload counters/timestamps, split into its
		// own version so a store created before hot-reload shipped migrates
		// forward without re-running the base schema.
		version: 2,
		stmts: []string{
			`ALTER TABLE project_status ADD COLUMN hot_reload_enabled INTEGER NOT NULL DEFAULT 0`,
			`ALTER TABLE project_status ADD COLUMN changes_detected INTEGER NOT NULL DEFAULT 0`,
			`ALTER TABLE project_status ADD COLUMN errors_count INTEGER NOT NULL DEFAULT 0`,
			`ALTER TABLE project_status ADD COLUMN last_enabled TEXT`,
			`ALTER TABLE project_status ADD COLUMN last_disabled TEXT`,
		},
	},
}

// migrate runs every migration whose version is greater than the highest
// one recorded in schema_version, in order, each inside its own
// transaction. ALTER TABLE ADD COLUMN is not naturally idempotent in
// SQLite (no IF NOT EXISTS support), so idempotency instead comes from
// schema_version gating re-execution rather than from the DDL itself.
func (s *Store) migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return errkind.Wrap(errkind.PermanentExternal, err, "create schema_version table")
	}

	current := 0
	row := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&current); err != nil {
		return errkind.Wrap(errkind.PermanentExternal, err, "read schema_version")
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := s.applyMigration(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) applyMigration(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errkind.Wrap(errkind.PermanentExternal, err, "begin migration %d", m.version)
	}
	defer tx.Rollback()

	for _, stmt := range m.stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errkind.Wrap(errkind.PermanentExternal, err, "migration %d statement %q", m.version, stmt)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`, m.version); err != nil {
		return errkind.Wrap(errkind.PermanentExternal, err, "record migration %d", m.version)
	}
	if err := tx.Commit(); err != nil {
		return errkind.Wrap(errkind.PermanentExternal, err, "commit migration %d", m.version)
	}
	return nil
}
