package projectstate

import (
	"context"
	"time"

	"github.com/kkkqkx123/codeforge-index/internal/errkind"
)

// UpsertFileStates batch-writes FileIndexState rows for one project inside
// a single transaction, per §4.13's "all multi-row updates occur in a
// single transaction" durability rule.
func (s *Store) UpsertFileStates(ctx context.Context, states []FileIndexState) error {
	if len(states) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errkind.Wrap(errkind.PermanentExternal, err, "begin file state batch")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO file_index_states (project_id, relative_path, content_hash, size,
			last_modified, last_indexed, status, chunk_count, language, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, relative_path) DO UPDATE SET
			content_hash = excluded.content_hash,
			size = excluded.size,
			last_modified = excluded.last_modified,
			last_indexed = excluded.last_indexed,
			status = excluded.status,
			chunk_count = excluded.chunk_count,
			language = excluded.language,
			error_message = excluded.error_message
	`)
	if err != nil {
		return errkind.Wrap(errkind.PermanentExternal, err, "prepare file state upsert")
	}
	defer stmt.Close()

	for _, f := range states {
		_, err := stmt.ExecContext(ctx, f.ProjectID, f.RelativePath, f.ContentHash, f.Size,
			f.LastModified.Format(timeLayout), f.LastIndexed.Format(timeLayout),
			string(f.Status), f.ChunkCount, f.Language, f.ErrorMessage)
		if err != nil {
			return errkind.Wrap(errkind.PermanentExternal, err, "upsert file state %s", f.RelativePath)
		}
	}

	if err := tx.Commit(); err != nil {
		return errkind.Wrap(errkind.PermanentExternal, err, "commit file state batch")
	}
	return nil
}

// DeleteFileState removes one file's index state row, used when
// ChangeDetector reports a removed path.
func (s *Store) DeleteFileState(ctx context.Context, projectID, relativePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM file_index_states WHERE project_id = ? AND relative_path = ?`,
		projectID, relativePath)
	if err != nil {
		return errkind.Wrap(errkind.PermanentExternal, err, "delete file state %s", relativePath)
	}
	return nil
}

// GetFileStates loads every FileIndexState row for a project, keyed by
// relative path, for use as IndexCoordinator's priorHashes input.
func (s *Store) GetFileStates(ctx context.Context, projectID string) (map[string]FileIndexState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT project_id, relative_path, content_hash, size, last_modified, last_indexed,
			status, chunk_count, language, error_message
		FROM file_index_states WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, errkind.Wrap(errkind.PermanentExternal, err, "list file states for %s", projectID)
	}
	defer rows.Close()

	out := make(map[string]FileIndexState)
	for rows.Next() {
		var f FileIndexState
		var lastModified, lastIndexed, status string
		if err := rows.Scan(&f.ProjectID, &f.RelativePath, &f.ContentHash, &f.Size,
			&lastModified, &lastIndexed, &status, &f.ChunkCount, &f.Language, &f.ErrorMessage); err != nil {
			return nil, errkind.Wrap(errkind.DataFormat, err, "scan file state row")
		}
		f.Status = FileStatus(status)
		f.LastModified, _ = time.Parse(timeLayout, lastModified)
		f.LastIndexed, _ = time.Parse(timeLayout, lastIndexed)
		out[f.RelativePath] = f
	}
	return out, rows.Err()
}

// PriorHashes is GetFileStates narrowed to the relativePath->contentHash
// map IndexCoordinator.IndexProject expects as its incremental-skip input.
func (s *Store) PriorHashes(ctx context.Context, projectID string) (map[string]string, error) {
	states, err := s.GetFileStates(ctx, projectID)
	if err != nil {
		return nil, err
	}
	hashes := make(map[string]string, len(states))
	for path, st := range states {
		hashes[path] = st.ContentHash
	}
	return hashes, nil
}

// IndexedPaths lists every currently-indexed relative path for a project,
// satisfying search.FileLister for the filename/path/extension backends.
func (s *Store) IndexedPaths(ctx context.Context, projectID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT relative_path FROM file_index_states WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, errkind.Wrap(errkind.PermanentExternal, err, "list indexed paths for %s", projectID)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, errkind.Wrap(errkind.DataFormat, err, "scan indexed path row")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AppendChangeEvents records ChangeDetector output to the append-only
// history table, in one transaction.
func (s *Store) AppendChangeEvents(ctx context.Context, events []ChangeEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errkind.Wrap(errkind.PermanentExternal, err, "begin change history batch")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO file_change_history (project_id, relative_path, kind, old_hash, new_hash, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errkind.Wrap(errkind.PermanentExternal, err, "prepare change history insert")
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx, e.ProjectID, e.RelativePath, e.Kind, e.OldHash, e.NewHash,
			e.OccurredAt.Format(timeLayout)); err != nil {
			return errkind.Wrap(errkind.PermanentExternal, err, "insert change event %s", e.RelativePath)
		}
	}

	return tx.Commit()
}
