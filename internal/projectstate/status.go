package projectstate

import (
	"context"
	"database/sql"
	"time"

	"github.com/kkkqkx123/codeforge-index/internal/errkind"
)

// GetProjectStatus loads the aggregate ProjectState row for a project.
// Returns the zero ProjectStatus and found=false if indexing has never
// started for this project (no row yet).
func (s *Store) GetProjectStatus(ctx context.Context, projectID string) (ProjectStatus, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getProjectStatusLocked(ctx, projectID)
}

func (s *Store) getProjectStatusLocked(ctx context.Context, projectID string) (ProjectStatus, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT project_id, vector_state, vector_progress, vector_count, vector_last_error, vector_updated_at,
			graph_state, graph_progress, graph_count, graph_last_error, graph_updated_at,
			indexing_progress, total_files, indexed_files, failed_files,
			hot_reload_enabled, changes_detected, errors_count, last_enabled, last_disabled, updated_at
		FROM project_status WHERE project_id = ?`, projectID)

	st, err := scanProjectStatus(row)
	if err == sql.ErrNoRows {
		return ProjectStatus{}, false, nil
	}
	if err != nil {
		return ProjectStatus{}, false, errkind.Wrap(errkind.PermanentExternal, err, "get project status %s", projectID)
	}
	return st, true, nil
}

// UpdateProjectStatus performs an atomic read-modify-write: it reads the
// current ProjectStatus row (creating a zero-valued one if absent) inside
// a write transaction, applies mutate, and writes the result back, all
// before any other statement on this connection can interleave. SQLite
// has no row-level locking; exclusivity comes from s.mu plus the
// single-connection pool, and the transaction is a plain deferred one.
func (s *Store) UpdateProjectStatus(ctx context.Context, projectID string, mutate func(*ProjectStatus)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The single-connection pool (SetMaxOpenConns(1)) combined with s.mu
	// already gives this read-modify-write exclusive access to the
	// database for its whole duration, so a plain deferred transaction is
	// enough here; SQLite's own BEGIN IMMEDIATE isn't needed on top of it.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errkind.Wrap(errkind.PermanentExternal, err, "begin project status update for %s", projectID)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT project_id, vector_state, vector_progress, vector_count, vector_last_error, vector_updated_at,
			graph_state, graph_progress, graph_count, graph_last_error, graph_updated_at,
			indexing_progress, total_files, indexed_files, failed_files,
			hot_reload_enabled, changes_detected, errors_count, last_enabled, last_disabled, updated_at
		FROM project_status WHERE project_id = ?`, projectID)

	current, err := scanProjectStatus(row)
	if err == sql.ErrNoRows {
		now := time.Now().UTC()
		current = ProjectStatus{
			ProjectID:    projectID,
			VectorStatus: SubStatus{State: SubStateIdle, UpdatedAt: now},
			GraphStatus:  SubStatus{State: SubStateIdle, UpdatedAt: now},
			UpdatedAt:    now,
		}
	} else if err != nil {
		return errkind.Wrap(errkind.PermanentExternal, err, "read project status %s", projectID)
	}

	mutate(&current)
	current.ProjectID = projectID
	current.UpdatedAt = time.Now().UTC()

	if err := writeProjectStatus(ctx, tx, current); err != nil {
		return err
	}

	return tx.Commit()
}

func writeProjectStatus(ctx context.Context, tx *sql.Tx, st ProjectStatus) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO project_status (project_id, vector_state, vector_progress, vector_count, vector_last_error, vector_updated_at,
			graph_state, graph_progress, graph_count, graph_last_error, graph_updated_at,
			indexing_progress, total_files, indexed_files, failed_files,
			hot_reload_enabled, changes_detected, errors_count, last_enabled, last_disabled, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			vector_state = excluded.vector_state,
			vector_progress = excluded.vector_progress,
			vector_count = excluded.vector_count,
			vector_last_error = excluded.vector_last_error,
			vector_updated_at = excluded.vector_updated_at,
			graph_state = excluded.graph_state,
			graph_progress = excluded.graph_progress,
			graph_count = excluded.graph_count,
			graph_last_error = excluded.graph_last_error,
			graph_updated_at = excluded.graph_updated_at,
			indexing_progress = excluded.indexing_progress,
			total_files = excluded.total_files,
			indexed_files = excluded.indexed_files,
			failed_files = excluded.failed_files,
			hot_reload_enabled = excluded.hot_reload_enabled,
			changes_detected = excluded.changes_detected,
			errors_count = excluded.errors_count,
			last_enabled = excluded.last_enabled,
			last_disabled = excluded.last_disabled,
			updated_at = excluded.updated_at
	`,
		st.ProjectID,
		string(st.VectorStatus.State), st.VectorStatus.Progress, st.VectorStatus.Count, st.VectorStatus.LastError, st.VectorStatus.UpdatedAt.Format(timeLayout),
		string(st.GraphStatus.State), st.GraphStatus.Progress, st.GraphStatus.Count, st.GraphStatus.LastError, st.GraphStatus.UpdatedAt.Format(timeLayout),
		st.IndexingProgress, st.TotalFiles, st.IndexedFiles, st.FailedFiles,
		boolToInt(st.HotReloadEnabled), st.ChangesDetected, st.ErrorsCount,
		nullTimeString(st.LastEnabled), nullTimeString(st.LastDisabled),
		st.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return errkind.Wrap(errkind.PermanentExternal, err, "write project status %s", st.ProjectID)
	}
	return nil
}

func scanProjectStatus(row rowScanner) (ProjectStatus, error) {
	var st ProjectStatus
	var vectorState, graphState string
	var vectorUpdatedAt, graphUpdatedAt, updatedAt string
	var hotReloadEnabled int
	var lastEnabled, lastDisabled sql.NullString

	err := row.Scan(
		&st.ProjectID,
		&vectorState, &st.VectorStatus.Progress, &st.VectorStatus.Count, &st.VectorStatus.LastError, &vectorUpdatedAt,
		&graphState, &st.GraphStatus.Progress, &st.GraphStatus.Count, &st.GraphStatus.LastError, &graphUpdatedAt,
		&st.IndexingProgress, &st.TotalFiles, &st.IndexedFiles, &st.FailedFiles,
		&hotReloadEnabled, &st.ChangesDetected, &st.ErrorsCount, &lastEnabled, &lastDisabled, &updatedAt,
	)
	if err != nil {
		return ProjectStatus{}, err
	}

	st.VectorStatus.State = SubState(vectorState)
	st.GraphStatus.State = SubState(graphState)
	st.VectorStatus.UpdatedAt, _ = time.Parse(timeLayout, vectorUpdatedAt)
	st.GraphStatus.UpdatedAt, _ = time.Parse(timeLayout, graphUpdatedAt)
	st.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	st.HotReloadEnabled = hotReloadEnabled != 0
	if lastEnabled.Valid {
		if t, err := time.Parse(timeLayout, lastEnabled.String); err == nil {
			st.LastEnabled = sql.NullTime{Time: t, Valid: true}
		}
	}
	if lastDisabled.Valid {
		if t, err := time.Parse(timeLayout, lastDisabled.String); err == nil {
			st.LastDisabled = sql.NullTime{Time: t, Valid: true}
		}
	}
	return st, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
