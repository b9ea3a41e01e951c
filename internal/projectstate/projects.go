package projectstate

import (
	"context"
	"database/sql"
	"time"

	"github.com/kkkqkx123/codeforge-index/internal/errkind"
)

const timeLayout = time.RFC3339Nano

// UpsertProject inserts a new project or updates the mutable fields of an
// existing one, keyed by ProjectID. CreatedAt is preserved on update.
func (s *Store) UpsertProject(ctx context.Context, p Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := p.UpdatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (project_id, path, name, created_at, updated_at, last_indexed_at,
			status, include_globs, exclude_globs, hot_reload_json, collection_name, space_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			name = excluded.name,
			updated_at = excluded.updated_at,
			status = excluded.status,
			include_globs = excluded.include_globs,
			exclude_globs = excluded.exclude_globs,
			hot_reload_json = excluded.hot_reload_json,
			collection_name = excluded.collection_name,
			space_name = excluded.space_name
	`,
		p.ProjectID, p.Path, p.Name, p.CreatedAt.Format(timeLayout), now.Format(timeLayout),
		nullTimeString(p.LastIndexedAt), string(p.Status), p.IncludeGlobs, p.ExcludeGlobs,
		p.HotReloadJSON, p.CollectionName, p.SpaceName,
	)
	if err != nil {
		return errkind.Wrap(errkind.PermanentExternal, err, "upsert project %s", p.ProjectID)
	}
	return nil
}

// GetProject fetches one project by id. Returns (Project{}, false, nil) if
// no row matches.
func (s *Store) GetProject(ctx context.Context, projectID string) (Project, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT project_id, path, name, created_at, updated_at, last_indexed_at,
			status, include_globs, exclude_globs, hot_reload_json, collection_name, space_name
		FROM projects WHERE project_id = ?`, projectID)

	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return Project{}, false, nil
	}
	if err != nil {
		return Project{}, false, errkind.Wrap(errkind.PermanentExternal, err, "get project %s", projectID)
	}
	return p, true, nil
}

// ListProjects returns every registered project, ordered by path for a
// stable listing.
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT project_id, path, name, created_at, updated_at, last_indexed_at,
			status, include_globs, exclude_globs, hot_reload_json, collection_name, space_name
		FROM projects ORDER BY path`)
	if err != nil {
		return nil, errkind.Wrap(errkind.PermanentExternal, err, "list projects")
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, errkind.Wrap(errkind.DataFormat, err, "scan project row")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProject removes a project and every row that references it
// (project_status, file_index_states, file_change_history cascade via
// foreign keys). Callers are responsible for dropping the corresponding
// vector collection and graph namespace beforehand, per the data model's
// "on delete, both namespaces are dropped" lifecycle rule.
func (s *Store) DeleteProject(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE project_id = ?`, projectID); err != nil {
		return errkind.Wrap(errkind.PermanentExternal, err, "delete project %s", projectID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProject(row rowScanner) (Project, error) {
	var p Project
	var createdAt, updatedAt string
	var lastIndexedAt sql.NullString
	var status string

	err := row.Scan(&p.ProjectID, &p.Path, &p.Name, &createdAt, &updatedAt, &lastIndexedAt,
		&status, &p.IncludeGlobs, &p.ExcludeGlobs, &p.HotReloadJSON, &p.CollectionName, &p.SpaceName)
	if err != nil {
		return Project{}, err
	}

	p.Status = Status(status)
	p.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	p.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	if lastIndexedAt.Valid {
		if t, err := time.Parse(timeLayout, lastIndexedAt.String); err == nil {
			p.LastIndexedAt = sql.NullTime{Time: t, Valid: true}
		}
	}
	return p, nil
}

func nullTimeString(t sql.NullTime) interface{} {
	if !t.Valid {
		return nil
	}
	return t.Time.Format(timeLayout)
}
