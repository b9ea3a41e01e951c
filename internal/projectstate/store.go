// Package projectstate is the durable, single-node system of record for
// projects, their per-file index state, aggregate indexing status, and
// hot-reload history. It is backed by an embedded modernc.org/sqlite
// database in WAL mode, following the same connection-pool and pragma
// idiom the rest of this codebase uses for embedded relational storage.
package projectstate

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kkkqkx123/codeforge-index/internal/errkind"
)

// Status is a Project's lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusIndexing  Status = "indexing"
	StatusError     Status = "error"
)

// SubState is the state of one half (vector or graph) of ProjectState.
type SubState string

const (
	SubStateIdle     SubState = "idle"
	SubStateIndexing SubState = "indexing"
	SubStateReady    SubState = "ready"
	SubStateError    SubState = "error"
)

// FileStatus is a FileIndexState's per-file status.
type FileStatus string

const (
	FileStatusPending FileStatus = "pending"
	FileStatusIndexed FileStatus = "indexed"
	FileStatusFailed  FileStatus = "failed"
)

// Project is a root absolute path registered for indexing. ProjectID is
// deterministic and derived from the canonicalized path by the caller
// (internal/ids); this store treats it as an opaque stable key.
type Project struct {
	ProjectID      string
	Path           string
	Name           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastIndexedAt  sql.NullTime
	Status         Status
	IncludeGlobs   string // newline-joined; kept as text, no relational fan-out needed
	ExcludeGlobs   string
	HotReloadJSON  string // serialized hot-reload config, opaque to this store
	CollectionName string
	SpaceName      string
}

// SubStatus mirrors one of ProjectState's vectorStatus/graphStatus halves.
type SubStatus struct {
	State     SubState
	Progress  float64
	Count     int
	LastError string
	UpdatedAt time.Time
}

// ProjectStatus is the full aggregate ProjectState row for one project.
type ProjectStatus struct {
	ProjectID        string
	VectorStatus     SubStatus
	GraphStatus      SubStatus
	IndexingProgress float64
	TotalFiles       int
	IndexedFiles     int
	FailedFiles      int
	HotReloadEnabled bool
	ChangesDetected  int
	ErrorsCount      int
	LastEnabled      sql.NullTime
	LastDisabled     sql.NullTime
	UpdatedAt        time.Time
}

// Ready reports whether both sub-stores have finished indexing, per the
// data model's "aggregate status is ready iff both sub-statuses are ready"
// invariant.
func (p ProjectStatus) Ready() bool {
	return p.VectorStatus.State == SubStateReady && p.GraphStatus.State == SubStateReady
}

// FileIndexState is one project file's indexing record.
type FileIndexState struct {
	ProjectID    string
	RelativePath string
	ContentHash  string
	Size         int64
	LastModified time.Time
	LastIndexed  time.Time
	Status       FileStatus
	ChunkCount   int
	Language     string
	ErrorMessage string
}

// ChangeEvent is one row of the append-only file_change_history log.
type ChangeEvent struct {
	ProjectID    string
	RelativePath string
	Kind         string // added|modified|removed|unchanged|skipped
	OldHash      string
	NewHash      string
	OccurredAt   time.Time
}

// Store is the ProjectStateStore port implementation. All exported methods
// are safe for concurrent use; writes to a single project are additionally
// serialized by callers per §5's "ProjectStateStore operations are
// serialized per project" policy — this store does not itself shard
// locks per project, since SQLite already serializes at the connection.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates (or reopens) the store at path, running schema migrations.
// path may be ":memory:" for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := validateIntegrity(path); err != nil {
			removeCorruptFiles(path)
		}
	}

	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errkind.Wrap(errkind.PermanentExternal, err, "open sqlite store at %s", path)
	}

	// DSN params may be ignored by modernc.org/sqlite depending on driver
	// version, so the same settings are applied again as explicit pragmas.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, errkind.Wrap(errkind.PermanentExternal, err, "apply pragma %q", p)
		}
	}

	// SQLite has no row-level concurrency; a single connection avoids
	// SQLITE_BUSY churn between goroutines that migrate/CRUD concurrently.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close checkpoints the WAL back into the main file and releases the
// connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// validateIntegrity opens path read-only and runs a quick sanity check so a
// database left corrupt by a prior crash is detected before this process
// starts writing to it, rather than surfacing as an opaque query failure
// later. A missing file is not corruption — sql.Open below will create it.
func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return err
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("sqlite integrity_check reported %q", result)
	}
	return nil
}

// removeCorruptFiles deletes path and its WAL/SHM siblings after a failed
// integrity check, so the subsequent sql.Open starts from a clean slate
// instead of reopening a database known to be broken.
func removeCorruptFiles(path string) {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		_ = os.Remove(path + suffix)
	}
}
