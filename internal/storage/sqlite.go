package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding review and export history.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "aide.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't
// been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// --- Reviews ---

// SaveReview inserts a new review record. An empty status defaults to
// pending.
func (s *Store) SaveReview(r ReviewRecord) error {
	status := r.Status
	if status == "" {
		status = ReviewPending
	}
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO review_records (id, created_at, instructions, result, status, error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, createdAt.UTC().Format(time.RFC3339), r.Instructions, r.Result, status, r.Error,
	)
	return err
}

// CompleteReview marks a review as completed with its result.
func (s *Store) CompleteReview(id, result string) error {
	return s.finishReview(id, ReviewCompleted, result, "")
}

// FailReview marks a review as failed with the error message.
func (s *Store) FailReview(id, errMsg string) error {
	return s.finishReview(id, ReviewFailed, "", errMsg)
}

func (s *Store) finishReview(id, status, result, errMsg string) error {
	res, err := s.db.Exec(
		`UPDATE review_records SET status = ?, result = ?, error = ? WHERE id = ?`,
		status, result, errMsg, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetReview returns a single review record by ID.
func (s *Store) GetReview(id string) (ReviewRecord, error) {
	var r ReviewRecord
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, created_at, instructions, result, status, error
		FROM review_records WHERE id = ?`, id,
	).Scan(&r.ID, &createdAt, &r.Instructions, &r.Result, &r.Status, &r.Error)
	if err == sql.ErrNoRows {
		return ReviewRecord{}, ErrNotFound
	}
	if err != nil {
		return ReviewRecord{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return ReviewRecord{}, fmt.Errorf("parsing created_at: %w", err)
	}
	r.CreatedAt = t
	return r, nil
}

// RecentReviews returns the newest review records, most recent first.
func (s *Store) RecentReviews(limit int) ([]ReviewRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, created_at, instructions, result, status, error
		FROM review_records ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ReviewRecord
	for rows.Next() {
		var r ReviewRecord
		var createdAt string
		if err := rows.Scan(&r.ID, &createdAt, &r.Instructions, &r.Result, &r.Status, &r.Error); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		r.CreatedAt = t
		results = append(results, r)
	}
	return results, rows.Err()
}

// --- Exports ---

// SaveExport inserts an export record.
func (s *Store) SaveExport(e ExportRecord) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO export_records (id, created_at, assistant_name, destination, status, error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, createdAt.UTC().Format(time.RFC3339), e.AssistantName, e.Destination, e.Status, e.Error,
	)
	return err
}

// RecentExports returns the newest export records, most recent first.
func (s *Store) RecentExports(limit int) ([]ExportRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, created_at, assistant_name, destination, status, error
		FROM export_records ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ExportRecord
	for rows.Next() {
		var e ExportRecord
		var createdAt string
		if err := rows.Scan(&e.ID, &createdAt, &e.AssistantName, &e.Destination, &e.Status, &e.Error); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		e.CreatedAt = t
		results = append(results, e)
	}
	return results, rows.Err()
}
