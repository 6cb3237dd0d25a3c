package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/changemon/internal/model"
)

// JournalFile is the database file name inside the state directory.
const JournalFile = "changemon.db"

// Journal is the SQLite-backed run journal.
type Journal struct {
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures Journal behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the journal in dir.
func Open(dir string, opts Options) (*Journal, error) {
	dbPath := filepath.Join(dir, JournalFile)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("journal not found at %s (run a monitor first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check journal path: %w", err)
		}
	} else if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	dsn := dbPath + "?mode=rwc"
	if !opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	j := &Journal{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := j.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Path returns the database file path.
func (j *Journal) Path() string {
	return j.dbPath
}

func (j *Journal) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS observations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target TEXT NOT NULL,
		kind TEXT NOT NULL,
		outcome TEXT NOT NULL,
		identity TEXT,
		size INTEGER DEFAULT 0,
		added INTEGER DEFAULT 0,
		removed INTEGER DEFAULT 0,
		notified INTEGER DEFAULT 0,
		error TEXT,
		notify_error TEXT,
		duration_ms INTEGER DEFAULT 0,
		finished_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_obs_target ON observations(kind, target);
	CREATE INDEX IF NOT EXISTS idx_obs_finished ON observations(finished_at);
	`
	_, err := j.db.ExecContext(context.Background(), schema)
	return err
}

// Entry is one journaled observation.
type Entry struct {
	ID          int64
	Target      string
	Kind        model.Kind
	Outcome     model.Outcome
	Identity    string
	Size        int
	Added       int
	Removed     int
	Notified    bool
	Error       string
	NotifyError string
	Duration    time.Duration
	FinishedAt  time.Time
}

// Record appends the result of one target.
func (j *Journal) Record(ctx context.Context, kind model.Kind, r model.TargetResult) error {
	query := `
	INSERT INTO observations
		(target, kind, outcome, identity, size, added, removed, notified, error, notify_error, duration_ms, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := j.db.ExecContext(ctx, query,
		r.Target.String(),
		string(kind),
		string(r.Outcome),
		r.Identity,
		r.Size,
		r.Added,
		r.Removed,
		r.Notified,
		r.Error,
		r.NotifyError,
		r.Duration.Milliseconds(),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to journal %s: %w", r.Target, err)
	}
	return nil
}

const entryColumns = `id, target, kind, outcome, identity, size, added, removed, notified, error, notify_error, duration_ms, finished_at`

// Latest returns the newest entry of every target, ordered by kind and
// target. Empty kind or target match everything.
func (j *Journal) Latest(ctx context.Context, kind model.Kind, target string) ([]Entry, error) {
	query := `
	SELECT ` + entryColumns + `
	FROM observations
	WHERE id IN (
		SELECT MAX(id) FROM observations
		WHERE (? = '' OR kind = ?) AND (? = '' OR target = ?)
		GROUP BY kind, target
	)
	ORDER BY kind, target
	`
	return j.query(ctx, query, string(kind), string(kind), target, target)
}

// History returns the newest entries, newest first. Empty kind or target
// match everything. A limit of zero or less returns all entries.
func (j *Journal) History(ctx context.Context, kind model.Kind, target string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `
	SELECT ` + entryColumns + `
	FROM observations
	WHERE (? = '' OR kind = ?) AND (? = '' OR target = ?)
	ORDER BY id DESC
	LIMIT ?
	`
	return j.query(ctx, query, string(kind), string(kind), target, target, limit)
}

// Prune deletes entries finished before cutoff and returns how many were removed.
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx,
		"DELETE FROM observations WHERE finished_at < ?",
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune journal: %w", err)
	}
	return res.RowsAffected()
}

func (j *Journal) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                     Entry
			kind, outcome         string
			identity, errText     sql.NullString
			notifyErr, finishedAt sql.NullString
			durationMS            int64
		)
		if err := rows.Scan(
			&e.ID, &e.Target, &kind, &outcome, &identity,
			&e.Size, &e.Added, &e.Removed, &e.Notified,
			&errText, &notifyErr, &durationMS, &finishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		e.Kind = model.Kind(kind)
		e.Outcome = model.Outcome(outcome)
		e.Identity = identity.String
		e.Error = errText.String
		e.NotifyError = notifyErr.String
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.FinishedAt = parseTimestamp(finishedAt.String)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// timestampFormats lists the layouts SQLite may hand back.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp tries each known layout and returns the zero time if
// none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
