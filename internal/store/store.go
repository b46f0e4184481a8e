// Package store provides SQLite-backed persistence for analysis runs, so
// past consolidated results can be reviewed and compared over time.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/perfsight/perfsight/pkg/models"
)

// DB wraps an SQLite connection holding analysis-run history.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// DefaultPath returns the default database location under XDG data.
func DefaultPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "perfsight", "perfsight.db")
}

// Open opens the database at path, creating parent directories as needed.
// WAL mode is enabled for concurrent reads.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	return &DB{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Runs},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const migrationV1Runs = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	hostname TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	quality_tier TEXT NOT NULL,
	consensus_score REAL NOT NULL,
	participating_agents INTEGER NOT NULL,
	execution_ms INTEGER NOT NULL,
	insights_json TEXT NOT NULL,
	metrics_json TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_hostname ON runs(hostname);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// Run is one persisted analysis run.
type Run struct {
	ID        string
	Hostname  string
	CreatedAt time.Time
	Metrics   models.AnalysisContext
	Result    models.ConsolidatedResult
}

// SaveRun persists one finished analysis run.
func (db *DB) SaveRun(ctx context.Context, runID string, ac models.AnalysisContext, result *models.ConsolidatedResult) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	insightsJSON, err := json.Marshal(result.Insights)
	if err != nil {
		return fmt.Errorf("marshal insights: %w", err)
	}
	metricsJSON, err := json.Marshal(ac)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO runs (id, hostname, fingerprint, quality_tier, consensus_score,
			participating_agents, execution_ms, insights_json, metrics_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, ac.Hostname, ac.Fingerprint(), string(result.QualityTier), result.ConsensusScore,
		result.ParticipatingAgents, result.ExecutionTime.Milliseconds(),
		string(insightsJSON), string(metricsJSON))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	return nil
}

// ListRuns returns the most recent runs, newest first. hostname filters when
// non-empty; limit caps the result count.
func (db *DB) ListRuns(ctx context.Context, hostname string, limit int) ([]Run, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, hostname, quality_tier, consensus_score, participating_agents,
			execution_ms, insights_json, metrics_json, created_at
		FROM runs`
	args := []any{}
	if hostname != "" {
		query += " WHERE hostname = ?"
		args = append(args, hostname)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun fetches one run by ID.
func (db *DB) GetRun(ctx context.Context, runID string) (Run, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, hostname, quality_tier, consensus_score, participating_agents,
			execution_ms, insights_json, metrics_json, created_at
		FROM runs WHERE id = ?`, runID)
	if err != nil {
		return Run{}, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return Run{}, fmt.Errorf("run %s not found", runID)
	}
	return scanRun(rows)
}

func scanRun(rows *sql.Rows) (Run, error) {
	var (
		r             Run
		tier          string
		executionMS   int64
		insightsJSON  string
		metricsJSON   string
		createdAtText string
	)
	if err := rows.Scan(&r.ID, &r.Hostname, &tier, &r.Result.ConsensusScore,
		&r.Result.ParticipatingAgents, &executionMS, &insightsJSON, &metricsJSON, &createdAtText); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	r.Result.QualityTier = models.QualityTier(tier)
	r.Result.ExecutionTime = time.Duration(executionMS) * time.Millisecond

	if err := json.Unmarshal([]byte(insightsJSON), &r.Result.Insights); err != nil {
		return Run{}, fmt.Errorf("unmarshal insights for run %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(metricsJSON), &r.Metrics); err != nil {
		return Run{}, fmt.Errorf("unmarshal metrics for run %s: %w", r.ID, err)
	}
	if t, err := time.Parse("2006-01-02 15:04:05", createdAtText); err == nil {
		r.CreatedAt = t
	}

	return r, nil
}

// PruneRuns deletes runs older than the retention window, returning how
// many were removed.
func (db *DB) PruneRuns(ctx context.Context, retention time.Duration) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	cutoff := time.Now().UTC().Add(-retention).Format("2006-01-02 15:04:05")
	res, err := db.conn.ExecContext(ctx, "DELETE FROM runs WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}
