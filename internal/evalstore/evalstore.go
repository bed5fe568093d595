// Package evalstore provides the SQLite-backed evaluation history store.
// Evaluation runs, their per-question details, and ingestion configurations
// are persisted so accuracy can be compared across chunking strategies,
// retrieval strategies, and models over time.
package evalstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Run is one evaluation run over the full test set.
type Run struct {
	ID               int64
	Timestamp        time.Time
	ModelName        string
	Accuracy         float64
	VerifiedAccuracy float64
	TotalQuestions   int
	AvgLatency       float64
	RetrievalType    string

	// IngestionConfigID links the run to the ingestion config that was
	// active when it executed; zero when no config was recorded.
	IngestionConfigID int64
}

// Detail is one question's record within a run.
type Detail struct {
	ID              int64
	RunID           int64
	Question        string
	GoldAnswer      string
	BotAnswer       string
	IsCorrect       bool
	VerifiedCorrect bool
	CitationMatch   bool
	Latency         float64
	RetrievalType   string
}

// IngestionConfig records the parameters of one ingestion run.
type IngestionConfig struct {
	ID             int64
	Timestamp      time.Time
	ChunkSize      int
	Overlap        int
	EmbeddingModel string
	IngestionType  string

	// Configuration holds the full parameter set beyond the indexed columns.
	Configuration map[string]any
}

// Store persists evaluation history in a local SQLite database.
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the default evaluation database location,
// ~/.aeros/evaluation_history.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("evalstore: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".aeros")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("evalstore: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "evaluation_history.db"), nil
}

// Open opens (or creates) a Store at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*Store, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("evalstore: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *Store) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS runs (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp           TEXT    NOT NULL,
    model_name          TEXT    NOT NULL,
    accuracy            REAL    NOT NULL,
    verified_accuracy   REAL,
    total_questions     INTEGER NOT NULL,
    avg_latency         REAL,
    retrieval_type      TEXT,
    ingestion_config_id INTEGER
);
CREATE TABLE IF NOT EXISTS run_details (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id           INTEGER,
    question         TEXT,
    gold_answer      TEXT,
    bot_answer       TEXT,
    is_correct       BOOLEAN,
    verified_correct BOOLEAN,
    citation_match   BOOLEAN,
    latency          REAL,
    retrieval_type   TEXT,
    FOREIGN KEY(run_id) REFERENCES runs(id)
);
CREATE TABLE IF NOT EXISTS ingestion_configs (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp          TEXT    NOT NULL,
    chunk_size         INTEGER,
    overlap            INTEGER,
    embedding_model    TEXT    NOT NULL,
    ingestion_type     TEXT,
    configuration_json TEXT
);
CREATE INDEX IF NOT EXISTS idx_run_details_run ON run_details (run_id);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("evalstore: migrate: %w", err)
	}
	return nil
}

// LogIngestionConfig records an ingestion run's parameters and returns the
// new row ID. Subsequent evaluation runs link to the latest config.
func (s *Store) LogIngestionConfig(ctx context.Context, cfg IngestionConfig) (int64, error) {
	cfgJSON, err := json.Marshal(cfg.Configuration)
	if err != nil {
		return 0, fmt.Errorf("evalstore: marshal ingestion config: %w", err)
	}

	const q = `INSERT INTO ingestion_configs (timestamp, chunk_size, overlap, embedding_model, ingestion_type, configuration_json)
VALUES (?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q,
		time.Now().Format(time.RFC3339), cfg.ChunkSize, cfg.Overlap,
		cfg.EmbeddingModel, cfg.IngestionType, string(cfgJSON))
	if err != nil {
		return 0, fmt.Errorf("evalstore: log ingestion config: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("evalstore: ingestion config id: %w", err)
	}
	return id, nil
}

// latestIngestionConfigID returns the most recent config's ID, or 0 when none
// has been recorded yet.
func (s *Store) latestIngestionConfigID(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM ingestion_configs ORDER BY id DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("evalstore: latest ingestion config: %w", err)
	}
	return id, nil
}

// SaveRun persists a run and its details in one transaction, linking it to
// the latest ingestion config. Verified fields are initialised from the raw
// judge outputs; human review adjusts them later through the dashboard.
func (s *Store) SaveRun(ctx context.Context, run Run, details []Detail) (int64, error) {
	cfgID, err := s.latestIngestionConfigID(ctx)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("evalstore: begin save run: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var cfgVal any
	if cfgID > 0 {
		cfgVal = cfgID
	}
	const insertRun = `INSERT INTO runs (timestamp, model_name, accuracy, verified_accuracy, total_questions, avg_latency, retrieval_type, ingestion_config_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, insertRun,
		time.Now().Format(time.RFC3339), run.ModelName,
		run.Accuracy, run.Accuracy, // verified_accuracy starts equal to accuracy
		run.TotalQuestions, run.AvgLatency, run.RetrievalType, cfgVal)
	if err != nil {
		return 0, fmt.Errorf("evalstore: insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("evalstore: run id: %w", err)
	}

	const insertDetail = `INSERT INTO run_details (run_id, question, gold_answer, bot_answer, is_correct, verified_correct, citation_match, latency, retrieval_type)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, d := range details {
		if _, err := tx.ExecContext(ctx, insertDetail,
			runID, d.Question, d.GoldAnswer, d.BotAnswer,
			d.IsCorrect, d.IsCorrect, // verified_correct starts equal to is_correct
			d.CitationMatch, d.Latency, d.RetrievalType); err != nil {
			return 0, fmt.Errorf("evalstore: insert run detail: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("evalstore: commit run: %w", err)
	}
	return runID, nil
}

// Runs returns all runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	const q = `SELECT id, timestamp, model_name, accuracy,
COALESCE(verified_accuracy, accuracy), total_questions,
COALESCE(avg_latency, 0), COALESCE(retrieval_type, ''),
COALESCE(ingestion_config_id, 0)
FROM runs ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("evalstore: list runs: %w", err)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("evalstore: list runs rows: %w", err)
	}
	return runs, nil
}

// GetRun returns one run by ID.
func (s *Store) GetRun(ctx context.Context, id int64) (Run, error) {
	const q = `SELECT id, timestamp, model_name, accuracy,
COALESCE(verified_accuracy, accuracy), total_questions,
COALESCE(avg_latency, 0), COALESCE(retrieval_type, ''),
COALESCE(ingestion_config_id, 0)
FROM runs WHERE id = ?`

	row := s.db.QueryRowContext(ctx, q, id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return Run{}, fmt.Errorf("evalstore: run %d not found", id)
	}
	return r, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	var ts string
	if err := row.Scan(&r.ID, &ts, &r.ModelName, &r.Accuracy, &r.VerifiedAccuracy,
		&r.TotalQuestions, &r.AvgLatency, &r.RetrievalType, &r.IngestionConfigID); err != nil {
		if err == sql.ErrNoRows {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("evalstore: scan run: %w", err)
	}
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		r.Timestamp = t
	}
	return r, nil
}

// RunDetails returns the per-question details for a run in insertion order.
func (s *Store) RunDetails(ctx context.Context, runID int64) ([]Detail, error) {
	const q = `SELECT id, run_id, question, gold_answer, bot_answer,
is_correct, verified_correct, citation_match, COALESCE(latency, 0),
COALESCE(retrieval_type, '')
FROM run_details WHERE run_id = ? ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, q, runID)
	if err != nil {
		return nil, fmt.Errorf("evalstore: run details: %w", err)
	}
	defer rows.Close()

	var details []Detail
	for rows.Next() {
		var d Detail
		if err := rows.Scan(&d.ID, &d.RunID, &d.Question, &d.GoldAnswer, &d.BotAnswer,
			&d.IsCorrect, &d.VerifiedCorrect, &d.CitationMatch, &d.Latency, &d.RetrievalType); err != nil {
			return nil, fmt.Errorf("evalstore: scan run detail: %w", err)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("evalstore: run details rows: %w", err)
	}
	return details, nil
}

// GetIngestionConfig returns one ingestion config by ID.
func (s *Store) GetIngestionConfig(ctx context.Context, id int64) (IngestionConfig, error) {
	const q = `SELECT id, timestamp, COALESCE(chunk_size, 0), COALESCE(overlap, 0),
embedding_model, COALESCE(ingestion_type, ''), COALESCE(configuration_json, '{}')
FROM ingestion_configs WHERE id = ?`

	var c IngestionConfig
	var ts, cfgJSON string
	err := s.db.QueryRowContext(ctx, q, id).Scan(&c.ID, &ts, &c.ChunkSize, &c.Overlap,
		&c.EmbeddingModel, &c.IngestionType, &cfgJSON)
	if err == sql.ErrNoRows {
		return IngestionConfig{}, fmt.Errorf("evalstore: ingestion config %d not found", id)
	}
	if err != nil {
		return IngestionConfig{}, fmt.Errorf("evalstore: get ingestion config: %w", err)
	}
	if t, perr := time.Parse(time.RFC3339, ts); perr == nil {
		c.Timestamp = t
	}
	if uerr := json.Unmarshal([]byte(cfgJSON), &c.Configuration); uerr != nil {
		c.Configuration = nil
	}
	return c, nil
}

// SetVerified toggles human verification on one detail row and recomputes
// the owning run's verified_accuracy from all its details.
func (s *Store) SetVerified(ctx context.Context, detailID int64, verified bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("evalstore: begin verify: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var runID int64
	if err := tx.QueryRowContext(ctx,
		`SELECT run_id FROM run_details WHERE id = ?`, detailID).Scan(&runID); err != nil {
		return fmt.Errorf("evalstore: detail %d not found: %w", detailID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE run_details SET verified_correct = ? WHERE id = ?`, verified, detailID); err != nil {
		return fmt.Errorf("evalstore: update verified: %w", err)
	}

	var total, correct int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(verified_correct), 0) FROM run_details WHERE run_id = ?`,
		runID).Scan(&total, &correct); err != nil {
		return fmt.Errorf("evalstore: recount verified: %w", err)
	}
	if total > 0 {
		accuracy := float64(correct) / float64(total) * 100
		if _, err := tx.ExecContext(ctx,
			`UPDATE runs SET verified_accuracy = ? WHERE id = ?`, accuracy, runID); err != nil {
			return fmt.Errorf("evalstore: update verified accuracy: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("evalstore: commit verify: %w", err)
	}
	return nil
}

// Close releases the database connection pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("evalstore: close: %w", err)
	}
	return nil
}
