// Package sqlite persists audit records in a dedicated SQLite database with
// WAL journaling and a background retention sweep.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/unkn0wn-root/aicache/toon"
)

// Config tunes the sink.
type Config struct {
	// Path is the database file. Required.
	Path string

	// Retention discards records older than this. 0 => 30 days;
	// negative disables the sweep.
	Retention time.Duration

	// SweepInterval is how often the retention sweep runs. 0 => 1h.
	SweepInterval time.Duration
}

// Sink writes records to SQLite. Safe for concurrent use; in practice the
// Recorder's single writer is the only caller of Persist.
type Sink struct {
	db        *sql.DB
	retention time.Duration

	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ toon.Sink = (*Sink)(nil)

// New opens (or creates) the database and starts the retention sweep.
func New(cfg Config) (*Sink, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite sink: empty path")
	}
	db, err := sql.Open("sqlite", cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}

	retention := cfg.Retention
	if retention == 0 {
		retention = 30 * 24 * time.Hour
	}
	s := &Sink{db: db, retention: retention, stopCh: make(chan struct{})}

	if retention > 0 {
		interval := cfg.SweepInterval
		if interval <= 0 {
			interval = time.Hour
		}
		s.wg.Add(1)
		go s.retentionLoop(interval)
	}
	return s, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS cache_operations (
		operation_id      TEXT PRIMARY KEY,
		operation_type    TEXT NOT NULL,
		tokens_saved      INTEGER NOT NULL,
		cost_saved        REAL NOT NULL,
		similarity_score  REAL,
		cache_age_seconds INTEGER,
		affected_entries  INTEGER NOT NULL DEFAULT 0,
		timestamp         DATETIME NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_ops_timestamp ON cache_operations(timestamp)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_ops_type ON cache_operations(operation_type)`)
	return err
}

// Persist inserts one record. Records are immutable; a duplicate
// operation_id is a bug upstream and surfaces as a constraint error.
func (s *Sink) Persist(ctx context.Context, op toon.Operation) error {
	var sim sql.NullFloat64
	if op.Similarity != nil {
		sim = sql.NullFloat64{Float64: *op.Similarity, Valid: true}
	}
	var age sql.NullInt64
	if op.CacheAgeSeconds != nil {
		age = sql.NullInt64{Int64: *op.CacheAgeSeconds, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_operations
		(operation_id, operation_type, tokens_saved, cost_saved,
		 similarity_score, cache_age_seconds, affected_entries, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		op.OperationID, string(op.Type), op.TokensSaved, op.CostSaved,
		sim, age, op.AffectedEntries, op.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("persist operation: %w", err)
	}
	return nil
}

// QueryOpts filters Query results.
type QueryOpts struct {
	OperationID string
	Type        toon.Type
	Since       time.Time
	Limit       int // 0 => 100
}

// Query returns records matching opts, newest first.
func (s *Sink) Query(ctx context.Context, opts QueryOpts) ([]toon.Operation, error) {
	q := `SELECT operation_id, operation_type, tokens_saved, cost_saved,
		similarity_score, cache_age_seconds, affected_entries, timestamp
		FROM cache_operations WHERE 1=1`
	var args []any

	if opts.OperationID != "" {
		q += " AND operation_id = ?"
		args = append(args, opts.OperationID)
	}
	if opts.Type != "" {
		q += " AND operation_type = ?"
		args = append(args, string(opts.Type))
	}
	if !opts.Since.IsZero() {
		q += " AND timestamp >= ?"
		args = append(args, opts.Since.UTC())
	}

	q += " ORDER BY timestamp DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query operations: %w", err)
	}
	defer rows.Close()

	var ops []toon.Operation
	for rows.Next() {
		var op toon.Operation
		var typ string
		var sim sql.NullFloat64
		var age sql.NullInt64
		if err := rows.Scan(
			&op.OperationID, &typ, &op.TokensSaved, &op.CostSaved,
			&sim, &age, &op.AffectedEntries, &op.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		op.Type = toon.Type(typ)
		if sim.Valid {
			v := sim.Float64
			op.Similarity = &v
		}
		if age.Valid {
			v := age.Int64
			op.CacheAgeSeconds = &v
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// Cleanup deletes records older than the retention period and returns how
// many were removed.
func (s *Sink) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.retention)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_operations WHERE timestamp < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("operations cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention sweep and closes the database.
func (s *Sink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *Sink) retentionLoop(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			_, _ = s.Cleanup(context.Background())
		}
	}
}
