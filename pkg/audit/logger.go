// Package audit records every completed gateway request in a durable
// append-only log.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/chatgate/chatgate/pkg/models"
)

// Recorder appends request records to the audit log.
type Recorder interface {
	Log(ctx context.Context, rec models.LogRecord) error
}

// Logger writes and queries request records in a SQLite database.
type Logger struct {
	db   *sql.DB
	cfg  models.AuditConfig
	done chan struct{}
	wg   sync.WaitGroup
}

// New opens the audit database and creates the schema. When a retention
// period is configured, a background goroutine deletes aged records hourly.
func New(cfg models.AuditConfig) (*Logger, error) {
	db, err := sql.Open("sqlite", cfg.DBPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}

	l := &Logger{
		db:   db,
		cfg:  cfg,
		done: make(chan struct{}),
	}

	if cfg.RetentionDays > 0 {
		l.wg.Add(1)
		go l.retentionLoop()
	}

	return l, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS request_logs (
		request_id  TEXT PRIMARY KEY,
		client_addr TEXT NOT NULL,
		query       TEXT NOT NULL,
		answer      TEXT,
		source      TEXT NOT NULL,
		outcome     TEXT NOT NULL,
		latency_ms  INTEGER,
		created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_logs_client ON request_logs(client_addr)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_logs_created ON request_logs(created_at)`)
	return err
}

// Log inserts a request record. A missing request ID is assigned here so
// callers never have to generate one. Records are never updated.
func (l *Logger) Log(ctx context.Context, rec models.LogRecord) error {
	if l == nil || l.db == nil {
		return nil
	}

	if rec.RequestID == "" {
		rec.RequestID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	answer := rec.Answer
	if !l.cfg.LogAnswers {
		answer = ""
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO request_logs
		(request_id, client_addr, query, answer, source, outcome, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, rec.ClientAddr, rec.Query, answer,
		rec.Source, rec.Outcome, rec.LatencyMs, rec.CreatedAt,
	)
	return err
}

// Query returns request records matching the given options, newest first.
func (l *Logger) Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.LogRecord, error) {
	q := `SELECT request_id, client_addr, query, answer, source, outcome, latency_ms, created_at
		FROM request_logs WHERE 1=1`
	var args []any

	if opts.ClientAddr != "" {
		q += " AND client_addr = ?"
		args = append(args, opts.ClientAddr)
	}
	if opts.Outcome != "" {
		q += " AND outcome = ?"
		args = append(args, opts.Outcome)
	}
	if !opts.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, opts.Since)
	}

	q += " ORDER BY created_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var records []models.LogRecord
	for rows.Next() {
		var r models.LogRecord
		var answer sql.NullString
		var latency sql.NullInt64
		if err := rows.Scan(
			&r.RequestID, &r.ClientAddr, &r.Query, &answer,
			&r.Source, &r.Outcome, &latency, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		r.Answer = answer.String
		r.LatencyMs = latency.Int64
		records = append(records, r)
	}
	return records, rows.Err()
}

// Stats returns request counts grouped by day and outcome.
func (l *Logger) Stats(ctx context.Context) ([]models.AuditStat, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT date(created_at) as day, outcome, count(*) as cnt
		 FROM request_logs GROUP BY day, outcome ORDER BY day DESC, outcome`)
	if err != nil {
		return nil, fmt.Errorf("audit stats: %w", err)
	}
	defer rows.Close()

	var stats []models.AuditStat
	for rows.Next() {
		var s models.AuditStat
		var day sql.NullString
		if err := rows.Scan(&day, &s.Outcome, &s.Count); err != nil {
			return nil, fmt.Errorf("scan audit stat: %w", err)
		}
		s.Day = day.String
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Cleanup deletes records older than the configured retention period.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -l.cfg.RetentionDays)
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM request_logs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (l *Logger) Close() error {
	close(l.done)
	l.wg.Wait()
	return l.db.Close()
}

func (l *Logger) retentionLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			_, _ = l.Cleanup(context.Background())
		}
	}
}
