package models

import "time"

// Request outcomes recorded in the audit log.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// LogRecord represents a single audited request/response pair.
// Records are immutable once written.
type LogRecord struct {
	RequestID  string    `json:"request_id"`
	ClientAddr string    `json:"client_addr"`
	Query      string    `json:"query"`
	Answer     string    `json:"answer,omitempty"`
	Source     string    `json:"source"`
	Outcome    string    `json:"outcome"`
	LatencyMs  int64     `json:"latency_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuditConfig controls the audit logging subsystem.
type AuditConfig struct {
	DBPath        string `yaml:"db_path"`
	RetentionDays int    `yaml:"retention_days"`
	LogAnswers    bool   `yaml:"log_answers"`
}

// AuditQueryOpts specifies filters for querying audit records.
type AuditQueryOpts struct {
	ClientAddr string
	Outcome    string
	Since      time.Time
	Limit      int
}

// AuditStat holds aggregate request counts for one day/outcome combination.
type AuditStat struct {
	Day     string
	Outcome string
	Count   int
}
