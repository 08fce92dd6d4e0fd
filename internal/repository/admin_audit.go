package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"KellyMux/internal/domain/models"
	"KellyMux/internal/domain/repository"
)

// ClickHouseAuditLog journals admin commands in ClickHouse. The journal
// records roster mutations only; portfolios are never persisted.
type ClickHouseAuditLog struct {
	db    *sql.DB
	table string
}

// NewClickHouseAuditLog creates a ClickHouse-backed audit log.
func NewClickHouseAuditLog(db *sql.DB, table string) repository.AuditLog {
	return &ClickHouseAuditLog{db: db, table: table}
}

// Schema returns the idempotent DDL for the audit table.
func Schema(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			at DateTime64(3),
			cmd String,
			client_id String,
			mu Float64,
			sigma Float64,
			outcome String
		) ENGINE=MergeTree ORDER BY at`, table),
	}
}

func (a *ClickHouseAuditLog) Record(ctx context.Context, e models.AuditEntry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	q := fmt.Sprintf("INSERT INTO %s (at, cmd, client_id, mu, sigma, outcome) VALUES (?, ?, ?, ?, ?, ?)", a.table)
	_, err := a.db.ExecContext(ctx, q, e.At, e.Cmd, e.ClientID, e.Mu, e.Sigma, e.Outcome)
	if err != nil {
		return fmt.Errorf("audit insert: %w", err)
	}
	return nil
}

func (a *ClickHouseAuditLog) Recent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	q := fmt.Sprintf("SELECT at, cmd, client_id, mu, sigma, outcome FROM %s ORDER BY at DESC LIMIT ?", a.table)
	rows, err := a.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("audit query: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.At, &e.Cmd, &e.ClientID, &e.Mu, &e.Sigma, &e.Outcome); err != nil {
			return nil, fmt.Errorf("audit scan: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (a *ClickHouseAuditLog) Close() error {
	return nil // connection pool is managed by pkg/clickhouse
}

// NoopAuditLog is used when ClickHouse is disabled.
type NoopAuditLog struct{}

func (NoopAuditLog) Record(context.Context, models.AuditEntry) error { return nil }

func (NoopAuditLog) Recent(context.Context, int) ([]models.AuditEntry, error) {
	return nil, nil
}

func (NoopAuditLog) Close() error { return nil }
