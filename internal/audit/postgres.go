package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-engine/internal/domain"
)

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_log (
    id          TEXT PRIMARY KEY,
    recorded_at BIGINT NOT NULL,
    audit_type  TEXT NOT NULL,
    ticket_id   TEXT,
    user_id     TEXT NOT NULL,
    username    TEXT NOT NULL,
    details     TEXT NOT NULL,
    metadata    JSONB
);
CREATE INDEX IF NOT EXISTS audit_log_ticket_idx ON audit_log (ticket_id, recorded_at);
CREATE INDEX IF NOT EXISTS audit_log_type_idx ON audit_log (audit_type, recorded_at);`

// PostgresTrail persists audit entries through a pgx pool.
type PostgresTrail struct {
	pool *pgxpool.Pool
}

// NewPostgresTrail ensures the audit table exists and returns the trail.
func NewPostgresTrail(ctx context.Context, pool *pgxpool.Pool) (*PostgresTrail, error) {
	if pool == nil {
		return nil, fmt.Errorf("nil pgx pool")
	}
	if _, err := pool.Exec(ctx, auditSchema); err != nil {
		return nil, fmt.Errorf("ensure audit schema: %w", err)
	}
	return &PostgresTrail{pool: pool}, nil
}

// Record inserts one entry.
func (t *PostgresTrail) Record(ctx context.Context, entry domain.AuditEntry) error {
	var metadata []byte
	if entry.Metadata != nil {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("encode audit metadata: %w", err)
		}
		metadata = raw
	}
	const query = `
        INSERT INTO audit_log (id, recorded_at, audit_type, ticket_id, user_id, username, details, metadata)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := t.pool.Exec(ctx, query,
		entry.ID,
		entry.Timestamp,
		entry.Type,
		nullable(entry.TicketID),
		entry.UserID,
		entry.Username,
		entry.Details,
		metadata,
	)
	return err
}

// Recent returns the newest entries, newest first.
func (t *PostgresTrail) Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
        SELECT id, recorded_at, audit_type, ticket_id, user_id, username, details, metadata
        FROM audit_log ORDER BY recorded_at DESC LIMIT $1`
	rows, err := t.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ByTicket returns entries for one ticket, oldest first.
func (t *PostgresTrail) ByTicket(ctx context.Context, ticketID string) ([]domain.AuditEntry, error) {
	const query = `
        SELECT id, recorded_at, audit_type, ticket_id, user_id, username, details, metadata
        FROM audit_log WHERE ticket_id=$1 ORDER BY recorded_at ASC`
	rows, err := t.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ByType returns entries of one audit type, newest first.
func (t *PostgresTrail) ByType(ctx context.Context, auditType domain.AuditType, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
        SELECT id, recorded_at, audit_type, ticket_id, user_id, username, details, metadata
        FROM audit_log WHERE audit_type=$1 ORDER BY recorded_at DESC LIMIT $2`
	rows, err := t.pool.Query(ctx, query, auditType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEntries(rows pgxRows) ([]domain.AuditEntry, error) {
	var result []domain.AuditEntry
	for rows.Next() {
		var (
			entry    domain.AuditEntry
			ticketID *string
			metadata []byte
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.Timestamp,
			&entry.Type,
			&ticketID,
			&entry.UserID,
			&entry.Username,
			&entry.Details,
			&metadata,
		); err != nil {
			return nil, err
		}
		if ticketID != nil {
			entry.TicketID = *ticketID
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("decode audit metadata: %w", err)
			}
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
