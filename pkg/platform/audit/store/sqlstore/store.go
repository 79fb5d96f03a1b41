// Package sqlstore persists the audit trail next to the certificates table.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trainingcenter/internal/platform/database"
	id "trainingcenter/pkg/domain"
	audit "trainingcenter/pkg/platform/audit"
	"trainingcenter/pkg/platform/tx"
)

const columns = `id, action, certificate_id, display_id, version, actor_id, request_id, client_ip, occurred_at`

// Schema returns the DDL for the audit table. Rows outlive the certificates
// they describe, so there is no foreign key.
func Schema(d database.Dialect) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS certificate_audit_events (
			id             TEXT PRIMARY KEY,
			action         TEXT NOT NULL,
			certificate_id TEXT NOT NULL,
			display_id     TEXT NOT NULL DEFAULT '',
			version        INTEGER NOT NULL DEFAULT 0,
			actor_id       TEXT NOT NULL DEFAULT '',
			request_id     TEXT NOT NULL DEFAULT '',
			client_ip      TEXT NOT NULL DEFAULT '',
			occurred_at    ` + d.Timestamp() + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS certificate_audit_events_certificate_idx
			ON certificate_audit_events (certificate_id, occurred_at)`,
		`CREATE INDEX IF NOT EXISTS certificate_audit_events_occurred_idx
			ON certificate_audit_events (occurred_at DESC)`,
	}
}

// Store writes within the transaction carried by ctx when there is one, so
// an audit row commits or rolls back with the change it describes.
type Store struct {
	db      *sql.DB
	dialect database.Dialect
}

func New(db *sql.DB, dialect database.Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

func (s *Store) execer(ctx context.Context) tx.Conn {
	return tx.Or(ctx, s.db)
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	_, err := s.execer(ctx).ExecContext(ctx, s.dialect.Rebind(`INSERT INTO certificate_audit_events (`+columns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`),
		event.ID,
		string(event.Action),
		event.CertificateID.String(),
		event.DisplayID,
		event.Version,
		event.ActorID,
		event.RequestID,
		event.ClientIP,
		event.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByCertificate(ctx context.Context, certID id.CertificateID) ([]audit.Event, error) {
	return s.list(ctx, `SELECT `+columns+` FROM certificate_audit_events
		WHERE certificate_id = $1 ORDER BY occurred_at, id`, certID.String())
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	return s.list(ctx, `SELECT `+columns+` FROM certificate_audit_events
		ORDER BY occurred_at DESC, id LIMIT $1`, limit)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]audit.Event, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	out := make([]audit.Event, 0)
	for rows.Next() {
		var (
			ev         audit.Event
			action     string
			certID     string
			occurredAt time.Time
		)
		if err := rows.Scan(&ev.ID, &action, &certID, &ev.DisplayID, &ev.Version,
			&ev.ActorID, &ev.RequestID, &ev.ClientIP, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		ev.Action = audit.Action(action)
		ev.CertificateID = id.CertificateID(certID)
		ev.Timestamp = occurredAt.UTC()
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return out, nil
}
