package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresRepo stores entries in call_events. Rows are only ever inserted.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const schemaCallEvents = `
CREATE TABLE IF NOT EXISTS call_events (
  seq             BIGSERIAL,
  id              TEXT PRIMARY KEY,
  conversation_id TEXT NOT NULL,
  event_type      TEXT NOT NULL,
  outcome         TEXT NOT NULL,
  fingerprint     TEXT NOT NULL DEFAULT '',
  detail          TEXT NOT NULL DEFAULT '',
  payload         TEXT NOT NULL DEFAULT '',
  created_at      TIMESTAMPTZ NOT NULL
);
ALTER TABLE call_events ADD COLUMN IF NOT EXISTS seq BIGSERIAL;
CREATE INDEX IF NOT EXISTS call_events_conversation_idx ON call_events (conversation_id, created_at);
CREATE INDEX IF NOT EXISTS call_events_conversation_seq_idx ON call_events (conversation_id, seq);
`

func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaCallEvents); err != nil {
		return fmt.Errorf("audit: ensure schema: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Append(ctx context.Context, e Entry) error {
	const q = `
INSERT INTO call_events (
  id, conversation_id, event_type, outcome, fingerprint, detail, payload, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8
)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.ConversationID,
		e.EventType,
		e.Outcome,
		e.Fingerprint,
		e.Detail,
		e.Payload,
		e.CreatedAt,
	)
	return err
}

// Entries are listed in insertion order; seq breaks created_at ties.
const listEntries = `
SELECT id, conversation_id, event_type, outcome, fingerprint, detail, payload, created_at
FROM call_events
WHERE conversation_id = $1
ORDER BY seq
`

func (r *PostgresRepo) List(ctx context.Context, conversationID string) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, listEntries, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID,
			&e.ConversationID,
			&e.EventType,
			&e.Outcome,
			&e.Fingerprint,
			&e.Detail,
			&e.Payload,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
