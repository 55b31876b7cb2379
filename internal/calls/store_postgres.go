package calls

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"outbound-calls/pkg/utils"
)

// PostgresStore persists calls through database/sql (pgx stdlib driver).
//
// Tables:
//   - calls: one row per conversation, updated only through conditional UPDATEs
//   - call_status_history: append-only, one row per applied status change
//
// Status changes and their history row commit in one transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const schemaCalls = `
CREATE TABLE IF NOT EXISTS calls (
  conversation_id    TEXT PRIMARY KEY,
  to_phone_number    TEXT NOT NULL,
  from_phone_number  TEXT NOT NULL,
  provider_call_id   TEXT NOT NULL DEFAULT '',
  status             TEXT NOT NULL,
  amd_classification TEXT NOT NULL,
  record_requested   BOOLEAN NOT NULL DEFAULT FALSE,
  recording_url      TEXT NOT NULL DEFAULT '',
  created_at         TIMESTAMPTZ NOT NULL,
  updated_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS calls_provider_call_id_idx ON calls (provider_call_id) WHERE provider_call_id <> '';
CREATE TABLE IF NOT EXISTS call_status_history (
  id              BIGSERIAL PRIMARY KEY,
  conversation_id TEXT NOT NULL REFERENCES calls (conversation_id),
  from_status     TEXT NOT NULL,
  to_status       TEXT NOT NULL,
  created_at      TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema creates the tables when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaCalls); err != nil {
		return fmt.Errorf("calls: ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, c Call) error {
	const q = `
INSERT INTO calls (
  conversation_id, to_phone_number, from_phone_number, provider_call_id, status,
  amd_classification, record_requested, recording_url, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)
ON CONFLICT (conversation_id) DO NOTHING
`
	res, err := s.db.ExecContext(ctx, q,
		c.ConversationID,
		c.ToPhoneNumber,
		c.FromPhoneNumber,
		c.ProviderCallID,
		c.Status,
		c.AMDClassification,
		c.RecordRequested,
		c.RecordingURL,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyExists
	}
	return nil
}

const selectCall = `
SELECT conversation_id, to_phone_number, from_phone_number, provider_call_id, status,
       amd_classification, record_requested, recording_url, created_at, updated_at
FROM calls
`

func (s *PostgresStore) Get(ctx context.Context, conversationID string) (Call, error) {
	return scanCall(s.db.QueryRowContext(ctx, selectCall+`WHERE conversation_id = $1`, conversationID))
}

func (s *PostgresStore) FindByProviderCallID(ctx context.Context, providerCallID string) (Call, error) {
	if providerCallID == "" {
		return Call{}, ErrNotFound
	}
	return scanCall(s.db.QueryRowContext(ctx, selectCall+`WHERE provider_call_id = $1 LIMIT 1`, providerCallID))
}

func (s *PostgresStore) CompareAndSetStatus(ctx context.Context, conversationID string, from, to Status, at time.Time) (bool, error) {
	var swapped bool
	err := utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		swapped = false
		const q = `
UPDATE calls SET status = $3, updated_at = $4
WHERE conversation_id = $1 AND status = $2
`
		res, err := tx.ExecContext(ctx, q, conversationID, from, to, at)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return s.ensureExists(ctx, tx, conversationID)
		}

		const h = `
INSERT INTO call_status_history (conversation_id, from_status, to_status, created_at)
VALUES ($1,$2,$3,$4)
`
		if _, err := tx.ExecContext(ctx, h, conversationID, from, to, at); err != nil {
			return err
		}
		swapped = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return swapped, nil
}

func (s *PostgresStore) CompareAndSetClassification(ctx context.Context, conversationID string, from, to Classification, at time.Time) (bool, error) {
	const q = `
UPDATE calls SET amd_classification = $3, updated_at = $4
WHERE conversation_id = $1 AND amd_classification = $2
`
	res, err := s.db.ExecContext(ctx, q, conversationID, from, to, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		if _, err := s.Get(ctx, conversationID); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (s *PostgresStore) SetProviderCallID(ctx context.Context, conversationID, providerCallID string, at time.Time) error {
	return s.set(ctx, `UPDATE calls SET provider_call_id = $2, updated_at = $3 WHERE conversation_id = $1`, conversationID, providerCallID, at)
}

func (s *PostgresStore) SetRecordingURL(ctx context.Context, conversationID, url string, at time.Time) error {
	return s.set(ctx, `UPDATE calls SET recording_url = $2, updated_at = $3 WHERE conversation_id = $1`, conversationID, url, at)
}

func (s *PostgresStore) set(ctx context.Context, q, conversationID, value string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, q, conversationID, value, at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ensureExists(ctx context.Context, tx *sql.Tx, conversationID string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM calls WHERE conversation_id = $1`, conversationID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(row rowScanner) (Call, error) {
	var c Call
	if err := row.Scan(
		&c.ConversationID,
		&c.ToPhoneNumber,
		&c.FromPhoneNumber,
		&c.ProviderCallID,
		&c.Status,
		&c.AMDClassification,
		&c.RecordRequested,
		&c.RecordingURL,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, ErrNotFound
		}
		return Call{}, err
	}
	return c, nil
}
