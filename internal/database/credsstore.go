package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/orbitflow/orbitflow/internal/handler"
	"github.com/orbitflow/orbitflow/internal/workflow"
)

// CredsStore resolves a flow step's creds_ref to its stored credential
// blob, satisfying internal/workflow.CredsResolver. Grounded on
// original_source/app/repositories/telegram_credential_repository.py's
// keyed-lookup-by-id repository shape, generalized from one hardcoded
// credential type (a Telegram bot token) to an opaque JSONB blob per
// creds_ref so any connector handler's credential shape fits the same
// table.
type CredsStore struct {
	pool *Pool
}

// NewCredsStore wraps pool as an internal/workflow.CredsResolver.
func NewCredsStore(pool *Pool) *CredsStore {
	return &CredsStore{pool: pool}
}

var _ workflow.CredsResolver = (*CredsStore)(nil)

// Resolve loads the credential blob stored under credsRef.
func (s *CredsStore) Resolve(credsRef string) (handler.Creds, error) {
	const q = `SELECT data FROM credentials WHERE creds_ref = $1`

	var raw []byte
	err := s.pool.QueryRow(context.Background(), q, credsRef).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("creds_ref %q: %w", credsRef, ErrNotFound)
		}
		return nil, fmt.Errorf("loading credentials for %q: %w", credsRef, err)
	}

	var creds handler.Creds
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, fmt.Errorf("decoding credentials for %q: %w", credsRef, err)
	}
	return creds, nil
}

// Upsert stores or replaces the credential blob under credsRef.
func (s *CredsStore) Upsert(credsRef string, creds handler.Creds) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("marshaling credentials for %q: %w", credsRef, err)
	}

	const q = `
INSERT INTO credentials (creds_ref, data, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (creds_ref) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`

	if _, err := s.pool.Exec(context.Background(), q, credsRef, data); err != nil {
		return fmt.Errorf("saving credentials for %q: %w", credsRef, err)
	}
	return nil
}
