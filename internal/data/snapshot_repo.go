package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/target/identity-session/internal/data/pgxutil"
	domainauth "github.com/target/identity-session/internal/domain/auth"
	apperrors "github.com/target/identity-session/internal/errors"
	"github.com/target/identity-session/internal/ports"
)

// SnapshotRepo persists the session snapshot in the session_snapshots table,
// one row per namespace.
type SnapshotRepo struct {
	DB        *sql.DB
	Namespace string
}

// NewSnapshotRepo creates a new SnapshotRepo.
func NewSnapshotRepo(db *sql.DB, namespace string) (*SnapshotRepo, error) {
	if db == nil {
		return nil, errors.New("database handle is required")
	}
	if namespace == "" {
		return nil, errors.New("snapshot namespace is required")
	}
	return &SnapshotRepo{DB: db, Namespace: namespace}, nil
}

const (
	selectSnapshotSQL = `SELECT payload FROM session_snapshots WHERE namespace = $1`
	upsertSnapshotSQL = `
		INSERT INTO session_snapshots (namespace, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (namespace) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = now()`
	deleteSnapshotSQL = `DELETE FROM session_snapshots WHERE namespace = $1`
)

// Load returns ports.ErrNoSnapshot when no row exists or the table has not been created yet.
func (r *SnapshotRepo) Load(ctx context.Context) (domainauth.Snapshot, error) {
	var payload []byte
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, selectSnapshotSQL, r.Namespace).Scan(&payload)
	})
	if err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsNotFound(mapped) {
			return domainauth.Snapshot{}, ports.ErrNoSnapshot
		}
		return domainauth.Snapshot{}, fmt.Errorf("load snapshot: %w", mapped)
	}

	var snap domainauth.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return domainauth.Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}

func (r *SnapshotRepo) Save(ctx context.Context, snap domainauth.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if _, err := r.DB.ExecContext(ctx, upsertSnapshotSQL, r.Namespace, payload); err != nil {
		return fmt.Errorf("save snapshot: %w", apperrors.MapDBError(err))
	}
	return nil
}

// Clear removes the row. A missing table counts as already cleared.
func (r *SnapshotRepo) Clear(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, deleteSnapshotSQL, r.Namespace); err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsNotFound(mapped) {
			return nil
		}
		return fmt.Errorf("clear snapshot: %w", mapped)
	}
	return nil
}

var _ ports.SnapshotStore = (*SnapshotRepo)(nil)
