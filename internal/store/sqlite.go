package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/besingamkb/ex-convex/internal/schema"
)

const sqliteDDL = `
CREATE TABLE IF NOT EXISTS snapshots (
	id TEXT PRIMARY KEY,
	deployment_id TEXT NOT NULL,
	created_at TEXT NOT NULL,
	tables_json TEXT NOT NULL,
	relations_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS snapshots_by_deployment
	ON snapshots (deployment_id, created_at);
`

// SQLiteStore persists snapshots in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed initializes) a SQLite snapshot store.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize snapshot schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, snap *schema.SchemaSnapshot) error {
	tablesJSON, relationsJSON, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, deployment_id, created_at, tables_json, relations_json)
		 VALUES (?, ?, ?, ?, ?)`,
		snap.ID, snap.DeploymentID, formatTimestamp(snap.CreatedAt), tablesJSON, relationsJSON)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*schema.SchemaSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, deployment_id, created_at, tables_json, relations_json
		 FROM snapshots WHERE id = ?`, id)

	var snapID, deploymentID, createdAt, tablesJSON, relationsJSON string
	if err := row.Scan(&snapID, &deploymentID, &createdAt, &tablesJSON, &relationsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return decodeSnapshot(snapID, deploymentID, createdAt, tablesJSON, relationsJSON)
}

func (s *SQLiteStore) List(ctx context.Context, deploymentID string, limit int) ([]*schema.SchemaSnapshot, error) {
	query := `SELECT id, deployment_id, created_at, tables_json, relations_json
		 FROM snapshots WHERE deployment_id = ? ORDER BY created_at DESC`
	args := []any{deploymentID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*schema.SchemaSnapshot
	for rows.Next() {
		var id, dep, createdAt, tablesJSON, relationsJSON string
		if err := rows.Scan(&id, &dep, &createdAt, &tablesJSON, &relationsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		snap, err := decodeSnapshot(id, dep, createdAt, tablesJSON, relationsJSON)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

func (s *SQLiteStore) Close(context.Context) error {
	return s.db.Close()
}
