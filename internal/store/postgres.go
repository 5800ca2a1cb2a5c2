package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/besingamkb/ex-convex/internal/schema"
)

const postgresDDL = `
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

// PostgresStore persists snapshots in PostgreSQL.
type PostgresStore struct {
	conn *pgx.Conn
}

// OpenPostgres connects to PostgreSQL and ensures the snapshot schema
// exists.
func OpenPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := conn.Exec(ctx, postgresDDL); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize snapshot schema: %w", err)
	}
	return &PostgresStore{conn: conn}, nil
}

func (s *PostgresStore) Save(ctx context.Context, snap *schema.SchemaSnapshot) error {
	tablesJSON, relationsJSON, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	_, err = s.conn.Exec(ctx,
		`INSERT INTO snapshots (id, deployment_id, created_at, tables_json, relations_json)
		 VALUES ($1, $2, $3, $4, $5)`,
		snap.ID, snap.DeploymentID, formatTimestamp(snap.CreatedAt), tablesJSON, relationsJSON)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*schema.SchemaSnapshot, error) {
	row := s.conn.QueryRow(ctx,
		`SELECT id, deployment_id, created_at, tables_json, relations_json
		 FROM snapshots WHERE id = $1`, id)

	var snapID, deploymentID, createdAt, tablesJSON, relationsJSON string
	if err := row.Scan(&snapID, &deploymentID, &createdAt, &tablesJSON, &relationsJSON); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return decodeSnapshot(snapID, deploymentID, createdAt, tablesJSON, relationsJSON)
}

func (s *PostgresStore) List(ctx context.Context, deploymentID string, limit int) ([]*schema.SchemaSnapshot, error) {
	query := `SELECT id, deployment_id, created_at, tables_json, relations_json
		 FROM snapshots WHERE deployment_id = $1 ORDER BY created_at DESC`
	args := []any{deploymentID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.conn.Query(ctx, query, args...)
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

func (s *PostgresStore) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}
