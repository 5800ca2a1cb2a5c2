package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/besingamkb/ex-convex/internal/schema"
)

const mysqlDDL = `
CREATE TABLE IF NOT EXISTS snapshots (
	id VARCHAR(36) PRIMARY KEY,
	deployment_id VARCHAR(255) NOT NULL,
	created_at VARCHAR(40) NOT NULL,
	tables_json MEDIUMTEXT NOT NULL,
	relations_json MEDIUMTEXT NOT NULL,
	KEY snapshots_by_deployment (deployment_id, created_at)
)`

// MySQLStore persists snapshots in MySQL.
type MySQLStore struct {
	db *sql.DB
}

// OpenMySQL connects to MySQL (DSN without the mysql:// scheme) and ensures
// the snapshot schema exists.
func OpenMySQL(ctx context.Context, dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, mysqlDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize snapshot schema: %w", err)
	}
	return &MySQLStore{db: db}, nil
}

func (s *MySQLStore) Save(ctx context.Context, snap *schema.SchemaSnapshot) error {
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

func (s *MySQLStore) Get(ctx context.Context, id string) (*schema.SchemaSnapshot, error) {
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

func (s *MySQLStore) List(ctx context.Context, deploymentID string, limit int) ([]*schema.SchemaSnapshot, error) {
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

func (s *MySQLStore) Close(context.Context) error {
	return s.db.Close()
}
