package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"

	"roomsheet/internal/logging"
	"roomsheet/internal/models"
)

// DB records every sheet mutation and the stage it reached. A write that
// dies between inserting the new row and deleting the old one leaves a
// trail here pointing at the exact row to clean up by hand.
type DB struct {
	*sql.DB
	logger zerolog.Logger
}

func New(path string, logger *zerolog.Logger) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect to journal database: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("create journal tables: %w", err)
	}

	j := &DB{DB: db, logger: logging.Component(logger, "journal")}
	j.logger.Info().Str("path", path).Msg("journal database ready")
	return j, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS operations (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            kind TEXT NOT NULL,
            target_id TEXT NOT NULL,
            stage TEXT NOT NULL,
            detail TEXT NOT NULL DEFAULT '',
            sheet_row INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,

		`CREATE INDEX IF NOT EXISTS idx_operations_created_at ON operations(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_operations_target_id ON operations(target_id)`,
		`CREATE INDEX IF NOT EXISTS idx_operations_stage ON operations(stage)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("execute %q: %w", query, err)
		}
	}
	return nil
}

// RecordOperation inserts a new entry and fills in its ID and timestamps.
func (db *DB) RecordOperation(ctx context.Context, op *models.Operation) (int64, error) {
	query := `INSERT INTO operations (kind, target_id, stage, detail, sheet_row, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		op.Kind,
		op.TargetID,
		op.Stage,
		op.Detail,
		op.Row,
		now,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("record operation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get operation id: %w", err)
	}
	op.ID = id
	op.CreatedAt = now
	op.UpdatedAt = now

	return id, nil
}

// UpdateStage advances an operation to the given stage. The detail
// replaces the previous one; callers put the most recent fact there.
func (db *DB) UpdateStage(ctx context.Context, opID int64, stage, detail string) error {
	query := `UPDATE operations SET stage = ?, detail = ?, updated_at = ? WHERE id = ?`
	if _, err := db.ExecContext(ctx, query, stage, detail, time.Now(), opID); err != nil {
		return fmt.Errorf("update operation %d stage: %w", opID, err)
	}
	return nil
}

// RecentOperations returns the newest entries first.
func (db *DB) RecentOperations(ctx context.Context, limit int) ([]*models.Operation, error) {
	query := `SELECT id, kind, target_id, stage, detail, sheet_row, created_at, updated_at
              FROM operations ORDER BY id DESC LIMIT ?`
	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent operations: %w", err)
	}
	defer rows.Close()

	var ops []*models.Operation
	for rows.Next() {
		var op models.Operation
		err := rows.Scan(
			&op.ID,
			&op.Kind,
			&op.TargetID,
			&op.Stage,
			&op.Detail,
			&op.Row,
			&op.CreatedAt,
			&op.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		ops = append(ops, &op)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}
	return ops, nil
}

// PruneBefore deletes entries created before the cutoff and reports how
// many were removed.
func (db *DB) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM operations WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune operations: %w", err)
	}

	pruned, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count pruned operations: %w", err)
	}
	if pruned > 0 {
		db.logger.Info().Int64("pruned", pruned).Time("cutoff", cutoff).Msg("pruned old journal entries")
	}
	return pruned, nil
}
