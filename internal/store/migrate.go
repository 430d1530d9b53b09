package store

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

//go:embed schema.sql
var schema string

// Migrate applies the idempotent schema. Every statement is guarded with
// IF NOT EXISTS, so it is safe on every start.
func Migrate(ctx context.Context, db *sqlx.DB, logger *slog.Logger) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	logger.InfoContext(ctx, "Database schema applied")
	return nil
}
