package migration

import (
	"context"
	"fmt"

	"casedesk/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner creates the checkpoint schema on SQLite or PostgreSQL
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createChatMessagesTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create chat_messages table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createChatMessagesTable(ctx context.Context, db *sqlx.DB) error {
	timestampType := "TIMESTAMP"
	if db.DriverName() == "postgres" {
		timestampType = "TIMESTAMP WITH TIME ZONE"
	}

	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS chat_messages (
			id TEXT PRIMARY KEY,
			thread_id TEXT NOT NULL,
			seq BIGINT NOT NULL,
			role VARCHAR(20) NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			tool_name TEXT NOT NULL DEFAULT '',
			tool_calls TEXT,
			created_at %s NOT NULL,
			UNIQUE (thread_id, seq)
		)
	`, timestampType))
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_chat_messages_thread ON chat_messages(thread_id, seq)",
		"CREATE INDEX IF NOT EXISTS idx_chat_messages_created_at ON chat_messages(created_at)",
	}

	for _, idxSQL := range indexes {
		if _, err := db.ExecContext(ctx, idxSQL); err != nil {
			return err
		}
	}
	return nil
}
