package store

import (
	"context"
	"database/sql"
	"time"

	"casedesk/internal/config"
	"casedesk/internal/errors"
	"casedesk/internal/migration"
	"casedesk/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// CheckpointStore keeps conversation threads in a SQL database
type CheckpointStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// Open connects to the configured database and migrates the checkpoint schema
func Open(ctx context.Context, cfg config.CheckpointConfig, logger *zap.Logger) (*CheckpointStore, error) {
	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s checkpoint database", cfg.Driver)
	}
	if cfg.Driver == "sqlite" {
		// one writer at a time avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.ExternalServiceError("checkpoint database", err)
	}

	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return NewCheckpointStore(db, logger), nil
}

// NewCheckpointStore wraps an already migrated database
func NewCheckpointStore(db *sqlx.DB, logger *zap.Logger) *CheckpointStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckpointStore{db: db, logger: logger.Named("checkpoints")}
}

// Close releases the database
func (s *CheckpointStore) Close() error {
	return s.db.Close()
}

// Append stores messages at the end of the thread, numbering them after the last stored one
func (s *CheckpointStore) Append(ctx context.Context, threadID string, messages ...models.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin checkpoint transaction")
	}
	defer tx.Rollback()

	var last sql.NullInt64
	if err := tx.GetContext(ctx, &last, s.db.Rebind(`
		SELECT MAX(seq) FROM chat_messages WHERE thread_id = ?
	`), threadID); err != nil {
		return errors.Wrap(err, "failed to read thread position")
	}

	insert := s.db.Rebind(`
		INSERT INTO chat_messages (id, thread_id, seq, role, content, tool_name, tool_calls, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	seq := last.Int64
	for _, msg := range messages {
		seq++
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, insert,
			msg.ID.String(), threadID, seq, msg.Role, msg.Content, msg.ToolName, msg.ToolCalls, msg.CreatedAt,
		); err != nil {
			return errors.Wrap(err, "failed to store message")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit checkpoint")
	}

	s.logger.Debug("checkpoint stored", zap.String("thread_id", threadID), zap.Int64("seq", seq))
	return nil
}

// History returns the thread's messages, oldest first
func (s *CheckpointStore) History(ctx context.Context, threadID string) ([]models.ChatMessage, error) {
	messages := []models.ChatMessage{}
	err := s.db.SelectContext(ctx, &messages, s.db.Rebind(`
		SELECT id, thread_id, seq, role, content, tool_name, tool_calls, created_at
		FROM chat_messages
		WHERE thread_id = ?
		ORDER BY seq
	`), threadID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load thread history")
	}
	return messages, nil
}

// Clear removes every message of the thread
func (s *CheckpointStore) Clear(ctx context.Context, threadID string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM chat_messages WHERE thread_id = ?`), threadID)
	if err != nil {
		return errors.Wrap(err, "failed to clear thread")
	}
	return nil
}

// Threads lists the stored thread IDs, most recently active first
func (s *CheckpointStore) Threads(ctx context.Context) ([]string, error) {
	threads := []string{}
	err := s.db.SelectContext(ctx, &threads, `
		SELECT thread_id FROM chat_messages
		GROUP BY thread_id
		ORDER BY MAX(created_at) DESC, thread_id
	`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list threads")
	}
	return threads, nil
}
