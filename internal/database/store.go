package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for message history operations. All
// methods are individually atomic and safe for concurrent use; each
// call runs its own independent transaction.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveReceived upserts a raw inbound webhook payload keyed by its id.
	// Re-saving an already-seen id updates the record (last write wins)
	// rather than duplicating it.
	SaveReceived(ctx context.Context, payload map[string]any) error

	// SaveSent inserts a record for an outgoing message with a freshly
	// synthesized id. The id is unique with overwhelming probability
	// (millisecond timestamp plus bot id suffix) but not guaranteed
	// globally unique.
	SaveSent(ctx context.Context, text, groupID, botID, imageURL string) error

	// GetRecent returns up to limit raw payloads for a group, newest
	// first by created_at, in a form suitable for re-parsing.
	GetRecent(ctx context.Context, groupID string, limit int) ([]map[string]any, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveReceived upserts a raw inbound webhook payload keyed by its id.
func (s *sqlxStore) SaveReceived(ctx context.Context, payload map[string]any) error {
	if payload == nil {
		return fmt.Errorf("cannot save nil payload")
	}

	id, _ := payload["id"].(string)
	if id == "" {
		return fmt.Errorf("payload must have a non-empty id")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	record := &StoredMessage{
		ID:        id,
		GroupID:   stringField(payload, "group_id"),
		UserID:    stringField(payload, "user_id"),
		Text:      nullableText(payload),
		CreatedAt: int64Field(payload, "created_at"),
		Direction: DirectionReceived,
		RawJSON:   string(raw),
	}

	query := `
        INSERT INTO groupme_messages (id, group_id, user_id, text, created_at, direction, raw_json)
        VALUES (:id, :group_id, :user_id, :text, :created_at, :direction, :raw_json)
        ON CONFLICT (id) DO UPDATE SET
            group_id = excluded.group_id,
            user_id = excluded.user_id,
            text = excluded.text,
            created_at = excluded.created_at,
            direction = excluded.direction,
            raw_json = excluded.raw_json;
    `

	if _, err := s.db.NamedExecContext(ctx, query, record); err != nil {
		s.logger.ErrorContext(ctx, "Error saving received message", "message_id", id, "group_id", record.GroupID, "error", err)
		return fmt.Errorf("failed to save received message %s: %w", id, err)
	}

	s.logger.DebugContext(ctx, "Received message saved", "message_id", id, "group_id", record.GroupID)
	return nil
}

// SaveSent inserts a record for an outgoing message. Unlike
// SaveReceived this is a plain insert: it must never silently
// overwrite an existing record.
func (s *sqlxStore) SaveSent(ctx context.Context, text, groupID, botID, imageURL string) error {
	now := time.Now()

	// Synthetic payload mirroring the webhook shape so the record can
	// be re-parsed like a received one.
	payload := map[string]any{
		"id":          fmt.Sprintf("sent_%d_%s", now.UnixMilli(), botID),
		"group_id":    groupID,
		"user_id":     botID,
		"text":        text,
		"created_at":  now.Unix(),
		"sender_type": "bot",
		"direction":   DirectionSent,
	}
	if imageURL != "" {
		payload["picture_url"] = imageURL
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode sent payload: %w", err)
	}

	record := &StoredMessage{
		ID:        payload["id"].(string),
		GroupID:   groupID,
		UserID:    botID,
		Text:      sql.NullString{String: text, Valid: true},
		CreatedAt: now.Unix(),
		Direction: DirectionSent,
		RawJSON:   string(raw),
	}

	query := `
        INSERT INTO groupme_messages (id, group_id, user_id, text, created_at, direction, raw_json)
        VALUES (:id, :group_id, :user_id, :text, :created_at, :direction, :raw_json);
    `

	if _, err := s.db.NamedExecContext(ctx, query, record); err != nil {
		s.logger.ErrorContext(ctx, "Error saving sent message", "group_id", groupID, "bot_id", botID, "error", err)
		return fmt.Errorf("failed to save sent message for group %s: %w", groupID, err)
	}

	s.logger.DebugContext(ctx, "Sent message saved", "message_id", record.ID, "group_id", groupID)
	return nil
}

// GetRecent returns up to limit raw payloads for a group, newest first.
func (s *sqlxStore) GetRecent(ctx context.Context, groupID string, limit int) ([]map[string]any, error) {
	if groupID == "" {
		return nil, fmt.Errorf("group_id cannot be empty")
	}
	if limit <= 0 {
		limit = 50
		s.logger.DebugContext(ctx, "Invalid limit provided, using default", "group_id", groupID, "default_limit", limit)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var rows []string
	query := `
        SELECT raw_json
        FROM groupme_messages
        WHERE group_id = ?
        ORDER BY created_at DESC
        LIMIT ?;
    `

	err := s.db.SelectContext(ctx, &rows, query, groupID, limit)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching messages", "group_id", groupID, "error", err)
		return nil, err
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting recent messages", "group_id", groupID, "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to get recent messages for group %s: %w", groupID, err)
	}

	payloads := make([]map[string]any, 0, len(rows))
	for _, raw := range rows {
		var payload map[string]any
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			s.logger.WarnContext(ctx, "Skipping stored message with undecodable payload", "group_id", groupID, "error", err)
			continue
		}
		payloads = append(payloads, payload)
	}

	s.logger.DebugContext(ctx, "Fetched recent messages successfully", "group_id", groupID, "count", len(payloads))
	return payloads, nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}

func stringField(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}

func int64Field(payload map[string]any, key string) int64 {
	switch n := payload[key].(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}

func nullableText(payload map[string]any) sql.NullString {
	text, ok := payload["text"].(string)
	if !ok {
		return sql.NullString{}
	}
	return sql.NullString{String: text, Valid: true}
}
