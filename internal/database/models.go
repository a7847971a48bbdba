package database

import "database/sql"

// Message direction values.
const (
	DirectionReceived = "received"
	DirectionSent     = "sent"
)

// StoredMessage is one persisted message record. The raw JSON payload
// is the source of truth for reconstruction; the other columns are
// extracted for indexing.
type StoredMessage struct {
	ID        string         `db:"id"`
	GroupID   string         `db:"group_id"`
	UserID    string         `db:"user_id"`
	Text      sql.NullString `db:"text"`
	CreatedAt int64          `db:"created_at"`
	Direction string         `db:"direction"`
	RawJSON   string         `db:"raw_json"`
}
