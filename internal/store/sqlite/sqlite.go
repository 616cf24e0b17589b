package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/puzzlink/puzzlink-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS participants (
	connection_id  TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL DEFAULT '',
	display_name   TEXT NOT NULL DEFAULT '',
	gender_tag     TEXT NOT NULL DEFAULT '',
	preference_tag TEXT NOT NULL DEFAULT '',
	registered_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// New creates a new SQLite store and ensures the schema exists.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function instead
// of the default schema. Useful for tests.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== ParticipantStore implementation ====

// UpsertParticipant inserts or updates a profile keyed by connection id.
// The merge happens inside a single ON CONFLICT statement so concurrent
// upserts for the same connection resolve last-write-wins with no
// read-modify-write window. Empty incoming fields keep the stored value.
func (s *SQLiteStore) UpsertParticipant(ctx context.Context, p store.Participant) error {
	if p.ConnectionID == "" {
		return fmt.Errorf("upsert participant: empty connection id")
	}

	query := `
		INSERT INTO participants (connection_id, user_id, display_name, gender_tag, preference_tag)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(connection_id) DO UPDATE SET
			user_id        = CASE WHEN excluded.user_id        <> '' THEN excluded.user_id        ELSE participants.user_id        END,
			display_name   = CASE WHEN excluded.display_name   <> '' THEN excluded.display_name   ELSE participants.display_name   END,
			gender_tag     = CASE WHEN excluded.gender_tag     <> '' THEN excluded.gender_tag     ELSE participants.gender_tag     END,
			preference_tag = CASE WHEN excluded.preference_tag <> '' THEN excluded.preference_tag ELSE participants.preference_tag END,
			updated_at     = CURRENT_TIMESTAMP
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ConnectionID, p.UserID, p.DisplayName, p.GenderTag, p.PreferenceTag)
	if err != nil {
		return fmt.Errorf("upsert participant: %w", err)
	}
	return nil
}

// GetParticipant retrieves a profile by connection id.
func (s *SQLiteStore) GetParticipant(ctx context.Context, connectionID string) (*store.Participant, error) {
	query := `
		SELECT connection_id, user_id, display_name, gender_tag, preference_tag, registered_at, updated_at
		FROM participants
		WHERE connection_id = ?
	`
	var p store.Participant
	err := s.db.QueryRowContext(ctx, query, connectionID).Scan(
		&p.ConnectionID, &p.UserID, &p.DisplayName, &p.GenderTag, &p.PreferenceTag,
		&p.RegisteredAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrParticipantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	}
	return &p, nil
}

// Ensure SQLiteStore implements store.Store
var _ store.Store = (*SQLiteStore)(nil)
