package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hzhu628/kontext/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	// Enable foreign keys so session deletion cascades to messages
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			user_id TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			vector_id TEXT,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSession creates a new session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, user_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		session.SessionID, nullString(session.UserID), session.CreatedAt, session.UpdatedAt)
	return err
}

// GetSession retrieves a session by ID. Returns (nil, nil) when absent.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session domain.Session
	var userID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, user_id, created_at, updated_at FROM sessions WHERE session_id = ?`,
		sessionID).Scan(&session.SessionID, &userID, &session.CreatedAt, &session.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		session.UserID = userID.String
	}
	return &session, nil
}

// TouchSession updates the session's last-activity timestamp.
func (s *SQLiteStore) TouchSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE session_id = ?`,
		time.Now().UTC(), sessionID)
	return err
}

// DeleteSession removes a session and, via the foreign key cascade, all its
// messages. Returns false if the session did not exist.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// CreateMessage inserts a message row and fills in its generated ID.
func (s *SQLiteStore) CreateMessage(ctx context.Context, message *domain.Message) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (session_id, role, content, created_at, vector_id) VALUES (?, ?, ?, ?, ?)`,
		message.SessionID, message.Role, message.Content, message.CreatedAt, nullString(message.VectorID))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	message.ID = id
	return nil
}

// SetMessageVectorID back-fills the vector point reference on a message row.
func (s *SQLiteStore) SetMessageVectorID(ctx context.Context, messageID int64, vectorID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE messages SET vector_id = ? WHERE id = ?`,
		vectorID, messageID)
	return err
}

// GetMessages retrieves messages for a session in chronological order.
// Ties on created_at are broken by id ascending.
func (s *SQLiteStore) GetMessages(ctx context.Context, sessionID string, limit, offset int) ([]domain.Message, error) {
	query := `SELECT id, session_id, role, content, created_at, vector_id FROM messages
		WHERE session_id = ? ORDER BY created_at ASC, id ASC`
	args := []interface{}{sessionID}

	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	} else if offset > 0 {
		// SQLite requires a LIMIT clause before OFFSET
		query += ` LIMIT -1`
	}
	if offset > 0 {
		query += ` OFFSET ?`
		args = append(args, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var vectorID sql.NullString
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.CreatedAt, &vectorID); err != nil {
			return nil, err
		}
		if vectorID.Valid {
			msg.VectorID = vectorID.String
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// GetSessionStats aggregates message counts and boundary timestamps for a
// session. Returns (nil, nil) when the session does not exist.
func (s *SQLiteStore) GetSessionStats(ctx context.Context, sessionID string) (*domain.SessionStats, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	stats := &domain.SessionStats{
		SessionID: session.SessionID,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, COUNT(*) FROM messages WHERE session_id = ? GROUP BY role`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var role string
		var count int
		if err := rows.Scan(&role, &count); err != nil {
			return nil, err
		}
		switch role {
		case domain.RoleUser:
			stats.UserMessages = count
		case domain.RoleAssistant:
			stats.AssistantMessages = count
		}
		stats.TotalMessages += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if stats.TotalMessages > 0 {
		var first, last time.Time
		err = s.db.QueryRowContext(ctx,
			`SELECT created_at FROM messages WHERE session_id = ? ORDER BY created_at ASC, id ASC LIMIT 1`,
			sessionID).Scan(&first)
		if err != nil {
			return nil, err
		}
		err = s.db.QueryRowContext(ctx,
			`SELECT created_at FROM messages WHERE session_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
			sessionID).Scan(&last)
		if err != nil {
			return nil, err
		}
		stats.FirstMessageAt = &first
		stats.LastMessageAt = &last
	}

	return stats, nil
}

// GetRecentSessions lists sessions by last activity descending, optionally
// filtered by user.
func (s *SQLiteStore) GetRecentSessions(ctx context.Context, userID string, limit int) ([]domain.SessionSummary, error) {
	query := `SELECT s.session_id, s.user_id, s.created_at, s.updated_at, COUNT(m.id)
		FROM sessions s LEFT JOIN messages m ON m.session_id = s.session_id`
	args := []interface{}{}

	if userID != "" {
		query += ` WHERE s.user_id = ?`
		args = append(args, userID)
	}

	query += ` GROUP BY s.session_id ORDER BY s.updated_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.SessionSummary
	for rows.Next() {
		var summary domain.SessionSummary
		var uid sql.NullString
		if err := rows.Scan(&summary.SessionID, &uid, &summary.CreatedAt, &summary.UpdatedAt, &summary.MessageCount); err != nil {
			return nil, err
		}
		if uid.Valid {
			summary.UserID = uid.String
		}
		sessions = append(sessions, summary)
	}
	return sessions, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
