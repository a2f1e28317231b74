package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiliankoe/pokerplanning/internal/game"
	_ "modernc.org/sqlite"
)

// SQLite stores the session document as JSON and its participants and chat
// messages as rows, one table per sub-collection.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and creates if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't support multiple writers well
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	s := &SQLite{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteSchema)
	return err
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	code       TEXT PRIMARY KEY,
	doc        TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS participants (
	id           TEXT PRIMARY KEY,
	session_code TEXT NOT NULL REFERENCES sessions(code) ON DELETE CASCADE,
	position     INTEGER NOT NULL,
	name         TEXT NOT NULL,
	avatar_seed  TEXT NOT NULL,
	vote         TEXT,
	has_voted    INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_participants_session ON participants(session_code, position);

CREATE TABLE IF NOT EXISTS chat_messages (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	id           TEXT NOT NULL UNIQUE,
	session_code TEXT NOT NULL REFERENCES sessions(code) ON DELETE CASCADE,
	sender       TEXT NOT NULL,
	text         TEXT NOT NULL,
	ts           INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_session_ts ON chat_messages(session_code, ts);
`

func (s *SQLite) Exists(ctx context.Context, code string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM sessions WHERE code = ?`, code).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query session: %w", err)
	}
	return n > 0, nil
}

func (s *SQLite) Load(ctx context.Context, code string) (*game.Session, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM sessions WHERE code = ?`, code).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	sess, err := decodeSession([]byte(doc))
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, avatar_seed, vote, has_voted
		FROM participants WHERE session_code = ? ORDER BY position
	`, code)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	sess.Participants = []game.Participant{}
	for rows.Next() {
		var p game.Participant
		var vote sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.AvatarSeed, &vote, &p.HasVoted); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		if vote.Valid {
			v := vote.String
			p.Vote = &v
		}
		sess.Participants = append(sess.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return sess, nil
}

func (s *SQLite) Save(ctx context.Context, sess *game.Session) error {
	doc := *sess
	doc.Participants = nil
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (code, doc, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at
	`, sess.ID, string(b), time.Now().Unix()); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM participants WHERE session_code = ?`, sess.ID); err != nil {
		return fmt.Errorf("clear participants: %w", err)
	}
	for i, p := range sess.Participants {
		id := p.ID
		if id == "" {
			id = uuid.NewString()
		}
		var vote sql.NullString
		if p.Vote != nil {
			vote = sql.NullString{String: *p.Vote, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO participants (id, session_code, position, name, avatar_seed, vote, has_voted)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, sess.ID, i, p.Name, p.AvatarSeed, vote, p.HasVoted); err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

func (s *SQLite) AppendMessage(ctx context.Context, code string, m game.Message) error {
	id := m.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, session_code, sender, text, ts) VALUES (?, ?, ?, ?, ?)
	`, id, code, m.Sender, m.Text, m.TS)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

func (s *SQLite) Messages(ctx context.Context, code string, limit int) ([]game.Message, error) {
	if limit <= 0 {
		limit = game.DefaultChatLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender, text, ts FROM chat_messages
		WHERE session_code = ? ORDER BY ts, seq LIMIT ?
	`, code, limit)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	defer rows.Close()

	out := []game.Message{}
	for rows.Next() {
		var m game.Message
		if err := rows.Scan(&m.ID, &m.Sender, &m.Text, &m.TS); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
