package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
)

// schemaStatements is the idempotent DDL applied at every boot. Order
// matters: foreign keys reference tables created earlier in the list.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		name          TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL CHECK (role IN ('admin','student'))
	)`,
	`CREATE TABLE IF NOT EXISTS difficulties (
		id   INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS topics (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS questions (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		prompt        TEXT NOT NULL,
		option_a      TEXT NOT NULL,
		option_b      TEXT NOT NULL,
		option_c      TEXT NOT NULL,
		option_d      TEXT NOT NULL,
		correct       TEXT NOT NULL CHECK (correct IN ('A','B','C','D')),
		topic_id      INTEGER NOT NULL REFERENCES topics(id),
		difficulty_id INTEGER NOT NULL REFERENCES difficulties(id),
		creator_id    INTEGER REFERENCES users(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_questions_topic ON questions(topic_id)`,
	`CREATE INDEX IF NOT EXISTS idx_questions_difficulty ON questions(difficulty_id)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		name             TEXT NOT NULL UNIQUE,
		owner_id         INTEGER NOT NULL REFERENCES users(id),
		duration_seconds INTEGER NOT NULL,
		started          INTEGER NOT NULL DEFAULT 0,
		finished         INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS room_questions (
		room_id     INTEGER NOT NULL REFERENCES rooms(id),
		question_id INTEGER NOT NULL REFERENCES questions(id),
		position    INTEGER NOT NULL,
		PRIMARY KEY (room_id, question_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_room_questions_room_position
		ON room_questions(room_id, position)`,
	`CREATE TABLE IF NOT EXISTS participants (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		room_id   INTEGER NOT NULL REFERENCES rooms(id),
		user_id   INTEGER NOT NULL REFERENCES users(id),
		joined_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (room_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_participants_room ON participants(room_id)`,
	`CREATE INDEX IF NOT EXISTS idx_participants_user ON participants(user_id)`,
	`CREATE TABLE IF NOT EXISTS answers (
		participant_id INTEGER NOT NULL REFERENCES participants(id),
		question_id    INTEGER NOT NULL REFERENCES questions(id),
		choice         TEXT NOT NULL CHECK (choice IN ('A','B','C','D')),
		is_correct     INTEGER NOT NULL,
		answered_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (participant_id, question_id)
	)`,
	`CREATE TABLE IF NOT EXISTS results (
		participant_id INTEGER NOT NULL REFERENCES participants(id),
		room_id        INTEGER NOT NULL REFERENCES rooms(id),
		score          INTEGER NOT NULL,
		total          INTEGER NOT NULL,
		correct        INTEGER NOT NULL,
		submitted_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (participant_id, room_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_results_score
		ON results(room_id, score)`,
	`CREATE TABLE IF NOT EXISTS logs (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		at         TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		username   TEXT,
		event      TEXT NOT NULL,
		detail     TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_logs_at ON logs(at)`,
}

// seedDifficulties is the fixed difficulty set every fresh database needs;
// question rows reference these ids, so they must exist before anything
// else is inserted.
var seedDifficulties = []struct {
	ID   int64
	Name string
}{
	{DifficultyEasy, "easy"},
	{DifficultyMedium, "medium"},
	{DifficultyHard, "hard"},
}

// applySchema runs the DDL list and seeds the difficulty table. It is
// always safe to call against an already-initialized database.
func applySchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	for _, d := range seedDifficulties {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO difficulties (id, name) VALUES (?, ?)
			 ON CONFLICT(id) DO NOTHING`, d.ID, d.Name); err != nil {
			return fmt.Errorf("seed difficulty %s: %w", d.Name, err)
		}
	}
	return nil
}

// applySeedFile executes a caller-supplied .sql file against the database
// when the questions table is still empty. It is meant for loading a
// starter bank of topics/questions at first boot; it never runs again
// once any question exists, so re-running the server with the same seed
// file is harmless.
func applySeedFile(ctx context.Context, db *sql.DB, path string) error {
	if path == "" {
		return nil
	}
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&count); err != nil {
		return fmt.Errorf("check seed precondition: %w", err)
	}
	if count > 0 {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(raw)); err != nil {
		return fmt.Errorf("exec seed file: %w", err)
	}
	return nil
}
