package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateRoom inserts a bare room row. Its question snapshot is filled in
// afterward with repeated calls to AddQuestionToRoom, mirroring how the
// selector assembles a room's bank one cell at a time.
func (s *Store) CreateRoom(ctx context.Context, name string, ownerID int64, durationSeconds int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO rooms (name, owner_id, duration_seconds) VALUES (?, ?, ?)`,
		name, ownerID, durationSeconds)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, opErr("CreateRoom", ErrAlreadyExists, name)
		}
		return 0, opErr("CreateRoom", err, "")
	}
	return res.LastInsertId()
}

// AddQuestionToRoom appends one question to a room's fixed ordering at the
// given position.
func (s *Store) AddQuestionToRoom(ctx context.Context, roomID, questionID int64, position int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO room_questions (room_id, question_id, position) VALUES (?, ?, ?)`,
		roomID, questionID, position)
	if err != nil {
		return opErr("AddQuestionToRoom", err, "")
	}
	return nil
}

// GetRoomIDByName resolves a room name to its id.
func (s *Store) GetRoomIDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM rooms WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, opErr("GetRoomIDByName", ErrNotFound, name)
	}
	if err != nil {
		return 0, opErr("GetRoomIDByName", err, "")
	}
	return id, nil
}

// GetRoomQuestions returns a room's questions in their fixed order.
func (s *Store) GetRoomQuestions(ctx context.Context, roomID int64) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, q.prompt, q.option_a, q.option_b, q.option_c, q.option_d, q.correct,
		       q.topic_id, t.name, q.difficulty_id, q.creator_id
		FROM room_questions rq
		JOIN questions q ON q.id = rq.question_id
		JOIN topics t ON t.id = q.topic_id
		WHERE rq.room_id = ?
		ORDER BY rq.position`, roomID)
	if err != nil {
		return nil, opErr("GetRoomQuestions", err, "")
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		var q Question
		var creator sql.NullInt64
		if err := rows.Scan(&q.ID, &q.Prompt, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
			&q.Correct, &q.TopicID, &q.TopicName, &q.DifficultyID, &creator); err != nil {
			return nil, opErr("GetRoomQuestions", err, "")
		}
		if creator.Valid {
			id := creator.Int64
			q.CreatorID = &id
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// SetRoomStarted flips a room's started flag. No session command calls
// it; participants' countdowns start at JOIN regardless of this flag.
func (s *Store) SetRoomStarted(ctx context.Context, roomID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE rooms SET started = 1 WHERE id = ?`, roomID)
	if err != nil {
		return opErr("SetRoomStarted", err, "")
	}
	return nil
}

// SetRoomFinished flips a room's finished flag, which excludes the room
// from LoadAllRooms. Neither the timer sweep nor any session command
// calls it.
func (s *Store) SetRoomFinished(ctx context.Context, roomID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE rooms SET finished = 1 WHERE id = ?`, roomID)
	if err != nil {
		return opErr("SetRoomFinished", err, "")
	}
	return nil
}

// DeleteRoom removes a room, its question ordering, and every
// participant/answer/result row that traces back to it. SQLite's
// declared foreign keys don't cascade DELETE on their own, so the
// cascade is walked explicitly inside one transaction.
func (s *Store) DeleteRoom(ctx context.Context, roomID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return opErr("DeleteRoom", err, "")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM answers WHERE participant_id IN (
			SELECT id FROM participants WHERE room_id = ?)`, roomID); err != nil {
		return opErr("DeleteRoom", err, "")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM results WHERE room_id = ?`, roomID); err != nil {
		return opErr("DeleteRoom", err, "")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM participants WHERE room_id = ?`, roomID); err != nil {
		return opErr("DeleteRoom", err, "")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM room_questions WHERE room_id = ?`, roomID); err != nil {
		return opErr("DeleteRoom", err, "")
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, roomID)
	if err != nil {
		return opErr("DeleteRoom", err, "")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return opErr("DeleteRoom", err, "")
	}
	if n == 0 {
		return opErr("DeleteRoom", ErrNotFound, fmt.Sprintf("room %d", roomID))
	}
	if err := tx.Commit(); err != nil {
		return opErr("DeleteRoom", err, "")
	}
	return nil
}

// LoadAllRooms returns every non-finished room, used to rehydrate the
// in-memory registry on startup after a restart.
func (s *Store) LoadAllRooms(ctx context.Context) ([]Room, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, owner_id, duration_seconds, started, finished
		FROM rooms WHERE finished = 0`)
	if err != nil {
		return nil, opErr("LoadAllRooms", err, "")
	}
	defer rows.Close()

	var out []Room
	for rows.Next() {
		var r Room
		if err := rows.Scan(&r.ID, &r.Name, &r.OwnerID, &r.DurationSeconds, &r.Started, &r.Finished); err != nil {
			return nil, opErr("LoadAllRooms", err, "")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
