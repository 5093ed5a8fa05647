package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SaveParticipant upserts a user's participant row for a room: first join
// inserts, a later rejoin returns the existing row's id unchanged so the
// registry can decide whether this is a fresh attempt or a reconnect.
func (s *Store) SaveParticipant(ctx context.Context, roomID, userID int64) (int64, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO participants (room_id, user_id) VALUES (?, ?)
		ON CONFLICT(room_id, user_id) DO NOTHING`, roomID, userID)
	if err != nil {
		return 0, opErr("SaveParticipant", err, "")
	}
	return s.GetParticipantID(ctx, roomID, userID)
}

// LoadRoomParticipants returns every participant of a room, each with its
// persisted score (-1 if no result row exists) and its reconstructed
// answer vector, used to rehydrate in-memory room state after a restart.
func (s *Store) LoadRoomParticipants(ctx context.Context, roomID int64, totalQuestions int) ([]ParticipantRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.user_id, u.name, p.joined_at, COALESCE(r.score, -1)
		FROM participants p
		JOIN users u ON u.id = p.user_id
		LEFT JOIN results r ON r.participant_id = p.id AND r.room_id = p.room_id
		WHERE p.room_id = ?
		ORDER BY p.joined_at`, roomID)
	if err != nil {
		return nil, opErr("LoadRoomParticipants", err, "")
	}
	defer rows.Close()

	var out []ParticipantRow
	for rows.Next() {
		var p ParticipantRow
		if err := rows.Scan(&p.ParticipantID, &p.UserID, &p.Username, &p.JoinedAt, &p.Score); err != nil {
			return nil, opErr("LoadRoomParticipants", err, "")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, opErr("LoadRoomParticipants", err, "")
	}

	for i := range out {
		vec, err := s.LoadParticipantAnswers(ctx, out[i].ParticipantID, roomID, totalQuestions)
		if err != nil {
			return nil, err
		}
		out[i].Answers = vec
	}
	return out, nil
}

// GetParticipantID resolves a (room, user) pair to its participant row id.
func (s *Store) GetParticipantID(ctx context.Context, roomID, userID int64) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM participants WHERE room_id = ? AND user_id = ?`, roomID, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, opErr("GetParticipantID", ErrNotFound, fmt.Sprintf("room %d user %d", roomID, userID))
	}
	if err != nil {
		return 0, opErr("GetParticipantID", err, "")
	}
	return id, nil
}
