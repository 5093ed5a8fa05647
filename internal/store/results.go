package store

import "context"

// SaveResult records a participant's final score for a room. Re-submitting
// (e.g. the timer sweep grading a participant who never sent SUBMIT)
// overwrites the prior result rather than erroring, since an attempt only
// ever finishes once.
func (s *Store) SaveResult(ctx context.Context, participantID, roomID int64, score, total, correct int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO results (participant_id, room_id, score, total, correct)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(participant_id, room_id) DO UPDATE SET
			score = excluded.score,
			total = excluded.total,
			correct = excluded.correct,
			submitted_at = CURRENT_TIMESTAMP`,
		participantID, roomID, score, total, correct)
	if err != nil {
		return opErr("SaveResult", err, "")
	}
	return nil
}

// GetLeaderboard returns a room's top 10 participants by score descending,
// earliest submission first on ties.
func (s *Store) GetLeaderboard(ctx context.Context, roomID int64) ([]LeaderboardRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.name, r.score, r.total, r.submitted_at
		FROM results r
		JOIN participants p ON p.id = r.participant_id
		JOIN users u ON u.id = p.user_id
		WHERE r.room_id = ?
		ORDER BY r.score DESC, r.submitted_at ASC
		LIMIT 10`, roomID)
	if err != nil {
		return nil, opErr("GetLeaderboard", err, "")
	}
	defer rows.Close()

	var out []LeaderboardRow
	for rows.Next() {
		var row LeaderboardRow
		if err := rows.Scan(&row.Username, &row.Score, &row.Total, &row.SubmittedAt); err != nil {
			return nil, opErr("GetLeaderboard", err, "")
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
