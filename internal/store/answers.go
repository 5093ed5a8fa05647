package store

import (
	"context"
)

// SaveAnswer records one participant's choice for one question, along with
// whether it was correct at time of write. A second write for the same
// question overwrites the first — at SUBMIT time every slot is written
// once, idempotently.
func (s *Store) SaveAnswer(ctx context.Context, participantID, questionID int64, choice string, isCorrect bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO answers (participant_id, question_id, choice, is_correct)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(participant_id, question_id) DO UPDATE SET
			choice = excluded.choice,
			is_correct = excluded.is_correct,
			answered_at = CURRENT_TIMESTAMP`,
		participantID, questionID, choice, isCorrect)
	if err != nil {
		return opErr("SaveAnswer", err, "")
	}
	return nil
}

// LoadParticipantAnswers returns a participant's answer vector, one letter
// per question in room order, with '.' standing in for any question the
// participant never answered. totalQuestions is the room's question count
// at the time of the call.
func (s *Store) LoadParticipantAnswers(ctx context.Context, participantID int64, roomID int64, totalQuestions int) ([]byte, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rq.position, a.choice
		FROM room_questions rq
		LEFT JOIN answers a ON a.question_id = rq.question_id AND a.participant_id = ?
		WHERE rq.room_id = ?
		ORDER BY rq.position`, participantID, roomID)
	if err != nil {
		return nil, opErr("LoadParticipantAnswers", err, "")
	}
	defer rows.Close()

	vec := make([]byte, totalQuestions)
	for i := range vec {
		vec[i] = '.'
	}
	for rows.Next() {
		var pos int
		var choice *string
		if err := rows.Scan(&pos, &choice); err != nil {
			return nil, opErr("LoadParticipantAnswers", err, "")
		}
		if choice != nil && pos >= 0 && pos < totalQuestions {
			vec[pos] = (*choice)[0]
		}
	}
	return vec, rows.Err()
}
