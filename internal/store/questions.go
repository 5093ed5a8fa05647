package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// AddQuestion inserts a new question, creating its topic row on first use.
// creatorID is nil for questions loaded from a seed file.
func (s *Store) AddQuestion(ctx context.Context, q Question) (int64, error) {
	topicID, err := s.getOrCreateTopic(ctx, q.TopicName)
	if err != nil {
		return 0, err
	}
	if q.DifficultyID != DifficultyEasy && q.DifficultyID != DifficultyMedium && q.DifficultyID != DifficultyHard {
		return 0, opErr("AddQuestion", ErrInvalidDifficulty, fmt.Sprintf("%d", q.DifficultyID))
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO questions (prompt, option_a, option_b, option_c, option_d, correct, topic_id, difficulty_id, creator_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.Prompt, q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.Correct, topicID, q.DifficultyID, q.CreatorID)
	if err != nil {
		return 0, opErr("AddQuestion", err, "")
	}
	return res.LastInsertId()
}

// DeleteQuestion removes a question by id. Only an admin-role caller may
// invoke this at the session layer; the store itself enforces nothing
// about roles.
func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id)
	if err != nil {
		return opErr("DeleteQuestion", err, "")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return opErr("DeleteQuestion", err, "")
	}
	if n == 0 {
		return opErr("DeleteQuestion", ErrNotFound, fmt.Sprintf("question %d", id))
	}
	return nil
}

// GetRandomFilteredQuestions draws up to n questions restricted to the
// given topic ids (empty means no topic restriction) and, if difficultyID
// is non-nil, to that difficulty, in random order. Per the question
// bank's stratified-selection rule this is called once per (topic,
// difficulty) cell rather than once for the whole request.
func (s *Store) GetRandomFilteredQuestions(ctx context.Context, topicIDs []int64, difficultyID *int64, n int) ([]Question, error) {
	var args []any
	query := `
		SELECT q.id, q.prompt, q.option_a, q.option_b, q.option_c, q.option_d, q.correct,
		       q.topic_id, t.name, q.difficulty_id, q.creator_id
		FROM questions q
		JOIN topics t ON t.id = q.topic_id
		WHERE 1=1`

	if len(topicIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(topicIDs)), ",")
		query += ` AND q.topic_id IN (` + placeholders + `)`
		for _, id := range topicIDs {
			args = append(args, id)
		}
	}
	if difficultyID != nil {
		query += ` AND q.difficulty_id = ?`
		args = append(args, *difficultyID)
	}
	query += ` ORDER BY RANDOM() LIMIT ?`
	args = append(args, n)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, opErr("GetRandomFilteredQuestions", err, "")
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		var q Question
		var creator sql.NullInt64
		if err := rows.Scan(&q.ID, &q.Prompt, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
			&q.Correct, &q.TopicID, &q.TopicName, &q.DifficultyID, &creator); err != nil {
			return nil, opErr("GetRandomFilteredQuestions", err, "")
		}
		if creator.Valid {
			id := creator.Int64
			q.CreatorID = &id
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// SearchQuestionsByTopic returns every question filed under a topic name
// (case-insensitive), for the admin SEARCH_QUESTIONS command.
func (s *Store) SearchQuestionsByTopic(ctx context.Context, topicName string) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, q.prompt, q.option_a, q.option_b, q.option_c, q.option_d, q.correct,
		       q.topic_id, t.name, q.difficulty_id, q.creator_id
		FROM questions q
		JOIN topics t ON t.id = q.topic_id
		WHERE t.name = ?`, strings.ToLower(strings.TrimSpace(topicName)))
	if err != nil {
		return nil, opErr("SearchQuestionsByTopic", err, "")
	}
	defer rows.Close()
	return scanQuestions(rows)
}

// SearchQuestionsByDifficulty returns every question at a given difficulty,
// for the admin SEARCH_QUESTIONS command.
func (s *Store) SearchQuestionsByDifficulty(ctx context.Context, difficultyID int64) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, q.prompt, q.option_a, q.option_b, q.option_c, q.option_d, q.correct,
		       q.topic_id, t.name, q.difficulty_id, q.creator_id
		FROM questions q
		JOIN topics t ON t.id = q.topic_id
		WHERE q.difficulty_id = ?`, difficultyID)
	if err != nil {
		return nil, opErr("SearchQuestionsByDifficulty", err, "")
	}
	defer rows.Close()
	return scanQuestions(rows)
}

func scanQuestions(rows *sql.Rows) ([]Question, error) {
	var out []Question
	for rows.Next() {
		var q Question
		var creator sql.NullInt64
		if err := rows.Scan(&q.ID, &q.Prompt, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
			&q.Correct, &q.TopicID, &q.TopicName, &q.DifficultyID, &creator); err != nil {
			return nil, opErr("scanQuestions", err, "")
		}
		if creator.Valid {
			id := creator.Int64
			q.CreatorID = &id
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// GetQuestionByID fetches a single question, used by the admin
// SEARCH_QUESTIONS id lookup.
func (s *Store) GetQuestionByID(ctx context.Context, id int64) (Question, error) {
	var q Question
	var creator sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT q.id, q.prompt, q.option_a, q.option_b, q.option_c, q.option_d, q.correct,
		       q.topic_id, t.name, q.difficulty_id, q.creator_id
		FROM questions q
		JOIN topics t ON t.id = q.topic_id
		WHERE q.id = ?`, id).
		Scan(&q.ID, &q.Prompt, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
			&q.Correct, &q.TopicID, &q.TopicName, &q.DifficultyID, &creator)
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, opErr("GetQuestionByID", ErrNotFound, fmt.Sprintf("question %d", id))
	}
	if err != nil {
		return Question{}, opErr("GetQuestionByID", err, "")
	}
	if creator.Valid {
		id := creator.Int64
		q.CreatorID = &id
	}
	return q, nil
}
