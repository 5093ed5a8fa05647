package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// getOrCreateTopic looks up a topic by its lowercased name, creating it
// if this is the first question filed under it.
func (s *Store) getOrCreateTopic(ctx context.Context, name string) (int64, error) {
	name = strings.ToLower(strings.TrimSpace(name))

	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM topics WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, opErr("getOrCreateTopic", err, name)
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO topics (name) VALUES (?)`, name)
	if err != nil {
		return 0, opErr("getOrCreateTopic", err, name)
	}
	return res.LastInsertId()
}

// GetAllTopicsWithCounts returns every topic along with how many questions
// reference it; topics with zero questions are included via LEFT JOIN.
func (s *Store) GetAllTopicsWithCounts(ctx context.Context) ([]TopicCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.name, COUNT(q.id)
		FROM topics t
		LEFT JOIN questions q ON q.topic_id = t.id
		GROUP BY t.id
		ORDER BY t.name`)
	if err != nil {
		return nil, opErr("GetAllTopicsWithCounts", err, "")
	}
	defer rows.Close()

	var out []TopicCount
	for rows.Next() {
		var tc TopicCount
		if err := rows.Scan(&tc.Name, &tc.Count); err != nil {
			return nil, opErr("GetAllTopicsWithCounts", err, "")
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// GetAllDifficultiesWithCounts returns the fixed difficulty set with the
// number of questions filed at each level.
func (s *Store) GetAllDifficultiesWithCounts(ctx context.Context) ([]DifficultyCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.name, COUNT(q.id)
		FROM difficulties d
		LEFT JOIN questions q ON q.difficulty_id = d.id
		GROUP BY d.id
		ORDER BY d.id`)
	if err != nil {
		return nil, opErr("GetAllDifficultiesWithCounts", err, "")
	}
	defer rows.Close()

	var out []DifficultyCount
	for rows.Next() {
		var dc DifficultyCount
		if err := rows.Scan(&dc.ID, &dc.Name, &dc.Count); err != nil {
			return nil, opErr("GetAllDifficultiesWithCounts", err, "")
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

// GetTopicID resolves a topic name (case-insensitive) to its id. Unknown
// topics report ErrNotFound so the selector can drop them per its "unknown
// topics are dropped" rule rather than failing the whole request.
func (s *Store) GetTopicID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM topics WHERE name = ?`,
		strings.ToLower(strings.TrimSpace(name))).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, opErr("GetTopicID", ErrNotFound, name)
	}
	if err != nil {
		return 0, opErr("GetTopicID", err, "")
	}
	return id, nil
}

// CountDifficultiesForTopics returns, for the given topic ids, how many
// questions exist at each difficulty — the input to the selector's quota
// matrix. A topic id with no matching questions contributes all zeros
// rather than being omitted.
func (s *Store) CountDifficultiesForTopics(ctx context.Context, topicIDs []int64) (map[int64]map[int64]int, error) {
	out := make(map[int64]map[int64]int, len(topicIDs))
	for _, id := range topicIDs {
		out[id] = map[int64]int{
			DifficultyEasy:   0,
			DifficultyMedium: 0,
			DifficultyHard:   0,
		}
	}
	if len(topicIDs) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(topicIDs)), ",")
	args := make([]any, len(topicIDs))
	for i, id := range topicIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT q.topic_id, q.difficulty_id, COUNT(q.id)
		FROM questions q
		WHERE q.topic_id IN (`+placeholders+`)
		GROUP BY q.topic_id, q.difficulty_id`, args...)
	if err != nil {
		return nil, opErr("CountDifficultiesForTopics", err, "")
	}
	defer rows.Close()

	for rows.Next() {
		var topicID, diffID int64
		var count int
		if err := rows.Scan(&topicID, &diffID, &count); err != nil {
			return nil, opErr("CountDifficultiesForTopics", err, "")
		}
		if _, ok := out[topicID]; !ok {
			out[topicID] = map[int64]int{}
		}
		out[topicID][diffID] = count
	}
	return out, rows.Err()
}
