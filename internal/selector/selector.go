// Package selector implements stratified random sampling of the question
// bank: given a requested total and per-topic, per-difficulty quotas, it
// assembles a question list that matches the quota matrix as closely as
// the bank allows.
package selector

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"testserver/internal/store"
)

// QuestionSource is the slice of Store this package depends on. Kept
// narrow so a room-creation test can fake it without standing up SQLite.
type QuestionSource interface {
	GetTopicID(ctx context.Context, name string) (int64, error)
	GetAllTopicsWithCounts(ctx context.Context) ([]store.TopicCount, error)
	CountDifficultiesForTopics(ctx context.Context, topicIDs []int64) (map[int64]map[int64]int, error)
	GetRandomFilteredQuestions(ctx context.Context, topicIDs []int64, difficultyID *int64, n int) ([]store.Question, error)
}

// difficultyOrder fixes the inner iteration order within a topic: easy,
// medium, hard, with any selector remainder landing on easy.
var difficultyOrder = []int64{store.DifficultyEasy, store.DifficultyMedium, store.DifficultyHard}

var difficultyIDByName = map[string]int64{
	"easy":   store.DifficultyEasy,
	"medium": store.DifficultyMedium,
	"hard":   store.DifficultyHard,
}

// cell is one (topic, difficulty) quota entry in topic-major order.
type cell struct {
	topicName string
	topicID   int64
	diffID    int64
	want      int
}

// Select draws up to total questions honoring topicFilter ("name:count"
// pairs, or "" / "#" for "every topic, split evenly") and diffFilter
// ("easy:n medium:n hard:n", or "" / "#" for "split each topic's quota
// evenly across difficulties, remainder to easy"). It returns an empty,
// non-error slice when no valid (topic,difficulty) cell exists or the
// bank has nothing to offer — callers treat an empty result as "no
// questions match your criteria".
func Select(ctx context.Context, src QuestionSource, total int, topicFilter, diffFilter string) ([]store.Question, error) {
	topicWanted, err := resolveTopics(ctx, src, total, topicFilter)
	if err != nil {
		return nil, err
	}
	if len(topicWanted) == 0 {
		return nil, nil
	}

	diffWanted := parseDifficultyFilter(diffFilter)
	if len(diffWanted) == 0 {
		return nil, nil
	}

	sum := 0
	for _, n := range topicWanted {
		sum += n
	}
	if sum > total {
		return nil, fmt.Errorf("selector: requested topic quotas (%d) exceed total (%d)", sum, total)
	}

	cells := buildCells(ctx, src, topicWanted, diffWanted)

	var out []store.Question
	for _, c := range cells {
		if c.want <= 0 {
			continue
		}
		diffID := c.diffID
		got, err := src.GetRandomFilteredQuestions(ctx, []int64{c.topicID}, &diffID, c.want)
		if err != nil {
			return nil, err
		}
		out = append(out, got...)
	}
	return out, nil
}

// resolveTopics parses the topic filter into topicName->wantedCount,
// resolving each name to its store id. Unknown names are silently
// dropped. An empty or "#" filter distributes total evenly across every
// known topic, remainder going to the first topic in name order.
func resolveTopics(ctx context.Context, src QuestionSource, total int, filter string) (map[string]int, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" || filter == "#" {
		all, err := src.GetAllTopicsWithCounts(ctx)
		if err != nil {
			return nil, err
		}
		if len(all) == 0 {
			return nil, nil
		}
		names := make([]string, len(all))
		for i, tc := range all {
			names[i] = tc.Name
		}
		sort.Strings(names)
		return distributeEvenly(names, total), nil
	}

	wanted := make(map[string]int)
	for _, pair := range strings.Fields(filter) {
		name, countStr, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		var count int
		if _, err := fmt.Sscanf(countStr, "%d", &count); err != nil {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if _, err := src.GetTopicID(ctx, name); err != nil {
			continue // unknown topic: dropped per the selector's tolerance rule
		}
		wanted[name] = count
	}
	return wanted, nil
}

// distributeEvenly splits total across names, remainder to the first.
func distributeEvenly(names []string, total int) map[string]int {
	out := make(map[string]int, len(names))
	base := total / len(names)
	rem := total % len(names)
	for i, n := range names {
		out[n] = base
		if i == 0 {
			out[n] += rem
		}
	}
	return out
}

// parseDifficultyFilter parses "easy:n medium:n hard:n". An empty or "#"
// filter returns all-zero counts, a signal to buildCells that each
// topic's quota should be split evenly across difficulties instead.
func parseDifficultyFilter(filter string) map[int64]int {
	filter = strings.TrimSpace(filter)
	out := map[int64]int{store.DifficultyEasy: 0, store.DifficultyMedium: 0, store.DifficultyHard: 0}
	if filter == "" || filter == "#" {
		return out
	}
	any := false
	for _, pair := range strings.Fields(filter) {
		name, countStr, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		id, ok := difficultyIDByName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		var count int
		if _, err := fmt.Sscanf(countStr, "%d", &count); err != nil {
			continue
		}
		out[id] = count
		any = true
	}
	if !any {
		return map[int64]int{store.DifficultyEasy: 0, store.DifficultyMedium: 0, store.DifficultyHard: 0}
	}
	return out
}

// buildCells expands the topic/difficulty quotas into one cell per
// (topic, difficulty) pair, in topic-major, difficulty-inner order.
//
// When an explicit difficulty filter was given, its counts are a single
// pool shared across every topic: topics are walked in name order and
// each draws from the pool (easy first, then medium, then hard) until
// its own quota is satisfied or the pool for that difficulty runs out.
// This is what makes `TOPICS database:1 cloud:1 DIFFICULTIES easy:2`
// land one easy question in each topic instead of two in the first.
//
// When every difficulty count is zero (no filter given), there is no
// pool to share: each topic's whole quota is split evenly across the
// three difficulties, remainder going to easy.
func buildCells(ctx context.Context, src QuestionSource, topicWanted map[string]int, diffWanted map[int64]int) []cell {
	names := make([]string, 0, len(topicWanted))
	for n := range topicWanted {
		names = append(names, n)
	}
	sort.Strings(names)

	splitEvenly := diffWanted[store.DifficultyEasy] == 0 &&
		diffWanted[store.DifficultyMedium] == 0 &&
		diffWanted[store.DifficultyHard] == 0

	pool := map[int64]int{
		store.DifficultyEasy:   diffWanted[store.DifficultyEasy],
		store.DifficultyMedium: diffWanted[store.DifficultyMedium],
		store.DifficultyHard:   diffWanted[store.DifficultyHard],
	}

	var cells []cell
	for _, name := range names {
		topicID, err := src.GetTopicID(ctx, name)
		if err != nil {
			continue
		}
		want := topicWanted[name]

		if splitEvenly {
			base := want / 3
			rem := want % 3
			for i, diffID := range difficultyOrder {
				n := base
				if i == 0 {
					n += rem
				}
				cells = append(cells, cell{topicName: name, topicID: topicID, diffID: diffID, want: n})
			}
			continue
		}

		remaining := want
		for _, diffID := range difficultyOrder {
			if remaining <= 0 {
				cells = append(cells, cell{topicName: name, topicID: topicID, diffID: diffID, want: 0})
				continue
			}
			take := remaining
			if pool[diffID] < take {
				take = pool[diffID]
			}
			pool[diffID] -= take
			remaining -= take
			cells = append(cells, cell{topicName: name, topicID: topicID, diffID: diffID, want: take})
		}
	}
	return cells
}
