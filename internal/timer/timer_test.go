package timer

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"testserver/internal/logsink"
	"testserver/internal/room"
	"testserver/internal/store"
)

type fakeStore struct {
	mu      sync.Mutex
	answers []savedAnswer
	results []savedResult
}

type savedAnswer struct {
	participantID, questionID int64
	choice                    string
	isCorrect                 bool
}

type savedResult struct {
	participantID, roomID int64
	score, total, correct  int
}

func (f *fakeStore) SaveAnswer(ctx context.Context, participantID, questionID int64, choice string, isCorrect bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, savedAnswer{participantID, questionID, choice, isCorrect})
	return nil
}

func (f *fakeStore) SaveResult(ctx context.Context, participantID, roomID int64, score, total, correct int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, savedResult{participantID, roomID, score, total, correct})
	return nil
}

func newTestRoom() *room.Room {
	r := &room.Room{
		ID: 1, Name: "quiz1", OwnerID: 1, DurationSeconds: 60,
		Questions: []store.Question{
			{ID: 1, Correct: "A"},
			{ID: 2, Correct: "B"},
		},
	}
	return r
}

func TestSweep_AutoSubmitsExpiredParticipantOnly(t *testing.T) {
	r := newTestRoom()
	now := time.Now()
	expired := r.Join(10, 100, "alice", now.Add(-65*time.Second))
	expired.Answers[0] = 'a'

	fresh := r.Join(11, 101, "bob", now)

	reg := room.NewRegistry(10)
	if err := reg.Add(r); err != nil {
		t.Fatalf("Add: %v", err)
	}

	fs := &fakeStore{}
	var mu sync.Mutex
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink, _ := logsink.Open("", log)

	l := New(&mu, reg, fs, log, sink, 2, 10*time.Millisecond)
	l.sweep(context.Background())

	if expired.Score != 1 {
		t.Fatalf("want auto-submitted score 1, got %d", expired.Score)
	}
	if fresh.Score != -1 {
		t.Fatalf("fresh participant must not be touched, got score %d", fresh.Score)
	}
	if len(fs.results) != 1 || fs.results[0].participantID != 10 || fs.results[0].score != 1 {
		t.Fatalf("want one saved result for participant 10 score 1, got %+v", fs.results)
	}
	if len(fs.answers) != 1 || fs.answers[0].choice != "A" || !fs.answers[0].isCorrect {
		t.Fatalf("want one saved answer A/correct, got %+v", fs.answers)
	}
}

func TestSweep_NoExpiredParticipantsSavesNothing(t *testing.T) {
	r := newTestRoom()
	now := time.Now()
	r.Join(10, 100, "alice", now)

	reg := room.NewRegistry(10)
	_ = reg.Add(r)

	fs := &fakeStore{}
	var mu sync.Mutex
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink, _ := logsink.Open("", log)

	l := New(&mu, reg, fs, log, sink, 2, 10*time.Millisecond)
	l.sweep(context.Background())

	if len(fs.results) != 0 || len(fs.answers) != 0 {
		t.Fatalf("want no saves, got results=%v answers=%v", fs.results, fs.answers)
	}
}
