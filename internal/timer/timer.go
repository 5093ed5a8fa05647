// Package timer runs the background sweep that auto-submits participants
// who have exceeded their room's duration without sending SUBMIT.
package timer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"testserver/internal/logsink"
	"testserver/internal/metrics"
	"testserver/internal/room"
)

// ResultStore is the slice of Store this package depends on.
type ResultStore interface {
	SaveAnswer(ctx context.Context, participantID, questionID int64, choice string, isCorrect bool) error
	SaveResult(ctx context.Context, participantID, roomID int64, score, total, correct int) error
}

// Loop is the background sweeper described by the timer component: once
// per tick it takes the same lock every session command takes, walks
// every room and participant, and auto-submits anyone past their
// deadline.
type Loop struct {
	mu       *sync.Mutex
	reg      *room.Registry
	store    ResultStore
	log      *slog.Logger
	sink     *logsink.Sink
	grace    int
	interval time.Duration
}

// New returns a Loop. mu must be the same lock the session dispatcher
// acquires on every command; grace is the extra seconds past duration
// before a participant counts as expired.
func New(mu *sync.Mutex, reg *room.Registry, store ResultStore, log *slog.Logger, sink *logsink.Sink, grace int, interval time.Duration) *Loop {
	return &Loop{mu: mu, reg: reg, store: store, log: log, sink: sink, grace: grace, interval: interval}
}

// Run blocks, sweeping every interval until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.sweep(ctx)
		}
	}
}

func (l *Loop) sweep(ctx context.Context) {
	start := time.Now()
	defer func() {
		metrics.TimerSweepDuration.Observe(time.Since(start).Seconds())
	}()

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.reg.ForEach(func(r *room.Room) {
		for _, p := range r.Participants {
			if p.Score != -1 {
				continue
			}
			if !r.Expired(p, now, l.grace) {
				continue
			}
			l.autoSubmit(ctx, r, p)
		}
	})

	snap := l.reg.Snapshot()
	metrics.RoomsActive.Set(float64(snap.Rooms))
	metrics.ParticipantsActive.Set(float64(snap.Participants))
}

// autoSubmit grades p's current answer vector and persists it exactly as
// a client-initiated SUBMIT would, so a reconnecting client and a restart
// both see the same final state.
func (l *Loop) autoSubmit(ctx context.Context, r *room.Room, p *room.Participant) {
	score := r.Score(p)
	total := len(r.Questions)

	for i, q := range r.Questions {
		if i >= len(p.Answers) || p.Answers[i] == '.' {
			continue
		}
		correct := upper(p.Answers[i]) == q.Correct[0]
		if err := l.store.SaveAnswer(ctx, p.ParticipantID, q.ID, string(upper(p.Answers[i])), correct); err != nil {
			l.log.Error("timer.answer.save.fail", "err", err, "room", r.Name, "user", p.Username)
		}
	}
	if err := l.store.SaveResult(ctx, p.ParticipantID, r.ID, score, total, score); err != nil {
		l.log.Error("timer.result.save.fail", "err", err, "room", r.Name, "user", p.Username)
	}
	p.Score = score

	metrics.TimerAutoSubmitsTotal.Inc()
	l.log.Info("timer.auto_submit", "user", p.Username, "room", r.Name, "score", score, "total", total)
	l.sink.Append(fmt.Sprintf("auto-submit user=%s room=%s score=%d/%d", p.Username, r.Name, score, total))
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}
