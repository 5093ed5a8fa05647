// Package room holds the in-memory state the session layer mutates on
// every command: the set of active rooms and, within each, its
// participants and their live answer vectors. None of it synchronizes
// itself — the session dispatcher holds the single process-wide lock
// described by the concurrency model before touching any of it, so a
// per-struct mutex here would only hide where the real lock lives.
package room

import (
	"time"

	"testserver/internal/store"
)

// historyCap bounds how many prior attempt scores a participant keeps.
const historyCap = 10

// Participant is one user's live attempt at a room.
type Participant struct {
	ParticipantID int64
	UserID        int64
	Username      string

	Answers   []byte // '.' or 'A'..'D', one slot per room question
	Score     int    // -1 while in progress
	StartTime time.Time

	History []int // prior scores, oldest first, capped at historyCap
}

// newParticipant returns a fresh in-progress attempt.
func newParticipant(participantID, userID int64, username string, numQuestions int, now time.Time) *Participant {
	answers := make([]byte, numQuestions)
	for i := range answers {
		answers[i] = '.'
	}
	return &Participant{
		ParticipantID: participantID,
		UserID:        userID,
		Username:      username,
		Answers:       answers,
		Score:         -1,
		StartTime:     now,
	}
}

// reset restarts an attempt in place, pushing the finished score into
// history before clearing it. Called on rejoin after a completed attempt.
func (p *Participant) reset(numQuestions int, now time.Time) {
	if p.Score >= 0 {
		p.History = append(p.History, p.Score)
		if len(p.History) > historyCap {
			p.History = p.History[len(p.History)-historyCap:]
		}
	}
	p.Answers = make([]byte, numQuestions)
	for i := range p.Answers {
		p.Answers[i] = '.'
	}
	p.Score = -1
	p.StartTime = now
}

// Room is the in-memory counterpart of a durable rooms row: its fixed
// question snapshot plus its live participants.
type Room struct {
	ID              int64
	Name            string
	OwnerID         int64
	OwnerName       string
	DurationSeconds int
	Started         bool
	Finished        bool

	Questions    []store.Question // copy-on-create, immutable for the room's life
	Participants []*Participant   // join order
}

// RemainingSeconds reports how long a participant has left, clamped at 0.
func (r *Room) RemainingSeconds(p *Participant, now time.Time) int {
	elapsed := int(now.Sub(p.StartTime).Seconds())
	remaining := r.DurationSeconds - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired reports whether p has exceeded the room's duration plus the
// timer's grace window.
func (r *Room) Expired(p *Participant, now time.Time, graceSeconds int) bool {
	elapsed := int(now.Sub(p.StartTime).Seconds())
	return elapsed >= r.DurationSeconds+graceSeconds
}

// FindParticipant looks up a participant by username; lookups are a
// linear scan, acceptable at this scale per the room's own lookup style.
func (r *Room) FindParticipant(username string) *Participant {
	for _, p := range r.Participants {
		if p.Username == username {
			return p
		}
	}
	return nil
}

// Join admits userID/username into the room, creating a fresh attempt on
// first join and recycling the existing row (with history push) on a
// rejoin after a completed attempt. An in-progress rejoin is returned
// unchanged. participantID is the durable row id from SaveParticipant,
// stable across rejoins.
func (r *Room) Join(participantID, userID int64, username string, now time.Time) *Participant {
	if p := r.FindParticipant(username); p != nil {
		if p.Score >= 0 {
			p.reset(len(r.Questions), now)
		}
		return p
	}
	p := newParticipant(participantID, userID, username, len(r.Questions), now)
	r.Participants = append(r.Participants, p)
	return p
}

// Score computes how many of p's answered slots match the room's correct
// letters.
func (r *Room) Score(p *Participant) int {
	score := 0
	for i, q := range r.Questions {
		if i >= len(p.Answers) {
			break
		}
		if p.Answers[i] == '.' {
			continue
		}
		if upperByte(p.Answers[i]) == q.Correct[0] {
			score++
		}
	}
	return score
}

func upperByte(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}
