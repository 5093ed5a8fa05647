package store

import "time"

// Difficulty ids are a fixed set seeded at schema creation.
const (
	DifficultyEasy   = 1
	DifficultyMedium = 2
	DifficultyHard   = 3
)

// RoleAdmin and RoleStudent are the two user roles.
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

// User is a durable account row.
type User struct {
	ID           int64
	Name         string
	PasswordHash string
	Role         string
}

// Topic is a durable, lowercased, unique subject tag.
type Topic struct {
	ID   int64
	Name string
}

// TopicCount pairs a topic with how many questions reference it (zero
// allowed — getAllTopicsWithCounts is a LEFT JOIN).
type TopicCount struct {
	Name  string
	Count int
}

// DifficultyCount pairs a difficulty name with a question count.
type DifficultyCount struct {
	Name  string
	ID    int
	Count int
}

// Question is a single multiple-choice item.
type Question struct {
	ID           int64
	Prompt       string
	OptionA      string
	OptionB      string
	OptionC      string
	OptionD      string
	Correct      string // "A".."D"
	TopicID      int64
	TopicName    string
	DifficultyID int64
	CreatorID    *int64
}

// Room is the durable projection of a test room; the in-memory registry
// augments this with the question snapshot and live participants.
type Room struct {
	ID              int64
	Name            string
	OwnerID         int64
	DurationSeconds int
	Started         bool
	Finished        bool
}

// RoomQuestion is one (room,question) slot in a room's fixed ordering.
type RoomQuestion struct {
	RoomID     int64
	QuestionID int64
	Order      int
}

// Participant is the durable projection of one user's attempt at a room.
type Participant struct {
	ID       int64
	RoomID   int64
	UserID   int64
	Username string
	JoinedAt time.Time
}

// ParticipantRow is what LoadRoomParticipants returns: a participant plus
// its persisted score (sentinel -1 when no result row exists yet) and its
// reconstructed answer vector, used to rehydrate in-memory room state
// after restart.
type ParticipantRow struct {
	ParticipantID int64
	UserID        int64
	Username      string
	JoinedAt      time.Time
	Score         int    // -1 if no result row
	Answers       []byte // one letter or '.' per question, in room order
}

// LeaderboardRow is one ranked entry in a room's top scores.
type LeaderboardRow struct {
	Username    string
	Score       int
	Total       int
	SubmittedAt time.Time
}
