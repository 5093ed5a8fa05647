package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), path, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddUser_DuplicateNameReportsAlreadyExists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.AddUser(ctx, "alice", "hash1", RoleStudent); err != nil {
		t.Fatalf("first AddUser: %v", err)
	}
	_, err := s.AddUser(ctx, "alice", "hash2", RoleStudent)
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists, got %v", err)
	}
}

func TestGetUserByName_UnknownReportsNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetUserByName(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestAddQuestion_CreatesTopicAndRejectsBadDifficulty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	q := Question{
		Prompt: "2+2?", OptionA: "3", OptionB: "4", OptionC: "5", OptionD: "6",
		Correct: "B", TopicName: "Math", DifficultyID: DifficultyEasy,
	}
	id, err := s.AddQuestion(ctx, q)
	if err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected nonzero question id")
	}

	counts, err := s.GetAllTopicsWithCounts(ctx)
	if err != nil {
		t.Fatalf("GetAllTopicsWithCounts: %v", err)
	}
	found := false
	for _, c := range counts {
		if c.Name == "math" && c.Count == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected topic 'math' with count 1, got %+v", counts)
	}

	q.DifficultyID = 999
	if _, err := s.AddQuestion(ctx, q); !errors.Is(err, ErrInvalidDifficulty) {
		t.Fatalf("want ErrInvalidDifficulty, got %v", err)
	}
}

func TestGetRandomFilteredQuestions_FiltersByTopicAndDifficulty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mathID, err := s.AddQuestion(ctx, Question{
		Prompt: "q1", OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d",
		Correct: "A", TopicName: "math", DifficultyID: DifficultyEasy,
	})
	if err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}
	if _, err := s.AddQuestion(ctx, Question{
		Prompt: "q2", OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d",
		Correct: "A", TopicName: "history", DifficultyID: DifficultyHard,
	}); err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}

	topicID, err := s.GetTopicID(ctx, "math")
	if err != nil {
		t.Fatalf("GetTopicID: %v", err)
	}

	easy := int64(DifficultyEasy)
	got, err := s.GetRandomFilteredQuestions(ctx, []int64{topicID}, &easy, 5)
	if err != nil {
		t.Fatalf("GetRandomFilteredQuestions: %v", err)
	}
	if len(got) != 1 || got[0].ID != mathID {
		t.Fatalf("expected only the math/easy question, got %+v", got)
	}
}

func TestRoomLifecycle_CreateJoinAnswerSubmit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ownerID, err := s.AddUser(ctx, "owner", "hash", RoleAdmin)
	if err != nil {
		t.Fatalf("AddUser owner: %v", err)
	}
	userID, err := s.AddUser(ctx, "student1", "hash", RoleStudent)
	if err != nil {
		t.Fatalf("AddUser student: %v", err)
	}

	q1, err := s.AddQuestion(ctx, Question{
		Prompt: "q1", OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d",
		Correct: "A", TopicName: "math", DifficultyID: DifficultyEasy,
	})
	if err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}
	q2, err := s.AddQuestion(ctx, Question{
		Prompt: "q2", OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d",
		Correct: "B", TopicName: "math", DifficultyID: DifficultyEasy,
	})
	if err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}

	roomID, err := s.CreateRoom(ctx, "quiz1", ownerID, 60)
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if err := s.AddQuestionToRoom(ctx, roomID, q1, 0); err != nil {
		t.Fatalf("AddQuestionToRoom: %v", err)
	}
	if err := s.AddQuestionToRoom(ctx, roomID, q2, 1); err != nil {
		t.Fatalf("AddQuestionToRoom: %v", err)
	}

	questions, err := s.GetRoomQuestions(ctx, roomID)
	if err != nil {
		t.Fatalf("GetRoomQuestions: %v", err)
	}
	if len(questions) != 2 || questions[0].ID != q1 || questions[1].ID != q2 {
		t.Fatalf("unexpected room question order: %+v", questions)
	}

	participantID, err := s.SaveParticipant(ctx, roomID, userID)
	if err != nil {
		t.Fatalf("SaveParticipant: %v", err)
	}
	// Rejoin must return the same row, not create a second one.
	again, err := s.SaveParticipant(ctx, roomID, userID)
	if err != nil {
		t.Fatalf("SaveParticipant rejoin: %v", err)
	}
	if again != participantID {
		t.Fatalf("rejoin should reuse participant id: got %d want %d", again, participantID)
	}

	if err := s.SaveAnswer(ctx, participantID, q1, "A", true); err != nil {
		t.Fatalf("SaveAnswer q1: %v", err)
	}
	if err := s.SaveAnswer(ctx, participantID, q2, "C", false); err != nil {
		t.Fatalf("SaveAnswer q2: %v", err)
	}

	vec, err := s.LoadParticipantAnswers(ctx, participantID, roomID, 2)
	if err != nil {
		t.Fatalf("LoadParticipantAnswers: %v", err)
	}
	if string(vec) != "AC" {
		t.Fatalf("want answer vector AC, got %q", vec)
	}

	if err := s.SaveResult(ctx, participantID, roomID, 1, 2, 1); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	// Idempotent re-submit must not create a second row or error.
	if err := s.SaveResult(ctx, participantID, roomID, 1, 2, 1); err != nil {
		t.Fatalf("SaveResult repeat: %v", err)
	}

	rows, err := s.LoadRoomParticipants(ctx, roomID, 2)
	if err != nil {
		t.Fatalf("LoadRoomParticipants: %v", err)
	}
	if len(rows) != 1 || rows[0].Score != 1 || string(rows[0].Answers) != "AC" {
		t.Fatalf("unexpected participants after restart replay: %+v", rows)
	}

	board, err := s.GetLeaderboard(ctx, roomID)
	if err != nil {
		t.Fatalf("GetLeaderboard: %v", err)
	}
	if len(board) != 1 || board[0].Score != 1 {
		t.Fatalf("unexpected leaderboard: %+v", board)
	}

	if err := s.DeleteRoom(ctx, roomID); err != nil {
		t.Fatalf("DeleteRoom: %v", err)
	}
	if _, err := s.GetRoomIDByName(ctx, "quiz1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound after delete, got %v", err)
	}
}

func TestLoadAllRooms_ExcludesFinished(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ownerID, err := s.AddUser(ctx, "owner2", "hash", RoleAdmin)
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	liveID, err := s.CreateRoom(ctx, "live", ownerID, 30)
	if err != nil {
		t.Fatalf("CreateRoom live: %v", err)
	}
	doneID, err := s.CreateRoom(ctx, "done", ownerID, 30)
	if err != nil {
		t.Fatalf("CreateRoom done: %v", err)
	}
	if err := s.SetRoomFinished(ctx, doneID); err != nil {
		t.Fatalf("SetRoomFinished: %v", err)
	}

	rooms, err := s.LoadAllRooms(ctx)
	if err != nil {
		t.Fatalf("LoadAllRooms: %v", err)
	}
	if len(rooms) != 1 || rooms[0].ID != liveID {
		t.Fatalf("expected only the live room, got %+v", rooms)
	}
}
