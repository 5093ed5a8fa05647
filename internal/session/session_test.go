package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"testserver/internal/auth"
	"testserver/internal/logsink"
	"testserver/internal/room"
	"testserver/internal/store"
)

type fakeAuth struct {
	users map[string]auth.Identity
}

func newFakeAuth() *fakeAuth { return &fakeAuth{users: map[string]auth.Identity{}} }

func (f *fakeAuth) Register(ctx context.Context, name, pass, role, code string) (int64, error) {
	if _, ok := f.users[name]; ok {
		return 0, store.OpError{Op: "AddUser", Kind: store.ErrAlreadyExists}
	}
	if role == "" {
		role = store.RoleStudent
	}
	if role == store.RoleAdmin && code != "network_programming" {
		return 0, auth.ErrWrongAdminSecret
	}
	id := int64(len(f.users) + 1)
	f.users[name] = auth.Identity{UserID: id, Username: name, Role: role}
	return id, nil
}

func (f *fakeAuth) Login(ctx context.Context, name, pass string) (auth.Identity, error) {
	id, ok := f.users[name]
	if !ok {
		return auth.Identity{}, auth.ErrInvalidCredentials
	}
	return id, nil
}

type fakeStore struct {
	topics      map[string]int64
	topicCounts []store.TopicCount
	questions   map[int64]store.Question
	rooms       map[int64]bool
	nextRoomID  int64
	nextPartID  int64
	results     map[int64]store.LeaderboardRow
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		topics:    map[string]int64{"math": 1},
		questions: map[int64]store.Question{1: {ID: 1, Prompt: "2+2?", OptionA: "3", OptionB: "4", OptionC: "5", OptionD: "6", Correct: "B", TopicID: 1, TopicName: "math", DifficultyID: store.DifficultyEasy}},
		rooms:     map[int64]bool{},
		results:   map[int64]store.LeaderboardRow{},
	}
}

func (f *fakeStore) GetTopicID(ctx context.Context, name string) (int64, error) {
	if id, ok := f.topics[name]; ok {
		return id, nil
	}
	return 0, store.OpError{Op: "GetTopicID", Kind: store.ErrNotFound}
}
func (f *fakeStore) GetAllTopicsWithCounts(ctx context.Context) ([]store.TopicCount, error) {
	return []store.TopicCount{{Name: "math", Count: 1}}, nil
}
func (f *fakeStore) CountDifficultiesForTopics(ctx context.Context, topicIDs []int64) (map[int64]map[int64]int, error) {
	out := map[int64]map[int64]int{}
	for _, id := range topicIDs {
		out[id] = map[int64]int{store.DifficultyEasy: 1, store.DifficultyMedium: 0, store.DifficultyHard: 0}
	}
	return out, nil
}
func (f *fakeStore) GetRandomFilteredQuestions(ctx context.Context, topicIDs []int64, difficultyID *int64, n int) ([]store.Question, error) {
	var out []store.Question
	for _, q := range f.questions {
		out = append(out, q)
		if len(out) >= n {
			break
		}
	}
	return out, nil
}
func (f *fakeStore) AddQuestion(ctx context.Context, q store.Question) (int64, error) {
	id := int64(len(f.questions) + 1)
	q.ID = id
	f.questions[id] = q
	return id, nil
}
func (f *fakeStore) DeleteQuestion(ctx context.Context, id int64) error {
	if _, ok := f.questions[id]; !ok {
		return store.OpError{Op: "DeleteQuestion", Kind: store.ErrNotFound}
	}
	delete(f.questions, id)
	return nil
}
func (f *fakeStore) GetAllDifficultiesWithCounts(ctx context.Context) ([]store.DifficultyCount, error) {
	return []store.DifficultyCount{{Name: "easy", ID: 1, Count: 1}, {Name: "medium", ID: 2, Count: 0}, {Name: "hard", ID: 3, Count: 0}}, nil
}
func (f *fakeStore) GetQuestionByID(ctx context.Context, id int64) (store.Question, error) {
	q, ok := f.questions[id]
	if !ok {
		return store.Question{}, store.OpError{Op: "GetQuestionByID", Kind: store.ErrNotFound}
	}
	return q, nil
}
func (f *fakeStore) SearchQuestionsByTopic(ctx context.Context, topicName string) ([]store.Question, error) {
	var out []store.Question
	for _, q := range f.questions {
		if q.TopicName == topicName {
			out = append(out, q)
		}
	}
	return out, nil
}
func (f *fakeStore) SearchQuestionsByDifficulty(ctx context.Context, difficultyID int64) ([]store.Question, error) {
	var out []store.Question
	for _, q := range f.questions {
		if q.DifficultyID == difficultyID {
			out = append(out, q)
		}
	}
	return out, nil
}
func (f *fakeStore) CreateRoom(ctx context.Context, name string, ownerID int64, durationSeconds int) (int64, error) {
	f.nextRoomID++
	f.rooms[f.nextRoomID] = true
	return f.nextRoomID, nil
}
func (f *fakeStore) AddQuestionToRoom(ctx context.Context, roomID, questionID int64, position int) error {
	return nil
}
func (f *fakeStore) GetRoomIDByName(ctx context.Context, name string) (int64, error) {
	return 0, store.OpError{Op: "GetRoomIDByName", Kind: store.ErrNotFound}
}
func (f *fakeStore) DeleteRoom(ctx context.Context, roomID int64) error {
	delete(f.rooms, roomID)
	return nil
}
func (f *fakeStore) SaveParticipant(ctx context.Context, roomID, userID int64) (int64, error) {
	f.nextPartID++
	return f.nextPartID, nil
}
func (f *fakeStore) SaveAnswer(ctx context.Context, participantID, questionID int64, choice string, isCorrect bool) error {
	return nil
}
func (f *fakeStore) SaveResult(ctx context.Context, participantID, roomID int64, score, total, correct int) error {
	return nil
}
func (f *fakeStore) GetLeaderboard(ctx context.Context, roomID int64) ([]store.LeaderboardRow, error) {
	return []store.LeaderboardRow{{Username: "alice", Score: 2, Total: 2}}, nil
}
func (f *fakeStore) InsertLog(ctx context.Context, log *slog.Logger, username, event, detail string) {}

func newTestDispatcher() (*Dispatcher, *fakeAuth) {
	var mu sync.Mutex
	reg := room.NewRegistry(10)
	fs := newFakeStore()
	fa := newFakeAuth()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink, _ := logsink.Open("", log)
	return NewDispatcher(&mu, reg, fs, fa, log, sink), fa
}

func TestDispatch_RegisterLoginRoundTrip(t *testing.T) {
	d, _ := newTestDispatcher()
	c := &conn{}
	ctx := context.Background()

	if resp, _ := d.dispatch(ctx, c, "REGISTER alice secret"); resp != "SUCCESS Registered. Please login." {
		t.Fatalf("register: got %q", resp)
	}
	if resp, _ := d.dispatch(ctx, c, "LOGIN alice secret"); resp != "SUCCESS student" {
		t.Fatalf("login: got %q", resp)
	}
	if !c.authenticated || c.username != "alice" {
		t.Fatalf("conn state not updated: %+v", c)
	}
}

func TestDispatch_UnauthenticatedCommandRejected(t *testing.T) {
	d, _ := newTestDispatcher()
	c := &conn{}
	resp, _ := d.dispatch(context.Background(), c, "LIST")
	if resp != "FAIL Please login first" {
		t.Fatalf("got %q", resp)
	}
}

func loginAs(t *testing.T, d *Dispatcher, role string) *conn {
	t.Helper()
	c := &conn{}
	name := "user_" + role
	if resp, _ := d.dispatch(context.Background(), c, "REGISTER "+name+" pw "+role+" network_programming"); resp[:4] != "SUCC" {
		t.Fatalf("register failed: %q", resp)
	}
	if resp, _ := d.dispatch(context.Background(), c, "LOGIN "+name+" pw"); resp[:4] != "SUCC" {
		t.Fatalf("login failed: %q", resp)
	}
	return c
}

func TestDispatch_CreateRequiresAdmin(t *testing.T) {
	d, _ := newTestDispatcher()
	student := loginAs(t, d, store.RoleStudent)
	resp, _ := d.dispatch(context.Background(), student, "CREATE quiz1 1 60")
	if resp != "FAIL Not authorized" {
		t.Fatalf("got %q", resp)
	}
}

func TestDispatch_CreateJoinAnswerSubmitFlow(t *testing.T) {
	d, _ := newTestDispatcher()
	admin := loginAs(t, d, store.RoleAdmin)

	resp, _ := d.dispatch(context.Background(), admin, "CREATE quiz1 1 60 TOPICS math:1")
	if resp[:7] != "SUCCESS" {
		t.Fatalf("create failed: %q", resp)
	}

	student := loginAs(t, d, store.RoleStudent)
	resp, _ = d.dispatch(context.Background(), student, "JOIN quiz1")
	if resp != "SUCCESS Joined 1 60" {
		t.Fatalf("join: got %q", resp)
	}

	resp, _ = d.dispatch(context.Background(), student, "ANSWER quiz1 0 B")
	if resp != "SUCCESS Answer recorded" {
		t.Fatalf("answer: got %q", resp)
	}

	resp, _ = d.dispatch(context.Background(), student, "SUBMIT quiz1 B")
	if resp != "SUCCESS Score: 1/1" {
		t.Fatalf("submit: got %q", resp)
	}

	resp, _ = d.dispatch(context.Background(), student, "SUBMIT quiz1 B")
	if resp != "FAIL Not in room or submitted" {
		t.Fatalf("resubmit: got %q", resp)
	}
}

func TestHandleAnswer_SpaceCountDisambiguation(t *testing.T) {
	d, _ := newTestDispatcher()
	c := loginAs(t, d, store.RoleStudent)
	c.practiceQuestionID = 1
	c.practiceCorrectLetter = "B"

	resp, _ := d.dispatch(context.Background(), c, "ANSWER B")
	if resp != "CORRECT" {
		t.Fatalf("practice answer: got %q", resp)
	}

	resp, _ = d.dispatch(context.Background(), c, "ANSWER quiz1 0 B")
	if resp != "FAIL Room not found" {
		t.Fatalf("room answer: got %q", resp)
	}

	resp, _ = d.dispatch(context.Background(), c, "ANSWER a b")
	if resp != "FAIL Usage: ANSWER <letter> | ANSWER <room> <index> <letter>" {
		t.Fatalf("two-space answer should be rejected, got %q", resp)
	}
}

func TestHandlePractice_TopicListThenQuestion(t *testing.T) {
	d, _ := newTestDispatcher()
	c := loginAs(t, d, store.RoleStudent)

	resp, _ := d.dispatch(context.Background(), c, "PRACTICE")
	if resp != "TOPICS math:1" {
		t.Fatalf("topic list: got %q", resp)
	}

	resp, _ = d.dispatch(context.Background(), c, "PRACTICE math")
	if resp[:12] != "PRACTICE_Q 1" {
		t.Fatalf("practice question: got %q", resp)
	}
	if c.practiceQuestionID != 1 || c.practiceCorrectLetter != "B" {
		t.Fatalf("practice state not stashed: %+v", c)
	}
}
