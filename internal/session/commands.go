package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"testserver/internal/auth"
	"testserver/internal/room"
	"testserver/internal/selector"
	"testserver/internal/store"
)

var difficultyName = map[int64]string{
	store.DifficultyEasy:   "easy",
	store.DifficultyMedium: "medium",
	store.DifficultyHard:   "hard",
}

var difficultyIDByName = map[string]int64{
	"easy":   store.DifficultyEasy,
	"medium": store.DifficultyMedium,
	"hard":   store.DifficultyHard,
}

func (d *Dispatcher) handleRegister(ctx context.Context, rest string) string {
	fields := strings.Fields(rest)
	if len(fields) < 2 {
		return "FAIL Usage: REGISTER <username> <password> [role] [code]"
	}
	name, pass := fields[0], fields[1]
	role, code := "", ""
	if len(fields) >= 3 {
		role = fields[2]
	}
	if len(fields) >= 4 {
		code = fields[3]
	}

	_, err := d.auth.Register(ctx, name, pass, role, code)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrWrongAdminSecret):
			return "FAIL Invalid Admin Secret Code!"
		case errors.Is(err, store.ErrAlreadyExists):
			return "FAIL User already exists"
		default:
			d.log.Error("register.fail", "err", err)
			return "FAIL Server error"
		}
	}
	return "SUCCESS Registered. Please login."
}

func (d *Dispatcher) handleLogin(ctx context.Context, c *conn, rest string) string {
	fields := strings.Fields(rest)
	if len(fields) != 2 {
		return "FAIL Usage: LOGIN <username> <password>"
	}

	id, err := d.auth.Login(ctx, fields[0], fields[1])
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return "FAIL Invalid credentials"
		}
		d.log.Error("login.fail", "err", err)
		return "FAIL Server error"
	}

	c.authenticated = true
	c.username = id.Username
	c.userID = id.UserID
	c.role = id.Role
	return "SUCCESS " + id.Role
}

func (d *Dispatcher) handleCreate(ctx context.Context, c *conn, rest string) string {
	fields := strings.Fields(rest)
	if len(fields) < 3 {
		return "FAIL Usage: CREATE <name> <numQuestions> <durationSeconds> [TOPICS ...] [DIFFICULTIES ...]"
	}
	name := fields[0]
	numQ, err1 := strconv.Atoi(fields[1])
	dur, err2 := strconv.Atoi(fields[2])
	if err1 != nil || err2 != nil {
		return "FAIL Usage: CREATE <name> <numQuestions> <durationSeconds> [TOPICS ...] [DIFFICULTIES ...]"
	}
	if numQ < 1 || numQ > 50 {
		return "FAIL numQuestions must be between 1 and 50"
	}
	if dur < 10 || dur > 86400 {
		return "FAIL duration must be between 10 and 86400 seconds"
	}
	if d.reg.Find(name) != nil {
		return "FAIL Room already exists"
	}

	topicFilter, diffFilter := parseCreateFilters(strings.Join(fields[3:], " "))

	questions, err := selector.Select(ctx, d.st, numQ, topicFilter, diffFilter)
	if err != nil {
		return "FAIL Invalid topic/difficulty distribution"
	}
	if len(questions) == 0 {
		return "FAIL No questions match your criteria"
	}
	if len(questions) > 50 {
		questions = questions[:50]
	}

	roomID, err := d.st.CreateRoom(ctx, name, c.userID, dur)
	if err != nil {
		d.log.Error("create.room.fail", "err", err)
		return "FAIL Server error"
	}
	for i, q := range questions {
		if err := d.st.AddQuestionToRoom(ctx, roomID, q.ID, i); err != nil {
			d.log.Error("create.add_question.fail", "err", err)
			return "FAIL Server error"
		}
	}

	r := &room.Room{
		ID:              roomID,
		Name:            name,
		OwnerID:         c.userID,
		OwnerName:       c.username,
		DurationSeconds: dur,
		Questions:       questions,
	}
	if err := d.reg.Add(r); err != nil {
		return "FAIL Server error"
	}

	d.st.InsertLog(ctx, d.log, c.username, "room.create", name)
	d.sink.Append(fmt.Sprintf("room created name=%s owner=%s questions=%d", name, c.username, len(questions)))
	return fmt.Sprintf("SUCCESS Room created: %s (%d questions)", name, len(questions))
}

// parseCreateFilters splits the trailing "[TOPICS ...] [DIFFICULTIES ...]"
// portion of a CREATE command into its two filter strings.
func parseCreateFilters(rest string) (topicFilter, diffFilter string) {
	if idx := strings.Index(rest, "DIFFICULTIES"); idx >= 0 {
		diffFilter = strings.TrimSpace(rest[idx+len("DIFFICULTIES"):])
		rest = rest[:idx]
	}
	if idx := strings.Index(rest, "TOPICS"); idx >= 0 {
		topicFilter = strings.TrimSpace(rest[idx+len("TOPICS"):])
	}
	return topicFilter, diffFilter
}

func (d *Dispatcher) handleList() string {
	var lines []string
	d.reg.ForEach(func(r *room.Room) {
		lines = append(lines, fmt.Sprintf("- %s (Owner: %s, Q: %d, Time: %ds)", r.Name, r.OwnerName, len(r.Questions), r.DurationSeconds))
	})
	if len(lines) == 0 {
		return "SUCCESS No active rooms"
	}
	return "SUCCESS " + strings.Join(lines, "|")
}

func (d *Dispatcher) handleJoin(ctx context.Context, c *conn, rest string) string {
	name := strings.TrimSpace(rest)
	if name == "" {
		return "FAIL Usage: JOIN <room>"
	}
	r := d.reg.Find(name)
	if r == nil {
		return "FAIL Room not found"
	}

	participantID, err := d.st.SaveParticipant(ctx, r.ID, c.userID)
	if err != nil {
		d.log.Error("join.save_participant.fail", "err", err)
		return "FAIL Server error"
	}

	now := time.Now()
	p := r.Join(participantID, c.userID, c.username, now)
	remaining := r.RemainingSeconds(p, now)
	return fmt.Sprintf("SUCCESS Joined %d %d", len(r.Questions), remaining)
}

func (d *Dispatcher) handleGetQuestion(c *conn, rest string) string {
	fields := strings.Fields(rest)
	if len(fields) != 2 {
		return "FAIL Usage: GET_QUESTION <room> <index>"
	}
	r := d.reg.Find(fields[0])
	if r == nil {
		return "FAIL Room not found"
	}
	idx, err := strconv.Atoi(fields[1])
	if err != nil || idx < 0 || idx >= len(r.Questions) {
		return "FAIL No question found"
	}
	p := r.FindParticipant(c.username)
	if p == nil {
		return "FAIL Not in room or submitted"
	}

	q := r.Questions[idx]
	selection := byte(' ')
	if idx < len(p.Answers) && p.Answers[idx] != '.' {
		selection = p.Answers[idx]
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s [Your Selection: %c]", q.Prompt, q.OptionA, q.OptionB, q.OptionC, q.OptionD, selection)
}

// handleAnswer implements the load-bearing space-count disambiguation
// rule: exactly one space in the raw line means a practice answer,
// three or more means an in-room answer.
func (d *Dispatcher) handleAnswer(ctx context.Context, c *conn, line, rest string) string {
	spaces := strings.Count(line, " ")
	switch {
	case spaces == 1:
		return d.handlePracticeAnswer(c, rest)
	case spaces >= 3:
		fields := strings.Fields(rest)
		if len(fields) < 3 {
			return "FAIL Usage: ANSWER <room> <index> <letter>"
		}
		return d.handleRoomAnswer(ctx, c, fields[0], fields[1], fields[2])
	default:
		return "FAIL Usage: ANSWER <letter> | ANSWER <room> <index> <letter>"
	}
}

func (d *Dispatcher) handlePracticeAnswer(c *conn, letterRaw string) string {
	if c.practiceQuestionID == 0 {
		return "FAIL No practice question active"
	}
	letter := strings.ToUpper(strings.TrimSpace(letterRaw))
	correct := c.practiceCorrectLetter
	c.practiceQuestionID = 0
	c.practiceCorrectLetter = ""

	if letter == correct {
		return "CORRECT"
	}
	return "WRONG|" + correct
}

func (d *Dispatcher) handleRoomAnswer(ctx context.Context, c *conn, name, idxStr, letterStr string) string {
	r := d.reg.Find(name)
	if r == nil {
		return "FAIL Room not found"
	}
	p := r.FindParticipant(c.username)
	if p == nil {
		return "FAIL Not in room or submitted"
	}
	if p.Score != -1 {
		return "FAIL Not in room or submitted"
	}

	idx, err := strconv.Atoi(idxStr)
	if err != nil || idx < 0 || idx >= len(p.Answers) {
		return "FAIL Invalid question index"
	}
	letter := strings.ToUpper(strings.TrimSpace(letterStr))
	if len(letter) != 1 || letter[0] < 'A' || letter[0] > 'D' {
		return "FAIL Usage: ANSWER <room> <index> <letter>"
	}

	p.Answers[idx] = letter[0]
	return "SUCCESS Answer recorded"
}

func (d *Dispatcher) handleSubmit(ctx context.Context, c *conn, rest string) string {
	fields := strings.SplitN(rest, " ", 2)
	if len(fields) != 2 {
		return "FAIL Usage: SUBMIT <room> <answers>"
	}
	name, answers := fields[0], fields[1]

	r := d.reg.Find(name)
	if r == nil {
		return "FAIL Room not found"
	}
	p := r.FindParticipant(c.username)
	if p == nil || p.Score != -1 {
		return "FAIL Not in room or submitted"
	}

	for i, ch := range strings.ToUpper(answers) {
		if i >= len(p.Answers) {
			break
		}
		if ch == '.' || (ch >= 'A' && ch <= 'D') {
			p.Answers[i] = byte(ch)
		}
	}

	score := r.Score(p)
	total := len(r.Questions)
	if err := d.persistSubmission(ctx, r, p, score, total); err != nil {
		d.log.Error("submit.persist.fail", "err", err, "room", name, "user", c.username)
		return "FAIL Server error"
	}
	p.Score = score

	d.st.InsertLog(ctx, d.log, c.username, "room.submit", fmt.Sprintf("%s score=%d/%d", name, score, total))
	d.sink.Append(fmt.Sprintf("submit user=%s room=%s score=%d/%d", c.username, name, score, total))
	return fmt.Sprintf("SUCCESS Score: %d/%d", score, total)
}

func (d *Dispatcher) persistSubmission(ctx context.Context, r *room.Room, p *room.Participant, score, total int) error {
	for i, q := range r.Questions {
		if i >= len(p.Answers) || p.Answers[i] == '.' {
			continue
		}
		correct := p.Answers[i] == q.Correct[0]
		if err := d.st.SaveAnswer(ctx, p.ParticipantID, q.ID, string(p.Answers[i]), correct); err != nil {
			return err
		}
	}
	return d.st.SaveResult(ctx, p.ParticipantID, r.ID, score, total, score)
}

func (d *Dispatcher) handleResults(c *conn, rest string) string {
	name := strings.TrimSpace(rest)
	r := d.reg.Find(name)
	if r == nil {
		return "FAIL Room not found"
	}
	p := r.FindParticipant(c.username)
	if p == nil {
		return "FAIL Not in room or submitted"
	}

	history := make([]string, 0, len(p.History))
	for _, s := range p.History {
		history = append(history, strconv.Itoa(s))
	}
	current := "in progress"
	if p.Score >= 0 {
		current = fmt.Sprintf("%d/%d", p.Score, len(r.Questions))
	}
	return fmt.Sprintf("SUCCESS History: %s|Current: %s", strings.Join(history, ","), current)
}

func (d *Dispatcher) handlePreview(c *conn, rest string) string {
	name := strings.TrimSpace(rest)
	r := d.reg.Find(name)
	if r == nil {
		return "FAIL Room not found"
	}
	if c.role != "admin" || r.OwnerID != c.userID {
		return "FAIL Not authorized"
	}

	lines := make([]string, 0, len(r.Questions))
	for _, q := range r.Questions {
		lines = append(lines, fmt.Sprintf("%d|%s|%s|%s|%s|%s|%s", q.ID, q.Prompt, q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.Correct))
	}
	return "SUCCESS " + strings.Join(lines, ";")
}

func (d *Dispatcher) handleDelete(ctx context.Context, c *conn, rest string) string {
	name := strings.TrimSpace(rest)
	r := d.reg.Find(name)
	if r == nil {
		return "FAIL Room not found"
	}
	if c.role != "admin" || r.OwnerID != c.userID {
		return "FAIL Not authorized"
	}

	if err := d.st.DeleteRoom(ctx, r.ID); err != nil {
		d.log.Error("delete.room.fail", "err", err)
		return "FAIL Server error"
	}
	d.reg.Remove(name)
	d.st.InsertLog(ctx, d.log, c.username, "room.delete", name)
	return "SUCCESS Room deleted"
}

func (d *Dispatcher) handleLeaderboard(ctx context.Context, rest string) string {
	name := strings.TrimSpace(rest)
	r := d.reg.Find(name)
	if r == nil {
		return "FAIL Room not found"
	}

	rows, err := d.st.GetLeaderboard(ctx, r.ID)
	if err != nil {
		d.log.Error("leaderboard.fail", "err", err)
		return "FAIL Server error"
	}

	lines := []string{"Rank|Username|Score|Total"}
	for i, row := range rows {
		lines = append(lines, fmt.Sprintf("%d|%s|%d|%d", i+1, row.Username, row.Score, row.Total))
	}
	return strings.Join(lines, ";")
}

func (d *Dispatcher) handlePractice(ctx context.Context, c *conn, rest string) string {
	topic := strings.TrimSpace(rest)
	if topic == "" {
		counts, err := d.st.GetAllTopicsWithCounts(ctx)
		if err != nil {
			d.log.Error("practice.topics.fail", "err", err)
			return "FAIL Server error"
		}
		parts := make([]string, 0, len(counts))
		for _, tc := range counts {
			parts = append(parts, fmt.Sprintf("%s:%d", tc.Name, tc.Count))
		}
		return "TOPICS " + strings.Join(parts, "|")
	}

	topic = strings.ToLower(topic)
	topicID, err := d.st.GetTopicID(ctx, topic)
	if err != nil {
		return "FAIL Unknown topic"
	}
	qs, err := d.st.GetRandomFilteredQuestions(ctx, []int64{topicID}, nil, 1)
	if err != nil {
		d.log.Error("practice.question.fail", "err", err)
		return "FAIL Server error"
	}
	if len(qs) == 0 {
		return "FAIL No question found"
	}

	q := qs[0]
	c.practiceQuestionID = q.ID
	c.practiceCorrectLetter = q.Correct
	return fmt.Sprintf("PRACTICE_Q %d|%s|%s|%s|%s|%s|%s|%s", q.ID, q.Prompt, q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.Correct, topic)
}

func (d *Dispatcher) handleGetTopics(ctx context.Context) string {
	counts, err := d.st.GetAllTopicsWithCounts(ctx)
	if err != nil {
		d.log.Error("get_topics.fail", "err", err)
		return "FAIL Server error"
	}
	parts := make([]string, 0, len(counts))
	for _, tc := range counts {
		parts = append(parts, fmt.Sprintf("%s:%d", tc.Name, tc.Count))
	}
	return "SUCCESS " + strings.Join(parts, "|")
}

func (d *Dispatcher) handleGetDifficulties(ctx context.Context) string {
	counts, err := d.st.GetAllDifficultiesWithCounts(ctx)
	if err != nil {
		d.log.Error("get_difficulties.fail", "err", err)
		return "FAIL Server error"
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].ID < counts[j].ID })
	parts := make([]string, 0, len(counts))
	for _, dc := range counts {
		parts = append(parts, fmt.Sprintf("%s:%d", dc.Name, dc.Count))
	}
	return "SUCCESS " + strings.Join(parts, "|")
}

func (d *Dispatcher) handleGetDifficultiesForTopics(ctx context.Context, rest string) string {
	var topicIDs []int64
	for _, tok := range strings.Fields(rest) {
		name, _, _ := strings.Cut(tok, ":")
		name = strings.ToLower(strings.TrimSpace(name))
		if id, err := d.st.GetTopicID(ctx, name); err == nil {
			topicIDs = append(topicIDs, id)
		}
	}
	if len(topicIDs) == 0 {
		return "SUCCESS easy:0|medium:0|hard:0"
	}

	byTopic, err := d.st.CountDifficultiesForTopics(ctx, topicIDs)
	if err != nil {
		d.log.Error("get_difficulties_for_topics.fail", "err", err)
		return "FAIL Server error"
	}
	totals := map[int64]int{store.DifficultyEasy: 0, store.DifficultyMedium: 0, store.DifficultyHard: 0}
	for _, perDiff := range byTopic {
		for diffID, n := range perDiff {
			totals[diffID] += n
		}
	}
	return fmt.Sprintf("SUCCESS easy:%d|medium:%d|hard:%d",
		totals[store.DifficultyEasy], totals[store.DifficultyMedium], totals[store.DifficultyHard])
}

func (d *Dispatcher) handleAddQuestion(ctx context.Context, c *conn, rest string) string {
	fields := strings.Split(rest, "|")
	if len(fields) != 8 {
		return "FAIL Usage: ADD_QUESTION text|A|B|C|D|correct|topic|difficulty"
	}
	prompt, a, b, cc, dd := fields[0], fields[1], fields[2], fields[3], fields[4]
	correct := strings.ToUpper(strings.TrimSpace(fields[5]))
	topic := strings.ToLower(strings.TrimSpace(fields[6]))
	diffName := strings.ToLower(strings.TrimSpace(fields[7]))

	if len(correct) != 1 || correct[0] < 'A' || correct[0] > 'D' {
		return "FAIL Invalid correct answer"
	}
	diffID, ok := difficultyIDByName[diffName]
	if !ok {
		return "FAIL Invalid difficulty"
	}

	creatorID := c.userID
	q := store.Question{
		Prompt: prompt, OptionA: a, OptionB: b, OptionC: cc, OptionD: dd,
		Correct: correct, TopicName: topic, DifficultyID: diffID, CreatorID: &creatorID,
	}
	id, err := d.st.AddQuestion(ctx, q)
	if err != nil {
		if errors.Is(err, store.ErrInvalidDifficulty) {
			return "FAIL Invalid difficulty"
		}
		d.log.Error("add_question.fail", "err", err)
		return "FAIL Server error"
	}
	return fmt.Sprintf("SUCCESS Question added: %d", id)
}

func (d *Dispatcher) handleSearchQuestions(ctx context.Context, rest string) string {
	fields := strings.Fields(rest)
	if len(fields) < 2 {
		return "FAIL Usage: SEARCH_QUESTIONS id|topic|difficulty value"
	}
	kind, value := strings.ToLower(fields[0]), strings.Join(fields[1:], " ")

	var qs []store.Question
	switch kind {
	case "id":
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return "FAIL Usage: SEARCH_QUESTIONS id <id>"
		}
		q, err := d.st.GetQuestionByID(ctx, id)
		if err != nil {
			return "FAIL No question found"
		}
		qs = []store.Question{q}
	case "topic":
		found, err := d.st.SearchQuestionsByTopic(ctx, strings.ToLower(strings.TrimSpace(value)))
		if err != nil {
			d.log.Error("search_questions.fail", "err", err)
			return "FAIL Server error"
		}
		qs = found
	case "difficulty":
		diffID, ok := difficultyIDByName[strings.ToLower(strings.TrimSpace(value))]
		if !ok {
			return "FAIL Invalid difficulty"
		}
		found, err := d.st.SearchQuestionsByDifficulty(ctx, diffID)
		if err != nil {
			d.log.Error("search_questions.fail", "err", err)
			return "FAIL Server error"
		}
		qs = found
	default:
		return "FAIL Usage: SEARCH_QUESTIONS id|topic|difficulty value"
	}

	if len(qs) == 0 {
		return "FAIL No question found"
	}
	lines := make([]string, 0, len(qs))
	for _, q := range qs {
		lines = append(lines, fmt.Sprintf("%d|%s|%s|%s|%s|%s|%s|%s|%s",
			q.ID, q.Prompt, q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.Correct, q.TopicName, difficultyName[q.DifficultyID]))
	}
	return "SUCCESS " + strings.Join(lines, ";")
}

func (d *Dispatcher) handleDeleteQuestion(ctx context.Context, rest string) string {
	id, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
	if err != nil {
		return "FAIL Usage: DELETE_QUESTION <id>"
	}
	if err := d.st.DeleteQuestion(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "FAIL No question found"
		}
		d.log.Error("delete_question.fail", "err", err)
		return "FAIL Server error"
	}
	return "SUCCESS Question deleted"
}
