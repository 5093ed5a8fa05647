// Package session implements the per-connection state machine described by
// the wire protocol: a line-delimited command parser, authenticated
// connection state, and the dispatch table that turns one parsed command
// into exactly one framed response line.
package session

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"testserver/internal/auth"
	"testserver/internal/idgen"
	"testserver/internal/logsink"
	"testserver/internal/metrics"
	"testserver/internal/room"
	"testserver/internal/selector"
	"testserver/internal/store"
)

// maxRequestBytes bounds a single line per the wire protocol's stated
// maximum request size.
const maxRequestBytes = 8192

// Store is the slice of the store this package depends on. It is a
// superset of selector.QuestionSource so a *store.Store satisfies both
// with no adapter.
type Store interface {
	selector.QuestionSource

	AddQuestion(ctx context.Context, q store.Question) (int64, error)
	DeleteQuestion(ctx context.Context, id int64) error
	GetAllDifficultiesWithCounts(ctx context.Context) ([]store.DifficultyCount, error)
	GetQuestionByID(ctx context.Context, id int64) (store.Question, error)
	SearchQuestionsByTopic(ctx context.Context, topicName string) ([]store.Question, error)
	SearchQuestionsByDifficulty(ctx context.Context, difficultyID int64) ([]store.Question, error)

	CreateRoom(ctx context.Context, name string, ownerID int64, durationSeconds int) (int64, error)
	AddQuestionToRoom(ctx context.Context, roomID, questionID int64, position int) error
	GetRoomIDByName(ctx context.Context, name string) (int64, error)
	DeleteRoom(ctx context.Context, roomID int64) error

	SaveParticipant(ctx context.Context, roomID, userID int64) (int64, error)
	SaveAnswer(ctx context.Context, participantID, questionID int64, choice string, isCorrect bool) error
	SaveResult(ctx context.Context, participantID, roomID int64, score, total, correct int) error
	GetLeaderboard(ctx context.Context, roomID int64) ([]store.LeaderboardRow, error)

	InsertLog(ctx context.Context, log *slog.Logger, username, event, detail string)
}

// Authenticator is the slice of auth.Auth this package depends on.
type Authenticator interface {
	Register(ctx context.Context, name, pass, role, code string) (int64, error)
	Login(ctx context.Context, name, pass string) (auth.Identity, error)
}

// Dispatcher holds everything one connection's command loop needs: the
// shared global lock (see the concurrency model), the in-memory room
// registry, and the store/auth collaborators. One Dispatcher is shared
// across every connection.
type Dispatcher struct {
	mu   *sync.Mutex
	reg  *room.Registry
	st   Store
	auth Authenticator
	log  *slog.Logger
	sink *logsink.Sink
}

// NewDispatcher wires a Dispatcher. mu must be the same lock the timer
// loop acquires before touching reg or st.
func NewDispatcher(mu *sync.Mutex, reg *room.Registry, st Store, authn Authenticator, log *slog.Logger, sink *logsink.Sink) *Dispatcher {
	return &Dispatcher{mu: mu, reg: reg, st: st, auth: authn, log: log, sink: sink}
}

// conn is the per-connection state the protocol calls out by name.
type conn struct {
	authenticated bool
	username      string
	userID        int64
	role          string

	practiceQuestionID    int64
	practiceCorrectLetter string
}

// Handle owns one accepted connection end to end: it reads framed lines
// until EOF, a protocol violation, or an EXIT, dispatching each under the
// dispatcher's global lock and writing back exactly one response line per
// request.
func (d *Dispatcher) Handle(ctx context.Context, nc net.Conn) {
	connID := idgen.NewConnID()
	metrics.ConnectionsTotal.Inc()
	metrics.ConnectionsActive.Inc()
	defer metrics.ConnectionsActive.Dec()
	defer nc.Close()

	log := d.log.With("conn_id", connID)
	log.Info("session.connect", "remote", nc.RemoteAddr().String())
	defer log.Info("session.disconnect")

	w := bufio.NewWriter(nc)
	scanner := bufio.NewScanner(nc)
	scanner.Buffer(make([]byte, 0, maxRequestBytes), maxRequestBytes)

	c := &conn{}
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		start := time.Now()
		verb := firstWord(line)
		resp, shouldClose := d.dispatch(ctx, c, line)
		d.recordMetric(verb, resp, time.Since(start))
		log.Info("session.command", "command", verb, "user", c.username, "result", resultLabel(resp), "duration_ms", time.Since(start).Milliseconds())

		if _, err := w.WriteString(resp + "\n"); err != nil {
			return
		}
		if err := w.Flush(); err != nil {
			return
		}
		if shouldClose {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			w.WriteString("FAIL Request too large\n")
			w.Flush()
		}
		log.Warn("session.read.fail", "err", err)
	}
}

func (d *Dispatcher) recordMetric(verb, resp string, dur time.Duration) {
	result := "fail"
	if strings.HasPrefix(resp, "SUCCESS") {
		result = "success"
	}
	metrics.CommandsTotal.WithLabelValues(verb, result).Inc()
	metrics.CommandDuration.WithLabelValues(verb).Observe(dur.Seconds())
}

func resultLabel(resp string) string {
	switch {
	case strings.HasPrefix(resp, "SUCCESS"):
		return "success"
	case strings.HasPrefix(resp, "FAIL"):
		return "fail"
	default:
		return "other"
	}
}

func firstWord(line string) string {
	if i := strings.IndexByte(line, ' '); i >= 0 {
		return strings.ToUpper(line[:i])
	}
	return strings.ToUpper(line)
}

// dispatch parses and executes exactly one request line under the global
// lock, returning the response line (without its trailing \n) and whether
// the connection should be closed afterward.
func (d *Dispatcher) dispatch(ctx context.Context, c *conn, line string) (string, bool) {
	verb, rest := splitVerb(line)
	verb = strings.ToUpper(verb)

	switch verb {
	case "REGISTER":
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.handleRegister(ctx, rest), false
	case "LOGIN":
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.handleLogin(ctx, c, rest), false
	case "EXIT":
		return "SUCCESS Bye", true
	}

	if !c.authenticated {
		return "FAIL Please login first", false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	switch verb {
	case "CREATE":
		if c.role != store.RoleAdmin {
			return "FAIL Not authorized", false
		}
		return d.handleCreate(ctx, c, rest), false
	case "LIST":
		return d.handleList(), false
	case "JOIN":
		return d.handleJoin(ctx, c, rest), false
	case "GET_QUESTION":
		return d.handleGetQuestion(c, rest), false
	case "ANSWER":
		return d.handleAnswer(ctx, c, line, rest), false
	case "SUBMIT":
		return d.handleSubmit(ctx, c, rest), false
	case "RESULTS":
		return d.handleResults(c, rest), false
	case "PREVIEW":
		return d.handlePreview(c, rest), false
	case "DELETE":
		return d.handleDelete(ctx, c, rest), false
	case "LEADERBOARD":
		return d.handleLeaderboard(ctx, rest), false
	case "PRACTICE":
		return d.handlePractice(ctx, c, rest), false
	case "GET_TOPICS":
		return d.handleGetTopics(ctx), false
	case "GET_DIFFICULTIES":
		return d.handleGetDifficulties(ctx), false
	case "GET_DIFFICULTIES_FOR_TOPICS":
		return d.handleGetDifficultiesForTopics(ctx, rest), false
	case "ADD_QUESTION":
		if c.role != store.RoleAdmin {
			return "FAIL Not authorized", false
		}
		return d.handleAddQuestion(ctx, c, rest), false
	case "SEARCH_QUESTIONS":
		if c.role != store.RoleAdmin {
			return "FAIL Not authorized", false
		}
		return d.handleSearchQuestions(ctx, rest), false
	case "DELETE_QUESTION":
		if c.role != store.RoleAdmin {
			return "FAIL Not authorized", false
		}
		return d.handleDeleteQuestion(ctx, rest), false
	default:
		return "FAIL Unknown command", false
	}
}

// splitVerb splits "VERB rest of line" into its two parts. rest is "" if
// there is no space.
func splitVerb(line string) (verb, rest string) {
	if i := strings.IndexByte(line, ' '); i >= 0 {
		return line[:i], line[i+1:]
	}
	return line, ""
}
