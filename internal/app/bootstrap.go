package app

import (
	"context"
	"fmt"
	"sync"

	"testserver/internal/auth"
	"testserver/internal/logsink"
	"testserver/internal/room"
	"testserver/internal/security/password"
	"testserver/internal/session"
	"testserver/internal/store"
	"testserver/internal/timer"
)

// App wires every collaborator a running server needs: the durable
// store, the password/auth stack, the in-memory room registry, the
// timer sweep, and the session dispatcher that fronts accepted
// connections. One App is built once at startup and torn down once on
// shutdown.
type App struct {
	cfg  Config
	log  Logger
	st   *store.Store
	sink *logsink.Sink
	reg  *room.Registry
	timer *timer.Loop
	disp  *session.Dispatcher
}

// Bootstrap opens the store, rehydrates any rooms left over from a prior
// run, and wires the timer loop and session dispatcher around them. The
// returned App is ready for Run.
func Bootstrap(ctx context.Context, cfg Config, log Logger) (*App, error) {
	st, err := store.Open(ctx, cfg.DBPath, cfg.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("app: open store: %w", err)
	}

	sink, err := logsink.Open(cfg.LogFile, log)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("app: open log sink: %w", err)
	}

	hasher, err := password.FromEnv()
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("app: password config: %w", err)
	}
	authn := auth.New(st, hasher, cfg.AdminSecret)

	reg := room.NewRegistry(cfg.MaxRooms)
	if err := rehydrate(ctx, st, reg, log); err != nil {
		st.Close()
		return nil, fmt.Errorf("app: rehydrate rooms: %w", err)
	}

	var mu sync.Mutex
	tloop := timer.New(&mu, reg, st, log, sink, cfg.TimerGraceSeconds, cfg.TimerSweepInterval)
	disp := session.NewDispatcher(&mu, reg, st, authn, log, sink)

	return &App{cfg: cfg, log: log, st: st, sink: sink, reg: reg, timer: tloop, disp: disp}, nil
}

// Close releases the store and log sink. Safe to call once after Run
// returns.
func (a *App) Close() error {
	a.sink.Close()
	return a.st.Close()
}

// rehydrate rebuilds the in-memory registry from every room the store
// still considers unfinished, so a restart doesn't lose in-progress
// rooms. Participants are reconstructed with their persisted score and
// answer vector; a participant with no result row keeps Score -1 and
// picks up the timer sweep normally.
func rehydrate(ctx context.Context, st *store.Store, reg *room.Registry, log Logger) error {
	rooms, err := st.LoadAllRooms(ctx)
	if err != nil {
		return err
	}

	for _, durable := range rooms {
		questions, err := st.GetRoomQuestions(ctx, durable.ID)
		if err != nil {
			return fmt.Errorf("room %q: load questions: %w", durable.Name, err)
		}

		ownerName, err := st.GetUsernameByID(ctx, durable.OwnerID)
		if err != nil {
			return fmt.Errorf("room %q: resolve owner: %w", durable.Name, err)
		}

		r := &room.Room{
			ID:              durable.ID,
			Name:            durable.Name,
			OwnerID:         durable.OwnerID,
			OwnerName:       ownerName,
			DurationSeconds: durable.DurationSeconds,
			Started:         durable.Started,
			Finished:        durable.Finished,
			Questions:       questions,
		}

		rows, err := st.LoadRoomParticipants(ctx, durable.ID, len(questions))
		if err != nil {
			return fmt.Errorf("room %q: load participants: %w", durable.Name, err)
		}
		for _, row := range rows {
			r.Participants = append(r.Participants, &room.Participant{
				ParticipantID: row.ParticipantID,
				UserID:        row.UserID,
				Username:      row.Username,
				Answers:       row.Answers,
				Score:         row.Score,
				StartTime:     row.JoinedAt,
			})
		}

		if err := reg.Add(r); err != nil {
			log.Warn("app.rehydrate.skip", "room", durable.Name, "err", err)
			continue
		}
		log.Info("app.rehydrate.room", "room", durable.Name, "participants", len(r.Participants))
	}
	return nil
}
