package store

import (
	"context"
	"log/slog"
	"strings"
)

// InsertLog writes a best-effort audit row. Failures are logged and
// swallowed rather than returned: a log row is never allowed to fail the
// command that triggered it.
func (s *Store) InsertLog(ctx context.Context, log *slog.Logger, username, event, detail string) {
	event = strings.TrimSpace(event)
	if event == "" {
		return
	}

	var usernameVal any
	if v := strings.TrimSpace(username); v != "" {
		usernameVal = v
	}
	var detailVal any
	if v := strings.TrimSpace(detail); v != "" {
		detailVal = v
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (username, event, detail) VALUES (?, ?, ?)`,
		usernameVal, event, detailVal)
	if err != nil && log != nil {
		log.Error("store.log.insert.fail", "err", err, "event", event)
	}
}
