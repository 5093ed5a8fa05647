// Package logsink is the fire-and-forget flat-file log writer called out
// in the system's external collaborators: one best-effort line per
// notable action, independent of the structured app logger and of the
// store's own logs table.
package logsink

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Sink appends timestamped lines to a flat text file. A nil *os.File (no
// TESTSERVER_LOG_FILE configured) makes every Append a silent no-op.
type Sink struct {
	mu   sync.Mutex
	file *os.File
	log  *slog.Logger
}

// Open opens path for appending, creating it if necessary. An empty path
// returns a Sink whose Append does nothing, so callers never need to
// branch on whether logging to a file is configured.
func Open(path string, log *slog.Logger) (*Sink, error) {
	if path == "" {
		return &Sink{log: log}, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("logsink: open %s: %w", path, err)
	}
	return &Sink{file: f, log: log}, nil
}

// Append writes one "YYYY-MM-DD HH:MM:SS - <event>" line. Write failures
// are logged through the app logger and otherwise swallowed: a log sink
// must never be able to fail the command that triggered it.
func (s *Sink) Append(event string) {
	if s == nil || s.file == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	line := fmt.Sprintf("%s - %s\n", time.Now().Format("2006-01-02 15:04:05"), event)
	if _, err := s.file.WriteString(line); err != nil && s.log != nil {
		s.log.Error("logsink.append.fail", "err", err)
	}
}

// Close releases the underlying file handle, if any.
func (s *Sink) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	return s.file.Close()
}
