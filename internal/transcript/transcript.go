// Package transcript writes an append-only NDJSON trail of each session's
// messages, one file per session, from a background goroutine.
package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Config controls transcript logging.
type Config struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Event is one transcript line.
type Event struct {
	Timestamp string         `json:"ts"`
	SessionID string         `json:"session_id"`
	EventType string         `json:"event_type"`
	Sender    string         `json:"sender,omitempty"`
	MessageID string         `json:"message_id,omitempty"`
	Content   string         `json:"content"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// Logger records transcript events.
type Logger interface {
	Log(event Event)
	Close() error
}

// New returns a file-backed logger, or a no-op logger when disabled.
func New(cfg Config, logger *slog.Logger) (Logger, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("transcript dir is empty")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &fileLogger{
		dir:    cfg.Dir,
		queue:  make(chan Event, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
	l.wg.Add(1)
	go l.run()
	return l, nil
}

// Noop discards every event.
type Noop struct{}

// Log implements Logger.
func (Noop) Log(Event) {}

// Close implements Logger.
func (Noop) Close() error { return nil }

type fileLogger struct {
	dir    string
	queue  chan Event
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
}

// Log queues an event without blocking. When the queue is full the oldest
// queued event is dropped to make room.
func (l *fileLogger) Log(event Event) {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	event.Content = cleanForReadability(event.Content)

	select {
	case <-l.ctx.Done():
		return
	default:
	}

	select {
	case l.queue <- event:
		return
	default:
	}

	l.logger.Warn("Transcript queue full, dropping oldest event", "queue_len", len(l.queue))
	select {
	case <-l.queue:
	default:
	}
	select {
	case l.queue <- event:
	default:
		l.logger.Warn("Transcript event dropped", "session_id", event.SessionID)
	}
}

func (l *fileLogger) run() {
	defer l.wg.Done()
	for {
		select {
		case <-l.ctx.Done():
			// Flush what is already queued before exiting.
			for {
				select {
				case event := <-l.queue:
					l.write(event)
				default:
					return
				}
			}
		case event := <-l.queue:
			l.write(event)
		}
	}
}

func (l *fileLogger) write(event Event) {
	path := filepath.Join(l.dir, safeName(event.SessionID)+".ndjson")
	line, err := json.Marshal(event)
	if err != nil {
		l.logger.Warn("Failed to encode transcript event", "error", err)
		return
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		l.logger.Warn("Failed to open transcript file", "path", path, "error", err)
		return
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			l.logger.Warn("Failed to close transcript file", "path", path, "error", closeErr)
		}
	}()

	if _, err := f.Write(append(line, '\n')); err != nil {
		l.logger.Warn("Failed to write transcript event", "path", path, "error", err)
	}
}

// Close stops the writer after flushing queued events, waiting at most five seconds.
func (l *fileLogger) Close() error {
	l.closeOnce.Do(func() {
		l.cancel()
		done := make(chan struct{})
		go func() {
			l.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			l.logger.Warn("Transcript writer shutdown timeout", "queue_remaining", len(l.queue))
		}
	})
	return nil
}

var (
	ansiPattern     = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
	unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

// cleanForReadability strips terminal escape sequences and control bytes a
// terminal session may have pasted into the input.
func cleanForReadability(s string) string {
	s = ansiPattern.ReplaceAllString(s, "")
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

func safeName(sessionID string) string {
	name := unsafeNameChars.ReplaceAllString(sessionID, "_")
	if name == "" {
		return "session"
	}
	return name
}
