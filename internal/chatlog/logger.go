// Package chatlog appends conversation turns to per-session NDJSON
// files. Writes go through a bounded queue so a slow disk never stalls
// the conversation; when the queue is full the turn is dropped with a
// warning.
package chatlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mjansen/bijleslab/internal/tutor"
)

type Config struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Entry is one logged conversation turn.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
}

// Logger writes entries asynchronously. A disabled logger accepts and
// discards everything, so callers never need a nil check.
type Logger struct {
	cfg   Config
	log   *slog.Logger
	queue chan Entry

	closeOnce sync.Once
	done      chan struct{}
}

func New(cfg Config, log *slog.Logger) (*Logger, error) {
	if log == nil {
		log = slog.Default()
	}
	l := &Logger{cfg: cfg, log: log, done: make(chan struct{})}
	if !cfg.Enabled {
		close(l.done)
		return l, nil
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("chatlog: dir is required when enabled")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("chatlog: create dir: %w", err)
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 256
	}
	l.queue = make(chan Entry, size)
	go l.run()
	return l, nil
}

// Record implements the session manager's recorder hook.
func (l *Logger) Record(sessionID string, msg tutor.Message) {
	if !l.cfg.Enabled {
		return
	}
	entry := Entry{
		Timestamp: time.Now().UTC(),
		SessionID: sessionID,
		Role:      msg.Role,
		Text:      msg.Text,
	}
	select {
	case l.queue <- entry:
	default:
		l.log.Warn("chat log queue full, dropping turn", "session_id", sessionID)
	}
}

// Close drains the queue and stops the writer.
func (l *Logger) Close() error {
	if !l.cfg.Enabled {
		return nil
	}
	l.closeOnce.Do(func() { close(l.queue) })
	<-l.done
	return nil
}

func (l *Logger) run() {
	defer close(l.done)
	for entry := range l.queue {
		if err := l.append(entry); err != nil {
			l.log.Warn("chat log write failed", "session_id", entry.SessionID, "error", err)
		}
	}
}

func (l *Logger) append(entry Entry) error {
	path := filepath.Join(l.cfg.Dir, entry.SessionID+".ndjson")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = f.Write(data)
	return err
}
