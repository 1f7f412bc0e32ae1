// Package session keeps the local mirror of a tutoring session and
// serializes access to it. The backend owns the authoritative state;
// every state-bearing response replaces the mirror wholesale.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/mjansen/bijleslab/internal/client"
	"github.com/mjansen/bijleslab/internal/tutor"
)

var (
	ErrNoSession    = errors.New("session: no active session")
	ErrEmptyMessage = errors.New("session: message is empty")
	ErrEmptyAnswer  = errors.New("session: answer is empty")
	ErrNoExercise   = errors.New("session: no active exercise")
)

// API is the slice of the backend client the manager needs.
type API interface {
	CreateSession(ctx context.Context, tutorName string, cfg tutor.Config) (*tutor.Session, error)
	SendChat(ctx context.Context, sessionID, message string) (*client.ChatResult, error)
	CreateExercise(ctx context.Context, sessionID string) (*client.ExerciseResult, error)
	GenerateExercise(ctx context.Context, sessionID, skill, theme string) (*tutor.Exercise, error)
	SubmitAnswer(ctx context.Context, sessionID, answer string) (*tutor.AnswerOutcome, error)
	SetTheme(ctx context.Context, sessionID, theme string) (*tutor.State, error)
}

// Recorder receives a copy of every turn that lands in the mirror.
// The chat log implements it; a nil recorder disables logging.
type Recorder interface {
	Record(sessionID string, msg tutor.Message)
}

// Manager owns the client-side session state. All methods are safe for
// concurrent use. Responses that arrive after a newer request has been
// issued are dropped instead of clobbering fresher state.
type Manager struct {
	api      API
	log      *slog.Logger
	recorder Recorder

	mu        sync.Mutex
	sessionID string
	state     tutor.State
	seq       uint64 // last request number handed out
	applied   uint64 // request number of the state currently shown
}

func NewManager(api API, log *slog.Logger, recorder Recorder) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{api: api, log: log, recorder: recorder}
}

// Start creates a fresh backend session and replaces everything local:
// history, exercise, feedback and the stale-response counters.
func (m *Manager) Start(ctx context.Context, tutorName string, cfg tutor.Config) (*tutor.State, error) {
	session, err := m.api.CreateSession(ctx, tutorName, cfg)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionID = session.ID
	m.state = session.State
	m.seq = 0
	m.applied = 0
	return m.snapshotLocked(), nil
}

// SwitchTutor discards the running session and starts over with the
// requested tutor. The previous history does not carry over.
func (m *Manager) SwitchTutor(ctx context.Context, tutorName string) (*tutor.State, error) {
	m.mu.Lock()
	cfg := m.state.Config
	m.mu.Unlock()
	return m.Start(ctx, tutorName, cfg)
}

// Send submits a chat message. The user's turn is appended to the
// mirror before the request goes out so the conversation reads
// naturally; on failure the append is rolled back.
func (m *Manager) Send(ctx context.Context, message string) (reply string, err error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}

	m.mu.Lock()
	if m.sessionID == "" {
		m.mu.Unlock()
		return "", ErrNoSession
	}
	id := m.sessionID
	prev := m.state.ChatHistory
	m.state.ChatHistory = append(append([]tutor.Message(nil), prev...),
		tutor.Message{Role: tutor.RoleUser, Text: message})
	seq := m.nextSeqLocked()
	m.mu.Unlock()

	res, err := m.api.SendChat(ctx, id, message)
	if err != nil {
		m.mu.Lock()
		// Only roll back if nothing newer has landed in the meantime.
		if m.applied < seq {
			m.state.ChatHistory = prev
		}
		m.mu.Unlock()
		return "", err
	}

	m.applyState(seq, &res.State)
	m.record(id, tutor.Message{Role: tutor.RoleUser, Text: message})
	m.record(id, tutor.Message{Role: tutor.RoleTutor, Text: res.Reply})
	return res.Reply, nil
}

// RequestExercise asks the backend for an exercise using the session's
// own configuration.
func (m *Manager) RequestExercise(ctx context.Context) (*tutor.Exercise, error) {
	m.mu.Lock()
	if m.sessionID == "" {
		m.mu.Unlock()
		return nil, ErrNoSession
	}
	id := m.sessionID
	seq := m.nextSeqLocked()
	m.mu.Unlock()

	res, err := m.api.CreateExercise(ctx, id)
	if err != nil {
		return nil, err
	}
	m.applyState(seq, &res.State)
	return res.Exercise, nil
}

// GenerateExercise requests an exercise for an explicit skill and
// theme. The endpoint returns the exercise without a state envelope,
// so the mirror is updated locally.
func (m *Manager) GenerateExercise(ctx context.Context, skill, theme string) (*tutor.Exercise, error) {
	m.mu.Lock()
	if m.sessionID == "" {
		m.mu.Unlock()
		return nil, ErrNoSession
	}
	id := m.sessionID
	seq := m.nextSeqLocked()
	m.mu.Unlock()

	ex, err := m.api.GenerateExercise(ctx, id, skill, theme)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.applied <= seq {
		m.applied = seq
		m.state.CurrentExercise = ex
		m.state.CurrentExerciseID = ex.ID
		m.state.CurrentFeedback = ""
	} else {
		m.log.Debug("dropping stale exercise", "seq", seq, "applied", m.applied)
	}
	m.mu.Unlock()
	return ex, nil
}

// SubmitAnswer grades the active exercise. Empty answers never reach
// the network.
func (m *Manager) SubmitAnswer(ctx context.Context, answer string) (*tutor.AnswerOutcome, error) {
	if strings.TrimSpace(answer) == "" {
		return nil, ErrEmptyAnswer
	}

	m.mu.Lock()
	if m.sessionID == "" {
		m.mu.Unlock()
		return nil, ErrNoSession
	}
	if m.state.CurrentExercise == nil {
		m.mu.Unlock()
		return nil, ErrNoExercise
	}
	id := m.sessionID
	seq := m.nextSeqLocked()
	m.mu.Unlock()

	outcome, err := m.api.SubmitAnswer(ctx, id, answer)
	if err != nil {
		return nil, err
	}
	m.applyState(seq, &outcome.State)
	if outcome.SummaryMessage != "" {
		m.record(id, tutor.Message{Role: tutor.RoleTutor, Text: outcome.SummaryMessage})
	}
	return outcome, nil
}

// SetTheme changes the exercise theme for the running session.
func (m *Manager) SetTheme(ctx context.Context, theme string) (*tutor.State, error) {
	m.mu.Lock()
	if m.sessionID == "" {
		m.mu.Unlock()
		return nil, ErrNoSession
	}
	id := m.sessionID
	seq := m.nextSeqLocked()
	m.mu.Unlock()

	state, err := m.api.SetTheme(ctx, id, theme)
	if err != nil {
		return nil, err
	}
	m.applyState(seq, state)
	return m.State(), nil
}

// SessionID returns the backend session id, empty before Start.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// State returns a copy of the mirror.
func (m *Manager) State() *tutor.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// History returns a copy of the chat history.
func (m *Manager) History() []tutor.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tutor.Message(nil), m.state.ChatHistory...)
}

// ActiveExercise returns the pending exercise, or nil.
func (m *Manager) ActiveExercise() *tutor.Exercise {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CurrentExercise
}

func (m *Manager) nextSeqLocked() uint64 {
	m.seq++
	return m.seq
}

// applyState installs a server state unless a response from a newer
// request already landed.
func (m *Manager) applyState(seq uint64, state *tutor.State) {
	if state == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applied > seq {
		m.log.Debug("dropping stale state", "seq", seq, "applied", m.applied)
		return
	}
	m.applied = seq
	m.state = *state
}

func (m *Manager) snapshotLocked() *tutor.State {
	s := m.state
	s.ChatHistory = append([]tutor.Message(nil), m.state.ChatHistory...)
	return &s
}

func (m *Manager) record(sessionID string, msg tutor.Message) {
	if m.recorder == nil {
		return
	}
	m.recorder.Record(sessionID, msg)
}
