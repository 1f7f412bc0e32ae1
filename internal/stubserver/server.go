package stubserver

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/mjansen/bijleslab/internal/tutor"
)

// Server is the in-memory stub backend.
type Server struct {
	fixtures *Fixtures
	log      *slog.Logger
	origins  []string

	mu       sync.Mutex
	sessions map[string]*serverSession
}

type serverSession struct {
	persona  PersonaFixture
	state    tutor.State
	replyIdx int
	skillIdx map[string]int
}

func New(fixtures *Fixtures, log *slog.Logger, allowedOrigins []string) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		fixtures: fixtures,
		log:      log,
		origins:  allowedOrigins,
		sessions: make(map[string]*serverSession),
	}
}

// Routes builds the HTTP handler. All endpoints live under prefix,
// matching what the client expects.
func (s *Server) Routes(prefix string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	if prefix == "" {
		prefix = "/"
	}
	r.Route(prefix, func(r chi.Router) {
		r.Post("/session", s.handleCreateSession)
		r.Get("/session/{sessionID}", s.handleGetState)
		r.Post("/session/{sessionID}/chat", s.handleChat)
		r.Post("/session/{sessionID}/exercise", s.handleCreateExercise)
		r.Post("/generate_exercise/{sessionID}", s.handleGenerateExercise)
		r.Post("/session/{sessionID}/answer", s.handleAnswer)
		r.Post("/set_theme/{sessionID}", s.handleSetTheme)
		r.Post("/speak", s.handleSpeak)
		r.Post("/transcribe", s.handleTranscribe)
	})
	return r
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, o := range s.origins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tutor  string       `json:"tutor"`
		Config tutor.Config `json:"config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Config == (tutor.Config{}) {
		req.Config = tutor.DefaultConfig()
	}
	req.Config.Theme = normalizeTheme(req.Config.Theme)

	persona := s.fixtures.Persona(req.Tutor)
	sess := &serverSession{
		persona:  persona,
		skillIdx: make(map[string]int),
		state: tutor.State{
			Tutor:  tutor.Persona{Name: persona.Name},
			Config: req.Config,
			ChatHistory: []tutor.Message{
				{Role: tutor.RoleTutor, Text: persona.Greeting},
			},
		},
	}
	id := "sess_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"state":      sess.state,
	})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	sess, ok := s.session(id)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Session not found")
		return
	}
	s.mu.Lock()
	state := sess.state
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"state":      state,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(chi.URLParam(r, "sessionID"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Session not found")
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeDetail(w, http.StatusBadRequest, "Message required")
		return
	}

	s.mu.Lock()
	reply := s.fixtures.Replies[sess.replyIdx%len(s.fixtures.Replies)]
	sess.replyIdx++
	sess.state.ChatHistory = append(sess.state.ChatHistory,
		tutor.Message{Role: tutor.RoleUser, Text: req.Message},
		tutor.Message{Role: tutor.RoleTutor, Text: reply},
	)
	state := sess.state
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"reply": reply,
		"state": state,
	})
}

func (s *Server) handleCreateExercise(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(chi.URLParam(r, "sessionID"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Session not found")
		return
	}

	s.mu.Lock()
	skill := sess.state.Config.Skill
	theme := sess.state.Config.Theme
	s.mu.Unlock()

	ex, err := s.instantiate(sess, skill, theme)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	sess.state.CurrentExercise = ex
	sess.state.CurrentExerciseID = ex.ID
	sess.state.CurrentFeedback = ""
	sess.state.ChatHistory = append(sess.state.ChatHistory,
		tutor.Message{Role: tutor.RoleExercise, Text: ex.Instructions, Exercise: ex})
	state := sess.state
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"exercise": ex,
		"state":    state,
	})
}

func (s *Server) handleGenerateExercise(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(chi.URLParam(r, "sessionID"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Session not found")
		return
	}
	var req struct {
		Skill string `json:"skill"`
		Theme string `json:"theme"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ex, err := s.instantiate(sess, req.Skill, normalizeTheme(req.Theme))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	sess.state.CurrentExercise = ex
	sess.state.CurrentExerciseID = ex.ID
	sess.state.CurrentFeedback = ""
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, ex)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(chi.URLParam(r, "sessionID"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Session not found")
		return
	}
	var req struct {
		Answer string `json:"answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Answer) == "" {
		writeDetail(w, http.StatusBadRequest, "Answer required")
		return
	}

	s.mu.Lock()
	ex := sess.state.CurrentExercise
	s.mu.Unlock()
	if ex == nil {
		writeDetail(w, http.StatusBadRequest, "Geen actieve oefening.")
		return
	}

	result := grade(ex, req.Answer)
	feedback := feedbackFor(sess.persona, result)
	summary := fmt.Sprintf(
		"Ik heb je antwoord nagekeken op oefening %s. Resultaat: %s (score %.2f).",
		ex.ID, result.Result, result.Score,
	)

	s.mu.Lock()
	sess.state.CurrentExercise = nil
	sess.state.CurrentExerciseID = ""
	sess.state.CurrentFeedback = feedback.FeedbackText
	sess.state.ChatHistory = append(sess.state.ChatHistory,
		tutor.Message{Role: tutor.RoleUser, Text: req.Answer},
		tutor.Message{Role: tutor.RoleTutor, Text: summary},
	)
	state := sess.state
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"check_result":    result,
		"feedback":        feedback,
		"summary_message": summary,
		"state":           state,
	})
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(chi.URLParam(r, "sessionID"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Session not found")
		return
	}
	var req struct {
		Theme string `json:"theme"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Theme) == "" {
		writeDetail(w, http.StatusBadRequest, "Theme required")
		return
	}

	s.mu.Lock()
	sess.state.Config.Theme = normalizeTheme(req.Theme)
	state := sess.state
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"state": state})
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text    string `json:"text"`
		TutorID string `json:"tutor_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeDetail(w, http.StatusBadRequest, "Text required")
		return
	}

	// A short tone instead of real speech keeps the stub dependency-free
	// while still exercising the audio path end to end.
	clip := beepWAV(440, 300*time.Millisecond)
	w.Header().Set("Content-Type", "audio/wav")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(clip)
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Audio file required")
		return
	}
	defer file.Close()

	writeJSON(w, http.StatusOK, map[string]string{"text": s.fixtures.Transcript})
}

func (s *Server) session(id string) (*serverSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// instantiate builds a concrete exercise from the next fixture for the
// skill, rotating through the templates per session.
func (s *Server) instantiate(sess *serverSession, skill, theme string) (*tutor.Exercise, error) {
	templates := s.fixtures.ForSkill(skill)
	if templates == nil {
		return nil, fmt.Errorf("Unknown skill: %s", skill)
	}

	s.mu.Lock()
	idx := sess.skillIdx[skill]
	sess.skillIdx[skill] = idx + 1
	s.mu.Unlock()

	t := templates[idx%len(templates)]
	ex := &tutor.Exercise{
		ID:           "ex_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		Type:         t.Type,
		Topic:        t.Topic,
		Difficulty:   t.Difficulty,
		Instructions: t.Instructions,
		Content: tutor.Content{
			Question: t.Question,
			Sentence: t.Sentence,
			Prompt:   t.Prompt,
			Passage:  t.Passage,
			Options:  t.Options,
			Rubric:   t.Rubric,
		},
		Metadata: tutor.Metadata{Theme: theme, Explanation: t.Explanation},
	}
	if t.WordMin > 0 || t.WordMax > 0 {
		ex.Content.WordLimit = &tutor.WordLimit{Min: t.WordMin, Max: t.WordMax}
	}
	if t.CorrectIndex != nil || t.CorrectAnswer != "" {
		ex.AnswerKey = &tutor.AnswerKey{
			CorrectIndex:  t.CorrectIndex,
			CorrectAnswer: t.CorrectAnswer,
		}
	}
	return ex, nil
}

func feedbackFor(persona PersonaFixture, result *tutor.CheckResult) tutor.Feedback {
	var text string
	switch result.Result {
	case tutor.ResultCorrect:
		text = "Helemaal goed! Zo gebruik je de vorm precies zoals het hoort."
	case tutor.ResultAlmost:
		text = "Bijna goed. Kijk nog eens naar de opmerkingen en probeer het aan te scherpen."
	default:
		text = "Nog niet helemaal. " + result.Details.Comments
		if result.Expected != "" {
			text += fmt.Sprintf(" Het juiste antwoord was: %s.", result.Expected)
		}
	}
	return tutor.Feedback{FeedbackText: strings.TrimSpace(text), TutorName: persona.Name}
}

// normalizeTheme lowercases and trims a theme so "Football " and
// "football" land on the same fixtures.
func normalizeTheme(theme string) string {
	theme = strings.ToLower(strings.TrimSpace(theme))
	if theme == "" {
		return "school"
	}
	return theme
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeDetail writes the error envelope the client parses.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// beepWAV renders a sine tone as a 16-bit mono PCM WAV clip.
func beepWAV(freq float64, d time.Duration) []byte {
	const sampleRate = 8000
	n := int(float64(sampleRate) * d.Seconds())
	data := make([]byte, 0, 44+2*n)

	pcm := make([]byte, 2*n)
	for i := 0; i < n; i++ {
		v := int16(12000 * math.Sin(2*math.Pi*freq*float64(i)/sampleRate))
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(v))
	}

	var header [44]byte
	copy(header[0:], "RIFF")
	binary.LittleEndian.PutUint32(header[4:], uint32(36+len(pcm)))
	copy(header[8:], "WAVE")
	copy(header[12:], "fmt ")
	binary.LittleEndian.PutUint32(header[16:], 16)
	binary.LittleEndian.PutUint16(header[20:], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:], 1) // mono
	binary.LittleEndian.PutUint32(header[24:], sampleRate)
	binary.LittleEndian.PutUint32(header[28:], sampleRate*2)
	binary.LittleEndian.PutUint16(header[32:], 2)
	binary.LittleEndian.PutUint16(header[34:], 16)
	copy(header[36:], "data")
	binary.LittleEndian.PutUint32(header[40:], uint32(len(pcm)))

	data = append(data, header[:]...)
	data = append(data, pcm...)
	return data
}
