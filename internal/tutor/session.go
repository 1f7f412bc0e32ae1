// Package tutor contains the wire data model shared by the client, the
// session manager and the practice server.
package tutor

import (
	"time"
)

// Message roles as they appear in chat_history.
const (
	RoleUser     = "user"
	RoleTutor    = "tutor"
	RoleExercise = "exercise"
)

// Persona identifies the tutor character a session is bound to.
type Persona struct {
	Name string `json:"name"`
	ID   string `json:"persona_id,omitempty"`
}

// Message is a single chat turn. The history is replaced wholesale on every
// server response; the client never merges deltas.
type Message struct {
	Role     string    `json:"role"`
	Text     string    `json:"text,omitempty"`
	Exercise *Exercise `json:"exercise,omitempty"`
}

// Config is the bag of recognized session options. Their effect is entirely
// backend-defined; the client forwards them verbatim.
type Config struct {
	Topic      string `json:"topic"`
	Theme      string `json:"theme"`
	Skill      string `json:"skill"`
	Difficulty string `json:"difficulty"`
}

// DefaultConfig returns the session defaults used when the caller does not
// override them.
func DefaultConfig() Config {
	return Config{
		Topic:      "Present Perfect",
		Theme:      "school",
		Skill:      "grammar",
		Difficulty: "medium",
	}
}

// State is the server-authoritative session snapshot.
type State struct {
	Tutor             Persona   `json:"tutor"`
	Config            Config    `json:"config"`
	ChatHistory       []Message `json:"chat_history"`
	CurrentExercise   *Exercise `json:"current_exercise,omitempty"`
	CurrentExerciseID string    `json:"current_exercise_id,omitempty"`
	CurrentFeedback   string    `json:"current_feedback,omitempty"`
}

// Session pairs an opaque session id with its latest state snapshot.
type Session struct {
	ID    string `json:"session_id"`
	State State  `json:"state"`
}

// Settings is the user preference record. Last write wins; there are no
// invariants beyond that.
type Settings struct {
	DarkMode     bool      `json:"dark_mode"`
	AccentColor  string    `json:"accent_color"`
	SidebarTheme string    `json:"sidebar_theme"`
	Tutor        string    `json:"tutor"`
	Theme        string    `json:"theme"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DefaultSettings returns the settings used before the user has saved any.
func DefaultSettings() *Settings {
	return &Settings{
		AccentColor:  "blue",
		SidebarTheme: "light",
		Tutor:        "jan",
		Theme:        "school",
	}
}
