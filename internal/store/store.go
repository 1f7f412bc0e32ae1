// Package store persists client-side data: UI settings and saved
// conversation transcripts. The tutoring backend owns session state;
// nothing here mirrors it.
package store

import (
	"context"
	"time"

	"github.com/mjansen/bijleslab/internal/tutor"
)

// Transcript is a saved conversation.
type Transcript struct {
	ID        string
	Tutor     string
	Theme     string
	StartedAt time.Time
	SavedAt   time.Time
	Messages  []tutor.Message
}

// Repository abstracts local persistence.
type Repository interface {
	// GetSettings returns the stored settings, or the defaults when
	// nothing has been saved yet.
	GetSettings(ctx context.Context) (*tutor.Settings, error)

	// SaveSettings replaces the stored settings. Last write wins.
	SaveSettings(ctx context.Context, settings *tutor.Settings) error

	// SaveTranscript stores a conversation for later review.
	SaveTranscript(ctx context.Context, transcript *Transcript) error

	// ListTranscripts returns saved transcripts, newest first.
	ListTranscripts(ctx context.Context, limit int) ([]*Transcript, error)

	// GetTranscript retrieves one transcript by id.
	GetTranscript(ctx context.Context, id string) (*Transcript, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
