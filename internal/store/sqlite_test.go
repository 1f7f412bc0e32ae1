package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mjansen/bijleslab/internal/tutor"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "bijles.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSettingsDefaultsWhenUnset(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	settings, err := repo.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	defaults := tutor.DefaultSettings()
	if settings.AccentColor != defaults.AccentColor || settings.Tutor != defaults.Tutor {
		t.Errorf("Expected defaults, got %+v", settings)
	}
}

func TestSettingsLastWriteWins(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	first := tutor.DefaultSettings()
	first.AccentColor = "green"
	if err := repo.SaveSettings(ctx, first); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	second := tutor.DefaultSettings()
	second.AccentColor = "purple"
	second.DarkMode = true
	if err := repo.SaveSettings(ctx, second); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	got, err := repo.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if got.AccentColor != "purple" || !got.DarkMode {
		t.Errorf("Expected second write to win, got %+v", got)
	}
}

func TestTranscriptRoundTrip(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	transcript := &Transcript{
		ID:        "tr-1",
		Tutor:     "Meester Jan",
		Theme:     "school",
		StartedAt: time.Now().Add(-10 * time.Minute),
		Messages: []tutor.Message{
			{Role: tutor.RoleUser, Text: "hoi"},
			{Role: tutor.RoleTutor, Text: "Dag! Zullen we beginnen?"},
		},
	}
	if err := repo.SaveTranscript(ctx, transcript); err != nil {
		t.Fatalf("SaveTranscript failed: %v", err)
	}

	got, err := repo.GetTranscript(ctx, "tr-1")
	if err != nil {
		t.Fatalf("GetTranscript failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected transcript, got nil")
	}
	if got.Tutor != "Meester Jan" || len(got.Messages) != 2 {
		t.Errorf("Unexpected transcript: %+v", got)
	}
	if got.Messages[1].Text != "Dag! Zullen we beginnen?" {
		t.Errorf("Messages not preserved: %+v", got.Messages)
	}
}

func TestGetTranscriptMissing(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	got, err := repo.GetTranscript(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetTranscript failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for missing transcript, got %+v", got)
	}
}

func TestListTranscriptsNewestFirst(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i, id := range []string{"tr-a", "tr-b", "tr-c"} {
		err := repo.SaveTranscript(ctx, &Transcript{
			ID:        id,
			Tutor:     "Coach Sara",
			Theme:     "sports",
			StartedAt: base,
			SavedAt:   base.Add(time.Duration(i) * time.Minute),
			Messages:  []tutor.Message{{Role: tutor.RoleUser, Text: id}},
		})
		if err != nil {
			t.Fatalf("SaveTranscript(%s) failed: %v", id, err)
		}
	}

	list, err := repo.ListTranscripts(ctx, 2)
	if err != nil {
		t.Fatalf("ListTranscripts failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 transcripts, got %d", len(list))
	}
	if list[0].ID != "tr-c" || list[1].ID != "tr-b" {
		t.Errorf("Expected newest first, got %s then %s", list[0].ID, list[1].ID)
	}
}
