package stubserver

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mjansen/bijleslab/internal/client"
	"github.com/mjansen/bijleslab/internal/tutor"
)

func newTestBackend(t *testing.T) *client.Client {
	t.Helper()
	fixtures, err := LoadFixtures("")
	if err != nil {
		t.Fatalf("LoadFixtures failed: %v", err)
	}
	srv := httptest.NewServer(New(fixtures, slog.Default(), nil).Routes("/api"))
	t.Cleanup(srv.Close)
	return client.New(srv.URL, "/api")
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	c := newTestBackend(t)
	ctx := context.Background()

	session, err := c.CreateSession(ctx, "sara", tutor.DefaultConfig())
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if session.ID == "" {
		t.Fatal("Expected a session id")
	}
	if session.State.Tutor.Name != "Coach Sara" {
		t.Errorf("Expected Coach Sara, got %q", session.State.Tutor.Name)
	}
	if len(session.State.ChatHistory) != 1 {
		t.Fatalf("Expected a greeting in the history, got %d entries", len(session.State.ChatHistory))
	}

	res, err := c.SendChat(ctx, session.ID, "Wat is de present perfect?")
	if err != nil {
		t.Fatalf("SendChat failed: %v", err)
	}
	if res.Reply == "" {
		t.Error("Expected a reply")
	}
	if len(res.State.ChatHistory) != 3 {
		t.Errorf("Expected 3 history entries after one turn, got %d", len(res.State.ChatHistory))
	}

	state, err := c.GetState(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if len(state.ChatHistory) != 3 {
		t.Errorf("GetState out of sync: %d entries", len(state.ChatHistory))
	}
}

func TestAnswerFlowCorrect(t *testing.T) {
	t.Parallel()

	c := newTestBackend(t)
	ctx := context.Background()

	session, err := c.CreateSession(ctx, "jan", tutor.DefaultConfig())
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	ex, err := c.GenerateExercise(ctx, session.ID, "grammar", "football")
	if err != nil {
		t.Fatalf("GenerateExercise failed: %v", err)
	}
	if ex.Kind() != tutor.KindMCQ {
		t.Fatalf("Expected first grammar fixture to be multiple choice, got %q", ex.Type)
	}
	if ex.Metadata.Theme != "football" {
		t.Errorf("Theme not applied: %q", ex.Metadata.Theme)
	}
	if !strings.HasPrefix(ex.ID, "ex_") {
		t.Errorf("Unexpected exercise id format: %q", ex.ID)
	}

	outcome, err := c.SubmitAnswer(ctx, session.ID, "B")
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if outcome.CheckResult.Result != tutor.ResultCorrect {
		t.Errorf("Expected correct, got %q", outcome.CheckResult.Result)
	}
	if outcome.CheckResult.Score != 1.0 {
		t.Errorf("Expected score 1.0, got %v", outcome.CheckResult.Score)
	}
	want := "Ik heb je antwoord nagekeken op oefening " + ex.ID + ". Resultaat: correct (score 1.00)."
	if outcome.SummaryMessage != want {
		t.Errorf("Summary mismatch:\n got %q\nwant %q", outcome.SummaryMessage, want)
	}
	if outcome.Feedback.TutorName != "Meester Jan" {
		t.Errorf("Feedback not voiced by the tutor: %+v", outcome.Feedback)
	}
	if outcome.State.CurrentExercise != nil || outcome.State.CurrentExerciseID != "" {
		t.Error("Exercise should be cleared after grading")
	}
}

func TestAnswerRequired(t *testing.T) {
	t.Parallel()

	c := newTestBackend(t)
	ctx := context.Background()

	session, err := c.CreateSession(ctx, "jan", tutor.DefaultConfig())
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := c.GenerateExercise(ctx, session.ID, "grammar", "school"); err != nil {
		t.Fatalf("GenerateExercise failed: %v", err)
	}

	_, err = c.SubmitAnswer(ctx, session.ID, "   ")
	if err == nil {
		t.Fatal("Expected error for empty answer")
	}
	if err.Error() != "Answer required" {
		t.Errorf("Expected detail %q, got %q", "Answer required", err.Error())
	}
}

func TestAnswerWithoutExercise(t *testing.T) {
	t.Parallel()

	c := newTestBackend(t)
	ctx := context.Background()

	session, err := c.CreateSession(ctx, "jan", tutor.DefaultConfig())
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	_, err = c.SubmitAnswer(ctx, session.ID, "B")
	if err == nil {
		t.Fatal("Expected error without an active exercise")
	}
	if err.Error() != "Geen actieve oefening." {
		t.Errorf("Unexpected detail: %q", err.Error())
	}
}

func TestUnknownSkillRejected(t *testing.T) {
	t.Parallel()

	c := newTestBackend(t)
	ctx := context.Background()

	session, err := c.CreateSession(ctx, "jan", tutor.DefaultConfig())
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := c.GenerateExercise(ctx, session.ID, "juggling", "circus"); err == nil {
		t.Fatal("Expected error for unknown skill")
	}
}

func TestSetThemeNormalizes(t *testing.T) {
	t.Parallel()

	c := newTestBackend(t)
	ctx := context.Background()

	session, err := c.CreateSession(ctx, "jan", tutor.DefaultConfig())
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	state, err := c.SetTheme(ctx, session.ID, "  Ruimtevaart ")
	if err != nil {
		t.Fatalf("SetTheme failed: %v", err)
	}
	if state.Config.Theme != "ruimtevaart" {
		t.Errorf("Theme not normalized: %q", state.Config.Theme)
	}
}

func TestSpeakAndTranscribe(t *testing.T) {
	t.Parallel()

	c := newTestBackend(t)
	ctx := context.Background()

	clip, err := c.Speak(ctx, "Goed gedaan!", "jan")
	if err != nil {
		t.Fatalf("Speak failed: %v", err)
	}
	if len(clip) < 44 || string(clip[:4]) != "RIFF" {
		t.Errorf("Expected a WAV clip, got %d bytes", len(clip))
	}

	text, err := c.Transcribe(ctx, "recording.webm", []byte("fake-audio"))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text == "" {
		t.Error("Expected a transcript")
	}
}

func TestUnknownSessionReturns404(t *testing.T) {
	t.Parallel()

	c := newTestBackend(t)
	if _, err := c.GetState(context.Background(), "nope"); err == nil {
		t.Fatal("Expected error for unknown session")
	}
}
