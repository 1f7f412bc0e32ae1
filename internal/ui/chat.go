// Package ui implements the interactive terminal chat loop.
package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"

	"github.com/mjansen/bijleslab/internal/audio"
	"github.com/mjansen/bijleslab/internal/exercise"
	"github.com/mjansen/bijleslab/internal/session"
	"github.com/mjansen/bijleslab/internal/store"
	"github.com/mjansen/bijleslab/internal/tutor"
)

// Chat drives one interactive conversation over a line-based terminal.
type Chat struct {
	manager *session.Manager
	bridge  *audio.Bridge
	repo    store.Repository
	log     *slog.Logger

	in  *bufio.Scanner
	out io.Writer

	view      *exercise.View
	startedAt time.Time
	speak     bool
}

func NewChat(manager *session.Manager, bridge *audio.Bridge, repo store.Repository, in io.Reader, out io.Writer, log *slog.Logger) *Chat {
	if log == nil {
		log = slog.Default()
	}
	return &Chat{
		manager: manager,
		bridge:  bridge,
		repo:    repo,
		log:     log,
		in:      bufio.NewScanner(in),
		out:     out,
	}
}

// Run starts a session and processes input until /stop, EOF or context
// cancellation.
func (c *Chat) Run(ctx context.Context, tutorName string, cfg tutor.Config) error {
	state, err := c.manager.Start(ctx, tutorName, cfg)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	c.startedAt = time.Now()

	for _, msg := range state.ChatHistory {
		if msg.Role == tutor.RoleTutor {
			c.printTutor(state.Tutor.Name, msg.Text)
		}
	}
	c.printf("Typ een bericht, of /help voor de commando's.\n")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		c.printf("> ")
		if !c.in.Scan() {
			return c.in.Err()
		}
		line := strings.TrimSpace(c.in.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			stop, err := c.command(ctx, line)
			if err != nil {
				c.printf("Fout: %v\n", err)
			}
			if stop {
				return nil
			}
			continue
		}
		c.input(ctx, line)
	}
}

func (c *Chat) command(ctx context.Context, line string) (stop bool, err error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/stop":
		return true, nil
	case "/help":
		c.printHelp()
		return false, nil
	case "/oefening":
		skill := ""
		theme := ""
		if len(fields) > 1 {
			skill = fields[1]
		}
		if len(fields) > 2 {
			theme = strings.Join(fields[2:], " ")
		}
		return false, c.startExercise(ctx, skill, theme)
	case "/thema":
		if len(fields) < 2 {
			return false, errors.New("gebruik: /thema <onderwerp>")
		}
		_, err := c.manager.SetTheme(ctx, strings.Join(fields[1:], " "))
		if err == nil {
			c.printf("Thema aangepast.\n")
		}
		return false, err
	case "/tutor":
		if len(fields) < 2 {
			return false, errors.New("gebruik: /tutor <naam>")
		}
		state, err := c.manager.SwitchTutor(ctx, fields[1])
		if err != nil {
			return false, err
		}
		c.view = nil
		c.startedAt = time.Now()
		c.printf("Nieuwe sessie met %s. Het gesprek begint opnieuw.\n", state.Tutor.Name)
		for _, msg := range state.ChatHistory {
			if msg.Role == tutor.RoleTutor {
				c.printTutor(state.Tutor.Name, msg.Text)
			}
		}
		return false, nil
	case "/opname":
		if len(fields) < 2 {
			return false, errors.New("gebruik: /opname start|stop")
		}
		return false, c.recording(ctx, fields[1])
	case "/spraak":
		c.speak = !c.speak
		c.printf("Voorlezen staat nu %s.\n", onOff(c.speak))
		return false, nil
	case "/bewaar":
		return false, c.saveTranscript(ctx)
	default:
		return false, fmt.Errorf("onbekend commando %q, zie /help", fields[0])
	}
}

func (c *Chat) input(ctx context.Context, line string) {
	if c.view != nil && !c.view.Graded() {
		c.submitAnswer(ctx, line)
		return
	}

	reply, err := c.manager.Send(ctx, line)
	if err != nil {
		c.printf("Fout: %v\n", err)
		return
	}
	state := c.manager.State()
	c.printTutor(state.Tutor.Name, reply)
	c.maybeSpeak(ctx, reply)
}

func (c *Chat) startExercise(ctx context.Context, skill, theme string) error {
	var ex *tutor.Exercise
	var err error
	if skill == "" {
		ex, err = c.manager.RequestExercise(ctx)
	} else {
		ex, err = c.manager.GenerateExercise(ctx, skill, theme)
	}
	if err != nil {
		return err
	}

	c.view = exercise.NewView(ex)
	if c.view.Malformed() {
		c.printf("De oefening kwam onvolledig binnen:\n%s\n", c.view.DebugDump())
		c.view = nil
		return nil
	}

	if c.view.Instructions() != "" {
		c.printf("\n%s\n", c.view.Instructions())
	}
	c.printf("%s\n", c.view.Prompt())
	for _, opt := range c.view.Options() {
		c.printf("  %s) %s\n", opt.Label, opt.Text)
	}
	if advisory := c.view.WordLimitAdvisory(); advisory != "" {
		c.printf("Richtlijn: %s\n", advisory)
	}
	for _, line := range c.view.Rubric() {
		c.printf("  - %s\n", line)
	}
	return nil
}

func (c *Chat) submitAnswer(ctx context.Context, line string) {
	answer, err := c.view.Choose(line)
	if err != nil {
		c.printf("Fout: %v\n", err)
		return
	}

	outcome, err := c.manager.SubmitAnswer(ctx, answer)
	if err != nil {
		c.printf("Fout: %v\n", err)
		return
	}
	if err := c.view.Grade(&outcome.CheckResult); err != nil {
		c.log.Debug("grade after close", "error", err)
	}

	for _, opt := range c.view.Options() {
		c.printf("  %s %s) %s\n", markGlyph(opt.Mark), opt.Label, opt.Text)
	}
	c.printTutor(outcome.Feedback.TutorName, outcome.Feedback.FeedbackText)
	if outcome.SummaryMessage != "" {
		c.printf("%s\n", outcome.SummaryMessage)
	}
	c.maybeSpeak(ctx, outcome.Feedback.FeedbackText)
	c.view = nil
}

func (c *Chat) recording(ctx context.Context, verb string) error {
	if c.bridge == nil {
		return errors.New("audio is niet geconfigureerd")
	}
	switch verb {
	case "start":
		if err := c.bridge.StartRecording(ctx); err != nil {
			return err
		}
		c.printf("Opname gestart. Stop met /opname stop.\n")
		return nil
	case "stop":
		text, err := c.bridge.StopAndTranscribe(ctx)
		if err != nil {
			return err
		}
		c.printf("Verstaan: %s\n", text)
		c.input(ctx, text)
		return nil
	default:
		return errors.New("gebruik: /opname start|stop")
	}
}

func (c *Chat) saveTranscript(ctx context.Context) error {
	if c.repo == nil {
		return errors.New("opslag is niet geconfigureerd")
	}
	state := c.manager.State()
	transcript := &store.Transcript{
		ID:        "tr_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		Tutor:     state.Tutor.Name,
		Theme:     state.Config.Theme,
		StartedAt: c.startedAt,
		Messages:  state.ChatHistory,
	}
	if err := c.repo.SaveTranscript(ctx, transcript); err != nil {
		return err
	}
	c.printf("Gesprek bewaard als %s.\n", transcript.ID)
	return nil
}

func (c *Chat) maybeSpeak(ctx context.Context, text string) {
	if !c.speak || c.bridge == nil || text == "" {
		return
	}
	state := c.manager.State()
	if err := c.bridge.Say(ctx, text, state.Tutor.Name); err != nil {
		c.log.Warn("speech synthesis failed", "error", err)
	}
}

// printTutor renders a tutor turn as markdown when possible and falls
// back to plain text when rendering fails.
func (c *Chat) printTutor(name, text string) {
	rendered, err := glamour.Render(text, "dark")
	if err != nil {
		rendered = text + "\n"
	}
	c.printf("\n%s:\n%s", name, rendered)
}

func (c *Chat) printHelp() {
	c.printf(`Commando's:
  /oefening [skill [thema]]  nieuwe oefening (grammar, reading, writing)
  /thema <onderwerp>         ander thema voor oefeningen
  /tutor <naam>              wissel van tutor (nieuw gesprek)
  /opname start|stop         spreek je vraag in
  /spraak                    voorlezen aan/uit
  /bewaar                    gesprek lokaal opslaan
  /stop                      afsluiten
`)
}

func (c *Chat) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func markGlyph(m exercise.Mark) string {
	switch m {
	case exercise.MarkPositive:
		return "✓"
	case exercise.MarkNegative:
		return "✗"
	case exercise.MarkDimmed:
		return "·"
	default:
		return " "
	}
}

func onOff(b bool) string {
	if b {
		return "aan"
	}
	return "uit"
}
