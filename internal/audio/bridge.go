package audio

import (
	"context"
	"log/slog"
)

// Speech is the slice of the backend client the bridge needs.
type Speech interface {
	Speak(ctx context.Context, text, tutorID string) ([]byte, error)
	Transcribe(ctx context.Context, filename string, audio []byte) (string, error)
}

// Bridge ties the recorder and player to the backend's speech
// endpoints.
type Bridge struct {
	speech   Speech
	recorder *Recorder
	player   Player
	log      *slog.Logger
}

func NewBridge(speech Speech, recorder *Recorder, player Player, log *slog.Logger) *Bridge {
	if player == nil {
		player = NopPlayer{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Bridge{speech: speech, recorder: recorder, player: player, log: log}
}

func (b *Bridge) StartRecording(ctx context.Context) error {
	return b.recorder.Start(ctx)
}

func (b *Bridge) Recording() bool {
	return b.recorder.Recording()
}

// StopAndTranscribe ends the running recording and sends it to the
// backend for transcription.
func (b *Bridge) StopAndTranscribe(ctx context.Context) (string, error) {
	clip, err := b.recorder.Stop()
	if err != nil {
		return "", err
	}
	return b.speech.Transcribe(ctx, "recording.webm", clip)
}

// Say synthesizes the text in the tutor's voice and starts playback in
// the background. Playback failures are logged, not returned: a broken
// speaker must not break the conversation. Overlapping clips are
// allowed; nothing is queued.
func (b *Bridge) Say(ctx context.Context, text, tutorID string) error {
	clip, err := b.speech.Speak(ctx, text, tutorID)
	if err != nil {
		return err
	}
	go func() {
		if err := b.player.Play(context.WithoutCancel(ctx), clip); err != nil {
			b.log.Warn("audio playback failed", "error", err)
		}
	}()
	return nil
}
