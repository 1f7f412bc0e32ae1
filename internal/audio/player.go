package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Player plays one audio clip. Playback is fire-and-forget: callers do
// not wait for it and clips are never queued.
type Player interface {
	Play(ctx context.Context, clip []byte) error
}

// ExecPlayer writes the clip to a temp file and hands it to an
// external player command.
type ExecPlayer struct {
	Command string
	Args    []string
}

func (p *ExecPlayer) Play(ctx context.Context, clip []byte) error {
	dir, err := os.MkdirTemp("", "bijles-play-*")
	if err != nil {
		return fmt.Errorf("create playback dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "clip.wav")
	if err := os.WriteFile(path, clip, 0o600); err != nil {
		return fmt.Errorf("write clip: %w", err)
	}

	args := append(append([]string(nil), p.Args...), path)
	cmd := exec.CommandContext(ctx, p.Command, args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("play clip: %w", err)
	}
	return nil
}

// NopPlayer discards clips. Used when no playback command is
// configured.
type NopPlayer struct{}

func (NopPlayer) Play(context.Context, []byte) error { return nil }
