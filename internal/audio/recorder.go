// Package audio records microphone input and plays back synthesized
// speech by shelling out to external tools (ffmpeg, arecord, aplay).
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

var (
	ErrRecording    = errors.New("audio: recording already in progress")
	ErrNotRecording = errors.New("audio: no recording in progress")
)

// CaptureDevice produces one audio clip per Start/Stop cycle.
type CaptureDevice interface {
	// Start begins capturing. It returns once capture is running.
	Start(ctx context.Context) error
	// Stop ends the capture and returns the recorded bytes.
	Stop() ([]byte, error)
}

// Recorder serializes access to a capture device. A second Start while
// a recording is running is rejected rather than queued, and Stop
// always releases the recording flag, including when the device fails.
type Recorder struct {
	device CaptureDevice

	mu        sync.Mutex
	recording bool
}

func NewRecorder(device CaptureDevice) *Recorder {
	return &Recorder{device: device}
}

func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return ErrRecording
	}
	r.recording = true
	r.mu.Unlock()

	if err := r.device.Start(ctx); err != nil {
		r.mu.Lock()
		r.recording = false
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *Recorder) Stop() ([]byte, error) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return nil, ErrNotRecording
	}
	r.mu.Unlock()

	data, err := r.device.Stop()

	r.mu.Lock()
	r.recording = false
	r.mu.Unlock()
	return data, err
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// ExecCapture records by running an external command that writes to a
// temp file until interrupted. The command receives the output path as
// its final argument.
type ExecCapture struct {
	Command string
	Args    []string

	cmd  *exec.Cmd
	path string
}

func (c *ExecCapture) Start(ctx context.Context) error {
	dir, err := os.MkdirTemp("", "bijles-rec-*")
	if err != nil {
		return fmt.Errorf("create recording dir: %w", err)
	}
	c.path = filepath.Join(dir, "recording.wav")

	args := append(append([]string(nil), c.Args...), c.path)
	cmd := exec.CommandContext(ctx, c.Command, args...)
	if err := cmd.Start(); err != nil {
		os.RemoveAll(dir)
		return fmt.Errorf("start %s: %w", c.Command, err)
	}
	c.cmd = cmd
	return nil
}

func (c *ExecCapture) Stop() ([]byte, error) {
	if c.cmd == nil {
		return nil, ErrNotRecording
	}
	defer func() {
		os.RemoveAll(filepath.Dir(c.path))
		c.cmd = nil
	}()

	// Ask the tool to finish the file cleanly; kill it if it lingers.
	_ = c.cmd.Process.Signal(os.Interrupt)
	done := make(chan error, 1)
	go func() { done <- c.cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		_ = c.cmd.Process.Kill()
		<-done
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	return data, nil
}
