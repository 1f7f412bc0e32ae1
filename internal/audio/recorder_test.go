package audio

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakeDevice struct {
	mu     sync.Mutex
	starts int
	stops  int

	startErr error
	stopErr  error
	clip     []byte
}

func (d *fakeDevice) Start(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.starts++
	return d.startErr
}

func (d *fakeDevice) Stop() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stops++
	return d.clip, d.stopErr
}

func TestSecondStartIsRejected(t *testing.T) {
	t.Parallel()

	device := &fakeDevice{clip: []byte("pcm")}
	r := NewRecorder(device)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("First Start failed: %v", err)
	}
	if err := r.Start(context.Background()); !errors.Is(err, ErrRecording) {
		t.Fatalf("Second Start: expected ErrRecording, got %v", err)
	}
	if device.starts != 1 {
		t.Errorf("Device started %d times, expected 1", device.starts)
	}

	clip, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if string(clip) != "pcm" {
		t.Errorf("Unexpected clip: %q", clip)
	}
}

func TestStopWithoutStart(t *testing.T) {
	t.Parallel()

	r := NewRecorder(&fakeDevice{})
	if _, err := r.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Expected ErrNotRecording, got %v", err)
	}
}

func TestFailedStartReleasesFlag(t *testing.T) {
	t.Parallel()

	device := &fakeDevice{startErr: errors.New("no microphone")}
	r := NewRecorder(device)

	if err := r.Start(context.Background()); err == nil {
		t.Fatal("Expected Start to fail")
	}
	if r.Recording() {
		t.Error("Recording flag stuck after failed Start")
	}

	device.mu.Lock()
	device.startErr = nil
	device.mu.Unlock()
	if err := r.Start(context.Background()); err != nil {
		t.Errorf("Start after recovery failed: %v", err)
	}
}

func TestFailedStopReleasesFlag(t *testing.T) {
	t.Parallel()

	device := &fakeDevice{stopErr: errors.New("device wedged")}
	r := NewRecorder(device)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := r.Stop(); err == nil {
		t.Fatal("Expected Stop to fail")
	}
	if r.Recording() {
		t.Error("Recording flag stuck after failed Stop")
	}
}
