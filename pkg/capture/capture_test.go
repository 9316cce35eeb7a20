package capture

import (
	"context"
	"errors"
	"testing"

	"github.com/vibelab/vibecard/pkg/vibe"
)

func TestBufferCollectsChunks(t *testing.T) {
	released := 0
	b := NewBuffer("audio/webm", func() { released++ })

	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	b.Push([]byte("abc"))
	b.Push([]byte("def"))

	clip, err := b.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if string(clip.Data) != "abcdef" || clip.MIMEType != "audio/webm" {
		t.Errorf("clip = %q (%s)", clip.Data, clip.MIMEType)
	}
	if released != 1 {
		t.Errorf("release ran %d times, want 1", released)
	}
}

func TestBufferStopEmpty(t *testing.T) {
	released := 0
	b := NewBuffer("audio/webm", func() { released++ })
	b.Start(context.Background())

	if _, err := b.Stop(); !errors.Is(err, ErrEmptyClip) {
		t.Errorf("Stop = %v, want ErrEmptyClip", err)
	}
	if released != 1 {
		t.Error("release must run even when the clip is empty")
	}
}

func TestBufferPushOutsideCapture(t *testing.T) {
	b := NewBuffer("audio/webm", nil)
	if err := b.Push([]byte("x")); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Push = %v, want ErrNotRecording", err)
	}
	b.Start(context.Background())
	b.Push([]byte("x"))
	b.Stop()
	if err := b.Push([]byte("y")); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Push after Stop = %v, want ErrNotRecording", err)
	}
}

func TestBufferRestartDiscardsOldClip(t *testing.T) {
	b := NewBuffer("audio/webm", nil)
	b.Start(context.Background())
	b.Push([]byte("old"))
	b.Stop()

	b.Start(context.Background())
	b.Push([]byte("new"))
	clip, err := b.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if string(clip.Data) != "new" {
		t.Errorf("clip = %q, want only the new capture", clip.Data)
	}
}

func TestStatic(t *testing.T) {
	s := NewStatic(vibe.Blob{MIMEType: "audio/wav", Data: []byte("clip")})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	clip, err := s.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if string(clip.Data) != "clip" {
		t.Errorf("clip = %q", clip.Data)
	}

	empty := NewStatic(vibe.Blob{})
	if _, err := empty.Stop(); !errors.Is(err, ErrEmptyClip) {
		t.Errorf("Stop = %v, want ErrEmptyClip", err)
	}
}

func TestMIMEFromPath(t *testing.T) {
	tests := []struct {
		path, want string
	}{
		{"voice.wav", "audio/wav"},
		{"voice.MP3", "audio/mpeg"},
		{"voice.m4a", "audio/mp4"},
		{"voice.ogg", "audio/ogg"},
		{"voice.flac", "audio/flac"},
		{"voice.webm", "audio/webm"},
		{"voice", "audio/webm"},
	}
	for _, tt := range tests {
		if got := MIMEFromPath(tt.path); got != tt.want {
			t.Errorf("MIMEFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
