// Package capture provides vibe.Recorder implementations: a push-fed
// buffer for live capture transports and a static clip for one-shot runs.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vibelab/vibecard/pkg/vibe"
)

// ErrNotRecording is returned by Push outside an active capture.
var ErrNotRecording = errors.New("capture: not recording")

// ErrEmptyClip is returned by Stop when no audio arrived.
var ErrEmptyClip = errors.New("capture: no audio captured")

// Buffer collects pushed audio chunks between Start and Stop. The
// transport feeding it (e.g. a websocket connection streaming
// MediaRecorder chunks) owns the actual hardware; the optional release
// hook runs on Stop, unconditionally, so that side can tear down.
type Buffer struct {
	mu      sync.Mutex
	mime    string
	buf     bytes.Buffer
	open    bool
	release func()
}

var _ vibe.Recorder = (*Buffer)(nil)

// NewBuffer creates a Buffer for clips of the given MIME type. release
// may be nil.
func NewBuffer(mime string, release func()) *Buffer {
	return &Buffer{mime: mime, release: release}
}

// Start opens a new capture, discarding any previous clip.
func (b *Buffer) Start(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
	b.open = true
	return nil
}

// Push appends a chunk to the in-flight clip.
func (b *Buffer) Push(chunk []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return ErrNotRecording
	}
	b.buf.Write(chunk)
	return nil
}

// SetMIMEType records the clip's MIME type as reported by the transport.
func (b *Buffer) SetMIMEType(mime string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if mime != "" {
		b.mime = mime
	}
}

// Stop finalizes the clip. The release hook runs whether or not any
// audio arrived.
func (b *Buffer) Stop() (vibe.Blob, error) {
	b.mu.Lock()
	open := b.open
	b.open = false
	data := bytes.Clone(b.buf.Bytes())
	mime := b.mime
	release := b.release
	b.mu.Unlock()

	if release != nil {
		release()
	}
	if !open {
		return vibe.Blob{}, ErrNotRecording
	}
	if len(data) == 0 {
		return vibe.Blob{}, ErrEmptyClip
	}
	return vibe.Blob{MIMEType: mime, Data: data}, nil
}

// Static replays a pre-recorded clip, for the one-shot CLI path.
type Static struct {
	clip vibe.Blob
}

var _ vibe.Recorder = (*Static)(nil)

// NewStatic wraps an existing clip as a Recorder.
func NewStatic(clip vibe.Blob) *Static { return &Static{clip: clip} }

func (s *Static) Start(context.Context) error { return nil }

func (s *Static) Stop() (vibe.Blob, error) {
	if s.clip.Empty() {
		return vibe.Blob{}, ErrEmptyClip
	}
	return s.clip, nil
}

// FromFile loads an audio file as a Static recorder, inferring the MIME
// type from the extension.
func FromFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("capture: read %s: %w", path, err)
	}
	return NewStatic(vibe.Blob{MIMEType: MIMEFromPath(path), Data: data}), nil
}

// MIMEFromPath maps an audio file extension to its MIME type.
func MIMEFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	case ".ogg":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	default:
		return "audio/webm"
	}
}
