package vibe

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSessionActive is returned by Start while a session is in flight.
// New recordings are rejected until the session returns to Idle.
var ErrSessionActive = errors.New("vibe: a session is already active")

// ErrNotCapturing is returned by Stop outside the Capturing phase.
var ErrNotCapturing = errors.New("vibe: no capture in progress")

// CaptureError means the environment refused or lost the audio stream.
// It never moves the session to Failed: the phase stays Idle and the
// user simply retries.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string { return fmt.Sprintf("vibe: capture failed: %v", e.Err) }
func (e *CaptureError) Unwrap() error { return e.Err }

// AuthorizationError means the pre-flight credential check or the
// interactive authorization flow failed. Like CaptureError it keeps the
// session in Idle.
type AuthorizationError struct {
	Err error
}

func (e *AuthorizationError) Error() string { return fmt.Sprintf("vibe: authorization failed: %v", e.Err) }
func (e *AuthorizationError) Unwrap() error { return e.Err }

// AnalysisError is fatal to the session: the analysis call failed or
// returned an unparsable payload.
type AnalysisError struct {
	Err error
}

func (e *AnalysisError) Error() string { return fmt.Sprintf("vibe: analysis failed: %v", e.Err) }
func (e *AnalysisError) Unwrap() error { return e.Err }

// ImageError is fatal to the session: every image tier failed.
type ImageError struct {
	Err error
}

func (e *ImageError) Error() string { return fmt.Sprintf("vibe: image generation failed: %v", e.Err) }
func (e *ImageError) Unwrap() error { return e.Err }

// SpeechError is fatal to the session: speech synthesis failed.
type SpeechError struct {
	Err error
}

func (e *SpeechError) Error() string { return fmt.Sprintf("vibe: speech synthesis failed: %v", e.Err) }
func (e *SpeechError) Unwrap() error { return e.Err }

// VideoError is never fatal: the video enrichment is best effort and its
// failures are logged, not surfaced.
type VideoError struct {
	Err error
}

func (e *VideoError) Error() string { return fmt.Sprintf("vibe: video generation failed: %v", e.Err) }
func (e *VideoError) Unwrap() error { return e.Err }

// ProviderError is the normalized shape of a capability call failure.
// Providers populate whichever of StatusCode, Code and Message their
// service exposes; none of the three is guaranteed.
type ProviderError struct {
	Op         string // e.g. "gemini: submit video"
	StatusCode int    // HTTP status, 0 when unknown
	Code       string // service error code, "" when unknown
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Op, msg, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsPermissionDenied classifies an error as permission/entity-not-found.
// The match is deliberately liberal — an OR across the HTTP status, the
// service error code and the message text — because the provider's error
// shape is not guaranteed to populate all three.
func IsPermissionDenied(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		switch pe.StatusCode {
		case 403, 404:
			return true
		}
		switch strings.ToUpper(pe.Code) {
		case "403", "404", "PERMISSION_DENIED", "NOT_FOUND", "UNAUTHENTICATED":
			return true
		}
		if permissionText(pe.Message) {
			return true
		}
	}
	return permissionText(err.Error())
}

func permissionText(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "requested entity was not found") ||
		strings.Contains(s, "permission denied") ||
		strings.Contains(s, "permission_denied") ||
		strings.Contains(s, "not_found")
}
