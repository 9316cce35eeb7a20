package vibe

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsPermissionDenied(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"http 404", &ProviderError{Op: "p: video", StatusCode: 404, Message: "gone"}, true},
		{"http 403", &ProviderError{Op: "p: video", StatusCode: 403, Message: "nope"}, true},
		{"code not_found", &ProviderError{Op: "p: video", Code: "NOT_FOUND", Message: "x"}, true},
		{"code lowercase", &ProviderError{Op: "p: video", Code: "permission_denied"}, true},
		{"code numeric", &ProviderError{Op: "p: video", Code: "404"}, true},
		{"message match", &ProviderError{Op: "p: video", Message: "Requested entity was not found."}, true},
		{"plain error message", errors.New("rpc error: Requested entity was not found"), true},
		{"wrapped provider error", fmt.Errorf("submit: %w", &ProviderError{Op: "p: video", StatusCode: 404}), true},
		{"server error", &ProviderError{Op: "p: video", StatusCode: 500, Code: "INTERNAL", Message: "boom"}, false},
		{"plain unrelated", errors.New("connection reset by peer"), false},
		{"rate limited", &ProviderError{Op: "p: video", StatusCode: 429, Code: "RESOURCE_EXHAUSTED"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPermissionDenied(tt.err); got != tt.want {
				t.Errorf("IsPermissionDenied(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorTaxonomyUnwraps(t *testing.T) {
	base := errors.New("root cause")
	for _, err := range []error{
		&CaptureError{Err: base},
		&AuthorizationError{Err: base},
		&AnalysisError{Err: base},
		&ImageError{Err: base},
		&SpeechError{Err: base},
		&VideoError{Err: base},
	} {
		if !errors.Is(err, base) {
			t.Errorf("%T does not unwrap to its cause", err)
		}
	}
}

func TestProviderErrorMessage(t *testing.T) {
	pe := &ProviderError{Op: "gemini: generate image", StatusCode: 429, Message: "quota exceeded"}
	want := "gemini: generate image: quota exceeded (status 429)"
	if pe.Error() != want {
		t.Errorf("Error() = %q, want %q", pe.Error(), want)
	}

	pe = &ProviderError{Op: "gemini: analyze", Err: errors.New("timeout")}
	if pe.Error() != "gemini: analyze: timeout" {
		t.Errorf("Error() = %q", pe.Error())
	}
}
