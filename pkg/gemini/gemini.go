// Package gemini implements the vibe.Provider surface on the Gemini API:
// multimodal analysis of the recorded clip, Imagen cover art with a
// two-tier model fallback, prebuilt-voice TTS and Veo video generation
// as a long-running polled operation.
package gemini

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/genai"

	"github.com/vibelab/vibecard/pkg/vibe"
)

const (
	// DefaultAnalysisModel reads the voice clip into a creative direction.
	DefaultAnalysisModel = "gemini-2.5-flash"

	// DefaultSpeechModel narrates the story with a prebuilt voice.
	DefaultSpeechModel = "gemini-2.5-flash-preview-tts"

	// DefaultVideoModel renders the background vibe reel.
	DefaultVideoModel = "veo-2.0-generate-001"

	// DefaultVoice is used when the analysis does not pick one.
	DefaultVoice = "Kore"

	// DefaultAspectRatio matches the portrait card layout.
	DefaultAspectRatio = "3:4"
)

// DefaultImageModels are the image tiers, tried in order: the
// high-fidelity model first, a cheaper model as the fallback.
var DefaultImageModels = []string{
	"imagen-4.0-generate-001",
	"imagen-3.0-generate-002",
}

// Config configures a Client. Zero fields fall back to the defaults
// above; only APIKey is required.
type Config struct {
	APIKey        string
	AnalysisModel string
	ImageModels   []string
	SpeechModel   string
	VideoModel    string
	Voice         string
	AspectRatio   string
	Logger        *slog.Logger
}

// Client talks to the Gemini API. It implements vibe.Provider.
type Client struct {
	genai  *genai.Client
	cfg    Config
	logger *slog.Logger
}

var _ vibe.Provider = (*Client)(nil)

// New creates a Client for the Gemini API backend.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: missing API key")
	}
	if cfg.AnalysisModel == "" {
		cfg.AnalysisModel = DefaultAnalysisModel
	}
	if len(cfg.ImageModels) == 0 {
		cfg.ImageModels = DefaultImageModels
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = DefaultSpeechModel
	}
	if cfg.VideoModel == "" {
		cfg.VideoModel = DefaultVideoModel
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	if cfg.AspectRatio == "" {
		cfg.AspectRatio = DefaultAspectRatio
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, wrapErr("gemini: create client", err)
	}
	return &Client{genai: gc, cfg: cfg, logger: cfg.Logger}, nil
}

// wrapErr normalizes a Gemini failure into *vibe.ProviderError so the
// orchestrator's permission classification works regardless of which
// error shape the SDK produced.
func wrapErr(op string, err error) error {
	pe := &vibe.ProviderError{Op: op, Err: err, Message: err.Error()}
	var ge genai.APIError
	if errors.As(err, &ge) {
		pe.StatusCode = ge.Code
		pe.Code = ge.Status
		pe.Message = ge.Message
	}
	var ae *apierror.APIError
	if errors.As(err, &ae) {
		if code := ae.HTTPCode(); code > 0 {
			pe.StatusCode = code
		}
		if reason := ae.Reason(); reason != "" {
			pe.Code = reason
		}
	}
	return pe
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Text != "" {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}
