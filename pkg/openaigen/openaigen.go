// Package openaigen implements the vibe.Provider surface on the OpenAI
// API. Analysis runs as transcription plus a chat completion, cover art
// keeps the two-tier model fallback (gpt-image-1, then dall-e-3), and
// narration uses the speech endpoint. Video generation is not offered,
// which the orchestrator treats as a silently absent enrichment.
package openaigen

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/vibelab/vibecard/pkg/vibe"
)

const (
	// DefaultAnalysisModel turns the transcript into a creative direction.
	DefaultAnalysisModel = openai.ChatModelGPT4o

	// DefaultVoice is used when no mapping fits the analysis pick.
	DefaultVoice = "alloy"
)

// DefaultImageModels are the image tiers, tried in order.
var DefaultImageModels = []string{
	"gpt-image-1",
	"dall-e-3",
}

// ErrVideoUnsupported is returned by the video operations. It does not
// classify as permission-denied, so the orchestrator drops the video
// without a re-authorization round.
var ErrVideoUnsupported = errors.New("openaigen: video generation not supported")

// Config configures a Client. Only APIKey is required.
type Config struct {
	APIKey        string
	BaseURL       string
	AnalysisModel string
	ImageModels   []string
	Logger        *slog.Logger
}

// Client talks to the OpenAI API. It implements vibe.Provider.
type Client struct {
	oa     *openai.Client
	cfg    Config
	logger *slog.Logger
}

var _ vibe.Provider = (*Client)(nil)

// New creates a Client for the OpenAI backend.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openaigen: missing API key")
	}
	if cfg.AnalysisModel == "" {
		cfg.AnalysisModel = DefaultAnalysisModel
	}
	if len(cfg.ImageModels) == 0 {
		cfg.ImageModels = DefaultImageModels
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)
	return &Client{oa: &client, cfg: cfg, logger: cfg.Logger}, nil
}

const analysisPrompt = `You turn a transcript of a short voice clip into a creative direction
for a personal "vibe card". Respond with a single JSON object:

{
  "personality": {"traits": [2-4 labels], "energy": 1-10, "mood": one word,
    "palette": {"primary": "#rrggbb", "secondary": "#rrggbb", "accent": "#rrggbb"}},
  "music": {"genre": string, "bpm": integer, "instruments": [strings], "vibe": one line},
  "artPrompt": a rich visual prompt for abstract cover art,
  "story": a two-sentence poetic portrait of the speaker, second person,
  "videoPrompt": a short cinematic prompt for a looping ambient clip,
  "speech": {"text": the story rewritten for narration, "voice": "alloy"}
}

Respond with the JSON object only, no prose around it.`

// Analyze transcribes the clip and derives the creative direction from
// the transcript.
func (c *Client) Analyze(ctx context.Context, audio vibe.Blob) (*vibe.CreativeDirection, error) {
	if audio.Empty() {
		return nil, &vibe.ProviderError{Op: "openaigen: analyze", Message: "empty audio clip"}
	}
	mime := audio.MIMEType
	if mime == "" {
		mime = "audio/webm"
	}

	tr, err := c.oa.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: openai.AudioModelWhisper1,
		File:  openai.File(bytes.NewReader(audio.Data), "clip.webm", mime),
	})
	if err != nil {
		return nil, wrapErr("openaigen: transcribe", err)
	}

	resp, err := c.oa.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.cfg.AnalysisModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(analysisPrompt),
			openai.UserMessage("Transcript:\n" + tr.Text),
		},
	})
	if err != nil {
		return nil, wrapErr("openaigen: analyze", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, &vibe.ProviderError{Op: "openaigen: analyze", Message: "no response text"}
	}

	dir, err := vibe.ParseDirection([]byte(resp.Choices[0].Message.Content))
	if err != nil {
		return nil, &vibe.ProviderError{Op: "openaigen: analyze", Message: err.Error(), Err: err}
	}
	dir.Speech.Voice = mapVoice(dir.Speech.Voice)
	return dir, nil
}

// GenerateImage renders cover art, trying each model tier in order.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (vibe.Blob, error) {
	var lastErr error
	for _, model := range c.cfg.ImageModels {
		blob, err := c.generateImage(ctx, model, prompt)
		if err == nil {
			return blob, nil
		}
		c.logger.Warn("image tier failed", "model", model, "error", err)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = &vibe.ProviderError{Op: "openaigen: generate image", Message: "no image models configured"}
	}
	return vibe.Blob{}, lastErr
}

func (c *Client) generateImage(ctx context.Context, model, prompt string) (vibe.Blob, error) {
	params := openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(model),
		Size:   openai.ImageGenerateParamsSize1024x1536,
	}
	// gpt-image-1 always answers base64; dall-e-3 must be asked for it.
	if model != "gpt-image-1" {
		params.ResponseFormat = openai.ImageGenerateParamsResponseFormatB64JSON
		params.Size = openai.ImageGenerateParamsSize1024x1792
	}

	resp, err := c.oa.Images.Generate(ctx, params)
	if err != nil {
		return vibe.Blob{}, wrapErr("openaigen: generate image", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return vibe.Blob{}, &vibe.ProviderError{Op: "openaigen: generate image", Message: "no image payload in response"}
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return vibe.Blob{}, &vibe.ProviderError{Op: "openaigen: generate image", Message: fmt.Sprintf("decode image payload: %v", err), Err: err}
	}
	return vibe.Blob{MIMEType: "image/png", Data: data}, nil
}

// GenerateSpeech narrates the text with the speech endpoint.
func (c *Client) GenerateSpeech(ctx context.Context, text, voice string) (vibe.Blob, error) {
	resp, err := c.oa.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model: openai.SpeechModelTTS1,
		Voice: openai.AudioSpeechNewParamsVoice(mapVoice(voice)),
		Input: text,
	})
	if err != nil {
		return vibe.Blob{}, wrapErr("openaigen: generate speech", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return vibe.Blob{}, &vibe.ProviderError{Op: "openaigen: generate speech", Message: fmt.Sprintf("read audio payload: %v", err), Err: err}
	}
	if len(data) == 0 {
		return vibe.Blob{}, &vibe.ProviderError{Op: "openaigen: generate speech", Message: "no audio payload in response"}
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "audio/mpeg"
	}
	return vibe.Blob{MIMEType: mime, Data: data}, nil
}

// SubmitVideoJob reports that this backend has no video capability.
func (c *Client) SubmitVideoJob(context.Context, string) (vibe.VideoJob, error) {
	return nil, ErrVideoUnsupported
}

// PollVideoJob reports that this backend has no video capability.
func (c *Client) PollVideoJob(context.Context, vibe.VideoJob) (vibe.VideoPoll, error) {
	return vibe.VideoPoll{}, ErrVideoUnsupported
}

// mapVoice translates analysis voice picks (which follow the Gemini
// prebuilt names) onto the closest speech-endpoint voice.
func mapVoice(voice string) string {
	switch voice {
	case "alloy", "echo", "fable", "onyx", "nova", "shimmer":
		return voice
	case "Kore", "Aoede":
		return "nova"
	case "Puck":
		return "fable"
	case "Charon", "Fenrir":
		return "onyx"
	default:
		return DefaultVoice
	}
}

func wrapErr(op string, err error) error {
	pe := &vibe.ProviderError{Op: op, Err: err, Message: err.Error()}
	var oe *openai.Error
	if errors.As(err, &oe) {
		pe.StatusCode = oe.StatusCode
		pe.Code = oe.Code
		pe.Message = oe.Message
	}
	return pe
}
