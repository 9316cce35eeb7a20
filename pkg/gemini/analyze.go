package gemini

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"google.golang.org/genai"

	"github.com/vibelab/vibecard/pkg/vibe"
)

const analysisPrompt = `Listen to this short voice clip. From the speaker's tone, pacing,
energy and word choice, derive a creative direction for a personal "vibe card":

- personality: 2-4 trait labels, an energy score from 1 (still) to 10 (electric),
  a one-word mood, and a three-color hex palette that matches the voice.
- music: the genre, BPM, instruments and a one-line vibe description of the
  soundtrack this voice suggests.
- artPrompt: a rich visual prompt for abstract cover art in that mood.
- story: a two-sentence poetic portrait of the speaker, second person.
- videoPrompt: a short cinematic prompt for a looping ambient video clip.
- speech: the story rewritten for narration, and the prebuilt voice name
  (Kore, Puck, Charon, Fenrir or Aoede) that best mirrors the speaker.

Do not transcribe the clip. Respond with the JSON object only.`

// Analyze derives the creative direction from a recorded clip. The
// response is constrained to a JSON schema and still run through a
// repair pass before being rejected as unparsable.
func (c *Client) Analyze(ctx context.Context, audio vibe.Blob) (*vibe.CreativeDirection, error) {
	if audio.Empty() {
		return nil, &vibe.ProviderError{Op: "gemini: analyze", Message: "empty audio clip"}
	}
	mime := audio.MIMEType
	if mime == "" {
		mime = "audio/webm"
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			genai.NewPartFromText(analysisPrompt),
			genai.NewPartFromBytes(audio.Data, mime),
		},
	}}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   convSchema(directionSchema()),
	}

	resp, err := c.genai.Models.GenerateContent(ctx, c.cfg.AnalysisModel, contents, cfg)
	if err != nil {
		return nil, wrapErr("gemini: analyze", err)
	}
	text := responseText(resp)
	if text == "" {
		return nil, &vibe.ProviderError{Op: "gemini: analyze", Message: "no response text"}
	}

	dir, err := vibe.ParseDirection([]byte(text))
	if err != nil {
		return nil, &vibe.ProviderError{Op: "gemini: analyze", Message: err.Error(), Err: err}
	}
	if dir.Speech.Voice == "" {
		dir.Speech.Voice = c.cfg.Voice
	}
	return dir, nil
}

func directionSchema() *jsonschema.Schema {
	hexColor := func(role string) *jsonschema.Schema {
		return &jsonschema.Schema{Type: "string", Description: role + " color as a #rrggbb hex value"}
	}
	return &jsonschema.Schema{
		Type:     "object",
		Required: []string{"personality", "music", "artPrompt", "story", "videoPrompt", "speech"},
		Properties: map[string]*jsonschema.Schema{
			"personality": {
				Type:     "object",
				Required: []string{"traits", "energy", "mood", "palette"},
				Properties: map[string]*jsonschema.Schema{
					"traits": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
					"energy": {Type: "integer", Description: "1 (still) to 10 (electric)"},
					"mood":   {Type: "string"},
					"palette": {
						Type:     "object",
						Required: []string{"primary", "secondary", "accent"},
						Properties: map[string]*jsonschema.Schema{
							"primary":   hexColor("primary"),
							"secondary": hexColor("secondary"),
							"accent":    hexColor("accent"),
						},
					},
				},
			},
			"music": {
				Type:     "object",
				Required: []string{"genre", "bpm", "instruments", "vibe"},
				Properties: map[string]*jsonschema.Schema{
					"genre":       {Type: "string"},
					"bpm":         {Type: "integer"},
					"instruments": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
					"vibe":        {Type: "string"},
				},
			},
			"artPrompt":   {Type: "string"},
			"story":       {Type: "string"},
			"videoPrompt": {Type: "string"},
			"speech": {
				Type:     "object",
				Required: []string{"text", "voice"},
				Properties: map[string]*jsonschema.Schema{
					"text":  {Type: "string"},
					"voice": {Type: "string", Enum: []any{"Kore", "Puck", "Charon", "Fenrir", "Aoede"}},
				},
			},
		},
	}
}
