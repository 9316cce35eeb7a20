// Package vibe drives the capture-to-showcase pipeline behind a vibe card:
// one voice clip goes in, a personality read plus generated art, narration
// and (best effort) a short video come out.
//
// The package owns the session state machine only. Everything with a side
// effect beyond the session — the generative service, the microphone, the
// authorization prompt — is injected through the Provider, Recorder and
// Authorizer interfaces so the pipeline can run against fakes.
package vibe

import "context"

// Blob is a typed byte payload exchanged with the capability provider.
type Blob struct {
	MIMEType string `json:"mimeType,omitempty"`
	Data     []byte `json:"data,omitempty"`
}

// Empty reports whether the blob carries no payload.
func (b Blob) Empty() bool { return len(b.Data) == 0 }

// Palette is the three-color theme derived from a voice.
type Palette struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Accent    string `json:"accent"`
}

// PersonalityVector is the creative-direction summary produced once per
// session by the analysis call. Immutable after it is published.
type PersonalityVector struct {
	Traits  []string `json:"traits"`
	Energy  int      `json:"energy"` // 1..10
	Mood    string   `json:"mood"`
	Palette Palette  `json:"palette"`
}

// MusicProfile describes the soundtrack the voice suggests.
type MusicProfile struct {
	Genre       string   `json:"genre"`
	BPM         int      `json:"bpm"`
	Instruments []string `json:"instruments"`
	Vibe        string   `json:"vibe"`
}

// SpeechDirection is the narration script and voice selector for TTS.
type SpeechDirection struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// CreativeDirection is the full analysis result: the personality vector
// plus the prompts that feed every downstream generation call.
type CreativeDirection struct {
	Personality PersonalityVector `json:"personality"`
	Music       MusicProfile      `json:"music"`
	ArtPrompt   string            `json:"artPrompt"`
	Story       string            `json:"story"`
	VideoPrompt string            `json:"videoPrompt"`
	Speech      SpeechDirection   `json:"speech"`
}

// GeneratedAssets is the composed showcase. All fields except VideoURI are
// published together in one atomic snapshot; VideoURI is patched at most
// once afterwards if the background video task delivers.
type GeneratedAssets struct {
	ArtPrompt string       `json:"artPrompt"`
	Image     Blob         `json:"image,omitzero"`
	Story     string       `json:"story"`
	Music     MusicProfile `json:"music"`
	VideoURI  string       `json:"videoURI,omitempty"`
	Speech    Blob         `json:"speech,omitzero"`
}

// VideoJob is an opaque handle to a long-running video generation job.
type VideoJob interface {
	// Name identifies the job for logging.
	Name() string
}

// VideoPoll is one poll result for a submitted video job.
type VideoPoll struct {
	Done bool
	URI  string
}

// Provider is the generative capability surface the orchestrator drives.
// Implementations normalize their failures into *ProviderError so the
// permission classification in IsPermissionDenied can work across
// provider-specific error shapes.
type Provider interface {
	// Analyze derives the creative direction from a recorded clip.
	Analyze(ctx context.Context, audio Blob) (*CreativeDirection, error)

	// GenerateImage renders cover art for the prompt. Any tiered model
	// fallback happens inside the provider; an error here means every
	// tier failed.
	GenerateImage(ctx context.Context, prompt string) (Blob, error)

	// GenerateSpeech synthesizes the narration with the given voice.
	GenerateSpeech(ctx context.Context, text, voice string) (Blob, error)

	// SubmitVideoJob starts a long-running video generation job.
	SubmitVideoJob(ctx context.Context, prompt string) (VideoJob, error)

	// PollVideoJob reports job progress. Once Done, URI carries a
	// playable reference including any access credential it needs.
	PollVideoJob(ctx context.Context, job VideoJob) (VideoPoll, error)
}

// Authorizer answers whether a usable credential is active and, when it
// is not, runs whatever interactive flow the environment offers to get
// one. It guards the whole session up front and is re-invoked mid-flight
// when the video job fails with a permission-classified error.
type Authorizer interface {
	CheckAuthorization(ctx context.Context) (bool, error)
	RequestAuthorization(ctx context.Context) error
}

// Recorder is the environment's audio capture stream. Start acquires the
// hardware resource; Stop finalizes the clip and MUST release the
// resource unconditionally, on success and error paths alike.
type Recorder interface {
	Start(ctx context.Context) error
	Stop() (Blob, error)
}
