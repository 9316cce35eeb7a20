package vibe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Phase is the session's stage in the orchestration state machine.
// Transitions are one-directional except Ready/Failed → Idle via Reset.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseCapturing Phase = "capturing"
	PhaseAnalyzing Phase = "analyzing"
	PhaseComposing Phase = "composing"
	PhaseReady     Phase = "ready"
	PhaseFailed    Phase = "failed"
)

// Snapshot is the read-only session view published to the presentation
// layer on every transition. Byte payloads inside Assets are shared with
// the session and must not be mutated by consumers.
type Snapshot struct {
	Phase         Phase              `json:"phase"`
	SessionID     string             `json:"sessionID,omitempty"`
	Personality   *PersonalityVector `json:"personality,omitempty"`
	Assets        *GeneratedAssets   `json:"assets,omitempty"`
	ErrorMessage  string             `json:"errorMessage,omitempty"`
	StatusMessage string             `json:"statusMessage,omitempty"`
}

const (
	defaultPollInterval = 5 * time.Second
	defaultMaxPolls     = 60
)

// Orchestrator owns the single live session and drives the pipeline
// "analyze → compose (image+speech barrier) → background video" over an
// injected Provider. Exactly one session is live at a time; Start is
// rejected until the previous session is reset to Idle.
type Orchestrator struct {
	provider Provider
	auth     Authorizer
	recorder Recorder
	logger   *slog.Logger
	notify   func(Snapshot)

	pollInterval time.Duration
	maxPolls     int

	mu           sync.Mutex
	phase        Phase
	sessionID    string
	starting     bool
	personality  *PersonalityVector
	assets       *GeneratedAssets
	errMsg       string
	status       string
	videoPatched bool

	// pubMu serializes notify callbacks so snapshots arrive in
	// transition order.
	pubMu sync.Mutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithNotify registers the snapshot callback invoked on every transition.
func WithNotify(fn func(Snapshot)) Option {
	return func(o *Orchestrator) { o.notify = fn }
}

// WithPollInterval overrides the 5s video poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(o *Orchestrator) { o.pollInterval = d }
}

// WithMaxPolls bounds the number of video poll attempts.
func WithMaxPolls(n int) Option {
	return func(o *Orchestrator) { o.maxPolls = n }
}

// New creates an Orchestrator in the Idle phase.
func New(p Provider, auth Authorizer, rec Recorder, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider:     p,
		auth:         auth,
		recorder:     rec,
		logger:       slog.Default(),
		pollInterval: defaultPollInterval,
		maxPolls:     defaultMaxPolls,
		phase:        PhaseIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Snapshot returns a copy of the current session state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	s := Snapshot{
		Phase:         o.phase,
		SessionID:     o.sessionID,
		ErrorMessage:  o.errMsg,
		StatusMessage: o.status,
	}
	if o.personality != nil {
		pv := *o.personality
		pv.Traits = slices.Clone(pv.Traits)
		s.Personality = &pv
	}
	if o.assets != nil {
		a := *o.assets
		a.Music.Instruments = slices.Clone(a.Music.Instruments)
		s.Assets = &a
	}
	return s
}

func (o *Orchestrator) emit(s Snapshot) {
	if o.notify == nil {
		return
	}
	o.pubMu.Lock()
	defer o.pubMu.Unlock()
	o.notify(s)
}

// Start runs the pre-flight authorization check, requests the microphone
// from the environment and enters Capturing. Authorization or capture
// failure keeps the session in Idle with an inline error message — it is
// not a pipeline failure.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.phase != PhaseIdle || o.starting {
		o.mu.Unlock()
		return ErrSessionActive
	}
	o.starting = true
	o.errMsg = ""
	o.status = "Checking authorization"
	s := o.snapshotLocked()
	o.mu.Unlock()
	o.emit(s)

	if err := o.ensureAuthorized(ctx); err != nil {
		aerr := &AuthorizationError{Err: err}
		o.stayIdle(aerr)
		return aerr
	}

	if err := o.recorder.Start(ctx); err != nil {
		cerr := &CaptureError{Err: err}
		o.stayIdle(cerr)
		return cerr
	}

	o.mu.Lock()
	o.starting = false
	o.sessionID = uuid.NewString()
	o.phase = PhaseCapturing
	o.status = "Listening"
	s = o.snapshotLocked()
	o.mu.Unlock()
	o.emit(s)
	o.logger.Info("capture started", "session", s.SessionID)
	return nil
}

func (o *Orchestrator) ensureAuthorized(ctx context.Context) error {
	ok, err := o.auth.CheckAuthorization(ctx)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return o.auth.RequestAuthorization(ctx)
}

// stayIdle records a pre-capture failure without leaving Idle.
func (o *Orchestrator) stayIdle(err error) {
	o.mu.Lock()
	o.starting = false
	o.errMsg = err.Error()
	o.status = ""
	s := o.snapshotLocked()
	o.mu.Unlock()
	o.emit(s)
	o.logger.Warn("session not started", "error", err)
}

// Stop finalizes the clip and launches the generation pipeline. The
// capture stream is released on this transition unconditionally, whether
// or not the rest of the pipeline succeeds.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	if o.phase != PhaseCapturing {
		o.mu.Unlock()
		return ErrNotCapturing
	}
	sid := o.sessionID
	o.phase = PhaseAnalyzing
	o.status = "Reading the vibe"
	s := o.snapshotLocked()
	o.mu.Unlock()
	o.emit(s)

	clip, err := o.recorder.Stop()
	if err != nil {
		aerr := &AnalysisError{Err: fmt.Errorf("finalize capture: %w", err)}
		o.fail(sid, aerr)
		return aerr
	}

	// The pipeline outlives the caller (typically a request handler),
	// and in-flight capability calls are never cancelled.
	go o.runPipeline(context.WithoutCancel(ctx), sid, clip)
	return nil
}

func (o *Orchestrator) runPipeline(ctx context.Context, sid string, clip Blob) {
	dir, err := o.provider.Analyze(ctx, clip)
	if err != nil {
		o.fail(sid, &AnalysisError{Err: err})
		return
	}

	// Publish the personality before any asset exists so the ambient
	// theming can repaint immediately.
	o.mu.Lock()
	if o.sessionID != sid {
		o.mu.Unlock()
		return
	}
	pv := dir.Personality
	pv.Traits = slices.Clone(pv.Traits)
	o.personality = &pv
	o.phase = PhaseComposing
	o.status = "Composing your vibe card"
	s := o.snapshotLocked()
	o.mu.Unlock()
	o.emit(s)

	type genResult struct {
		blob Blob
		err  error
	}
	imgCh := make(chan genResult, 1)
	spCh := make(chan genResult, 1)
	go func() {
		b, err := o.provider.GenerateImage(ctx, dir.ArtPrompt)
		imgCh <- genResult{blob: b, err: err}
	}()
	go func() {
		b, err := o.provider.GenerateSpeech(ctx, dir.Speech.Text, dir.Speech.Voice)
		spCh <- genResult{blob: b, err: err}
	}()

	// Joint barrier: the card is meaningless without both art and
	// narration, so wait for both and fail the phase if either failed.
	img, sp := <-imgCh, <-spCh
	if img.err != nil {
		o.fail(sid, &ImageError{Err: img.err})
		return
	}
	if sp.err != nil {
		o.fail(sid, &SpeechError{Err: sp.err})
		return
	}

	o.mu.Lock()
	if o.sessionID != sid {
		o.mu.Unlock()
		return
	}
	o.assets = &GeneratedAssets{
		ArtPrompt: dir.ArtPrompt,
		Image:     img.blob,
		Story:     dir.Story,
		Music:     dir.Music,
		Speech:    sp.blob,
	}
	o.phase = PhaseReady
	o.status = "Vibe card ready"
	s = o.snapshotLocked()
	o.mu.Unlock()
	o.emit(s)
	o.logger.Info("vibe card ready", "session", sid)

	if dir.VideoPrompt != "" {
		go o.enrichVideo(ctx, sid, dir.VideoPrompt)
	}
}

// enrichVideo runs the background video job after Ready. It never moves
// the session out of Ready: a permission-classified failure gets one
// interactive re-authorization and one full retry, anything else is
// logged and dropped.
func (o *Orchestrator) enrichVideo(ctx context.Context, sid, prompt string) {
	uri, err := o.runVideoJob(ctx, prompt)
	if err != nil && IsPermissionDenied(err) {
		o.logger.Warn("video job hit a permission error, re-authorizing", "session", sid, "error", err)
		if aerr := o.auth.RequestAuthorization(ctx); aerr != nil {
			o.logger.Warn("re-authorization failed, dropping video", "session", sid, "error", aerr)
			return
		}
		uri, err = o.runVideoJob(ctx, prompt)
	}
	if err != nil {
		o.logger.Warn("video enrichment failed, card stays without video", "session", sid, "error", err)
		return
	}

	o.mu.Lock()
	// Guard against a stale completion: the session may have been reset
	// (or failed) while the job was polling.
	if o.sessionID != sid || o.phase != PhaseReady || o.assets == nil || o.videoPatched {
		o.mu.Unlock()
		return
	}
	o.assets.VideoURI = uri
	o.videoPatched = true
	o.status = "Vibe reel arrived"
	s := o.snapshotLocked()
	o.mu.Unlock()
	o.emit(s)
	o.logger.Info("video merged into card", "session", sid)
}

func (o *Orchestrator) runVideoJob(ctx context.Context, prompt string) (string, error) {
	job, err := o.provider.SubmitVideoJob(ctx, prompt)
	if err != nil {
		return "", err
	}
	o.logger.Info("video job submitted", "job", job.Name())

	for range o.maxPolls {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(o.pollInterval):
		}
		poll, err := o.provider.PollVideoJob(ctx, job)
		if err != nil {
			return "", err
		}
		if poll.Done {
			if poll.URI == "" {
				return "", &VideoError{Err: errors.New("job finished without a video")}
			}
			return poll.URI, nil
		}
	}
	return "", &VideoError{Err: fmt.Errorf("job %s not done after %d polls", job.Name(), o.maxPolls)}
}

func (o *Orchestrator) fail(sid string, err error) {
	o.mu.Lock()
	if o.sessionID != sid {
		o.mu.Unlock()
		return
	}
	o.phase = PhaseFailed
	o.errMsg = err.Error()
	o.status = ""
	s := o.snapshotLocked()
	o.mu.Unlock()
	o.emit(s)
	o.logger.Error("session failed", "session", sid, "error", err)
}

// Reset returns the session to the initial Idle state. Allowed only from
// Ready or Failed (Idle is a no-op). Bumping the session identity here is
// what invalidates any still-polling video job.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	switch o.phase {
	case PhaseIdle:
		o.mu.Unlock()
		return nil
	case PhaseReady, PhaseFailed:
	default:
		phase := o.phase
		o.mu.Unlock()
		return fmt.Errorf("vibe: cannot reset while %s", phase)
	}
	o.phase = PhaseIdle
	o.sessionID = ""
	o.personality = nil
	o.assets = nil
	o.errMsg = ""
	o.status = ""
	o.videoPatched = false
	s := o.snapshotLocked()
	o.mu.Unlock()
	o.emit(s)
	return nil
}
