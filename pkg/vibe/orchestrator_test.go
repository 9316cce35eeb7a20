package vibe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeJob string

func (j fakeJob) Name() string { return string(j) }

type fakeProvider struct {
	analyzeFn func(ctx context.Context, audio Blob) (*CreativeDirection, error)
	imageFn   func(ctx context.Context, prompt string) (Blob, error)
	speechFn  func(ctx context.Context, text, voice string) (Blob, error)
	submitFn  func(ctx context.Context, prompt string) (VideoJob, error)
	pollFn    func(ctx context.Context, job VideoJob) (VideoPoll, error)

	analyzeCalls atomic.Int32
	imageCalls   atomic.Int32
	speechCalls  atomic.Int32
	submitCalls  atomic.Int32
	pollCalls    atomic.Int32
}

func testDirection() *CreativeDirection {
	return &CreativeDirection{
		Personality: PersonalityVector{
			Traits: []string{"Calm"},
			Energy: 2,
			Mood:   "Serene",
			Palette: Palette{
				Primary:   "#aabbcc",
				Secondary: "#bbccdd",
				Accent:    "#ccddee",
			},
		},
		Music: MusicProfile{
			Genre:       "ambient",
			BPM:         70,
			Instruments: []string{"piano", "pads"},
			Vibe:        "floating",
		},
		ArtPrompt:   "a calm sea at dusk",
		Story:       "A quiet voice with tides behind it.",
		VideoPrompt: "slow waves rolling in, cinematic",
		Speech:      SpeechDirection{Text: "A quiet voice with tides behind it.", Voice: "Kore"},
	}
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		analyzeFn: func(context.Context, Blob) (*CreativeDirection, error) {
			return testDirection(), nil
		},
		imageFn: func(context.Context, string) (Blob, error) {
			return Blob{MIMEType: "image/png", Data: []byte("png")}, nil
		},
		speechFn: func(context.Context, string, string) (Blob, error) {
			return Blob{MIMEType: "audio/wav", Data: []byte("wav")}, nil
		},
		submitFn: func(context.Context, string) (VideoJob, error) {
			return fakeJob("job-1"), nil
		},
		pollFn: func(context.Context, VideoJob) (VideoPoll, error) {
			return VideoPoll{Done: true, URI: "https://video.example/clip.mp4?key=k"}, nil
		},
	}
}

func (p *fakeProvider) Analyze(ctx context.Context, audio Blob) (*CreativeDirection, error) {
	p.analyzeCalls.Add(1)
	return p.analyzeFn(ctx, audio)
}

func (p *fakeProvider) GenerateImage(ctx context.Context, prompt string) (Blob, error) {
	p.imageCalls.Add(1)
	return p.imageFn(ctx, prompt)
}

func (p *fakeProvider) GenerateSpeech(ctx context.Context, text, voice string) (Blob, error) {
	p.speechCalls.Add(1)
	return p.speechFn(ctx, text, voice)
}

func (p *fakeProvider) SubmitVideoJob(ctx context.Context, prompt string) (VideoJob, error) {
	p.submitCalls.Add(1)
	return p.submitFn(ctx, prompt)
}

func (p *fakeProvider) PollVideoJob(ctx context.Context, job VideoJob) (VideoPoll, error) {
	p.pollCalls.Add(1)
	return p.pollFn(ctx, job)
}

type fakeAuthorizer struct {
	authorized bool
	checkErr   error
	requestErr error
	requests   atomic.Int32
}

func (a *fakeAuthorizer) CheckAuthorization(context.Context) (bool, error) {
	return a.authorized, a.checkErr
}

func (a *fakeAuthorizer) RequestAuthorization(context.Context) error {
	a.requests.Add(1)
	return a.requestErr
}

type fakeRecorder struct {
	mu       sync.Mutex
	startErr error
	stopErr  error
	clip     Blob
	started  int
	stopped  int
}

func (r *fakeRecorder) Start(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return r.startErr
	}
	r.started++
	return nil
}

func (r *fakeRecorder) Stop() (Blob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped++
	return r.clip, r.stopErr
}

func (r *fakeRecorder) stoppedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

func newTestOrchestrator(p Provider, a Authorizer, r Recorder) (*Orchestrator, chan Snapshot) {
	snaps := make(chan Snapshot, 64)
	o := New(p, a, r,
		WithNotify(func(s Snapshot) { snaps <- s }),
		WithPollInterval(time.Millisecond),
		WithMaxPolls(10),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return o, snaps
}

func waitFor(t *testing.T, snaps chan Snapshot, pred func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-snaps:
			if pred(s) {
				return s
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func waitPhase(t *testing.T, snaps chan Snapshot, phase Phase) Snapshot {
	t.Helper()
	return waitFor(t, snaps, func(s Snapshot) bool { return s.Phase == phase })
}

func record(t *testing.T, o *Orchestrator) {
	t.Helper()
	ctx := context.Background()
	if err := o.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := o.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestHappyPathReachesReadyThenPatchesVideo(t *testing.T) {
	p := newFakeProvider()
	auth := &fakeAuthorizer{authorized: true}
	rec := &fakeRecorder{clip: Blob{MIMEType: "audio/webm", Data: []byte("clip")}}
	o, snaps := newTestOrchestrator(p, auth, rec)

	record(t, o)

	composing := waitPhase(t, snaps, PhaseComposing)
	if composing.Personality == nil {
		t.Fatal("personality should be published when entering composing")
	}
	if got := composing.Personality.Mood; got != "Serene" {
		t.Errorf("mood = %q, want Serene", got)
	}
	if composing.Assets != nil {
		t.Error("assets must not exist before the joint barrier resolves")
	}

	ready := waitPhase(t, snaps, PhaseReady)
	if ready.Assets == nil {
		t.Fatal("ready snapshot has no assets")
	}
	if ready.Assets.Image.Empty() || ready.Assets.Speech.Empty() {
		t.Error("ready requires both image and speech payloads")
	}
	if ready.Assets.VideoURI != "" {
		t.Error("video reference must be absent at the first Ready publish")
	}
	if ready.Assets.Story == "" || ready.Assets.Music.BPM == 0 {
		t.Error("story and music must be published with the assets")
	}

	patched := waitFor(t, snaps, func(s Snapshot) bool {
		return s.Assets != nil && s.Assets.VideoURI != ""
	})
	if patched.Phase != PhaseReady {
		t.Errorf("video patch arrived in phase %s, want ready", patched.Phase)
	}
	if rec.stoppedCount() != 1 {
		t.Errorf("recorder stopped %d times, want 1", rec.stoppedCount())
	}
}

func TestSpeechFailureKeepsPersonalityAndNoAssets(t *testing.T) {
	p := newFakeProvider()
	p.speechFn = func(context.Context, string, string) (Blob, error) {
		return Blob{}, errors.New("tts unavailable")
	}
	auth := &fakeAuthorizer{authorized: true}
	rec := &fakeRecorder{clip: Blob{Data: []byte("clip")}}
	o, snaps := newTestOrchestrator(p, auth, rec)

	record(t, o)

	failed := waitPhase(t, snaps, PhaseFailed)
	if failed.Assets != nil {
		t.Error("assets must be nil on failure, never partial")
	}
	if failed.Personality == nil {
		t.Error("personality from the analysis step must survive the failure")
	}
	if failed.ErrorMessage == "" {
		t.Error("failure must surface an error message")
	}
	if p.submitCalls.Load() != 0 {
		t.Error("video must not be submitted when the barrier fails")
	}
}

func TestImageFailureFailsBarrier(t *testing.T) {
	p := newFakeProvider()
	p.imageFn = func(context.Context, string) (Blob, error) {
		return Blob{}, errors.New("all tiers exhausted")
	}
	auth := &fakeAuthorizer{authorized: true}
	rec := &fakeRecorder{clip: Blob{Data: []byte("clip")}}
	o, snaps := newTestOrchestrator(p, auth, rec)

	record(t, o)

	failed := waitPhase(t, snaps, PhaseFailed)
	if failed.Assets != nil {
		t.Error("assets must be nil when image generation fails")
	}
}

func TestAnalysisFailureReleasesRecorder(t *testing.T) {
	p := newFakeProvider()
	p.analyzeFn = func(context.Context, Blob) (*CreativeDirection, error) {
		return nil, errors.New("unparsable response")
	}
	auth := &fakeAuthorizer{authorized: true}
	rec := &fakeRecorder{clip: Blob{Data: []byte("clip")}}
	o, snaps := newTestOrchestrator(p, auth, rec)

	record(t, o)

	waitPhase(t, snaps, PhaseFailed)
	if rec.stoppedCount() != 1 {
		t.Errorf("recorder stopped %d times, want 1 (release is unconditional)", rec.stoppedCount())
	}
}

func TestVideoPermissionErrorRetriesOnce(t *testing.T) {
	p := newFakeProvider()
	p.submitFn = func(context.Context, string) (VideoJob, error) {
		return nil, errors.New("Requested entity was not found")
	}
	auth := &fakeAuthorizer{authorized: true}
	rec := &fakeRecorder{clip: Blob{Data: []byte("clip")}}
	o, snaps := newTestOrchestrator(p, auth, rec)

	record(t, o)
	waitPhase(t, snaps, PhaseReady)

	// Submission fails twice (initial + one retry) and is then dropped.
	waitUntil(t, func() bool { return p.submitCalls.Load() == 2 })
	time.Sleep(20 * time.Millisecond)
	if got := p.submitCalls.Load(); got != 2 {
		t.Errorf("submit calls = %d, want exactly 2", got)
	}
	if got := auth.requests.Load(); got != 1 {
		t.Errorf("re-authorization prompts = %d, want exactly 1", got)
	}
	if s := o.Snapshot(); s.Phase != PhaseReady || s.Assets.VideoURI != "" {
		t.Errorf("session must stay Ready without video, got phase=%s uri=%q", s.Phase, s.Assets.VideoURI)
	}
}

func TestVideoPermissionErrorRetrySucceeds(t *testing.T) {
	p := newFakeProvider()
	var first atomic.Bool
	first.Store(true)
	p.submitFn = func(context.Context, string) (VideoJob, error) {
		if first.CompareAndSwap(true, false) {
			return nil, &ProviderError{Op: "fake: submit video", StatusCode: 404, Message: "entity gone"}
		}
		return fakeJob("job-2"), nil
	}
	auth := &fakeAuthorizer{authorized: true}
	rec := &fakeRecorder{clip: Blob{Data: []byte("clip")}}
	o, snaps := newTestOrchestrator(p, auth, rec)

	record(t, o)
	waitPhase(t, snaps, PhaseReady)

	patched := waitFor(t, snaps, func(s Snapshot) bool {
		return s.Assets != nil && s.Assets.VideoURI != ""
	})
	if patched.Phase != PhaseReady {
		t.Errorf("patched phase = %s, want ready", patched.Phase)
	}
	if got := auth.requests.Load(); got != 1 {
		t.Errorf("re-authorization prompts = %d, want 1", got)
	}
}

func TestVideoOtherErrorNoRetry(t *testing.T) {
	p := newFakeProvider()
	p.submitFn = func(context.Context, string) (VideoJob, error) {
		return nil, errors.New("transient backend blip")
	}
	auth := &fakeAuthorizer{authorized: true}
	rec := &fakeRecorder{clip: Blob{Data: []byte("clip")}}
	o, snaps := newTestOrchestrator(p, auth, rec)

	record(t, o)
	waitPhase(t, snaps, PhaseReady)

	waitUntil(t, func() bool { return p.submitCalls.Load() == 1 })
	time.Sleep(20 * time.Millisecond)
	if got := p.submitCalls.Load(); got != 1 {
		t.Errorf("submit calls = %d, want 1 (no retry for non-permission errors)", got)
	}
	if got := auth.requests.Load(); got != 0 {
		t.Errorf("re-authorization prompts = %d, want 0", got)
	}
	if s := o.Snapshot(); s.Phase != PhaseReady {
		t.Errorf("phase = %s, video failures must never regress the showcase", s.Phase)
	}
}

func TestVideoPollsUntilDone(t *testing.T) {
	p := newFakeProvider()
	var polls atomic.Int32
	p.pollFn = func(context.Context, VideoJob) (VideoPoll, error) {
		if polls.Add(1) < 3 {
			return VideoPoll{}, nil
		}
		return VideoPoll{Done: true, URI: "https://video.example/v.mp4?key=k"}, nil
	}
	auth := &fakeAuthorizer{authorized: true}
	rec := &fakeRecorder{clip: Blob{Data: []byte("clip")}}
	o, snaps := newTestOrchestrator(p, auth, rec)

	record(t, o)
	waitPhase(t, snaps, PhaseReady)
	waitFor(t, snaps, func(s Snapshot) bool {
		return s.Assets != nil && s.Assets.VideoURI != ""
	})
	if got := polls.Load(); got != 3 {
		t.Errorf("polls = %d, want 3", got)
	}
}

func TestResetClearsEverything(t *testing.T) {
	p := newFakeProvider()
	auth := &fakeAuthorizer{authorized: true}
	rec := &fakeRecorder{clip: Blob{Data: []byte("clip")}}
	o, snaps := newTestOrchestrator(p, auth, rec)

	record(t, o)
	waitPhase(t, snaps, PhaseReady)

	if err := o.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	s := o.Snapshot()
	if s.Phase != PhaseIdle || s.Personality != nil || s.Assets != nil || s.ErrorMessage != "" || s.SessionID != "" {
		t.Errorf("reset session not pristine: %+v", s)
	}

	// A fresh session must be startable immediately.
	record(t, o)
	waitPhase(t, snaps, PhaseReady)
}

func TestResetFromFailed(t *testing.T) {
	p := newFakeProvider()
	p.analyzeFn = func(context.Context, Blob) (*CreativeDirection, error) {
		return nil, errors.New("nope")
	}
	auth := &fakeAuthorizer{authorized: true}
	rec := &fakeRecorder{clip: Blob{Data: []byte("clip")}}
	o, snaps := newTestOrchestrator(p, auth, rec)

	record(t, o)
	waitPhase(t, snaps, PhaseFailed)

	if err := o.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if s := o.Snapshot(); s.Phase != PhaseIdle || s.ErrorMessage != "" {
		t.Errorf("reset from Failed left residue: %+v", s)
	}
}

func TestStaleVideoCompletionDiscardedAfterReset(t *testing.T) {
	p := newFakeProvider()
	release := make(chan struct{})
	p.pollFn = func(context.Context, VideoJob) (VideoPoll, error) {
		<-release
		return VideoPoll{Done: true, URI: "https://video.example/stale.mp4"}, nil
	}
	auth := &fakeAuthorizer{authorized: true}
	rec := &fakeRecorder{clip: Blob{Data: []byte("clip")}}
	o, snaps := newTestOrchestrator(p, auth, rec)

	record(t, o)
	waitPhase(t, snaps, PhaseReady)

	if err := o.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	close(release)
	time.Sleep(20 * time.Millisecond)

	if s := o.Snapshot(); s.Phase != PhaseIdle || s.Assets != nil {
		t.Errorf("stale video completion patched a reset session: %+v", s)
	}
}

func TestStartRejectedWhileSessionActive(t *testing.T) {
	p := newFakeProvider()
	auth := &fakeAuthorizer{authorized: true}
	rec := &fakeRecorder{clip: Blob{Data: []byte("clip")}}
	o, _ := newTestOrchestrator(p, auth, rec)

	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := o.Start(context.Background()); !errors.Is(err, ErrSessionActive) {
		t.Errorf("second Start = %v, want ErrSessionActive", err)
	}
}

func TestCaptureDeniedStaysIdle(t *testing.T) {
	p := newFakeProvider()
	auth := &fakeAuthorizer{authorized: true}
	rec := &fakeRecorder{startErr: errors.New("permission denied by user")}
	o, _ := newTestOrchestrator(p, auth, rec)

	err := o.Start(context.Background())
	var cerr *CaptureError
	if !errors.As(err, &cerr) {
		t.Fatalf("Start = %v, want *CaptureError", err)
	}
	s := o.Snapshot()
	if s.Phase != PhaseIdle {
		t.Errorf("phase = %s, capture denial must not enter Failed", s.Phase)
	}
	if s.ErrorMessage == "" {
		t.Error("capture denial must surface an inline error message")
	}

	// The user fixes permissions and retries.
	rec.mu.Lock()
	rec.startErr = nil
	rec.mu.Unlock()
	if err := o.Start(context.Background()); err != nil {
		t.Errorf("retry after capture denial: %v", err)
	}
}

func TestPreflightAuthorizationPrompt(t *testing.T) {
	p := newFakeProvider()
	auth := &fakeAuthorizer{authorized: false}
	rec := &fakeRecorder{clip: Blob{Data: []byte("clip")}}
	o, _ := newTestOrchestrator(p, auth, rec)

	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := auth.requests.Load(); got != 1 {
		t.Errorf("authorization prompts = %d, want 1", got)
	}
}

func TestPreflightAuthorizationFailureStaysIdle(t *testing.T) {
	p := newFakeProvider()
	auth := &fakeAuthorizer{authorized: false, requestErr: errors.New("user dismissed the picker")}
	rec := &fakeRecorder{clip: Blob{Data: []byte("clip")}}
	o, _ := newTestOrchestrator(p, auth, rec)

	err := o.Start(context.Background())
	var aerr *AuthorizationError
	if !errors.As(err, &aerr) {
		t.Fatalf("Start = %v, want *AuthorizationError", err)
	}
	if s := o.Snapshot(); s.Phase != PhaseIdle {
		t.Errorf("phase = %s, want idle", s.Phase)
	}
	if rec.stoppedCount() != 0 {
		t.Error("microphone must not be requested when authorization fails")
	}
}

func TestStopOutsideCapturing(t *testing.T) {
	p := newFakeProvider()
	o, _ := newTestOrchestrator(p, &fakeAuthorizer{authorized: true}, &fakeRecorder{})
	if err := o.Stop(context.Background()); !errors.Is(err, ErrNotCapturing) {
		t.Errorf("Stop while idle = %v, want ErrNotCapturing", err)
	}
}

func waitUntil(t *testing.T, pred func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if pred() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached")
}
