package studio

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vibelab/vibecard/pkg/capture"
	"github.com/vibelab/vibecard/pkg/vibe"
)

// Wire protocol, one JSON object per text frame. Binary frames carry
// encoded audio chunks while a capture is open.
//
// client -> server: start, stop, reset, captureReady, captureError,
// captureDone, authDone.
// server -> client: captureStart, captureStop, authRequired, snapshot.
type message struct {
	Type     string         `json:"type"`
	MIMEType string         `json:"mimeType,omitempty"`
	Message  string         `json:"message,omitempty"`
	Snapshot *vibe.Snapshot `json:"snapshot,omitempty"`
}

const (
	captureStartTimeout = 15 * time.Second
	captureFlushTimeout = 10 * time.Second
	authTimeout         = 2 * time.Minute
)

// session binds one websocket connection to one orchestrator. The
// browser side is both the recorder and the authorization prompt, so
// the session implements vibe.Recorder and vibe.Authorizer over the
// socket.
type session struct {
	conn   *websocket.Conn
	logger *slog.Logger
	orch   *vibe.Orchestrator
	buf    *capture.Buffer

	writeMu sync.Mutex

	ready    chan error    // captureReady / captureError
	flushed  chan struct{} // captureDone
	authDone chan struct{}
}

func newSession(conn *websocket.Conn, srv *Server) *session {
	sess := &session{
		conn:     conn,
		logger:   srv.Logger,
		ready:    make(chan error, 1),
		flushed:  make(chan struct{}, 1),
		authDone: make(chan struct{}, 1),
	}
	sess.buf = capture.NewBuffer("audio/webm", nil)
	sess.orch = vibe.New(srv.Provider, sess, sess, orchestratorOptions(srv, sess)...)
	return sess
}

func (s *session) run(ctx context.Context) {
	s.sendSnapshot(s.orch.Snapshot())

	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read", "error", err)
			}
			return
		}
		switch mt {
		case websocket.BinaryMessage:
			if err := s.buf.Push(data); err != nil {
				s.logger.Debug("dropping audio chunk", "error", err)
			}
		case websocket.TextMessage:
			var m message
			if err := json.Unmarshal(data, &m); err != nil {
				s.logger.Warn("bad studio message", "error", err)
				continue
			}
			s.dispatch(ctx, m)
		}
	}
}

// dispatch handles one control message. Session operations run in their
// own goroutine because they block on socket round trips that this read
// loop has to keep servicing.
func (s *session) dispatch(ctx context.Context, m message) {
	switch m.Type {
	case "start":
		go func() {
			if err := s.orch.Start(ctx); err != nil {
				s.logger.Info("start rejected", "error", err)
			}
		}()
	case "stop":
		go func() {
			if err := s.orch.Stop(ctx); err != nil {
				s.logger.Info("stop rejected", "error", err)
			}
		}()
	case "reset":
		go s.orch.Reset()
	case "captureReady":
		s.buf.SetMIMEType(m.MIMEType)
		s.deliverReady(nil)
	case "captureError":
		s.deliverReady(errors.New(m.Message))
	case "captureDone":
		select {
		case s.flushed <- struct{}{}:
		default:
		}
	case "authDone":
		select {
		case s.authDone <- struct{}{}:
		default:
		}
	default:
		s.logger.Warn("unknown studio message", "type", m.Type)
	}
}

func (s *session) deliverReady(err error) {
	select {
	case s.ready <- err:
	default:
	}
}

// --- vibe.Recorder over the socket

// Start asks the browser to open the microphone and waits for its
// answer.
func (s *session) Start(ctx context.Context) error {
	if err := s.buf.Start(ctx); err != nil {
		return err
	}
	if err := s.send(message{Type: "captureStart"}); err != nil {
		return err
	}
	select {
	case err := <-s.ready:
		return err
	case <-time.After(captureStartTimeout):
		return errors.New("studio: browser did not start capture")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop tells the browser to finish the recording and waits briefly for
// the final chunk flush before sealing the clip.
func (s *session) Stop() (vibe.Blob, error) {
	if err := s.send(message{Type: "captureStop"}); err == nil {
		select {
		case <-s.flushed:
		case <-time.After(captureFlushTimeout):
			s.logger.Warn("capture flush timed out, sealing clip as-is")
		}
	}
	return s.buf.Stop()
}

// --- vibe.Authorizer over the socket

// CheckAuthorization reports whether the backend credential is in
// place. The studio holds the key server-side, so a constructed
// provider is an authorized one.
func (s *session) CheckAuthorization(context.Context) (bool, error) {
	return true, nil
}

// RequestAuthorization raises a prompt in the browser and waits for the
// user to acknowledge it.
func (s *session) RequestAuthorization(ctx context.Context) error {
	if err := s.send(message{Type: "authRequired"}); err != nil {
		return err
	}
	select {
	case <-s.authDone:
		return nil
	case <-time.After(authTimeout):
		return errors.New("studio: authorization prompt timed out")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *session) sendSnapshot(snap vibe.Snapshot) {
	if err := s.send(message{Type: "snapshot", Snapshot: &snap}); err != nil {
		s.logger.Debug("snapshot push failed", "error", err)
	}
}

func (s *session) send(m message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(m)
}

var (
	_ vibe.Recorder   = (*session)(nil)
	_ vibe.Authorizer = (*session)(nil)
)
