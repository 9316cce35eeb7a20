// Package studio hosts the browser studio: it serves the capture page
// and bridges one orchestration session per websocket connection. The
// browser owns the microphone (MediaRecorder) and streams encoded chunks
// over the socket; the server owns the session state machine and pushes
// a snapshot on every transition.
package studio

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vibelab/vibecard/pkg/vibe"
)

//go:embed templates/*
var templateFS embed.FS

var tmpl = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var upgrader = websocket.Upgrader{
	ReadBufferSize:  8192,
	WriteBufferSize: 8192,
}

// Server serves the studio page and its websocket endpoint.
type Server struct {
	Addr     string
	Provider vibe.Provider
	Logger   *slog.Logger

	// PollInterval and MaxPolls are forwarded to each session's
	// orchestrator; zero values keep the defaults.
	PollInterval time.Duration
	MaxPolls     int
}

// ListenAndServe blocks serving the studio.
func (s *Server) ListenAndServe() error {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ws", s.handleWS)

	s.Logger.Info("studio listening", "addr", s.Addr)
	return http.ListenAndServe(s.Addr, mux)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if err := tmpl.ExecuteTemplate(w, "studio.html", nil); err != nil {
		s.Logger.Error("render studio page", "error", err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sess := newSession(conn, s)
	s.Logger.Info("studio session connected", "remote", conn.RemoteAddr())
	sess.run(r.Context())
	s.Logger.Info("studio session closed", "remote", conn.RemoteAddr())
}

func orchestratorOptions(s *Server, sess *session) []vibe.Option {
	opts := []vibe.Option{
		vibe.WithLogger(s.Logger),
		vibe.WithNotify(sess.sendSnapshot),
	}
	if s.PollInterval > 0 {
		opts = append(opts, vibe.WithPollInterval(s.PollInterval))
	}
	if s.MaxPolls > 0 {
		opts = append(opts, vibe.WithMaxPolls(s.MaxPolls))
	}
	return opts
}

// String implements fmt.Stringer for logs.
func (s *Server) String() string { return fmt.Sprintf("studio(%s)", s.Addr) }
