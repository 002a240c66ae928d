// Package httpapi implements the local-loopback control HTTP server over
// the TTS queue engine: status, speak, voice selection, cancellation, and
// the do-not-disturb toggles, plus a websocket status stream for clients
// that would otherwise poll.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/Mizzlr/whisper-typer/internal/logger"
	"github.com/Mizzlr/whisper-typer/internal/ttsqueue"
)

// Server serves the loopback control surface.
type Server struct {
	engine *ttsqueue.Engine
	log    *logger.Logger
	srv    *http.Server
}

// New builds a Server bound to 127.0.0.1:port. Call Run to start it.
func New(engine *ttsqueue.Engine, port int, log *logger.Logger) *Server {
	mux := http.NewServeMux()
	s := &Server{engine: engine, log: log}

	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/status/stream", s.handleStatusStream)
	mux.HandleFunc("/speak", s.handleSpeak)
	mux.HandleFunc("/set-voice", s.handleSetVoice)
	mux.HandleFunc("/cancel", s.handleCancel)
	mux.HandleFunc("/cancel-reminder", s.handleCancelReminder)
	mux.HandleFunc("/user-input", s.handleUserInput)
	mux.HandleFunc("/enable", s.handleEnable)
	mux.HandleFunc("/disable", s.handleDisable)

	s.srv = &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: mux,
	}
	return s
}

// Run starts the server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("httpapi: listen on %s: %w", s.srv.Addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("control API listening on %s", s.srv.Addr)
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

type statusResponse struct {
	Enabled        bool   `json:"enabled"`
	Speaking       bool   `json:"speaking"`
	Voice          string `json:"voice"`
	ModelLoaded    bool   `json:"model_loaded"`
	ReminderActive bool   `json:"reminder_active"`
	ReminderCount  uint32 `json:"reminder_count"`
	QueueDepth     int    `json:"queue_depth"`
	DeferredCount  int    `json:"deferred_count"`
}

func (s *Server) status() statusResponse {
	st := s.engine.Status()
	return statusResponse{
		Enabled:        st.Enabled,
		Speaking:       st.Speaking,
		Voice:          st.Voice,
		ModelLoaded:    true,
		ReminderActive: st.ReminderActive,
		ReminderCount:  st.ReminderCount,
		QueueDepth:     st.QueueDepth,
		DeferredCount:  st.DeferredCount,
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

// handleStatusStream pushes a status snapshot every second until the
// client disconnects.
func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "closing")

	ctx := r.Context()
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		data, err := json.Marshal(s.status())
		if err != nil {
			return
		}
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

type simpleResponse struct {
	Status         string  `json:"status"`
	Voice          *string `json:"voice,omitempty"`
	Error          *string `json:"error,omitempty"`
	RemindersFired *uint32 `json:"reminders_fired,omitempty"`
	Requeued       *int    `json:"requeued,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, status string) {
	writeJSON(w, http.StatusOK, simpleResponse{Status: status})
}

func writeErr(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, simpleResponse{Status: "error", Error: &message})
}

type speakRequest struct {
	Text          string `json:"text"`
	Summarize     bool   `json:"summarize"`
	EventType     string `json:"event_type"`
	StartReminder bool   `json:"start_reminder"`
	SessionID     string `json:"session_id"`
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeErr(w, "empty text")
		return
	}
	if req.EventType == "" {
		req.EventType = "unknown"
	}

	result := s.engine.HandleSpeak(ttsqueue.SpeakJob{
		Text:          req.Text,
		Summarize:     req.Summarize,
		EventType:     req.EventType,
		StartReminder: req.StartReminder,
		SessionID:     req.SessionID,
	})
	writeOK(w, string(result))
}

type setVoiceRequest struct {
	Voice string `json:"voice"`
}

func (s *Server) handleSetVoice(w http.ResponseWriter, r *http.Request) {
	var req setVoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, "invalid request body")
		return
	}
	if err := s.engine.SetVoice(req.Voice); err != nil {
		writeErr(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, simpleResponse{Status: "ok", Voice: &req.Voice})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.engine.Cancel()
	writeOK(w, "cancelled")
}

func (s *Server) handleCancelReminder(w http.ResponseWriter, r *http.Request) {
	count := s.engine.CancelReminder()
	writeJSON(w, http.StatusOK, simpleResponse{Status: "cancelled", RemindersFired: &count})
}

type userInputRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleUserInput(w http.ResponseWriter, r *http.Request) {
	var req userInputRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	requeued := s.engine.UserInput(req.SessionID)
	writeJSON(w, http.StatusOK, simpleResponse{Status: "ok", Requeued: &requeued})
}

func (s *Server) handleEnable(w http.ResponseWriter, r *http.Request) {
	s.engine.Enable()
	writeOK(w, "enabled")
}

func (s *Server) handleDisable(w http.ResponseWriter, r *http.Request) {
	s.engine.Disable()
	writeOK(w, "disabled")
}
