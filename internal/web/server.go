// Package web provides the HTTP binding for the Command Interface: a
// status page (HTML+JSON, ported from the teacher's daemon status page)
// plus JSON endpoints for every Command Interface operation. Unlike the
// teacher's read-only daemon, this binding also accepts mutations, so the
// route table grows path parameters and the plain http.ServeMux the
// teacher used is replaced with gorilla/mux.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/sweeney/espresso-controller/internal/command"
	"github.com/sweeney/espresso-controller/internal/mode"
)

// Server serves the status page and Command Interface over HTTP.
type Server struct {
	httpServer *http.Server
	cmd        *command.Interface
}

// New creates a Server bound to cmdIface, following the teacher's
// internal/web/server.go route-table shape.
func New(addr string, cmdIface *command.Interface) *Server {
	s := &Server{cmd: cmdIface}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.html", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.json", s.handleIndexJSON).Methods(http.MethodGet)
	r.HandleFunc("/mode", s.handleGetMode).Methods(http.MethodGet)
	r.HandleFunc("/mode", s.handleSetMode).Methods(http.MethodPost)
	r.HandleFunc("/target", s.handleSetTarget).Methods(http.MethodPost)
	r.HandleFunc("/gains", s.handleSetGains).Methods(http.MethodPost)
	r.HandleFunc("/gain/{name}", s.handleSetGain).Methods(http.MethodPost)
	r.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/state", s.handleGetState).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: handlers.CombinedLoggingHandler(os.Stdout, r),
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	modeSnap := s.cmd.GetMode()
	stateSnap := s.cmd.GetState()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, modeSnap, stateSnap)
}

func (s *Server) handleIndexJSON(w http.ResponseWriter, r *http.Request) {
	modeSnap := s.cmd.GetMode()
	stateSnap := s.cmd.GetState()
	writeJSON(w, http.StatusOK, formatStatusJSON(modeSnap, stateSnap))
}

func (s *Server) handleGetMode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, formatModeJSON(s.cmd.GetMode()))
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req setModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var duration *time.Duration
	if req.DurationSeconds != nil {
		d := time.Duration(*req.DurationSeconds) * time.Second
		duration = &d
	}

	result, err := s.cmd.SetMode(mode.Mode(req.Mode), duration)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, formatModeJSON(result))
}

func (s *Server) handleSetTarget(w http.ResponseWriter, r *http.Request) {
	var req setTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.cmd.SetTarget(req.Target)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, targetJSON{Target: result.Target, Mode: string(result.Mode)})
}

func (s *Server) handleSetGains(w http.ResponseWriter, r *http.Request) {
	var req setGainsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	gains, err := s.cmd.SetGains(req.P, req.I, req.D)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gainsJSON{P: gains.P, I: gains.I, D: gains.D})
}

func (s *Server) handleSetGain(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var req setGainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	value, err := s.cmd.SetGain(command.GainName(name), req.Value)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, singleGainJSON{Name: name, Value: value})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}

	records, err := s.cmd.History(limit)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, formatHistoryJSON(records))
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, formatStateJSON(s.cmd.GetState()))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		slog.Error("web: failed to marshal response", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorJSON{Error: message})
}

// writeCommandError maps the Command Interface's two failure kinds
// (spec.md §4.11) onto HTTP status codes.
func writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case err == command.ErrValidation:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
