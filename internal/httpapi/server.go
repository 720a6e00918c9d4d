package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/chanlock/chanlock/internal/chanlock/service"
	"github.com/chanlock/chanlock/internal/chanlock/types"
)

type Dependencies struct {
	Logger     *log.Logger
	Addr       string
	Controller *service.AccessController
}

type Server struct {
	httpServer *http.Server
	logger     *log.Logger
	router     *mux.Router
	controller *service.AccessController
}

func NewServer(d Dependencies) *Server {
	r := mux.NewRouter()

	s := &Server{
		logger:     d.Logger,
		router:     r,
		controller: d.Controller,
	}

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/v1/protected", s.handleListProtected).Methods(http.MethodGet)
	r.HandleFunc("/v1/protect", s.handleProtect).Methods(http.MethodPost)
	r.HandleFunc("/v1/unlock", s.handleUnlock).Methods(http.MethodPost)

	handler := requestIDMiddleware(loggingMiddleware(d.Logger, r))

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleListProtected(w http.ResponseWriter, r *http.Request) {
	resp, err := s.controller.ListProtected(r.Context())
	if err != nil {
		s.logger.Printf("list protected error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProtect(w http.ResponseWriter, r *http.Request) {
	var req types.ProtectRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	resp, err := s.controller.Protect(r.Context(), req.Resource, req.Passphrase)
	if err != nil {
		s.writeControllerError(w, "protect", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	var req types.UnlockRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	resp, err := s.controller.Unlock(r.Context(), req.Resource, req.Subject, req.Passphrase)
	if err != nil {
		s.writeControllerError(w, "unlock", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeControllerError maps controller sentinels to HTTP replies.  An
// unprotected resource and a wrong passphrase produce the identical reply
// on purpose: a denied unlock must not reveal which hidden channels are
// passphrase-protected.
func (s *Server) writeControllerError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrResourceRequired),
		errors.Is(err, service.ErrSubjectRequired),
		errors.Is(err, service.ErrPassphraseRequired):
		writeError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, service.ErrResourceNotFound):
		writeError(w, http.StatusNotFound, "resource_not_found", "channel not found")
	case errors.Is(err, service.ErrNotProtected),
		errors.Is(err, service.ErrInvalidPassphrase):
		writeError(w, http.StatusForbidden, "unlock_denied", "invalid passphrase")
	case errors.Is(err, service.ErrAdapter):
		s.logger.Printf("%s adapter error: %v", op, err)
		writeError(w, http.StatusBadGateway, "platform_unavailable", "chat platform is unavailable, try again")
	default:
		s.logger.Printf("%s error: %v", op, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}

type errorBody struct {
	OK      bool   `json:"ok"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{OK: false, Code: code, Message: message})
}
