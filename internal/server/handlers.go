package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"signbridge/internal/catalog"
	"signbridge/internal/logging"
)

const maxConvertBody = 64 << 10

type convertRequest struct {
	Text string `json:"text"`
}

type convertResponse struct {
	Results []catalog.Match `json:"results"`
}

// StatusResponse is the /api/status payload.
type StatusResponse struct {
	Clips          int       `json:"clips"`
	LastScan       time.Time `json:"last_scan,omitzero"`
	ClipsDir       string    `json:"clips_dir"`
	DatabasePath   string    `json:"database_path"`
	OverlayClients int       `json:"overlay_clients"`
	UptimeSeconds  int64     `json:"uptime_seconds"`
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.limits.allow(r) {
		w.Header().Set("Retry-After", "1")
		s.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	var req convertRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxConvertBody)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	results, err := s.resolver.Resolve(r.Context(), strings.TrimSpace(req.Text))
	if err != nil {
		s.logger.Error("convert failed", logging.Error(err), logging.String(logging.FieldEventType, "convert_failed"))
		s.writeError(w, http.StatusInternalServerError, "catalog lookup failed")
		return
	}
	s.logger.Debug("converted text", logging.Int("clips", len(results)))
	s.writeJSON(w, http.StatusOK, convertResponse{Results: results})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	count, err := s.index.Count(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	last, err := s.index.LastScan(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	payload := StatusResponse{
		Clips:        count,
		LastScan:     last,
		ClipsDir:     s.cfg.Catalog.ClipsDir,
		DatabasePath: s.index.Path(),
	}
	if s.clients != nil {
		payload.OverlayClients = s.clients.ClientCount()
	}
	if !s.started.IsZero() {
		payload.UptimeSeconds = int64(time.Since(s.started).Seconds())
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
