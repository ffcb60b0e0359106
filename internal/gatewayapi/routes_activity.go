package gatewayapi

import (
	"net/http"
	"strconv"
	"strings"
)

func (s *Server) registerActivityRoutes() {
	s.mux.HandleFunc("/api/v1/activity", s.handleActivitySnapshot)
	s.mux.HandleFunc("/api/v1/activity/", s.handleActivityDetail)
	s.mux.HandleFunc("/api/v1/journal", s.handleJournal)
}

func (s *Server) handleActivitySnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	if s.deps.Activity == nil {
		respondError(w, http.StatusInternalServerError, "ACTIVITY_UNAVAILABLE", "activity registry is unavailable")
		return
	}
	respondOK(w, s.deps.Activity.Snapshot())
}

func (s *Server) handleActivityDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	if s.deps.Activity == nil {
		respondError(w, http.StatusInternalServerError, "ACTIVITY_UNAVAILABLE", "activity registry is unavailable")
		return
	}
	kernelID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/activity/"), "/")
	if kernelID == "" || strings.Contains(kernelID, "/") {
		respondError(w, http.StatusBadRequest, "INVALID_KERNEL_ID", "kernel id is required")
		return
	}
	rec, tracked := s.deps.Activity.Peek(kernelID)
	respondOK(w, map[string]any{
		"kernel_id": kernelID,
		"tracked":   tracked,
		"activity":  rec,
	})
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	if s.deps.Journal == nil {
		respondError(w, http.StatusNotImplemented, "JOURNAL_DISABLED", "activity journal is disabled")
		return
	}
	limit := s.deps.JournalLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := s.deps.Journal.List(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "JOURNAL_LIST_FAILED", err.Error())
		return
	}
	respondOK(w, entries)
}
