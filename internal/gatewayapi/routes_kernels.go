package gatewayapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"kernelactivity/gateway/internal/kernels"
)

func (s *Server) registerKernelRoutes() {
	s.mux.HandleFunc("/api/v1/kernels", s.handleKernelCollection)
	s.mux.HandleFunc("/api/v1/kernels/", s.handleKernelActions)
}

func (s *Server) handleKernelCollection(w http.ResponseWriter, r *http.Request) {
	if s.deps.Kernels == nil {
		respondError(w, http.StatusInternalServerError, "KERNELS_UNAVAILABLE", "kernel table is unavailable")
		return
	}
	switch r.Method {
	case http.MethodGet:
		respondOK(w, s.deps.Kernels.List())
	case http.MethodPost:
		var req struct {
			ID       string `json:"id"`
			SpecName string `json:"spec_name"`
		}
		if r.Body != nil {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
				respondError(w, http.StatusBadRequest, "INVALID_BODY", "invalid json body")
				return
			}
		}
		k, err := s.deps.Kernels.Register(req.ID, req.SpecName)
		if err != nil {
			respondError(w, http.StatusConflict, "KERNEL_REGISTER_FAILED", err.Error())
			return
		}
		respondOK(w, k)
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}

func (s *Server) handleKernelActions(w http.ResponseWriter, r *http.Request) {
	if s.deps.Kernels == nil {
		respondError(w, http.StatusInternalServerError, "KERNELS_UNAVAILABLE", "kernel table is unavailable")
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/kernels/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		respondError(w, http.StatusBadRequest, "INVALID_KERNEL_ID", "kernel id is required")
		return
	}
	kernelID := parts[0]

	if len(parts) == 2 && parts[1] == "channels" {
		s.handleKernelChannels(w, r, kernelID)
		return
	}
	if len(parts) != 1 {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "unknown kernel route")
		return
	}

	switch r.Method {
	case http.MethodGet:
		k, ok := s.deps.Kernels.Get(kernelID)
		if !ok {
			respondError(w, http.StatusNotFound, "KERNEL_NOT_FOUND", "kernel not found")
			return
		}
		payload := map[string]any{"kernel": k}
		if s.deps.Activity != nil {
			rec, _ := s.deps.Activity.Peek(kernelID)
			payload["activity"] = rec
		}
		respondOK(w, payload)
	case http.MethodDelete:
		if err := s.deps.Kernels.Remove(kernelID); err != nil {
			if errors.Is(err, kernels.ErrNotFound) {
				respondError(w, http.StatusNotFound, "KERNEL_NOT_FOUND", "kernel not found")
				return
			}
			respondError(w, http.StatusInternalServerError, "KERNEL_REMOVE_FAILED", err.Error())
			return
		}
		respondOK(w, map[string]any{"removed": kernelID})
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	}
}

func (s *Server) handleKernelChannels(w http.ResponseWriter, r *http.Request, kernelID string) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	if _, ok := s.deps.Kernels.Get(kernelID); !ok {
		respondError(w, http.StatusNotFound, "KERNEL_NOT_FOUND", "kernel not found")
		return
	}
	s.hub.HandleChannels(w, r, kernelID)
}
