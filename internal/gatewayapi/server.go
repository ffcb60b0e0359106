package gatewayapi

import (
	"encoding/json"
	"net/http"

	"kernelactivity/gateway/internal/activity"
	"kernelactivity/gateway/internal/journal"
	"kernelactivity/gateway/internal/kernels"
)

type ActivityStore interface {
	Publish(kernelID, field string, value any)
	Increment(kernelID, field string) error
	Decrement(kernelID, field string) error
	Peek(kernelID string) (activity.Record, bool)
	Snapshot() map[string]activity.Record
}

type KernelTable interface {
	Register(kernelID, specName string) (kernels.Kernel, error)
	Get(kernelID string) (kernels.Kernel, bool)
	List() []kernels.Kernel
	SetState(kernelID string, state kernels.State) error
	Remove(kernelID string) error
}

type JournalReader interface {
	List(limit int) ([]journal.Entry, error)
}

type Deps struct {
	Activity     ActivityStore
	Kernels      KernelTable
	Journal      JournalReader // nil disables the journal endpoint
	Responder    KernelResponder
	JournalLimit int
}

type Server struct {
	deps Deps
	mux  *http.ServeMux
	hub  *ChannelHub
}

func NewServer(deps Deps) *Server {
	s := &Server{deps: deps, mux: http.NewServeMux()}
	s.hub = NewChannelHub(deps.Activity, deps.Responder)
	s.registerActivityRoutes()
	s.registerKernelRoutes()
	s.mux.HandleFunc("/healthz", s.handleHealth)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Hub exposes the channel hub so the host can broadcast kernel-side frames.
func (s *Server) Hub() *ChannelHub {
	return s.hub
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondOK(w, map[string]any{"status": "ok"})
}

func respondOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "data": data})
}

func respondError(w http.ResponseWriter, code int, errCode string, msg string) {
	writeJSON(w, code, map[string]any{"ok": false, "error": map[string]any{"code": errCode, "message": msg}})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
