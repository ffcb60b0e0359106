package gatewayapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"kernelactivity/gateway/internal/activity"
	"kernelactivity/gateway/internal/protocol"
)

// KernelResponder produces the kernel-side frames for a client request.
// Real kernel transport lives outside this process; the default wiring is a
// loopback echo responder.
type KernelResponder interface {
	Respond(kernelID string, req protocol.Envelope) []protocol.Envelope
}

// ChannelHub owns the websocket clients of each kernel and stamps the
// activity registry on every connect, disconnect and message.
type ChannelHub struct {
	mu        sync.RWMutex
	clients   map[string]map[*websocket.Conn]struct{}
	activity  ActivityStore
	responder KernelResponder
	nowFunc   func() time.Time
}

func NewChannelHub(store ActivityStore, responder KernelResponder) *ChannelHub {
	return &ChannelHub{
		clients:   map[string]map[*websocket.Conn]struct{}{},
		activity:  store,
		responder: responder,
		nowFunc:   time.Now,
	}
}

func (h *ChannelHub) HandleChannels(w http.ResponseWriter, r *http.Request, kernelID string) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	h.addClient(kernelID, conn)

	defer func() {
		h.removeClient(kernelID, conn)
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	ctx := r.Context()
	for {
		_, raw, err := conn.Read(ctx)
		if err != nil {
			return
		}
		env, err := protocol.Parse(raw)
		if err != nil {
			continue
		}
		h.stamp(kernelID, activity.LastMessageToKernel)
		if h.responder == nil {
			continue
		}
		for _, reply := range h.responder.Respond(kernelID, env) {
			h.Broadcast(kernelID, reply)
		}
	}
}

// Broadcast delivers a kernel-side frame to every client of the kernel and
// records it in the activity registry. Status frames also flip the busy
// flag.
func (h *ChannelHub) Broadcast(kernelID string, env protocol.Envelope) {
	if h.activity != nil {
		if state, ok := env.ExecutionState(); ok {
			h.activity.Publish(kernelID, activity.Busy, state == protocol.ExecutionStateBusy)
			h.stamp(kernelID, activity.LastTimeStateChanged)
		}
	}

	msg, err := json.Marshal(env)
	if err != nil {
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients[kernelID]))
	for c := range h.clients[kernelID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		_ = c.Write(ctx, websocket.MessageText, msg)
		cancel()
	}
	h.stamp(kernelID, activity.LastMessageToClient)
}

// ConnectionCount reports the hub's own view of a kernel's client count.
func (h *ChannelHub) ConnectionCount(kernelID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[kernelID])
}

func (h *ChannelHub) addClient(kernelID string, conn *websocket.Conn) {
	h.mu.Lock()
	set, ok := h.clients[kernelID]
	if !ok {
		set = map[*websocket.Conn]struct{}{}
		h.clients[kernelID] = set
	}
	set[conn] = struct{}{}
	h.mu.Unlock()

	if h.activity != nil {
		_ = h.activity.Increment(kernelID, activity.Connections)
		h.stamp(kernelID, activity.LastClientConnect)
	}
}

func (h *ChannelHub) removeClient(kernelID string, conn *websocket.Conn) {
	h.mu.Lock()
	if set, ok := h.clients[kernelID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.clients, kernelID)
		}
	}
	h.mu.Unlock()

	if h.activity != nil {
		_ = h.activity.Decrement(kernelID, activity.Connections)
		h.stamp(kernelID, activity.LastClientDisconnect)
	}
}

func (h *ChannelHub) stamp(kernelID, field string) {
	if h.activity == nil {
		return
	}
	h.activity.Publish(kernelID, field, h.nowFunc().UTC())
}

// EchoResponder is the loopback kernel: it brackets every request with
// busy/idle status frames and echoes the request content in a reply.
type EchoResponder struct{}

func (EchoResponder) Respond(_ string, req protocol.Envelope) []protocol.Envelope {
	replyType := "ack"
	if base, ok := strings.CutSuffix(req.Header.MsgType, "_request"); ok {
		replyType = base + "_reply"
	}
	reply := protocol.NewEnvelope(replyType, protocol.ChannelShell, map[string]any{
		"status":  "ok",
		"request": json.RawMessage(req.Content),
	})
	return []protocol.Envelope{
		protocol.NewStatus(protocol.ExecutionStateBusy),
		reply,
		protocol.NewStatus(protocol.ExecutionStateIdle),
	}
}
