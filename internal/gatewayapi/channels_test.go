package gatewayapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"

	"kernelactivity/gateway/internal/activity"
	"kernelactivity/gateway/internal/protocol"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestChannelsTrackConnectionsAndMessages(t *testing.T) {
	ts, reg, tbl := newTestServer(t, Deps{})
	if _, err := tbl.Register("k1", "python3"); err != nil {
		t.Fatalf("register kernel failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wsURL := "ws" + ts.URL[len("http"):] + "/api/v1/kernels/k1/channels"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	waitFor(t, "connection count", func() bool {
		rec, _ := reg.Peek("k1")
		return rec[activity.Connections] == 1
	})
	if rec, _ := reg.Peek("k1"); rec[activity.LastClientConnect] == nil {
		t.Fatal("connect should stamp last_client_connect")
	}

	req := protocol.NewEnvelope("execute_request", protocol.ChannelShell, map[string]any{"code": "1+1"})
	raw, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request failed: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, raw); err != nil {
		t.Fatalf("write request failed: %v", err)
	}

	var got []protocol.Envelope
	for len(got) < 3 {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read reply failed: %v", err)
		}
		env, err := protocol.Parse(msg)
		if err != nil {
			t.Fatalf("parse reply failed: %v", err)
		}
		got = append(got, env)
	}

	if state, ok := got[0].ExecutionState(); !ok || state != protocol.ExecutionStateBusy {
		t.Fatalf("first frame should be busy status, got %+v", got[0])
	}
	if got[1].Header.MsgType != "execute_reply" {
		t.Fatalf("second frame should be execute_reply, got %+v", got[1])
	}
	if state, ok := got[2].ExecutionState(); !ok || state != protocol.ExecutionStateIdle {
		t.Fatalf("third frame should be idle status, got %+v", got[2])
	}

	rec, _ := reg.Peek("k1")
	if rec[activity.LastMessageToKernel] == nil {
		t.Fatal("client frame should stamp last_message_to_kernel")
	}
	if rec[activity.LastMessageToClient] == nil {
		t.Fatal("kernel frame should stamp last_message_to_client")
	}
	if rec[activity.LastTimeStateChanged] == nil {
		t.Fatal("status frames should stamp last_time_state_changed")
	}
	if rec[activity.Busy] != false {
		t.Fatalf("kernel should be idle after reply, got busy=%v", rec[activity.Busy])
	}

	_ = conn.Close(websocket.StatusNormalClosure, "")
	waitFor(t, "disconnect bookkeeping", func() bool {
		rec, _ := reg.Peek("k1")
		return rec[activity.Connections] == 0
	})
	if rec, _ := reg.Peek("k1"); rec[activity.LastClientDisconnect] == nil {
		t.Fatal("disconnect should stamp last_client_disconnect")
	}
}

func TestChannelsUnknownKernel(t *testing.T) {
	ts, _, _ := newTestServer(t, Deps{})
	resp, err := http.Get(ts.URL + "/api/v1/kernels/ghost/channels")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("channels for unknown kernel should 404, got %d", resp.StatusCode)
	}
}

func TestBroadcastWithoutClientsStillStampsActivity(t *testing.T) {
	reg := activity.NewRegistry()
	hub := NewChannelHub(reg, nil)
	hub.Broadcast("k1", protocol.NewStatus(protocol.ExecutionStateBusy))
	rec := reg.RecordFor("k1")
	if rec[activity.Busy] != true {
		t.Fatalf("broadcast status should flip busy, got %v", rec[activity.Busy])
	}
	if rec[activity.LastMessageToClient] == nil {
		t.Fatal("broadcast should stamp last_message_to_client")
	}
	if hub.ConnectionCount("k1") != 0 {
		t.Fatalf("no clients expected, got %d", hub.ConnectionCount("k1"))
	}
}
