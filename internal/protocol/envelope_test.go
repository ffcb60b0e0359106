package protocol

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewEnvelopeFillsHeader(t *testing.T) {
	env := NewEnvelope("execute_request", ChannelShell, map[string]any{"code": "1+1"})
	if env.Header.MessageID == "" {
		t.Fatal("expected generated message id")
	}
	if env.Header.MsgType != "execute_request" {
		t.Fatalf("unexpected msg_type: %s", env.Header.MsgType)
	}
	if _, err := time.Parse(time.RFC3339Nano, env.Header.Date); err != nil {
		t.Fatalf("header date is not RFC3339: %v", err)
	}
	if env.Channel != ChannelShell {
		t.Fatalf("unexpected channel: %s", env.Channel)
	}
}

func TestParseRoundTrip(t *testing.T) {
	raw, err := json.Marshal(NewStatus(ExecutionStateBusy))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	env, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	state, ok := env.ExecutionState()
	if !ok || state != ExecutionStateBusy {
		t.Fatalf("expected busy status, got state=%q ok=%v", state, ok)
	}
}

func TestParseRejectsMissingMsgType(t *testing.T) {
	if _, err := Parse([]byte(`{"header":{},"channel":"shell","content":{}}`)); err == nil {
		t.Fatal("expected missing msg_type error")
	}
	if _, err := Parse([]byte(`not json`)); err == nil {
		t.Fatal("expected parse error for invalid json")
	}
}

func TestExecutionStateOnlyForStatus(t *testing.T) {
	env := NewEnvelope("execute_reply", ChannelShell, map[string]any{"status": "ok"})
	if _, ok := env.ExecutionState(); ok {
		t.Fatal("non-status message should not report an execution state")
	}
	bad := Envelope{Header: Header{MsgType: MsgTypeStatus}, Content: json.RawMessage(`{}`)}
	if _, ok := bad.ExecutionState(); ok {
		t.Fatal("status without execution_state should not report a state")
	}
}
