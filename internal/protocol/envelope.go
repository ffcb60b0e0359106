package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Channels a kernel message can travel on.
const (
	ChannelShell = "shell"
	ChannelIOPub = "iopub"
)

// Message types the gateway inspects.
const (
	MsgTypeStatus = "status"
)

// Execution states carried by status messages.
const (
	ExecutionStateBusy = "busy"
	ExecutionStateIdle = "idle"
)

type Header struct {
	MessageID string `json:"msg_id"`
	MsgType   string `json:"msg_type"`
	Date      string `json:"date"`
}

// Envelope is the JSON frame exchanged on a kernel channel websocket.
type Envelope struct {
	Header  Header          `json:"header"`
	Channel string          `json:"channel"`
	Content json.RawMessage `json:"content"`
}

type statusContent struct {
	ExecutionState string `json:"execution_state"`
}

// NewEnvelope builds an envelope with a fresh message ID and the current
// RFC3339 timestamp.
func NewEnvelope(msgType, channel string, content any) Envelope {
	return Envelope{
		Header: Header{
			MessageID: uuid.NewString(),
			MsgType:   strings.TrimSpace(msgType),
			Date:      time.Now().UTC().Format(time.RFC3339Nano),
		},
		Channel: strings.TrimSpace(channel),
		Content: MustRaw(content),
	}
}

// NewStatus builds an iopub status envelope for the given execution state.
func NewStatus(executionState string) Envelope {
	return NewEnvelope(MsgTypeStatus, ChannelIOPub, statusContent{ExecutionState: executionState})
}

func Parse(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, err
	}
	if strings.TrimSpace(env.Header.MsgType) == "" {
		return Envelope{}, errors.New("missing msg_type")
	}
	return env, nil
}

// ExecutionState returns the state carried by a status envelope. The second
// result is false for non-status messages and malformed content.
func (e Envelope) ExecutionState() (string, bool) {
	if e.Header.MsgType != MsgTypeStatus {
		return "", false
	}
	var c statusContent
	if err := json.Unmarshal(e.Content, &c); err != nil {
		return "", false
	}
	state := strings.TrimSpace(c.ExecutionState)
	if state == "" {
		return "", false
	}
	return state, true
}

func MustRaw(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
