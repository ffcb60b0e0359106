package activity

import "fmt"

// Field names tracked for every kernel.
const (
	LastMessageToClient  = "last_message_to_client"
	LastMessageToKernel  = "last_message_to_kernel"
	LastTimeStateChanged = "last_time_state_changed"
	Busy                 = "busy"
	Connections          = "connections"
	LastClientConnect    = "last_client_connect"
	LastClientDisconnect = "last_client_disconnect"
)

// Record holds the tracked activity values for one kernel. Values are
// heterogeneous: timestamp fields start at nil, the busy flag is a bool and
// the connection count is an int, all keyed by field name. Publish accepts
// field names outside the recognized set, so a record may carry extra keys.
type Record map[string]any

func newRecord() Record {
	return Record{
		LastMessageToClient:  nil,
		LastMessageToKernel:  nil,
		LastTimeStateChanged: nil,
		Busy:                 false,
		Connections:          0,
		LastClientConnect:    nil,
		LastClientDisconnect: nil,
	}
}

func (r Record) clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// FieldTypeError reports an Increment or Decrement against a field whose
// current value is not an int, e.g. a timestamp field still holding nil.
type FieldTypeError struct {
	KernelID string
	Field    string
	Value    any
}

func (e *FieldTypeError) Error() string {
	return fmt.Sprintf("activity field %q of kernel %q holds %T, not int", e.Field, e.KernelID, e.Value)
}
