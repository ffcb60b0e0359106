package kernels

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"kernelactivity/gateway/internal/activity"
)

// State is the coarse lifecycle state of a kernel as seen by the gateway.
type State string

const (
	StateStarting State = "starting"
	StateIdle     State = "idle"
	StateBusy     State = "busy"
	StateDead     State = "dead"
)

var ErrNotFound = errors.New("kernel not found")

type Kernel struct {
	ID        string    `json:"id"`
	SpecName  string    `json:"spec_name"`
	State     State     `json:"state"`
	StartedAt time.Time `json:"started_at"`
}

// Table is the gateway's bookkeeping view of its kernels. It owns no kernel
// processes; it records which kernel IDs exist and mirrors lifecycle
// changes into the activity registry.
type Table struct {
	mu       sync.RWMutex
	byID     map[string]Kernel
	activity *activity.Registry
	nowFunc  func() time.Time
}

func NewTable(reg *activity.Registry) *Table {
	return &Table{
		byID:     map[string]Kernel{},
		activity: reg,
		nowFunc:  time.Now,
	}
}

// Register adds a kernel to the table. An empty kernelID gets a generated
// UUID. The kernel starts in the starting state and its activity record is
// created immediately.
func (t *Table) Register(kernelID, specName string) (Kernel, error) {
	if t == nil {
		return Kernel{}, errors.New("kernel table is nil")
	}
	id := strings.TrimSpace(kernelID)
	if id == "" {
		id = uuid.NewString()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.byID[id]; exists {
		return Kernel{}, fmt.Errorf("kernel %q already registered", id)
	}
	k := Kernel{
		ID:        id,
		SpecName:  strings.TrimSpace(specName),
		State:     StateStarting,
		StartedAt: t.nowFunc().UTC(),
	}
	t.byID[id] = k

	if t.activity != nil {
		t.activity.RecordFor(id)
	}
	return k, nil
}

func (t *Table) Get(kernelID string) (Kernel, bool) {
	if t == nil {
		return Kernel{}, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	k, ok := t.byID[kernelID]
	return k, ok
}

// List returns all kernels ordered by start time, then ID.
func (t *Table) List() []Kernel {
	if t == nil {
		return []Kernel{}
	}
	t.mu.RLock()
	out := make([]Kernel, 0, len(t.byID))
	for _, k := range t.byID {
		out = append(out, k)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SetState records a kernel state transition and mirrors it into the
// activity registry: the busy flag follows the state and
// last_time_state_changed is stamped on every transition.
func (t *Table) SetState(kernelID string, state State) error {
	if t == nil {
		return errors.New("kernel table is nil")
	}
	t.mu.Lock()
	k, ok := t.byID[kernelID]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("set state for %q: %w", kernelID, ErrNotFound)
	}
	k.State = state
	t.byID[kernelID] = k
	now := t.nowFunc().UTC()
	t.mu.Unlock()

	if t.activity != nil {
		t.activity.Publish(kernelID, activity.Busy, state == StateBusy)
		t.activity.Publish(kernelID, activity.LastTimeStateChanged, now)
	}
	return nil
}

// Remove retires the kernel's activity record, then drops the kernel from
// the table. The activity registry is asked to remove the ID even for
// unknown kernels so a tracked-but-untabled record cannot linger. Activity
// removal runs before the table delete so a removal sink can still look up
// the kernel's metadata.
func (t *Table) Remove(kernelID string) error {
	if t == nil {
		return errors.New("kernel table is nil")
	}
	t.mu.RLock()
	_, ok := t.byID[kernelID]
	t.mu.RUnlock()

	if t.activity != nil {
		t.activity.Remove(kernelID)
	}

	t.mu.Lock()
	delete(t.byID, kernelID)
	t.mu.Unlock()

	if !ok {
		return fmt.Errorf("remove %q: %w", kernelID, ErrNotFound)
	}
	return nil
}
