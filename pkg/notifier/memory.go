package notifier

import (
	"context"
	"sync"
)

// Emitted captures one Emit call.
type Emitted struct {
	Room    string
	Event   string
	Payload any
}

// MemoryNotifier records emits in memory, for tests.
type MemoryNotifier struct {
	mu      sync.Mutex
	emitted []Emitted
}

func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{}
}

func (n *MemoryNotifier) Emit(ctx context.Context, room, event string, payload any) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.emitted = append(n.emitted, Emitted{Room: room, Event: event, Payload: payload})

	return nil
}

// Emitted returns a snapshot of recorded emits.
func (n *MemoryNotifier) Emits() []Emitted {
	n.mu.Lock()
	defer n.mu.Unlock()

	snapshot := make([]Emitted, len(n.emitted))
	copy(snapshot, n.emitted)

	return snapshot
}
