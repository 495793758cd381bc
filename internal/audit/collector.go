package audit

import (
	"context"
	"sync"
)

// Collector is a synchronous Recorder that keeps every event. It backs the
// dev event viewer and is used by tests across the portal.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *Collector) Record(ctx context.Context, event Event) {
	if event.RequestID == "" {
		event.RequestID = RequestIDFrom(ctx)
	}
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
}

func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Has reports whether an event or action with the given name was recorded.
func (c *Collector) Has(name string) bool {
	for _, e := range c.Events() {
		if e.Event == name || e.Action == name {
			return true
		}
	}
	return false
}
