package crm

import (
	"sync"
	"time"
)

// PendingMessage is one composed outbound text waiting for the external
// messaging tool to pick it up.
type PendingMessage struct {
	MapsLink  string    `json:"maps_link"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Outbox holds at most one PendingMessage. A new Put replaces whatever is
// waiting. A message can be claimed exactly once. With a positive TTL, a
// message older than the TTL is treated as absent and dropped.
type Outbox struct {
	mu      sync.Mutex
	pending *PendingMessage
	ttl     time.Duration
	now     func() time.Time
}

func NewOutbox(ttl time.Duration) *Outbox {
	return &Outbox{ttl: ttl, now: time.Now}
}

// Put stamps msg with the current time and stores it, replacing any
// unclaimed message. It returns the stored copy.
func (o *Outbox) Put(msg PendingMessage) PendingMessage {
	o.mu.Lock()
	defer o.mu.Unlock()

	msg.CreatedAt = o.now().UTC()
	o.pending = &msg
	return msg
}

// Peek returns the waiting message without claiming it.
func (o *Outbox) Peek() (PendingMessage, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.liveLocked() {
		return PendingMessage{}, false
	}
	return *o.pending, true
}

// Claim returns the waiting message and empties the slot.
func (o *Outbox) Claim() (PendingMessage, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.liveLocked() {
		return PendingMessage{}, false
	}
	msg := *o.pending
	o.pending = nil
	return msg, true
}

// liveLocked reports whether the slot holds an unexpired message, clearing
// it when expired. o.mu must be held.
func (o *Outbox) liveLocked() bool {
	if o.pending == nil {
		return false
	}
	if o.ttl > 0 && o.now().Sub(o.pending.CreatedAt) > o.ttl {
		o.pending = nil
		return false
	}
	return true
}
