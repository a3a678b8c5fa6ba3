package records

import "sync"

const subscriberBuffer = 16

// Hub fans change notifications out to subscribers inside one process.
// Sends never block: a subscriber that falls behind misses notifications,
// which is fine because every notification triggers a full snapshot reload.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[int]subscription
}

type subscription struct {
	household string
	ch        chan Change
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]subscription)}
}

// Subscribe implements Subscriber.
func (h *Hub) Subscribe(household string) (<-chan Change, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan Change, subscriberBuffer)
	h.subs[id] = subscription{household: household, ch: ch}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

// Publish delivers c to every matching subscriber.
func (h *Hub) Publish(c Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.subs {
		if s.household != "" && s.household != c.Household {
			continue
		}
		select {
		case s.ch <- c:
		default:
		}
	}
}

// Len returns the number of active subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
