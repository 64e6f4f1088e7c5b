package events

import "sync"

// DefaultCapacity is the per-subscriber buffer size.
const DefaultCapacity = 256

// Bus is a typed broadcast channel. Publish never blocks: every live
// subscriber receives every event independently, and a subscriber that
// falls more than its buffer capacity behind loses the oldest unread
// events. Delivery is best-effort, not a reliable log.
type Bus struct {
	mu       sync.Mutex
	subs     map[int]*Subscription
	nextID   int
	capacity int
}

// NewBus creates a bus with the given per-subscriber capacity.
// capacity <= 0 selects DefaultCapacity.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		subs:     make(map[int]*Subscription),
		capacity: capacity,
	}
}

// Subscription is one receiver attached to the bus.
type Subscription struct {
	bus *Bus
	id  int
	ch  chan Event
}

// C returns the receive channel. It is closed on Unsubscribe.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Unsubscribe detaches the receiver and closes its channel.
func (s *Subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if _, ok := s.bus.subs[s.id]; !ok {
		return
	}
	delete(s.bus.subs, s.id)
	close(s.ch)
}

// Subscribe attaches a new receiver.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := &Subscription{
		bus: b,
		id:  b.nextID,
		ch:  make(chan Event, b.capacity),
	}
	b.subs[sub.id] = sub
	b.nextID++
	return sub
}

// Publish fans the event out to every subscriber without blocking.
// A full subscriber buffer sheds its oldest unread event to make room.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			// Buffer full: shed the oldest event, then retry once. The
			// retry can still lose ev if a concurrent receiver races us;
			// either way the publisher does not block.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- ev:
			default:
			}
		}
	}
}

// SubscriberCount reports the number of attached receivers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
