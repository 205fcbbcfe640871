package schedule

import (
	"sync"

	"github.com/quantrinhansu123/trungtam8pluspro-sub001/internal/domain"
)

// Notifier fans store change events out to in-process subscribers. The
// stores are last-write-wins and the engine never merges optimistically; a
// subscriber reacts to an event by dropping its snapshot and re-reading.
type Notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]chan domain.ChangeEvent
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan domain.ChangeEvent)}
}

// Subscribe registers a buffered listener and returns its id for
// Unsubscribe.
func (n *Notifier) Subscribe() (int, <-chan domain.ChangeEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	ch := make(chan domain.ChangeEvent, 16)
	n.subs[id] = ch
	return id, ch
}

func (n *Notifier) Unsubscribe(id int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if ch, ok := n.subs[id]; ok {
		delete(n.subs, id)
		close(ch)
	}
}

// Publish delivers the event to every subscriber without blocking; a
// subscriber with a full buffer misses the event and catches up on the next
// one, which is safe because events only signal "re-read".
func (n *Notifier) Publish(event domain.ChangeEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
