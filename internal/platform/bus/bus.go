package bus

import "sync"

// Message is one published event as seen by collaborator subscribers.
type Message struct {
	Topic   string
	Payload []byte
}

// Bus is a lightweight in-process pub-sub: the delivery boundary between the
// distribution engine and whatever renders its notifications (a chat
// collaborator in the original deployment). Subscribers get buffered
// channels; a full subscriber drops the message rather than blocking the
// publisher.
type Bus struct {
	mu     sync.RWMutex
	buffer int
	subs   []chan Message
}

func New(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{buffer: buffer}
}

// Subscribe registers a new subscriber channel receiving every subsequent
// publish.
func (b *Bus) Subscribe() <-chan Message {
	ch := make(chan Message, b.buffer)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Publish fans the message out without blocking. It reports how many
// subscribers accepted it.
func (b *Bus) Publish(msg Message) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	delivered := 0
	for _, ch := range b.subs {
		select {
		case ch <- msg:
			delivered++
		default:
		}
	}
	return delivered
}
