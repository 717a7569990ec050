package bus

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/gogpu/framepipe"
)

// Bus errors.
var (
	// ErrBusClosed is returned when operating on a closed bus.
	ErrBusClosed = errors.New("bus: closed")

	// ErrSubscriberExists is returned when a subscriber id is already
	// registered on the topic.
	ErrSubscriberExists = errors.New("bus: subscriber already exists")

	// ErrSubscriberNotFound is returned for unknown topic/id pairs.
	ErrSubscriberNotFound = errors.New("bus: subscriber not found")

	// ErrNilChannel is returned when subscribing with a nil channel.
	ErrNilChannel = errors.New("bus: nil channel")
)

// DropPolicy defines what happens when a subscriber cannot keep up.
type DropPolicy int

const (
	// DropOld always accepts a new frame, replacing the undelivered
	// one. The subscriber sees the latest frame (queue depth 1).
	DropOld DropPolicy = iota

	// DropNew delivers into a caller-owned channel without blocking;
	// the incoming frame is dropped when the channel is full.
	DropNew
)

// String returns the string representation of DropPolicy.
func (p DropPolicy) String() string {
	switch p {
	case DropOld:
		return "drop-old"
	case DropNew:
		return "drop-new"
	default:
		return "unknown"
	}
}

// SubscriberStats tracks frame distribution for one subscriber.
type SubscriberStats struct {
	// Sent is the number of frames delivered (or staged for delivery).
	Sent uint64

	// Dropped is the number of frames discarded for this subscriber.
	Dropped uint64
}

// subscriber is one registration on a topic.
type subscriber struct {
	id     string
	policy DropPolicy

	sent    atomic.Uint64
	dropped atomic.Uint64

	// ch receives frames under DropNew.
	ch chan<- *framepipe.Frame

	// recv holds the latest frame under DropOld.
	recv *Receiver
}

// Bus distributes frames to topic subscribers.
//
// Bus is safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	topics map[string]map[string]*subscriber
	closed bool

	published atomic.Uint64
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{topics: make(map[string]map[string]*subscriber)}
}

// Subscribe registers a latest-wins (DropOld) subscriber on a topic and
// returns the receiver to consume frames from.
func (b *Bus) Subscribe(topic, id string) (*Receiver, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}
	subs, err := b.slot(topic, id)
	if err != nil {
		return nil, err
	}

	s := &subscriber{id: id, policy: DropOld, recv: newReceiver()}
	subs[id] = s
	return s.recv, nil
}

// SubscribeChan registers a DropNew subscriber delivering into ch.
// The bus never blocks on ch; a full channel drops the incoming frame.
func (b *Bus) SubscribeChan(topic, id string, ch chan<- *framepipe.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	if ch == nil {
		return ErrNilChannel
	}
	subs, err := b.slot(topic, id)
	if err != nil {
		return err
	}

	subs[id] = &subscriber{id: id, policy: DropNew, ch: ch}
	return nil
}

// slot returns the subscriber map for a topic, creating it on demand,
// after checking the id is free. Caller holds b.mu.
func (b *Bus) slot(topic, id string) (map[string]*subscriber, error) {
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[string]*subscriber)
		b.topics[topic] = subs
	}
	if _, exists := subs[id]; exists {
		return nil, ErrSubscriberExists
	}
	return subs, nil
}

// Unsubscribe removes a subscriber and closes its receiver.
func (b *Bus) Unsubscribe(topic, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.topics[topic]
	if !ok {
		return ErrSubscriberNotFound
	}
	s, ok := subs[id]
	if !ok {
		return ErrSubscriberNotFound
	}
	if s.recv != nil {
		s.recv.close()
	}
	delete(subs, id)
	return nil
}

// Publish distributes a frame to every subscriber of the topic,
// transferring ownership to the bus. Publishing on a closed bus or a
// topic without subscribers discards the frame.
func (b *Bus) Publish(topic string, frame *framepipe.Frame) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	b.published.Add(1)

	for _, s := range b.topics[topic] {
		switch s.policy {
		case DropOld:
			if s.recv.replace(frame) {
				s.dropped.Add(1)
			}
			s.sent.Add(1)
		case DropNew:
			select {
			case s.ch <- frame:
				s.sent.Add(1)
			default:
				s.dropped.Add(1)
			}
		}
	}
}

// Publisher returns a framepipe.Publisher that publishes to the topic,
// for wiring a Stage's output to the bus.
func (b *Bus) Publisher(topic string) framepipe.Publisher {
	return framepipe.PublisherFunc(func(f *framepipe.Frame) {
		b.Publish(topic, f)
	})
}

// Stats returns delivery statistics for one subscriber.
func (b *Bus) Stats(topic, id string) (SubscriberStats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subs, ok := b.topics[topic]
	if !ok {
		return SubscriberStats{}, ErrSubscriberNotFound
	}
	s, ok := subs[id]
	if !ok {
		return SubscriberStats{}, ErrSubscriberNotFound
	}
	return SubscriberStats{Sent: s.sent.Load(), Dropped: s.dropped.Load()}, nil
}

// Published returns the total number of frames published on the bus.
func (b *Bus) Published() uint64 { return b.published.Load() }

// Close shuts the bus down: all receivers are closed and further
// publishes are discarded.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, subs := range b.topics {
		for _, s := range subs {
			if s.recv != nil {
				s.recv.close()
			}
		}
	}
	b.topics = nil
}
