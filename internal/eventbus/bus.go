// Package eventbus is the in-process, multi-producer multi-consumer topic
// broker that fans out tick, trade and order-update events to subscribed
// streams, per spec.md section 4.3.
package eventbus

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Channel names a topic subscribers can join.
type Channel string

const (
	MarketData   Channel = "MARKET_DATA"
	OrderUpdates Channel = "ORDER_UPDATES"
	Trades       Channel = "TRADES"
	Errors       Channel = "ERRORS"
	// All is a virtual channel equal to the union of the four real
	// channels above; it is never a publish target, only a subscribe
	// target.
	All Channel = "ALL"
)

var realChannels = []Channel{MarketData, OrderUpdates, Trades, Errors}

// EventType tags the payload carried by an Event.
type EventType string

const (
	EventTick        EventType = "tick"
	EventTrade       EventType = "trade"
	EventOrderUpdate EventType = "order_update"
	EventError       EventType = "error"
	EventLag         EventType = "lag"
)

// Event is the envelope delivered to subscribers. Payload holds the
// channel-specific body (matching.Tick, matching.Trade,
// matching.OrderUpdate, an error message, or a LagPayload).
type Event struct {
	Type      EventType
	Channel   Channel
	Payload   any
	Timestamp int64
}

// LagPayload is the body of an EventLag notification: the subscriber's
// queue overflowed and this many events were dropped to make room.
type LagPayload struct {
	Channel Channel
	Dropped int
}

// DefaultQueueCapacity is the default per-subscriber bounded queue size.
const DefaultQueueCapacity = 256

// LagRecorder receives a count every time a backlogged subscriber's
// oldest queued event is dropped to make room for a new one.
type LagRecorder interface {
	RecordSubscriberLag(channel string)
}

// Subscriber is one registered consumer. It owns a bounded queue; the bus
// never blocks a publisher waiting on a slow subscriber.
type Subscriber struct {
	ID       string
	queue    chan Event
	mu       sync.Mutex
	channels map[Channel]bool
	closed   bool
}

// Events returns the channel of events to drain. Closed when Unsubscribe
// is called.
func (s *Subscriber) Events() <-chan Event {
	return s.queue
}

func (s *Subscriber) memberOf(ch Channel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channels[ch] || s.channels[All]
}

// Subscribe adds ch to the subscriber's membership set.
func (s *Subscriber) Subscribe(ch Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[ch] = true
}

// Unsubscribe removes ch from the subscriber's membership set.
func (s *Subscriber) Unsubscribe(ch Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.channels, ch)
}

// Bus is the topic broker. Zero value is not usable; use NewBus.
type Bus struct {
	logger        *zap.Logger
	queueCapacity int
	metrics       LagRecorder

	mu        sync.RWMutex
	byChannel map[Channel]map[string]*Subscriber
	all       map[string]*Subscriber
}

// SetMetrics attaches a lag recorder. Optional; nil-safe if never called.
func (b *Bus) SetMetrics(m LagRecorder) {
	b.metrics = m
}

// NewBus creates a bus whose subscriber queues hold queueCapacity events
// before the drop-oldest policy engages.
func NewBus(logger *zap.Logger, queueCapacity int) *Bus {
	if queueCapacity <= 0 {
		queueCapacity = DefaultQueueCapacity
	}
	byChannel := make(map[Channel]map[string]*Subscriber, len(realChannels))
	for _, ch := range realChannels {
		byChannel[ch] = make(map[string]*Subscriber)
	}
	return &Bus{
		logger:        logger,
		queueCapacity: queueCapacity,
		byChannel:     byChannel,
		all:           make(map[string]*Subscriber),
	}
}

// Subscribe registers a new subscriber with the given initial channel
// membership (which may include the virtual All channel) and returns a
// handle to read its event queue. The underlying queue is allocated one
// slot larger than queueCapacity: that extra slot is reserved for a lag
// notification so reporting an overflow never costs a second live event.
func (b *Bus) Subscribe(id string, channels ...Channel) *Subscriber {
	sub := &Subscriber{
		ID:       id,
		queue:    make(chan Event, b.queueCapacity+1),
		channels: make(map[Channel]bool, len(channels)),
	}
	for _, ch := range channels {
		sub.channels[ch] = true
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.all[id] = sub
	for _, ch := range realChannels {
		if sub.channels[ch] || sub.channels[All] {
			b.byChannel[ch][id] = sub
		}
	}
	return sub
}

// JoinChannel adds an already-registered subscriber to ch's roster (used
// when a client sends a subscribe control frame after connecting).
func (b *Bus) JoinChannel(id string, ch Channel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.all[id]
	if !ok {
		return
	}
	sub.Subscribe(ch)
	if ch == All {
		for _, rc := range realChannels {
			b.byChannel[rc][id] = sub
		}
		return
	}
	b.byChannel[ch][id] = sub
}

// LeaveChannel removes a subscriber from ch's roster.
func (b *Bus) LeaveChannel(id string, ch Channel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.all[id]
	if !ok {
		return
	}
	sub.Unsubscribe(ch)
	if ch == All {
		for _, rc := range realChannels {
			if !sub.memberOf(rc) {
				delete(b.byChannel[rc], id)
			}
		}
		return
	}
	if !sub.memberOf(ch) {
		delete(b.byChannel[ch], id)
	}
}

// Unsubscribe removes a subscriber entirely and closes its queue.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.all[id]
	if !ok {
		return
	}
	delete(b.all, id)
	for _, ch := range realChannels {
		delete(b.byChannel[ch], id)
	}
	close(sub.queue)
}

// Publish fans an event out to every subscriber of ch, in publish order,
// without blocking. A subscriber whose queue is full has its oldest
// queued event dropped to make room; that subscriber alone then also
// receives a best-effort lag notification, never at the cost of a second
// live event. The bus never drops an event globally — only from an
// individual backlogged subscriber's queue.
func (b *Bus) Publish(ch Channel, eventType EventType, payload any) {
	event := Event{Type: eventType, Channel: ch, Payload: payload, Timestamp: time.Now().UnixMilli()}

	b.mu.RLock()
	subs := make([]*Subscriber, 0, len(b.byChannel[ch]))
	for _, sub := range b.byChannel[ch] {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		b.deliver(sub, event)
	}
}

// deliver attempts a non-blocking send while the subscriber holds fewer
// than queueCapacity live events. Past that point it drops the oldest
// queued event for this subscriber only, retries once, and then queues a
// lag notification into the reserved +1 slot Subscribe allocated for
// exactly this purpose — the lag send can never evict a second live event
// to make room for itself.
func (b *Bus) deliver(sub *Subscriber, event Event) {
	if len(sub.queue) < b.queueCapacity {
		select {
		case sub.queue <- event:
			return
		default:
		}
	}

	select {
	case <-sub.queue:
	default:
	}

	select {
	case sub.queue <- event:
	default:
		return
	}

	if b.logger != nil {
		b.logger.Warn("subscriber backlog overflow, dropped oldest event",
			zap.String("subscriber_id", sub.ID), zap.String("channel", string(event.Channel)))
	}
	if b.metrics != nil {
		b.metrics.RecordSubscriberLag(string(event.Channel))
	}

	lag := Event{
		Type:      EventLag,
		Channel:   event.Channel,
		Payload:   LagPayload{Channel: event.Channel, Dropped: 1},
		Timestamp: time.Now().UnixMilli(),
	}
	select {
	case sub.queue <- lag:
	default:
	}
}
