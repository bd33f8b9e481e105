// Package eventbus fans lifecycle events out to in-process subscribers over
// bounded channels.
package eventbus

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kingrea/switchboard/internal/logbook"
)

const (
	defaultSubscriberCapacity = 100
	defaultBacklogLimit       = 50
	defaultDedupeWindow       = 1024
)

// Option customizes Bus construction.
type Option func(*Bus)

// Bus delivers events to subscribers keyed by component id, plus the
// AllTopic subscribers. Events for a topic nobody listens to are buffered
// up to the backlog limit.
type Bus struct {
	mu           sync.RWMutex
	subscribers  map[string]map[*subscriber]struct{}
	backlog      map[string][]Event
	recentIDs    map[string]struct{}
	recentOrder  []string
	channelSize  int
	backlogLimit int
	dedupeWindow int
	seq          uint64
	clock        func() time.Time
	logger       logbook.Logger
}

// Subscription represents an active subscription.
type Subscription struct {
	Events <-chan Event
	cancel func()
}

// Close terminates the subscription and closes its channel.
func (s Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// New constructs a bus with default limits.
func New(opts ...Option) *Bus {
	b := &Bus{
		subscribers:  map[string]map[*subscriber]struct{}{},
		backlog:      map[string][]Event{},
		recentIDs:    map[string]struct{}{},
		recentOrder:  make([]string, 0, defaultDedupeWindow),
		channelSize:  defaultSubscriberCapacity,
		backlogLimit: defaultBacklogLimit,
		dedupeWindow: defaultDedupeWindow,
		clock:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// WithLogger injects a logger for drop messages.
func WithLogger(logger logbook.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// WithSubscriberCapacity overrides the buffered channel size per subscriber.
func WithSubscriberCapacity(capacity int) Option {
	return func(b *Bus) {
		if capacity > 0 {
			b.channelSize = capacity
		}
	}
}

// WithBacklogLimit overrides the per-topic buffer used before anyone subscribes.
func WithBacklogLimit(limit int) Option {
	return func(b *Bus) {
		if limit > 0 {
			b.backlogLimit = limit
		}
	}
}

// WithClock injects the clock used to stamp events.
func WithClock(clock func() time.Time) Option {
	return func(b *Bus) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// Subscribe registers for events about topic, a component id or AllTopic.
func (b *Bus) Subscribe(topic string) Subscription {
	topic = normalizeTopic(topic)
	sub := newSubscriber(b.channelSize, b.logger)
	var backlog []Event
	b.mu.Lock()
	if b.subscribers[topic] == nil {
		b.subscribers[topic] = map[*subscriber]struct{}{}
	}
	b.subscribers[topic][sub] = struct{}{}
	if existing := b.backlog[topic]; len(existing) > 0 {
		backlog = append(backlog, existing...)
		delete(b.backlog, topic)
	}
	b.mu.Unlock()
	for _, event := range backlog {
		sub.deliver(event)
	}
	return Subscription{
		Events: sub.channel(),
		cancel: func() {
			b.removeSubscriber(topic, sub)
		},
	}
}

// Publish stamps event and delivers it to the component topic and to
// AllTopic. A nil bus drops the event.
func (b *Bus) Publish(event Event) {
	if b == nil {
		return
	}
	event.Normalize()
	b.mu.Lock()
	b.seq++
	event.Sequence = b.seq
	if event.EventID == "" {
		event.EventID = "evt-" + strconv.FormatUint(b.seq, 10)
	}
	if event.Time.IsZero() {
		event.Time = b.clock()
	}
	b.mu.Unlock()
	if b.isDuplicate(event.EventID) {
		return
	}
	topics := []string{AllTopic}
	if id := normalizeTopic(event.ComponentID); id != "" && id != AllTopic {
		topics = append(topics, id)
	}
	for _, topic := range topics {
		b.mu.RLock()
		subs := b.snapshotSubscribers(topic)
		b.mu.RUnlock()
		if len(subs) == 0 {
			b.bufferEvent(topic, event)
			continue
		}
		for _, sub := range subs {
			sub.deliver(event)
		}
	}
}

func (b *Bus) snapshotSubscribers(topic string) []*subscriber {
	live := b.subscribers[topic]
	if len(live) == 0 {
		return nil
	}
	items := make([]*subscriber, 0, len(live))
	for sub := range live {
		items = append(items, sub)
	}
	return items
}

func (b *Bus) removeSubscriber(topic string, sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs := b.subscribers[topic]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.subscribers, topic)
		}
	}
	sub.close()
}

func (b *Bus) bufferEvent(topic string, event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	queue := b.backlog[topic]
	if len(queue) >= b.backlogLimit {
		queue = queue[1:]
		if b.logger != nil {
			b.logger.Printf("eventbus: backlog drop for %s (limit %d)", topic, b.backlogLimit)
		}
	}
	queue = append(queue, event)
	b.backlog[topic] = queue
}

func (b *Bus) isDuplicate(eventID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.recentIDs[eventID]; ok {
		return true
	}
	b.recentIDs[eventID] = struct{}{}
	b.recentOrder = append(b.recentOrder, eventID)
	if len(b.recentOrder) > b.dedupeWindow {
		oldest := b.recentOrder[0]
		b.recentOrder = b.recentOrder[1:]
		delete(b.recentIDs, oldest)
	}
	return false
}

func normalizeTopic(topic string) string {
	return strings.TrimSpace(topic)
}

type subscriber struct {
	ch      chan Event
	logger  logbook.Logger
	closed  bool
	closeMu sync.Mutex
}

func newSubscriber(capacity int, logger logbook.Logger) *subscriber {
	if capacity <= 0 {
		capacity = defaultSubscriberCapacity
	}
	return &subscriber{
		ch:     make(chan Event, capacity),
		logger: logger,
	}
}

func (s *subscriber) channel() <-chan Event {
	return s.ch
}

// deliver never blocks. On overflow one of the oldest queued event and the
// incoming event is dropped, keeping report and error events over outcomes.
func (s *subscriber) deliver(event Event) {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- event:
		return
	default:
	}
	select {
	case oldest := <-s.ch:
		if shouldDropOldest(oldest, event) {
			s.logDrop(oldest, "queue overflow")
			s.ch <- event
		} else {
			s.ch <- oldest
			s.logDrop(event, "queue overflow:incoming")
		}
	default:
		s.ch <- event
	}
}

func (s *subscriber) logDrop(event Event, reason string) {
	if s.logger == nil {
		return
	}
	s.logger.Printf("eventbus: dropped %s (%s)", event.Type, reason)
}

func (s *subscriber) close() {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

func shouldDropOldest(oldest, incoming Event) bool {
	oldestCritical := isCriticalEvent(oldest.Type)
	incomingCritical := isCriticalEvent(incoming.Type)
	switch {
	case oldestCritical && !incomingCritical:
		return false
	case !oldestCritical && incomingCritical:
		return true
	}
	oldestPreferred := oldest.Type == TypeOutcome
	incomingPreferred := incoming.Type == TypeOutcome
	if !oldestPreferred && incomingPreferred {
		return false
	}
	return true
}

func isCriticalEvent(kind string) bool {
	return kind == TypeReport || kind == TypeError
}
